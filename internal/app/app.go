// Package app wires together the HTTP dashboard, the WebSocket telemetry
// hub, the TCP console, the supervisor, and the global-mode FSM driver. It
// owns the daemon's lifecycle and is the single source of truth for the
// current operating state.
package app

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ciaryc/melvin/internal/beaconctrl"
	"github.com/ciaryc/melvin/internal/config"
	"github.com/ciaryc/melvin/internal/console"
	"github.com/ciaryc/melvin/internal/flightcomputer"
	"github.com/ciaryc/melvin/internal/mapimage"
	"github.com/ciaryc/melvin/internal/melvin"
	"github.com/ciaryc/melvin/internal/mode"
	"github.com/ciaryc/melvin/internal/objective"
	"github.com/ciaryc/melvin/internal/orbit"
	"github.com/ciaryc/melvin/internal/simclient"
	"github.com/ciaryc/melvin/internal/supervisor"
	"github.com/ciaryc/melvin/internal/task"
	"github.com/ciaryc/melvin/internal/telemetry"
	"github.com/ciaryc/melvin/internal/ws"
)

// Options holds everything the App needs from the caller.
type Options struct {
	Logger *log.Logger
	Cfg    config.Config
	Bind   string
}

// App is the top-level daemon process: it drives the flight computer, the
// supervisor, the global-mode FSM, and exposes the operator dashboard,
// console, and WebSocket telemetry.
type App struct {
	log    *log.Logger
	cfg    config.Config
	bind   string
	server *http.Server

	startedAt time.Time
	state     atomic.Value // current mode name string

	wsHub      *ws.Hub
	consoleHub *console.Hub

	sim   *simclient.Client
	fc    *flightcomputer.FlightComputer
	super *supervisor.Supervisor
	bctrl *beaconctrl.Controller
	mctx  *melvin.Context
}

// New creates an App in the "booting" state. Call Run to start serving.
func New(opts Options) *App {
	sim := simclient.New(opts.Cfg.Melvin.SimulatorURL)
	logger := opts.Logger
	fc := flightcomputer.New(sim, logger)
	bctrl := beaconctrl.New(fc, sim)

	a := &App{
		log:        logger,
		cfg:        opts.Cfg,
		bind:       opts.Bind,
		startedAt:  time.Now(),
		wsHub:      ws.NewHub(),
		consoleHub: console.NewHub(),
		sim:        sim,
		fc:         fc,
		bctrl:      bctrl,
	}
	a.state.Store("booting")

	var mapExp supervisor.MapExporter
	if img, err := mapimage.Open(opts.Cfg.MapImage.Path, opts.Cfg.MapImage.SnapshotDir, sim); err == nil {
		mapExp = img
	} else if logger != nil {
		logger.Printf("mapimage: disabled, open failed: %v", err)
	}

	a.super = supervisor.New(fc, sim, sim, mapExp, logger)

	zoCh := make(chan objective.KnownImgObjective, 1)
	go forwardZOs(a.super.ZOChannel(), zoCh)

	a.mctx = melvin.NewContext(melvin.Keychain{
		Sim:        sim,
		FC:         fc,
		Supervisor: a.super,
		BeaconCtrl: bctrl,
	}, zoCh, bctrl.Watch())

	return a
}

// forwardZOs relays newly discovered objectives from the supervisor into
// the context's own channel, since melvin.Context takes a receive-only
// channel it doesn't own the producer side of.
func forwardZOs(in <-chan objective.KnownImgObjective, out chan<- objective.KnownImgObjective) {
	for o := range in {
		out <- o
	}
}

// Run starts the HTTP dashboard, console, WebSocket hub, heartbeat ticker,
// and the supervisor/global-mode FSM. It blocks until the context is
// cancelled or the server returns an error.
func (a *App) Run(ctx context.Context) error {
	bind := a.bind
	if bind == "" && a.cfg.HTTP.Bind != "" {
		bind = a.cfg.HTTP.Bind
	}
	if bind == "" {
		bind = "0.0.0.0:8080"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", a.handleHealthz)
	mux.HandleFunc("/api/status", a.handleStatus)
	mux.HandleFunc("/api/version", a.handleVersion)
	mux.HandleFunc("/api/config", a.handleConfig)
	mux.HandleFunc("/api/beacons", a.handleBeacons)
	mux.Handle("/ws", a.wsHub.Handler())

	a.server = &http.Server{
		Addr:              bind,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return err
	}
	a.log.Printf("dashboard listening on http://%s", bind)

	consoleBind := a.cfg.Console.Bind
	if consoleBind == "" {
		consoleBind = "0.0.0.0:1337"
	}
	consoleLn, err := a.consoleHub.Serve(consoleBind)
	if err != nil {
		return err
	}
	a.log.Printf("console listening on tcp://%s", consoleBind)

	go a.wsHub.Run(ctx)
	go a.fc.RunObservationLoop(ctx)
	go a.bctrl.Run(ctx)
	go a.super.Run(ctx)
	go a.initOrbitAndRunMode(ctx)
	go a.heartbeatLoop(ctx)

	go func() {
		<-ctx.Done()
		a.log.Printf("shutdown requested")
		_ = consoleLn.Close()
		_ = a.server.Shutdown(context.Background())
	}()

	return a.server.Serve(ln)
}

// initOrbitAndRunMode waits for the first observation, closes the nominal
// orbit around it, installs it on the context, and starts the global-mode
// FSM driver in InOrbit(Mapping).
func (a *App) initOrbitAndRunMode(ctx context.Context) {
	var obs flightcomputer.Observation
	for {
		o, err := a.sim.GetObservation(ctx)
		if err == nil {
			obs = o
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}

	o, err := orbit.New(obs.Pos, obs.Vel, orbit.LensNormal, time.Now())
	if err != nil {
		a.log.Printf("orbit: failed to close nominal orbit: %v", err)
		return
	}
	a.mctx.SetOrbit(o)

	listener := &mode.Listener{
		OnModeChange:    func(_, to string) { a.transition(to) },
		OnQueueSnapshot: a.broadcastTaskList,
	}
	mode.Run(ctx, a.mctx, &mode.InOrbitMode{Base: mode.BaseMapping}, a.log, listener)
}

// broadcastTaskList projects the mode driver's queue into console.TaskView
// values and pushes the snapshot to every connected console client.
func (a *App) broadcastTaskList(tasks []task.Task) {
	views := make([]console.TaskView, len(tasks))
	for i, t := range tasks {
		views[i] = console.TaskView{Kind: taskKindName(t.Kind), At: t.At}
	}
	a.consoleHub.SetTasks(views)
}

func taskKindName(k task.Kind) string {
	switch k {
	case task.KindSwitchState:
		return "SwitchState"
	case task.KindTakeImage:
		return "TakeImage"
	case task.KindChangeVelocity:
		return "ChangeVelocity"
	default:
		return "Unknown"
	}
}

// transition atomically updates the daemon's reported mode and broadcasts
// the change to all connected WebSocket clients.
func (a *App) transition(newState string) {
	old, _ := a.state.Load().(string)
	if old == newState {
		return
	}
	a.state.Store(newState)

	a.wsHub.Broadcast(telemetry.ModeChange{
		Event: telemetry.Event{Type: telemetry.EventModeChange, TS: telemetry.NowTS()},
		From:  old,
		To:    newState,
	})
}

// heartbeatLoop sends a periodic heartbeat event so clients can detect
// connectivity and track uptime without polling.
func (a *App) heartbeatLoop(ctx context.Context) {
	t := time.NewTicker(10 * time.Second)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			a.wsHub.Broadcast(telemetry.Heartbeat{
				Event:         telemetry.Event{Type: telemetry.EventHeartbeat, TS: telemetry.NowTS()},
				ModeSwitches:  a.mctx.ModeSwitches(),
				UptimeSeconds: int64(time.Since(a.startedAt).Seconds()),
			})
		}
	}
}

func (a *App) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (a *App) handleStatus(w http.ResponseWriter, _ *http.Request) {
	obs := a.fc.Snapshot()
	resp := map[string]any{
		"name":           "melvind",
		"uptime_seconds": int64(time.Since(a.startedAt).Seconds()),
		"mode_switches":  a.mctx.ModeSwitches(),
		"flight_state":   obs.State.String(),
		"battery":        obs.Battery,
		"fuel":           obs.Fuel,
		"pos":            map[string]float64{"x": obs.Pos.Xf(), "y": obs.Pos.Yf()},
		"data_root":      a.cfg.Data.Root,
	}
	if du := diskUsage(a.cfg.Data.Root); du != nil {
		resp["disk"] = du
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (a *App) handleVersion(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{"version": Version, "go_version": GoVersion, "built_at": BuiltAt}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (a *App) handleConfig(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(a.cfg)
}

func (a *App) handleBeacons(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"active": a.bctrl.ActiveCount(),
		"done":   a.bctrl.Done(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
