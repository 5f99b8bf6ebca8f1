// Package simclient is the HTTP boundary to the external satellite
// simulator: observation/control, image shoot, objective polling, beacon
// submission, and the announcement SSE stream. Per spec.md §1 these wire
// formats are an external collaborator's concern; this package's job is
// just to decode/encode across that boundary and retry transient failures,
// per spec.md §7's error-handling design.
package simclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ciaryc/melvin/internal/beacon"
	"github.com/ciaryc/melvin/internal/flightcomputer"
	"github.com/ciaryc/melvin/internal/vec2d"
)

// Client talks to the simulator's HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a Client bound to baseURL (e.g. "http://127.0.0.1:8000").
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// transientRetries bounds how many times a transient (5xx/timeout) failure
// is retried inside the originating call before surfacing to the caller,
// per spec.md §7.1.
const transientRetries = 3

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= transientRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return nil, err
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(200 * time.Millisecond)
			continue
		}
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("simclient: transient %s from %s", resp.Status, path)
			time.Sleep(200 * time.Millisecond)
			continue
		}
		if resp.StatusCode == http.StatusBadRequest {
			b, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("%w: %s", flightcomputer.ErrContractViolation, strings.TrimSpace(string(b)))
		}
		return resp, nil
	}
	return nil, lastErr
}

// observationWire is GET /observation's body; each of the simulator's 32.32
// fixed-point scalars is carried as a JSON number on the wire and decoded straight
// to float64 (Go's float64 has ample precision for 32.32 values).
type observationWire struct {
	State            string  `json:"state"`
	Angle            float64 `json:"angle"`
	SimulationSpeed  float64 `json:"simulation_speed"`
	WidthX           float64 `json:"width_x"`
	HeightY          float64 `json:"height_y"`
	VX               float64 `json:"vx"`
	VY               float64 `json:"vy"`
	Battery          float64 `json:"battery"`
	MaxBattery       float64 `json:"max_battery"`
	Fuel             float64 `json:"fuel"`
	Timestamp        int64   `json:"timestamp"`
}

func decodeState(s string) flightcomputer.State {
	switch strings.ToLower(s) {
	case "acquisition":
		return flightcomputer.StateAcquisition
	case "charge":
		return flightcomputer.StateCharge
	case "communication", "comms":
		return flightcomputer.StateComms
	case "transition":
		return flightcomputer.StateTransition
	case "safe":
		return flightcomputer.StateSafe
	default:
		return flightcomputer.StateDeployment
	}
}

func encodeState(s flightcomputer.State) string {
	switch s {
	case flightcomputer.StateAcquisition:
		return "acquisition"
	case flightcomputer.StateCharge:
		return "charge"
	case flightcomputer.StateComms:
		return "communication"
	default:
		return "acquisition"
	}
}

// GetObservation implements flightcomputer.Simulator.
func (c *Client) GetObservation(ctx context.Context) (flightcomputer.Observation, error) {
	resp, err := c.do(ctx, http.MethodGet, "/observation", nil, "")
	if err != nil {
		return flightcomputer.Observation{}, err
	}
	defer resp.Body.Close()

	var w observationWire
	if err := json.NewDecoder(resp.Body).Decode(&w); err != nil {
		return flightcomputer.Observation{}, err
	}

	return flightcomputer.Observation{
		State:           decodeState(w.State),
		Angle:           w.Angle,
		SimulationSpeed: w.SimulationSpeed,
		Pos:             vec2d.New(w.WidthX, w.HeightY),
		Vel:             vec2d.New(w.VX, w.VY),
		Battery:         w.Battery,
		MaxBattery:      w.MaxBattery,
		Fuel:            w.Fuel,
		Timestamp:       w.Timestamp,
	}, nil
}

type controlWire struct {
	VelX        *float64 `json:"vel_x,omitempty"`
	VelY        *float64 `json:"vel_y,omitempty"`
	CameraAngle *float64 `json:"camera_angle,omitempty"`
	State       *string  `json:"state,omitempty"`
}

// PutControl implements flightcomputer.Simulator.
func (c *Client) PutControl(ctx context.Context, cmd flightcomputer.ControlCommand) error {
	w := controlWire{CameraAngle: cmd.CameraAngle}
	if cmd.Vel != nil {
		x, y := cmd.Vel.Xf(), cmd.Vel.Yf()
		w.VelX, w.VelY = &x, &y
	}
	if cmd.TargetState != nil {
		s := encodeState(*cmd.TargetState)
		w.State = &s
	}

	b, err := json.Marshal(w)
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodPut, "/control", bytes.NewReader(b), "application/json")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// GetImage fetches the current camera frame as streamed PNG bytes.
func (c *Client) GetImage(ctx context.Context) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, "/image", nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// ZoneWire mirrors a zoned objective's rectangle on the wire.
type ZoneWire struct {
	X1, Y1, X2, Y2 float64
}

// ObjectiveWire mirrors one entry of GET /objective's zoned_objectives.
type ObjectiveWire struct {
	ID               int      `json:"id"`
	Name             string   `json:"name"`
	Start            int64    `json:"start"`
	End              int64    `json:"end"`
	Secret           bool     `json:"secret"`
	Zone             *ZoneWire `json:"zone,omitempty"`
	Lens             string   `json:"lens"`
	CoverageRequired float64  `json:"coverage_required"`
}

// BeaconObjectiveWire mirrors one entry of GET /objective's
// beacon_objectives.
type BeaconObjectiveWire struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Start int64  `json:"start"`
	End   int64  `json:"end"`
}

// ObjectivesResponse is GET /objective's decoded body.
type ObjectivesResponse struct {
	ZonedObjectives  []ObjectiveWire       `json:"zoned_objectives"`
	BeaconObjectives []BeaconObjectiveWire `json:"beacon_objectives"`
}

// GetObjectives fetches the current objective lists.
func (c *Client) GetObjectives(ctx context.Context) (ObjectivesResponse, error) {
	resp, err := c.do(ctx, http.MethodGet, "/objective", nil, "")
	if err != nil {
		return ObjectivesResponse{}, err
	}
	defer resp.Body.Close()
	var out ObjectivesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ObjectivesResponse{}, err
	}
	return out, nil
}

// SubmitBeaconGuess implements beacon.Submitter: PUT /beacon with the
// beacon_id/width/height headers the spec describes.
func (c *Client) SubmitBeaconGuess(ctx context.Context, beaconID int, guess [2]int) (beacon.SubmitResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/beacon", nil)
	if err != nil {
		return beacon.SubmitUnknown, err
	}
	req.Header.Set("beacon_id", strconv.Itoa(beaconID))
	req.Header.Set("width", strconv.Itoa(guess[0]))
	req.Header.Set("height", strconv.Itoa(guess[1]))

	resp, err := c.http.Do(req)
	if err != nil {
		return beacon.SubmitUnknown, err
	}
	defer resp.Body.Close()

	var body struct {
		Result string `json:"result"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	switch strings.ToLower(body.Result) {
	case "success":
		return beacon.SubmitSuccess, nil
	case "fail":
		return beacon.SubmitFailKeepTrying, nil
	case "last":
		return beacon.SubmitLastChanceFailed, nil
	default:
		return beacon.SubmitUnknown, nil
	}
}

// UploadZOImage uploads a captured image for a zoned objective via
// multipart POST.
func (c *Client) UploadZOImage(ctx context.Context, objectiveID int, png []byte) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", "image.png")
	if err != nil {
		return err
	}
	if _, err := part.Write(png); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	path := fmt.Sprintf("/image?objective_id=%d", objectiveID)
	resp, err := c.do(ctx, http.MethodPost, path, &buf, w.FormDataContentType())
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// UploadDailyMap uploads the full-resolution daily snapshot via multipart
// POST to /dailyMap.
func (c *Client) UploadDailyMap(ctx context.Context, png []byte) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("map", "daily.png")
	if err != nil {
		return err
	}
	if _, err := part.Write(png); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	resp, err := c.do(ctx, http.MethodPost, "/dailyMap", &buf, w.FormDataContentType())
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Announcement is one line pushed over the announcement SSE stream.
type Announcement struct {
	Timestamp time.Time
	Message   string
}

// StreamAnnouncements connects to GET /announcements and pushes decoded SSE
// "data:" lines to out until ctx is cancelled, reconnecting whenever the
// connection ends (after a 2 s delay when the attempt failed). It returns
// only on cancellation, with ctx's error; connection errors are not
// reported to the caller.
func (c *Client) StreamAnnouncements(ctx context.Context, out chan<- Announcement) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.streamOnce(ctx, out); err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(2 * time.Second):
			}
		}
	}
}

func (c *Client) streamOnce(ctx context.Context, out chan<- Announcement) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/announcements", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		msg := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if msg == "" {
			continue
		}
		select {
		case out <- Announcement{Timestamp: time.Now(), Message: msg}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return scanner.Err()
}

// Reset calls the simulator's admin reset endpoint.
func (c *Client) Reset(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/reset", nil, "")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// ScheduleSecretZone maps to the simulator's PUT /objective admin call,
// assigning coordinates to a previously-secret objective.
func (c *Client) ScheduleSecretZone(ctx context.Context, objectiveID int, zone ZoneWire) error {
	b, err := json.Marshal(struct {
		ObjectiveID int      `json:"objective_id"`
		Zone        ZoneWire `json:"zone"`
	}{objectiveID, zone})
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodPut, "/objective", bytes.NewReader(b), "application/json")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
