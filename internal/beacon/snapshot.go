package beacon

import (
	"time"

	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/ciaryc/melvin/internal/vec2d"
)

// MeasSnapshot is a wire-friendly projection of a Meas, used to warm-start
// a BayesianSet's measurement history across an operator-console
// reconnect. Timestamps and delays are carried as protobuf well-known
// types rather than raw durations so the snapshot can be embedded directly
// in a future protobuf-framed console message without another conversion
// layer.
type MeasSnapshot struct {
	ID      int32
	PosX    float64
	PosY    float64
	RSSI    float64
	Delay   *durationpb.Duration
	TakenAt *timestamppb.Timestamp
}

// Snapshot captures the measurement history as wire-friendly records.
func (b *BayesianSet) Snapshot(takenAt time.Time) []MeasSnapshot {
	out := make([]MeasSnapshot, 0, len(b.Measurements))
	ts := timestamppb.New(takenAt)
	for _, m := range b.Measurements {
		out = append(out, MeasSnapshot{
			ID:      int32(m.ID),
			PosX:    m.Pos.Xf(),
			PosY:    m.Pos.Yf(),
			RSSI:    m.RSSI,
			Delay:   durationpb.New(m.Delay),
			TakenAt: ts,
		})
	}
	return out
}

// Restore rebuilds a BayesianSet by replaying a measurement snapshot
// through Update, in order.
func Restore(snaps []MeasSnapshot) *BayesianSet {
	b := NewBayesianSet()
	for _, s := range snaps {
		b.Update(Meas{
			ID:    int(s.ID),
			Pos:   vec2d.New(s.PosX, s.PosY),
			RSSI:  s.RSSI,
			Delay: s.Delay.AsDuration(),
		})
	}
	return b
}
