package flightcomputer

import (
	"context"

	"github.com/ciaryc/melvin/internal/vec2d"
)

// Observation mirrors the simulator's GET /observation response, already
// decoded from its fixed-point 32.32 wire encoding.
type Observation struct {
	State            State
	Angle            float64
	SimulationSpeed   float64
	Pos              vec2d.Vec2D
	Vel              vec2d.Vec2D
	Battery          float64
	MaxBattery       float64
	Fuel             float64
	Timestamp        int64
}

// ControlCommand mirrors the simulator's PUT /control request body.
type ControlCommand struct {
	Vel         *vec2d.Vec2D
	CameraAngle *float64
	TargetState *State
}

// Simulator is the boundary flightcomputer talks through. Implemented by
// internal/simclient; kept as a narrow interface here so this package has
// no HTTP dependency of its own.
type Simulator interface {
	GetObservation(ctx context.Context) (Observation, error)
	PutControl(ctx context.Context, cmd ControlCommand) error
}
