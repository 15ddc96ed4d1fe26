package mpm

import (
	"errors"
	"fmt"

	"github.com/san-kum/snowsim/internal/vmath"
)

// Domain errors for simulation operations.
var (
	// ErrConfig indicates an invalid simulator configuration.
	ErrConfig = errors.New("mpm: invalid configuration")

	// ErrUnstable indicates the simulation became numerically unstable.
	ErrUnstable = errors.New("mpm: simulation unstable (particle state diverged)")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("mpm: parameter out of valid bounds")

	// ErrUnknownMaterial indicates a material name with no constitutive model.
	ErrUnknownMaterial = errors.New("mpm: unknown material")

	// ErrInvalidRegion indicates an emission region that cannot hold particles.
	ErrInvalidRegion = errors.New("mpm: invalid emission region")

	// ErrFinished is returned once the configured simulation time is reached.
	ErrFinished = errors.New("mpm: simulation finished")
)

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step     int64
	Time     float64
	Particle int
	Position vmath.Vec2
	Wrapped  error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.6f) particle %d at (%.4f, %.4f): %v",
		e.Step, e.Time, e.Particle, e.Position.X, e.Position.Y, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}

// EventError reports a failing event callback.
type EventError struct {
	T     float64
	Index int
	Err   error
}

func (e *EventError) Error() string {
	return fmt.Sprintf("event %d (t=%g): %v", e.Index, e.T, e.Err)
}

func (e *EventError) Unwrap() error {
	return e.Err
}
