package strategy

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyProfile is returned when a simulation is asked to run over zero timesteps.
	ErrEmptyProfile = errors.New("empty velocity profile")
	// ErrUnknownParam is returned when a configuration key is not in the parameter table.
	ErrUnknownParam = errors.New("unknown parameter")
	// ErrUnknownMethod is returned for an unsupported optimizer method identifier.
	ErrUnknownMethod = errors.New("unknown optimizer method")
)

// ShapeError reports timestep sequences that do not line up.
type ShapeError struct {
	Name     string
	Got      int
	Expected int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s has %d entries, expected %d", e.Name, e.Got, e.Expected)
}

// ParamError reports a configuration or vehicle field that failed validation.
type ParamError struct {
	Name   string
	Value  string
	Reason string
	Err    error
}

func (e *ParamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parameter %s=%q: %s: %s", e.Name, e.Value, e.Reason, e.Err)
	}
	return fmt.Sprintf("parameter %s=%q: %s", e.Name, e.Value, e.Reason)
}

func (e *ParamError) Unwrap() error { return e.Err }
