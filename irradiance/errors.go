package irradiance

import (
	"errors"
	"fmt"
)

// ErrNotCovered is returned when a forecast does not reach a requested time.
var ErrNotCovered = errors.New("forecast does not cover requested time")

// LengthError reports a provider returning the wrong number of values.
type LengthError struct {
	Got, Expected int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("irradiance: got %d values, expected %d", e.Got, e.Expected)
}

// StatusError is a non-2xx answer from a live source.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("irradiance: unexpected status %d: %s", e.Code, e.Body)
}
