package fdc

import (
	"errors"
	"fmt"
)

var (
	// ErrUnexpectedShape is returned when a payload is not the JSON shape an
	// endpoint documents (a list for food listings, an object for a food).
	ErrUnexpectedShape = errors.New("unexpected payload shape")

	// ErrUnknownDataType is returned for a dataType discriminator outside
	// the four known values.
	ErrUnknownDataType = errors.New("unknown data type")

	// ErrInvalidRecord is returned when a record lacks a required field.
	ErrInvalidRecord = errors.New("invalid record")
)

// StatusError reports an HTTP response with status 400 or above.
type StatusError struct {
	StatusCode int
	Endpoint   string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fdc %s: http status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}
