// Package common defines sentinel errors shared by the repositories and
// services. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Settings validation errors.
	ErrInvalidSetting = errors.New("invalid setting")
)
