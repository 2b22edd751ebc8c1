package commands

import "errors"

// Static errors for err113 compliance.
var (
	ErrInvalidValue = errors.New("invalid configuration value")
)
