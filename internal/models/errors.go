package models

import "errors"

// Error kinds reported by the ledger core. Callers match them with errors.Is;
// the wrapped message carries the detail.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrResolution      = errors.New("identity resolution failed")
	ErrPersistence     = errors.New("persistence failure")
)
