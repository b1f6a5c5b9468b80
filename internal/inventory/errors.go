package inventory

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist
	ErrNotFound = errors.New("not found")

	// ErrAlreadyRunning is returned when a supplier already has a queued or running sync
	ErrAlreadyRunning = errors.New("sync already running for supplier")

	// ErrAlreadyResolved is returned when resolving a conflict that is no longer pending
	ErrAlreadyResolved = errors.New("conflict already resolved")

	// ErrInvalidState is returned when an operation does not apply to the record's current status
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidSchedule is returned when a schedule update fails validation
	ErrInvalidSchedule = errors.New("invalid schedule")

	// ErrInvalidResolution is returned for unknown resolution strategies
	ErrInvalidResolution = errors.New("invalid resolution")

	// ErrSupplierDisabled is returned when triggering a sync for a disabled supplier
	ErrSupplierDisabled = errors.New("supplier sync disabled")
)
