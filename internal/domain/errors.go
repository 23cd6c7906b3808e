package domain

import "errors"

// Sentinel errors shared by every service in the production core. Handlers map
// them to HTTP status codes; services wrap them with context via fmt.Errorf and %w.
var (
	// ErrNotFound indicates a referenced order, phase, batch, area, template,
	// crop type or cultivar does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidStateTransition indicates an operation was attempted from a
	// state that does not permit it (e.g. activating a non-planning order).
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrInvalidPhaseState indicates a phase operation attempted outside the
	// sequential pending -> in_progress -> completed flow.
	ErrInvalidPhaseState = errors.New("invalid phase state")

	// ErrIncompatibleCultivar indicates a cultivar that does not belong to the
	// required crop type, or a transfer between batches of different cultivars.
	ErrIncompatibleCultivar = errors.New("incompatible cultivar")

	// ErrMissingTargetArea indicates activation without a resolvable target area.
	ErrMissingTargetArea = errors.New("no target area resolved")

	// ErrCapacityExceeded indicates an occupancy increment would push an area
	// past its configured max capacity.
	ErrCapacityExceeded = errors.New("area capacity exceeded")

	// ErrInvariantViolation indicates a defensive check failed, e.g. a quantity
	// decrement that would go negative.
	ErrInvariantViolation = errors.New("invariant violation")
)
