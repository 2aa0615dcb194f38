package visit

import "errors"

// Journey error kinds. Handlers map these to HTTP statuses; nothing in this
// package matches on error strings.
var (
	// ErrInvalidStage means the request named a stage outside the catalog.
	ErrInvalidStage = errors.New("unknown journey stage")

	// ErrInvalidTransition means the destination is not reachable from the
	// visit's current stage without an override.
	ErrInvalidTransition = errors.New("transition not allowed from current stage")

	// ErrPaymentGateBlocked means an unpaid charge blocks entry to the
	// destination stage.
	ErrPaymentGateBlocked = errors.New("unpaid charges block this stage")

	// ErrClinicalGateBlocked means required clinical documentation for the
	// destination stage is missing (e.g. discharge without a signed summary).
	ErrClinicalGateBlocked = errors.New("required clinical documentation is missing")

	// ErrForbidden covers both a non-privileged force attempt and any
	// cross-facility access.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound means the visit id does not resolve at all.
	ErrNotFound = errors.New("visit not found")

	// ErrStageConflict is returned by the ledger when the conditional append
	// finds the expected stage already changed. The orchestrator retries a
	// bounded number of times before letting it surface.
	ErrStageConflict = errors.New("stage changed concurrently")
)
