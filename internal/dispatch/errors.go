package dispatch

import "errors"

// Validation errors, rejected before any state change.
var (
	ErrInvalidAlertType        = errors.New("alert type must be fire or smoke")
	ErrInvalidCoordinates      = errors.New("coordinates out of range")
	ErrInvalidConfidence       = errors.New("confidence must be between 0 and 1")
	ErrInvalidAction           = errors.New("action must be accept or reject")
	ErrRejectionReasonRequired = errors.New("rejection reason is required")
)

// State and conflict errors.
var (
	ErrIncidentNotFound = errors.New("incident not found")
	// ErrNotPending is returned when the incident already moved out of
	// pending_response, or when the caller is not the department the
	// pending decision is addressed to. The incident is unchanged.
	ErrNotPending = errors.New("incident is not pending a response from this department")
)
