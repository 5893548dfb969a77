package crew

import "errors"

// Crew service errors.
var (
	ErrIncidentNotFound    = errors.New("incident not found")
	ErrNotOwner            = errors.New("incident is not assigned to this department")
	ErrNotAcknowledged     = errors.New("incident is not awaiting crew assignment")
	ErrNotAssigned         = errors.New("incident has no crew awaiting dispatch")
	ErrNotInProgress       = errors.New("incident is not in progress")
	ErrCrewRequired        = errors.New("at least one firefighter unit is required")
	ErrDuplicateUnit       = errors.New("duplicate firefighter unit in crew")
	ErrLeaderNotInCrew     = errors.New("leader must be part of the crew")
	ErrUnitsUnavailable    = errors.New("one or more firefighter units are not available")
	ErrUnitWrongDepartment = errors.New("one or more firefighter units belong to another department")
	ErrInvalidResponseTime = errors.New("response time must be non-negative")
)
