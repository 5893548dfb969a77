package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies a dispatch lifecycle event published to department
// sessions. Events are a convenience channel over server-authoritative
// state: clients reconcile via the list endpoints, not via event replay.
type EventType string

// Event types.
const (
	// EventNewIncidentRequest is targeted at the department currently
	// holding the pending decision.
	EventNewIncidentRequest EventType = "NEW_INCIDENT_REQUEST"
	// EventIncidentReassigned is targeted at the next candidate after a
	// rejection; other departments receive it as an informational refresh.
	EventIncidentReassigned EventType = "INCIDENT_REASSIGNED"
	// EventIncidentAccepted is broadcast so every pending view refreshes.
	EventIncidentAccepted EventType = "INCIDENT_ACCEPTED"
	// EventIncidentUnassigned is broadcast when all candidates declined.
	EventIncidentUnassigned EventType = "INCIDENT_UNASSIGNED"
	// EventIncidentAssigned is broadcast when a crew is allocated.
	EventIncidentAssigned EventType = "INCIDENT_ASSIGNED"
	// EventFirefightersDispatched is broadcast when dispatch is confirmed.
	EventFirefightersDispatched EventType = "FIREFIGHTERS_DISPATCHED"
	// EventIncidentCompleted is broadcast when the incident resolves.
	EventIncidentCompleted EventType = "INCIDENT_COMPLETED"
)

// DispatchEvent carries a full incident snapshot to subscribers.
// TargetDepartment is nil for broadcast events.
type DispatchEvent struct {
	Type             EventType  `json:"type"`
	TargetDepartment *uuid.UUID `json:"target_department,omitempty"`
	Incident         *Incident  `json:"incident"`
	OccurredAt       time.Time  `json:"occurred_at"`
}

// IsTargeted reports whether delivery is restricted to one department's sessions.
func (e *DispatchEvent) IsTargeted() bool {
	return e.TargetDepartment != nil
}
