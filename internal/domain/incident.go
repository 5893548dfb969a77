package domain

import (
	"time"

	"github.com/google/uuid"
)

// AlertType classifies the sensor alert that opened an incident.
type AlertType string

// Alert types.
const (
	AlertTypeFire  AlertType = "fire"
	AlertTypeSmoke AlertType = "smoke"
)

// IsValid checks if the alert type is valid.
func (t AlertType) IsValid() bool {
	return t == AlertTypeFire || t == AlertTypeSmoke
}

// IncidentStatus represents the dispatch lifecycle state of an incident.
type IncidentStatus string

// Incident statuses.
const (
	// IncidentStatusPendingResponse means the incident is waiting for the
	// currently requested department to accept or reject it.
	IncidentStatusPendingResponse IncidentStatus = "pending_response"
	// IncidentStatusAcknowledged means a department accepted the incident
	// but has not assigned a crew yet.
	IncidentStatusAcknowledged IncidentStatus = "acknowledged"
	// IncidentStatusAssigned means a firefighter crew is allocated.
	IncidentStatusAssigned IncidentStatus = "assigned"
	// IncidentStatusInProgress means the crew dispatch was confirmed and
	// the response is underway.
	IncidentStatusInProgress IncidentStatus = "in_progress"
	// IncidentStatusResolved is terminal: the response finished.
	IncidentStatusResolved IncidentStatus = "resolved"
	// IncidentStatusUnassigned is terminal from the engine's perspective:
	// every candidate department declined and manual intervention is needed.
	IncidentStatusUnassigned IncidentStatus = "unassigned"
)

// IsValid checks if the incident status is valid.
func (s IncidentStatus) IsValid() bool {
	switch s {
	case IncidentStatusPendingResponse, IncidentStatusAcknowledged,
		IncidentStatusAssigned, IncidentStatusInProgress,
		IncidentStatusResolved, IncidentStatusUnassigned:
		return true
	}
	return false
}

// IsTerminal reports whether the engine will never advance the incident further.
func (s IncidentStatus) IsTerminal() bool {
	return s == IncidentStatusResolved || s == IncidentStatusUnassigned
}

// IsActive reports whether the incident has an owning department working it.
func (s IncidentStatus) IsActive() bool {
	return s == IncidentStatusAcknowledged ||
		s == IncidentStatusAssigned ||
		s == IncidentStatusInProgress
}

// Candidate is one entry of the ranked department snapshot taken at ingestion.
type Candidate struct {
	DepartmentID uuid.UUID `json:"department_id"`
	DistanceKM   float64   `json:"distance_km"`
}

// Rejection records one department declining an incident.
// The rejection history is append-only and ordered by RejectedAt.
type Rejection struct {
	DepartmentID uuid.UUID `json:"department_id"`
	Reason       string    `json:"reason"`
	RejectedAt   time.Time `json:"rejected_at"`
}

// Incident is a single reported fire/smoke alert and its full dispatch
// lifecycle record. Departments and firefighter units are referenced by id
// only and resolved through their repositories.
type Incident struct {
	ID             uuid.UUID         `json:"id"`
	AlertType      AlertType         `json:"alert_type"`
	Location       string            `json:"location"`
	Latitude       float64           `json:"latitude"`
	Longitude      float64           `json:"longitude"`
	Confidence     float64           `json:"confidence"`
	Temperature    *float64          `json:"temperature,omitempty"`
	SourceDeviceID string            `json:"source_device_id,omitempty"`
	AdditionalInfo map[string]string `json:"additional_info,omitempty"`

	Status IncidentStatus `json:"status"`

	// RequestedDepartment holds the pending accept/reject decision.
	// Non-null only while Status is pending_response.
	RequestedDepartment *uuid.UUID `json:"requested_department,omitempty"`
	// AssignedDepartment is set exactly once, when a department accepts.
	AssignedDepartment *uuid.UUID `json:"assigned_department,omitempty"`

	// Candidates is the ranked snapshot of coverage-capable departments
	// taken at ingestion, nearest first.
	Candidates       []Candidate `json:"candidates,omitempty"`
	RejectionHistory []Rejection `json:"rejection_history,omitempty"`

	CrewIDs  []uuid.UUID `json:"crew_ids,omitempty"`
	LeaderID *uuid.UUID  `json:"leader_id,omitempty"`

	CompletionNotes     string `json:"completion_notes,omitempty"`
	ResponseTimeSeconds *int   `json:"response_time_seconds,omitempty"`

	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	AssignedAt   *time.Time `json:"assigned_at,omitempty"`
	DispatchedAt *time.Time `json:"dispatched_at,omitempty"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
}

// NextCandidate returns the nearest candidate that has not rejected the
// incident yet, or nil when the ranked list is exhausted.
func (i *Incident) NextCandidate() *Candidate {
	rejected := make(map[uuid.UUID]bool, len(i.RejectionHistory))
	for _, r := range i.RejectionHistory {
		rejected[r.DepartmentID] = true
	}
	for idx := range i.Candidates {
		if !rejected[i.Candidates[idx].DepartmentID] {
			return &i.Candidates[idx]
		}
	}
	return nil
}
