package dispatch

import (
	"context"

	"github.com/emberwatch/firedispatch/internal/domain"
	"github.com/google/uuid"
)

// Repository defines the interface for incident storage.
//
// The transition methods apply an atomic check-and-update keyed on the
// incident's current (status, requested_department) pair and report false
// when the guard did not match, so concurrent responders cannot both
// succeed on the same pending slot.
type Repository interface {
	CreateIncident(ctx context.Context, incident *domain.Incident) error
	GetIncident(ctx context.Context, id uuid.UUID) (*domain.Incident, error)
	ListIncidents(ctx context.Context, filters IncidentFilters) ([]*domain.Incident, error)

	// Accept moves pending_response -> acknowledged and transfers the
	// requested slot into assigned_department.
	Accept(ctx context.Context, incidentID, departmentID uuid.UUID) (bool, error)

	// Reject appends the rejection and either re-targets the incident at
	// next (keeping pending_response) or, when next is nil, parks it in
	// the terminal unassigned state.
	Reject(ctx context.Context, incidentID, departmentID uuid.UUID, rejection domain.Rejection, next *uuid.UUID) (bool, error)
}

// DepartmentSource lists the departments the candidate ranking draws from.
type DepartmentSource interface {
	ListDepartments(ctx context.Context) ([]*domain.Department, error)
}

// Broadcaster publishes dispatch events after the originating transition
// has committed.
type Broadcaster interface {
	Publish(ctx context.Context, event *domain.DispatchEvent)
}

// IncidentFilters holds filter options for listing incidents.
type IncidentFilters struct {
	Statuses            []domain.IncidentStatus
	RequestedDepartment *uuid.UUID
	AssignedDepartment  *uuid.UUID
	Limit               int
}
