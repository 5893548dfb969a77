package crew

import (
	"context"
	"time"

	"github.com/emberwatch/firedispatch/internal/domain"
	"github.com/google/uuid"
)

// Repository defines storage operations for crew assignment and incident
// completion.
//
// As in the dispatch repository, every lifecycle transition is a conditional
// update guarded by the incident's current (status, assigned_department)
// pair; a false return means the guard did not match and nothing changed.
type Repository interface {
	GetIncident(ctx context.Context, id uuid.UUID) (*domain.Incident, error)

	// Assign allocates the crew to an acknowledged incident owned by the
	// department. Unit deployment is all or nothing: every unit must be
	// available and owned by the same department, otherwise the whole
	// transaction rolls back with ErrUnitsUnavailable or
	// ErrUnitWrongDepartment and no unit changes status.
	Assign(ctx context.Context, incidentID, departmentID uuid.UUID, crewIDs []uuid.UUID, leaderID uuid.UUID) (bool, error)

	// ConfirmDispatch moves assigned -> in_progress and stamps dispatched_at.
	ConfirmDispatch(ctx context.Context, incidentID, departmentID uuid.UUID, dispatchedAt time.Time) (bool, error)

	// Complete moves in_progress -> resolved and releases every deployed
	// unit of the incident back to available in the same transaction.
	Complete(ctx context.Context, incidentID, departmentID uuid.UUID, notes string, responseTimeSeconds *int, resolvedAt time.Time) (bool, error)
}
