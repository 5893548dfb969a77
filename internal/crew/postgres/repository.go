// Package postgres provides PostgreSQL implementation of the crew repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/emberwatch/firedispatch/internal/crew"
	"github.com/emberwatch/firedispatch/internal/dispatch"
	dispatchpg "github.com/emberwatch/firedispatch/internal/dispatch/postgres"
	"github.com/emberwatch/firedispatch/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements crew.Repository using PostgreSQL.
// Incident reads are delegated to the dispatch repository so both modules
// share one scanning path.
type Repository struct {
	db        *pgxpool.Pool
	incidents *dispatchpg.Repository
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db, incidents: dispatchpg.NewRepository(db)}
}

// GetIncident retrieves an incident by id.
func (r *Repository) GetIncident(ctx context.Context, id uuid.UUID) (*domain.Incident, error) {
	incident, err := r.incidents.GetIncident(ctx, id)
	if err != nil {
		if errors.Is(err, dispatch.ErrIncidentNotFound) {
			return nil, crew.ErrIncidentNotFound
		}
		return nil, err
	}
	return incident, nil
}

// Assign moves acknowledged -> assigned and deploys the crew in one
// transaction. Unit deployment is conditional on every unit being available
// and owned by the department; a partial match rolls everything back.
func (r *Repository) Assign(ctx context.Context, incidentID, departmentID uuid.UUID, crewIDs []uuid.UUID, leaderID uuid.UUID) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	tag, err := tx.Exec(ctx, `
		UPDATE incidents SET
			status = $1,
			leader_id = $2,
			updated_at = now()
		WHERE id = $3
		  AND status = $4
		  AND assigned_department = $5
	`, domain.IncidentStatusAssigned, leaderID, incidentID,
		domain.IncidentStatusAcknowledged, departmentID)
	if err != nil {
		return false, fmt.Errorf("update incident: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}

	// Deploy the units. The status guard in the WHERE clause is what makes
	// double-booking impossible: a unit already deployed elsewhere does not
	// match, the count comes up short and the transaction aborts.
	tag, err = tx.Exec(ctx, `
		UPDATE firefighters SET
			status = $1,
			incident_id = $2,
			last_status_at = now(),
			updated_at = now()
		WHERE id = ANY($3)
		  AND status = $4
		  AND department_id = $5
	`, domain.UnitStatusDeployed, incidentID, crewIDs,
		domain.UnitStatusAvailable, departmentID)
	if err != nil {
		return false, fmt.Errorf("deploy units: %w", err)
	}
	if int(tag.RowsAffected()) != len(crewIDs) {
		if err := r.classifyUnitFailure(ctx, tx, crewIDs, departmentID); err != nil {
			return false, err
		}
		return false, crew.ErrUnitsUnavailable
	}

	for _, unitID := range crewIDs {
		_, err = tx.Exec(ctx, `
			INSERT INTO incident_crew (incident_id, firefighter_id)
			VALUES ($1, $2)
		`, incidentID, unitID)
		if err != nil {
			return false, fmt.Errorf("insert crew member %s: %w", unitID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit transaction: %w", err)
	}
	return true, nil
}

// classifyUnitFailure distinguishes foreign units from busy ones so the
// caller gets a precise error. The transaction is doomed either way.
func (r *Repository) classifyUnitFailure(ctx context.Context, tx pgx.Tx, crewIDs []uuid.UUID, departmentID uuid.UUID) error {
	var foreign int
	err := tx.QueryRow(ctx, `
		SELECT count(*) FROM firefighters
		WHERE id = ANY($1) AND department_id <> $2
	`, crewIDs, departmentID).Scan(&foreign)
	if err != nil {
		return fmt.Errorf("inspect units: %w", err)
	}

	var known int
	err = tx.QueryRow(ctx, `
		SELECT count(*) FROM firefighters WHERE id = ANY($1)
	`, crewIDs).Scan(&known)
	if err != nil {
		return fmt.Errorf("inspect units: %w", err)
	}

	if foreign > 0 || known != len(crewIDs) {
		return crew.ErrUnitWrongDepartment
	}
	return nil
}

// ConfirmDispatch moves assigned -> in_progress for the owning department.
func (r *Repository) ConfirmDispatch(ctx context.Context, incidentID, departmentID uuid.UUID, dispatchedAt time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE incidents SET
			status = $1,
			dispatched_at = $2,
			updated_at = now()
		WHERE id = $3
		  AND status = $4
		  AND assigned_department = $5
	`, domain.IncidentStatusInProgress, dispatchedAt, incidentID,
		domain.IncidentStatusAssigned, departmentID)
	if err != nil {
		return false, fmt.Errorf("confirm dispatch: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Complete moves in_progress -> resolved and releases the incident's crew
// in the same transaction.
func (r *Repository) Complete(ctx context.Context, incidentID, departmentID uuid.UUID, notes string, responseTimeSeconds *int, resolvedAt time.Time) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	tag, err := tx.Exec(ctx, `
		UPDATE incidents SET
			status = $1,
			completion_notes = $2,
			response_time_seconds = $3,
			resolved_at = $4,
			updated_at = now()
		WHERE id = $5
		  AND status = $6
		  AND assigned_department = $7
	`, domain.IncidentStatusResolved, notes, responseTimeSeconds, resolvedAt,
		incidentID, domain.IncidentStatusInProgress, departmentID)
	if err != nil {
		return false, fmt.Errorf("resolve incident: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}

	_, err = tx.Exec(ctx, `
		UPDATE firefighters SET
			status = $1,
			incident_id = NULL,
			last_status_at = now(),
			updated_at = now()
		WHERE incident_id = $2
	`, domain.UnitStatusAvailable, incidentID)
	if err != nil {
		return false, fmt.Errorf("release units: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit transaction: %w", err)
	}
	return true, nil
}

func rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		slog.Error("failed to rollback transaction", "error", err)
	}
}
