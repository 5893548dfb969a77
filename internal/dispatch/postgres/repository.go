// Package postgres provides PostgreSQL implementation of the dispatch repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/emberwatch/firedispatch/internal/dispatch"
	"github.com/emberwatch/firedispatch/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements dispatch.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const incidentColumns = `
	id, alert_type, location, latitude, longitude, confidence,
	temperature, source_device_id, additional_info, status,
	requested_department, assigned_department, leader_id,
	completion_notes, response_time_seconds,
	created_at, updated_at, assigned_at, dispatched_at, resolved_at`

// CreateIncident inserts the incident together with its ranked candidate
// snapshot in a single transaction.
func (r *Repository) CreateIncident(ctx context.Context, incident *domain.Incident) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	query := `
		INSERT INTO incidents (
			alert_type, location, latitude, longitude, confidence,
			temperature, source_device_id, additional_info, status,
			requested_department, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, COALESCE($11, now()))
		RETURNING id, created_at, updated_at
	`

	var createdAt any
	if !incident.CreatedAt.IsZero() {
		createdAt = incident.CreatedAt
	}

	err = tx.QueryRow(ctx, query,
		incident.AlertType,
		incident.Location,
		incident.Latitude,
		incident.Longitude,
		incident.Confidence,
		incident.Temperature,
		incident.SourceDeviceID,
		incident.AdditionalInfo,
		incident.Status,
		incident.RequestedDepartment,
		createdAt,
	).Scan(&incident.ID, &incident.CreatedAt, &incident.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert incident: %w", err)
	}

	for rank, c := range incident.Candidates {
		_, err = tx.Exec(ctx, `
			INSERT INTO incident_candidates (incident_id, department_id, rank, distance_km)
			VALUES ($1, $2, $3, $4)
		`, incident.ID, c.DepartmentID, rank, c.DistanceKM)
		if err != nil {
			return fmt.Errorf("insert candidate %s: %w", c.DepartmentID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetIncident retrieves an incident by id with its candidate snapshot,
// rejection history and crew.
func (r *Repository) GetIncident(ctx context.Context, id uuid.UUID) (*domain.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1`

	incident, err := scanIncident(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, dispatch.ErrIncidentNotFound
		}
		return nil, fmt.Errorf("get incident: %w", err)
	}

	if err := r.loadAssociations(ctx, incident); err != nil {
		return nil, err
	}
	return incident, nil
}

// ListIncidents retrieves incidents matching the filters, newest first.
func (r *Repository) ListIncidents(ctx context.Context, filters dispatch.IncidentFilters) ([]*domain.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents`

	var conditions []string
	var args []any

	if len(filters.Statuses) > 0 {
		statuses := make([]string, 0, len(filters.Statuses))
		for _, s := range filters.Statuses {
			statuses = append(statuses, string(s))
		}
		args = append(args, statuses)
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filters.RequestedDepartment != nil {
		args = append(args, *filters.RequestedDepartment)
		conditions = append(conditions, fmt.Sprintf("requested_department = $%d", len(args)))
	}
	if filters.AssignedDepartment != nil {
		args = append(args, *filters.AssignedDepartment)
		conditions = append(conditions, fmt.Sprintf("assigned_department = $%d", len(args)))
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filters.Limit > 0 {
		args = append(args, filters.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	var incidents []*domain.Incident
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incidents: %w", err)
	}

	for _, incident := range incidents {
		if err := r.loadAssociations(ctx, incident); err != nil {
			return nil, err
		}
	}
	return incidents, nil
}

// Accept atomically moves pending_response -> acknowledged for the
// addressed department. Returns false when the guard did not match.
func (r *Repository) Accept(ctx context.Context, incidentID, departmentID uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE incidents SET
			status = $1,
			assigned_department = requested_department,
			requested_department = NULL,
			assigned_at = now(),
			updated_at = now()
		WHERE id = $2
		  AND status = $3
		  AND requested_department = $4
	`, domain.IncidentStatusAcknowledged, incidentID,
		domain.IncidentStatusPendingResponse, departmentID)
	if err != nil {
		return false, fmt.Errorf("accept incident: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Reject appends the rejection and re-targets (or unassigns) the incident
// in one transaction guarded by the current pending slot.
func (r *Repository) Reject(ctx context.Context, incidentID, departmentID uuid.UUID, rejection domain.Rejection, next *uuid.UUID) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	status := domain.IncidentStatusPendingResponse
	if next == nil {
		status = domain.IncidentStatusUnassigned
	}

	tag, err := tx.Exec(ctx, `
		UPDATE incidents SET
			status = $1,
			requested_department = $2,
			updated_at = now()
		WHERE id = $3
		  AND status = $4
		  AND requested_department = $5
	`, status, next, incidentID,
		domain.IncidentStatusPendingResponse, departmentID)
	if err != nil {
		return false, fmt.Errorf("update incident: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO incident_rejections (incident_id, department_id, reason, rejected_at)
		VALUES ($1, $2, $3, $4)
	`, incidentID, rejection.DepartmentID, rejection.Reason, rejection.RejectedAt)
	if err != nil {
		return false, fmt.Errorf("insert rejection: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit transaction: %w", err)
	}
	return true, nil
}

func (r *Repository) loadAssociations(ctx context.Context, incident *domain.Incident) error {
	candidates, err := r.loadCandidates(ctx, incident.ID)
	if err != nil {
		return fmt.Errorf("load candidates: %w", err)
	}
	incident.Candidates = candidates

	rejections, err := r.loadRejections(ctx, incident.ID)
	if err != nil {
		return fmt.Errorf("load rejections: %w", err)
	}
	incident.RejectionHistory = rejections

	crew, err := r.loadCrew(ctx, incident.ID)
	if err != nil {
		return fmt.Errorf("load crew: %w", err)
	}
	incident.CrewIDs = crew
	return nil
}

func (r *Repository) loadCandidates(ctx context.Context, incidentID uuid.UUID) ([]domain.Candidate, error) {
	rows, err := r.db.Query(ctx, `
		SELECT department_id, distance_km
		FROM incident_candidates
		WHERE incident_id = $1
		ORDER BY rank
	`, incidentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []domain.Candidate
	for rows.Next() {
		var c domain.Candidate
		if err := rows.Scan(&c.DepartmentID, &c.DistanceKM); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

func (r *Repository) loadRejections(ctx context.Context, incidentID uuid.UUID) ([]domain.Rejection, error) {
	rows, err := r.db.Query(ctx, `
		SELECT department_id, reason, rejected_at
		FROM incident_rejections
		WHERE incident_id = $1
		ORDER BY rejected_at, id
	`, incidentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rejections []domain.Rejection
	for rows.Next() {
		var rej domain.Rejection
		if err := rows.Scan(&rej.DepartmentID, &rej.Reason, &rej.RejectedAt); err != nil {
			return nil, err
		}
		rejections = append(rejections, rej)
	}
	return rejections, rows.Err()
}

func (r *Repository) loadCrew(ctx context.Context, incidentID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `
		SELECT firefighter_id
		FROM incident_crew
		WHERE incident_id = $1
		ORDER BY firefighter_id
	`, incidentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var crew []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		crew = append(crew, id)
	}
	return crew, rows.Err()
}

func scanIncident(row pgx.Row) (*domain.Incident, error) {
	var incident domain.Incident
	err := row.Scan(
		&incident.ID,
		&incident.AlertType,
		&incident.Location,
		&incident.Latitude,
		&incident.Longitude,
		&incident.Confidence,
		&incident.Temperature,
		&incident.SourceDeviceID,
		&incident.AdditionalInfo,
		&incident.Status,
		&incident.RequestedDepartment,
		&incident.AssignedDepartment,
		&incident.LeaderID,
		&incident.CompletionNotes,
		&incident.ResponseTimeSeconds,
		&incident.CreatedAt,
		&incident.UpdatedAt,
		&incident.AssignedAt,
		&incident.DispatchedAt,
		&incident.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &incident, nil
}

func rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		slog.Error("failed to rollback transaction", "error", err)
	}
}
