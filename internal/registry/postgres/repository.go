// Package postgres provides PostgreSQL implementation of the registry
// repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/emberwatch/firedispatch/internal/domain"
	"github.com/emberwatch/firedispatch/internal/registry"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements registry.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const departmentColumns = `
	id, name, slug, email, phone, address, latitude, longitude,
	webhook_url, created_at, updated_at`

const firefighterColumns = `
	id, department_id, name, email, phone, status, incident_id,
	specializations, last_status_at, created_at, updated_at`

// CreateDepartment inserts a new department.
func (r *Repository) CreateDepartment(ctx context.Context, department *domain.Department) error {
	query := `
		INSERT INTO departments (name, slug, email, phone, address, latitude, longitude, webhook_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		department.Name,
		department.Slug,
		department.Email,
		department.Phone,
		department.Address,
		department.Latitude,
		department.Longitude,
		nullable(department.WebhookURL),
	).Scan(&department.ID, &department.CreatedAt, &department.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return registry.ErrDepartmentExists
		}
		return fmt.Errorf("insert department: %w", err)
	}
	return nil
}

// GetDepartment retrieves a department by id.
func (r *Repository) GetDepartment(ctx context.Context, id uuid.UUID) (*domain.Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments WHERE id = $1`
	return r.getDepartment(ctx, query, id)
}

// GetDepartmentBySlug retrieves a department by slug.
func (r *Repository) GetDepartmentBySlug(ctx context.Context, slug string) (*domain.Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments WHERE slug = $1`
	return r.getDepartment(ctx, query, slug)
}

func (r *Repository) getDepartment(ctx context.Context, query string, arg any) (*domain.Department, error) {
	department, err := scanDepartment(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, registry.ErrDepartmentNotFound
		}
		return nil, fmt.Errorf("get department: %w", err)
	}
	return department, nil
}

// ListDepartments retrieves all departments ordered by name.
func (r *Repository) ListDepartments(ctx context.Context) ([]*domain.Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments ORDER BY name`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	defer rows.Close()

	var departments []*domain.Department
	for rows.Next() {
		department, err := scanDepartment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan department: %w", err)
		}
		departments = append(departments, department)
	}
	return departments, rows.Err()
}

// UpdateDepartment persists mutable department fields.
func (r *Repository) UpdateDepartment(ctx context.Context, department *domain.Department) error {
	query := `
		UPDATE departments SET
			phone = $1,
			address = $2,
			latitude = $3,
			longitude = $4,
			webhook_url = $5,
			updated_at = now()
		WHERE id = $6
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		department.Phone,
		department.Address,
		department.Latitude,
		department.Longitude,
		nullable(department.WebhookURL),
		department.ID,
	).Scan(&department.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return registry.ErrDepartmentNotFound
		}
		return fmt.Errorf("update department: %w", err)
	}
	return nil
}

// CreateFirefighter inserts a new firefighter unit.
func (r *Repository) CreateFirefighter(ctx context.Context, unit *domain.FirefighterUnit) error {
	query := `
		INSERT INTO firefighters (department_id, name, email, phone, status, specializations)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, last_status_at, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		unit.DepartmentID,
		unit.Name,
		nullable(unit.Email),
		unit.Phone,
		unit.Status,
		unit.Specializations,
	).Scan(&unit.ID, &unit.LastStatusAt, &unit.CreatedAt, &unit.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return registry.ErrFirefighterExists
		}
		return fmt.Errorf("insert firefighter: %w", err)
	}
	return nil
}

// GetFirefighter retrieves a firefighter unit by id.
func (r *Repository) GetFirefighter(ctx context.Context, id uuid.UUID) (*domain.FirefighterUnit, error) {
	query := `SELECT ` + firefighterColumns + ` FROM firefighters WHERE id = $1`

	unit, err := scanFirefighter(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, registry.ErrFirefighterNotFound
		}
		return nil, fmt.Errorf("get firefighter: %w", err)
	}
	return unit, nil
}

// ListFirefighters retrieves a department's units ordered by name.
func (r *Repository) ListFirefighters(ctx context.Context, departmentID uuid.UUID, onlyAvailable bool) ([]*domain.FirefighterUnit, error) {
	query := `SELECT ` + firefighterColumns + ` FROM firefighters WHERE department_id = $1`
	args := []any{departmentID}
	if onlyAvailable {
		args = append(args, domain.UnitStatusAvailable)
		query += ` AND status = $2`
	}
	query += ` ORDER BY name`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list firefighters: %w", err)
	}
	defer rows.Close()

	var units []*domain.FirefighterUnit
	for rows.Next() {
		unit, err := scanFirefighter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan firefighter: %w", err)
		}
		units = append(units, unit)
	}
	return units, rows.Err()
}

// DeleteFirefighter removes an available unit. Returns false when the unit
// was deployed concurrently and the guarded delete matched nothing.
func (r *Repository) DeleteFirefighter(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM firefighters WHERE id = $1 AND status = $2
	`, id, domain.UnitStatusAvailable)
	if err != nil {
		return false, fmt.Errorf("delete firefighter: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanDepartment(row pgx.Row) (*domain.Department, error) {
	var department domain.Department
	var webhookURL *string
	err := row.Scan(
		&department.ID,
		&department.Name,
		&department.Slug,
		&department.Email,
		&department.Phone,
		&department.Address,
		&department.Latitude,
		&department.Longitude,
		&webhookURL,
		&department.CreatedAt,
		&department.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if webhookURL != nil {
		department.WebhookURL = *webhookURL
	}
	return &department, nil
}

func scanFirefighter(row pgx.Row) (*domain.FirefighterUnit, error) {
	var unit domain.FirefighterUnit
	var email *string
	err := row.Scan(
		&unit.ID,
		&unit.DepartmentID,
		&unit.Name,
		&email,
		&unit.Phone,
		&unit.Status,
		&unit.IncidentID,
		&unit.Specializations,
		&unit.LastStatusAt,
		&unit.CreatedAt,
		&unit.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if email != nil {
		unit.Email = *email
	}
	return &unit, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
