// Package postgres provides PostgreSQL implementation of the identity
// repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/emberwatch/firedispatch/internal/domain"
	"github.com/emberwatch/firedispatch/internal/identity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements identity.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateAccount inserts the department row carrying the credential.
func (r *Repository) CreateAccount(ctx context.Context, department *domain.Department, passwordHash string) error {
	query := `
		INSERT INTO departments (name, slug, email, phone, address, latitude, longitude, webhook_url, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`
	var webhookURL *string
	if department.WebhookURL != "" {
		webhookURL = &department.WebhookURL
	}

	err := r.db.QueryRow(ctx, query,
		department.Name,
		department.Slug,
		department.Email,
		department.Phone,
		department.Address,
		department.Latitude,
		department.Longitude,
		webhookURL,
		passwordHash,
	).Scan(&department.ID, &department.CreatedAt, &department.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return identity.ErrAccountExists
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetAccountByEmail retrieves the department and its password hash.
func (r *Repository) GetAccountByEmail(ctx context.Context, email string) (*identity.Account, error) {
	query := `
		SELECT id, name, slug, email, phone, address, latitude, longitude,
		       webhook_url, created_at, updated_at, password_hash
		FROM departments
		WHERE email = $1
	`
	var department domain.Department
	var webhookURL *string
	var passwordHash string
	err := r.db.QueryRow(ctx, query, email).Scan(
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
		&passwordHash,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	if webhookURL != nil {
		department.WebhookURL = *webhookURL
	}
	return &identity.Account{Department: &department, PasswordHash: passwordHash}, nil
}

// GetDepartment checks a token subject still resolves to a department.
func (r *Repository) GetDepartment(ctx context.Context, id uuid.UUID) (*domain.Department, error) {
	query := `
		SELECT id, name, slug, email, phone, address, latitude, longitude,
		       webhook_url, created_at, updated_at
		FROM departments
		WHERE id = $1
	`
	var department domain.Department
	var webhookURL *string
	err := r.db.QueryRow(ctx, query, id).Scan(
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
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrInvalidToken
		}
		return nil, fmt.Errorf("get department: %w", err)
	}
	if webhookURL != nil {
		department.WebhookURL = *webhookURL
	}
	return &department, nil
}
