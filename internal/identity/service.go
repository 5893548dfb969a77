// Package identity handles department account registration, login and
// access token verification.
package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/emberwatch/firedispatch/internal/domain"
	"github.com/emberwatch/firedispatch/internal/geo"
	"github.com/emberwatch/firedispatch/internal/pkg/ctxlog"
	"github.com/emberwatch/firedispatch/internal/registry"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// Service implements department account management.
type Service struct {
	repo   Repository
	tokens *TokenManager
}

// NewService creates a new identity service.
func NewService(repo Repository, tokens *TokenManager) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// RegisterInput holds data for creating a department account.
type RegisterInput struct {
	Name       string
	Email      string
	Password   string
	Phone      string
	Address    string
	Latitude   float64
	Longitude  float64
	WebhookURL string
}

// TokenPair is the issued credential for a logged-in department.
type TokenPair struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Register creates a department account. The department becomes a dispatch
// candidate immediately.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*domain.Department, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, registry.ErrNameRequired
	}
	if !geo.ValidCoordinates(input.Latitude, input.Longitude) {
		return nil, registry.ErrInvalidCoordinates
	}
	if len(input.Password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	department := &domain.Department{
		Name:       name,
		Slug:       registry.Slugify(name),
		Email:      strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:      strings.TrimSpace(input.Phone),
		Address:    strings.TrimSpace(input.Address),
		Latitude:   input.Latitude,
		Longitude:  input.Longitude,
		WebhookURL: strings.TrimSpace(input.WebhookURL),
	}

	if err := s.repo.CreateAccount(ctx, department, string(hash)); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	ctxlog.FromContext(ctx).Info("department account registered",
		"department_id", department.ID,
		"slug", department.Slug,
	)
	return department, nil
}

// Login verifies the credential and issues an access token.
func (s *Service) Login(ctx context.Context, email, password string) (*domain.Department, *TokenPair, error) {
	account, err := s.repo.GetAccountByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		// A missing account and a wrong password are indistinguishable to
		// the caller.
		return nil, nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Generate(account.Department.ID, time.Now().UTC())
	if err != nil {
		return nil, nil, fmt.Errorf("generate token: %w", err)
	}

	ctxlog.FromContext(ctx).Info("department logged in",
		"department_id", account.Department.ID,
	)
	return account.Department, &TokenPair{AccessToken: token, ExpiresAt: expiresAt}, nil
}

// ValidateToken verifies an access token and resolves the department it was
// issued to. Implements the middleware token validator.
func (s *Service) ValidateToken(ctx context.Context, token string) (uuid.UUID, error) {
	departmentID, err := s.tokens.Validate(token)
	if err != nil {
		return uuid.Nil, err
	}

	// Token subjects must still exist; a deleted department's tokens stop
	// working immediately.
	if _, err := s.repo.GetDepartment(ctx, departmentID); err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return departmentID, nil
}
