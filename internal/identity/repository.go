package identity

import (
	"context"

	"github.com/emberwatch/firedispatch/internal/domain"
	"github.com/google/uuid"
)

// Account couples a department with its stored credential.
type Account struct {
	Department   *domain.Department
	PasswordHash string
}

// Repository defines storage operations for department accounts. The account
// row is the department row; registration is what brings a department into
// the dispatchable catalog.
type Repository interface {
	CreateAccount(ctx context.Context, department *domain.Department, passwordHash string) error
	GetAccountByEmail(ctx context.Context, email string) (*Account, error)
	GetDepartment(ctx context.Context, id uuid.UUID) (*domain.Department, error)
}
