package registry

import (
	"context"

	"github.com/emberwatch/firedispatch/internal/domain"
	"github.com/google/uuid"
)

// Repository defines storage operations for the department and firefighter
// unit catalog.
type Repository interface {
	CreateDepartment(ctx context.Context, department *domain.Department) error
	GetDepartment(ctx context.Context, id uuid.UUID) (*domain.Department, error)
	GetDepartmentBySlug(ctx context.Context, slug string) (*domain.Department, error)
	ListDepartments(ctx context.Context) ([]*domain.Department, error)
	UpdateDepartment(ctx context.Context, department *domain.Department) error

	CreateFirefighter(ctx context.Context, unit *domain.FirefighterUnit) error
	GetFirefighter(ctx context.Context, id uuid.UUID) (*domain.FirefighterUnit, error)
	ListFirefighters(ctx context.Context, departmentID uuid.UUID, onlyAvailable bool) ([]*domain.FirefighterUnit, error)
	DeleteFirefighter(ctx context.Context, id uuid.UUID) (bool, error)
}
