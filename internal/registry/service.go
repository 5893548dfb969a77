// Package registry maintains the catalog of fire departments and their
// firefighter units. The department list is what candidate ranking draws
// from, so a department is dispatchable as soon as it is registered here.
package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/emberwatch/firedispatch/internal/domain"
	"github.com/emberwatch/firedispatch/internal/geo"
	"github.com/emberwatch/firedispatch/internal/pkg/ctxlog"
	"github.com/google/uuid"
)

// Service implements the department and firefighter catalog.
type Service struct {
	repo Repository
}

// NewService creates a new registry service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateDepartmentInput holds data for registering a department.
type CreateDepartmentInput struct {
	Name       string
	Email      string
	Phone      string
	Address    string
	Latitude   float64
	Longitude  float64
	WebhookURL string
}

// CreateDepartment registers a new department with a slug derived from its
// name. The department immediately becomes a candidate for new incidents.
func (s *Service) CreateDepartment(ctx context.Context, input CreateDepartmentInput) (*domain.Department, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if !geo.ValidCoordinates(input.Latitude, input.Longitude) {
		return nil, ErrInvalidCoordinates
	}

	department := &domain.Department{
		Name:       name,
		Slug:       Slugify(name),
		Email:      strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:      strings.TrimSpace(input.Phone),
		Address:    strings.TrimSpace(input.Address),
		Latitude:   input.Latitude,
		Longitude:  input.Longitude,
		WebhookURL: strings.TrimSpace(input.WebhookURL),
	}

	if err := s.repo.CreateDepartment(ctx, department); err != nil {
		return nil, fmt.Errorf("create department: %w", err)
	}

	ctxlog.FromContext(ctx).Info("department registered",
		"department_id", department.ID,
		"slug", department.Slug,
	)
	return department, nil
}

// GetDepartment retrieves a department by id.
func (s *Service) GetDepartment(ctx context.Context, id uuid.UUID) (*domain.Department, error) {
	return s.repo.GetDepartment(ctx, id)
}

// GetDepartmentBySlug retrieves a department by its slug.
func (s *Service) GetDepartmentBySlug(ctx context.Context, slug string) (*domain.Department, error) {
	return s.repo.GetDepartmentBySlug(ctx, slug)
}

// ListDepartments retrieves all registered departments. Implements the
// department source for candidate ranking.
func (s *Service) ListDepartments(ctx context.Context) ([]*domain.Department, error) {
	return s.repo.ListDepartments(ctx)
}

// UpdateDepartmentInput holds mutable department fields.
type UpdateDepartmentInput struct {
	DepartmentID uuid.UUID
	Phone        *string
	Address      *string
	Latitude     *float64
	Longitude    *float64
	WebhookURL   *string
}

// UpdateDepartment patches contact and location details of a department.
func (s *Service) UpdateDepartment(ctx context.Context, input UpdateDepartmentInput) (*domain.Department, error) {
	department, err := s.repo.GetDepartment(ctx, input.DepartmentID)
	if err != nil {
		return nil, fmt.Errorf("get department: %w", err)
	}

	if input.Phone != nil {
		department.Phone = strings.TrimSpace(*input.Phone)
	}
	if input.Address != nil {
		department.Address = strings.TrimSpace(*input.Address)
	}
	if input.Latitude != nil {
		department.Latitude = *input.Latitude
	}
	if input.Longitude != nil {
		department.Longitude = *input.Longitude
	}
	if !geo.ValidCoordinates(department.Latitude, department.Longitude) {
		return nil, ErrInvalidCoordinates
	}
	if input.WebhookURL != nil {
		department.WebhookURL = strings.TrimSpace(*input.WebhookURL)
	}

	if err := s.repo.UpdateDepartment(ctx, department); err != nil {
		return nil, fmt.Errorf("update department: %w", err)
	}
	return department, nil
}

// CreateFirefighterInput holds data for registering a firefighter unit.
type CreateFirefighterInput struct {
	DepartmentID    uuid.UUID
	Name            string
	Email           string
	Phone           string
	Specializations []string
}

// CreateFirefighter registers a new firefighter unit in the available state.
func (s *Service) CreateFirefighter(ctx context.Context, input CreateFirefighterInput) (*domain.FirefighterUnit, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	if _, err := s.repo.GetDepartment(ctx, input.DepartmentID); err != nil {
		return nil, fmt.Errorf("get department: %w", err)
	}

	specs := make([]string, 0, len(input.Specializations))
	for _, spec := range input.Specializations {
		if spec = strings.TrimSpace(spec); spec != "" {
			specs = append(specs, spec)
		}
	}

	unit := &domain.FirefighterUnit{
		DepartmentID:    input.DepartmentID,
		Name:            name,
		Email:           strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:           strings.TrimSpace(input.Phone),
		Status:          domain.UnitStatusAvailable,
		Specializations: specs,
	}

	if err := s.repo.CreateFirefighter(ctx, unit); err != nil {
		return nil, fmt.Errorf("create firefighter: %w", err)
	}

	ctxlog.FromContext(ctx).Info("firefighter unit registered",
		"firefighter_id", unit.ID,
		"department_id", unit.DepartmentID,
	)
	return unit, nil
}

// GetFirefighter retrieves a firefighter unit scoped to the department.
func (s *Service) GetFirefighter(ctx context.Context, departmentID, unitID uuid.UUID) (*domain.FirefighterUnit, error) {
	unit, err := s.repo.GetFirefighter(ctx, unitID)
	if err != nil {
		return nil, err
	}
	if unit.DepartmentID != departmentID {
		return nil, ErrNotDepartmentMember
	}
	return unit, nil
}

// ListFirefighters retrieves a department's units, optionally only the
// available ones.
func (s *Service) ListFirefighters(ctx context.Context, departmentID uuid.UUID, onlyAvailable bool) ([]*domain.FirefighterUnit, error) {
	return s.repo.ListFirefighters(ctx, departmentID, onlyAvailable)
}

// DeleteFirefighter removes an available unit from the roster. Deployed
// units cannot be removed until their incident completes.
func (s *Service) DeleteFirefighter(ctx context.Context, departmentID, unitID uuid.UUID) error {
	unit, err := s.repo.GetFirefighter(ctx, unitID)
	if err != nil {
		return err
	}
	if unit.DepartmentID != departmentID {
		return ErrNotDepartmentMember
	}
	if unit.Status == domain.UnitStatusDeployed {
		return ErrFirefighterDeployed
	}

	// Guarded on status so a concurrent assignment wins over the delete.
	ok, err := s.repo.DeleteFirefighter(ctx, unitID)
	if err != nil {
		return fmt.Errorf("delete firefighter: %w", err)
	}
	if !ok {
		return ErrFirefighterDeployed
	}
	return nil
}
