package registry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/emberwatch/firedispatch/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRepository implements Repository in memory.
type mockRepository struct {
	mu          sync.Mutex
	departments map[uuid.UUID]*domain.Department
	units       map[uuid.UUID]*domain.FirefighterUnit
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		departments: make(map[uuid.UUID]*domain.Department),
		units:       make(map[uuid.UUID]*domain.FirefighterUnit),
	}
}

func (m *mockRepository) CreateDepartment(_ context.Context, department *domain.Department) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.departments {
		if d.Slug == department.Slug || d.Email == department.Email {
			return ErrDepartmentExists
		}
	}
	department.ID = uuid.New()
	department.CreatedAt = time.Now().UTC()
	department.UpdatedAt = department.CreatedAt
	clone := *department
	m.departments[department.ID] = &clone
	return nil
}

func (m *mockRepository) GetDepartment(_ context.Context, id uuid.UUID) (*domain.Department, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	department, ok := m.departments[id]
	if !ok {
		return nil, ErrDepartmentNotFound
	}
	clone := *department
	return &clone, nil
}

func (m *mockRepository) GetDepartmentBySlug(_ context.Context, slug string) (*domain.Department, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, department := range m.departments {
		if department.Slug == slug {
			clone := *department
			return &clone, nil
		}
	}
	return nil, ErrDepartmentNotFound
}

func (m *mockRepository) ListDepartments(_ context.Context) ([]*domain.Department, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Department, 0, len(m.departments))
	for _, department := range m.departments {
		clone := *department
		out = append(out, &clone)
	}
	return out, nil
}

func (m *mockRepository) UpdateDepartment(_ context.Context, department *domain.Department) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.departments[department.ID]; !ok {
		return ErrDepartmentNotFound
	}
	clone := *department
	m.departments[department.ID] = &clone
	return nil
}

func (m *mockRepository) CreateFirefighter(_ context.Context, unit *domain.FirefighterUnit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	unit.ID = uuid.New()
	unit.LastStatusAt = time.Now().UTC()
	clone := *unit
	m.units[unit.ID] = &clone
	return nil
}

func (m *mockRepository) GetFirefighter(_ context.Context, id uuid.UUID) (*domain.FirefighterUnit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	unit, ok := m.units[id]
	if !ok {
		return nil, ErrFirefighterNotFound
	}
	clone := *unit
	return &clone, nil
}

func (m *mockRepository) ListFirefighters(_ context.Context, departmentID uuid.UUID, onlyAvailable bool) ([]*domain.FirefighterUnit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.FirefighterUnit
	for _, unit := range m.units {
		if unit.DepartmentID != departmentID {
			continue
		}
		if onlyAvailable && unit.Status != domain.UnitStatusAvailable {
			continue
		}
		clone := *unit
		out = append(out, &clone)
	}
	return out, nil
}

func (m *mockRepository) DeleteFirefighter(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	unit, ok := m.units[id]
	if !ok || unit.Status != domain.UnitStatusAvailable {
		return false, nil
	}
	delete(m.units, id)
	return true, nil
}

func newTestService() (*Service, *mockRepository) {
	repo := newMockRepository()
	return NewService(repo), repo
}

func createTestDepartment(t *testing.T, svc *Service) *domain.Department {
	t.Helper()
	department, err := svc.CreateDepartment(context.Background(), CreateDepartmentInput{
		Name:      "Station North",
		Email:     "North@Example.com",
		Phone:     "+49 30 1234567",
		Latitude:  52.53,
		Longitude: 13.41,
	})
	require.NoError(t, err)
	return department
}

func TestCreateDepartment(t *testing.T) {
	svc, _ := newTestService()

	department := createTestDepartment(t, svc)

	assert.Equal(t, "station-north", department.Slug)
	assert.Equal(t, "north@example.com", department.Email)
	assert.NotEqual(t, uuid.Nil, department.ID)

	bySlug, err := svc.GetDepartmentBySlug(context.Background(), "station-north")
	require.NoError(t, err)
	assert.Equal(t, department.ID, bySlug.ID)
}

func TestCreateDepartmentValidation(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.CreateDepartment(context.Background(), CreateDepartmentInput{
		Name: "  ", Latitude: 52, Longitude: 13,
	})
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = svc.CreateDepartment(context.Background(), CreateDepartmentInput{
		Name: "Station", Latitude: 95, Longitude: 13,
	})
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
}

func TestCreateDepartmentDuplicate(t *testing.T) {
	svc, _ := newTestService()
	createTestDepartment(t, svc)

	_, err := svc.CreateDepartment(context.Background(), CreateDepartmentInput{
		Name: "Station North", Email: "other@example.com",
		Latitude: 52.5, Longitude: 13.4,
	})
	assert.ErrorIs(t, err, ErrDepartmentExists)
}

func TestUpdateDepartment(t *testing.T) {
	svc, _ := newTestService()
	department := createTestDepartment(t, svc)

	webhook := "https://hooks.example.com/fire"
	lat := 52.50
	updated, err := svc.UpdateDepartment(context.Background(), UpdateDepartmentInput{
		DepartmentID: department.ID,
		Latitude:     &lat,
		WebhookURL:   &webhook,
	})
	require.NoError(t, err)
	assert.Equal(t, 52.50, updated.Latitude)
	assert.Equal(t, webhook, updated.WebhookURL)
	assert.Equal(t, department.Longitude, updated.Longitude)

	badLat := 123.0
	_, err = svc.UpdateDepartment(context.Background(), UpdateDepartmentInput{
		DepartmentID: department.ID,
		Latitude:     &badLat,
	})
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
}

func TestFirefighterLifecycle(t *testing.T) {
	svc, repo := newTestService()
	department := createTestDepartment(t, svc)

	unit, err := svc.CreateFirefighter(context.Background(), CreateFirefighterInput{
		DepartmentID:    department.ID,
		Name:            "Engine 1",
		Email:           "Engine1@Example.com",
		Specializations: []string{"hazmat", " ", "rescue"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.UnitStatusAvailable, unit.Status)
	assert.Equal(t, "engine1@example.com", unit.Email)
	assert.Equal(t, []string{"hazmat", "rescue"}, unit.Specializations)

	listed, err := svc.ListFirefighters(context.Background(), department.ID, true)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	// Deployed units disappear from the availability view and resist delete.
	repo.units[unit.ID].Status = domain.UnitStatusDeployed
	available, err := svc.ListFirefighters(context.Background(), department.ID, true)
	require.NoError(t, err)
	assert.Empty(t, available)

	err = svc.DeleteFirefighter(context.Background(), department.ID, unit.ID)
	assert.ErrorIs(t, err, ErrFirefighterDeployed)

	repo.units[unit.ID].Status = domain.UnitStatusAvailable
	err = svc.DeleteFirefighter(context.Background(), department.ID, unit.ID)
	require.NoError(t, err)

	_, err = svc.GetFirefighter(context.Background(), department.ID, unit.ID)
	assert.ErrorIs(t, err, ErrFirefighterNotFound)
}

func TestFirefighterScoping(t *testing.T) {
	svc, _ := newTestService()
	department := createTestDepartment(t, svc)

	other, err := svc.CreateDepartment(context.Background(), CreateDepartmentInput{
		Name: "Station South", Email: "south@example.com",
		Latitude: 52.45, Longitude: 13.50,
	})
	require.NoError(t, err)

	unit, err := svc.CreateFirefighter(context.Background(), CreateFirefighterInput{
		DepartmentID: department.ID,
		Name:         "Engine 1",
	})
	require.NoError(t, err)

	_, err = svc.GetFirefighter(context.Background(), other.ID, unit.ID)
	assert.ErrorIs(t, err, ErrNotDepartmentMember)

	err = svc.DeleteFirefighter(context.Background(), other.ID, unit.ID)
	assert.ErrorIs(t, err, ErrNotDepartmentMember)
}

func TestCreateFirefighterUnknownDepartment(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.CreateFirefighter(context.Background(), CreateFirefighterInput{
		DepartmentID: uuid.New(),
		Name:         "Engine 1",
	})
	assert.ErrorIs(t, err, ErrDepartmentNotFound)
}
