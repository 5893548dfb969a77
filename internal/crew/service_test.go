package crew

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

// mockRepository implements Repository in memory, mirroring the guarded
// transition and all-or-nothing deployment semantics of the postgres
// implementation.
type mockRepository struct {
	mu        sync.Mutex
	incidents map[uuid.UUID]*domain.Incident
	units     map[uuid.UUID]*domain.FirefighterUnit
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		incidents: make(map[uuid.UUID]*domain.Incident),
		units:     make(map[uuid.UUID]*domain.FirefighterUnit),
	}
}

func (m *mockRepository) GetIncident(_ context.Context, id uuid.UUID) (*domain.Incident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	incident, ok := m.incidents[id]
	if !ok {
		return nil, ErrIncidentNotFound
	}
	clone := *incident
	clone.CrewIDs = append([]uuid.UUID(nil), incident.CrewIDs...)
	return &clone, nil
}

func (m *mockRepository) Assign(_ context.Context, incidentID, departmentID uuid.UUID, crewIDs []uuid.UUID, leaderID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	incident, ok := m.incidents[incidentID]
	if !ok || incident.Status != domain.IncidentStatusAcknowledged ||
		incident.AssignedDepartment == nil || *incident.AssignedDepartment != departmentID {
		return false, nil
	}

	for _, id := range crewIDs {
		unit, ok := m.units[id]
		if !ok || unit.DepartmentID != departmentID {
			return false, ErrUnitWrongDepartment
		}
		if unit.Status != domain.UnitStatusAvailable {
			return false, ErrUnitsUnavailable
		}
	}
	for _, id := range crewIDs {
		m.units[id].Status = domain.UnitStatusDeployed
		m.units[id].IncidentID = &incidentID
	}

	incident.Status = domain.IncidentStatusAssigned
	incident.LeaderID = &leaderID
	incident.CrewIDs = append([]uuid.UUID(nil), crewIDs...)
	return true, nil
}

func (m *mockRepository) ConfirmDispatch(_ context.Context, incidentID, departmentID uuid.UUID, dispatchedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	incident, ok := m.incidents[incidentID]
	if !ok || incident.Status != domain.IncidentStatusAssigned ||
		incident.AssignedDepartment == nil || *incident.AssignedDepartment != departmentID {
		return false, nil
	}
	incident.Status = domain.IncidentStatusInProgress
	incident.DispatchedAt = &dispatchedAt
	return true, nil
}

func (m *mockRepository) Complete(_ context.Context, incidentID, departmentID uuid.UUID, notes string, responseTimeSeconds *int, resolvedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	incident, ok := m.incidents[incidentID]
	if !ok || incident.Status != domain.IncidentStatusInProgress ||
		incident.AssignedDepartment == nil || *incident.AssignedDepartment != departmentID {
		return false, nil
	}
	incident.Status = domain.IncidentStatusResolved
	incident.CompletionNotes = notes
	incident.ResponseTimeSeconds = responseTimeSeconds
	incident.ResolvedAt = &resolvedAt
	for _, unit := range m.units {
		if unit.IncidentID != nil && *unit.IncidentID == incidentID {
			unit.Status = domain.UnitStatusAvailable
			unit.IncidentID = nil
		}
	}
	return true, nil
}

// recordingBroadcaster captures published events.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []*domain.DispatchEvent
}

func (b *recordingBroadcaster) Publish(_ context.Context, event *domain.DispatchEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBroadcaster) last(t *testing.T) *domain.DispatchEvent {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	require.NotEmpty(t, b.events)
	return b.events[len(b.events)-1]
}

var departmentID = uuid.MustParse("11111111-1111-1111-1111-111111111111")

func newTestService() (*Service, *mockRepository, *recordingBroadcaster) {
	repo := newMockRepository()
	broadcaster := &recordingBroadcaster{}
	return NewService(repo, broadcaster), repo, broadcaster
}

func seedIncident(repo *mockRepository, status domain.IncidentStatus) *domain.Incident {
	dept := departmentID
	incident := &domain.Incident{
		ID:                 uuid.New(),
		AlertType:          domain.AlertTypeFire,
		Status:             status,
		AssignedDepartment: &dept,
		CreatedAt:          time.Now().UTC().Add(-10 * time.Minute),
	}
	repo.incidents[incident.ID] = incident
	return incident
}

func seedUnit(repo *mockRepository, dept uuid.UUID) *domain.FirefighterUnit {
	unit := &domain.FirefighterUnit{
		ID:           uuid.New(),
		DepartmentID: dept,
		Status:       domain.UnitStatusAvailable,
	}
	repo.units[unit.ID] = unit
	return unit
}

func TestAssignDeploysCrew(t *testing.T) {
	svc, repo, broadcaster := newTestService()
	incident := seedIncident(repo, domain.IncidentStatusAcknowledged)
	u1 := seedUnit(repo, departmentID)
	u2 := seedUnit(repo, departmentID)

	updated, err := svc.Assign(context.Background(), AssignInput{
		IncidentID:   incident.ID,
		DepartmentID: departmentID,
		CrewIDs:      []uuid.UUID{u1.ID, u2.ID},
		LeaderID:     u1.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.IncidentStatusAssigned, updated.Status)
	assert.ElementsMatch(t, []uuid.UUID{u1.ID, u2.ID}, updated.CrewIDs)
	require.NotNil(t, updated.LeaderID)
	assert.Equal(t, u1.ID, *updated.LeaderID)

	assert.Equal(t, domain.UnitStatusDeployed, repo.units[u1.ID].Status)
	assert.Equal(t, domain.UnitStatusDeployed, repo.units[u2.ID].Status)

	event := broadcaster.last(t)
	assert.Equal(t, domain.EventIncidentAssigned, event.Type)
	assert.Nil(t, event.TargetDepartment)
}

func TestAssignValidation(t *testing.T) {
	svc, repo, _ := newTestService()
	incident := seedIncident(repo, domain.IncidentStatusAcknowledged)
	u1 := seedUnit(repo, departmentID)

	_, err := svc.Assign(context.Background(), AssignInput{
		IncidentID:   incident.ID,
		DepartmentID: departmentID,
		LeaderID:     u1.ID,
	})
	assert.ErrorIs(t, err, ErrCrewRequired)

	_, err = svc.Assign(context.Background(), AssignInput{
		IncidentID:   incident.ID,
		DepartmentID: departmentID,
		CrewIDs:      []uuid.UUID{u1.ID, u1.ID},
		LeaderID:     u1.ID,
	})
	assert.ErrorIs(t, err, ErrDuplicateUnit)

	_, err = svc.Assign(context.Background(), AssignInput{
		IncidentID:   incident.ID,
		DepartmentID: departmentID,
		CrewIDs:      []uuid.UUID{u1.ID},
		LeaderID:     uuid.New(),
	})
	assert.ErrorIs(t, err, ErrLeaderNotInCrew)
}

func TestAssignRejectsBusyUnitAtomically(t *testing.T) {
	svc, repo, _ := newTestService()
	first := seedIncident(repo, domain.IncidentStatusAcknowledged)
	second := seedIncident(repo, domain.IncidentStatusAcknowledged)
	u1 := seedUnit(repo, departmentID)
	u2 := seedUnit(repo, departmentID)

	_, err := svc.Assign(context.Background(), AssignInput{
		IncidentID:   first.ID,
		DepartmentID: departmentID,
		CrewIDs:      []uuid.UUID{u1.ID},
		LeaderID:     u1.ID,
	})
	require.NoError(t, err)

	// u1 is deployed on the first incident, so the whole second assignment
	// must fail and u2 must stay available.
	_, err = svc.Assign(context.Background(), AssignInput{
		IncidentID:   second.ID,
		DepartmentID: departmentID,
		CrewIDs:      []uuid.UUID{u1.ID, u2.ID},
		LeaderID:     u2.ID,
	})
	assert.ErrorIs(t, err, ErrUnitsUnavailable)

	assert.Equal(t, domain.UnitStatusAvailable, repo.units[u2.ID].Status)
	assert.Equal(t, domain.IncidentStatusAcknowledged, repo.incidents[second.ID].Status)
}

func TestAssignRejectsForeignUnit(t *testing.T) {
	svc, repo, _ := newTestService()
	incident := seedIncident(repo, domain.IncidentStatusAcknowledged)
	foreign := seedUnit(repo, uuid.New())

	_, err := svc.Assign(context.Background(), AssignInput{
		IncidentID:   incident.ID,
		DepartmentID: departmentID,
		CrewIDs:      []uuid.UUID{foreign.ID},
		LeaderID:     foreign.ID,
	})
	assert.ErrorIs(t, err, ErrUnitWrongDepartment)
}

func TestAssignWrongOwnerOrState(t *testing.T) {
	svc, repo, _ := newTestService()
	incident := seedIncident(repo, domain.IncidentStatusAcknowledged)
	u1 := seedUnit(repo, departmentID)

	_, err := svc.Assign(context.Background(), AssignInput{
		IncidentID:   incident.ID,
		DepartmentID: uuid.New(),
		CrewIDs:      []uuid.UUID{u1.ID},
		LeaderID:     u1.ID,
	})
	assert.ErrorIs(t, err, ErrNotOwner)

	pending := seedIncident(repo, domain.IncidentStatusInProgress)
	_, err = svc.Assign(context.Background(), AssignInput{
		IncidentID:   pending.ID,
		DepartmentID: departmentID,
		CrewIDs:      []uuid.UUID{u1.ID},
		LeaderID:     u1.ID,
	})
	assert.ErrorIs(t, err, ErrNotAcknowledged)
}

func TestConfirmAndSend(t *testing.T) {
	svc, repo, broadcaster := newTestService()
	incident := seedIncident(repo, domain.IncidentStatusAcknowledged)
	u1 := seedUnit(repo, departmentID)

	_, err := svc.Assign(context.Background(), AssignInput{
		IncidentID:   incident.ID,
		DepartmentID: departmentID,
		CrewIDs:      []uuid.UUID{u1.ID},
		LeaderID:     u1.ID,
	})
	require.NoError(t, err)

	updated, err := svc.ConfirmAndSend(context.Background(), incident.ID, departmentID)
	require.NoError(t, err)

	assert.Equal(t, domain.IncidentStatusInProgress, updated.Status)
	require.NotNil(t, updated.DispatchedAt)

	event := broadcaster.last(t)
	assert.Equal(t, domain.EventFirefightersDispatched, event.Type)

	// Dispatching twice is a conflict.
	_, err = svc.ConfirmAndSend(context.Background(), incident.ID, departmentID)
	assert.ErrorIs(t, err, ErrNotAssigned)
}

func TestConfirmAndSendWithoutCrew(t *testing.T) {
	svc, repo, _ := newTestService()
	incident := seedIncident(repo, domain.IncidentStatusAcknowledged)

	_, err := svc.ConfirmAndSend(context.Background(), incident.ID, departmentID)
	assert.ErrorIs(t, err, ErrNotAssigned)
}

func TestCompleteReleasesCrew(t *testing.T) {
	svc, repo, broadcaster := newTestService()
	incident := seedIncident(repo, domain.IncidentStatusAcknowledged)
	u1 := seedUnit(repo, departmentID)
	u2 := seedUnit(repo, departmentID)

	_, err := svc.Assign(context.Background(), AssignInput{
		IncidentID:   incident.ID,
		DepartmentID: departmentID,
		CrewIDs:      []uuid.UUID{u1.ID, u2.ID},
		LeaderID:     u1.ID,
	})
	require.NoError(t, err)
	_, err = svc.ConfirmAndSend(context.Background(), incident.ID, departmentID)
	require.NoError(t, err)

	responseTime := 480
	updated, err := svc.Complete(context.Background(), CompleteInput{
		IncidentID:          incident.ID,
		DepartmentID:        departmentID,
		Notes:               "extinguished, no injuries",
		ResponseTimeSeconds: &responseTime,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.IncidentStatusResolved, updated.Status)
	assert.Equal(t, "extinguished, no injuries", updated.CompletionNotes)
	require.NotNil(t, updated.ResponseTimeSeconds)
	assert.Equal(t, 480, *updated.ResponseTimeSeconds)
	require.NotNil(t, updated.ResolvedAt)

	assert.Equal(t, domain.UnitStatusAvailable, repo.units[u1.ID].Status)
	assert.Equal(t, domain.UnitStatusAvailable, repo.units[u2.ID].Status)
	assert.Nil(t, repo.units[u1.ID].IncidentID)

	event := broadcaster.last(t)
	assert.Equal(t, domain.EventIncidentCompleted, event.Type)

	// The released units can be deployed again.
	another := seedIncident(repo, domain.IncidentStatusAcknowledged)
	_, err = svc.Assign(context.Background(), AssignInput{
		IncidentID:   another.ID,
		DepartmentID: departmentID,
		CrewIDs:      []uuid.UUID{u1.ID},
		LeaderID:     u1.ID,
	})
	assert.NoError(t, err)
}

func TestCompleteDerivesResponseTime(t *testing.T) {
	svc, repo, _ := newTestService()
	incident := seedIncident(repo, domain.IncidentStatusInProgress)

	updated, err := svc.Complete(context.Background(), CompleteInput{
		IncidentID:   incident.ID,
		DepartmentID: departmentID,
	})
	require.NoError(t, err)

	require.NotNil(t, updated.ResponseTimeSeconds)
	assert.GreaterOrEqual(t, *updated.ResponseTimeSeconds, 600)
}

func TestCompleteValidation(t *testing.T) {
	svc, repo, _ := newTestService()
	incident := seedIncident(repo, domain.IncidentStatusInProgress)

	negative := -5
	_, err := svc.Complete(context.Background(), CompleteInput{
		IncidentID:          incident.ID,
		DepartmentID:        departmentID,
		ResponseTimeSeconds: &negative,
	})
	assert.ErrorIs(t, err, ErrInvalidResponseTime)

	_, err = svc.Complete(context.Background(), CompleteInput{
		IncidentID:   incident.ID,
		DepartmentID: uuid.New(),
	})
	assert.ErrorIs(t, err, ErrNotOwner)

	acked := seedIncident(repo, domain.IncidentStatusAcknowledged)
	_, err = svc.Complete(context.Background(), CompleteInput{
		IncidentID:   acked.ID,
		DepartmentID: departmentID,
	})
	assert.ErrorIs(t, err, ErrNotInProgress)
}

func TestCompleteUnknownIncident(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Complete(context.Background(), CompleteInput{
		IncidentID:   uuid.New(),
		DepartmentID: departmentID,
	})
	assert.ErrorIs(t, err, ErrIncidentNotFound)
}
