// Package crew manages firefighter crew allocation for accepted incidents:
// assigning a crew, confirming the dispatch and closing the incident out.
package crew

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/emberwatch/firedispatch/internal/dispatch"
	"github.com/emberwatch/firedispatch/internal/domain"
	"github.com/emberwatch/firedispatch/internal/pkg/ctxlog"
	"github.com/emberwatch/firedispatch/internal/pkg/metrics"
	"github.com/google/uuid"
)

// Service implements crew assignment and incident completion.
type Service struct {
	repo        Repository
	broadcaster dispatch.Broadcaster
}

// NewService creates a new crew service.
func NewService(repo Repository, broadcaster dispatch.Broadcaster) *Service {
	return &Service{repo: repo, broadcaster: broadcaster}
}

// AssignInput holds data for allocating a crew to an accepted incident.
type AssignInput struct {
	IncidentID   uuid.UUID
	DepartmentID uuid.UUID
	CrewIDs      []uuid.UUID
	LeaderID     uuid.UUID
}

// Assign allocates a firefighter crew to an acknowledged incident owned by
// the calling department and moves it to assigned. Every unit must be
// available; a unit already deployed elsewhere fails the whole assignment.
func (s *Service) Assign(ctx context.Context, input AssignInput) (*domain.Incident, error) {
	if len(input.CrewIDs) == 0 {
		return nil, ErrCrewRequired
	}
	seen := make(map[uuid.UUID]bool, len(input.CrewIDs))
	leaderInCrew := false
	for _, id := range input.CrewIDs {
		if seen[id] {
			return nil, ErrDuplicateUnit
		}
		seen[id] = true
		if id == input.LeaderID {
			leaderInCrew = true
		}
	}
	if !leaderInCrew {
		return nil, ErrLeaderNotInCrew
	}

	incident, err := s.repo.GetIncident(ctx, input.IncidentID)
	if err != nil {
		return nil, fmt.Errorf("get incident: %w", err)
	}
	if err := s.checkOwner(incident, input.DepartmentID); err != nil {
		return nil, err
	}
	if incident.Status != domain.IncidentStatusAcknowledged {
		return nil, ErrNotAcknowledged
	}

	ok, err := s.repo.Assign(ctx, input.IncidentID, input.DepartmentID, input.CrewIDs, input.LeaderID)
	if err != nil {
		return nil, fmt.Errorf("assign crew: %w", err)
	}
	if !ok {
		metrics.RecordConflict("assign")
		return nil, ErrNotAcknowledged
	}
	metrics.RecordTransition(string(domain.IncidentStatusAssigned))

	updated, err := s.repo.GetIncident(ctx, input.IncidentID)
	if err != nil {
		return nil, fmt.Errorf("reload incident: %w", err)
	}

	ctxlog.FromContext(ctx).Info("crew assigned to incident",
		"incident_id", updated.ID,
		"department_id", input.DepartmentID,
		"crew_size", len(input.CrewIDs),
		"leader_id", input.LeaderID,
	)
	s.publish(ctx, domain.EventIncidentAssigned, updated)

	return updated, nil
}

// ConfirmAndSend confirms the assigned crew is rolling out and moves the
// incident to in_progress.
func (s *Service) ConfirmAndSend(ctx context.Context, incidentID, departmentID uuid.UUID) (*domain.Incident, error) {
	incident, err := s.repo.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, fmt.Errorf("get incident: %w", err)
	}
	if err := s.checkOwner(incident, departmentID); err != nil {
		return nil, err
	}
	if incident.Status != domain.IncidentStatusAssigned {
		return nil, ErrNotAssigned
	}

	ok, err := s.repo.ConfirmDispatch(ctx, incidentID, departmentID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("confirm dispatch: %w", err)
	}
	if !ok {
		metrics.RecordConflict("dispatch")
		return nil, ErrNotAssigned
	}
	metrics.RecordTransition(string(domain.IncidentStatusInProgress))

	updated, err := s.repo.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, fmt.Errorf("reload incident: %w", err)
	}

	ctxlog.FromContext(ctx).Info("firefighters dispatched",
		"incident_id", updated.ID,
		"department_id", departmentID,
		"crew_size", len(updated.CrewIDs),
	)
	s.publish(ctx, domain.EventFirefightersDispatched, updated)

	return updated, nil
}

// CompleteInput holds data for resolving an in-progress incident.
type CompleteInput struct {
	IncidentID          uuid.UUID
	DepartmentID        uuid.UUID
	Notes               string
	ResponseTimeSeconds *int
}

// Complete resolves an in-progress incident and releases its crew back to
// the available pool.
func (s *Service) Complete(ctx context.Context, input CompleteInput) (*domain.Incident, error) {
	if input.ResponseTimeSeconds != nil && *input.ResponseTimeSeconds < 0 {
		return nil, ErrInvalidResponseTime
	}

	incident, err := s.repo.GetIncident(ctx, input.IncidentID)
	if err != nil {
		return nil, fmt.Errorf("get incident: %w", err)
	}
	if err := s.checkOwner(incident, input.DepartmentID); err != nil {
		return nil, err
	}
	if incident.Status != domain.IncidentStatusInProgress {
		return nil, ErrNotInProgress
	}

	notes := strings.TrimSpace(input.Notes)
	resolvedAt := time.Now().UTC()

	responseTime := input.ResponseTimeSeconds
	if responseTime == nil {
		elapsed := int(resolvedAt.Sub(incident.CreatedAt) / time.Second)
		if elapsed >= 0 {
			responseTime = &elapsed
		}
	}

	ok, err := s.repo.Complete(ctx, input.IncidentID, input.DepartmentID, notes, responseTime, resolvedAt)
	if err != nil {
		return nil, fmt.Errorf("complete incident: %w", err)
	}
	if !ok {
		metrics.RecordConflict("complete")
		return nil, ErrNotInProgress
	}
	metrics.RecordTransition(string(domain.IncidentStatusResolved))

	updated, err := s.repo.GetIncident(ctx, input.IncidentID)
	if err != nil {
		return nil, fmt.Errorf("reload incident: %w", err)
	}

	ctxlog.FromContext(ctx).Info("incident completed",
		"incident_id", updated.ID,
		"department_id", input.DepartmentID,
		"crew_released", len(updated.CrewIDs),
	)
	s.publish(ctx, domain.EventIncidentCompleted, updated)

	return updated, nil
}

func (s *Service) checkOwner(incident *domain.Incident, departmentID uuid.UUID) error {
	if incident.AssignedDepartment == nil || *incident.AssignedDepartment != departmentID {
		return ErrNotOwner
	}
	return nil
}

func (s *Service) publish(ctx context.Context, eventType domain.EventType, incident *domain.Incident) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.Publish(ctx, &domain.DispatchEvent{
		Type:       eventType,
		Incident:   incident,
		OccurredAt: time.Now().UTC(),
	})
}
