// Package dispatch implements incident ingestion and the accept/reject
// escalation protocol between candidate fire departments.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/emberwatch/firedispatch/internal/domain"
	"github.com/emberwatch/firedispatch/internal/geo"
	"github.com/emberwatch/firedispatch/internal/pkg/ctxlog"
	"github.com/emberwatch/firedispatch/internal/pkg/metrics"
	"github.com/google/uuid"
)

// DefaultCandidateLimit caps the ranked candidate snapshot per incident.
const DefaultCandidateLimit = 5

// ResponseAction is a department's decision on a pending incident.
type ResponseAction string

// Response actions.
const (
	ActionAccept ResponseAction = "accept"
	ActionReject ResponseAction = "reject"
)

// IsValid checks if the response action is valid.
func (a ResponseAction) IsValid() bool {
	return a == ActionAccept || a == ActionReject
}

// Service implements alert ingestion and the response coordination logic.
type Service struct {
	repo        Repository
	departments DepartmentSource
	ranker      geo.Ranker
	broadcaster Broadcaster
}

// NewService creates a new dispatch service.
func NewService(repo Repository, departments DepartmentSource, broadcaster Broadcaster) *Service {
	return &Service{
		repo:        repo,
		departments: departments,
		ranker:      geo.Ranker{MaxCandidates: DefaultCandidateLimit},
		broadcaster: broadcaster,
	}
}

// IngestInput holds data for creating an incident from a device alert.
type IngestInput struct {
	AlertType      domain.AlertType
	Location       string
	Latitude       float64
	Longitude      float64
	Confidence     float64
	Temperature    *float64
	SourceDeviceID string
	AdditionalInfo map[string]string
	Timestamp      *time.Time
}

// Ingest durably records an alert as a new incident and targets the nearest
// covering department. Ingestion never fails on routing difficulty: with no
// candidate in reach the incident is created directly in the unassigned
// state for manual handling.
func (s *Service) Ingest(ctx context.Context, input IngestInput) (*domain.Incident, error) {
	if !input.AlertType.IsValid() {
		return nil, ErrInvalidAlertType
	}
	if !geo.ValidCoordinates(input.Latitude, input.Longitude) {
		return nil, ErrInvalidCoordinates
	}
	if input.Confidence < 0 || input.Confidence > 1 {
		return nil, ErrInvalidConfidence
	}

	log := ctxlog.FromContext(ctx)

	departments, err := s.departments.ListDepartments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}

	candidates := s.ranker.Rank(input.Latitude, input.Longitude, departments)

	incident := &domain.Incident{
		AlertType:      input.AlertType,
		Location:       input.Location,
		Latitude:       input.Latitude,
		Longitude:      input.Longitude,
		Confidence:     input.Confidence,
		Temperature:    input.Temperature,
		SourceDeviceID: input.SourceDeviceID,
		AdditionalInfo: input.AdditionalInfo,
		Candidates:     candidates,
	}
	if input.Timestamp != nil {
		incident.CreatedAt = *input.Timestamp
	}

	if len(candidates) > 0 {
		first := candidates[0].DepartmentID
		incident.Status = domain.IncidentStatusPendingResponse
		incident.RequestedDepartment = &first
	} else {
		incident.Status = domain.IncidentStatusUnassigned
	}

	if err := s.repo.CreateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("create incident: %w", err)
	}
	metrics.RecordTransition(string(incident.Status))

	if incident.RequestedDepartment != nil {
		log.Info("incident routed to nearest department",
			"incident_id", incident.ID,
			"department_id", *incident.RequestedDepartment,
			"distance_km", candidates[0].DistanceKM,
			"candidates", len(candidates),
		)
		s.publish(ctx, domain.EventNewIncidentRequest, incident, incident.RequestedDepartment)
	} else {
		log.Warn("no covering department for incident, created unassigned",
			"incident_id", incident.ID,
		)
		s.publish(ctx, domain.EventIncidentUnassigned, incident, nil)
	}

	return incident, nil
}

// RespondInput holds a department's decision on a pending incident.
type RespondInput struct {
	IncidentID   uuid.UUID
	DepartmentID uuid.UUID
	Action       ResponseAction
	Notes        string
}

// Respond processes an accept or reject from the currently addressed
// department. The transition is applied as a single conditional update
// against the (status, requested_department) pair; any stale or misdirected
// call returns ErrNotPending with no side effects.
func (s *Service) Respond(ctx context.Context, input RespondInput) (*domain.Incident, error) {
	if !input.Action.IsValid() {
		return nil, ErrInvalidAction
	}

	incident, err := s.repo.GetIncident(ctx, input.IncidentID)
	if err != nil {
		return nil, fmt.Errorf("get incident: %w", err)
	}

	if incident.Status != domain.IncidentStatusPendingResponse ||
		incident.RequestedDepartment == nil ||
		*incident.RequestedDepartment != input.DepartmentID {
		return nil, ErrNotPending
	}

	if input.Action == ActionAccept {
		return s.accept(ctx, input)
	}
	return s.reject(ctx, incident, input)
}

func (s *Service) accept(ctx context.Context, input RespondInput) (*domain.Incident, error) {
	ok, err := s.repo.Accept(ctx, input.IncidentID, input.DepartmentID)
	if err != nil {
		return nil, fmt.Errorf("accept incident: %w", err)
	}
	if !ok {
		// Lost the race: someone else moved the incident between our read
		// and the conditional update.
		metrics.RecordConflict("respond")
		return nil, ErrNotPending
	}
	metrics.RecordTransition(string(domain.IncidentStatusAcknowledged))

	incident, err := s.repo.GetIncident(ctx, input.IncidentID)
	if err != nil {
		return nil, fmt.Errorf("reload incident: %w", err)
	}

	ctxlog.FromContext(ctx).Info("incident accepted",
		"incident_id", incident.ID,
		"department_id", input.DepartmentID,
	)
	s.publish(ctx, domain.EventIncidentAccepted, incident, nil)

	return incident, nil
}

func (s *Service) reject(ctx context.Context, incident *domain.Incident, input RespondInput) (*domain.Incident, error) {
	reason := strings.TrimSpace(input.Notes)
	if reason == "" {
		return nil, ErrRejectionReasonRequired
	}

	rejection := domain.Rejection{
		DepartmentID: input.DepartmentID,
		Reason:       reason,
		RejectedAt:   time.Now().UTC(),
	}

	// Next unvisited candidate, skipping the rejecting department even
	// though its rejection row is not written yet.
	var next *uuid.UUID
	rejected := map[uuid.UUID]bool{input.DepartmentID: true}
	for _, r := range incident.RejectionHistory {
		rejected[r.DepartmentID] = true
	}
	for _, c := range incident.Candidates {
		if !rejected[c.DepartmentID] {
			id := c.DepartmentID
			next = &id
			break
		}
	}

	ok, err := s.repo.Reject(ctx, input.IncidentID, input.DepartmentID, rejection, next)
	if err != nil {
		return nil, fmt.Errorf("reject incident: %w", err)
	}
	if !ok {
		metrics.RecordConflict("respond")
		return nil, ErrNotPending
	}

	updated, err := s.repo.GetIncident(ctx, input.IncidentID)
	if err != nil {
		return nil, fmt.Errorf("reload incident: %w", err)
	}

	log := ctxlog.FromContext(ctx)
	if next != nil {
		metrics.RecordTransition(string(domain.IncidentStatusPendingResponse))
		log.Info("incident reassigned to next candidate",
			"incident_id", updated.ID,
			"rejected_by", input.DepartmentID,
			"next_department", *next,
			"rejections", len(updated.RejectionHistory),
		)
		s.publish(ctx, domain.EventIncidentReassigned, updated, next)
	} else {
		metrics.RecordTransition(string(domain.IncidentStatusUnassigned))
		log.Warn("incident rejected by all candidates, requires manual intervention",
			"incident_id", updated.ID,
			"rejections", len(updated.RejectionHistory),
		)
		s.publish(ctx, domain.EventIncidentUnassigned, updated, nil)
	}

	return updated, nil
}

// GetIncident retrieves an incident by id.
func (s *Service) GetIncident(ctx context.Context, id uuid.UUID) (*domain.Incident, error) {
	return s.repo.GetIncident(ctx, id)
}

// ListAll retrieves the most recent incidents regardless of status.
func (s *Service) ListAll(ctx context.Context, limit int) ([]*domain.Incident, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListIncidents(ctx, IncidentFilters{Limit: limit})
}

// ListActive retrieves incidents an accepting department is working on.
func (s *Service) ListActive(ctx context.Context) ([]*domain.Incident, error) {
	return s.repo.ListIncidents(ctx, IncidentFilters{
		Statuses: []domain.IncidentStatus{
			domain.IncidentStatusAcknowledged,
			domain.IncidentStatusAssigned,
			domain.IncidentStatusInProgress,
		},
	})
}

// ListPendingForDepartment retrieves incidents currently awaiting the given
// department's decision.
func (s *Service) ListPendingForDepartment(ctx context.Context, departmentID uuid.UUID) ([]*domain.Incident, error) {
	return s.repo.ListIncidents(ctx, IncidentFilters{
		Statuses:            []domain.IncidentStatus{domain.IncidentStatusPendingResponse},
		RequestedDepartment: &departmentID,
	})
}

// ListAssignedToDepartment retrieves incidents owned by the given department.
func (s *Service) ListAssignedToDepartment(ctx context.Context, departmentID uuid.UUID) ([]*domain.Incident, error) {
	return s.repo.ListIncidents(ctx, IncidentFilters{
		AssignedDepartment: &departmentID,
	})
}

func (s *Service) publish(ctx context.Context, eventType domain.EventType, incident *domain.Incident, target *uuid.UUID) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.Publish(ctx, &domain.DispatchEvent{
		Type:             eventType,
		TargetDepartment: target,
		Incident:         incident,
		OccurredAt:       time.Now().UTC(),
	})
}
