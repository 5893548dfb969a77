package crew

import (
	"encoding/json"
	"net/http"

	"github.com/emberwatch/firedispatch/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for crew assignment and completion.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new crew handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers crew lifecycle routes on an incident's {id}
// subtree, provided by the dispatch handler.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/assign", h.Assign)
	r.Post("/dispatch", h.Dispatch)
	r.Post("/complete", h.Complete)
}

// AssignRequest represents the request body for assigning a crew.
type AssignRequest struct {
	CrewIDs  []string `json:"crew_ids" validate:"required,min=1,max=50,dive,uuid"`
	LeaderID string   `json:"leader_id" validate:"required,uuid"`
}

// CompleteRequest represents the request body for completing an incident.
type CompleteRequest struct {
	Notes               string `json:"notes" validate:"max=5000"`
	ResponseTimeSeconds *int   `json:"response_time_seconds"`
}

// Assign handles POST /incidents/{id}/assign.
func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	incidentID, departmentID, ok := h.requestIdentity(w, r)
	if !ok {
		return
	}

	var req AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	crewIDs := make([]uuid.UUID, 0, len(req.CrewIDs))
	for _, raw := range req.CrewIDs {
		crewIDs = append(crewIDs, uuid.MustParse(raw))
	}

	incident, err := h.service.Assign(r.Context(), AssignInput{
		IncidentID:   incidentID,
		DepartmentID: departmentID,
		CrewIDs:      crewIDs,
		LeaderID:     uuid.MustParse(req.LeaderID),
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

// Dispatch handles POST /incidents/{id}/dispatch.
func (h *Handler) Dispatch(w http.ResponseWriter, r *http.Request) {
	incidentID, departmentID, ok := h.requestIdentity(w, r)
	if !ok {
		return
	}

	incident, err := h.service.ConfirmAndSend(r.Context(), incidentID, departmentID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

// Complete handles POST /incidents/{id}/complete.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	incidentID, departmentID, ok := h.requestIdentity(w, r)
	if !ok {
		return
	}

	var req CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	incident, err := h.service.Complete(r.Context(), CompleteInput{
		IncidentID:          incidentID,
		DepartmentID:        departmentID,
		Notes:               req.Notes,
		ResponseTimeSeconds: req.ResponseTimeSeconds,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

func (h *Handler) requestIdentity(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	incidentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid incident id")
		return uuid.Nil, uuid.Nil, false
	}

	departmentID := httputil.GetDepartmentID(r.Context())
	if departmentID == uuid.Nil {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return uuid.Nil, uuid.Nil, false
	}
	return incidentID, departmentID, true
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	httputil.HandleError(r.Context(), w, err, []httputil.ErrorMapping{
		{Error: ErrIncidentNotFound, Status: http.StatusNotFound},
		{Error: ErrNotOwner, Status: http.StatusForbidden},
		{Error: ErrNotAcknowledged, Status: http.StatusConflict},
		{Error: ErrNotAssigned, Status: http.StatusConflict},
		{Error: ErrNotInProgress, Status: http.StatusConflict},
		{Error: ErrUnitsUnavailable, Status: http.StatusConflict},
		{Error: ErrUnitWrongDepartment, Status: http.StatusConflict},
		{Error: ErrCrewRequired, Status: http.StatusBadRequest},
		{Error: ErrDuplicateUnit, Status: http.StatusBadRequest},
		{Error: ErrLeaderNotInCrew, Status: http.StatusBadRequest},
		{Error: ErrInvalidResponseTime, Status: http.StatusBadRequest},
	})
}
