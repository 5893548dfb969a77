package dispatch

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/emberwatch/firedispatch/internal/domain"
	"github.com/emberwatch/firedispatch/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for the dispatch module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new dispatch handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterAlertRoutes registers the device-facing alert ingestion route.
func (h *Handler) RegisterAlertRoutes(r chi.Router) {
	r.Post("/alerts", h.IngestAlert)
}

// RegisterRoutes registers department-facing incident routes. Routes from
// other handlers that live under an incident (the crew lifecycle) hook into
// the {id} subtree here, so everything below /incidents shares one routing
// tree.
func (h *Handler) RegisterRoutes(r chi.Router, incidentRoutes ...func(chi.Router)) {
	r.Route("/incidents", func(r chi.Router) {
		r.Get("/", h.ListIncidents)
		r.Get("/active", h.ListActive)
		r.Get("/pending", h.ListPending)
		r.Get("/assigned", h.ListAssigned)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetIncident)
			r.Post("/respond", h.Respond)
			for _, register := range incidentRoutes {
				register(r)
			}
		})
	})
}

// IngestAlertRequest represents the request body for creating an alert.
type IngestAlertRequest struct {
	AlertType      string            `json:"alert_type" validate:"required,oneof=fire smoke"`
	Location       string            `json:"location" validate:"required,min=1,max=500"`
	Latitude       float64           `json:"latitude"`
	Longitude      float64           `json:"longitude"`
	Confidence     float64           `json:"confidence" validate:"min=0,max=1"`
	Temperature    *float64          `json:"temperature"`
	SourceDeviceID string            `json:"source_device_id" validate:"max=255"`
	AdditionalInfo map[string]string `json:"additional_info"`
	Timestamp      *int64            `json:"timestamp"` // unix seconds, device clock
}

// RespondRequest represents a department's decision on a pending incident.
type RespondRequest struct {
	Action string `json:"action" validate:"required,oneof=accept reject"`
	Notes  string `json:"notes" validate:"max=2000"`
}

// IngestAlert handles POST /alerts.
func (h *Handler) IngestAlert(w http.ResponseWriter, r *http.Request) {
	var req IngestAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	input := IngestInput{
		AlertType:      domain.AlertType(req.AlertType),
		Location:       req.Location,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		Confidence:     req.Confidence,
		Temperature:    req.Temperature,
		SourceDeviceID: req.SourceDeviceID,
		AdditionalInfo: req.AdditionalInfo,
	}
	if req.Timestamp != nil {
		ts := time.Unix(*req.Timestamp, 0).UTC()
		input.Timestamp = &ts
	}

	incident, err := h.service.Ingest(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusCreated, incident)
}

// Respond handles POST /incidents/{id}/respond.
func (h *Handler) Respond(w http.ResponseWriter, r *http.Request) {
	incidentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid incident id")
		return
	}

	departmentID := httputil.GetDepartmentID(r.Context())
	if departmentID == uuid.Nil {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req RespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	incident, err := h.service.Respond(r.Context(), RespondInput{
		IncidentID:   incidentID,
		DepartmentID: departmentID,
		Action:       ResponseAction(req.Action),
		Notes:        req.Notes,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

// GetIncident handles GET /incidents/{id}.
func (h *Handler) GetIncident(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid incident id")
		return
	}

	incident, err := h.service.GetIncident(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

// ListIncidents handles GET /incidents.
func (h *Handler) ListIncidents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	incidents, err := h.service.ListAll(r.Context(), limit)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, incidents)
}

// ListActive handles GET /incidents/active.
func (h *Handler) ListActive(w http.ResponseWriter, r *http.Request) {
	incidents, err := h.service.ListActive(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, incidents)
}

// ListPending handles GET /incidents/pending for the caller department.
func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	departmentID := httputil.GetDepartmentID(r.Context())
	if departmentID == uuid.Nil {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	incidents, err := h.service.ListPendingForDepartment(r.Context(), departmentID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, incidents)
}

// ListAssigned handles GET /incidents/assigned for the caller department.
func (h *Handler) ListAssigned(w http.ResponseWriter, r *http.Request) {
	departmentID := httputil.GetDepartmentID(r.Context())
	if departmentID == uuid.Nil {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	incidents, err := h.service.ListAssignedToDepartment(r.Context(), departmentID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, incidents)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	httputil.HandleError(r.Context(), w, err, []httputil.ErrorMapping{
		{Error: ErrIncidentNotFound, Status: http.StatusNotFound},
		{Error: ErrNotPending, Status: http.StatusConflict},
		{Error: ErrInvalidAction, Status: http.StatusBadRequest},
		{Error: ErrRejectionReasonRequired, Status: http.StatusBadRequest},
		{Error: ErrInvalidAlertType, Status: http.StatusBadRequest},
		{Error: ErrInvalidCoordinates, Status: http.StatusBadRequest},
		{Error: ErrInvalidConfidence, Status: http.StatusBadRequest},
	})
}
