package registry

import (
	"encoding/json"
	"net/http"

	"github.com/emberwatch/firedispatch/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for the catalog.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new registry handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterPublicRoutes registers routes that need no authentication.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/departments", h.ListDepartments)
	r.Get("/departments/{id}", h.GetDepartment)
}

// RegisterRoutes registers authenticated catalog routes. The firefighter
// roster is always scoped to the caller department.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/firefighters", func(r chi.Router) {
		r.Post("/", h.CreateFirefighter)
		r.Get("/", h.ListFirefighters)
		r.Get("/{id}", h.GetFirefighter)
		r.Delete("/{id}", h.DeleteFirefighter)
	})
	r.Patch("/departments/me", h.UpdateDepartment)
}

// CreateFirefighterRequest represents the request body for adding a unit.
type CreateFirefighterRequest struct {
	Name            string   `json:"name" validate:"required,min=1,max=255"`
	Email           string   `json:"email" validate:"omitempty,email"`
	Phone           string   `json:"phone" validate:"max=32"`
	Specializations []string `json:"specializations" validate:"max=20,dive,max=100"`
}

// UpdateDepartmentRequest represents a partial department update.
type UpdateDepartmentRequest struct {
	Phone      *string  `json:"phone" validate:"omitempty,max=32"`
	Address    *string  `json:"address" validate:"omitempty,max=500"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	WebhookURL *string  `json:"webhook_url" validate:"omitempty,url|eq="`
}

// ListDepartments handles GET /departments.
func (h *Handler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := h.service.ListDepartments(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.Success(w, http.StatusOK, departments)
}

// GetDepartment handles GET /departments/{id}. The id segment also accepts
// a slug.
func (h *Handler) GetDepartment(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")

	if id, err := uuid.Parse(raw); err == nil {
		department, err := h.service.GetDepartment(r.Context(), id)
		if err != nil {
			h.handleServiceError(w, r, err)
			return
		}
		httputil.Success(w, http.StatusOK, department)
		return
	}

	department, err := h.service.GetDepartmentBySlug(r.Context(), raw)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.Success(w, http.StatusOK, department)
}

// UpdateDepartment handles PATCH /departments/me for the caller department.
func (h *Handler) UpdateDepartment(w http.ResponseWriter, r *http.Request) {
	departmentID, ok := h.callerDepartment(w, r)
	if !ok {
		return
	}

	var req UpdateDepartmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	department, err := h.service.UpdateDepartment(r.Context(), UpdateDepartmentInput{
		DepartmentID: departmentID,
		Phone:        req.Phone,
		Address:      req.Address,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		WebhookURL:   req.WebhookURL,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.Success(w, http.StatusOK, department)
}

// CreateFirefighter handles POST /firefighters.
func (h *Handler) CreateFirefighter(w http.ResponseWriter, r *http.Request) {
	departmentID, ok := h.callerDepartment(w, r)
	if !ok {
		return
	}

	var req CreateFirefighterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	unit, err := h.service.CreateFirefighter(r.Context(), CreateFirefighterInput{
		DepartmentID:    departmentID,
		Name:            req.Name,
		Email:           req.Email,
		Phone:           req.Phone,
		Specializations: req.Specializations,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.Success(w, http.StatusCreated, unit)
}

// ListFirefighters handles GET /firefighters?available=true.
func (h *Handler) ListFirefighters(w http.ResponseWriter, r *http.Request) {
	departmentID, ok := h.callerDepartment(w, r)
	if !ok {
		return
	}

	onlyAvailable := r.URL.Query().Get("available") == "true"
	units, err := h.service.ListFirefighters(r.Context(), departmentID, onlyAvailable)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.Success(w, http.StatusOK, units)
}

// GetFirefighter handles GET /firefighters/{id}.
func (h *Handler) GetFirefighter(w http.ResponseWriter, r *http.Request) {
	departmentID, ok := h.callerDepartment(w, r)
	if !ok {
		return
	}

	unitID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid firefighter id")
		return
	}

	unit, err := h.service.GetFirefighter(r.Context(), departmentID, unitID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.Success(w, http.StatusOK, unit)
}

// DeleteFirefighter handles DELETE /firefighters/{id}.
func (h *Handler) DeleteFirefighter(w http.ResponseWriter, r *http.Request) {
	departmentID, ok := h.callerDepartment(w, r)
	if !ok {
		return
	}

	unitID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid firefighter id")
		return
	}

	if err := h.service.DeleteFirefighter(r.Context(), departmentID, unitID); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) callerDepartment(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	departmentID := httputil.GetDepartmentID(r.Context())
	if departmentID == uuid.Nil {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return uuid.Nil, false
	}
	return departmentID, true
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	httputil.HandleError(r.Context(), w, err, []httputil.ErrorMapping{
		{Error: ErrDepartmentNotFound, Status: http.StatusNotFound},
		{Error: ErrFirefighterNotFound, Status: http.StatusNotFound},
		{Error: ErrNotDepartmentMember, Status: http.StatusNotFound},
		{Error: ErrDepartmentExists, Status: http.StatusConflict},
		{Error: ErrFirefighterExists, Status: http.StatusConflict},
		{Error: ErrFirefighterDeployed, Status: http.StatusConflict},
		{Error: ErrNameRequired, Status: http.StatusBadRequest},
		{Error: ErrInvalidCoordinates, Status: http.StatusBadRequest},
	})
}
