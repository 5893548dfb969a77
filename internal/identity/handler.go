package identity

import (
	"encoding/json"
	"net/http"

	"github.com/emberwatch/firedispatch/internal/domain"
	"github.com/emberwatch/firedispatch/internal/pkg/httputil"
	"github.com/emberwatch/firedispatch/internal/registry"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Handler handles HTTP requests for authentication.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new identity handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers authentication routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
	})
}

// RegisterRequest represents the request body for account registration.
type RegisterRequest struct {
	Name       string  `json:"name" validate:"required,min=1,max=255"`
	Email      string  `json:"email" validate:"required,email"`
	Password   string  `json:"password" validate:"required,min=8,max=128"`
	Phone      string  `json:"phone" validate:"max=32"`
	Address    string  `json:"address" validate:"max=500"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	WebhookURL string  `json:"webhook_url" validate:"omitempty,url"`
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse couples the department with its issued token.
type LoginResponse struct {
	Department *domain.Department `json:"department"`
	Token      *TokenPair         `json:"token"`
}

// Register handles POST /auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	department, err := h.service.Register(r.Context(), RegisterInput{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		Phone:      req.Phone,
		Address:    req.Address,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		WebhookURL: req.WebhookURL,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusCreated, department)
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	department, token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, LoginResponse{
		Department: department,
		Token:      token,
	})
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	httputil.HandleError(r.Context(), w, err, []httputil.ErrorMapping{
		{Error: ErrAccountExists, Status: http.StatusConflict},
		{Error: ErrInvalidCredentials, Status: http.StatusUnauthorized},
		{Error: ErrWeakPassword, Status: http.StatusBadRequest},
		{Error: registry.ErrNameRequired, Status: http.StatusBadRequest},
		{Error: registry.ErrInvalidCoordinates, Status: http.StatusBadRequest},
	})
}
