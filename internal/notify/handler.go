package notify

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/emberwatch/firedispatch/internal/pkg/ctxlog"
	"github.com/emberwatch/firedispatch/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const heartbeatInterval = 25 * time.Second

// Handler serves the SSE event stream.
type Handler struct {
	hub *Hub
}

// NewHandler creates a new notify handler.
func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// RegisterRoutes registers the event stream route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/events/stream", h.Stream)
}

// Stream handles GET /events/stream. It holds the connection open and
// pushes dispatch events for the caller department until the client
// disconnects.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	departmentID := httputil.GetDepartmentID(r.Context())
	if departmentID == uuid.Nil {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.Error(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	session := h.hub.Subscribe(departmentID)
	defer session.Close()

	log := ctxlog.FromContext(r.Context())
	log.Info("sse session opened", "department_id", departmentID)
	defer log.Info("sse session closed", "department_id", departmentID)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case event, ok := <-session.Events:
			if !ok {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				log.Error("failed to marshal event", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload)
			flusher.Flush()
		}
	}
}
