package dispatch

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/emberwatch/firedispatch/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandlerRouter(depts ...*domain.Department) chi.Router {
	svc, _, _ := newTestService(depts...)
	h := NewHandler(svc)
	r := chi.NewRouter()
	h.RegisterAlertRoutes(r)
	h.RegisterRoutes(r)
	return r
}

func postJSON(router chi.Router, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestIngestAlertAcceptsZeroLatitude(t *testing.T) {
	router := newHandlerRouter()

	// Latitude 0 is the equator, not a missing field.
	rec := postJSON(router, "/alerts",
		`{"alert_type":"fire","location":"river delta","latitude":0,"longitude":6.45,"confidence":0.8}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var envelope struct {
		Data domain.Incident `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Zero(t, envelope.Data.Latitude)
	assert.Equal(t, 6.45, envelope.Data.Longitude)
}

func TestIngestAlertRejectsOutOfRangeCoordinates(t *testing.T) {
	router := newHandlerRouter()

	rec := postJSON(router, "/alerts",
		`{"alert_type":"fire","location":"x","latitude":99,"longitude":13,"confidence":0.5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = postJSON(router, "/alerts",
		`{"alert_type":"fire","location":"x","latitude":52,"longitude":-200,"confidence":0.5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

// Routes from other handlers mount under /incidents/{id}; every dispatch
// route must still resolve next to them.
func TestRegisterRoutesSharesIncidentSubtree(t *testing.T) {
	svc, _, _ := newTestService(deptNear)
	incident := ingestTestAlert(t, svc)

	r := chi.NewRouter()
	NewHandler(svc).RegisterRoutes(r, func(r chi.Router) {
		r.Post("/assign", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	})

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	assert.Equal(t, http.StatusOK, get("/incidents").Code)
	assert.Equal(t, http.StatusOK, get("/incidents/active").Code)
	assert.Equal(t, http.StatusOK, get("/incidents/"+incident.ID.String()).Code)

	// Unauthenticated, but routed: the handler answers, not the mux.
	assert.Equal(t, http.StatusUnauthorized, get("/incidents/pending").Code)
	assert.Equal(t, http.StatusUnauthorized, get("/incidents/assigned").Code)

	rec := postJSON(r, "/incidents/"+incident.ID.String()+"/respond", `{"action":"accept"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postJSON(r, "/incidents/"+incident.ID.String()+"/assign", `{}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
