//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/emberwatch/firedispatch/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	email := fmt.Sprintf("dupe-%d@example.com", uniqueSuffix())
	body := map[string]any{
		"name":      fmt.Sprintf("Duplicate Station %d", uniqueSuffix()),
		"email":     email,
		"password":  "integration-test-pass",
		"latitude":  51.5,
		"longitude": 179.5,
	}

	client := newTestClient()
	resp, err := client.POST("/api/v1/auth/register", body)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, testutil.ReadBody(t, resp))
	resp.Body.Close()

	resp, err = client.POST("/api/v1/auth/register", body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	lat, lon := region()
	dept := registerDepartment(t, "Login Station", lat, lon)

	client := newTestClient()
	resp, err := client.POST("/api/v1/auth/login", map[string]string{
		"email":    dept.Email,
		"password": "wrong-password",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp, err = client.POST("/api/v1/auth/login", map[string]string{
		"email":    fmt.Sprintf("nobody-%d@example.com", uniqueSuffix()),
		"password": "whatever-pass",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	client := newTestClient()

	for _, path := range []string{
		"/api/v1/incidents",
		"/api/v1/incidents/pending",
		"/api/v1/firefighters",
	} {
		resp, err := client.GET(path)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
		resp.Body.Close()
	}
}

func TestDepartmentDirectoryIsPublic(t *testing.T) {
	lat, lon := region()
	dept := registerDepartment(t, "Public Station", lat, lon)

	client := newTestClient()
	resp, err := client.GET("/api/v1/departments/" + dept.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, testutil.ReadBody(t, resp))

	var envelope struct {
		Data departmentJSON `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &envelope)
	assert.Equal(t, dept.ID, envelope.Data.ID)
	assert.NotEmpty(t, envelope.Data.Slug)

	// Slug lookup resolves to the same department.
	resp, err = client.GET("/api/v1/departments/" + envelope.Data.Slug)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, testutil.ReadBody(t, resp))
	testutil.DecodeJSON(t, resp, &envelope)
	assert.Equal(t, dept.ID, envelope.Data.ID)
}

func TestUpdateOwnDepartment(t *testing.T) {
	lat, lon := region()
	dept := registerDepartment(t, "Patch Station", lat, lon)

	resp, err := dept.Client.PATCH("/api/v1/departments/me", map[string]any{
		"phone":       "+49 30 1234567",
		"webhook_url": "https://hooks.example.com/fire",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, testutil.ReadBody(t, resp))

	var envelope struct {
		Data struct {
			departmentJSON
			Phone      string `json:"phone"`
			WebhookURL string `json:"webhook_url"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &envelope)
	assert.Equal(t, "+49 30 1234567", envelope.Data.Phone)
	assert.Equal(t, "https://hooks.example.com/fire", envelope.Data.WebhookURL)
}
