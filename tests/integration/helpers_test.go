//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/emberwatch/firedispatch/internal/testutil"
	"github.com/stretchr/testify/require"
)

var uniqueCounter atomic.Int64

// uniqueSuffix keeps registered names and emails from colliding across
// tests sharing one database.
func uniqueSuffix() int64 {
	return uniqueCounter.Add(1)
}

type departmentJSON struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Slug      string  `json:"slug"`
	Email     string  `json:"email"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type incidentJSON struct {
	ID                  string `json:"id"`
	AlertType           string `json:"alert_type"`
	Status              string `json:"status"`
	RequestedDepartment string `json:"requested_department"`
	AssignedDepartment  string `json:"assigned_department"`
	Candidates          []struct {
		DepartmentID string  `json:"department_id"`
		DistanceKM   float64 `json:"distance_km"`
	} `json:"candidates"`
	RejectionHistory []struct {
		DepartmentID string `json:"department_id"`
		Reason       string `json:"reason"`
	} `json:"rejection_history"`
	CrewIDs             []string `json:"crew_ids"`
	LeaderID            string   `json:"leader_id"`
	CompletionNotes     string   `json:"completion_notes"`
	ResponseTimeSeconds *int     `json:"response_time_seconds"`
}

type firefighterJSON struct {
	ID           string `json:"id"`
	DepartmentID string `json:"department_id"`
	Name         string `json:"name"`
	Status       string `json:"status"`
	IncidentID   string `json:"incident_id"`
}

// testDepartment is a registered department with a logged-in client.
type testDepartment struct {
	departmentJSON
	Client   *testutil.Client
	Password string
}

// registerDepartment creates an account at the given coordinates and logs
// its client in.
func registerDepartment(t *testing.T, name string, lat, lon float64) *testDepartment {
	t.Helper()

	n := uniqueSuffix()
	email := fmt.Sprintf("station-%d@example.com", n)
	password := "integration-test-pass"

	client := newTestClient()
	resp, err := client.POST("/api/v1/auth/register", map[string]any{
		"name":      fmt.Sprintf("%s %d", name, n),
		"email":     email,
		"password":  password,
		"latitude":  lat,
		"longitude": lon,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, testutil.ReadBody(t, resp))

	var envelope struct {
		Data departmentJSON `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &envelope)

	client.LoginAs(t, email, password)
	return &testDepartment{
		departmentJSON: envelope.Data,
		Client:         client,
		Password:       password,
	}
}

// ingestAlert posts a device alert and returns the created incident.
func ingestAlert(t *testing.T, lat, lon float64) incidentJSON {
	t.Helper()

	resp, err := newTestClient().POST("/api/v1/alerts", map[string]any{
		"alert_type": "fire",
		"location":   "integration test site",
		"latitude":   lat,
		"longitude":  lon,
		"confidence": 0.95,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, testutil.ReadBody(t, resp))

	var envelope struct {
		Data incidentJSON `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &envelope)
	return envelope.Data
}

// respond posts an accept/reject for the department and returns status code
// plus the incident on success.
func respond(t *testing.T, dept *testDepartment, incidentID, action, notes string) (int, incidentJSON) {
	t.Helper()

	resp, err := dept.Client.POST("/api/v1/incidents/"+incidentID+"/respond", map[string]string{
		"action": action,
		"notes":  notes,
	})
	require.NoError(t, err)

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return resp.StatusCode, incidentJSON{}
	}
	var envelope struct {
		Data incidentJSON `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &envelope)
	return http.StatusOK, envelope.Data
}

// createFirefighter registers a unit for the department.
func createFirefighter(t *testing.T, dept *testDepartment, name string) firefighterJSON {
	t.Helper()

	resp, err := dept.Client.POST("/api/v1/firefighters", map[string]any{
		"name": fmt.Sprintf("%s %d", name, uniqueSuffix()),
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, testutil.ReadBody(t, resp))

	var envelope struct {
		Data firefighterJSON `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &envelope)
	return envelope.Data
}

// listIncidents fetches an incident collection endpoint through the
// department's client.
func listIncidents(t *testing.T, dept *testDepartment, path string) []incidentJSON {
	t.Helper()

	resp, err := dept.Client.GET(path)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, testutil.ReadBody(t, resp))

	var envelope struct {
		Data []incidentJSON `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &envelope)
	return envelope.Data
}

// getIncident fetches an incident through the department's client.
func getIncident(t *testing.T, dept *testDepartment, incidentID string) incidentJSON {
	t.Helper()

	resp, err := dept.Client.GET("/api/v1/incidents/" + incidentID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, testutil.ReadBody(t, resp))

	var envelope struct {
		Data incidentJSON `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &envelope)
	return envelope.Data
}
