//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bissquit/timesheet/internal/domain"
	"github.com/bissquit/timesheet/internal/testutil"
)

// createTestUser creates a user with a unique username and returns its ID.
func createTestUser(t *testing.T, client *testutil.Client, name string, role domain.Role) string {
	t.Helper()

	resp, err := client.POST("/api/v1/users", map[string]string{
		"username": testutil.RandomName("user"),
		"name":     name,
		"role":     string(role),
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	return decodeID(t, resp)
}

type projectOption func(map[string]interface{})

func withPriority() projectOption {
	return func(m map[string]interface{}) { m["is_priority"] = true }
}

func withStatus(status string) projectOption {
	return func(m map[string]interface{}) { m["status"] = status }
}

func withManager(managerID string) projectOption {
	return func(m map[string]interface{}) { m["manager_id"] = managerID }
}

// createTestProject creates a project running through 2024 and returns its ID.
func createTestProject(t *testing.T, client *testutil.Client, name string, opts ...projectOption) string {
	t.Helper()

	payload := map[string]interface{}{
		"name":       name,
		"start_date": "2024-01-01",
		"end_date":   "2024-12-31",
	}
	for _, opt := range opts {
		opt(payload)
	}

	resp, err := client.POST("/api/v1/projects", payload)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	return decodeID(t, resp)
}

// logTime posts a time entry and returns the raw response.
func logTime(t *testing.T, client *testutil.Client, userID, projectID, date string, hours float64) *http.Response {
	t.Helper()

	resp, err := client.POST("/api/v1/time-entries", map[string]interface{}{
		"user_id":    userID,
		"project_id": projectID,
		"date":       date,
		"hours":      hours,
	})
	require.NoError(t, err)
	return resp
}

// mustLogTime posts a time entry, expects 201 and returns the entry ID.
func mustLogTime(t *testing.T, client *testutil.Client, userID, projectID, date string, hours float64) string {
	t.Helper()

	resp := logTime(t, client, userID, projectID, date, hours)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("log time: status=%d body=%s", resp.StatusCode, testutil.ReadBody(t, resp))
	}
	return decodeID(t, resp)
}

func decodeID(t *testing.T, resp *http.Response) string {
	t.Helper()

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	require.NotEmpty(t, result.Data.ID)
	return result.Data.ID
}

type hoursResult struct {
	Data struct {
		Hours float64 `json:"hours"`
	} `json:"data"`
}

func getHours(t *testing.T, client *testutil.Client, path string) float64 {
	t.Helper()

	resp, err := client.GET(path)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result hoursResult
	testutil.DecodeJSON(t, resp, &result)
	return result.Data.Hours
}
