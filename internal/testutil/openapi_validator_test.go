package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bissquit/timesheet/api/openapi"
)

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestOpenAPIValidator_Check(t *testing.T) {
	v := NewOpenAPIValidator(t, openapi.Spec)

	tests := []struct {
		name    string
		path    string
		resp    *http.Response
		wantErr bool
	}{
		{"documented response", "/version", jsonResponse(200, `{"version":"1.0.0","commit":"abc","build_date":"today"}`), false},
		{"missing field", "/version", jsonResponse(200, `{"version":"1.0.0"}`), true},
		{"undocumented path", "/nope", jsonResponse(200, `{}`), true},
		{"probe is skipped", "/healthz", jsonResponse(200, `OK`), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "http://localhost"+tt.path, nil)
			err := v.Check(req, nil, tt.resp)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestOpenAPIValidator_RestoresBody(t *testing.T) {
	v := NewOpenAPIValidator(t, openapi.Spec)
	body := `{"version":"1.0.0","commit":"abc","build_date":"today"}`
	resp := jsonResponse(200, body)

	require.NoError(t, v.Check(httptest.NewRequest(http.MethodGet, "/version", nil), nil, resp))

	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, body, string(got))
}
