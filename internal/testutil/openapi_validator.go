// Package testutil provides helpers for integration tests: containers, an
// HTTP client and OpenAPI contract checks.
package testutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
)

// Paths outside the documented JSON API.
var unvalidatedPaths = map[string]bool{
	"/healthz":          true,
	"/readyz":           true,
	"/api/openapi.yaml": true,
}

// OpenAPIValidator checks exchanges against an OpenAPI document.
type OpenAPIValidator struct {
	router routers.Router
}

// NewOpenAPIValidator creates a validator or fails the test.
func NewOpenAPIValidator(t *testing.T, spec []byte) *OpenAPIValidator {
	t.Helper()

	v, err := LoadOpenAPIValidator(spec)
	if err != nil {
		t.Fatalf("load OpenAPI validator: %v", err)
	}
	return v
}

// LoadOpenAPIValidator parses and validates an OpenAPI document.
// Use it from TestMain where no *testing.T exists.
func LoadOpenAPIValidator(spec []byte) (*OpenAPIValidator, error) {
	doc, err := openapi3.NewLoader().LoadFromData(spec)
	if err != nil {
		return nil, fmt.Errorf("load OpenAPI spec: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validate OpenAPI spec: %w", err)
	}

	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("create OpenAPI router: %w", err)
	}
	return &OpenAPIValidator{router: router}, nil
}

// Check validates resp against the documented response of req. Requests the
// server accepted (2xx) are validated too, so the document cannot be stricter
// than the server. resp.Body is restored after reading.
func (v *OpenAPIValidator) Check(req *http.Request, reqBody []byte, resp *http.Response) error {
	if unvalidatedPaths[req.URL.Path] {
		return nil
	}

	// Route on the bare path; the document declares no servers.
	routeReq, err := http.NewRequest(req.Method, req.URL.Path, nil)
	if err != nil {
		return fmt.Errorf("create route request: %w", err)
	}
	route, pathParams, err := v.router.FindRoute(routeReq)
	if err != nil {
		return fmt.Errorf("no documented route for %s %s: %w", req.Method, req.URL.Path, err)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))

	opts := &openapi3filter.Options{
		MultiError:            true,
		IncludeResponseStatus: true,
		AuthenticationFunc:    openapi3filter.NoopAuthenticationFunc,
	}

	// Work on a copy so the caller's request keeps its consumed body.
	checked := req.Clone(context.Background())
	checked.Body = io.NopCloser(bytes.NewReader(reqBody))

	input := &openapi3filter.RequestValidationInput{
		Request:    checked,
		PathParams: pathParams,
		Route:      route,
		Options:    opts,
	}

	var errs []error
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := openapi3filter.ValidateRequest(context.Background(), input); err != nil {
			errs = append(errs, fmt.Errorf("request: %w", err))
		}
	}

	if err := openapi3filter.ValidateResponse(context.Background(), &openapi3filter.ResponseValidationInput{
		RequestValidationInput: input,
		Status:                 resp.StatusCode,
		Header:                 resp.Header,
		Body:                   io.NopCloser(bytes.NewReader(body)),
		Options:                opts,
	}); err != nil {
		errs = append(errs, fmt.Errorf("response (status %d, body %s): %w", resp.StatusCode, truncate(body), err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("OpenAPI contract violated by %s %s: %w", req.Method, req.URL.Path, errors.Join(errs...))
	}
	return nil
}

// Validate reports a Check failure on t without stopping the test.
func (v *OpenAPIValidator) Validate(t *testing.T, req *http.Request, reqBody []byte, resp *http.Response) {
	t.Helper()
	if err := v.Check(req, reqBody, resp); err != nil {
		t.Error(err)
	}
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 300 {
		return s[:300] + "..."
	}
	return s
}
