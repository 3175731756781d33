package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundline-systems/sourcegate/internal/registry"
	"github.com/groundline-systems/sourcegate/pkg/logging"
)

func typesRequest(t *testing.T, payload any) *http.Request {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", "/api/v1/source-types", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestTypesUploadRegistersDefinitions(t *testing.T) {
	reg := registry.NewMemoryRegistry()
	h := NewTypesHandler(reg, logging.Default())

	payload := map[string]any{
		"event_types": map[string]any{
			"GroundContact": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"station": map[string]any{"type": "string"},
				},
				"required": []any{"station"},
			},
			"Maneuver": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"delta_v": map[string]any{"type": "number"},
				},
				"required": []any{"delta_v"},
			},
		},
		"source_types": map[string]any{
			"Contact Plan": map[string]any{
				"type":       "object",
				"properties": map[string]any{},
				"required":   []any{},
			},
		},
	}

	rec := httptest.NewRecorder()
	h.Upload(rec, typesRequest(t, payload))

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp typesUploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.ElementsMatch(t, []string{"GroundContact", "Maneuver"}, resp.EventTypes)
	assert.ElementsMatch(t, []string{"Contact Plan"}, resp.SourceTypes)

	assert.Equal(t, 2, reg.EventTypeCount())
	assert.Equal(t, 1, reg.SourceTypeCount())
}

func TestTypesUploadRejectsInvalidJSON(t *testing.T) {
	h := NewTypesHandler(registry.NewMemoryRegistry(), logging.Default())

	req := httptest.NewRequest("POST", "/api/v1/source-types", bytes.NewReader([]byte("{")))
	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTypesUploadRejectsMetaschemaViolations(t *testing.T) {
	reg := registry.NewMemoryRegistry()
	h := NewTypesHandler(reg, logging.Default())

	payload := map[string]any{
		"event_types": map[string]any{
			"GroundContact": map[string]any{
				"type": "object",
				// missing properties and required
			},
		},
	}

	rec := httptest.NewRecorder()
	h.Upload(rec, typesRequest(t, payload))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp validationFailureResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Violations)

	// Nothing reaches the registry on a rejected upload.
	assert.Equal(t, 0, reg.EventTypeCount())
	assert.Equal(t, 0, reg.RegisterCalls)
}

func TestTypesUploadRejectsEmptyPayload(t *testing.T) {
	h := NewTypesHandler(registry.NewMemoryRegistry(), logging.Default())

	rec := httptest.NewRecorder()
	h.Upload(rec, typesRequest(t, map[string]any{}))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	h := NewHealthHandler(nil)

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest("GET", "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest("GET", "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
