package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/groundline-systems/sourcegate/internal/metrics"
	"github.com/groundline-systems/sourcegate/internal/registry"
	"github.com/groundline-systems/sourcegate/internal/schema"
	"github.com/groundline-systems/sourcegate/pkg/httputil"
	"github.com/groundline-systems/sourcegate/pkg/logging"
)

// TypesHandler accepts event and source type definition uploads.
type TypesHandler struct {
	registry registry.Registry
	logger   *logging.Logger
}

func NewTypesHandler(reg registry.Registry, logger *logging.Logger) *TypesHandler {
	return &TypesHandler{registry: reg, logger: logger}
}

type typesUploadResponse struct {
	EventTypes  []string `json:"event_types"`
	SourceTypes []string `json:"source_types"`
}

// Upload handles POST /api/v1/source-types. The body is a JSON object
// with "event_types" and/or "source_types" maps of name to attribute
// schema. Definitions are checked against the attribute metaschema
// before any registry write; names that already exist keep their stored
// schema.
func (h *TypesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "request body is not valid JSON: "+err.Error())
		return
	}

	violations, err := schema.ValidateTypeDefinitions(payload)
	if err != nil {
		h.logger.ErrorContext(ctx, "metaschema validation failed", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to validate type definitions")
		return
	}
	if len(violations) > 0 {
		httputil.WriteJSON(w, http.StatusUnprocessableEntity, validationFailureResponse{
			Error:      "type definitions do not satisfy the attribute metaschema",
			Violations: violations,
		})
		return
	}

	eventTypes := collectDefinitions(payload, "event_types")
	sourceTypes := collectDefinitions(payload, "source_types")

	regEvents := make([]registry.EventType, 0, len(eventTypes))
	eventNames := make([]string, 0, len(eventTypes))
	for name, attrs := range eventTypes {
		regEvents = append(regEvents, registry.EventType{Name: name, AttributeSchema: attrs})
		eventNames = append(eventNames, name)
	}
	regSources := make([]registry.SourceType, 0, len(sourceTypes))
	sourceNames := make([]string, 0, len(sourceTypes))
	for name, attrs := range sourceTypes {
		regSources = append(regSources, registry.SourceType{Name: name, AttributeSchema: attrs})
		sourceNames = append(sourceNames, name)
	}

	if err := h.registry.RegisterTypes(ctx, regEvents, regSources); err != nil {
		h.logger.ErrorContext(ctx, "failed to register types", "error", err)
		httputil.WriteError(w, http.StatusServiceUnavailable, "type registry unavailable")
		return
	}

	metrics.TypeDefinitionsTotal.WithLabelValues("event").Add(float64(len(regEvents)))
	metrics.TypeDefinitionsTotal.WithLabelValues("source").Add(float64(len(regSources)))
	h.logger.InfoContext(ctx, "type definitions registered",
		"event_types", len(regEvents),
		"source_types", len(regSources),
	)

	httputil.WriteJSON(w, http.StatusCreated, typesUploadResponse{
		EventTypes:  eventNames,
		SourceTypes: sourceNames,
	})
}

// collectDefinitions pulls one namespace's name-to-schema map out of an
// already metaschema-validated payload.
func collectDefinitions(payload map[string]any, key string) map[string]schema.AttributeSchema {
	out := map[string]schema.AttributeSchema{}
	raw, ok := payload[key].(map[string]any)
	if !ok {
		return out
	}
	for name, value := range raw {
		if attrs, ok := value.(map[string]any); ok {
			out[name] = attrs
		}
	}
	return out
}
