// Package schema assembles and runs the per-document validators for
// external source uploads. The document shape is fixed; the attribute
// sub-schemas are spliced in at request time from the type registry, so
// every upload gets a validator composed for exactly the set of type
// names it references.
package schema

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/groundline-systems/sourcegate/internal/model"
)

const timestampPattern = `^\d{4}-[0-3][0-9]-[0-9][0-9]T[0-2][0-9]:[0-5][0-9]:[0-5][0-9](\.\d{1,6})?(Z|(\+|-)[0-1][0-9]:[0-5][0-9])$`

// baseDocumentSchema returns a fresh copy of the document shape every
// composed validator starts from. A new value per call keeps composition
// free of shared mutable state.
func baseDocumentSchema() map[string]any {
	timestamp := func() map[string]any {
		return map[string]any{"type": "string", "pattern": timestampPattern}
	}
	return map[string]any{
		"$schema":              "http://json-schema.org/draft-07/schema",
		"title":                "ExternalSourceDocument",
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"source", "events"},
		"properties": map[string]any{
			"events": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []any{"duration", "event_type_name", "key", "start_time"},
					"properties": map[string]any{
						"attributes":      map[string]any{"type": "object"},
						"duration":        map[string]any{"type": "string"},
						"event_type_name": map[string]any{"type": "string"},
						"key":             map[string]any{"type": "string"},
						"start_time":      map[string]any{"type": "string"},
					},
				},
			},
			"source": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []any{"key", "source_type_name", "valid_at", "period"},
				"properties": map[string]any{
					"attributes":            map[string]any{"type": "object"},
					"derivation_group_name": map[string]any{"type": "string"},
					"key":                   map[string]any{"type": "string"},
					"source_type_name":      map[string]any{"type": "string"},
					"valid_at":              timestamp(),
					"period": map[string]any{
						"type":                 "object",
						"additionalProperties": false,
						"required":             []any{"start_time", "end_time"},
						"properties": map[string]any{
							"start_time": timestamp(),
							"end_time":   timestamp(),
						},
					},
				},
			},
		},
	}
}

// attributeMetaschema is the one-level contract every uploaded type
// definition must satisfy: each entry is itself an object schema carrying
// type, properties and required. It deliberately does not recurse into
// the full JSON-Schema grammar.
var attributeMetaschema = map[string]any{
	"$schema":              "http://json-schema.org/draft-07/schema",
	"title":                "TypeDefinitionsUpload",
	"type":                 "object",
	"additionalProperties": false,
	"anyOf": []any{
		map[string]any{"required": []any{"event_types"}},
		map[string]any{"required": []any{"source_types"}},
	},
	"properties": map[string]any{
		"event_types":  map[string]any{"$ref": "#/definitions/attributeSchemaMap"},
		"source_types": map[string]any{"$ref": "#/definitions/attributeSchemaMap"},
	},
	"definitions": map[string]any{
		"attributeSchemaMap": map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"patternProperties": map[string]any{
				"^.*$": map[string]any{
					"type":     "object",
					"required": []any{"required", "properties", "type"},
					"properties": map[string]any{
						"type": map[string]any{"type": "string"},
						"properties": map[string]any{
							"type":                 "object",
							"additionalProperties": true,
						},
						"required": map[string]any{
							"type":  "array",
							"items": map[string]any{"type": "string"},
						},
					},
				},
			},
		},
	},
}

// compiledMetaschema is a process-wide read-only constant, compiled once
// at start-up. Per-request composed validators are never cached this way.
var compiledMetaschema = mustCompile(attributeMetaschema)

func mustCompile(doc map[string]any) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc))
	if err != nil {
		panic(fmt.Sprintf("schema: metaschema does not compile: %v", err))
	}
	return s
}

// ValidateTypeDefinitions checks an uploaded type-definition payload
// against the attribute metaschema before anything reaches the registry.
func ValidateTypeDefinitions(payload map[string]any) ([]model.Violation, error) {
	result, err := compiledMetaschema.Validate(gojsonschema.NewGoLoader(payload))
	if err != nil {
		return nil, fmt.Errorf("metaschema validation: %w", err)
	}
	return collectViolations(result), nil
}
