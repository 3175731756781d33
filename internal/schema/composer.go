package schema

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/groundline-systems/sourcegate/internal/model"
)

// ComposedValidator is the per-request artifact produced by Compose: a
// compiled validator closed over a schema assembled from exactly the
// type names one document references. It is never cached or shared
// across requests.
type ComposedValidator struct {
	// Document is the assembled schema, exposed for inspection.
	Document map[string]any

	compiled *gojsonschema.Schema
}

// Compose splices the given event-type and source-type attribute schemas
// into the base document schema and compiles the result.
//
// With a single event type the attribute schema is inlined directly and
// event_type_name pinned to a const; no dispatch structure is emitted.
// With several, a right-leaning if/then/else chain dispatches on
// event_type_name, referencing each type's schema once from a shared
// definitions table. The chain costs O(n) branch evaluations per event
// but stays within vanilla draft-07, with no engine-specific
// discriminated-union extensions.
func Compose(eventTypes, sourceTypes *Definitions) (*ComposedValidator, error) {
	if sourceTypes.Len() != 1 {
		return nil, fmt.Errorf("compose: expected exactly one source type, got %d", sourceTypes.Len())
	}
	sourceTypeName := sourceTypes.Names()[0]
	sourceTypeSchema, _ := sourceTypes.Get(sourceTypeName)

	doc := baseDocumentSchema()
	events := doc["properties"].(map[string]any)["events"].(map[string]any)
	items := events["items"].(map[string]any)
	source := doc["properties"].(map[string]any)["source"].(map[string]any)

	switch names := eventTypes.Names(); len(names) {
	case 0:
		// No events referenced: only the source attributes are constrained.
		source["properties"].(map[string]any)["attributes"] = withClosedAttributes(sourceTypeSchema)

	case 1:
		eventTypeSchema, _ := eventTypes.Get(names[0])
		itemProps := items["properties"].(map[string]any)
		itemProps["attributes"] = withClosedAttributes(eventTypeSchema)
		itemProps["event_type_name"] = map[string]any{"const": names[0]}
		source["properties"].(map[string]any)["attributes"] = withClosedAttributes(sourceTypeSchema)

	default:
		items["if"], items["then"], items["else"] = dispatchChain(names)

		eventDefs := make(map[string]any, len(names))
		for _, name := range names {
			s, _ := eventTypes.Get(name)
			eventDefs[name] = withClosedAttributes(s)
		}
		doc["definitions"] = map[string]any{
			"event_types": eventDefs,
			"source_type": map[string]any{
				sourceTypeName: withClosedAttributes(sourceTypeSchema),
			},
		}
		source["properties"].(map[string]any)["attributes"] = map[string]any{
			"$ref": "#/definitions/source_type/" + sourceTypeName,
		}
	}

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, &model.SchemaCompilationError{Err: err}
	}
	return &ComposedValidator{Document: doc, compiled: compiled}, nil
}

// dispatchChain builds the nested if/then/else tree for names[0..n-1].
// Every name but the last gets a conditional branch; the last is the
// unconditional tail.
func dispatchChain(names []string) (ifNode, thenNode, elseNode any) {
	last := names[len(names)-1]
	tail := map[string]any{
		"properties": map[string]any{
			"attributes": map[string]any{"$ref": "#/definitions/event_types/" + last},
		},
	}

	// Build from the tail outward so the chain leans right.
	node := tail
	for i := len(names) - 2; i >= 1; i-- {
		node = map[string]any{
			"if":   constClause(names[i]),
			"then": branchClause(names[i]),
			"else": node,
		}
	}
	return constClause(names[0]), branchClause(names[0]), node
}

func constClause(name string) map[string]any {
	return map[string]any{
		"properties": map[string]any{
			"event_type_name": map[string]any{"const": name},
		},
	}
}

func branchClause(name string) map[string]any {
	return map[string]any{
		"properties": map[string]any{
			"attributes": map[string]any{"$ref": "#/definitions/event_types/" + name},
		},
	}
}

// Validate runs the composed schema over a document. It reports every
// violated constraint, never just the first.
func (v *ComposedValidator) Validate(doc *model.SourceDocument) ([]model.Violation, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	result, err := v.compiled.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("run composed validator: %w", err)
	}
	return collectViolations(result), nil
}

func collectViolations(result *gojsonschema.Result) []model.Violation {
	if result.Valid() {
		return nil
	}
	violations := make([]model.Violation, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		violations = append(violations, model.Violation{
			Field:       e.Field(),
			Description: e.Description(),
		})
	}
	return violations
}
