// Package registry is the upstream store of attribute-type definitions.
// Event types and source types live in independent namespaces: an event
// type and a source type may share a name.
package registry

import (
	"context"

	"github.com/groundline-systems/sourcegate/internal/schema"
)

// EventType is a named attribute schema for events.
type EventType struct {
	Name            string                 `json:"name"`
	AttributeSchema schema.AttributeSchema `json:"attribute_schema"`
}

// SourceType is a named attribute schema for source headers.
type SourceType struct {
	Name            string                 `json:"name"`
	AttributeSchema schema.AttributeSchema `json:"attribute_schema"`
}

// Schemas is the result of a fetch: exactly the rows matching the
// requested names. Missing names are simply absent, never an error.
type Schemas struct {
	EventTypes  []EventType
	SourceTypes []SourceType
}

// Registry is the type store contract. RegisterTypes must be
// conflict-tolerant: registering an already-existing name is a no-op,
// never an error, so concurrent uploads discovering the same missing
// type cannot produce duplicate or conflicting rows.
type Registry interface {
	FetchAttributeSchemas(ctx context.Context, eventTypeNames []string, sourceTypeName string) (*Schemas, error)
	RegisterTypes(ctx context.Context, eventTypes []EventType, sourceTypes []SourceType) error
}
