package registry

import (
	"context"
	"sync"

	"github.com/groundline-systems/sourcegate/internal/schema"
)

// MemoryRegistry is an in-process Registry with the same
// insert-or-ignore semantics as the Postgres implementation. Used in
// tests and local development.
type MemoryRegistry struct {
	mu          sync.Mutex
	eventTypes  map[string]schema.AttributeSchema
	sourceTypes map[string]schema.AttributeSchema

	// RegisterCalls counts RegisterTypes invocations.
	RegisterCalls int
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		eventTypes:  make(map[string]schema.AttributeSchema),
		sourceTypes: make(map[string]schema.AttributeSchema),
	}
}

func (r *MemoryRegistry) FetchAttributeSchemas(_ context.Context, eventTypeNames []string, sourceTypeName string) (*Schemas, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := &Schemas{}
	for _, name := range eventTypeNames {
		if s, ok := r.eventTypes[name]; ok {
			out.EventTypes = append(out.EventTypes, EventType{Name: name, AttributeSchema: s})
		}
	}
	if s, ok := r.sourceTypes[sourceTypeName]; ok {
		out.SourceTypes = append(out.SourceTypes, SourceType{Name: sourceTypeName, AttributeSchema: s})
	}
	return out, nil
}

func (r *MemoryRegistry) RegisterTypes(_ context.Context, eventTypes []EventType, sourceTypes []SourceType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.RegisterCalls++
	for _, et := range eventTypes {
		if _, exists := r.eventTypes[et.Name]; !exists {
			r.eventTypes[et.Name] = et.AttributeSchema
		}
	}
	for _, st := range sourceTypes {
		if _, exists := r.sourceTypes[st.Name]; !exists {
			r.sourceTypes[st.Name] = st.AttributeSchema
		}
	}
	return nil
}

// EventTypeCount reports how many event types are registered.
func (r *MemoryRegistry) EventTypeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.eventTypes)
}

// SourceTypeCount reports how many source types are registered.
func (r *MemoryRegistry) SourceTypeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sourceTypes)
}
