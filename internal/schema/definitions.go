package schema

// AttributeSchema is a JSON-Schema-shaped constraint on a type's
// free-form attributes object.
type AttributeSchema map[string]any

// EmptyObjectSchema is the placeholder registered for types referenced
// without any attribute payload.
func EmptyObjectSchema() AttributeSchema {
	return AttributeSchema{
		"type":       "object",
		"properties": map[string]any{},
		"required":   []any{},
	}
}

// Definitions is an ordered name→schema association. Iteration order is
// insertion order: deterministic for one composed artifact, but carries
// no meaning and is not stable across pipeline runs, so nothing may
// depend on it semantically.
type Definitions struct {
	names  []string
	byName map[string]AttributeSchema
}

// NewDefinitions returns an empty association.
func NewDefinitions() *Definitions {
	return &Definitions{byName: make(map[string]AttributeSchema)}
}

// Add inserts or replaces the schema for name, preserving the position
// of an existing entry.
func (d *Definitions) Add(name string, s AttributeSchema) {
	if _, ok := d.byName[name]; !ok {
		d.names = append(d.names, name)
	}
	d.byName[name] = s
}

// Get returns the schema for name.
func (d *Definitions) Get(name string) (AttributeSchema, bool) {
	s, ok := d.byName[name]
	return s, ok
}

// Names returns the names in insertion order.
func (d *Definitions) Names() []string {
	return append([]string(nil), d.names...)
}

// Len returns the number of entries.
func (d *Definitions) Len() int {
	return len(d.names)
}

// withClosedAttributes copies s and forbids undeclared attribute keys.
func withClosedAttributes(s AttributeSchema) map[string]any {
	closed := make(map[string]any, len(s)+1)
	for k, v := range s {
		closed[k] = v
	}
	closed["additionalProperties"] = false
	return closed
}
