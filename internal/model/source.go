// Package model defines the external source document shapes exchanged
// between the upload handlers, the validation pipeline, and storage.
package model

// Period is the time window a source claims to cover. Both bounds are
// timestamps in either calendar or day-of-year encoding on input, and in
// calendar form with a trailing "Z" once normalized.
type Period struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// Source is the container header of an external source document.
type Source struct {
	Key                 string         `json:"key"`
	SourceTypeName      string         `json:"source_type_name"`
	DerivationGroupName string         `json:"derivation_group_name,omitempty"`
	ValidAt             string         `json:"valid_at"`
	Period              Period         `json:"period"`
	Attributes          map[string]any `json:"attributes,omitempty"`
}

// Event is a dated, durationed sub-record of a source. Attributes are
// free-form and constrained only by the schema registered for
// EventTypeName. Event keys carry no uniqueness guarantee.
type Event struct {
	Key           string         `json:"key"`
	EventTypeName string         `json:"event_type_name"`
	StartTime     string         `json:"start_time"`
	Duration      string         `json:"duration"`
	Attributes    map[string]any `json:"attributes,omitempty"`
}

// SourceDocument is the unit of upload and validation.
type SourceDocument struct {
	Source Source  `json:"source"`
	Events []Event `json:"events"`
}

// EventTypeNames returns the distinct event type names referenced by the
// document, in first-appearance order.
func (d *SourceDocument) EventTypeNames() []string {
	seen := make(map[string]struct{}, len(d.Events))
	var names []string
	for _, e := range d.Events {
		if _, ok := seen[e.EventTypeName]; ok {
			continue
		}
		seen[e.EventTypeName] = struct{}{}
		names = append(names, e.EventTypeName)
	}
	return names
}

// Violation is one schema constraint failure, addressed by the document
// field that violated it.
type Violation struct {
	Field       string `json:"field"`
	Description string `json:"description"`
}
