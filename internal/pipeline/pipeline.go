// Package pipeline runs one external source document through temporal
// normalization, duration and window checks, type resolution and the
// composed-schema validation, in that order.
//
// Each run is self-contained: no state is shared between concurrent
// documents, and the only I/O is two registry round-trips (one fetch,
// one best-effort placeholder registration). Every failure is terminal
// for the document; callers that retry re-run the whole pipeline.
package pipeline

import (
	"context"
	"fmt"

	"github.com/groundline-systems/sourcegate/internal/metrics"
	"github.com/groundline-systems/sourcegate/internal/model"
	"github.com/groundline-systems/sourcegate/internal/registry"
	"github.com/groundline-systems/sourcegate/internal/schema"
	"github.com/groundline-systems/sourcegate/pkg/interval"
	"github.com/groundline-systems/sourcegate/pkg/timeutil"
)

// Pipeline validates and normalizes source documents against the type
// registry.
type Pipeline struct {
	registry registry.Registry
}

// New creates a pipeline backed by the given type registry.
func New(reg registry.Registry) *Pipeline {
	return &Pipeline{registry: reg}
}

// Process validates doc and returns it with all temporal fields
// normalized to calendar form with a trailing "Z", ready for
// persistence. The document is modified in place.
//
// Failures are typed (see the model error taxonomy) and perform no
// persistence side effects; the single side effect on success is the
// registration of placeholder schemas for types referenced without
// attributes.
func (p *Pipeline) Process(ctx context.Context, doc *model.SourceDocument) (*model.SourceDocument, error) {
	if err := p.normalizeTemporal(doc); err != nil {
		return nil, err
	}
	if err := p.checkDurations(doc); err != nil {
		return nil, err
	}
	if err := p.checkWindows(doc); err != nil {
		return nil, err
	}
	eventTypes, sourceTypes, err := p.resolveTypes(ctx, doc)
	if err != nil {
		return nil, err
	}

	validator, err := schema.Compose(eventTypes, sourceTypes)
	if err != nil {
		return nil, fmt.Errorf("compose validator for source %q: %w", doc.Source.Key, err)
	}
	violations, err := validator.Validate(doc)
	if err != nil {
		return nil, fmt.Errorf("validate source %q: %w", doc.Source.Key, err)
	}
	if len(violations) > 0 {
		return nil, &model.ValidationError{SourceKey: doc.Source.Key, Violations: violations}
	}
	return doc, nil
}

// normalizeTemporal rewrites the source-level temporal fields and every
// event start time to calendar form with the canonical "Z" suffix, and
// orders the period. Day-of-year encodings must not survive this stage:
// everything downstream, the document store included, sees calendar
// timestamps only.
func (p *Pipeline) normalizeTemporal(doc *model.SourceDocument) error {
	fields := []struct {
		name  string
		value *string
	}{
		{"source.period.start_time", &doc.Source.Period.StartTime},
		{"source.period.end_time", &doc.Source.Period.EndTime},
		{"source.valid_at", &doc.Source.ValidAt},
	}
	for _, f := range fields {
		normalized, err := timeutil.ToCalendar(*f.value)
		if err != nil {
			return &model.TemporalParseError{Field: f.name, Value: *f.value, Err: err}
		}
		*f.value = normalized
	}

	for i := range doc.Events {
		e := &doc.Events[i]
		normalized, err := timeutil.ToCalendar(e.StartTime)
		if err != nil {
			return &model.TemporalParseError{
				Field: fmt.Sprintf("events[%s].start_time", e.Key),
				Value: e.StartTime,
				Err:   err,
			}
		}
		e.StartTime = normalized
	}

	start, err := timeutil.EpochMillis(doc.Source.Period.StartTime)
	if err != nil {
		return &model.TemporalParseError{Field: "source.period.start_time", Value: doc.Source.Period.StartTime, Err: err}
	}
	end, err := timeutil.EpochMillis(doc.Source.Period.EndTime)
	if err != nil {
		return &model.TemporalParseError{Field: "source.period.end_time", Value: doc.Source.Period.EndTime, Err: err}
	}
	if start > end {
		return &model.PeriodOrderError{
			SourceKey: doc.Source.Key,
			StartTime: doc.Source.Period.StartTime,
			EndTime:   doc.Source.Period.EndTime,
		}
	}
	return nil
}

// checkDurations parses every event duration, failing on the first
// undecomposable literal. The whole document aborts: there is no
// partial success.
func (p *Pipeline) checkDurations(doc *model.SourceDocument) error {
	for _, e := range doc.Events {
		if _, err := interval.ParseMillis(e.Duration); err != nil {
			return &model.DurationFormatError{EventKey: e.Key, Value: e.Duration, Err: err}
		}
	}
	return nil
}

// checkWindows requires every event's [start, start+duration) window to
// sit inside the source period. Both sides of the comparison go through
// the same timeutil epoch conversion.
func (p *Pipeline) checkWindows(doc *model.SourceDocument) error {
	periodStart, err := timeutil.EpochMillis(doc.Source.Period.StartTime)
	if err != nil {
		return &model.TemporalParseError{Field: "source.period.start_time", Value: doc.Source.Period.StartTime, Err: err}
	}
	periodEnd, err := timeutil.EpochMillis(doc.Source.Period.EndTime)
	if err != nil {
		return &model.TemporalParseError{Field: "source.period.end_time", Value: doc.Source.Period.EndTime, Err: err}
	}

	for _, e := range doc.Events {
		start, err := timeutil.EpochMillis(e.StartTime)
		if err != nil {
			return &model.TemporalParseError{Field: fmt.Sprintf("events[%s].start_time", e.Key), Value: e.StartTime, Err: err}
		}
		durationMs, err := interval.ParseMillis(e.Duration)
		if err != nil {
			return &model.DurationFormatError{EventKey: e.Key, Value: e.Duration, Err: err}
		}
		end := start + durationMs
		if start < periodStart || end > periodEnd {
			return &model.EventOutOfBoundsError{
				EventKey:    e.Key,
				EventStart:  start,
				EventEnd:    end,
				PeriodStart: periodStart,
				PeriodEnd:   periodEnd,
			}
		}
	}
	return nil
}

// resolveTypes fetches the attribute schemas for every referenced type
// name in one round-trip, decides whether unknown names are acceptable,
// and registers placeholder schemas for the acceptable ones before
// composition. Unknown names are acceptable only when the referencing
// document part carries no attributes.
func (p *Pipeline) resolveTypes(ctx context.Context, doc *model.SourceDocument) (*schema.Definitions, *schema.Definitions, error) {
	names := doc.EventTypeNames()

	fetched, err := p.registry.FetchAttributeSchemas(ctx, names, doc.Source.SourceTypeName)
	if err != nil {
		return nil, nil, &model.RegistryUnavailableError{Op: "fetch", Err: err}
	}

	known := make(map[string]schema.AttributeSchema, len(fetched.EventTypes))
	for _, et := range fetched.EventTypes {
		known[et.Name] = et.AttributeSchema
	}

	var newEventTypes []registry.EventType
	var newSourceTypes []registry.SourceType

	sourceTypes := schema.NewDefinitions()
	if len(fetched.SourceTypes) > 0 {
		sourceTypes.Add(fetched.SourceTypes[0].Name, fetched.SourceTypes[0].AttributeSchema)
	} else {
		if len(doc.Source.Attributes) > 0 {
			return nil, nil, &model.UnknownTypeError{Kind: "source", Name: doc.Source.SourceTypeName}
		}
		placeholder := schema.EmptyObjectSchema()
		newSourceTypes = append(newSourceTypes, registry.SourceType{
			Name:            doc.Source.SourceTypeName,
			AttributeSchema: placeholder,
		})
		sourceTypes.Add(doc.Source.SourceTypeName, placeholder)
	}

	eventTypes := schema.NewDefinitions()
	for _, e := range doc.Events {
		if _, ok := known[e.EventTypeName]; ok {
			continue
		}
		if len(e.Attributes) > 0 {
			return nil, nil, &model.UnknownTypeError{Kind: "event", Name: e.EventTypeName}
		}
	}
	for _, name := range names {
		if s, ok := known[name]; ok {
			eventTypes.Add(name, s)
			continue
		}
		placeholder := schema.EmptyObjectSchema()
		newEventTypes = append(newEventTypes, registry.EventType{Name: name, AttributeSchema: placeholder})
		eventTypes.Add(name, placeholder)
	}

	// A document cannot be valid against types that don't durably
	// exist, so placeholder registration happens before validation and
	// a failure aborts the run.
	if len(newEventTypes) > 0 || len(newSourceTypes) > 0 {
		if err := p.registry.RegisterTypes(ctx, newEventTypes, newSourceTypes); err != nil {
			return nil, nil, &model.RegistryUnavailableError{Op: "register", Err: err}
		}
		metrics.PlaceholderTypesTotal.Add(float64(len(newEventTypes) + len(newSourceTypes)))
	}

	return eventTypes, sourceTypes, nil
}
