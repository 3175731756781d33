package model

import (
	"fmt"
	"strings"
)

// The validation error taxonomy. Every failure is terminal for the
// current document: the pipeline never retries, and a caller that does
// must re-run the whole pipeline. Each type carries enough context to
// render a precise user-facing message.

// TemporalParseError reports a source-level temporal field that matched
// neither timestamp grammar.
type TemporalParseError struct {
	Field string
	Value string
	Err   error
}

func (e *TemporalParseError) Error() string {
	return fmt.Sprintf("cannot parse %s value %q", e.Field, e.Value)
}

func (e *TemporalParseError) Unwrap() error { return e.Err }

// DurationFormatError reports an event whose duration literal cannot be
// decomposed.
type DurationFormatError struct {
	EventKey string
	Value    string
	Err      error
}

func (e *DurationFormatError) Error() string {
	return fmt.Sprintf("event %q duration %q has invalid format", e.EventKey, e.Value)
}

func (e *DurationFormatError) Unwrap() error { return e.Err }

// PeriodOrderError reports a source whose period starts after it ends.
type PeriodOrderError struct {
	SourceKey string
	StartTime string
	EndTime   string
}

func (e *PeriodOrderError) Error() string {
	return fmt.Sprintf("source %q period start %s is after end %s", e.SourceKey, e.StartTime, e.EndTime)
}

// EventOutOfBoundsError reports an event whose occupancy window escapes
// the source's declared period. All values are epoch milliseconds.
type EventOutOfBoundsError struct {
	EventKey    string
	EventStart  int64
	EventEnd    int64
	PeriodStart int64
	PeriodEnd   int64
}

func (e *EventOutOfBoundsError) Error() string {
	return fmt.Sprintf("event %q occupies [%d, %d), not contained in source period [%d, %d]",
		e.EventKey, e.EventStart, e.EventEnd, e.PeriodStart, e.PeriodEnd)
}

// UnknownTypeError reports a referenced type name absent from the
// registry on a source or event that carries attributes. Types without
// attributes are auto-registered instead.
type UnknownTypeError struct {
	// Kind is "event" or "source".
	Kind string
	Name string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("%s type %q does not exist in the registry and the %s carries attributes",
		e.Kind, e.Name, e.Kind)
}

// SchemaCompilationError reports a composed schema the engine rejected.
// This signals corrupt attribute schemas in the registry, not a bad
// document.
type SchemaCompilationError struct {
	Err error
}

func (e *SchemaCompilationError) Error() string {
	return fmt.Sprintf("composed schema does not compile: %v", e.Err)
}

func (e *SchemaCompilationError) Unwrap() error { return e.Err }

// ValidationError carries the full ordered violation list from a failed
// composed-schema run.
type ValidationError struct {
	SourceKey  string
	Violations []Violation
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "source %q failed validation with %d violation(s)", e.SourceKey, len(e.Violations))
	for _, v := range e.Violations {
		fmt.Fprintf(&b, "; %s: %s", v.Field, v.Description)
	}
	return b.String()
}

// RegistryUnavailableError reports an I/O failure against the type
// registry during fetch or placeholder registration.
type RegistryUnavailableError struct {
	Op  string
	Err error
}

func (e *RegistryUnavailableError) Error() string {
	return fmt.Sprintf("type registry unavailable during %s: %v", e.Op, e.Err)
}

func (e *RegistryUnavailableError) Unwrap() error { return e.Err }
