package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventTypeNamesDeduplicatesInOrder(t *testing.T) {
	doc := &SourceDocument{
		Events: []Event{
			{Key: "a", EventTypeName: "GroundContact"},
			{Key: "b", EventTypeName: "Maneuver"},
			{Key: "c", EventTypeName: "GroundContact"},
			{Key: "d", EventTypeName: "Eclipse"},
			{Key: "e", EventTypeName: "Maneuver"},
		},
	}

	assert.Equal(t, []string{"GroundContact", "Maneuver", "Eclipse"}, doc.EventTypeNames())
}

func TestEventTypeNamesEmptyDocument(t *testing.T) {
	doc := &SourceDocument{}
	assert.Empty(t, doc.EventTypeNames())
}

func TestErrorUnwrapping(t *testing.T) {
	inner := errors.New("boom")

	tests := []struct {
		name string
		err  error
	}{
		{"temporal", &TemporalParseError{Field: "f", Value: "v", Err: inner}},
		{"duration", &DurationFormatError{EventKey: "k", Value: "v", Err: inner}},
		{"compilation", &SchemaCompilationError{Err: inner}},
		{"registry", &RegistryUnavailableError{Op: "fetch", Err: inner}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, inner)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestValidationErrorMessageListsViolations(t *testing.T) {
	err := &ValidationError{
		SourceKey: "plan.json",
		Violations: []Violation{
			{Field: "events.0.attributes", Description: "station is required"},
			{Field: "source.attributes", Description: "additional property not allowed"},
		},
	}

	msg := err.Error()
	assert.Contains(t, msg, "plan.json")
	assert.Contains(t, msg, "2 violation(s)")
	assert.Contains(t, msg, "station is required")
}
