package registry

import (
	"context"
	"time"

	"github.com/groundline-systems/sourcegate/internal/metrics"
)

// Instrumented wraps a Registry and records round-trip durations.
type Instrumented struct {
	inner Registry
}

func NewInstrumented(inner Registry) *Instrumented {
	return &Instrumented{inner: inner}
}

func (r *Instrumented) FetchAttributeSchemas(ctx context.Context, eventTypeNames []string, sourceTypeName string) (*Schemas, error) {
	started := time.Now()
	out, err := r.inner.FetchAttributeSchemas(ctx, eventTypeNames, sourceTypeName)
	metrics.RegistryDuration.WithLabelValues("fetch").Observe(time.Since(started).Seconds())
	return out, err
}

func (r *Instrumented) RegisterTypes(ctx context.Context, eventTypes []EventType, sourceTypes []SourceType) error {
	started := time.Now()
	err := r.inner.RegisterTypes(ctx, eventTypes, sourceTypes)
	metrics.RegistryDuration.WithLabelValues("register").Observe(time.Since(started).Seconds())
	return err
}
