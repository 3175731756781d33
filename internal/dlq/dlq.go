// Package dlq records source documents that failed validation or
// persistence, so operators can inspect and replay them.
package dlq

import (
	"context"
	"time"

	"github.com/groundline-systems/sourcegate/internal/model"
)

// RejectedDocument is one dead-lettered upload.
type RejectedDocument struct {
	Timestamp time.Time             `json:"timestamp"`
	Reason    string                `json:"reason"`
	Error     string                `json:"error"`
	Document  *model.SourceDocument `json:"document,omitempty"`
	// Violations is populated for schema-validation rejections.
	Violations []model.Violation `json:"violations,omitempty"`
}

// Writer records rejected documents.
type Writer interface {
	Write(ctx context.Context, doc *model.SourceDocument, cause error, reason string) error
}

// NoOpWriter discards rejections; used when the DLQ is disabled.
type NoOpWriter struct{}

func (NoOpWriter) Write(context.Context, *model.SourceDocument, error, string) error {
	return nil
}
