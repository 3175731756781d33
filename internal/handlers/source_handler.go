// Package handlers exposes the gateway's HTTP surface: source document
// uploads, type definition uploads and health probes.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/groundline-systems/sourcegate/internal/dlq"
	"github.com/groundline-systems/sourcegate/internal/metrics"
	"github.com/groundline-systems/sourcegate/internal/model"
	"github.com/groundline-systems/sourcegate/internal/storage"
	"github.com/groundline-systems/sourcegate/pkg/httputil"
	"github.com/groundline-systems/sourcegate/pkg/logging"
)

// Processor runs one document through the validation pipeline.
type Processor interface {
	Process(ctx context.Context, doc *model.SourceDocument) (*model.SourceDocument, error)
}

// DocumentWriter persists validated documents.
type DocumentWriter interface {
	CreateSource(ctx context.Context, doc *model.SourceDocument) error
}

// SourceHandler accepts external source uploads.
type SourceHandler struct {
	pipeline      Processor
	store         DocumentWriter
	deadLetters   dlq.Writer
	logger        *logging.Logger
	maxUploadSize int64
}

func NewSourceHandler(pipeline Processor, store DocumentWriter, deadLetters dlq.Writer, logger *logging.Logger, maxUploadSize int64) *SourceHandler {
	return &SourceHandler{
		pipeline:      pipeline,
		store:         store,
		deadLetters:   deadLetters,
		logger:        logger,
		maxUploadSize: maxUploadSize,
	}
}

type uploadResponse struct {
	Key                 string `json:"key"`
	SourceTypeName      string `json:"source_type_name"`
	DerivationGroupName string `json:"derivation_group_name"`
	StartTime           string `json:"start_time"`
	EndTime             string `json:"end_time"`
	ValidAt             string `json:"valid_at"`
	EventCount          int    `json:"event_count"`
}

type validationFailureResponse struct {
	Error      string            `json:"error"`
	Violations []model.Violation `json:"violations,omitempty"`
}

// Upload handles POST /api/v1/sources. The document arrives as a
// multipart upload under the "source_file" part; an optional
// "derivation_group_name" form field overrides the default group.
func (h *SourceHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("source_file")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "missing source_file part")
		return
	}
	defer file.Close()

	var doc model.SourceDocument
	if err := json.NewDecoder(file).Decode(&doc); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "source_file is not valid JSON: "+err.Error())
		return
	}

	if group := r.FormValue("derivation_group_name"); group != "" {
		doc.Source.DerivationGroupName = group
	}
	if doc.Source.DerivationGroupName == "" {
		doc.Source.DerivationGroupName = doc.Source.SourceTypeName + " Default"
	}

	h.logger.InfoContext(ctx, "source upload received",
		"file", header.Filename,
		"source_key", doc.Source.Key,
		"source_type", doc.Source.SourceTypeName,
		"derivation_group", doc.Source.DerivationGroupName,
		"events", len(doc.Events),
	)

	started := time.Now()
	validated, err := h.pipeline.Process(ctx, &doc)
	metrics.ValidationDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		h.rejectDocument(ctx, w, &doc, err)
		return
	}

	if err := h.store.CreateSource(ctx, validated); err != nil {
		if errors.Is(err, storage.ErrSourceExists) {
			metrics.DocumentsTotal.WithLabelValues("duplicate").Inc()
			httputil.WriteError(w, http.StatusConflict, err.Error())
			return
		}
		metrics.DocumentsTotal.WithLabelValues("storage_error").Inc()
		h.logger.ErrorContext(ctx, "failed to persist source", "source_key", validated.Source.Key, "error", err)
		if dlqErr := h.deadLetters.Write(ctx, validated, err, "persistence"); dlqErr != nil {
			h.logger.ErrorContext(ctx, "failed to dead-letter document", "error", dlqErr)
		}
		httputil.WriteError(w, http.StatusInternalServerError, "failed to persist source")
		return
	}

	metrics.DocumentsTotal.WithLabelValues("accepted").Inc()
	metrics.DocumentEventsTotal.Add(float64(len(validated.Events)))

	httputil.WriteJSON(w, http.StatusCreated, uploadResponse{
		Key:                 validated.Source.Key,
		SourceTypeName:      validated.Source.SourceTypeName,
		DerivationGroupName: validated.Source.DerivationGroupName,
		StartTime:           validated.Source.Period.StartTime,
		EndTime:             validated.Source.Period.EndTime,
		ValidAt:             validated.Source.ValidAt,
		EventCount:          len(validated.Events),
	})
}

// rejectDocument maps pipeline failures onto HTTP statuses, dead-letters
// the document and counts the outcome.
func (h *SourceHandler) rejectDocument(ctx context.Context, w http.ResponseWriter, doc *model.SourceDocument, cause error) {
	var (
		status  int
		outcome string
		reason  string
	)

	var validationErr *model.ValidationError
	var registryErr *model.RegistryUnavailableError
	switch {
	case errors.As(cause, &validationErr):
		status, outcome, reason = http.StatusUnprocessableEntity, "rejected", "validation"
	case errors.As(cause, &registryErr):
		status, outcome, reason = http.StatusServiceUnavailable, "registry_error", "registry"
	default:
		status, outcome, reason = http.StatusBadRequest, "rejected", "malformed"
	}

	metrics.DocumentsTotal.WithLabelValues(outcome).Inc()
	h.logger.WarnContext(ctx, "source document rejected",
		"source_key", doc.Source.Key,
		"reason", reason,
		"error", cause,
	)

	if err := h.deadLetters.Write(ctx, doc, cause, reason); err != nil {
		h.logger.ErrorContext(ctx, "failed to dead-letter document", "error", err)
	}

	resp := validationFailureResponse{Error: cause.Error()}
	if validationErr != nil {
		resp.Violations = validationErr.Violations
	}
	httputil.WriteJSON(w, status, resp)
}
