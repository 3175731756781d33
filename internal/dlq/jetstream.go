package dlq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/groundline-systems/sourcegate/internal/model"
)

const (
	streamName    = "SOURCEGATE_DLQ"
	subjectPrefix = "sourcegate.dlq."
)

// JetStreamQueue writes rejected documents to NATS JetStream. Safe for
// use across multiple gateway instances.
type JetStreamQueue struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	stream  jetstream.Stream
	written uint64
}

// NewJetStreamQueue connects to NATS and ensures the DLQ stream exists.
func NewJetStreamQueue(ctx context.Context, natsURL string) (*JetStreamQueue, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      streamName,
		Subjects:  []string{subjectPrefix + ">"},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Storage:   jetstream.FileStorage,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create dlq stream: %w", err)
	}

	return &JetStreamQueue{conn: conn, js: js, stream: stream}, nil
}

// Write publishes one rejection under sourcegate.dlq.<reason>.
func (q *JetStreamQueue) Write(ctx context.Context, doc *model.SourceDocument, cause error, reason string) error {
	rejected := RejectedDocument{
		Timestamp: time.Now().UTC(),
		Reason:    reason,
		Error:     cause.Error(),
		Document:  doc,
	}
	var vErr *model.ValidationError
	if errors.As(cause, &vErr) {
		rejected.Violations = vErr.Violations
	}

	data, err := json.Marshal(rejected)
	if err != nil {
		return fmt.Errorf("marshal dlq entry: %w", err)
	}

	if _, err := q.js.Publish(ctx, subjectPrefix+reason, data); err != nil {
		return fmt.Errorf("publish dlq entry: %w", err)
	}
	atomic.AddUint64(&q.written, 1)
	return nil
}

// Written reports how many rejections this instance has published.
func (q *JetStreamQueue) Written() uint64 {
	return atomic.LoadUint64(&q.written)
}

// Close drains the underlying connection.
func (q *JetStreamQueue) Close() {
	q.conn.Close()
}
