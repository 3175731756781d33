// Package storage persists validated source documents. It is invoked
// only after the pipeline reports a pass; nothing here re-validates.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/groundline-systems/sourcegate/internal/model"
)

// ErrSourceExists reports a (key, derivation group) pair that was
// already persisted.
var ErrSourceExists = errors.New("source already exists")

const writeTimeout = 10 * time.Second

// DocumentStore writes source documents to Postgres in one transaction
// per document.
type DocumentStore struct {
	pool *pgxpool.Pool
}

// NewDocumentStore connects a pool and verifies the database is
// reachable.
func NewDocumentStore(ctx context.Context, connString string) (*DocumentStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &DocumentStore{pool: pool}, nil
}

// NewDocumentStoreFromPool wraps an existing pool; the caller keeps
// ownership of the pool's lifecycle.
func NewDocumentStoreFromPool(pool *pgxpool.Pool) *DocumentStore {
	return &DocumentStore{pool: pool}
}

func (s *DocumentStore) Close() {
	s.pool.Close()
}

// Ping verifies the database still answers; used by readiness probes.
func (s *DocumentStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CreateSource persists the derivation group, the source row and all
// event rows atomically. The document must already be normalized.
func (s *DocumentStore) CreateSource(ctx context.Context, doc *model.SourceDocument) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	src := doc.Source
	if _, err := tx.Exec(ctx,
		`INSERT INTO derivation_groups (name, source_type_name) VALUES ($1, $2)
		 ON CONFLICT (name) DO NOTHING`,
		src.DerivationGroupName, src.SourceTypeName); err != nil {
		return fmt.Errorf("upsert derivation group %q: %w", src.DerivationGroupName, err)
	}

	attrs, err := json.Marshal(orEmpty(src.Attributes))
	if err != nil {
		return fmt.Errorf("encode source attributes: %w", err)
	}
	var sourceID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO external_sources
		   (key, source_type_name, derivation_group_name, valid_at, start_time, end_time, attributes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		src.Key, src.SourceTypeName, src.DerivationGroupName,
		src.ValidAt, src.Period.StartTime, src.Period.EndTime, attrs).Scan(&sourceID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: key=%q derivation_group=%q", ErrSourceExists, src.Key, src.DerivationGroupName)
		}
		return fmt.Errorf("insert source %q: %w", src.Key, err)
	}

	for _, e := range doc.Events {
		eventAttrs, err := json.Marshal(orEmpty(e.Attributes))
		if err != nil {
			return fmt.Errorf("encode attributes for event %q: %w", e.Key, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO external_events
			   (source_id, key, event_type_name, start_time, duration, attributes)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			sourceID, e.Key, e.EventTypeName, e.StartTime, e.Duration, eventAttrs); err != nil {
			return fmt.Errorf("insert event %q: %w", e.Key, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create transaction: %w", err)
	}
	return nil
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
