package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/groundline-systems/sourcegate/internal/schema"
)

const queryTimeout = 5 * time.Second

// PostgresRegistry stores type definitions in two tables keyed by name,
// one per namespace, with the attribute schema as jsonb.
type PostgresRegistry struct {
	pool *pgxpool.Pool
}

// NewPostgresRegistry connects a pool and verifies the database is
// reachable.
func NewPostgresRegistry(ctx context.Context, connString string) (*PostgresRegistry, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	config.MaxConns = 25
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresRegistry{pool: pool}, nil
}

// NewPostgresRegistryFromPool wraps an existing pool; the caller keeps
// ownership of the pool's lifecycle.
func NewPostgresRegistryFromPool(pool *pgxpool.Pool) *PostgresRegistry {
	return &PostgresRegistry{pool: pool}
}

func (r *PostgresRegistry) Close() {
	r.pool.Close()
}

// FetchAttributeSchemas returns the rows matching the requested names in
// a single round-trip per namespace. Names absent from the registry are
// absent from the result.
func (r *PostgresRegistry) FetchAttributeSchemas(ctx context.Context, eventTypeNames []string, sourceTypeName string) (*Schemas, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	out := &Schemas{}

	if len(eventTypeNames) > 0 {
		rows, err := r.pool.Query(ctx,
			`SELECT name, attribute_schema FROM external_event_types WHERE name = ANY($1)`,
			eventTypeNames)
		if err != nil {
			return nil, fmt.Errorf("fetch event types: %w", err)
		}
		out.EventTypes, err = scanTypes[EventType](rows)
		if err != nil {
			return nil, fmt.Errorf("scan event types: %w", err)
		}
	}

	rows, err := r.pool.Query(ctx,
		`SELECT name, attribute_schema FROM external_source_types WHERE name = $1`,
		sourceTypeName)
	if err != nil {
		return nil, fmt.Errorf("fetch source type: %w", err)
	}
	out.SourceTypes, err = scanTypes[SourceType](rows)
	if err != nil {
		return nil, fmt.Errorf("scan source type: %w", err)
	}

	return out, nil
}

type namedType interface {
	EventType | SourceType
}

func scanTypes[T namedType](rows pgx.Rows) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		var name string
		var raw []byte
		if err := rows.Scan(&name, &raw); err != nil {
			return nil, err
		}
		var attrs schema.AttributeSchema
		if err := json.Unmarshal(raw, &attrs); err != nil {
			return nil, fmt.Errorf("decode attribute schema for %q: %w", name, err)
		}
		out = append(out, newNamedType[T](name, attrs))
	}
	return out, rows.Err()
}

func newNamedType[T namedType](name string, attrs schema.AttributeSchema) T {
	var t T
	switch p := any(&t).(type) {
	case *EventType:
		p.Name, p.AttributeSchema = name, attrs
	case *SourceType:
		p.Name, p.AttributeSchema = name, attrs
	}
	return t
}

// RegisterTypes inserts the given definitions, ignoring names that
// already exist. ON CONFLICT DO NOTHING gives the insert-or-ignore
// atomicity concurrent uploads rely on.
func (r *PostgresRegistry) RegisterTypes(ctx context.Context, eventTypes []EventType, sourceTypes []SourceType) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin register transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, et := range eventTypes {
		raw, err := json.Marshal(et.AttributeSchema)
		if err != nil {
			return fmt.Errorf("encode attribute schema for %q: %w", et.Name, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO external_event_types (name, attribute_schema) VALUES ($1, $2)
			 ON CONFLICT (name) DO NOTHING`,
			et.Name, raw); err != nil {
			return fmt.Errorf("register event type %q: %w", et.Name, err)
		}
	}
	for _, st := range sourceTypes {
		raw, err := json.Marshal(st.AttributeSchema)
		if err != nil {
			return fmt.Errorf("encode attribute schema for %q: %w", st.Name, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO external_source_types (name, attribute_schema) VALUES ($1, $2)
			 ON CONFLICT (name) DO NOTHING`,
			st.Name, raw); err != nil {
			return fmt.Errorf("register source type %q: %w", st.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit register transaction: %w", err)
	}
	return nil
}
