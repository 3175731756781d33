package registry

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/groundline-systems/sourcegate/internal/schema"
)

// setupTestDatabase creates a PostgreSQL testcontainer and runs migrations
func setupTestDatabase(t *testing.T) (*PostgresRegistry, func()) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("sourcegate_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	if err := runMigrations(connStr); err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	reg, err := NewPostgresRegistry(ctx, connStr)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create registry: %v", err)
	}

	cleanup := func() {
		reg.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return reg, cleanup
}

func runMigrations(connStr string) error {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	migrationPath := filepath.Join("..", "..", "migrations", "001_init.up.sql")
	migrationSQL, err := os.ReadFile(migrationPath)
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	if _, err := db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("failed to execute migration: %w", err)
	}

	return nil
}

func TestPostgresRegistryRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	reg, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	contact := schema.AttributeSchema{
		"type": "object",
		"properties": map[string]any{
			"station": map[string]any{"type": "string"},
		},
		"required": []any{"station"},
	}
	plan := schema.AttributeSchema{
		"type":       "object",
		"properties": map[string]any{},
		"required":   []any{},
	}

	require.NoError(t, reg.RegisterTypes(ctx,
		[]EventType{{Name: "GroundContact", AttributeSchema: contact}},
		[]SourceType{{Name: "Contact Plan", AttributeSchema: plan}}))

	out, err := reg.FetchAttributeSchemas(ctx, []string{"GroundContact", "Maneuver"}, "Contact Plan")
	require.NoError(t, err)

	require.Len(t, out.EventTypes, 1)
	assert.Equal(t, "GroundContact", out.EventTypes[0].Name)
	assert.Equal(t, contact, out.EventTypes[0].AttributeSchema)

	require.Len(t, out.SourceTypes, 1)
	assert.Equal(t, "Contact Plan", out.SourceTypes[0].Name)
}

func TestPostgresRegistryInsertOrIgnore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	reg, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	first := schema.AttributeSchema{
		"type": "object",
		"properties": map[string]any{
			"delta_v": map[string]any{"type": "number"},
		},
		"required": []any{"delta_v"},
	}

	require.NoError(t, reg.RegisterTypes(ctx,
		[]EventType{{Name: "Maneuver", AttributeSchema: first}}, nil))
	require.NoError(t, reg.RegisterTypes(ctx,
		[]EventType{{Name: "Maneuver", AttributeSchema: schema.EmptyObjectSchema()}}, nil))

	out, err := reg.FetchAttributeSchemas(ctx, []string{"Maneuver"}, "")
	require.NoError(t, err)
	require.Len(t, out.EventTypes, 1)
	assert.Equal(t, first, out.EventTypes[0].AttributeSchema)
}

func TestPostgresRegistryFetchMissingNames(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	reg, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	out, err := reg.FetchAttributeSchemas(ctx, []string{"Nope"}, "Also Nope")
	require.NoError(t, err)
	assert.Empty(t, out.EventTypes)
	assert.Empty(t, out.SourceTypes)
}
