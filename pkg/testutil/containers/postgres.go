//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Schema is the full service schema. Partial unique indexes enforce the
// invariants the stores rely on: one active commitment per (identity,
// modality), one active commitment per (modality, lookup_hash) globally,
// one proof per (identity, date, type), and globally unique nullifiers.
const Schema = `
CREATE TABLE IF NOT EXISTS biometric_commitments (
    id                  UUID PRIMARY KEY,
    identity_id         UUID NOT NULL,
    organization_id     UUID NOT NULL,
    modality            TEXT NOT NULL,
    commitment          TEXT NOT NULL,
    lookup_hash         TEXT NOT NULL,
    salt                TEXT NOT NULL,
    is_active           BOOLEAN NOT NULL DEFAULT TRUE,
    enrolled_at         TIMESTAMPTZ NOT NULL,
    deactivated_at      TIMESTAMPTZ,
    deactivation_reason TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_commitments_identity_modality_active
    ON biometric_commitments (identity_id, modality) WHERE is_active;
CREATE UNIQUE INDEX IF NOT EXISTS uq_commitments_modality_lookup_active
    ON biometric_commitments (modality, lookup_hash) WHERE is_active;

CREATE TABLE IF NOT EXISTS attendance_proofs (
    proof_id          UUID PRIMARY KEY,
    identity_id       UUID NOT NULL,
    organization_id   UUID NOT NULL,
    attendance_date   DATE NOT NULL,
    attendance_type   TEXT NOT NULL,
    payload           JSONB NOT NULL,
    nullifier         TEXT NOT NULL,
    issued_at         TIMESTAMPTZ NOT NULL,
    expires_at        TIMESTAMPTZ NOT NULL,
    latitude          DOUBLE PRECISION,
    longitude         DOUBLE PRECISION,
    accuracy          DOUBLE PRECISION,
    is_verified       BOOLEAN NOT NULL DEFAULT FALSE,
    verified_at       TIMESTAMPTZ,
    verified_by       UUID,
    CONSTRAINT uq_proofs_slot UNIQUE (identity_id, attendance_date, attendance_type),
    CONSTRAINT uq_proofs_nullifier UNIQUE (nullifier)
);

CREATE TABLE IF NOT EXISTS consumed_nullifiers (
    nullifier   TEXT PRIMARY KEY,
    proof_id    UUID NOT NULL,
    consumed_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_events (
    id          BIGSERIAL PRIMARY KEY,
    occurred_at TIMESTAMPTZ NOT NULL,
    identity_id TEXT NOT NULL,
    action      TEXT NOT NULL,
    subject     TEXT,
    decision    TEXT,
    reason      TEXT,
    request_id  TEXT,
    actor_id    TEXT
);
`

// PostgresContainer wraps a testcontainers Postgres instance with an open
// database handle that already has the schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts a new Postgres container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("pramaan"),
		tcpostgres.WithUsername("pramaan"),
		tcpostgres.WithPassword("pramaan"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres connection: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}

	if _, err := db.ExecContext(ctx, Schema); err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	// Shared across suites; Ryuk handles cleanup at the end of the run.
	return &PostgresContainer{Container: container, DSN: dsn, DB: db}
}

// TruncateTables empties the given tables between tests.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	stmt := fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(tables, ", "))
	if _, err := p.DB.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}
