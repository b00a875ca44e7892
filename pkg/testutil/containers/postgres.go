//go:build integration

// Package containers manages throwaway infrastructure for integration
// tests.
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

// schema is the subset of the back-office schema the engine touches.
const schema = `
CREATE TABLE IF NOT EXISTS eligibility_conditions (
	id             uuid PRIMARY KEY,
	target_type    text NOT NULL,
	target_code    text NOT NULL,
	condition_key  text NOT NULL,
	condition_type text NOT NULL,
	operator       text NOT NULL,
	required_value jsonb NOT NULL,
	weight         double precision NOT NULL DEFAULT 0,
	is_mandatory   boolean NOT NULL DEFAULT false,
	is_active      boolean NOT NULL DEFAULT true,
	display_order  integer NOT NULL DEFAULT 0,
	description    text,
	created_at     timestamptz NOT NULL DEFAULT now(),
	deactivated_at timestamptz,
	UNIQUE (target_type, target_code, condition_key)
);

CREATE TABLE IF NOT EXISTS eligibility_status (
	customer_id        uuid NOT NULL,
	target_type        text NOT NULL,
	target_code        text NOT NULL,
	is_eligible        boolean NOT NULL DEFAULT false,
	is_activated       boolean NOT NULL DEFAULT false,
	score              double precision NOT NULL DEFAULT 0,
	progress           double precision NOT NULL DEFAULT 0,
	conditions_met     jsonb NOT NULL DEFAULT '[]',
	conditions_missing jsonb NOT NULL DEFAULT '[]',
	estimated_days     integer,
	auto_activate      boolean NOT NULL DEFAULT true,
	last_evaluated_at  timestamptz NOT NULL,
	eligible_since     timestamptz,
	activated_at       timestamptz,
	created_at         timestamptz NOT NULL,
	updated_at         timestamptz NOT NULL,
	PRIMARY KEY (customer_id, target_type, target_code)
);

CREATE TABLE IF NOT EXISTS evaluation_log (
	id                   uuid PRIMARY KEY,
	customer_id          uuid NOT NULL,
	target_type          text NOT NULL,
	target_code          text NOT NULL,
	previous_eligibility boolean,
	new_eligibility      boolean NOT NULL,
	previous_score       double precision,
	new_score            double precision NOT NULL,
	conditions_evaluated jsonb NOT NULL,
	trigger_event        text NOT NULL,
	action_taken         text NOT NULL,
	evaluated_at         timestamptz NOT NULL
);

CREATE TABLE IF NOT EXISTS outbox (
	id             uuid PRIMARY KEY,
	aggregate_type text NOT NULL,
	aggregate_id   text NOT NULL,
	event_type     text NOT NULL,
	payload        jsonb NOT NULL,
	created_at     timestamptz NOT NULL,
	published_at   timestamptz
);

CREATE TABLE IF NOT EXISTS notifications (
	id              uuid PRIMARY KEY,
	customer_id     uuid NOT NULL,
	type            text NOT NULL,
	target_type     text NOT NULL,
	target_code     text NOT NULL,
	title           text NOT NULL,
	body            text NOT NULL,
	is_read         boolean NOT NULL DEFAULT false,
	is_dismissed    boolean NOT NULL DEFAULT false,
	is_action_taken boolean NOT NULL DEFAULT false,
	read_at         timestamptz,
	dismissed_at    timestamptz,
	action_taken_at timestamptz,
	last_shown_at   timestamptz,
	shown_count     integer NOT NULL DEFAULT 0,
	scheduled_for   timestamptz NOT NULL,
	expires_at      timestamptz,
	created_at      timestamptz NOT NULL
);

CREATE TABLE IF NOT EXISTS customers (
	id       uuid PRIMARY KEY,
	kyc_tier text NOT NULL DEFAULT 'NONE'
);

CREATE TABLE IF NOT EXISTS accounts (
	customer_id  uuid NOT NULL,
	account_code text NOT NULL,
	opened_at    timestamptz NOT NULL,
	PRIMARY KEY (customer_id, account_code)
);

CREATE TABLE IF NOT EXISTS account_balances (
	customer_id  uuid NOT NULL,
	account_code text NOT NULL,
	currency     text NOT NULL,
	balance      double precision NOT NULL DEFAULT 0,
	is_primary   boolean NOT NULL DEFAULT false,
	PRIMARY KEY (customer_id, account_code, currency)
);

CREATE TABLE IF NOT EXISTS deposit_streaks (
	customer_id         uuid PRIMARY KEY,
	current_streak_days integer NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS repayment_streaks (
	customer_id    uuid PRIMARY KEY,
	current_streak integer NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS payment_defaults (
	id          uuid PRIMARY KEY,
	customer_id uuid NOT NULL,
	recorded_at timestamptz NOT NULL DEFAULT now()
);
`

// PostgresContainer wraps a testcontainers Postgres instance with the
// engine schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DB        *sql.DB
}

// NewPostgresContainer starts Postgres and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("mosolo_test"),
		tcpostgres.WithUsername("mosolo"),
		tcpostgres.WithPassword("mosolo"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
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
		t.Fatalf("failed to open postgres: %v", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
		_ = container.Terminate(context.Background())
	})
	return &PostgresContainer{Container: container, DB: db}
}

// TruncateTables clears the given tables between tests.
func (c *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	_, err := c.DB.ExecContext(ctx, fmt.Sprintf("TRUNCATE %s", strings.Join(tables, ", ")))
	return err
}
