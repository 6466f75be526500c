package db_client

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func Open(host, port, user, pass, database string) (*sql.DB, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		user, pass, host, port, database,
	)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetConnMaxIdleTime(time.Minute)
	return db, db.Ping()
}

// Migrate bootstraps the archive schema. Statements are idempotent so boot
// order across instances does not matter.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS listings (
			id                text PRIMARY KEY,
			seller_id         text NOT NULL,
			name              text NOT NULL,
			description       text NOT NULL DEFAULT '',
			start_price       numeric NOT NULL,
			current_price     numeric NOT NULL,
			min_bid_increment numeric NOT NULL,
			starts_at         timestamptz NOT NULL,
			ends_at           timestamptz NOT NULL,
			status            text NOT NULL,
			is_approved       boolean NOT NULL DEFAULT false,
			reject_reason     text NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS bids (
			id         text PRIMARY KEY,
			listing_id text NOT NULL,
			buyer_id   text NOT NULL,
			amount     numeric NOT NULL,
			placed_at  timestamptz NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id           text PRIMARY KEY,
			listing_id   text NOT NULL UNIQUE,
			buyer_id     text NOT NULL,
			seller_id    text NOT NULL,
			total_amount numeric NOT NULL,
			status       text NOT NULL,
			created_at   timestamptz NOT NULL,
			updated_at   timestamptz NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS bids_listing_idx ON bids (listing_id)`,
		`CREATE INDEX IF NOT EXISTS bids_buyer_idx ON bids (buyer_id)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
