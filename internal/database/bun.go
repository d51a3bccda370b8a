package database

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

// NewBunDB creates a new Bun DB instance from an existing sql.DB connection
func NewBunDB(sqlDB *sql.DB) *bun.DB {
	return bun.NewDB(sqlDB, pgdialect.New())
}

// Bootstrap creates the schema if it doesn't exist yet. Cascading deletes run
// User -> Category -> Expense and User -> BillingAccount, matching account
// deletion semantics; uniqueness on users.email and (categories.user_id, name)
// is enforced here so the repositories can translate constraint violations.
func Bootstrap(ctx context.Context, db *bun.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
			firstname varchar(30) NOT NULL,
			lastname varchar(30) NOT NULL,
			email varchar(254) NOT NULL UNIQUE,
			password_hash text NOT NULL,
			email_verified boolean NOT NULL DEFAULT false,
			preferred_currency varchar(10),
			plan integer NOT NULL DEFAULT 0,
			signup_date timestamptz NOT NULL DEFAULT current_timestamp
		)`,
		`CREATE TABLE IF NOT EXISTS billing_accounts (
			id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id uuid NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
			customer_id text NOT NULL,
			subscription_id text NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS categories (
			id bigserial PRIMARY KEY,
			user_id uuid NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name varchar(30) NOT NULL,
			default_currency varchar(10) NOT NULL,
			updated_at timestamptz NOT NULL DEFAULT current_timestamp,
			UNIQUE (user_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS expenses (
			id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
			category_id bigint NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
			description varchar(60),
			price numeric(12,2) NOT NULL CHECK (price > 0),
			currency varchar(10) NOT NULL,
			date timestamptz NOT NULL,
			created_at timestamptz NOT NULL DEFAULT current_timestamp
		)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_category_date ON expenses (category_id, date)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	return nil
}
