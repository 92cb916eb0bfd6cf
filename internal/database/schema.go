package database

import (
	"database/sql"
	"fmt"
)

// Statements are idempotent so Migrate can run on every daemon start.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		username TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL DEFAULT 'visitor' CHECK (role IN ('visitor', 'user', 'superuser')),
		balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
		is_vip BOOLEAN NOT NULL DEFAULT FALSE,
		status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected', 'suspended')),
		suspension_count INT NOT NULL DEFAULT 0,
		fine_due BIGINT NOT NULL DEFAULT 0,
		version INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	// Account removal deletes the user's items and their bids with the row.
	`CREATE TABLE IF NOT EXISTS items (
		id BIGSERIAL PRIMARY KEY,
		owner_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		starting_price BIGINT NOT NULL CHECK (starting_price > 0),
		current_price BIGINT NOT NULL,
		type TEXT NOT NULL CHECK (type IN ('sale', 'rent')),
		status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'closed')),
		deadline TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS bids (
		id BIGSERIAL PRIMARY KEY,
		item_id BIGINT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
		bidder_id BIGINT NOT NULL,
		amount BIGINT NOT NULL CHECK (amount > 0),
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	// item_id is UNIQUE: an item settles at most once, enforced by the
	// store in addition to the active->closed transition. No foreign key:
	// the ledger is append-only and must survive removal of the item and
	// its owner.
	`CREATE TABLE IF NOT EXISTS transactions (
		id BIGSERIAL PRIMARY KEY,
		reference TEXT NOT NULL UNIQUE,
		item_id BIGINT NOT NULL UNIQUE,
		buyer_id BIGINT NOT NULL,
		seller_id BIGINT NOT NULL,
		amount BIGINT NOT NULL CHECK (amount > 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS balance_history (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		amount BIGINT NOT NULL CHECK (amount > 0),
		entry_type TEXT NOT NULL CHECK (entry_type IN ('deposit', 'withdraw')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS reviews (
		id BIGSERIAL PRIMARY KEY,
		transaction_id BIGINT NOT NULL REFERENCES transactions(id),
		reviewer_id BIGINT NOT NULL,
		recipient_id BIGINT NOT NULL,
		rating INT NOT NULL CHECK (rating BETWEEN 1 AND 5),
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (transaction_id, reviewer_id)
	)`,

	`CREATE TABLE IF NOT EXISTS complaints (
		id BIGSERIAL PRIMARY KEY,
		transaction_id BIGINT NOT NULL REFERENCES transactions(id),
		complainant_id BIGINT NOT NULL,
		target_id BIGINT NOT NULL,
		description TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'open' CHECK (status IN ('open', 'resolved')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_bids_item ON bids (item_id, amount DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_items_status_deadline ON items (status, deadline)`,
	`CREATE INDEX IF NOT EXISTS idx_balance_history_user ON balance_history (user_id, created_at DESC)`,
}

// Migrate applies the schema.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
