package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func findMigration(t *testing.T, table string) string {
	for _, stmt := range migrations {
		if strings.Contains(stmt, "CREATE TABLE IF NOT EXISTS "+table+" (") {
			return stmt
		}
	}
	t.Fatalf("no migration creates table %s", table)
	return ""
}

// Removing an account deletes the user's items and their bids with it, so
// moderation removal cannot be blocked by listings the user still owns. The
// transaction ledger carries no item foreign key and survives the removal.
func TestMigrationsAllowAccountRemoval(t *testing.T) {
	items := findMigration(t, "items")
	assert.Contains(t, items, "REFERENCES users(id) ON DELETE CASCADE")

	bids := findMigration(t, "bids")
	assert.Contains(t, bids, "REFERENCES items(id) ON DELETE CASCADE")

	transactions := findMigration(t, "transactions")
	assert.NotContains(t, transactions, "REFERENCES items(id)")
	assert.Contains(t, transactions, "item_id BIGINT NOT NULL UNIQUE")
}
