package db

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

const sqliteSchema = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS decisions (
    id TEXT PRIMARY KEY,
    node_id TEXT NOT NULL,
    strategy TEXT NOT NULL,
    kind TEXT NOT NULL,
    sim_timestamp INTEGER NOT NULL,
    order_count INTEGER NOT NULL DEFAULT 0,
    failed_products INTEGER NOT NULL DEFAULT 0,
    trader_data TEXT NOT NULL,
    latency_us INTEGER NOT NULL DEFAULT 0,
    created_at_ms INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS decision_orders (
    id TEXT PRIMARY KEY,
    decision_id TEXT NOT NULL,
    product TEXT NOT NULL,
    side TEXT NOT NULL,
    price REAL NOT NULL,
    quantity INTEGER NOT NULL,
    FOREIGN KEY(decision_id) REFERENCES decisions(id)
);

CREATE INDEX IF NOT EXISTS idx_decisions_created ON decisions(created_at_ms);
CREATE INDEX IF NOT EXISTS idx_decision_orders_decision ON decision_orders(decision_id);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS decisions (
    id TEXT PRIMARY KEY,
    node_id TEXT NOT NULL,
    strategy TEXT NOT NULL,
    kind TEXT NOT NULL,
    sim_timestamp BIGINT NOT NULL,
    order_count INTEGER NOT NULL DEFAULT 0,
    failed_products INTEGER NOT NULL DEFAULT 0,
    trader_data TEXT NOT NULL,
    latency_us BIGINT NOT NULL DEFAULT 0,
    created_at_ms BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS decision_orders (
    id TEXT PRIMARY KEY,
    decision_id TEXT NOT NULL REFERENCES decisions(id),
    product TEXT NOT NULL,
    side TEXT NOT NULL,
    price DOUBLE PRECISION NOT NULL,
    quantity INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_created ON decisions(created_at_ms);
CREATE INDEX IF NOT EXISTS idx_decision_orders_decision ON decision_orders(decision_id);
`

// ApplyMigrations creates the journal tables for the connected driver.
func ApplyMigrations(d *Database) error {
	if d == nil || d.DB == nil {
		return fmt.Errorf("database is not initialized")
	}

	schema := sqliteSchema
	if d.Driver == DriverPostgres {
		schema = postgresSchema
	}
	if _, err := d.DB.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	// Lightweight, idempotent migrations for older DB files.
	if err := ensureColumn(d, "decisions", "conversions", "INTEGER"); err != nil {
		return err
	}
	return nil
}

// ensureColumn adds a column if it does not already exist.
func ensureColumn(d *Database, table, column, definition string) error {
	exists, err := columnExists(d, table, column)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	alter := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition)
	if d.Driver == DriverPostgres {
		alter = fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", pq.QuoteIdentifier(table), pq.QuoteIdentifier(column), definition)
	}
	if _, err := d.DB.Exec(alter); err != nil {
		return fmt.Errorf("add column %s.%s: %w", table, column, err)
	}
	return nil
}

func columnExists(d *Database, table, column string) (bool, error) {
	if d.Driver == DriverPostgres {
		var n int
		err := d.DB.QueryRow(
			`SELECT COUNT(*) FROM information_schema.columns WHERE table_name = $1 AND column_name = $2`,
			table, column,
		).Scan(&n)
		if err != nil {
			return false, fmt.Errorf("information_schema(%s): %w", table, err)
		}
		return n > 0, nil
	}

	rows, err := d.DB.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		return false, fmt.Errorf("pragma table_info(%s): %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			name       string
			colType    string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultVal, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
