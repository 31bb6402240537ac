// Package dbtest opens isolated in-memory SQLite databases carrying the asset schema.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Schema mirrors the Postgres migrations closely enough for repository tests. Enum
// columns become TEXT with CHECK constraints.
var Schema = []string{
	`CREATE TABLE purchase_orders (
		id TEXT PRIMARY KEY,
		po_number TEXT NOT NULL,
		vendor_id TEXT,
		acquisition_type TEXT NOT NULL CHECK (acquisition_type IN ('PURCHASE','LEASE','RENTAL','DONATION')),
		order_date DATETIME,
		total_cost NUMERIC NOT NULL DEFAULT 0,
		currency TEXT NOT NULL DEFAULT 'USD',
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE UNIQUE INDEX ux_purchase_orders_po_number_lower ON purchase_orders (lower(po_number))`,
	`CREATE TABLE assets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		serial_number TEXT,
		asset_tag TEXT,
		status TEXT NOT NULL DEFAULT 'IN_STOCK' CHECK (status IN ('IN_STOCK','ACTIVE','IN_REPAIR','BROKEN','CEASED')),
		current_user_id TEXT,
		po_number TEXT,
		version INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME,
		CHECK (status <> 'ACTIVE' OR current_user_id IS NOT NULL),
		CHECK (status NOT IN ('BROKEN','CEASED') OR current_user_id IS NULL)
	)`,
	`CREATE INDEX idx_assets_po_number_lower ON assets (lower(po_number))`,
	`CREATE TABLE asset_assignments (
		id TEXT PRIMARY KEY,
		asset_id TEXT NOT NULL REFERENCES assets(id),
		user_id TEXT NOT NULL,
		assigned_at DATETIME NOT NULL,
		unassigned_at DATETIME,
		remarks TEXT NOT NULL DEFAULT '',
		unassign_remarks TEXT,
		assigned_by_user_id TEXT,
		unassigned_by_user_id TEXT
	)`,
	`CREATE UNIQUE INDEX ux_asset_assignments_open ON asset_assignments (asset_id) WHERE unassigned_at IS NULL`,
	`CREATE TABLE asset_status_history (
		id TEXT PRIMARY KEY,
		asset_id TEXT NOT NULL REFERENCES assets(id),
		status TEXT NOT NULL CHECK (status IN ('IN_STOCK','ACTIVE','IN_REPAIR','BROKEN','CEASED')),
		changed_by_user_id TEXT,
		changed_at DATETIME NOT NULL,
		remarks TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE assignment_events (
		id TEXT PRIMARY KEY,
		asset_id TEXT NOT NULL REFERENCES assets(id),
		assignment_id TEXT NOT NULL REFERENCES asset_assignments(id),
		user_id TEXT NOT NULL,
		type TEXT NOT NULL CHECK (type IN ('ASSIGNED','UNASSIGNED')),
		actor_user_id TEXT,
		occurred_at DATETIME NOT NULL,
		remarks TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE po_number_migrations (
		id TEXT PRIMARY KEY,
		old_po_number TEXT NOT NULL,
		new_po_number TEXT NOT NULL,
		purchase_order_id TEXT NOT NULL,
		assets_updated INTEGER NOT NULL DEFAULT 0,
		actor_user_id TEXT,
		started_at DATETIME NOT NULL,
		completed_at DATETIME
	)`,
	`CREATE UNIQUE INDEX ux_po_number_migrations_pair ON po_number_migrations (lower(old_po_number), lower(new_po_number))`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
}

// Open returns a fresh database private to the test.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range Schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("failed to apply schema: %v", err)
		}
	}
	return conn
}
