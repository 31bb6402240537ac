package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/assettrack-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestAssetsMigrationContainsConstraints(t *testing.T) {
	assertContains(t, readMigration(t, "create_assets"), []string{
		"CREATE TABLE IF NOT EXISTS assets",
		"CHECK (status <> 'ACTIVE' OR current_user_id IS NOT NULL)",
		"CHECK (status NOT IN ('BROKEN', 'CEASED') OR current_user_id IS NULL)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_asset_assignments_open ON asset_assignments (asset_id) WHERE unassigned_at IS NULL",
		"FOREIGN KEY (assignment_id) REFERENCES asset_assignments(id)",
		"DROP TABLE IF EXISTS assets",
	})
}

func TestAssetsPoNumberIndexMatchesCaseInsensitiveLookups(t *testing.T) {
	sql := readMigration(t, "create_assets")
	assertContains(t, sql, []string{
		"CREATE INDEX IF NOT EXISTS idx_assets_po_number_lower ON assets (lower(po_number))",
	})
	if strings.Contains(sql, "ON assets (po_number)") {
		t.Fatalf("po_number index must be on lower(po_number)")
	}
}

func TestPurchaseOrderMigrationsContainUniqueIndexes(t *testing.T) {
	assertContains(t, readMigration(t, "create_purchase_orders"), []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_purchase_orders_po_number_lower ON purchase_orders (lower(po_number))",
		"numeric(14,2)",
	})
	assertContains(t, readMigration(t, "create_po_number_migrations"), []string{
		"ux_po_number_migrations_pair",
		"(lower(old_po_number), lower(new_po_number))",
	})
}

func TestOutboxMigrationIndexesUnpublishedRows(t *testing.T) {
	assertContains(t, readMigration(t, "create_outbox_events"), []string{
		"payload jsonb NOT NULL",
		"WHERE published_at IS NULL",
		"DROP TABLE IF EXISTS outbox_events",
	})
}

func TestCreateSQLMigrationWritesTemplate(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Asset Notes")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_asset_notes.sql") {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
}
