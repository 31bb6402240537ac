package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var (
	nameSanitizeRe = regexp.MustCompile(`[^a-z0-9_]+`)

	now = time.Now
)

// CreateSQLMigration writes an empty goose migration named
//
//	<dir>/<YYYYMMDDHHMMSS>_<name>.sql
//
// A name already used by another migration in dir is rejected, since the migration
// tests look files up by name.
func CreateSQLMigration(dir string, name string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	if name == "" {
		return "", fmt.Errorf("name is required")
	}

	safe := sanitizeName(name)
	if safe == "" {
		return "", fmt.Errorf("name %q results in empty sanitized filename", name)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}
	existing, err := filepath.Glob(filepath.Join(dir, "*_"+safe+".sql"))
	if err != nil {
		return "", fmt.Errorf("scan %q: %w", dir, err)
	}
	for _, path := range existing {
		if sqlFileRe.MatchString(filepath.Base(path)) {
			return "", fmt.Errorf("migration name %q already used by %s", safe, filepath.Base(path))
		}
	}

	version := now().UTC().Format("20060102150405")
	fullpath := filepath.Join(dir, fmt.Sprintf("%s_%s.sql", version, safe))
	if _, err := os.Stat(fullpath); err == nil {
		return "", fmt.Errorf("migration already exists: %s", fullpath)
	}

	if err := os.WriteFile(fullpath, []byte(migrationTemplate(safe)), 0o644); err != nil {
		return "", fmt.Errorf("write migration %q: %w", fullpath, err)
	}
	return fullpath, nil
}

func sanitizeName(name string) string {
	safe := strings.ToLower(strings.TrimSpace(name))
	safe = strings.ReplaceAll(safe, " ", "_")
	safe = nameSanitizeRe.ReplaceAllString(safe, "_")
	return strings.Trim(safe, "_")
}

func migrationTemplate(name string) string {
	return fmt.Sprintf(`-- +goose Up
-- +goose StatementBegin
-- %s
-- asset_status_history and assignment_events are append-only: no DROP, TRUNCATE or DELETE here.
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- rollback %s
-- +goose StatementEnd
`, name, name)
}
