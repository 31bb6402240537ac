package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

	// Up sections may never remove rows from the append-only audit logs.
	auditWriteRe = regexp.MustCompile(`(?i)\b(drop\s+table(\s+if\s+exists)?|truncate(\s+table)?|delete\s+from)\s+(asset_status_history|assignment_events)\b`)
)

// ValidateDir checks migration filenames, goose headers and that no Up section
// rewrites the audit tables.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %q: %w", dir, err)
	}

	seen := map[string]string{} // version -> filename
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		name := e.Name()

		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			return fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		version := m[1]
		if prev, ok := seen[version]; ok {
			return fmt.Errorf("duplicate migration version %s in %q and %q", version, prev, name)
		}
		seen[version] = name

		full := filepath.Join(dir, name)
		b, err := os.ReadFile(full)
		if err != nil {
			return fmt.Errorf("read file %q: %w", full, err)
		}
		if err := validateSQL(name, string(b)); err != nil {
			return err
		}
	}
	return nil
}

func validateSQL(name, txt string) error {
	upAt := strings.Index(txt, "-- +goose Up")
	if upAt < 0 {
		return fmt.Errorf("migration %q missing \"-- +goose Up\"", name)
	}
	downAt := strings.Index(txt, "-- +goose Down")
	if downAt < 0 {
		return fmt.Errorf("migration %q missing \"-- +goose Down\"", name)
	}
	if downAt < upAt {
		return fmt.Errorf("migration %q has Down before Up", name)
	}
	if stmt := auditWriteRe.FindString(stripComments(txt[upAt:downAt])); stmt != "" {
		return fmt.Errorf("migration %q: %q in Up section removes audit history", name, stmt)
	}
	return nil
}

func stripComments(sql string) string {
	lines := strings.Split(sql, "\n")
	for i, line := range lines {
		if at := strings.Index(line, "--"); at >= 0 {
			lines[i] = line[:at]
		}
	}
	return strings.Join(lines, "\n")
}
