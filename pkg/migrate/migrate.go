package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/pressly/goose/v3"
)

const (
	DefaultDir = "pkg/migrate/migrations"

	// Dialect is the only database the SQL migrations are written for.
	Dialect = "postgres"

	// AuditBaselineVersion creates the assets table together with its status history
	// and assignment event logs. Migrating below it drops the audit trail.
	AuditBaselineVersion int64 = 20240601090200
)

// ErrHistoryLoss is returned when a command would drop the audit tables.
var ErrHistoryLoss = errors.New("migration would drop the asset audit trail")

// Run executes a goose command that needs a database connection. reset is refused
// because it rolls back past AuditBaselineVersion; use MigrateToVersion with
// allowHistoryLoss instead.
func Run(ctx context.Context, db *sql.DB, dir string, command string, args ...string) error {
	if command == "reset" {
		return fmt.Errorf("goose reset: %w", ErrHistoryLoss)
	}
	if db == nil {
		return fmt.Errorf("db is required")
	}
	if dir == "" {
		return fmt.Errorf("dir is required")
	}

	if err := goose.SetDialect(Dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.RunContext(ctx, command, db, dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// ParseVersion validates a YYYYMMDDHHMMSS migration version.
func ParseVersion(value string) (int64, error) {
	if len(value) != 14 {
		return 0, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", value)
	}
	version, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", value, err)
	}
	return version, nil
}

// CheckTarget rejects targets below AuditBaselineVersion unless allowHistoryLoss is set.
func CheckTarget(target int64, allowHistoryLoss bool) error {
	if target < AuditBaselineVersion && !allowHistoryLoss {
		return fmt.Errorf("target %d is below %d: %w", target, AuditBaselineVersion, ErrHistoryLoss)
	}
	return nil
}

// MigrateToVersion migrates up or down to targetVersion by comparing it with the
// current database version.
func MigrateToVersion(ctx context.Context, db *sql.DB, dir string, targetVersion string, allowHistoryLoss bool) error {
	if targetVersion == "" {
		return fmt.Errorf("targetVersion is required")
	}
	target, err := ParseVersion(targetVersion)
	if err != nil {
		return err
	}
	if err := CheckTarget(target, allowHistoryLoss); err != nil {
		return err
	}

	if err := goose.SetDialect(Dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	current, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	switch {
	case current == target:
		return nil
	case current < target:
		if err := goose.UpToContext(ctx, db, dir, target); err != nil {
			return fmt.Errorf("goose up-to %d: %w", target, err)
		}
		return nil
	default:
		if err := goose.DownToContext(ctx, db, dir, target); err != nil {
			return fmt.Errorf("goose down-to %d: %w", target, err)
		}
		return nil
	}
}
