package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// constraintHints names the asset rule a database constraint enforces, so a dump
// that reaches the logs says which rule tripped.
var constraintHints = map[string]string{
	"chk_assets_active_requires_user":    "ACTIVE asset without a current user",
	"chk_assets_retired_without_user":    "BROKEN or CEASED asset still holds a user",
	"chk_assets_version_positive":        "asset version below 1",
	"ux_asset_assignments_open":          "second open assignment for one asset",
	"ux_purchase_orders_po_number_lower": "purchase order number already registered",
	"ux_po_number_migrations_pair":       "purchase order migration pair already recorded",
}

// ErrorDump flattens an error chain for structured logs.
type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain []string `json:"chain,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGColumn     string `json:"pg_column,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`
	Rule         string `json:"rule,omitempty"`
}

// ConstraintRule returns the asset rule behind a constraint name, or "".
func ConstraintRule(constraint string) string {
	return constraintHints[constraint]
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{
		TopMessage: err.Error(),
	}

	if te := As(err); te != nil {
		d.Code = te.Code()
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		d.PGCode = pgxErr.Code
		d.PGConstraint = pgxErr.ConstraintName
		d.PGTable = pgxErr.TableName
		d.PGColumn = pgxErr.ColumnName
		d.PGDetail = pgxErr.Detail
		d.PGMessage = pgxErr.Message
		d.Rule = ConstraintRule(d.PGConstraint)
		return d
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		d.PGCode = string(pqErr.Code)
		d.PGConstraint = pqErr.Constraint
		d.PGTable = pqErr.Table
		d.PGColumn = pqErr.Column
		d.PGDetail = pqErr.Detail
		d.PGMessage = pqErr.Message
		d.Rule = ConstraintRule(d.PGConstraint)
		return d
	}

	return d
}
