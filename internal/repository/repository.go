// Package repository provides database access for pricing rules and their
// audit history, backed by Postgres through database/sql with the pgx
// stdlib driver.
//
// Rule sub-tables (price tiers, multipliers) live in JSONB columns and are
// parsed into typed shapes at this boundary. A malformed blob disables the
// affected stage (the field is left nil) instead of failing the row, so a
// bad administrative write can never take pricing down.
package repository

import (
	"database/sql"
	"encoding/json"
	"log/slog"

	"github.com/averline/concierge/internal/domain"
	"github.com/sqlc-dev/pqtype"
)

// Repository wraps a database handle with the pricing queries.
type Repository struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a Repository over the given database handle.
func New(db *sql.DB, logger *slog.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// parseBlob unmarshals a JSONB column into dst. Returns false (and logs)
// when the blob is absent or malformed; the caller leaves the field nil.
func (r *Repository) parseBlob(category, column string, raw pqtype.NullRawMessage, dst interface{}) bool {
	if !raw.Valid || len(raw.RawMessage) == 0 {
		return false
	}
	if err := json.Unmarshal(raw.RawMessage, dst); err != nil {
		r.logger.Warn("malformed pricing rule blob, stage disabled",
			"category", category,
			"column", column,
			"error", err,
		)
		return false
	}
	return true
}

// marshalBlob encodes a rule sub-table for a JSONB column. Nil or empty
// values are stored as SQL NULL.
func marshalBlob(v interface{}) (pqtype.NullRawMessage, error) {
	if v == nil {
		return pqtype.NullRawMessage{}, nil
	}
	switch t := v.(type) {
	case []domain.PriceTier:
		if len(t) == 0 {
			return pqtype.NullRawMessage{}, nil
		}
	case []domain.BudgetThreshold:
		if len(t) == 0 {
			return pqtype.NullRawMessage{}, nil
		}
	case map[string]float64:
		if len(t) == 0 {
			return pqtype.NullRawMessage{}, nil
		}
	case *domain.TimeMultipliers:
		if t == nil {
			return pqtype.NullRawMessage{}, nil
		}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return pqtype.NullRawMessage{}, err
	}
	return pqtype.NullRawMessage{RawMessage: raw, Valid: true}, nil
}
