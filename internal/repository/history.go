package repository

import (
	"context"

	"github.com/averline/concierge/internal/domain"
	"github.com/sqlc-dev/pqtype"
)

// InsertRuleChange appends one immutable entry to the rule audit history.
func (r *Repository) InsertRuleChange(ctx context.Context, change domain.RuleChange) error {
	previous := pqtype.NullRawMessage{RawMessage: change.Previous, Valid: len(change.Previous) > 0}
	next := pqtype.NullRawMessage{RawMessage: change.New, Valid: len(change.New) > 0}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pricing_rule_history (
			id, rule_id, category, action, previous_value, new_value, changed_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		change.ID, change.RuleID, change.Category, change.Action, previous, next, change.ChangedBy)
	return err
}

// ListRuleChanges returns the audit history for a category, newest first.
func (r *Repository) ListRuleChanges(ctx context.Context, category string, limit int) ([]domain.RuleChange, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, rule_id, category, action, previous_value, new_value, changed_by, created_at
		FROM pricing_rule_history
		WHERE category = $1
		ORDER BY created_at DESC
		LIMIT $2`, category, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []domain.RuleChange
	for rows.Next() {
		var (
			change   domain.RuleChange
			previous pqtype.NullRawMessage
			next     pqtype.NullRawMessage
		)
		err := rows.Scan(
			&change.ID,
			&change.RuleID,
			&change.Category,
			&change.Action,
			&previous,
			&next,
			&change.ChangedBy,
			&change.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if previous.Valid {
			change.Previous = previous.RawMessage
		}
		if next.Valid {
			change.New = next.RawMessage
		}
		changes = append(changes, change)
	}
	return changes, rows.Err()
}
