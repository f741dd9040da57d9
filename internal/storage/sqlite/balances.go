package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mmynk/budgetwise/internal/models"
)

// applyDelta adds a balance change to the canonical row of its pair.
func applyDelta(ctx context.Context, tx *sql.Tx, groupID string, d models.BalanceDelta) error {
	creditor, debtor, sign := models.CanonicalPair(d.From, d.To)
	_, err := tx.ExecContext(ctx,
		`INSERT INTO balances (group_id, creditor, debtor, amount) VALUES (?, ?, ?, ?)
		 ON CONFLICT (group_id, creditor, debtor) DO UPDATE SET amount = balances.amount + excluded.amount`,
		groupID, creditor, debtor, sign*d.Amount,
	)
	if err != nil {
		return fmt.Errorf("failed to update balance %s/%s: %w", creditor, debtor, err)
	}
	return nil
}

// ListBalances retrieves the stored pairwise balances of a group.
func (s *SQLiteStore) ListBalances(ctx context.Context, groupID string) ([]models.Balance, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT group_id, creditor, debtor, amount FROM balances WHERE group_id = ? ORDER BY creditor, debtor",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}
	defer rows.Close()

	var balances []models.Balance
	for rows.Next() {
		var b models.Balance
		if err := rows.Scan(&b.GroupID, &b.Creditor, &b.Debtor, &b.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balances: %w", err)
	}
	return balances, nil
}
