package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/budgetwise/internal/models"
)

// ApplyEntry persists a new entry, its shares and the balance changes it
// causes in a single transaction.
func (s *SQLiteStore) ApplyEntry(ctx context.Context, entry *models.Entry, deltas []models.BalanceDelta) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt == 0 {
		entry.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO entries (id, group_id, payer, amount, memo, policy, created_at, seq)
		 VALUES (?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM entries WHERE group_id = ?))`,
		entry.ID, entry.GroupID, entry.Payer, entry.Amount, entry.Memo, entry.Policy, entry.CreatedAt, entry.GroupID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}

	for participant, share := range entry.Shares {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO entry_shares (entry_id, participant, share, paid) VALUES (?, ?, ?, ?)",
			entry.ID, participant, share, entry.PaidStatus[participant],
		)
		if err != nil {
			return fmt.Errorf("failed to insert entry share: %w", err)
		}
	}

	for _, d := range deltas {
		if err := applyDelta(ctx, tx, entry.GroupID, d); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetEntry retrieves an entry of a group, including shares and paid flags.
func (s *SQLiteStore) GetEntry(ctx context.Context, groupID, entryID string) (*models.Entry, error) {
	entry := &models.Entry{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, group_id, payer, amount, memo, policy, created_at
		 FROM entries WHERE id = ? AND group_id = ?`,
		entryID, groupID,
	).Scan(&entry.ID, &entry.GroupID, &entry.Payer, &entry.Amount, &entry.Memo, &entry.Policy, &entry.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("entry", entryID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}

	if err := s.loadShares(ctx, []*models.Entry{entry}); err != nil {
		return nil, err
	}
	return entry, nil
}

// ListEntries retrieves all entries of a group in creation order.
func (s *SQLiteStore) ListEntries(ctx context.Context, groupID string) ([]*models.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, payer, amount, memo, policy, created_at
		 FROM entries WHERE group_id = ? ORDER BY seq`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}

	var entries []*models.Entry
	for rows.Next() {
		entry := &models.Entry{}
		if err := rows.Scan(&entry.ID, &entry.GroupID, &entry.Payer, &entry.Amount, &entry.Memo, &entry.Policy, &entry.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}

	if err := s.loadShares(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// loadShares fills Shares and PaidStatus for the given entries.
func (s *SQLiteStore) loadShares(ctx context.Context, entries []*models.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	byID := make(map[string]*models.Entry, len(entries))
	ids := make([]string, len(entries))
	for i, entry := range entries {
		entry.Shares = make(map[string]float64)
		entry.PaidStatus = make(map[string]bool)
		byID[entry.ID] = entry
		ids[i] = entry.ID
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT entry_id, participant, share, paid FROM entry_shares WHERE entry_id IN ("+placeholders(len(ids))+")",
		stringArgs(ids)...,
	)
	if err != nil {
		return fmt.Errorf("failed to get entry shares: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entryID, participant string
		var share float64
		var paid bool
		if err := rows.Scan(&entryID, &participant, &share, &paid); err != nil {
			return fmt.Errorf("failed to scan entry share: %w", err)
		}
		entry := byID[entryID]
		entry.Shares[participant] = share
		entry.PaidStatus[participant] = paid
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate entry shares: %w", err)
	}
	return nil
}

// MarkPaid flags a participant's share of an entry as paid.
func (s *SQLiteStore) MarkPaid(ctx context.Context, entryID, participant string) (bool, error) {
	var paid bool
	err := s.db.QueryRowContext(ctx,
		"SELECT paid FROM entry_shares WHERE entry_id = ? AND participant = ?",
		entryID, participant,
	).Scan(&paid)
	if errors.Is(err, sql.ErrNoRows) {
		return false, notFound("entry share", entryID+"/"+participant)
	}
	if err != nil {
		return false, fmt.Errorf("failed to get entry share: %w", err)
	}
	if paid {
		return false, nil
	}

	_, err = s.db.ExecContext(ctx,
		"UPDATE entry_shares SET paid = 1 WHERE entry_id = ? AND participant = ?",
		entryID, participant,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark share paid: %w", err)
	}
	return true, nil
}

// MarkAllPaid flags a participant's unpaid shares across a group's entries,
// skipping entries the participant paid for.
func (s *SQLiteStore) MarkAllPaid(ctx context.Context, groupID, participant string) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT e.id FROM entries e JOIN entry_shares sh ON sh.entry_id = e.id
		 WHERE e.group_id = ? AND sh.participant = ? AND e.payer <> ? AND sh.paid = 0
		 ORDER BY e.seq`,
		groupID, participant, participant,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find unpaid shares: %w", err)
	}
	var entryIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan entry id: %w", err)
		}
		entryIDs = append(entryIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate unpaid shares: %w", err)
	}

	for _, id := range entryIDs {
		_, err := tx.ExecContext(ctx,
			"UPDATE entry_shares SET paid = 1 WHERE entry_id = ? AND participant = ?",
			id, participant,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to mark share paid: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return entryIDs, nil
}
