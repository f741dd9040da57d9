// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/mmynk/budgetwise/internal/models"
)

// Store defines the interface for ledger storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the ledger or service layers.
//
// Lookups of missing records return an error wrapping models.ErrNotFound.
// Methods that touch more than one record commit them atomically.
type Store interface {
	// CreateGroup persists a group and its participants.
	// The group.ID and group.CreatedAt fields are populated by the store when empty.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group by its ID.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// ListGroupsByParticipant returns every group the user belongs to, newest first.
	ListGroupsByParticipant(ctx context.Context, userID string) ([]*models.Group, error)

	// ApplyEntry persists a new entry together with the balance changes it causes.
	// Either all of them are committed or none is.
	ApplyEntry(ctx context.Context, entry *models.Entry, deltas []models.BalanceDelta) error

	// GetEntry retrieves an entry of a group.
	GetEntry(ctx context.Context, groupID, entryID string) (*models.Entry, error)

	// ListEntries returns a group's entries in creation order.
	ListEntries(ctx context.Context, groupID string) ([]*models.Entry, error)

	// MarkPaid flags participant's share of an entry as paid.
	// It reports whether the flag changed; re-marking is not an error.
	MarkPaid(ctx context.Context, entryID, participant string) (bool, error)

	// MarkAllPaid flags participant's share as paid on every entry of the group
	// where they are a non-payer shareholder, returning the entries that changed.
	MarkAllPaid(ctx context.Context, groupID, participant string) ([]string, error)

	// ApplyPayment persists a payment together with its balance change atomically.
	ApplyPayment(ctx context.Context, payment *models.Payment, delta models.BalanceDelta) error

	// ListPayments returns a group's payments in creation order.
	ListPayments(ctx context.Context, groupID string) ([]*models.Payment, error)

	// ListBalances returns the stored pairwise balances of a group.
	ListBalances(ctx context.Context, groupID string) ([]models.Balance, error)

	// CreateUser inserts a new user account.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail retrieves a user by email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// GetUsersByIDs retrieves several users; unknown IDs are omitted.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)

	// Close releases any resources held by the store.
	Close() error
}
