package ledger

import (
	"context"
	"errors"
	"strings"

	"github.com/mmynk/budgetwise/internal/models"
)

// IdentityResolver turns an invitee identifier (email or user ID) into a
// participant ID. Unknown identifiers return an error wrapping
// models.ErrNotFound.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, identifier string) (string, error)
}

// UserLookup is the subset of the store a UserDirectory needs.
type UserLookup interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// UserDirectory resolves identifiers against registered users. Identifiers
// containing "@" are treated as emails, anything else as a user ID.
type UserDirectory struct {
	users UserLookup
}

// NewUserDirectory creates a resolver backed by users.
func NewUserDirectory(users UserLookup) *UserDirectory {
	return &UserDirectory{users: users}
}

// ResolveIdentity implements IdentityResolver.
func (d *UserDirectory) ResolveIdentity(ctx context.Context, identifier string) (string, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return "", errors.Join(models.ErrNotFound, errors.New("empty identifier"))
	}

	var user *models.User
	var err error
	if strings.Contains(identifier, "@") {
		user, err = d.users.GetUserByEmail(ctx, identifier)
	} else {
		user, err = d.users.GetUserByID(ctx, identifier)
	}
	if err != nil {
		return "", err
	}
	return user.ID, nil
}
