// Package auth issues and checks the credentials behind RPC calls and
// websocket connect actions.
package auth

import (
	"context"

	"github.com/mmynk/budgetwise/internal/models"
)

// Authenticator creates accounts and verifies credentials. The credential
// format depends on the implementation.
type Authenticator interface {
	// Register creates an account. It fails with ErrEmailExists when the
	// email is taken.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate returns the user owning email when credential matches.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential checks the credential against the implementation's rules.
	ValidateCredential(credential string) error
}
