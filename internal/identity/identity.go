package identity

import (
	"context"
	"errors"
)

// Per-entry failure modes of the identity store. ErrNotFound is the expected
// signal used to choose create-vs-update; the rest are recorded per entry and
// the run continues.
var (
	ErrNotFound          = errors.New("identity not found")
	ErrDuplicateEmail    = errors.New("email already claimed by another identity")
	ErrInvalidCredential = errors.New("password rejected by provider policy")
	ErrClaimsTooLarge    = errors.New("claims payload exceeds provider cap")

	// ErrUnavailable marks transient provider failures (timeouts, rate
	// limits, 5xx). Callers may retry these.
	ErrUnavailable = errors.New("identity store unavailable")
)

// IsTransient reports whether the error is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// Record is an identity-store user as seen by the synchronizer. The provider
// hashes the password internally; it is never read back.
type Record struct {
	ID          string
	Email       string
	DisplayName string
	Claims      map[string]interface{}
}

// Store abstracts the external authentication provider's per-user CRUD.
type Store interface {
	// FindByID returns ErrNotFound when no identity exists for id.
	FindByID(ctx context.Context, id string) (*Record, error)
	Create(ctx context.Context, id, email, password, displayName string) (*Record, error)
	Update(ctx context.Context, id, email, password, displayName string) (*Record, error)
	// SetClaims replaces the full claims map (last-write-wins, no merge).
	SetClaims(ctx context.Context, id string, claims map[string]interface{}) error
}
