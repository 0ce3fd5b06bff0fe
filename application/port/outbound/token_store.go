package outbound

import (
	"github.com/fixora/sessionkit/domain/valueobject"
)

// TokenStore persists the current token pair for the lifetime of the user
// session. Reads and writes are synchronous; semantic validation (expiry) is
// the caller's responsibility. Other processes never observe writes through
// the store itself, only through the broadcast channel.
type TokenStore interface {
	// Load returns the persisted pair, or (nil, nil) when none exists.
	// Structurally incomplete records are reported as errors.
	Load() (*valueobject.TokenPair, error)
	// Save replaces the persisted pair wholesale.
	Save(pair *valueobject.TokenPair) error
	// Clear removes the persisted pair. Clearing an empty store is a no-op.
	Clear() error
}
