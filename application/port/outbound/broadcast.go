package outbound

import (
	"context"

	"github.com/fixora/sessionkit/domain/valueobject"
)

// EnvelopeKind discriminates broadcast messages.
type EnvelopeKind string

const (
	KindTokens EnvelopeKind = "tokens"
	KindLogout EnvelopeKind = "logout"
)

// Envelope is the JSON message exchanged between processes of the same user
// session. OriginID identifies the sending process so receivers can suppress
// their own echoes.
type Envelope struct {
	Kind      EnvelopeKind          `json:"kind"`
	OriginID  string                `json:"originId"`
	TokenPair *valueobject.TokenPair `json:"tokenPair,omitempty"`
}

// BroadcastPort is best-effort message passing between same-session processes
// through a shared, change-notifying channel. A process that is gone before a
// message lands simply misses it; every process re-validates token expiry on
// its own schedule, so missed messages are self-correcting.
type BroadcastPort interface {
	Publish(ctx context.Context, env Envelope) error
	// Subscribe registers the handler for incoming envelopes. Handlers run on
	// the port's receive goroutine and must not block.
	Subscribe(handler func(Envelope))
	Close() error
}
