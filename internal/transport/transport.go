// Package transport defines the adapters that move session messages between
// the two participants of a two-player match.
package transport

import (
	"context"

	"ctchen222/galactic-tictactoe/internal/session"
	"ctchen222/galactic-tictactoe/pkg/proto"
)

// Transport is a session.Transport that also feeds the peer's messages back.
// An instance serves one participant; a room creates its own through a Factory.
type Transport interface {
	session.Transport
	// Subscribe calls deliver for every message from the peer until ctx is
	// done or the session disappears.
	Subscribe(ctx context.Context, code string, deliver func(*proto.Message)) error
}

// Factory creates a Transport for one participant.
type Factory func() Transport
