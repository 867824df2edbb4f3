package mitm

import (
	"context"
)

// ConnState is the per-client-connection state machine from §4.3:
// Accepted -> (Plaintext | TlsNegotiating -> Tunnelled) -> Serving -> Closed.
type ConnState string

const (
	StateAccepted       ConnState = "accepted"
	StatePlaintext      ConnState = "plaintext"
	StateTlsNegotiating ConnState = "tls_negotiating"
	StateTunnelled      ConnState = "tunnelled"
	StateServing        ConnState = "serving"
	StateClosed         ConnState = "closed"
)

type connIDKey struct{}

// WithConnID attaches a connection identity to ctx, so downstream
// handlers (and the correlation layer) can key per-connection state by it.
func WithConnID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, connIDKey{}, id)
}

// ConnIDFromContext retrieves the connection identity WithConnID attached.
func ConnIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(connIDKey{}).(string)
	return id, ok
}
