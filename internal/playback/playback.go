// Package playback wires C1 (inventory.Load), C6 (transaction.Builder),
// C7 (match.Matcher) and C8 (stream.Play) into the playback proxy's
// request handler.
package playback

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ideamans/playback-proxy-go/internal/config"
	"github.com/ideamans/playback-proxy-go/internal/inventory"
	"github.com/ideamans/playback-proxy-go/internal/match"
	"github.com/ideamans/playback-proxy-go/internal/mitm"
	"github.com/ideamans/playback-proxy-go/internal/perrors"
	"github.com/ideamans/playback-proxy-go/internal/stream"
	"github.com/ideamans/playback-proxy-go/internal/transaction"
	"github.com/ideamans/playback-proxy-go/internal/types"
)

// Session holds one loaded inventory's playback-ready state: every
// Resource converted once into a Transaction at load time (C6), indexed
// for lookup (C7). Transactions are immutable after Load returns and may
// be served by many concurrent requests (§3).
type Session struct {
	Inventory *types.Inventory
	Matcher   *match.Matcher
	Logger    *slog.Logger
}

// Load reads the inventory at dir and builds every Transaction up front,
// so a slow re-minify or re-encode never happens on a request's hot path.
// session supplies the chunk size and idle-after-body defaults (nil uses
// the builder's own built-in defaults).
func Load(dir string, logger *slog.Logger, session *config.Session) (*Session, error) {
	inv, err := inventory.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("load inventory: %w", err)
	}

	builder := transaction.NewBuilder(dir)
	if session != nil {
		if session.Timing.ChunkSizeBytes > 0 {
			builder.ChunkSize = session.Timing.ChunkSizeBytes
		}
		builder.IdleAfterBodyMs = session.IdleAfterBodyDuration().Milliseconds()
	}

	txns := make([]*types.Transaction, 0, len(inv.Resources))
	for _, r := range inv.Resources {
		txn, err := builder.Build(r)
		if err != nil {
			if logger != nil {
				logger.Warn("skipping resource that failed to build", "method", r.Method, "url", r.URL, "error", err)
			}
			continue
		}
		txns = append(txns, txn)
	}

	return &Session{
		Inventory: inv,
		Matcher:   match.NewMatcher(txns),
		Logger:    logger,
	}, nil
}

// Handle implements mitm.Handler for the playback engine: match the
// inbound request against the prepared Transactions and replay the
// matched one's timing plan, or answer 404 with the
// X-Playback-Proxy: 1 marker when nothing matches (§4.7, §7 MatchNotFound).
func (s *Session) Handle(connID string, w http.ResponseWriter, r *http.Request) {
	t0 := time.Now()

	key := match.KeyFromRequest(r)
	txn := s.Matcher.Match(key)
	if txn == nil {
		err := perrors.New(perrors.MatchNotFound, "playback.Handle", nil)
		w.Header().Set("X-Playback-Proxy", "1")
		http.Error(w, "no recorded transaction matches this request", http.StatusNotFound)
		if s.Logger != nil {
			s.Logger.Warn("no match", "method", r.Method, "host", key.Host, "path", key.Path, "query", key.Query, "error", err)
		}
		return
	}

	w.Header().Set("X-Playback-Proxy", "1")
	if err := stream.Play(r.Context(), txn, w, t0); err != nil {
		if s.Logger != nil {
			s.Logger.Debug("playback stopped", "method", r.Method, "url", r.URL.String(), "error", err)
		}
	}
}

// OnConnState implements mitm.OnStateChange. Playback has no per-
// connection correlation state to release (that's a recording-only
// concern, C4), so this is a no-op kept only to satisfy the listener's
// optional hook uniformly across both engines.
func (s *Session) OnConnState(connID string, state mitm.ConnState) {}
