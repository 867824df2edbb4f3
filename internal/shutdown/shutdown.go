// Package shutdown implements C9: an abstract shutdown future that the
// process entry point fires on an OS signal, and that the rest of the
// process awaits without knowing where it came from.
package shutdown

import (
	"context"
	"log/slog"
	"time"

	"github.com/ideamans/playback-proxy-go/internal/inventory"
	"github.com/ideamans/playback-proxy-go/internal/perrors"
	"github.com/ideamans/playback-proxy-go/internal/types"
)

// Future is the single abstract shutdown event described in §4.9/§6: it
// fires once, from any source (signal handler, test harness, future
// control surface), and is awaited by Supervisor.Run.
type Future struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewFuture creates an unfired Future.
func NewFuture() *Future {
	ctx, cancel := context.WithCancel(context.Background())
	return &Future{ctx: ctx, cancel: cancel}
}

// Fire triggers the shutdown event. Safe to call more than once.
func (f *Future) Fire() { f.cancel() }

// Done returns a channel closed when the future fires, for use as a
// context.Context-shaped cancellation signal passed down to the listener.
func (f *Future) Done() <-chan struct{} { return f.ctx.Done() }

// Context returns the future's own context, cancelled on Fire.
func (f *Future) Context() context.Context { return f.ctx }

// Snapshotter is satisfied by a recording session's inventory store; kept
// as an interface so the supervisor works unmodified against playback
// sessions, which have nothing to persist.
type Snapshotter interface {
	Snapshot(entryURL string, device types.DeviceType) types.Inventory
	Save(inv types.Inventory) error
}

// Supervisor implements the four-step shutdown sequence from §4.9: stop
// accepting connections, wait briefly for in-flight work, persist the
// inventory (recording only), join tasks.
type Supervisor struct {
	Future *Future

	// DrainWait bounds how long to wait for in-flight upstream responses
	// to finish before persisting (§4.9 point 2, "seconds, bounded").
	DrainWait time.Duration

	Logger *slog.Logger

	// Store and EntryURL/Device are nil/zero for a playback session,
	// which has no inventory to persist.
	Store      Snapshotter
	EntryURL   string
	Device     types.DeviceType

	// Tasks are joined (awaited) after the drain wait and persistence
	// step, e.g. the listener's own Serve goroutine.
	Tasks []func()
}

// NewSupervisor builds a Supervisor with the §4.9 default drain wait.
func NewSupervisor(future *Future, logger *slog.Logger) *Supervisor {
	return &Supervisor{Future: future, DrainWait: time.Second, Logger: logger}
}

// Run blocks until the future fires, then executes the shutdown sequence
// in order. It never holds the inventory's lock while writing to disk:
// Snapshot clones under a short critical section and Save takes no lock
// at all (§4.9, §5).
func (s *Supervisor) Run() error {
	<-s.Future.Done()

	if s.Logger != nil {
		s.Logger.Info("shutdown requested, draining in-flight work")
	}

	if s.DrainWait > 0 {
		time.Sleep(s.DrainWait)
	}

	if s.Store != nil {
		snapshot := s.Store.Snapshot(s.EntryURL, s.Device)
		if err := s.Store.Save(snapshot); err != nil {
			if s.Logger != nil {
				s.Logger.Error("failed to persist inventory on shutdown", "error", err)
			}
			return perrors.New(perrors.PersistenceFailed, "shutdown.persistInventory", err)
		}
		if s.Logger != nil {
			s.Logger.Info("inventory persisted", "resources", len(snapshot.Resources))
		}
	}

	for _, join := range s.Tasks {
		join()
	}

	if s.Logger != nil {
		s.Logger.Info("shutdown complete")
	}
	return nil
}

var _ Snapshotter = (*inventory.Store)(nil)
