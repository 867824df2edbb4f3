package shutdown

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ideamans/playback-proxy-go/internal/perrors"
	"github.com/ideamans/playback-proxy-go/internal/types"
)

func TestFutureFiresOnce(t *testing.T) {
	f := NewFuture()
	select {
	case <-f.Done():
		t.Fatal("future fired before Fire() was called")
	default:
	}

	f.Fire()
	f.Fire() // must not panic

	select {
	case <-f.Done():
	default:
		t.Fatal("expected Done() to be closed after Fire()")
	}
}

type fakeSnapshotter struct {
	snapshotCalls int32
	saveCalls     int32
	saveErr       error
	lastInv       types.Inventory
}

func (f *fakeSnapshotter) Snapshot(entryURL string, device types.DeviceType) types.Inventory {
	atomic.AddInt32(&f.snapshotCalls, 1)
	return types.Inventory{EntryURL: entryURL, DeviceType: device}
}

func (f *fakeSnapshotter) Save(inv types.Inventory) error {
	atomic.AddInt32(&f.saveCalls, 1)
	f.lastInv = inv
	return f.saveErr
}

func TestSupervisorRunPersistsAndJoinsTasks(t *testing.T) {
	future := NewFuture()
	sup := NewSupervisor(future, nil)
	sup.DrainWait = 0

	store := &fakeSnapshotter{}
	sup.Store = store
	sup.EntryURL = "https://example.com/"
	sup.Device = types.DeviceDesktop

	var joined int32
	sup.Tasks = []func(){func() { atomic.AddInt32(&joined, 1) }}

	future.Fire()
	if err := sup.Run(); err != nil {
		t.Fatal(err)
	}

	if store.snapshotCalls != 1 {
		t.Errorf("Snapshot calls = %d, want 1", store.snapshotCalls)
	}
	if store.saveCalls != 1 {
		t.Errorf("Save calls = %d, want 1", store.saveCalls)
	}
	if joined != 1 {
		t.Errorf("joined = %d, want 1", joined)
	}
	if store.lastInv.EntryURL != "https://example.com/" {
		t.Errorf("EntryURL = %q", store.lastInv.EntryURL)
	}
}

func TestSupervisorRunPropagatesSaveErrorAsNonFatalKind(t *testing.T) {
	future := NewFuture()
	sup := NewSupervisor(future, nil)
	sup.DrainWait = 0
	sup.Store = &fakeSnapshotter{saveErr: errors.New("disk full")}

	future.Fire()
	err := sup.Run()
	if err == nil {
		t.Fatal("expected Run to propagate the Save error")
	}

	kind, ok := perrors.KindOf(err)
	if !ok {
		t.Fatal("expected a taxonomy error, got a plain error")
	}
	if kind != perrors.PersistenceFailed {
		t.Errorf("Kind = %v, want PersistenceFailed", kind)
	}
	if kind.Fatal() {
		t.Error("PersistenceFailed must not be classified as fatal: a shutdown-time save failure must not crash the process")
	}
}

func TestSupervisorRunWithoutStoreSkipsPersistence(t *testing.T) {
	future := NewFuture()
	sup := NewSupervisor(future, nil)
	sup.DrainWait = 0

	future.Fire()
	done := make(chan error, 1)
	go func() { done <- sup.Run() }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return without a Store")
	}
}
