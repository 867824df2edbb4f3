package record

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ideamans/playback-proxy-go/internal/inventory"
	"github.com/ideamans/playback-proxy-go/internal/upstream"
)

func newTestRecorder(t *testing.T) (*Recorder, *inventory.Store) {
	t.Helper()
	dir := t.TempDir()
	store, err := inventory.NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	client := upstream.NewClient(5 * time.Second)
	return NewRecorder(store, client, nil), store
}

func TestHandleRecordsSuccessfulResource(t *testing.T) {
	upstreamSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("hello from upstream"))
	}))
	defer upstreamSrv.Close()

	rec, store := newTestRecorder(t)

	req := httptest.NewRequest("GET", upstreamSrv.URL+"/path", nil)
	w := httptest.NewRecorder()
	rec.Handle("conn-1", w, req)

	if w.Code != 200 {
		t.Fatalf("client-facing status = %d, want 200", w.Code)
	}
	if w.Body.String() != "hello from upstream" {
		t.Errorf("client-facing body = %q", w.Body.String())
	}

	inv := store.Snapshot("", "")
	if len(inv.Resources) != 1 {
		t.Fatalf("expected 1 recorded resource, got %d", len(inv.Resources))
	}
	if inv.Resources[0].Succeeded() == false {
		t.Error("expected the recorded resource to have succeeded")
	}
}

func TestHandleRecordsUpstreamFailureAsErrorMessage(t *testing.T) {
	rec, store := newTestRecorder(t)

	req := httptest.NewRequest("GET", "http://127.0.0.1:1/unreachable", nil)
	w := httptest.NewRecorder()
	rec.Handle("conn-1", w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("client-facing status = %d, want 502", w.Code)
	}

	inv := store.Snapshot("", "")
	if len(inv.Resources) != 1 {
		t.Fatalf("expected 1 recorded resource, got %d", len(inv.Resources))
	}
	if inv.Resources[0].Succeeded() {
		t.Error("expected the recorded resource to have failed")
	}
}
