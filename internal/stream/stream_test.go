package stream

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ideamans/playback-proxy-go/internal/types"
)

func TestPlayWritesHeadersBodyAndStatus(t *testing.T) {
	txn := &types.Transaction{
		StatusCode: 201,
		RawHeaders: types.Headers{"content-type": types.NewHeaderValue("text/plain")},
		Chunks: []types.BodyChunk{
			{Bytes: []byte("hello "), TargetTimeMs: 0},
			{Bytes: []byte("world"), TargetTimeMs: 0},
		},
	}

	rec := httptest.NewRecorder()
	if err := Play(context.Background(), txn, rec, time.Now()); err != nil {
		t.Fatal(err)
	}

	if rec.Code != 201 {
		t.Errorf("status = %d, want 201", rec.Code)
	}
	if rec.Body.String() != "hello world" {
		t.Errorf("body = %q, want %q", rec.Body.String(), "hello world")
	}
	if rec.Header().Get("Content-Type") != "text/plain" {
		t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
	}
}

func TestPlayDefaultsStatusCodeToOK(t *testing.T) {
	txn := &types.Transaction{}
	rec := httptest.NewRecorder()
	if err := Play(context.Background(), txn, rec, time.Now()); err != nil {
		t.Fatal(err)
	}
	if rec.Code != 200 {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestPlayErrorMessageWritesBadGateway(t *testing.T) {
	txn := &types.Transaction{ErrorMessage: "upstream unreachable"}
	rec := httptest.NewRecorder()
	if err := Play(context.Background(), txn, rec, time.Now()); err != nil {
		t.Fatal(err)
	}
	if rec.Code != 502 {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestPlayRespectsTTFBDelay(t *testing.T) {
	txn := &types.Transaction{TTFBMs: 40}
	rec := httptest.NewRecorder()
	start := time.Now()
	if err := Play(context.Background(), txn, rec, start); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 35*time.Millisecond {
		t.Errorf("elapsed = %v, expected at least ~40ms TTFB delay", elapsed)
	}
}

func TestPlayStopsOnContextCancellation(t *testing.T) {
	txn := &types.Transaction{TTFBMs: 10_000}
	rec := httptest.NewRecorder()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := Play(ctx, txn, rec, time.Now())
	if err == nil {
		t.Error("expected an error when the context is cancelled mid-wait")
	}
}
