// Package stream implements C8: replaying a Transaction's timing plan
// against a live connection. It sleeps to the recorded deadlines rather
// than writing everything immediately, so a client measuring TTFB and
// chunk arrival sees the same cadence as the original recording.
package stream

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ideamans/playback-proxy-go/internal/mitm"
	"github.com/ideamans/playback-proxy-go/internal/perrors"
	"github.com/ideamans/playback-proxy-go/internal/types"
)

// Play writes txn to w, pacing the status line, headers and each body
// chunk to land at t0 + its recorded offset (§4.8). t0 is the instant the
// inbound request was accepted, so ttfb_ms and the chunk/close offsets
// are all relative to it.
//
// A write failure (the client went away) is reported as a
// ClientDisconnected error and playback of this transaction stops
// silently; callers must not retry or log it as a proxy fault.
func Play(ctx context.Context, txn *types.Transaction, w http.ResponseWriter, t0 time.Time) error {
	if err := sleepUntil(ctx, t0, txn.TTFBMs); err != nil {
		return err
	}

	if txn.ErrorMessage != "" {
		http.Error(w, txn.ErrorMessage, http.StatusBadGateway)
		return nil
	}

	header := w.Header()
	for name, hv := range txn.RawHeaders {
		for _, v := range hv.Values() {
			header.Add(name, v)
		}
	}
	mitm.RemoveHopByHopHeaders(header)

	status := txn.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	for _, chunk := range txn.Chunks {
		if err := sleepUntil(ctx, t0, chunk.TargetTimeMs); err != nil {
			return err
		}
		if _, err := w.Write(chunk.Bytes); err != nil {
			return perrors.New(perrors.ClientDisconnected, "stream.Play", err)
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	if err := sleepUntil(ctx, t0, txn.TargetCloseTimeMs); err != nil {
		return err
	}

	return nil
}

// sleepUntil blocks until t0+offsetMs, or returns early if ctx is
// cancelled (the listener is shutting down or the client disconnected).
func sleepUntil(ctx context.Context, t0 time.Time, offsetMs int64) error {
	deadline := t0.Add(time.Duration(offsetMs) * time.Millisecond)
	d := time.Until(deadline)
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return perrors.New(perrors.ClientDisconnected, "stream.sleepUntil", fmt.Errorf("context done while waiting: %w", ctx.Err()))
	}
}
