package transaction

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ideamans/playback-proxy-go/internal/types"
)

func TestBuildFromContentUTF8(t *testing.T) {
	b := NewBuilder(t.TempDir())
	status := 200
	utf8Body := "hello world"
	r := types.Resource{
		Method:          "GET",
		URL:             "https://example.com/hello.txt",
		TTFBMs:          50,
		StatusCode:      &status,
		ContentUTF8:     &utf8Body,
		ContentTypeMime: "text/plain",
	}

	txn, err := b.Build(r)
	if err != nil {
		t.Fatal(err)
	}
	if txn.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", txn.StatusCode)
	}
	if txn.ContentLength != int64(len(utf8Body)) {
		t.Errorf("ContentLength = %d, want %d", txn.ContentLength, len(utf8Body))
	}
	if txn.RawHeaders.Get("content-length") == "" {
		t.Error("expected content-length header to be set")
	}
}

func TestBuildFromContentFilePath(t *testing.T) {
	dir := t.TempDir()
	rel := "get/https/example.com/index.html"
	full := filepath.Join(dir, "contents", rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte("<html>hi</html>"), 0o644); err != nil {
		t.Fatal(err)
	}

	b := NewBuilder(dir)
	status := 200
	r := types.Resource{
		Method:          "GET",
		URL:             "https://example.com/",
		StatusCode:      &status,
		ContentFilePath: &rel,
		ContentTypeMime: "text/html",
	}

	txn, err := b.Build(r)
	if err != nil {
		t.Fatal(err)
	}
	if txn.ContentLength != int64(len("<html>hi</html>")) {
		t.Errorf("ContentLength = %d", txn.ContentLength)
	}
}

func TestBuildErrorResourceHasNoChunks(t *testing.T) {
	b := NewBuilder(t.TempDir())
	msg := "connection refused"
	r := types.Resource{
		Method:       "GET",
		URL:          "https://example.com/down",
		ErrorMessage: &msg,
	}
	txn, err := b.Build(r)
	if err != nil {
		t.Fatal(err)
	}
	if txn.ErrorMessage != msg {
		t.Errorf("ErrorMessage = %q, want %q", txn.ErrorMessage, msg)
	}
	if len(txn.Chunks) != 0 {
		t.Errorf("expected no chunks for an empty body, got %d", len(txn.Chunks))
	}
}

func TestChunkBodyCumulativeFractionReachesTransferEnd(t *testing.T) {
	body := make([]byte, 50*1024)
	mbps := 8.0 // in the recorder's (bytes/ms)*8/1e6 unit: a sub-millisecond transfer, clamped to 1ms; just check monotonic + endpoint
	chunks := chunkBody(body, 100, &mbps, 16*1024)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].TargetTimeMs < chunks[i-1].TargetTimeMs {
			t.Errorf("chunk %d target time %d < chunk %d target time %d (not monotonic)",
				i, chunks[i].TargetTimeMs, i-1, chunks[i-1].TargetTimeMs)
		}
	}
	transferMs := transferDuration(len(body), &mbps)
	want := int64(100) + transferMs
	if got := chunks[len(chunks)-1].TargetTimeMs; got != want {
		t.Errorf("last chunk target = %d, want %d (ttfb + full transfer duration)", got, want)
	}
}

func TestChunkBodyDefaultsTransferDurationWithoutMBPS(t *testing.T) {
	body := []byte("short body")
	chunks := chunkBody(body, 20, nil, 16*1024)
	if len(chunks) != 1 {
		t.Fatalf("expected a single chunk, got %d", len(chunks))
	}
	if chunks[0].TargetTimeMs != 20+100 {
		t.Errorf("TargetTimeMs = %d, want %d", chunks[0].TargetTimeMs, 120)
	}
}

func TestChunkBodyEmptyProducesNoChunks(t *testing.T) {
	if chunks := chunkBody(nil, 10, nil, 16*1024); len(chunks) != 0 {
		t.Errorf("expected no chunks for an empty body, got %d", len(chunks))
	}
}

func TestBuildTargetCloseDefaultsToLastChunk(t *testing.T) {
	b := NewBuilder(t.TempDir())
	status := 200
	utf8Body := "hello world"
	r := types.Resource{
		Method:          "GET",
		URL:             "https://example.com/hello.txt",
		TTFBMs:          50,
		StatusCode:      &status,
		ContentUTF8:     &utf8Body,
		ContentTypeMime: "text/plain",
	}

	txn, err := b.Build(r)
	if err != nil {
		t.Fatal(err)
	}
	want := txn.Chunks[len(txn.Chunks)-1].TargetTimeMs
	if txn.TargetCloseTimeMs != want {
		t.Errorf("TargetCloseTimeMs = %d, want %d (last chunk, no idle wait configured)", txn.TargetCloseTimeMs, want)
	}
}

func TestBuildTargetCloseHonoursIdleAfterBody(t *testing.T) {
	b := NewBuilder(t.TempDir())
	b.IdleAfterBodyMs = 500
	status := 200
	utf8Body := "hi"
	r := types.Resource{
		Method:          "GET",
		URL:             "https://example.com/hi.txt",
		TTFBMs:          10,
		StatusCode:      &status,
		ContentUTF8:     &utf8Body,
		ContentTypeMime: "text/plain",
	}

	txn, err := b.Build(r)
	if err != nil {
		t.Fatal(err)
	}
	if txn.TargetCloseTimeMs != 10+500 {
		t.Errorf("TargetCloseTimeMs = %d, want %d (ttfb + idle_after_body, which exceeds the last chunk time for a tiny body)", txn.TargetCloseTimeMs, 510)
	}
}

func TestBuildTargetCloseHonoursExplicitCloseOffset(t *testing.T) {
	b := NewBuilder(t.TempDir())
	b.IdleAfterBodyMs = 500
	status := 200
	utf8Body := "hi"
	r := types.Resource{
		Method:          "GET",
		URL:             "https://example.com/hi.txt",
		TTFBMs:          10,
		CloseOffsetMs:   9999,
		StatusCode:      &status,
		ContentUTF8:     &utf8Body,
		ContentTypeMime: "text/plain",
	}

	txn, err := b.Build(r)
	if err != nil {
		t.Fatal(err)
	}
	if txn.TargetCloseTimeMs != 9999 {
		t.Errorf("TargetCloseTimeMs = %d, want the recorded explicit close offset 9999", txn.TargetCloseTimeMs)
	}
}
