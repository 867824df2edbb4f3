package inspector

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ideamans/playback-proxy-go/internal/types"
)

func TestPlainHeadersSortedAndJoined(t *testing.T) {
	h := types.Headers{
		"content-type": types.NewHeaderValue("text/html"),
		"set-cookie":   types.NewHeaderValue("a=1", "b=2"),
	}
	out := plainHeaders(h)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %v, want 2", lines)
	}
	if lines[0] != "content-type: text/html" {
		t.Errorf("first line = %q", lines[0])
	}
	if lines[1] != "set-cookie: a=1, b=2" {
		t.Errorf("second line = %q", lines[1])
	}
}

func TestRenderPlainRequestIncludesMethodAndURL(t *testing.T) {
	r := types.Resource{Method: "GET", URL: "https://example.com/a"}
	out := renderPlainRequest(r)
	if !strings.HasPrefix(out, "GET https://example.com/a\n") {
		t.Errorf("renderPlainRequest() = %q", out)
	}
}

func TestRenderPlainResponseIncludesStatusAndBody(t *testing.T) {
	dir := t.TempDir()
	rel := "get/https/example.com/a"
	full := filepath.Join(dir, "contents", rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte("body content"), 0o644); err != nil {
		t.Fatal(err)
	}

	status := 200
	r := types.Resource{StatusCode: &status, ContentFilePath: &rel}
	out := renderPlainResponse(dir, r)
	if !strings.Contains(out, "HTTP 200") {
		t.Errorf("expected status line, got %q", out)
	}
	if !strings.Contains(out, "body content") {
		t.Errorf("expected body content, got %q", out)
	}
}

func TestRenderPlainResponseIncludesErrorMessage(t *testing.T) {
	msg := "connection refused"
	r := types.Resource{ErrorMessage: &msg}
	out := renderPlainResponse("", r)
	if !strings.Contains(out, "error: connection refused") {
		t.Errorf("expected error line, got %q", out)
	}
}

func TestCopyActiveTabWithNoSelectionSetsMessage(t *testing.T) {
	m := &model{}
	m.copyActiveTab()
	if m.copyMessage != "no resource selected" {
		t.Errorf("copyMessage = %q", m.copyMessage)
	}
}
