package inventory

import (
	"strings"
	"testing"
)

func TestContentPathBasic(t *testing.T) {
	got, err := ContentPath("GET", "https://example.com/app.js")
	if err != nil {
		t.Fatal(err)
	}
	want := "get/https/example.com/app.js"
	if got != want {
		t.Errorf("ContentPath() = %q, want %q", got, want)
	}
}

func TestContentPathRootBecomesIndex(t *testing.T) {
	got, err := ContentPath("GET", "http://example.com/")
	if err != nil {
		t.Fatal(err)
	}
	want := "get/http/example.com/index.html"
	if got != want {
		t.Errorf("ContentPath() = %q, want %q", got, want)
	}
}

func TestContentPathQuerySuffixShort(t *testing.T) {
	got, err := ContentPath("GET", "https://example.com/search?q=go")
	if err != nil {
		t.Fatal(err)
	}
	want := "get/https/example.com/search~q=go"
	if got != want {
		t.Errorf("ContentPath() = %q, want %q", got, want)
	}
}

func TestContentPathQuerySuffixOverflowsToDigest(t *testing.T) {
	longQuery := strings.Repeat("k=v&", 20)
	got, err := ContentPath("GET", "https://example.com/search?"+longQuery)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "~") {
		t.Fatalf("expected a query suffix in %q", got)
	}
	// The suffix after the path segment should be capped, not the raw query.
	if strings.Contains(got, longQuery) {
		t.Errorf("expected overflow digest, got raw query embedded: %q", got)
	}
}

func TestContentPathRejectsNoHost(t *testing.T) {
	if _, err := ContentPath("GET", "/relative/path"); err == nil {
		t.Error("expected an error for a host-less URL")
	}
}

func TestContentPathNeverEscapesContents(t *testing.T) {
	got, err := ContentPath("GET", "https://example.com/../../etc/passwd")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "..") {
		t.Errorf("ContentPath() = %q, must not contain traversal segments", got)
	}
}

func TestSanitizeSegmentReplacesUnsafeChars(t *testing.T) {
	got := sanitizeSegment("a b/c")
	if strings.ContainsAny(got, " /") {
		t.Errorf("sanitizeSegment() = %q, still contains unsafe chars", got)
	}
}

func TestSanitizeSegmentDotDot(t *testing.T) {
	if got := sanitizeSegment(".."); got == ".." {
		t.Errorf("sanitizeSegment(\"..\") must not return \"..\" unchanged, got %q", got)
	}
}
