package inspector

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ideamans/playback-proxy-go/internal/types"
)

func statusPtr(i int) *int { return &i }

func sampleResources() []types.Resource {
	return []types.Resource{
		{Method: "GET", URL: "https://example.com/a", StatusCode: statusPtr(200), TTFBMs: 30},
		{Method: "POST", URL: "https://example.com/b", StatusCode: statusPtr(404), TTFBMs: 10},
		{Method: "GET", URL: "https://example.com/search", StatusCode: statusPtr(500), TTFBMs: 20},
	}
}

func TestDisplayIndicesNoFilterNoSort(t *testing.T) {
	m := model{resources: sampleResources()}
	got := m.displayIndices()
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, idx := range got {
		if idx != i {
			t.Errorf("displayIndices()[%d] = %d, want %d (identity order)", i, idx, i)
		}
	}
}

func TestDisplayIndicesSortByTTFBAscending(t *testing.T) {
	m := model{resources: sampleResources(), sortField: SortByTTFB, sortDirection: sortAsc}
	got := m.displayIndices()
	want := []int{1, 2, 0} // ttfb 10, 20, 30
	for i, idx := range got {
		if idx != want[i] {
			t.Errorf("got %v, want %v", got, want)
			break
		}
	}
}

func TestDisplayIndicesSortByMethodDescending(t *testing.T) {
	m := model{resources: sampleResources(), sortField: SortByMethod, sortDirection: sortDesc}
	got := m.displayIndices()
	if m.resources[got[0]].Method != "POST" {
		t.Errorf("expected POST to sort first descending, got %v", got)
	}
}

func TestFilterResourcesMatchesURLOrMethod(t *testing.T) {
	m := model{resources: sampleResources()}
	m.searchQuery = "search"
	m.filterResources()
	if len(m.filtered) != 1 {
		t.Fatalf("filtered = %v, want 1 match", m.filtered)
	}
	if m.resources[m.filtered[0]].URL != "https://example.com/search" {
		t.Errorf("matched wrong resource: %+v", m.resources[m.filtered[0]])
	}
}

func TestFilterResourcesEmptyQueryClearsFilter(t *testing.T) {
	m := model{resources: sampleResources(), filtered: []int{0}}
	m.searchQuery = ""
	m.filterResources()
	if m.filtered != nil {
		t.Errorf("expected filtered to be cleared, got %v", m.filtered)
	}
}

func TestToggleSortCyclesAscDescNone(t *testing.T) {
	m := model{}
	m.toggleSort(SortByStatus)
	if m.sortField != SortByStatus || m.sortDirection != sortAsc {
		t.Errorf("after first toggle: field=%v dir=%v", m.sortField, m.sortDirection)
	}
	m.toggleSort(SortByStatus)
	if m.sortDirection != sortDesc {
		t.Errorf("after second toggle: dir=%v, want desc", m.sortDirection)
	}
	m.toggleSort(SortByStatus)
	if m.sortField != SortByNone {
		t.Errorf("after third toggle: field=%v, want none", m.sortField)
	}
}

func TestStatusCodeOfHandlesNilStatus(t *testing.T) {
	if got := statusCodeOf(types.Resource{}); got != 0 {
		t.Errorf("statusCodeOf(nil status) = %d, want 0", got)
	}
	if got := statusCodeOf(types.Resource{StatusCode: statusPtr(204)}); got != 204 {
		t.Errorf("statusCodeOf() = %d, want 204", got)
	}
}

func TestResourceSizeFromFile(t *testing.T) {
	dir := t.TempDir()
	rel := "get/https/example.com/index.html"
	full := filepath.Join(dir, "contents", rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte("12345"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := types.Resource{ContentFilePath: &rel}
	if got := resourceSize(dir, r); got != 5 {
		t.Errorf("resourceSize() = %d, want 5", got)
	}
}

func TestResourceSizeFromInlineBase64(t *testing.T) {
	b64 := "aGVsbG8=" // arbitrary; only length matters here
	r := types.Resource{ContentBase64: &b64}
	if got := resourceSize("", r); got != int64(len(b64)) {
		t.Errorf("resourceSize() = %d, want %d", got, len(b64))
	}
}

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		n    int64
		want string
	}{
		{500, "500 B"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
	}
	for _, c := range cases {
		if got := formatBytes(c.n); got != c.want {
			t.Errorf("formatBytes(%d) = %q, want %q", c.n, got, c.want)
		}
	}
}
