// Package inspector is a read-only operator TUI over a recorded
// inventory: a sortable/searchable resource list and a detail pane that
// syntax-highlights JSON/XML and renders HTML/Markdown bodies, adapted
// from the teacher's live request browser to browse Resources instead of
// LLM calls. It never runs during a recording or playback session.
package inspector

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ideamans/playback-proxy-go/internal/types"
)

// tab indexes the detail pane's panels.
type tab int

const (
	tabRequest tab = iota
	tabResponse
	tabCount
)

func (t tab) String() string {
	switch t {
	case tabRequest:
		return "Request"
	case tabResponse:
		return "Response"
	default:
		return "?"
	}
}

// SortField is a column the resource list can be ordered by.
type SortField int

const (
	SortByNone SortField = iota
	SortByMethod
	SortByStatus
	SortBySize
	SortByTTFB
)

type sortDirection int

const (
	sortAsc sortDirection = iota
	sortDesc
)

// model is the bubbletea Model for the inspector. One model instance is
// created per `playbackproxy inspect <dir>` invocation.
type model struct {
	inventoryDir string
	resources    []types.Resource

	cursor    int
	width     int
	height    int
	ready     bool
	viewport  viewport.Model
	activeTab tab

	showDetail bool
	selected   *types.Resource

	searchMode  bool
	searchQuery string
	filtered    []int // indices into resources

	sortField     SortField
	sortDirection sortDirection

	copyMessage string
}

// NewModel builds the inspector's initial model over an already-loaded
// inventory (C1's inventory.Load has already run by the time this is
// constructed).
func NewModel(inventoryDir string, resources []types.Resource) tea.Model {
	return model{
		inventoryDir:  inventoryDir,
		resources:     resources,
		sortField:     SortByNone,
		sortDirection: sortAsc,
	}
}

func (m model) Init() tea.Cmd {
	return tea.EnterAltScreen
}

// displayIndices returns the indices (into m.resources) to show, filtered
// by search and ordered by the active sort.
func (m model) displayIndices() []int {
	var indices []int
	if m.searchQuery == "" {
		indices = make([]int, len(m.resources))
		for i := range m.resources {
			indices[i] = i
		}
	} else {
		indices = append([]int(nil), m.filtered...)
	}

	if m.sortField == SortByNone {
		return indices
	}

	sorted := append([]int(nil), indices...)
	sort.SliceStable(sorted, func(a, b int) bool {
		ra, rb := m.resources[sorted[a]], m.resources[sorted[b]]
		less := m.less(ra, rb)
		if m.sortDirection == sortDesc {
			return !less
		}
		return less
	})
	return sorted
}

func (m model) less(a, b types.Resource) bool {
	switch m.sortField {
	case SortByMethod:
		return a.Method < b.Method
	case SortByStatus:
		return statusCodeOf(a) < statusCodeOf(b)
	case SortBySize:
		return resourceSize(m.inventoryDir, a) < resourceSize(m.inventoryDir, b)
	case SortByTTFB:
		return a.TTFBMs < b.TTFBMs
	default:
		return false
	}
}

func statusCodeOf(r types.Resource) int {
	if r.StatusCode != nil {
		return *r.StatusCode
	}
	return 0
}

// resourceSize reports a resource's stored body size: the file size on
// disk, or the length of the inline field as stored (for content_base64,
// the encoded text, not the decoded bytes). It never reads file contents
// (stat only) so sorting a large inventory stays cheap.
func resourceSize(inventoryDir string, r types.Resource) int64 {
	if r.ContentFilePath != nil {
		if fi, err := os.Stat(filepath.Join(inventoryDir, "contents", *r.ContentFilePath)); err == nil {
			return fi.Size()
		}
		return 0
	}
	if r.ContentBase64 != nil {
		return int64(len(*r.ContentBase64))
	}
	if r.ContentUTF8 != nil {
		return int64(len(*r.ContentUTF8))
	}
	return 0
}

func (m *model) filterResources() {
	if m.searchQuery == "" {
		m.filtered = nil
		return
	}
	query := strings.ToLower(m.searchQuery)
	m.filtered = m.filtered[:0]
	for i, r := range m.resources {
		text := strings.ToLower(r.Method + " " + r.URL)
		if strings.Contains(text, query) {
			m.filtered = append(m.filtered, i)
		}
	}
}

func (m *model) toggleSort(field SortField) {
	if m.sortField == field {
		if m.sortDirection == sortAsc {
			m.sortDirection = sortDesc
		} else {
			m.sortField = SortByNone
		}
	} else {
		m.sortField = field
		m.sortDirection = sortAsc
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
