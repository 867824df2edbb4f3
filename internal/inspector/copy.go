package inspector

import (
	"fmt"
	"sort"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/ideamans/playback-proxy-go/internal/types"
)

// copyActiveTab copies the currently displayed panel (request or
// response, headers and body) to the clipboard, generalising the
// teacher's per-tab copy command to the two panels this inspector has.
func (m *model) copyActiveTab() {
	if m.selected == nil {
		m.copyMessage = "no resource selected"
		return
	}

	var text string
	switch m.activeTab {
	case tabRequest:
		text = renderPlainRequest(*m.selected)
	case tabResponse:
		text = renderPlainResponse(m.inventoryDir, *m.selected)
	}

	if text == "" {
		m.copyMessage = "nothing to copy"
		return
	}
	if err := clipboard.WriteAll(text); err != nil {
		m.copyMessage = fmt.Sprintf("clipboard error: %v", err)
		return
	}
	m.copyMessage = fmt.Sprintf("copied %s", m.activeTab)
}

func renderPlainRequest(r types.Resource) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", r.Method, r.URL)
	b.WriteString(plainHeaders(r.RawHeaders))
	return b.String()
}

func renderPlainResponse(inventoryDir string, r types.Resource) string {
	var b strings.Builder
	if r.StatusCode != nil {
		fmt.Fprintf(&b, "HTTP %d\n", *r.StatusCode)
	}
	if r.ErrorMessage != nil {
		fmt.Fprintf(&b, "error: %s\n", *r.ErrorMessage)
	}
	b.WriteString(plainHeaders(r.RawHeaders))
	b.WriteString("\n")

	body, err := resolveBody(inventoryDir, r)
	if err == nil {
		b.Write(body)
	}
	return b.String()
}

func plainHeaders(h types.Headers) string {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%s: %s\n", name, strings.Join(h[name].Values(), ", "))
	}
	return b.String()
}
