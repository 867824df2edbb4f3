package inspector

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/ideamans/playback-proxy-go/internal/types"
)

var markdownRenderers = make(map[int]*glamour.TermRenderer)

func getMarkdownRenderer(width int) *glamour.TermRenderer {
	if r, ok := markdownRenderers[width]; ok {
		return r
	}
	style := glamour.WithStandardStyle("dark")
	if !lipgloss.HasDarkBackground() {
		style = glamour.WithStandardStyle("light")
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width), glamour.WithColorProfile(lipgloss.ColorProfile()))
	if err != nil {
		return nil
	}
	markdownRenderers[width] = r
	return r
}

func renderMarkdown(content string, width int) string {
	if content == "" {
		return ""
	}
	r := getMarkdownRenderer(width)
	if r == nil {
		return wordwrap.String(content, width)
	}
	out, err := r.Render(content)
	if err != nil {
		return wordwrap.String(content, width)
	}
	return strings.TrimSpace(out)
}

// highlight applies chroma syntax highlighting for lexerName, falling
// back to the raw string if the lexer or formatter can't be found.
func highlight(s, lexerName string, width int) string {
	lexer := lexers.Get(lexerName)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get("dracula")
	if style == nil {
		style = styles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, s)
	if err != nil {
		return s
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return s
	}
	out := buf.String()
	if width > 0 {
		out = wordwrap.String(out, width)
	}
	return out
}

// renderBody formats a resolved resource body according to its recorded
// MIME type: JSON/XML/SVG/CSS/JavaScript get chroma highlighting,
// HTML/Markdown get glamour rendering, everything else is wrapped as plain
// text.
func renderBody(body []byte, mimeType string, width int) string {
	if len(body) == 0 {
		return helpStyle.Render("(empty body)")
	}
	s := string(body)
	switch {
	case strings.Contains(mimeType, "json"):
		return highlight(s, "json", width)
	case strings.Contains(mimeType, "xml") || strings.Contains(mimeType, "svg"):
		return highlight(s, "xml", width)
	case strings.Contains(mimeType, "html") || strings.Contains(mimeType, "markdown"):
		return renderMarkdown(s, width)
	case strings.Contains(mimeType, "css"):
		return highlight(s, "css", width)
	case strings.Contains(mimeType, "javascript"):
		return highlight(s, "javascript", width)
	default:
		return wordwrap.String(s, width)
	}
}

// resolveBody reads a resource's body from disk/inline storage the same
// way the transaction builder does, for display purposes only (never
// re-minified or re-encoded here).
func resolveBody(inventoryDir string, r types.Resource) ([]byte, error) {
	if r.ContentFilePath != nil {
		return os.ReadFile(filepath.Join(inventoryDir, "contents", *r.ContentFilePath))
	}
	if r.ContentBase64 != nil {
		return decodeBase64(*r.ContentBase64)
	}
	if r.ContentUTF8 != nil {
		return []byte(*r.ContentUTF8), nil
	}
	return nil, nil
}

func renderHeaders(h types.Headers) string {
	if len(h) == 0 {
		return helpStyle.Render("(no headers)")
	}
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		values := h[name].Values()
		b.WriteString(labelStyle.Render(name))
		b.WriteString(": ")
		b.WriteString(strings.Join(values, ", "))
		b.WriteString("\n")
	}
	return b.String()
}

func renderRequestTab(inventoryDir string, r types.Resource, width int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n\n", labelStyle.Render(r.Method), r.URL)
	b.WriteString(renderHeaders(r.RawHeaders))
	return b.String()
}

func renderResponseTab(inventoryDir string, r types.Resource, width int) string {
	var b strings.Builder
	status := "(no response)"
	if r.StatusCode != nil {
		status = fmt.Sprintf("%d", *r.StatusCode)
	}
	if r.ErrorMessage != nil {
		fmt.Fprintf(&b, "%s %s\n\n", labelStyle.Render("error"), *r.ErrorMessage)
	}
	fmt.Fprintf(&b, "%s %s  %s %dms  %s %s\n\n",
		labelStyle.Render("status"), status,
		labelStyle.Render("ttfb"), r.TTFBMs,
		labelStyle.Render("contentType"), r.ContentTypeMime,
	)
	b.WriteString(renderHeaders(r.RawHeaders))
	b.WriteString("\n")

	body, err := resolveBody(inventoryDir, r)
	if err != nil {
		b.WriteString(helpStyle.Render(fmt.Sprintf("(failed to read body: %v)", err)))
		return b.String()
	}
	b.WriteString(renderBody(body, r.ContentTypeMime, width))
	return b.String()
}
