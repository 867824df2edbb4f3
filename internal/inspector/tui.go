package inspector

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ideamans/playback-proxy-go/internal/types"
)

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		key := msg.String()

		if m.searchMode {
			switch key {
			case "esc":
				m.searchMode = false
			case "enter":
				m.searchMode = false
				m.filterResources()
				if m.cursor >= len(m.displayIndices()) {
					m.cursor = max(0, len(m.displayIndices())-1)
				}
			case "backspace":
				if len(m.searchQuery) > 0 {
					m.searchQuery = m.searchQuery[:len(m.searchQuery)-1]
					m.filterResources()
				}
			default:
				if len(key) == 1 {
					m.searchQuery += key
					m.filterResources()
				}
			}
			return m, nil
		}

		switch key {
		case "ctrl+c", "q":
			if m.showDetail {
				m.showDetail = false
				m.selected = nil
				return m, nil
			}
			return m, tea.Quit

		case "up", "k":
			if !m.showDetail && m.cursor > 0 {
				m.cursor--
			}

		case "down", "j":
			indices := m.displayIndices()
			if !m.showDetail && m.cursor < len(indices)-1 {
				m.cursor++
			}

		case "g", "home":
			if m.showDetail {
				m.viewport.GotoTop()
			} else {
				m.cursor = 0
			}

		case "G", "end":
			indices := m.displayIndices()
			if m.showDetail {
				m.viewport.GotoBottom()
			} else if len(indices) > 0 {
				m.cursor = len(indices) - 1
			}

		case "/":
			if !m.showDetail {
				m.searchMode = true
			}

		case "esc":
			if m.showDetail {
				m.showDetail = false
				m.selected = nil
			} else if m.searchQuery != "" {
				m.searchQuery = ""
				m.filtered = nil
				m.cursor = 0
			}

		case "enter":
			indices := m.displayIndices()
			if !m.showDetail && m.cursor < len(indices) {
				m.showDetail = true
				r := m.resources[indices[m.cursor]]
				m.selected = &r
				m.activeTab = tabRequest
				m.viewport.SetContent(m.renderTabContent())
				m.viewport.GotoTop()
			}

		case "tab", "l":
			if m.showDetail {
				m.activeTab = (m.activeTab + 1) % tabCount
				m.viewport.SetContent(m.renderTabContent())
				m.viewport.GotoTop()
			}

		case "shift+tab", "h":
			if m.showDetail {
				m.activeTab = (m.activeTab + tabCount - 1) % tabCount
				m.viewport.SetContent(m.renderTabContent())
				m.viewport.GotoTop()
			}

		case "c":
			if m.showDetail {
				m.copyActiveTab()
			}

		case "1":
			if m.sortField != SortByMethod {
				m.toggleSort(SortByMethod)
			} else if !m.showDetail {
				m.toggleSort(SortByMethod)
			}
		case "2":
			if !m.showDetail {
				m.toggleSort(SortByStatus)
			}
		case "3":
			if !m.showDetail {
				m.toggleSort(SortBySize)
			}
		case "4":
			if !m.showDetail {
				m.toggleSort(SortByTTFB)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		viewportHeight := m.height - 8
		if !m.ready {
			m.viewport = viewport.New(m.width-4, viewportHeight)
			m.viewport.Style = viewportStyle
			m.ready = true
		} else {
			m.viewport.Width = m.width - 4
			m.viewport.Height = viewportHeight
		}
		if m.showDetail {
			m.viewport.SetContent(m.renderTabContent())
		}
	}

	if m.showDetail {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m model) renderTabContent() string {
	if m.selected == nil {
		return ""
	}
	contentWidth := m.width - 10
	switch m.activeTab {
	case tabRequest:
		return renderRequestTab(m.inventoryDir, *m.selected, contentWidth)
	case tabResponse:
		return renderResponseTab(m.inventoryDir, *m.selected, contentWidth)
	default:
		return ""
	}
}

func (m model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.showDetail {
		return m.renderDetailView()
	}
	return m.renderListView()
}

func (m model) renderDetailView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s %s", m.selected.Method, m.selected.URL)))
	b.WriteString("\n")

	var tabs []string
	for t := tab(0); t < tabCount; t++ {
		style := inactiveTabStyle
		if t == m.activeTab {
			style = activeTabStyle
		}
		tabs = append(tabs, style.Render(t.String()))
	}
	b.WriteString(strings.Join(tabs, " "))
	b.WriteString("\n\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("tab/l/h: switch panel  c: copy  esc/q: back"))
	if m.copyMessage != "" {
		b.WriteString("  " + successStatusStyle.Render(m.copyMessage))
	}
	return b.String()
}

func (m model) renderListView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("playback-proxy inventory — %d resources", len(m.resources))))
	b.WriteString("\n")

	if m.searchMode {
		b.WriteString(fmt.Sprintf("search: %s_\n", m.searchQuery))
	} else if m.searchQuery != "" {
		b.WriteString(fmt.Sprintf("filter: %q (esc to clear)\n", m.searchQuery))
	}

	b.WriteString(statusBarStyle.Render("METHOD      STATUS   SIZE       TTFB     URL"))
	b.WriteString("\n")

	indices := m.displayIndices()
	for i, idx := range indices {
		r := m.resources[idx]
		line := fmt.Sprintf("%-10s  %-7s  %-9s  %-6dms  %s",
			r.Method,
			statusLabel(r),
			formatBytes(resourceSize(m.inventoryDir, r)),
			r.TTFBMs,
			r.URL,
		)
		if i == m.cursor {
			b.WriteString(selectedItemStyle.Render("> " + line))
		} else {
			b.WriteString(itemStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("j/k: move  enter: detail  /: search  1-4: sort method/status/size/ttfb  q: quit"))
	return b.String()
}

func statusLabel(r types.Resource) string {
	if r.ErrorMessage != nil {
		return "ERR"
	}
	if r.StatusCode != nil {
		return fmt.Sprintf("%d", *r.StatusCode)
	}
	return "-"
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
