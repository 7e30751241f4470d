// # cmd/docgraph/ui.go
package main

import (
	"docgraph/internal/model"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

type item struct {
	title, desc string
	isWarning   bool
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title + i.desc }

type uiModel struct {
	list        list.Model
	lastUpdate  time.Time
	moduleCount int
	objectCount int
	warnings    int
}

type updateMsg struct {
	items       []list.Item
	moduleCount int
	objectCount int
	warnings    int
}

// snapshotFromRoot flattens a processed tree into the browsable item list:
// every object in walk order, then the warnings.
func snapshotFromRoot(root *model.TreeRoot) updateMsg {
	items := []list.Item{}
	for _, mod := range root.RootModules {
		model.Walk(mod, func(ob model.ApiObject) {
			desc := ob.Location().String()
			if cls, ok := ob.(*model.Class); ok && len(cls.Bases) > 0 {
				desc += "  (" + strings.Join(cls.Bases, ", ") + ")"
			}
			items = append(items, item{
				title: fmt.Sprintf("%s %s", ob.Kind(), ob.FullName()),
				desc:  desc,
			})
		})
	}

	warnings := 0
	for _, d := range root.Diagnostics() {
		if d.Severity < model.SeverityWarning {
			continue
		}
		warnings++
		items = append(items, item{
			title:     "Warning: " + d.Message,
			desc:      d.Location.String(),
			isWarning: true,
		})
	}

	return updateMsg{
		items:       items,
		moduleCount: len(root.RootModules),
		objectCount: root.AllObjects.Len(),
		warnings:    warnings,
	}
}

func (m uiModel) Init() tea.Cmd {
	return nil
}

func (m uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v-4)
	case updateMsg:
		m.moduleCount = msg.moduleCount
		m.objectCount = msg.objectCount
		m.warnings = msg.warnings
		m.lastUpdate = time.Now()
		m.list.SetItems(msg.items)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m uiModel) View() string {
	status := statusStyle.Render(fmt.Sprintf("Last update: %v | %d modules | %d objects",
		m.lastUpdate.Format("15:04:05"), m.moduleCount, m.objectCount))

	var summary string
	if m.warnings == 0 {
		summary = successStyle.Render("✅ Clean build")
	} else {
		summary = warningStyle.Render(fmt.Sprintf("⚠️  %d Warnings", m.warnings))
	}

	header := fmt.Sprintf("%s\n%s | %s\n", titleStyle("Object Tree Browser"), status, summary)
	return docStyle.Render(header + "\n" + m.list.View())
}

func initialModel() uiModel {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Objects"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)

	return uiModel{
		list:       l,
		lastUpdate: time.Now(),
	}
}
