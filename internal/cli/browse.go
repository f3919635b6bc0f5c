package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/heapscope/pkg/heap"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// browseOpts holds the command-line flags for the browse command.
type browseOpts struct {
	maxPaths int    // reference paths per instance (0 = config default)
	format   string // dump format override
	noCache  bool
	refresh  bool
}

// browseCommand creates the browse command, an interactive terminal
// browser over a snapshot: types, their instances, and the retention
// chains of each instance.
func (c *CLI) browseCommand() *cobra.Command {
	opts := browseOpts{}

	cmd := &cobra.Command{
		Use:   "browse <dump>",
		Short: "Browse a heap dump interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.maxPaths == 0 {
				opts.maxPaths = c.Config.MaxPaths
			}
			return c.runBrowse(cmd, args[0], &opts)
		},
	}

	cmd.Flags().IntVar(&opts.maxPaths, "max-paths", 0, "reference paths shown per instance")
	cmd.Flags().StringVar(&opts.format, "format", "", "dump format (auto-detected if empty)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the graph cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "reparse the dump, bypassing the cache")

	return cmd
}

func (c *CLI) runBrowse(cmd *cobra.Command, dumpPath string, opts *browseOpts) error {
	result, err := c.loadSnapshot(cmd, dumpPath, opts.format, opts.noCache, opts.refresh)
	if err != nil {
		return err
	}

	model := newBrowseModel(result.Snapshot, opts.maxPaths)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("browse: %w", err)
	}
	return nil
}

// =============================================================================
// BrowseModel - Interactive snapshot browser
// =============================================================================

// browseView identifies the drill-down level the browser is showing.
type browseView int

const (
	viewTypes browseView = iota
	viewInstances
	viewPaths
)

// BrowseModel is the bubbletea model for the snapshot browser. It
// drills from the type list into a type's instances and from an
// instance into its retention chains; esc backs out one level.
type BrowseModel struct {
	Snapshot *heap.Snapshot
	MaxPaths int

	Level  browseView
	Height int

	Types  []heap.TypeStats
	Cursor int
	Offset int

	Instances  []heap.NodeID
	InstCursor int
	InstOffset int

	Paths []string
}

// newBrowseModel creates a browser positioned on the type list.
func newBrowseModel(s *heap.Snapshot, maxPaths int) BrowseModel {
	return BrowseModel{
		Snapshot: s,
		MaxPaths: maxPaths,
		Types:    s.TypeStatistics(0),
		Height:   15,
	}
}

func (m BrowseModel) Init() tea.Cmd {
	return nil
}

func (m BrowseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc":
			switch m.Level {
			case viewTypes:
				return m, tea.Quit
			case viewInstances:
				m.Level = viewTypes
			case viewPaths:
				m.Level = viewInstances
			}
		case "up", "k":
			m.moveUp()
		case "down", "j":
			m.moveDown()
		case "enter":
			m.drillDown()
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 8
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m *BrowseModel) moveUp() {
	switch m.Level {
	case viewTypes:
		if m.Cursor > 0 {
			m.Cursor--
			if m.Cursor < m.Offset {
				m.Offset = m.Cursor
			}
		}
	case viewInstances:
		if m.InstCursor > 0 {
			m.InstCursor--
			if m.InstCursor < m.InstOffset {
				m.InstOffset = m.InstCursor
			}
		}
	}
}

func (m *BrowseModel) moveDown() {
	switch m.Level {
	case viewTypes:
		if m.Cursor < len(m.Types)-1 {
			m.Cursor++
			if m.Cursor >= m.Offset+m.Height {
				m.Offset = m.Cursor - m.Height + 1
			}
		}
	case viewInstances:
		if m.InstCursor < len(m.Instances)-1 {
			m.InstCursor++
			if m.InstCursor >= m.InstOffset+m.Height {
				m.InstOffset = m.InstCursor - m.Height + 1
			}
		}
	}
}

func (m *BrowseModel) drillDown() {
	switch m.Level {
	case viewTypes:
		if len(m.Types) == 0 {
			return
		}
		m.Instances = m.Types[m.Cursor].Instances
		m.InstCursor = 0
		m.InstOffset = 0
		m.Level = viewInstances
	case viewInstances:
		if len(m.Instances) == 0 {
			return
		}
		node := m.Instances[m.InstCursor]
		m.Paths = m.Snapshot.ReferencePaths(node, m.MaxPaths)
		m.Level = viewPaths
	}
}

func (m BrowseModel) View() string {
	switch m.Level {
	case viewInstances:
		return m.viewInstanceList()
	case viewPaths:
		return m.viewPathList()
	default:
		return m.viewTypeList()
	}
}

func (m BrowseModel) viewTypeList() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Types by Retained Size"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ instances  q quit"))
	b.WriteString("\n\n")

	end := m.Offset + m.Height
	if end > len(m.Types) {
		end = len(m.Types)
	}

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		ts := m.Types[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{
			cursor,
			ts.DisplayName,
			strconv.Itoa(ts.Count),
			humanBytes(ts.Shallow),
			humanBytes(ts.Retained),
		})
	}

	b.WriteString(m.renderListTable([]string{"", "Type", "Count", "Shallow", "Retained"}, rows, m.Cursor-m.Offset))
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Types))))

	return b.String()
}

func (m BrowseModel) viewInstanceList() string {
	var b strings.Builder

	ts := m.Types[m.Cursor]
	b.WriteString(StyleTitle.Render("Instances of " + ts.DisplayName))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ paths  esc back  q quit"))
	b.WriteString("\n\n")

	end := m.InstOffset + m.Height
	if end > len(m.Instances) {
		end = len(m.Instances)
	}

	rows := [][]string{}
	for i := m.InstOffset; i < end; i++ {
		n := m.Instances[i]
		cursor := "  "
		if i == m.InstCursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{
			cursor,
			strconv.Itoa(int(n)),
			fmt.Sprintf("0x%x", m.Snapshot.Graph().Address(n)),
			humanBytes(m.Snapshot.ShallowSize(n)),
			humanBytes(m.Snapshot.RetainedSize(n)),
		})
	}

	b.WriteString(m.renderListTable([]string{"", "Node", "Address", "Shallow", "Retained"}, rows, m.InstCursor-m.InstOffset))
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.InstCursor+1, len(m.Instances))))

	return b.String()
}

func (m BrowseModel) viewPathList() string {
	var b strings.Builder

	node := m.Instances[m.InstCursor]
	title := fmt.Sprintf("Paths to %s @ 0x%x", m.Snapshot.DisplayName(node), m.Snapshot.Graph().Address(node))
	b.WriteString(StyleTitle.Render(title))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("esc back  q quit"))
	b.WriteString("\n\n")

	for i, p := range m.Paths {
		b.WriteString(listDimStyle.Render(fmt.Sprintf("%2d. ", i+1)))
		b.WriteString(StyleValue.Render(p))
		b.WriteString("\n")
	}

	return b.String()
}

// renderListTable draws a scrolling window of rows with the selected
// row highlighted.
func (m BrowseModel) renderListTable(headers []string, rows [][]string, selected int) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			if row == selected {
				return listSelectedStyle
			}
			return lipgloss.NewStyle()
		}).
		Render()
}
