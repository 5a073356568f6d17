package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"audiencelens/internal/core"
)

const samplePosts = 5

// Model is the state of the cluster browser
type Model struct {
	result      *core.ClusteringResult
	clusters    []core.ClusterSummary // Non-empty clusters only
	samples     map[int][]core.Post
	insights    map[int]core.ClusterInsight
	trends      map[int]core.ClusterTrend
	selectedIdx int
	width       int
	height      int
	quitting    bool
}

// NewModel builds a browser over result; posts supply the sample lines per cluster
func NewModel(result *core.ClusteringResult, posts []core.Post) Model {
	m := Model{
		result:   result,
		samples:  make(map[int][]core.Post),
		insights: make(map[int]core.ClusterInsight),
		trends:   make(map[int]core.ClusterTrend),
		width:    100,
	}

	for _, s := range result.ClusterSummaries {
		if s.Size > 0 {
			m.clusters = append(m.clusters, s)
		}
	}
	for i, dp := range result.DataPoints {
		if i < len(posts) && len(m.samples[dp.ClusterID]) < samplePosts {
			m.samples[dp.ClusterID] = append(m.samples[dp.ClusterID], posts[i])
		}
	}
	for _, c := range result.Insights.Clusters {
		m.insights[c.ClusterID] = c
	}
	for _, t := range result.Trends.Clusters {
		m.trends[t.ClusterID] = t
	}

	return m
}

// Selected returns the id of the highlighted cluster, or -1 when there is none
func (m Model) Selected() int {
	if len(m.clusters) == 0 {
		return -1
	}
	return m.clusters[m.selectedIdx].ID
}

// Init is the first command that will be run. We don't need any for now.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model accordingly.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		case "up", "k":
			if m.selectedIdx > 0 {
				m.selectedIdx--
			}
		case "down", "j":
			if m.selectedIdx < len(m.clusters)-1 {
				m.selectedIdx++
			}
		}
	}

	return m, nil
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "Quitting...\n"
	}

	paneWidth := max(m.width/2-5, 20)
	docStyle := lipgloss.NewStyle().Margin(1, 2)
	listStyle := lipgloss.NewStyle().Border(lipgloss.NormalBorder(), true).Padding(1).Width(paneWidth)
	detailStyle := lipgloss.NewStyle().Border(lipgloss.NormalBorder(), true).Padding(1).Width(paneWidth)
	titleStyle := lipgloss.NewStyle().Bold(true)

	var list strings.Builder
	list.WriteString(titleStyle.Render(fmt.Sprintf("Clusters (%d posts)", m.result.TotalPoints)) + "\n\n")
	if len(m.clusters) == 0 {
		list.WriteString("No clusters.")
	}
	for i, s := range m.clusters {
		cursor := " "
		if i == m.selectedIdx {
			cursor = ">"
		}
		list.WriteString(fmt.Sprintf("%s %d. %s (%d)\n", cursor, s.ID, m.insights[s.ID].Archetype, s.Size))
	}

	mainContent := lipgloss.JoinHorizontal(lipgloss.Top,
		listStyle.Render(list.String()),
		detailStyle.Render(m.detail(titleStyle)))

	help := "\n\n[↑/k] Up | [↓/j] Down | [q] Quit"

	return docStyle.Render(mainContent + help)
}

func (m Model) detail(titleStyle lipgloss.Style) string {
	if len(m.clusters) == 0 {
		return "Nothing to show."
	}

	s := m.clusters[m.selectedIdx]
	insight := m.insights[s.ID]
	trend := m.trends[s.ID]

	var b strings.Builder
	b.WriteString(titleStyle.Render(insight.Title) + "\n\n")
	b.WriteString(s.Description + "\n\n")
	b.WriteString(fmt.Sprintf("Size:       %d (%.1f%%)\n", s.Size, s.Percentage))
	b.WriteString(fmt.Sprintf("Sentiment:  %+.2f %s\n", s.AvgSentiment, s.SentimentLevel))
	b.WriteString(fmt.Sprintf("Engagement: %.1f %s\n", s.AvgEngagement, s.EngagementLevel))
	if trend.Direction != "" {
		b.WriteString(fmt.Sprintf("Trend:      %s (momentum %+.2f)\n", trend.Direction, trend.Momentum))
	}
	if insight.Recommendation != "" {
		b.WriteString("\n→ " + insight.Recommendation + "\n")
	}

	if posts := m.samples[s.ID]; len(posts) > 0 {
		b.WriteString("\n" + titleStyle.Render("Sample posts") + "\n")
		for _, p := range posts {
			content := strings.Join(strings.Fields(p.Content), " ")
			if content == "" {
				content = p.ID
			}
			if len([]rune(content)) > 60 {
				content = string([]rune(content)[:59]) + "…"
			}
			b.WriteString("• " + content + "\n")
		}
	}

	return b.String()
}

// Run starts the interactive cluster browser
func Run(result *core.ClusteringResult, posts []core.Post) error {
	p := tea.NewProgram(NewModel(result, posts), tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
