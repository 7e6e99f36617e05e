package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/a-h/assessmentserver/client"
	"github.com/a-h/assessmentserver/models"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

type ExploreCommand struct {
	ServerURL string `help:"The URL of the assessment server." env:"ASSESSMENT_SERVER_URL" default:"http://localhost:5001"`
}

func (c ExploreCommand) Run(ctx context.Context) (err error) {
	asc := client.New(c.ServerURL)
	status, err := asc.Home(ctx)
	if err != nil {
		return fmt.Errorf("failed to reach assessment server: %w", err)
	}
	p := tea.NewProgram(newModel(ctx, asc, status), tea.WithContext(ctx))
	if _, err = p.Run(); err != nil {
		return err
	}
	return nil
}

// Dracula color scheme.
var (
	Background  = lipgloss.Color("#282a36")
	CurrentLine = lipgloss.Color("#44475a")
	Foreground  = lipgloss.Color("#f8f8f2")
	Comment     = lipgloss.Color("#6272a4")
	Cyan        = lipgloss.Color("#8be9fd")
	Green       = lipgloss.Color("#50fa7b")
	Pink        = lipgloss.Color("#ff79c6")
	Purple      = lipgloss.Color("#bd93f9")
	Red         = lipgloss.Color("#ff5555")
)

var (
	headerStyle         = lipgloss.NewStyle().Background(CurrentLine).Foreground(Purple).Bold(true).Padding(1)
	queryStyle          = lipgloss.NewStyle().Padding(1).Margin(1).MarginBottom(0).Background(Background).Foreground(Pink)
	recommendationStyle = lipgloss.NewStyle().Padding(1).Margin(1).MarginBottom(0).Background(Background).Foreground(Cyan)
	emptyStyle          = lipgloss.NewStyle().Padding(1).Margin(1).MarginBottom(0).Background(Background).Foreground(Comment)
	errorStyle          = lipgloss.NewStyle().Padding(1).Margin(1).MarginBottom(0).Background(Background).Foreground(Red)
)

type recommender interface {
	RecommendPost(ctx context.Context, req models.RecommendPostRequest) (models.RecommendPostResponse, error)
}

// exchange is a query and its outcome.
type exchange struct {
	Query           string
	Pending         bool
	Recommendations []models.Recommendation
	Err             error
}

type recommendationsMsg struct {
	index int
	resp  models.RecommendPostResponse
	err   error
}

type model struct {
	viewport  viewport.Model
	textarea  textarea.Model
	ctx       context.Context
	client    recommender
	status    string
	exchanges []exchange
}

func newModel(ctx context.Context, client recommender, status string) model {
	ta := textarea.New()
	ta.Placeholder = "Describe the role, or paste a job description URL..."
	ta.Focus()

	ta.Prompt = "┃ "
	ta.CharLimit = 2000

	ta.SetHeight(3)

	// Remove cursor line styling
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()

	ta.ShowLineNumbers = false

	vp := viewport.New(80, 20)
	vp.SetContent(headerStyle.Render(status))

	ta.KeyMap.InsertNewline.SetEnabled(false)

	return model{
		ctx:      ctx,
		client:   client,
		status:   status,
		textarea: ta,
		viewport: vp,
	}
}

func (m model) Init() tea.Cmd {
	return textarea.Blink
}

func (m model) recommend(index int, query string) tea.Cmd {
	return func() tea.Msg {
		resp, err := m.client.RecommendPost(m.ctx, models.RecommendPostRequest{Query: query})
		return recommendationsMsg{index: index, resp: resp, err: err}
	}
}

func formatRecommendation(rank int, r models.Recommendation) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d. %s\n", rank, r.AssessmentName)
	fmt.Fprintf(&sb, "   Type: %s | Duration: %s | Remote: %s\n", r.TestType, r.Duration, r.RemoteTesting)
	fmt.Fprintf(&sb, "   %s", r.URL)
	return sb.String()
}

func formatExchange(e exchange, width int) string {
	var sb strings.Builder
	sb.WriteString(queryStyle.Render(wordwrap.String("🔎 "+strings.TrimSpace(e.Query), width)))
	sb.WriteString("\n")
	switch {
	case e.Pending:
		sb.WriteString(emptyStyle.Render("…"))
	case e.Err != nil:
		sb.WriteString(errorStyle.Render(wordwrap.String("⚠️ "+e.Err.Error(), width)))
	case len(e.Recommendations) == 0:
		sb.WriteString(emptyStyle.Render("No recommendations."))
	default:
		lines := make([]string, len(e.Recommendations))
		for i, r := range e.Recommendations {
			lines[i] = formatRecommendation(i+1, r)
		}
		sb.WriteString(recommendationStyle.Render(wordwrap.String(strings.Join(lines, "\n\n"), width)))
	}
	return sb.String()
}

func (m model) render() string {
	var sb strings.Builder
	sb.WriteString(headerStyle.Render(m.status))
	sb.WriteString("\n")
	width := min(max(m.viewport.Width-6, 20), 100)
	for _, e := range m.exchanges {
		sb.WriteString(formatExchange(e, width))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case recommendationsMsg:
		if msg.index < 0 || msg.index >= len(m.exchanges) {
			return m, nil
		}
		m.exchanges[msg.index] = exchange{
			Query:           m.exchanges[msg.index].Query,
			Recommendations: msg.resp.Recommendations,
			Err:             msg.err,
		}
		m.viewport.SetContent(m.render())
		m.viewport.GotoBottom()
		return m, nil
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - m.textarea.Height() - 3
		m.textarea.SetWidth(msg.Width)
		m.viewport.SetContent(m.render())
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c":
			return m, tea.Quit
		case "enter":
			v := strings.TrimSpace(m.textarea.Value())
			if v == "" {
				// The server rejects empty queries.
				return m, nil
			}
			m.textarea.Reset()
			m.exchanges = append(m.exchanges, exchange{Query: v, Pending: true})
			m.viewport.SetContent(m.render())
			m.viewport.GotoBottom()
			return m, m.recommend(len(m.exchanges)-1, v)
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		default:
			// Send all other keypresses to the textarea.
			var cmd tea.Cmd
			m.textarea, cmd = m.textarea.Update(msg)
			return m, cmd
		}

	case cursor.BlinkMsg:
		// Textarea should also process cursor blinks.
		var cmd tea.Cmd
		m.textarea, cmd = m.textarea.Update(msg)
		return m, cmd

	default:
		return m, nil
	}
}

func (m model) View() string {
	return fmt.Sprintf("%s\n\n%s",
		m.viewport.View(),
		m.textarea.View(),
	) + "\n\n"
}
