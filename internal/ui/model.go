package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mkerrigan/triagent/internal/assistant"
)

// --- Palette & Styles ---

var (
	textMain = lipgloss.Color("#cdd6f4")

	colorUser   = lipgloss.Color("#ef9f76") // Orange-ish (User)
	colorAgent  = lipgloss.Color("#a6e3a1") // Green-ish (Agent)
	colorAccent = lipgloss.Color("#fab387")
	colorSpin   = lipgloss.Color("#cba6f7")

	colorBorder  = lipgloss.Color("#45475a")
	colorActive  = lipgloss.Color("#f9e2af")
	colorSubtext = lipgloss.Color("#9399b2")

	styleBase = lipgloss.NewStyle().Foreground(textMain)

	styleBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	styleFocusBorder = styleBorder.
				BorderForeground(colorActive)

	styleUserHeader = lipgloss.NewStyle().
			Foreground(colorUser).
			Bold(true).
			MarginTop(1)

	styleAgentHeader = lipgloss.NewStyle().
				Foreground(colorAgent).
				Bold(true).
				MarginTop(1)

	styleSection = lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true)

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f38ba8")). // Red
			Bold(true)

	styleStatus = lipgloss.NewStyle().
			Foreground(colorSubtext).
			Italic(true)

	styleDim = lipgloss.NewStyle().Foreground(colorSubtext)
)

type State int

const (
	StateReady State = iota
	StateThinking
)

type Model struct {
	agent         *assistant.Agent
	textarea      textarea.Model
	viewport      viewport.Model
	spinner       spinner.Model
	state         State
	statusHistory []string

	// Layout
	width  int
	height int
}

func NewModel(agent *assistant.Agent) Model {
	ta := newInputArea(3, 500, 80)

	vp := viewport.New(80, 20)
	welcomeMsg := styleAgentHeader.Render("Triagent") + "\n" +
		styleBase.Render("Describe an incident and I will classify it and recommend a response plan.")
	vp.SetContent(welcomeMsg)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(colorSpin)

	return Model{
		agent:         agent,
		textarea:      ta,
		viewport:      vp,
		spinner:       s,
		state:         StateReady,
		statusHistory: []string{},
	}
}

func newInputArea(height, charLimit, width int) textarea.Model {
	ta := textarea.New()
	ta.Placeholder = "Describe the incident..."
	ta.Focus()
	ta.SetHeight(height)
	ta.ShowLineNumbers = false
	ta.Prompt = ""
	ta.CharLimit = charLimit
	ta.SetWidth(width)

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(colorSubtext)
	ta.FocusedStyle.Prompt = lipgloss.NewStyle().Foreground(colorAccent)
	ta.FocusedStyle.Text = lipgloss.NewStyle().Foreground(textMain)
	return ta
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

type triageMsg struct {
	result *assistant.TriageResult
}

type statusMsg struct {
	msg string
}

func listenForUpdates(sub <-chan assistant.StatusUpdate) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-sub
		if !ok {
			return nil
		}
		return statusMsg{msg: update.Message}
	}
}

func (m Model) processInput(input string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		return triageMsg{result: m.agent.Triage(ctx, input)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		verticalMargins := 7 // Borders + Status + Input
		viewportHeight := msg.Height - verticalMargins
		if viewportHeight < 5 {
			viewportHeight = 5
		}

		m.viewport.Width = msg.Width - 4
		m.viewport.Height = viewportHeight

		m.textarea.SetWidth(msg.Width - 4)

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if !msg.Alt && m.state == StateReady {
				input := m.textarea.Value()
				if strings.TrimSpace(input) == "" {
					break
				}

				userHeader := styleUserHeader.Render("Incident")
				userBody := styleBase.Render(input)

				newContent := m.viewport.View() + "\n" + userHeader + "\n" + userBody + "\n"
				m.viewport.SetContent(newContent)
				m.viewport.GotoBottom()

				m.state = StateThinking
				m.statusHistory = []string{"Opening triage..."}

				// Fresh textarea clears retained scroll state between inputs
				m.textarea = newInputArea(m.textarea.Height(), m.textarea.CharLimit, m.width-4)

				cmds = append(cmds, listenForUpdates(m.agent.Updates()))
				cmds = append(cmds, m.processInput(input))
				return m, tea.Batch(cmds...)
			}
		}

	case statusMsg:
		m.statusHistory = append(m.statusHistory, msg.msg)
		if len(m.statusHistory) > 3 {
			m.statusHistory = m.statusHistory[len(m.statusHistory)-3:]
		}
		if m.state == StateThinking {
			cmds = append(cmds, listenForUpdates(m.agent.Updates()))
		}

	case triageMsg:
		m.state = StateReady
		output := renderResult(msg.result)

		separator := styleDim.Render(strings.Repeat("─", max(m.width/2, 10)))
		newContent := m.viewport.View() + output + "\n\n" + separator + "\n"
		m.viewport.SetContent(newContent)
		m.viewport.GotoBottom()

		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)

		m.textarea.Focus()
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		if m.state == StateThinking {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	if m.state == StateReady {
		m.textarea, cmd = m.textarea.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// asStrings accepts either in-memory []string payloads or []any from a JSON
// round trip.
func asStrings(v any) []string {
	switch vs := v.(type) {
	case []string:
		return vs
	case []any:
		out := make([]string, 0, len(vs))
		for _, e := range vs {
			out = append(out, fmt.Sprint(e))
		}
		return out
	}
	return nil
}

func renderResult(res *assistant.TriageResult) string {
	var b strings.Builder
	b.WriteString(styleAgentHeader.Render("Triagent") + "\n")

	if res.State == assistant.StateFailed && len(res.FailureReasons) > 0 {
		b.WriteString(styleError.Render("Triage failed:") + "\n")
		for _, reason := range res.FailureReasons {
			b.WriteString(styleError.Render("  • "+reason) + "\n")
		}
	}

	if details, ok := res.Payload["incident_details"].(map[string]any); ok {
		b.WriteString(styleSection.Render("Classification") + "\n")
		b.WriteString(styleBase.Render(fmt.Sprintf("  Severity: %v   Type: %v   Confidence: %v",
			details["severity"], details["incident_type"], details["confidence"])) + "\n")
		if systems := asStrings(details["affected_systems"]); len(systems) > 0 {
			b.WriteString(styleBase.Render("  Affected: "+strings.Join(systems, ", ")) + "\n")
		}
	}

	if plan, ok := res.Payload["mitigation_plan"].(map[string]any); ok {
		b.WriteString(styleSection.Render("Response Plan") + "\n")
		b.WriteString(styleBase.Render(fmt.Sprintf("  Target response: %v   Est. resolution: %v",
			plan["target_response_time"], plan["estimated_resolution_time"])) + "\n")
		if actions := asStrings(plan["immediate_actions"]); len(actions) > 0 {
			b.WriteString(styleBase.Render("  Immediate actions:") + "\n")
			for i, a := range actions {
				b.WriteString(styleBase.Render(fmt.Sprintf("    %d. %s", i+1, a)) + "\n")
			}
		}
	}

	if res.FinalResponse != "" {
		b.WriteString(styleSection.Render("Summary") + "\n")
		b.WriteString(styleBase.Render("  "+res.FinalResponse) + "\n")
	}

	if res.Report != nil {
		verdict := "validation passed"
		if !res.Report.Valid {
			verdict = "validation failed: " + strings.Join(res.Report.Issues, "; ")
		}
		b.WriteString(styleDim.Render(fmt.Sprintf("  %s · %d round(s) · %d function call(s)",
			verdict, res.Rounds, len(res.ExecutionLog))) + "\n")
	}

	return b.String()
}

func (m Model) View() string {
	chatView := styleBorder.Width(m.width - 2).Height(m.viewport.Height + 2).Render(m.viewport.View())

	var statusStr string
	if m.state == StateThinking {
		fullStatus := strings.Join(m.statusHistory, "  ➜  ")
		statusStr = fmt.Sprintf(" %s %s", m.spinner.View(), styleStatus.Render(fullStatus))
	} else {
		statusStr = styleStatus.Render(" Ready.")
	}
	statusView := lipgloss.NewStyle().Width(m.width).PaddingLeft(1).Render(statusStr)

	prompt := lipgloss.NewStyle().Foreground(colorAccent).Render("⚑ ")
	inputContent := lipgloss.JoinHorizontal(lipgloss.Top, prompt, m.textarea.View())
	inputView := styleFocusBorder.Width(m.width - 2).Render(inputContent)

	return lipgloss.JoinVertical(lipgloss.Left,
		chatView,
		statusView,
		inputView,
	)
}
