package terminal

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/osa030/autologout/internal/app/idle"
	"github.com/osa030/autologout/internal/ui/host"
)

var (
	amber         = lipgloss.Color("#F59E0B")
	rose          = lipgloss.Color("#F43F5E")
	textPrimary   = lipgloss.Color("#E5E7EB")
	textSecondary = lipgloss.Color("#9CA3AF")
	textMuted     = lipgloss.Color("#6B7280")
)

const defaultWarning = "Your session is about to expire"

type model struct {
	h           *Host
	width       int
	height      int
	windowTitle string
}

func newModel(h *Host) model {
	return model{h: h, windowTitle: h.Title()}
}

func (m model) Init() tea.Cmd {
	return tea.SetWindowTitle(m.windowTitle)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case refreshMsg:
		if title := m.h.Title(); title != m.windowTitle {
			m.windowTitle = title
			return m, tea.SetWindowTitle(title)
		}

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.h.pendingPrompt() != nil {
			switch msg.String() {
			case "enter", "y":
				m.h.answerPrompt(true)
			case "esc", "n":
				m.h.answerPrompt(false)
			}
			return m, nil
		}
		m.h.Dispatch(idle.ActivityKeyPress)

	case tea.MouseMsg:
		if kind, ok := mouseActivity(msg); ok {
			m.h.Dispatch(kind)
		}

	case tea.FocusMsg:
		m.h.SetVisible(true)
		m.h.Dispatch(idle.ActivityFocus)
		m.h.Dispatch(idle.ActivityVisibilityChange)

	case tea.BlurMsg:
		m.h.SetVisible(false)
		m.h.Dispatch(idle.ActivityVisibilityChange)
	}

	return m, nil
}

func mouseActivity(msg tea.MouseMsg) (idle.ActivityKind, bool) {
	switch {
	case tea.MouseEvent(msg).IsWheel():
		return idle.ActivityScroll, true
	case msg.Action == tea.MouseActionMotion:
		return idle.ActivityPointerMove, true
	case msg.Action == tea.MouseActionPress:
		return idle.ActivityPointerDown, true
	default:
		return 0, false
	}
}

func (m model) View() string {
	v := m.h.Snapshot()

	width := m.width
	if width == 0 {
		width = 60
	}
	maxWidth := width - 8
	if maxWidth < 40 {
		maxWidth = 40
	}
	if maxWidth > 60 {
		maxWidth = 60
	}

	var parts []string
	parts = append(parts, m.header(v), "")

	bodyStyle := lipgloss.NewStyle().Foreground(textSecondary)
	if m.h.opts.PortalURL != "" {
		parts = append(parts, bodyStyle.Render("Session: "+m.h.opts.PortalURL))
	}
	parts = append(parts, bodyStyle.Render("Keyboard, mouse and focus keep the session alive."), "")

	if v.HasIndicator && !v.IndicatorHidden {
		parts = append(parts, renderIndicator(v, m.h.opts.AnimateClass, maxWidth), "")
	}

	if p := m.h.pendingPrompt(); p != nil {
		parts = append(parts, renderPrompt(p.message, maxWidth), "")
	}

	footer := lipgloss.NewStyle().Foreground(textMuted).Italic(true)
	parts = append(parts, footer.Render("ctrl+c to quit"))

	return lipgloss.NewStyle().Padding(1, 2).Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (m model) header(v host.View) string {
	glyph := lipgloss.NewStyle().Foreground(textSecondary).Render("●")
	if v.IconHref != "" && v.IconHref == m.h.opts.AlertIconHref {
		glyph = lipgloss.NewStyle().Foreground(rose).Bold(true).Render("!")
	}
	title := lipgloss.NewStyle().Foreground(textPrimary).Bold(true).Render(v.Title)
	return glyph + " " + title
}

func renderIndicator(v host.View, animateClass string, width int) string {
	text := v.IndicatorText
	if strings.TrimSpace(text) == "" {
		text = defaultWarning
	}

	border := amber
	msg := lipgloss.NewStyle().Foreground(amber).Bold(true).Width(width - 8).Align(lipgloss.Center)
	if animateClass != "" && v.HasClass(animateClass) {
		msg = msg.Blink(true)
	} else {
		border = rose
		msg = msg.Foreground(rose)
	}

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(border).
		Padding(1, 3).
		Width(width).
		Align(lipgloss.Center).
		Render(msg.Render(text))
}

func renderPrompt(message string, width int) string {
	msg := lipgloss.NewStyle().Foreground(textPrimary).Width(width - 8).Align(lipgloss.Center).Render(message)
	hint := lipgloss.NewStyle().Foreground(textSecondary).Italic(true).Render("[enter] OK    [esc] Cancel")
	content := lipgloss.JoinVertical(lipgloss.Center, msg, "", hint)

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(textSecondary).
		Padding(1, 3).
		Width(width).
		Align(lipgloss.Center).
		Render(content)
}
