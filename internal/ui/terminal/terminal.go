// Package terminal renders the portal page as a bubbletea program.
package terminal

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/osa030/autologout/internal/infra/logger"
	"github.com/osa030/autologout/internal/ui/host"
)

// Name is the host type used in config.
const Name = "terminal"

// Settings configures the terminal host.
type Settings struct {
	Screen string `mapstructure:"screen" default:"alt" validate:"oneof=alt inline"`
	Mouse  string `mapstructure:"mouse" default:"all_motion" validate:"oneof=all_motion cell_motion off"`
	Focus  string `mapstructure:"focus" default:"report" validate:"oneof=report ignore"`
}

// Host is a full-screen terminal page. Terminal focus stands in for page visibility.
type Host struct {
	*host.Surface

	settings Settings
	opts     host.Options
	logger   zerolog.Logger

	mu      sync.Mutex
	program *tea.Program
	ctx     context.Context
	prompt  *prompt
	result  string
}

type prompt struct {
	message string
	answer  func(ok bool)
}

// refreshMsg tells the program the surface changed.
type refreshMsg struct{}

// New creates a terminal host.
func New(settings Settings, opts host.Options) *Host {
	h := &Host{
		Surface:  host.NewSurface(opts),
		settings: settings,
		opts:     opts,
		logger:   logger.Component("terminal"),
		ctx:      context.Background(),
	}
	h.Surface.OnChange(h.refresh)
	return h
}

// Confirm shows a modal; enter answers OK and esc answers Cancel.
func (h *Host) Confirm(message string, answer func(ok bool)) {
	h.mu.Lock()
	h.prompt = &prompt{message: message, answer: answer}
	h.mu.Unlock()
	h.refresh()
}

// Navigate loads path through the portal and ends the program.
func (h *Host) Navigate(path string) {
	h.mu.Lock()
	ctx := h.ctx
	h.mu.Unlock()

	go func() {
		result := path
		if h.opts.Navigate != nil {
			desc, err := h.opts.Navigate(ctx, path)
			if err != nil {
				h.logger.Error().Err(err).Str("path", path).Msg("Navigation failed")
				result = "navigation to " + path + " failed: " + err.Error()
			} else {
				result = desc
			}
		}

		h.mu.Lock()
		h.result = result
		p := h.program
		h.mu.Unlock()

		if p != nil {
			p.Quit()
		}
	}()
}

// Result describes where the page navigated, if it did.
func (h *Host) Result() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result
}

// Run runs the bubbletea program until quit or ctx is done.
func (h *Host) Run(ctx context.Context) error {
	options := []tea.ProgramOption{}
	if h.settings.Screen == "alt" {
		options = append(options, tea.WithAltScreen())
	}
	switch h.settings.Mouse {
	case "all_motion":
		options = append(options, tea.WithMouseAllMotion())
	case "cell_motion":
		options = append(options, tea.WithMouseCellMotion())
	}
	if h.settings.Focus == "report" {
		options = append(options, tea.WithReportFocus())
	}
	if h.opts.In != nil {
		options = append(options, tea.WithInput(h.opts.In))
	}
	if h.opts.Out != nil {
		options = append(options, tea.WithOutput(h.opts.Out))
	}

	p := tea.NewProgram(newModel(h), options...)

	h.mu.Lock()
	h.program = p
	h.ctx = ctx
	h.mu.Unlock()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			p.Quit()
		case <-done:
		}
	}()

	if _, err := p.Run(); err != nil {
		return errors.Wrap(err, "terminal program failed")
	}

	h.mu.Lock()
	h.program = nil
	h.mu.Unlock()
	return nil
}

// refresh asks the program to redraw. It never blocks the caller.
func (h *Host) refresh() {
	h.mu.Lock()
	p := h.program
	h.mu.Unlock()

	if p != nil {
		go p.Send(refreshMsg{})
	}
}

// pendingPrompt returns the open confirm prompt, if any.
func (h *Host) pendingPrompt() *prompt {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.prompt
}

// answerPrompt closes the open prompt and delivers ok.
func (h *Host) answerPrompt(ok bool) {
	h.mu.Lock()
	p := h.prompt
	h.prompt = nil
	h.mu.Unlock()

	if p != nil {
		p.answer(ok)
	}
}

func init() {
	host.Register(host.Factory{
		Name:        Name,
		Description: "Full-screen terminal page; keyboard, mouse and focus count as activity",
		New: func(settings map[string]any, opts host.Options) (host.Host, error) {
			var s Settings
			if err := host.DecodeSettings(settings, &s); err != nil {
				return nil, errors.Wrap(err, "invalid terminal host settings")
			}
			return New(s, opts), nil
		},
	})
}
