// Package headless provides a line-oriented page for kiosks and scripts.
package headless

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/osa030/autologout/internal/app/idle"
	"github.com/osa030/autologout/internal/infra/logger"
	"github.com/osa030/autologout/internal/ui/host"
)

// Name is the host type used in config.
const Name = "headless"

// Settings configures the headless host.
type Settings struct {
	// Visibility is the fixed visibility of the page.
	Visibility string `mapstructure:"visibility" default:"hidden" validate:"oneof=visible hidden"`
	// OnEOF decides whether the end of input ends the run.
	OnEOF string `mapstructure:"on_eof" default:"quit" validate:"oneof=quit wait"`
}

// Host reads activity from input lines and writes page changes to output.
// Every line counts as a key press, except while a confirm prompt is open.
type Host struct {
	*host.Surface

	settings Settings
	opts     host.Options
	in       io.Reader
	out      io.Writer
	logger   zerolog.Logger

	mu     sync.Mutex
	ctx    context.Context
	last   host.View
	prompt func(ok bool)
	result string
	done   chan struct{}
	ended  bool
}

// New creates a headless host.
func New(settings Settings, opts host.Options) *Host {
	in := opts.In
	if in == nil {
		in = os.Stdin
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	h := &Host{
		Surface:  host.NewSurface(opts),
		settings: settings,
		opts:     opts,
		in:       in,
		out:      out,
		logger:   logger.Component("headless"),
		ctx:      context.Background(),
		done:     make(chan struct{}),
	}
	h.SetVisible(settings.Visibility == "visible")
	h.last = h.Snapshot()
	h.Surface.OnChange(h.report)
	return h
}

// Confirm prints message and waits for the next input line.
func (h *Host) Confirm(message string, answer func(ok bool)) {
	h.mu.Lock()
	h.prompt = answer
	h.mu.Unlock()
	h.printf("confirm: %s [Y/n]\n", message)
}

// Navigate loads path through the portal and ends the run.
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
		h.printf("navigated: %s\n", result)

		h.mu.Lock()
		h.result = result
		h.mu.Unlock()
		h.end()
	}()
}

// Result describes where the page navigated, if it did.
func (h *Host) Result() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result
}

// Run reads input lines until ctx is done, the page navigates away, or input
// ends with on_eof set to quit.
func (h *Host) Run(ctx context.Context) error {
	h.mu.Lock()
	h.ctx = ctx
	h.mu.Unlock()

	h.printf("page: %s\n", h.Title())

	errCh := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(h.in)
		for scanner.Scan() {
			h.handleLine(scanner.Text())
		}
		errCh <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-h.done:
			return nil
		case err := <-errCh:
			if err != nil {
				return errors.Wrap(err, "failed to read input")
			}
			if h.settings.OnEOF == "quit" {
				return nil
			}
			errCh = nil
		}
	}
}

func (h *Host) handleLine(line string) {
	h.mu.Lock()
	answer := h.prompt
	h.prompt = nil
	h.mu.Unlock()

	if answer != nil {
		answer(parseAnswer(line))
		return
	}
	h.Dispatch(idle.ActivityKeyPress)
}

// parseAnswer treats an empty line or y/yes as OK.
func parseAnswer(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "", "y", "yes":
		return true
	default:
		return false
	}
}

// report prints what changed since the last report.
func (h *Host) report() {
	v := h.Snapshot()

	h.mu.Lock()
	last := h.last
	h.last = v
	h.mu.Unlock()

	if v.Title != last.Title {
		h.printf("title: %s\n", v.Title)
	}
	if v.IconHref != last.IconHref {
		h.printf("icon: %s\n", v.IconHref)
	}
	if v.HasIndicator && !v.IndicatorHidden && (last.IndicatorHidden || v.IndicatorText != last.IndicatorText) {
		text := v.IndicatorText
		if text == "" {
			text = "(warning shown)"
		}
		h.printf("indicator: %s\n", text)
	}
	if v.HasIndicator && v.IndicatorHidden && !last.IndicatorHidden {
		h.printf("indicator: hidden\n")
	}
}

func (h *Host) printf(format string, args ...any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, err := fmt.Fprintf(h.out, format, args...); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to write output")
	}
}

func (h *Host) end() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.ended {
		h.ended = true
		close(h.done)
	}
}

func init() {
	host.Register(host.Factory{
		Name:        Name,
		Description: "Line-oriented page on stdin/stdout; every input line counts as activity",
		New: func(settings map[string]any, opts host.Options) (host.Host, error) {
			var s Settings
			if err := host.DecodeSettings(settings, &s); err != nil {
				return nil, errors.Wrap(err, "invalid headless host settings")
			}
			return New(s, opts), nil
		},
	})
}
