package terminal

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/autologout/internal/app/idle"
	"github.com/osa030/autologout/internal/app/timer"
)

func startMonitor(t *testing.T, h *Host) (*idle.Monitor, *timer.Manual, idle.Config) {
	t.Helper()
	cfg := idle.DefaultConfig()
	cfg.UntilWarning = 10 * time.Second
	cfg.AfterWarning = 5 * time.Second

	sched := timer.NewManual(time.Unix(0, 0))
	mon := idle.New(cfg, sched, h, nil)
	require.NoError(t, mon.Start())
	t.Cleanup(mon.Close)
	return mon, sched, cfg
}

func TestHost_BlurredTerminalFlashesDuringWarning(t *testing.T) {
	h := newTestHost(nil)
	m := newModel(h)
	mon, sched, cfg := startMonitor(t, h)

	_, _ = m.Update(tea.BlurMsg{})
	sched.Advance(cfg.UntilWarning)

	assert.Equal(t, idle.StateWarning, mon.State())
	assert.Equal(t, "Logging out in 5 seconds!", h.Title())
	assert.Equal(t, cfg.AlertIconHref, h.IconHref())

	sched.Advance(cfg.FlashInterval)
	assert.Equal(t, "Research Portal", h.Title())

	_, _ = m.Update(tea.FocusMsg{})
	assert.Equal(t, idle.StateActive, mon.State())
	assert.Equal(t, "Research Portal", h.Title())
	assert.Equal(t, "/static/images/favicon.ico", h.IconHref())
}

func TestHost_FocusedTerminalDoesNotFlash(t *testing.T) {
	h := newTestHost(nil)
	m := newModel(h)
	mon, sched, cfg := startMonitor(t, h)

	_, _ = m.Update(tea.FocusMsg{})
	sched.Advance(cfg.UntilWarning)

	assert.Equal(t, idle.StateWarning, mon.State())
	assert.Equal(t, "Research Portal", h.Title())
	assert.False(t, h.Snapshot().IndicatorHidden)

	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")})
	assert.Equal(t, idle.StateActive, mon.State())
	assert.True(t, h.Snapshot().IndicatorHidden)
}
