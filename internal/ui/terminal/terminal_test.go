package terminal

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/autologout/internal/app/idle"
	"github.com/osa030/autologout/internal/ui/host"
)

func newTestHost(navigate host.NavigateFunc) *Host {
	return New(Settings{Screen: "inline", Mouse: "off", Focus: "ignore"}, host.Options{
		Title:         "Research Portal",
		IconHref:      "/static/images/favicon.ico",
		AlertIconHref: "/static/images/alert.ico",
		AnimateClass:  "logout-animate",
		PortalURL:     "http://portal.example",
		Navigate:      navigate,
	})
}

func record(h *Host) *[]idle.ActivityKind {
	got := &[]idle.ActivityKind{}
	h.Listen(idle.AllActivities(), func(k idle.ActivityKind) {
		*got = append(*got, k)
	})
	return got
}

func TestModel_ActivityMapping(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.Msg
		want []idle.ActivityKind
	}{
		{"key", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")}, []idle.ActivityKind{idle.ActivityKeyPress}},
		{"motion", tea.MouseMsg{Action: tea.MouseActionMotion, Button: tea.MouseButtonNone}, []idle.ActivityKind{idle.ActivityPointerMove}},
		{"drag", tea.MouseMsg{Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft}, []idle.ActivityKind{idle.ActivityPointerMove}},
		{"click", tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}, []idle.ActivityKind{idle.ActivityPointerDown}},
		{"wheel", tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonWheelDown}, []idle.ActivityKind{idle.ActivityScroll}},
		{"release", tea.MouseMsg{Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft}, []idle.ActivityKind{}},
		{"focus", tea.FocusMsg{}, []idle.ActivityKind{idle.ActivityFocus, idle.ActivityVisibilityChange}},
		{"blur", tea.BlurMsg{}, []idle.ActivityKind{idle.ActivityVisibilityChange}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHost(nil)
			got := record(h)
			m := newModel(h)

			_, _ = m.Update(tt.msg)
			assert.Equal(t, tt.want, append([]idle.ActivityKind{}, *got...))
		})
	}
}

func TestModel_FocusTracksVisibility(t *testing.T) {
	h := newTestHost(nil)
	m := newModel(h)

	_, _ = m.Update(tea.BlurMsg{})
	assert.False(t, h.Visible())

	_, _ = m.Update(tea.FocusMsg{})
	assert.True(t, h.Visible())
}

func TestModel_CtrlCQuits(t *testing.T) {
	h := newTestHost(nil)
	got := record(h)
	m := newModel(h)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, *got)
}

func TestModel_Confirm(t *testing.T) {
	tests := []struct {
		name string
		key  tea.KeyMsg
		want bool
	}{
		{"enter", tea.KeyMsg{Type: tea.KeyEnter}, true},
		{"y", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")}, true},
		{"esc", tea.KeyMsg{Type: tea.KeyEsc}, false},
		{"n", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHost(nil)
			got := record(h)
			m := newModel(h)

			var answers []bool
			h.Confirm("Go to the home page?", func(ok bool) { answers = append(answers, ok) })
			assert.Contains(t, m.View(), "Go to the home page?")

			_, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
			assert.Empty(t, answers)

			_, _ = m.Update(tt.key)
			assert.Equal(t, []bool{tt.want}, answers)
			assert.Empty(t, *got, "keys answering a prompt are not activity")
			assert.NotContains(t, m.View(), "Go to the home page?")
		})
	}
}

func TestModel_ViewIndicator(t *testing.T) {
	h := newTestHost(nil)
	m := newModel(h)

	assert.NotContains(t, m.View(), "Logging out soon")

	ind := h.Indicator()
	require.NotNil(t, ind)
	ind.SetText("Logging out soon")
	ind.SetHidden(false)
	assert.Contains(t, m.View(), "Logging out soon")

	ind.RemoveClass("logout-animate")
	ind.SetText("You have been logged out")
	assert.Contains(t, m.View(), "You have been logged out")
}

func TestModel_ViewTitleAndIcon(t *testing.T) {
	h := newTestHost(nil)
	m := newModel(h)

	view := m.View()
	assert.Contains(t, view, "Research Portal")
	assert.Contains(t, view, "http://portal.example")

	h.SetTitle("Logging out in 90 seconds!")
	h.SetIconHref("/static/images/alert.ico")
	view = m.View()
	assert.Contains(t, view, "Logging out in 90 seconds!")
	assert.Contains(t, view, "!")
}

func TestModel_RefreshSetsWindowTitle(t *testing.T) {
	h := newTestHost(nil)
	m := newModel(h)

	_, cmd := m.Update(refreshMsg{})
	assert.Nil(t, cmd)

	h.SetTitle("(Logged out) Research Portal")
	next, cmd := m.Update(refreshMsg{})
	assert.NotNil(t, cmd)
	assert.Equal(t, "(Logged out) Research Portal", next.(model).windowTitle)
}

func TestHost_Navigate(t *testing.T) {
	h := newTestHost(func(ctx context.Context, path string) (string, error) {
		return "http://portal.example" + path + " (200 OK)", nil
	})

	h.Navigate("/")
	require.Eventually(t, func() bool { return h.Result() != "" }, time.Second, time.Millisecond)
	assert.Equal(t, "http://portal.example/ (200 OK)", h.Result())
}

func TestHost_NavigateFailure(t *testing.T) {
	h := newTestHost(func(ctx context.Context, path string) (string, error) {
		return "", errors.New("connection refused")
	})

	h.Navigate("/")
	require.Eventually(t, func() bool { return h.Result() != "" }, time.Second, time.Millisecond)
	assert.Contains(t, h.Result(), "connection refused")
}

func TestFactory_InvalidSettings(t *testing.T) {
	_, err := host.New(Name, map[string]any{"mouse": "trackball"}, host.Options{})
	assert.Error(t, err)

	h, err := host.New(Name, nil, host.Options{Title: "Portal"})
	require.NoError(t, err)
	assert.Equal(t, "Portal", h.Title())
}
