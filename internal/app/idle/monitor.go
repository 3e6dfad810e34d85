package idle

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/autologout/internal/app/timer"
)

// Errors
var (
	ErrNoIndicator    = errors.New("page has no warning indicator")
	ErrAlreadyStarted = errors.New("monitor already started")
	ErrClosed         = errors.New("monitor closed")
)

// Config holds monitor configuration.
type Config struct {
	UntilWarning  time.Duration  // Idle time before the warning is shown
	AfterWarning  time.Duration  // Grace period between warning and logout
	FlashInterval time.Duration  // Title/icon toggle interval while backgrounded
	LogoutTimeout time.Duration  // Deadline for the logout call
	Activities    []ActivityKind // Signals that count as activity

	AlertTitle           string // "{seconds}" is replaced with the grace period in seconds
	AlertIconHref        string
	WarningText          string // Indicator text while warning; empty keeps the page's own text
	LoggedOutTitlePrefix string
	LoggedOutText        string
	AnimateClass         string
	ConfirmMessage       string
	LandingPath          string
}

// DefaultConfig returns a 30 minute policy with a 90 second warning.
func DefaultConfig() Config {
	const afterWarning = 90 * time.Second
	return Config{
		UntilWarning:         30*time.Minute - afterWarning,
		AfterWarning:         afterWarning,
		FlashInterval:        750 * time.Millisecond,
		LogoutTimeout:        10 * time.Second,
		Activities:           AllActivities(),
		AlertTitle:           "Logging out in {seconds} seconds!",
		AlertIconHref:        "/static/images/exclamation_mark_red.png",
		LoggedOutTitlePrefix: "You have been logged out - ",
		LoggedOutText:        "You were logged out. Links will redirect to the login page.",
		AnimateClass:         "logout-animate",
		ConfirmMessage:       "This tab has timed out. Select Cancel (Esc) to stay on this page, or OK (Enter) to go to the login page.",
		LandingPath:          "/",
	}
}

// Monitor is the idle session state machine. All transitions run on the scheduler
// thread; the exported methods are safe to call from any goroutine.
type Monitor struct {
	mu sync.RWMutex

	id     string
	config Config
	sched  timer.Scheduler
	page   Page
	logout Logouter
	log    zerolog.Logger

	// Lifecycle
	state   State
	started bool
	closed  bool

	// Captured at start
	indicator        Indicator
	originalTitle    string
	originalIconHref string
	unlisten         func()
	flasher          *Flasher

	// Timer pair; at most one is pending while not logged out
	warningTimer *timer.Handle
	logoutTimer  *timer.Handle

	// Events
	eventCh chan Event

	// Context for the logout call
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a monitor. The scheduler must be running before Start is called.
func New(config Config, sched timer.Scheduler, page Page, logout Logouter) *Monitor {
	if config.FlashInterval <= 0 {
		config.FlashInterval = DefaultConfig().FlashInterval
	}
	if config.LogoutTimeout <= 0 {
		config.LogoutTimeout = DefaultConfig().LogoutTimeout
	}

	id := uuid.New().String()
	ctx, cancel := context.WithCancel(context.Background())
	return &Monitor{
		id:      id,
		config:  config,
		sched:   sched,
		page:    page,
		logout:  logout,
		log:     zlog.With().Str("component", "idle").Str("instance", id).Logger(),
		state:   StateActive,
		eventCh: make(chan Event, 16),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// InstanceID returns the unique ID of this monitor (one per page view).
func (m *Monitor) InstanceID() string {
	return m.id
}

// Events returns the event channel. It is closed by Close.
func (m *Monitor) Events() <-chan Event {
	return m.eventCh
}

// State returns the current session state.
func (m *Monitor) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Start captures the page's title and icon, registers activity listeners and arms
// the warning timer. It blocks until the scheduler has run the start step.
func (m *Monitor) Start() error {
	errCh := make(chan error, 1)
	m.sched.Post(func() {
		errCh <- m.start()
	})
	return <-errCh
}

// OnActivity records user activity. Safe to call at any rate from any goroutine.
func (m *Monitor) OnActivity(kind ActivityKind) {
	m.sched.Post(func() {
		m.handleActivity(kind)
	})
}

// Close tears the monitor down without logging out: timers are cancelled,
// listeners removed and the event channel closed once the scheduler runs it.
func (m *Monitor) Close() {
	m.cancel()
	m.sched.Post(m.teardown)
}

func (m *Monitor) start() error {
	if m.closed {
		return ErrClosed
	}
	if m.started {
		return ErrAlreadyStarted
	}

	indicator := m.page.Indicator()
	if indicator == nil {
		return ErrNoIndicator
	}

	m.indicator = indicator
	m.originalTitle = m.page.Title()
	m.originalIconHref = m.page.IconHref()
	m.flasher = NewFlasher(
		m.sched,
		m.page,
		m.config.FlashInterval,
		m.alertTitle(),
		m.config.AlertIconHref,
		m.originalTitle,
		m.originalIconHref,
	)
	m.unlisten = m.page.Listen(m.config.Activities, m.OnActivity)
	m.started = true
	m.setState(StateActive)
	m.armWarning()

	m.log.Info().Msgf("idle monitor started: until_warning=%v after_warning=%v activities=%d",
		m.config.UntilWarning, m.config.AfterWarning, len(m.config.Activities))
	m.sendEvent(EventStarted, nil)
	return nil
}

func (m *Monitor) handleActivity(kind ActivityKind) {
	if !m.started || m.closed || m.state == StateLoggedOut {
		return
	}

	wasWarning := m.state == StateWarning

	m.sched.Cancel(m.logoutTimer)
	m.logoutTimer = nil
	m.sched.Cancel(m.warningTimer)
	m.warningTimer = nil

	m.indicator.SetHidden(true)
	m.flasher.Stop()
	m.armWarning()
	m.setState(StateActive)

	if wasWarning {
		m.log.Info().Msgf("session extended by activity: kind=%s", kind)
		m.sendEvent(EventSessionExtended, nil)
	}
}

// onWarningElapsed moves Active to Warning.
func (m *Monitor) onWarningElapsed() {
	if m.closed || m.state != StateActive {
		return
	}

	m.sched.Cancel(m.warningTimer)
	m.warningTimer = nil
	m.logoutTimer = m.sched.After(m.config.AfterWarning, m.onLogoutElapsed)

	if m.config.WarningText != "" {
		m.indicator.SetText(m.config.WarningText)
	}
	m.indicator.SetHidden(false)
	m.setState(StateWarning)

	visible := m.page.Visible()
	if !visible {
		m.flasher.Start()
	}

	m.log.Info().Msgf("idle warning shown: logout_in=%v page_visible=%v", m.config.AfterWarning, visible)
	m.sendEvent(EventWarningShown, nil)
}

// onLogoutElapsed moves Warning to LoggedOut. There is no way back.
func (m *Monitor) onLogoutElapsed() {
	if m.closed || m.state != StateWarning {
		return
	}

	m.removeListeners()
	m.flasher.Stop()
	m.sched.Cancel(m.logoutTimer)
	m.logoutTimer = nil
	m.sched.Cancel(m.warningTimer)
	m.warningTimer = nil

	m.page.SetTitle(m.config.LoggedOutTitlePrefix + m.originalTitle)
	m.indicator.SetHidden(false)
	m.indicator.SetText(m.config.LoggedOutText)
	if m.config.AnimateClass != "" {
		m.indicator.RemoveClass(m.config.AnimateClass)
	}
	m.setState(StateLoggedOut)

	m.log.Info().Msg("idle timeout reached, logging out")
	m.sendEvent(EventLoggedOut, nil)

	go m.callLogout()
}

// callLogout runs off the scheduler thread and posts the result back.
func (m *Monitor) callLogout() {
	var err error
	if m.logout != nil {
		ctx, cancel := context.WithTimeout(m.ctx, m.config.LogoutTimeout)
		err = m.logout.Logout(ctx)
		cancel()
	}

	m.sched.Post(func() {
		m.onLogoutSettled(err)
	})
}

// onLogoutSettled prompts the user regardless of the logout result.
func (m *Monitor) onLogoutSettled(err error) {
	if m.closed {
		return
	}

	if err != nil {
		m.log.Warn().Err(err).Msg("logout call failed, prompting anyway")
	} else {
		m.log.Debug().Msg("logout call completed")
	}
	m.sendEvent(EventLogoutCompleted, err)

	m.page.Confirm(m.config.ConfirmMessage, func(ok bool) {
		m.sched.Post(func() {
			m.onLandingAnswer(ok)
		})
	})
}

func (m *Monitor) onLandingAnswer(ok bool) {
	if m.closed {
		return
	}

	if !ok {
		m.log.Info().Msg("user chose to stay on the logged out page")
		m.sendEvent(EventLandingDeclined, nil)
		return
	}

	m.log.Info().Msgf("navigating to landing page: path=%s", m.config.LandingPath)
	m.sendEvent(EventLandingConfirmed, nil)
	m.page.Navigate(m.config.LandingPath)
}

func (m *Monitor) teardown() {
	if m.closed {
		return
	}

	m.sched.Cancel(m.warningTimer)
	m.warningTimer = nil
	m.sched.Cancel(m.logoutTimer)
	m.logoutTimer = nil
	if m.flasher != nil && m.flasher.Flashing() {
		m.flasher.Stop()
	}
	m.removeListeners()

	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	close(m.eventCh)
}

func (m *Monitor) armWarning() {
	m.warningTimer = m.sched.After(m.config.UntilWarning, m.onWarningElapsed)
}

func (m *Monitor) removeListeners() {
	if m.unlisten != nil {
		m.unlisten()
		m.unlisten = nil
	}
}

func (m *Monitor) setState(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
}

func (m *Monitor) alertTitle() string {
	seconds := int(m.config.AfterWarning / time.Second)
	return strings.ReplaceAll(m.config.AlertTitle, "{seconds}", strconv.Itoa(seconds))
}

// sendEvent sends an event without blocking.
func (m *Monitor) sendEvent(t EventType, err error) {
	select {
	case m.eventCh <- Event{
		Type:       t,
		State:      m.state,
		InstanceID: m.id,
		At:         time.Now(),
		Err:        err,
	}:
	default:
		m.log.Debug().Msgf("event channel full, dropping event: type=%s", t)
	}
}
