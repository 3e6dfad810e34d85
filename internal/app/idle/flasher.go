package idle

import (
	"time"

	"github.com/osa030/autologout/internal/app/timer"
)

// Flasher alternates the page title and icon between their originals and an alert
// while the page is in the background. Must be used from the scheduler thread.
type Flasher struct {
	sched    timer.Scheduler
	page     Page
	interval time.Duration

	alertTitle    string
	alertIconHref string

	originalTitle    string
	originalIconHref string

	flashing  bool
	showAlert bool
	handle    *timer.Handle
}

// NewFlasher creates a flasher that restores to the given original title and icon.
func NewFlasher(sched timer.Scheduler, page Page, interval time.Duration, alertTitle, alertIconHref, originalTitle, originalIconHref string) *Flasher {
	return &Flasher{
		sched:            sched,
		page:             page,
		interval:         interval,
		alertTitle:       alertTitle,
		alertIconHref:    alertIconHref,
		originalTitle:    originalTitle,
		originalIconHref: originalIconHref,
	}
}

// Start begins flashing. The alert is shown immediately.
func (f *Flasher) Start() {
	if f.flashing {
		return
	}
	f.flashing = true
	f.showAlert = false
	f.tick()
}

// Stop ends flashing and restores the original title and icon.
func (f *Flasher) Stop() {
	f.flashing = false
	f.sched.Cancel(f.handle)
	f.handle = nil
	f.showAlert = false
	f.page.SetTitle(f.originalTitle)
	f.page.SetIconHref(f.originalIconHref)
}

// Flashing returns true while the flasher loop is running.
func (f *Flasher) Flashing() bool {
	return f.flashing
}

func (f *Flasher) tick() {
	f.handle = nil
	if !f.flashing {
		f.page.SetTitle(f.originalTitle)
		f.page.SetIconHref(f.originalIconHref)
		return
	}

	f.showAlert = !f.showAlert
	if f.showAlert {
		f.page.SetTitle(f.alertTitle)
		f.page.SetIconHref(f.alertIconHref)
	} else {
		f.page.SetTitle(f.originalTitle)
		f.page.SetIconHref(f.originalIconHref)
	}

	f.handle = f.sched.After(f.interval, f.tick)
}
