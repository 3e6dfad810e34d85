package idle

import (
	"context"
	"sync"
)

type fakeIndicator struct {
	mu       sync.Mutex
	hidden   bool
	text     string
	classes  map[string]bool
	showings int
}

func newFakeIndicator() *fakeIndicator {
	return &fakeIndicator{
		hidden:  true,
		text:    "You will be logged out soon.",
		classes: map[string]bool{"logout-animate": true},
	}
}

func (i *fakeIndicator) SetHidden(hidden bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.hidden && !hidden {
		i.showings++
	}
	i.hidden = hidden
}

func (i *fakeIndicator) SetText(text string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.text = text
}

func (i *fakeIndicator) RemoveClass(class string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.classes, class)
}

func (i *fakeIndicator) snapshot() (hidden bool, text string, showings int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.hidden, i.text, i.showings
}

func (i *fakeIndicator) hasClass(class string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.classes[class]
}

type fakePage struct {
	mu sync.Mutex

	title     string
	iconHref  string
	titles    []string
	indicator *fakeIndicator
	visible   bool

	listener   func(ActivityKind)
	kinds      []ActivityKind
	unlistened int

	confirmMessage string
	answer         func(bool)
	navigated      []string
}

func newFakePage() *fakePage {
	return &fakePage{
		title:     "Study Portal",
		iconHref:  "/static/images/favicon.ico",
		indicator: newFakeIndicator(),
		visible:   true,
	}
}

func (p *fakePage) Title() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.title
}

func (p *fakePage) SetTitle(title string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if title != p.title {
		p.titles = append(p.titles, title)
	}
	p.title = title
}

func (p *fakePage) IconHref() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.iconHref
}

func (p *fakePage) SetIconHref(href string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.iconHref = href
}

func (p *fakePage) Indicator() Indicator {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.indicator == nil {
		return nil
	}
	return p.indicator
}

func (p *fakePage) Visible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible
}

func (p *fakePage) setVisible(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible = v
}

func (p *fakePage) Listen(kinds []ActivityKind, fn func(ActivityKind)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listener = fn
	p.kinds = kinds
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.listener = nil
		p.unlistened++
	}
}

// emit delivers an activity the way a host would, if anything is listening for it.
func (p *fakePage) emit(kind ActivityKind) {
	p.mu.Lock()
	fn := p.listener
	registered := false
	for _, k := range p.kinds {
		if k == kind {
			registered = true
		}
	}
	p.mu.Unlock()

	if fn != nil && registered {
		fn(kind)
	}
}

func (p *fakePage) Confirm(message string, answer func(ok bool)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.confirmMessage = message
	p.answer = answer
}

func (p *fakePage) pendingAnswer() func(bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.answer
}

func (p *fakePage) Navigate(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigated = append(p.navigated, path)
}

func (p *fakePage) titleHistory() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.titles...)
}

func (p *fakePage) navigations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.navigated...)
}

type fakeLogouter struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (l *fakeLogouter) Logout(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return l.err
}

func (l *fakeLogouter) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}
