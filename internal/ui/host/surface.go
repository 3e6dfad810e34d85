package host

import (
	"sort"
	"sync"

	"github.com/osa030/autologout/internal/app/idle"
)

// View is a point-in-time copy of a surface for rendering.
type View struct {
	Title            string
	IconHref         string
	Visible          bool
	HasIndicator     bool
	IndicatorHidden  bool
	IndicatorText    string
	IndicatorClasses []string
}

// HasClass reports whether the indicator carries class.
func (v View) HasClass(class string) bool {
	for _, c := range v.IndicatorClasses {
		if c == class {
			return true
		}
	}
	return false
}

// Surface holds the mutable page state shared by every host: title, icon,
// indicator, visibility and activity listeners. All methods are safe for
// concurrent use; onChange runs after each mutation, outside the lock.
type Surface struct {
	mu sync.Mutex

	title    string
	iconHref string
	visible  bool

	hasIndicator    bool
	indicatorHidden bool
	indicatorText   string
	classes         map[string]bool

	nextListener int
	listeners    map[int]listener

	onChange func()
}

type listener struct {
	kinds map[idle.ActivityKind]bool
	fn    func(idle.ActivityKind)
}

// NewSurface creates a surface with a hidden indicator.
func NewSurface(opts Options) *Surface {
	s := &Surface{
		title:           opts.Title,
		iconHref:        opts.IconHref,
		visible:         true,
		hasIndicator:    true,
		indicatorHidden: true,
		indicatorText:   opts.IndicatorText,
		classes:         make(map[string]bool),
		listeners:       make(map[int]listener),
	}
	if opts.AnimateClass != "" {
		s.classes[opts.AnimateClass] = true
	}
	return s
}

// OnChange sets the function called after every mutation.
func (s *Surface) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// RemoveIndicator drops the indicator element from the page.
func (s *Surface) RemoveIndicator() {
	s.update(func() { s.hasIndicator = false })
}

func (s *Surface) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

func (s *Surface) SetTitle(title string) {
	s.update(func() { s.title = title })
}

func (s *Surface) IconHref() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.iconHref
}

func (s *Surface) SetIconHref(href string) {
	s.update(func() { s.iconHref = href })
}

// Indicator returns the warning indicator, or nil once removed.
func (s *Surface) Indicator() idle.Indicator {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasIndicator {
		return nil
	}
	return surfaceIndicator{s}
}

func (s *Surface) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

// SetVisible records whether the page is in front of the user.
func (s *Surface) SetVisible(visible bool) {
	s.update(func() { s.visible = visible })
}

// Listen registers fn for kinds.
func (s *Surface) Listen(kinds []idle.ActivityKind, fn func(idle.ActivityKind)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := make(map[idle.ActivityKind]bool, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = listener{kinds: set, fn: fn}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.listeners, id)
		})
	}
}

// Dispatch delivers an activity to every listener registered for kind.
func (s *Surface) Dispatch(kind idle.ActivityKind) {
	s.mu.Lock()
	fns := make([]func(idle.ActivityKind), 0, len(s.listeners))
	for _, l := range s.listeners {
		if l.kinds[kind] {
			fns = append(fns, l.fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(kind)
	}
}

// ListenerCount returns the number of registered listeners.
func (s *Surface) ListenerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

// Snapshot returns a copy of the current page state.
func (s *Surface) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	classes := make([]string, 0, len(s.classes))
	for c := range s.classes {
		classes = append(classes, c)
	}
	sort.Strings(classes)

	return View{
		Title:            s.title,
		IconHref:         s.iconHref,
		Visible:          s.visible,
		HasIndicator:     s.hasIndicator,
		IndicatorHidden:  s.indicatorHidden,
		IndicatorText:    s.indicatorText,
		IndicatorClasses: classes,
	}
}

func (s *Surface) update(fn func()) {
	s.mu.Lock()
	fn()
	notify := s.onChange
	s.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// surfaceIndicator is the indicator element of a Surface.
type surfaceIndicator struct {
	s *Surface
}

func (i surfaceIndicator) SetHidden(hidden bool) {
	i.s.update(func() { i.s.indicatorHidden = hidden })
}

func (i surfaceIndicator) SetText(text string) {
	i.s.update(func() { i.s.indicatorText = text })
}

func (i surfaceIndicator) RemoveClass(class string) {
	i.s.update(func() { delete(i.s.classes, class) })
}
