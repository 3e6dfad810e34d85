package idle

import "context"

// Page is the host surface the monitor drives. Implementations must not call back
// into the monitor synchronously from these methods.
type Page interface {
	Title() string
	SetTitle(title string)
	IconHref() string
	SetIconHref(href string)

	// Indicator returns the warning indicator, or nil if the page has none.
	Indicator() Indicator

	// Visible reports whether the page is currently in front of the user.
	Visible() bool

	// Listen registers fn for the given activity kinds and returns a function
	// that removes the registration.
	Listen(kinds []ActivityKind, fn func(ActivityKind)) (unlisten func())

	// Confirm asks the user a yes/no question; answer may be called from any goroutine.
	Confirm(message string, answer func(ok bool))

	// Navigate moves the page to path.
	Navigate(path string)
}

// Indicator is the element used to display the logout warning.
type Indicator interface {
	SetHidden(hidden bool)
	SetText(text string)
	RemoveClass(class string)
}

// Logouter ends the server-side session.
type Logouter interface {
	Logout(ctx context.Context) error
}

// LogouterFunc adapts a function to Logouter.
type LogouterFunc func(ctx context.Context) error

// Logout calls f(ctx).
func (f LogouterFunc) Logout(ctx context.Context) error {
	return f(ctx)
}
