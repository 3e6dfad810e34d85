// Package idle provides the idle session monitor: it warns, then logs out, after a
// period without user activity.
package idle

// State represents the monitored session state.
type State int

const (
	StateActive    State = iota // User activity seen within the warning delay
	StateWarning                // Warning shown, logout timer running
	StateLoggedOut              // Logged out; terminal for this monitor
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateWarning:
		return "warning"
	case StateLoggedOut:
		return "logged_out"
	default:
		return "unknown"
	}
}

// ActivityKind identifies the host signal that counted as user activity.
type ActivityKind int

const (
	ActivityPointerMove ActivityKind = iota
	ActivityPointerDown
	ActivityKeyPress
	ActivityTouchMove
	ActivityFocus
	ActivityScroll
	ActivityVisibilityChange
)

var activityNames = map[ActivityKind]string{
	ActivityPointerMove:      "pointer_move",
	ActivityPointerDown:      "pointer_down",
	ActivityKeyPress:         "key_press",
	ActivityTouchMove:        "touch_move",
	ActivityFocus:            "focus",
	ActivityScroll:           "scroll",
	ActivityVisibilityChange: "visibility_change",
}

// String returns the config name of the activity kind.
func (k ActivityKind) String() string {
	if name, ok := activityNames[k]; ok {
		return name
	}
	return "unknown"
}

// AllActivities returns every activity kind in listener registration order.
func AllActivities() []ActivityKind {
	return []ActivityKind{
		ActivityPointerMove,
		ActivityFocus,
		ActivityPointerDown,
		ActivityKeyPress,
		ActivityTouchMove,
		ActivityScroll,
		ActivityVisibilityChange,
	}
}

// ParseActivity parses a config name such as "key_press".
func ParseActivity(name string) (ActivityKind, bool) {
	for k, n := range activityNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}
