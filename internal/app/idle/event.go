package idle

import "time"

// EventType represents a monitor event type.
type EventType int

const (
	EventStarted          EventType = iota // Monitor started, warning timer armed
	EventWarningShown                      // Warning indicator became visible
	EventSessionExtended                   // Activity during warning returned to active
	EventLoggedOut                         // Logout timer elapsed
	EventLogoutCompleted                   // Logout call settled (Err set on failure)
	EventLandingConfirmed                  // User chose to leave for the landing page
	EventLandingDeclined                   // User chose to stay on the stale page
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventStarted:
		return "started"
	case EventWarningShown:
		return "warning_shown"
	case EventSessionExtended:
		return "session_extended"
	case EventLoggedOut:
		return "logged_out"
	case EventLogoutCompleted:
		return "logout_completed"
	case EventLandingConfirmed:
		return "landing_confirmed"
	case EventLandingDeclined:
		return "landing_declined"
	default:
		return "unknown"
	}
}

// Event represents a monitor event.
type Event struct {
	Type       EventType
	State      State
	InstanceID string
	At         time.Time
	Err        error // Logout call error, EventLogoutCompleted only
}
