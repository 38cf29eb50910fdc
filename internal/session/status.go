package session

import (
	"time"

	"github.com/junsooki/FocusLink/internal/channel"
)

// IndicatorError is shown while the service has reported an error since the
// last successful connect.
const IndicatorError = "error"

// Status is a point-in-time view of a session.
type Status struct {
	SessionID string
	StartedAt time.Time

	State      channel.State
	FocusScore int
	ErrorCount int
	Streaming  bool

	// Indicator is the state's label, or IndicatorError after a server
	// error notice.
	Indicator string
	// ServerError is set by any error notice since the last connect, even
	// one with empty text.
	ServerError     bool
	LastServerError string

	// LastError is the most recent acquisition or transport failure.
	LastError error
}
