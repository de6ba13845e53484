package term

import "errors"

// EventType distinguishes the kind of event published on the manager's
// event stream.
type EventType int

const (
	// EventOutput carries a chunk of terminal output.
	EventOutput EventType = iota
	// EventClosed reports that a session's reader loop stopped, with the
	// reason (end of stream or the read error).
	EventClosed
	// EventExit reports that a session's shell process terminated.
	EventExit
)

// Event is a single notification about one session.
type Event struct {
	Type EventType
	ID   string
	// Data holds the decoded output text for EventOutput.
	Data string
	// Reason describes why the reader stopped (EventClosed) or how the
	// process ended (EventExit).
	Reason string
}

var (
	// ErrNotFound is returned when an operation references a session id
	// with no entry in the registry.
	ErrNotFound = errors.New("term: session not found")

	// ErrInvalidArgument is returned for structurally bad parameters,
	// such as a non-positive resize dimension.
	ErrInvalidArgument = errors.New("term: invalid argument")
)

// CreateRequest describes a new session. Zero-value fields fall back to
// defaults: the detected login shell, the home directory, and 24x80.
type CreateRequest struct {
	// Command optionally overrides the shell command line for this
	// session. It is split like a shell would split it.
	Command string
	// Cwd is the working directory; empty means the home directory.
	Cwd string
	// StartupCommand, when non-empty, is written to the session (with a
	// trailing newline) after the settle delay, if the session is still
	// registered by then.
	StartupCommand string
	Rows           int
	Cols           int
}
