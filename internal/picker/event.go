package picker

import "fmt"

// EventKind enumerates the inputs a session reacts to.
type EventKind int

const (
	EventDown EventKind = iota + 1
	EventUp
	EventCommit
	EventCancel
	EventInsert    // Text typed into the input surface
	EventBackspace // Delete the last rune of the input surface
)

func (k EventKind) String() string {
	switch k {
	case EventDown:
		return "down"
	case EventUp:
		return "up"
	case EventCommit:
		return "commit"
	case EventCancel:
		return "cancel"
	case EventInsert:
		return "insert"
	case EventBackspace:
		return "backspace"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is one keystroke-level input delivered to Session.Dispatch.
type Event struct {
	Kind EventKind
	Text string // EventInsert only
}

// State is a session's position in its lifecycle.
type State int

const (
	StateOpening    State = iota // Surfaces not yet created or focused
	StateActive                  // Accepting events
	StateCommitting              // Resolving and delivering the selection
	StateCancelling              // Closing without a selection
	StateClosed                  // Terminal; surfaces destroyed
)

func (s State) String() string {
	switch s {
	case StateOpening:
		return "opening"
	case StateActive:
		return "active"
	case StateCommitting:
		return "committing"
	case StateCancelling:
		return "cancelling"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Variant selects the picker flavor.
type Variant int

const (
	// ReadOnly shows a single list; commit returns the line under the cursor.
	ReadOnly Variant = iota
	// Editable shows title, input, and list; commit returns the input text.
	Editable
)

func (v Variant) String() string {
	if v == Editable {
		return "editable"
	}
	return "readonly"
}
