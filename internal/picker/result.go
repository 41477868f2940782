package picker

import "github.com/runger/nvpick/internal/host"

// Result is what a committed session delivers.
type Result struct {
	SessionID string
	Text      string   // selected or typed text
	Items     []string // backing list after the commit
}

// Handler receives the result of a committed session. It runs at most once
// per session, synchronously inside the commit, after the surfaces are gone.
type Handler func(Result)

// Handles exposes the host handles of a session's surfaces. Surfaces a
// variant does not have are host.InvalidHandle.
type Handles struct {
	Title host.Handle
	Input host.Handle
	List  host.Handle
}
