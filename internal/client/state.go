package client

import "fmt"

// State is the lifecycle state of a Client.
type State int

const (
	// StateIdle is a new client that has not been started.
	StateIdle State = iota
	// StateLaunching is spawning the worker process.
	StateLaunching
	// StateAwaitingHandshake is waiting for the session descriptor.
	StateAwaitingHandshake
	// StateConnected has a live connection to the worker.
	StateConnected
	// StateFailed is a client whose start failed or whose connection was lost.
	StateFailed
	// StateDisposed is a client that has released its resources.
	StateDisposed
)

var stateNames = [...]string{
	StateIdle:              "idle",
	StateLaunching:         "launching",
	StateAwaitingHandshake: "awaiting_handshake",
	StateConnected:         "connected",
	StateFailed:            "failed",
	StateDisposed:          "disposed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}

	return fmt.Sprintf("State(%d)", int(s))
}
