package pses

import (
	"context"
	"encoding/json"
)

// Client is a session with one PowerShell Editor Services worker.
//
// Lifecycle: Clients are single-use. After Close(), create a new client with NewClient().
//
// Example usage:
//
//	client, err := NewClient(WithBundledModulesPath(modules))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	if err := client.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	version, err := client.GetVersion(ctx)
type Client interface {
	// Start launches the worker and connects to it.
	// Must be called before any request or notification.
	// Returns HandshakeError if the worker reports a failed session,
	// TimeoutError if it never writes its session file, ProcessError if it
	// exits first and ConnectionError if its endpoint cannot be opened.
	Start(ctx context.Context) error

	// InvokeCommand runs a command pipeline and returns its output.
	InvokeCommand(ctx context.Context, pipeline *Pipeline) (*InvokeResult, error)

	// GetVersion returns the PowerShell version hosting the worker.
	GetVersion(ctx context.Context) (*VersionDetails, error)

	// SendRequest sends a request and returns the raw result.
	// Returns ResponseError if the worker answers with an error.
	SendRequest(ctx context.Context, method string, params any) (json.RawMessage, error)

	// SendNotification sends a notification. No response is expected.
	SendNotification(ctx context.Context, method string, params any) error

	// OnNotification registers a handler for notifications from the worker.
	// Handlers may be registered before Start; notifications that arrive
	// before their handler are held and delivered on registration.
	OnNotification(method string, handler NotificationHandler)

	// OnRequest registers a handler for requests from the worker.
	OnRequest(method string, handler RequestHandler)

	// OnRunspaceChanged registers a handler for runspace changes.
	OnRunspaceChanged(handler func(ctx context.Context, details *RunspaceDetails))

	// State returns the current lifecycle state.
	State() State

	// ProcessID returns the worker's process id, or 0 if none is running.
	ProcessID() int

	// Descriptor returns the session descriptor the worker wrote, or nil.
	Descriptor() *SessionDescriptor

	// SessionFile returns the path of the client's session descriptor.
	SessionFile() string

	// SpawnSpec returns the executable, arguments and environment Start
	// would launch, without launching anything.
	// Returns ExecutableNotFoundError if no PowerShell executable is found.
	SpawnSpec(ctx context.Context) (SpawnSpec, error)

	// Close terminates the session and cleans up resources.
	// After Close(), the client cannot be reused. Safe to call multiple times
	// and before Start.
	Close() error
}

// NewClient creates a new client. The worker is not launched until Start.
//
// Returns an error if an option is invalid, such as a profile with an
// unparsable duration.
func NewClient(opts ...Option) (Client, error) {
	options, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	return newClientImpl(options), nil
}
