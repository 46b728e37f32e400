// Package config provides configuration types for the session client.
package config

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"

	"github.com/wagiedev/pses-client-go/internal/session"
	"github.com/wagiedev/pses-client-go/internal/subprocess"
)

// Transport is a framed JSON-RPC message stream to the worker.
//
// The default implementation is transport.Conn over a TCP socket or pipe.
// Custom transports can be returned from a Dialer for testing.
type Transport interface {
	// ReadMessages returns channels for receiving decoded messages and errors.
	// Both channels are closed when reading completes or an error occurs.
	ReadMessages(ctx context.Context) (<-chan jsonrpc.Message, <-chan error)

	// SendMessage encodes and writes one message.
	// This method must be safe for concurrent use.
	SendMessage(ctx context.Context, msg jsonrpc.Message) error

	// Close terminates the transport and releases resources.
	// It's safe to call Close multiple times.
	Close() error
}

// Process is a running worker process.
type Process interface {
	// Pid returns the OS process id.
	Pid() int

	// Exited returns a channel that is closed once the process has exited.
	Exited() <-chan struct{}

	// ExitError describes how the process exited. Only valid after Exited is closed.
	ExitError() error

	// Kill terminates the process and its process group. Safe to call repeatedly.
	Kill() error
}

// Spawner starts the worker process.
type Spawner interface {
	Spawn(ctx context.Context, spec subprocess.Spec) (Process, error)
}

// Dialer opens a connection to the endpoint a started descriptor advertises.
type Dialer interface {
	Dial(ctx context.Context, desc *session.Descriptor) (Transport, error)
}
