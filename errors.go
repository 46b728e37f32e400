package pses

import "github.com/wagiedev/pses-client-go/internal/errors"

// Re-export error types from internal package

// SessionError is the base interface for all client errors.
type SessionError = errors.SessionError

// SpawnError indicates the worker executable could not be started.
type SpawnError = errors.SpawnError

// ExecutableNotFoundError indicates no PowerShell executable was found.
type ExecutableNotFoundError = errors.ExecutableNotFoundError

// TimeoutError indicates the worker never wrote its session file.
type TimeoutError = errors.TimeoutError

// HandshakeError indicates the worker reported a failed session.
type HandshakeError = errors.HandshakeError

// HandshakeReason classifies a HandshakeError.
type HandshakeReason = errors.HandshakeReason

// Handshake failure reasons.
const (
	ReasonUnspecified            = errors.ReasonUnspecified
	ReasonUnsupportedVersion     = errors.ReasonUnsupportedVersion
	ReasonRestrictedLanguageMode = errors.ReasonRestrictedLanguageMode
)

// ConnectionError indicates the worker's endpoint could not be opened.
type ConnectionError = errors.ConnectionError

// ProcessError indicates the worker process exited.
type ProcessError = errors.ProcessError

// DescriptorParseError indicates a malformed session file.
type DescriptorParseError = errors.DescriptorParseError

// DescriptorIOError indicates a session file could not be read or written.
type DescriptorIOError = errors.DescriptorIOError

// FrameError indicates a malformed message frame on the connection.
type FrameError = errors.FrameError

// ResponseError is an error response from the worker.
type ResponseError = errors.ResponseError

// MessageParseError indicates a worker message could not be decoded.
type MessageParseError = errors.MessageParseError

// Re-export sentinel errors from internal package.
var (
	// ErrNotConnected indicates the client has no live connection.
	ErrNotConnected = errors.ErrNotConnected

	// ErrAlreadyStarted indicates Start was called more than once.
	ErrAlreadyStarted = errors.ErrAlreadyStarted

	// ErrClientClosed indicates the client has been closed and cannot be reused.
	ErrClientClosed = errors.ErrClientClosed

	// ErrConnectionClosed indicates the connection closed while a request was outstanding.
	ErrConnectionClosed = errors.ErrConnectionClosed

	// ErrRequestTimeout indicates a request timed out.
	ErrRequestTimeout = errors.ErrRequestTimeout

	// ErrDescriptorNotFound indicates no session file exists.
	ErrDescriptorNotFound = errors.ErrDescriptorNotFound

	// ErrEmptyPipeline indicates a pipeline with no commands.
	ErrEmptyPipeline = errors.ErrEmptyPipeline
)
