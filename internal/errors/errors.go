package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SessionError is the base interface for all session client errors.
type SessionError interface {
	error
	IsSessionError() bool
}

// Compile-time verification that all error types implement SessionError.
var (
	_ SessionError = (*SpawnError)(nil)
	_ SessionError = (*ExecutableNotFoundError)(nil)
	_ SessionError = (*TimeoutError)(nil)
	_ SessionError = (*HandshakeError)(nil)
	_ SessionError = (*ConnectionError)(nil)
	_ SessionError = (*ProcessError)(nil)
	_ SessionError = (*DescriptorParseError)(nil)
	_ SessionError = (*DescriptorIOError)(nil)
	_ SessionError = (*FrameError)(nil)
	_ SessionError = (*ResponseError)(nil)
	_ SessionError = (*MessageParseError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrNotConnected indicates the client has no live connection to the worker.
	ErrNotConnected = errors.New("client not connected")

	// ErrAlreadyStarted indicates Start was called more than once.
	ErrAlreadyStarted = errors.New("client already started")

	// ErrClientClosed indicates the client has been disposed and cannot be reused.
	ErrClientClosed = errors.New("client closed: clients are single-use, create a new one with NewClient()")

	// ErrConnectionClosed indicates the connection was torn down while a request was outstanding.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrRequestTimeout indicates a request timed out.
	ErrRequestTimeout = errors.New("request timeout")

	// ErrDescriptorNotFound indicates no session descriptor file exists at the path.
	ErrDescriptorNotFound = errors.New("session descriptor not found")

	// ErrEmptyPipeline indicates a pipeline has no commands, or a parameter was
	// added before any command.
	ErrEmptyPipeline = errors.New("pipeline has no current command")
)

// SpawnError indicates the worker executable could not be started.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start worker %s: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// IsSessionError implements SessionError.
func (e *SpawnError) IsSessionError() bool { return true }

// ExecutableNotFoundError indicates no PowerShell executable could be located.
type ExecutableNotFoundError struct {
	SearchedPaths []string
}

func (e *ExecutableNotFoundError) Error() string {
	return fmt.Sprintf("powershell executable not found in: %v", e.SearchedPaths)
}

// IsSessionError implements SessionError.
func (e *ExecutableNotFoundError) IsSessionError() bool { return true }

// TimeoutError indicates the session descriptor never appeared.
//
// LastErr holds the last read or parse failure observed while polling, if the
// file appeared but could never be decoded.
type TimeoutError struct {
	Path     string
	Attempts int
	Interval time.Duration
	LastErr  error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("timed out waiting for session file %s after %d attempts", e.Path, e.Attempts)
	if e.LastErr != nil {
		msg += fmt.Sprintf(" (last error: %v)", e.LastErr)
	}

	return msg
}

func (e *TimeoutError) Unwrap() error {
	return e.LastErr
}

// IsSessionError implements SessionError.
func (e *TimeoutError) IsSessionError() bool { return true }

// HandshakeReason classifies why the worker reported a failed start.
type HandshakeReason int

const (
	// ReasonUnspecified is any failure reason the client does not recognise.
	ReasonUnspecified HandshakeReason = iota
	// ReasonUnsupportedVersion means the runtime version is too old.
	ReasonUnsupportedVersion
	// ReasonRestrictedLanguageMode means the runtime runs in a restricted language mode.
	ReasonRestrictedLanguageMode
)

func (r HandshakeReason) String() string {
	switch r {
	case ReasonUnsupportedVersion:
		return "unsupported-runtime-version"
	case ReasonRestrictedLanguageMode:
		return "restricted-execution-mode"
	default:
		return "unspecified"
	}
}

// ParseHandshakeReason maps the worker's raw reason string to a HandshakeReason.
func ParseHandshakeReason(raw string) HandshakeReason {
	switch raw {
	case "unsupported":
		return ReasonUnsupportedVersion
	case "languageMode":
		return ReasonRestrictedLanguageMode
	default:
		return ReasonUnspecified
	}
}

// HandshakeError indicates the worker wrote a descriptor with status "failed".
type HandshakeError struct {
	Reason         HandshakeReason
	RawReason      string
	Detail         string
	RuntimeVersion string
}

func (e *HandshakeError) Error() string {
	switch e.Reason {
	case ReasonUnsupportedVersion:
		msg := fmt.Sprintf(
			"language features are only supported on PowerShell version 3 and above, the current version is %s",
			e.RuntimeVersion,
		)
		if e.Detail != "" {
			msg += ": " + e.Detail
		}

		return msg
	case ReasonRestrictedLanguageMode:
		return fmt.Sprintf("language features are disabled due to an unsupported LanguageMode: %s", e.Detail)
	default:
		msg := fmt.Sprintf("PowerShell could not be started for an unknown reason %q", e.RawReason)
		if e.Detail != "" {
			msg += ": " + e.Detail
		}

		return msg
	}
}

// IsSessionError implements SessionError.
func (e *HandshakeError) IsSessionError() bool { return true }

// ConnectionError indicates the advertised endpoint could not be opened.
type ConnectionError struct {
	Channel string
	Address string
	Err     error
}

func (e *ConnectionError) Error() string {
	if e.Address == "" {
		return fmt.Sprintf("failed to connect to worker: %v", e.Err)
	}

	return fmt.Sprintf("failed to connect to worker %s %s: %v", e.Channel, e.Address, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsSessionError implements SessionError.
func (e *ConnectionError) IsSessionError() bool { return true }

// ProcessError indicates the worker process exited.
type ProcessError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("worker process exited (exit %d): %v", e.ExitCode, e.Err)
	}

	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		return fmt.Sprintf("worker process exited (exit %d): %s", e.ExitCode, stderr)
	}

	return fmt.Sprintf("worker process exited (exit %d)", e.ExitCode)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// IsSessionError implements SessionError.
func (e *ProcessError) IsSessionError() bool { return true }

// DescriptorParseError indicates the session descriptor is not well-formed.
type DescriptorParseError struct {
	Path string
	Err  error
}

func (e *DescriptorParseError) Error() string {
	return fmt.Sprintf("failed to parse session file %s: %v", e.Path, e.Err)
}

func (e *DescriptorParseError) Unwrap() error {
	return e.Err
}

// IsSessionError implements SessionError.
func (e *DescriptorParseError) IsSessionError() bool { return true }

// DescriptorIOError indicates the session descriptor could not be read or written.
type DescriptorIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *DescriptorIOError) Error() string {
	return fmt.Sprintf("failed to %s session file %s: %v", e.Op, e.Path, e.Err)
}

func (e *DescriptorIOError) Unwrap() error {
	return e.Err
}

// IsSessionError implements SessionError.
func (e *DescriptorIOError) IsSessionError() bool { return true }

// FrameError indicates a malformed message frame on the connection.
type FrameError struct {
	Err error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("malformed message frame: %v", e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// IsSessionError implements SessionError.
func (e *FrameError) IsSessionError() bool { return true }

// ResponseError is an error response returned by the worker for a request.
// Code is the JSON-RPC error code.
type ResponseError struct {
	Method  string
	Code    int64
	Message string
}

func (e *ResponseError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("request %s failed (code %d): %s", e.Method, e.Code, e.Message)
	}

	return fmt.Sprintf("request %s failed: %s", e.Method, e.Message)
}

// IsSessionError implements SessionError.
func (e *ResponseError) IsSessionError() bool { return true }

// MessageParseError indicates a worker message could not be decoded into its
// typed form. Data holds the raw payload.
type MessageParseError struct {
	Method string
	Data   []byte
	Err    error
}

func (e *MessageParseError) Error() string {
	return fmt.Sprintf("parse %s message: %v", e.Method, e.Err)
}

func (e *MessageParseError) Unwrap() error {
	return e.Err
}

// IsSessionError implements SessionError.
func (e *MessageParseError) IsSessionError() bool { return true }
