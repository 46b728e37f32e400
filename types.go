package pses

import (
	"github.com/wagiedev/pses-client-go/internal/client"
	"github.com/wagiedev/pses-client-go/internal/command"
	"github.com/wagiedev/pses-client-go/internal/config"
	"github.com/wagiedev/pses-client-go/internal/message"
	"github.com/wagiedev/pses-client-go/internal/protocol"
	"github.com/wagiedev/pses-client-go/internal/session"
)

// ===== Commands =====

// Pipeline is an ordered sequence of PowerShell commands.
type Pipeline = command.Pipeline

// Command is one stage of a Pipeline.
type Command = command.Command

// Parameter is a named or positional command parameter.
type Parameter = command.Parameter

// NewPipeline creates an empty command pipeline.
func NewPipeline() *Pipeline {
	return command.New()
}

// ===== Worker messages =====

// InvokeResult is the output of an invoked pipeline.
type InvokeResult = message.InvokeResult

// VersionDetails describes the PowerShell version hosting the worker.
type VersionDetails = message.VersionDetails

// RunspaceDetails describes the worker's active runspace.
type RunspaceDetails = message.RunspaceDetails

// RunspaceType identifies where a runspace lives.
type RunspaceType = message.RunspaceType

// Runspace types.
const (
	RunspaceLocal   = message.RunspaceLocal
	RunspaceProcess = message.RunspaceProcess
	RunspaceRemote  = message.RunspaceRemote
)

// Worker method names.
const (
	MethodInvokePSCommand = message.MethodInvokePSCommand
	MethodGetVersion      = message.MethodGetVersion
	MethodRunspaceChanged = message.MethodRunspaceChanged
)

// NotificationHandler handles a notification from the worker.
type NotificationHandler = protocol.NotificationHandler

// RequestHandler handles a request from the worker.
type RequestHandler = protocol.RequestHandler

// ===== Session =====

// SessionDescriptor is the session file the worker writes at startup.
type SessionDescriptor = session.Descriptor

// Session descriptor statuses and channels.
const (
	StatusStarted = session.StatusStarted
	StatusFailed  = session.StatusFailed
	ChannelPort   = session.ChannelPort
	ChannelPipe   = session.ChannelPipe
)

// State is the lifecycle state of a Client.
type State = client.State

// Client states.
const (
	StateIdle              = client.StateIdle
	StateLaunching         = client.StateLaunching
	StateAwaitingHandshake = client.StateAwaitingHandshake
	StateConnected         = client.StateConnected
	StateFailed            = client.StateFailed
	StateDisposed          = client.StateDisposed
)

// ===== Configuration =====

// Options configures a client. Build it with Option values.
type Options = config.Options

// ProcessConfig describes how the worker process is launched.
type ProcessConfig = config.ProcessConfig

// Profile is a TOML launch profile.
type Profile = config.Profile

// LoadProfile reads a TOML launch profile. A missing file yields an empty
// profile.
func LoadProfile(path string) (*Profile, error) {
	return config.LoadProfile(path)
}
