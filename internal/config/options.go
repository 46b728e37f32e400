package config

import (
	"log/slog"
	"time"
)

// Defaults applied by ApplyDefaults when a field is left at its zero value.
const (
	DefaultEditorServicesVersion = "1.4.1"
	DefaultHostName              = "PowerShell Editor Services Go Host"
	DefaultHostProfileID         = "PSES.Go"
	DefaultHostVersion           = "0.1.0"
	DefaultLogLevel              = "Normal"
	DefaultExecutionPolicy       = "Bypass"
	DefaultWaitMaxAttempts       = 60
	DefaultWaitInterval          = time.Second
	DefaultRequestTimeout        = 60 * time.Second
)

// ProcessConfig describes how the worker process is launched.
//
// BuildArgs turns it into the argument vector; the values are passed to the
// start script verbatim apart from quote escaping.
type ProcessConfig struct {
	// ExecutablePath is the PowerShell executable.
	// If empty, discovery searches PATH and the platform defaults.
	ExecutablePath string

	// StartScriptPath is the worker's Start-EditorServices.ps1 script.
	StartScriptPath string

	// EditorServicesVersion is the session protocol version the host requires.
	EditorServicesVersion string

	// HostName, HostProfileID and HostVersion identify the host to the worker.
	HostName      string
	HostProfileID string
	HostVersion   string

	// AdditionalModules are extra modules the worker imports at startup.
	AdditionalModules []string

	// BundledModulesPath is the directory holding the worker's modules.
	BundledModulesPath string

	// EnableConsoleRepl starts the worker with an interactive console.
	EnableConsoleRepl bool

	// WaitForDebugger makes the worker block until a debugger attaches.
	WaitForDebugger bool

	// LogLevel is the worker's log verbosity (Diagnostic, Verbose, Normal, ...).
	LogLevel string

	// LogPath is where the worker writes its own log.
	LogPath string

	// SessionDetailsPath is where the worker writes the session descriptor.
	// The client fills this in from the session paths before launching.
	SessionDetailsPath string

	// FeatureFlags are passed through to the worker.
	FeatureFlags []string

	// IsWindows selects Windows-only arguments such as -ExecutionPolicy.
	IsWindows bool

	// ExecutionPolicy is the policy passed on Windows.
	ExecutionPolicy string

	// IsWindowsDevBuild sets DEVPATH to the executable's directory.
	IsWindowsDevBuild bool

	// Env provides additional environment variables for the worker process.
	Env map[string]string

	// Cwd sets the working directory for the worker process.
	Cwd string
}

// Options configures a session client.
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// Process configures the worker launch.
	Process ProcessConfig

	// SessionsDir is the directory for session descriptor files.
	// If empty, the session package default is used.
	SessionsDir string

	// SessionPrefix is the file name prefix of session descriptors.
	SessionPrefix string

	// HostPID is the host process id embedded in descriptor file names.
	// If zero, the current process id is used.
	HostPID int

	// SessionID is the unique id of this client's descriptor file.
	// If empty, a fresh ULID is generated per client.
	SessionID string

	// WaitMaxAttempts is the number of polls for the session descriptor.
	WaitMaxAttempts int

	// WaitInterval is the delay between polls.
	WaitInterval time.Duration

	// RequestTimeout bounds how long a request waits for its response.
	// Zero applies DefaultRequestTimeout; a negative value disables the bound.
	RequestTimeout time.Duration

	// Stderr is a callback invoked with each line the worker writes to stderr.
	Stderr func(string)

	// Stdout is a callback invoked with each line the worker writes to stdout.
	Stdout func(string)

	// Spawner allows injecting a custom process launcher.
	// If nil, worker processes are started with the subprocess package.
	// This field is not serialized.
	Spawner Spawner `json:"-"`

	// Dialer allows injecting a custom connection establisher.
	// If nil, the transport package dials the advertised endpoint.
	// This field is not serialized.
	Dialer Dialer `json:"-"`
}

// ApplyDefaults fills zero-valued fields with their defaults.
func (o *Options) ApplyDefaults() {
	p := &o.Process

	if p.EditorServicesVersion == "" {
		p.EditorServicesVersion = DefaultEditorServicesVersion
	}

	if p.HostName == "" {
		p.HostName = DefaultHostName
	}

	if p.HostProfileID == "" {
		p.HostProfileID = DefaultHostProfileID
	}

	if p.HostVersion == "" {
		p.HostVersion = DefaultHostVersion
	}

	if p.LogLevel == "" {
		p.LogLevel = DefaultLogLevel
	}

	if p.ExecutionPolicy == "" {
		p.ExecutionPolicy = DefaultExecutionPolicy
	}

	if o.WaitMaxAttempts <= 0 {
		o.WaitMaxAttempts = DefaultWaitMaxAttempts
	}

	if o.WaitInterval <= 0 {
		o.WaitInterval = DefaultWaitInterval
	}

	if o.RequestTimeout == 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}
}
