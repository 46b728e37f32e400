package pses

import (
	"fmt"
	"log/slog"
	"maps"
	"runtime"
	"time"
)

// settings collects option values before a client is built.
type settings struct {
	Options

	err error
}

// Option configures a client using the functional options pattern.
type Option func(*settings)

// applyOptions applies functional options over the platform defaults.
func applyOptions(opts []Option) (*Options, error) {
	s := &settings{}
	s.Process.IsWindows = runtime.GOOS == "windows"

	for _, opt := range opts {
		opt(s)
	}

	if s.err != nil {
		return nil, s.err
	}

	return &s.Options, nil
}

// ===== Basic Configuration =====

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *settings) {
		o.Logger = logger
	}
}

// WithProfile applies a launch profile. Options after it override the
// profile's values; options before it are overridden by values the profile sets.
func WithProfile(profile *Profile) Option {
	return func(o *settings) {
		if profile == nil || o.err != nil {
			return
		}

		if err := profile.Apply(&o.Options); err != nil {
			o.err = fmt.Errorf("apply profile: %w", err)
		}
	}
}

// ===== Worker Process =====

// WithExecutablePath sets the PowerShell executable.
// If not set, pwsh and powershell are searched on PATH and in the platform
// default install locations.
func WithExecutablePath(path string) Option {
	return func(o *settings) {
		o.Process.ExecutablePath = path
	}
}

// WithStartScriptPath sets the worker's Start-EditorServices.ps1 script.
func WithStartScriptPath(path string) Option {
	return func(o *settings) {
		o.Process.StartScriptPath = path
	}
}

// WithBundledModulesPath sets the directory holding the worker's modules.
func WithBundledModulesPath(path string) Option {
	return func(o *settings) {
		o.Process.BundledModulesPath = path
	}
}

// WithAdditionalModules adds modules the worker imports at startup.
func WithAdditionalModules(modules ...string) Option {
	return func(o *settings) {
		o.Process.AdditionalModules = append(o.Process.AdditionalModules, modules...)
	}
}

// WithEditorServicesVersion sets the session protocol version the host requires.
func WithEditorServicesVersion(version string) Option {
	return func(o *settings) {
		o.Process.EditorServicesVersion = version
	}
}

// WithHostInfo identifies the host application to the worker.
func WithHostInfo(name, profileID, version string) Option {
	return func(o *settings) {
		o.Process.HostName = name
		o.Process.HostProfileID = profileID
		o.Process.HostVersion = version
	}
}

// WithFeatureFlags sets the feature flags passed to the worker.
func WithFeatureFlags(flags ...string) Option {
	return func(o *settings) {
		o.Process.FeatureFlags = flags
	}
}

// WithLogLevel sets the worker's log verbosity (Diagnostic, Verbose, Normal, ...).
func WithLogLevel(level string) Option {
	return func(o *settings) {
		o.Process.LogLevel = level
	}
}

// WithLogPath sets where the worker writes its own log.
func WithLogPath(path string) Option {
	return func(o *settings) {
		o.Process.LogPath = path
	}
}

// WithConsoleRepl starts the worker with an interactive console.
func WithConsoleRepl(enabled bool) Option {
	return func(o *settings) {
		o.Process.EnableConsoleRepl = enabled
	}
}

// WithWaitForDebugger makes the worker block until a debugger attaches.
func WithWaitForDebugger(enabled bool) Option {
	return func(o *settings) {
		o.Process.WaitForDebugger = enabled
	}
}

// WithExecutionPolicy sets the execution policy passed on Windows.
func WithExecutionPolicy(policy string) Option {
	return func(o *settings) {
		o.Process.ExecutionPolicy = policy
	}
}

// WithWindowsDevBuild sets DEVPATH to the executable's directory, as
// development builds of Windows PowerShell require.
func WithWindowsDevBuild(enabled bool) Option {
	return func(o *settings) {
		o.Process.IsWindowsDevBuild = enabled
	}
}

// WithEnv provides additional environment variables for the worker process.
func WithEnv(env map[string]string) Option {
	return func(o *settings) {
		if o.Process.Env == nil {
			o.Process.Env = make(map[string]string, len(env))
		}

		maps.Copy(o.Process.Env, env)
	}
}

// WithCwd sets the working directory for the worker process.
func WithCwd(cwd string) Option {
	return func(o *settings) {
		o.Process.Cwd = cwd
	}
}

// WithStderr sets a callback invoked with each line the worker writes to stderr.
func WithStderr(handler func(string)) Option {
	return func(o *settings) {
		o.Stderr = handler
	}
}

// WithStdout sets a callback invoked with each line the worker writes to stdout.
func WithStdout(handler func(string)) Option {
	return func(o *settings) {
		o.Stdout = handler
	}
}

// ===== Session Handshake =====

// WithSessionsDir sets the directory for session files.
func WithSessionsDir(dir string) Option {
	return func(o *settings) {
		o.SessionsDir = dir
	}
}

// WithSessionID sets the unique id in the session file name.
// Clients sharing a sessions directory need distinct ids; by default each
// client generates its own.
func WithSessionID(id string) Option {
	return func(o *settings) {
		o.SessionID = id
	}
}

// WithWaitPolicy sets how often and how many times the client checks for the
// session file before giving up with TimeoutError.
func WithWaitPolicy(maxAttempts int, interval time.Duration) Option {
	return func(o *settings) {
		o.WaitMaxAttempts = maxAttempts
		o.WaitInterval = interval
	}
}

// ===== Requests =====

// WithRequestTimeout bounds how long a request waits for its response.
// A negative value disables the bound.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(o *settings) {
		o.RequestTimeout = timeout
	}
}

// ===== Testing =====

// WithSpawner replaces the process launcher.
func WithSpawner(spawner Spawner) Option {
	return func(o *settings) {
		o.Spawner = spawner
	}
}

// WithDialer replaces the connection establisher.
func WithDialer(dialer Dialer) Option {
	return func(o *settings) {
		o.Dialer = dialer
	}
}
