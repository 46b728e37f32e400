package cli

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/wagiedev/pses-client-go/internal/config"
)

// BuildArgs constructs the PowerShell command line that launches the worker.
//
// The result is a pure function of cfg: flags always appear in the same order
// so the argument vector can be compared verbatim.
//
//	-NoProfile -NonInteractive [-ExecutionPolicy <policy>] -Command "& '<script>' -EditorServicesVersion '<v>' ..."
func BuildArgs(cfg *config.ProcessConfig) []string {
	args := []string{
		"-NoProfile",
		"-NonInteractive",
	}

	// Only meaningful on Windows
	if cfg.IsWindows {
		args = append(args, "-ExecutionPolicy", cfg.ExecutionPolicy)
	}

	return append(args, "-Command", buildStartCommand(cfg))
}

// buildStartCommand renders the script invocation passed to -Command.
func buildStartCommand(cfg *config.ProcessConfig) string {
	var b strings.Builder

	b.WriteString("& ")
	b.WriteString(QuoteLiteral(cfg.StartScriptPath))

	writeParam(&b, "EditorServicesVersion", QuoteLiteral(cfg.EditorServicesVersion))
	writeParam(&b, "HostName", QuoteLiteral(cfg.HostName))
	writeParam(&b, "HostProfileId", QuoteLiteral(cfg.HostProfileID))
	writeParam(&b, "HostVersion", QuoteLiteral(cfg.HostVersion))

	if len(cfg.AdditionalModules) > 0 {
		writeParam(&b, "AdditionalModules", QuoteArray(cfg.AdditionalModules))
	}

	writeParam(&b, "BundledModulesPath", QuoteLiteral(cfg.BundledModulesPath))

	if cfg.EnableConsoleRepl {
		writeSwitch(&b, "EnableConsoleRepl")
	}

	if cfg.WaitForDebugger {
		writeSwitch(&b, "WaitForDebugger")
	}

	if cfg.LogLevel != "" {
		writeParam(&b, "LogLevel", QuoteLiteral(cfg.LogLevel))
	}

	writeParam(&b, "LogPath", QuoteLiteral(cfg.LogPath))
	writeParam(&b, "SessionDetailsPath", QuoteLiteral(cfg.SessionDetailsPath))
	writeParam(&b, "FeatureFlags", QuoteArray(cfg.FeatureFlags))

	return b.String()
}

func writeParam(b *strings.Builder, name, value string) {
	b.WriteString(" -")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(value)
}

func writeSwitch(b *strings.Builder, name string) {
	b.WriteString(" -")
	b.WriteString(name)
}

// QuoteLiteral renders s as a PowerShell single-quoted string.
// Embedded single quotes are doubled.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// QuoteArray renders values as a PowerShell array of single-quoted strings,
// e.g. @('a', 'b'). An empty slice renders as @().
func QuoteArray(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = QuoteLiteral(v)
	}

	return "@(" + strings.Join(quoted, ", ") + ")"
}

// BuildEnvironment constructs the environment variables for the worker process.
//
// The current environment comes first, then DEVPATH for Windows development
// builds, then cfg.Env in key order. Later entries win when the process starts.
func BuildEnvironment(cfg *config.ProcessConfig) []string {
	// Start with current environment
	env := os.Environ()

	// Windows PowerShell development builds load binaries from DEVPATH
	if cfg.IsWindowsDevBuild && cfg.ExecutablePath != "" {
		env = append(env, "DEVPATH="+filepath.Dir(cfg.ExecutablePath))
	}

	// Add or override with user-provided environment variables
	for _, key := range slices.Sorted(maps.Keys(cfg.Env)) {
		env = append(env, fmt.Sprintf("%s=%s", key, cfg.Env[key]))
	}

	return env
}
