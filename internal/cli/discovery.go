package cli

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/wagiedev/pses-client-go/internal/errors"
)

// Config holds configuration for executable discovery.
type Config struct {
	// ExecutablePath is an explicit path that skips PATH search.
	// If empty, discovery will search PATH and the platform defaults.
	ExecutablePath string

	// Use32Bit prefers the 32-bit Windows PowerShell on 64-bit Windows.
	Use32Bit bool

	// Logger is an optional logger for discovery operations.
	// If nil, a default no-op logger is used.
	Logger *slog.Logger
}

// Discoverer locates the PowerShell executable.
type Discoverer interface {
	// Discover returns the absolute path to the PowerShell executable.
	Discover(ctx context.Context) (string, error)
}

// executableNames are searched on PATH in order.
var executableNames = []string{"pwsh", "powershell"}

// lookPathFn and statFn are replaced in tests.
var (
	lookPathFn = exec.LookPath
	statFn     = os.Stat
)

// discoverer implements the Discoverer interface.
type discoverer struct {
	cfg  *Config
	log  *slog.Logger
	goos string
}

// Compile-time verification that discoverer implements Discoverer.
var _ Discoverer = (*discoverer)(nil)

// NewDiscoverer creates a new executable discoverer with the given configuration.
func NewDiscoverer(cfg *Config) Discoverer {
	if cfg == nil {
		cfg = &Config{}
	}

	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &discoverer{
		cfg:  cfg,
		log:  log.With("component", "discovery"),
		goos: runtime.GOOS,
	}
}

// ResolveExecutable is shorthand for NewDiscoverer(&Config{ExecutablePath: path}).Discover.
func ResolveExecutable(ctx context.Context, log *slog.Logger, path string) (string, error) {
	return NewDiscoverer(&Config{ExecutablePath: path, Logger: log}).Discover(ctx)
}

// Discover locates the PowerShell executable.
//
// Discovery searches in the following order:
//  1. Explicit path in Config.ExecutablePath (if provided, and only that)
//  2. pwsh, then powershell on PATH
//  3. Platform default installation paths
func (d *discoverer) Discover(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// If explicit path provided, use it and only it
	if d.cfg.ExecutablePath != "" {
		path, err := filepath.Abs(d.cfg.ExecutablePath)
		if err != nil {
			path = d.cfg.ExecutablePath
		}

		if _, err := statFn(path); err == nil {
			d.log.Debug("Using explicit executable path", "path", path)

			return path, nil
		}

		d.log.Debug("Explicit executable path not found", "path", path)

		return "", &errors.ExecutableNotFoundError{SearchedPaths: []string{path}}
	}

	searchedPaths := make([]string, 0, 6)

	for _, name := range executableNames {
		if path, err := lookPathFn(name); err == nil {
			d.log.Debug("Found executable in PATH", "name", name, "path", path)

			return path, nil
		}
	}

	searchedPaths = append(searchedPaths, "$PATH")

	for _, path := range defaultPaths(d.goos, os.Getenv, d.cfg.Use32Bit) {
		searchedPaths = append(searchedPaths, path)

		if _, err := statFn(path); err == nil {
			d.log.Debug("Found executable at default path", "path", path)

			return path, nil
		}
	}

	d.log.Warn("PowerShell not found in any searched paths", "searched_paths", searchedPaths)

	return "", &errors.ExecutableNotFoundError{SearchedPaths: searchedPaths}
}

// defaultPaths lists the well-known install locations for goos.
//
// On 64-bit Windows a 32-bit host sees System32 redirected, so the native
// PowerShell is reached through Sysnative unless the caller asked for 32-bit.
func defaultPaths(goos string, getenv func(string) string, use32Bit bool) []string {
	switch goos {
	case "windows":
		windir := getenv("windir")
		if windir == "" {
			windir = `C:\Windows`
		}

		sysDir := "System32"
		if !use32Bit && getenv("PROCESSOR_ARCHITEW6432") != "" {
			sysDir = "Sysnative"
		}

		return []string{windir + `\` + sysDir + `\WindowsPowerShell\v1.0\powershell.exe`}

	case "darwin":
		return []string{
			"/usr/local/bin/pwsh",
			"/opt/homebrew/bin/pwsh",
			"/usr/local/bin/powershell",
		}

	default:
		return []string{
			"/usr/bin/pwsh",
			"/opt/microsoft/powershell/7/pwsh",
			"/usr/bin/powershell",
		}
	}
}
