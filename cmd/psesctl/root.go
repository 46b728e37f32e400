package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/wagiedev/pses-client-go"
)

// rootFlags are the persistent flags shared by every subcommand.
type rootFlags struct {
	profile           string
	executable        string
	startScript       string
	bundledModules    string
	additionalModules []string
	featureFlags      []string
	sessionsDir       string
	workerLogLevel    string
	workerLogPath     string
	logLevel          string
	timeout           time.Duration
}

func newRootCommand(logOut io.Writer) *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "psesctl",
		Short:         "Launch and drive a PowerShell Editor Services worker",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
	}

	root.SetVersionTemplate("{{printf \"%s\\n\" .Version}}")

	pf := root.PersistentFlags()
	pf.StringVar(&flags.profile, "profile", "", "launch profile (TOML)")
	pf.StringVar(&flags.executable, "pwsh", "", "PowerShell executable (default: search PATH)")
	pf.StringVar(&flags.startScript, "start-script", "", "path to Start-EditorServices.ps1")
	pf.StringVar(&flags.bundledModules, "bundled-modules", "", "directory holding the worker's modules")
	pf.StringSliceVar(&flags.additionalModules, "module", nil, "additional module to import (repeatable)")
	pf.StringSliceVar(&flags.featureFlags, "feature", nil, "feature flag passed to the worker (repeatable)")
	pf.StringVar(&flags.sessionsDir, "sessions-dir", "", "directory for session files")
	pf.StringVar(&flags.workerLogLevel, "worker-log-level", "", "worker log level (Diagnostic, Verbose, Normal, Warning, Error)")
	pf.StringVar(&flags.workerLogPath, "worker-log-path", "", "file the worker logs to")
	pf.StringVar(&flags.logLevel, "log-level", "warn", "client log level (debug, info, warn, error)")
	pf.DurationVar(&flags.timeout, "timeout", 0, "request timeout (default 60s)")

	root.AddCommand(
		newArgsCommand(flags, logOut),
		newVersionCommand(flags, logOut),
		newInvokeCommand(flags, logOut),
	)

	return root
}

// clientOptions turns the flags into client options. A profile is applied
// first so that flags given on the command line override it.
func (f *rootFlags) clientOptions(cmd *cobra.Command, logOut io.Writer) ([]pses.Option, error) {
	logger, err := newLogger(logOut, f.logLevel)
	if err != nil {
		return nil, err
	}

	opts := []pses.Option{pses.WithLogger(logger)}

	if f.profile != "" {
		profile, err := pses.LoadProfile(f.profile)
		if err != nil {
			return nil, fmt.Errorf("load profile: %w", err)
		}

		opts = append(opts, pses.WithProfile(profile))
	}

	changed := cmd.Flags().Changed

	if changed("pwsh") {
		opts = append(opts, pses.WithExecutablePath(f.executable))
	}

	if changed("start-script") {
		opts = append(opts, pses.WithStartScriptPath(f.startScript))
	}

	if changed("bundled-modules") {
		opts = append(opts, pses.WithBundledModulesPath(f.bundledModules))
	}

	if changed("module") {
		opts = append(opts, pses.WithAdditionalModules(f.additionalModules...))
	}

	if changed("feature") {
		opts = append(opts, pses.WithFeatureFlags(f.featureFlags...))
	}

	if changed("sessions-dir") {
		opts = append(opts, pses.WithSessionsDir(f.sessionsDir))
	}

	if changed("worker-log-level") {
		opts = append(opts, pses.WithLogLevel(f.workerLogLevel))
	}

	if changed("worker-log-path") {
		opts = append(opts, pses.WithLogPath(f.workerLogPath))
	}

	if changed("timeout") {
		opts = append(opts, pses.WithRequestTimeout(f.timeout))
	}

	opts = append(opts, pses.WithStderr(func(line string) {
		logger.Debug("worker stderr", slog.String("line", line))
	}))

	return opts, nil
}
