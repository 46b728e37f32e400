// Package cli provides executable discovery and command building for the
// PowerShell worker process.
//
// # Discovery
//
// The Discoverer interface locates the PowerShell executable:
//
//	discoverer := cli.NewDiscoverer(&cli.Config{
//	    ExecutablePath: "",    // Optional explicit path
//	    Logger:         slog.Default(),
//	})
//	exe, err := discoverer.Discover(ctx)
//
// Discovery searches in the following order:
//  1. Explicit path in Config.ExecutablePath (if provided)
//  2. pwsh, then powershell on the system PATH
//  3. Platform installation directories (/usr/bin, /usr/local/bin,
//     %windir%\System32 or %windir%\Sysnative on Windows)
//
// # Command Building
//
// BuildArgs renders the -Command line that runs the worker's start script,
// and BuildEnvironment layers overrides over the inherited environment:
//
//	args := cli.BuildArgs(&options.Process)
//	env := cli.BuildEnvironment(&options.Process)
package cli
