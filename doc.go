// Package pses is a Go client for PowerShell Editor Services.
//
// It launches a PowerShell Editor Services worker process, completes the
// session-file handshake the worker uses to advertise its endpoint, connects
// to that endpoint and exchanges JSON-RPC messages with the worker.
//
// # Basic Usage
//
// Create a client, start it and run a command pipeline:
//
//	client, err := pses.NewClient(
//	    pses.WithLogger(slog.Default()),
//	    pses.WithBundledModulesPath("/opt/pses/modules"),
//	    pses.WithStartScriptPath("/opt/pses/PowerShellEditorServices/Start-EditorServices.ps1"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	if err := client.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := client.InvokeCommand(ctx, pses.NewPipeline().
//	    AddCommand("Get-Process").
//	    AddParameter("Name", "pwsh"))
//
// WithClient wraps the same steps with automatic cleanup:
//
//	err := pses.WithClient(ctx, func(c pses.Client) error {
//	    version, err := c.GetVersion(ctx)
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(version.DisplayVersion)
//	    return nil
//	}, pses.WithBundledModulesPath(modules))
//
// # Lifecycle
//
// A client moves from Idle through Launching and AwaitingHandshake to
// Connected. Start failures leave it Failed; Close releases the worker, the
// connection and the session file from any state. Clients are single-use.
//
// # Error Handling
//
// Errors are typed and support errors.Is and errors.As:
//
//	if hsErr, ok := errors.AsType[*pses.HandshakeError](err); ok {
//	    switch hsErr.Reason {
//	    case pses.ReasonUnsupportedVersion:
//	        // The installed PowerShell is too old.
//	    case pses.ReasonRestrictedLanguageMode:
//	        // The session runs in constrained language mode.
//	    }
//	}
//
// # Launch Profiles
//
// Launch settings can be kept in a TOML file and applied with WithProfile:
//
//	profile, err := pses.LoadProfile("pses.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client, err := pses.NewClient(pses.WithProfile(profile))
package pses
