package pses

import (
	"context"
	"fmt"
)

// WithClient manages client lifecycle with automatic cleanup.
//
// This helper creates a client, starts it with the provided options, executes the
// callback function, and ensures proper cleanup via Close() when done.
//
// The callback receives a connected Client that is ready for use.
// If the callback returns an error, it is returned to the caller.
// If Close() fails, a warning is logged but does not override the callback's error.
//
// Example usage:
//
//	err := pses.WithClient(ctx, func(c pses.Client) error {
//	    result, err := c.InvokeCommand(ctx, pses.NewPipeline().AddCommand("Get-Date"))
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(result.Output...)
//	    return nil
//	},
//	    pses.WithLogger(log),
//	    pses.WithBundledModulesPath(modules),
//	)
func WithClient(ctx context.Context, fn func(Client) error, opts ...Option) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	options, err := applyOptions(opts)
	if err != nil {
		return err
	}

	log := options.Logger
	if log == nil {
		log = NopLogger()
	}

	client := newClientImpl(options)

	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			log.Warn("failed to close client", "error", closeErr)
		}
	}()

	if err := client.Start(ctx); err != nil {
		return fmt.Errorf("failed to start client: %w", err)
	}

	return fn(client)
}
