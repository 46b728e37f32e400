// Package errors defines error types for the PowerShell Editor Services session client.
//
// This package provides structured error types for every stage of a session:
// spawning the worker, waiting for its session descriptor, connecting to the
// advertised endpoint and talking JSON-RPC over it. All error types support
// error unwrapping and can be checked using errors.Is, errors.As, and errors.AsType.
package errors
