package pses

import (
	"github.com/wagiedev/pses-client-go/internal/config"
	"github.com/wagiedev/pses-client-go/internal/subprocess"
)

// Transport is a framed JSON-RPC message stream to the worker.
// Implement this to provide custom transports for testing or for endpoints
// the default dialer does not reach.
//
// The default implementation speaks Content-Length framed JSON-RPC over the
// TCP port or pipe the worker advertises. Custom transports are returned
// from a Dialer set with WithDialer.
type Transport = config.Transport

// Process is a running worker process.
type Process = config.Process

// Spawner starts the worker process. Set one with WithSpawner.
type Spawner = config.Spawner

// Dialer opens a Transport to a started session. Set one with WithDialer.
type Dialer = config.Dialer

// SpawnSpec describes the worker process a Spawner starts.
type SpawnSpec = subprocess.Spec
