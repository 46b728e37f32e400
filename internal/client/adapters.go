package client

import (
	"context"
	"log/slog"

	"github.com/wagiedev/pses-client-go/internal/config"
	"github.com/wagiedev/pses-client-go/internal/session"
	"github.com/wagiedev/pses-client-go/internal/subprocess"
	"github.com/wagiedev/pses-client-go/internal/transport"
)

// processSpawner starts real worker processes.
type processSpawner struct {
	log *slog.Logger
}

func (s processSpawner) Spawn(ctx context.Context, spec subprocess.Spec) (config.Process, error) {
	proc, err := subprocess.Spawn(ctx, s.log, spec)
	if err != nil {
		return nil, err
	}

	return proc, nil
}

// endpointDialer connects to the socket or pipe a descriptor advertises.
type endpointDialer struct {
	log *slog.Logger
}

func (d endpointDialer) Dial(ctx context.Context, desc *session.Descriptor) (config.Transport, error) {
	conn, err := transport.Dial(ctx, d.log, desc)
	if err != nil {
		return nil, err
	}

	return conn, nil
}
