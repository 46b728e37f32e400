package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/wagiedev/pses-client-go/internal/errors"
	"github.com/wagiedev/pses-client-go/internal/session"
)

// Dial opens the endpoint advertised by desc.
//
// A descriptor that does not report a started worker yields a ConnectionError
// wrapping the worker's HandshakeError, so the reason and detail survive
// verbatim.
func Dial(ctx context.Context, log *slog.Logger, desc *session.Descriptor) (*Conn, error) {
	if desc == nil {
		return nil, &errors.ConnectionError{Err: fmt.Errorf("no session descriptor")}
	}

	if !desc.Started() {
		if hs := desc.HandshakeError(); hs != nil {
			return nil, &errors.ConnectionError{Err: hs}
		}

		return nil, &errors.ConnectionError{Err: fmt.Errorf("worker status %q", desc.Status)}
	}

	channel := string(desc.Channel())

	if err := desc.Validate(); err != nil {
		return nil, &errors.ConnectionError{Channel: channel, Address: desc.Address(), Err: err}
	}

	log = log.With("component", "dialer", "channel", channel)

	var (
		conn    net.Conn
		address string
		err     error
	)

	switch desc.Channel() {
	case session.ChannelPipe:
		address = desc.ServicePipeName
		conn, err = dialPipe(ctx, desc.ServicePipeName)
	default:
		address = desc.Address()

		var d net.Dialer
		conn, err = d.DialContext(ctx, "tcp", address)
	}

	if err != nil {
		log.Debug("Failed to connect to worker", "address", address, "error", err)

		return nil, &errors.ConnectionError{Channel: channel, Address: address, Err: err}
	}

	log.Info("Connected to worker", "address", address)

	return NewConn(log, conn), nil
}
