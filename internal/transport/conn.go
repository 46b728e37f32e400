package transport

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"

	"github.com/wagiedev/pses-client-go/internal/errors"
)

// Conn is a framed JSON-RPC connection to the worker.
type Conn struct {
	log  *slog.Logger
	conn net.Conn
	br   *bufio.Reader

	writeMu sync.Mutex

	readOnce  sync.Once
	closeOnce sync.Once
	closed    chan struct{}
}

// NewConn wraps an established stream.
func NewConn(log *slog.Logger, conn net.Conn) *Conn {
	return &Conn{
		log:    log.With("component", "transport", "remote", conn.RemoteAddr().String()),
		conn:   conn,
		br:     bufio.NewReaderSize(conn, 64*1024),
		closed: make(chan struct{}),
	}
}

// ReadMessages reads framed messages until the connection closes.
//
// A malformed frame or undecodable envelope is sent to the error channel and
// ends reading. If the worker closes the stream, ErrConnectionClosed is sent.
// Both channels are closed when reading stops. Only the first call starts a
// reader; later calls return channels that are already closed.
func (c *Conn) ReadMessages(ctx context.Context) (<-chan jsonrpc.Message, <-chan error) {
	messages := make(chan jsonrpc.Message)
	errs := make(chan error, 1)

	started := false

	c.readOnce.Do(func() {
		started = true

		go c.readLoop(ctx, messages, errs)
	})

	if !started {
		close(messages)
		close(errs)
	}

	return messages, errs
}

func (c *Conn) readLoop(ctx context.Context, messages chan<- jsonrpc.Message, errs chan<- error) {
	defer close(messages)
	defer close(errs)
	defer c.log.Debug("Transport read loop stopped")

	count := 0

	for {
		body, err := readFrame(c.br)
		if err != nil {
			if c.isClosed() {
				return
			}

			if _, ok := stderrors.AsType[*errors.FrameError](err); ok {
				c.log.Warn("Failed to read frame", "error", err)

				errs <- err

				return
			}

			c.log.Debug("Connection closed by worker", "error", err)

			errs <- fmt.Errorf("%w: %w", errors.ErrConnectionClosed, err)

			return
		}

		msg, err := jsonrpc.DecodeMessage(body)
		if err != nil {
			c.log.Warn("Failed to decode message", "error", err)

			errs <- &errors.FrameError{Err: fmt.Errorf("decode message: %w", err)}

			return
		}

		count++
		c.log.Debug("Received message", "message_count", count, "bytes", len(body))

		select {
		case messages <- msg:
		case <-c.closed:
			return
		case <-ctx.Done():
			errs <- ctx.Err()

			return
		}
	}
}

// SendMessage encodes and writes msg. Safe for concurrent use.
//
// A context deadline bounds the write.
func (c *Conn) SendMessage(ctx context.Context, msg jsonrpc.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if c.isClosed() {
		return errors.ErrConnectionClosed
	}

	body, err := jsonrpc.EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	frame := appendFrame(make([]byte, 0, len(body)+32), body)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
		defer func() { _ = c.conn.SetWriteDeadline(time.Time{}) }()
	}

	if _, err := c.conn.Write(frame); err != nil {
		if c.isClosed() {
			return errors.ErrConnectionClosed
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if _, ok := ctx.Deadline(); ok && stderrors.Is(err, os.ErrDeadlineExceeded) {
			return context.DeadlineExceeded
		}

		return fmt.Errorf("write message: %w", err)
	}

	return nil
}

// Close closes the connection. Safe to call multiple times.
func (c *Conn) Close() error {
	var err error

	c.closeOnce.Do(func() {
		close(c.closed)

		c.log.Debug("Closing connection")
		err = c.conn.Close()
	})

	return err
}

func (c *Conn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}
