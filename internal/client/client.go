package client

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/pses-client-go/internal/cli"
	"github.com/wagiedev/pses-client-go/internal/command"
	"github.com/wagiedev/pses-client-go/internal/config"
	"github.com/wagiedev/pses-client-go/internal/errors"
	"github.com/wagiedev/pses-client-go/internal/message"
	"github.com/wagiedev/pses-client-go/internal/protocol"
	"github.com/wagiedev/pses-client-go/internal/session"
	"github.com/wagiedev/pses-client-go/internal/subprocess"
)

// killWaitTimeout bounds how long Dispose waits for a killed worker to exit.
const killWaitTimeout = 5 * time.Second

// Client is a session with one PowerShell Editor Services worker.
type Client struct {
	log     *slog.Logger
	options *config.Options
	store   *session.Store
	waiter  *session.Waiter
	spawner config.Spawner
	dialer  config.Dialer
	paths   session.Paths
	path    string

	mu          sync.Mutex
	state       State
	fatalErr    error
	startCancel context.CancelFunc
	descriptor  *session.Descriptor
	res         resources
	eg          *errgroup.Group

	// Handlers registered by the caller, installed on each new controller
	notificationHandlers map[string]protocol.NotificationHandler
	requestHandlers      map[string]protocol.RequestHandler
}

// resources are the live objects a client owns. Each is released exactly
// once, by whoever takes it from the client.
type resources struct {
	process    config.Process
	transport  config.Transport
	controller *protocol.Controller
	runCancel  context.CancelFunc
}

// New creates a client. The worker is not launched until Start.
//
// options may be nil; zero-valued fields take their defaults.
func New(options *config.Options) *Client {
	opts := &config.Options{}
	if options != nil {
		copied := *options
		opts = &copied
	}

	opts.ApplyDefaults()

	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	log = log.With("component", "client")

	paths := session.Paths{
		Dir:     opts.SessionsDir,
		Prefix:  opts.SessionPrefix,
		HostPID: opts.HostPID,
	}

	if paths.Dir == "" {
		paths.Dir = session.DefaultDir()
	}

	if paths.HostPID == 0 {
		paths.HostPID = os.Getpid()
	}

	sessionID := opts.SessionID
	if sessionID == "" {
		sessionID = ulid.Make().String()
	}

	store := session.NewStore(log)

	c := &Client{
		log:                  log,
		options:              opts,
		store:                store,
		waiter:               session.NewWaiter(log, store, opts.WaitMaxAttempts, opts.WaitInterval),
		spawner:              opts.Spawner,
		dialer:               opts.Dialer,
		paths:                paths,
		path:                 paths.File(sessionID),
		notificationHandlers: make(map[string]protocol.NotificationHandler, 4),
		requestHandlers:      make(map[string]protocol.RequestHandler, 4),
	}

	if c.spawner == nil {
		c.spawner = processSpawner{log: log}
	}

	if c.dialer == nil {
		c.dialer = endpointDialer{log: log}
	}

	return c
}

// SessionFile returns the path of this client's session descriptor.
func (c *Client) SessionFile() string {
	return c.path
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// ProcessID returns the worker's process id, or 0 if no worker is running.
func (c *Client) ProcessID() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.res.process == nil {
		return 0
	}

	return c.res.process.Pid()
}

// Descriptor returns a copy of the session descriptor the worker wrote, or
// nil if none has been read.
func (c *Client) Descriptor() *session.Descriptor {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.descriptor == nil {
		return nil
	}

	d := *c.descriptor

	return &d
}

// Start launches the worker and connects to it.
//
// Start blocks until the client is Connected or the start fails. A
// descriptor reporting failure returns HandshakeError without dialing; an
// exhausted wait returns TimeoutError and kills the worker; a worker that
// exits during the handshake returns ProcessError. If Dispose runs while
// Start is in progress, Start releases what it created and returns
// ErrClientClosed.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()

	switch c.state {
	case StateIdle:
	case StateDisposed:
		c.mu.Unlock()

		return errors.ErrClientClosed
	default:
		c.mu.Unlock()

		return errors.ErrAlreadyStarted
	}

	startCtx, cancel := context.WithCancel(ctx)
	c.startCancel = cancel
	c.state = StateLaunching
	c.mu.Unlock()

	defer cancel()

	if err := c.start(startCtx); err != nil {
		return c.fail(err)
	}

	return nil
}

func (c *Client) start(ctx context.Context) error {
	proc, err := c.launch(ctx)
	if err != nil {
		return err
	}

	if err := c.advance(StateLaunching, StateAwaitingHandshake, func() { c.res.process = proc }); err != nil {
		if killErr := c.killProcess(proc); killErr != nil {
			c.log.Debug("Failed to kill worker", "error", killErr)
		}

		return err
	}

	desc, err := c.awaitHandshake(ctx, proc)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.descriptor = desc
	c.mu.Unlock()

	if hsErr := desc.HandshakeError(); hsErr != nil {
		c.log.Warn("Worker reported a failed session", "reason", hsErr.RawReason, "detail", hsErr.Detail)

		return hsErr
	}

	return c.connect(ctx, desc)
}

// launch spawns the worker after clearing any stale descriptor.
func (c *Client) launch(ctx context.Context) (config.Process, error) {
	if err := c.paths.EnsureDir(); err != nil {
		return nil, fmt.Errorf("create sessions directory: %w", err)
	}

	if err := c.store.Delete(c.path); err != nil {
		c.log.Warn("Failed to remove stale session file", "path", c.path, "error", err)
	}

	spec, err := c.SpawnSpec(ctx)
	if err != nil {
		return nil, err
	}

	c.log.Info("Launching worker", "executable", spec.Path, "session_file", c.path)

	proc, err := c.spawner.Spawn(ctx, spec)
	if err != nil {
		return nil, err
	}

	c.log.Debug("Worker process started", "pid", proc.Pid())

	return proc, nil
}

// SpawnSpec resolves the executable and returns the launch this client
// performs on Start. It has no side effects.
func (c *Client) SpawnSpec(ctx context.Context) (subprocess.Spec, error) {
	cfg := c.options.Process

	exe, err := cli.ResolveExecutable(ctx, c.log, cfg.ExecutablePath)
	if err != nil {
		return subprocess.Spec{}, err
	}

	cfg.ExecutablePath = exe
	cfg.SessionDetailsPath = c.path

	return subprocess.Spec{
		Path:   exe,
		Args:   cli.BuildArgs(&cfg),
		Env:    cli.BuildEnvironment(&cfg),
		Dir:    cfg.Cwd,
		Stderr: c.options.Stderr,
		Stdout: c.options.Stdout,
	}, nil
}

// awaitHandshake waits for the session descriptor, failing fast if the
// worker exits first.
func (c *Client) awaitHandshake(ctx context.Context, proc config.Process) (*session.Descriptor, error) {
	eg, egCtx := errgroup.WithContext(ctx)
	found := make(chan struct{})

	var desc *session.Descriptor

	eg.Go(func() error {
		d, err := c.waiter.Wait(egCtx, c.path)
		if err != nil {
			return err
		}

		desc = d
		close(found)

		return nil
	})

	eg.Go(func() error {
		select {
		case <-proc.Exited():
			return processExitError(proc)
		case <-found:
			return nil
		case <-egCtx.Done():
			return nil
		}
	})

	err := eg.Wait()

	if procErr, ok := stderrors.AsType[*errors.ProcessError](err); ok {
		// A worker that fails its startup checks writes a failed descriptor
		// and exits; report the handshake failure rather than the exit.
		if d, readErr := c.store.Read(c.path); readErr == nil && d.Status == session.StatusFailed {
			desc, err = d, nil
		} else {
			c.log.Warn("Worker exited during handshake", "exit_code", procErr.ExitCode)
		}
	}

	if err != nil {
		return nil, err
	}

	if err := c.store.Delete(c.path); err != nil {
		c.log.Warn("Failed to remove session file", "path", c.path, "error", err)
	}

	c.log.Debug("Session descriptor received", "status", desc.Status, "channel", desc.Channel())

	return desc, nil
}

// connect dials the advertised endpoint and starts listening.
func (c *Client) connect(ctx context.Context, desc *session.Descriptor) error {
	conn, err := c.dialer.Dial(ctx, desc)
	if err != nil {
		if _, ok := stderrors.AsType[*errors.ConnectionError](err); ok {
			return err
		}

		return &errors.ConnectionError{Channel: string(desc.Channel()), Address: desc.Address(), Err: err}
	}

	// The controller outlives Start, so it runs on a client-lifetime context.
	runCtx, runCancel := context.WithCancel(context.Background())
	controller := protocol.NewController(c.log, conn)

	err = c.advance(StateAwaitingHandshake, StateConnected, func() {
		for method, h := range c.notificationHandlers {
			controller.OnNotification(method, h)
		}

		for method, h := range c.requestHandlers {
			controller.OnRequest(method, h)
		}

		c.res.transport = conn
		c.res.controller = controller
		c.res.runCancel = runCancel

		// Start under the lock so a concurrent Dispose sees a running controller.
		_ = controller.Start(runCtx)

		proc := c.res.process

		c.eg = &errgroup.Group{}
		c.eg.Go(func() error {
			c.supervise(runCtx, controller, proc)

			return nil
		})
	})
	if err != nil {
		runCancel()

		if closeErr := conn.Close(); closeErr != nil {
			c.log.Debug("Failed to close connection", "error", closeErr)
		}

		return err
	}

	c.log.Info("Connected to worker", "channel", desc.Channel(), "address", desc.Address())

	return nil
}

// supervise watches a connected session for connection loss or worker exit.
func (c *Client) supervise(ctx context.Context, controller *protocol.Controller, proc config.Process) {
	var exited <-chan struct{}
	if proc != nil {
		exited = proc.Exited()
	}

	var err error

	select {
	case <-ctx.Done():
		return
	case <-controller.Done():
		err = controller.FatalError()
		if err == nil {
			err = errors.ErrConnectionClosed
		}
	case <-exited:
		err = processExitError(proc)
	}

	c.mu.Lock()

	if c.state != StateConnected {
		c.mu.Unlock()

		return
	}

	c.state = StateFailed
	c.fatalErr = err
	res := c.takeResources()
	c.mu.Unlock()

	c.log.Error("Session lost", "error", err)

	if releaseErr := c.release(res); releaseErr != nil {
		c.log.Debug("Cleanup after session loss failed", "error", releaseErr)
	}
}

// advance moves from one state to the next, running apply under the lock.
// It returns ErrClientClosed if the client was disposed meanwhile.
func (c *Client) advance(from, to State, apply func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateDisposed {
		return errors.ErrClientClosed
	}

	if c.state != from {
		return fmt.Errorf("unexpected client state %s, want %s", c.state, from)
	}

	apply()
	c.state = to

	c.log.Debug("Client state changed", "from", from, "to", to)

	return nil
}

// fail records a start failure and releases whatever Start created.
func (c *Client) fail(err error) error {
	c.mu.Lock()

	if c.state == StateDisposed {
		c.mu.Unlock()
		c.log.Debug("Start abandoned after dispose", "error", err)

		return errors.ErrClientClosed
	}

	c.state = StateFailed
	c.fatalErr = err
	res := c.takeResources()
	c.mu.Unlock()

	c.log.Warn("Failed to start session", "error", err)

	if releaseErr := c.release(res); releaseErr != nil {
		c.log.Debug("Cleanup after failed start failed", "error", releaseErr)
	}

	return err
}

// takeResources hands the live resources to the caller. Must be called with
// mu held.
func (c *Client) takeResources() resources {
	res := c.res
	c.res = resources{}

	return res
}

// release stops the controller, closes the connection, kills the worker and
// deletes the descriptor. It waits for the controller's goroutines unless a
// handler is still running.
func (c *Client) release(res resources) error {
	var errs []error

	if res.runCancel != nil {
		res.runCancel()
	}

	if res.controller != nil {
		res.controller.Stop()
	}

	if res.transport != nil {
		if err := res.transport.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}

	if res.process != nil {
		if err := c.killProcess(res.process); err != nil {
			errs = append(errs, err)
		}
	}

	if err := c.store.Delete(c.path); err != nil {
		c.log.Warn("Failed to remove session file", "path", c.path, "error", err)
	}

	if res.controller != nil {
		// A handler that disposes the client runs on a controller goroutine.
		if res.controller.HandlersRunning() {
			go res.controller.Wait()
		} else {
			res.controller.Wait()
		}
	}

	return stderrors.Join(errs...)
}

// killProcess kills proc and waits briefly for it to exit.
func (c *Client) killProcess(proc config.Process) error {
	if err := proc.Kill(); err != nil {
		return err
	}

	select {
	case <-proc.Exited():
	case <-time.After(killWaitTimeout):
		c.log.Warn("Worker did not exit after kill", "pid", proc.Pid())
	}

	return nil
}

// Dispose releases every resource the client holds.
//
// It cancels an in-progress Start, fails outstanding requests with
// ErrConnectionClosed, closes the connection, kills the worker and deletes
// the session descriptor. Dispose is safe to call from any state and more
// than once, including from a notification or request handler. It does not
// wait for running handlers to return.
func (c *Client) Dispose() error {
	c.mu.Lock()

	if c.state == StateDisposed {
		c.mu.Unlock()

		return nil
	}

	prev := c.state
	c.state = StateDisposed

	if c.startCancel != nil {
		c.startCancel()
	}

	res := c.takeResources()
	eg := c.eg
	c.mu.Unlock()

	c.log.Info("Disposing client", "state", prev)

	err := c.release(res)

	// The supervisor cannot finish while the calling handler is on the stack.
	if eg != nil && (res.controller == nil || !res.controller.HandlersRunning()) {
		_ = eg.Wait()
	}

	return err
}

// controller returns the live controller, or ErrNotConnected.
func (c *Client) controller() (*protocol.Controller, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateConnected && c.res.controller != nil {
		return c.res.controller, nil
	}

	switch {
	case c.state == StateDisposed:
		return nil, fmt.Errorf("%w: %w", errors.ErrNotConnected, errors.ErrClientClosed)
	case c.fatalErr != nil:
		return nil, fmt.Errorf("%w: %w", errors.ErrNotConnected, c.fatalErr)
	}

	return nil, errors.ErrNotConnected
}

func (c *Client) requestTimeout() time.Duration {
	if c.options.RequestTimeout < 0 {
		return 0
	}

	return c.options.RequestTimeout
}

// SendRequest sends a request to the worker and returns the raw result.
func (c *Client) SendRequest(ctx context.Context, method string, params any) (json.RawMessage, error) {
	controller, err := c.controller()
	if err != nil {
		return nil, err
	}

	return controller.SendRequest(ctx, method, params, c.requestTimeout())
}

// SendNotification sends a notification to the worker.
func (c *Client) SendNotification(ctx context.Context, method string, params any) error {
	controller, err := c.controller()
	if err != nil {
		return err
	}

	return controller.SendNotification(ctx, method, params)
}

// InvokeCommand runs a command pipeline in the worker.
func (c *Client) InvokeCommand(ctx context.Context, pipeline *command.Pipeline) (*message.InvokeResult, error) {
	if pipeline == nil {
		return nil, errors.ErrEmptyPipeline
	}

	if err := pipeline.Err(); err != nil {
		return nil, err
	}

	raw, err := c.SendRequest(ctx, message.MethodInvokePSCommand, pipeline)
	if err != nil {
		return nil, err
	}

	return message.ParseInvokeResult(raw)
}

// GetVersion returns the PowerShell version hosting the worker.
func (c *Client) GetVersion(ctx context.Context) (*message.VersionDetails, error) {
	raw, err := c.SendRequest(ctx, message.MethodGetVersion, nil)
	if err != nil {
		return nil, err
	}

	return message.ParseVersionDetails(raw)
}

// OnNotification registers a handler for notifications of method.
//
// Handlers may be registered in any state; they take effect once the client
// is Connected. Notifications that arrive before their handler is registered
// are held and delivered on registration.
func (c *Client) OnNotification(method string, handler protocol.NotificationHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.notificationHandlers[method] = handler

	if c.res.controller != nil {
		c.res.controller.OnNotification(method, handler)
	}
}

// OnRequest registers a handler for requests of method sent by the worker.
// Registration follows the same rules as OnNotification.
func (c *Client) OnRequest(method string, handler protocol.RequestHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requestHandlers[method] = handler

	if c.res.controller != nil {
		c.res.controller.OnRequest(method, handler)
	}
}

// OnRunspaceChanged registers a handler for runspace change notifications.
// Payloads that cannot be decoded are logged and skipped.
func (c *Client) OnRunspaceChanged(handler func(ctx context.Context, details *message.RunspaceDetails)) {
	c.OnNotification(message.MethodRunspaceChanged, func(ctx context.Context, params json.RawMessage) {
		details, err := message.ParseRunspaceDetails(params)
		if err != nil {
			c.log.Warn("Ignoring malformed runspace notification", "error", err)

			return
		}

		handler(ctx, details)
	})
}

// processExitError returns the worker's exit as a ProcessError.
func processExitError(proc config.Process) error {
	if err := proc.ExitError(); err != nil {
		if _, ok := stderrors.AsType[*errors.ProcessError](err); ok {
			return err
		}

		return &errors.ProcessError{ExitCode: -1, Err: err}
	}

	return &errors.ProcessError{ExitCode: -1}
}
