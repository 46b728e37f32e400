package protocol

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/oklog/ulid/v2"

	"github.com/wagiedev/pses-client-go/internal/errors"
)

// DefaultBacklogSize is the number of unhandled inbound messages held per
// connection while waiting for a handler to be registered.
const DefaultBacklogSize = 256

// Transport defines the minimal interface needed for protocol operations.
//
// This interface is satisfied by transport.Conn but allows for testing
// with mock transports.
type Transport interface {
	ReadMessages(ctx context.Context) (<-chan jsonrpc.Message, <-chan error)
	SendMessage(ctx context.Context, msg jsonrpc.Message) error
}

// Controller manages JSON-RPC traffic with the worker.
//
// Inbound requests and notifications with no registered handler are held in
// a bounded backlog and replayed in arrival order once a handler for their
// method is registered. When the backlog is full, further notifications are
// dropped and further requests are answered with a method-not-found error.
//
// The Controller must be started with Start() before use and manages its own
// goroutines for reading and dispatching messages.
type Controller struct {
	log         *slog.Logger
	transport   Transport
	backlogSize int

	// Request tracking
	pendingMu sync.Mutex
	pending   map[string]*pendingRequest

	// In-flight inbound requests, for $/cancelRequest
	inFlightMu sync.Mutex
	inFlight   map[string]context.CancelFunc

	// Inbound handlers currently executing
	activeHandlers atomic.Int32

	// Handler registry and undispatched inbound messages
	handlersMu           sync.Mutex
	notificationHandlers map[string]NotificationHandler
	requestHandlers      map[string]RequestHandler
	inbox                []*jsonrpc.Request
	backlog              []*jsonrpc.Request
	wake                 chan struct{}

	// Fatal error handling - stores error and broadcasts via done channel
	errMu    sync.RWMutex
	fatalErr error

	// Lifecycle management
	startOnce sync.Once
	cancelMu  sync.Mutex
	cancel    context.CancelFunc
	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// pendingRequest tracks an outgoing request awaiting response.
type pendingRequest struct {
	method   string
	response chan *jsonrpc.Response
}

// NewController creates a new protocol controller.
//
// Handlers may be registered before Start; messages that arrive before their
// handler are held in a backlog of DefaultBacklogSize.
func NewController(log *slog.Logger, transport Transport) *Controller {
	return NewControllerWithBacklog(log, transport, DefaultBacklogSize)
}

// NewControllerWithBacklog creates a controller with a custom backlog capacity.
func NewControllerWithBacklog(log *slog.Logger, transport Transport, backlogSize int) *Controller {
	if backlogSize < 0 {
		backlogSize = 0
	}

	return &Controller{
		log:                  log.With("component", "protocol"),
		transport:            transport,
		backlogSize:          backlogSize,
		pending:              make(map[string]*pendingRequest, 10),
		inFlight:             make(map[string]context.CancelFunc, 10),
		notificationHandlers: make(map[string]NotificationHandler, 10),
		requestHandlers:      make(map[string]RequestHandler, 10),
		wake:                 make(chan struct{}, 1),
		done:                 make(chan struct{}),
	}
}

// closeDone safely closes the done channel exactly once.
func (c *Controller) closeDone() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// SetFatalError stores a fatal error and broadcasts to all waiters by closing done.
func (c *Controller) SetFatalError(err error) {
	c.errMu.Lock()

	if c.fatalErr == nil {
		c.fatalErr = err
	}

	c.errMu.Unlock()

	c.closeDone()
}

// FatalError returns the fatal error if one occurred.
func (c *Controller) FatalError() error {
	c.errMu.RLock()
	defer c.errMu.RUnlock()

	return c.fatalErr
}

// Done returns a channel that is closed when the controller stops.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Start begins reading messages from the transport and dispatching them.
//
// ctx bounds the lifetime of the read loop and of the contexts passed to
// handlers. Start must be called before SendRequest. Calling Start more than
// once has no effect.
func (c *Controller) Start(ctx context.Context) error {
	c.startOnce.Do(func() {
		c.log.Debug("Starting protocol controller")

		runCtx, cancel := context.WithCancel(ctx)

		c.cancelMu.Lock()
		c.cancel = cancel
		c.cancelMu.Unlock()

		messages, errs := c.transport.ReadMessages(runCtx)

		c.wg.Go(func() { c.readLoop(runCtx, messages, errs) })
		c.wg.Go(func() { c.dispatchLoop(runCtx) })

		// Replay anything registered before the first frame.
		c.signal()

		c.log.Info("Protocol controller started")
	})

	return nil
}

// Stop shuts down the controller.
//
// Outstanding requests fail with ErrConnectionClosed and in-flight inbound
// handlers are cancelled. Stop does not close the transport; the caller
// closes it afterwards so a read loop blocked on it returns. It's safe to
// call Stop multiple times.
func (c *Controller) Stop() {
	c.log.Debug("Stopping protocol controller")

	c.closeDone()

	c.cancelMu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.cancelMu.Unlock()

	c.cancelAllInFlight()
}

// HandlersRunning reports whether an inbound handler is executing. Wait
// called from inside a handler would never return.
func (c *Controller) HandlersRunning() bool {
	return c.activeHandlers.Load() > 0
}

// Wait blocks until the controller's goroutines have exited.
// The transport must be closed first.
func (c *Controller) Wait() {
	c.wg.Wait()
	c.log.Info("Protocol controller stopped")
}

// SendRequest sends a request and waits for the response.
//
// params may be nil, a json.RawMessage, or any value that marshals to JSON.
// A positive timeout bounds the wait; use context cancellation for the
// overall operation. When the wait is abandoned a $/cancelRequest
// notification is sent to the worker.
//
// Returns ResponseError if the worker answers with an error, an error
// matching ErrRequestTimeout on timeout, and an error matching
// ErrConnectionClosed if the controller stops first.
func (c *Controller) SendRequest(
	ctx context.Context,
	method string,
	params any,
	timeout time.Duration,
) (json.RawMessage, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return nil, fmt.Errorf("marshal %s params: %w", method, err)
	}

	if err := c.stoppedErr(); err != nil {
		return nil, err
	}

	requestID := c.generateRequestID()

	id, err := jsonrpc.MakeID(requestID)
	if err != nil {
		return nil, fmt.Errorf("make request id: %w", err)
	}

	c.log.Debug("Sending request", "request_id", requestID, "method", method)

	responseChan := make(chan *jsonrpc.Response, 1)

	c.pendingMu.Lock()
	c.pending[requestID] = &pendingRequest{method: method, response: responseChan}
	c.pendingMu.Unlock()

	defer c.removePending(requestID)

	req := &jsonrpc.Request{ID: id, Method: method, Params: raw}
	if err := c.transport.SendMessage(ctx, req); err != nil {
		c.log.Debug("Failed to send request", "request_id", requestID, "error", err)

		return nil, fmt.Errorf("send %s request: %w", method, err)
	}

	var timeoutC <-chan time.Time

	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()

		timeoutC = timer.C
	}

	select {
	case resp := <-responseChan:
		if resp.Error != nil {
			respErr := toResponseError(method, resp.Error)
			c.log.Debug("Request returned error", "request_id", requestID, "error", respErr)

			return nil, respErr
		}

		c.log.Debug("Received response", "request_id", requestID)

		return resp.Result, nil

	case <-c.done:
		c.log.Debug("Controller stopped during request", "request_id", requestID)

		return nil, c.stoppedErr()

	case <-timeoutC:
		c.log.Warn("Request timed out", "request_id", requestID, "method", method, "timeout", timeout)
		c.sendCancel(requestID)

		return nil, fmt.Errorf("%w: %s after %s", errors.ErrRequestTimeout, method, timeout)

	case <-ctx.Done():
		c.log.Debug("Request cancelled", "request_id", requestID)
		c.sendCancel(requestID)

		return nil, ctx.Err()
	}
}

// SendNotification sends a notification. No response is expected.
func (c *Controller) SendNotification(ctx context.Context, method string, params any) error {
	raw, err := marshalParams(params)
	if err != nil {
		return fmt.Errorf("marshal %s params: %w", method, err)
	}

	if err := c.stoppedErr(); err != nil {
		return err
	}

	c.log.Debug("Sending notification", "method", method)

	if err := c.transport.SendMessage(ctx, &jsonrpc.Request{Method: method, Params: raw}); err != nil {
		return fmt.Errorf("send %s notification: %w", method, err)
	}

	return nil
}

// OnNotification registers a handler for inbound notifications of method.
// Registering a handler for the same method twice replaces the previous one.
// Held notifications for method are replayed in arrival order.
func (c *Controller) OnNotification(method string, handler NotificationHandler) {
	c.handlersMu.Lock()
	c.log.Debug("Registering notification handler", "method", method)
	c.notificationHandlers[method] = handler
	c.handlersMu.Unlock()

	c.signal()
}

// OnRequest registers a handler for inbound requests of method.
// Registering a handler for the same method twice replaces the previous one.
// Held requests for method are replayed in arrival order.
func (c *Controller) OnRequest(method string, handler RequestHandler) {
	c.handlersMu.Lock()
	c.log.Debug("Registering request handler", "method", method)
	c.requestHandlers[method] = handler
	c.handlersMu.Unlock()

	c.signal()
}

// stoppedErr returns a non-nil error once the controller has stopped.
func (c *Controller) stoppedErr() error {
	select {
	case <-c.done:
	default:
		return nil
	}

	if err := c.FatalError(); err != nil {
		if stderrors.Is(err, errors.ErrConnectionClosed) {
			return err
		}

		return fmt.Errorf("%w: %w", errors.ErrConnectionClosed, err)
	}

	return errors.ErrConnectionClosed
}

func (c *Controller) removePending(requestID string) {
	c.pendingMu.Lock()
	delete(c.pending, requestID)
	c.pendingMu.Unlock()
}

// sendCancel tells the worker an outstanding request was abandoned.
func (c *Controller) sendCancel(requestID string) {
	if c.stoppedErr() != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := c.transport.SendMessage(ctx, &jsonrpc.Request{
		Method: MethodCancelRequest,
		Params: mustMarshal(cancelParams{ID: requestID}),
	}); err != nil {
		c.log.Debug("Failed to send cancel notification", "request_id", requestID, "error", err)
	}
}

// readLoop reads messages from the transport, routing responses directly and
// queueing inbound requests and notifications for the dispatcher.
func (c *Controller) readLoop(
	ctx context.Context,
	messages <-chan jsonrpc.Message,
	errs <-chan error,
) {
	defer c.log.Debug("Protocol read loop stopped")

	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				c.log.Debug("Message channel closed")
				c.SetFatalError(pendingError(errs))

				return
			}

			c.handleMessage(msg)

		case err, ok := <-errs:
			if !ok {
				errs = nil

				continue
			}

			if err != nil {
				c.log.Debug("Transport error in protocol", "error", err)
				c.SetFatalError(err)

				return
			}

		case <-c.done:
			c.log.Debug("Protocol controller stop signal received")

			return

		case <-ctx.Done():
			c.log.Debug("Context cancelled in protocol read loop")

			return
		}
	}
}

// pendingError returns a transport error already queued on errs, or
// ErrConnectionClosed if there is none.
func pendingError(errs <-chan error) error {
	if errs != nil {
		select {
		case err, ok := <-errs:
			if ok && err != nil {
				return err
			}
		default:
		}
	}

	return errors.ErrConnectionClosed
}

// handleMessage routes a message based on its type.
func (c *Controller) handleMessage(msg jsonrpc.Message) {
	switch m := msg.(type) {
	case *jsonrpc.Response:
		c.handleResponse(m)

	case *jsonrpc.Request:
		if m.Method == MethodCancelRequest && !m.ID.IsValid() {
			c.handleCancelRequest(m)

			return
		}

		c.handlersMu.Lock()
		c.inbox = append(c.inbox, m)
		c.handlersMu.Unlock()

		c.signal()

	default:
		c.log.Warn("Ignoring unknown message type", "type", fmt.Sprintf("%T", msg))
	}
}

// handleResponse routes a response to the waiting request.
func (c *Controller) handleResponse(resp *jsonrpc.Response) {
	requestID := idKey(resp.ID)

	// Find and claim pending request atomically
	c.pendingMu.Lock()

	pending, exists := c.pending[requestID]
	if exists {
		delete(c.pending, requestID)
	}

	c.pendingMu.Unlock()

	if !exists {
		c.log.Warn("No pending request for response", "request_id", requestID)

		return
	}

	c.log.Debug("Routing response", "request_id", requestID, "method", pending.method)

	// We own it now, blocking is safe since channel is buffered
	pending.response <- resp
}

// signal wakes the dispatcher without blocking.
func (c *Controller) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// dispatchAction is the next unit of work for the dispatcher.
type dispatchAction struct {
	msg          *jsonrpc.Request
	notification NotificationHandler
	request      RequestHandler
	reject       bool
}

// dispatchLoop runs notification handlers in arrival order and starts
// request handlers.
func (c *Controller) dispatchLoop(ctx context.Context) {
	defer c.log.Debug("Protocol dispatch loop stopped")

	for {
		select {
		case <-c.wake:
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}

		for {
			action, ok := c.next()
			if !ok {
				break
			}

			c.dispatch(ctx, action)
		}
	}
}

// next picks the earliest inbound message that can make progress.
//
// Held messages are older than anything in the inbox, so the backlog is
// scanned first. Inbox messages without a handler move to the backlog.
func (c *Controller) next() (dispatchAction, bool) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()

	for i, msg := range c.backlog {
		if action, ok := c.lookup(msg); ok {
			c.backlog = append(c.backlog[:i], c.backlog[i+1:]...)

			return action, true
		}
	}

	for len(c.inbox) > 0 {
		msg := c.inbox[0]
		c.inbox[0] = nil
		c.inbox = c.inbox[1:]

		if action, ok := c.lookup(msg); ok {
			return action, true
		}

		if len(c.backlog) < c.backlogSize {
			c.log.Debug("Holding message until a handler is registered", "method", msg.Method)
			c.backlog = append(c.backlog, msg)

			continue
		}

		if msg.ID.IsValid() {
			c.log.Warn("Backlog full, rejecting request", "method", msg.Method)

			return dispatchAction{msg: msg, reject: true}, true
		}

		c.log.Warn("Backlog full, dropping notification", "method", msg.Method)
	}

	return dispatchAction{}, false
}

// lookup finds the handler for msg. Must be called with handlersMu held.
func (c *Controller) lookup(msg *jsonrpc.Request) (dispatchAction, bool) {
	if msg.ID.IsValid() {
		if h, ok := c.requestHandlers[msg.Method]; ok {
			return dispatchAction{msg: msg, request: h}, true
		}

		return dispatchAction{}, false
	}

	if h, ok := c.notificationHandlers[msg.Method]; ok {
		return dispatchAction{msg: msg, notification: h}, true
	}

	return dispatchAction{}, false
}

func (c *Controller) dispatch(ctx context.Context, action dispatchAction) {
	msg := action.msg

	switch {
	case action.reject:
		c.sendErrorResponse(ctx, msg.ID, CodeMethodNotFound, "no handler registered for "+msg.Method)

	case action.notification != nil:
		c.log.Debug("Dispatching notification", "method", msg.Method)

		c.activeHandlers.Add(1)
		action.notification(ctx, msg.Params)
		c.activeHandlers.Add(-1)

	case action.request != nil:
		c.handleRequest(ctx, msg, action.request)
	}
}

// handleRequest runs handler in its own goroutine and sends the response.
func (c *Controller) handleRequest(ctx context.Context, req *jsonrpc.Request, handler RequestHandler) {
	requestID := idKey(req.ID)

	c.log.Debug("Dispatching request", "request_id", requestID, "method", req.Method)

	// Create cancellable context for the operation
	opCtx, cancel := context.WithCancel(ctx)

	c.inFlightMu.Lock()
	c.inFlight[requestID] = cancel
	c.inFlightMu.Unlock()

	c.activeHandlers.Add(1)

	c.wg.Go(func() {
		defer func() {
			c.activeHandlers.Add(-1)

			c.inFlightMu.Lock()
			delete(c.inFlight, requestID)
			c.inFlightMu.Unlock()

			cancel()
		}()

		result, err := handler(opCtx, req.Params)

		// Check if cancelled
		if opCtx.Err() != nil && ctx.Err() == nil {
			c.log.Debug("Handler was cancelled", "request_id", requestID)
			c.sendErrorResponse(ctx, req.ID, CodeRequestCancelled, "request cancelled")

			return
		}

		if err != nil {
			c.log.Warn("Handler returned error", "request_id", requestID, "error", err.Error())

			code := CodeInternalError
			if respErr, ok := stderrors.AsType[*errors.ResponseError](err); ok && respErr.Code != 0 {
				code = respErr.Code
			}

			c.sendErrorResponse(ctx, req.ID, code, err.Error())

			return
		}

		raw, err := json.Marshal(result)
		if err != nil {
			c.log.Error("Failed to marshal handler result", "request_id", requestID, "error", err)
			c.sendErrorResponse(ctx, req.ID, CodeInternalError, "marshal result: "+err.Error())

			return
		}

		if err := c.transport.SendMessage(ctx, &jsonrpc.Response{ID: req.ID, Result: raw}); err != nil {
			c.log.Debug("Failed to send response", "request_id", requestID, "error", err)
		}
	})
}

// sendErrorResponse sends an error response for an inbound request.
func (c *Controller) sendErrorResponse(ctx context.Context, id jsonrpc.ID, code int64, message string) {
	resp := &jsonrpc.Response{
		ID:    id,
		Error: &jsonrpc.Error{Code: code, Message: message},
	}

	if err := c.transport.SendMessage(ctx, resp); err != nil {
		// Don't log error if context was cancelled (expected during shutdown)
		if ctx.Err() != nil {
			c.log.Debug("Could not send error response during shutdown", "error", err)

			return
		}

		c.log.Error("Failed to send error response", "error", err)
	}
}

// handleCancelRequest cancels the in-flight inbound request named by msg.
func (c *Controller) handleCancelRequest(msg *jsonrpc.Request) {
	var params cancelParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		c.log.Warn("Malformed cancel request", "error", err)

		return
	}

	requestID := fmt.Sprint(params.ID)

	c.inFlightMu.Lock()
	cancel, exists := c.inFlight[requestID]
	c.inFlightMu.Unlock()

	if !exists {
		c.log.Debug("Cancel request for unknown operation", "request_id", requestID)

		return
	}

	c.log.Debug("Cancelling in-flight request", "request_id", requestID)
	cancel()
}

// cancelAllInFlight cancels all in-flight inbound requests.
func (c *Controller) cancelAllInFlight() {
	c.inFlightMu.Lock()
	defer c.inFlightMu.Unlock()

	for _, cancel := range c.inFlight {
		cancel()
	}
}

// generateRequestID creates a unique request ID using ULID.
func (c *Controller) generateRequestID() string {
	return ulid.Make().String()
}

// idKey returns the map key for a JSON-RPC id.
func idKey(id jsonrpc.ID) string {
	return fmt.Sprint(id.Raw())
}

// toResponseError converts a response error into a ResponseError.
func toResponseError(method string, err error) *errors.ResponseError {
	if wire, ok := stderrors.AsType[*jsonrpc.Error](err); ok {
		return &errors.ResponseError{Method: method, Code: wire.Code, Message: wire.Message}
	}

	return &errors.ResponseError{Method: method, Message: err.Error()}
}

func marshalParams(params any) (json.RawMessage, error) {
	switch p := params.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return p, nil
	default:
		return json.Marshal(params)
	}
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshal %T: %v", v, err))
	}

	return data
}
