package pses

import (
	"context"
	"encoding/json"

	"github.com/wagiedev/pses-client-go/internal/client"
	"github.com/wagiedev/pses-client-go/internal/config"
)

// clientWrapper wraps the internal client to adapt it to the public interface.
type clientWrapper struct {
	impl *client.Client
}

// Compile-time check that *clientWrapper implements the Client interface.
var _ Client = (*clientWrapper)(nil)

// newClientImpl creates the internal client implementation.
func newClientImpl(options *config.Options) Client {
	return &clientWrapper{impl: client.New(options)}
}

func (c *clientWrapper) Start(ctx context.Context) error {
	return c.impl.Start(ctx)
}

func (c *clientWrapper) InvokeCommand(ctx context.Context, pipeline *Pipeline) (*InvokeResult, error) {
	return c.impl.InvokeCommand(ctx, pipeline)
}

func (c *clientWrapper) GetVersion(ctx context.Context) (*VersionDetails, error) {
	return c.impl.GetVersion(ctx)
}

func (c *clientWrapper) SendRequest(ctx context.Context, method string, params any) (json.RawMessage, error) {
	return c.impl.SendRequest(ctx, method, params)
}

func (c *clientWrapper) SendNotification(ctx context.Context, method string, params any) error {
	return c.impl.SendNotification(ctx, method, params)
}

func (c *clientWrapper) OnNotification(method string, handler NotificationHandler) {
	c.impl.OnNotification(method, handler)
}

func (c *clientWrapper) OnRequest(method string, handler RequestHandler) {
	c.impl.OnRequest(method, handler)
}

func (c *clientWrapper) OnRunspaceChanged(handler func(ctx context.Context, details *RunspaceDetails)) {
	c.impl.OnRunspaceChanged(handler)
}

func (c *clientWrapper) State() State {
	return c.impl.State()
}

func (c *clientWrapper) ProcessID() int {
	return c.impl.ProcessID()
}

func (c *clientWrapper) Descriptor() *SessionDescriptor {
	return c.impl.Descriptor()
}

func (c *clientWrapper) SessionFile() string {
	return c.impl.SessionFile()
}

func (c *clientWrapper) SpawnSpec(ctx context.Context) (SpawnSpec, error) {
	return c.impl.SpawnSpec(ctx)
}

// Close terminates the session and cleans up resources.
func (c *clientWrapper) Close() error {
	return c.impl.Dispose()
}
