package protocol

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/stretchr/testify/require"
)

// mockTransport implements Transport for testing.
type mockTransport struct {
	mu      sync.Mutex
	sent    []jsonrpc.Message
	sentCh  chan jsonrpc.Message
	msgChan chan jsonrpc.Message
	errChan chan error
}

func newMockTransport() *mockTransport {
	return &mockTransport{
		sent:    make([]jsonrpc.Message, 0, 10),
		sentCh:  make(chan jsonrpc.Message, 100),
		msgChan: make(chan jsonrpc.Message, 10),
		errChan: make(chan error, 1),
	}
}

func (m *mockTransport) ReadMessages(_ context.Context) (<-chan jsonrpc.Message, <-chan error) {
	return m.msgChan, m.errChan
}

func (m *mockTransport) SendMessage(ctx context.Context, msg jsonrpc.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()

	m.sentCh <- msg

	return nil
}

func (m *mockTransport) sendToController(msg jsonrpc.Message) {
	m.msgChan <- msg
}

// nextSent waits for the next message the controller sends.
func (m *mockTransport) nextSent(t *testing.T) jsonrpc.Message {
	t.Helper()

	select {
	case msg := <-m.sentCh:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the controller to send a message")

		return nil
	}
}

// nextResponse waits for the next response the controller sends.
func (m *mockTransport) nextResponse(t *testing.T) *jsonrpc.Response {
	t.Helper()

	resp, ok := m.nextSent(t).(*jsonrpc.Response)
	require.True(t, ok, "expected a response")

	return resp
}

// nextRequest waits for the next request or notification the controller sends.
func (m *mockTransport) nextRequest(t *testing.T) *jsonrpc.Request {
	t.Helper()

	req, ok := m.nextSent(t).(*jsonrpc.Request)
	require.True(t, ok, "expected a request")

	return req
}

func inboundRequest(t *testing.T, id, method, params string) *jsonrpc.Request {
	t.Helper()

	jid, err := jsonrpc.MakeID(id)
	require.NoError(t, err)

	return &jsonrpc.Request{ID: jid, Method: method, Params: json.RawMessage(params)}
}

func inboundNotification(method, params string) *jsonrpc.Request {
	return &jsonrpc.Request{Method: method, Params: json.RawMessage(params)}
}

func startController(t *testing.T, transport *mockTransport, backlog int) *Controller {
	t.Helper()

	controller := NewControllerWithBacklog(testLogger(), transport, backlog)
	require.NoError(t, controller.Start(context.Background()))

	t.Cleanup(controller.Stop)

	return controller
}
