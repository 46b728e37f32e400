package transport

import (
	"bufio"
	"context"
	stderrors "errors"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/pses-client-go/internal/errors"
	"github.com/wagiedev/pses-client-go/internal/session"
)

func TestDial_TCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	t.Cleanup(func() { _ = ln.Close() })

	received := make(chan string, 1)

	go func() {
		server, err := ln.Accept()
		if err != nil {
			return
		}
		defer server.Close()

		body, err := readFrame(bufio.NewReader(server))
		if err == nil {
			received <- string(body)
		}
	}()

	desc := &session.Descriptor{
		Status:            session.StatusStarted,
		ConnectionChannel: session.ChannelPort,
		ServicePort:       ln.Addr().(*net.TCPAddr).Port,
	}

	conn, err := Dial(context.Background(), slog.Default(), desc)
	require.NoError(t, err)

	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.SendMessage(context.Background(), &jsonrpc.Request{Method: "ping"}))

	select {
	case body := <-received:
		require.JSONEq(t, `{"jsonrpc":"2.0","method":"ping"}`, body)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not receive a frame")
	}
}

func TestDial_FailedDescriptor(t *testing.T) {
	desc := &session.Descriptor{
		Status: session.StatusFailed,
		Reason: "languageMode",
		Detail: "ConstrainedLanguage",
	}

	_, err := Dial(context.Background(), slog.Default(), desc)

	_, ok := stderrors.AsType[*errors.ConnectionError](err)
	require.True(t, ok, "expected ConnectionError, got %v", err)

	hs, ok := stderrors.AsType[*errors.HandshakeError](err)
	require.True(t, ok)
	require.Equal(t, errors.ReasonRestrictedLanguageMode, hs.Reason)
	require.Equal(t, "ConstrainedLanguage", hs.Detail)
	require.Contains(t, err.Error(), "ConstrainedLanguage")
}

func TestDial_InvalidAddress(t *testing.T) {
	desc := &session.Descriptor{Status: session.StatusStarted, ConnectionChannel: session.ChannelPipe}

	_, err := Dial(context.Background(), slog.Default(), desc)

	_, ok := stderrors.AsType[*errors.ConnectionError](err)
	require.True(t, ok, "expected ConnectionError, got %v", err)
}

func TestDial_Refused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	_, err = Dial(context.Background(), slog.Default(), &session.Descriptor{
		Status:      session.StatusStarted,
		ServicePort: port,
	})

	connErr, ok := stderrors.AsType[*errors.ConnectionError](err)
	require.True(t, ok, "expected ConnectionError, got %v", err)
	require.Equal(t, "port", connErr.Channel)
}

func TestDial_NilDescriptor(t *testing.T) {
	_, err := Dial(context.Background(), slog.Default(), nil)

	_, ok := stderrors.AsType[*errors.ConnectionError](err)
	require.True(t, ok)
}
