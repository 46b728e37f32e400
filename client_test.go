package pses_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/pses-client-go"
)

func TestNewClient_Lifecycle(t *testing.T) {
	client, err := pses.NewClient(stubOptions(t)...)
	require.NoError(t, err)
	require.Equal(t, pses.StateIdle, client.State())
	require.Contains(t, client.SessionFile(), "facade")

	ctx := context.Background()

	_, err = client.GetVersion(ctx)
	require.ErrorIs(t, err, pses.ErrNotConnected)

	require.NoError(t, client.Start(ctx))
	require.Equal(t, pses.StateConnected, client.State())
	require.Equal(t, 7, client.ProcessID())
	require.NotNil(t, client.Descriptor())
	require.Equal(t, 50000, client.Descriptor().ServicePort)

	require.ErrorIs(t, client.Start(ctx), pses.ErrAlreadyStarted)

	version, err := client.GetVersion(ctx)
	require.NoError(t, err)
	require.Equal(t, "Core", version.Edition)

	_, err = client.SendRequest(ctx, "unknown/method", nil)

	respErr, ok := errors.AsType[*pses.ResponseError](err)
	require.True(t, ok, "expected ResponseError, got %v", err)
	require.Equal(t, int64(-32601), respErr.Code)

	require.NoError(t, client.Close())
	require.Equal(t, pses.StateDisposed, client.State())
	require.NoError(t, client.Close())

	_, err = client.GetVersion(ctx)
	require.ErrorIs(t, err, pses.ErrClientClosed)
}

func TestNewClient_CloseBeforeStart(t *testing.T) {
	client, err := pses.NewClient(pses.WithSessionsDir(t.TempDir()))
	require.NoError(t, err)

	require.NoError(t, client.Close())
	require.ErrorIs(t, client.Start(context.Background()), pses.ErrClientClosed)
}

func TestNewClient_EmptyPipeline(t *testing.T) {
	client, err := pses.NewClient(stubOptions(t)...)
	require.NoError(t, err)

	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Start(context.Background()))

	_, err = client.InvokeCommand(context.Background(), pses.NewPipeline())
	require.ErrorIs(t, err, pses.ErrEmptyPipeline)
}
