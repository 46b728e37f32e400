//go:build integration

package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/pses-client-go"
)

// TestHandshake_FailedDescriptor tests that a worker reporting a restricted
// language mode fails Start with the reason and detail, without dialing.
func TestHandshake_FailedDescriptor(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	script := writeStartScript(t, `
'{"status":"failed","reason":"languageMode","detail":"ConstrainedLanguage"}' |
    Set-Content -LiteralPath $SessionDetailsPath -NoNewline
Start-Sleep -Seconds 30
`)

	client, err := pses.NewClient(
		pses.WithStartScriptPath(script),
		pses.WithSessionsDir(t.TempDir()),
		pses.WithWaitPolicy(120, 250*time.Millisecond),
	)
	require.NoError(t, err)

	defer client.Close()

	err = client.Start(ctx)
	skipIfPowerShellNotInstalled(t, err)

	hsErr, ok := errors.AsType[*pses.HandshakeError](err)
	require.True(t, ok, "expected HandshakeError, got %v", err)
	require.Equal(t, pses.ReasonRestrictedLanguageMode, hsErr.Reason)
	require.Contains(t, err.Error(), "ConstrainedLanguage")
	require.Equal(t, pses.StateFailed, client.State())
	require.Zero(t, client.ProcessID(), "worker should be killed after a failed handshake")
}

// TestHandshake_WorkerExits tests that a worker exiting before writing its
// session file fails Start promptly with ProcessError.
func TestHandshake_WorkerExits(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	script := writeStartScript(t, `
[Console]::Error.WriteLine('start script failed')
exit 3
`)

	client, err := pses.NewClient(
		pses.WithStartScriptPath(script),
		pses.WithSessionsDir(t.TempDir()),
		pses.WithWaitPolicy(120, 250*time.Millisecond),
	)
	require.NoError(t, err)

	defer client.Close()

	start := time.Now()
	err = client.Start(ctx)
	skipIfPowerShellNotInstalled(t, err)

	procErr, ok := errors.AsType[*pses.ProcessError](err)
	require.True(t, ok, "expected ProcessError, got %v", err)
	require.Equal(t, 3, procErr.ExitCode)
	require.Less(t, time.Since(start), 25*time.Second, "should not wait for the full poll budget")
}

// TestHandshake_Timeout tests that a worker which never writes its session
// file fails Start with TimeoutError and is killed.
func TestHandshake_Timeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	script := writeStartScript(t, `Start-Sleep -Seconds 60`)

	client, err := pses.NewClient(
		pses.WithStartScriptPath(script),
		pses.WithSessionsDir(t.TempDir()),
		pses.WithWaitPolicy(4, 250*time.Millisecond),
	)
	require.NoError(t, err)

	defer client.Close()

	err = client.Start(ctx)
	skipIfPowerShellNotInstalled(t, err)

	_, ok := errors.AsType[*pses.TimeoutError](err)
	require.True(t, ok, "expected TimeoutError, got %v", err)
	require.Zero(t, client.ProcessID())
}
