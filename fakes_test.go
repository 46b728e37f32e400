package pses_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/pses-client-go"
	"github.com/wagiedev/pses-client-go/internal/session"
	"github.com/wagiedev/pses-client-go/internal/transport"
)

// stubProcess is a worker process that runs until killed.
type stubProcess struct {
	once   sync.Once
	exited chan struct{}
}

func (p *stubProcess) Pid() int                { return 7 }
func (p *stubProcess) Exited() <-chan struct{} { return p.exited }
func (p *stubProcess) ExitError() error        { return nil }

func (p *stubProcess) Kill() error {
	p.once.Do(func() { close(p.exited) })

	return nil
}

// stubSpawner writes a started descriptor to the client's session file when
// asked to launch the worker.
type stubSpawner struct {
	sessionFile string
}

func (s *stubSpawner) Spawn(_ context.Context, _ pses.SpawnSpec) (pses.Process, error) {
	desc := &pses.SessionDescriptor{
		Status:            pses.StatusStarted,
		ConnectionChannel: pses.ChannelPort,
		ServicePort:       50000,
	}

	if err := session.NewStore(slog.New(slog.DiscardHandler)).Write(s.sessionFile, desc); err != nil {
		return nil, err
	}

	return &stubProcess{exited: make(chan struct{})}, nil
}

// stubDialer connects the client to an in-memory worker that answers
// getVersion.
type stubDialer struct{}

func (stubDialer) Dial(_ context.Context, _ *pses.SessionDescriptor) (pses.Transport, error) {
	log := slog.New(slog.DiscardHandler)
	clientSide, workerSide := net.Pipe()

	go serveVersion(transport.NewConn(log, workerSide))

	return transport.NewConn(log, clientSide), nil
}

func serveVersion(conn *transport.Conn) {
	ctx := context.Background()
	messages, _ := conn.ReadMessages(ctx)

	for msg := range messages {
		req, ok := msg.(*jsonrpc.Request)
		if !ok || !req.ID.IsValid() {
			continue
		}

		resp := &jsonrpc.Response{ID: req.ID}
		if req.Method == pses.MethodGetVersion {
			resp.Result, _ = json.Marshal(pses.VersionDetails{Version: "7.4.6", Edition: "Core"})
		} else {
			resp.Error = &jsonrpc.Error{Code: -32601, Message: "method not found"}
		}

		if err := conn.SendMessage(ctx, resp); err != nil {
			return
		}
	}
}

const stubSessionID = "facade"

// stubOptions returns options that launch a stubbed worker.
func stubOptions(t *testing.T) []pses.Option {
	t.Helper()

	exe := filepath.Join(t.TempDir(), "pwsh")
	require.NoError(t, os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o755))

	dir := t.TempDir()
	paths := session.Paths{Dir: dir, HostPID: os.Getpid()}
	spawner := &stubSpawner{sessionFile: paths.File(stubSessionID)}

	return []pses.Option{
		pses.WithExecutablePath(exe),
		pses.WithBundledModulesPath(t.TempDir()),
		pses.WithSessionsDir(dir),
		pses.WithSessionID(stubSessionID),
		pses.WithWaitPolicy(50, 10*time.Millisecond),
		pses.WithSpawner(spawner),
		pses.WithDialer(stubDialer{}),
	}
}
