package client

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/pses-client-go/internal/config"
	"github.com/wagiedev/pses-client-go/internal/errors"
	"github.com/wagiedev/pses-client-go/internal/message"
	"github.com/wagiedev/pses-client-go/internal/session"
	"github.com/wagiedev/pses-client-go/internal/subprocess"
	"github.com/wagiedev/pses-client-go/internal/transport"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// fakeProcess implements config.Process.
type fakeProcess struct {
	pid      int
	exited   chan struct{}
	exitOnce sync.Once
	exitErr  error
	killed   atomic.Bool
}

func newFakeProcess(pid int) *fakeProcess {
	return &fakeProcess{pid: pid, exited: make(chan struct{})}
}

func (p *fakeProcess) Pid() int                { return p.pid }
func (p *fakeProcess) Exited() <-chan struct{} { return p.exited }

func (p *fakeProcess) ExitError() error {
	select {
	case <-p.exited:
		return p.exitErr
	default:
		return nil
	}
}

func (p *fakeProcess) Kill() error {
	p.killed.Store(true)
	p.exit(&errors.ProcessError{ExitCode: -1})

	return nil
}

// exit simulates the process ending on its own.
func (p *fakeProcess) exit(err error) {
	p.exitOnce.Do(func() {
		p.exitErr = err
		close(p.exited)
	})
}

// fakeSpawner implements config.Spawner. onSpawn runs after the process is
// created, standing in for the worker's startup.
type fakeSpawner struct {
	mu      sync.Mutex
	specs   []subprocess.Spec
	procs   []*fakeProcess
	err     error
	onSpawn func(proc *fakeProcess)
}

func (s *fakeSpawner) Spawn(_ context.Context, spec subprocess.Spec) (config.Process, error) {
	s.mu.Lock()
	s.specs = append(s.specs, spec)
	s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}

	proc := newFakeProcess(4242)

	s.mu.Lock()
	s.procs = append(s.procs, proc)
	s.mu.Unlock()

	if s.onSpawn != nil {
		go s.onSpawn(proc)
	}

	return proc, nil
}

func (s *fakeSpawner) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.specs)
}

func (s *fakeSpawner) process(t *testing.T) *fakeProcess {
	t.Helper()

	s.mu.Lock()
	defer s.mu.Unlock()

	require.Len(t, s.procs, 1)

	return s.procs[0]
}

// fakeDialer implements config.Dialer over net.Pipe, serving each connection
// with a fakeWorker.
type fakeDialer struct {
	mu      sync.Mutex
	dials   int
	err     error
	workers []*fakeWorker
	onServe func(w *fakeWorker)
}

func (d *fakeDialer) Dial(_ context.Context, _ *session.Descriptor) (config.Transport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.dials++

	if d.err != nil {
		return nil, d.err
	}

	clientSide, workerSide := net.Pipe()

	w := &fakeWorker{conn: transport.NewConn(testLogger(), workerSide), hung: make(chan struct{}, 10)}
	d.workers = append(d.workers, w)

	go w.serve(d.onServe)

	return transport.NewConn(testLogger(), clientSide), nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.dials
}

func (d *fakeDialer) worker(t *testing.T) *fakeWorker {
	t.Helper()

	d.mu.Lock()
	defer d.mu.Unlock()

	require.Len(t, d.workers, 1)

	return d.workers[0]
}

// fakeWorker answers the worker methods the client uses. Requests for
// methodHang are never answered; their arrival is signalled on hung.
type fakeWorker struct {
	conn *transport.Conn
	hung chan struct{}
}

const methodHang = "test/hang"

func (w *fakeWorker) serve(onServe func(w *fakeWorker)) {
	ctx := context.Background()

	if onServe != nil {
		onServe(w)
	}

	messages, _ := w.conn.ReadMessages(ctx)

	for msg := range messages {
		req, ok := msg.(*jsonrpc.Request)
		if !ok || !req.ID.IsValid() {
			continue
		}

		if req.Method == methodHang {
			w.hung <- struct{}{}

			continue
		}

		resp := &jsonrpc.Response{ID: req.ID}

		switch req.Method {
		case message.MethodGetVersion:
			resp.Result = mustJSON(message.VersionDetails{
				Version:        "7.4.6",
				DisplayVersion: "7.4",
				Edition:        "Core",
				Architecture:   "X64",
			})

		case message.MethodInvokePSCommand:
			var pipeline struct {
				Commands []struct {
					CommandText string `json:"commandText"`
				} `json:"commands"`
			}

			_ = json.Unmarshal(req.Params, &pipeline)

			output := make([]any, 0, len(pipeline.Commands))
			for _, cmd := range pipeline.Commands {
				output = append(output, cmd.CommandText)
			}

			resp.Result = mustJSON(message.InvokeResult{Output: output, Errors: []string{}})

		default:
			resp.Error = &jsonrpc.Error{Code: -32601, Message: "method not found: " + req.Method}
		}

		if err := w.conn.SendMessage(ctx, resp); err != nil {
			return
		}
	}
}

func (w *fakeWorker) notify(method string, params any) error {
	return w.conn.SendMessage(context.Background(), &jsonrpc.Request{
		Method: method,
		Params: mustJSON(params),
	})
}

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}

	return data
}

// harness wires a client to fakes.
type harness struct {
	client  *Client
	spawner *fakeSpawner
	dialer  *fakeDialer
	store   *session.Store
}

// newHarness creates a client whose fake worker writes desc on spawn. A nil
// desc means the worker never writes one.
func newHarness(t *testing.T, desc *session.Descriptor, tweak ...func(*config.Options)) *harness {
	t.Helper()

	exe := filepath.Join(t.TempDir(), "pwsh")
	require.NoError(t, os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o755))

	h := &harness{
		spawner: &fakeSpawner{},
		dialer:  &fakeDialer{},
		store:   session.NewStore(testLogger()),
	}

	opts := &config.Options{
		Logger:          testLogger(),
		SessionsDir:     filepath.Join(t.TempDir(), "sessions"),
		SessionID:       "test",
		HostPID:         1000,
		WaitMaxAttempts: 200,
		WaitInterval:    10 * time.Millisecond,
		RequestTimeout:  5 * time.Second,
		Spawner:         h.spawner,
		Dialer:          h.dialer,
	}
	opts.Process.ExecutablePath = exe
	opts.Process.StartScriptPath = "/opt/pses/Start-EditorServices.ps1"
	opts.Process.BundledModulesPath = "/opt/pses/modules"
	opts.Process.LogPath = "/tmp/pses.log"

	for _, fn := range tweak {
		fn(opts)
	}

	h.client = New(opts)

	if desc != nil {
		path := h.client.SessionFile()
		h.spawner.onSpawn = func(*fakeProcess) {
			time.Sleep(20 * time.Millisecond)
			_ = h.store.Write(path, desc)
		}
	}

	t.Cleanup(func() { _ = h.client.Dispose() })

	return h
}

func startedDescriptor() *session.Descriptor {
	return &session.Descriptor{
		Status:            session.StatusStarted,
		ConnectionChannel: session.ChannelPort,
		ServicePort:       51234,
		RuntimeVersion:    "7.4.6",
	}
}
