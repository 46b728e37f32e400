package subprocess

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/wagiedev/pses-client-go/internal/errors"
)

const (
	// maxScanTokenSize is the maximum buffer size for reading output lines.
	maxScanTokenSize = 1024 * 1024 // 1MB
	// maxStderrBufferSize is the maximum size for the stderr buffer.
	// Stderr reading continues indefinitely (callback receives all lines),
	// but the buffer stops growing after this limit to prevent unbounded memory usage.
	maxStderrBufferSize = 64 * 1024 // 64KB
	// outputWaitDelay bounds how long output is drained after the process
	// exits. A descendant that inherited stdout or stderr can hold them open.
	outputWaitDelay = 2 * time.Second
)

// Spec describes a process to launch.
type Spec struct {
	// Path is the executable to run.
	Path string

	// Args are the command line arguments, excluding the executable.
	Args []string

	// Env is the complete environment. If nil, the current environment is inherited.
	Env []string

	// Dir is the working directory. If empty, the current directory is used.
	Dir string

	// Stderr is called with each line written to stderr.
	Stderr func(string)

	// Stdout is called with each line written to stdout.
	Stdout func(string)
}

// Process is a running worker process.
//
// The process is not bound to the context passed to Spawn: it lives until it
// exits on its own or Kill is called.
type Process struct {
	log *slog.Logger
	cmd *exec.Cmd

	exited  chan struct{}
	exitErr *errors.ProcessError

	stderrMu     sync.Mutex
	stderrBuffer strings.Builder

	mu     sync.Mutex
	killed bool
}

// Spawn starts the process described by spec.
//
// Returns SpawnError if the executable cannot be started.
func Spawn(ctx context.Context, log *slog.Logger, spec Spec) (*Process, error) {
	log = log.With("component", "subprocess")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	//nolint:gosec // G204: launching the configured worker executable is the purpose of this package
	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Env = spec.Env
	cmd.Dir = spec.Dir
	setProcAttr(cmd)

	// Writers rather than StdoutPipe, so Wait owns the copy and can give up
	// on it after WaitDelay.
	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()

	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW
	cmd.WaitDelay = outputWaitDelay

	if err := cmd.Start(); err != nil {
		_ = stdoutW.Close()
		_ = stderrW.Close()

		log.Error("Failed to start worker process", "path", spec.Path, "error", err)

		return nil, &errors.SpawnError{Path: spec.Path, Err: err}
	}

	p := &Process{
		log:    log.With("pid", cmd.Process.Pid),
		cmd:    cmd,
		exited: make(chan struct{}),
	}

	p.log.Info("Worker process started", "path", spec.Path)

	var readers sync.WaitGroup

	readers.Go(func() { p.drain(stdoutR, spec.Stdout, false) })
	readers.Go(func() { p.drain(stderrR, spec.Stderr, true) })

	go func() {
		err := cmd.Wait()

		// Wait has finished copying or given up; unblock the readers.
		_ = stdoutW.Close()
		_ = stderrW.Close()

		readers.Wait()
		p.wait(err)
	}()

	return p, nil
}

// drain reads lines from r until EOF, forwarding them to callback.
func (p *Process) drain(r io.Reader, callback func(string), buffer bool) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxScanTokenSize)

	for scanner.Scan() {
		line := scanner.Text()

		if buffer {
			p.stderrMu.Lock()

			if p.stderrBuffer.Len() < maxStderrBufferSize {
				if p.stderrBuffer.Len() > 0 {
					p.stderrBuffer.WriteString("\n")
				}

				p.stderrBuffer.WriteString(line)
			}

			p.stderrMu.Unlock()
		}

		if callback != nil {
			callback(line)
		}
	}

	// Log scanner errors (don't fail - process may have exited)
	if err := scanner.Err(); err != nil {
		p.log.Debug("Output scanner error", "error", err)

		// Keep consuming so the process is never blocked writing.
		_, _ = io.Copy(io.Discard, r)
	}
}

func (p *Process) wait(err error) {
	if stderrors.Is(err, exec.ErrWaitDelay) {
		p.log.Debug("Worker output still held open after exit")

		err = nil
	}

	exitCode := p.cmd.ProcessState.ExitCode()
	if exitErr, ok := stderrors.AsType[*exec.ExitError](err); ok {
		exitCode = exitErr.ExitCode()
	}

	p.exitErr = &errors.ProcessError{
		ExitCode: exitCode,
		Stderr:   p.Stderr(),
		Err:      err,
	}

	p.mu.Lock()
	killed := p.killed
	p.mu.Unlock()

	if killed {
		p.log.Debug("Worker process terminated after kill")
	} else {
		p.log.Info("Worker process exited", "exit_code", exitCode, "error", err)
	}

	close(p.exited)
}

// Pid returns the OS process id.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Exited returns a channel that is closed once the process has exited and its
// output has been drained. Output a descendant still holds open is abandoned
// shortly after the exit.
func (p *Process) Exited() <-chan struct{} {
	return p.exited
}

// ExitError returns a ProcessError describing the exit, or nil while the
// process is still running.
func (p *Process) ExitError() error {
	select {
	case <-p.exited:
		return p.exitErr
	default:
		return nil
	}
}

// Stderr returns the buffered stderr output.
func (p *Process) Stderr() string {
	p.stderrMu.Lock()
	defer p.stderrMu.Unlock()

	return strings.TrimSpace(p.stderrBuffer.String())
}

// Kill terminates the process and its process group.
//
// It's safe to call Kill multiple times or on an already-exited process.
func (p *Process) Kill() error {
	select {
	case <-p.exited:
		return nil
	default:
	}

	p.mu.Lock()
	p.killed = true
	p.mu.Unlock()

	p.log.Debug("Killing worker process")

	if err := killProcessGroup(p.cmd.Process); err != nil && !stderrors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill worker process (pid %d): %w", p.Pid(), err)
	}

	return nil
}
