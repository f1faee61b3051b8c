package rpc

import (
	"bufio"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

// Transport is a bidirectional byte stream carrying frame lines.
type Transport interface {
	io.ReadWriteCloser
}

// Logger is satisfied by logging.Logger; kept minimal to avoid dependency cycles.
type Logger interface {
	Printf(format string, v ...any)
}

// killGrace is how long a terminated daemon gets before a forced kill.
const killGrace = 3 * time.Second

// StdioTransport runs the daemon as a child process and exchanges frames over
// its stdin/stdout. Stderr is drained to the logger so diagnostics survive.
type StdioTransport struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	logger Logger

	closeOnce sync.Once
	closeErr  error
}

// Spawn starts command with args and wires its pipes.
func Spawn(command string, args []string, logger Logger) (*StdioTransport, error) {
	cmd := exec.Command(command, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &TransportError{Op: "spawn", Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &TransportError{Op: "spawn", Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &TransportError{Op: "spawn", Err: err}
	}
	if err := cmd.Start(); err != nil {
		return nil, &TransportError{Op: "start", Err: err}
	}
	t := &StdioTransport{cmd: cmd, stdin: stdin, stdout: stdout, logger: logger}
	go t.drainStderr(stderr)
	return t, nil
}

func (t *StdioTransport) drainStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if t.logger != nil {
			t.logger.Printf("daemon: %s", scanner.Text())
		}
	}
}

func (t *StdioTransport) Read(p []byte) (int, error) {
	return t.stdout.Read(p)
}

func (t *StdioTransport) Write(p []byte) (int, error) {
	n, err := t.stdin.Write(p)
	if err != nil {
		return n, &TransportError{Op: "write", Err: err}
	}
	return n, nil
}

// Close shuts the daemon down: stdin close, termination signal, then a forced
// kill after the grace period. Safe to call more than once.
func (t *StdioTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.shutdown()
	})
	return t.closeErr
}

func (t *StdioTransport) shutdown() error {
	_ = t.stdin.Close()
	if t.cmd.Process == nil {
		return nil
	}
	_ = t.cmd.Process.Signal(os.Interrupt)

	done := make(chan error, 1)
	go func() { done <- t.cmd.Wait() }()
	select {
	case err := <-done:
		return ignoreExitError(err)
	case <-time.After(killGrace):
		_ = t.cmd.Process.Kill()
		return ignoreExitError(<-done)
	}
}

func ignoreExitError(err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// A daemon killed by our own signal is an expected exit.
		return nil
	}
	return err
}
