package mcp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
)

// Status reports whether the context server is running.
type Status struct {
	Running bool `json:"running"`
	PID     int  `json:"pid,omitempty"`
}

// Supervisor manages the workbench's single context-server process. The
// slot holds zero or one process; all calls serialize on the mutex,
// which is what makes concurrent Start calls safe.
type Supervisor struct {
	log *slog.Logger

	overridePath string
	devRoot      string
	exeDir       string

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithExecutable pins the server executable, consulted before the search
// order.
func WithExecutable(path string) Option {
	return func(s *Supervisor) { s.overridePath = path }
}

// WithSearchDirs overrides where candidates are looked for: the
// development tree root and the host executable's directory. Either may
// be empty to skip its candidates.
func WithSearchDirs(devRoot, exeDir string) Option {
	return func(s *Supervisor) {
		s.devRoot = devRoot
		s.exeDir = exeDir
	}
}

// NewSupervisor creates a Supervisor with an empty slot. By default the
// development root is the working directory and the bundle directory is
// where the host binary lives.
func NewSupervisor(logger *slog.Logger, opts ...Option) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Supervisor{log: logger}
	if wd, err := os.Getwd(); err == nil {
		s.devRoot = wd
	}
	if exe, err := os.Executable(); err == nil {
		s.exeDir = filepath.Dir(exe)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExecutablePath resolves which server executable Start would run,
// without starting it.
func (s *Supervisor) ExecutablePath() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cand, err := resolve(serverCandidates(s.overridePath, s.devRoot, s.exeDir, runtime.GOOS, runtime.GOARCH))
	if err != nil {
		return "", err
	}
	return cand.path, nil
}

// Start launches the context server unless it is already running, in
// which case the existing pid is reported unchanged. A process that
// exited since the last call is cleared before respawning.
func (s *Supervisor) Start() (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil {
		select {
		case <-s.done:
			s.log.Info("server process had exited, restarting", "pid", s.cmd.Process.Pid)
			s.cmd = nil
			s.done = nil
		default:
			return Status{Running: true, PID: s.cmd.Process.Pid}, nil
		}
	}

	cand, err := resolve(serverCandidates(s.overridePath, s.devRoot, s.exeDir, runtime.GOOS, runtime.GOARCH))
	if err != nil {
		return Status{}, err
	}

	argv := cand.argv()
	cmd := exec.Command(argv[0], argv[1:]...)

	// Piped rather than inherited stdio. Stdin stays open for the
	// process's lifetime; stdout and stderr are drained into the log so
	// the pipes never fill up.
	if _, err := cmd.StdinPipe(); err != nil {
		return Status{}, fmt.Errorf("mcp: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Status{}, fmt.Errorf("mcp: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Status{}, fmt.Errorf("mcp: stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return Status{}, fmt.Errorf("mcp: start server %q: %w", cand.path, err)
	}

	done := make(chan struct{})
	var pipes sync.WaitGroup
	pipes.Add(2)
	go func() {
		defer pipes.Done()
		s.drain("stdout", stdout)
	}()
	go func() {
		defer pipes.Done()
		s.drain("stderr", stderr)
	}()
	go func() {
		// Reads must finish before Wait closes the pipes.
		pipes.Wait()
		if err := cmd.Wait(); err != nil {
			s.log.Debug("server process exited", "error", err)
		}
		close(done)
	}()

	s.cmd = cmd
	s.done = done
	s.log.Info("server started", "path", cand.path, "pid", cmd.Process.Pid)
	return Status{Running: true, PID: cmd.Process.Pid}, nil
}

// Stop terminates the server and blocks until it has been reaped. An
// empty slot is a no-op. A kill failure leaves the slot populated so the
// caller can retry.
func (s *Supervisor) Stop() (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd == nil {
		return Status{Running: false}, nil
	}

	select {
	case <-s.done:
	default:
		if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return Status{}, fmt.Errorf("mcp: kill server: %w", err)
		}
		<-s.done
	}

	s.log.Info("server stopped", "pid", s.cmd.Process.Pid)
	s.cmd = nil
	s.done = nil
	return Status{Running: false}, nil
}

// Status is a non-blocking poll. A process that exited since the last
// call is lazily cleared from the slot.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd == nil {
		return Status{Running: false}
	}

	select {
	case <-s.done:
		s.cmd = nil
		s.done = nil
		return Status{Running: false}
	default:
		return Status{Running: true, PID: s.cmd.Process.Pid}
	}
}

func (s *Supervisor) drain(stream string, r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		s.log.Debug("server output", "stream", stream, "line", sc.Text())
	}
}
