package term

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	creackpty "github.com/creack/pty"
	"github.com/google/uuid"
	"github.com/kballard/go-shellquote"
)

const (
	// DefaultRows and DefaultCols apply when a create request omits the
	// geometry or supplies non-positive dimensions.
	DefaultRows = 24
	DefaultCols = 80

	// defaultStartupDelay is how long Create waits before injecting a
	// startup command: long enough for the shell to print its prompt and
	// absorb the UI's first resize. There is no readiness handshake.
	defaultStartupDelay = 2 * time.Second

	readChunkSize   = 4096
	eventBufferSize = 1024
)

// Manager is the single owner of all live sessions. Every lookup and
// mutation goes through its methods; the registry map is never exposed.
type Manager struct {
	log    *slog.Logger
	events chan Event

	startupDelay time.Duration
	shell        string

	mu       sync.RWMutex
	sessions map[string]*session
}

// Option configures a Manager.
type Option func(*Manager)

// WithStartupDelay overrides the settle delay before startup-command
// injection.
func WithStartupDelay(d time.Duration) Option {
	return func(m *Manager) { m.startupDelay = d }
}

// WithShell sets a default command line for new sessions in place of the
// detected login shell. A per-request Command still wins.
func WithShell(command string) Option {
	return func(m *Manager) { m.shell = command }
}

// NewManager creates an empty Manager. A nil logger falls back to
// slog.Default().
func NewManager(logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		log:          logger,
		events:       make(chan Event, eventBufferSize),
		startupDelay: defaultStartupDelay,
		sessions:     make(map[string]*session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Events returns the manager-wide event stream. Session loops block once
// the buffer fills, so the consumer must keep draining for the lifetime
// of the manager.
func (m *Manager) Events() <-chan Event { return m.events }

// Create spawns a shell on a fresh PTY and registers it under a new id.
// The session is inserted into the registry before its reader and exit
// watcher start, so a consumer that looks the id up on the first event
// always finds it.
func (m *Manager) Create(req CreateRequest) (string, error) {
	argv, err := m.commandLine(req.Command)
	if err != nil {
		return "", err
	}

	rows, cols := req.Rows, req.Cols
	if rows <= 0 || cols <= 0 {
		rows, cols = DefaultRows, DefaultCols
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = sessionEnv(os.Environ())
	cmd.Dir = workDir(req.Cwd)

	ptmx, err := creackpty.StartWithSize(cmd, &creackpty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
	if err != nil {
		return "", fmt.Errorf("term: start session: %w", err)
	}

	id := uuid.New().String()
	s := &session{id: id, cmd: cmd, ptmx: ptmx}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	go s.readLoop(m.events)
	go s.waitExit(m.events)

	if req.StartupCommand != "" {
		startup := req.StartupCommand
		time.AfterFunc(m.startupDelay, func() {
			m.injectStartup(id, startup)
		})
	}

	m.log.Info("session created", "id", id, "command", argv[0], "rows", rows, "cols", cols)
	return id, nil
}

// Write sends raw bytes to the session's PTY master. The master is an
// unbuffered fd, so delivery is immediate.
func (m *Manager) Write(id string, data []byte) error {
	s, err := m.lookup(id)
	if err != nil {
		return err
	}
	return s.write(data)
}

// Resize changes the PTY geometry of a live session. Both dimensions
// must be positive.
func (m *Manager) Resize(id string, rows, cols int) error {
	if rows <= 0 || cols <= 0 {
		return fmt.Errorf("%w: rows and cols must be positive (rows=%d, cols=%d)", ErrInvalidArgument, rows, cols)
	}
	s, err := m.lookup(id)
	if err != nil {
		return err
	}
	return s.resize(uint16(rows), uint16(cols))
}

// Kill removes the session from the registry and releases its PTY. It
// does not wait for the shell to die; closing the master delivers hangup
// and the exit watcher reports the eventual termination.
func (m *Manager) Kill(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	delete(m.sessions, id)
	m.mu.Unlock()

	// Handle release happens outside the registry lock.
	if err := s.close(); err != nil {
		m.log.Debug("pty close", "id", id, "error", err)
	}
	m.log.Info("session killed", "id", id)
	return nil
}

// List returns a snapshot of the registered session ids, in no
// particular order.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Close releases every registered session. Their loops drain on their
// own as the closed fds unblock the reads.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, s := range m.sessions {
		_ = s.close()
		delete(m.sessions, id)
	}
}

func (m *Manager) lookup(id string) (*session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return s, nil
}

// injectStartup writes a deferred startup command to a session that is
// still registered. A session killed before the delay elapsed is skipped
// without complaint.
func (m *Manager) injectStartup(id, command string) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		m.log.Debug("startup command skipped, session gone", "id", id)
		return
	}
	if err := s.write([]byte(command + "\n")); err != nil {
		m.log.Warn("startup command write failed", "id", id, "error", err)
	}
}

// commandLine picks the argv for a new session: the per-request command,
// else the manager-wide shell override, else the detected login shell.
func (m *Manager) commandLine(override string) ([]string, error) {
	line := override
	if line == "" {
		line = m.shell
	}
	if line == "" {
		return []string{defaultShell()}, nil
	}

	argv, err := shellquote.Split(line)
	if err != nil {
		return nil, fmt.Errorf("%w: command %q: %v", ErrInvalidArgument, line, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("%w: empty command", ErrInvalidArgument)
	}
	return argv, nil
}
