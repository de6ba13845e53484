package term

import (
	"errors"
	"io"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := NewManager(logger, opts...)
	t.Cleanup(m.Close)
	return m
}

// collectOutput drains the event stream until the accumulated output for
// id contains want, or the timeout elapses.
func collectOutput(t *testing.T, m *Manager, id, want string, timeout time.Duration) string {
	t.Helper()
	var output strings.Builder
	deadline := time.After(timeout)
	for {
		select {
		case ev := <-m.Events():
			if ev.ID != id || ev.Type != EventOutput {
				continue
			}
			output.WriteString(ev.Data)
			if strings.Contains(output.String(), want) {
				return output.String()
			}
		case <-deadline:
			t.Fatalf("timed out waiting for output containing %q, got %q", want, output.String())
		}
	}
}

// TestCreateAssignsDistinctIDs creates three sessions and verifies the
// ids are pairwise distinct and List returns exactly that set.
func TestCreateAssignsDistinctIDs(t *testing.T) {
	m := newTestManager(t)

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := m.Create(CreateRequest{Command: "sleep 10"})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		ids = append(ids, id)
	}

	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate session id %q", id)
		}
		seen[id] = struct{}{}
	}

	listed := m.List()
	sort.Strings(ids)
	sort.Strings(listed)
	if !reflect.DeepEqual(ids, listed) {
		t.Errorf("List() = %v, want %v", listed, ids)
	}
}

// TestCreateDefaultGeometry spawns "stty size" without an explicit
// geometry and expects the default 24x80 to be reported.
func TestCreateDefaultGeometry(t *testing.T) {
	m := newTestManager(t)

	id, err := m.Create(CreateRequest{Command: "stty size"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	collectOutput(t, m, id, "24 80", 5*time.Second)
}

func TestWriteUnknownSessionReturnsNotFound(t *testing.T) {
	m := newTestManager(t)

	err := m.Write("no-such-id", []byte("echo hi\n"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Write on unknown id = %v, want ErrNotFound", err)
	}
}

// TestResizeValidatesGeometry checks that zero dimensions are rejected
// before anything else and that a positive resize on a live session
// succeeds.
func TestResizeValidatesGeometry(t *testing.T) {
	m := newTestManager(t)

	id, err := m.Create(CreateRequest{Command: "sleep 10"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := m.Resize(id, 0, 24); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Resize(0, 24) = %v, want ErrInvalidArgument", err)
	}
	if err := m.Resize(id, 80, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Resize(80, 0) = %v, want ErrInvalidArgument", err)
	}
	if err := m.Resize(id, 80, 24); err != nil {
		t.Errorf("Resize(80, 24) = %v, want nil", err)
	}
	if err := m.Resize("no-such-id", 80, 24); !errors.Is(err, ErrNotFound) {
		t.Errorf("Resize on unknown id = %v, want ErrNotFound", err)
	}
}

// TestKillRemovesSession verifies that a killed id disappears from List
// and that subsequent operations on it report not found.
func TestKillRemovesSession(t *testing.T) {
	m := newTestManager(t)

	id, err := m.Create(CreateRequest{Command: "sleep 10"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := m.Kill(id); err != nil {
		t.Fatalf("Kill: %v", err)
	}

	for _, listed := range m.List() {
		if listed == id {
			t.Fatalf("killed id %q still listed", id)
		}
	}
	if err := m.Write(id, []byte("x")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Write after kill = %v, want ErrNotFound", err)
	}
	if err := m.Resize(id, 80, 24); !errors.Is(err, ErrNotFound) {
		t.Errorf("Resize after kill = %v, want ErrNotFound", err)
	}
	if err := m.Kill(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Kill = %v, want ErrNotFound", err)
	}
}

// TestExitEventPublishedExactlyOnce spawns a command that exits at once
// and counts exit events for the id: exactly one, even after lingering.
func TestExitEventPublishedExactlyOnce(t *testing.T) {
	m := newTestManager(t)

	id, err := m.Create(CreateRequest{Command: "true"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	exits := 0
	timeout := time.After(5 * time.Second)
	var quiet <-chan time.Time

	for {
		select {
		case ev := <-m.Events():
			if ev.ID == id && ev.Type == EventExit {
				exits++
				// Linger to catch a duplicate.
				quiet = time.After(500 * time.Millisecond)
			}
		case <-quiet:
			goto done
		case <-timeout:
			t.Fatal("timed out waiting for exit event")
		}
	}

done:
	if exits != 1 {
		t.Errorf("exit events = %d, want 1", exits)
	}
}

// TestSessionSurvivesProcessExit pins the lifetime policy: an exited
// session stays registered, writes to it are not rejected as not found,
// and only an explicit Kill removes it.
func TestSessionSurvivesProcessExit(t *testing.T) {
	m := newTestManager(t)

	id, err := m.Create(CreateRequest{Command: "true"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	timeout := time.After(5 * time.Second)
	for exited := false; !exited; {
		select {
		case ev := <-m.Events():
			exited = ev.ID == id && ev.Type == EventExit
		case <-timeout:
			t.Fatal("timed out waiting for exit event")
		}
	}

	found := false
	for _, listed := range m.List() {
		found = found || listed == id
	}
	if !found {
		t.Fatal("exited session missing from List")
	}

	if err := m.Write(id, []byte("ignored\n")); errors.Is(err, ErrNotFound) {
		t.Errorf("Write on exited session = ErrNotFound, want any other result")
	}

	if err := m.Kill(id); err != nil {
		t.Errorf("Kill on exited session = %v, want nil", err)
	}
}

// TestStartupCommandInjected shortens the settle delay and verifies the
// startup command reaches the child.
func TestStartupCommandInjected(t *testing.T) {
	m := newTestManager(t, WithStartupDelay(50*time.Millisecond))

	id, err := m.Create(CreateRequest{Command: "cat", StartupCommand: "hello-injection"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	collectOutput(t, m, id, "hello-injection", 3*time.Second)
}

// TestStartupCommandSkippedWhenKilledFirst kills the session before the
// settle delay elapses and verifies the injection is dropped silently.
func TestStartupCommandSkippedWhenKilledFirst(t *testing.T) {
	m := newTestManager(t, WithStartupDelay(200*time.Millisecond))

	id, err := m.Create(CreateRequest{Command: "cat", StartupCommand: "too-late"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := m.Kill(id); err != nil {
		t.Fatalf("Kill: %v", err)
	}

	deadline := time.After(600 * time.Millisecond)
	for {
		select {
		case ev := <-m.Events():
			if ev.Type == EventOutput && strings.Contains(ev.Data, "too-late") {
				t.Fatal("startup command was injected after kill")
			}
		case <-deadline:
			return
		}
	}
}

func TestCreateRejectsMalformedCommand(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Create(CreateRequest{Command: "'unterminated"})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Create with malformed command = %v, want ErrInvalidArgument", err)
	}
}

// TestConcurrentCreateUniqueIDs fires 100 concurrent creates and checks
// for 100 unique ids with no lost registration.
func TestConcurrentCreateUniqueIDs(t *testing.T) {
	m := newTestManager(t)

	const n = 100
	var wg sync.WaitGroup
	var mu sync.Mutex
	ids := make(map[string]struct{}, n)
	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := m.Create(CreateRequest{Command: "sleep 30"})
			if err != nil {
				errs <- err
				return
			}
			mu.Lock()
			ids[id] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("Create: %v", err)
	}
	if len(ids) != n {
		t.Errorf("unique ids = %d, want %d", len(ids), n)
	}
	if listed := len(m.List()); listed != n {
		t.Errorf("List len = %d, want %d", listed, n)
	}
}
