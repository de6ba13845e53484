package term

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	creackpty "github.com/creack/pty"
)

// session owns one shell process and its PTY master. The manager is the
// only code that creates or looks up sessions; everything here assumes
// the registry already handed out the pointer.
type session struct {
	id   string
	cmd  *exec.Cmd
	ptmx *os.File

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
}

// readLoop drains the PTY master in fixed-size chunks and publishes each
// non-empty chunk as an output event. It stops on the first read error,
// which is also how kill cancels it: closing the master fd unblocks the
// blocked read. The registry entry is left alone.
func (s *session) readLoop(events chan<- Event) {
	buf := make([]byte, readChunkSize)
	for {
		n, err := s.ptmx.Read(buf)
		if n > 0 {
			events <- Event{Type: EventOutput, ID: s.id, Data: decodeChunk(buf[:n])}
		}
		if err != nil {
			events <- Event{Type: EventClosed, ID: s.id, Reason: closeReason(err)}
			return
		}
	}
}

// waitExit reaps the shell process and publishes the session's single
// exit event. It does not remove the session from the registry; an
// exited session stays listed until an explicit kill.
func (s *session) waitExit(events chan<- Event) {
	reason := "exited"
	if err := s.cmd.Wait(); err != nil {
		reason = err.Error()
	}
	events <- Event{Type: EventExit, ID: s.id, Reason: reason}
}

func (s *session) write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("term: session %q is closed", s.id)
	}
	if _, err := s.ptmx.Write(data); err != nil {
		return fmt.Errorf("term: write to session %q: %w", s.id, err)
	}
	return nil
}

func (s *session) resize(rows, cols uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("term: session %q is closed", s.id)
	}
	if err := creackpty.Setsize(s.ptmx, &creackpty.Winsize{Rows: rows, Cols: cols}); err != nil {
		return fmt.Errorf("term: resize session %q: %w", s.id, err)
	}
	return nil
}

// close releases the PTY master. Closing the master side delivers hangup
// to the shell; the process's actual exit is observed by waitExit, not
// awaited here. Safe to call more than once.
func (s *session) close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		err = s.ptmx.Close()
	})
	return err
}

// decodeChunk converts raw PTY bytes to text, replacing malformed UTF-8
// sequences instead of failing. A read boundary can split a rune; those
// bytes decode to the replacement character.
func decodeChunk(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}

func closeReason(err error) string {
	if errors.Is(err, io.EOF) {
		return "eof"
	}
	return err.Error()
}
