// Package log provides debug logging for gitmon. Messages are buffered
// in memory until a log file is configured, then flushed and appended
// to the file; without a file they are eventually discarded.
package log

import (
	"log"
	"os"
	"sync"
)

// sink is the io.Writer behind the standard logger. It holds messages
// in a buffer until SetFile decides where they go.
type sink struct {
	mu      sync.Mutex
	file    *os.File
	pending []byte
	discard bool
}

var (
	out    = &sink{}
	logger = log.New(out, "", log.LstdFlags|log.Lmicroseconds)
)

func (s *sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.discard {
		return len(p), nil
	}
	if s.file != nil {
		n, err := s.file.Write(p)
		_ = s.file.Sync()
		return n, err
	}
	// No destination yet; keep a copy, the caller may reuse p.
	s.pending = append(s.pending, p...)
	return len(p), nil
}

// SetFile directs debug output to path, creating the file if needed and
// flushing anything buffered so far. An empty path discards buffered
// and future messages.
func SetFile(path string) error {
	out.mu.Lock()
	defer out.mu.Unlock()

	if out.file != nil {
		_ = out.file.Close()
		out.file = nil
	}
	if path == "" {
		out.discard = true
		out.pending = nil
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) //nolint:gosec
	if err != nil {
		out.discard = true
		out.pending = nil
		return err
	}
	out.file = f
	out.discard = false
	if len(out.pending) > 0 {
		_, _ = f.Write(out.pending)
		_ = f.Sync()
		out.pending = nil
	}
	return nil
}

// Printf writes a formatted debug message.
func Printf(format string, args ...any) {
	logger.Printf(format, args...)
}

// Close closes the debug log file if one is open.
func Close() error {
	out.mu.Lock()
	defer out.mu.Unlock()

	if out.file == nil {
		return nil
	}
	err := out.file.Close()
	out.file = nil
	return err
}
