// Package imputelog writes the append-only record of cells the estimator
// could not fill. Entries arrive concurrently from imputation workers and are
// serialized through a single writer goroutine so lines never interleave.
package imputelog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/station-data-impute/internal/domain"
)

// Sink accepts log entries from any goroutine and appends them to a file in
// arrival order. Close must be called exactly once after all writers finish.
type Sink struct {
	entries chan domain.LogEntry
	done    chan struct{}

	mu  sync.Mutex
	err error

	f *os.File
	w *bufio.Writer
}

// Open truncates the log file, writes a run header, and starts the writer
// goroutine. The run ID ties log lines to a specific pipeline invocation.
func Open(path string) (*Sink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open impute log: %w", err)
	}

	s := &Sink{
		entries: make(chan domain.LogEntry, 256),
		done:    make(chan struct{}),
		f:       f,
		w:       bufio.NewWriter(f),
	}

	header := fmt.Sprintf("# run %s started %s\n",
		uuid.NewString(),
		domain.Clock().Now().UTC().Format(time.RFC3339))
	if _, err := s.w.WriteString(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write log header: %w", err)
	}

	go s.drain()
	return s, nil
}

// Record queues one unfilled-cell entry. Safe for concurrent use.
func (s *Sink) Record(e domain.LogEntry) {
	s.entries <- e
}

// Close stops accepting entries, flushes everything queued so far, and
// returns the first write error encountered, if any.
func (s *Sink) Close() error {
	close(s.entries)
	<-s.done

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.w.Flush(); err != nil && s.err == nil {
		s.err = err
	}
	if err := s.f.Close(); err != nil && s.err == nil {
		s.err = err
	}
	return s.err
}

// drain consumes entries until the channel closes. After a write error the
// loop keeps receiving and discards entries, so Record never blocks on a full
// buffer; the error surfaces from Close.
func (s *Sink) drain() {
	defer close(s.done)
	for e := range s.entries {
		s.mu.Lock()
		failed := s.err != nil
		s.mu.Unlock()
		if failed {
			continue
		}

		line := fmt.Sprintf("[%s][%s] %s/%s %s\n",
			e.DataTime, e.Worker, e.StationID, e.Feature, e.Reason)
		if _, err := s.w.WriteString(line); err != nil {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
		}
	}
}
