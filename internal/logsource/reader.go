package logsource

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/tinytelemetry/rsvexclude/internal/model"
)

const (
	// DefaultBuffer is the default channel buffer size. A small buffer keeps
	// the reader at most this many lines ahead of the reducer.
	DefaultBuffer = 256

	// DefaultMaxLineSize is the default maximum size (in bytes) of a single line.
	DefaultMaxLineSize = 1024 * 1024 // 1MB

	readBufferSize = 64 * 1024
)

var (
	// ErrFileNotFound is returned by OpenFile when the profile log does not exist.
	ErrFileNotFound = errors.New("logsource: file not found")
	// ErrStopped is reported by a source that was stopped before it reached EOF.
	ErrStopped = errors.New("logsource: stopped")
)

// Config holds tunable parameters for a reader source.
type Config struct {
	BufferSize  int
	MaxLineSize int
}

func (c Config) withDefaults() Config {
	if c.BufferSize <= 0 {
		c.BufferSize = DefaultBuffer
	}
	if c.MaxLineSize <= 0 {
		c.MaxLineSize = DefaultMaxLineSize
	}
	return c
}

// ReaderSource delivers newline-delimited lines from an io.Reader in order.
// Lines longer than MaxLineSize are not fatal: their content is discarded and
// they are delivered with Oversized set.
type ReaderSource struct {
	name string
	r    io.Reader
	conf Config
	ch   chan model.IngestLine

	stop     chan struct{}
	stopOnce sync.Once

	mu  sync.Mutex
	err error
}

// NewReaderSource wraps r. Nothing is read until Run is called. When r is an
// io.Closer it is closed once reading ends or the run is cancelled.
func NewReaderSource(name string, r io.Reader, conf ...Config) *ReaderSource {
	var c Config
	if len(conf) > 0 {
		c = conf[0]
	}
	c = c.withDefaults()

	return &ReaderSource{
		name: name,
		r:    r,
		conf: c,
		ch:   make(chan model.IngestLine, c.BufferSize),
		stop: make(chan struct{}),
	}
}

// OpenFile opens path and returns a source over its lines.
func OpenFile(path string, conf ...Config) (*ReaderSource, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("logsource: open %s: %w", path, err)
	}
	return NewReaderSource("file", f, conf...), nil
}

// NewStdinSource reads profile lines piped on stdin. Stdin is closed when the
// run ends so a cancelled read does not block.
func NewStdinSource(conf ...Config) *ReaderSource {
	return NewReaderSource("stdin", os.Stdin, conf...)
}

// Run reads until EOF, a read error, Stop, or ctx cancellation, and closes
// Lines on return. Any non-nil result is also reported by Err.
func (s *ReaderSource) Run(ctx context.Context) error {
	defer close(s.ch)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	if c, ok := s.r.(io.Closer); ok {
		// Closing unblocks a Read stuck on a pipe or terminal.
		unwatch := context.AfterFunc(ctx, func() { _ = c.Close() })
		defer func() {
			unwatch()
			_ = c.Close()
		}()
	}

	err := s.read(ctx)
	if err != nil {
		s.setErr(err)
	}
	return err
}

func (s *ReaderSource) read(ctx context.Context) error {
	br := bufio.NewReaderSize(s.r, readBufferSize)
	maxLineSize := s.conf.MaxLineSize

	var (
		buf       []byte
		oversized bool
		n         int
	)
	emit := func() error {
		n++
		l := model.IngestLine{Source: s.name, Number: n, Oversized: oversized}
		if oversized {
			log.Printf("logsource: %s line %d exceeded max size (%d bytes), skipped", s.name, n, maxLineSize)
		} else {
			l.Line = string(trimEOL(buf))
		}
		buf = buf[:0]
		oversized = false

		if ctx.Err() != nil {
			return s.interrupted(ctx)
		}
		select {
		case s.ch <- l:
			return nil
		case <-ctx.Done():
			return s.interrupted(ctx)
		}
	}

	for {
		chunk, err := br.ReadSlice('\n')
		if len(chunk) > 0 && !oversized {
			buf = append(buf, chunk...)
			if len(trimEOL(buf)) > maxLineSize {
				oversized = true
				buf = buf[:0]
			}
		}

		switch {
		case err == nil:
			if err := emit(); err != nil {
				return err
			}
		case errors.Is(err, bufio.ErrBufferFull):
			// Line continues past the read buffer.
		case errors.Is(err, io.EOF):
			if len(buf) > 0 || oversized {
				return emit()
			}
			return nil
		default:
			if ctx.Err() != nil {
				return s.interrupted(ctx)
			}
			return fmt.Errorf("logsource: reading %s: %w", s.name, err)
		}
	}
}

// interrupted reports why ctx ended: an explicit Stop or the caller's cancellation.
func (s *ReaderSource) interrupted(ctx context.Context) error {
	select {
	case <-s.stop:
		return ErrStopped
	default:
	}
	return fmt.Errorf("logsource: reading %s: %w", s.name, ctx.Err())
}

func trimEOL(b []byte) []byte {
	if n := len(b); n > 0 && b[n-1] == '\n' {
		b = b[:n-1]
	}
	if n := len(b); n > 0 && b[n-1] == '\r' {
		b = b[:n-1]
	}
	return b
}

func (s *ReaderSource) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Err returns the read error, if any. It is only meaningful after Lines is closed.
func (s *ReaderSource) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *ReaderSource) Lines() <-chan model.IngestLine { return s.ch }
func (s *ReaderSource) Stop()                          { s.stopOnce.Do(func() { close(s.stop) }) }
func (s *ReaderSource) Name() string                   { return s.name }
