// services/console/internal/linereader/linereader.go
package linereader

import (
	"context"
	"io"
	"time"

	"anglectl-go/x/timex"
)

// Source is the byte stream the reader drains. uartx UARTs satisfy it
// on device; Wrap adapts any io.Reader for host builds.
type Source interface {
	Readable() <-chan struct{}
	RecvSomeContext(ctx context.Context, p []byte) (int, error)
}

type Cfg struct {
	MaxLine   int           // clamp 16..256
	IdleFlush time.Duration // 0 disables; clamp ..2s
}

type Worker struct {
	outQ chan string
}

func New(outBuf int) *Worker {
	if outBuf <= 0 {
		outBuf = 16
	}
	return &Worker{outQ: make(chan string, outBuf)}
}

func (w *Worker) Lines() <-chan string { return w.outQ }

// Start runs a bounded reader goroutine that accumulates bytes into
// lines, ignoring CR and splitting on LF. Returns a cancel func.
func (w *Worker) Start(ctx context.Context, src Source, cfg Cfg) func() {
	max := cfg.MaxLine
	if max < 16 {
		max = 16
	}
	if max > 256 {
		max = 256
	}
	idle := cfg.IdleFlush
	if idle < 0 {
		idle = 0
	}
	if idle > 2*time.Second {
		idle = 2 * time.Second
	}
	cctx, cancel := context.WithCancel(ctx)

	go func() {
		buf := make([]byte, 64)
		var line []byte

		timer := time.NewTimer(time.Hour)
		if !timer.Stop() {
			timex.DrainTimer(timer)
		}

		flush := func() {
			if len(line) == 0 {
				return
			}
			s := string(line)
			line = line[:0]
			select {
			case w.outQ <- s:
			default:
				// drop if consumer is slow
			}
		}

		for {
			if len(line) > 0 && idle > 0 {
				timex.ResetTimer(timer, idle)
			} else {
				timex.ResetTimer(timer, time.Hour)
			}
			select {
			case <-cctx.Done():
				return
			case <-src.Readable():
				rctx, rcancel := context.WithTimeout(cctx, 250*time.Millisecond)
				n, _ := src.RecvSomeContext(rctx, buf)
				rcancel()
				if n <= 0 {
					continue
				}
				for i := 0; i < n; i++ {
					switch b := buf[i]; b {
					case '\n':
						flush()
					case '\r':
						// ignore
					default:
						if len(line) < max {
							line = append(line, b)
						}
					}
				}
			case <-timer.C:
				flush()
			}
		}
	}()

	return cancel
}

// -----------------------------------------------------------------------------
// io.Reader adaptor (host builds)
// -----------------------------------------------------------------------------

// readerSource pumps an io.Reader into a small channel so it can offer
// the Readable/RecvSomeContext shape without blocking the worker.
type readerSource struct {
	chunks   chan []byte
	readable chan struct{}
	pending  []byte
}

// Wrap adapts r into a Source. The pump goroutine exits when r returns
// an error (EOF included).
func Wrap(r io.Reader) Source {
	s := &readerSource{
		chunks:   make(chan []byte, 8),
		readable: make(chan struct{}, 1),
	}
	go func() {
		buf := make([]byte, 64)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				s.chunks <- append([]byte(nil), buf[:n]...)
				select {
				case s.readable <- struct{}{}:
				default:
				}
			}
			if err != nil {
				close(s.chunks)
				return
			}
		}
	}()
	return s
}

func (s *readerSource) Readable() <-chan struct{} { return s.readable }

func (s *readerSource) RecvSomeContext(ctx context.Context, p []byte) (int, error) {
	if len(s.pending) == 0 {
		select {
		case c, ok := <-s.chunks:
			if !ok {
				return 0, io.EOF
			}
			s.pending = c
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	if len(s.pending) > 0 {
		select {
		case s.readable <- struct{}{}:
		default:
		}
	}
	return n, nil
}
