package runner

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"syscall"
)

const streamBufferSize = 64 << 10

// Source is the live stdout of a producing command such as zfs send. Read it
// to EOF and Close it; both report the command's failure in place of io.EOF.
// A Source is not safe for concurrent use.
type Source struct {
	p  *process
	r  io.Reader
	rc io.Closer

	once sync.Once
	err  error
}

func (s *Source) finish() error {
	s.once.Do(func() {
		if s.p != nil {
			s.err = s.p.wait()
		}
	})
	return s.err
}

func (s *Source) Read(b []byte) (int, error) {
	n, err := s.r.Read(b)
	if errors.Is(err, io.EOF) {
		if werr := s.finish(); werr != nil {
			return n, werr
		}
	}
	return n, err
}

// Close releases the pipe and reaps the process. Closing before EOF makes
// the producer fail with a broken pipe.
func (s *Source) Close() error {
	if s.rc != nil {
		_ = s.rc.Close()
	}
	return s.finish()
}

// Output starts args and returns as soon as the first byte of output is
// available. If the command exits before writing anything, a non-zero exit
// is returned as an error and a zero exit as an empty Source.
func (r *Runner) Output(ctx context.Context, args []string) (*Source, error) {
	if r.dryRun != nil {
		if err := r.echo(ctx, args, ModeOutput); err != nil {
			return nil, err
		}
		return &Source{r: eofReader{}}, nil
	}

	p, err := r.start(ctx, args, ModeOutput)
	if err != nil {
		return nil, err
	}
	br := bufio.NewReaderSize(p.stdout, streamBufferSize)
	if _, peekErr := br.Peek(1); peekErr != nil {
		_, _ = io.Copy(io.Discard, br)
		if err := p.wait(); err != nil {
			return nil, err
		}
		if !errors.Is(peekErr, io.EOF) {
			return nil, peekErr
		}
		return &Source{r: eofReader{}}, nil
	}
	return &Source{p: p, r: br, rc: p.stdout}, nil
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }

// Sink is the live stdin of a consuming command such as zfs receive. Close
// it to signal the end of the stream; Close returns the command's verdict.
// A Sink is not safe for concurrent use.
type Sink struct {
	p *process
	w io.WriteCloser

	once sync.Once
	err  error
}

func (s *Sink) finish() error {
	s.once.Do(func() {
		if s.p != nil {
			s.err = s.p.wait()
		}
	})
	return s.err
}

// Write forwards b to the command. When the command has already exited the
// write fails with its verdict rather than a bare broken pipe.
func (s *Sink) Write(b []byte) (int, error) {
	n, err := s.w.Write(b)
	if err != nil && (errors.Is(err, syscall.EPIPE) || errors.Is(err, os.ErrClosed)) {
		_ = s.w.Close()
		if werr := s.finish(); werr != nil {
			return n, werr
		}
	}
	return n, err
}

func (s *Sink) Close() error {
	_ = s.w.Close()
	return s.finish()
}

// Input starts args and returns its stdin immediately.
func (r *Runner) Input(ctx context.Context, args []string) (*Sink, error) {
	if r.dryRun != nil {
		if err := r.echo(ctx, args, ModeInput); err != nil {
			return nil, err
		}
		return &Sink{w: nopWriteCloser{io.Discard}}, nil
	}

	p, err := r.start(ctx, args, ModeInput)
	if err != nil {
		return nil, err
	}
	return &Sink{p: p, w: p.stdin}, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
