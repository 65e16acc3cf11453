// Package runner executes an external command in one of three modes:
// fire-and-forget, line streaming and byte streaming. Each call spawns
// exactly one process with its own pipes; nothing is shared between calls.
package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/alessio/shellescape"
	"github.com/google/uuid"
)

// Mode names the execution mode of an invocation.
type Mode string

const (
	ModeRun    Mode = "run"
	ModeLines  Mode = "lines"
	ModeOutput Mode = "output"
	ModeInput  Mode = "input"
)

// Invocation describes one finished (or echoed) command.
type Invocation struct {
	ID        uuid.UUID
	Args      []string
	Mode      Mode
	DryRun    bool
	StartedAt time.Time
	Duration  time.Duration
	ExitCode  int
	Err       error
}

// Recorder receives every invocation once its outcome is known.
type Recorder interface {
	Record(ctx context.Context, inv Invocation) error
}

type multiRecorder []Recorder

// MultiRecorder reports every invocation to each non-nil recorder in order.
// All recorders run even when one fails.
func MultiRecorder(recs ...Recorder) Recorder {
	var m multiRecorder
	for _, rec := range recs {
		if rec != nil {
			m = append(m, rec)
		}
	}
	return m
}

func (m multiRecorder) Record(ctx context.Context, inv Invocation) error {
	var errs []error
	for _, rec := range m {
		if err := rec.Record(ctx, inv); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Runner struct {
	bin      string
	logger   *slog.Logger
	recorder Recorder
	dryRun   io.Writer
}

type Option func(*Runner)

// WithRecorder reports invocations to rec.
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithDryRun writes the quoted command line of Run, Output and Input calls
// to w instead of executing them. Lines still executes; it serves queries
// and reports.
func WithDryRun(w io.Writer) Option {
	return func(r *Runner) { r.dryRun = w }
}

func New(bin string, logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{
		bin:    bin,
		logger: logger.With("component", "runner"),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Bin returns the executable the runner spawns.
func (r *Runner) Bin() string { return r.bin }

// DryRun reports whether mutating modes only echo.
func (r *Runner) DryRun() bool { return r.dryRun != nil }

func (r *Runner) quote(args []string) string {
	return shellescape.QuoteCommand(append([]string{r.bin}, args...))
}

func (r *Runner) invocation(args []string, mode Mode) Invocation {
	return Invocation{
		ID:        uuid.New(),
		Args:      slices.Clone(args),
		Mode:      mode,
		StartedAt: time.Now(),
	}
}

func (r *Runner) record(ctx context.Context, inv Invocation) {
	if r.recorder == nil {
		return
	}
	if err := r.recorder.Record(context.WithoutCancel(ctx), inv); err != nil {
		r.logger.Warn("failed to record invocation", "id", inv.ID, "error", err)
	}
}

func (r *Runner) echo(ctx context.Context, args []string, mode Mode) error {
	inv := r.invocation(args, mode)
	inv.DryRun = true
	_, err := fmt.Fprintln(r.dryRun, r.quote(args))
	inv.Err = err
	r.record(ctx, inv)
	return err
}

// Run executes args and waits for the process. Both pipes are drained; a
// non-zero exit yields an *ExternalCommandError carrying every stderr line.
func (r *Runner) Run(ctx context.Context, args []string) error {
	if r.dryRun != nil {
		return r.echo(ctx, args, ModeRun)
	}
	p, err := r.start(ctx, args, ModeRun)
	if err != nil {
		return err
	}
	return p.wait()
}

// Lines executes args and yields every non-empty stdout line, trimmed. The
// sequence ends after the process exited; a non-zero exit is yielded as the
// final error. Stopping early drains the remaining output and reaps the
// process. Every range over the sequence spawns a new process.
func (r *Runner) Lines(ctx context.Context, args []string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		p, err := r.start(ctx, args, ModeLines)
		if err != nil {
			yield("", err)
			return
		}

		sc := bufio.NewScanner(p.stdout)
		sc.Buffer(make([]byte, 0, 4096), maxLineSize)
		stopped := false
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			if !yield(line, nil) {
				stopped = true
				break
			}
		}
		scanErr := sc.Err()
		if stopped || scanErr != nil {
			_, _ = io.Copy(io.Discard, p.stdout)
		}

		err = p.wait()
		if stopped {
			return
		}
		if err == nil && scanErr != nil {
			err = fmt.Errorf("failed to read output: %w", scanErr)
		}
		if err != nil {
			yield("", err)
		}
	}
}
