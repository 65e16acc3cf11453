package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const maxLineSize = 1 << 20

// collector reads stderr until EOF so the child never blocks on it.
type collector struct {
	lines []string
	done  chan struct{}
}

func collectLines(r io.Reader) *collector {
	c := &collector{done: make(chan struct{})}
	go func() {
		defer close(c.done)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 4096), maxLineSize)
		for sc.Scan() {
			if line := strings.TrimSpace(sc.Text()); line != "" {
				c.lines = append(c.lines, capitalize(line))
			}
		}
		if sc.Err() != nil {
			_, _ = io.Copy(io.Discard, r)
		}
	}()
	return c
}

func (c *collector) wait() []string {
	<-c.done
	return c.lines
}

func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[n:]
}

type process struct {
	runner *Runner
	ctx    context.Context
	cmd    *exec.Cmd
	inv    Invocation
	stdout io.ReadCloser
	stdin  io.WriteCloser
	stderr *collector
}

func (r *Runner) start(ctx context.Context, args []string, mode Mode) (*process, error) {
	cmd := exec.CommandContext(ctx, r.bin, args...)
	p := &process{
		runner: r,
		ctx:    ctx,
		cmd:    cmd,
		inv:    r.invocation(args, mode),
	}

	var err error
	switch mode {
	case ModeLines, ModeOutput:
		p.stdout, err = cmd.StdoutPipe()
	case ModeInput:
		cmd.Stdout = io.Discard
		p.stdin, err = cmd.StdinPipe()
	default:
		cmd.Stdout = io.Discard
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create pipe: %w", err)
	}

	r.logger.Debug("starting command", "id", p.inv.ID, "mode", mode, "cmd", r.quote(args))
	if err := cmd.Start(); err != nil {
		err = fmt.Errorf("failed to start %s: %w", r.bin, err)
		p.inv.ExitCode = -1
		p.inv.Err = err
		r.record(ctx, p.inv)
		return nil, err
	}
	p.stderr = collectLines(stderr)
	return p, nil
}

// wait must only be called once stdout has been read to EOF or closed.
func (p *process) wait() error {
	lines := p.stderr.wait()
	err := p.cmd.Wait()
	p.inv.Duration = time.Since(p.inv.StartedAt)

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		p.inv.ExitCode = exitErr.ExitCode()
		err = &ExternalCommandError{Args: p.inv.Args, ExitCode: exitErr.ExitCode(), Lines: lines}
	default:
		p.inv.ExitCode = -1
		err = fmt.Errorf("failed to wait for %s: %w", p.runner.bin, err)
	}
	if ctxErr := p.ctx.Err(); ctxErr != nil && err != nil {
		err = fmt.Errorf("%w: %w", ctxErr, err)
	}
	p.inv.Err = err

	logger := p.runner.logger.With("id", p.inv.ID, "exit_code", p.inv.ExitCode, "duration", p.inv.Duration)
	if err != nil {
		logger.Debug("command failed", "error", err)
	} else {
		logger.Debug("command finished")
	}
	p.runner.record(p.ctx, p.inv)
	return err
}
