package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRecorder struct {
	mu   sync.Mutex
	invs []Invocation
}

func (m *memRecorder) Record(_ context.Context, inv Invocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invs = append(m.invs, inv)
	return nil
}

func (m *memRecorder) all() []Invocation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Invocation(nil), m.invs...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// sh runs scripts through /bin/sh -c so no executable has to be written.
func sh(opts ...Option) *Runner {
	return New("/bin/sh", testLogger(), opts...)
}

func script(s string, args ...string) []string {
	return append([]string{"-c", s, "sh"}, args...)
}

func TestRunSuccess(t *testing.T) {
	rec := &memRecorder{}
	r := sh(WithRecorder(rec))

	require.NoError(t, r.Run(context.Background(), script("echo ignored; echo warning >&2")))

	invs := rec.all()
	require.Len(t, invs, 1)
	assert.Equal(t, ModeRun, invs[0].Mode)
	assert.Equal(t, 0, invs[0].ExitCode)
	assert.NoError(t, invs[0].Err)
	assert.NotEqual(t, [16]byte{}, [16]byte(invs[0].ID))
}

func TestRunFailureAggregatesStderr(t *testing.T) {
	rec := &memRecorder{}
	r := sh(WithRecorder(rec))

	err := r.Run(context.Background(), script("echo 'cannot open tank/x' >&2; echo >&2; echo '  dataset does not exist' >&2; exit 1"))

	var cerr *ExternalCommandError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 1, cerr.ExitCode)
	assert.Equal(t, []string{"Cannot open tank/x", "Dataset does not exist"}, cerr.Lines)
	assert.Equal(t, "Cannot open tank/x\nDataset does not exist", err.Error())

	invs := rec.all()
	require.Len(t, invs, 1)
	assert.Equal(t, 1, invs[0].ExitCode)
	assert.Error(t, invs[0].Err)
}

func TestRunTrailingErrorAtExit(t *testing.T) {
	err := sh().Run(context.Background(), script("printf 'late message' >&2; exit 2"))
	var cerr *ExternalCommandError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 2, cerr.ExitCode)
	assert.Equal(t, "Late message", err.Error())
}

func TestRunWithoutStderr(t *testing.T) {
	err := sh().Run(context.Background(), script("exit 4"))
	var cerr *ExternalCommandError
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, err.Error(), "exited with status 4")
}

func TestRunMissingBinary(t *testing.T) {
	rec := &memRecorder{}
	r := New(filepath.Join(t.TempDir(), "missing"), testLogger(), WithRecorder(rec))
	err := r.Run(context.Background(), []string{"list"})
	require.Error(t, err)
	var cerr *ExternalCommandError
	assert.False(t, errors.As(err, &cerr))
	require.Len(t, rec.all(), 1)
	assert.Equal(t, -1, rec.all()[0].ExitCode)
}

func TestRunContextCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := sh().Run(ctx, script("exec sleep 10"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestDryRun(t *testing.T) {
	var out bytes.Buffer
	rec := &memRecorder{}
	r := sh(WithDryRun(&out), WithRecorder(rec))
	assert.True(t, r.DryRun())

	require.NoError(t, r.Run(context.Background(), script("exit 1")))
	assert.Equal(t, "/bin/sh -c 'exit 1' sh\n", out.String())

	src, err := r.Output(context.Background(), []string{"send", "tank@a"})
	require.NoError(t, err)
	b, err := io.ReadAll(src)
	require.NoError(t, err)
	assert.Empty(t, b)
	require.NoError(t, src.Close())

	sink, err := r.Input(context.Background(), []string{"receive", "tank/b"})
	require.NoError(t, err)
	_, err = sink.Write([]byte("data"))
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	invs := rec.all()
	require.Len(t, invs, 3)
	for _, inv := range invs {
		assert.True(t, inv.DryRun)
	}
}

func drain(t *testing.T, r *Runner, args []string) ([]string, error) {
	t.Helper()
	var lines []string
	for line, err := range r.Lines(context.Background(), args) {
		if err != nil {
			return lines, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func TestLines(t *testing.T) {
	lines, err := drain(t, sh(), script(`printf 'a\tb\n\n   \n  c  \nlast'`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a\tb", "c", "last"}, lines)
}

func TestLinesFailureAfterOutput(t *testing.T) {
	lines, err := drain(t, sh(), script("echo first; echo 'permission denied' >&2; exit 1"))
	assert.Equal(t, []string{"first"}, lines)
	var cerr *ExternalCommandError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "Permission denied", err.Error())
}

func TestLinesStopEarly(t *testing.T) {
	rec := &memRecorder{}
	r := sh(WithRecorder(rec))

	var got []string
	for line, err := range r.Lines(context.Background(), script("i=0; while [ $i -lt 5000 ]; do echo line$i; i=$((i+1)); done")) {
		require.NoError(t, err)
		got = append(got, line)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"line0", "line1"}, got)

	invs := rec.all()
	require.Len(t, invs, 1)
	assert.Equal(t, 0, invs[0].ExitCode)
	assert.Equal(t, ModeLines, invs[0].Mode)
}

func TestLinesIgnoresDryRun(t *testing.T) {
	var out bytes.Buffer
	lines, err := drain(t, sh(WithDryRun(&out)), script("echo listed"))
	require.NoError(t, err)
	assert.Equal(t, []string{"listed"}, lines)
	assert.Empty(t, out.String())
}

func TestOutput(t *testing.T) {
	src, err := sh().Output(context.Background(), script("printf 'stream-'; sleep 0.1; printf 'bytes'"))
	require.NoError(t, err)
	b, err := io.ReadAll(src)
	require.NoError(t, err)
	assert.Equal(t, "stream-bytes", string(b))
	assert.NoError(t, src.Close())
}

func TestOutputEmpty(t *testing.T) {
	src, err := sh().Output(context.Background(), script("echo 'nothing to send' >&2; exit 0"))
	require.NoError(t, err)
	require.NotNil(t, src)
	b, err := io.ReadAll(src)
	require.NoError(t, err)
	assert.Empty(t, b)
	assert.NoError(t, src.Close())
}

func TestOutputFailsBeforeData(t *testing.T) {
	src, err := sh().Output(context.Background(), script("echo 'snapshot does not exist' >&2; exit 1"))
	assert.Nil(t, src)
	var cerr *ExternalCommandError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "Snapshot does not exist", err.Error())
}

func TestOutputFailsAfterData(t *testing.T) {
	src, err := sh().Output(context.Background(), script("printf partial; echo 'i/o error' >&2; exit 3"))
	require.NoError(t, err)

	b, err := io.ReadAll(src)
	assert.Equal(t, "partial", string(b))
	var cerr *ExternalCommandError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 3, cerr.ExitCode)
	assert.Equal(t, "I/o error", err.Error())

	// Close reports the same verdict
	assert.ErrorAs(t, src.Close(), &cerr)
}

func TestOutputCloseEarly(t *testing.T) {
	src, err := sh().Output(context.Background(), script("while :; do echo data; done"))
	require.NoError(t, err)
	buf := make([]byte, 4)
	_, err = io.ReadFull(src, buf)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- src.Close() }()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("close did not reap the producer")
	}
}

func TestInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "received")
	sink, err := sh().Input(context.Background(), script(`cat > "$1"`, path))
	require.NoError(t, err)

	_, err = io.Copy(sink, strings.NewReader("payload"))
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(b))
}

func TestInputFailure(t *testing.T) {
	sink, err := sh().Input(context.Background(), script("cat >/dev/null; echo 'invalid stream' >&2; exit 1"))
	require.NoError(t, err)
	_, err = sink.Write([]byte("garbage"))
	require.NoError(t, err)

	err = sink.Close()
	var cerr *ExternalCommandError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "Invalid stream", err.Error())
}

func TestInputConsumerExitsEarly(t *testing.T) {
	sink, err := sh().Input(context.Background(), script("echo 'cannot receive' >&2; exit 1"))
	require.NoError(t, err)

	chunk := bytes.Repeat([]byte("x"), 64<<10)
	var werr error
	for range 64 {
		if _, werr = sink.Write(chunk); werr != nil {
			break
		}
	}
	var cerr *ExternalCommandError
	require.ErrorAs(t, werr, &cerr)
	assert.Equal(t, "Cannot receive", werr.Error())
	assert.ErrorAs(t, sink.Close(), &cerr)
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Éclair", capitalize("éclair"))
	assert.Equal(t, "1 thing", capitalize("1 thing"))
}

type failingRecorder struct{}

func (failingRecorder) Record(context.Context, Invocation) error { return errors.New("journal closed") }

func TestMultiRecorder(t *testing.T) {
	a, b := &memRecorder{}, &memRecorder{}
	rec := MultiRecorder(a, nil, failingRecorder{}, b)

	err := rec.Record(context.Background(), Invocation{Args: []string{"list"}})
	assert.EqualError(t, err, "journal closed")
	require.Len(t, a.all(), 1)
	require.Len(t, b.all(), 1)
	assert.Equal(t, []string{"list"}, b.all()[0].Args)

	require.NoError(t, sh(WithRecorder(MultiRecorder(a))).Run(context.Background(), script("exit 0")))
	assert.Len(t, a.all(), 2)
}
