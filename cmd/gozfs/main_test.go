package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	"github.com/elee1766/gozfs/pkg/zfs"
)

type fake struct {
	dir string
	log string
}

// newFake points the environment at a temporary config, data directory and
// a shell script standing in for zfs.
func newFake(t *testing.T, body string, journal bool) *fake {
	t.Helper()
	dir := t.TempDir()
	f := &fake{dir: dir, log: filepath.Join(dir, "invocations")}
	bin := filepath.Join(dir, "zfs")
	script := fmt.Sprintf("#!/bin/sh\nprintf '%%s\\n' \"$*\" >> '%s'\n%s\n", f.log, body)
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))

	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("GOZFS_ZFS_BIN", bin)
	t.Setenv("GOZFS_DB_PATH", filepath.Join(dir, "data", "gozfs.db"))
	t.Setenv("GOZFS_API_ADDRESS", "127.0.0.1:8148")
	t.Setenv("GOZFS_LOG_LEVEL", "error")
	t.Setenv("GOZFS_LOG_FORMAT", "text")
	if journal {
		t.Setenv("GOZFS_JOURNAL", "on")
	} else {
		t.Setenv("GOZFS_JOURNAL", "off")
	}
	return f
}

func (f *fake) calls(t *testing.T) []string {
	t.Helper()
	b, err := os.ReadFile(f.log)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
}

func runCLI(t *testing.T, stdin string, argv ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := execCLI(t, &CLI{stdout: &out, stdin: strings.NewReader(stdin)}, argv...)
	return out.String(), err
}

func execCLI(t *testing.T, cli *CLI, argv ...string) error {
	t.Helper()
	parser, err := kong.New(cli,
		kong.Name("gozfs"),
		kong.Exit(func(code int) { t.Fatalf("unexpected exit %d", code) }),
		kong.BindTo(context.Background(), (*context.Context)(nil)),
	)
	require.NoError(t, err)
	kctx, err := parser.Parse(argv)
	require.NoError(t, err)
	return kctx.Run(cli)
}

func TestListTable(t *testing.T) {
	f := newFake(t, `printf 'tank/fs\tfilesystem\t1024\n'`, false)

	out, err := runCLI(t, "", "list", "-o", "used", "tank/fs")
	require.NoError(t, err)
	assert.Contains(t, out, "tank/fs")
	assert.Contains(t, out, "1.0 KiB")
	assert.Equal(t, []string{"list -H -p -d 1 -o name,type,used tank/fs"}, f.calls(t))

	out, err = runCLI(t, "", "list", "-p", "-o", "used", "tank/fs")
	require.NoError(t, err)
	assert.Contains(t, out, "1024")
}

func TestListYAML(t *testing.T) {
	newFake(t, `printf 'tank/fs\tfilesystem\t1024\n'`, false)

	out, err := runCLI(t, "", "--output", "yaml", "list", "-o", "used", "tank/fs")
	require.NoError(t, err)
	assert.Contains(t, out, "name: tank/fs")
	assert.Contains(t, out, "type: filesystem")
	assert.Contains(t, out, "used:")
}

func TestDestroyReportsWithoutConfirm(t *testing.T) {
	f := newFake(t, `printf 'destroy\ttank/fs@a\ndestroy\ttank/fs@b\n'`, false)

	out, err := runCLI(t, "", "destroy", "tank/fs@a%b")
	require.NoError(t, err)
	assert.Equal(t, "would destroy tank/fs@a\nwould destroy tank/fs@b\n", out)
	assert.Equal(t, []string{"destroy -v -p -n tank/fs@a%b"}, f.calls(t))
}

func TestDryRunDoesNotSpawn(t *testing.T) {
	f := newFake(t, "exit 1", false)

	out, err := runCLI(t, "", "--dry-run", "snapshot", "-r", "tank/fs@daily")
	require.NoError(t, err)
	assert.Equal(t, "tank/fs@daily\n", out)
	assert.Nil(t, f.calls(t))
}

func TestSetRejectsBadAssignment(t *testing.T) {
	f := newFake(t, "exit 0", false)

	_, err := runCLI(t, "", "set", "tank/fs", "compression")
	var verr *zfs.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Nil(t, f.calls(t))
}

func TestSendAndReceive(t *testing.T) {
	f := newFake(t, `case "$1" in
send) printf 'STREAM' ;;
receive) cat > "$(dirname "$0")/received" ;;
esac`, false)

	out, err := runCLI(t, "", "send", "-i", "@a", "tank/fs@b")
	require.NoError(t, err)
	assert.Equal(t, "STREAM", out)

	_, err = runCLI(t, "STREAM", "receive", "-F", "backup/fs")
	require.NoError(t, err)
	got, err := os.ReadFile(filepath.Join(f.dir, "received"))
	require.NoError(t, err)
	assert.Equal(t, "STREAM", string(got))

	assert.Equal(t, []string{"send -i tank/fs@a tank/fs@b", "receive -F backup/fs"}, f.calls(t))
}

func TestSendNeedsExactlyOneSource(t *testing.T) {
	newFake(t, "exit 0", false)

	_, err := runCLI(t, "", "send")
	assert.Error(t, err)
	_, err = runCLI(t, "", "send", "--resume", "token", "tank/fs@a")
	assert.Error(t, err)
}

func TestHistory(t *testing.T) {
	newFake(t, "exit 0", true)

	_, err := runCLI(t, "", "snapshot", "tank/fs@daily")
	require.NoError(t, err)

	out, err := runCLI(t, "", "-O", "yaml", "history", "list", "snapshot")
	require.NoError(t, err)
	assert.Contains(t, out, "tank/fs@daily")
	assert.Contains(t, out, "mode: run")

	_, err = runCLI(t, "", "history", "reset")
	assert.Error(t, err, "reset needs --yes")

	out, err = runCLI(t, "", "history", "reset", "--yes")
	require.NoError(t, err)
	assert.Equal(t, "journal reset\n", out)

	out, err = runCLI(t, "", "history", "prune", "1h")
	require.NoError(t, err)
	assert.Equal(t, "pruned 0 invocations\n", out)
}

func TestHistoryWithoutJournal(t *testing.T) {
	newFake(t, "exit 0", false)

	_, err := runCLI(t, "", "history", "list")
	assert.ErrorIs(t, err, errNoJournal)
}

func TestServeGraph(t *testing.T) {
	for _, journal := range []bool{true, false} {
		t.Run(fmt.Sprintf("journal=%t", journal), func(t *testing.T) {
			newFake(t, "exit 0", journal)
			cli := &CLI{}
			cfg, err := cli.config()
			require.NoError(t, err)
			assert.NoError(t, fx.ValidateApp(cli.serveOptions(cfg)))
		})
	}
}

func TestLogFlagsAreCaseInsensitive(t *testing.T) {
	newFake(t, "exit 0", false)

	cli := &CLI{LogLevel: "DEBUG", LogFormat: "JSON"}
	cfg, err := cli.config()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)

	cli = &CLI{LogLevel: "loud"}
	_, err = cli.config()
	assert.Error(t, err)
}

func TestDevNullIsNotATerminal(t *testing.T) {
	f, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, isTerminal(f))

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()
	assert.False(t, isTerminal(w))
}

func TestSendToDevNull(t *testing.T) {
	newFake(t, `printf 'STREAM'`, false)

	devnull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	require.NoError(t, err)
	defer devnull.Close()

	require.NoError(t, execCLI(t, &CLI{stdout: devnull}, "send", "tank/fs@a"))
}

func TestParseAssignments(t *testing.T) {
	props, err := parseAssignments([]string{"compression=lz4", "com.example:note=a=b"})
	require.NoError(t, err)
	assert.Equal(t, "lz4", props["compression"].Value)
	assert.Equal(t, "a=b", props["com.example:note"].Value)

	_, err = parseAssignments([]string{"=x"})
	assert.Error(t, err)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "1.0 KiB", formatValue("used", "1024"))
	assert.Equal(t, "none", formatValue("quota", "none"))
	assert.Equal(t, "lz4", formatValue("compression", "lz4"))
}
