package args

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elee1766/gozfs/pkg/zfs"
)

func mustFS(t *testing.T, name string, props zfs.Props) *zfs.Dataset {
	t.Helper()
	ds, err := zfs.NewFilesystem(name, props)
	require.NoError(t, err)
	return ds
}

func mustSnap(t *testing.T, name string) *zfs.Snapshot {
	t.Helper()
	s, err := zfs.ParseSnapshot(name, nil)
	require.NoError(t, err)
	return s
}

func TestArgsString(t *testing.T) {
	a := Args{"set", "org.example:note=hello world", "tank/fs"}
	assert.Equal(t, `set 'org.example:note=hello world' tank/fs`, a.String())
	assert.Equal(t, "set", a.Subcommand())
	assert.Equal(t, "", Args{}.Subcommand())
}

func TestList(t *testing.T) {
	root := mustFS(t, "tank", nil)

	tests := []struct {
		name string
		opts ListOptions
		want Args
	}{
		{
			name: "defaults",
			want: Args{"list", "-H", "-d", "1", "-o", "name,type"},
		},
		{
			name: "recursive with properties",
			opts: ListOptions{Roots: []zfs.Resource{root}, Recursive: true, Properties: []string{"used", "org.example:tag"}},
			want: Args{"list", "-H", "-r", "-o", "name,type,used,org.example:tag", "tank"},
		},
		{
			name: "depth types and sort",
			opts: ListOptions{
				Recursive: true,
				Depth:     2,
				Types:     []string{"Filesystem", "snapshot"},
				Sort:      []SortKey{{Property: "creation"}, {Property: "used", Descending: true}},
				Parsable:  true,
			},
			want: Args{"list", "-H", "-p", "-d", "2", "-t", "filesystem,snapshot", "-s", "creation", "-S", "used", "-o", "name,type"},
		},
		{
			name: "several roots are separate arguments",
			opts: ListOptions{Roots: []zfs.Resource{root, mustFS(t, "backup", nil)}},
			want: Args{"list", "-H", "-d", "1", "-o", "name,type", "tank", "backup"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := List(tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestListRejectsInjection(t *testing.T) {
	var verr *zfs.ValidationError

	_, err := List(ListOptions{Sort: []SortKey{{Property: "used,-o name"}}})
	require.ErrorAs(t, err, &verr)

	_, err = List(ListOptions{Types: []string{"pool"}})
	require.ErrorAs(t, err, &verr)

	_, err = List(ListOptions{Properties: []string{"bogus"}})
	require.ErrorAs(t, err, &verr)

	_, err = List(ListOptions{Recursive: true, Depth: -1})
	require.ErrorAs(t, err, &verr)
}

func TestNameColumn(t *testing.T) {
	got, err := List(ListOptions{Sort: []SortKey{{Property: "name", Descending: true}}, Properties: []string{"name", "used"}})
	require.NoError(t, err)
	assert.Equal(t, Args{"list", "-H", "-d", "1", "-S", "name", "-o", "name,type,used"}, got)

	got, err = Get(GetOptions{Properties: []string{"name", "used"}})
	require.NoError(t, err)
	assert.Equal(t, "name,type,used", got[len(got)-1])

	fs := mustFS(t, "tank/fs", nil)
	_, err = Set(fs, zfs.Props{"name": zfs.Value("x")})
	var verr *zfs.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestPositionalTokensRejectLeadingDash(t *testing.T) {
	fs := mustFS(t, "tank/fs", nil)
	snaps := []*zfs.Snapshot{mustSnap(t, "tank/fs@a"), mustSnap(t, "tank/fs@b")}

	tests := []struct {
		name  string
		build func() (Args, error)
	}{
		{"hold tag", func() (Args, error) { return Hold("-r", snaps, false) }},
		{"release tag", func() (Args, error) { return Release("-r", snaps, false) }},
		{"permission", func() (Args, error) { return Allow(fs, []string{"-d"}, AllowOptions{Users: []string{"bob"}}) }},
		{"permission set", func() (Args, error) { return Allow(fs, []string{"@-d"}, AllowOptions{Everyone: true}) }},
		{"create permission", func() (Args, error) { return AllowCreate(fs, []string{"-r"}) }},
		{"set name", func() (Args, error) { return AllowSet(fs, "@-r", []string{"send"}) }},
		{"user", func() (Args, error) { return Allow(fs, []string{"mount"}, AllowOptions{Users: []string{"-e"}}) }},
		{"group", func() (Args, error) { return Unallow(fs, []string{"mount"}, AllowOptions{Groups: []string{"-r"}}) }},
		{"inherit user property", func() (Args, error) { return Inherit(fs, "-r:x", InheritOptions{}) }},
		{"receive exclude", func() (Args, error) { return Receive(fs, ReceiveOptions{Exclude: []string{"-F:x"}}) }},
		{"sort key", func() (Args, error) { return List(ListOptions{Sort: []SortKey{{Property: "-o:x"}}}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.build()
			var verr *zfs.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Nil(t, got)
		})
	}
}

func TestColumns(t *testing.T) {
	assert.Equal(t, []string{"name", "type", "used"}, Columns([]string{"name", "used", "type"}))
}

func TestGet(t *testing.T) {
	fs := mustFS(t, "tank/fs", nil)

	got, err := Get(GetOptions{Targets: []zfs.Resource{fs}})
	require.NoError(t, err)
	assert.Equal(t, Args{"get", "-H", "-o", "name,property,value,received,source", "-t", "all", "all", "tank/fs"}, got)

	got, err = Get(GetOptions{
		Targets:    []zfs.Resource{fs},
		Properties: []string{"compression", "mountpoint"},
		Types:      []string{"filesystem"},
		Sources:    []string{"local"},
		Recursive:  true,
		Depth:      1,
		Parsable:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, Args{
		"get", "-H", "-p", "-o", "name,property,value,received,source", "-r", "-d", "1",
		"-t", "filesystem", "name,type,compression,mountpoint", "tank/fs",
	}, got)

	_, err = Get(GetOptions{Sources: []string{"bogus"}})
	assert.Error(t, err)
}

func TestCreate(t *testing.T) {
	fs := mustFS(t, "tank/fs", zfs.Values(map[string]string{"compression": "lz4", "mountpoint": "/srv"}))
	got, err := CreateFilesystem(fs, CreateOptions{Parents: true, NoMount: true})
	require.NoError(t, err)
	assert.Equal(t, Args{"create", "-p", "-u", "-o", "compression=lz4", "-o", "mountpoint=/srv", "tank/fs"}, got)

	vol, err := zfs.NewVolume("tank/vol", nil)
	require.NoError(t, err)
	got, err = CreateVolume(vol, VolumeOptions{Size: "10G", BlockSize: "16K", Sparse: true})
	require.NoError(t, err)
	assert.Equal(t, Args{"create", "-V", "10G", "-b", "16K", "-s", "tank/vol"}, got)

	got, err = CreateVolume(vol, VolumeOptions{Size: "1GiB"})
	require.NoError(t, err)
	assert.NotContains(t, got, "-s")

	_, err = CreateVolume(vol, VolumeOptions{Size: "lots"})
	assert.Error(t, err)
	_, err = CreateVolume(vol, VolumeOptions{})
	assert.Error(t, err)
	_, err = CreateVolume(fs, VolumeOptions{Size: "1G"})
	assert.Error(t, err)
	_, err = CreateFilesystem(vol, CreateOptions{})
	assert.Error(t, err)
}

func TestPropertyValueWithNewline(t *testing.T) {
	fs := mustFS(t, "tank/fs", nil)
	_, err := Set(fs, zfs.Props{"org.example:x": zfs.Value("a\nb")})
	var verr *zfs.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestDestroyDataset(t *testing.T) {
	fs := mustFS(t, "tank/fs", nil)

	tests := []struct {
		name string
		opts DestroyOptions
		want Args
	}{
		{"dry run", DestroyOptions{}, Args{"destroy", "-v", "-p", "-n", "tank/fs"}},
		{"recursive", DestroyOptions{Confirm: true, Recursive: true}, Args{"destroy", "-v", "-p", "-r", "tank/fs"}},
		{"recursive with clones", DestroyOptions{Confirm: true, Recursive: true, Clones: true}, Args{"destroy", "-v", "-p", "-R", "tank/fs"}},
		{"force", DestroyOptions{Confirm: true, Force: true}, Args{"destroy", "-v", "-p", "-f", "tank/fs"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DestroyDataset(fs, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("clones without recursive", func(t *testing.T) {
		_, err := DestroyDataset(fs, DestroyOptions{Clones: true})
		var cerr *zfs.InvalidOptionCombinationError
		require.ErrorAs(t, err, &cerr)
	})

	t.Run("defer on dataset", func(t *testing.T) {
		_, err := DestroyDataset(fs, DestroyOptions{Defer: true})
		var cerr *zfs.InvalidOptionCombinationError
		require.ErrorAs(t, err, &cerr)
	})
}

func TestDestroySnapshots(t *testing.T) {
	a := mustSnap(t, "tank/fs@a")
	r, err := zfs.ParseSnapshotRange("tank/fs@c%e")
	require.NoError(t, err)

	got, err := DestroySnapshots([]zfs.SnapshotTarget{a, r}, DestroyOptions{Confirm: true, Defer: true})
	require.NoError(t, err)
	assert.Equal(t, Args{"destroy", "-v", "-p", "-d", "tank/fs@a,c%e"}, got)

	_, err = DestroySnapshots([]zfs.SnapshotTarget{a, mustSnap(t, "tank/other@a")}, DestroyOptions{})
	var herr *zfs.HeterogeneousTargetError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, "tank/fs", herr.Want)
	assert.Equal(t, "tank/other", herr.Got)

	_, err = DestroySnapshots(nil, DestroyOptions{})
	assert.Error(t, err)

	b, err := zfs.ParseBookmark("tank/fs#m", nil)
	require.NoError(t, err)
	assert.Equal(t, Args{"destroy", "tank/fs#m"}, DestroyBookmark(b))
}

func TestRename(t *testing.T) {
	fs := mustFS(t, "tank/fs", nil)
	to := mustFS(t, "tank/new/fs", nil)

	got, err := Rename(fs, to, RenameOptions{Parents: true, NoMount: true})
	require.NoError(t, err)
	assert.Equal(t, Args{"rename", "-p", "-u", "tank/fs", "tank/new/fs"}, got)

	got, err = Rename(mustSnap(t, "tank/fs@a"), mustSnap(t, "tank/fs@b"), RenameOptions{Recursive: true})
	require.NoError(t, err)
	assert.Equal(t, Args{"rename", "-r", "tank/fs@a", "tank/fs@b"}, got)

	_, err = Rename(mustSnap(t, "tank/fs@a"), mustSnap(t, "tank/other@a"), RenameOptions{})
	var herr *zfs.HeterogeneousTargetError
	require.ErrorAs(t, err, &herr)

	_, err = Rename(fs, mustSnap(t, "tank/fs@a"), RenameOptions{})
	assert.Error(t, err)

	vol, _ := zfs.NewVolume("tank/vol", nil)
	_, err = Rename(vol, to, RenameOptions{NoMount: true})
	assert.Error(t, err)
}

func TestSnapshotAndBookmark(t *testing.T) {
	fs := mustFS(t, "tank/fs", nil)
	s, err := zfs.NewSnapshot(fs, "daily", zfs.Props{"org.example:keep": zfs.Value("7")})
	require.NoError(t, err)

	got, err := Snapshot(s, true)
	require.NoError(t, err)
	assert.Equal(t, Args{"snapshot", "-r", "-o", "org.example:keep=7", "tank/fs@daily"}, got)

	b, err := zfs.NewBookmark(fs, "daily", nil)
	require.NoError(t, err)
	got, err = Bookmark(s, b)
	require.NoError(t, err)
	assert.Equal(t, Args{"bookmark", "tank/fs@daily", "tank/fs#daily"}, got)

	other, err := zfs.ParseBookmark("tank/other#x", nil)
	require.NoError(t, err)
	_, err = Bookmark(s, other)
	var herr *zfs.HeterogeneousTargetError
	require.ErrorAs(t, err, &herr)

	_, err = Bookmark(fs, b)
	assert.Error(t, err)
}

func TestCloneSetInherit(t *testing.T) {
	target := mustFS(t, "tank/clone", zfs.Values(map[string]string{"readonly": "on"}))
	got, err := Clone(mustSnap(t, "tank/fs@a"), target, true)
	require.NoError(t, err)
	assert.Equal(t, Args{"clone", "-p", "-o", "readonly=on", "tank/fs@a", "tank/clone"}, got)

	fs := mustFS(t, "tank/fs", nil)
	got, err = Set(fs, zfs.Props{"compression": zfs.Value("zstd"), "atime": zfs.Value("off"), "quota": nil})
	require.NoError(t, err)
	assert.Equal(t, Args{"set", "atime=off", "compression=zstd", "tank/fs"}, got)

	_, err = Set(fs, zfs.Props{"quota": nil})
	assert.Error(t, err)

	got, err = Inherit(fs, "compression", InheritOptions{Recursive: true, Received: true})
	require.NoError(t, err)
	assert.Equal(t, Args{"inherit", "-r", "-S", "compression", "tank/fs"}, got)

	_, err = Inherit(fs, "compression;rm", InheritOptions{})
	assert.Error(t, err)
}

func TestRollbackPromoteHold(t *testing.T) {
	s := mustSnap(t, "tank/fs@a")

	got, err := Rollback(s, RollbackOptions{DestroyLater: true, Clones: true, Force: true})
	require.NoError(t, err)
	assert.Equal(t, Args{"rollback", "-R", "-f", "tank/fs@a"}, got)

	_, err = Rollback(s, RollbackOptions{Clones: true})
	var cerr *zfs.InvalidOptionCombinationError
	require.ErrorAs(t, err, &cerr)

	assert.Equal(t, Args{"promote", "tank/clone"}, Promote(mustFS(t, "tank/clone", nil)))

	got, err = Hold("keep", []*zfs.Snapshot{s, mustSnap(t, "tank/fs@b")}, true)
	require.NoError(t, err)
	assert.Equal(t, Args{"hold", "-r", "keep", "tank/fs@a", "tank/fs@b"}, got)

	got, err = Release("keep", []*zfs.Snapshot{s}, false)
	require.NoError(t, err)
	assert.Equal(t, Args{"release", "keep", "tank/fs@a"}, got)

	_, err = Hold("bad tag", []*zfs.Snapshot{s}, false)
	assert.Error(t, err)
}
