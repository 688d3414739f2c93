package vm

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/AlexSSD7/foldersync/qemucli"
	"github.com/AlexSSD7/foldersync/storage"
	"github.com/AlexSSD7/foldersync/synced"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestTable(t *testing.T) *storage.FolderTable {
	t.Helper()

	s, err := storage.NewStorage(testLogger(), filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)

	ft, err := s.OpenFolderTable(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, ft.Close())
	})

	return ft
}

func encode(t *testing.T, opts []qemucli.Option) []string {
	t.Helper()

	ret, err := qemucli.Argv(opts)
	require.NoError(t, err)

	return ret
}

func TestFolderDriverShareAndRead(t *testing.T) {
	ctx := context.Background()
	d := NewFolderDriver(testLogger(), newTestTable(t), "machine-a")

	decls := []synced.Declaration{
		{Name: "web", HostPath: "/srv/web"},
		{Name: "data", HostPath: "/srv/data"},
	}

	require.NoError(t, d.ShareFolders(ctx, decls))

	got, err := d.ReadSharedFolders(ctx)
	require.NoError(t, err)
	assert.Equal(t, decls, got)

	// Same declarations again must not duplicate anything.
	require.NoError(t, d.ShareFolders(ctx, decls))

	got, err = d.ReadSharedFolders(ctx)
	require.NoError(t, err)
	assert.Equal(t, decls, got)
}

func TestFolderDriverMachinesAreIsolated(t *testing.T) {
	ctx := context.Background()
	table := newTestTable(t)

	a := NewFolderDriver(testLogger(), table, "machine-a")
	b := NewFolderDriver(testLogger(), table, "machine-b")

	require.NoError(t, a.ShareFolders(ctx, []synced.Declaration{{Name: "web", HostPath: "/srv/web"}}))

	got, err := b.ReadSharedFolders(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, b.ClearSharedFolders(ctx))

	got, err = a.ReadSharedFolders(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestFolderDriverUnshareAndClear(t *testing.T) {
	ctx := context.Background()
	d := NewFolderDriver(testLogger(), newTestTable(t), "machine-a")

	require.NoError(t, d.ShareFolders(ctx, []synced.Declaration{
		{Name: "web", HostPath: "/srv/web"},
		{Name: "data", HostPath: "/srv/data"},
	}))

	require.NoError(t, d.UnshareFolders(ctx, []string{"web", "missing"}))

	got, err := d.ReadSharedFolders(ctx)
	require.NoError(t, err)
	assert.Equal(t, []synced.Declaration{{Name: "data", HostPath: "/srv/data"}}, got)

	require.NoError(t, d.ClearSharedFolders(ctx))

	got, err = d.ReadSharedFolders(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFolderDriverRejectsBadDeclarations(t *testing.T) {
	ctx := context.Background()
	d := NewFolderDriver(testLogger(), newTestTable(t), "machine-a")

	for _, decl := range []synced.Declaration{
		{Name: "", HostPath: "/srv/web"},
		{Name: "web", HostPath: ""},
		{Name: "web", HostPath: "/srv/a,b"},
		{Name: "a,b", HostPath: "/srv/web"},
	} {
		err := d.ShareFolders(ctx, []synced.Declaration{decl})
		assert.Error(t, err, "declaration %+v", decl)
	}

	got, err := d.ReadSharedFolders(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFolderDriverRequiresMachineID(t *testing.T) {
	d := NewFolderDriver(testLogger(), newTestTable(t), "")

	err := d.ShareFolders(context.Background(), []synced.Declaration{{Name: "web", HostPath: "/srv/web"}})
	require.ErrorIs(t, err, ErrNotProvisioned)
}

func TestVirtFSArgs(t *testing.T) {
	ctx := context.Background()
	d := NewFolderDriver(testLogger(), newTestTable(t), "machine-a")

	require.NoError(t, d.ShareFolders(ctx, []synced.Declaration{
		{Name: "web", HostPath: "/srv/web"},
		{Name: "my_code", HostPath: "/srv/my code"},
	}))

	args, err := d.VirtFSArgs(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"-fsdev", "local,id=fsdev0,path=/srv/web,security_model=mapped-xattr",
		"-device", "driver=virtio-9p-pci,fsdev=fsdev0,mount_tag=web",
		"-fsdev", "'local,id=fsdev1,path=/srv/my code,security_model=mapped-xattr'",
		"-device", "driver=virtio-9p-pci,fsdev=fsdev1,mount_tag=my_code",
	}, encode(t, args))
}

func TestVirtFSArgsEmpty(t *testing.T) {
	d := NewFolderDriver(testLogger(), newTestTable(t), "machine-a")

	args, err := d.VirtFSArgs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, args)
}

func TestMountTag(t *testing.T) {
	assert.Equal(t, "web", mountTag("web"))

	exact := strings.Repeat("a", maxMountTagLen)
	assert.Equal(t, exact, mountTag(exact))

	code := mountTag("home_vagrant_projects_application-code")
	docs := mountTag("home_vagrant_projects_application-docs")

	assert.Equal(t, "home_vagrant_projects_-7196490a", code)
	assert.Equal(t, "home_vagrant_projects_-bee3f472", docs)
	assert.LessOrEqual(t, len(code), maxMountTagLen)
	assert.Equal(t, code, mountTag("home_vagrant_projects_application-code"))

	multibyte := mountTag("a" + strings.Repeat("é", 16))
	assert.True(t, utf8.ValidString(multibyte))
	assert.True(t, strings.HasPrefix(multibyte, "a"+strings.Repeat("é", 10)+"-"))
	assert.LessOrEqual(t, len(multibyte), maxMountTagLen)
}

func TestFolderDriverShortensLongNames(t *testing.T) {
	ctx := context.Background()
	d := NewFolderDriver(testLogger(), newTestTable(t), "machine-a")

	long := "home_vagrant_projects_application-code"

	require.NoError(t, d.ShareFolders(ctx, []synced.Declaration{
		{Name: "web", HostPath: "/srv/web"},
		{Name: long, HostPath: "/srv/app"},
	}))

	got, err := d.ReadSharedFolders(ctx)
	require.NoError(t, err)
	assert.Equal(t, []synced.Declaration{
		{Name: "web", HostPath: "/srv/web"},
		{Name: "home_vagrant_projects_-7196490a", HostPath: "/srv/app"},
	}, got)

	opts, err := d.VirtFSArgs(ctx)
	require.NoError(t, err)
	assert.Contains(t, encode(t, opts), "driver=virtio-9p-pci,fsdev=fsdev1,mount_tag=home_vagrant_projects_-7196490a")

	// Unsharing goes by the unshortened name.
	require.NoError(t, d.UnshareFolders(ctx, []string{long}))

	got, err = d.ReadSharedFolders(ctx)
	require.NoError(t, err)
	assert.Equal(t, []synced.Declaration{{Name: "web", HostPath: "/srv/web"}}, got)
}

type recordingGuest struct {
	mounts [][]any
}

func (g *recordingGuest) HasCapability(c synced.Capability) bool {
	return c == synced.CapMountSharedFolder || c == synced.CapUnmountSharedFolder
}

func (g *recordingGuest) Invoke(_ context.Context, c synced.Capability, args ...any) error {
	if c == synced.CapMountSharedFolder {
		g.mounts = append(g.mounts, args)
	}

	return nil
}

type discardUI struct{}

func (discardUI) Output(string) {}
func (discardUI) Detail(string) {}

func TestEnableWithLongFolderID(t *testing.T) {
	ctx := context.Background()
	table := newTestTable(t)
	g := &recordingGuest{}

	m := &synced.Machine{
		Name:           "default",
		ID:             "machine-a",
		ProviderName:   "qemu",
		ProviderConfig: synced.ProviderConfig{FunctionalSharedFolders: true},
		SSHInfo:        synced.SSHInfo{Username: "alpine"},
		Guest:          g,
		UI:             discardUI{},
	}

	c := synced.NewCoordinator(testLogger(), func(m *synced.Machine) synced.Driver {
		return NewFolderDriver(testLogger(), table, m.ID)
	}, nil)

	folders := synced.Folders{
		{ID: "web", Spec: synced.FolderSpec{HostPath: "/srv/web", GuestPath: "/mnt/web"}},
		{ID: "/home/vagrant/projects/application-code", Spec: synced.FolderSpec{HostPath: "/srv/app", GuestPath: "/home/vagrant/app"}},
	}

	require.NoError(t, c.Enable(ctx, m, folders))

	require.Len(t, g.mounts, 2)
	assert.Equal(t, "web", g.mounts[0][0])
	assert.Equal(t, "/mnt/web", g.mounts[0][1])
	assert.Equal(t, "home_vagrant_projects_-7196490a", g.mounts[1][0])
	assert.Equal(t, "/home/vagrant/app", g.mounts[1][1])

	require.NoError(t, c.Disable(ctx, m, folders))

	got, err := NewFolderDriver(testLogger(), table, m.ID).ReadSharedFolders(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}
