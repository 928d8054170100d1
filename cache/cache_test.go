package cache

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	zpk "github.com/zuri-dev/zpk"
	"github.com/zuri-dev/zpk/ident"
	"github.com/zuri-dev/zpk/internal/testutil"
)

func openTestCache(t *testing.T, opts ...Option) *Cache {
	t.Helper()
	c, err := OpenOrCreate(filepath.Join(t.TempDir(), "packages"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func testReader(t *testing.T, spec ident.Specifier, files map[string]string, opts ...zpk.WriterOption) (*zpk.Reader, []byte) {
	t.Helper()
	data := testutil.BuildPackage(t, spec, files, opts...)
	r, err := zpk.NewReader(data)
	require.NoError(t, err)
	return r, data
}

func TestOpenOrCreate(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	root := filepath.Join(base, "cache")
	c, err := OpenOrCreate(root)
	require.NoError(t, err)
	assert.DirExists(t, root)
	assert.FileExists(t, filepath.Join(root, IndexName))
	require.NoError(t, c.Close())

	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary root is renamed into place")

	c, err = OpenOrCreate(root)
	require.NoError(t, err, "existing roots are opened")
	require.NoError(t, c.Close())

	_, err = OpenOrCreate(filepath.Join(base, "missing", "cache"))
	require.ErrorIs(t, err, ErrDistributorInvariant)

	_, err = Open(filepath.Join(base, "nope"))
	require.ErrorIs(t, err, ErrDistributorInvariant)
	require.ErrorIs(t, err, fs.ErrNotExist)

	file := filepath.Join(base, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = Open(file)
	require.ErrorIs(t, err, ErrDistributorInvariant)
}

func TestInstallPackage(t *testing.T) {
	t.Parallel()

	c := openTestCache(t)
	ctx := context.Background()
	spec := testutil.Spec(t, "core@zuri.dev:1.2.3")
	r, data := testReader(t, spec, map[string]string{"/lib/core.zb": "bytecode"}, zpk.WithDescription("core"))

	ok, err := c.ContainsPackage(spec)
	require.NoError(t, err)
	assert.False(t, ok)

	path, err := c.InstallPackage(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(c.Root(), "zuri.dev", "core", "1.2.3"), path)

	ok, err = c.ContainsPackage(spec)
	require.NoError(t, err)
	assert.True(t, ok)

	resolved, ok, err := c.ResolvePackage(spec)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, path, resolved)

	content, err := os.ReadFile(filepath.Join(path, "lib", "core.zb"))
	require.NoError(t, err)
	assert.Equal(t, "bytecode", string(content))

	cfg, err := c.DescribePackage(spec)
	require.NoError(t, err)
	assert.Equal(t, spec, cfg.Specifier())
	assert.Equal(t, "core", cfg.Description)

	rec, ok, err := c.Installed(ctx, spec)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, digest.FromBytes(data), rec.Digest)
	assert.Equal(t, int64(len(data)), rec.Size)
	assert.WithinDuration(t, time.Now(), rec.InstalledAt, time.Minute)

	_, err = c.InstallPackage(ctx, r)
	require.ErrorIs(t, err, fs.ErrExist)

	require.NoError(t, c.RemovePackage(ctx, spec))
	assert.NoDirExists(t, path)
	_, ok, err = c.Installed(ctx, spec)
	require.NoError(t, err)
	assert.False(t, ok, "index row is dropped")

	err = c.RemovePackage(ctx, spec)
	require.ErrorIs(t, err, ErrMissingPackage)
	_, err = c.DescribePackage(spec)
	require.ErrorIs(t, err, ErrMissingPackage)
}

func TestInstallPackageFile(t *testing.T) {
	t.Parallel()

	c := openTestCache(t)
	spec := testutil.Spec(t, "io@zuri.dev:0.2.0")
	archive := testutil.WritePackage(t, t.TempDir(), spec, map[string]string{"/a": "a"})

	path, err := c.InstallPackageFile(context.Background(), archive)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(path, "a"))

	_, err = c.InstallPackageFile(context.Background(), filepath.Join(t.TempDir(), "missing.zpk"))
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestClosedCache(t *testing.T) {
	t.Parallel()

	c := openTestCache(t)
	ctx := context.Background()
	installed := testutil.Spec(t, "core@zuri.dev:1.0.0")
	r, _ := testReader(t, installed, map[string]string{"/a": "a"})
	_, err := c.InstallPackage(ctx, r)
	require.NoError(t, err)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close(), "closing twice is a no-op")

	spec := testutil.Spec(t, "std@zuri.dev:1.0.0")
	r, _ = testReader(t, spec, map[string]string{"/b": "b"})
	_, err = c.InstallPackage(ctx, r)
	require.ErrorIs(t, err, ErrDistributorInvariant)
	ok, err := c.ContainsPackage(spec)
	require.NoError(t, err)
	assert.False(t, ok, "nothing is extracted after close")

	require.ErrorIs(t, c.RemovePackage(ctx, installed), ErrDistributorInvariant)
	ok, err = c.ContainsPackage(installed)
	require.NoError(t, err)
	assert.True(t, ok, "installed trees survive a rejected removal")

	freed, err := c.Prune(ctx, 0)
	require.ErrorIs(t, err, ErrDistributorInvariant)
	assert.Zero(t, freed)
	ok, err = c.ContainsPackage(installed)
	require.NoError(t, err)
	assert.True(t, ok)

	_, found, err := c.Installed(ctx, installed)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInstallPackageConcurrent(t *testing.T) {
	t.Parallel()

	c := openTestCache(t)
	spec := testutil.Spec(t, "core@zuri.dev:1.0.0")
	want := spec.DirectoryPath(c.Root())

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	readers := make([]*zpk.Reader, 8)
	for i := range readers {
		readers[i], _ = testReader(t, spec, map[string]string{"/a": "a"})
	}
	for _, r := range readers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			path, err := c.InstallPackage(context.Background(), r)
			if err != nil {
				assert.ErrorIs(t, err, fs.ErrExist)
				return
			}
			assert.Equal(t, want, path)
			mu.Lock()
			successes++
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.GreaterOrEqual(t, successes, 1)

	var specs []ident.Specifier
	for s, err := range c.Packages() {
		require.NoError(t, err)
		specs = append(specs, s)
	}
	assert.Equal(t, []ident.Specifier{spec}, specs)
}

func TestInvalidSpecifier(t *testing.T) {
	t.Parallel()

	c := openTestCache(t)
	_, err := c.ContainsPackage(ident.Specifier{})
	require.ErrorIs(t, err, ErrDistributorInvariant)
	_, _, err = c.ResolvePackage(ident.Specifier{})
	require.ErrorIs(t, err, ErrDistributorInvariant)
	err = c.RemovePackage(context.Background(), ident.Specifier{})
	require.ErrorIs(t, err, ErrDistributorInvariant)
}

func TestPackages(t *testing.T) {
	t.Parallel()

	c := openTestCache(t)
	ctx := context.Background()
	specs := []ident.Specifier{
		testutil.Spec(t, "std@zuri.dev:1.0.0"),
		testutil.Spec(t, "core@zuri.dev:1.2.3"),
		testutil.Spec(t, "core@zuri.dev:1.10.0"),
		testutil.Spec(t, "json@acme.io:0.1.0"),
	}
	for _, s := range specs {
		r, _ := testReader(t, s, map[string]string{"/a": "a"})
		_, err := c.InstallPackage(ctx, r)
		require.NoError(t, err)
	}
	testutil.CreateTestFiles(t, c.Root(), map[string]string{
		"zuri.dev/core/not-a-version/x": "x",
		"stray.txt":                     "x",
	})

	var got []string
	for s, err := range c.Packages() {
		require.NoError(t, err)
		got = append(got, s.String())
	}
	assert.Equal(t, []string{
		"json@acme.io:0.1.0",
		"core@zuri.dev:1.10.0",
		"core@zuri.dev:1.2.3",
		"std@zuri.dev:1.0.0",
	}, got)
}

func TestPrune(t *testing.T) {
	t.Parallel()

	c := openTestCache(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)
	var specs []ident.Specifier
	for i, name := range []string{"a", "b", "c"} {
		spec := testutil.Spec(t, name+"@zuri.dev:1.0.0")
		r, _ := testReader(t, spec, map[string]string{"/data": strings.Repeat("x", 1000*(i+1))})
		path, err := c.InstallPackage(ctx, r)
		require.NoError(t, err)
		mtime := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, os.Chtimes(path, mtime, mtime))
		specs = append(specs, spec)
	}

	total, err := c.Size()
	require.NoError(t, err)
	assert.Greater(t, total, int64(6000))

	freed, err := c.Prune(ctx, total)
	require.NoError(t, err)
	assert.Zero(t, freed, "already under target")

	freed, err = c.Prune(ctx, total-1)
	require.NoError(t, err)
	assert.Greater(t, freed, int64(1000))

	ok, err := c.ContainsPackage(specs[0])
	require.NoError(t, err)
	assert.False(t, ok, "oldest package is pruned first")
	_, ok, err = c.Installed(ctx, specs[0])
	require.NoError(t, err)
	assert.False(t, ok)
	for _, s := range specs[1:] {
		ok, err := c.ContainsPackage(s)
		require.NoError(t, err)
		assert.True(t, ok, s.String())
	}

	after, err := c.Size()
	require.NoError(t, err)
	assert.Equal(t, total-freed, after)

	_, err = c.Prune(ctx, 0)
	require.NoError(t, err)
	after, err = c.Size()
	require.NoError(t, err)
	assert.Zero(t, after)
}

func TestTiered(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	spec := testutil.Spec(t, "core@zuri.dev:1.2.3")
	only := testutil.Spec(t, "std@zuri.dev:1.0.0")

	local := openTestCache(t)
	r, _ := testReader(t, spec, map[string]string{"/a": "a"}, zpk.WithDescription("local"))
	localPath, err := local.InstallPackage(ctx, r)
	require.NoError(t, err)

	system := openTestCache(t)
	r, _ = testReader(t, spec, map[string]string{"/a": "a"}, zpk.WithDescription("system"))
	_, err = system.InstallPackage(ctx, r)
	require.NoError(t, err)
	r, _ = testReader(t, only, map[string]string{"/a": "a"})
	systemOnly, err := system.InstallPackage(ctx, r)
	require.NoError(t, err)

	tiered := NewTiered(local, system)

	path, ok, err := tiered.ResolvePackage(spec)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, localPath, path, "earlier tiers shadow later ones")

	cfg, err := tiered.DescribePackage(spec)
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Description)

	path, ok, err = tiered.ResolvePackage(only)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, systemOnly, path)

	ok, err = tiered.ContainsPackage(testutil.Spec(t, "none@zuri.dev:1.0.0"))
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = tiered.DescribePackage(testutil.Spec(t, "none@zuri.dev:1.0.0"))
	require.ErrorIs(t, err, ErrMissingPackage)

	_, err = tiered.ContainsPackage(ident.Specifier{})
	require.ErrorIs(t, err, ErrDistributorInvariant)
}

func TestOpenTiered(t *testing.T) {
	t.Parallel()

	rw := openTestCache(t)
	spec := testutil.Spec(t, "core@zuri.dev:1.2.3")
	r, _ := testReader(t, spec, map[string]string{"/a": "a"})
	_, err := rw.InstallPackage(context.Background(), r)
	require.NoError(t, err)

	tiered, err := OpenTiered(rw.Root())
	require.NoError(t, err)
	require.Len(t, tiered.Tiers(), 1)
	ok, err := tiered.ContainsPackage(spec)
	require.NoError(t, err)
	assert.True(t, ok)

	ro, ok := tiered.Tiers()[0].(*Cache)
	require.True(t, ok)
	r, _ = testReader(t, testutil.Spec(t, "std@zuri.dev:1.0.0"), nil)
	_, err = ro.InstallPackage(context.Background(), r)
	require.ErrorIs(t, err, ErrDistributorInvariant)
	require.NoError(t, ro.Close())

	_, err = OpenTiered(filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, ErrDistributorInvariant)
}
