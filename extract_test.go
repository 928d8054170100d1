package zpk

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	t.Parallel()

	for _, mode := range []LinkMode{LinkSymlink, LinkHardlink} {
		t.Run(map[LinkMode]string{LinkSymlink: "symlink", LinkHardlink: "hardlink"}[mode], func(t *testing.T) {
			t.Parallel()
			if runtime.GOOS == "windows" {
				t.Skip("links need privileges on windows")
			}

			w := newTestWriter(t)
			a, _ := w.Lookup("/lib/a.txt")
			_, err := PutAttr(w, a, ModeAttr, 0o600)
			require.NoError(t, err)
			r := mustEncode(t, w)

			dest := t.TempDir()
			x := NewExtractor(r, WithDestinationRoot(dest), WithLinkMode(mode))
			path, err := x.Extract(context.Background())
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(dest, "zuri.dev", "core", "1.2.3"), path)

			content, err := os.ReadFile(filepath.Join(path, "lib", "a.txt"))
			require.NoError(t, err)
			assert.Equal(t, "alpha", string(content))

			info, err := os.Stat(filepath.Join(path, "lib", "a.txt"))
			require.NoError(t, err)
			assert.Equal(t, fs.FileMode(0o600), info.Mode().Perm())

			info, err = os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, DefaultDirectoryPerms, info.Mode().Perm())

			linked, err := os.ReadFile(filepath.Join(path, "b-link"))
			require.NoError(t, err)
			assert.Len(t, linked, 4096)

			linfo, err := os.Lstat(filepath.Join(path, "b-link"))
			require.NoError(t, err)
			if mode == LinkSymlink {
				require.Equal(t, fs.ModeSymlink, linfo.Mode().Type())
				target, err := os.Readlink(filepath.Join(path, "b-link"))
				require.NoError(t, err)
				assert.Equal(t, filepath.Join("lib", "sub", "b.txt"), target, "symlinks are relative")
			} else {
				assert.True(t, linfo.Mode().IsRegular())
			}

			sub, err := os.ReadDir(filepath.Join(path, "sub-link"))
			require.NoError(t, err, "directory links resolve")
			require.Len(t, sub, 1)

			leftovers, err := os.ReadDir(dest)
			require.NoError(t, err)
			assert.Len(t, leftovers, 1, "staging directory is renamed away")
		})
	}
}

func TestExtractExisting(t *testing.T) {
	t.Parallel()

	r := mustEncode(t, newTestWriter(t))
	dest := t.TempDir()

	_, err := NewExtractor(r, WithDestinationRoot(dest)).Extract(context.Background())
	require.NoError(t, err)
	_, err = NewExtractor(r, WithDestinationRoot(dest)).Extract(context.Background())
	require.ErrorIs(t, err, fs.ErrExist)
}

func TestExtractWorkingRoot(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	work := filepath.Join(base, "work")
	dest := filepath.Join(base, "dest")
	r := mustEncode(t, newTestWriter(t))

	path, err := NewExtractor(r, WithDestinationRoot(dest), WithWorkingRoot(work)).Extract(context.Background())
	require.NoError(t, err)
	assert.DirExists(t, path)

	staged, err := os.ReadDir(work)
	require.NoError(t, err)
	assert.Empty(t, staged)
}

func TestExtractMissingConfig(t *testing.T) {
	t.Parallel()

	w := NewWriter(testSpec, WithSkipPackageConfig())
	r := mustEncode(t, w)
	_, err := NewExtractor(r, WithDestinationRoot(t.TempDir())).Extract(context.Background())
	require.ErrorIs(t, err, ErrMissingConfig)
}

func TestExtractCancelled(t *testing.T) {
	t.Parallel()

	r := mustEncode(t, newTestWriter(t))
	dest := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewExtractor(r, WithDestinationRoot(dest)).Extract(ctx)
	require.ErrorIs(t, err, context.Canceled)

	leftovers, err := os.ReadDir(dest)
	require.NoError(t, err)
	assert.Empty(t, leftovers, "staging directory is removed")
}
