package lock

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zuri-dev/zpk/ident"
)

var (
	coreID = ident.NewPackageID("core", "zuri.dev")
	stdID  = ident.NewPackageID("std", "zuri.dev")
	core   = ident.Specifier{ID: coreID, Version: ident.NewVersion(1, 2, 3)}
	std    = ident.Specifier{ID: stdID, Version: ident.NewVersion(1, 0, 0)}
)

func TestLockRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "packages.lock")
	l, err := OpenOrCreate(path)
	require.NoError(t, err)
	assert.Zero(t, l.Len())
	assert.NoFileExists(t, path, "nothing is written before WriteAndClose")

	checked := time.UnixMilli(1_700_000_000_123)
	dgst := digest.FromString("core")
	require.NoError(t, l.UpdateEntry(stdID, std, checked))
	require.NoError(t, l.UpdateEntry(coreID, core, checked, WithDigest(dgst)))
	require.NoError(t, l.WriteAndClose())

	reopened, err := OpenOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, 2, reopened.Len())
	assert.True(t, reopened.HasEntry(coreID))

	e, ok := reopened.Entry(coreID)
	require.True(t, ok)
	assert.Equal(t, core, e.Specifier)
	assert.True(t, checked.Equal(e.LastChecked))
	assert.Equal(t, dgst, e.Digest)

	e, ok = reopened.Entry(stdID)
	require.True(t, ok)
	assert.Empty(t, e.Digest)

	var ids []ident.PackageID
	for id := range reopened.Entries() {
		ids = append(ids, id)
	}
	assert.Equal(t, []ident.PackageID{coreID, stdID}, ids)
}

func TestLockDeterministic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	checked := time.UnixMilli(42)
	write := func(name string, ids ...ident.Specifier) []byte {
		path := filepath.Join(dir, name)
		l, err := OpenOrCreate(path)
		require.NoError(t, err)
		for _, s := range ids {
			require.NoError(t, l.UpdateEntry(s.ID, s, checked))
		}
		require.NoError(t, l.WriteAndClose())
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		return data
	}

	assert.Equal(t, write("a", core, std), write("b", std, core))
}

func TestLockUpdateAndRemove(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "packages.lock")
	l, err := OpenOrCreate(path)
	require.NoError(t, err)

	require.NoError(t, l.UpdateEntry(coreID, core, time.UnixMilli(1)))
	newer := ident.Specifier{ID: coreID, Version: ident.NewVersion(1, 3, 0)}
	require.NoError(t, l.UpdateEntry(coreID, newer, time.UnixMilli(2)))
	e, _ := l.Entry(coreID)
	assert.Equal(t, newer, e.Specifier)

	err = l.UpdateEntry(stdID, core, time.UnixMilli(1))
	require.ErrorIs(t, err, ErrInvariant, "specifier must match the id")
	err = l.UpdateEntry(coreID, core, time.UnixMilli(1), WithDigest("nope"))
	require.ErrorIs(t, err, ErrInvariant)

	removed, err := l.RemoveEntry(coreID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = l.RemoveEntry(coreID)
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, l.WriteAndClose())
	require.ErrorIs(t, l.UpdateEntry(coreID, core, time.Now()), ErrInvariant)
	_, err = l.RemoveEntry(coreID)
	require.ErrorIs(t, err, ErrInvariant)
	require.ErrorIs(t, l.WriteAndClose(), ErrInvariant)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestOpenInvalidLock(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.lock")
	require.NoError(t, os.WriteFile(garbage, []byte{0xff, 0x00, 0x13}, 0o644))
	_, err := OpenOrCreate(garbage)
	require.ErrorIs(t, err, ErrInvalidLock)

	versioned := filepath.Join(dir, "versioned.lock")
	data, err := encMode.Marshal(file{Version: 99})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(versioned, data, 0o644))
	_, err = OpenOrCreate(versioned)
	require.ErrorIs(t, err, ErrInvalidLock)

	mismatched := filepath.Join(dir, "mismatched.lock")
	data, err = encMode.Marshal(file{Version: FormatVersion, Packages: map[string]fileEntry{
		stdID.String(): {Specifier: core},
	}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(mismatched, data, 0o644))
	_, err = OpenOrCreate(mismatched)
	require.ErrorIs(t, err, ErrInvalidLock)

	_, err = OpenOrCreate(dir)
	require.Error(t, err, "a directory is not a lock file")
}
