// Package testutil builds package archives and source trees for tests.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	zpk "github.com/zuri-dev/zpk"
	"github.com/zuri-dev/zpk/ident"
	"github.com/zuri-dev/zpk/internal/pathutil"
)

// Spec parses a "name@domain:x.y.z" specifier or fails the test.
func Spec(tb testing.TB, s string) ident.Specifier {
	tb.Helper()
	spec, err := ident.ParseSpecifier(s)
	require.NoError(tb, err, "ParseSpecifier(%q)", s)
	return spec
}

// declare adds files to w, creating parent directories as needed. Files
// are declared in path order so archives are reproducible.
func declare(tb testing.TB, w *zpk.Writer, files map[string]string) {
	tb.Helper()
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	slices.SortFunc(paths, strings.Compare)
	for _, p := range paths {
		clean, ok := pathutil.Clean(p)
		require.True(tb, ok, "invalid test path %q", p)
		if parent := pathutil.Parent(clean); parent != pathutil.Root {
			_, err := w.MakeDirectory(parent, true)
			require.NoError(tb, err, "MakeDirectory(%s)", parent)
		}
		_, err := w.PutFile(clean, []byte(files[p]))
		require.NoError(tb, err, "PutFile(%s)", clean)
	}
}

// BuildPackage encodes an archive for spec holding files.
func BuildPackage(tb testing.TB, spec ident.Specifier, files map[string]string, opts ...zpk.WriterOption) []byte {
	tb.Helper()
	w := zpk.NewWriter(spec, opts...)
	declare(tb, w, files)
	data, err := w.Encode(context.Background())
	require.NoError(tb, err, "Encode failed")
	return data
}

// WritePackage writes an archive for spec holding files into dir and
// returns its path.
func WritePackage(tb testing.TB, dir string, spec ident.Specifier, files map[string]string, opts ...zpk.WriterOption) string {
	tb.Helper()
	w := zpk.NewWriter(spec, append([]zpk.WriterOption{zpk.WithInstallRoot(dir)}, opts...)...)
	declare(tb, w, files)
	path, err := w.WritePackage(context.Background())
	require.NoError(tb, err, "WritePackage failed")
	return path
}

// CreateTestFiles writes files below dir, creating parent directories.
func CreateTestFiles(tb testing.TB, dir string, files map[string]string) {
	tb.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(tb, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(tb, os.WriteFile(path, []byte(content), 0o644))
	}
}
