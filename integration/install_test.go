//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	zpk "github.com/zuri-dev/zpk"
	"github.com/zuri-dev/zpk/ident"
	"github.com/zuri-dev/zpk/internal/testutil"
	"github.com/zuri-dev/zpk/lock"
	"github.com/zuri-dev/zpk/registry"
	"github.com/zuri-dev/zpk/requirement"
	"github.com/zuri-dev/zpk/resolve"
)

func TestPushResolveInstall(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	addr := getRegistry(t)
	client := newClient(t)
	repo := testRepo(addr, "core")

	spec := testutil.Spec(t, "core@zuri.dev:1.2.3")
	archive := testutil.WritePackage(t, t.TempDir(), spec, map[string]string{
		"/lib/core.zb": "module core",
		"/share/doc":   "docs",
	}, zpk.WithCompression(zpk.CompressionZstd))

	desc, err := client.Push(ctx, repo, archive, registry.WithTags("latest"))
	require.NoError(t, err)

	loc, err := client.Resolve(ctx, repo, spec)
	require.NoError(t, err)
	assert.Equal(t, desc.Digest, loc.Manifest)

	f := newFetcher(t)
	require.NoError(t, loc.AddTo(f))
	require.NoError(t, f.FetchPackages(ctx))
	res, ok := f.Result(spec)
	require.True(t, ok)
	require.NoError(t, res.Err)

	c := newCache(t)
	dir, err := c.InstallPackageFile(ctx, res.Path)
	require.NoError(t, err)
	got, err := os.ReadFile(filepath.Join(dir, "lib", "core.zb"))
	require.NoError(t, err)
	assert.Equal(t, "module core", string(got))

	rec, ok, err := c.Installed(ctx, spec)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, loc.Digest, rec.Digest)

	l, err := lock.OpenOrCreate(filepath.Join(t.TempDir(), "packages.lock"))
	require.NoError(t, err)
	require.NoError(t, l.UpdateEntry(spec.ID, spec, time.Now(), lock.WithDigest(loc.Digest)))
	require.NoError(t, l.WriteAndClose())
}

func TestResolveMissingVersion(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	addr := getRegistry(t)
	client := newClient(t)
	repo := testRepo(addr, "std")

	spec := testutil.Spec(t, "std@zuri.dev:1.0.0")
	_, err := client.Push(ctx, repo, testutil.WritePackage(t, t.TempDir(), spec, nil))
	require.NoError(t, err)

	_, err = client.Resolve(ctx, repo, testutil.Spec(t, "std@zuri.dev:2.0.0"))
	require.ErrorIs(t, err, registry.ErrNotFound)
}

func TestSelectAndInstall(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	addr := getRegistry(t)
	client := newClient(t)

	stdDep, err := requirement.ParseDependency("std@zuri.dev:^1")
	require.NoError(t, err)

	// Each package lives in its own repository; the resolver records the
	// dependency graph.
	packages := map[string][]requirement.Dependency{
		"std@zuri.dev:1.0.0":  nil,
		"std@zuri.dev:1.1.0":  nil,
		"core@zuri.dev:1.2.3": {stdDep},
	}
	repos := map[ident.PackageID]string{}
	resolver := resolve.NewStaticResolver()
	for raw, deps := range packages {
		spec := testutil.Spec(t, raw)
		repo, ok := repos[spec.ID]
		if !ok {
			repo = testRepo(addr, spec.ID.Name)
			repos[spec.ID] = repo
		}
		archive := testutil.WritePackage(t, t.TempDir(), spec, nil, zpk.WithRequirements(deps))
		_, err := client.Push(ctx, repo, archive)
		require.NoError(t, err)
		resolver.Add(spec, deps...)
	}

	coreDep, err := requirement.ParseDependency("core@zuri.dev:~1.2")
	require.NoError(t, err)
	selected, err := resolve.NewSelector(resolver).Select(ctx, coreDep)
	require.NoError(t, err)
	require.Equal(t, []ident.Specifier{
		testutil.Spec(t, "std@zuri.dev:1.1.0"),
		testutil.Spec(t, "core@zuri.dev:1.2.3"),
	}, selected)

	f := newFetcher(t)
	for _, spec := range selected {
		loc, err := client.Resolve(ctx, repos[spec.ID], spec)
		require.NoError(t, err)
		require.NoError(t, loc.AddTo(f))
	}
	require.NoError(t, f.FetchPackages(ctx))

	c := newCache(t)
	for _, spec := range selected {
		res, ok := f.Result(spec)
		require.True(t, ok)
		require.NoError(t, res.Err)
		_, err := c.InstallPackageFile(ctx, res.Path)
		require.NoError(t, err)

		cfg, err := c.DescribePackage(spec)
		require.NoError(t, err)
		assert.Equal(t, spec, cfg.Specifier())
	}
}
