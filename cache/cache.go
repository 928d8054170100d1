// Package cache stores extracted packages in a directory tree laid out as
// domain/name/version, with a SQLite index of what was installed.
package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"golang.org/x/sync/singleflight"

	zpk "github.com/zuri-dev/zpk"
	"github.com/zuri-dev/zpk/ident"
)

// IndexName is the file name of the install index inside a cache root.
const IndexName = "packages.db"

const defaultDirPerm = 0o755

var (
	// ErrDistributorInvariant is returned for invalid specifiers, missing
	// cache roots and writes to a read-only cache.
	ErrDistributorInvariant = errors.New("cache: distributor invariant violated")
	// ErrMissingPackage is returned when a package is not installed.
	ErrMissingPackage = errors.New("cache: missing package")
)

// Readonly is the lookup surface shared by caches and cache tiers.
type Readonly interface {
	// ContainsPackage reports whether spec is installed.
	ContainsPackage(spec ident.Specifier) (bool, error)
	// ResolvePackage returns the installed directory of spec.
	ResolvePackage(spec ident.Specifier) (string, bool, error)
	// DescribePackage reads the package.config of an installed package.
	// It returns ErrMissingPackage if spec is not installed.
	DescribePackage(spec ident.Specifier) (*zpk.Config, error)
}

// Cache is a single directory-backed package store.
//
// Installs are staged in a temporary directory inside the cache root and
// renamed into place, so readers never observe a partial package.
// Concurrent installs of the same specifier within one process share a
// single extraction. Nothing guards against other processes writing the
// same root.
type Cache struct {
	root     string
	dirPerm  fs.FileMode
	readOnly bool
	linkMode zpk.LinkMode
	logger   *slog.Logger
	now      func() time.Time

	index   *index
	install singleflight.Group
}

var _ Readonly = (*Cache)(nil)

// Option configures a Cache.
type Option func(*Cache)

// WithDirPerm sets the permissions used when creating the cache root.
func WithDirPerm(mode fs.FileMode) Option {
	return func(c *Cache) {
		c.dirPerm = mode
	}
}

// WithReadOnly opens the cache for lookups only. The index is not opened
// and installs and removals fail with ErrDistributorInvariant.
func WithReadOnly() Option {
	return func(c *Cache) {
		c.readOnly = true
	}
}

// WithLinkMode sets how links are materialized on install.
func WithLinkMode(mode zpk.LinkMode) Option {
	return func(c *Cache) {
		c.linkMode = mode
	}
}

// WithLogger sets the logger for install and prune events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// OpenOrCreate opens the cache at root, creating the directory if absent.
// The parent of root must already exist. A new root is created as a
// temporary sibling and renamed into place.
func OpenOrCreate(root string, opts ...Option) (*Cache, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: cache root is empty", ErrDistributorInvariant)
	}
	if _, err := os.Stat(root); err == nil {
		return Open(root, opts...)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	parent := filepath.Dir(root)
	if info, err := os.Stat(parent); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: cache parent %s does not exist", ErrDistributorInvariant, parent)
	}
	tmp, err := os.MkdirTemp(parent, filepath.Base(root)+".*")
	if err != nil {
		return nil, fmt.Errorf("create cache root: %w", err)
	}
	c := newCache(root, opts)
	if err := os.Chmod(tmp, c.dirPerm); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("create cache root: %w", err)
	}
	if err := os.Rename(tmp, root); err != nil {
		os.Remove(tmp)
		// Lost a race with another creator; use what they made.
		if info, statErr := os.Stat(root); statErr == nil && info.IsDir() {
			return Open(root, opts...)
		}
		return nil, fmt.Errorf("create cache root: %w", err)
	}
	return c.open()
}

// Open opens an existing cache root.
func Open(root string, opts ...Option) (*Cache, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: package cache %s: %w", ErrDistributorInvariant, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: package cache %s is not a directory", ErrDistributorInvariant, root)
	}
	return newCache(root, opts).open()
}

func newCache(root string, opts []Option) *Cache {
	c := &Cache{
		root:    root,
		dirPerm: defaultDirPerm,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) open() (*Cache, error) {
	if c.readOnly {
		return c, nil
	}
	idx, err := openIndex(filepath.Join(c.root, IndexName))
	if err != nil {
		return nil, err
	}
	c.index = idx
	return c, nil
}

// log returns the logger, falling back to a discard logger if nil.
func (c *Cache) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

// Root returns the cache root directory.
func (c *Cache) Root() string {
	return c.root
}

// Close releases the index. A closed cache still answers lookups but
// rejects installs, removals and prunes.
func (c *Cache) Close() error {
	if c.index == nil {
		return nil
	}
	err := c.index.close()
	c.index = nil
	return err
}

// writable fails for read-only caches and caches that have been closed.
func (c *Cache) writable() error {
	if c.readOnly {
		return fmt.Errorf("%w: cache %s is read-only", ErrDistributorInvariant, c.root)
	}
	if c.index == nil {
		return fmt.Errorf("%w: cache %s is closed", ErrDistributorInvariant, c.root)
	}
	return nil
}

// ContainsPackage reports whether spec is installed.
func (c *Cache) ContainsPackage(spec ident.Specifier) (bool, error) {
	_, ok, err := c.ResolvePackage(spec)
	return ok, err
}

// ResolvePackage returns the installed directory of spec.
func (c *Cache) ResolvePackage(spec ident.Specifier) (string, bool, error) {
	if !spec.IsValid() {
		return "", false, fmt.Errorf("%w: invalid package specifier %q", ErrDistributorInvariant, spec)
	}
	path := spec.DirectoryPath(c.root)
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", false, nil
	case err != nil:
		return "", false, err
	case !info.IsDir():
		return "", false, nil
	}
	return path, true, nil
}

// DescribePackage reads the package.config of an installed package.
func (c *Cache) DescribePackage(spec ident.Specifier) (*zpk.Config, error) {
	path, ok, err := c.ResolvePackage(spec)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingPackage, spec)
	}
	data, err := os.ReadFile(filepath.Join(path, filepath.Base(zpk.ConfigPath)))
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", spec, err)
	}
	return zpk.ParseConfig(data)
}

// InstallPackageFile opens the archive at path and installs it.
func (c *Cache) InstallPackageFile(ctx context.Context, path string) (string, error) {
	r, err := zpk.Open(path)
	if err != nil {
		return "", err
	}
	return c.InstallPackage(ctx, r)
}

// InstallPackage extracts r into the cache and returns the installed
// directory. Installing a specifier that is already present fails with
// fs.ErrExist.
func (c *Cache) InstallPackage(ctx context.Context, r *zpk.Reader) (string, error) {
	if err := c.writable(); err != nil {
		return "", err
	}
	spec, err := r.ReadSpecifier()
	if err != nil {
		return "", err
	}

	v, err, _ := c.install.Do(spec.String(), func() (any, error) {
		x := zpk.NewExtractor(r,
			zpk.WithWorkingRoot(c.root),
			zpk.WithDestinationRoot(c.root),
			zpk.WithLinkMode(c.linkMode),
			zpk.WithExtractorLogger(c.logger),
		)
		path, err := x.Extract(ctx)
		if err != nil {
			return "", err
		}
		if err := c.index.record(ctx, Record{
			Specifier:   spec,
			Digest:      r.Digest(),
			Size:        r.Size(),
			InstalledAt: c.now(),
		}); err != nil {
			return "", err
		}
		c.log().Info("installed package", "specifier", spec, "path", path)
		return path, nil
	})
	if err != nil {
		return "", err
	}
	path, _ := v.(string) //nolint:errcheck // always a string
	return path, nil
}

// RemovePackage deletes the installed tree of spec.
func (c *Cache) RemovePackage(ctx context.Context, spec ident.Specifier) error {
	if err := c.writable(); err != nil {
		return err
	}
	path, ok, err := c.ResolvePackage(spec)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingPackage, spec)
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("remove %s: %w", spec, err)
	}
	c.log().Info("removed package", "specifier", spec)
	return c.index.remove(ctx, spec)
}

// Installed returns the index record of spec.
func (c *Cache) Installed(ctx context.Context, spec ident.Specifier) (Record, bool, error) {
	if c.index == nil {
		return Record{}, false, nil
	}
	return c.index.lookup(ctx, spec)
}

// Packages yields every package installed under the root, walking the
// domain, name and version directories in lexical order. Directories that do not form a valid
// specifier, such as staging directories, are skipped.
func (c *Cache) Packages() iter.Seq2[ident.Specifier, error] {
	return func(yield func(ident.Specifier, error) bool) {
		domains, err := readDirs(c.root)
		if err != nil {
			yield(ident.Specifier{}, err)
			return
		}
		for _, domain := range domains {
			names, err := readDirs(filepath.Join(c.root, domain))
			if err != nil {
				if !yield(ident.Specifier{}, err) {
					return
				}
				continue
			}
			for _, name := range names {
				versions, err := readDirs(filepath.Join(c.root, domain, name))
				if err != nil {
					if !yield(ident.Specifier{}, err) {
						return
					}
					continue
				}
				for _, version := range versions {
					spec, err := ident.ParseRelativeDir(filepath.Join(domain, name, version))
					if err != nil {
						continue
					}
					if !yield(spec, nil) {
						return
					}
				}
			}
		}
	}
}

// readDirs returns the sorted names of the directories in dir.
func readDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}
