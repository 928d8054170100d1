package cache

import (
	"cmp"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/zuri-dev/zpk/ident"
)

type packageEntry struct {
	spec    ident.Specifier
	path    string
	size    int64
	modTime time.Time
}

// Size returns the total size of the regular files in installed packages.
func (c *Cache) Size() (int64, error) {
	entries, err := c.entries()
	if err != nil {
		return 0, err
	}
	var total int64
	for _, e := range entries {
		total += e.size
	}
	return total, nil
}

// Prune removes whole packages, least recently modified first, until the
// installed size is at most targetBytes. It returns the bytes freed.
func (c *Cache) Prune(ctx context.Context, targetBytes int64) (int64, error) {
	if err := c.writable(); err != nil {
		return 0, err
	}
	targetBytes = max(targetBytes, 0)

	entries, err := c.entries()
	if err != nil {
		return 0, err
	}
	var remaining int64
	for _, e := range entries {
		remaining += e.size
	}
	if remaining <= targetBytes {
		return 0, nil
	}

	slices.SortFunc(entries, func(a, b packageEntry) int {
		if !a.modTime.Equal(b.modTime) {
			return a.modTime.Compare(b.modTime)
		}
		return cmp.Compare(a.path, b.path)
	})

	var freed int64
	for _, e := range entries {
		if remaining <= targetBytes {
			break
		}
		if err := ctx.Err(); err != nil {
			return freed, err
		}
		if err := os.RemoveAll(e.path); err != nil {
			return freed, err
		}
		if err := c.index.remove(ctx, e.spec); err != nil {
			return freed, err
		}
		c.log().Debug("pruned package", "specifier", e.spec, "size", e.size)
		remaining -= e.size
		freed += e.size
	}
	return freed, nil
}

func (c *Cache) entries() ([]packageEntry, error) {
	var entries []packageEntry
	for spec, err := range c.Packages() {
		if err != nil {
			return nil, err
		}
		path := spec.DirectoryPath(c.root)
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		size, err := dirSize(path)
		if err != nil {
			return nil, err
		}
		entries = append(entries, packageEntry{spec: spec, path: path, size: size, modTime: info.ModTime()})
	}
	return entries, nil
}

func dirSize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	return total, err
}
