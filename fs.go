package zpk

import (
	"bytes"
	"io"
	"io/fs"
	"slices"
	"time"

	"github.com/zuri-dev/zpk/internal/pathutil"
	"github.com/zuri-dev/zpk/manifest"
)

// Interface compliance.
var (
	_ fs.FS         = (*Reader)(nil)
	_ fs.StatFS     = (*Reader)(nil)
	_ fs.ReadFileFS = (*Reader)(nil)
	_ fs.ReadDirFS  = (*Reader)(nil)
)

// Open implements fs.FS. Names are slash-separated and relative to the
// package root, which is ".". Links are followed.
func (r *Reader) Open(name string) (fs.File, error) {
	e, err := r.lookupFS("open", name)
	if err != nil {
		return nil, err
	}
	info := r.info(e, pathutil.Base(name))
	if info.IsDir() {
		return &openDir{r: r, entry: e, info: info}, nil
	}
	content, err := r.contents(e)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	return &openFile{Reader: bytes.NewReader(content), info: info}, nil
}

// Stat implements fs.StatFS.
func (r *Reader) Stat(name string) (fs.FileInfo, error) {
	e, err := r.lookupFS("stat", name)
	if err != nil {
		return nil, err
	}
	return r.info(e, pathutil.Base(name)), nil
}

// ReadFile implements fs.ReadFileFS. The returned slice is a copy.
func (r *Reader) ReadFile(name string) ([]byte, error) {
	e, err := r.lookupFS("readfile", name)
	if err != nil {
		return nil, err
	}
	content, err := r.contents(e)
	if err != nil {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: err}
	}
	return slices.Clone(content), nil
}

// ReadDir implements fs.ReadDirFS. Entries are sorted by name.
func (r *Reader) ReadDir(name string) ([]fs.DirEntry, error) {
	e, err := r.lookupFS("readdir", name)
	if err != nil {
		return nil, err
	}
	if !e.Type().IsContainer() {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	return r.dirEntries(e), nil
}

func (r *Reader) lookupFS(op, name string) (manifest.EntryWalker, error) {
	if !fs.ValidPath(name) {
		return manifest.EntryWalker{}, &fs.PathError{Op: op, Path: name, Err: fs.ErrInvalid}
	}
	if name == "." {
		name = pathutil.Root
	}
	e, err := r.resolve(name, true)
	if err != nil {
		return e, &fs.PathError{Op: op, Path: name, Err: fs.ErrNotExist}
	}
	return e, nil
}

func (r *Reader) dirEntries(e manifest.EntryWalker) []fs.DirEntry {
	entries := make([]fs.DirEntry, 0, e.NumChildren())
	for child := range e.Children() {
		target := child
		if child.Type() == manifest.EntryLink {
			target = child.ResolveLink()
		}
		entries = append(entries, fs.FileInfoToDirEntry(r.info(target, child.Name())))
	}
	return entries
}

// info describes e under the given name. Dangling links report as
// symlinks of size zero.
func (r *Reader) info(e manifest.EntryWalker, name string) *fileInfo {
	fi := &fileInfo{name: name}
	switch e.Type() {
	case manifest.EntryDirectory, manifest.EntryPackage:
		fi.mode = fs.ModeDir | 0o755
	case manifest.EntryFile:
		fi.size = int64(e.Size()) //nolint:gosec // bounded by the content region
		fi.mode = 0o644
		if mode, err := manifest.ParseAttr(e, ModeAttr); err == nil {
			fi.mode = fs.FileMode(mode).Perm()
		}
	default:
		fi.mode = fs.ModeSymlink | 0o777
	}
	return fi
}

// fileInfo implements fs.FileInfo for manifest entries.
type fileInfo struct {
	name string
	size int64
	mode fs.FileMode
}

func (fi *fileInfo) Name() string       { return fi.name }
func (fi *fileInfo) Size() int64        { return fi.size }
func (fi *fileInfo) Mode() fs.FileMode  { return fi.mode }
func (fi *fileInfo) ModTime() time.Time { return time.Time{} }
func (fi *fileInfo) IsDir() bool        { return fi.mode.IsDir() }
func (fi *fileInfo) Sys() any           { return nil }

// openFile implements fs.File over a content slice.
type openFile struct {
	*bytes.Reader
	info *fileInfo
}

func (f *openFile) Stat() (fs.FileInfo, error) { return f.info, nil }
func (f *openFile) Close() error               { return nil }

// openDir implements fs.ReadDirFile for Directory and Package entries.
type openDir struct {
	r       *Reader
	entry   manifest.EntryWalker
	info    *fileInfo
	entries []fs.DirEntry
	read    bool
}

func (d *openDir) Read(_ []byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.info.name, Err: fs.ErrInvalid}
}

func (d *openDir) Stat() (fs.FileInfo, error) { return d.info, nil }
func (d *openDir) Close() error               { return nil }

func (d *openDir) ReadDir(n int) ([]fs.DirEntry, error) {
	if !d.read {
		d.entries = d.r.dirEntries(d.entry)
		d.read = true
	}
	if n <= 0 {
		out := d.entries
		d.entries = nil
		return out, nil
	}
	if len(d.entries) == 0 {
		return nil, io.EOF
	}
	n = min(n, len(d.entries))
	out := d.entries[:n:n]
	d.entries = d.entries[n:]
	return out, nil
}
