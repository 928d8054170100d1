package zpk

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/zuri-dev/zpk/ident"
	"github.com/zuri-dev/zpk/internal/pathutil"
	"github.com/zuri-dev/zpk/manifest"
	"github.com/zuri-dev/zpk/requirement"
)

// FilesystemNamespace is the attr namespace for filesystem metadata.
const FilesystemNamespace = "dev.zuri.fs"

// ModeAttr records the permission bits of a File entry.
var ModeAttr = manifest.UInt32Key(FilesystemNamespace, 1)

type pendingFile struct {
	addr manifest.EntryAddress
	data []byte
}

// Writer declares the entries of one package and writes them as an archive.
//
// Declaration calls return errors immediately and perform no rollback; a
// Writer that returned an error must be discarded. After WritePackage
// succeeds every further call fails with ErrPackageInvariant.
//
// Writer is not safe for concurrent use.
type Writer struct {
	spec         ident.Specifier
	installRoot  string
	skipConfig   bool
	overwrite    bool
	compression  Compression
	requirements []requirement.Dependency
	description  string
	logger       *slog.Logger

	builder    *manifest.Builder
	root       manifest.EntryAddress
	files      []pendingFile
	configured bool
	hasConfig  bool
	finished   bool
}

// NewWriter returns a Writer for the package spec.
func NewWriter(spec ident.Specifier, opts ...WriterOption) *Writer {
	w := &Writer{
		spec:        spec,
		installRoot: ".",
		builder:     manifest.NewBuilder(),
		root:        manifest.InvalidEntry,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// log returns the logger, falling back to a discard logger if nil.
func (w *Writer) log() *slog.Logger {
	if w.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return w.logger
}

// Configure creates the root Package entry. Declaration calls run it
// implicitly; calling it a second time is an error.
func (w *Writer) Configure() error {
	if w.configured {
		return fmt.Errorf("%w: writer already configured", ErrPackageInvariant)
	}
	if !w.spec.IsValid() {
		return fmt.Errorf("%w: %q", ident.ErrInvalidSpecifier, w.spec)
	}
	root, err := w.builder.AppendEntry(manifest.EntryPackage, pathutil.Root)
	if err != nil {
		return err
	}
	w.root = root
	w.configured = true
	return nil
}

func (w *Writer) ready() error {
	if w.finished {
		return fmt.Errorf("%w: package already written", ErrPackageInvariant)
	}
	if !w.configured {
		return w.Configure()
	}
	return nil
}

// Root returns the address of the root Package entry.
func (w *Writer) Root() (manifest.EntryAddress, error) {
	if err := w.ready(); err != nil {
		return manifest.InvalidEntry, err
	}
	return w.root, nil
}

// Lookup returns the address of the entry declared at path.
func (w *Writer) Lookup(path string) (manifest.EntryAddress, bool) {
	return w.builder.Lookup(path)
}

// MakeDirectory declares a Directory entry at path and returns its address.
//
// Every existing component of path must be a Directory (or the root).
// Missing ancestors are declared when createIntermediate is true and are an
// error otherwise. An existing Directory at path is returned as is.
func (w *Writer) MakeDirectory(path string, createIntermediate bool) (manifest.EntryAddress, error) {
	if err := w.ready(); err != nil {
		return manifest.InvalidEntry, err
	}
	clean, ok := pathutil.Clean(path)
	if !ok {
		return manifest.InvalidEntry, fmt.Errorf("%w: invalid path %q", ErrPackageInvariant, path)
	}

	cur := w.root
	segments := pathutil.Segments(clean)
	for i, name := range segments {
		next, exists := w.builder.Child(cur, name)
		if exists {
			if w.builder.EntryType(next) != manifest.EntryDirectory {
				return manifest.InvalidEntry, fmt.Errorf("%w: %s is a %s", ErrPackageInvariant,
					w.builder.EntryPath(next), w.builder.EntryType(next))
			}
			cur = next
			continue
		}
		if i < len(segments)-1 && !createIntermediate {
			return manifest.InvalidEntry, fmt.Errorf("%w: missing parent directory %s", ErrPackageInvariant,
				pathutil.Join(w.builder.EntryPath(cur), name))
		}
		addr, err := w.builder.AppendEntry(manifest.EntryDirectory, pathutil.Join(w.builder.EntryPath(cur), name))
		if err != nil {
			return manifest.InvalidEntry, err
		}
		cur = addr
	}
	return cur, nil
}

// MakeChildDirectory declares a Directory entry called name below parent.
func (w *Writer) MakeChildDirectory(parent manifest.EntryAddress, name string) (manifest.EntryAddress, error) {
	path, err := w.childPath(parent, name)
	if err != nil {
		return manifest.InvalidEntry, err
	}
	if addr, ok := w.builder.Lookup(path); ok && w.builder.EntryType(addr) == manifest.EntryDirectory {
		return addr, nil
	}
	return w.builder.AppendEntry(manifest.EntryDirectory, path)
}

// PutFile declares a File entry at path holding data. The parent must be
// declared and the path must be free. data is retained until WritePackage
// and must not be modified.
func (w *Writer) PutFile(path string, data []byte) (manifest.EntryAddress, error) {
	if err := w.ready(); err != nil {
		return manifest.InvalidEntry, err
	}
	addr, err := w.builder.AppendEntry(manifest.EntryFile, path)
	if err != nil {
		return manifest.InvalidEntry, err
	}
	w.files = append(w.files, pendingFile{addr: addr, data: data})
	return addr, nil
}

// PutChildFile declares a File entry called name below parent.
func (w *Writer) PutChildFile(parent manifest.EntryAddress, name string, data []byte) (manifest.EntryAddress, error) {
	path, err := w.childPath(parent, name)
	if err != nil {
		return manifest.InvalidEntry, err
	}
	return w.PutFile(path, data)
}

func (w *Writer) childPath(parent manifest.EntryAddress, name string) (string, error) {
	if err := w.ready(); err != nil {
		return "", err
	}
	if !pathutil.ValidName(name) {
		return "", fmt.Errorf("%w: invalid name %q", ErrPackageInvariant, name)
	}
	typ := w.builder.EntryType(parent)
	if !typ.IsContainer() {
		return "", fmt.Errorf("%w: parent %d is a %s", ErrPackageInvariant, parent, typ)
	}
	return pathutil.Join(w.builder.EntryPath(parent), name), nil
}

// LinkToTarget declares a Link entry at path pointing at target.
//
// The target must already be declared. Links to links are allowed as long
// as the chain reaches a File or Directory within manifest.MaxLinkRecursion
// hops. No bytes are copied.
func (w *Writer) LinkToTarget(path string, target manifest.EntryAddress) (manifest.EntryAddress, error) {
	if err := w.ready(); err != nil {
		return manifest.InvalidEntry, err
	}
	// The new link adds one hop to the chain below target.
	final := target
	for hops := 1; w.builder.EntryType(final) == manifest.EntryLink; hops++ {
		if hops == manifest.MaxLinkRecursion {
			return manifest.InvalidEntry, fmt.Errorf("%w: %s", ErrLinkRecursion, w.builder.EntryPath(target))
		}
		final = w.builder.EntryLink(final)
	}
	switch typ := w.builder.EntryType(final); typ {
	case manifest.EntryFile, manifest.EntryDirectory:
	case manifest.EntryInvalid:
		return manifest.InvalidEntry, fmt.Errorf("%w: link target %d does not exist", ErrPackageInvariant, target)
	default:
		return manifest.InvalidEntry, fmt.Errorf("%w: cannot link to %s %s", ErrPackageInvariant, typ, w.builder.EntryPath(final))
	}

	addr, err := w.builder.AppendEntry(manifest.EntryLink, path)
	if err != nil {
		return manifest.InvalidEntry, err
	}
	if err := w.builder.SetEntryLink(addr, target); err != nil {
		return manifest.InvalidEntry, err
	}
	return addr, nil
}

// PutAttr attaches a typed attr to a declared entry.
func PutAttr[T any](w *Writer, entry manifest.EntryAddress, key manifest.AttrKey[T], value T) (manifest.AttrAddress, error) {
	if err := w.ready(); err != nil {
		return manifest.InvalidAttr, err
	}
	return manifest.PutAttr(w.builder, entry, key, value)
}

// WritePackage lays out the content region, serializes the manifest and
// writes the archive to installRoot/<filesystem name>.zpk. It returns the
// path written.
//
// The file is written to a temporary name and moved into place once
// complete. Unless WithOverwrite was given, an existing archive is left
// untouched and fs.ErrExist is returned. A failed call leaves the Writer open,
// so WritePackage may be retried.
func (w *Writer) WritePackage(ctx context.Context) (string, error) {
	data, err := w.encode(ctx)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(w.installRoot, 0o755); err != nil {
		return "", fmt.Errorf("create install root: %w", err)
	}
	target := w.spec.ArchivePath(w.installRoot)
	if err := writeFileAtomic(target, data, w.overwrite); err != nil {
		return "", fmt.Errorf("write package %s: %w", w.spec, err)
	}
	w.finished = true
	w.log().Debug("package written", "specifier", w.spec.String(), "path", target, "size", len(data))
	return target, nil
}

// Encode lays out the archive exactly like WritePackage but returns the
// bytes instead of writing them.
func (w *Writer) Encode(ctx context.Context) ([]byte, error) {
	data, err := w.encode(ctx)
	if err != nil {
		return nil, err
	}
	w.finished = true
	return data, nil
}

func (w *Writer) encode(ctx context.Context) ([]byte, error) {
	if err := w.ready(); err != nil {
		return nil, err
	}
	if !w.skipConfig && !w.hasConfig {
		cfg, err := NewConfig(w.spec, w.description, w.requirements).Marshal()
		if err != nil {
			return nil, fmt.Errorf("encode package config: %w", err)
		}
		if _, err := w.PutFile(ConfigPath, cfg); err != nil {
			return nil, err
		}
		w.hasConfig = true
	}

	var content bytes.Buffer
	for _, f := range w.files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		offset := uint64(content.Len())
		if err := w.builder.SetEntryContent(f.addr, offset, uint64(len(f.data))); err != nil {
			return nil, err
		}
		content.Write(f.data)
	}

	m, err := w.builder.ToManifest()
	if err != nil {
		return nil, fmt.Errorf("serialize manifest: %w", err)
	}

	region := content.Bytes()
	if w.compression == CompressionZstd {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		region = enc.EncodeAll(region, nil)
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("close zstd encoder: %w", err)
		}
	}

	mb := m.Bytes()
	out := make([]byte, 0, HeaderSize+len(mb)+len(region))
	out = header{
		version:      FormatVersion,
		flags:        w.compression.flags(),
		manifestSize: uint32(len(mb)), //nolint:gosec // manifests are far below 4GiB
	}.append(out)
	out = append(out, mb...)
	out = append(out, region...)

	w.log().Debug("package encoded",
		"specifier", w.spec.String(),
		"entries", w.builder.NumEntries(),
		"files", len(w.files),
		"content", content.Len(),
		"compression", w.compression.String(),
	)
	return out, nil
}

// PutTree declares every directory and regular file below srcDir at the
// matching path below dest, recording permission bits in ModeAttr.
// Symbolic links are rejected with ErrSymlink.
func (w *Writer) PutTree(ctx context.Context, srcDir, dest string) error {
	root, err := os.OpenRoot(srcDir)
	if err != nil {
		return err
	}
	defer root.Close()

	base, err := w.MakeDirectory(dest, true)
	if err != nil {
		return err
	}
	basePath := w.builder.EntryPath(base)

	return fs.WalkDir(root.FS(), ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if name == "." {
			return nil
		}
		entryPath := pathutil.Join(basePath, filepath.ToSlash(name))
		switch {
		case d.Type()&fs.ModeSymlink != 0:
			return fmt.Errorf("%w: %s", ErrSymlink, name)
		case d.IsDir():
			_, err := w.MakeDirectory(entryPath, false)
			return err
		case !d.Type().IsRegular():
			w.log().Debug("skipping irregular file", "path", name)
			return nil
		}

		data, info, err := readFileNoFollow(root, name)
		if err != nil {
			return err
		}
		addr, err := w.PutFile(entryPath, data)
		if err != nil {
			return err
		}
		_, err = PutAttr(w, addr, ModeAttr, uint32(info.Mode().Perm()))
		return err
	})
}

func readFileNoFollow(root *os.Root, name string) ([]byte, fs.FileInfo, error) {
	f, err := openFileNoFollow(root, name)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	var buf bytes.Buffer
	buf.Grow(int(info.Size()))
	if _, err := buf.ReadFrom(f); err != nil {
		return nil, nil, err
	}
	return buf.Bytes(), info, nil
}

// writeFileAtomic writes data to a temp file in the target directory then
// moves it into place. Without overwrite the move is a hard link, which
// fails if target already exists.
func writeFileAtomic(target string, data []byte, overwrite bool) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".zpk-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if overwrite {
		return os.Rename(tmpPath, target)
	}
	if err := os.Link(tmpPath, target); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return err
		}
		// Filesystems without hard links fall back to check-then-rename.
		if _, statErr := os.Lstat(target); statErr == nil {
			return &fs.PathError{Op: "create", Path: target, Err: fs.ErrExist}
		}
		return os.Rename(tmpPath, target)
	}
	return os.Remove(tmpPath)
}
