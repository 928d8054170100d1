package zpk

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/zuri-dev/zpk/internal/pathutil"
	"github.com/zuri-dev/zpk/manifest"
)

// Default permissions for extracted entries.
const (
	DefaultDirectoryPerms fs.FileMode = 0o755
	DefaultFilePerms      fs.FileMode = 0o644
)

// Extractor materializes an archive below a destination root.
type Extractor struct {
	r               *Reader
	workingRoot     string
	destinationRoot string
	linkMode        LinkMode
	logger          *slog.Logger
}

// NewExtractor returns an Extractor for r.
func NewExtractor(r *Reader, opts ...ExtractorOption) *Extractor {
	x := &Extractor{
		r:               r,
		destinationRoot: ".",
	}
	for _, opt := range opts {
		opt(x)
	}
	if x.workingRoot == "" {
		x.workingRoot = x.destinationRoot
	}
	return x
}

// log returns the logger, falling back to a discard logger if nil.
func (x *Extractor) log() *slog.Logger {
	if x.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return x.logger
}

// Extract writes the package tree to destinationRoot/domain/name/version and
// returns that path.
//
// The tree is staged in a temporary directory below the working root:
// directories and files are created breadth first, then links are created
// once every target exists. The staged tree is renamed into place as the
// last step, so a failed extraction leaves nothing behind. An existing
// destination fails with fs.ErrExist.
func (x *Extractor) Extract(ctx context.Context) (string, error) {
	spec, err := x.r.ReadSpecifier()
	if err != nil {
		return "", err
	}
	dest := spec.DirectoryPath(x.destinationRoot)
	if _, err := os.Lstat(dest); err == nil {
		return "", &fs.PathError{Op: "extract", Path: dest, Err: fs.ErrExist}
	}

	if err := os.MkdirAll(x.workingRoot, DefaultDirectoryPerms); err != nil {
		return "", fmt.Errorf("create working root: %w", err)
	}
	tmp, err := os.MkdirTemp(x.workingRoot, spec.FilesystemName()+".*")
	if err != nil {
		return "", fmt.Errorf("create staging directory: %w", err)
	}
	if err := x.stage(ctx, tmp); err != nil {
		os.RemoveAll(tmp)
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(dest), DefaultDirectoryPerms); err != nil {
		os.RemoveAll(tmp)
		return "", fmt.Errorf("create destination: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.RemoveAll(tmp)
		if errors.Is(err, fs.ErrExist) {
			return "", &fs.PathError{Op: "extract", Path: dest, Err: fs.ErrExist}
		}
		return "", fmt.Errorf("move package into place: %w", err)
	}
	x.log().Debug("package extracted", "specifier", spec.String(), "path", dest)
	return dest, nil
}

func (x *Extractor) stage(ctx context.Context, dir string) error {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return err
	}
	defer root.Close()
	if err := os.Chmod(dir, DefaultDirectoryPerms); err != nil {
		return err
	}

	// Phase 1: containers in FIFO order, files as they are met.
	var links []manifest.EntryWalker
	queue := []manifest.EntryWalker{x.r.Walker().Root()}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		dirEntry := queue[0]
		queue = queue[1:]
		if dirEntry.Path() != pathutil.Root {
			if err := root.Mkdir(localPath(dirEntry.Path()), DefaultDirectoryPerms); err != nil {
				return err
			}
		}
		for child := range dirEntry.Children() {
			switch child.Type() {
			case manifest.EntryDirectory, manifest.EntryPackage:
				queue = append(queue, child)
			case manifest.EntryLink:
				links = append(links, child)
			case manifest.EntryFile:
				if err := x.writeFile(root, child); err != nil {
					return err
				}
			default:
				return fmt.Errorf("%w: %s has type %s", ErrInvalidManifest, child.Path(), child.Type())
			}
		}
	}

	// Phase 2: links, now that every target exists.
	for _, link := range links {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := x.writeLink(root, link); err != nil {
			return err
		}
	}
	return nil
}

func (x *Extractor) writeFile(root *os.Root, e manifest.EntryWalker) error {
	content, err := x.r.contents(e)
	if err != nil {
		return err
	}
	perm := DefaultFilePerms
	if mode, err := manifest.ParseAttr(e, ModeAttr); err == nil {
		perm = fs.FileMode(mode).Perm()
	}
	f, err := root.OpenFile(localPath(e.Path()), os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (x *Extractor) writeLink(root *os.Root, link manifest.EntryWalker) error {
	target := link.ResolveLink()
	if !target.Valid() {
		return fmt.Errorf("%w: %s", ErrLinkRecursion, link.Path())
	}
	name := localPath(link.Path())
	if x.linkMode == LinkHardlink && target.Type() == manifest.EntryFile {
		return root.Link(localPath(target.Path()), name)
	}
	rel, err := filepath.Rel(filepath.Dir(name), localPath(target.Path()))
	if err != nil {
		return err
	}
	return root.Symlink(rel, name)
}

// localPath converts an entry path to an OS path relative to the staging
// root.
func localPath(entryPath string) string {
	return filepath.FromSlash(pathutil.Rel(entryPath))
}
