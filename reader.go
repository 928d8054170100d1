package zpk

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"

	"github.com/zuri-dev/zpk/ident"
	"github.com/zuri-dev/zpk/manifest"
	"github.com/zuri-dev/zpk/requirement"
)

// DefaultMaxDecoderMemory bounds the decompressed content region.
const DefaultMaxDecoderMemory = 1 << 30

// Reader is a validated, read-only view of one archive. File contents are
// returned as slices of the archive buffer and must not be modified.
//
// Reader is safe for concurrent use.
type Reader struct {
	data             []byte
	header           header
	manifest         *manifest.Manifest
	content          []byte
	digest           func() digest.Digest
	maxDecoderMemory uint64
	logger           *slog.Logger
}

// Open reads and validates the archive at path.
func Open(path string, opts ...ReaderOption) (*Reader, error) {
	data, err := os.ReadFile(path) //nolint:gosec // caller chooses the archive
	if err != nil {
		return nil, fmt.Errorf("read package: %w", err)
	}
	return NewReader(data, opts...)
}

// NewReader validates data as an archive. The slice is retained.
func NewReader(data []byte, opts ...ReaderOption) (*Reader, error) {
	r := &Reader{
		data:             data,
		maxDecoderMemory: DefaultMaxDecoderMemory,
	}
	for _, opt := range opts {
		opt(r)
	}

	h, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	r.header = h

	end := HeaderSize + int(h.manifestSize)
	m, err := manifest.Load(data[HeaderSize:end:end])
	if err != nil {
		return nil, err
	}
	r.manifest = m

	r.content = data[end:]
	if h.flags&FlagZstd != 0 {
		if r.content, err = r.decompress(r.content); err != nil {
			return nil, err
		}
	}
	r.digest = sync.OnceValue(func() digest.Digest {
		return digest.FromBytes(r.data)
	})

	r.log().Debug("package opened",
		"entries", m.Walker().NumEntries(),
		"content", len(r.content),
		"flags", uint8(h.flags),
	)
	return r, nil
}

// log returns the logger, falling back to a discard logger if nil.
func (r *Reader) log() *slog.Logger {
	if r.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.logger
}

func (r *Reader) decompress(src []byte) ([]byte, error) {
	opts := []zstd.DOption{zstd.WithDecoderConcurrency(1)}
	if r.maxDecoderMemory > 0 {
		opts = append(opts, zstd.WithDecoderMaxMemory(r.maxDecoderMemory))
	}
	dec, err := zstd.NewReader(nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecompression, err)
	}
	defer dec.Close()
	out, err := dec.DecodeAll(src, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecompression, err)
	}
	return out, nil
}

// Version returns the archive format version.
func (r *Reader) Version() uint8 {
	return r.header.version
}

// Flags returns the archive feature flags.
func (r *Reader) Flags() Flags {
	return r.header.flags
}

// Manifest returns the archive manifest.
func (r *Reader) Manifest() *manifest.Manifest {
	return r.manifest
}

// Walker returns a walker over the archive manifest.
func (r *Reader) Walker() manifest.Walker {
	return r.manifest.Walker()
}

// Digest returns the sha256 digest of the archive bytes.
func (r *Reader) Digest() digest.Digest {
	return r.digest()
}

// Size returns the archive size in bytes.
func (r *Reader) Size() int64 {
	return int64(len(r.data))
}

// Bytes returns the archive bytes.
func (r *Reader) Bytes() []byte {
	return r.data
}

// FileContents returns the bytes of the File entry at path. With
// followLinks, Link entries are resolved first.
func (r *Reader) FileContents(path string, followLinks bool) ([]byte, error) {
	e, err := r.resolve(path, followLinks)
	if err != nil {
		return nil, err
	}
	return r.contents(e)
}

// FileSize returns the size of the File entry at path.
func (r *Reader) FileSize(path string, followLinks bool) (uint64, error) {
	e, err := r.resolve(path, followLinks)
	if err != nil {
		return 0, err
	}
	if e.Type() != manifest.EntryFile {
		return 0, fmt.Errorf("%w: %s is a %s", ErrInvalidManifest, e.Path(), e.Type())
	}
	return e.Size(), nil
}

func (r *Reader) resolve(path string, followLinks bool) (manifest.EntryWalker, error) {
	e := r.manifest.Walker().Lookup(path)
	if !e.Valid() {
		return e, fmt.Errorf("%w: %s", ErrMissingEntry, path)
	}
	if followLinks && e.Type() == manifest.EntryLink {
		target := e.ResolveLink()
		if !target.Valid() {
			return target, fmt.Errorf("%w: %s", ErrLinkRecursion, path)
		}
		e = target
	}
	return e, nil
}

// contents slices the content region for a File entry.
func (r *Reader) contents(e manifest.EntryWalker) ([]byte, error) {
	if e.Type() != manifest.EntryFile {
		return nil, fmt.Errorf("%w: %s is a %s", ErrInvalidManifest, e.Path(), e.Type())
	}
	off, size := e.Offset(), e.Size()
	total := uint64(len(r.content))
	if off > total || size > total-off {
		return nil, fmt.Errorf("%w: %s content [%d, +%d) exceeds %d bytes", ErrInvalidManifest, e.Path(), off, size, total)
	}
	return r.content[off : off+size : off+size], nil
}

// ReadConfig parses /package.config.
func (r *Reader) ReadConfig() (*Config, error) {
	data, err := r.FileContents(ConfigPath, true)
	if err != nil {
		if errors.Is(err, ErrMissingEntry) {
			return nil, ErrMissingConfig
		}
		return nil, err
	}
	return ParseConfig(data)
}

// ReadSpecifier returns the specifier recorded in /package.config.
func (r *Reader) ReadSpecifier() (ident.Specifier, error) {
	c, err := r.ReadConfig()
	if err != nil {
		return ident.Specifier{}, err
	}
	return c.Specifier(), nil
}

// ReadRequirements returns the dependencies recorded in /package.config.
func (r *Reader) ReadRequirements() ([]requirement.Dependency, error) {
	c, err := r.ReadConfig()
	if err != nil {
		return nil, err
	}
	return c.Requirements, nil
}
