// Package lock records which specifier each package id resolved to and
// when it was last checked against its source.
//
// The lock file is a CBOR document using Core Deterministic Encoding, so
// the same set of entries always produces identical bytes.
package lock

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/opencontainers/go-digest"

	"github.com/zuri-dev/zpk/ident"
)

// FormatVersion is the lock file layout version written by this package.
const FormatVersion = 1

var (
	// ErrInvalidLock is returned when a lock file cannot be decoded.
	ErrInvalidLock = errors.New("lock: invalid lock file")
	// ErrInvariant is returned for use after WriteAndClose and for entries
	// whose specifier does not match their id.
	ErrInvariant = errors.New("lock: invariant violated")
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	opts := cbor.CoreDetEncOptions()
	opts.TextMarshaler = cbor.TextMarshalerTextString
	if encMode, err = opts.EncMode(); err != nil {
		panic("lock: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("lock: CBOR decoder initialization failed: " + err.Error())
	}
}

// Entry is the locked state of one package id.
type Entry struct {
	Specifier   ident.Specifier
	LastChecked time.Time
	// Digest is the archive digest, when known.
	Digest digest.Digest
}

// EntryOption configures an entry update.
type EntryOption func(*Entry)

// WithDigest records the archive digest of the locked specifier.
func WithDigest(d digest.Digest) EntryOption {
	return func(e *Entry) {
		e.Digest = d
	}
}

type fileEntry struct {
	Specifier   ident.Specifier `cbor:"1,keyasint"`
	LastChecked int64           `cbor:"2,keyasint"`
	Digest      string          `cbor:"3,keyasint,omitempty"`
}

type file struct {
	Version  int                  `cbor:"1,keyasint"`
	Packages map[string]fileEntry `cbor:"2,keyasint"`
}

// Lock is an in-memory view of a lock file. It is not safe for concurrent
// use.
type Lock struct {
	path    string
	entries map[ident.PackageID]Entry
	closed  bool
}

// OpenOrCreate reads the lock file at path, or starts an empty lock if it
// does not exist. Nothing is written until WriteAndClose.
func OpenOrCreate(path string) (*Lock, error) {
	l := &Lock{path: path, entries: make(map[ident.PackageID]Entry)}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, err
	}

	var f file
	if err := decMode.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidLock, path, err)
	}
	if f.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %s: unsupported version %d", ErrInvalidLock, path, f.Version)
	}
	for key, fe := range f.Packages {
		id, err := ident.ParsePackageID(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidLock, path, err)
		}
		if fe.Specifier.ID != id || !fe.Specifier.IsValid() {
			return nil, fmt.Errorf("%w: %s: entry %s locks %s", ErrInvalidLock, path, id, fe.Specifier)
		}
		l.entries[id] = Entry{
			Specifier:   fe.Specifier,
			LastChecked: time.UnixMilli(fe.LastChecked),
			Digest:      digest.Digest(fe.Digest),
		}
	}
	return l, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Len returns the number of entries.
func (l *Lock) Len() int {
	return len(l.entries)
}

// HasEntry reports whether id is locked.
func (l *Lock) HasEntry(id ident.PackageID) bool {
	_, ok := l.entries[id]
	return ok
}

// Entry returns the entry for id.
func (l *Lock) Entry(id ident.PackageID) (Entry, bool) {
	e, ok := l.entries[id]
	return e, ok
}

// UpdateEntry locks id to spec, replacing any previous entry.
func (l *Lock) UpdateEntry(id ident.PackageID, spec ident.Specifier, lastChecked time.Time, opts ...EntryOption) error {
	if l.closed {
		return fmt.Errorf("%w: lock is closed", ErrInvariant)
	}
	if !spec.IsValid() || spec.ID != id {
		return fmt.Errorf("%w: cannot lock %s to %s", ErrInvariant, id, spec)
	}
	e := Entry{Specifier: spec, LastChecked: lastChecked}
	for _, opt := range opts {
		opt(&e)
	}
	if e.Digest != "" {
		if err := e.Digest.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvariant, err)
		}
	}
	l.entries[id] = e
	return nil
}

// RemoveEntry drops id from the lock. It reports whether id was present.
func (l *Lock) RemoveEntry(id ident.PackageID) (bool, error) {
	if l.closed {
		return false, fmt.Errorf("%w: lock is closed", ErrInvariant)
	}
	_, ok := l.entries[id]
	delete(l.entries, id)
	return ok, nil
}

// Entries yields the entries in package id order.
func (l *Lock) Entries() iter.Seq2[ident.PackageID, Entry] {
	return func(yield func(ident.PackageID, Entry) bool) {
		ids := slices.SortedFunc(maps.Keys(l.entries), ident.PackageID.Compare)
		for _, id := range ids {
			if !yield(id, l.entries[id]) {
				return
			}
		}
	}
}

// WriteAndClose writes every entry to the lock file in one atomic
// replace. The lock cannot be modified afterwards.
func (l *Lock) WriteAndClose() error {
	if l.closed {
		return fmt.Errorf("%w: lock is closed", ErrInvariant)
	}
	f := file{Version: FormatVersion, Packages: make(map[string]fileEntry, len(l.entries))}
	for id, e := range l.entries {
		f.Packages[id.String()] = fileEntry{
			Specifier:   e.Specifier,
			LastChecked: e.LastChecked.UnixMilli(),
			Digest:      e.Digest.String(),
		}
	}
	data, err := encMode.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode lock: %w", err)
	}
	if err := writeFileAtomic(l.path, data); err != nil {
		return err
	}
	l.closed = true
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write lock: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync lock: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close lock: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename lock: %w", err)
	}
	return nil
}
