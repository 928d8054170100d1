// Package manifest builds and reads the FlatBuffers manifest stored at the
// head of every zpk archive.
//
// A manifest is a tree of entries rooted at the Package entry "/". Entries
// reference each other by address (their index in the entries vector), carry
// typed attrs scoped by namespace url, and locate file bytes as an offset and
// size inside the archive's content region.
//
// Use a Builder to declare entries and ToManifest to serialize them. Load
// verifies serialized bytes before any accessor touches them, so walkers over
// a loaded Manifest never index outside the buffer.
package manifest

import (
	"fmt"

	"github.com/zuri-dev/zpk/internal/fb"
	"github.com/zuri-dev/zpk/internal/pathutil"
)

// Manifest is an immutable, verified manifest buffer.
type Manifest struct {
	data []byte
	root *fb.Manifest
}

// Load verifies data and wraps it as a Manifest. The slice is retained,
// not copied; callers must not modify it afterwards.
func Load(data []byte) (m *Manifest, err error) {
	if !fb.ManifestBufferHasIdentifier(data) {
		return nil, fmt.Errorf("%w: missing %q identifier", ErrInvalidManifest, fb.ManifestIdentifier)
	}

	// Generated accessors index the buffer without bounds checks of their
	// own. verify touches every field once, so a malformed buffer panics here
	// and nowhere else.
	defer func() {
		if r := recover(); r != nil {
			m = nil
			err = fmt.Errorf("%w: %v", ErrInvalidManifest, r)
		}
	}()

	root := fb.GetRootAsManifest(data, 0)
	if err := verify(root, len(data)); err != nil {
		return nil, err
	}
	return &Manifest{data: data, root: root}, nil
}

// Bytes returns the serialized manifest.
func (m *Manifest) Bytes() []byte {
	return m.data
}

// Walker returns a walker over m.
func (m *Manifest) Walker() Walker {
	return Walker{m: m}
}

func verify(root *fb.Manifest, size int) error {
	if abi := root.Abi(); abi != fb.ManifestVersionVersion1 {
		return fmt.Errorf("%w: unsupported abi %d", ErrInvalidManifest, abi)
	}

	numNamespaces := root.NamespacesLength()
	numAttrs := root.AttrsLength()
	numEntries := root.EntriesLength()
	numPaths := root.PathsLength()
	for _, n := range []int{numNamespaces, numAttrs, numEntries, numPaths} {
		if n*4 > size {
			return fmt.Errorf("%w: vector length %d exceeds buffer", ErrInvalidManifest, n)
		}
	}

	var ns fb.NamespaceDescriptor
	for i := range numNamespaces {
		root.Namespaces(&ns, i)
		_ = ns.NsUrl()
	}

	var attr fb.AttrDescriptor
	for i := range numAttrs {
		root.Attrs(&attr, i)
		if int64(attr.AttrNs()) >= int64(numNamespaces) {
			return fmt.Errorf("%w: attr %d references namespace %d", ErrInvalidManifest, i, attr.AttrNs())
		}
		if attr.ValueType() > fb.ValueTypeString {
			return fmt.Errorf("%w: attr %d has value type %d", ErrInvalidManifest, i, attr.ValueType())
		}
		_, _, _ = attr.AttrType(), attr.Scalar(), attr.Str()
	}

	paths := make([]string, numEntries)
	var entry fb.EntryDescriptor
	for i := range numEntries {
		root.Entries(&entry, i)
		p := string(entry.Path())
		if clean, ok := pathutil.Clean(p); !ok || clean != p {
			return fmt.Errorf("%w: entry %d has path %q", ErrInvalidManifest, i, p)
		}
		paths[i] = p
		if !EntryType(entry.EntryType()).valid() {
			return fmt.Errorf("%w: entry %d has type %d", ErrInvalidManifest, i, entry.EntryType())
		}
		if n := entry.EntryAttrsLength(); n*4 > size {
			return fmt.Errorf("%w: entry %d attr vector exceeds buffer", ErrInvalidManifest, i)
		}
		for j := range entry.EntryAttrsLength() {
			if a := entry.EntryAttrs(j); int64(a) >= int64(numAttrs) {
				return fmt.Errorf("%w: entry %d references attr %d", ErrInvalidManifest, i, a)
			}
		}
		if n := entry.EntryChildrenLength(); n*4 > size {
			return fmt.Errorf("%w: entry %d child vector exceeds buffer", ErrInvalidManifest, i)
		}
		for j := range entry.EntryChildrenLength() {
			if c := entry.EntryChildren(j); int64(c) >= int64(numEntries) {
				return fmt.Errorf("%w: entry %d references child %d", ErrInvalidManifest, i, c)
			}
		}
		if l := entry.EntryLink(); l != InvalidAddress && int64(l) >= int64(numEntries) {
			return fmt.Errorf("%w: entry %d links to %d", ErrInvalidManifest, i, l)
		}
		_, _, _ = entry.EntryOffset(), entry.EntrySize(), entry.EntryDict()
	}

	// Children must sit directly below their parent. Paths are unique, so
	// this also rules out cycles.
	for i := range numEntries {
		root.Entries(&entry, i)
		for j := range entry.EntryChildrenLength() {
			c := entry.EntryChildren(j)
			if pathutil.Parent(paths[c]) != paths[i] {
				return fmt.Errorf("%w: entry %s is not a child of %s", ErrInvalidManifest, paths[c], paths[i])
			}
		}
	}

	if numPaths != numEntries {
		return fmt.Errorf("%w: %d path keys for %d entries", ErrInvalidManifest, numPaths, numEntries)
	}
	var key fb.PathDescriptor
	prev := ""
	for i := range numPaths {
		root.Paths(&key, i)
		p := string(key.Path())
		if i > 0 && p <= prev {
			return fmt.Errorf("%w: path keys are not sorted at %q", ErrInvalidManifest, p)
		}
		e := key.Entry()
		if int64(e) >= int64(numEntries) || paths[e] != p {
			return fmt.Errorf("%w: path key %q does not match its entry", ErrInvalidManifest, p)
		}
		prev = p
	}

	if !root.PathsByKey(&key, pathutil.Root) {
		return fmt.Errorf("%w: missing root entry", ErrInvalidManifest)
	}
	root.Entries(&entry, int(key.Entry()))
	if !EntryType(entry.EntryType()).IsContainer() {
		return fmt.Errorf("%w: root entry is a %s", ErrInvalidManifest, EntryType(entry.EntryType()))
	}
	return nil
}
