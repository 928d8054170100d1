package manifest

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	flatbuffers "github.com/google/flatbuffers/go"

	"github.com/zuri-dev/zpk/internal/fb"
	"github.com/zuri-dev/zpk/internal/pathutil"
)

type namespaceState struct {
	url string
}

type attrState struct {
	id    AttrID
	value Value
}

type entryState struct {
	typ      EntryType
	path     string
	offset   uint64
	size     uint64
	dict     uint32
	link     EntryAddress
	attrs    map[AttrID]AttrAddress
	children map[string]EntryAddress
}

// Builder accumulates the namespaces, attrs and entries of one manifest.
//
// Addresses handed out by the builder are indices into its append-only
// arrays and equal the indices in the serialized manifest. Builder is not
// safe for concurrent use. After any error the builder must be discarded;
// failed calls leave the arrays unchanged but perform no rollback of
// earlier calls.
type Builder struct {
	namespaces []namespaceState
	nsIndex    map[string]NamespaceAddress
	attrs      []attrState
	entries    []entryState
	pathIndex  map[string]EntryAddress
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		nsIndex:   make(map[string]NamespaceAddress),
		pathIndex: make(map[string]EntryAddress),
	}
}

// PutNamespace returns the address of url, registering it if needed.
func (b *Builder) PutNamespace(url string) NamespaceAddress {
	if addr, ok := b.nsIndex[url]; ok {
		return addr
	}
	addr := NamespaceAddress(len(b.namespaces))
	b.namespaces = append(b.namespaces, namespaceState{url: url})
	b.nsIndex[url] = addr
	return addr
}

// AppendNamespace registers url, failing if it is already registered.
func (b *Builder) AppendNamespace(url string) (NamespaceAddress, error) {
	if _, ok := b.nsIndex[url]; ok {
		return InvalidNamespace, fmt.Errorf("%w: %q", ErrDuplicateNamespace, url)
	}
	return b.PutNamespace(url), nil
}

// AppendAttr appends an attr and returns its address. Attrs are never
// deduplicated.
func (b *Builder) AppendAttr(id AttrID, value Value) AttrAddress {
	addr := AttrAddress(len(b.attrs))
	b.attrs = append(b.attrs, attrState{id: id, value: value})
	return addr
}

// AppendEntry appends an entry at path and registers it as a child of its
// parent. The root path "/" (or "") has no parent. Every other path needs an
// existing Directory or Package parent.
func (b *Builder) AppendEntry(typ EntryType, path string) (EntryAddress, error) {
	if !typ.valid() {
		return InvalidEntry, fmt.Errorf("%w: invalid entry type %d", ErrPackageInvariant, typ)
	}
	clean, ok := pathutil.Clean(path)
	if !ok {
		return InvalidEntry, fmt.Errorf("%w: invalid entry path %q", ErrPackageInvariant, path)
	}
	if _, exists := b.pathIndex[clean]; exists {
		return InvalidEntry, fmt.Errorf("%w: %s", ErrDuplicateEntry, clean)
	}

	parent := InvalidEntry
	if clean != pathutil.Root {
		p, ok := b.pathIndex[pathutil.Parent(clean)]
		if !ok {
			return InvalidEntry, fmt.Errorf("%w: missing parent for %s", ErrPackageInvariant, clean)
		}
		if !b.entries[p].typ.IsContainer() {
			return InvalidEntry, fmt.Errorf("%w: parent of %s is a %s", ErrPackageInvariant, clean, b.entries[p].typ)
		}
		parent = p
	}

	addr := EntryAddress(len(b.entries))
	b.entries = append(b.entries, entryState{
		typ:  typ,
		path: clean,
		dict: InvalidAddress,
		link: InvalidEntry,
	})
	b.pathIndex[clean] = addr
	if parent.Valid() {
		pe := &b.entries[parent]
		if pe.children == nil {
			pe.children = make(map[string]EntryAddress)
		}
		pe.children[pathutil.Base(clean)] = addr
	}
	return addr, nil
}

func (b *Builder) entry(addr EntryAddress) (*entryState, error) {
	if int64(addr) >= int64(len(b.entries)) {
		return nil, fmt.Errorf("%w: entry address %d out of range", ErrPackageInvariant, addr)
	}
	return &b.entries[addr], nil
}

// PutEntryAttr attaches attr to entry. An entry carries at most one attr per
// AttrID.
func (b *Builder) PutEntryAttr(entry EntryAddress, attr AttrAddress) error {
	e, err := b.entry(entry)
	if err != nil {
		return err
	}
	if int64(attr) >= int64(len(b.attrs)) {
		return fmt.Errorf("%w: attr address %d out of range", ErrPackageInvariant, attr)
	}
	id := b.attrs[attr].id
	if _, exists := e.attrs[id]; exists {
		return fmt.Errorf("%w: %s has attr %d/%d", ErrDuplicateAttr, e.path, id.Namespace, id.Type)
	}
	if e.attrs == nil {
		e.attrs = make(map[AttrID]AttrAddress)
	}
	e.attrs[id] = attr
	return nil
}

// HasEntryAttr reports whether entry carries an attr with the given id.
func (b *Builder) HasEntryAttr(entry EntryAddress, id AttrID) bool {
	e, err := b.entry(entry)
	if err != nil {
		return false
	}
	_, ok := e.attrs[id]
	return ok
}

// SetEntryContent records the content range of a File entry.
func (b *Builder) SetEntryContent(entry EntryAddress, offset, size uint64) error {
	e, err := b.entry(entry)
	if err != nil {
		return err
	}
	e.offset = offset
	e.size = size
	return nil
}

// SetEntryLink records the target of a Link entry.
func (b *Builder) SetEntryLink(entry, target EntryAddress) error {
	e, err := b.entry(entry)
	if err != nil {
		return err
	}
	if _, err := b.entry(target); err != nil {
		return err
	}
	e.link = target
	return nil
}

// SetEntryDict records the dictionary address of an entry.
func (b *Builder) SetEntryDict(entry EntryAddress, dict uint32) error {
	e, err := b.entry(entry)
	if err != nil {
		return err
	}
	e.dict = dict
	return nil
}

// Lookup returns the address of the entry at path.
func (b *Builder) Lookup(path string) (EntryAddress, bool) {
	clean, ok := pathutil.Clean(path)
	if !ok {
		return InvalidEntry, false
	}
	addr, ok := b.pathIndex[clean]
	return addr, ok
}

// EntryType returns the type of the entry at addr, or EntryInvalid.
func (b *Builder) EntryType(addr EntryAddress) EntryType {
	e, err := b.entry(addr)
	if err != nil {
		return EntryInvalid
	}
	return e.typ
}

// EntryPath returns the path of the entry at addr, or "".
func (b *Builder) EntryPath(addr EntryAddress) string {
	e, err := b.entry(addr)
	if err != nil {
		return ""
	}
	return e.path
}

// EntryLink returns the link target of the entry at addr.
func (b *Builder) EntryLink(addr EntryAddress) EntryAddress {
	e, err := b.entry(addr)
	if err != nil {
		return InvalidEntry
	}
	return e.link
}

// Child returns the address of the child called name under parent.
func (b *Builder) Child(parent EntryAddress, name string) (EntryAddress, bool) {
	e, err := b.entry(parent)
	if err != nil {
		return InvalidEntry, false
	}
	addr, ok := e.children[name]
	return addr, ok
}

// NumEntries returns the number of entries.
func (b *Builder) NumEntries() int { return len(b.entries) }

// NumAttrs returns the number of attrs.
func (b *Builder) NumAttrs() int { return len(b.attrs) }

// NumNamespaces returns the number of namespaces.
func (b *Builder) NumNamespaces() int { return len(b.namespaces) }

// ToManifest serializes the builder into an immutable Manifest.
//
// Children are serialized sorted by name and a sorted path key vector is
// emitted for O(log n) path lookups.
func (b *Builder) ToManifest() (*Manifest, error) {
	data := b.serialize()
	return Load(data)
}

func (b *Builder) serialize() []byte {
	builder := flatbuffers.NewBuilder(1024)

	// Namespaces
	nsOffsets := make([]flatbuffers.UOffsetT, len(b.namespaces))
	for i, ns := range b.namespaces {
		url := builder.CreateString(ns.url)
		fb.NamespaceDescriptorStart(builder)
		fb.NamespaceDescriptorAddNsUrl(builder, url)
		nsOffsets[i] = fb.NamespaceDescriptorEnd(builder)
	}

	// Attrs
	attrOffsets := make([]flatbuffers.UOffsetT, len(b.attrs))
	for i, a := range b.attrs {
		var str flatbuffers.UOffsetT
		if a.value.kind == KindString {
			str = builder.CreateString(a.value.str)
		}
		fb.AttrDescriptorStart(builder)
		fb.AttrDescriptorAddAttrNs(builder, uint32(a.id.Namespace))
		fb.AttrDescriptorAddAttrType(builder, a.id.Type)
		fb.AttrDescriptorAddValueType(builder, fb.ValueType(a.value.kind))
		fb.AttrDescriptorAddScalar(builder, a.value.bits)
		if str != 0 {
			fb.AttrDescriptorAddStr(builder, str)
		}
		attrOffsets[i] = fb.AttrDescriptorEnd(builder)
	}

	// Entries
	entryOffsets := make([]flatbuffers.UOffsetT, len(b.entries))
	for i := range b.entries {
		e := &b.entries[i]
		path := builder.CreateString(e.path)

		attrs := slices.Sorted(maps.Values(e.attrs))
		fb.EntryDescriptorStartEntryAttrsVector(builder, len(attrs))
		for j := len(attrs) - 1; j >= 0; j-- {
			builder.PrependUint32(uint32(attrs[j]))
		}
		attrsVec := builder.EndVector(len(attrs))

		names := slices.Sorted(maps.Keys(e.children))
		fb.EntryDescriptorStartEntryChildrenVector(builder, len(names))
		for j := len(names) - 1; j >= 0; j-- {
			builder.PrependUint32(uint32(e.children[names[j]]))
		}
		childrenVec := builder.EndVector(len(names))

		fb.EntryDescriptorStart(builder)
		fb.EntryDescriptorAddPath(builder, path)
		fb.EntryDescriptorAddEntryType(builder, fb.EntryType(e.typ))
		fb.EntryDescriptorAddEntryAttrs(builder, attrsVec)
		fb.EntryDescriptorAddEntryChildren(builder, childrenVec)
		fb.EntryDescriptorAddEntryOffset(builder, e.offset)
		fb.EntryDescriptorAddEntrySize(builder, e.size)
		fb.EntryDescriptorAddEntryDict(builder, e.dict)
		fb.EntryDescriptorAddEntryLink(builder, uint32(e.link))
		entryOffsets[i] = fb.EntryDescriptorEnd(builder)
	}

	// Path keys, sorted for binary search
	paths := slices.SortedFunc(maps.Keys(b.pathIndex), strings.Compare)
	pathOffsets := make([]flatbuffers.UOffsetT, len(paths))
	for i, p := range paths {
		key := builder.CreateString(p)
		fb.PathDescriptorStart(builder)
		fb.PathDescriptorAddPath(builder, key)
		fb.PathDescriptorAddEntry(builder, uint32(b.pathIndex[p]))
		pathOffsets[i] = fb.PathDescriptorEnd(builder)
	}

	nsVec := offsetVector(builder, fb.ManifestStartNamespacesVector, nsOffsets)
	attrVec := offsetVector(builder, fb.ManifestStartAttrsVector, attrOffsets)
	entryVec := offsetVector(builder, fb.ManifestStartEntriesVector, entryOffsets)
	pathVec := offsetVector(builder, fb.ManifestStartPathsVector, pathOffsets)

	fb.ManifestStart(builder)
	fb.ManifestAddAbi(builder, fb.ManifestVersionVersion1)
	fb.ManifestAddNamespaces(builder, nsVec)
	fb.ManifestAddAttrs(builder, attrVec)
	fb.ManifestAddEntries(builder, entryVec)
	fb.ManifestAddPaths(builder, pathVec)
	root := fb.ManifestEnd(builder)
	fb.FinishManifestBuffer(builder, root)

	return builder.FinishedBytes()
}

func offsetVector(builder *flatbuffers.Builder, start func(*flatbuffers.Builder, int) flatbuffers.UOffsetT, offsets []flatbuffers.UOffsetT) flatbuffers.UOffsetT {
	start(builder, len(offsets))
	for i := len(offsets) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(offsets[i])
	}
	return builder.EndVector(len(offsets))
}
