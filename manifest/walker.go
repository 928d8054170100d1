package manifest

import (
	"iter"

	"github.com/zuri-dev/zpk/internal/fb"
	"github.com/zuri-dev/zpk/internal/pathutil"
)

// Walker navigates a verified Manifest. The zero Walker is empty.
//
// Walkers, EntryWalkers and AttrWalkers are values over immutable bytes and
// may be used from multiple goroutines.
type Walker struct {
	m *Manifest
}

// NumEntries returns the number of entries in the manifest.
func (w Walker) NumEntries() int {
	if w.m == nil {
		return 0
	}
	return w.m.root.EntriesLength()
}

// NumAttrs returns the number of attrs in the manifest.
func (w Walker) NumAttrs() int {
	if w.m == nil {
		return 0
	}
	return w.m.root.AttrsLength()
}

// NumNamespaces returns the number of namespaces in the manifest.
func (w Walker) NumNamespaces() int {
	if w.m == nil {
		return 0
	}
	return w.m.root.NamespacesLength()
}

// Namespace returns the url of the namespace at addr.
func (w Walker) Namespace(addr NamespaceAddress) (string, bool) {
	if int64(addr) >= int64(w.NumNamespaces()) {
		return "", false
	}
	var ns fb.NamespaceDescriptor
	w.m.root.Namespaces(&ns, int(addr))
	return string(ns.NsUrl()), true
}

// Namespaces yields every namespace address with its url.
func (w Walker) Namespaces() iter.Seq2[NamespaceAddress, string] {
	return func(yield func(NamespaceAddress, string) bool) {
		for i := range w.NumNamespaces() {
			url, _ := w.Namespace(NamespaceAddress(i))
			if !yield(NamespaceAddress(i), url) {
				return
			}
		}
	}
}

// FindNamespace returns the address of the namespace with the given url.
func (w Walker) FindNamespace(url string) (NamespaceAddress, bool) {
	for addr, u := range w.Namespaces() {
		if u == url {
			return addr, true
		}
	}
	return InvalidNamespace, false
}

// Root returns the root entry.
func (w Walker) Root() EntryWalker {
	return w.Lookup(pathutil.Root)
}

// Entry returns the entry at addr, or an invalid walker.
func (w Walker) Entry(addr EntryAddress) EntryWalker {
	if int64(addr) >= int64(w.NumEntries()) {
		return EntryWalker{w: w, addr: InvalidEntry}
	}
	e := EntryWalker{w: w, addr: addr}
	w.m.root.Entries(&e.desc, int(addr))
	return e
}

// Lookup returns the entry at path, or an invalid walker.
func (w Walker) Lookup(path string) EntryWalker {
	clean, ok := pathutil.Clean(path)
	if !ok || w.m == nil {
		return EntryWalker{w: w, addr: InvalidEntry}
	}
	var key fb.PathDescriptor
	if !w.m.root.PathsByKey(&key, clean) {
		return EntryWalker{w: w, addr: InvalidEntry}
	}
	return w.Entry(EntryAddress(key.Entry()))
}

// Attr returns the attr at addr, or an invalid walker.
func (w Walker) Attr(addr AttrAddress) AttrWalker {
	if int64(addr) >= int64(w.NumAttrs()) {
		return AttrWalker{w: w, addr: InvalidAttr}
	}
	a := AttrWalker{w: w, addr: addr}
	w.m.root.Attrs(&a.desc, int(addr))
	return a
}

// Entries yields every entry in address order.
func (w Walker) Entries() iter.Seq[EntryWalker] {
	return func(yield func(EntryWalker) bool) {
		for i := range w.NumEntries() {
			if !yield(w.Entry(EntryAddress(i))) {
				return
			}
		}
	}
}

// EntryWalker is a view of one entry.
type EntryWalker struct {
	w    Walker
	addr EntryAddress
	desc fb.EntryDescriptor
}

// Valid reports whether e refers to an entry.
func (e EntryWalker) Valid() bool { return e.addr.Valid() }

// Address returns the entry address, or InvalidEntry.
func (e EntryWalker) Address() EntryAddress { return e.addr }

// Path returns the absolute entry path.
func (e EntryWalker) Path() string {
	if !e.Valid() {
		return ""
	}
	return string(e.desc.Path())
}

// Name returns the last element of the entry path.
func (e EntryWalker) Name() string {
	if !e.Valid() {
		return ""
	}
	return pathutil.Base(e.Path())
}

// Type returns the entry type, or EntryInvalid.
func (e EntryWalker) Type() EntryType {
	if !e.Valid() {
		return EntryInvalid
	}
	return EntryType(e.desc.EntryType())
}

// Offset returns the content offset of a File entry.
func (e EntryWalker) Offset() uint64 {
	if !e.Valid() {
		return 0
	}
	return e.desc.EntryOffset()
}

// Size returns the content size of a File entry.
func (e EntryWalker) Size() uint64 {
	if !e.Valid() {
		return 0
	}
	return e.desc.EntrySize()
}

// Dict returns the dictionary address, or InvalidAddress.
func (e EntryWalker) Dict() uint32 {
	if !e.Valid() {
		return InvalidAddress
	}
	return e.desc.EntryDict()
}

// NumChildren returns the number of children.
func (e EntryWalker) NumChildren() int {
	if !e.Valid() {
		return 0
	}
	return e.desc.EntryChildrenLength()
}

// Child returns the i-th child in name order.
func (e EntryWalker) Child(i int) EntryWalker {
	if i < 0 || i >= e.NumChildren() {
		return EntryWalker{w: e.w, addr: InvalidEntry}
	}
	return e.w.Entry(EntryAddress(e.desc.EntryChildren(i)))
}

// ChildByName returns the child called name, or an invalid walker.
func (e EntryWalker) ChildByName(name string) EntryWalker {
	if !e.Valid() || !pathutil.ValidName(name) {
		return EntryWalker{w: e.w, addr: InvalidEntry}
	}
	return e.w.Lookup(pathutil.Join(e.Path(), name))
}

// Children yields the children in name order.
func (e EntryWalker) Children() iter.Seq[EntryWalker] {
	return func(yield func(EntryWalker) bool) {
		for i := range e.NumChildren() {
			if !yield(e.Child(i)) {
				return
			}
		}
	}
}

// Link returns the direct target of a Link entry, or an invalid walker.
func (e EntryWalker) Link() EntryWalker {
	if e.Type() != EntryLink {
		return EntryWalker{w: e.w, addr: InvalidEntry}
	}
	return e.w.Entry(EntryAddress(e.desc.EntryLink()))
}

// ResolveLink follows Link entries until it reaches a non-link entry. A
// non-link entry resolves to itself. Chains longer than MaxLinkRecursion
// hops, cycles and dangling links yield an invalid walker.
func (e EntryWalker) ResolveLink() EntryWalker {
	cur := e
	for hops := 0; cur.Type() == EntryLink; hops++ {
		if hops == MaxLinkRecursion {
			return EntryWalker{w: e.w, addr: InvalidEntry}
		}
		cur = cur.Link()
	}
	return cur
}

// NumAttrs returns the number of attrs on the entry.
func (e EntryWalker) NumAttrs() int {
	if !e.Valid() {
		return 0
	}
	return e.desc.EntryAttrsLength()
}

// Attr returns the i-th attr of the entry.
func (e EntryWalker) Attr(i int) AttrWalker {
	if i < 0 || i >= e.NumAttrs() {
		return AttrWalker{w: e.w, addr: InvalidAttr}
	}
	return e.w.Attr(AttrAddress(e.desc.EntryAttrs(i)))
}

// Attrs yields the attrs of the entry.
func (e EntryWalker) Attrs() iter.Seq[AttrWalker] {
	return func(yield func(AttrWalker) bool) {
		for i := range e.NumAttrs() {
			if !yield(e.Attr(i)) {
				return
			}
		}
	}
}

// FindAttr returns the attr of the entry with the given namespace url and
// type tag.
func (e EntryWalker) FindAttr(nsURL string, typ uint32) (AttrWalker, bool) {
	ns, ok := e.w.FindNamespace(nsURL)
	if !ok {
		return AttrWalker{w: e.w, addr: InvalidAttr}, false
	}
	id := AttrID{Namespace: ns, Type: typ}
	for a := range e.Attrs() {
		if a.ID() == id {
			return a, true
		}
	}
	return AttrWalker{w: e.w, addr: InvalidAttr}, false
}

// AttrWalker is a view of one attr.
type AttrWalker struct {
	w    Walker
	addr AttrAddress
	desc fb.AttrDescriptor
}

// Valid reports whether a refers to an attr.
func (a AttrWalker) Valid() bool { return a.addr.Valid() }

// Address returns the attr address, or InvalidAttr.
func (a AttrWalker) Address() AttrAddress { return a.addr }

// ID returns the namespace address and type tag of the attr.
func (a AttrWalker) ID() AttrID {
	if !a.Valid() {
		return AttrID{Namespace: InvalidNamespace}
	}
	return AttrID{Namespace: NamespaceAddress(a.desc.AttrNs()), Type: a.desc.AttrType()}
}

// Namespace returns the namespace url of the attr.
func (a AttrWalker) Namespace() string {
	url, _ := a.w.Namespace(a.ID().Namespace)
	return url
}

// Value returns the attr value. An invalid walker yields the nil value.
func (a AttrWalker) Value() Value {
	if !a.Valid() {
		return NilValue()
	}
	kind := ValueKind(a.desc.ValueType())
	if kind == KindString {
		return StringValue(string(a.desc.Str()))
	}
	return Value{kind: kind, bits: a.desc.Scalar()}
}
