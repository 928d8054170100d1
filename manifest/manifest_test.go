package manifest

import (
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testNS = "dev.zuri.test"

// buildTree declares /, /bin, /bin/tool, /lib and /lib/a.so.
func buildTree(tb testing.TB) *Builder {
	tb.Helper()
	b := NewBuilder()
	for _, e := range []struct {
		typ  EntryType
		path string
	}{
		{EntryPackage, "/"},
		{EntryDirectory, "/lib"},
		{EntryDirectory, "/bin"},
		{EntryFile, "/bin/tool"},
		{EntryFile, "/lib/a.so"},
	} {
		_, err := b.AppendEntry(e.typ, e.path)
		require.NoError(tb, err, "AppendEntry(%s)", e.path)
	}
	return b
}

func mustManifest(tb testing.TB, b *Builder) *Manifest {
	tb.Helper()
	m, err := b.ToManifest()
	require.NoError(tb, err, "ToManifest failed")
	return m
}

func TestBuilderAppendEntry(t *testing.T) {
	t.Parallel()

	t.Run("addresses are sequential", func(t *testing.T) {
		t.Parallel()
		b := buildTree(t)
		assert.Equal(t, 5, b.NumEntries())
		addr, ok := b.Lookup("/bin/tool")
		require.True(t, ok)
		assert.Equal(t, EntryAddress(3), addr)
		assert.Equal(t, EntryFile, b.EntryType(addr))
		assert.Equal(t, "/bin/tool", b.EntryPath(addr))

		bin, _ := b.Lookup("/bin")
		child, ok := b.Child(bin, "tool")
		require.True(t, ok)
		assert.Equal(t, addr, child)
	})

	t.Run("duplicate leaves builder usable", func(t *testing.T) {
		t.Parallel()
		b := buildTree(t)
		_, err := b.AppendEntry(EntryFile, "/bin/tool")
		require.ErrorIs(t, err, ErrDuplicateEntry)
		assert.Equal(t, 5, b.NumEntries())

		addr, err := b.AppendEntry(EntryFile, "/bin/other")
		require.NoError(t, err)
		assert.Equal(t, EntryAddress(5), addr)
	})

	t.Run("missing parent", func(t *testing.T) {
		t.Parallel()
		b := buildTree(t)
		_, err := b.AppendEntry(EntryFile, "/usr/bin/x")
		require.ErrorIs(t, err, ErrPackageInvariant)
		assert.Equal(t, 5, b.NumEntries())
	})

	t.Run("parent is a file", func(t *testing.T) {
		t.Parallel()
		b := buildTree(t)
		_, err := b.AppendEntry(EntryFile, "/bin/tool/x")
		require.ErrorIs(t, err, ErrPackageInvariant)
	})

	t.Run("first entry must be root", func(t *testing.T) {
		t.Parallel()
		b := NewBuilder()
		_, err := b.AppendEntry(EntryFile, "/a")
		require.ErrorIs(t, err, ErrPackageInvariant)
		assert.Zero(t, b.NumEntries())
	})

	t.Run("invalid type and path", func(t *testing.T) {
		t.Parallel()
		b := buildTree(t)
		_, err := b.AppendEntry(EntryInvalid, "/x")
		require.ErrorIs(t, err, ErrPackageInvariant)
		_, err = b.AppendEntry(EntryFile, "/bin/../x")
		require.ErrorIs(t, err, ErrPackageInvariant)
	})
}

func TestBuilderNamespacesAndAttrs(t *testing.T) {
	t.Parallel()

	b := buildTree(t)
	ns := b.PutNamespace(testNS)
	assert.Equal(t, ns, b.PutNamespace(testNS), "PutNamespace dedups")
	_, err := b.AppendNamespace(testNS)
	require.ErrorIs(t, err, ErrDuplicateNamespace)
	other, err := b.AppendNamespace("dev.zuri.other")
	require.NoError(t, err)
	assert.Equal(t, NamespaceAddress(1), other)
	assert.Equal(t, 2, b.NumNamespaces())

	id := AttrID{Namespace: ns, Type: 7}
	a1 := b.AppendAttr(id, StringValue("x"))
	a2 := b.AppendAttr(id, StringValue("x"))
	assert.NotEqual(t, a1, a2, "attrs are never deduplicated")
	assert.Equal(t, 2, b.NumAttrs())

	tool, _ := b.Lookup("/bin/tool")
	require.NoError(t, b.PutEntryAttr(tool, a1))
	require.ErrorIs(t, b.PutEntryAttr(tool, a2), ErrDuplicateAttr)

	lib, _ := b.Lookup("/lib")
	require.NoError(t, b.PutEntryAttr(lib, a2), "same attr id on another entry")
	require.ErrorIs(t, b.PutEntryAttr(lib, AttrAddress(99)), ErrPackageInvariant)
}

func TestToManifestWalk(t *testing.T) {
	t.Parallel()

	b := buildTree(t)
	tool, _ := b.Lookup("/bin/tool")
	require.NoError(t, b.SetEntryContent(tool, 16, 32))
	require.NoError(t, b.SetEntryDict(tool, 3))
	w := mustManifest(t, b).Walker()

	root := w.Root()
	require.True(t, root.Valid())
	assert.Equal(t, EntryPackage, root.Type())
	assert.Equal(t, EntryAddress(0), root.Address())

	var names []string
	for c := range root.Children() {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"bin", "lib"}, names, "children are sorted by name")

	e := w.Lookup("bin/tool")
	require.True(t, e.Valid())
	assert.Equal(t, "/bin/tool", e.Path())
	assert.Equal(t, "tool", e.Name())
	assert.Equal(t, EntryFile, e.Type())
	assert.Equal(t, uint64(16), e.Offset())
	assert.Equal(t, uint64(32), e.Size())
	assert.Equal(t, uint32(3), e.Dict())

	lib := w.Lookup("/lib")
	assert.Equal(t, uint32(InvalidAddress), lib.Dict())
	assert.Equal(t, "/lib/a.so", lib.ChildByName("a.so").Path())
	assert.False(t, lib.ChildByName("missing").Valid())
	assert.False(t, lib.ChildByName("..").Valid())
	assert.False(t, lib.Child(5).Valid())

	assert.False(t, w.Lookup("/nope").Valid())
	assert.False(t, w.Entry(99).Valid())
	assert.Equal(t, EntryInvalid, w.Entry(99).Type())

	var paths []string
	for e := range w.Entries() {
		paths = append(paths, e.Path())
	}
	assert.Equal(t, []string{"/", "/lib", "/bin", "/bin/tool", "/lib/a.so"}, paths, "entries keep build order")
}

func TestResolveLink(t *testing.T) {
	t.Parallel()

	// chain builds target plus n links, each pointing at the previous one.
	chain := func(t *testing.T, n int) Walker {
		b := NewBuilder()
		_, err := b.AppendEntry(EntryPackage, "/")
		require.NoError(t, err)
		prev, err := b.AppendEntry(EntryFile, "/target")
		require.NoError(t, err)
		for i := range n {
			l, err := b.AppendEntry(EntryLink, fmt.Sprintf("/link%d", i))
			require.NoError(t, err)
			require.NoError(t, b.SetEntryLink(l, prev))
			prev = l
		}
		return mustManifest(t, b).Walker()
	}

	t.Run("single hop", func(t *testing.T) {
		t.Parallel()
		w := chain(t, 1)
		l := w.Lookup("/link0")
		assert.Equal(t, EntryLink, l.Type())
		assert.Equal(t, "/target", l.Link().Path())
		assert.Equal(t, "/target", l.ResolveLink().Path())
	})

	t.Run("five hops resolve", func(t *testing.T) {
		t.Parallel()
		w := chain(t, MaxLinkRecursion)
		got := w.Lookup(fmt.Sprintf("/link%d", MaxLinkRecursion-1)).ResolveLink()
		require.True(t, got.Valid())
		assert.Equal(t, "/target", got.Path())
	})

	t.Run("six hops are rejected", func(t *testing.T) {
		t.Parallel()
		w := chain(t, MaxLinkRecursion+1)
		got := w.Lookup(fmt.Sprintf("/link%d", MaxLinkRecursion)).ResolveLink()
		assert.False(t, got.Valid())
	})

	t.Run("cycle is rejected", func(t *testing.T) {
		t.Parallel()
		b := NewBuilder()
		_, err := b.AppendEntry(EntryPackage, "/")
		require.NoError(t, err)
		a, err := b.AppendEntry(EntryLink, "/a")
		require.NoError(t, err)
		c, err := b.AppendEntry(EntryLink, "/b")
		require.NoError(t, err)
		require.NoError(t, b.SetEntryLink(a, c))
		require.NoError(t, b.SetEntryLink(c, a))
		w := mustManifest(t, b).Walker()
		assert.False(t, w.Lookup("/a").ResolveLink().Valid())
	})

	t.Run("non-link resolves to itself", func(t *testing.T) {
		t.Parallel()
		w := chain(t, 0)
		assert.Equal(t, "/target", w.Lookup("/target").ResolveLink().Path())
		assert.False(t, w.Lookup("/target").Link().Valid())
	})
}

func TestTypedAttrs(t *testing.T) {
	t.Parallel()

	modeKey := UInt32Key(testNS, 1)
	ownerKey := StringKey(testNS, 2)
	execKey := BoolKey("dev.zuri.exec", 1)
	weightKey := Float64Key(testNS, 3)
	deltaKey := Int64Key(testNS, 4)
	sizeKey := UInt64Key(testNS, 5)

	b := buildTree(t)
	tool, _ := b.Lookup("/bin/tool")
	_, err := PutAttr(b, tool, modeKey, 0o755)
	require.NoError(t, err)
	_, err = PutAttr(b, tool, ownerKey, "root")
	require.NoError(t, err)
	_, err = PutAttr(b, tool, execKey, true)
	require.NoError(t, err)
	_, err = PutAttr(b, tool, weightKey, 0.5)
	require.NoError(t, err)
	_, err = PutAttr(b, tool, deltaKey, -3)
	require.NoError(t, err)
	_, err = PutAttr(b, tool, sizeKey, 1<<40)
	require.NoError(t, err)

	attrs := b.NumAttrs()
	_, err = PutAttr(b, tool, modeKey, 0o644)
	require.ErrorIs(t, err, ErrDuplicateAttr)
	assert.Equal(t, attrs, b.NumAttrs(), "duplicate attr does not append")

	_, err = PutAttr(b, InvalidEntry, modeKey, 0o644)
	require.ErrorIs(t, err, ErrPackageInvariant)

	w := mustManifest(t, b).Walker()
	e := w.Lookup("/bin/tool")
	assert.Equal(t, 6, e.NumAttrs())

	mode, err := ParseAttr(e, modeKey)
	require.NoError(t, err)
	assert.Equal(t, uint32(0o755), mode)
	owner, err := ParseAttr(e, ownerKey)
	require.NoError(t, err)
	assert.Equal(t, "root", owner)
	exec, err := ParseAttr(e, execKey)
	require.NoError(t, err)
	assert.True(t, exec)
	weight, err := ParseAttr(e, weightKey)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, weight, 0)
	delta, err := ParseAttr(e, deltaKey)
	require.NoError(t, err)
	assert.Equal(t, int64(-3), delta)
	size, err := ParseAttr(e, sizeKey)
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<40), size)

	a, ok := e.FindAttr(testNS, 2)
	require.True(t, ok)
	assert.Equal(t, testNS, a.Namespace())
	assert.Equal(t, KindString, a.Value().Kind())

	_, err = ParseAttr(w.Lookup("/lib"), modeKey)
	require.ErrorIs(t, err, ErrPackagerInvariant)
	_, err = ParseAttr(e, UInt32Key(testNS, 2))
	require.ErrorIs(t, err, ErrPackagerInvariant, "type mismatch")
	_, err = ParseAttr(e, UInt32Key("dev.zuri.unknown", 1))
	require.ErrorIs(t, err, ErrPackagerInvariant)

	var urls []string
	for _, url := range w.Namespaces() {
		urls = append(urls, url)
	}
	assert.Equal(t, []string{testNS, "dev.zuri.exec"}, urls)
}

func TestValue(t *testing.T) {
	t.Parallel()

	v := NilValue()
	assert.True(t, v.IsNil())
	_, ok := v.Bool()
	assert.False(t, ok)

	f, ok := Float64Value(-1.25).Float64()
	assert.True(t, ok)
	assert.InDelta(t, -1.25, f, 0)

	u, ok := UInt8Value(200).UInt8()
	assert.True(t, ok)
	assert.Equal(t, uint8(200), u)
	_, ok = UInt8Value(200).UInt16()
	assert.False(t, ok)

	assert.Equal(t, `String("a")`, StringValue("a").GoString())
	assert.Equal(t, "Nil", NilValue().GoString())
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("empty data", func(t *testing.T) {
		t.Parallel()
		_, err := Load(nil)
		require.ErrorIs(t, err, ErrInvalidManifest)
	})

	t.Run("empty builder has no root", func(t *testing.T) {
		t.Parallel()
		_, err := NewBuilder().ToManifest()
		require.ErrorIs(t, err, ErrInvalidManifest)
	})

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()
		m := mustManifest(t, buildTree(t))
		again, err := Load(m.Bytes())
		require.NoError(t, err)
		assert.Equal(t, 5, again.Walker().NumEntries())
	})

	t.Run("truncated buffers never panic", func(t *testing.T) {
		t.Parallel()
		data := mustManifest(t, buildTree(t)).Bytes()
		for n := range len(data) / 2 {
			_, err := Load(slices.Clone(data[:n]))
			assert.ErrorIs(t, err, ErrInvalidManifest, "truncated at %d", n)
		}
		for n := len(data) / 2; n < len(data); n++ {
			assert.NotPanics(t, func() { _, _ = Load(slices.Clone(data[:n])) })
		}
	})

	t.Run("corrupted buffers never panic", func(t *testing.T) {
		t.Parallel()
		data := mustManifest(t, buildTree(t)).Bytes()
		for i := 8; i < len(data); i++ {
			bad := slices.Clone(data)
			bad[i] ^= 0xff
			m, err := Load(bad)
			if err != nil {
				assert.ErrorIs(t, err, ErrInvalidManifest)
				continue
			}
			// Whatever survives verification must be walkable.
			for e := range m.Walker().Entries() {
				_ = e.ResolveLink().Path()
				for a := range e.Attrs() {
					_ = a.Value()
				}
			}
		}
	})
}
