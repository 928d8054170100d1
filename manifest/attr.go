package manifest

import "fmt"

// AttrKey describes a typed attr: where it lives and how its Go value maps
// to a manifest Value.
type AttrKey[T any] struct {
	Namespace string
	Type      uint32
	Encode    func(T) Value
	Decode    func(Value) (T, bool)
}

// BoolKey returns a key for Bool attrs.
func BoolKey(ns string, typ uint32) AttrKey[bool] {
	return AttrKey[bool]{Namespace: ns, Type: typ, Encode: BoolValue, Decode: Value.Bool}
}

// Int64Key returns a key for Int64 attrs.
func Int64Key(ns string, typ uint32) AttrKey[int64] {
	return AttrKey[int64]{Namespace: ns, Type: typ, Encode: Int64Value, Decode: Value.Int64}
}

// Float64Key returns a key for Float64 attrs.
func Float64Key(ns string, typ uint32) AttrKey[float64] {
	return AttrKey[float64]{Namespace: ns, Type: typ, Encode: Float64Value, Decode: Value.Float64}
}

// UInt64Key returns a key for UInt64 attrs.
func UInt64Key(ns string, typ uint32) AttrKey[uint64] {
	return AttrKey[uint64]{Namespace: ns, Type: typ, Encode: UInt64Value, Decode: Value.UInt64}
}

// UInt32Key returns a key for UInt32 attrs.
func UInt32Key(ns string, typ uint32) AttrKey[uint32] {
	return AttrKey[uint32]{Namespace: ns, Type: typ, Encode: UInt32Value, Decode: Value.UInt32}
}

// StringKey returns a key for String attrs.
func StringKey(ns string, typ uint32) AttrKey[string] {
	return AttrKey[string]{Namespace: ns, Type: typ, Encode: StringValue, Decode: Value.Str}
}

// PutAttr encodes value with key and attaches it to entry.
//
// The entry must not already carry an attr with the same namespace and type;
// in that case ErrDuplicateAttr is returned and the builder is unchanged.
func PutAttr[T any](b *Builder, entry EntryAddress, key AttrKey[T], value T) (AttrAddress, error) {
	if b.EntryType(entry) == EntryInvalid {
		return InvalidAttr, fmt.Errorf("%w: entry address %d out of range", ErrPackageInvariant, entry)
	}
	id := AttrID{Type: key.Type}
	if ns, ok := b.nsIndex[key.Namespace]; ok {
		id.Namespace = ns
		if b.HasEntryAttr(entry, id) {
			return InvalidAttr, fmt.Errorf("%w: %s has %s/%d", ErrDuplicateAttr, b.EntryPath(entry), key.Namespace, key.Type)
		}
	} else {
		id.Namespace = b.PutNamespace(key.Namespace)
	}
	addr := b.AppendAttr(id, key.Encode(value))
	if err := b.PutEntryAttr(entry, addr); err != nil {
		return InvalidAttr, err
	}
	return addr, nil
}

// ParseAttr finds the attr described by key on e and decodes it.
//
// It returns ErrPackagerInvariant when e carries no such attr or the stored
// value has a different type.
func ParseAttr[T any](e EntryWalker, key AttrKey[T]) (T, error) {
	var zero T
	a, ok := e.FindAttr(key.Namespace, key.Type)
	if !ok {
		return zero, fmt.Errorf("%w: %s has no attr %s/%d", ErrPackagerInvariant, e.Path(), key.Namespace, key.Type)
	}
	v, ok := key.Decode(a.Value())
	if !ok {
		return zero, fmt.Errorf("%w: attr %s/%d on %s is %s", ErrPackagerInvariant, key.Namespace, key.Type, e.Path(), a.Value().Kind())
	}
	return v, nil
}
