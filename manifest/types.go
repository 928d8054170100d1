package manifest

import (
	"errors"
	"fmt"
	"math"

	"github.com/zuri-dev/zpk/internal/fb"
)

// Errors returned by the builder and readers.
var (
	// ErrDuplicateEntry is returned when an entry path is already present.
	ErrDuplicateEntry = errors.New("manifest: duplicate entry")

	// ErrDuplicateAttr is returned when an entry already carries an attr id.
	ErrDuplicateAttr = errors.New("manifest: duplicate attr")

	// ErrDuplicateNamespace is returned when a namespace url is already registered.
	ErrDuplicateNamespace = errors.New("manifest: duplicate namespace")

	// ErrPackageInvariant is returned when a build-time precondition is violated,
	// such as appending an entry whose parent does not exist.
	ErrPackageInvariant = errors.New("manifest: package invariant")

	// ErrPackagerInvariant is returned when a read-time lookup precondition is
	// violated, such as parsing an attr the entry does not carry.
	ErrPackagerInvariant = errors.New("manifest: packager invariant")

	// ErrInvalidManifest is returned when serialized bytes are not a valid manifest.
	ErrInvalidManifest = errors.New("manifest: invalid manifest")
)

// MaxLinkRecursion bounds the number of link hops followed by ResolveLink.
const MaxLinkRecursion = 5

// InvalidAddress is the reserved address meaning "none".
const InvalidAddress = math.MaxUint32

// EntryAddress is the index of an entry in its manifest.
type EntryAddress uint32

// AttrAddress is the index of an attr in its manifest.
type AttrAddress uint32

// NamespaceAddress is the index of a namespace in its manifest.
type NamespaceAddress uint32

const (
	InvalidEntry     EntryAddress     = InvalidAddress
	InvalidAttr      AttrAddress      = InvalidAddress
	InvalidNamespace NamespaceAddress = InvalidAddress
)

// Valid reports whether a is not the invalid sentinel.
func (a EntryAddress) Valid() bool { return a != InvalidEntry }

// Valid reports whether a is not the invalid sentinel.
func (a AttrAddress) Valid() bool { return a != InvalidAttr }

// Valid reports whether a is not the invalid sentinel.
func (a NamespaceAddress) Valid() bool { return a != InvalidNamespace }

// EntryType is the kind of a manifest entry.
type EntryType uint8

const (
	EntryInvalid   = EntryType(fb.EntryTypeInvalid)
	EntryFile      = EntryType(fb.EntryTypeFile)
	EntryDirectory = EntryType(fb.EntryTypeDirectory)
	EntryLink      = EntryType(fb.EntryTypeLink)
	EntryPackage   = EntryType(fb.EntryTypePackage)
)

func (t EntryType) String() string {
	return fb.EntryType(t).String()
}

// IsContainer reports whether entries of type t may have children.
func (t EntryType) IsContainer() bool {
	return t == EntryDirectory || t == EntryPackage
}

func (t EntryType) valid() bool {
	return t >= EntryFile && t <= EntryPackage
}

// AttrID identifies an attr within an entry: a namespace plus a type tag
// meaningful inside that namespace.
type AttrID struct {
	Namespace NamespaceAddress
	Type      uint32
}

// ValueKind is the type of an attr value.
type ValueKind uint8

const (
	KindNil     = ValueKind(fb.ValueTypeNil)
	KindBool    = ValueKind(fb.ValueTypeBool)
	KindInt64   = ValueKind(fb.ValueTypeInt64)
	KindFloat64 = ValueKind(fb.ValueTypeFloat64)
	KindUInt64  = ValueKind(fb.ValueTypeUInt64)
	KindUInt32  = ValueKind(fb.ValueTypeUInt32)
	KindUInt16  = ValueKind(fb.ValueTypeUInt16)
	KindUInt8   = ValueKind(fb.ValueTypeUInt8)
	KindString  = ValueKind(fb.ValueTypeString)
)

func (k ValueKind) String() string {
	return fb.ValueType(k).String()
}

// Value is an attr value. The zero Value is nil.
type Value struct {
	kind ValueKind
	bits uint64
	str  string
}

// NilValue returns the nil value.
func NilValue() Value { return Value{} }

// BoolValue returns a Bool value.
func BoolValue(b bool) Value { return Value{kind: KindBool, bits: boolBits(b)} }

// Int64Value returns an Int64 value.
func Int64Value(i int64) Value { return Value{kind: KindInt64, bits: uint64(i)} }

// Float64Value returns a Float64 value.
func Float64Value(f float64) Value { return Value{kind: KindFloat64, bits: math.Float64bits(f)} }

// UInt64Value returns a UInt64 value.
func UInt64Value(u uint64) Value { return Value{kind: KindUInt64, bits: u} }

// UInt32Value returns a UInt32 value.
func UInt32Value(u uint32) Value { return Value{kind: KindUInt32, bits: uint64(u)} }

// UInt16Value returns a UInt16 value.
func UInt16Value(u uint16) Value { return Value{kind: KindUInt16, bits: uint64(u)} }

// UInt8Value returns a UInt8 value.
func UInt8Value(u uint8) Value { return Value{kind: KindUInt8, bits: uint64(u)} }

// StringValue returns a String value.
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// Kind returns the value type.
func (v Value) Kind() ValueKind { return v.kind }

// IsNil reports whether v is the nil value.
func (v Value) IsNil() bool { return v.kind == KindNil }

// The typed accessors return the value and whether v has that kind.

func (v Value) Bool() (bool, bool)     { return v.bits != 0, v.kind == KindBool }
func (v Value) Int64() (int64, bool)   { return int64(v.bits), v.kind == KindInt64 }
func (v Value) UInt64() (uint64, bool) { return v.bits, v.kind == KindUInt64 }
func (v Value) UInt32() (uint32, bool) { return uint32(v.bits), v.kind == KindUInt32 }
func (v Value) UInt16() (uint16, bool) { return uint16(v.bits), v.kind == KindUInt16 }
func (v Value) UInt8() (uint8, bool)   { return uint8(v.bits), v.kind == KindUInt8 }
func (v Value) Str() (string, bool)    { return v.str, v.kind == KindString }

func (v Value) Float64() (float64, bool) {
	return math.Float64frombits(v.bits), v.kind == KindFloat64
}

// GoString renders the value for debugging.
func (v Value) GoString() string {
	switch v.kind {
	case KindString:
		return fmt.Sprintf("%s(%q)", v.kind, v.str)
	case KindFloat64:
		f, _ := v.Float64()
		return fmt.Sprintf("%s(%g)", v.kind, f)
	case KindInt64:
		i, _ := v.Int64()
		return fmt.Sprintf("%s(%d)", v.kind, i)
	case KindNil:
		return "Nil"
	default:
		return fmt.Sprintf("%s(%d)", v.kind, v.bits)
	}
}

func boolBits(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
