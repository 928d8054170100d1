// Package requirement matches package versions against version requirements.
//
// Every requirement reduces to a half-open Interval [Lower, Upper) and a
// version satisfies the requirement exactly when the interval contains it.
// Requirements come in five variants:
//
//	Exact   1.2.3           [1.2.3, 1.2.4)
//	Range   >=1.2.3 <2.0.0  [1.2.3, 2.0.0)
//	Tilde   ~1.2.3          [1.2.3, 1.3.0)
//	Caret   ^0.2.3          [0.2.3, 0.3.0)
//	Hyphen  1.2.3-1.2.6     [1.2.3, 1.2.7)
//
// A List is the conjunction of the requirements parsed from one
// expression, and a Dependency binds a List to a package id.
package requirement

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zuri-dev/zpk/ident"
)

// ErrInvalidRequirement is returned when a requirement expression is malformed.
var ErrInvalidRequirement = errors.New("requirement: invalid requirement")

// Type identifies a requirement variant.
type Type uint8

const (
	TypeExact Type = iota + 1
	TypeRange
	TypeTilde
	TypeCaret
	TypeHyphen
)

func (t Type) String() string {
	switch t {
	case TypeExact:
		return "exact"
	case TypeRange:
		return "range"
	case TypeTilde:
		return "tilde"
	case TypeCaret:
		return "caret"
	case TypeHyphen:
		return "hyphen"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// Precision is the number of version components written in a tilde or
// caret requirement.
type Precision uint8

const (
	Major Precision = iota + 1
	Minor
	Patch
)

func (p Precision) clamp() Precision {
	return min(max(p, Major), Patch)
}

// Interval is the half-open version range [Lower, Upper).
type Interval struct {
	Lower ident.Version
	Upper ident.Version
}

// Unbounded contains every version except ident.MaxVersion.
var Unbounded = Interval{Upper: ident.MaxVersion}

// Contains reports whether Lower <= v < Upper.
func (iv Interval) Contains(v ident.Version) bool {
	return iv.Lower.Compare(v) <= 0 && v.Compare(iv.Upper) < 0
}

// Empty reports whether no version lies in the interval.
func (iv Interval) Empty() bool {
	return iv.Lower.Compare(iv.Upper) >= 0
}

// Intersect returns the interval of versions contained in both iv and o.
func (iv Interval) Intersect(o Interval) Interval {
	out := iv
	if o.Lower.Compare(out.Lower) > 0 {
		out.Lower = o.Lower
	}
	if o.Upper.Compare(out.Upper) < 0 {
		out.Upper = o.Upper
	}
	return out
}

func (iv Interval) String() string {
	return "[" + iv.Lower.String() + ", " + iv.Upper.String() + ")"
}

// Requirement is one version requirement. The zero value is invalid;
// use the variant constructors.
type Requirement struct {
	typ       Type
	lower     ident.Version
	upper     ident.Version
	precision Precision
}

// Exact requires exactly version v.
func Exact(v ident.Version) Requirement {
	return Requirement{typ: TypeExact, lower: v}
}

// Range requires lower <= v < upper.
func Range(lower, upper ident.Version) Requirement {
	return Requirement{typ: TypeRange, lower: lower, upper: upper}
}

// Tilde requires versions starting at v that keep the written minor, or the
// written major when only the major was given. Components of v beyond p are
// ignored.
func Tilde(v ident.Version, p Precision) Requirement {
	p = p.clamp()
	return Requirement{typ: TypeTilde, lower: truncate(v, p), precision: p}
}

// Caret requires versions starting at v that keep the leftmost non-zero
// written component. Components of v beyond p are ignored.
func Caret(v ident.Version, p Precision) Requirement {
	p = p.clamp()
	return Requirement{typ: TypeCaret, lower: truncate(v, p), precision: p}
}

// Hyphen requires lower <= v <= upper.
func Hyphen(lower, upper ident.Version) Requirement {
	return Requirement{typ: TypeHyphen, lower: lower, upper: upper}
}

func truncate(v ident.Version, p Precision) ident.Version {
	switch p {
	case Major:
		return ident.Version{Major: v.Major}
	case Minor:
		return ident.Version{Major: v.Major, Minor: v.Minor}
	default:
		return v
	}
}

// Type returns the requirement variant.
func (r Requirement) Type() Type {
	return r.typ
}

// IsValid reports whether r was built by a variant constructor.
func (r Requirement) IsValid() bool {
	return r.typ >= TypeExact && r.typ <= TypeHyphen
}

// Interval returns the half-open range of versions satisfying r.
// The zero Requirement yields an empty interval.
//
// ident.MaxVersion is never inside an interval: upper bounds saturate at
// it, so Exact(ident.MaxVersion) is empty and Hyphen(a, ident.MaxVersion)
// stops one short. Parse rejects both forms.
func (r Requirement) Interval() Interval {
	switch r.typ {
	case TypeExact:
		return Interval{Lower: r.lower, Upper: r.lower.NextPatch()}
	case TypeRange:
		return Interval{Lower: r.lower, Upper: r.upper}
	case TypeTilde:
		if r.precision >= Minor {
			return Interval{Lower: r.lower, Upper: r.lower.NextMinor()}
		}
		return Interval{Lower: r.lower, Upper: r.lower.NextMajor()}
	case TypeCaret:
		return Interval{Lower: r.lower, Upper: caretUpper(r.lower, r.precision)}
	case TypeHyphen:
		return Interval{Lower: r.lower, Upper: r.upper.NextPatch()}
	default:
		return Interval{}
	}
}

// caretUpper bumps the leftmost non-zero written component. When every
// written component is zero the last written one is bumped, so ^0.0 means
// [0.0.0, 0.1.0) and ^0 means [0.0.0, 1.0.0).
func caretUpper(v ident.Version, p Precision) ident.Version {
	switch {
	case v.Major != 0:
		return v.NextMajor()
	case p >= Minor && v.Minor != 0:
		return v.NextMinor()
	case p >= Patch && v.Patch != 0:
		return v.NextPatch()
	}
	switch p {
	case Major:
		return v.NextMajor()
	case Minor:
		return v.NextMinor()
	default:
		return v.NextPatch()
	}
}

// SatisfiedBy reports whether v lies in r's interval.
func (r Requirement) SatisfiedBy(v ident.Version) bool {
	return r.Interval().Contains(v)
}

// String returns the expression form accepted by Parse.
func (r Requirement) String() string {
	switch r.typ {
	case TypeExact:
		return r.lower.String()
	case TypeRange:
		return ">=" + r.lower.String() + " <" + r.upper.String()
	case TypeTilde:
		return "~" + partial(r.lower, r.precision)
	case TypeCaret:
		return "^" + partial(r.lower, r.precision)
	case TypeHyphen:
		return r.lower.String() + "-" + r.upper.String()
	default:
		return ""
	}
}

func partial(v ident.Version, p Precision) string {
	s := v.String()
	switch p {
	case Major:
		s, _, _ = strings.Cut(s, ".")
	case Minor:
		s = s[:strings.LastIndexByte(s, '.')]
	}
	return s
}
