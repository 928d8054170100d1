// Package ident defines the identity types shared by every zpk component.
//
// A package is named by a PackageID (name and domain), versioned by a
// Version (major.minor.patch), and pinned by a Specifier combining both.
// All three are immutable comparable values and are used as map keys
// throughout the cache, lock and fetch layers.
package ident

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Errors returned by the parsers in this package.
var (
	// ErrInvalidVersion is returned when a version string is malformed.
	ErrInvalidVersion = errors.New("ident: invalid version")

	// ErrInvalidID is returned when a package id is malformed.
	ErrInvalidID = errors.New("ident: invalid package id")

	// ErrInvalidSpecifier is returned when a specifier in any encoding is malformed.
	ErrInvalidSpecifier = errors.New("ident: invalid specifier")
)

// Version is a major.minor.patch triple ordered lexicographically.
type Version struct {
	Major uint32
	Minor uint32
	Patch uint32
}

// MaxVersion is the greatest representable version.
var MaxVersion = Version{Major: math.MaxUint32, Minor: math.MaxUint32, Patch: math.MaxUint32}

// NewVersion returns the version major.minor.patch.
func NewVersion(major, minor, patch uint32) Version {
	return Version{Major: major, Minor: minor, Patch: patch}
}

// ParseVersion parses a version of the form "major.minor.patch".
//
// Each component is a decimal u32 without leading zeros.
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}
	var nums [3]uint32
	for i, p := range parts {
		n, err := ParseComponent(p)
		if err != nil {
			return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// ParseComponent parses one decimal version component.
func ParseComponent(s string) (uint32, error) {
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return 0, fmt.Errorf("%w: component %q", ErrInvalidVersion, s)
	}
	for i := range len(s) {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("%w: component %q", ErrInvalidVersion, s)
		}
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: component %q", ErrInvalidVersion, s)
	}
	return uint32(n), nil
}

// String returns the "major.minor.patch" form.
func (v Version) String() string {
	return strconv.FormatUint(uint64(v.Major), 10) + "." +
		strconv.FormatUint(uint64(v.Minor), 10) + "." +
		strconv.FormatUint(uint64(v.Patch), 10)
}

// Compare returns -1, 0 or +1 depending on whether v sorts before, equal to,
// or after o.
func (v Version) Compare(o Version) int {
	if c := cmp.Compare(v.Major, o.Major); c != 0 {
		return c
	}
	if c := cmp.Compare(v.Minor, o.Minor); c != 0 {
		return c
	}
	return cmp.Compare(v.Patch, o.Patch)
}

// Less reports whether v sorts before o.
func (v Version) Less(o Version) bool {
	return v.Compare(o) < 0
}

// NextPatch returns the smallest version greater than v.
// A patch overflow carries into minor, and a minor overflow into major.
// MaxVersion has no successor and is returned unchanged.
func (v Version) NextPatch() Version {
	if v.Patch < math.MaxUint32 {
		return Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch + 1}
	}
	return v.NextMinor()
}

// NextMinor returns major.(minor+1).0, carrying on overflow.
func (v Version) NextMinor() Version {
	if v.Minor < math.MaxUint32 {
		return Version{Major: v.Major, Minor: v.Minor + 1}
	}
	return v.NextMajor()
}

// NextMajor returns (major+1).0.0, or MaxVersion when major is saturated.
func (v Version) NextMajor() Version {
	if v.Major < math.MaxUint32 {
		return Version{Major: v.Major + 1}
	}
	return MaxVersion
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// PackageID names a package independently of its version.
type PackageID struct {
	Name   string
	Domain string
}

// NewPackageID returns the id name@domain.
func NewPackageID(name, domain string) PackageID {
	return PackageID{Name: name, Domain: domain}
}

// ParsePackageID parses the "name@domain" form.
func ParsePackageID(s string) (PackageID, error) {
	name, domain, ok := strings.Cut(s, "@")
	if !ok {
		return PackageID{}, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	id := PackageID{Name: name, Domain: domain}
	if !id.IsValid() {
		return PackageID{}, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return id, nil
}

// IsValid reports whether both name and domain are well formed.
func (id PackageID) IsValid() bool {
	return validName(id.Name) && validDomain(id.Domain)
}

// String returns the "name@domain" form.
func (id PackageID) String() string {
	return id.Name + "@" + id.Domain
}

// Compare orders ids by name, then domain.
func (id PackageID) Compare(o PackageID) int {
	if c := strings.Compare(id.Name, o.Name); c != 0 {
		return c
	}
	return strings.Compare(id.Domain, o.Domain)
}

// MarshalText implements encoding.TextMarshaler.
func (id PackageID) MarshalText() ([]byte, error) {
	if !id.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id.String())
	}
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *PackageID) UnmarshalText(text []byte) error {
	parsed, err := ParsePackageID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// validName accepts [A-Za-z0-9_.-]+ not starting with '-' or '.'.
func validName(s string) bool {
	if s == "" || s[0] == '-' || s[0] == '.' {
		return false
	}
	for i := range len(s) {
		c := s[i]
		if !isAlnum(c) && c != '_' && c != '.' && c != '-' {
			return false
		}
	}
	return true
}

// validDomain accepts dot-separated non-empty labels of [A-Za-z0-9-].
func validDomain(s string) bool {
	if s == "" {
		return false
	}
	for label := range strings.SplitSeq(s, ".") {
		if label == "" {
			return false
		}
		for i := range len(label) {
			if !isAlnum(label[i]) && label[i] != '-' {
				return false
			}
		}
	}
	return true
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
