package ident

import (
	"fmt"
	"net/url"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// URLScheme is the scheme of package URLs.
	URLScheme = "dev.zuri.pkg"

	// ArchiveSuffix is the file suffix of package archives.
	ArchiveSuffix = ".zpk"

	// ContentType is the media type of package archives.
	ContentType = "application/vnd.zuri.package"
)

// Specifier pins a package id to one version.
type Specifier struct {
	ID      PackageID
	Version Version
}

// NewSpecifier returns the specifier for name@domain at version v.
func NewSpecifier(name, domain string, v Version) Specifier {
	return Specifier{ID: PackageID{Name: name, Domain: domain}, Version: v}
}

// ParseSpecifier parses the "name@domain:major.minor.patch" form.
func ParseSpecifier(s string) (Specifier, error) {
	idPart, versionPart, ok := strings.Cut(s, ":")
	if !ok {
		return Specifier{}, fmt.Errorf("%w: %q", ErrInvalidSpecifier, s)
	}
	id, err := ParsePackageID(idPart)
	if err != nil {
		return Specifier{}, fmt.Errorf("%w: %q: %w", ErrInvalidSpecifier, s, err)
	}
	v, err := ParseVersion(versionPart)
	if err != nil {
		return Specifier{}, fmt.Errorf("%w: %q: %w", ErrInvalidSpecifier, s, err)
	}
	return Specifier{ID: id, Version: v}, nil
}

// IsValid reports whether the specifier has a well-formed id.
func (s Specifier) IsValid() bool {
	return s.ID.IsValid()
}

// String returns the "name@domain:major.minor.patch" form.
func (s Specifier) String() string {
	return s.ID.String() + ":" + s.Version.String()
}

// Compare orders specifiers by name, domain, then version.
func (s Specifier) Compare(o Specifier) int {
	if c := s.ID.Compare(o.ID); c != 0 {
		return c
	}
	return s.Version.Compare(o.Version)
}

// URL returns the package URL dev.zuri.pkg://name-version@domain.
func (s Specifier) URL() *url.URL {
	return &url.URL{
		Scheme: URLScheme,
		User:   url.User(s.ID.Name + "-" + s.Version.String()),
		Host:   s.ID.Domain,
	}
}

// ParseURL parses a package URL as produced by Specifier.URL.
func ParseURL(raw string) (Specifier, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Specifier{}, fmt.Errorf("%w: %w", ErrInvalidSpecifier, err)
	}
	return SpecifierFromURL(u)
}

// SpecifierFromURL extracts the specifier encoded in the authority of u.
func SpecifierFromURL(u *url.URL) (Specifier, error) {
	if u == nil || u.Scheme != URLScheme || u.User == nil {
		return Specifier{}, fmt.Errorf("%w: not a %s url", ErrInvalidSpecifier, URLScheme)
	}
	if u.Path != "" && u.Path != "/" {
		return Specifier{}, fmt.Errorf("%w: unexpected path %q", ErrInvalidSpecifier, u.Path)
	}
	name, v, err := splitNameVersion(u.User.Username())
	if err != nil {
		return Specifier{}, err
	}
	s := Specifier{ID: PackageID{Name: name, Domain: u.Host}, Version: v}
	if !s.IsValid() {
		return Specifier{}, fmt.Errorf("%w: %q", ErrInvalidSpecifier, u.String())
	}
	return s, nil
}

// FilesystemName returns the stable file name stem for the specifier:
// the reversed domain, an underscore, then name-version.
// For core@zuri.dev:1.2.3 this is "dev.zuri_core-1.2.3".
func (s Specifier) FilesystemName() string {
	return reverseDomain(s.ID.Domain) + "_" + s.ID.Name + "-" + s.Version.String()
}

// ArchiveName returns FilesystemName with the archive suffix.
func (s Specifier) ArchiveName() string {
	return s.FilesystemName() + ArchiveSuffix
}

// ArchivePath returns the path of the specifier's archive under root.
func (s Specifier) ArchivePath(root string) string {
	return filepath.Join(root, s.ArchiveName())
}

// ParseFilesystemName parses a name produced by FilesystemName or ArchiveName.
func ParseFilesystemName(name string) (Specifier, error) {
	name = strings.TrimSuffix(name, ArchiveSuffix)
	reversed, rest, ok := strings.Cut(name, "_")
	if !ok {
		return Specifier{}, fmt.Errorf("%w: %q", ErrInvalidSpecifier, name)
	}
	pkgName, v, err := splitNameVersion(rest)
	if err != nil {
		return Specifier{}, err
	}
	s := Specifier{ID: PackageID{Name: pkgName, Domain: reverseDomain(reversed)}, Version: v}
	if !s.IsValid() {
		return Specifier{}, fmt.Errorf("%w: %q", ErrInvalidSpecifier, name)
	}
	return s, nil
}

// RelativeDir returns the cache-relative directory domain/name/version.
func (s Specifier) RelativeDir() string {
	return filepath.Join(s.ID.Domain, s.ID.Name, s.Version.String())
}

// DirectoryPath returns the specifier's directory under root.
func (s Specifier) DirectoryPath(root string) string {
	return filepath.Join(root, s.RelativeDir())
}

// ParseRelativeDir parses a path produced by RelativeDir.
func ParseRelativeDir(rel string) (Specifier, error) {
	parts := strings.Split(filepath.ToSlash(filepath.Clean(rel)), "/")
	if len(parts) != 3 {
		return Specifier{}, fmt.Errorf("%w: %q", ErrInvalidSpecifier, rel)
	}
	v, err := ParseVersion(parts[2])
	if err != nil {
		return Specifier{}, fmt.Errorf("%w: %q: %w", ErrInvalidSpecifier, rel, err)
	}
	s := Specifier{ID: PackageID{Name: parts[1], Domain: parts[0]}, Version: v}
	if !s.IsValid() {
		return Specifier{}, fmt.Errorf("%w: %q", ErrInvalidSpecifier, rel)
	}
	return s, nil
}

// MarshalText implements encoding.TextMarshaler.
func (s Specifier) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSpecifier, s.String())
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Specifier) UnmarshalText(text []byte) error {
	parsed, err := ParseSpecifier(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ToNode returns the specifier as a YAML scalar node.
func (s Specifier) ToNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s.String()}
}

// ParseSpecifierNode parses a YAML scalar node holding a specifier.
func ParseSpecifierNode(n *yaml.Node) (Specifier, error) {
	if n == nil || n.Kind != yaml.ScalarNode {
		return Specifier{}, fmt.Errorf("%w: expected scalar node", ErrInvalidSpecifier)
	}
	return ParseSpecifier(n.Value)
}

// MarshalYAML implements yaml.Marshaler.
func (s Specifier) MarshalYAML() (any, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSpecifier, s.String())
	}
	return s.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Specifier) UnmarshalYAML(n *yaml.Node) error {
	parsed, err := ParseSpecifierNode(n)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// splitNameVersion splits "name-x.y.z" on its last '-'.
func splitNameVersion(s string) (string, Version, error) {
	i := strings.LastIndexByte(s, '-')
	if i <= 0 {
		return "", Version{}, fmt.Errorf("%w: %q", ErrInvalidSpecifier, s)
	}
	v, err := ParseVersion(s[i+1:])
	if err != nil {
		return "", Version{}, fmt.Errorf("%w: %q: %w", ErrInvalidSpecifier, s, err)
	}
	return s[:i], v, nil
}

func reverseDomain(domain string) string {
	labels := strings.Split(domain, ".")
	slices.Reverse(labels)
	return strings.Join(labels, ".")
}
