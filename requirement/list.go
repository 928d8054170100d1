package requirement

import (
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zuri-dev/zpk/ident"
)

// List is the conjunction of requirements parsed from one expression.
// The empty list is satisfied by every version.
type List []Requirement

// ParseList parses a comma-separated list of requirement expressions.
func ParseList(expr string) (List, error) {
	var out List
	for part := range strings.SplitSeq(expr, ",") {
		r, err := Parse(part)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// SatisfiedBy reports whether v satisfies every member of l.
func (l List) SatisfiedBy(v ident.Version) bool {
	for _, r := range l {
		if !r.SatisfiedBy(v) {
			return false
		}
	}
	return true
}

// Interval returns the intersection of the members' intervals.
func (l List) Interval() Interval {
	iv := Unbounded
	for _, r := range l {
		iv = iv.Intersect(r.Interval())
	}
	return iv
}

// Conflicting reports whether no version can satisfy l.
func (l List) Conflicting() bool {
	return l.Interval().Empty()
}

// Merge returns the conjunction of l and other.
func (l List) Merge(other List) List {
	out := make(List, 0, len(l)+len(other))
	out = append(out, l...)
	for _, r := range other {
		if !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	return out
}

func (l List) String() string {
	parts := make([]string, len(l))
	for i, r := range l {
		parts[i] = r.String()
	}
	return strings.Join(parts, ", ")
}

// ToNode returns a scalar node for a single requirement and a sequence
// node otherwise.
func (l List) ToNode() *yaml.Node {
	if len(l) == 1 {
		return l[0].ToNode()
	}
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, r := range l {
		seq.Content = append(seq.Content, r.ToNode())
	}
	return seq
}

// ParseListNode parses a scalar (comma-separated) or sequence node.
func ParseListNode(n *yaml.Node) (List, error) {
	if n == nil {
		return nil, fmt.Errorf("%w: nil node", ErrInvalidRequirement)
	}
	switch n.Kind {
	case yaml.ScalarNode:
		return ParseList(n.Value)
	case yaml.SequenceNode:
		out := make(List, 0, len(n.Content))
		for _, item := range n.Content {
			r, err := ParseNode(item)
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: expected scalar or sequence node", ErrInvalidRequirement)
	}
}

// MarshalYAML implements yaml.Marshaler.
func (l List) MarshalYAML() (any, error) {
	return l.ToNode(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *List) UnmarshalYAML(n *yaml.Node) error {
	parsed, err := ParseListNode(n)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Dependency binds a requirement list to a package id.
type Dependency struct {
	ID           ident.PackageID
	Requirements List
}

// ParseDependency parses "name@domain:<list>", for example
// "core@zuri.dev:^1.2.3" or "core@zuri.dev:>=1.0.0 <2.0.0, ~1.4".
func ParseDependency(s string) (Dependency, error) {
	idPart, listPart, ok := strings.Cut(s, ":")
	if !ok {
		return Dependency{}, fmt.Errorf("%w: %q", ErrInvalidRequirement, s)
	}
	id, err := ident.ParsePackageID(idPart)
	if err != nil {
		return Dependency{}, fmt.Errorf("%w: %w", ErrInvalidRequirement, err)
	}
	list, err := ParseList(listPart)
	if err != nil {
		return Dependency{}, err
	}
	return Dependency{ID: id, Requirements: list}, nil
}

// SatisfiedBy reports whether s names d's package at a version satisfying
// every requirement.
func (d Dependency) SatisfiedBy(s ident.Specifier) bool {
	return s.ID == d.ID && d.Requirements.SatisfiedBy(s.Version)
}

func (d Dependency) String() string {
	return d.ID.String() + ":" + d.Requirements.String()
}

// ToNode returns the requirements node of d. The id is carried by the
// enclosing mapping key, see Dependencies.
func (d Dependency) ToNode() *yaml.Node {
	return d.Requirements.ToNode()
}

// Dependencies marshals to YAML as a mapping from package id to
// requirement list, sorted by id.
type Dependencies []Dependency

// MarshalYAML implements yaml.Marshaler.
func (ds Dependencies) MarshalYAML() (any, error) {
	sorted := slices.Clone(ds)
	slices.SortFunc(sorted, func(a, b Dependency) int { return a.ID.Compare(b.ID) })
	m := &yaml.Node{Kind: yaml.MappingNode}
	for _, d := range sorted {
		if !d.ID.IsValid() {
			return nil, fmt.Errorf("%w: dependency id %q", ErrInvalidRequirement, d.ID.String())
		}
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: d.ID.String()}
		m.Content = append(m.Content, key, d.ToNode())
	}
	return m, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (ds *Dependencies) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: expected mapping node", ErrInvalidRequirement)
	}
	out := make(Dependencies, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		id, err := ident.ParsePackageID(n.Content[i].Value)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRequirement, err)
		}
		list, err := ParseListNode(n.Content[i+1])
		if err != nil {
			return err
		}
		out = append(out, Dependency{ID: id, Requirements: list})
	}
	*ds = out
	return nil
}
