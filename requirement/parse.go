package requirement

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zuri-dev/zpk/ident"
)

// Parse parses a single requirement expression.
//
// Accepted forms:
//
//	1.2.3  =1.2.3           exact
//	>=1.2.3 <2.0.0          range
//	~1  ~1.2  ~1.2.3        tilde
//	^1  ^1.2  ^1.2.3        caret
//	1.2.3-1.2.6             hyphen (spaces around '-' allowed)
func Parse(expr string) (Requirement, error) {
	s := strings.TrimSpace(expr)
	switch {
	case s == "":
		return Requirement{}, fmt.Errorf("%w: empty expression", ErrInvalidRequirement)
	case strings.HasPrefix(s, "~"):
		v, p, err := parsePartial(s[1:])
		if err != nil {
			return Requirement{}, fmt.Errorf("%w: %q", ErrInvalidRequirement, expr)
		}
		return Tilde(v, p), nil
	case strings.HasPrefix(s, "^"):
		v, p, err := parsePartial(s[1:])
		if err != nil {
			return Requirement{}, fmt.Errorf("%w: %q", ErrInvalidRequirement, expr)
		}
		return Caret(v, p), nil
	case strings.HasPrefix(s, ">="):
		return parseRange(expr, s)
	case strings.HasPrefix(s, "="):
		v, err := ident.ParseVersion(strings.TrimSpace(s[1:]))
		if err != nil {
			return Requirement{}, fmt.Errorf("%w: %q", ErrInvalidRequirement, expr)
		}
		return closed(expr, Exact(v), v)
	case strings.Contains(s, "-"):
		lo, hi, _ := strings.Cut(s, "-")
		lower, err := ident.ParseVersion(strings.TrimSpace(lo))
		if err != nil {
			return Requirement{}, fmt.Errorf("%w: %q", ErrInvalidRequirement, expr)
		}
		upper, err := ident.ParseVersion(strings.TrimSpace(hi))
		if err != nil {
			return Requirement{}, fmt.Errorf("%w: %q", ErrInvalidRequirement, expr)
		}
		return closed(expr, Hyphen(lower, upper), upper)
	default:
		v, err := ident.ParseVersion(s)
		if err != nil {
			return Requirement{}, fmt.Errorf("%w: %q", ErrInvalidRequirement, expr)
		}
		return closed(expr, Exact(v), v)
	}
}

// closed rejects requirements whose inclusive upper bound is
// ident.MaxVersion, which has no successor to close the interval with.
func closed(expr string, r Requirement, upper ident.Version) (Requirement, error) {
	if upper == ident.MaxVersion {
		return Requirement{}, fmt.Errorf("%w: %q: upper bound %s has no successor", ErrInvalidRequirement, expr, upper)
	}
	return r, nil
}

func parseRange(expr, s string) (Requirement, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 || !strings.HasPrefix(fields[1], "<") || strings.HasPrefix(fields[1], "<=") {
		return Requirement{}, fmt.Errorf("%w: %q", ErrInvalidRequirement, expr)
	}
	lower, err := ident.ParseVersion(fields[0][2:])
	if err != nil {
		return Requirement{}, fmt.Errorf("%w: %q", ErrInvalidRequirement, expr)
	}
	upper, err := ident.ParseVersion(fields[1][1:])
	if err != nil {
		return Requirement{}, fmt.Errorf("%w: %q", ErrInvalidRequirement, expr)
	}
	return Range(lower, upper), nil
}

func parsePartial(s string) (ident.Version, Precision, error) {
	parts := strings.Split(s, ".")
	if len(parts) < 1 || len(parts) > 3 {
		return ident.Version{}, 0, ErrInvalidRequirement
	}
	var nums [3]uint32
	for i, part := range parts {
		n, err := ident.ParseComponent(part)
		if err != nil {
			return ident.Version{}, 0, err
		}
		nums[i] = n
	}
	return ident.NewVersion(nums[0], nums[1], nums[2]), Precision(len(parts)), nil
}

// ToNode returns r as a YAML scalar node.
func (r Requirement) ToNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: r.String()}
}

// ParseNode parses a YAML scalar node holding one requirement.
func ParseNode(n *yaml.Node) (Requirement, error) {
	if n == nil || n.Kind != yaml.ScalarNode {
		return Requirement{}, fmt.Errorf("%w: expected scalar node", ErrInvalidRequirement)
	}
	return Parse(n.Value)
}

// MarshalYAML implements yaml.Marshaler.
func (r Requirement) MarshalYAML() (any, error) {
	if !r.IsValid() {
		return nil, fmt.Errorf("%w: zero requirement", ErrInvalidRequirement)
	}
	return r.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *Requirement) UnmarshalYAML(n *yaml.Node) error {
	parsed, err := ParseNode(n)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
