package cache

import (
	"errors"
	"fmt"

	zpk "github.com/zuri-dev/zpk"
	"github.com/zuri-dev/zpk/ident"
)

// Tiered consults an ordered list of caches. Earlier tiers shadow later
// ones: a build-local cache can override a user cache, which overrides a
// read-only system cache.
type Tiered struct {
	tiers []Readonly
}

var _ Readonly = (*Tiered)(nil)

// NewTiered returns a Tiered over caches in priority order.
func NewTiered(caches ...Readonly) *Tiered {
	return &Tiered{tiers: caches}
}

// OpenTiered opens each directory as a read-only cache tier.
func OpenTiered(dirs ...string) (*Tiered, error) {
	tiers := make([]Readonly, 0, len(dirs))
	for _, dir := range dirs {
		c, err := Open(dir, WithReadOnly())
		if err != nil {
			return nil, fmt.Errorf("open tier %s: %w", dir, err)
		}
		tiers = append(tiers, c)
	}
	return NewTiered(tiers...), nil
}

// Tiers returns the caches in priority order.
func (t *Tiered) Tiers() []Readonly {
	return t.tiers
}

// ContainsPackage reports whether any tier holds spec.
func (t *Tiered) ContainsPackage(spec ident.Specifier) (bool, error) {
	for _, tier := range t.tiers {
		ok, err := tier.ContainsPackage(spec)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// ResolvePackage returns the directory from the first tier holding spec.
func (t *Tiered) ResolvePackage(spec ident.Specifier) (string, bool, error) {
	for _, tier := range t.tiers {
		path, ok, err := tier.ResolvePackage(spec)
		if err != nil || ok {
			return path, ok, err
		}
	}
	return "", false, nil
}

// DescribePackage returns the config from the first tier holding spec.
func (t *Tiered) DescribePackage(spec ident.Specifier) (*zpk.Config, error) {
	for _, tier := range t.tiers {
		cfg, err := tier.DescribePackage(spec)
		if errors.Is(err, ErrMissingPackage) {
			continue
		}
		return cfg, err
	}
	return nil, fmt.Errorf("%w: %s", ErrMissingPackage, spec)
}
