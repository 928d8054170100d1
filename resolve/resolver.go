// Package resolve selects concrete package versions for a set of
// dependencies.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"maps"
	"slices"

	zpk "github.com/zuri-dev/zpk"
	"github.com/zuri-dev/zpk/ident"
	"github.com/zuri-dev/zpk/requirement"
)

var (
	// ErrUnknownPackage is returned by resolvers for packages they do not hold.
	ErrUnknownPackage = errors.New("resolve: unknown package")

	// ErrUnsatisfiable is returned when no version of a package satisfies
	// the merged requirements on it.
	ErrUnsatisfiable = errors.New("resolve: unsatisfiable requirements")
)

// Resolver answers which versions of a package exist and what each
// version requires.
type Resolver interface {
	// Versions returns the available versions of id in any order.
	Versions(ctx context.Context, id ident.PackageID) ([]ident.Version, error)

	// Requirements returns the direct dependencies of spec.
	Requirements(ctx context.Context, spec ident.Specifier) ([]requirement.Dependency, error)
}

// StaticResolver is an in-memory Resolver. It is not safe for concurrent
// registration.
type StaticResolver struct {
	packages map[ident.PackageID]map[ident.Version][]requirement.Dependency
}

// NewStaticResolver returns an empty StaticResolver.
func NewStaticResolver() *StaticResolver {
	return &StaticResolver{packages: make(map[ident.PackageID]map[ident.Version][]requirement.Dependency)}
}

// Add registers spec with its dependencies, replacing an earlier
// registration of the same spec.
func (r *StaticResolver) Add(spec ident.Specifier, deps ...requirement.Dependency) {
	versions, ok := r.packages[spec.ID]
	if !ok {
		versions = make(map[ident.Version][]requirement.Dependency)
		r.packages[spec.ID] = versions
	}
	versions[spec.Version] = slices.Clone(deps)
}

// Versions implements Resolver.
func (r *StaticResolver) Versions(_ context.Context, id ident.PackageID) ([]ident.Version, error) {
	versions, ok := r.packages[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPackage, id)
	}
	return slices.SortedFunc(maps.Keys(versions), ident.Version.Compare), nil
}

// Requirements implements Resolver.
func (r *StaticResolver) Requirements(_ context.Context, spec ident.Specifier) ([]requirement.Dependency, error) {
	deps, ok := r.packages[spec.ID][spec.Version]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPackage, spec)
	}
	return slices.Clone(deps), nil
}

// Catalog lists installed packages and their configurations.
// *cache.Cache implements it.
type Catalog interface {
	Packages() iter.Seq2[ident.Specifier, error]
	DescribePackage(spec ident.Specifier) (*zpk.Config, error)
}

// CatalogResolver resolves against the packages of a Catalog.
type CatalogResolver struct {
	catalog Catalog
}

// FromCatalog returns a Resolver over the packages in c.
func FromCatalog(c Catalog) *CatalogResolver {
	return &CatalogResolver{catalog: c}
}

// Versions implements Resolver.
func (r *CatalogResolver) Versions(ctx context.Context, id ident.PackageID) ([]ident.Version, error) {
	var out []ident.Version
	for spec, err := range r.catalog.Packages() {
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if spec.ID == id {
			out = append(out, spec.Version)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPackage, id)
	}
	slices.SortFunc(out, ident.Version.Compare)
	return out, nil
}

// Requirements implements Resolver.
func (r *CatalogResolver) Requirements(_ context.Context, spec ident.Specifier) ([]requirement.Dependency, error) {
	cfg, err := r.catalog.DescribePackage(spec)
	if err != nil {
		return nil, err
	}
	return cfg.Requirements, nil
}

// sortIDs returns the keys of m in PackageID order.
func sortIDs[V any](m map[ident.PackageID]V) []ident.PackageID {
	return slices.SortedFunc(maps.Keys(m), ident.PackageID.Compare)
}
