package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/zuri-dev/zpk/ident"
	"github.com/zuri-dev/zpk/requirement"
)

// DefaultMaxRounds bounds the number of selection rounds.
const DefaultMaxRounds = 64

// Selector picks the highest version of every package reachable from a
// set of dependencies such that all requirements on it hold.
//
// Selection runs in rounds. Each round merges the root dependencies with
// the dependencies of every package selected in the previous round, then
// selects again. It stops when a round changes nothing.
type Selector struct {
	resolver  Resolver
	maxRounds int
	logger    *slog.Logger

	versions map[ident.PackageID][]ident.Version
	deps     map[ident.Specifier][]requirement.Dependency
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithMaxRounds bounds the number of selection rounds. Values <= 0 are ignored.
func WithMaxRounds(n int) SelectorOption {
	return func(s *Selector) {
		if n > 0 {
			s.maxRounds = n
		}
	}
}

// WithLogger sets the logger for selection rounds.
func WithLogger(logger *slog.Logger) SelectorOption {
	return func(s *Selector) {
		s.logger = logger
	}
}

// NewSelector returns a Selector consulting r. Answers from r are memoized
// for the life of the Selector.
func NewSelector(r Resolver, opts ...SelectorOption) *Selector {
	s := &Selector{
		resolver:  r,
		maxRounds: DefaultMaxRounds,
		versions:  make(map[ident.PackageID][]ident.Version),
		deps:      make(map[ident.Specifier][]requirement.Dependency),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// log returns the logger, falling back to a discard logger if nil.
func (s *Selector) log() *slog.Logger {
	if s.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.logger
}

// Select resolves deps and returns the chosen packages with dependencies
// before their dependents. Ties are broken by package id.
func (s *Selector) Select(ctx context.Context, deps ...requirement.Dependency) ([]ident.Specifier, error) {
	selected := map[ident.PackageID]ident.Version{}
	for round := range s.maxRounds {
		constraints, err := s.constraints(ctx, deps, selected)
		if err != nil {
			return nil, err
		}
		next := make(map[ident.PackageID]ident.Version, len(constraints))
		for _, id := range sortIDs(constraints) {
			v, err := s.pick(ctx, id, constraints[id])
			if err != nil {
				return nil, err
			}
			next[id] = v
		}
		s.log().Debug("selection round", "round", round, "packages", len(next))
		if maps.Equal(selected, next) {
			return s.order(ctx, selected)
		}
		selected = next
	}
	return nil, fmt.Errorf("%w: no stable selection after %d rounds", ErrUnsatisfiable, s.maxRounds)
}

// constraints merges the root dependencies with those of every selected
// package.
func (s *Selector) constraints(ctx context.Context, root []requirement.Dependency, selected map[ident.PackageID]ident.Version) (map[ident.PackageID]requirement.List, error) {
	out := make(map[ident.PackageID]requirement.List)
	add := func(d requirement.Dependency) {
		out[d.ID] = out[d.ID].Merge(d.Requirements)
	}
	for _, d := range root {
		add(d)
	}
	for _, id := range sortIDs(selected) {
		deps, err := s.requirements(ctx, ident.Specifier{ID: id, Version: selected[id]})
		if err != nil {
			return nil, err
		}
		for _, d := range deps {
			add(d)
		}
	}
	return out, nil
}

// pick returns the highest version of id satisfying list.
func (s *Selector) pick(ctx context.Context, id ident.PackageID, list requirement.List) (ident.Version, error) {
	if list.Conflicting() {
		return ident.Version{}, fmt.Errorf("%w: %s: %s has no solution", ErrUnsatisfiable, id, list)
	}
	versions, err := s.available(ctx, id)
	if err != nil {
		return ident.Version{}, err
	}
	for _, v := range slices.Backward(versions) {
		if list.SatisfiedBy(v) {
			return v, nil
		}
	}
	return ident.Version{}, fmt.Errorf("%w: %s: no version satisfies %s", ErrUnsatisfiable, id, list)
}

// order sorts the selection so that dependencies precede dependents.
// Members of a cycle keep package id order.
func (s *Selector) order(ctx context.Context, selected map[ident.PackageID]ident.Version) ([]ident.Specifier, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[ident.PackageID]int, len(selected))
	out := make([]ident.Specifier, 0, len(selected))

	var visit func(id ident.PackageID) error
	visit = func(id ident.PackageID) error {
		if state[id] != unvisited {
			return nil
		}
		state[id] = visiting
		spec := ident.Specifier{ID: id, Version: selected[id]}
		deps, err := s.requirements(ctx, spec)
		if err != nil {
			return err
		}
		ids := make([]ident.PackageID, 0, len(deps))
		for _, d := range deps {
			ids = append(ids, d.ID)
		}
		slices.SortFunc(ids, ident.PackageID.Compare)
		for _, dep := range ids {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[id] = done
		out = append(out, spec)
		return nil
	}
	for _, id := range sortIDs(selected) {
		if err := visit(id); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Selector) available(ctx context.Context, id ident.PackageID) ([]ident.Version, error) {
	if versions, ok := s.versions[id]; ok {
		return versions, nil
	}
	versions, err := s.resolver.Versions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("versions of %s: %w", id, err)
	}
	versions = slices.SortedFunc(slices.Values(versions), ident.Version.Compare)
	s.versions[id] = versions
	return versions, nil
}

func (s *Selector) requirements(ctx context.Context, spec ident.Specifier) ([]requirement.Dependency, error) {
	if deps, ok := s.deps[spec]; ok {
		return deps, nil
	}
	deps, err := s.resolver.Requirements(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("requirements of %s: %w", spec, err)
	}
	s.deps[spec] = deps
	return deps, nil
}
