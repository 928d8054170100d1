package registry

import (
	"errors"
	"fmt"

	"github.com/zuri-dev/zpk/registry/oras"
)

// Sentinel errors for registry operations.
var (
	// ErrNotFound is returned when no package exists at the reference.
	ErrNotFound = errors.New("registry: not found")

	// ErrInvalidReference is returned when a repository reference is malformed.
	ErrInvalidReference = errors.New("registry: invalid reference")

	// ErrInvalidManifest is returned when a manifest does not describe a zpk package.
	ErrInvalidManifest = errors.New("registry: invalid package manifest")

	// ErrSpecifierMismatch is returned when a manifest names another package.
	ErrSpecifierMismatch = errors.New("registry: specifier mismatch")

	// ErrUnauthorized is returned when the registry rejects the credentials.
	ErrUnauthorized = errors.New("registry: unauthorized")

	// ErrForbidden is returned when access to the repository is denied.
	ErrForbidden = errors.New("registry: forbidden")
)

// mapOCIError translates low-level ORAS errors to registry sentinels.
func mapOCIError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidReference):
		return err
	case errors.Is(err, oras.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, oras.ErrInvalidReference):
		return fmt.Errorf("%w: %v", ErrInvalidReference, err)
	case errors.Is(err, oras.ErrUnauthorized):
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	case errors.Is(err, oras.ErrForbidden):
		return fmt.Errorf("%w: %v", ErrForbidden, err)
	case errors.Is(err, oras.ErrManifestInvalid):
		return fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	return err
}
