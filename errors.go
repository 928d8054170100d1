package zpk

import (
	"errors"
	"fmt"

	"github.com/zuri-dev/zpk/manifest"
)

// Errors re-exported from manifest.
var (
	// ErrDuplicateEntry is returned when an entry path is already declared.
	ErrDuplicateEntry = manifest.ErrDuplicateEntry

	// ErrDuplicateAttr is returned when an entry already carries an attr id.
	ErrDuplicateAttr = manifest.ErrDuplicateAttr

	// ErrPackageInvariant is returned when a declaration violates the entry
	// tree rules, or the writer is used after WritePackage.
	ErrPackageInvariant = manifest.ErrPackageInvariant

	// ErrPackagerInvariant is returned when a required attr is missing.
	ErrPackagerInvariant = manifest.ErrPackagerInvariant

	// ErrInvalidManifest is returned when the manifest section fails verification.
	ErrInvalidManifest = manifest.ErrInvalidManifest
)

// Archive errors.
var (
	// ErrInvalidHeader is returned when the archive header is truncated or
	// does not match the zpk format.
	ErrInvalidHeader = errors.New("zpk: invalid header")

	// ErrMissingEntry is returned when a path is not present in the archive.
	ErrMissingEntry = errors.New("zpk: missing entry")

	// ErrLinkRecursion is returned when a link chain exceeds
	// manifest.MaxLinkRecursion hops, forms a cycle or dangles.
	ErrLinkRecursion = fmt.Errorf("%w: link recursion", manifest.ErrInvalidManifest)

	// ErrSymlink is returned when PutTree meets a symbolic link.
	ErrSymlink = errors.New("zpk: symlink not supported")

	// ErrDecompression is returned when the content region cannot be decompressed.
	ErrDecompression = errors.New("zpk: decompression failed")

	// ErrMissingConfig is returned when an archive carries no /package.config.
	ErrMissingConfig = errors.New("zpk: missing package config")
)
