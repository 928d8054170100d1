package registry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/zuri-dev/zpk/fetch"
	"github.com/zuri-dev/zpk/ident"
)

// Location is a resolved package download.
type Location struct {
	Specifier ident.Specifier
	URL       string
	Headers   http.Header
	Digest    digest.Digest
	Size      int64

	// Manifest is the digest of the package manifest in the registry.
	Manifest digest.Digest
}

// AddTo registers the location with f. The fetcher verifies the
// downloaded archive against Digest.
func (l Location) AddTo(f *fetch.Fetcher) error {
	return f.AddPackage(l.Specifier, l.URL,
		fetch.WithPackageHeaders(l.Headers),
		fetch.WithExpectedDigest(l.Digest))
}

// Resolve finds spec in repoRef and returns where to download its archive.
//
// The manifest tagged with the package version must be a zpk package
// artifact with exactly one package layer and a specifier annotation equal
// to spec.
func (c *Client) Resolve(ctx context.Context, repoRef string, spec ident.Specifier) (Location, error) {
	if !spec.IsValid() {
		return Location{}, fmt.Errorf("%w: invalid specifier %q", ErrInvalidReference, spec)
	}

	desc, err := c.oci.Resolve(ctx, repoRef, spec.Version.String())
	if err != nil {
		return Location{}, fmt.Errorf("resolve %s: %w", spec, mapOCIError(err))
	}
	manifest, err := c.oci.FetchManifest(ctx, repoRef, &desc)
	if err != nil {
		return Location{}, fmt.Errorf("fetch manifest: %w", mapOCIError(err))
	}
	layer, err := packageLayer(&manifest, spec)
	if err != nil {
		return Location{}, err
	}

	url, err := c.oci.BlobURL(repoRef, layer.Digest.String())
	if err != nil {
		return Location{}, mapOCIError(err)
	}
	headers, err := c.oci.AuthHeaders(ctx, repoRef)
	if err != nil {
		return Location{}, fmt.Errorf("auth headers: %w", mapOCIError(err))
	}

	c.log().Debug("resolved package",
		"package", spec.String(),
		"repository", repoRef,
		"manifest", desc.Digest,
		"digest", layer.Digest)
	return Location{
		Specifier: spec,
		URL:       url,
		Headers:   headers,
		Digest:    layer.Digest,
		Size:      layer.Size,
		Manifest:  desc.Digest,
	}, nil
}

// packageLayer validates manifest as the package spec and returns its
// archive layer.
func packageLayer(manifest *ocispec.Manifest, spec ident.Specifier) (ocispec.Descriptor, error) {
	if manifest.ArtifactType != ArtifactType {
		return ocispec.Descriptor{}, fmt.Errorf("%w: artifact type %q", ErrInvalidManifest, manifest.ArtifactType)
	}
	if len(manifest.Layers) != 1 {
		return ocispec.Descriptor{}, fmt.Errorf("%w: %d layers", ErrInvalidManifest, len(manifest.Layers))
	}
	layer := manifest.Layers[0]
	if layer.MediaType != MediaTypePackage {
		return ocispec.Descriptor{}, fmt.Errorf("%w: layer media type %q", ErrInvalidManifest, layer.MediaType)
	}
	if err := layer.Digest.Validate(); err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("%w: layer digest: %v", ErrInvalidManifest, err)
	}

	raw, ok := manifest.Annotations[AnnotationSpecifier]
	if !ok {
		return ocispec.Descriptor{}, fmt.Errorf("%w: missing %s annotation", ErrInvalidManifest, AnnotationSpecifier)
	}
	got, err := ident.ParseSpecifier(raw)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if got != spec {
		return ocispec.Descriptor{}, fmt.Errorf("%w: want %s, manifest names %s", ErrSpecifierMismatch, spec, got)
	}
	return layer, nil
}
