package registry

import (
	"context"
	"io"
	"net/http"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// OCIClient defines the OCI registry operations the Client needs.
//
// The default implementation is oras.Client. Tests substitute mocks.
type OCIClient interface {
	// PushBlob pushes a blob. The descriptor carries the digest and size.
	PushBlob(ctx context.Context, repoRef string, desc *ocispec.Descriptor, r io.Reader) error

	// PushManifest pushes a manifest under tag.
	PushManifest(ctx context.Context, repoRef, tag string, manifest *ocispec.Manifest) (ocispec.Descriptor, error)

	// Tag points another tag at desc.
	Tag(ctx context.Context, repoRef string, desc *ocispec.Descriptor, tag string) error

	// Resolve resolves a tag or digest to a manifest descriptor.
	Resolve(ctx context.Context, repoRef, ref string) (ocispec.Descriptor, error)

	// FetchManifest fetches the manifest described by expected.
	FetchManifest(ctx context.Context, repoRef string, expected *ocispec.Descriptor) (ocispec.Manifest, error)

	// BlobURL returns the URL for direct blob downloads.
	BlobURL(repoRef, digest string) (string, error)

	// AuthHeaders returns headers for direct blob downloads.
	AuthHeaders(ctx context.Context, repoRef string) (http.Header, error)

	// InvalidateAuthHeaders clears cached headers for the repository host.
	InvalidateAuthHeaders(repoRef string) error
}
