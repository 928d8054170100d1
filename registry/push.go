package registry

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/opencontainers/image-spec/specs-go"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	zpk "github.com/zuri-dev/zpk"
	"github.com/zuri-dev/zpk/ident"
)

// Push publishes the archive at archivePath to repoRef.
//
// repoRef names a repository without a tag, e.g. "ghcr.io/zuri/core". The
// manifest is tagged with the package version and then with any WithTags
// tags. The returned descriptor is the pushed manifest.
func (c *Client) Push(ctx context.Context, repoRef, archivePath string, opts ...PushOption) (ocispec.Descriptor, error) {
	r, err := zpk.Open(archivePath)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	return c.PushReader(ctx, repoRef, r, opts...)
}

// PushReader publishes an already opened archive to repoRef.
func (c *Client) PushReader(ctx context.Context, repoRef string, r *zpk.Reader, opts ...PushOption) (ocispec.Descriptor, error) {
	cfg := pushConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	spec, err := r.ReadSpecifier()
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	tag := spec.Version.String()

	configDesc, err := c.pushEmptyConfig(ctx, repoRef)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("push config: %w", err)
	}

	layer := ocispec.Descriptor{
		MediaType:   MediaTypePackage,
		Digest:      r.Digest(),
		Size:        r.Size(),
		Annotations: map[string]string{ocispec.AnnotationTitle: spec.ArchiveName()},
	}
	if err := c.oci.PushBlob(ctx, repoRef, &layer, bytes.NewReader(r.Bytes())); err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("push package blob: %w", mapOCIError(err))
	}

	manifest := buildManifest(spec, &configDesc, &layer, cfg.annotations, c.now())
	desc, err := c.oci.PushManifest(ctx, repoRef, tag, &manifest)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("push manifest: %w", mapOCIError(err))
	}
	for _, extra := range cfg.tags {
		if err := c.oci.Tag(ctx, repoRef, &desc, extra); err != nil {
			return ocispec.Descriptor{}, fmt.Errorf("tag %q: %w", extra, mapOCIError(err))
		}
	}

	c.log().Info("pushed package",
		"package", spec.String(),
		"repository", repoRef,
		"digest", desc.Digest,
		"size", layer.Size)
	return desc, nil
}

// pushEmptyConfig pushes the empty JSON config blob required by OCI manifests.
func (c *Client) pushEmptyConfig(ctx context.Context, repoRef string) (ocispec.Descriptor, error) {
	config := []byte("{}")
	desc := ocispec.Descriptor{
		MediaType: ocispec.MediaTypeEmptyJSON,
		Digest:    digest.FromBytes(config),
		Size:      int64(len(config)),
	}
	if err := c.oci.PushBlob(ctx, repoRef, &desc, bytes.NewReader(config)); err != nil {
		return ocispec.Descriptor{}, mapOCIError(err)
	}
	return desc, nil
}

func buildManifest(spec ident.Specifier, configDesc, layer *ocispec.Descriptor, custom map[string]string, now time.Time) ocispec.Manifest {
	annotations := make(map[string]string, len(custom)+2)
	for k, v := range custom {
		annotations[k] = v
	}
	if _, ok := annotations[ocispec.AnnotationCreated]; !ok {
		annotations[ocispec.AnnotationCreated] = now.UTC().Format(time.RFC3339)
	}
	annotations[AnnotationSpecifier] = spec.String()

	return ocispec.Manifest{
		Versioned:    specs.Versioned{SchemaVersion: 2},
		MediaType:    ocispec.MediaTypeImageManifest,
		ArtifactType: ArtifactType,
		Config:       *configDesc,
		Layers:       []ocispec.Descriptor{*layer},
		Annotations:  annotations,
	}
}
