package registry

// Media types and annotations for zpk packages in OCI registries.
const (
	// ArtifactType identifies zpk packages as an OCI 1.1 artifact type.
	ArtifactType = "application/vnd.zuri.package.v1"

	// MediaTypePackage is the media type of the archive layer.
	MediaTypePackage = "application/vnd.zuri.package.v1.zpk"

	// AnnotationSpecifier holds the package specifier, e.g. "core@zuri.dev:1.2.3".
	AnnotationSpecifier = "dev.zuri.package.specifier"
)
