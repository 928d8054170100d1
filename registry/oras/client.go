// Package oras implements registry.OCIClient on top of the ORAS library.
//
// Client handles credential lookup, token exchange and retries, and hands
// out plain HTTP headers for transfers that bypass ORAS, such as the
// fetcher downloading a package blob directly.
package oras

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2/errdef"
	"oras.land/oras-go/v2/registry"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"
	"oras.land/oras-go/v2/registry/remote/errcode"
	"oras.land/oras-go/v2/registry/remote/retry"
)

// DefaultUserAgent is sent with every registry request.
const DefaultUserAgent = "zpk/1.0"

// Client performs OCI registry operations for package artifacts.
type Client struct {
	plainHTTP   bool
	userAgent   string
	anonymous   bool
	credStore   credentials.Store
	httpClient  *http.Client
	logger      *slog.Logger
	authClient  *auth.Client
	authCache   *headerCache
}

// New returns a Client configured by opts.
func New(opts ...Option) *Client {
	c := &Client{
		userAgent:  DefaultUserAgent,
		httpClient: retry.DefaultClient,
		authCache:  newHeaderCache(defaultHeaderTTL, defaultHeaderLimit),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.authClient = &auth.Client{
		Client: c.httpClient,
		Cache:  auth.NewCache(),
		Credential: func(ctx context.Context, hostport string) (auth.Credential, error) {
			if c.anonymous || c.credStore == nil {
				return auth.EmptyCredential, nil
			}
			return c.credStore.Get(ctx, hostport)
		},
		Header: http.Header{"User-Agent": {c.userAgent}},
	}
	return c
}

// log returns the logger, falling back to a discard logger if nil.
func (c *Client) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

func (c *Client) repository(repoRef string) (*remote.Repository, error) {
	repo, err := remote.NewRepository(repoRef)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidReference, repoRef, err)
	}
	repo.PlainHTTP = c.plainHTTP
	repo.Client = c.authClient
	return repo, nil
}

func parseRef(ref string) (registry.Reference, error) {
	r, err := registry.ParseReference(ref)
	if err != nil {
		return registry.Reference{}, fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	return r, nil
}

// PushBlob uploads desc.Size bytes read from r.
func (c *Client) PushBlob(ctx context.Context, repoRef string, desc *ocispec.Descriptor, r io.Reader) error {
	if err := validateDescriptor(desc); err != nil {
		return err
	}
	if r == nil {
		return fmt.Errorf("%w: content reader is nil", ErrInvalidDescriptor)
	}
	repo, err := c.repository(repoRef)
	if err != nil {
		return err
	}
	if err := repo.Push(ctx, *desc, r); err != nil {
		return mapError(err)
	}
	c.log().Debug("pushed blob", "repository", repoRef, "digest", desc.Digest, "size", desc.Size)
	return nil
}

// PushManifest uploads an image manifest and tags it.
func (c *Client) PushManifest(ctx context.Context, repoRef, tag string, manifest *ocispec.Manifest) (ocispec.Descriptor, error) {
	if manifest == nil {
		return ocispec.Descriptor{}, fmt.Errorf("%w: manifest is nil", ErrManifestInvalid)
	}
	repo, err := c.repository(repoRef)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	data, err := json.Marshal(manifest)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("marshal manifest: %w", err)
	}
	desc := ocispec.Descriptor{
		MediaType:    ocispec.MediaTypeImageManifest,
		ArtifactType: manifest.ArtifactType,
		Digest:       digest.FromBytes(data),
		Size:         int64(len(data)),
	}
	if err := repo.PushReference(ctx, desc, bytes.NewReader(data), tag); err != nil {
		return ocispec.Descriptor{}, mapError(err)
	}
	c.log().Debug("pushed manifest", "repository", repoRef, "tag", tag, "digest", desc.Digest)
	return desc, nil
}

// Tag points tag at desc.
func (c *Client) Tag(ctx context.Context, repoRef string, desc *ocispec.Descriptor, tag string) error {
	if err := validateDescriptor(desc); err != nil {
		return err
	}
	repo, err := c.repository(repoRef)
	if err != nil {
		return err
	}
	if err := repo.Tag(ctx, *desc, tag); err != nil {
		return mapError(err)
	}
	return nil
}

// Resolve resolves a tag or digest to a manifest descriptor.
func (c *Client) Resolve(ctx context.Context, repoRef, ref string) (ocispec.Descriptor, error) {
	repo, err := c.repository(repoRef)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	desc, err := repo.Resolve(ctx, ref)
	if err != nil {
		return ocispec.Descriptor{}, mapError(err)
	}
	return desc, nil
}

// FetchManifest fetches and decodes the image manifest described by
// expected. Pass the descriptor returned by Resolve.
func (c *Client) FetchManifest(ctx context.Context, repoRef string, expected *ocispec.Descriptor) (ocispec.Manifest, error) {
	if err := validateDescriptor(expected); err != nil {
		return ocispec.Manifest{}, err
	}
	if expected.MediaType != "" && expected.MediaType != ocispec.MediaTypeImageManifest {
		return ocispec.Manifest{}, fmt.Errorf("%w: unsupported media type %s", ErrManifestInvalid, expected.MediaType)
	}
	repo, err := c.repository(repoRef)
	if err != nil {
		return ocispec.Manifest{}, err
	}
	_, rc, err := repo.FetchReference(ctx, expected.Digest.String())
	if err != nil {
		return ocispec.Manifest{}, mapError(err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, expected.Size))
	if err != nil {
		return ocispec.Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	if got := digest.FromBytes(data); got != expected.Digest {
		return ocispec.Manifest{}, fmt.Errorf("%w: manifest %s, got %s", ErrDigestMismatch, expected.Digest, got)
	}
	var manifest ocispec.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return ocispec.Manifest{}, fmt.Errorf("%w: %v", ErrManifestInvalid, err)
	}
	return manifest, nil
}

// BlobURL returns the distribution API URL of a blob.
func (c *Client) BlobURL(repoRef, dgst string) (string, error) {
	ref, err := parseRef(repoRef)
	if err != nil {
		return "", err
	}
	scheme := "https"
	if c.plainHTTP {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s/v2/%s/blobs/%s", scheme, ref.Host(), ref.Repository, dgst), nil
}

// AuthHeaders returns headers for fetching blobs of repoRef without ORAS.
//
// Only raw credentials are used: a stored access token becomes a bearer
// header and a username becomes basic auth. No token exchange happens
// here. After a 401, call InvalidateAuthHeaders and try again.
func (c *Client) AuthHeaders(ctx context.Context, repoRef string) (http.Header, error) {
	ref, err := parseRef(repoRef)
	if err != nil {
		return nil, err
	}
	host := ref.Host()

	headers := http.Header{"User-Agent": {c.userAgent}}
	if c.anonymous || c.credStore == nil {
		return headers, nil
	}
	if value, ok := c.authCache.lookup(host); ok {
		if value != "" {
			headers.Set("Authorization", value)
		}
		return headers, nil
	}

	cred, err := c.credStore.Get(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("get credentials for %s: %w", host, err)
	}
	var value string
	switch {
	case cred.AccessToken != "":
		value = "Bearer " + cred.AccessToken
	case cred.Username != "":
		value = "Basic " + base64.StdEncoding.EncodeToString([]byte(cred.Username+":"+cred.Password))
	}
	if value != "" {
		headers.Set("Authorization", value)
	}
	c.authCache.store(host, value)
	return headers, nil
}

// InvalidateAuthHeaders drops the cached headers for the host of repoRef.
func (c *Client) InvalidateAuthHeaders(repoRef string) error {
	ref, err := parseRef(repoRef)
	if err != nil {
		return err
	}
	c.authCache.drop(ref.Host())
	return nil
}

func validateDescriptor(desc *ocispec.Descriptor) error {
	if desc == nil {
		return fmt.Errorf("%w: descriptor is nil", ErrInvalidDescriptor)
	}
	if desc.Size < 0 {
		return fmt.Errorf("%w: negative size %d", ErrInvalidDescriptor, desc.Size)
	}
	if err := desc.Digest.Validate(); err != nil {
		return fmt.Errorf("%w: invalid digest %q: %v", ErrInvalidDescriptor, desc.Digest, err)
	}
	return nil
}

// mapError maps ORAS errors to the sentinels of this package.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, errdef.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	var resp *errcode.ErrorResponse
	if errors.As(err, &resp) {
		switch resp.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %v", ErrUnauthorized, err)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrForbidden, err)
		}
	}
	return err
}
