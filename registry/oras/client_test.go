package oras

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/opencontainers/image-spec/specs-go"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"oras.land/oras-go/v2/errdef"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"
	"oras.land/oras-go/v2/registry/remote/errcode"

	"github.com/zuri-dev/zpk/internal/ocitest"
)

// countingStore counts Get calls on a wrapped store.
type countingStore struct {
	inner    credentials.Store
	getCount atomic.Int32
}

func (s *countingStore) Get(ctx context.Context, server string) (auth.Credential, error) {
	s.getCount.Add(1)
	return s.inner.Get(ctx, server)
}

func (s *countingStore) Put(ctx context.Context, server string, cred auth.Credential) error {
	return s.inner.Put(ctx, server, cred)
}

func (s *countingStore) Delete(ctx context.Context, server string) error {
	return s.inner.Delete(ctx, server)
}

func TestNew(t *testing.T) {
	t.Parallel()

	c := New()
	assert.Equal(t, DefaultUserAgent, c.userAgent)
	assert.False(t, c.plainHTTP)
	assert.Nil(t, c.credStore)
	assert.NotNil(t, c.authCache)

	c = New(WithPlainHTTP(true), WithUserAgent("test/1"), WithAuthHeaderCacheTTL(0))
	assert.True(t, c.plainHTTP)
	assert.Equal(t, "test/1", c.userAgent)
	assert.Nil(t, c.authCache)

	c = New(WithStaticToken("example.com", "tok"))
	cred, err := c.credStore.Get(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, "tok", cred.AccessToken)
}

func TestBlobURL(t *testing.T) {
	t.Parallel()

	d := digest.FromString("x").String()
	u, err := New().BlobURL("registry.example.com/zuri/core", d)
	require.NoError(t, err)
	assert.Equal(t, "https://registry.example.com/v2/zuri/core/blobs/"+d, u)

	u, err = New(WithPlainHTTP(true)).BlobURL("localhost:5000/core:1.2.3", d)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000/v2/core/blobs/"+d, u)

	_, err = New().BlobURL("not a ref", d)
	require.ErrorIs(t, err, ErrInvalidReference)
}

func TestAuthHeaders(t *testing.T) {
	t.Parallel()

	t.Run("anonymous", func(t *testing.T) {
		t.Parallel()
		store := &countingStore{inner: memoryStore("registry.example.com", auth.Credential{Username: "user", Password: "pass"})}
		c := New(WithCredentialStore(store), WithAnonymous())
		h, err := c.AuthHeaders(context.Background(), "registry.example.com/repo")
		require.NoError(t, err)
		assert.Empty(t, h.Get("Authorization"))
		assert.Equal(t, DefaultUserAgent, h.Get("User-Agent"))
		assert.Zero(t, store.getCount.Load())
	})

	t.Run("basic", func(t *testing.T) {
		t.Parallel()
		c := New(WithStaticCredentials("registry.example.com", "user", "pass"))
		h, err := c.AuthHeaders(context.Background(), "registry.example.com/repo")
		require.NoError(t, err)
		assert.Equal(t, "Basic dXNlcjpwYXNz", h.Get("Authorization"))
	})

	t.Run("bearer is cached per host", func(t *testing.T) {
		t.Parallel()
		store := &countingStore{inner: memoryStore("registry.example.com", auth.Credential{AccessToken: "tok"})}
		c := New(WithCredentialStore(store))
		for range 3 {
			h, err := c.AuthHeaders(context.Background(), "registry.example.com/repo")
			require.NoError(t, err)
			assert.Equal(t, "Bearer tok", h.Get("Authorization"))
		}
		assert.Equal(t, int32(1), store.getCount.Load())

		require.NoError(t, c.InvalidateAuthHeaders("registry.example.com/repo"))
		_, err := c.AuthHeaders(context.Background(), "registry.example.com/repo")
		require.NoError(t, err)
		assert.Equal(t, int32(2), store.getCount.Load())
	})

	t.Run("other hosts get nothing", func(t *testing.T) {
		t.Parallel()
		c := New(WithStaticToken("registry.example.com", "tok"))
		h, err := c.AuthHeaders(context.Background(), "other.example.com/repo")
		require.NoError(t, err)
		assert.Empty(t, h.Get("Authorization"))
	})

	t.Run("invalid reference", func(t *testing.T) {
		t.Parallel()
		_, err := New().AuthHeaders(context.Background(), "::bad")
		require.ErrorIs(t, err, ErrInvalidReference)
		require.ErrorIs(t, New().InvalidateAuthHeaders("::bad"), ErrInvalidReference)
	})
}

func TestMapError(t *testing.T) {
	t.Parallel()

	assert.NoError(t, mapError(nil))
	assert.ErrorIs(t, mapError(errdef.ErrNotFound), ErrNotFound)
	for code, want := range map[int]error{
		http.StatusNotFound:     ErrNotFound,
		http.StatusUnauthorized: ErrUnauthorized,
		http.StatusForbidden:    ErrForbidden,
	} {
		err := fmt.Errorf("wrapped: %w", &errcode.ErrorResponse{StatusCode: code})
		assert.ErrorIs(t, mapError(err), want, code)
	}
	other := errors.New("other")
	assert.Same(t, other, mapError(other))
}

func TestValidateDescriptor(t *testing.T) {
	t.Parallel()

	c := New()
	ctx := context.Background()
	require.ErrorIs(t, c.PushBlob(ctx, "example.com/r", nil, bytes.NewReader(nil)), ErrInvalidDescriptor)
	require.ErrorIs(t, c.PushBlob(ctx, "example.com/r", &ocispec.Descriptor{Digest: "nope"}, bytes.NewReader(nil)), ErrInvalidDescriptor)
	require.ErrorIs(t, c.PushBlob(ctx, "example.com/r", &ocispec.Descriptor{Digest: digest.FromString("x"), Size: -1}, bytes.NewReader(nil)), ErrInvalidDescriptor)
	require.ErrorIs(t, c.PushBlob(ctx, "example.com/r", &ocispec.Descriptor{Digest: digest.FromString("x"), Size: 1}, nil), ErrInvalidDescriptor)
	_, err := c.PushManifest(ctx, "example.com/r", "1.0.0", nil)
	require.ErrorIs(t, err, ErrManifestInvalid)
	_, err = c.FetchManifest(ctx, "example.com/r", &ocispec.Descriptor{
		MediaType: ocispec.MediaTypeImageIndex, Digest: digest.FromString("x"), Size: 1,
	})
	require.ErrorIs(t, err, ErrManifestInvalid)
}

func TestClientAgainstRegistry(t *testing.T) {
	t.Parallel()

	reg := ocitest.New(t)
	c := New(WithPlainHTTP(true), WithAnonymous())
	ctx := context.Background()
	repo := reg.Host() + "/zuri/core"

	content := []byte("package bytes")
	blob := ocispec.Descriptor{MediaType: "application/octet-stream", Digest: digest.FromBytes(content), Size: int64(len(content))}
	require.NoError(t, c.PushBlob(ctx, repo, &blob, bytes.NewReader(content)))
	stored, ok := reg.Blob(blob.Digest)
	require.True(t, ok)
	assert.Equal(t, content, stored)

	config := ocispec.DescriptorEmptyJSON
	require.NoError(t, c.PushBlob(ctx, repo, &config, bytes.NewReader(config.Data)))

	manifest := ocispec.Manifest{
		Versioned:    specs.Versioned{SchemaVersion: 2},
		MediaType:    ocispec.MediaTypeImageManifest,
		ArtifactType: "application/vnd.test",
		Config:       config,
		Layers:       []ocispec.Descriptor{blob},
	}
	pushed, err := c.PushManifest(ctx, repo, "1.0.0", &manifest)
	require.NoError(t, err)
	require.NoError(t, c.Tag(ctx, repo, &pushed, "latest"))

	for _, tag := range []string{"1.0.0", "latest"} {
		resolved, err := c.Resolve(ctx, repo, tag)
		require.NoError(t, err, tag)
		assert.Equal(t, pushed.Digest, resolved.Digest)
		assert.Equal(t, pushed.Size, resolved.Size)
	}

	fetched, err := c.FetchManifest(ctx, repo, &pushed)
	require.NoError(t, err)
	assert.Equal(t, "application/vnd.test", fetched.ArtifactType)
	require.Len(t, fetched.Layers, 1)
	assert.Equal(t, blob.Digest, fetched.Layers[0].Digest)

	_, err = c.Resolve(ctx, repo, "9.9.9")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestHeaderCache(t *testing.T) {
	t.Parallel()

	assert.Nil(t, newHeaderCache(0, 2))
	assert.Nil(t, newHeaderCache(-time.Second, 2))
	assert.Equal(t, defaultHeaderLimit, newHeaderCache(time.Minute, 0).limit)

	var nilCache *headerCache
	nilCache.store("a", "b")
	_, ok := nilCache.lookup("a")
	assert.False(t, ok)
	nilCache.drop("a")
	assert.Zero(t, nilCache.len())

	now := time.Unix(1000, 0)
	c := newHeaderCache(time.Minute, 2)
	c.now = func() time.Time { return now }

	c.store("a", "Bearer a")
	now = now.Add(time.Second)
	c.store("b", "Bearer b")
	v, ok := c.lookup("a")
	require.True(t, ok)
	assert.Equal(t, "Bearer a", v)

	now = now.Add(time.Second)
	c.store("c", "Bearer c")
	assert.Equal(t, 2, c.len())
	_, ok = c.lookup("a")
	assert.False(t, ok, "the host closest to expiry is evicted")
	_, ok = c.lookup("b")
	assert.True(t, ok)

	c.store("b", "")
	v, ok = c.lookup("b")
	require.True(t, ok, "hosts without credentials are remembered")
	assert.Empty(t, v)

	now = now.Add(time.Minute)
	_, ok = c.lookup("c")
	assert.False(t, ok, "entries expire")
	assert.Equal(t, 1, c.len())

	now = now.Add(time.Minute)
	c.store("d", "Bearer d")
	c.store("e", "Bearer e")
	assert.Equal(t, 2, c.len(), "expired hosts make room first")
	_, ok = c.lookup("d")
	assert.True(t, ok)

	c.drop("d")
	c.drop("e")
	assert.Zero(t, c.len())
}

func TestStaticCredentials(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memoryStore("localhost:5000", auth.Credential{Username: "user", Password: "pass"})
	cred, err := store.Get(ctx, "localhost:5000")
	require.NoError(t, err)
	assert.Equal(t, "user", cred.Username)
	assert.Equal(t, "pass", cred.Password)

	for _, other := range []string{"localhost", "localhost:5001", "registry.example.com"} {
		cred, err = store.Get(ctx, other)
		require.NoError(t, err)
		assert.Equal(t, auth.EmptyCredential, cred, other)
	}

	c := New(WithStaticToken("localhost:5000", "tok"))
	h, err := c.AuthHeaders(ctx, "localhost:5000/zuri/core")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", h.Get("Authorization"))
}
