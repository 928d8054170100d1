package oras

import (
	"log/slog"
	"net/http"
	"time"

	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"
)

// Option configures a Client.
type Option func(*Client)

// WithCredentialStore sets the store consulted for registry credentials.
func WithCredentialStore(store credentials.Store) Option {
	return func(c *Client) {
		c.credStore = store
	}
}

// WithStaticCredentials uses a fixed username and password for registry,
// given as host[:port] exactly as it appears in references.
func WithStaticCredentials(registry, username, password string) Option {
	return func(c *Client) {
		c.credStore = memoryStore(registry, auth.Credential{Username: username, Password: password})
	}
}

// WithStaticToken uses a fixed bearer token for registry, given as
// host[:port].
func WithStaticToken(registry, token string) Option {
	return func(c *Client) {
		c.credStore = memoryStore(registry, auth.Credential{AccessToken: token})
	}
}

// WithDockerConfig reads credentials from the Docker config and its
// credential helpers. If the config cannot be loaded the client keeps its
// current store.
func WithDockerConfig() Option {
	return func(c *Client) {
		store, err := DockerCredentialStore()
		if err != nil {
			return
		}
		c.credStore = store
	}
}

// WithPlainHTTP talks to registries over plain HTTP.
func WithPlainHTTP(enabled bool) Option {
	return func(c *Client) {
		c.plainHTTP = enabled
	}
}

// WithAnonymous disables credential lookups entirely.
func WithAnonymous() Option {
	return func(c *Client) {
		c.anonymous = true
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithHTTPClient replaces the retrying HTTP client used underneath the
// auth layer.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithAuthHeaderCacheTTL sets how long AuthHeaders results are reused.
// A zero or negative ttl disables the cache.
func WithAuthHeaderCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.authCache = newHeaderCache(ttl, defaultHeaderLimit)
	}
}

// WithLogger sets the logger for push events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}
