package registry

import (
	"log/slog"

	"oras.land/oras-go/v2/registry/remote/credentials"

	"github.com/zuri-dev/zpk/registry/oras"
)

// Option configures a Client.
type Option func(*Client)

// WithOCIClient replaces the ORAS client. ORAS pass-through options are
// ignored when set.
func WithOCIClient(oci OCIClient) Option {
	return func(c *Client) {
		c.oci = oci
	}
}

// WithPlainHTTP talks to registries over plain HTTP.
func WithPlainHTTP(enabled bool) Option {
	return func(c *Client) {
		c.orasOpts = append(c.orasOpts, oras.WithPlainHTTP(enabled))
	}
}

// WithDockerConfig reads credentials from the Docker config file.
func WithDockerConfig() Option {
	return func(c *Client) {
		c.orasOpts = append(c.orasOpts, oras.WithDockerConfig())
	}
}

// WithCredentialStore sets the store consulted for registry credentials.
func WithCredentialStore(store credentials.Store) Option {
	return func(c *Client) {
		c.orasOpts = append(c.orasOpts, oras.WithCredentialStore(store))
	}
}

// WithStaticCredentials uses a fixed username and password for registry.
func WithStaticCredentials(registry, username, password string) Option {
	return func(c *Client) {
		c.orasOpts = append(c.orasOpts, oras.WithStaticCredentials(registry, username, password))
	}
}

// WithStaticToken uses a fixed bearer token for registry.
func WithStaticToken(registry, token string) Option {
	return func(c *Client) {
		c.orasOpts = append(c.orasOpts, oras.WithStaticToken(registry, token))
	}
}

// WithAnonymous forces anonymous access.
func WithAnonymous() Option {
	return func(c *Client) {
		c.orasOpts = append(c.orasOpts, oras.WithAnonymous())
	}
}

// WithLogger sets the logger. It is also handed to the ORAS client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// PushOption configures a Push.
type PushOption func(*pushConfig)

type pushConfig struct {
	tags        []string
	annotations map[string]string
}

// WithTags applies additional tags to the pushed manifest. The version tag
// is always applied first.
func WithTags(tags ...string) PushOption {
	return func(cfg *pushConfig) {
		cfg.tags = append(cfg.tags, tags...)
	}
}

// WithAnnotations sets custom manifest annotations. The created timestamp
// may be overridden but the specifier annotation may not.
func WithAnnotations(annotations map[string]string) PushOption {
	return func(cfg *pushConfig) {
		if cfg.annotations == nil {
			cfg.annotations = make(map[string]string, len(annotations))
		}
		for k, v := range annotations {
			cfg.annotations[k] = v
		}
	}
}
