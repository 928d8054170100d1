package registry

import (
	"log/slog"
	"time"

	"github.com/zuri-dev/zpk/registry/oras"
)

var _ OCIClient = (*oras.Client)(nil)

// Client pushes and resolves zpk packages in OCI registries.
type Client struct {
	oci    OCIClient
	logger *slog.Logger
	now    func() time.Time

	// orasOpts are passed to the ORAS client when no OCIClient is given.
	orasOpts []oras.Option
}

// New creates a Client.
//
// Without WithOCIClient, an ORAS client is built from the pass-through
// options such as WithPlainHTTP and WithStaticToken.
func New(opts ...Option) *Client {
	c := &Client{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	if c.oci == nil {
		orasOpts := c.orasOpts
		if c.logger != nil {
			orasOpts = append(orasOpts, oras.WithLogger(c.logger))
		}
		c.oci = oras.New(orasOpts...)
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
