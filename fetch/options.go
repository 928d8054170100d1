package fetch

import (
	"log/slog"
	"net/http"
	"time"
)

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithDownloadRoot sets the directory archives are written to.
// Defaults to the current directory.
func WithDownloadRoot(dir string) Option {
	return func(f *Fetcher) {
		f.downloadRoot = dir
	}
}

// WithPollInterval sets how often FetchPackages reports progress.
func WithPollInterval(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.pollInterval = d
		}
	}
}

// WithClient sets the HTTP client shared by every transfer. The default
// client does not follow redirects; a client passed here keeps its own
// redirect policy.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithHeaders sets request headers sent with every HTTP transfer.
func WithHeaders(h http.Header) Option {
	return func(f *Fetcher) {
		f.headers = h.Clone()
	}
}

// WithConcurrency bounds the number of simultaneous transfers.
func WithConcurrency(n int) Option {
	return func(f *Fetcher) {
		f.concurrency = n
	}
}

// WithLogger sets the logger for transfer events.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}
