// Package fetch downloads package archives into a download root.
//
// A Fetcher collects (specifier, url) registrations and then transfers them
// concurrently in FetchPackages. Each transfer succeeds or fails on its own;
// a failed transfer never cancels its siblings. Archives are streamed to a
// temporary file in the download root and renamed to the specifier's
// archive name once complete.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"os"
	"slices"
	"sync/atomic"
	"time"

	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"

	"github.com/zuri-dev/zpk/ident"
	"github.com/zuri-dev/zpk/internal/stream"
)

// Defaults for a new Fetcher.
const (
	DefaultPollInterval = 100 * time.Millisecond
	DefaultConcurrency  = 8
)

var (
	// ErrDistributorInvariant is returned for invalid registrations and
	// for calls on an unconfigured fetcher.
	ErrDistributorInvariant = errors.New("fetch: distributor invariant violated")
	// ErrDigestMismatch is returned when a transfer does not match its
	// expected digest.
	ErrDigestMismatch = errors.New("fetch: digest mismatch")
)

// StatusError reports a transfer that ended with a non-success HTTP status.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Status)
}

// State is the lifecycle position of one fetch.
type State int

// Fetch states. A fetch moves from Registered to Transferring and ends in
// Completed or Failed.
const (
	StateRegistered State = iota
	StateTransferring
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRegistered:
		return "registered"
	case StateTransferring:
		return "transferring"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Result is the outcome of one fetch.
type Result struct {
	Specifier ident.Specifier
	URL       string
	// Path is the downloaded archive, set on success.
	Path   string
	Size   int64
	Digest digest.Digest
	// Err is the transfer error, set on failure.
	Err error
}

// OK reports whether the fetch succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// PackageOption configures a single registration.
type PackageOption func(*fetch)

// WithPackageHeaders adds request headers to one fetch.
func WithPackageHeaders(h http.Header) PackageOption {
	return func(f *fetch) {
		f.headers = h.Clone()
	}
}

// WithExpectedDigest makes the fetch fail with ErrDigestMismatch unless the
// downloaded archive has digest d.
func WithExpectedDigest(d digest.Digest) PackageOption {
	return func(f *fetch) {
		f.expected = d
	}
}

type fetch struct {
	spec     ident.Specifier
	url      *url.URL
	headers  http.Header
	expected digest.Digest
	state    State
	received atomic.Int64
	result   Result
}

// event is sent by a transfer goroutine to the FetchPackages loop.
type event struct {
	spec    ident.Specifier
	started bool
	result  Result
}

// Fetcher downloads registered packages. Registration and FetchPackages
// must be called from one goroutine.
type Fetcher struct {
	downloadRoot string
	pollInterval time.Duration
	client       *http.Client
	headers      http.Header
	concurrency  int
	logger       *slog.Logger

	configured bool
	fetches    map[ident.Specifier]*fetch
}

// New returns an unconfigured Fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		downloadRoot: ".",
		pollInterval: DefaultPollInterval,
		concurrency:  DefaultConcurrency,
		fetches:      make(map[ident.Specifier]*fetch),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// log returns the logger, falling back to a discard logger if nil.
func (f *Fetcher) log() *slog.Logger {
	if f.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return f.logger
}

// DownloadRoot returns the directory archives are written to.
func (f *Fetcher) DownloadRoot() string {
	return f.downloadRoot
}

// Configure prepares the download root and the shared transfer client.
// It fails if called twice.
func (f *Fetcher) Configure() error {
	if f.configured {
		return fmt.Errorf("%w: fetcher is already configured", ErrDistributorInvariant)
	}
	info, err := os.Stat(f.downloadRoot)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(f.downloadRoot, 0o755); err != nil {
			return fmt.Errorf("create download root: %w", err)
		}
	case err != nil:
		return err
	case !info.IsDir():
		return fmt.Errorf("%w: download root %s is not a directory", ErrDistributorInvariant, f.downloadRoot)
	}
	if f.client == nil {
		f.client = &http.Client{
			// A redirect is a status of 300 or above and fails the transfer.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	f.configured = true
	return nil
}

// AddPackage registers spec for download from rawURL. The scheme must be
// file, http or https, and spec must not already be registered.
func (f *Fetcher) AddPackage(spec ident.Specifier, rawURL string, opts ...PackageOption) error {
	if !f.configured {
		return fmt.Errorf("%w: fetcher is not configured", ErrDistributorInvariant)
	}
	if !spec.IsValid() {
		return fmt.Errorf("%w: invalid specifier %q", ErrDistributorInvariant, spec)
	}
	if _, ok := f.fetches[spec]; ok {
		return fmt.Errorf("%w: %s is already registered", ErrDistributorInvariant, spec)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDistributorInvariant, err)
	}
	switch u.Scheme {
	case "file", "http", "https":
	default:
		return fmt.Errorf("%w: unsupported url scheme %q", ErrDistributorInvariant, u.Scheme)
	}

	ft := &fetch{spec: spec, url: u}
	for _, opt := range opts {
		opt(ft)
	}
	f.fetches[spec] = ft
	f.log().Debug("registered package", "specifier", spec, "url", u.Redacted())
	return nil
}

// State returns the state of the fetch for spec.
func (f *Fetcher) State(spec ident.Specifier) (State, bool) {
	ft, ok := f.fetches[spec]
	if !ok {
		return 0, false
	}
	return ft.state, true
}

// FetchPackages transfers every registered package that has not been
// fetched yet and blocks until all of them finish. Per-package failures
// are reported through Result; the returned error only covers misuse.
// Cancelling ctx fails the transfers still in flight.
func (f *Fetcher) FetchPackages(ctx context.Context) error {
	if f == nil {
		return fmt.Errorf("%w: nil fetcher", ErrDistributorInvariant)
	}
	if !f.configured {
		return fmt.Errorf("%w: fetcher is not configured", ErrDistributorInvariant)
	}

	var pending []*fetch
	for _, ft := range f.fetches {
		if ft.state == StateRegistered {
			pending = append(pending, ft)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	slices.SortFunc(pending, func(a, b *fetch) int { return a.spec.Compare(b.spec) })

	// Each transfer sends exactly two events, so sends never block.
	events := make(chan event, 2*len(pending))
	go func() {
		var g errgroup.Group
		g.SetLimit(max(f.concurrency, 1))
		for _, ft := range pending {
			g.Go(func() error {
				events <- event{spec: ft.spec, started: true}
				events <- event{spec: ft.spec, result: f.transfer(ctx, ft)}
				return nil
			})
		}
		_ = g.Wait() //nolint:errcheck // transfers report through events
	}()

	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	remaining := len(pending)
	for remaining > 0 {
		select {
		case ev := <-events:
			ft := f.fetches[ev.spec]
			if ev.started {
				ft.state = StateTransferring
				f.log().Info("fetching package", "specifier", ft.spec, "url", ft.url.Redacted())
				continue
			}
			ft.result = ev.result
			remaining--
			if ev.result.OK() {
				ft.state = StateCompleted
				f.log().Info("fetched package", "specifier", ft.spec, "path", ev.result.Path, "size", ev.result.Size)
			} else {
				ft.state = StateFailed
				f.log().Warn("fetch failed", "specifier", ft.spec, "error", ev.result.Err)
			}
		case <-ticker.C:
			var inFlight int
			var received int64
			for _, ft := range pending {
				if ft.state == StateTransferring {
					inFlight++
					received += ft.received.Load()
				}
			}
			f.log().Debug("fetch progress", "in_flight", inFlight, "remaining", remaining, "bytes", received)
		}
	}
	return nil
}

func (f *Fetcher) transfer(ctx context.Context, ft *fetch) Result {
	res := Result{Specifier: ft.spec, URL: ft.url.Redacted()}

	body, err := f.open(ctx, ft)
	if err != nil {
		res.Err = err
		return res
	}
	defer body.Close()

	tmp := stream.NewLazyFile(f.downloadRoot, "fetch.*")
	digester := digest.Canonical.Digester()
	w := io.MultiWriter(tmp, digester.Hash(), progressWriter{&ft.received})
	n, err := stream.CopyWithContext(ctx, w, body, nil)
	if err != nil {
		_ = tmp.Discard() //nolint:errcheck // best-effort cleanup
		res.Err = fmt.Errorf("fetch %s: %w", ft.spec, err)
		return res
	}
	res.Size = n
	res.Digest = digester.Digest()

	if ft.expected != "" && ft.expected != res.Digest {
		_ = tmp.Discard() //nolint:errcheck // best-effort cleanup
		res.Err = fmt.Errorf("%w: %s: expected %s, got %s", ErrDigestMismatch, ft.spec, ft.expected, res.Digest)
		return res
	}

	path := ft.spec.ArchivePath(f.downloadRoot)
	if err := tmp.Commit(path); err != nil {
		res.Err = err
		return res
	}
	res.Path = path
	return res
}

// open starts the transfer and returns its body. HTTP statuses of 300 and
// above fail before anything is written.
func (f *Fetcher) open(ctx context.Context, ft *fetch) (io.ReadCloser, error) {
	if ft.url.Scheme == "file" {
		file, err := os.Open(ft.url.Path)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", ft.spec, err)
		}
		return file, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ft.url.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ft.spec, err)
	}
	for k, vs := range f.headers {
		req.Header[k] = slices.Clone(vs)
	}
	for k, vs := range ft.headers {
		req.Header[k] = slices.Clone(vs)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ft.spec, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		resp.Body.Close()
		return nil, &StatusError{URL: ft.url.Redacted(), StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return resp.Body, nil
}

type progressWriter struct {
	n *atomic.Int64
}

func (p progressWriter) Write(b []byte) (int, error) {
	p.n.Add(int64(len(b)))
	return len(b), nil
}

// HasResult reports whether the fetch for spec has finished.
func (f *Fetcher) HasResult(spec ident.Specifier) bool {
	ft, ok := f.fetches[spec]
	return ok && (ft.state == StateCompleted || ft.state == StateFailed)
}

// Result returns the outcome of the fetch for spec.
func (f *Fetcher) Result(spec ident.Specifier) (Result, bool) {
	if !f.HasResult(spec) {
		return Result{}, false
	}
	return f.fetches[spec].result, true
}

// Results yields every finished fetch in specifier order.
func (f *Fetcher) Results() iter.Seq2[ident.Specifier, Result] {
	return func(yield func(ident.Specifier, Result) bool) {
		specs := slices.SortedFunc(maps.Keys(f.fetches), ident.Specifier.Compare)
		for _, s := range specs {
			if !f.HasResult(s) {
				continue
			}
			if !yield(s, f.fetches[s].result) {
				return
			}
		}
	}
}
