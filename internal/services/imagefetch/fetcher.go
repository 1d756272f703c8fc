// Package imagefetch downloads room images referenced by inspection records.
package imagefetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/roomathon/internal/httpclient"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout bounds a single image download
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is requests per second across all hosts
	DefaultRateLimit = 5

	// DefaultMaxBytes rejects bodies larger than this
	DefaultMaxBytes int64 = 20 * 1024 * 1024

	defaultUserAgent = "Roomathon-Reports/1.0"
)

// FetchError describes why one image could not be downloaded
type FetchError struct {
	URL        string
	StatusCode int // zero for transport failures
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch image %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch image %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ErrTooLarge is wrapped by FetchError when a body exceeds the size limit
var ErrTooLarge = errors.New("image exceeds size limit")

// Fetcher downloads raw image bytes. It never swallows errors; callers decide
// what a failure means.
type Fetcher struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	timeout    time.Duration
	maxBytes   int64
	userAgent  string
	logger     arbor.ILogger
}

// Option configures the Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.httpClient = c
	}
}

// WithTimeout sets the per-image timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithRateLimit sets requests per second. Zero or less disables limiting.
func WithRateLimit(requestsPerSecond int) Option {
	return func(f *Fetcher) {
		if requestsPerSecond <= 0 {
			f.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		f.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithMaxBytes sets the largest accepted body.
func WithMaxBytes(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// NewFetcher creates a Fetcher with defaults overridden by opts
func NewFetcher(logger arbor.ILogger, opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout:   DefaultTimeout,
		limiter:   rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		maxBytes:  DefaultMaxBytes,
		userAgent: defaultUserAgent,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.httpClient == nil {
		f.httpClient = httpclient.NewDownloadClient(f.timeout)
	}
	return f
}

// Fetch downloads one image. Any failure is returned as *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("rate limiter: %w", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "image/*")

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	if int64(len(data)) > f.maxBytes {
		return nil, &FetchError{URL: url, Err: ErrTooLarge}
	}

	if f.logger != nil {
		f.logger.Debug().
			Str("url", url).
			Int("bytes", len(data)).
			Dur("duration", time.Since(start)).
			Msg("Image downloaded")
	}

	return data, nil
}
