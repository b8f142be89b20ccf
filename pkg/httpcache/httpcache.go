// Package httpcache caches directory API and page responses with
// thundering herd prevention and a single transport-level retry.
// Failures cache too, so an unavailable upstream is not hammered by
// every resolution that follows.
package httpcache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/codeGROOVE-dev/sfcache"
	"github.com/codeGROOVE-dev/sfcache/pkg/store/localfs"
	"github.com/codeGROOVE-dev/sfcache/pkg/store/null"
)

// UserAgent is sent on every request; course pages sit behind hosts
// that reject blank agents.
const UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:146.0) Gecko/20100101 Firefox/146.0"

// fetchTimeout bounds one fetch including its retry.
const fetchTimeout = 4 * time.Second

// Stats reports cache effectiveness counters.
type Stats struct {
	Hits   int64
	Misses int64
}

var (
	hits   atomic.Int64
	misses atomic.Int64
)

// CacheStats returns the counters accumulated since start or reset.
func CacheStats() Stats {
	return Stats{Hits: hits.Load(), Misses: misses.Load()}
}

// ResetStats zeroes the counters.
func ResetStats() {
	hits.Store(0)
	misses.Store(0)
}

// Cacher allows external cache implementations to be shared across
// packages.
type Cacher interface {
	GetSet(ctx context.Context, key string, fetch func(context.Context) ([]byte, error), ttl ...time.Duration) ([]byte, error)
	TTL() time.Duration
}

// Cache wraps sfcache for HTTP response caching.
type Cache struct {
	*sfcache.TieredCache[string, []byte]

	ttl time.Duration
}

// New creates a Cache with disk persistence under the user cache dir.
func New(ttl time.Duration) (*Cache, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	return NewWithPath(ttl, filepath.Join(cacheDir, "profstalker"))
}

// NewNull creates a Cache with no persistence: every get misses and
// every set is discarded.
func NewNull() *Cache {
	tc, err := sfcache.NewTiered[string, []byte](null.New[string, []byte]())
	if err != nil {
		panic("sfcache.NewTiered with null store: " + err.Error())
	}
	return &Cache{TieredCache: tc, ttl: 0}
}

// NewWithPath creates a Cache persisted at the given directory.
func NewWithPath(ttl time.Duration, cachePath string) (*Cache, error) {
	if err := os.MkdirAll(cachePath, 0o750); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	persist, err := localfs.New[string, []byte]("profstalker", cachePath)
	if err != nil {
		return nil, fmt.Errorf("create persistence layer: %w", err)
	}

	tc, err := sfcache.NewTiered[string, []byte](persist, sfcache.TTL(ttl))
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}

	return &Cache{TieredCache: tc, ttl: ttl}, nil
}

// TTL returns the default TTL for cache entries.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Key derives a cache key from the full request signature. The
// directory API multiplexes every search over one POST endpoint, so
// the body must hash into the key alongside method and URL.
func Key(method, rawURL string, body []byte) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s %s\n", method, rawURL)
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// HTTPError represents a non-200 response.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d fetching %s", e.StatusCode, e.URL)
}

// Get fetches a URL with caching and thundering herd prevention.
// A nil cache fetches straight through.
func Get(ctx context.Context, cache Cacher, client *http.Client, rawURL string, logger *slog.Logger) ([]byte, error) {
	build := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", UserAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		return req, nil
	}
	return fetch(ctx, cache, client, Key(http.MethodGet, rawURL, nil), rawURL, build, logger)
}

// PostJSON posts a JSON payload with caching keyed on URL plus body.
// Extra headers are applied after the defaults and may override them.
func PostJSON(
	ctx context.Context,
	cache Cacher,
	client *http.Client,
	rawURL string,
	payload []byte,
	header http.Header,
	logger *slog.Logger,
) ([]byte, error) {
	build := func(ctx context.Context) (*http.Request, error) {
		// Rebuilt on every attempt: the body reader is consumed by a send.
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", UserAgent)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Set(k, v)
			}
		}
		return req, nil
	}
	return fetch(ctx, cache, client, Key(http.MethodPost, rawURL, payload), rawURL, build, logger)
}

func fetch(
	ctx context.Context,
	cache Cacher,
	client *http.Client,
	key, rawURL string,
	build func(context.Context) (*http.Request, error),
	logger *slog.Logger,
) ([]byte, error) {
	if cache == nil {
		misses.Add(1)
		return doFetch(ctx, client, rawURL, build, logger)
	}

	var fetched bool
	data, err := cache.GetSet(ctx, key, func(ctx context.Context) ([]byte, error) {
		fetched = true
		misses.Add(1)
		if logger != nil {
			logger.DebugContext(ctx, "cache miss", "url", rawURL)
		}
		body, fetchErr := doFetch(ctx, client, rawURL, build, logger)
		if fetchErr != nil {
			// Cache failures so a down upstream is not re-fetched by
			// every caller within the TTL.
			var httpErr *HTTPError
			if errors.As(fetchErr, &httpErr) {
				return fmt.Appendf(nil, "ERROR:%d", httpErr.StatusCode), nil
			}
			return fmt.Appendf(nil, "NETERR:%s", fetchErr.Error()), nil
		}
		return body, nil
	}, cache.TTL())
	if err != nil {
		return nil, err
	}

	if !fetched {
		hits.Add(1)
		if logger != nil {
			logger.DebugContext(ctx, "cache hit", "url", rawURL)
		}
	}
	return decodeCached(data, rawURL)
}

// decodeCached converts a cached failure marker back into its error.
func decodeCached(data []byte, rawURL string) ([]byte, error) {
	s := string(data)
	if code, found := strings.CutPrefix(s, "ERROR:"); found {
		n, _ := strconv.Atoi(code) //nolint:errcheck // 0 is acceptable default
		return nil, &HTTPError{StatusCode: n, URL: rawURL}
	}
	if msg, found := strings.CutPrefix(s, "NETERR:"); found {
		return nil, fmt.Errorf("cached network error: %s", msg)
	}
	return data, nil
}

func doFetch(
	ctx context.Context,
	client *http.Client,
	rawURL string,
	build func(context.Context) (*http.Request, error),
	logger *slog.Logger,
) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	return retry.DoWithData(
		func() ([]byte, error) {
			hostLimiter.wait(rawURL, logger)

			req, err := build(ctx)
			if err != nil {
				return nil, err
			}
			resp, err := client.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close() //nolint:errcheck // intentional

			if resp.StatusCode != http.StatusOK {
				return nil, &HTTPError{StatusCode: resp.StatusCode, URL: rawURL}
			}
			return io.ReadAll(resp.Body)
		},
		retry.Context(ctx),
		retry.Attempts(2), // single retry
		retry.Delay(200*time.Millisecond),
		retry.MaxJitter(100*time.Millisecond),
		retry.RetryIf(isRetryableError),
		retry.OnRetry(func(n uint, err error) {
			if logger != nil {
				logger.Debug("retrying request", "attempt", n+1, "url", rawURL, "error", err)
			}
		}),
	)
}

// isRetryableError returns true for transient errors worth one retry.
func isRetryableError(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		default:
			return false // other 4xx are permanent
		}
	}
	// Network errors and timeouts are transient.
	return true
}

// hostLimiter spaces successive requests to the same host.
var hostLimiter = &politeness{
	minDelay: 500 * time.Millisecond,
	last:     map[string]time.Time{},
}

type politeness struct {
	last     map[string]time.Time
	minDelay time.Duration
	mu       sync.Mutex
}

// wait reserves the next send slot for the URL's host and sleeps until
// it arrives. The reservation happens under the lock; the sleep does
// not, so other hosts are never held up.
func (p *politeness) wait(rawURL string, logger *slog.Logger) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return
	}

	p.mu.Lock()
	var pause time.Duration
	now := time.Now()
	if last, ok := p.last[u.Host]; ok {
		if elapsed := now.Sub(last); elapsed < p.minDelay {
			pause = p.minDelay - elapsed
		}
	}
	p.last[u.Host] = now.Add(pause)
	p.mu.Unlock()

	if pause > 0 {
		if logger != nil {
			logger.Debug("rate limit pause", "host", u.Host, "wait", pause)
		}
		time.Sleep(pause)
	}
}
