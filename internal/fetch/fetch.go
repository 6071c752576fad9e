// Package fetch downloads source pages. It adds what a polite crawler needs
// on top of the retrying httpds client: locator resolution, a per-host
// minimum delay, a global ceiling on in-flight requests, a body size cap and
// a content fingerprint.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/zeebo/xxh3"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"statesdb/internal/datasource/httpds"
)

// DefaultUserAgent identifies the crawler to the source site.
const DefaultUserAgent = "StatesOfTheWorldAgent/1.0"

// DefaultMaxBodyBytes caps page downloads.
const DefaultMaxBodyBytes = 8 << 20

// Document is one fetched page.
type Document struct {
	URL       string
	Body      []byte
	Hash      string
	FetchedAt time.Time
}

// Fingerprint returns the xxh3-64 hex digest of body.
func Fingerprint(body []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(body))
}

// Config configures a Fetcher. Zero values get defaults.
type Config struct {
	// BaseURL resolves relative locators such as "/wiki/France".
	BaseURL string

	UserAgent      string
	Timeout        time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// PerHostDelay is the minimum spacing between requests to one host.
	PerHostDelay time.Duration
	// MaxConcurrentRequests bounds in-flight requests across all hosts.
	MaxConcurrentRequests int
	MaxBodyBytes          int64

	Transport http.RoundTripper
}

// Fetcher is safe for concurrent use.
type Fetcher struct {
	base    *url.URL
	client  *httpds.Client
	sem     *semaphore.Weighted
	delay   time.Duration
	maxBody int64
	now     func() time.Time
	log     *zap.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New builds a Fetcher. An unparseable BaseURL is a configuration error.
func New(cfg Config, log *zap.Logger) (*Fetcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var base *url.URL
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil || !u.IsAbs() || u.Host == "" {
			return nil, fmt.Errorf("fetch: invalid base url %q", cfg.BaseURL)
		}
		base = u
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxConcurrentRequests <= 0 {
		cfg.MaxConcurrentRequests = 4
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	client := httpds.NewClient(httpds.Config{
		Timeout:        cfg.Timeout,
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxBackoff:     cfg.MaxBackoff,
		UserAgent:      cfg.UserAgent,
		BaseHeaders:    http.Header{"Accept": {"text/html"}},
		Transport:      cfg.Transport,
	})

	return &Fetcher{
		base:     base,
		client:   client,
		sem:      semaphore.NewWeighted(int64(cfg.MaxConcurrentRequests)),
		delay:    cfg.PerHostDelay,
		maxBody:  cfg.MaxBodyBytes,
		now:      time.Now,
		log:      log,
		limiters: map[string]*rate.Limiter{},
	}, nil
}

// Resolve turns a locator into an absolute http(s) URL.
func (f *Fetcher) Resolve(locator string) (*url.URL, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return nil, errors.New("empty locator")
	}
	u, err := url.Parse(locator)
	if err != nil {
		return nil, fmt.Errorf("malformed locator: %w", err)
	}
	if !u.IsAbs() {
		if f.base == nil {
			return nil, fmt.Errorf("relative locator %q without a base url", locator)
		}
		u = f.base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("locator %q has no host", locator)
	}
	return u, nil
}

func (f *Fetcher) limiter(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.limiters[host]
	if !ok {
		limit := rate.Inf
		if f.delay > 0 {
			limit = rate.Every(f.delay)
		}
		l = rate.NewLimiter(limit, 1)
		f.limiters[host] = l
	}
	return l
}

// Fetch downloads the page at locator. Every failure is an *Error; malformed
// locators fail without network I/O.
func (f *Fetcher) Fetch(ctx context.Context, locator string) (Document, error) {
	u, err := f.Resolve(locator)
	if err != nil {
		return Document{}, permanent(locator, err)
	}
	target := u.String()

	if err := f.sem.Acquire(ctx, 1); err != nil {
		return Document{}, classify(target, err)
	}
	defer f.sem.Release(1)

	if err := f.limiter(u.Host).Wait(ctx); err != nil {
		return Document{}, classify(target, err)
	}

	start := f.now()
	body, err := f.client.Fetch(ctx, target, f.maxBody)
	if err != nil {
		fe := classify(target, err)
		f.log.Debug("fetch failed",
			zap.String("url", target),
			zap.Stringer("kind", fe.Kind),
			zap.Int("status", fe.Status),
			zap.Error(err))
		return Document{}, fe
	}
	doc := Document{
		URL:       target,
		Body:      body,
		Hash:      Fingerprint(body),
		FetchedAt: f.now().UTC(),
	}
	f.log.Debug("fetched",
		zap.String("url", target),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", doc.FetchedAt.Sub(start)))
	return doc, nil
}
