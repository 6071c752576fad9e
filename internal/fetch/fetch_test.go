package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(t *testing.T, base string, mutate func(*Config)) *Fetcher {
	t.Helper()
	cfg := Config{
		BaseURL:        base,
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		Timeout:        5 * time.Second,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	f, err := New(cfg, nil)
	require.NoError(t, err)
	return f
}

func TestFetch_Success(t *testing.T) {
	t.Parallel()

	var ua atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua.Store(r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("<html>" + r.URL.Path + "</html>"))
	}))
	defer srv.Close()

	f := newTestFetcher(t, srv.URL, nil)
	doc, err := f.Fetch(context.Background(), "/wiki/France")
	require.NoError(t, err)

	assert.Equal(t, srv.URL+"/wiki/France", doc.URL)
	assert.Equal(t, "<html>/wiki/France</html>", string(doc.Body))
	assert.Equal(t, Fingerprint(doc.Body), doc.Hash)
	assert.Len(t, doc.Hash, 16)
	assert.False(t, doc.FetchedAt.IsZero())
	assert.Equal(t, DefaultUserAgent, ua.Load())
}

func TestFetch_Classification(t *testing.T) {
	t.Parallel()

	var hits sync.Map
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n, _ := hits.LoadOrStore(r.URL.Path, new(int32))
		atomic.AddInt32(n.(*int32), 1)
		switch r.URL.Path {
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/down":
			w.WriteHeader(http.StatusServiceUnavailable)
		case "/busy":
			w.WriteHeader(http.StatusTooManyRequests)
		case "/big":
			_, _ = w.Write([]byte(strings.Repeat("x", 100)))
		}
	}))
	defer srv.Close()

	f := newTestFetcher(t, srv.URL, func(c *Config) { c.MaxBodyBytes = 50 })
	count := func(path string) int32 {
		n, ok := hits.Load(path)
		if !ok {
			return 0
		}
		return atomic.LoadInt32(n.(*int32))
	}

	tests := []struct {
		locator string
		kind    Kind
		status  int
		hits    int32
	}{
		{"/missing", KindPermanent, 404, 1},
		{"/down", KindTransient, 503, 3},
		{"/busy", KindTransient, 429, 3},
		{"/big", KindPermanent, 0, 1},
	}
	for _, tt := range tests {
		_, err := f.Fetch(context.Background(), tt.locator)
		var fe *Error
		require.True(t, errors.As(err, &fe), "%s: %v", tt.locator, err)
		assert.Equal(t, tt.kind, fe.Kind, tt.locator)
		assert.Equal(t, tt.status, fe.Status, tt.locator)
		assert.Equal(t, tt.hits, count(tt.locator), tt.locator)
		assert.Equal(t, tt.kind == KindTransient, IsTransient(err), tt.locator)
		assert.Equal(t, tt.kind == KindPermanent, IsPermanent(err), tt.locator)
	}
}

func TestFetch_MalformedLocatorNoIO(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	f := newTestFetcher(t, srv.URL, nil)
	for _, loc := range []string{"", "   ", "ftp://example.org/x", "http://%zz", "mailto:someone@example.org"} {
		_, err := f.Fetch(context.Background(), loc)
		assert.True(t, IsPermanent(err), "%q: %v", loc, err)
	}
	assert.Zero(t, atomic.LoadInt32(&hits))

	noBase := newTestFetcher(t, "", nil)
	_, err := noBase.Fetch(context.Background(), "/wiki/France")
	assert.True(t, IsPermanent(err))
}

func TestNew_InvalidBase(t *testing.T) {
	t.Parallel()

	for _, base := range []string{"not a url", "/relative", "http://"} {
		_, err := New(Config{BaseURL: base}, nil)
		assert.Error(t, err, base)
	}
}

func TestFetch_PerHostDelay(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var stamps []time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		stamps = append(stamps, time.Now())
		mu.Unlock()
	}))
	defer srv.Close()

	const delay = 40 * time.Millisecond
	f := newTestFetcher(t, srv.URL, func(c *Config) {
		c.PerHostDelay = delay
		c.MaxConcurrentRequests = 3
	})

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.Fetch(context.Background(), "/wiki/X")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Len(t, stamps, 3)
	// burst 1: the third request cannot start before two full intervals
	assert.GreaterOrEqual(t, stamps[2].Sub(stamps[0]), 2*delay-10*time.Millisecond)
}

func TestFetch_ConcurrencyCeiling(t *testing.T) {
	t.Parallel()

	var inflight, peak int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inflight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		<-release
		atomic.AddInt32(&inflight, -1)
	}))
	defer srv.Close()

	f := newTestFetcher(t, srv.URL, func(c *Config) { c.MaxConcurrentRequests = 2 })

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.Fetch(context.Background(), "/wiki/Y")
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestFetch_CanceledContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	f := newTestFetcher(t, srv.URL, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Fetch(ctx, "/wiki/France")
	assert.True(t, IsTransient(err))
	assert.ErrorIs(t, err, context.Canceled)
}
