package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openclimate/harmonize/internal/cache"
)

func testOptions() Options {
	return Options{
		Timeout:    5 * time.Second,
		UserAgent:  "harmonize-test/1.0",
		MaxBytes:   1 << 20,
		MaxRetries: 3,
	}
}

func noSleep(t *testing.T) {
	t.Helper()
	origSleep := fetchSleepFunc
	fetchSleepFunc = func(d time.Duration) {}
	t.Cleanup(func() { fetchSleepFunc = origSleep })
}

func TestFetchWithRetry_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "harmonize-test/1.0" {
			t.Errorf("unexpected User-Agent: %s", got)
		}
		w.Header().Set("Content-Type", "text/csv")
		_, _ = fmt.Fprint(w, "a,b\n1,2\n")
	}))
	defer server.Close()

	fetcher := NewFetcher(testOptions())
	result, err := fetcher.FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(result.Body) != "a,b\n1,2\n" {
		t.Errorf("Unexpected body: %s", result.Body)
	}
	if result.Meta.ContentType != "text/csv" {
		t.Errorf("Unexpected content type: %s", result.Meta.ContentType)
	}
}

func TestFetchWithRetry_TransientThenSuccess(t *testing.T) {
	noSleep(t)

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if n <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	fetcher := NewFetcher(testOptions())
	result, err := fetcher.FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if string(result.Body) != "ok" {
		t.Errorf("Unexpected body: %s", result.Body)
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_PermanentFailure(t *testing.T) {
	noSleep(t)

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewFetcher(testOptions())
	_, err := fetcher.FetchWithRetry(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error for 404, got nil")
	}
	if got := err.Error(); got != "unexpected status: 404 404 Not Found" {
		t.Errorf("Unexpected error: %s", got)
	}
	if attempts.Load() != 1 {
		t.Errorf("Expected 1 attempt for 404, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_ExhaustsRetries(t *testing.T) {
	noSleep(t)

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	opts := testOptions()
	opts.MaxRetries = 2
	fetcher := NewFetcher(opts)
	_, err := fetcher.FetchWithRetry(context.Background(), server.URL)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429 StatusError, got %v", err)
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetch_TooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "0123456789")
	}))
	defer server.Close()

	opts := testOptions()
	opts.MaxBytes = 5
	fetcher := NewFetcher(opts)
	_, err := fetcher.Fetch(context.Background(), server.URL)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Expected ErrTooLarge, got %v", err)
	}
}

func TestFetch_RobotsDisallowed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n")
			return
		}
		_, _ = fmt.Fprint(w, "data")
	}))
	defer server.Close()

	opts := testOptions()
	opts.RespectRobots = true
	fetcher := NewFetcher(opts)

	if _, err := fetcher.Fetch(context.Background(), server.URL+"/private/data.csv"); !errors.Is(err, ErrDisallowed) {
		t.Errorf("Expected ErrDisallowed, got %v", err)
	}
	if _, err := fetcher.Fetch(context.Background(), server.URL+"/public/data.csv"); err != nil {
		t.Errorf("Expected public path to be allowed, got %v", err)
	}
}

type throttleRecorder struct {
	countingLimiter
	hosts map[string]time.Duration
}

func (l *throttleRecorder) Throttle(host string, every time.Duration) {
	l.hosts[host] = every
}

func TestFetch_RobotsCrawlDelayThrottles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = fmt.Fprint(w, "User-agent: harmonize-test\nCrawl-delay: 5\n")
			return
		}
		_, _ = fmt.Fprint(w, "data")
	}))
	defer server.Close()

	limiter := &throttleRecorder{hosts: map[string]time.Duration{}}
	opts := testOptions()
	opts.RespectRobots = true
	opts.Limiter = limiter
	fetcher := NewFetcher(opts)

	if _, err := fetcher.Fetch(context.Background(), server.URL+"/data.csv"); err != nil {
		t.Fatal(err)
	}
	if got := limiter.hosts["127.0.0.1"]; got != 5*time.Second {
		t.Errorf("Expected a 5s crawl delay for the host, got %v (%v)", got, limiter.hosts)
	}
	if limiter.calls.Load() != 1 {
		t.Errorf("Expected the limiter to be waited on, got %d calls", limiter.calls.Load())
	}
}

type countingLimiter struct {
	calls atomic.Int32
}

func (l *countingLimiter) Wait(ctx context.Context, rawURL string) error {
	l.calls.Add(1)
	return nil
}

func TestFetch_UsesLimiter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	limiter := &countingLimiter{}
	opts := testOptions()
	opts.Limiter = limiter
	fetcher := NewFetcher(opts)

	for i := 0; i < 3; i++ {
		if _, err := fetcher.Fetch(context.Background(), server.URL); err != nil {
			t.Fatal(err)
		}
	}
	if limiter.calls.Load() != 3 {
		t.Errorf("Expected 3 limiter calls, got %d", limiter.calls.Load())
	}
}

func TestOpener_CachesRemoteBodies(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = fmt.Fprint(w, "iso3\nDEU\n")
	}))
	defer server.Close()

	c := cache.NewLayeredCache(time.Minute, t.TempDir(), time.Hour)
	opener := NewOpener(NewFetcher(testOptions()), c, time.Hour, nil)

	for i := 0; i < 2; i++ {
		data, err := opener.Open(context.Background(), server.URL+"/iso.csv")
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		if string(data) != "iso3\nDEU\n" {
			t.Errorf("Unexpected data: %s", data)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("Expected 1 download, got %d", hits.Load())
	}
}

func TestOpener_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.csv")
	if err := os.WriteFile(path, []byte("x\n1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	opener := NewOpener(nil, nil, 0, nil)
	data, err := opener.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if string(data) != "x\n1\n" {
		t.Errorf("Unexpected data: %s", data)
	}

	if _, err := opener.Open(context.Background(), filepath.Join(t.TempDir(), "missing.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected ErrNotExist, got %v", err)
	}
}

func TestExt(t *testing.T) {
	cases := []struct {
		locator string
		want    string
	}{
		{"data/imf.XLS", ".xls"},
		{"https://example.com/a/b.xlsx?raw=1", ".xlsx"},
		{"https://zenodo.org/record/1/files/x.csv", ".csv"},
		{"noext", ""},
	}
	for _, tc := range cases {
		if got := Ext(tc.locator); got != tc.want {
			t.Errorf("Ext(%q) = %q, want %q", tc.locator, got, tc.want)
		}
	}
}
