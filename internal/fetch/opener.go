package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/openclimate/harmonize/internal/cache"
)

// Opener reads a dataset from a locator: a local path or an http(s) URL.
// Remote bodies go through the cache.
type Opener struct {
	fetcher *Fetcher
	cache   cache.Cache
	ttl     time.Duration
	logger  *slog.Logger
}

// NewOpener creates an Opener. A nil cache disables caching.
func NewOpener(fetcher *Fetcher, c cache.Cache, ttl time.Duration, logger *slog.Logger) *Opener {
	if c == nil {
		c = cache.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Opener{fetcher: fetcher, cache: c, ttl: ttl, logger: logger}
}

// IsRemote reports whether the locator is an http(s) URL
func IsRemote(locator string) bool {
	return strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://")
}

// Ext returns the lower-cased file extension of a locator, ignoring any URL query
func Ext(locator string) string {
	if IsRemote(locator) {
		if u, err := url.Parse(locator); err == nil {
			return strings.ToLower(path.Ext(u.Path))
		}
	}
	return strings.ToLower(filepath.Ext(locator))
}

// Open returns the full content of the dataset
func (o *Opener) Open(ctx context.Context, locator string) ([]byte, error) {
	if locator == "" {
		return nil, fmt.Errorf("empty locator")
	}

	if !IsRemote(locator) {
		data, err := os.ReadFile(locator)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", locator, err)
		}
		return data, nil
	}

	key := cache.CacheKey(locator)
	if data, ok := o.cache.Get(key); ok {
		o.logger.Debug("cache hit", "url", locator, "bytes", len(data))
		return data, nil
	}

	if o.fetcher == nil {
		return nil, fmt.Errorf("no fetcher configured for %s", locator)
	}

	start := time.Now()
	result, err := o.fetcher.FetchWithRetry(ctx, locator)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", locator, err)
	}
	o.logger.Info("downloaded", "url", result.FinalURL, "bytes", len(result.Body), "elapsed", time.Since(start).Round(time.Millisecond))

	if err := o.cache.Set(key, result.Body, o.ttl); err != nil {
		o.logger.Warn("cache write failed", "url", locator, "err", err)
	}

	return result.Body, nil
}
