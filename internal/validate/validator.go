// Package validate checks that dataset locators are reachable and reports
// how old the data behind them is.
package validate

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openclimate/harmonize/internal/fetch"
	"github.com/openclimate/harmonize/internal/util"
)

const validateMaxRetries = 3

// validateSleepFunc is the sleep function used between retries (injectable for tests)
var validateSleepFunc = time.Sleep

// Locator names one dataset location
type Locator struct {
	Name string
	URL  string
}

// Status is the outcome of checking one locator
type Status struct {
	Name         string
	URL          string
	Local        bool
	Reachable    bool
	Dead         bool
	StatusCode   int
	RedirectURL  string
	LastModified *time.Time
	AgeDays      *int
	Stale        bool
	Error        string
}

// Options configures a Validator
type Options struct {
	Timeout    time.Duration
	Workers    int
	UserAgent  string
	StaleAfter time.Duration
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// Validator checks locators concurrently
type Validator struct {
	httpClient *http.Client
	workers    int
	userAgent  string
	staleAfter time.Duration
	now        func() time.Time
}

// NewValidator creates a new validator
func NewValidator(opts Options) *Validator {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 365 * 24 * time.Hour
	}

	return &Validator{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(opts.HTTPProxy, opts.HTTPSProxy, opts.NoProxy),
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		workers:    opts.Workers,
		userAgent:  opts.UserAgent,
		staleAfter: opts.StaleAfter,
		now:        time.Now,
	}
}

// Validate checks every locator and returns one status per locator, in order
func (v *Validator) Validate(ctx context.Context, locators []Locator) []Status {
	results := make([]Status, len(locators))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.workers)
	for i, loc := range locators {
		if gctx.Err() != nil {
			results[i] = Status{Name: loc.Name, URL: loc.URL, Error: "context cancelled"}
			continue
		}
		i, loc := i, loc
		g.Go(func() error {
			if fetch.IsRemote(loc.URL) {
				results[i] = v.checkRemoteWithRetry(gctx, loc)
			} else {
				results[i] = v.checkLocal(loc)
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (v *Validator) checkLocal(loc Locator) Status {
	result := Status{Name: loc.Name, URL: loc.URL, Local: true}

	info, err := os.Stat(loc.URL)
	if err != nil {
		result.Error = err.Error()
		result.Dead = os.IsNotExist(err)
		return result
	}
	if info.IsDir() {
		result.Error = "is a directory"
		return result
	}
	result.Reachable = true
	v.setAge(&result, info.ModTime())
	return result
}

// checkRemote sends a HEAD request for one locator
func (v *Validator) checkRemote(ctx context.Context, loc Locator) Status {
	result := Status{Name: loc.Name, URL: loc.URL}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, loc.URL, nil)
	if err != nil {
		result.Error = fmt.Sprintf("create request: %v", err)
		result.Dead = true
		return result
	}
	if v.userAgent != "" {
		req.Header.Set("User-Agent", v.userAgent)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		result.Error = fmt.Sprintf("request failed: %v", err)
		result.Dead = true
		return result
	}
	defer func() { _ = resp.Body.Close() }()

	result.StatusCode = resp.StatusCode
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		result.Reachable = true
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		result.Dead = true
	}

	if final := resp.Request.URL.String(); final != loc.URL {
		result.RedirectURL = final
	}

	if lastModified := resp.Header.Get("Last-Modified"); lastModified != "" {
		if t, err := http.ParseTime(lastModified); err == nil {
			v.setAge(&result, t)
		}
	}
	return result
}

func (v *Validator) setAge(result *Status, t time.Time) {
	result.LastModified = &t
	age := int(v.now().Sub(t).Hours() / 24)
	result.AgeDays = &age
	result.Stale = v.now().Sub(t) > v.staleAfter
}

// checkRemoteWithRetry retries transient failures with exponential backoff
func (v *Validator) checkRemoteWithRetry(ctx context.Context, loc Locator) Status {
	var result Status
	for attempt := 0; attempt < validateMaxRetries; attempt++ {
		result = v.checkRemote(ctx, loc)
		if !isRetryable(result) || ctx.Err() != nil {
			return result
		}
		if attempt < validateMaxRetries-1 {
			validateSleepFunc(time.Duration(1<<uint(attempt)) * time.Second)
		}
	}
	return result
}

// isRetryable reports results that indicate transient failures
func isRetryable(result Status) bool {
	if result.StatusCode >= 500 && result.StatusCode < 600 {
		return true
	}
	if result.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return result.Error != "" && isRetryableNetworkError(result.Error)
}

func isRetryableNetworkError(errMsg string) bool {
	s := strings.ToLower(errMsg)
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset")
}
