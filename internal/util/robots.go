package util

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// RobotsRule is what a host's robots.txt says about one dataset URL
type RobotsRule struct {
	Allowed    bool
	CrawlDelay time.Duration
}

// Robots answers robots.txt questions for dataset hosts. Each host's file is
// downloaded once and kept for the lifetime of the value.
type Robots struct {
	client    *http.Client
	userAgent string
	token     string

	mu    sync.Mutex
	hosts map[string]*robotstxt.RobotsData
}

// NewRobots creates a robots.txt reader sharing the download transport
func NewRobots(userAgent string, timeout time.Duration, transport http.RoundTripper) *Robots {
	return &Robots{
		client:    &http.Client{Timeout: timeout, Transport: transport},
		userAgent: userAgent,
		token:     ProductToken(userAgent),
		hosts:     make(map[string]*robotstxt.RobotsData),
	}
}

// Rule returns the robots.txt rule for rawURL. A host whose robots.txt
// cannot be downloaded or parsed allows everything.
func (r *Robots) Rule(ctx context.Context, rawURL string) (RobotsRule, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return RobotsRule{}, fmt.Errorf("parse URL: %w", err)
	}

	data, err := r.hostData(ctx, u)
	if err != nil {
		return RobotsRule{Allowed: true}, nil
	}
	return RobotsRule{
		Allowed:    data.TestAgent(u.EscapedPath(), r.token),
		CrawlDelay: data.FindGroup(r.token).CrawlDelay,
	}, nil
}

func (r *Robots) hostData(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	r.mu.Lock()
	data, ok := r.hosts[u.Host]
	r.mu.Unlock()
	if ok {
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.Scheme+"://"+u.Host+"/robots.txt", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err = robotstxt.FromResponse(resp)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.hosts[u.Host] = data
	r.mu.Unlock()
	return data, nil
}

// ProductToken returns the name robots.txt groups match against:
// "harmonize/0.3 (+https://github.com/openclimate/harmonize)" becomes
// "harmonize".
func ProductToken(userAgent string) string {
	fields := strings.Fields(userAgent)
	if len(fields) == 0 {
		return userAgent
	}
	name, _, _ := strings.Cut(fields[0], "/")
	return name
}
