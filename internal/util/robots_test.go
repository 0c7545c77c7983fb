package util

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestRobots_Rule(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			t.Errorf("unexpected request for %s", r.URL.Path)
		}
		hits.Add(1)
		_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n\nUser-agent: harmonize\nDisallow: /bulk/\nCrawl-delay: 2\n")
	}))
	defer server.Close()

	robots := NewRobots("harmonize/0.3 (+https://github.com/openclimate/harmonize)", time.Second, nil)

	tests := []struct {
		path    string
		allowed bool
	}{
		{"/bulk/primap.csv", false},
		{"/private/data.csv", true},
		{"/data.csv", true},
	}
	for _, tt := range tests {
		rule, err := robots.Rule(context.Background(), server.URL+tt.path)
		if err != nil {
			t.Fatalf("Rule(%s) failed: %v", tt.path, err)
		}
		if rule.Allowed != tt.allowed {
			t.Errorf("Rule(%s).Allowed = %v, want %v", tt.path, rule.Allowed, tt.allowed)
		}
		if rule.CrawlDelay != 2*time.Second {
			t.Errorf("Rule(%s).CrawlDelay = %v, want 2s", tt.path, rule.CrawlDelay)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("expected robots.txt to be downloaded once, got %d", hits.Load())
	}
}

func TestRobots_ServerErrorDisallows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	rule, err := NewRobots("harmonize", time.Second, nil).Rule(context.Background(), server.URL+"/data.csv")
	if err != nil {
		t.Fatal(err)
	}
	if rule.Allowed {
		t.Errorf("expected a 5xx robots.txt to disallow downloads")
	}
}

func TestRobots_UnreachableAllows(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	rule, err := NewRobots("harmonize", time.Second, nil).Rule(context.Background(), url+"/data.csv")
	if err != nil {
		t.Fatal(err)
	}
	if !rule.Allowed || rule.CrawlDelay != 0 {
		t.Errorf("expected an unreachable host to allow without delay, got %+v", rule)
	}
}

func TestProductToken(t *testing.T) {
	tests := map[string]string{
		"harmonize/0.3 (+https://github.com/openclimate/harmonize)": "harmonize",
		"curl/8.0": "curl",
		"plain":    "plain",
		"":         "",
	}
	for in, want := range tests {
		if got := ProductToken(in); got != want {
			t.Errorf("ProductToken(%q) = %q, want %q", in, got, want)
		}
	}
}
