package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// ZenodoFiles returns the absolute URLs of the files linked from a Zenodo
// record page, in document order without duplicates.
func ZenodoFiles(htmlContent string, recordURL string) ([]string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	base, err := url.Parse(recordURL)
	if err != nil {
		return nil, fmt.Errorf("parse record url: %w", err)
	}

	var files []string
	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				if link, ok := fileLink(base, strings.TrimSpace(attr.Val)); ok && !seen[link] {
					seen[link] = true
					files = append(files, link)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return files, nil
}

// fileLink resolves href against base and keeps only /files/ downloads
func fileLink(base *url.URL, href string) (string, bool) {
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(ref)
	if !strings.Contains(resolved.Path, "/files/") {
		return "", false
	}
	if strings.HasSuffix(resolved.Path, "/files/") {
		return "", false
	}
	resolved.RawQuery = ""
	resolved.Fragment = ""
	return resolved.String(), true
}

// ListZenodoFiles downloads a Zenodo record page and lists its files
func (f *Fetcher) ListZenodoFiles(ctx context.Context, recordURL string) ([]string, error) {
	result, err := f.FetchWithRetry(ctx, recordURL)
	if err != nil {
		return nil, err
	}
	return ZenodoFiles(string(result.Body), result.FinalURL)
}
