// Package unfurl enriches saved links with a title, description, thumbnail
// and reading time fetched from the linked page.
package unfurl

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/net/html/charset"
)

const (
	defaultUserAgent = "Mozilla/5.0 (compatible; flashmemo/1.0; +https://github.com/flashmemo/flashmemo)"
	defaultTimeout   = 20 * time.Second
	defaultRetryMax  = 3
	defaultMaxBody   = 2 << 20

	DefaultOEmbedEndpoint = "https://www.youtube.com/oembed"
)

// Config controls how pages are fetched.
type Config struct {
	UserAgent      string
	Timeout        time.Duration
	RetryMax       int
	RetryWaitMin   time.Duration
	RetryWaitMax   time.Duration
	MaxBodyBytes   int64
	Proxy          string
	OEmbedEndpoint string
}

// Page is a fetched document.
type Page struct {
	URL         string // after redirects
	StatusCode  int
	ContentType string
	Body        []byte // UTF-8
}

// Fetcher downloads pages with retries.
type Fetcher struct {
	client    *retryablehttp.Client
	userAgent string
	maxBody   int64
	oembed    string
}

func NewFetcher(cfg Config) (*Fetcher, error) {
	client := retryablehttp.NewClient()
	client.Logger = log.New(io.Discard, "", 0)
	client.RetryMax = defaultRetryMax
	if cfg.RetryMax > 0 {
		client.RetryMax = cfg.RetryMax
	}
	if cfg.RetryWaitMin > 0 {
		client.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		client.RetryWaitMax = cfg.RetryWaitMax
	}
	client.HTTPClient.Timeout = defaultTimeout
	if cfg.Timeout > 0 {
		client.HTTPClient.Timeout = cfg.Timeout
	}

	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		if t, ok := client.HTTPClient.Transport.(*http.Transport); ok {
			t.Proxy = http.ProxyURL(proxyURL)
		}
	}

	f := &Fetcher{
		client:    client,
		userAgent: defaultUserAgent,
		maxBody:   defaultMaxBody,
		oembed:    DefaultOEmbedEndpoint,
	}
	if cfg.UserAgent != "" {
		f.userAgent = cfg.UserAgent
	}
	if cfg.MaxBodyBytes > 0 {
		f.maxBody = cfg.MaxBodyBytes
	}
	if cfg.OEmbedEndpoint != "" {
		f.oembed = cfg.OEmbedEndpoint
	}
	return f, nil
}

// Fetch downloads rawURL and returns its body converted to UTF-8.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetching %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	body, err := charset.NewReader(io.LimitReader(resp.Body, f.maxBody), ct)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", rawURL, err)
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return &Page{URL: finalURL, StatusCode: resp.StatusCode, ContentType: ct, Body: b}, nil
}
