package scrape

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"foxfeed/internal/config"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func testConfig() config.Config {
	cfg, _ := config.Load()
	cfg.ScrapeRateLimitRPS = 1000
	cfg.ScrapeUserAgent = "foxfeed-test"
	return cfg
}

func TestFetchPageWithRetry(t *testing.T) {
	attempt := 0

	client := NewClient(testConfig())
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.Header.Get("User-Agent") != "foxfeed-test" {
				t.Fatalf("user agent %q", r.Header.Get("User-Agent"))
			}
			attempt++
			if attempt == 1 {
				return &http.Response{
					StatusCode: http.StatusServiceUnavailable,
					Body:       io.NopCloser(strings.NewReader("busy")),
					Header:     make(http.Header),
				}, nil
			}
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader("<html><h1>Akku</h1></html>")),
				Header:     make(http.Header),
			}, nil
		}),
	}

	body, err := client.FetchPage(context.Background(), "https://shop.example.de/p/123")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(body, "Akku") {
		t.Fatalf("body=%q", body)
	}
	if attempt != 2 {
		t.Fatalf("attempt=%d", attempt)
	}
}

func TestFetchPagePermanentError(t *testing.T) {
	client := NewClient(testConfig())
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusNotFound,
				Body:       io.NopCloser(strings.NewReader("gone")),
				Header:     make(http.Header),
			}, nil
		}),
	}

	if _, err := client.FetchPage(context.Background(), "https://shop.example.de/p/404"); err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestFetchPageRejectsScheme(t *testing.T) {
	client := NewClient(testConfig())
	if _, err := client.FetchPage(context.Background(), "ftp://example.de/x"); err == nil {
		t.Fatal("expected scheme error")
	}
}
