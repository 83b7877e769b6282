// Package fetcher retrieves provider share pages over HTTPS.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/joeychilson/chatimport/config"
	urlutil "github.com/joeychilson/chatimport/url"
)

// Response represents a fetched share page.
type Response struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// Error is a fetch failure: a failed request, a non-success status, or a
// response that is not HTML when HTML is required. Imports are single-attempt;
// callers surface this to the user with a manual-paste suggestion instead of
// retrying.
type Error struct {
	URL        string
	StatusCode int
	Reason     string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("failed to fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("failed to fetch %s: %s", e.URL, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// Fetcher fetches share pages using the provided configuration.
type Fetcher struct {
	config config.FetchConfig
	client *http.Client
}

// blockedHostTransport re-checks the destination host before every request,
// including redirect hops, so a safe share link cannot redirect the client
// onto an internal address.
type blockedHostTransport struct {
	base http.RoundTripper
}

func (t *blockedHostTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if urlutil.IsBlockedHost(req.URL.Hostname()) {
		return nil, fmt.Errorf("requests to private or internal hosts are not allowed: %s", req.URL.Hostname())
	}
	return t.base.RoundTrip(req)
}

// New creates a Fetcher with the given configuration.
func New(cfg config.FetchConfig) *Fetcher {
	var transport http.RoundTripper = http.DefaultTransport
	if cfg.EnableSSRFProtection {
		transport = &blockedHostTransport{base: http.DefaultTransport}
	}

	maxRedirects := cfg.GetMaxRedirects()
	client := &http.Client{
		Timeout:   cfg.GetTimeout(),
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	return &Fetcher{config: cfg, client: client}
}

// Fetch performs a single GET of the given URL with browser-like headers.
// It returns *Error for request failures, non-2xx statuses, and (when
// configured) non-HTML content types.
func (f *Fetcher) Fetch(ctx context.Context, urlStr string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range f.config.GetHeaders() {
		req.Header.Set(key, value)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &Error{URL: urlStr, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{URL: urlStr, StatusCode: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	if f.config.RequireHTML && !isHTML(contentType) {
		return nil, &Error{URL: urlStr, Reason: fmt.Sprintf("invalid content type %q", contentType)}
	}

	maxSize := f.config.GetMaxBodySize()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSize+1))
	if err != nil {
		return nil, &Error{URL: urlStr, Err: fmt.Errorf("failed to read response body: %w", err)}
	}
	if int64(len(body)) > maxSize {
		return nil, &Error{URL: urlStr, Reason: fmt.Sprintf("response body exceeds maximum size of %d bytes", maxSize)}
	}

	return &Response{
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        body,
	}, nil
}

func isHTML(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml")
}
