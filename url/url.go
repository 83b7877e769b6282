// Package url validates user-supplied share links before any fetch is issued.
//
// The import path accepts arbitrary URLs, making it a classic SSRF surface.
// Validation is string/pattern level: blocked literal hostnames and IP
// literal ranges are rejected before DNS resolution or socket connection.
package url

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ErrUnsafeURL classifies every validation rejection: malformed, non-https,
// or blocked-host share links. Callers map it to a user-facing "invalid or
// blocked URL" response.
var ErrUnsafeURL = errors.New("invalid or blocked url")

// blockedIPPatterns matches IP literals in loopback, private, link-local,
// carrier-grade NAT, benchmark, and IPv6 loopback/unique-local/link-local
// ranges.
var blockedIPPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^127\.`),                           // loopback
	regexp.MustCompile(`^10\.`),                            // private class A
	regexp.MustCompile(`^172\.(1[6-9]|2[0-9]|3[0-1])\.`),   // private class B
	regexp.MustCompile(`^192\.168\.`),                      // private class C
	regexp.MustCompile(`^169\.254\.`),                      // link-local / cloud metadata
	regexp.MustCompile(`^0\.`),                             // current network
	regexp.MustCompile(`^100\.(6[4-9]|[7-9][0-9]|1[0-2][0-9])\.`), // carrier-grade NAT
	regexp.MustCompile(`^198\.18\.`),                       // benchmark testing
	regexp.MustCompile(`^::1$`),                            // IPv6 loopback
	regexp.MustCompile(`^fc00:`),                           // IPv6 unique local
	regexp.MustCompile(`^fe80:`),                           // IPv6 link-local
}

// blockedHostnames are literal hostnames that never refer to a public share page.
var blockedHostnames = map[string]bool{
	"localhost":                true,
	"127.0.0.1":                true,
	"0.0.0.0":                  true,
	"::1":                      true,
	"metadata.google.internal": true,
	"metadata.google.com":      true,
	"169.254.169.254":          true, // AWS/GCP metadata
}

// IsBlockedHost reports whether a hostname is on the SSRF blocklist. It is
// total: any input classifies, none errors.
func IsBlockedHost(hostname string) bool {
	hostname = strings.ToLower(strings.Trim(hostname, "[]"))
	hostname = strings.TrimSuffix(hostname, ".")

	if blockedHostnames[hostname] {
		return true
	}

	for _, pattern := range blockedIPPatterns {
		if pattern.MatchString(hostname) {
			return true
		}
	}

	return false
}

// ValidateShareURL parses a candidate share link and rejects anything that is
// not an absolute https URL with a non-blocked host. Rejection happens before
// any network call; callers must not fetch a URL that fails here.
func ValidateShareURL(rawURL string) (*url.URL, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("%w: url cannot be empty", ErrUnsafeURL)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsafeURL, err)
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: url must be absolute with scheme and host", ErrUnsafeURL)
	}

	if parsed.Scheme != "https" {
		return nil, fmt.Errorf("%w: url scheme must be https", ErrUnsafeURL)
	}

	if IsBlockedHost(parsed.Hostname()) {
		return nil, fmt.Errorf("%w: requests to private or internal hosts are not allowed: %s", ErrUnsafeURL, parsed.Hostname())
	}

	return parsed, nil
}

// IsSafe reports whether a share link passes validation.
func IsSafe(rawURL string) bool {
	_, err := ValidateShareURL(rawURL)
	return err == nil
}

// ExtractHost extracts the hostname (without port) from a URL string.
func ExtractHost(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Hostname() == "" {
		return "", fmt.Errorf("url has no host: %s", rawURL)
	}
	return strings.ToLower(parsed.Hostname()), nil
}
