package parse

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"scope-crawler/pkg/utils"
)

// NormalizedURL is a parsed candidate URL. It is derived once and never mutated.
type NormalizedURL struct {
	Scheme   string // Lowercased by net/url
	Host     string // Network location as written, port included
	Path     string // Escaped path as it appeared in the URL
	RawQuery string // Query string without the leading '?'
	Raw      string // The original string the URL was parsed from
}

// DomainPath is host + path, the key used for visit counting and trap bookkeeping.
// The query string is deliberately excluded.
func (n NormalizedURL) DomainPath() string {
	return n.Host + n.Path
}

// Hostname returns the lowercased host without port, or "" when the URL carries none
func (n NormalizedURL) Hostname() string {
	host := n.Host
	if at := strings.LastIndex(host, "@"); at >= 0 {
		host = host[at+1:]
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	return strings.ToLower(host)
}

// Parse splits a raw URL string into its NormalizedURL components.
// Relative references parse successfully with an empty scheme and host.
func Parse(rawURL string) (NormalizedURL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return NormalizedURL{}, fmt.Errorf("%w: parsing URL '%s': %w", utils.ErrParsing, rawURL, err)
	}
	return fromURL(u, rawURL), nil
}

func fromURL(u *url.URL, raw string) NormalizedURL {
	host := u.Host
	if u.User != nil {
		host = u.User.String() + "@" + host
	}
	path := u.EscapedPath()
	if u.Opaque != "" {
		// mailto:, javascript: and friends carry their target in the opaque part
		path = u.Opaque
	}
	return NormalizedURL{
		Scheme:   u.Scheme,
		Host:     host,
		Path:     path,
		RawQuery: u.RawQuery,
		Raw:      raw,
	}
}

// Resolve resolves href against base following RFC 3986 and returns the absolute URL string
func Resolve(base *url.URL, href string) (string, error) {
	if base == nil {
		return "", fmt.Errorf("%w: resolving URL '%s' against nil base", utils.ErrParsing, href)
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("%w: parsing URL href '%s': %w", utils.ErrParsing, href, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// NormalizeURL standardizes a URL for frontier deduplication.
// It lowercases the scheme and host, removes default ports (80 for http, 443 for https),
// ensures an empty path becomes "/" and drops the fragment. The query string is kept,
// since pages that differ only by query are distinct crawl targets.
// Does not modify the input *url.URL
func NormalizeURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	normalized := *u

	normalized.Scheme = strings.ToLower(normalized.Scheme)
	normalized.Host = strings.ToLower(normalized.Host)

	host, port, err := net.SplitHostPort(normalized.Host)
	if err == nil {
		if (normalized.Scheme == "http" && port == "80") ||
			(normalized.Scheme == "https" && port == "443") {
			normalized.Host = host
		}
	}

	if normalized.Path == "" {
		normalized.Path = "/"
		normalized.RawPath = ""
	}

	normalized.Fragment = ""
	normalized.RawFragment = ""

	return normalized.String()
}

// ParseAndNormalize parses an absolute URL string (scheme and host required) and normalizes it using NormalizeURL
// Returns the normalized string, the parsed URL object, and any parse error
func ParseAndNormalize(urlStr string) (string, *url.URL, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return "", nil, fmt.Errorf("%w: parsing URL '%s': %w", utils.ErrParsing, urlStr, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", nil, fmt.Errorf("%w: URL '%s' is not absolute", utils.ErrParsing, urlStr)
	}
	return NormalizeURL(parsed), parsed, nil
}
