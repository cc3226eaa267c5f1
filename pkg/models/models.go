package models

import "time"

// WorkItem represents a queued URL and the depth at which it was discovered
type WorkItem struct {
	URL   string
	Depth int
}

// FetchResult is what the corpus hands back for one requested URL.
// Content is nil when nothing usable was retrieved.
type FetchResult struct {
	Content      []byte
	URL          string // URL as requested
	FinalURL     string // URL after redirects (equals URL when not redirected)
	IsRedirected bool
	HTTPCode     int
}

// HasContent reports whether the result carries a page body
func (r FetchResult) HasContent() bool {
	return r.Content != nil
}

// BaseURL is the URL relative links on the page resolve against
func (r FetchResult) BaseURL() string {
	if r.IsRedirected && r.FinalURL != "" {
		return r.FinalURL
	}
	return r.URL
}

// CachedPage is the YAML sidecar written next to every cached page body
type CachedPage struct {
	URL          string    `yaml:"url"`
	FinalURL     string    `yaml:"final_url"`
	IsRedirected bool      `yaml:"is_redirected"`
	HTTPCode     int       `yaml:"http_code"`
	ContentHash  string    `yaml:"content_hash,omitempty"` // SHA-256 of the stored body
	FetchedAt    time.Time `yaml:"fetched_at"`
}
