package parse

import (
	"errors"
	"net/url"
	"testing"

	"scope-crawler/pkg/utils"
)

func TestParse_Components(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		scheme     string
		host       string
		path       string
		query      string
		domainPath string
	}{
		{
			name:       "PathAndQuery",
			input:      "http://x.ics.uci.edu/a/b?q=1",
			scheme:     "http",
			host:       "x.ics.uci.edu",
			path:       "/a/b",
			query:      "q=1",
			domainPath: "x.ics.uci.edu/a/b",
		},
		{
			name:       "PortKeptInHost",
			input:      "https://x.ics.uci.edu:8443/a",
			scheme:     "https",
			host:       "x.ics.uci.edu:8443",
			path:       "/a",
			domainPath: "x.ics.uci.edu:8443/a",
		},
		{
			name:       "UppercaseSchemeLowered",
			input:      "HTTP://WWW.ics.uci.edu/",
			scheme:     "http",
			host:       "WWW.ics.uci.edu",
			path:       "/",
			domainPath: "WWW.ics.uci.edu/",
		},
		{
			name:       "NoPath",
			input:      "http://z.ics.uci.edu",
			scheme:     "http",
			host:       "z.ics.uci.edu",
			path:       "",
			domainPath: "z.ics.uci.edu",
		},
		{
			name:       "Mailto",
			input:      "mailto:someone@ics.uci.edu",
			scheme:     "mailto",
			host:       "",
			path:       "someone@ics.uci.edu",
			domainPath: "someone@ics.uci.edu",
		},
		{
			name:       "JavascriptOpaque",
			input:      "javascript:void(0)",
			scheme:     "javascript",
			host:       "",
			path:       "void(0)",
			domainPath: "void(0)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.input, err)
			}
			if got.Scheme != tt.scheme || got.Host != tt.host || got.Path != tt.path || got.RawQuery != tt.query {
				t.Errorf("Parse(%q) = %+v, want scheme=%q host=%q path=%q query=%q",
					tt.input, got, tt.scheme, tt.host, tt.path, tt.query)
			}
			if got.DomainPath() != tt.domainPath {
				t.Errorf("DomainPath() = %q, want %q", got.DomainPath(), tt.domainPath)
			}
			if got.Raw != tt.input {
				t.Errorf("Raw = %q, want %q", got.Raw, tt.input)
			}
		})
	}
}

func TestParse_Hostname(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"http://WWW.ICS.UCI.EDU/a", "www.ics.uci.edu"},
		{"http://x.ics.uci.edu:8080/", "x.ics.uci.edu"},
		{"http://user:pw@x.ics.uci.edu/", "x.ics.uci.edu"},
		{"http://[::1]:80/", "::1"},
		{"mailto:a@b.c", ""},
		{"relative/path", ""},
	}
	for _, tt := range tests {
		got, err := Parse(tt.input)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", tt.input, err)
		}
		if got.Hostname() != tt.expected {
			t.Errorf("Parse(%q).Hostname() = %q, want %q", tt.input, got.Hostname(), tt.expected)
		}
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, input := range []string{"http://[::1", "http://x.ics.uci.edu/%zz", "::nope"} {
		_, err := Parse(input)
		if err == nil {
			t.Errorf("Parse(%q) expected error, got nil", input)
			continue
		}
		if !errors.Is(err, utils.ErrParsing) {
			t.Errorf("Parse(%q) error %v does not wrap ErrParsing", input, err)
		}
	}
}

func TestResolve(t *testing.T) {
	base, _ := url.Parse("http://x.ics.uci.edu/a/b/")
	tests := []struct {
		name     string
		href     string
		expected string
	}{
		{"ParentRelative", "../x/y", "http://x.ics.uci.edu/a/x/y"},
		{"SameDir", "c.html", "http://x.ics.uci.edu/a/b/c.html"},
		{"RootRelative", "/abs", "http://x.ics.uci.edu/abs"},
		{"Absolute", "http://other.example.com/z", "http://other.example.com/z"},
		{"SchemeRelative", "//y.ics.uci.edu/p", "http://y.ics.uci.edu/p"},
		{"QueryOnly", "?q=1", "http://x.ics.uci.edu/a/b/?q=1"},
		{"FragmentOnly", "#top", "http://x.ics.uci.edu/a/b/#top"},
		{"TrimmedSpaces", "  d.html ", "http://x.ics.uci.edu/a/b/d.html"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(base, tt.href)
			if err != nil {
				t.Fatalf("Resolve(%q) error = %v", tt.href, err)
			}
			if got != tt.expected {
				t.Errorf("Resolve(%q) = %q, want %q", tt.href, got, tt.expected)
			}
		})
	}
}

func TestResolve_Errors(t *testing.T) {
	if _, err := Resolve(nil, "a"); !errors.Is(err, utils.ErrParsing) {
		t.Errorf("Resolve(nil base) error = %v, want ErrParsing", err)
	}
	base, _ := url.Parse("http://x.ics.uci.edu/")
	if _, err := Resolve(base, "http://[bad"); !errors.Is(err, utils.ErrParsing) {
		t.Errorf("Resolve(bad href) error = %v, want ErrParsing", err)
	}
}

func TestNormalizeURL_NilInput(t *testing.T) {
	if result := NormalizeURL(nil); result != "" {
		t.Errorf("NormalizeURL(nil) = %q, want empty string", result)
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"UppercaseSchemeAndHost", "HTTP://EXAMPLE.COM/Path", "http://example.com/Path"},
		{"HTTPPort80Removed", "http://example.com:80/path", "http://example.com/path"},
		{"HTTPSPort443Removed", "https://example.com:443/path", "https://example.com/path"},
		{"HTTPPort443Kept", "http://example.com:443/path", "http://example.com:443/path"},
		{"NonDefaultPortKept", "http://example.com:8080/path", "http://example.com:8080/path"},
		{"EmptyPathBecomesRoot", "http://example.com", "http://example.com/"},
		{"TrailingSlashKept", "http://example.com/dir/", "http://example.com/dir/"},
		{"FragmentRemoved", "http://example.com/page#section", "http://example.com/page"},
		{"QueryKept", "http://example.com/page?b=2&a=1#top", "http://example.com/page?b=2&a=1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := url.Parse(tt.input)
			if err != nil {
				t.Fatalf("url.Parse(%q) error = %v", tt.input, err)
			}
			if result := NormalizeURL(parsed); result != tt.expected {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNormalizeURL_DoesNotModifyInput(t *testing.T) {
	parsed, _ := url.Parse("HTTP://Example.COM:80/a#frag")
	before := *parsed
	_ = NormalizeURL(parsed)
	if *parsed != before {
		t.Errorf("NormalizeURL modified its input: got %+v, want %+v", *parsed, before)
	}
}

func TestParseAndNormalize(t *testing.T) {
	normalized, parsed, err := ParseAndNormalize("http://WWW.ics.uci.edu:80/x?y=1#z")
	if err != nil {
		t.Fatalf("ParseAndNormalize() error = %v", err)
	}
	if normalized != "http://www.ics.uci.edu/x?y=1" {
		t.Errorf("normalized = %q", normalized)
	}
	if parsed == nil || parsed.Fragment != "z" {
		t.Errorf("parsed URL should keep the original fragment, got %+v", parsed)
	}
}

func TestParseAndNormalize_InvalidURLs(t *testing.T) {
	for _, input := range []string{"", "/relative/path", "::bad", "http://[::1"} {
		if _, _, err := ParseAndNormalize(input); !errors.Is(err, utils.ErrParsing) {
			t.Errorf("ParseAndNormalize(%q) error = %v, want ErrParsing", input, err)
		}
	}
}
