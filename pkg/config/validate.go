package config

import (
	"fmt"
	"net/url"
	"time"

	"scope-crawler/pkg/trap"
	"scope-crawler/pkg/utils"
)

// Defaults applied by Validate
const (
	DefaultScopeSuffix      = ".ics.uci.edu"
	DefaultReportPath       = "crawler_results.txt"
	DefaultTopWords         = 50
	DefaultUserAgent        = "scope-crawler/1.0 (+https://www.ics.uci.edu/)"
	DefaultCorpusDir        = "./corpus"
	DefaultDelayPerHost     = 500 * time.Millisecond
	DefaultMaxPageSizeBytes = 10 << 20
)

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	// Required: SeedURLs
	if len(c.SeedURLs) == 0 {
		return nil, fmt.Errorf("%w: no seed_urls configured", utils.ErrConfigValidation)
	}
	for _, seed := range c.SeedURLs {
		u, parseErr := url.Parse(seed)
		if parseErr != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("%w: seed URL '%s' must be an absolute http(s) URL", utils.ErrConfigValidation, seed)
		}
	}

	if c.ScopeSuffix == "" {
		c.ScopeSuffix = DefaultScopeSuffix
	}
	if c.ReportPath == "" {
		c.ReportPath = DefaultReportPath
	}
	if c.TopWords <= 0 {
		if c.TopWords < 0 {
			warnings = append(warnings, fmt.Sprintf("top_words cannot be negative, defaulting to %d", DefaultTopWords))
		}
		c.TopWords = DefaultTopWords
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.CorpusDir == "" {
		warnings = append(warnings, fmt.Sprintf("corpus_dir is empty, defaulting to '%s'", DefaultCorpusDir))
		c.CorpusDir = DefaultCorpusDir
	}

	// Politeness
	if c.DelayPerHost < 0 {
		warnings = append(warnings, "delay_per_host cannot be negative, setting to 0")
		c.DelayPerHost = 0
	} else if c.DelayPerHost == 0 {
		c.DelayPerHost = DefaultDelayPerHost
	}
	if c.RequestsPerSecond < 0 {
		warnings = append(warnings, "requests_per_second cannot be negative, disabling the global limit")
		c.RequestsPerSecond = 0
	}

	// MaxRetries
	if c.MaxRetries < 0 {
		warnings = append(warnings, "max_retries cannot be negative, setting to 0")
		c.MaxRetries = 0
	}
	if c.MaxRetries == 0 && c.InitialRetryDelay == 0 {
		c.MaxRetries = 3
	}

	// Retry delays (only if retries enabled)
	if c.MaxRetries > 0 {
		if c.InitialRetryDelay <= 0 {
			c.InitialRetryDelay = 1 * time.Second
		}
		if c.MaxRetryDelay <= 0 {
			c.MaxRetryDelay = 30 * time.Second
		}
	}
	if c.InitialRetryDelay > c.MaxRetryDelay && c.MaxRetryDelay > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"initial_retry_delay (%v) > max_retry_delay (%v), using max_retry_delay for initial",
			c.InitialRetryDelay, c.MaxRetryDelay))
		c.InitialRetryDelay = c.MaxRetryDelay
	}

	if c.MaxPageSizeBytes <= 0 {
		if c.MaxPageSizeBytes < 0 {
			warnings = append(warnings, "max_page_size_bytes cannot be negative, using the default cap")
		}
		c.MaxPageSizeBytes = DefaultMaxPageSizeBytes
	}

	c.validateHTTPClientSettings()

	trapWarnings, err := c.Trap.validate()
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, trapWarnings...)

	return warnings, nil
}

// validate applies trap defaults and checks that every path pattern compiles
func (t *TrapConfig) validate() (warnings []string, err error) {
	if t.MaxPathVisits <= 0 {
		t.MaxPathVisits = trap.DefaultMaxPathVisits
	}
	if t.MaxURLLength <= 0 {
		t.MaxURLLength = trap.DefaultMaxURLLength
	}
	if t.FlagFirstSighting != nil && !*t.FlagFirstSighting {
		warnings = append(warnings, "trap.flag_first_sighting is disabled; links are admitted on their first sighting")
	}
	if _, err := utils.CompileRegexPatterns(t.DisallowedPathPatterns); err != nil {
		return nil, fmt.Errorf("trap.disallowed_path_patterns: %w", err)
	}
	return warnings, nil
}

// validateHTTPClientSettings applies defaults to HTTP client settings.
func (c *AppConfig) validateHTTPClientSettings() {
	h := &c.HTTPClient
	if h.Timeout <= 0 {
		h.Timeout = 45 * time.Second
	}
	if h.MaxIdleConns <= 0 {
		h.MaxIdleConns = 100
	}
	if h.MaxIdleConnsPerHost <= 0 {
		h.MaxIdleConnsPerHost = 2
	}
	if h.IdleConnTimeout <= 0 {
		h.IdleConnTimeout = 90 * time.Second
	}
	if h.TLSHandshakeTimeout <= 0 {
		h.TLSHandshakeTimeout = 10 * time.Second
	}
	if h.ExpectContinueTimeout <= 0 {
		h.ExpectContinueTimeout = 1 * time.Second
	}
	if h.DialerTimeout <= 0 {
		h.DialerTimeout = 15 * time.Second
	}
	if h.DialerKeepAlive <= 0 {
		h.DialerKeepAlive = 30 * time.Second
	}
}
