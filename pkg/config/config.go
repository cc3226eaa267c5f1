package config

import "time"

// AppConfig holds the crawler configuration loaded from YAML
type AppConfig struct {
	SeedURLs          []string         `yaml:"seed_urls"`
	ScopeSuffix       string           `yaml:"scope_suffix,omitempty"`
	ReportPath        string           `yaml:"report_path,omitempty"`
	TopWords          int              `yaml:"top_words,omitempty"`
	UserAgent         string           `yaml:"user_agent,omitempty"`
	StateDir          string           `yaml:"state_dir,omitempty"` // Empty keeps the frontier store in memory
	SeenLogPath       string           `yaml:"seen_log_path,omitempty"`
	CorpusDir         string           `yaml:"corpus_dir,omitempty"`
	RespectRobots     *bool            `yaml:"respect_robots,omitempty"`
	DelayPerHost      time.Duration    `yaml:"delay_per_host,omitempty"`
	RequestsPerSecond float64          `yaml:"requests_per_second,omitempty"` // Global cap across hosts (0 = unlimited)
	MaxRetries        int              `yaml:"max_retries,omitempty"`
	InitialRetryDelay time.Duration    `yaml:"initial_retry_delay,omitempty"`
	MaxRetryDelay     time.Duration    `yaml:"max_retry_delay,omitempty"`
	MaxPageSizeBytes  int64            `yaml:"max_page_size_bytes,omitempty"`
	HTTPClient        HTTPClientConfig `yaml:"http_client_settings,omitempty"`
	Trap              TrapConfig       `yaml:"trap,omitempty"`
}

// TrapConfig tunes trap detection and path filtering
type TrapConfig struct {
	MaxPathVisits          int      `yaml:"max_path_visits,omitempty"`
	MaxURLLength           int      `yaml:"max_url_length,omitempty"`
	BlockedQueries         []string `yaml:"blocked_queries,omitempty"`
	FlagFirstSighting      *bool    `yaml:"flag_first_sighting,omitempty"` // nil = default (true)
	DisallowedPathPatterns []string `yaml:"disallowed_path_patterns,omitempty"`
}

// HTTPClientConfig holds settings for the shared HTTP client
type HTTPClientConfig struct {
	Timeout               time.Duration `yaml:"timeout,omitempty"`                 // Overall request timeout
	MaxIdleConns          int           `yaml:"max_idle_conns,omitempty"`          // Max total idle connections
	MaxIdleConnsPerHost   int           `yaml:"max_idle_conns_per_host,omitempty"` // Max idle connections per host
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout,omitempty"`
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout,omitempty"`
	ExpectContinueTimeout time.Duration `yaml:"expect_continue_timeout,omitempty"`
	ForceAttemptHTTP2     *bool         `yaml:"force_attempt_http2,omitempty"` // nil = default, true = force, false = disable
	DialerTimeout         time.Duration `yaml:"dialer_timeout,omitempty"`
	DialerKeepAlive       time.Duration `yaml:"dialer_keep_alive,omitempty"` // TCP keep-alive interval
}

// EffectiveRespectRobots reports whether robots.txt is honoured (default true)
func (c *AppConfig) EffectiveRespectRobots() bool {
	if c.RespectRobots != nil {
		return *c.RespectRobots
	}
	return true
}

// EffectiveFlagFirstSighting reports whether first sightings count as traps (default true)
func (t TrapConfig) EffectiveFlagFirstSighting() bool {
	if t.FlagFirstSighting != nil {
		return *t.FlagFirstSighting
	}
	return true
}
