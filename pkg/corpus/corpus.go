package corpus

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"scope-crawler/pkg/fetch"
	"scope-crawler/pkg/models"
	"scope-crawler/pkg/parse"
	"scope-crawler/pkg/utils"
)

const (
	pageExt     = ".html"
	metaExt     = ".yaml"
	filenameLen = 16 // hex chars of the URL hash used as the file name
)

// HTTPCorpus fetches pages over HTTP and keeps a copy of every response on disk.
// A URL whose metadata sidecar is already present is served from disk.
type HTTPCorpus struct {
	dir      string
	fetcher  *fetch.Fetcher
	robots   *fetch.RobotsHandler // nil = robots.txt ignored
	limiter  *fetch.RateLimiter   // nil = no politeness delay
	maxBytes int64
	log      *logrus.Entry
}

// NewHTTPCorpus creates a corpus rooted at dir. robots and limiter are optional.
func NewHTTPCorpus(dir string, fetcher *fetch.Fetcher, robots *fetch.RobotsHandler, limiter *fetch.RateLimiter, maxBytes int64, log *logrus.Entry) *HTTPCorpus {
	return &HTTPCorpus{
		dir:      dir,
		fetcher:  fetcher,
		robots:   robots,
		limiter:  limiter,
		maxBytes: maxBytes,
		log:      log.WithField("component", "corpus"),
	}
}

// FilenameFor maps an absolute http(s) URL to <dir>/<host>/<hash>.html.
// Returns "" for anything else.
func (c *HTTPCorpus) FilenameFor(rawURL string) string {
	normalized, u, err := parse.ParseAndNormalize(rawURL)
	if err != nil {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return ""
	}
	return filepath.Join(c.dir, utils.SanitizeFilename(host), utils.ShortSHA256(normalized, filenameLen)+pageExt)
}

func metaPathFor(pagePath string) string {
	return strings.TrimSuffix(pagePath, pageExt) + metaExt
}

// Fetch returns the page for rawURL from disk or the network.
// 4xx and other non-2xx responses come back with their code, nil content and a nil error.
func (c *HTTPCorpus) Fetch(ctx context.Context, rawURL string) (models.FetchResult, error) {
	result := models.FetchResult{URL: rawURL, FinalURL: rawURL}
	pagePath := c.FilenameFor(rawURL)
	if pagePath == "" {
		return result, fmt.Errorf("%w: no corpus file for URL '%s'", utils.ErrParsing, rawURL)
	}
	fetchLog := c.log.WithField("url", rawURL)

	if cached, ok := c.readCache(pagePath, fetchLog); ok {
		return cached, nil
	}

	_, target, err := parse.ParseAndNormalize(rawURL)
	if err != nil {
		return result, err
	}
	if c.robots != nil && !c.robots.TestAgent(ctx, target) {
		fetchLog.Debug("Disallowed by robots.txt")
		return result, fmt.Errorf("%w: %s", utils.ErrRobotsDisallowed, rawURL)
	}

	host := target.Hostname()
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, host); err != nil {
			return result, err
		}
		defer c.limiter.UpdateLastRequestTime(host)
	}

	resp, err := c.fetcher.Get(ctx, rawURL)
	if resp == nil {
		return result, err
	}
	result.HTTPCode = resp.StatusCode
	if resp.Request != nil && resp.Request.URL != nil {
		result.FinalURL = resp.Request.URL.String()
		result.IsRedirected = result.FinalURL != rawURL
	}

	if err != nil {
		// Non-2xx with a response: the code is the answer, there is no page
		resp.Body.Close()
		fetchLog.WithFields(logrus.Fields{"status_code": resp.StatusCode, "error_cat": utils.CategorizeError(err)}).Debug("No content")
		c.writeCache(pagePath, result, fetchLog)
		return result, nil
	}

	body, err := fetch.DecodeBody(resp, c.maxBytes)
	if err != nil {
		fetchLog.WithField("error_cat", utils.CategorizeError(err)).Warnf("Reading body failed: %v", err)
		return result, err
	}
	result.Content = body
	c.writeCache(pagePath, result, fetchLog)
	return result, nil
}

func (c *HTTPCorpus) readCache(pagePath string, log *logrus.Entry) (models.FetchResult, bool) {
	metaBytes, err := os.ReadFile(metaPathFor(pagePath))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warnf("Reading cached metadata failed: %v", err)
		}
		return models.FetchResult{}, false
	}
	var meta models.CachedPage
	if err := yaml.Unmarshal(metaBytes, &meta); err != nil {
		log.Warnf("Corrupt cached metadata, refetching: %v", err)
		return models.FetchResult{}, false
	}

	result := models.FetchResult{
		URL:          meta.URL,
		FinalURL:     meta.FinalURL,
		IsRedirected: meta.IsRedirected,
		HTTPCode:     meta.HTTPCode,
	}
	if meta.ContentHash != "" {
		body, err := os.ReadFile(pagePath)
		if err != nil {
			log.Warnf("Cached page missing, refetching: %v", err)
			return models.FetchResult{}, false
		}
		if utils.CalculateStringSHA256(string(body)) != meta.ContentHash {
			log.Warn("Cached page does not match its hash, refetching")
			return models.FetchResult{}, false
		}
		result.Content = body
	}
	log.Debug("Served from corpus cache")
	return result, true
}

// writeCache stores the body (if any) and its sidecar. Failures are logged only.
func (c *HTTPCorpus) writeCache(pagePath string, result models.FetchResult, log *logrus.Entry) {
	meta := models.CachedPage{
		URL:          result.URL,
		FinalURL:     result.FinalURL,
		IsRedirected: result.IsRedirected,
		HTTPCode:     result.HTTPCode,
		FetchedAt:    time.Now().UTC(),
	}
	if err := os.MkdirAll(filepath.Dir(pagePath), 0755); err != nil {
		log.WithField("error_cat", "Filesystem_Other").Warnf("Creating corpus directory failed: %v", err)
		return
	}
	if result.HasContent() {
		if err := os.WriteFile(pagePath, result.Content, 0644); err != nil {
			log.Warnf("Writing cached page failed: %v", err)
			return
		}
		meta.ContentHash = utils.CalculateStringSHA256(string(result.Content))
	}
	data, err := yaml.Marshal(&meta)
	if err != nil {
		log.Warnf("Encoding cached metadata failed: %v", err)
		return
	}
	if err := os.WriteFile(metaPathFor(pagePath), data, 0644); err != nil {
		log.Warnf("Writing cached metadata failed: %v", err)
	}
}
