package fetch

import (
	"context"
	"net/url"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"
)

const maxRobotsBytes = 512 << 10

// RobotsHandler fetches, parses and caches robots.txt per scheme+host
type RobotsHandler struct {
	fetcher     *Fetcher
	rateLimiter *RateLimiter
	userAgent   string
	robotsCache map[string]*robotstxt.RobotsData // scheme://host -> parsed data (nil = allow all)
	robotsMu    sync.Mutex
	log         *logrus.Entry
}

// NewRobotsHandler creates a RobotsHandler. rateLimiter may be nil.
func NewRobotsHandler(fetcher *Fetcher, rateLimiter *RateLimiter, userAgent string, log *logrus.Entry) *RobotsHandler {
	return &RobotsHandler{
		fetcher:     fetcher,
		rateLimiter: rateLimiter,
		userAgent:   userAgent,
		robotsCache: make(map[string]*robotstxt.RobotsData),
		log:         log.WithField("component", "robots"),
	}
}

// GetRobotsData returns the robots.txt rules for targetURL's host, fetching on
// first use. Any fetch or parse failure is cached as nil, which allows everything.
func (rh *RobotsHandler) GetRobotsData(ctx context.Context, targetURL *url.URL) *robotstxt.RobotsData {
	scheme := targetURL.Scheme
	if scheme != "http" && scheme != "https" {
		scheme = "https"
	}
	key := scheme + "://" + targetURL.Host

	rh.robotsMu.Lock()
	data, found := rh.robotsCache[key]
	rh.robotsMu.Unlock()
	if found {
		return data
	}

	robotsURL := (&url.URL{Scheme: scheme, Host: targetURL.Host, Path: "/robots.txt"}).String()
	robotsLog := rh.log.WithField("robots_url", robotsURL)
	robotsLog.Info("Fetching robots.txt...")

	data = rh.fetch(ctx, targetURL.Hostname(), robotsURL, robotsLog)

	// Context failures are not cached so a later call can retry
	if ctx.Err() == nil {
		rh.robotsMu.Lock()
		rh.robotsCache[key] = data
		rh.robotsMu.Unlock()
	}
	return data
}

func (rh *RobotsHandler) fetch(ctx context.Context, host, robotsURL string, robotsLog *logrus.Entry) *robotstxt.RobotsData {
	if rh.rateLimiter != nil {
		if err := rh.rateLimiter.Wait(ctx, host); err != nil {
			return nil
		}
		defer rh.rateLimiter.UpdateLastRequestTime(host)
	}

	resp, err := rh.fetcher.Get(ctx, robotsURL)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		robotsLog.Warnf("Fetching robots.txt failed, allowing all: %v", err)
		return nil
	}

	body, err := DecodeBody(resp, maxRobotsBytes)
	if err != nil {
		robotsLog.Errorf("Error reading body: %v", err)
		return nil
	}
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		robotsLog.Errorf("Error parsing content: %v", err)
		return nil
	}
	robotsLog.Info("Successfully fetched and parsed robots.txt")
	return data
}

// TestAgent reports whether the configured user agent may fetch targetURL.
// Missing or unreadable robots.txt allows everything.
func (rh *RobotsHandler) TestAgent(ctx context.Context, targetURL *url.URL) bool {
	data := rh.GetRobotsData(ctx, targetURL)
	if data == nil {
		return true
	}
	return data.TestAgent(targetURL.RequestURI(), rh.userAgent)
}
