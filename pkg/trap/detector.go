package trap

import (
	"time"

	"github.com/dlclark/regexp2"
	"github.com/sirupsen/logrus"

	"scope-crawler/pkg/parse"
)

// Reason names the check that classified a URL as a trap
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonBlockedQuery  Reason = "blocked_query"
	ReasonOverVisited   Reason = "over_visited"
	ReasonFirstSighting Reason = "first_sighting"
	ReasonScheme        Reason = "scheme"
	ReasonURLTooLong    Reason = "url_too_long"
	ReasonRepeatingPath Reason = "repeating_path"
)

// Default limits used when Options leave them unset
const (
	DefaultMaxPathVisits = 13
	DefaultMaxURLLength  = 200
)

// DefaultBlockedQueries are query strings that mark action/session endpoints
var DefaultBlockedQueries = []string{"action=download", "action=login", "action=edit"}

// repeatingSegments matches a path in which a run of segments is immediately
// followed by itself: "/a/b/a/b/c", "/x/x", or the slash-delimited "/a/b//a/b/".
// RE2 has no backreferences, hence regexp2.
var repeatingSegments = func() *regexp2.Regexp {
	re := regexp2.MustCompile(`(/.+?/)\1|(/[^/]+(?:/[^/]+)*?)\2(?=/|$)`, regexp2.None)
	re.MatchTimeout = 250 * time.Millisecond
	return re
}()

// SightingLog is the shared set of encountered domain_paths.
// MarkEncountered returns true when the key was not present before.
type SightingLog interface {
	MarkEncountered(domainPath string) bool
}

// Options tune the detector. Zero limits and a nil BlockedQueries fall back to the defaults above.
type Options struct {
	MaxPathVisits        int
	MaxURLLength         int
	BlockedQueries       []string
	DisableFirstSighting bool // Let first sightings through; the zero value keeps the gate
}

// DefaultOptions returns the classic thresholds with the first-sighting gate enabled
func DefaultOptions() Options {
	return Options{
		MaxPathVisits:  DefaultMaxPathVisits,
		MaxURLLength:   DefaultMaxURLLength,
		BlockedQueries: append([]string(nil), DefaultBlockedQueries...),
	}
}

// Detector classifies URLs as crawler traps and keeps per-path visit history.
// It is not safe for concurrent use; the crawl loop owns it.
type Detector struct {
	opts    Options
	blocked map[string]struct{}
	visits  map[string]int
	seen    SightingLog
	log     *logrus.Entry
}

// NewDetector creates a Detector. A nil seen log gets a private in-memory set.
func NewDetector(opts Options, seen SightingLog, log *logrus.Entry) *Detector {
	if opts.MaxPathVisits <= 0 {
		opts.MaxPathVisits = DefaultMaxPathVisits
	}
	if opts.MaxURLLength <= 0 {
		opts.MaxURLLength = DefaultMaxURLLength
	}
	if opts.BlockedQueries == nil {
		opts.BlockedQueries = DefaultBlockedQueries
	}
	if seen == nil {
		seen = make(sightingSet)
	}
	blocked := make(map[string]struct{}, len(opts.BlockedQueries))
	for _, q := range opts.BlockedQueries {
		blocked[q] = struct{}{}
	}
	return &Detector{
		opts:    opts,
		blocked: blocked,
		visits:  make(map[string]int),
		seen:    seen,
		log:     log.WithField("component", "trap_detector"),
	}
}

// IsTrap reports whether u looks like a crawler trap. See Classify.
func (d *Detector) IsTrap(u parse.NormalizedURL) bool {
	isTrap, _ := d.Classify(u)
	return isTrap
}

// Classify runs the trap checks in fixed order and stops at the first hit.
// Every call that gets past the blocked-query check increments the visit
// counter of u's domain_path exactly once.
func (d *Detector) Classify(u parse.NormalizedURL) (bool, Reason) {
	if _, blocked := d.blocked[u.RawQuery]; blocked {
		return d.flag(u, ReasonBlockedQuery)
	}

	key := u.DomainPath()
	d.visits[key]++
	if d.visits[key] > d.opts.MaxPathVisits {
		return d.flag(u, ReasonOverVisited)
	}

	// A path is only eligible to pass on its second or later sighting.
	if d.seen.MarkEncountered(key) && !d.opts.DisableFirstSighting {
		return d.flag(u, ReasonFirstSighting)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return d.flag(u, ReasonScheme)
	}

	if len(u.Raw) > d.opts.MaxURLLength {
		return d.flag(u, ReasonURLTooLong)
	}

	if hasRepeatingSegments(u.Path) {
		return d.flag(u, ReasonRepeatingPath)
	}

	return false, ReasonNone
}

// Visits returns how many times domainPath has been counted
func (d *Detector) Visits(domainPath string) int {
	return d.visits[domainPath]
}

func (d *Detector) flag(u parse.NormalizedURL, reason Reason) (bool, Reason) {
	d.log.WithFields(logrus.Fields{"url": u.Raw, "reason": reason}).Debug("Trap check flagged URL")
	return true, reason
}

func hasRepeatingSegments(path string) bool {
	matched, err := repeatingSegments.MatchString(path)
	if err != nil {
		// Only a match timeout can fail here; a path that pathological is itself a trap.
		return true
	}
	return matched
}

type sightingSet map[string]struct{}

func (s sightingSet) MarkEncountered(domainPath string) bool {
	if _, ok := s[domainPath]; ok {
		return false
	}
	s[domainPath] = struct{}{}
	return true
}
