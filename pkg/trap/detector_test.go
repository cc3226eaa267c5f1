package trap

import (
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scope-crawler/pkg/parse"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func mustParse(t *testing.T, raw string) parse.NormalizedURL {
	t.Helper()
	u, err := parse.Parse(raw)
	require.NoError(t, err)
	return u
}

// primed returns a detector that has already sighted u once, so the
// first-sighting gate no longer fires for u's domain_path.
func primed(t *testing.T, u parse.NormalizedURL) *Detector {
	t.Helper()
	d := NewDetector(DefaultOptions(), nil, testLogger())
	isTrap, reason := d.Classify(u)
	require.True(t, isTrap)
	require.Equal(t, ReasonFirstSighting, reason)
	return d
}

// The first call for a fresh domain_path is always a trap.
func TestClassify_FirstSightingIsTrap(t *testing.T) {
	d := NewDetector(DefaultOptions(), nil, testLogger())
	u := mustParse(t, "http://www.ics.uci.edu/about/index.html")

	isTrap, reason := d.Classify(u)
	assert.True(t, isTrap, "fresh domain_path must be flagged on first call")
	assert.Equal(t, ReasonFirstSighting, reason)

	isTrap, reason = d.Classify(u)
	assert.False(t, isTrap, "second sighting with nothing else wrong passes")
	assert.Equal(t, ReasonNone, reason)
}

func TestClassify_FirstSightingGateDisabled(t *testing.T) {
	opts := DefaultOptions()
	opts.DisableFirstSighting = true
	seen := make(sightingSet)
	d := NewDetector(opts, seen, testLogger())

	assert.False(t, d.IsTrap(mustParse(t, "http://www.ics.uci.edu/a")))
	_, recorded := seen["www.ics.uci.edu/a"]
	assert.True(t, recorded, "sighting is still recorded with the gate disabled")
}

func TestClassify_QueryStringNotPartOfKey(t *testing.T) {
	d := NewDetector(DefaultOptions(), nil, testLogger())
	assert.True(t, d.IsTrap(mustParse(t, "http://www.ics.uci.edu/page?id=1")))
	assert.False(t, d.IsTrap(mustParse(t, "http://www.ics.uci.edu/page?id=2")),
		"same host+path with a different query is a second sighting")
	assert.Equal(t, 2, d.Visits("www.ics.uci.edu/page"))
}

func TestClassify_BlockedQueries(t *testing.T) {
	for _, q := range DefaultBlockedQueries {
		t.Run(q, func(t *testing.T) {
			d := NewDetector(DefaultOptions(), nil, testLogger())
			u := mustParse(t, "http://wiki.ics.uci.edu/doku.php?"+q)
			isTrap, reason := d.Classify(u)
			assert.True(t, isTrap)
			assert.Equal(t, ReasonBlockedQuery, reason)
			assert.Equal(t, 0, d.Visits(u.DomainPath()), "blocked query short-circuits before counting")
		})
	}
}

func TestClassify_BlockedQueryMustMatchExactly(t *testing.T) {
	u := mustParse(t, "http://wiki.ics.uci.edu/doku.php?action=login&x=1")
	d := primed(t, u)
	assert.False(t, d.IsTrap(u), "query merely containing a blocked pair is not blocked")
}

func TestClassify_VisitThreshold(t *testing.T) {
	d := NewDetector(DefaultOptions(), nil, testLogger())
	u := mustParse(t, "http://www.ics.uci.edu/calendar")

	for i := 1; i <= DefaultMaxPathVisits; i++ {
		isTrap, reason := d.Classify(u)
		if i == 1 {
			assert.Equal(t, ReasonFirstSighting, reason)
			continue
		}
		assert.False(t, isTrap, "call %d should pass", i)
	}
	assert.Equal(t, DefaultMaxPathVisits, d.Visits(u.DomainPath()))

	for i := 0; i < 3; i++ {
		isTrap, reason := d.Classify(u)
		assert.True(t, isTrap, "visits above the threshold stay trapped")
		assert.Equal(t, ReasonOverVisited, reason)
	}
	assert.Equal(t, DefaultMaxPathVisits+3, d.Visits(u.DomainPath()), "counter advances once per call")
}

func TestClassify_CounterAdvancesEvenWhenLaterCheckFires(t *testing.T) {
	u := mustParse(t, "ftp://www.ics.uci.edu/file")
	d := NewDetector(DefaultOptions(), nil, testLogger())
	for i := 0; i < 5; i++ {
		d.IsTrap(u)
	}
	assert.Equal(t, 5, d.Visits(u.DomainPath()))
}

func TestClassify_Scheme(t *testing.T) {
	u := mustParse(t, "ftp://www.ics.uci.edu/pub/")
	d := primed(t, u)
	isTrap, reason := d.Classify(u)
	assert.True(t, isTrap)
	assert.Equal(t, ReasonScheme, reason)

	https := mustParse(t, "https://www.ics.uci.edu/secure")
	d = primed(t, https)
	assert.False(t, d.IsTrap(https))
}

func TestClassify_URLLength(t *testing.T) {
	base := "http://www.ics.uci.edu/p?"
	exact := mustParse(t, base+strings.Repeat("q", DefaultMaxURLLength-len(base)))
	require.Len(t, exact.Raw, DefaultMaxURLLength)
	d := primed(t, exact)
	assert.False(t, d.IsTrap(exact), "exactly the limit is allowed")

	long := mustParse(t, base+strings.Repeat("q", DefaultMaxURLLength-len(base)+1))
	d = primed(t, long)
	isTrap, reason := d.Classify(long)
	assert.True(t, isTrap)
	assert.Equal(t, ReasonURLTooLong, reason)
}

func TestClassify_RepeatingPath(t *testing.T) {
	tests := []struct {
		path string
		trap bool
	}{
		{"/a/b/a/b/c", true},
		{"/a/b/c/d", false},
		{"/x/x", true},
		{"/x/y/y/z", true},
		{"/a/b//a/b/", true},
		{"/ab/abc", false},
		{"/people/faculty/people", false},
		{"/", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			u := mustParse(t, "http://www.ics.uci.edu"+tt.path)
			d := primed(t, u)
			isTrap, reason := d.Classify(u)
			assert.Equal(t, tt.trap, isTrap)
			if tt.trap {
				assert.Equal(t, ReasonRepeatingPath, reason)
			}
		})
	}
}

func TestNewDetector_Defaults(t *testing.T) {
	d := NewDetector(Options{}, nil, testLogger())
	assert.Equal(t, DefaultMaxPathVisits, d.opts.MaxPathVisits)
	assert.Equal(t, DefaultMaxURLLength, d.opts.MaxURLLength)
	assert.Len(t, d.blocked, len(DefaultBlockedQueries))
	assert.False(t, d.opts.DisableFirstSighting)
	assert.True(t, d.IsTrap(mustParse(t, "http://www.ics.uci.edu/fresh")), "zero Options keep the first-sighting gate")
}

func TestNewDetector_CustomLimits(t *testing.T) {
	d := NewDetector(Options{MaxPathVisits: 2, BlockedQueries: []string{}}, nil, testLogger())
	u := mustParse(t, "http://www.ics.uci.edu/a?action=edit")

	assert.True(t, d.IsTrap(u))  // first sighting
	assert.False(t, d.IsTrap(u)) // empty blocklist lets action=edit through
	isTrap, reason := d.Classify(u)
	assert.True(t, isTrap)
	assert.Equal(t, ReasonOverVisited, reason)
}
