package validate

import (
	"errors"
	"io"
	"regexp"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scope-crawler/pkg/stats"
	"scope-crawler/pkg/trap"
	"scope-crawler/pkg/utils"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

// newTestValidator builds a validator whose trap detector skips the
// first-sighting gate, so each test sees scope and extension checks directly.
func newTestValidator(t *testing.T, patterns ...string) (*Validator, *stats.Aggregator) {
	t.Helper()
	agg := stats.NewAggregator()
	opts := trap.DefaultOptions()
	opts.DisableFirstSighting = true
	det := trap.NewDetector(opts, agg, testLogger())
	var compiled []*regexp.Regexp
	if len(patterns) > 0 {
		var err error
		compiled, err = utils.CompileRegexPatterns(patterns)
		require.NoError(t, err)
	}
	return NewValidator("", compiled, det, agg, testLogger()), agg
}

func TestIsValid_InScope(t *testing.T) {
	v, _ := newTestValidator(t)
	for _, u := range []string{
		"http://www.ics.uci.edu/",
		"https://vision.ics.uci.edu/papers/index.html",
		"http://WWW.ICS.UCI.EDU/about",
		"http://www.ics.uci.edu:8080/x.php?id=3",
	} {
		assert.True(t, v.IsValid(u), u)
	}
}

func TestIsValid_RejectsOutOfScopeHosts(t *testing.T) {
	v, _ := newTestValidator(t)
	for _, u := range []string{
		"http://www.uci.edu/",
		"http://ics.uci.edu/",
		"http://example.com/www.ics.uci.edu/",
		"http://192.168.0.1/",
	} {
		err := v.Check(u)
		assert.ErrorIs(t, err, utils.ErrScopeViolation, u)
	}
}

func TestIsValid_ScopeIsSubstringMatch(t *testing.T) {
	v, _ := newTestValidator(t)
	assert.True(t, v.IsValid("http://mirror.ics.uci.edu.example.org/"),
		"hostnames only need to contain the suffix")
}

func TestIsValid_CustomScope(t *testing.T) {
	agg := stats.NewAggregator()
	det := trap.NewDetector(trap.Options{}, agg, testLogger())
	v := NewValidator(".Example.ORG", nil, det, agg, testLogger())
	assert.True(t, v.IsValid("http://docs.example.org/guide"))
	assert.False(t, v.IsValid("http://www.ics.uci.edu/"))
}

func TestIsValid_RejectsExtensionsCaseInsensitively(t *testing.T) {
	v, _ := newTestValidator(t)
	for _, path := range []string{
		"/paper.pdf", "/paper.PDF", "/paper.PdF",
		"/a.zip", "/b.tar", "/c.JPEG", "/d.jpg", "/e.tif", "/f.tiff",
		"/g.css", "/h.js", "/i.mp4", "/j.pptx", "/k.7z", "/l.sha1", "/m.gz",
	} {
		err := v.Check("http://www.ics.uci.edu" + path)
		assert.ErrorIs(t, err, utils.ErrScopeViolation, path)
	}
}

func TestIsValid_ExtensionAnchoredAtEnd(t *testing.T) {
	v, _ := newTestValidator(t)
	for _, path := range []string{
		"/paper.pdf.html",
		"/pdf",
		"/files.zip/index",
		"/page.html",
		"/page.htm",
		"/script.php",
	} {
		assert.True(t, v.IsValid("http://www.ics.uci.edu"+path), path)
	}
	assert.True(t, v.IsValid("http://www.ics.uci.edu/get?file=a.pdf"), "query is not part of the path")
}

func TestIsValid_DisallowedPatterns(t *testing.T) {
	v, _ := newTestValidator(t, `^/~private/`, `/calendar/`)
	assert.False(t, v.IsValid("http://www.ics.uci.edu/~private/notes"))
	assert.False(t, v.IsValid("http://www.ics.uci.edu/events/calendar/2020"))
	assert.True(t, v.IsValid("http://www.ics.uci.edu/events/"))
}

func TestIsValid_UnparseableOrHostless(t *testing.T) {
	v, agg := newTestValidator(t)

	err := v.Check("http://[::1")
	assert.ErrorIs(t, err, utils.ErrParsing)

	err = v.Check("http:///no-host")
	assert.ErrorIs(t, err, utils.ErrParsing)

	assert.Empty(t, agg.Snapshot().Traps)
}

func TestIsValid_TrapsAreLogged(t *testing.T) {
	v, agg := newTestValidator(t)

	err := v.Check("http://wiki.ics.uci.edu/doku.php?action=edit")
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrTrapDetected))

	assert.False(t, v.IsValid("ftp://ftp.ics.uci.edu/pub"))
	assert.False(t, v.IsValid("http://www.ics.uci.edu/a/b/a/b/c"))
	assert.True(t, v.IsValid("http://www.ics.uci.edu/a/b/c/d"))

	assert.Equal(t, []string{
		"wiki.ics.uci.edu/doku.php",
		"ftp.ics.uci.edu/pub",
		"www.ics.uci.edu/a/b/a/b/c",
	}, agg.Snapshot().Traps)
}

func TestIsValid_FirstSightingRejectedThenAccepted(t *testing.T) {
	agg := stats.NewAggregator()
	det := trap.NewDetector(trap.DefaultOptions(), agg, testLogger())
	v := NewValidator("", nil, det, agg, testLogger())

	link := "http://www.ics.uci.edu/page.html"
	assert.False(t, v.IsValid(link), "fresh domain_path is a trap on first sight")
	assert.True(t, v.IsValid(link))
	assert.Equal(t, []string{"www.ics.uci.edu/page.html"}, agg.Snapshot().Traps)
	assert.Equal(t, 2, det.Visits("www.ics.uci.edu/page.html"))
}

func TestIsValid_RepeatedTrapAppendsEveryTime(t *testing.T) {
	v, agg := newTestValidator(t)
	for i := 0; i < 3; i++ {
		v.IsValid("http://www.ics.uci.edu/x/x")
	}
	assert.Len(t, agg.Snapshot().Traps, 3)
}

func TestIsValid_OverVisitedPath(t *testing.T) {
	v, _ := newTestValidator(t)
	link := "http://www.ics.uci.edu/calendar.php"
	for i := 0; i < trap.DefaultMaxPathVisits; i++ {
		require.True(t, v.IsValid(link), "call %d", i+1)
	}
	assert.False(t, v.IsValid(link))
	assert.False(t, v.IsValid(link+"?month=2"), "query does not reset the path counter")
}

func TestIsValid_OpaqueLinksKeepDistinctKeys(t *testing.T) {
	agg := stats.NewAggregator()
	det := trap.NewDetector(trap.DefaultOptions(), agg, testLogger())
	v := NewValidator("", nil, det, agg, testLogger())

	for _, link := range []string{"mailto:alice@ics.uci.edu", "mailto:bob@ics.uci.edu", "javascript:void(0)"} {
		assert.False(t, v.IsValid(link), link)
	}

	s := agg.Snapshot()
	want := []string{"alice@ics.uci.edu", "bob@ics.uci.edu", "void(0)"}
	assert.Equal(t, want, s.Traps)
	assert.Equal(t, want, s.Visited)
	for _, key := range want {
		assert.Equal(t, 1, det.Visits(key), key)
	}
	assert.Zero(t, det.Visits(""))
}
