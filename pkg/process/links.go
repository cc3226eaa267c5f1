package process

import (
	"bytes"
	"net/http"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"scope-crawler/pkg/models"
	"scope-crawler/pkg/parse"
	"scope-crawler/pkg/utils"
)

// invisibleSelector covers elements whose text never renders on the page
const invisibleSelector = "script, style, noscript, template"

// PageRecorder receives the per-page signals the extractor computes
type PageRecorder interface {
	AddOutlinks(baseURL string, n int)
	RecordPageLength(baseURL string, wordCount int) bool
	AddWords(tokens []string)
}

// LinkExtractor turns fetched pages into absolute outbound links and feeds
// page statistics to a PageRecorder
type LinkExtractor struct {
	recorder PageRecorder
	log      *logrus.Entry
}

// NewLinkExtractor creates a LinkExtractor
func NewLinkExtractor(recorder PageRecorder, log *logrus.Entry) *LinkExtractor {
	return &LinkExtractor{
		recorder: recorder,
		log:      log.WithField("component", "link_extractor"),
	}
}

// Extract returns every anchor href on the page resolved to an absolute URL,
// in document order and without deduplication. An href that cannot be
// resolved is left out of the result but counted as an out link.
// Pages without content or with a 404 status yield no links and no statistics.
// On a parse error it returns a nil slice and an error wrapping ErrParsing.
func (le *LinkExtractor) Extract(res models.FetchResult) ([]string, error) {
	if !res.HasContent() || res.HTTPCode == http.StatusNotFound {
		return nil, nil
	}

	baseStr := res.BaseURL()
	pageLog := le.log.WithField("url", baseStr)

	base, err := url.Parse(baseStr)
	if err != nil {
		err = utils.WrapErrorf(utils.ErrParsing, "parsing URL base '%s': %v", baseStr, err)
		pageLog.WithField("error_cat", utils.CategorizeError(err)).Warn("Skipping link extraction")
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Content))
	if err != nil {
		err = utils.WrapErrorf(utils.ErrParsing, "parsing HTML from '%s': %v", baseStr, err)
		pageLog.WithField("error_cat", utils.CategorizeError(err)).Warn("Skipping link extraction")
		return nil, err
	}

	var links []string
	anchors := 0
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if href == "" {
			return
		}
		anchors++
		abs, err := parse.Resolve(base, href)
		if err != nil {
			pageLog.WithField("href", href).Warnf("Skipping unresolvable link: %v", err)
			return
		}
		links = append(links, abs)
	})
	// Unresolvable hrefs still count as out links of the page
	le.recorder.AddOutlinks(baseStr, anchors)

	doc.Find(invisibleSelector).Remove()
	text := doc.Text()

	wordCount := CountWords(text)
	if le.recorder.RecordPageLength(baseStr, wordCount) {
		pageLog.WithField("words", wordCount).Debug("New longest page")
	}
	le.recorder.AddWords(Tokenize(text))

	pageLog.WithFields(logrus.Fields{"links": len(links), "words": wordCount}).Debug("Extracted page")
	return links, nil
}
