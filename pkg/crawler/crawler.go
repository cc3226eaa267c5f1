package crawler

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"scope-crawler/pkg/models"
	"scope-crawler/pkg/parse"
	"scope-crawler/pkg/process"
	"scope-crawler/pkg/report"
	"scope-crawler/pkg/stats"
	"scope-crawler/pkg/trap"
	"scope-crawler/pkg/utils"
	"scope-crawler/pkg/validate"
)

// DefaultReportPath is where the report goes when Options leave it empty
const DefaultReportPath = "crawler_results.txt"

// Frontier is the queue of URLs still to crawl. It owns deduplication.
type Frontier interface {
	HasNext() bool
	Next() string
	Add(url string)
}

// FrontierStats is implemented by frontiers that can report progress
type FrontierStats interface {
	Fetched() int
	Len() int
}

// Corpus fetches pages and maps URLs to their local storage name.
// FilenameFor returns "" for URLs the corpus cannot hold.
type Corpus interface {
	Fetch(ctx context.Context, url string) (models.FetchResult, error)
	FilenameFor(url string) string
}

// State of the crawl loop
type State string

const (
	StateRunning State = "running"
	StateDone    State = "done"
)

// Options configure a Crawler. Zero values select the defaults.
type Options struct {
	ScopeSuffix        string
	Trap               trap.Options
	DisallowedPatterns []*regexp.Regexp
	ReportPath         string
	TopWords           int
}

// Crawler drives the frontier until it is exhausted and then writes the report.
// It runs on a single goroutine and owns all crawl state.
type Crawler struct {
	log      *logrus.Entry
	runID    string
	opts     Options
	frontier Frontier
	corpus   Corpus

	stats     *stats.Aggregator
	traps     *trap.Detector
	validator *validate.Validator
	extractor *process.LinkExtractor

	state State
}

// NewCrawler wires the trap detector, validator, extractor and aggregator
// around the given frontier and corpus
func NewCrawler(frontier Frontier, corpus Corpus, opts Options, baseLogger *logrus.Entry) *Crawler {
	if opts.ReportPath == "" {
		opts.ReportPath = DefaultReportPath
	}
	if opts.TopWords <= 0 {
		opts.TopWords = report.DefaultTopWords
	}

	runID := uuid.New().String()
	logger := baseLogger.WithField("run_id", runID)

	agg := stats.NewAggregator()
	detector := trap.NewDetector(opts.Trap, agg, logger)

	return &Crawler{
		log:       logger,
		runID:     runID,
		opts:      opts,
		frontier:  frontier,
		corpus:    corpus,
		stats:     agg,
		traps:     detector,
		validator: validate.NewValidator(opts.ScopeSuffix, opts.DisallowedPatterns, detector, agg, logger),
		extractor: process.NewLinkExtractor(agg, logger),
		state:     StateRunning,
	}
}

// RunID identifies this crawl in logs
func (c *Crawler) RunID() string { return c.runID }

// State returns the current loop state
func (c *Crawler) State() State { return c.state }

// Stats exposes the aggregator, mainly for inspection after Run
func (c *Crawler) Stats() *stats.Aggregator { return c.stats }

// Run processes URLs until the frontier is empty, then writes the report.
// The report is written exactly once; calling Run again after it finished is a no-op.
func (c *Crawler) Run(ctx context.Context) error {
	if c.state == StateDone {
		c.log.Warn("Crawl already finished, not running again")
		return nil
	}

	c.log.WithFields(logrus.Fields{
		"scope":       c.validator.Scope(),
		"report_path": c.opts.ReportPath,
	}).Info("Crawl starting")
	start := time.Now()

	for c.Step(ctx) {
	}

	return c.finish(time.Since(start))
}

// Step processes the next URL from the frontier. It returns false without
// doing anything when the frontier is empty.
func (c *Crawler) Step(ctx context.Context) bool {
	if c.state != StateRunning || !c.frontier.HasNext() {
		return false
	}

	rawURL := c.frontier.Next()
	taskLog := c.log.WithField("url", rawURL)
	if fs, ok := c.frontier.(FrontierStats); ok {
		taskLog.WithFields(logrus.Fields{
			"fetched":    fs.Fetched(),
			"queue_size": fs.Len(),
		}).Info("Fetching URL")
	} else {
		taskLog.Info("Fetching URL")
	}

	res, err := c.corpus.Fetch(ctx, rawURL)
	if err != nil {
		taskLog.WithField("error_cat", utils.CategorizeError(err)).Warnf("Fetch failed: %v", err)
	}
	c.recordVisit(rawURL, res, err, taskLog)
	if err != nil {
		return true
	}

	links, err := c.extractor.Extract(res)
	if err != nil {
		// Already logged by the extractor; the page contributes no links
		return true
	}

	queued := 0
	for _, link := range links {
		if verr := c.validator.Check(link); verr != nil {
			taskLog.WithFields(logrus.Fields{
				"link":       link,
				"reject_cat": utils.CategorizeError(verr),
			}).Debugf("Link rejected: %v", verr)
			continue
		}
		if c.corpus.FilenameFor(link) == "" {
			taskLog.WithField("link", link).Debug("Link rejected: corpus has no filename for it")
			continue
		}
		c.frontier.Add(link)
		queued++
	}
	taskLog.WithFields(logrus.Fields{"links": len(links), "queued": queued}).Debug("Page processed")
	return true
}

// recordVisit runs visitation bookkeeping for a dequeued URL: the trap check,
// the subdomain count and the two-phase visit status
func (c *Crawler) recordVisit(rawURL string, res models.FetchResult, fetchErr error, taskLog *logrus.Entry) {
	u, err := parse.Parse(rawURL)
	if err != nil {
		taskLog.WithField("error_cat", utils.CategorizeError(err)).Errorf("Cannot record visit: %v", err)
		return
	}

	if isTrap, reason := c.traps.Classify(u); isTrap {
		c.stats.RecordTrap(u.DomainPath())
		taskLog.WithField("reason", reason).Debug("Dequeued URL classified as trap")
	}
	c.stats.Observe(u)

	if fetchErr == nil && res.HasContent() && res.HTTPCode < http.StatusBadRequest {
		c.stats.MarkFetched(u.DomainPath())
	}
}

func (c *Crawler) finish(duration time.Duration) error {
	c.state = StateDone
	summary := c.stats.Snapshot()

	summaryLog := c.log.WithField("report_path", c.opts.ReportPath)
	summaryLog.Info("========================================================================")
	summaryLog.Info("CRAWL FINISHED")
	summaryLog.Infof("Duration:         %v", duration)
	summaryLog.Infof("Final Stats: Unique pages: %d, Fetched: %d, Traps logged: %d, Subdomains: %d",
		summary.UniquePages, summary.FetchedPages, len(summary.Traps), len(summary.Subdomains))
	if summary.LongestPage.Count > 0 {
		summaryLog.Infof("Most words on one page: %d (%s)", summary.LongestPage.Count, summary.LongestPage.Key)
	}
	summaryLog.Info("========================================================================")

	if err := report.WriteFile(c.opts.ReportPath, summary, c.opts.TopWords); err != nil {
		summaryLog.WithField("error_cat", utils.CategorizeError(err)).Errorf("Failed to write report: %v", err)
		return err
	}
	summaryLog.Info("Results written")
	return nil
}
