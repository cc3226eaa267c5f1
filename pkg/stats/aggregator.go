package stats

import (
	"sort"

	"scope-crawler/pkg/models"
	"scope-crawler/pkg/parse"
)

// Count pairs a key (URL, hostname or word) with how often it was seen
type Count struct {
	Key   string
	Count int
}

// Summary is a point-in-time copy of everything the Aggregator has collected.
// Slices are freshly allocated and ordered deterministically.
type Summary struct {
	UniquePages  int      // Size of the visited set
	FetchedPages int      // Visited entries promoted to fetched
	Visited      []string // domain_paths in first-encounter order
	MostOutlinks Count    // Page with the most anchors; zero value when no page produced any
	Subdomains   []Count  // Count desc, then hostname asc
	LongestPage  Count    // Page with the highest word count seen
	Words        []Count  // Count desc, then word asc
	Traps        []string // Trap log in append order, duplicates kept
}

// TopWords returns at most n entries from Words
func (s Summary) TopWords(n int) []Count {
	if n < 0 || n >= len(s.Words) {
		return s.Words
	}
	return s.Words[:n]
}

// Aggregator owns all crawl statistics for one run.
// It is not safe for concurrent use; the crawl loop is its only writer.
type Aggregator struct {
	visitOrder []string
	visits     map[string]models.VisitStatus

	subdomains map[string]int

	outlinks     map[string]int
	outlinkOrder []string

	longestURL   string
	longestWords int

	words map[string]int
	traps []string
}

// NewAggregator creates an empty Aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{
		visits:     make(map[string]models.VisitStatus),
		subdomains: make(map[string]int),
		outlinks:   make(map[string]int),
		words:      make(map[string]int),
	}
}

// MarkEncountered adds domainPath to the visited set as observed.
// Returns true when domainPath was not in the set before.
func (a *Aggregator) MarkEncountered(domainPath string) bool {
	if _, ok := a.visits[domainPath]; ok {
		return false
	}
	a.visits[domainPath] = models.VisitStatusObserved
	a.visitOrder = append(a.visitOrder, domainPath)
	return true
}

// Observe records a dequeued URL: its hostname's visit count goes up by one
// and its domain_path enters the visited set.
func (a *Aggregator) Observe(u parse.NormalizedURL) {
	a.subdomains[u.Hostname()]++
	a.MarkEncountered(u.DomainPath())
}

// MarkFetched promotes domainPath to fetched, adding it to the visited set if needed
func (a *Aggregator) MarkFetched(domainPath string) {
	a.MarkEncountered(domainPath)
	a.visits[domainPath] = a.visits[domainPath].Promote(models.VisitStatusFetched)
}

// Status returns the visit status of domainPath
func (a *Aggregator) Status(domainPath string) models.VisitStatus {
	return a.visits[domainPath]
}

// Observed reports whether domainPath has been encountered at all
func (a *Aggregator) Observed(domainPath string) bool {
	return a.visits[domainPath].IsValid()
}

// Fetched reports whether content for domainPath was retrieved successfully
func (a *Aggregator) Fetched(domainPath string) bool {
	return a.visits[domainPath] == models.VisitStatusFetched
}

// RecordTrap appends domainPath to the trap log
func (a *Aggregator) RecordTrap(domainPath string) {
	a.traps = append(a.traps, domainPath)
}

// AddOutlinks adds n anchors to the out-link count of baseURL
func (a *Aggregator) AddOutlinks(baseURL string, n int) {
	if n <= 0 {
		return
	}
	if _, ok := a.outlinks[baseURL]; !ok {
		a.outlinkOrder = append(a.outlinkOrder, baseURL)
	}
	a.outlinks[baseURL] += n
}

// Outlinks returns the out-link count recorded for baseURL
func (a *Aggregator) Outlinks(baseURL string) int {
	return a.outlinks[baseURL]
}

// RecordPageLength updates the running longest page. Returns true when
// wordCount set a new maximum.
func (a *Aggregator) RecordPageLength(baseURL string, wordCount int) bool {
	if wordCount <= a.longestWords {
		return false
	}
	a.longestWords = wordCount
	a.longestURL = baseURL
	return true
}

// AddWords adds every token to the word histogram
func (a *Aggregator) AddWords(tokens []string) {
	for _, w := range tokens {
		a.words[w]++
	}
}

// Snapshot copies the collected statistics into a Summary
func (a *Aggregator) Snapshot() Summary {
	s := Summary{
		UniquePages: len(a.visitOrder),
		Visited:     append([]string(nil), a.visitOrder...),
		LongestPage: Count{Key: a.longestURL, Count: a.longestWords},
		Subdomains:  sortedCounts(a.subdomains),
		Words:       sortedCounts(a.words),
		Traps:       append([]string(nil), a.traps...),
	}
	for _, dp := range a.visitOrder {
		if a.visits[dp] == models.VisitStatusFetched {
			s.FetchedPages++
		}
	}
	// First page to reach the maximum wins ties
	for _, u := range a.outlinkOrder {
		if c := a.outlinks[u]; c > s.MostOutlinks.Count {
			s.MostOutlinks = Count{Key: u, Count: c}
		}
	}
	return s
}

func sortedCounts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for k, c := range m {
		out = append(out, Count{Key: k, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}
