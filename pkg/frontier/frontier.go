package frontier

import (
	"sync"

	"github.com/sirupsen/logrus"

	"scope-crawler/pkg/models"
	"scope-crawler/pkg/parse"
	"scope-crawler/pkg/queue"
	"scope-crawler/pkg/storage"
	"scope-crawler/pkg/utils"
)

// Frontier is a breadth-first URL queue that admits each normalized URL once.
// Links added while a URL is being processed land one level deeper than it.
type Frontier struct {
	queue *queue.DepthQueue
	store storage.SeenStore
	log   *logrus.Entry

	mu           sync.Mutex
	currentDepth int // Depth of the URL most recently returned by Next
	fetched      int
}

// NewFrontier creates an empty frontier backed by store for deduplication
func NewFrontier(store storage.SeenStore, log *logrus.Entry) *Frontier {
	log = log.WithField("component", "frontier")
	return &Frontier{
		queue:        queue.NewDepthQueue(log),
		store:        store,
		log:          log,
		currentDepth: -1,
	}
}

// Seed adds start URLs at depth 0 and returns how many were new
func (f *Frontier) Seed(urls ...string) int {
	added := 0
	for _, u := range urls {
		if f.add(u, 0) {
			added++
		}
	}
	return added
}

// Add queues rawURL one level below the URL currently being processed.
// Unparseable and already-seen URLs are dropped.
func (f *Frontier) Add(rawURL string) {
	f.mu.Lock()
	depth := f.currentDepth + 1
	f.mu.Unlock()
	f.add(rawURL, depth)
}

func (f *Frontier) add(rawURL string, depth int) bool {
	normalized, _, err := parse.ParseAndNormalize(rawURL)
	if err != nil {
		f.log.WithField("error_cat", utils.CategorizeError(err)).Warnf("Not queueing URL: %v", err)
		return false
	}
	added, err := f.store.MarkSeen(normalized)
	if err != nil {
		f.log.WithFields(logrus.Fields{"url": rawURL, "error_cat": utils.CategorizeError(err)}).Errorf("Dedup check failed: %v", err)
		return false
	}
	if !added {
		return false
	}
	f.queue.Add(&models.WorkItem{URL: rawURL, Depth: depth})
	return true
}

// HasNext reports whether any URL is waiting
func (f *Frontier) HasNext() bool {
	return f.queue.Len() > 0
}

// Next dequeues the shallowest, oldest URL and marks it fetched in the store.
// Returns "" when the frontier is empty.
func (f *Frontier) Next() string {
	item, ok := f.queue.Pop()
	if !ok {
		return ""
	}

	f.mu.Lock()
	f.currentDepth = item.Depth
	f.fetched++
	f.mu.Unlock()

	if normalized, _, err := parse.ParseAndNormalize(item.URL); err == nil {
		if err := f.store.MarkFetched(normalized); err != nil {
			f.log.WithField("url", item.URL).Errorf("Failed to mark URL fetched: %v", err)
		}
	}
	return item.URL
}

// Fetched returns how many URLs Next has handed out
func (f *Frontier) Fetched() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetched
}

// Len returns the number of queued URLs
func (f *Frontier) Len() int {
	return f.queue.Len()
}

// Depth returns the depth of the URL most recently returned by Next, or -1 before the first call
func (f *Frontier) Depth() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.currentDepth
}

// Close stops the frontier from accepting URLs
func (f *Frontier) Close() {
	f.queue.Close()
}
