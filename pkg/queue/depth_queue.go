package queue

import (
	"container/heap"
	"sync"

	"github.com/sirupsen/logrus"

	"scope-crawler/pkg/models"
)

type entry struct {
	item  *models.WorkItem
	seq   uint64 // Insertion order within a depth
	index int
}

// entries is a min-heap on (depth, seq)
type entries []*entry

func (e entries) Len() int { return len(e) }

func (e entries) Less(i, j int) bool {
	if e[i].item.Depth != e[j].item.Depth {
		return e[i].item.Depth < e[j].item.Depth
	}
	return e[i].seq < e[j].seq
}

func (e entries) Swap(i, j int) {
	e[i], e[j] = e[j], e[i]
	e[i].index = i
	e[j].index = j
}

func (e *entries) Push(x any) {
	en := x.(*entry)
	en.index = len(*e)
	*e = append(*e, en)
}

func (e *entries) Pop() any {
	old := *e
	n := len(old)
	en := old[n-1]
	old[n-1] = nil
	*e = old[:n-1]
	return en
}

// DepthQueue hands out work items shallowest first and, within a depth, in
// the order they were added. Pop never blocks.
type DepthQueue struct {
	mu      sync.Mutex
	heap    entries
	nextSeq uint64
	closed  bool
	log     *logrus.Entry
}

// NewDepthQueue creates an empty queue
func NewDepthQueue(logger *logrus.Entry) *DepthQueue {
	return &DepthQueue{log: logger}
}

// Add enqueues item. Items added after Close are dropped with a warning.
func (q *DepthQueue) Add(item *models.WorkItem) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		q.log.Warnf("Dropping URL added to closed queue: %s", item.URL)
		return
	}
	heap.Push(&q.heap, &entry{item: item, seq: q.nextSeq})
	q.nextSeq++
}

// Pop removes the next item, or returns false when the queue is empty
func (q *DepthQueue) Pop() (*models.WorkItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.heap) == 0 {
		return nil, false
	}
	return heap.Pop(&q.heap).(*entry).item, true
}

// Close stops the queue from accepting items; queued items can still be popped
func (q *DepthQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

func (q *DepthQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap)
}
