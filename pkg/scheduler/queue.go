package scheduler

import (
	"container/heap"
	"time"

	"github.com/fluxrun/fluxrun/pkg/types"
)

type readyItem struct {
	task            *types.Task
	submitPriority  int
	effectivePrio   int
	enqueuedAt      time.Time
	lastBumpAt      time.Time
	index           int
}

// readyHeap orders items by effective priority (descending), breaking ties
// by earliest enqueue time (FIFO within a priority band).
type readyHeap []*readyItem

func (h readyHeap) Len() int { return len(h) }

func (h readyHeap) Less(i, j int) bool {
	if h[i].effectivePrio != h[j].effectivePrio {
		return h[i].effectivePrio > h[j].effectivePrio
	}
	return h[i].enqueuedAt.Before(h[j].enqueuedAt)
}

func (h readyHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *readyHeap) Push(x any) {
	item := x.(*readyItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *readyHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// readyQueue wraps readyHeap with id-based lookup for cancellation and
// starvation bumping.
type readyQueue struct {
	h      readyHeap
	byTask map[string]*readyItem
}

func newReadyQueue() *readyQueue {
	return &readyQueue{byTask: make(map[string]*readyItem)}
}

func (q *readyQueue) push(item *readyItem) {
	heap.Push(&q.h, item)
	q.byTask[item.task.ID] = item
}

func (q *readyQueue) pop() *readyItem {
	if q.h.Len() == 0 {
		return nil
	}
	item := heap.Pop(&q.h).(*readyItem)
	delete(q.byTask, item.task.ID)
	return item
}

func (q *readyQueue) remove(taskID string) bool {
	item, ok := q.byTask[taskID]
	if !ok {
		return false
	}
	heap.Remove(&q.h, item.index)
	delete(q.byTask, taskID)
	return true
}

func (q *readyQueue) len() int { return q.h.Len() }

func (q *readyQueue) all() []*readyItem {
	return append([]*readyItem(nil), q.h...)
}

func (q *readyQueue) bump(item *readyItem, amount, cap int) {
	next := item.effectivePrio + amount
	if max := item.submitPriority + cap; next > max {
		next = max
	}
	if next == item.effectivePrio {
		return
	}
	item.effectivePrio = next
	heap.Fix(&q.h, item.index)
}
