package work

import (
	"container/heap"
	"errors"
	"sync"
)

var ErrQueueClosed = errors.New("work queue closed")

// Handler processes one queued item. Errors are the handler's business;
// build jobs are not retried.
type Handler[T any] func(item T)

type item[T any] struct {
	value    T
	priority int
	seq      uint64
}

type itemHeap[T any] []*item[T]

func (h itemHeap[T]) Len() int { return len(h) }

// higher priority first; equal priorities keep submission order
func (h itemHeap[T]) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h itemHeap[T]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *itemHeap[T]) Push(x any) { *h = append(*h, x.(*item[T])) }

func (h *itemHeap[T]) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

// Queue is a priority work queue feeding a fixed worker pool.
type Queue[T any] struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   itemHeap[T]
	seq     uint64
	closed  bool
	handler Handler[T]
	wg      sync.WaitGroup
}

// NewQueue starts workers goroutines draining the queue into handler.
func NewQueue[T any](workers int, handler Handler[T]) *Queue[T] {
	if workers <= 0 {
		workers = 1
	}

	q := &Queue[T]{handler: handler}
	q.cond = sync.NewCond(&q.mu)
	heap.Init(&q.items)

	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

// Submit enqueues an item; higher priority runs first.
func (q *Queue[T]) Submit(value T, priority int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	q.seq++
	heap.Push(&q.items, &item[T]{value: value, priority: priority, seq: q.seq})
	q.cond.Signal()
	return nil
}

// Close stops accepting work and waits for the workers to drain.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()

	q.wg.Wait()
}

// Len reports the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue[T]) worker() {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		for len(q.items) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.items) == 0 && q.closed {
			q.mu.Unlock()
			return
		}
		it := heap.Pop(&q.items).(*item[T])
		q.mu.Unlock()

		q.handler(it.value)
	}
}
