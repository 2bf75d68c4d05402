package router

import "sync"

// eventQueue runs tasks one at a time on a single worker, in push order.
type eventQueue struct {
	mu     sync.Mutex
	tasks  chan func()
	closed bool
	done   chan struct{}
}

func newEventQueue(size int) *eventQueue {
	q := &eventQueue{
		tasks: make(chan func(), size),
		done:  make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *eventQueue) run() {
	defer close(q.done)
	for task := range q.tasks {
		task()
	}
}

// push enqueues task, blocking while the queue is full. It reports false
// once the queue has been closed.
func (q *eventQueue) push(task func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.tasks <- task
	return true
}

// close enqueues last behind every pending task and stops the worker after
// it. Closing twice is a no-op.
func (q *eventQueue) close(last func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.tasks <- last
	close(q.tasks)
}

// wait blocks until the worker has drained the queue after close.
func (q *eventQueue) wait() {
	<-q.done
}
