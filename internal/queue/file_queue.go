// Package queue provides the FIFO of source files waiting to be processed.
//
// FileQueue is shared by the orchestrator and every worker. Dequeueing can be
// switched off for a moment so that the orchestrator can observe a stable
// "nothing left" state during shutdown.
package queue

import (
	"sync"
	"sync/atomic"
)

// Entry is one file waiting to be processed.
type Entry struct {
	// Path of the source file as it will be opened.
	Path string
	// Dir is the directory includes inside the file are resolved against.
	Dir string
}

// FileQueue is a mutex-guarded FIFO of Entries with a dequeue gate.
type FileQueue struct {
	// mu protects entries and dequeueEnabled
	mu             sync.Mutex
	entries        []Entry
	dequeueEnabled bool

	// known counts every file the run has seen, root included
	known atomic.Int64
	// fired guards the one-shot onMultiple callback
	fired      atomic.Bool
	onMultiple func()
}

// NewFileQueue creates an empty queue with dequeueing enabled. The root file
// counts as the first known file. onMultiple, if not nil, runs exactly once
// when a second file becomes known, on the goroutine that enqueued it.
func NewFileQueue(onMultiple func()) *FileQueue {
	q := &FileQueue{
		dequeueEnabled: true,
		onMultiple:     onMultiple,
	}
	q.known.Store(1)
	return q
}

// Enqueue appends e to the queue.
func (q *FileQueue) Enqueue(e Entry) {
	q.mu.Lock()
	q.entries = append(q.entries, e)
	q.mu.Unlock()

	if q.known.Add(1) >= 2 && q.fired.CompareAndSwap(false, true) && q.onMultiple != nil {
		q.onMultiple()
	}
}

// TryDequeue removes and returns the oldest entry. It reports false when the
// queue is empty or dequeueing is disabled.
func (q *FileQueue) TryDequeue() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.dequeueEnabled || len(q.entries) == 0 {
		return Entry{}, false
	}

	e := q.entries[0]
	q.entries[0] = Entry{}
	q.entries = q.entries[1:]
	return e, true
}

// SetDequeueEnabled opens or closes the dequeue gate. Enqueueing is never
// blocked.
func (q *FileQueue) SetDequeueEnabled(enabled bool) {
	q.mu.Lock()
	q.dequeueEnabled = enabled
	q.mu.Unlock()
}

// DequeueEnabled reports the state of the gate.
func (q *FileQueue) DequeueEnabled() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dequeueEnabled
}

// Empty reports whether no entries are waiting.
func (q *FileQueue) Empty() bool {
	return q.Len() == 0
}

// Len returns the number of waiting entries.
func (q *FileQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Known returns how many files have been seen, including the root file and
// those already dequeued.
func (q *FileQueue) Known() int {
	return int(q.known.Load())
}
