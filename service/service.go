package service

/*
Deadline-ordered queue used by peripherals to request a future
re-invocation of their servicing logic.

Separate package exists mainly in order to avoid cyclic imports
between the bus and the devices that schedule themselves on it.
*/

import (
	"container/heap"
	"time"
)

// Key identifies a device that may be intermittently serviced.
type Key int

// Scsi - the SCSI host adapter. Currently the only self-scheduling
// device.
const Scsi Key = iota

// Request asks for the device identified by Key to be serviced once
// When has passed.
type Request struct {
	Key  Key
	When time.Time
}

type requestHeap []Request

func (h requestHeap) Len() int           { return len(h) }
func (h requestHeap) Less(i, j int) bool { return h[i].When.Before(h[j].When) }
func (h requestHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *requestHeap) Push(x any) {
	*h = append(*h, x.(Request))
}

func (h *requestHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Queue is a min-heap of service requests keyed by absolute deadline.
// Requests are never cancelled; a device reset must instead leave its
// state such that the eventual callback is a harmless no-op.
type Queue struct {
	requests requestHeap

	// now is replaceable so tests don't depend on the wall clock.
	now func() time.Time
}

// New returns an empty service queue.
func New() *Queue {
	return &Queue{now: time.Now}
}

// Schedule enqueues a service request for key, due after delay.
func (q *Queue) Schedule(key Key, delay time.Duration) {
	heap.Push(&q.requests, Request{Key: key, When: q.now().Add(delay)})
}

// Take pops the earliest request if its deadline has already passed.
// Requests that are not yet due stay queued, so the consumer drains
// at most one due request per call.
func (q *Queue) Take() (Request, bool) {
	if len(q.requests) == 0 || !q.now().After(q.requests[0].When) {
		return Request{}, false
	}
	return heap.Pop(&q.requests).(Request), true
}

// Len returns the number of queued requests, due or not.
func (q *Queue) Len() int {
	return len(q.requests)
}
