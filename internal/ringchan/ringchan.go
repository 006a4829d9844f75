// Package ringchan provides a bounded, overwrite-oldest channel used to hand
// platform events to slower consumers without ever blocking the producer.
package ringchan

import "sync/atomic"

// RingChannel is a buffered channel whose Send drops the oldest queued element
// instead of blocking when the buffer is full.
//
//	rc := ringchan.New[gatt.Event](64)
//	rc.Send(ev)             // never blocks
//	for ev := range rc.C() { ... }
//
// Only one goroutine may call Send at a time; any number may receive.
type RingChannel[T any] struct {
	ch    chan T
	stats Stats
}

// Stats counts traffic through a RingChannel. Read it with Stats().
type Stats struct {
	Sent     int64
	Received int64
	Dropped  int64
}

// New creates a RingChannel holding at most capacity elements.
func New[T any](capacity int) *RingChannel[T] {
	if capacity <= 0 {
		panic("ringchan: capacity must be > 0")
	}
	return &RingChannel[T]{ch: make(chan T, capacity)}
}

// C returns the receive side. Reads through C are not counted in Stats.Received.
func (rc *RingChannel[T]) C() <-chan T {
	return rc.ch
}

// Send enqueues v, discarding the oldest element when full.
// Returns true if an element was discarded.
func (rc *RingChannel[T]) Send(v T) (dropped bool) {
	for {
		select {
		case rc.ch <- v:
			atomic.AddInt64(&rc.stats.Sent, 1)
			return dropped
		default:
		}
		select {
		case <-rc.ch:
			atomic.AddInt64(&rc.stats.Dropped, 1)
			dropped = true
		default:
			// a receiver drained the buffer in between; retry the send
		}
	}
}

// Receive blocks until an element is available. ok is false once the channel
// is closed and drained.
func (rc *RingChannel[T]) Receive() (v T, ok bool) {
	v, ok = <-rc.ch
	if ok {
		atomic.AddInt64(&rc.stats.Received, 1)
	}
	return v, ok
}

// TryReceive returns the next element without blocking.
func (rc *RingChannel[T]) TryReceive() (v T, ok bool) {
	select {
	case v, ok = <-rc.ch:
		if ok {
			atomic.AddInt64(&rc.stats.Received, 1)
		}
		return v, ok
	default:
		var zero T
		return zero, false
	}
}

// Len returns the number of queued elements.
func (rc *RingChannel[T]) Len() int {
	return len(rc.ch)
}

// Cap returns the capacity.
func (rc *RingChannel[T]) Cap() int {
	return cap(rc.ch)
}

// Close closes the channel. Send must not be called afterwards.
func (rc *RingChannel[T]) Close() {
	close(rc.ch)
}

// Stats returns an atomic snapshot of the counters.
func (rc *RingChannel[T]) Stats() Stats {
	return Stats{
		Sent:     atomic.LoadInt64(&rc.stats.Sent),
		Received: atomic.LoadInt64(&rc.stats.Received),
		Dropped:  atomic.LoadInt64(&rc.stats.Dropped),
	}
}
