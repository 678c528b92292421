// Package netdelay defers message delivery to emulate network latency.
//
// Delivery is scheduled, not slept: a delayer never blocks its caller, so
// the simulation loop and other connections keep progressing regardless of
// the configured delay.
package netdelay

import (
	"sync"
	"time"
)

const queueDepth = 256

type entry struct {
	due time.Time
	fn  func()
}

// Delayer runs functions after a fixed delay, preserving submission order.
// A nil or zero-delay Delayer runs functions inline.
type Delayer struct {
	d  time.Duration
	ch chan entry

	once   sync.Once
	closed chan struct{}
}

// New builds a delayer for the given one-way delay. Zero or negative means
// pass-through.
func New(d time.Duration) *Delayer {
	if d <= 0 {
		return nil
	}
	dl := &Delayer{
		d:      d,
		ch:     make(chan entry, queueDepth),
		closed: make(chan struct{}),
	}
	go dl.run()
	return dl
}

// Do schedules fn to run after the configured delay. Returns false if the
// delayer is saturated or closed and the function was dropped.
func (dl *Delayer) Do(fn func()) bool {
	if dl == nil {
		fn()
		return true
	}
	select {
	case <-dl.closed:
		return false
	default:
	}
	select {
	case dl.ch <- entry{due: time.Now().Add(dl.d), fn: fn}:
		return true
	default:
		return false
	}
}

// Close stops the delivery goroutine. Pending functions are dropped.
func (dl *Delayer) Close() {
	if dl == nil {
		return
	}
	dl.once.Do(func() { close(dl.closed) })
}

func (dl *Delayer) run() {
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-dl.closed:
			return
		case e := <-dl.ch:
			wait := time.Until(e.due)
			if wait > 0 {
				timer.Reset(wait)
				select {
				case <-dl.closed:
					return
				case <-timer.C:
				}
			}
			e.fn()
		}
	}
}
