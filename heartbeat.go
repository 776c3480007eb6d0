package main

import (
	"sync"
	"time"
)

// heartbeat fans one ticker out to every connection writer, so the hub runs
// a single timer for keepalive pings however many sockets are open.
type heartbeat struct {
	mu      sync.Mutex // Protects beats and stopped
	beats   beats
	stopped bool
	dropped int

	ticker *time.Ticker
	stopCh chan struct{}
}

type beats map[*beat]struct{}

type beat struct {
	tick chan time.Time
}

// newHeartbeat creates and starts a heartbeat ticking every interval.
func newHeartbeat(interval time.Duration) *heartbeat {
	hb := &heartbeat{
		beats:  make(beats),
		ticker: time.NewTicker(interval),
		stopCh: make(chan struct{}),
	}
	go hb.run()
	return hb
}

// subscribe returns a beat that receives ticks. Ticks the subscriber is not
// ready for are discarded. After stop the beat comes back already closed.
func (hb *heartbeat) subscribe() *beat {
	hb.mu.Lock()
	defer hb.mu.Unlock()

	b := &beat{tick: make(chan time.Time, 1)}
	if hb.stopped {
		close(b.tick)
		return b
	}
	hb.beats[b] = struct{}{}
	return b
}

func (hb *heartbeat) unsubscribe(b *beat) {
	hb.mu.Lock()
	defer hb.mu.Unlock()

	if _, ok := hb.beats[b]; ok {
		close(b.tick)
		delete(hb.beats, b)
	}
}

// stop halts the ticker and closes every subscribed beat.
func (hb *heartbeat) stop() {
	hb.mu.Lock()
	defer hb.mu.Unlock()

	if hb.stopped {
		return
	}
	hb.stopped = true
	hb.ticker.Stop()
	close(hb.stopCh)
	for b := range hb.beats {
		close(b.tick)
		delete(hb.beats, b)
	}
}

func (hb *heartbeat) run() {
	for {
		select {
		case now := <-hb.ticker.C:
			hb.mu.Lock()
			for b := range hb.beats {
				select {
				case b.tick <- now:
				default:
					hb.dropped++
				}
			}
			hb.mu.Unlock()
		case <-hb.stopCh:
			return
		}
	}
}
