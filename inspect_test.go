package main

// Read-only views of hub state for assertions.

import (
	gometrics "github.com/rcrowley/go-metrics"
)

// subscribers counts the live connections following slug.
func (cs *connections) subscribers(slug string) int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return len(cs.bySlug[slug])
}

func (cs *connections) subscribed(conn *connection, slug string) bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	_, ok := cs.conns[conn][slug]
	return ok
}

func (cs *connections) count() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return len(cs.conns)
}

func (hb *heartbeat) subscribers() int {
	hb.mu.Lock()
	defer hb.mu.Unlock()
	return len(hb.beats)
}

func (m *metrics) counter(name string) int64 {
	return gometrics.GetOrRegisterCounter(name, m.reg).Count()
}

func (m *metrics) meter(name string) int64 {
	return gometrics.GetOrRegisterMeter(name, m.reg).Count()
}
