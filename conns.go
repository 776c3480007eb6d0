package main

import (
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type subscriptions map[string]struct{}

// connections tracks live websockets and the channels each one follows.
// bySlug mirrors conns so a broadcast only walks the channel's subscribers.
type connections struct {
	mu     sync.RWMutex
	conns  map[*connection]subscriptions
	bySlug map[string]map[*connection]struct{}

	m   *metrics
	log *zap.Logger
}

func newConnections(log *zap.Logger, m *metrics) *connections {
	return &connections{
		conns:  make(map[*connection]subscriptions),
		bySlug: make(map[string]map[*connection]struct{}),
		m:      m,
		log:    log,
	}
}

// register adds conn with no subscriptions.
func (cs *connections) register(conn *connection, clientID string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	conn.clientID = clientID
	cs.conns[conn] = make(subscriptions)
}

// subscribe reports false when conn is no longer registered.
func (cs *connections) subscribe(conn *connection, slug string) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	subs, ok := cs.conns[conn]
	if !ok {
		return false
	}
	subs[slug] = struct{}{}
	if _, ok := cs.bySlug[slug]; !ok {
		cs.bySlug[slug] = make(map[*connection]struct{})
	}
	cs.bySlug[slug][conn] = struct{}{}
	return true
}

func (cs *connections) unsubscribe(conn *connection, slug string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if subs, ok := cs.conns[conn]; ok {
		delete(subs, slug)
	}
	cs.removeLocked(conn, slug)
}

func (cs *connections) removeLocked(conn *connection, slug string) {
	followers, ok := cs.bySlug[slug]
	if !ok {
		return
	}
	delete(followers, conn)
	if len(followers) == 0 {
		delete(cs.bySlug, slug)
	}
}

// unregister forgets conn everywhere and closes its send queue, which makes
// the writer say goodbye with a normal close.
func (cs *connections) unregister(conn *connection) {
	cs.unregisterWith(conn, websocket.CloseNormalClosure)
}

func (cs *connections) unregisterWith(conn *connection, code int) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.unregisterLocked(conn, code)
}

func (cs *connections) unregisterLocked(conn *connection, code int) bool {
	subs, ok := cs.conns[conn]
	if !ok {
		return false
	}
	for slug := range subs {
		cs.removeLocked(conn, slug)
	}
	delete(cs.conns, conn)
	conn.closeCode = code
	close(conn.send)
	return true
}

// broadcast queues payload for every subscriber of slug and returns how many
// accepted it. A subscriber whose queue is full is torn down instead of
// stalling the others.
func (cs *connections) broadcast(slug string, payload []byte) int {
	delivered := 0
	var slow []*connection

	cs.mu.RLock()
	for conn := range cs.bySlug[slug] {
		select {
		case conn.send <- payload:
			delivered++
		default:
			slow = append(slow, conn)
		}
	}
	cs.mu.RUnlock()

	if len(slow) == 0 {
		return delivered
	}
	cs.mu.Lock()
	for _, conn := range slow {
		cs.dropSlowLocked(conn, slug)
	}
	cs.mu.Unlock()
	return delivered
}

func (cs *connections) dropSlowLocked(conn *connection, slug string) {
	if cs.unregisterLocked(conn, websocket.CloseTryAgainLater) {
		cs.m.mark("drops", 1)
		cs.log.Warn("dropping slow subscriber",
			zap.String("clientId", conn.clientID),
			zap.String("channel", slug))
	}
}

// send queues a frame for a single connection. It reports false when the
// connection is gone or its queue is full.
func (cs *connections) send(conn *connection, payload []byte) bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	if _, ok := cs.conns[conn]; !ok {
		return false
	}
	select {
	case conn.send <- payload:
		return true
	default:
		return false
	}
}

// dropChannel unsubscribes every follower of slug, telling each one with
// notice, and returns how many there were. A follower with no room for the
// notice is torn down like a slow subscriber in broadcast.
func (cs *connections) dropChannel(slug string, notice []byte) int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	followers := cs.bySlug[slug]
	delete(cs.bySlug, slug)
	for conn := range followers {
		delete(cs.conns[conn], slug)
		select {
		case conn.send <- notice:
		default:
			cs.dropSlowLocked(conn, slug)
		}
	}
	return len(followers)
}

// closeAll unregisters every connection with a going-away close.
func (cs *connections) closeAll() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for conn := range cs.conns {
		cs.unregisterLocked(conn, websocket.CloseGoingAway)
	}
}
