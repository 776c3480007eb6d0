package main

import (
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestConnectionsSubscribe(t *testing.T) {
	req := require.New(t)
	h := newTestHub(t)
	cs := h.conns

	a, b := newTestConnection(h), newTestConnection(h)
	req.Equal(2, cs.count())

	req.True(cs.subscribe(a, "monkey"))
	req.True(cs.subscribe(a, "monkey"), "subscribing twice is a no-op")
	req.True(cs.subscribe(b, "monkey"))
	req.True(cs.subscribe(b, "banana"))
	req.Equal(2, cs.subscribers("monkey"))
	req.Equal(1, cs.subscribers("banana"))

	cs.unsubscribe(a, "monkey")
	req.False(cs.subscribed(a, "monkey"))
	req.Equal(1, cs.subscribers("monkey"))

	// Unknown slugs are fine to leave.
	cs.unsubscribe(a, "gorilla")

	cs.unregister(b)
	req.Equal(1, cs.count())
	req.Zero(cs.subscribers("monkey"))
	req.Zero(cs.subscribers("banana"))
	req.False(cs.subscribe(b, "monkey"), "unregistered connections cannot subscribe")

	_, open := <-b.send
	req.False(open)
	req.Equal(websocket.CloseNormalClosure, b.closeCode)
}

func TestConnectionsUnregisterTwice(t *testing.T) {
	h := newTestHub(t)
	c := newTestConnection(h)
	h.conns.unregister(c)
	// send is closed exactly once.
	require.NotPanics(t, func() { h.conns.unregister(c) })
	require.False(t, h.conns.send(c, []byte("bananas")))
}

func TestBroadcastOnlyReachesSubscribers(t *testing.T) {
	req := require.New(t)
	h := newTestHub(t)
	cs := h.conns
	a, b, c := newTestConnection(h), newTestConnection(h), newTestConnection(h)
	cs.subscribe(a, "monkey")
	cs.subscribe(b, "monkey")
	cs.subscribe(c, "banana")

	req.Equal(2, cs.broadcast("monkey", []byte("ook")))
	req.Equal("ook", string(<-a.send))
	req.Equal("ook", string(<-b.send))
	req.Empty(c.send)

	req.Zero(cs.broadcast("gorilla", []byte("ook")))
}

func TestBroadcastDropsSlowSubscriber(t *testing.T) {
	req := require.New(t)
	h := newTestHub(t, func(cfg *Config) { cfg.SendBuffer = 1 })
	cs := h.conns
	slow, fast := newTestConnection(h), newTestConnection(h)
	cs.subscribe(slow, "monkey")
	cs.subscribe(fast, "monkey")

	req.Equal(2, cs.broadcast("monkey", []byte("one")))
	req.Equal("one", string(<-fast.send))

	// slow never drained its queue.
	req.Equal(1, cs.broadcast("monkey", []byte("two")))
	req.Equal("two", string(<-fast.send))
	req.Equal(1, cs.count())
	req.Equal(1, cs.subscribers("monkey"))
	req.Equal(int64(1), h.m.meter("drops"))

	// What was queued is still delivered before the close.
	req.Equal("one", string(<-slow.send))
	_, open := <-slow.send
	req.False(open)
	req.Equal(websocket.CloseTryAgainLater, slow.closeCode)
}

func TestSendToFullQueue(t *testing.T) {
	h := newTestHub(t, func(cfg *Config) { cfg.SendBuffer = 1 })
	c := newTestConnection(h)
	require.True(t, h.conns.send(c, []byte("one")))
	require.False(t, h.conns.send(c, []byte("two")))
	// A full reply queue does not unregister.
	require.Equal(t, 1, h.conns.count())
}

func TestDropChannel(t *testing.T) {
	req := require.New(t)
	h := newTestHub(t)
	cs := h.conns
	a, b := newTestConnection(h), newTestConnection(h)
	cs.subscribe(a, "monkey")
	cs.subscribe(a, "banana")
	cs.subscribe(b, "banana")

	req.Equal(1, cs.dropChannel("monkey", []byte("gone")))
	req.Equal("gone", string(<-a.send))
	req.False(cs.subscribed(a, "monkey"))
	req.True(cs.subscribed(a, "banana"))
	req.Empty(b.send)

	req.Zero(cs.dropChannel("monkey", []byte("gone")))
}

func TestDropChannelTearsDownFullQueue(t *testing.T) {
	req := require.New(t)
	h := newTestHub(t, func(cfg *Config) { cfg.SendBuffer = 1 })
	cs := h.conns
	full, ok := newTestConnection(h), newTestConnection(h)
	cs.subscribe(full, "monkey")
	cs.subscribe(full, "banana")
	cs.subscribe(ok, "monkey")
	req.True(cs.send(full, []byte("backlog")))

	req.Equal(2, cs.dropChannel("monkey", []byte("gone")))
	req.Equal("gone", string(<-ok.send))

	// No room for the notice: unregistered everywhere, backlog then close.
	req.Equal(1, cs.count())
	req.Zero(cs.subscribers("banana"))
	req.Equal(int64(1), h.m.meter("drops"))
	req.Equal("backlog", string(<-full.send))
	_, open := <-full.send
	req.False(open)
	req.Equal(websocket.CloseTryAgainLater, full.closeCode)
}

func TestCloseAll(t *testing.T) {
	h := newTestHub(t)
	a, b := newTestConnection(h), newTestConnection(h)
	h.conns.subscribe(a, "monkey")

	h.conns.closeAll()
	require.Zero(t, h.conns.count())
	require.Zero(t, h.conns.subscribers("monkey"))
	for _, c := range []*connection{a, b} {
		_, open := <-c.send
		require.False(t, open)
		require.Equal(t, websocket.CloseGoingAway, c.closeCode)
	}
}
