package main

import (
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type connection struct {
	ws       wsConn
	send     chan []byte
	h        *hub
	clientID string

	// Set by the registry before send is closed; read by the writer after.
	closeCode int
}

func newConnection(ws wsConn, h *hub) *connection {
	return &connection{
		ws:   ws,
		send: make(chan []byte, h.sendBuffer),
		h:    h,
	}
}

// run serves the connection until the peer goes away or the hub drops it.
func (c *connection) run(clientID string) {
	c.h.conns.register(c, clientID)
	c.h.m.incr("websockets", 1)
	log := c.h.log.With(zap.String("clientId", clientID))
	log.Info("websocket connected")
	defer func() {
		c.h.conns.unregister(c)
		c.h.m.decr("websockets", 1)
		log.Info("websocket disconnected")
	}()
	c.h.conns.send(c, encodeFrame(frame{Type: frameConnected, ClientID: clientID}))
	go c.writer()
	c.reader(log)
}

func (c *connection) reader(log *zap.Logger) {
	defer c.ws.Close()
	c.ws.SetReadLimit(c.h.readLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("websocket read failed", zap.Error(err))
			}
			return
		}
		c.h.m.incr("conn.recv", 1)
		c.handle(raw, log)
	}
}

// handle answers one client frame. Bad frames get an error frame; the
// connection stays open.
func (c *connection) handle(raw []byte, log *zap.Logger) {
	f, err := decodeFrame(raw)
	if err != nil {
		c.reply(errorFrame("Invalid message format"))
		return
	}
	switch f.Type {
	case frameSubscribe:
		if f.Channel == "" {
			c.reply(errorFrame("channel is required"))
			return
		}
		if err := c.h.subscribe(c, f.Channel); err != nil {
			c.reply(errorFrame(err.Error()))
			return
		}
		log.Debug("subscribed", zap.String("channel", f.Channel))
		c.reply(encodeFrame(frame{Type: frameSubscribed, Channel: f.Channel}))
	case frameUnsubscribe:
		if f.Channel == "" {
			c.reply(errorFrame("channel is required"))
			return
		}
		c.h.conns.unsubscribe(c, f.Channel)
		log.Debug("unsubscribed", zap.String("channel", f.Channel))
		c.reply(encodeFrame(frame{Type: frameUnsubscribed, Channel: f.Channel}))
	case framePing:
		c.reply(encodeFrame(frame{Type: framePong}))
	case frameAck:
	default:
		c.reply(errorFrame("Unknown message type"))
	}
}

func (c *connection) reply(payload []byte) {
	if !c.h.conns.send(c, payload) {
		c.h.log.Debug("reply dropped", zap.String("clientId", c.clientID))
	}
}

// writer drains send onto the socket and pings on every heartbeat. A failed
// write closes the socket, which ends the reader and unregisters us.
func (c *connection) writer() {
	beat := c.h.beat.subscribe()
	defer func() {
		c.h.beat.unsubscribe(beat)
		c.ws.Close()
	}()
	tick := beat.tick
	for {
		select {
		case message, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(c.closeCode, ""))
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				c.h.log.Warn("websocket write failed", zap.String("clientId", c.clientID), zap.Error(err))
				return
			}
			c.h.m.incr("conn.send", 1)
		case _, ok := <-tick:
			if !ok {
				tick = nil
				continue
			}
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
