package main

import (
	"encoding/json"
)

// Frame types. Clients send subscribe, unsubscribe, ping and ack; the hub
// sends the rest.
const (
	frameSubscribe    = "subscribe"
	frameUnsubscribe  = "unsubscribe"
	framePing         = "ping"
	frameAck          = "ack"
	frameConnected    = "connected"
	frameSubscribed   = "subscribed"
	frameUnsubscribed = "unsubscribed"
	framePong         = "pong"
	frameMessage      = "message"
	frameError        = "error"
)

// frame covers every control frame in both directions.
type frame struct {
	Type     string `json:"type"`
	Channel  string `json:"channel,omitempty"`
	ClientID string `json:"clientId,omitempty"`
	Error    string `json:"error,omitempty"`
}

type messageFrame struct {
	Type      string          `json:"type"`
	Channel   string          `json:"channel"`
	EventType string          `json:"eventType"`
	MessageID string          `json:"messageId"`
	ClientID  string          `json:"clientId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

func encodeFrame(f frame) []byte {
	b, err := json.Marshal(f)
	if err != nil {
		// frame only holds strings.
		panic(err)
	}
	return b
}

func encodeMessageFrame(m Message) []byte {
	b, err := json.Marshal(messageFrame{
		Type:      frameMessage,
		Channel:   m.ChannelSlug,
		EventType: m.EventType,
		MessageID: m.ID,
		ClientID:  m.ClientID,
		Data:      m.Content,
		Timestamp: m.CreatedAt.UnixMilli(),
	})
	if err != nil {
		// Content was decoded from valid JSON on the way in.
		panic(err)
	}
	return b
}

func errorFrame(msg string) []byte {
	return encodeFrame(frame{Type: frameError, Error: msg})
}

func decodeFrame(raw []byte) (frame, error) {
	var f frame
	err := json.Unmarshal(raw, &f)
	return f, err
}
