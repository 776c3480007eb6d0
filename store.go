package main

import (
	"bytes"
	"encoding/json"
	"slices"
	"time"

	"go.uber.org/zap"
)

const defaultEventType = "message"

// Message is one published payload. It is never mutated after append.
type Message struct {
	ID          string          `json:"id"`
	ChannelSlug string          `json:"channelSlug"`
	EventType   string          `json:"eventType"`
	ClientID    string          `json:"clientId"`
	Content     json.RawMessage `json:"content"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type publishRequest struct {
	EventType string          `json:"eventType"`
	ClientID  string          `json:"clientId"`
	Content   json.RawMessage `json:"content"`
}

type publishResult struct {
	ID          string    `json:"id"`
	ChannelSlug string    `json:"channelSlug"`
	EventType   string    `json:"eventType"`
	ClientID    string    `json:"clientId"`
	CreatedAt   time.Time `json:"createdAt"`
	Delivered   int       `json:"delivered"`
}

// append adds a message to an existing channel's log.
func (h *hub) append(slug, eventType, clientID string, content json.RawMessage) (Message, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.channels[slug]
	if !ok {
		return Message{}, errChannelNotFound
	}
	return h.appendLocked(c, eventType, clientID, content)
}

func (h *hub) appendLocked(c *channel, eventType, clientID string, content json.RawMessage) (Message, error) {
	if err := checkMessage(clientID, content); err != nil {
		return Message{}, err
	}
	if eventType == "" {
		eventType = defaultEventType
	}
	m := Message{
		ID:          shortID("msg_", 12),
		ChannelSlug: c.info.Slug,
		EventType:   eventType,
		ClientID:    clientID,
		Content:     slices.Clone(content),
		CreatedAt:   h.now(),
	}
	c.append(m)
	return m, nil
}

// publish appends to slug, provisioning the channel when needed, and fans
// the message out to the channel's subscribers. A rejected request leaves
// no channel behind.
func (h *hub) publish(slug string, req publishRequest) (publishResult, error) {
	if err := checkMessage(req.ClientID, req.Content); err != nil {
		return publishResult{}, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	c, err := h.getOrCreateLocked(slug)
	if err != nil {
		return publishResult{}, err
	}
	m, err := h.appendLocked(c, req.EventType, req.ClientID, req.Content)
	if err != nil {
		return publishResult{}, err
	}
	delivered := h.conns.broadcast(slug, encodeMessageFrame(m))
	h.m.mark("messages.published", 1)
	h.m.mark("messages.delivered", int64(delivered))
	h.log.Debug("message published",
		zap.String("channel", slug),
		zap.String("id", m.ID),
		zap.Int("delivered", delivered))
	return publishResult{
		ID:          m.ID,
		ChannelSlug: m.ChannelSlug,
		EventType:   m.EventType,
		ClientID:    m.ClientID,
		CreatedAt:   m.CreatedAt,
		Delivered:   delivered,
	}, nil
}

// history returns a page of slug's log, newest first.
func (h *hub) history(slug string, p pageRequest) ([]Message, pagination, error) {
	h.mu.RLock()
	c, ok := h.channels[slug]
	if !ok {
		h.mu.RUnlock()
		return nil, pagination{}, errChannelNotFound
	}
	newest := slices.Clone(c.messages)
	h.mu.RUnlock()

	slices.Reverse(newest)
	items, info := paginate(newest, p)
	return items, info, nil
}

func checkMessage(clientID string, content json.RawMessage) error {
	if clientID == "" || isAbsent(content) {
		return newError(InvalidInput, "clientId and content are required")
	}
	return nil
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
