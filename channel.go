package main

import (
	"time"
)

// Channel is the public view of a named topic.
type Channel struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	Slug         string                 `json:"slug"`
	Description  *string                `json:"description"`
	IsPrivate    bool                   `json:"isPrivate"`
	Metadata     map[string]interface{} `json:"metadata"`
	MessageCount int                    `json:"messageCount"`
	CreatedAt    time.Time              `json:"createdAt"`
	UpdatedAt    time.Time              `json:"updatedAt"`
}

// channel is a Channel together with its message log. The hub lock guards
// both, so messageCount never disagrees with len(messages).
type channel struct {
	info     Channel
	messages []Message
}

type channels map[string]*channel

// channelSpec is the body of a create request.
type channelSpec struct {
	Name        string                 `json:"name" validate:"required,max=100"`
	Slug        string                 `json:"slug" validate:"required,slug"`
	Description *string                `json:"description" validate:"omitempty,max=500"`
	IsPrivate   bool                   `json:"isPrivate"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// channelPatch carries the fields of an update request; nil means untouched.
type channelPatch struct {
	Name        *string                 `json:"name"`
	Description *string                 `json:"description"`
	IsPrivate   *bool                   `json:"isPrivate"`
	Metadata    *map[string]interface{} `json:"metadata"`
}

func newChannel(spec channelSpec, now time.Time) *channel {
	return &channel{
		info: Channel{
			ID:          newID(),
			Name:        spec.Name,
			Slug:        spec.Slug,
			Description: spec.Description,
			IsPrivate:   spec.IsPrivate,
			Metadata:    spec.Metadata,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		messages: []Message{},
	}
}

func (c *channel) apply(p channelPatch, now time.Time) {
	if p.Name != nil {
		c.info.Name = *p.Name
	}
	if p.Description != nil {
		c.info.Description = p.Description
	}
	if p.IsPrivate != nil {
		c.info.IsPrivate = *p.IsPrivate
	}
	if p.Metadata != nil {
		c.info.Metadata = *p.Metadata
	}
	c.info.UpdatedAt = now
}

func (c *channel) append(m Message) {
	c.messages = append(c.messages, m)
	c.info.MessageCount = len(c.messages)
}
