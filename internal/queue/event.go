// Package queue defines blog domain events and moves them over RabbitMQ.
package queue

import "time"

// Event types published by the handlers.
const (
	UserRegistered = "user.registered"
	PostCreated    = "post.created"
	PostUpdated    = "post.updated"
	PostDeleted    = "post.deleted"
)

// Event is one domain change.  Consumers get enough context to log, notify
// or feed analytics without querying the primary database.
type Event struct {
	Type       string    `json:"type"`
	UserID     uint64    `json:"user_id"`
	PostID     uint64    `json:"post_id,omitempty"`
	Title      string    `json:"title,omitempty"`
	Published  bool      `json:"published,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
