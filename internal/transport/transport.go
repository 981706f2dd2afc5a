// Package transport defines the messaging surface the pipeline talks to.
// Adapters live in subpackages; Memory is an in-process implementation.
package transport

import (
	"context"
	"time"
)

// Envelope is one inbound message as delivered by a transport.
type Envelope struct {
	ID         string
	Chat       string // reply destination
	Sender     string // identity of the counterpart
	AuthorName string
	Body       string
	IsGroup    bool
	GroupName  string
	FromSelf   bool
	At         time.Time
}

// Message is one entry of a chat's recent history.
type Message struct {
	Author   string
	FromSelf bool
	Body     string
	At       time.Time
}

// Handler receives inbound envelopes. Transports call it on its own goroutine
// per message.
type Handler func(ctx context.Context, env Envelope)

// Transport sends and receives chat messages.
type Transport interface {
	// Run delivers inbound messages to h until ctx is done.
	Run(ctx context.Context, h Handler) error
	SendTyping(ctx context.Context, chat string) error
	SendMessage(ctx context.Context, chat, text string) error
	// FetchRecent returns up to limit messages, oldest first.
	FetchRecent(ctx context.Context, chat string, limit int) ([]Message, error)
	// DirectChat resolves the one-to-one chat with an identity.
	DirectChat(ctx context.Context, identity string) (string, error)
}
