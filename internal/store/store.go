// Package store defines the persistence boundaries of the responder:
// the per-conversation message log and the opaque WhatsApp session blob.
package store

import (
	"context"
	"errors"
	"time"
)

// Participant values for MessageEntry.
const (
	ParticipantUser = "user"
	ParticipantBot  = "bot"
)

// Direction values for MessageEntry.
const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
)

// MessageEntry is one message in a conversation, inbound or outbound.
// Entries are appended in arrival order and never rewritten.
type MessageEntry struct {
	ID          string    `json:"id" firestore:"id"`
	Content     string    `json:"content" firestore:"content"`
	Participant string    `json:"participant" firestore:"participant"`
	Direction   string    `json:"direction" firestore:"direction"`
	Timestamp   time.Time `json:"timestamp" firestore:"timestamp"`
}

// ErrNotFound is returned by CredentialStore.Load when no session blob
// has been seeded yet.
var ErrNotFound = errors.New("store: not found")

// ConversationLog records every message exchanged with a conversation
// and serves bounded history reads. Append is not idempotent: a retried
// append can duplicate an entry, which callers accept.
type ConversationLog interface {
	Append(ctx context.Context, conversationID string, entry MessageEntry) error
	// Recent returns at most limit entries, in original insertion order.
	Recent(ctx context.Context, conversationID string, limit int) ([]MessageEntry, error)
	// Find returns the entry with the given message id, or nil if the
	// conversation has no such entry.
	Find(ctx context.Context, conversationID, messageID string) (*MessageEntry, error)
}

// CredentialStore persists the opaque WhatsApp session blob. The blob
// is read whole and written whole; its contents are never interpreted
// here.
type CredentialStore interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, blob []byte) error
}

// Tail returns the last limit entries of the slice in their original
// order, and never more than are actually present.
func Tail(entries []MessageEntry, limit int) []MessageEntry {
	if limit <= 0 || len(entries) == 0 {
		return nil
	}
	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries
}
