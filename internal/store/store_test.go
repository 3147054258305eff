package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestTail(t *testing.T) {
	entries := make([]MessageEntry, 0, 12)
	for i := 0; i < 12; i++ {
		entries = append(entries, MessageEntry{ID: fmt.Sprintf("m%d", i)})
	}

	tests := []struct {
		name    string
		in      []MessageEntry
		limit   int
		wantLen int
		first   string
	}{
		{"empty", nil, 10, 0, ""},
		{"zero limit", entries, 0, 0, ""},
		{"negative limit", entries, -1, 0, ""},
		{"fewer than limit", entries[:3], 10, 3, "m0"},
		{"exactly limit", entries[:10], 10, 10, "m0"},
		{"more than limit", entries, 10, 10, "m2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tail(tt.in, tt.limit)
			if len(got) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(got), tt.wantLen)
			}
			if tt.wantLen > 0 && got[0].ID != tt.first {
				t.Fatalf("first = %s, want %s", got[0].ID, tt.first)
			}
		})
	}
}

func TestMemoryStoreAppendOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	conv := "123@s.whatsapp.net"

	for i := 0; i < 15; i++ {
		entry := MessageEntry{
			ID:          fmt.Sprintf("m%d", i),
			Content:     fmt.Sprintf("message %d", i),
			Participant: ParticipantUser,
			Direction:   DirectionIncoming,
			Timestamp:   time.Now(),
		}
		if err := s.Append(ctx, conv, entry); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	recent, err := s.Recent(ctx, conv, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 10 {
		t.Fatalf("len = %d, want 10", len(recent))
	}
	for i, e := range recent {
		want := fmt.Sprintf("m%d", i+5)
		if e.ID != want {
			t.Fatalf("entry %d = %s, want %s (insertion order must be kept)", i, e.ID, want)
		}
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	conv := "456@s.whatsapp.net"

	_ = s.Append(ctx, conv, MessageEntry{ID: "a", Content: "hello"})
	last := MessageEntry{ID: "b", Content: "world", Participant: ParticipantBot, Direction: DirectionOutgoing}
	if err := s.Append(ctx, conv, last); err != nil {
		t.Fatalf("append: %v", err)
	}

	recent, err := s.Recent(ctx, conv, 50)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("len = %d, want 2", len(recent))
	}
	if recent[len(recent)-1].ID != "b" {
		t.Fatalf("appended entry is not last, got %s", recent[len(recent)-1].ID)
	}
}

func TestMemoryStoreRecentUnknownConversation(t *testing.T) {
	s := NewMemoryStore()
	recent, err := s.Recent(context.Background(), "nobody@s.whatsapp.net", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 0 {
		t.Fatalf("expected empty history for unknown conversation, got %d", len(recent))
	}
}

func TestMemoryStoreFind(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	conv := "789@s.whatsapp.net"
	_ = s.Append(ctx, conv, MessageEntry{ID: "x1", Content: "first"})
	_ = s.Append(ctx, conv, MessageEntry{ID: "x2", Content: "second"})

	found, err := s.Find(ctx, conv, "x2")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found == nil || found.Content != "second" {
		t.Fatalf("find returned %+v, want content %q", found, "second")
	}

	missing, err := s.Find(ctx, conv, "nope")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown id, got %+v", missing)
	}
}

func TestMemoryStoreCredentials(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before seeding, got %v", err)
	}

	blob := []byte("opaque session bytes")
	if err := s.Save(ctx, blob); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(got) != string(blob) {
		t.Fatalf("load = %q, want %q", got, blob)
	}
}
