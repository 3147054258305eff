package store

import (
	"context"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	conversationsCollection = "conversations"
	credentialsCollection   = "whatsapp_auth"
	credentialsDoc          = "session"
)

// FirestoreStore implements ConversationLog and CredentialStore on top
// of a Cloud Firestore database. Each conversation is a single document
// holding an entries array; the session blob is a single document that
// is read and written whole.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a Firestore-backed store for the given GCP
// project. Credentials come from the ambient environment
// (GOOGLE_APPLICATION_CREDENTIALS or metadata server).
func NewFirestoreStore(ctx context.Context, projectID string) (*FirestoreStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for the firestore store")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

func (s *FirestoreStore) Close() error { return s.client.Close() }

func (s *FirestoreStore) conversationDoc(conversationID string) *firestore.DocumentRef {
	return s.client.Collection(conversationsCollection).Doc(conversationID)
}

type conversationDoc struct {
	Entries []MessageEntry `firestore:"entries"`
}

// Append adds one entry to the conversation's entries array. The write
// is a union-append on the document, creating it on first use.
func (s *FirestoreStore) Append(ctx context.Context, conversationID string, entry MessageEntry) error {
	_, err := s.conversationDoc(conversationID).Set(ctx, map[string]any{
		"entries":    firestore.ArrayUnion(entry),
		"updated_at": firestore.ServerTimestamp,
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("firestore append %s: %w", conversationID, err)
	}
	return nil
}

func (s *FirestoreStore) entries(ctx context.Context, conversationID string) ([]MessageEntry, error) {
	snap, err := s.conversationDoc(conversationID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("firestore read %s: %w", conversationID, err)
	}
	var doc conversationDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore decode %s: %w", conversationID, err)
	}
	return doc.Entries, nil
}

// Recent reads the whole stored list and returns its tail. No
// pagination; history depth is capped by the caller's limit.
func (s *FirestoreStore) Recent(ctx context.Context, conversationID string, limit int) ([]MessageEntry, error) {
	entries, err := s.entries(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return Tail(entries, limit), nil
}

// Find scans the conversation's stored entries for a matching id.
func (s *FirestoreStore) Find(ctx context.Context, conversationID, messageID string) (*MessageEntry, error) {
	entries, err := s.entries(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].ID == messageID {
			return &entries[i], nil
		}
	}
	return nil, nil
}

// Conversations lists the ids of all conversations seen so far, sorted.
func (s *FirestoreStore) Conversations(ctx context.Context) ([]string, error) {
	iter := s.client.Collection(conversationsCollection).Documents(ctx)
	defer iter.Stop()

	var out []string
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore list conversations: %w", err)
		}
		out = append(out, snap.Ref.ID)
	}
	sort.Strings(out)
	return out, nil
}

func (s *FirestoreStore) credentialDoc() *firestore.DocumentRef {
	return s.client.Collection(credentialsCollection).Doc(credentialsDoc)
}

type credentialBlob struct {
	Blob []byte `firestore:"blob"`
}

// Load fetches the session blob. ErrNotFound means pairing has never
// seeded the store; there is no bootstrap path here.
func (s *FirestoreStore) Load(ctx context.Context) ([]byte, error) {
	snap, err := s.credentialDoc().Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("firestore load credentials: %w", err)
	}
	var doc credentialBlob
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore decode credentials: %w", err)
	}
	if len(doc.Blob) == 0 {
		return nil, ErrNotFound
	}
	return doc.Blob, nil
}

// Save replaces the stored session blob.
func (s *FirestoreStore) Save(ctx context.Context, blob []byte) error {
	_, err := s.credentialDoc().Set(ctx, map[string]any{
		"blob":       blob,
		"updated_at": firestore.ServerTimestamp,
	})
	if err != nil {
		return fmt.Errorf("firestore save credentials: %w", err)
	}
	return nil
}
