package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileSessionRoundTrip(t *testing.T) {
	dir := t.TempDir()
	blob := []byte("pretend sqlite bytes")

	s, err := NewFileSession(dir, blob)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer s.Close()

	got, err := s.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if string(got) != string(blob) {
		t.Fatalf("snapshot = %q, want %q", got, blob)
	}

	if !strings.Contains(s.DSN(), filepath.Join(dir, "session.db")) {
		t.Fatalf("dsn %q does not point at the session file", s.DSN())
	}
	if !strings.Contains(s.DSN(), "journal_mode(DELETE)") {
		t.Fatalf("dsn %q must disable WAL so the main file is the snapshot source", s.DSN())
	}
}

func TestFileSessionEmptyBlobKeepsExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.db")
	if err := os.WriteFile(path, []byte("existing"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	s, err := NewFileSession(dir, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	got, err := s.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if string(got) != "existing" {
		t.Fatalf("empty blob overwrote the existing session: %q", got)
	}
}

func TestTempSessionCloseRemovesDir(t *testing.T) {
	s, err := NewTempSession([]byte("blob"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	got, err := s.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if string(got) != "blob" {
		t.Fatalf("snapshot = %q", got)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := os.Stat(s.dir); !os.IsNotExist(err) {
		t.Fatalf("temp dir still exists after close: %v", err)
	}
}
