// Package session turns the opaque credential blob from the remote
// store into a sqlite database the whatsmeow device store can open,
// and snapshots it back into a blob for persisting.
//
// Two materialization strategies exist: a stable file under the state
// directory (survives restarts locally) and an ephemeral temp file
// (removed on Close, leaving the remote store as the only copy).
package session

import (
	"fmt"
	"os"
	"path/filepath"
)

// Session is one materialized WhatsApp session.
type Session interface {
	// DSN returns the sqlite DSN for the whatsmeow store container.
	DSN() string
	// Snapshot reads the current session database back into a blob.
	Snapshot() ([]byte, error)
	Close() error
}

const sessionFile = "session.db"

// journal_mode(DELETE) keeps the whole session in the main database
// file, so Snapshot only has to read a single file.
func dsnFor(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(DELETE)&_pragma=busy_timeout(5000)"
}

// FileSession materializes the blob at a fixed path inside dir. The
// file is kept on Close.
type FileSession struct {
	path string
}

// NewFileSession writes the blob (when non-empty) to dir/session.db.
// An empty blob leaves whatever is on disk in place, or lets the store
// container create a fresh database for pairing.
func NewFileSession(dir string, blob []byte) (*FileSession, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	path := filepath.Join(dir, sessionFile)
	if len(blob) > 0 {
		if err := os.WriteFile(path, blob, 0o600); err != nil {
			return nil, fmt.Errorf("materialize session: %w", err)
		}
	}
	return &FileSession{path: path}, nil
}

func (s *FileSession) DSN() string { return dsnFor(s.path) }

func (s *FileSession) Snapshot() ([]byte, error) {
	blob, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("snapshot session: %w", err)
	}
	return blob, nil
}

func (s *FileSession) Close() error { return nil }

// TempSession materializes the blob in a private temp directory that is
// removed on Close.
type TempSession struct {
	dir  string
	path string
}

func NewTempSession(blob []byte) (*TempSession, error) {
	dir, err := os.MkdirTemp("", "understudy-session-")
	if err != nil {
		return nil, fmt.Errorf("create temp session dir: %w", err)
	}
	path := filepath.Join(dir, sessionFile)
	if len(blob) > 0 {
		if err := os.WriteFile(path, blob, 0o600); err != nil {
			_ = os.RemoveAll(dir)
			return nil, fmt.Errorf("materialize session: %w", err)
		}
	}
	return &TempSession{dir: dir, path: path}, nil
}

func (s *TempSession) DSN() string { return dsnFor(s.path) }

func (s *TempSession) Snapshot() ([]byte, error) {
	blob, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("snapshot session: %w", err)
	}
	return blob, nil
}

func (s *TempSession) Close() error { return os.RemoveAll(s.dir) }
