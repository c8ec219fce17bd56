package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// SessionRecord is the on-disk marker of the last active session.
type SessionRecord struct {
	SessionID string `json:"sessionId"`
	Active    bool   `json:"active"`
	Timestamp int64  `json:"timestamp"` // unix millis
}

// SessionFileStore keeps at most one SessionRecord in a single JSON file.
type SessionFileStore struct {
	path string
	log  zerolog.Logger
	now  func() time.Time
}

func NewSessionFileStore(path string, log zerolog.Logger) *SessionFileStore {
	return &SessionFileStore{path: path, log: log, now: time.Now}
}

// Save replaces the stored record with an active one for sessionID.
// The write goes through a temp file and rename so readers never see a
// partial record.
func (s *SessionFileStore) Save(sessionID string) error {
	data, err := json.Marshal(SessionRecord{
		SessionID: sessionID,
		Active:    true,
		Timestamp: s.now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("marshal session record: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write session record: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync session record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close session record: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace session record: %w", err)
	}
	return nil
}

// Load returns the stored session id if the record exists and is active.
// Unreadable or corrupt records count as no session.
func (s *SessionFileStore) Load() (string, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn().Err(err).Str("path", s.path).Msg("cannot read session record")
		}
		return "", false
	}

	var rec SessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("corrupt session record ignored")
		return "", false
	}

	if !rec.Active || rec.SessionID == "" {
		return "", false
	}
	return rec.SessionID, true
}

// Clear deletes the record. A missing record is not an error.
func (s *SessionFileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session record: %w", err)
	}
	return nil
}
