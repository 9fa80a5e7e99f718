package credentials

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// FileStore keeps the pair in memory and mirrors a remembered pair to a JSON
// file so it survives process restarts until the retention horizon.
// A session scoped pair is never written to disk.
type FileStore struct {
	mu        sync.RWMutex
	path      string
	retention Retention
	tokens    Tokens
	horizon   time.Time
}

var _ Store = (*FileStore)(nil)

// credentialFile is the JSON structure stored on disk
type credentialFile struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// NewFileStore loads a remembered pair from path if one exists and has not
// passed its horizon.
func NewFileStore(path string, retention Retention) (*FileStore, error) {
	s := &FileStore{path: path, retention: retention}
	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}

	var file credentialFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse credentials file: %w", err)
	}

	if !file.ExpiresAt.After(s.now()) {
		s.remove()
		return nil
	}

	s.tokens = Tokens{Access: file.AccessToken, Refresh: file.RefreshToken}
	s.horizon = file.ExpiresAt
	return nil
}

func (s *FileStore) Read() Tokens {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens
}

func (s *FileStore) WriteAccess(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens.Access = token
	if !s.horizon.IsZero() {
		s.save()
	}
}

func (s *FileStore) WriteAll(access, refresh string, persist bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = Tokens{Access: access, Refresh: refresh}
	s.horizon = s.retention.Horizon(persist)
	if persist {
		s.save()
		return
	}
	s.remove()
}

func (s *FileStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = Tokens{}
	s.horizon = time.Time{}
	s.remove()
}

// Path returns the path to the credentials file
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) save() {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("failed to create credentials directory")
		return
	}

	data, err := json.MarshalIndent(credentialFile{
		AccessToken:  s.tokens.Access,
		RefreshToken: s.tokens.Refresh,
		ExpiresAt:    s.horizon,
	}, "", "  ")
	if err != nil {
		log.Warn().Err(err).Msg("failed to serialize credentials")
		return
	}

	// Owner read/write only
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("failed to write credentials")
	}
}

func (s *FileStore) remove() {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", s.path).Msg("failed to remove credentials")
	}
}

func (s *FileStore) now() time.Time {
	if s.retention.Now != nil {
		return s.retention.Now()
	}
	return time.Now()
}
