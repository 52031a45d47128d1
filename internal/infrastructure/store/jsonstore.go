// Package store persists results as one JSON array of {key, value} records.
// Every append rewrites the whole document under a store-wide lock.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"chat-scraper/internal/application/port/output"
	"chat-scraper/internal/domain/entity"

	"github.com/spf13/afero"
)

var _ output.ResultStore = (*JSONStore)(nil)

// errCorrupt marks a document that exists but cannot be parsed.
var errCorrupt = errors.New("corrupt result store")

type JSONStore struct {
	fs     afero.Fs
	path   string
	logger output.LoggerPort
	mu     sync.Mutex
}

func NewJSONStore(fsys afero.Fs, path string, logger output.LoggerPort) *JSONStore {
	return &JSONStore{
		fs:     fsys,
		path:   path,
		logger: logger.WithField("store", path),
	}
}

func (s *JSONStore) Path() string {
	return s.path
}

// LoadCompletedIDs returns the keys already persisted. A missing document is
// created empty; a corrupt one is reset to empty. Neither is an error.
func (s *JSONStore) LoadCompletedIDs() entity.CompletedSet {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readLocked()
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.logger.Info("Result store not found, creating empty store")
		s.resetLocked()
		return entity.CompletedSet{}
	case err != nil:
		s.logger.Warn("Result store unreadable, resetting to empty", "error", err)
		s.resetLocked()
		return entity.CompletedSet{}
	}

	done := make(entity.CompletedSet, len(records))
	for _, r := range records {
		done[r.Key] = struct{}{}
	}
	s.logger.Info("Loaded completed results", "count", len(done))
	return done
}

// Append adds one record. The read-modify-write cycle is serialized with every
// other Append on this store.
func (s *JSONStore) Append(rec entity.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readLocked()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("Result store unreadable during append, starting from empty", "error", err)
		records = nil
	}

	records = append(records, rec)
	if err := s.writeLocked(records); err != nil {
		s.logger.Error("Failed to persist result", "key", rec.Key, "error", err)
		return fmt.Errorf("append %q: %w", rec.Key, err)
	}
	return nil
}

// Records returns a snapshot of the persisted records in file order.
func (s *JSONStore) Records() ([]entity.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readLocked()
	if errors.Is(err, fs.ErrNotExist) {
		return []entity.Record{}, nil
	}
	return records, err
}

func (s *JSONStore) readLocked() ([]entity.Record, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty document", errCorrupt)
	}

	var records []entity.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", errCorrupt, err)
	}
	if records == nil {
		// literal null
		return nil, fmt.Errorf("%w: top level is not an array", errCorrupt)
	}
	return records, nil
}

func (s *JSONStore) resetLocked() {
	if err := s.writeLocked([]entity.Record{}); err != nil {
		s.logger.Error("Failed to initialize result store", "error", err)
	}
}

// writeLocked replaces the document through a temp file and rename so readers
// never observe a half-written array.
func (s *JSONStore) writeLocked(records []entity.Record) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := s.fs.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("create store directory: %w", err)
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode records: %w", err)
	}

	tempPath := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tempPath, buf.Bytes(), 0644); err != nil {
		_ = s.fs.Remove(tempPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := s.fs.Rename(tempPath, s.path); err != nil {
		_ = s.fs.Remove(tempPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
