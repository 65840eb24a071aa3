package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"minerfix-backend/models"
)

// FileStore keeps the log as one JSON array, newest first. Every append
// rewrites the file through a temp file and rename. Single process only.
type FileStore struct {
	path string
	max  int
	mu   sync.Mutex
}

func NewFileStore(path string, max int) *FileStore {
	max = clampMax(max)
	return &FileStore{path: path, max: max}
}

func (s *FileStore) Append(_ context.Context, entry models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return err
	}
	entries = append([]models.AuditLog{entry}, entries...)
	if len(entries) > s.max {
		entries = entries[:s.max]
	}
	return s.write(entries)
}

func (s *FileStore) List(_ context.Context, f Filter) ([]models.AuditLog, int64, error) {
	s.mu.Lock()
	entries, err := s.read()
	s.mu.Unlock()
	if err != nil {
		return nil, 0, err
	}

	matched := make([]models.AuditLog, 0, len(entries))
	for _, e := range entries {
		if f.Match(e) {
			matched = append(matched, e)
		}
	}
	total := int64(len(matched))
	if f.PageSize <= 0 {
		return matched, total, nil
	}
	start := f.offset()
	if start >= len(matched) {
		return []models.AuditLog{}, total, nil
	}
	end := start + f.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (s *FileStore) read() ([]models.AuditLog, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read audit file: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var entries []models.AuditLog
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode audit file: %w", err)
	}
	return entries, nil
}

func (s *FileStore) write(entries []models.AuditLog) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create audit dir: %w", err)
	}
	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".audit-*.json")
	if err != nil {
		return fmt.Errorf("create temp audit file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write audit file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
