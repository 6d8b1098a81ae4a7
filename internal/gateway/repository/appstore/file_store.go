package appstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"appforge/internal/safeio"
)

// FileStore writes one JSON document per app under a root directory. App
// ids arrive from HTTP paths, so every access goes through a root-locked
// filesystem rather than bare path joins.
type FileStore struct {
	fs *safeio.SafeFS
	mu sync.Mutex
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("appstore: create dir: %w", err)
	}
	fs, err := safeio.NewSafeFS(dir)
	if err != nil {
		return nil, fmt.Errorf("appstore: open dir: %w", err)
	}
	return &FileStore{fs: fs}, nil
}

func (s *FileStore) fileName(appID string) (string, error) {
	id := normalizeID(appID)
	if id == "" {
		return "", fmt.Errorf("appstore: app id is required")
	}
	return id + ".json", nil
}

func (s *FileStore) Put(_ context.Context, rec Record) error {
	if s == nil {
		return fmt.Errorf("appstore: store is nil")
	}
	name, err := s.fileName(rec.AppID)
	if err != nil {
		return err
	}
	rec.AppID = normalizeID(rec.AppID)
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = nowUTC()
	}
	raw, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("appstore: encode record: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fs.WriteFile(name, raw, 0o644)
}

func (s *FileStore) Get(_ context.Context, appID string) (Record, error) {
	if s == nil {
		return Record{}, fmt.Errorf("appstore: store is nil")
	}
	name, err := s.fileName(appID)
	if err != nil {
		return Record{}, err
	}
	raw, err := s.fs.ReadFile(name)
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("appstore: read record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, fmt.Errorf("appstore: decode record %s: %w", name, err)
	}
	return rec, nil
}

func (s *FileStore) List(_ context.Context) ([]Record, error) {
	if s == nil {
		return nil, fmt.Errorf("appstore: store is nil")
	}
	entries, err := s.fs.ReadDir(".")
	if err != nil {
		return nil, fmt.Errorf("appstore: list dir: %w", err)
	}
	out := make([]Record, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		raw, err := s.fs.ReadFile(e.Name())
		if err != nil {
			continue
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppID < out[j].AppID })
	return out, nil
}

func (s *FileStore) Delete(_ context.Context, appID string) error {
	if s == nil {
		return fmt.Errorf("appstore: store is nil")
	}
	name, err := s.fileName(appID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fs.Remove(name); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("appstore: delete record: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
