package appstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps definitions in a mutex-guarded map. It is the default
// backend and the one tests use.
type MemoryStore struct {
	mu   sync.RWMutex
	byID map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]Record)}
}

func (s *MemoryStore) Put(_ context.Context, rec Record) error {
	if s == nil {
		return fmt.Errorf("appstore: store is nil")
	}
	id := normalizeID(rec.AppID)
	if id == "" {
		return fmt.Errorf("appstore: app id is required")
	}
	rec.AppID = id
	rec.Definition = append([]byte(nil), rec.Definition...)
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	s.byID[id] = rec
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, appID string) (Record, error) {
	if s == nil {
		return Record{}, fmt.Errorf("appstore: store is nil")
	}
	s.mu.RLock()
	rec, ok := s.byID[normalizeID(appID)]
	s.mu.RUnlock()
	if !ok {
		return Record{}, ErrNotFound
	}
	rec.Definition = append([]byte(nil), rec.Definition...)
	return rec, nil
}

func (s *MemoryStore) List(_ context.Context) ([]Record, error) {
	if s == nil {
		return nil, fmt.Errorf("appstore: store is nil")
	}
	s.mu.RLock()
	out := make([]Record, 0, len(s.byID))
	for _, rec := range s.byID {
		rec.Definition = append([]byte(nil), rec.Definition...)
		out = append(out, rec)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].AppID < out[j].AppID })
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, appID string) error {
	if s == nil {
		return fmt.Errorf("appstore: store is nil")
	}
	id := normalizeID(appID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
