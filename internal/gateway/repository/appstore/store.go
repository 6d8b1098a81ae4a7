// Package appstore persists raw application definitions keyed by app id.
// Documents are stored as submitted; compilation happens on read paths so
// a stored definition can carry diagnostics without being rejected.
package appstore

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"time"
)

var ErrNotFound = errors.New("app definition not found")

// Record is one stored definition. Definition is the raw document exactly
// as the builder submitted it.
type Record struct {
	AppID      string          `json:"appId"`
	Definition json.RawMessage `json:"definition"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Store is the persistence contract shared by all backends.
type Store interface {
	Put(ctx context.Context, rec Record) error
	Get(ctx context.Context, appID string) (Record, error)
	List(ctx context.Context) ([]Record, error)
	Delete(ctx context.Context, appID string) error
	Close() error
}

// NewFromEnv selects a backend from the environment: APP_STORE_PG_DSN
// wins, then APP_STORE_DIR, else everything stays in memory. Backend
// construction failures fall back to memory with a log line rather than
// refusing to start.
func NewFromEnv(logger *log.Logger) Store {
	if logger == nil {
		logger = log.Default()
	}
	if dsn := strings.TrimSpace(os.Getenv("APP_STORE_PG_DSN")); dsn != "" {
		s, err := NewPostgresStore(dsn)
		if err == nil {
			return s
		}
		logger.Printf("appstore: postgres unavailable, using memory: %v", err)
		return NewMemoryStore()
	}
	if dir := strings.TrimSpace(os.Getenv("APP_STORE_DIR")); dir != "" {
		s, err := NewFileStore(dir)
		if err == nil {
			return s
		}
		logger.Printf("appstore: file store unavailable, using memory: %v", err)
	}
	return NewMemoryStore()
}

func normalizeID(appID string) string {
	return strings.TrimSpace(appID)
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
