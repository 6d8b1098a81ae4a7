// Package artifact persists generated app bundles. Files are keyed by
// app id plus a bundle-relative path; whichever backend is configured,
// writing the same path again replaces the previous revision.
package artifact

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"
)

var ErrNotFound = errors.New("artifact not found")

// Store defines operations for persisting generated bundle files.
type Store interface {
	Put(ctx context.Context, appID, path string, content []byte) error
	Get(ctx context.Context, appID, path string) ([]byte, error)
	GetURL(ctx context.Context, appID, path string) (string, error)
	List(ctx context.Context, appID string) ([]string, error)
}

// NewFromEnv selects a backend by ARTIFACT_STORE (s3, postgres, memory).
// Unset or failing backends fall back to memory with a log line; the
// gateway still serves bundles, they just do not survive a restart.
func NewFromEnv(cfg S3Config, logger *log.Logger) Store {
	if logger == nil {
		logger = log.Default()
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ARTIFACT_STORE"))) {
	case "s3", "minio":
		s, err := NewS3Store(cfg)
		if err == nil {
			return s
		}
		logger.Printf("artifact: s3 unavailable, using memory: %v", err)
	case "postgres":
		dsn := strings.TrimSpace(os.Getenv("ARTIFACT_PG_DSN"))
		if dsn == "" {
			dsn = strings.TrimSpace(os.Getenv("APP_STORE_PG_DSN"))
		}
		s, err := NewPostgresStore(dsn)
		if err == nil {
			return s
		}
		logger.Printf("artifact: postgres unavailable, using memory: %v", err)
	}
	return NewMemoryStore()
}

func objectKey(appID, path string) string {
	normalized := strings.TrimLeft(strings.TrimSpace(path), "/")
	return strings.TrimSpace(appID) + "/" + normalized
}
