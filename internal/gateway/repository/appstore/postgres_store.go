package appstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore persists definitions in one table, fronted by a small
// read-through cache. The cache is invalidated on every write so other
// readers in the same process see fresh documents immediately; cross
// process staleness is bounded by the compiled-app cache TTL upstream.
type PostgresStore struct {
	db *sql.DB

	schemaOnce sync.Once
	schemaErr  error

	cache *lru.Cache[string, Record]
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("appstore: open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("appstore: ping postgres: %w", err)
	}
	cache, err := lru.New[string, Record](1024)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{db: db, cache: cache}, nil
}

func (s *PostgresStore) ensureSchema() error {
	if s == nil || s.db == nil {
		return fmt.Errorf("appstore: db is nil")
	}
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.Exec(`
CREATE TABLE IF NOT EXISTS app_definitions (
  app_id TEXT PRIMARY KEY,
  definition JSONB NOT NULL,
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
`)
	})
	return s.schemaErr
}

func (s *PostgresStore) Put(ctx context.Context, rec Record) error {
	if err := s.ensureSchema(); err != nil {
		return err
	}
	id := normalizeID(rec.AppID)
	if id == "" {
		return fmt.Errorf("appstore: app id is required")
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO app_definitions (app_id, definition, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (app_id)
DO UPDATE SET definition=EXCLUDED.definition, updated_at=EXCLUDED.updated_at`,
		id, []byte(rec.Definition), rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("appstore: upsert %s: %w", id, err)
	}
	s.cache.Remove(id)
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, appID string) (Record, error) {
	if err := s.ensureSchema(); err != nil {
		return Record{}, err
	}
	id := normalizeID(appID)
	if id == "" {
		return Record{}, fmt.Errorf("appstore: app id is required")
	}
	if rec, ok := s.cache.Get(id); ok {
		return rec, nil
	}

	var (
		rec Record
		def []byte
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT app_id, definition, updated_at FROM app_definitions WHERE app_id = $1`, id)
	if err := row.Scan(&rec.AppID, &def, &rec.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("appstore: query %s: %w", id, err)
	}
	rec.Definition = def
	s.cache.Add(id, rec)
	return rec, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Record, error) {
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT app_id, definition, updated_at FROM app_definitions ORDER BY app_id`)
	if err != nil {
		return nil, fmt.Errorf("appstore: list: %w", err)
	}
	defer rows.Close()

	out := make([]Record, 0, 32)
	for rows.Next() {
		var (
			rec Record
			def []byte
		)
		if err := rows.Scan(&rec.AppID, &def, &rec.UpdatedAt); err != nil {
			continue
		}
		rec.Definition = def
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appstore: list: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Delete(ctx context.Context, appID string) error {
	if err := s.ensureSchema(); err != nil {
		return err
	}
	id := normalizeID(appID)
	res, err := s.db.ExecContext(ctx, `DELETE FROM app_definitions WHERE app_id = $1`, id)
	if err != nil {
		return fmt.Errorf("appstore: delete %s: %w", id, err)
	}
	s.cache.Remove(id)
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
