// Package storage provides a SQLite-backed registry of validated codebooks.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	"github.com/c360studio/codebook/codebook"
	"github.com/c360studio/codebook/storage/migrations"
)

// Record is a stored codebook with its summary columns.
type Record struct {
	Name      string             `json:"name"`
	Version   string             `json:"version"`
	Targets   int                `json:"targets"`
	Mappings  int                `json:"mappings"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
	Codebook  *codebook.Codebook `json:"codebook,omitempty"`
}

// Store persists codebooks in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens (creating if needed) the registry at path and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	dsn := cleanPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put inserts or replaces the codebook stored under name. The creation time of
// an existing entry is kept.
func (s *Store) Put(ctx context.Context, name string, cb *codebook.Codebook) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("codebook name is required")
	}
	if cb == nil {
		return fmt.Errorf("codebook is required")
	}

	document, err := cb.Marshal()
	if err != nil {
		return err
	}
	now := toMillis(s.now())

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO codebooks (name, version, document, targets, mappings, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   version = excluded.version,
		   document = excluded.document,
		   targets = excluded.targets,
		   mappings = excluded.mappings,
		   updated_at = excluded.updated_at`,
		name,
		cb.Version,
		string(document),
		len(cb.Targets()),
		len(cb.Mappings),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("put codebook %s: %w", name, err)
	}
	return nil
}

// Get returns the codebook stored under name.
func (s *Store) Get(ctx context.Context, name string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT name, version, document, targets, mappings, created_at, updated_at
		 FROM codebooks WHERE name = ?`,
		strings.TrimSpace(name),
	)

	var (
		rec                  Record
		document             string
		createdAt, updatedAt int64
	)
	err := row.Scan(&rec.Name, &rec.Version, &document, &rec.Targets, &rec.Mappings, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("get codebook %s: %w", name, err)
	}

	cb, err := codebook.Parse([]byte(document))
	if err != nil {
		return nil, fmt.Errorf("decode stored codebook %s: %w", name, err)
	}
	rec.Codebook = cb
	rec.CreatedAt = fromMillis(createdAt)
	rec.UpdatedAt = fromMillis(updatedAt)
	return &rec, nil
}

// List returns every stored codebook ordered by name, without documents.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, version, targets, mappings, created_at, updated_at
		 FROM codebooks ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list codebooks: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec                  Record
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&rec.Name, &rec.Version, &rec.Targets, &rec.Mappings, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan codebook: %w", err)
		}
		rec.CreatedAt = fromMillis(createdAt)
		rec.UpdatedAt = fromMillis(updatedAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate codebooks: %w", err)
	}
	return records, nil
}

// Delete removes the codebook stored under name.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM codebooks WHERE name = ?`, strings.TrimSpace(name))
	if err != nil {
		return fmt.Errorf("delete codebook %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete codebook %s: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}
