package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"pyuml/internal/model"
)

// SQLiteStore keeps the registry snapshot in a single `classes` table.
// Each row carries the class model as JSON plus the position needed to
// restore registry order on load.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a SQLite database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS classes (
			name TEXT PRIMARY KEY,
			unit_path TEXT,
			position INTEGER,
			model JSON
		);`,
		`CREATE INDEX IF NOT EXISTS idx_classes_unit ON classes(unit_path);`,
	}
	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// SaveSnapshot writes the registry as a full snapshot: classes absent
// from reg are removed, the rest are upserted with their position. The
// registry is validated first so a bad model never reaches the table.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, reg *model.Registry, origins model.OriginIndex) error {
	if reg == nil {
		return &model.ShapeError{Reason: "registry is nil"}
	}
	if err := reg.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM classes`); err != nil {
		return fmt.Errorf("failed to clear previous snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO classes (name, unit_path, position, model)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			unit_path=excluded.unit_path,
			position=excluded.position,
			model=excluded.model
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for pos, name := range reg.Names() {
		c, _ := reg.Get(name)
		blob, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to marshal class %q: %w", name, err)
		}
		if _, err := stmt.ExecContext(ctx, name, origins[name], pos, blob); err != nil {
			return fmt.Errorf("failed to save class %q: %w", name, err)
		}
	}

	return tx.Commit()
}

// LoadSnapshot rebuilds the registry ordered by stored position.
func (s *SQLiteStore) LoadSnapshot(ctx context.Context) (*model.Registry, model.OriginIndex, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, unit_path, model FROM classes ORDER BY position`)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query classes: %w", err)
	}
	defer rows.Close()

	reg := model.NewRegistry()
	origins := make(model.OriginIndex)
	for rows.Next() {
		var name, unitPath string
		var blob []byte
		if err := rows.Scan(&name, &unitPath, &blob); err != nil {
			return nil, nil, fmt.Errorf("failed to scan class: %w", err)
		}
		c := model.NewClassModel()
		if err := json.Unmarshal(blob, c); err != nil {
			return nil, nil, fmt.Errorf("failed to decode class %q: %w", name, err)
		}
		reg.Put(name, c)
		if unitPath != "" {
			origins[name] = unitPath
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	if err := reg.Validate(); err != nil {
		return nil, nil, err
	}
	return reg, origins, nil
}
