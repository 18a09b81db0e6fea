package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"ShiftBot/app/roster"
)

type SQLiteStore struct {
	db *sql.DB
}

var _ Interface = &SQLiteStore{}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open SQLite DB at %s: %w", path, err)
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS shift_leader (
            id INTEGER PRIMARY KEY CHECK (id = 1),
            display_name TEXT NOT NULL,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        );
        CREATE TABLE IF NOT EXISTS shift_roster (
            position INTEGER PRIMARY KEY,
            id TEXT NOT NULL,
            label TEXT NOT NULL,
            handle TEXT NOT NULL DEFAULT '',
            phone TEXT NOT NULL DEFAULT ''
        );
    `)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) WriteCurrentOwner(ctx context.Context, displayName string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO shift_leader (id, display_name, updated_at)
		 VALUES (1, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(id) DO UPDATE SET display_name = excluded.display_name, updated_at = CURRENT_TIMESTAMP`,
		displayName,
	)
	if err != nil {
		return fmt.Errorf("write current owner: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CurrentOwner(ctx context.Context) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT display_name FROM shift_leader WHERE id = 1`).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read current owner: %w", err)
	}
	return name, nil
}

func (s *SQLiteStore) SaveRoster(ctx context.Context, people []roster.Entity) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin roster tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM shift_roster`); err != nil {
		return fmt.Errorf("clear roster: %w", err)
	}
	for i, p := range people {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO shift_roster (position, id, label, handle, phone) VALUES (?, ?, ?, ?, ?)`,
			i, p.ID, p.Label, p.Handle, p.Phone,
		)
		if err != nil {
			return fmt.Errorf("insert roster row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit roster: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Roster(ctx context.Context) ([]roster.Entity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, label, handle, phone FROM shift_roster ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	defer rows.Close()

	var people []roster.Entity
	for rows.Next() {
		var p roster.Entity
		if err := rows.Scan(&p.ID, &p.Label, &p.Handle, &p.Phone); err != nil {
			return nil, fmt.Errorf("scan roster row: %w", err)
		}
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return people, nil
}
