package statestore

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/google/uuid"
)

// SQLite persists a Snapshot in a single-table sqlite database, one row per
// global. Grounded on the teacher's own modernc.org/sqlite + database/sql
// usage in internal/vm/vm.go's DbHandles.
type SQLite struct {
	db      *sql.DB
	strings interning
}

// OpenSQLite opens (creating if necessary) a sqlite database at path and
// ensures its globals table exists.
func OpenSQLite(path string, strings interning) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("statestore: open sqlite: %w", err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS globals (
	session TEXT NOT NULL,
	name    TEXT NOT NULL,
	kind    TEXT NOT NULL,
	boolval INTEGER NOT NULL DEFAULT 0,
	num     REAL NOT NULL DEFAULT 0,
	str     TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (session, name)
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("statestore: create schema: %w", err)
	}
	return &SQLite{db: db, strings: strings}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// Save stamps this snapshot with a fresh session id and writes one row per
// scalar global, so concurrent REPL sessions against the same file don't
// overwrite each other's rows.
func (s *SQLite) Save(ctx context.Context, snap Snapshot) error {
	session := uuid.New().String()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("statestore: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO globals (session, name, kind, boolval, num, str)
VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("statestore: prepare insert: %w", err)
	}
	defer stmt.Close()

	for name, v := range snap {
		if !Scalar(v) {
			continue
		}
		r, err := toRow(name, v)
		if err != nil {
			return err
		}
		boolVal := 0
		if r.b {
			boolVal = 1
		}
		if _, err := stmt.ExecContext(ctx, session, r.name, r.kind, boolVal, r.num, r.str); err != nil {
			return fmt.Errorf("statestore: insert %q: %w", name, err)
		}
	}
	return tx.Commit()
}

// Load returns the most recently saved session's globals: the session id
// with the highest rowid wins.
func (s *SQLite) Load(ctx context.Context) (Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT name, kind, boolval, num, str FROM globals
WHERE session = (SELECT session FROM globals ORDER BY rowid DESC LIMIT 1)`)
	if err != nil {
		return nil, fmt.Errorf("statestore: query: %w", err)
	}
	defer rows.Close()

	snap := Snapshot{}
	for rows.Next() {
		var r row
		var boolVal int
		if err := rows.Scan(&r.name, &r.kind, &boolVal, &r.num, &r.str); err != nil {
			return nil, fmt.Errorf("statestore: scan: %w", err)
		}
		r.b = boolVal != 0
		snap[r.name] = fromRow(r, s.strings)
	}
	return snap, rows.Err()
}
