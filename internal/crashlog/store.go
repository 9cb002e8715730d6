package crashlog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists the crash log between daemon runs.
type Store interface {
	// Load returns the persisted entries, oldest first.
	Load() ([]Entry, error)
	// Save replaces the persisted entries.
	Save(entries []Entry) error
	Close() error
}

// SQLiteStore keeps entries in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS crash_entries (
    seq       INTEGER PRIMARY KEY,
    id        TEXT NOT NULL,
    timestamp INTEGER NOT NULL,
    type      TEXT NOT NULL,
    message   TEXT NOT NULL,
    stack     TEXT NOT NULL DEFAULT '',
    agent     TEXT NOT NULL DEFAULT '',
    memory    TEXT
)`

// OpenSQLiteStore opens, creating if needed, the database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error: cannot open crash log database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("error: cannot create crash log table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load() ([]Entry, error) {
	rows, err := s.db.Query(`
        SELECT id, timestamp, type, message, stack, agent, memory
        FROM crash_entries
        ORDER BY seq ASC
    `)
	if err != nil {
		return nil, fmt.Errorf("error: failed to query crash log: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e      Entry
			ts     int64
			typ    string
			memory sql.NullString
		)
		if err := rows.Scan(&e.ID, &ts, &typ, &e.Message, &e.Stack, &e.Agent, &memory); err != nil {
			return nil, fmt.Errorf("error: failed to scan crash log row: %w", err)
		}
		e.Timestamp = time.UnixMilli(ts).UTC()
		e.Type = Type(typ)
		if memory.Valid && memory.String != "" {
			var m Memory
			if err := json.Unmarshal([]byte(memory.String), &m); err == nil {
				e.Memory = &m
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error: failed to iterate crash log rows: %w", err)
	}
	return entries, nil
}

func (s *SQLiteStore) Save(entries []Entry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM crash_entries`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
        INSERT INTO crash_entries (seq, id, timestamp, type, message, stack, agent, memory)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, e := range entries {
		var memory sql.NullString
		if e.Memory != nil {
			b, err := json.Marshal(e.Memory)
			if err != nil {
				return err
			}
			memory = sql.NullString{String: string(b), Valid: true}
		}
		if _, err := stmt.Exec(i, e.ID, e.Timestamp.UnixMilli(), string(e.Type), e.Message, e.Stack, e.Agent, memory); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
