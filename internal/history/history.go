// Package history persists the text and outcome of every fragment an
// ISB REPL session has compiled to a local SQLite database, so what a
// session ran can later be listed with Recent. It deliberately does
// not persist VM state (the value stack, registers, or named memory):
// only source text, a content fingerprint, and a success/failure
// outcome ever reach disk.
//
// Grounded on the teacher's `pkg/tinyos/db.go` (`InitDB`/`CreateTables`,
// a `database/sql` connection over `modernc.org/sqlite`, rows keyed by
// a `uuid.New().String()` id), narrowed from that file's multi-table
// user/session/chat schema to a single `fragments` table, and its
// `golang.org/x/crypto/bcrypt` password hashing repurposed here as
// `golang.org/x/crypto/blake2b` content fingerprinting (a fragment's
// source isn't a secret to be hashed one-way and compared at login
// time -- it's a content digest computed for every recorded fragment,
// so blake2b's fast fixed-size sum fits better than bcrypt's
// deliberately slow KDF).
package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	_ "modernc.org/sqlite"
)

// Store wraps a SQLite connection holding the fragment history table.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// ensures its schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connect to history database: %w", err)
	}
	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS fragments (
		id TEXT PRIMARY KEY,
		fingerprint TEXT NOT NULL,
		source TEXT NOT NULL,
		succeeded INTEGER NOT NULL,
		error_message TEXT,
		created_at INTEGER NOT NULL
	)`)
	return err
}

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// Fingerprint returns the hex blake2b-256 digest of source, stored with
// every history row. Rows are not deduplicated by it, and no compile
// step looks it up.
func Fingerprint(source string) string {
	sum := blake2b.Sum256([]byte(source))
	return fmt.Sprintf("%x", sum)
}

// Record is one persisted fragment outcome.
type Record struct {
	ID           string
	Fingerprint  string
	Source       string
	Succeeded    bool
	ErrorMessage string
	CreatedAt    time.Time
}

// Append inserts a new fragment record, assigning it a fresh UUID.
func (s *Store) Append(source string, succeeded bool, errMsg string) (Record, error) {
	rec := Record{
		ID:           uuid.New().String(),
		Fingerprint:  Fingerprint(source),
		Source:       source,
		Succeeded:    succeeded,
		ErrorMessage: errMsg,
		CreatedAt:    time.Now(),
	}
	_, err := s.db.Exec(
		`INSERT INTO fragments (id, fingerprint, source, succeeded, error_message, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Fingerprint, rec.Source, boolToInt(rec.Succeeded), rec.ErrorMessage, rec.CreatedAt.Unix(),
	)
	if err != nil {
		return Record{}, fmt.Errorf("append fragment record: %w", err)
	}
	return rec, nil
}

// Recent returns up to limit of the most recently recorded fragments,
// newest first. Records appended within the same second are ordered by
// insertion.
func (s *Store) Recent(limit int) ([]Record, error) {
	rows, err := s.db.Query(
		`SELECT id, fingerprint, source, succeeded, error_message, created_at FROM fragments ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent fragments: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var succeeded int
		var createdAt int64
		if err := rows.Scan(&rec.ID, &rec.Fingerprint, &rec.Source, &succeeded, &rec.ErrorMessage, &createdAt); err != nil {
			return nil, fmt.Errorf("scan fragment record: %w", err)
		}
		rec.Succeeded = succeeded != 0
		rec.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
