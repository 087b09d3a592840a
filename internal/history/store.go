// Package history persists translations and conversation threads in a
// local SQLite database.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// ErrNotFound is matched by every NotFoundError via errors.Is.
var ErrNotFound = errors.New("not found")

// NotFoundError reports a missing entry or thread.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e NotFoundError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s not found", e.Entity)
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.Key)
}

func (e NotFoundError) Is(target error) bool { return target == ErrNotFound }

// IsNotFound returns true when err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

// Entry is one stored translation.
type Entry struct {
	ID             string    `json:"id"`
	ThreadID       string    `json:"thread_id,omitempty"`
	Speaker        string    `json:"speaker,omitempty"`
	SourceText     string    `json:"source_text"`
	TranslatedText string    `json:"translated_text"`
	SourceLang     string    `json:"source_lang"`
	TargetLang     string    `json:"target_lang"`
	Detected       bool      `json:"detected"`
	CreatedAt      time.Time `json:"created_at"`
}

// Thread is a two-party conversation. Speaker "a" writes in LangA and reads
// LangB; speaker "b" the other way round.
type Thread struct {
	ID        string    `json:"id"`
	LangA     string    `json:"lang_a"`
	LangB     string    `json:"lang_b"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is safe for concurrent use; SQLite serialises writers and the pool
// holds a single connection.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path and applies the schema.
// Parent directories are created as needed.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("history: empty database path")
	}
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("history: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, now: time.Now}
	if err := s.applyPragmas(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) applyPragmas(ctx context.Context) error {
	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := s.db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("history: apply pragma %q: %w", p, err)
		}
	}
	return nil
}

func (s *Store) createTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS threads (
			id TEXT PRIMARY KEY,
			lang_a TEXT NOT NULL,
			lang_b TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS entries (
			id TEXT PRIMARY KEY,
			thread_id TEXT REFERENCES threads(id) ON DELETE CASCADE,
			speaker TEXT NOT NULL DEFAULT '',
			source_text TEXT NOT NULL,
			translated_text TEXT NOT NULL,
			source_lang TEXT NOT NULL,
			target_lang TEXT NOT NULL,
			detected INTEGER NOT NULL DEFAULT 0,
			search_text TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_created ON entries(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_thread ON entries(thread_id, created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("history: create schema: %w", err)
		}
	}
	return nil
}

// fold case-folds for search; SQLite's own lower() only knows ASCII.
func fold(s string) string {
	return cases.Fold().String(s)
}

const entryColumns = `id, COALESCE(thread_id, ''), speaker, source_text, translated_text,
	source_lang, target_lang, detected, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e        Entry
		detected int
		created  int64
	)
	if err := row.Scan(&e.ID, &e.ThreadID, &e.Speaker, &e.SourceText, &e.TranslatedText,
		&e.SourceLang, &e.TargetLang, &detected, &created); err != nil {
		return Entry{}, err
	}
	e.Detected = detected != 0
	e.CreatedAt = time.Unix(0, created).UTC()
	return e, nil
}

// Add stores e and returns it with ID and CreatedAt filled in.
func (s *Store) Add(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().UTC()
	}
	var threadID any
	if e.ThreadID != "" {
		threadID = e.ThreadID
	}
	detected := 0
	if e.Detected {
		detected = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entries(id, thread_id, speaker, source_text, translated_text, source_lang, target_lang, detected, search_text, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, threadID, e.Speaker, e.SourceText, e.TranslatedText, e.SourceLang, e.TargetLang, detected,
		fold(e.SourceText+"\n"+e.TranslatedText), e.CreatedAt.UnixNano())
	if err != nil {
		return Entry{}, fmt.Errorf("history: insert entry: %w", err)
	}
	return e, nil
}

// Get returns the entry with the given ID.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, NotFoundError{Entity: "entry", Key: id}
	}
	if err != nil {
		return Entry{}, fmt.Errorf("history: get entry: %w", err)
	}
	return e, nil
}

// List returns up to limit entries, newest first. A limit <= 0 means no limit.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	return s.query(ctx, `SELECT `+entryColumns+` FROM entries ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		sqlLimit(limit))
}

// Search returns entries whose source or translated text contains query,
// ignoring case, newest first.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]Entry, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.List(ctx, limit)
	}
	return s.query(ctx, `SELECT `+entryColumns+` FROM entries WHERE instr(search_text, ?) > 0
		ORDER BY created_at DESC, rowid DESC LIMIT ?`, fold(query), sqlLimit(limit))
}

// Delete removes one entry.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("history: delete entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("history: delete entry: %w", err)
	}
	if n == 0 {
		return NotFoundError{Entity: "entry", Key: id}
	}
	return nil
}

// Clear removes every entry and thread and reports how many entries were
// removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("history: clear: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM entries`)
	if err != nil {
		return 0, fmt.Errorf("history: clear entries: %w", err)
	}
	n, _ := res.RowsAffected()
	if _, err := tx.ExecContext(ctx, `DELETE FROM threads`); err != nil {
		return 0, fmt.Errorf("history: clear threads: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("history: clear: %w", err)
	}
	return n, nil
}

// CreateThread starts a conversation between langA and langB.
func (s *Store) CreateThread(ctx context.Context, langA, langB string) (Thread, error) {
	th := Thread{ID: uuid.NewString(), LangA: langA, LangB: langB, CreatedAt: s.now().UTC()}
	_, err := s.db.ExecContext(ctx, `INSERT INTO threads(id, lang_a, lang_b, created_at) VALUES(?, ?, ?, ?)`,
		th.ID, th.LangA, th.LangB, th.CreatedAt.UnixNano())
	if err != nil {
		return Thread{}, fmt.Errorf("history: insert thread: %w", err)
	}
	return th, nil
}

// GetThread returns the thread with the given ID.
func (s *Store) GetThread(ctx context.Context, id string) (Thread, error) {
	var (
		th      Thread
		created int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, lang_a, lang_b, created_at FROM threads WHERE id = ?`, id).
		Scan(&th.ID, &th.LangA, &th.LangB, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Thread{}, NotFoundError{Entity: "thread", Key: id}
	}
	if err != nil {
		return Thread{}, fmt.Errorf("history: get thread: %w", err)
	}
	th.CreatedAt = time.Unix(0, created).UTC()
	return th, nil
}

// ThreadEntries returns a thread's entries in the order they were added.
func (s *Store) ThreadEntries(ctx context.Context, threadID string) ([]Entry, error) {
	if _, err := s.GetThread(ctx, threadID); err != nil {
		return nil, err
	}
	return s.query(ctx, `SELECT `+entryColumns+` FROM entries WHERE thread_id = ?
		ORDER BY created_at ASC, rowid ASC`, threadID)
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("history: scan entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	return out, nil
}

// sqlLimit maps "no limit" onto SQLite's -1.
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
