// Package model provides the data layer for postbook.
//
// Store is the source of truth: a single SQLite table of posts plus a live
// query mechanism. Every committed mutation bumps a version counter and
// wakes the watchers started by WatchAll and WatchByID, which re-query and
// push fresh snapshots to their subscribers.
//
// # Thread Safety
//
// Store is safe for concurrent use. Mutations are serialized by an internal
// mutex so that the commit and the watcher notification happen in the same
// order for every writer. Reads do not take the mutex.
//
// # Schema
//
// The schema version is kept in PRAGMA user_version. When an existing file
// carries a different non-zero version the posts table is dropped and
// recreated. Data loss on schema change is accepted.
package model

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/abelbrown/postbook/internal/logging"
	"github.com/abelbrown/postbook/internal/otel"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// schemaVersion is written to PRAGMA user_version.
const schemaVersion = 1

const postColumns = "id, title, description, author"

// Store handles persistence of posts.
type Store struct {
	db *sql.DB

	// mu serializes writes together with the version bump and broadcast.
	mu      sync.Mutex
	version uint64

	notify      *notifier
	events      *otel.Logger
	minInterval time.Duration

	// closing ends every watcher; watchers tracks their goroutines.
	closing  context.Context
	shutdown context.CancelFunc
	watchers sync.WaitGroup
}

// Option configures a Store.
type Option func(*Store)

// WithEventLogger makes the store emit store.* events for every mutation.
func WithEventLogger(l *otel.Logger) Option {
	return func(s *Store) { s.events = l }
}

// WithMinInterval paces live-query re-reads. Writes landing inside the
// interval are coalesced into a single emission. Zero disables pacing.
func WithMinInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.minInterval = d
		}
	}
}

// NewStore opens (or creates) the SQLite database at dbPath.
//
// ":memory:" opens a private in-memory database. The pool is limited to a
// single connection: SQLite allows one writer at a time, and an in-memory
// database only exists on the connection that created it.
func NewStore(dbPath string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := applyPragmas(db, dbPath != ":memory:"); err != nil {
		db.Close()
		return nil, err
	}

	s := newStore(db, opts...)
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logging.Info("Database initialized", "path", dbPath)
	return s, nil
}

// newStore wraps an already-open handle. Used directly by tests that inject
// a mocked driver.
func newStore(db *sql.DB, opts ...Option) *Store {
	closing, shutdown := context.WithCancel(context.Background())
	s := &Store{
		db:       db,
		notify:   newNotifier(),
		closing:  closing,
		shutdown: shutdown,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func applyPragmas(db *sql.DB, file bool) error {
	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
	}
	if file {
		// WAL is meaningless for :memory:
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL", "PRAGMA synchronous = NORMAL")
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func (s *Store) migrate() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version != 0 && version != schemaVersion {
		logging.Warn("Schema version changed, recreating posts table",
			"found", version,
			"want", schemaVersion)
		if _, err := s.db.Exec("DROP TABLE IF EXISTS posts"); err != nil {
			return fmt.Errorf("drop posts: %w", err)
		}
	}

	schema := `
	CREATE TABLE IF NOT EXISTS posts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		author TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}

	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// Close ends all live queries, waits for their goroutines to return and then
// closes the database. Watch channels still open are closed.
func (s *Store) Close() error {
	s.mu.Lock()
	s.shutdown()
	s.mu.Unlock()
	s.watchers.Wait()
	return s.db.Close()
}

// Version returns the number of committed mutations since the store was opened.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Insert stores a new post and returns it with its assigned id.
//
// A zero ID asks the store to generate one. A positive ID is used as given and
// fails with ErrConstraintViolation if it is already taken. Negative ids are
// rejected the same way.
func (s *Store) Insert(ctx context.Context, p Post) (Post, error) {
	if p.ID < 0 {
		return Post{}, fmt.Errorf("insert post: %w: negative id %d", ErrConstraintViolation, p.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		res sql.Result
		err error
	)
	if p.ID == 0 {
		res, err = s.db.ExecContext(ctx,
			"INSERT INTO posts (title, description, author) VALUES (?, ?, ?)",
			p.Title, p.Description, p.Author)
	} else {
		res, err = s.db.ExecContext(ctx,
			"INSERT INTO posts (id, title, description, author) VALUES (?, ?, ?, ?)",
			p.ID, p.Title, p.Description, p.Author)
	}
	if err != nil {
		return Post{}, s.fail("insert post", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return Post{}, s.fail("insert post", err)
	}
	p.ID = id

	s.commitLocked(otel.KindStoreInsert, id)
	return p, nil
}

// Update replaces title, description and author of the row with p.ID.
// Returns ErrNotFound when no such row exists.
func (s *Store) Update(ctx context.Context, p Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE posts SET title = ?, description = ?, author = ? WHERE id = ?",
		p.Title, p.Description, p.Author, p.ID)
	if err != nil {
		return s.fail("update post", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return s.fail("update post", err)
	}
	if n == 0 {
		return fmt.Errorf("update post %d: %w", p.ID, ErrNotFound)
	}

	s.commitLocked(otel.KindStoreUpdate, p.ID)
	return nil
}

// Delete removes the row matching every field of p and reports whether one
// was removed. A post that matches no row exactly is a no-op, not an error.
func (s *Store) Delete(ctx context.Context, p Post) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM posts WHERE id = ? AND title = ? AND description = ? AND author = ?",
		p.ID, p.Title, p.Description, p.Author)
	if err != nil {
		return false, s.fail("delete post", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, s.fail("delete post", err)
	}
	if n == 0 {
		logging.Debug("Delete matched no row", "id", p.ID)
		return false, nil
	}

	s.commitLocked(otel.KindStoreDelete, p.ID)
	return true, nil
}

// Get returns the post with the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id int64) (Post, error) {
	var p Post
	err := s.db.QueryRowContext(ctx,
		"SELECT "+postColumns+" FROM posts WHERE id = ?", id).
		Scan(&p.ID, &p.Title, &p.Description, &p.Author)
	if errors.Is(err, sql.ErrNoRows) {
		return Post{}, fmt.Errorf("get post %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Post{}, classify("get post", err)
	}
	return p, nil
}

// All returns every post ordered by id, oldest first.
func (s *Store) All(ctx context.Context) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+postColumns+" FROM posts ORDER BY id ASC")
	if err != nil {
		return nil, classify("query posts", err)
	}
	defer rows.Close()

	posts := []Post{}
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Author); err != nil {
			return nil, classify("scan post", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate posts", err)
	}
	return posts, nil
}

// commitLocked records a successful mutation and wakes the watchers.
// Caller must hold s.mu.
func (s *Store) commitLocked(kind otel.EventKind, id int64) {
	s.version++
	s.notify.broadcast()
	if s.events != nil {
		s.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: kind, Comp: "store", PostID: id})
	}
}

// fail classifies err and reports it.
func (s *Store) fail(op string, err error) error {
	err = classify(op, err)
	logging.Error("Store operation failed", "op", op, "error", err)
	if s.events != nil {
		s.events.Error(otel.KindStoreError, "store", err)
	}
	return err
}
