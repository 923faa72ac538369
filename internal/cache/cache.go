// Package cache implements the durable local session cache: a single-row
// SQLite snapshot of the conversation state with a once-daily staleness
// policy. The examination is a daily ritual, so a snapshot whose last
// activity predates the current calendar day is discarded on load.
package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"examen/internal/logging"
	"examen/internal/types"
)

// schemaVersion is stored alongside the snapshot so future field changes can
// invalidate old rows instead of corrupting restored sessions.
const schemaVersion = 1

// Cache is the durable, device-scoped store for the serialized conversation
// state. Only the conversation controller writes to it.
type Cache struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

// snapshot is the persisted layout. Timestamps round-trip through the JSON
// encoding of time.Time (RFC 3339 with nanoseconds) and compare equal as
// instants after a load.
type snapshot struct {
	Messages        []types.Message `json:"messages"`
	Completed       bool            `json:"completed"`
	Mode            types.Mode      `json:"mode"`
	CurrentQuestion *types.Question `json:"current_question,omitempty"`
}

// Open initializes the cache database at path, creating the schema when
// missing.
func Open(path string) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.CacheDebug("failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.CacheDebug("failed to set sqlite journal_mode=WAL: %v", err)
	}

	c := &Cache{db: db, now: time.Now}
	if err := c.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.CacheDebug("session cache ready at %s", path)
	return c, nil
}

func (c *Cache) initialize() error {
	_, err := c.db.Exec(`
	CREATE TABLE IF NOT EXISTS session_snapshot (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		schema_version INTEGER NOT NULL,
		state_json TEXT NOT NULL,
		saved_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`)
	if err != nil {
		return fmt.Errorf("failed to initialize cache schema: %w", err)
	}
	return nil
}

// Close releases the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Load reads the persisted conversation state. It returns (nil, nil) when no
// usable snapshot exists: row absent, schema version mismatch, broken JSON,
// an empty transcript, or a last message from a previous calendar day. All
// of those clear the row so the caller falls through to an authoritative
// fetch. An error is returned only for database-level failures.
func (c *Cache) Load() (*types.ConversationState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var version int
	var stateJSON string
	err := c.db.QueryRow(
		"SELECT schema_version, state_json FROM session_snapshot WHERE id = 1",
	).Scan(&version, &stateJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session snapshot: %w", err)
	}

	if version != schemaVersion {
		logging.CacheDebug("snapshot schema version %d != %d, discarding", version, schemaVersion)
		return nil, c.clearLocked()
	}

	var snap snapshot
	if err := json.Unmarshal([]byte(stateJSON), &snap); err != nil {
		logging.Get(logging.CategoryCache).Warn("snapshot deserialization failed, discarding: %v", err)
		return nil, c.clearLocked()
	}

	// A snapshot with no messages carries no evidence of today's session and
	// is never considered fresh.
	if len(snap.Messages) == 0 {
		return nil, c.clearLocked()
	}
	last := snap.Messages[len(snap.Messages)-1].Timestamp
	if !sameCalendarDay(last.Local(), c.now().Local()) {
		logging.CacheDebug("snapshot last activity %s is stale, discarding", last.Format(time.RFC3339))
		return nil, c.clearLocked()
	}

	state := &types.ConversationState{
		Messages:        snap.Messages,
		Completed:       snap.Completed,
		Mode:            snap.Mode,
		CurrentQuestion: snap.CurrentQuestion,
	}
	return state, nil
}

// Save serializes and writes the full state, replacing any previous
// snapshot.
func (c *Cache) Save(state *types.ConversationState) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.Marshal(snapshot{
		Messages:        state.Messages,
		Completed:       state.Completed,
		Mode:            state.Mode,
		CurrentQuestion: state.CurrentQuestion,
	})
	if err != nil {
		return fmt.Errorf("failed to serialize session snapshot: %w", err)
	}

	_, err = c.db.Exec(
		`INSERT INTO session_snapshot (id, schema_version, state_json, saved_at)
		 VALUES (1, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(id) DO UPDATE SET
		   schema_version = excluded.schema_version,
		   state_json = excluded.state_json,
		   saved_at = excluded.saved_at`,
		schemaVersion, string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to write session snapshot: %w", err)
	}
	logging.CacheDebug("snapshot saved (%d messages, mode=%s)", len(state.Messages), state.Mode)
	return nil
}

// Clear removes the persisted snapshot.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clearLocked()
}

func (c *Cache) clearLocked() error {
	if _, err := c.db.Exec("DELETE FROM session_snapshot WHERE id = 1"); err != nil {
		return fmt.Errorf("failed to clear session snapshot: %w", err)
	}
	return nil
}

// SetNowFunc overrides the clock used by the staleness check. Intended for
// tests.
func (c *Cache) SetNowFunc(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
