package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"farmstead.gg/internal/sim/farm"
)

// SQLiteStore keeps one row per player plus an archive of superseded
// payloads. The pool is pinned to a single connection, so every
// transaction sees the writer lock in turn and the optimistic
// compare-and-swap in beginWrite is race free without BEGIN IMMEDIATE.
type SQLiteStore struct {
	db *sql.DB

	mu     sync.Mutex
	subs   map[string][]chan Notification
	closed atomic.Bool
	once   sync.Once

	nowNanos func() int64
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{
		db:       db,
		subs:     map[string][]chan Notification{},
		nowNanos: func() int64 { return time.Now().UnixNano() },
	}, nil
}

func initPragmas(db *sql.DB) error {
	// WAL keeps readers off the writer's back; NORMAL is enough durability
	// for a state that is also rebuilt from the live sim on restart.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			player_id TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			session_id TEXT NOT NULL DEFAULT '',
			mutation_id TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS documents_archive (
			player_id TEXT NOT NULL,
			payload TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			superseded_at INTEGER NOT NULL,
			PRIMARY KEY (player_id, updated_at)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_archive_superseded ON documents_archive(superseded_at);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		s.mu.Lock()
		for _, chans := range s.subs {
			for _, ch := range chans {
				close(ch)
			}
		}
		s.subs = map[string][]chan Notification{}
		s.mu.Unlock()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteStore) Load(ctx context.Context, playerID string) (farm.GameDocument, Meta, error) {
	var payload string
	var meta Meta
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, updated_at, session_id, mutation_id FROM documents WHERE player_id = ?`,
		playerID).Scan(&payload, &meta.UpdatedAt, &meta.SessionID, &meta.MutationID)
	if err == sql.ErrNoRows {
		return farm.GameDocument{}, Meta{}, ErrNotFound
	}
	if err != nil {
		return farm.GameDocument{}, Meta{}, err
	}
	var doc farm.GameDocument
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return farm.GameDocument{}, Meta{}, fmt.Errorf("decode document for %s: %w", playerID, err)
	}
	return doc, meta, nil
}

func (s *SQLiteStore) Save(ctx context.Context, playerID string, doc farm.GameDocument, expectedUpdatedAt int64, sessionID, mutationID string) (Meta, error) {
	payload, err := json.Marshal(doc)
	if err != nil {
		return Meta{}, err
	}

	tx, err := s.beginWrite(ctx)
	if err != nil {
		return Meta{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var stored int64
	var prevPayload string
	hasRow := true
	err = tx.QueryRowContext(ctx,
		`SELECT updated_at, payload FROM documents WHERE player_id = ?`, playerID).
		Scan(&stored, &prevPayload)
	if err == sql.ErrNoRows {
		hasRow = false
	} else if err != nil {
		return Meta{}, err
	}

	if hasRow && stored != expectedUpdatedAt {
		return Meta{}, fmt.Errorf("%w: stored %d, expected %d", ErrConflict, stored, expectedUpdatedAt)
	}
	if !hasRow && expectedUpdatedAt != 0 {
		return Meta{}, fmt.Errorf("%w: document deleted, expected %d", ErrConflict, expectedUpdatedAt)
	}

	meta := Meta{UpdatedAt: s.nextRevision(stored), SessionID: sessionID, MutationID: mutationID}
	if hasRow {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO documents_archive(player_id, payload, updated_at, superseded_at) VALUES(?,?,?,?)`,
			playerID, prevPayload, stored, meta.UpdatedAt); err != nil {
			return Meta{}, err
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents(player_id, payload, updated_at, session_id, mutation_id) VALUES(?,?,?,?,?)`,
		playerID, string(payload), meta.UpdatedAt, sessionID, mutationID); err != nil {
		return Meta{}, err
	}
	if err := tx.Commit(); err != nil {
		return Meta{}, err
	}

	s.notify(Notification{PlayerID: playerID, Doc: doc, Meta: meta})
	return meta, nil
}

func (s *SQLiteStore) ApplyDeltas(ctx context.Context, playerID string, deltas ResourceDeltas, sessionID, mutationID string) (Meta, error) {
	tx, err := s.beginWrite(ctx)
	if err != nil {
		return Meta{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var stored int64
	var payload string
	err = tx.QueryRowContext(ctx,
		`SELECT updated_at, payload FROM documents WHERE player_id = ?`, playerID).
		Scan(&stored, &payload)
	if err == sql.ErrNoRows {
		return Meta{}, ErrNotFound
	}
	if err != nil {
		return Meta{}, err
	}

	var doc farm.GameDocument
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return Meta{}, fmt.Errorf("decode document for %s: %w", playerID, err)
	}
	doc.Player.Coins += deltas.Coins
	doc.Player.XP += deltas.XP
	if doc.Player.Inventory == nil {
		doc.Player.Inventory = map[string]int{}
	}
	for id, d := range deltas.Inventory {
		doc.Player.Inventory[id] += d
	}
	for id, qty := range doc.Player.Inventory {
		if qty <= 0 {
			delete(doc.Player.Inventory, id)
		}
	}

	next, err := json.Marshal(doc)
	if err != nil {
		return Meta{}, err
	}
	meta := Meta{UpdatedAt: s.nextRevision(stored), SessionID: sessionID, MutationID: mutationID}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents_archive(player_id, payload, updated_at, superseded_at) VALUES(?,?,?,?)`,
		playerID, payload, stored, meta.UpdatedAt); err != nil {
		return Meta{}, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET payload = ?, updated_at = ?, session_id = ?, mutation_id = ? WHERE player_id = ?`,
		string(next), meta.UpdatedAt, sessionID, mutationID, playerID); err != nil {
		return Meta{}, err
	}
	if err := tx.Commit(); err != nil {
		return Meta{}, err
	}

	s.notify(Notification{PlayerID: playerID, Doc: doc, Meta: meta})
	return meta, nil
}

// ArchivedRevision is one superseded payload row, for ops inspection.
type ArchivedRevision struct {
	UpdatedAt    int64
	SupersededAt int64
}

// ArchivedRevisions lists superseded revisions newest first. Not part of the
// Store interface; the archive is an ops concern, not a sync one.
func (s *SQLiteStore) ArchivedRevisions(ctx context.Context, playerID string, limit int) ([]ArchivedRevision, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT updated_at, superseded_at FROM documents_archive WHERE player_id = ? ORDER BY updated_at DESC LIMIT ?`,
		playerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ArchivedRevision
	for rows.Next() {
		var r ArchivedRevision
		if err := rows.Scan(&r.UpdatedAt, &r.SupersededAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Subscribe(playerID string) (<-chan Notification, func()) {
	ch := make(chan Notification, 64)
	s.mu.Lock()
	s.subs[playerID] = append(s.subs[playerID], ch)
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			chans := s.subs[playerID]
			for i, c := range chans {
				if c == ch {
					s.subs[playerID] = append(chans[:i], chans[i+1:]...)
					if !s.closed.Load() {
						close(ch)
					}
					return
				}
			}
		})
	}
	return ch, cancel
}

// notify fans a committed write out to subscribers. A slow subscriber loses
// its oldest pending notification, never the newest.
func (s *SQLiteStore) notify(n Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs[n.PlayerID] {
		select {
		case ch <- n:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- n:
		default:
		}
	}
}

// nextRevision is wall-clock nanos, bumped past the previous revision so the
// stamp is strictly monotonic even under clock skew.
func (s *SQLiteStore) nextRevision(prev int64) int64 {
	now := s.nowNanos()
	if now <= prev {
		return prev + 1
	}
	return now
}

// beginWrite starts a write transaction. The pool is pinned to one
// connection, so transactions fully serialize and the read-compare-write in
// Save cannot interleave with another writer.
func (s *SQLiteStore) beginWrite(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, nil)
}
