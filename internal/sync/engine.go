// Package sync drives the save pipeline between the live farm and the
// document store. Saves are debounced, serialized, and written with an
// optimistic revision check; the engine also watches the store's notification
// stream, swallowing echoes of its own writes and treating any foreign write
// as a terminal conflict.
package sync

import (
	"context"
	"errors"
	"log"
	stdsync "sync"
	"time"

	"github.com/google/uuid"

	"farmstead.gg/internal/persistence/docstore"
	"farmstead.gg/internal/sim/farm"
)

type SaveStatus string

const (
	StatusSynced   SaveStatus = "synced"
	StatusPending  SaveStatus = "pending"
	StatusSaving   SaveStatus = "saving"
	StatusFailed   SaveStatus = "failed"
	StatusConflict SaveStatus = "conflict"
)

type Config struct {
	PlayerID string
	// SessionID tags this engine's writes so its own notifications can be
	// recognized. Defaults to a fresh uuid.
	SessionID  string
	DebounceMs int
	RetryMs    int
	Logger     *log.Logger

	// OnConflict fires exactly once, when a foreign write is detected. After
	// it returns the engine is frozen: no further saves leave this process.
	OnConflict func(docstore.Notification)
}

// State is a point-in-time snapshot of the pipeline, for metrics.
type State struct {
	Status       SaveStatus
	SessionID    string
	LastSyncedAt int64
	PendingMuts  int
	QueuedSave   bool
	SavesOK      uint64
	Failures     uint64
	Conflicts    uint64
}

type Engine struct {
	store docstore.Store
	cfg   Config
	lg    *log.Logger

	mu           stdsync.Mutex
	status       SaveStatus
	lastSyncedAt int64
	pending      map[string]struct{}
	queued       *farm.DocumentSave
	frozen       bool
	savesOK      uint64
	failures     uint64
	conflicts    uint64
}

func New(store docstore.Store, cfg Config) *Engine {
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}
	if cfg.DebounceMs <= 0 {
		cfg.DebounceMs = 2000
	}
	if cfg.RetryMs <= 0 {
		cfg.RetryMs = cfg.DebounceMs
	}
	lg := cfg.Logger
	if lg == nil {
		lg = log.Default()
	}
	return &Engine{
		store:   store,
		cfg:     cfg,
		lg:      lg,
		status:  StatusSynced,
		pending: map[string]struct{}{},
	}
}

// Seed primes the engine with the revision of a document loaded before the
// engine started, so its first save carries the right precondition.
func (e *Engine) Seed(meta docstore.Meta) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastSyncedAt = meta.UpdatedAt
}

func (e *Engine) SessionID() string { return e.cfg.SessionID }

func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{
		Status:       e.status,
		SessionID:    e.cfg.SessionID,
		LastSyncedAt: e.lastSyncedAt,
		PendingMuts:  len(e.pending),
		QueuedSave:   e.queued != nil,
		SavesOK:      e.savesOK,
		Failures:     e.failures,
		Conflicts:    e.conflicts,
	}
}

// Run owns the pipeline until ctx ends or the save channel closes. A close
// triggers one final flush so a clean shutdown never loses the last state.
func (e *Engine) Run(ctx context.Context, saves <-chan farm.DocumentSave) error {
	notes, unsubscribe := e.store.Subscribe(e.cfg.PlayerID)
	defer unsubscribe()

	debounce := time.NewTimer(time.Hour)
	stopTimer(debounce)
	defer debounce.Stop()
	retry := time.NewTimer(time.Hour)
	stopTimer(retry)
	defer retry.Stop()

	for {
		select {
		case <-ctx.Done():
			e.flush(context.Background())
			return ctx.Err()

		case save, ok := <-saves:
			if !ok {
				e.flush(context.Background())
				return nil
			}
			if e.enqueue(save) {
				stopTimer(debounce)
				e.flush(ctx)
			} else {
				resetTimer(debounce, time.Duration(e.cfg.DebounceMs)*time.Millisecond)
			}

		case n, ok := <-notes:
			if !ok {
				notes = nil
				continue
			}
			if e.handleNotification(n) {
				unsubscribe()
				return nil
			}

		case <-debounce.C:
			e.flush(ctx)

		case <-retry.C:
			e.flush(ctx)
		}

		if e.needsRetry() {
			resetTimer(retry, time.Duration(e.cfg.RetryMs)*time.Millisecond)
		}
	}
}

// enqueue stages a save, replacing any staged one (documents are whole-state,
// the newest wins). The critical flag is sticky across replacement. Reports
// whether the save should flush immediately.
func (e *Engine) enqueue(save farm.DocumentSave) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.frozen {
		return false
	}
	if e.queued != nil && e.queued.Critical {
		save.Critical = true
	}
	e.queued = &save
	if e.status == StatusSynced {
		e.status = StatusPending
	}
	return save.Critical
}

// flush writes the staged save, if any. One write at a time; the optimistic
// precondition is the last revision this engine observed.
func (e *Engine) flush(ctx context.Context) {
	e.mu.Lock()
	if e.frozen || e.queued == nil {
		e.mu.Unlock()
		return
	}
	save := *e.queued
	e.queued = nil
	expected := e.lastSyncedAt
	mutationID := uuid.NewString()
	// Registered before the write so the echo can never outrun the caller.
	e.pending[mutationID] = struct{}{}
	e.status = StatusSaving
	e.mu.Unlock()

	meta, err := e.store.Save(ctx, e.cfg.PlayerID, save.Doc, expected, e.cfg.SessionID, mutationID)

	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case err == nil:
		e.lastSyncedAt = meta.UpdatedAt
		e.savesOK++
		if e.status == StatusSaving {
			if e.queued != nil {
				e.status = StatusPending
			} else {
				e.status = StatusSynced
			}
		}

	case errors.Is(err, docstore.ErrConflict):
		delete(e.pending, mutationID)
		e.freezeLocked(docstore.Notification{PlayerID: e.cfg.PlayerID})
		e.lg.Printf("save conflict for %s: %v", e.cfg.PlayerID, err)

	default:
		delete(e.pending, mutationID)
		e.failures++
		e.status = StatusFailed
		// Requeue unless a newer save already replaced it.
		if e.queued == nil {
			e.queued = &save
		} else if save.Critical {
			e.queued.Critical = true
		}
		e.lg.Printf("save failed for %s (will retry): %v", e.cfg.PlayerID, err)
	}
}

// handleNotification classifies a store notification. Our own writes come
// back as echoes and are absorbed; anything else means another writer owns
// the document now. Returns true when the engine froze on a conflict.
func (e *Engine) handleNotification(n docstore.Notification) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.frozen {
		return false
	}
	if n.Meta.SessionID == e.cfg.SessionID {
		if _, ours := e.pending[n.Meta.MutationID]; ours {
			delete(e.pending, n.Meta.MutationID)
			if n.Meta.UpdatedAt > e.lastSyncedAt {
				e.lastSyncedAt = n.Meta.UpdatedAt
			}
			return false
		}
		// Redelivery of an already-absorbed echo.
		if n.Meta.UpdatedAt <= e.lastSyncedAt {
			return false
		}
	}
	if n.Meta.UpdatedAt <= e.lastSyncedAt {
		// Stale notification from before our last write.
		return false
	}
	e.freezeLocked(n)
	return true
}

// freezeLocked records a conflict and permanently stops writing. The farm
// keeps simulating; losing new progress beats silently clobbering whoever
// took over the document.
func (e *Engine) freezeLocked(n docstore.Notification) {
	if e.frozen {
		return
	}
	e.frozen = true
	e.status = StatusConflict
	e.conflicts++
	e.queued = nil
	if e.cfg.OnConflict != nil {
		cb := e.cfg.OnConflict
		go cb(n)
	}
}

func (e *Engine) needsRetry() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status == StatusFailed && e.queued != nil && !e.frozen
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	stopTimer(t)
	t.Reset(d)
}
