// Package docstore persists farm documents with optimistic concurrency. Each
// player has exactly one document row; writers carry the updated_at they last
// observed and lose with ErrConflict if someone else wrote in between.
// Subscribers get an in-process notification for every committed write,
// tagged with the writer's session and mutation ids so a client can tell its
// own echoes from foreign writes.
package docstore

import (
	"context"
	"errors"

	"farmstead.gg/internal/sim/farm"
)

var (
	ErrNotFound = errors.New("docstore: no document")
	ErrConflict = errors.New("docstore: document changed since read")
)

// Meta is the bookkeeping half of a stored document. UpdatedAt is a unix-nano
// revision stamp, strictly monotonic per player.
type Meta struct {
	UpdatedAt  int64
	SessionID  string
	MutationID string
}

// Notification is delivered to subscribers after a write commits.
type Notification struct {
	PlayerID string
	Doc      farm.GameDocument
	Meta     Meta
}

// ResourceDeltas is a server-side ledger adjustment applied directly to the
// stored document, bypassing the optimistic check. Inventory entries that
// drop to zero or below are pruned.
type ResourceDeltas struct {
	Coins     int64
	XP        int64
	Inventory map[string]int
}

type Store interface {
	// Load returns the current document and its revision, or ErrNotFound.
	Load(ctx context.Context, playerID string) (farm.GameDocument, Meta, error)

	// Save writes doc if the stored revision still equals expectedUpdatedAt
	// (0 means "no document yet"). On success the new Meta is returned; a
	// concurrent write yields ErrConflict and no state change.
	Save(ctx context.Context, playerID string, doc farm.GameDocument, expectedUpdatedAt int64, sessionID, mutationID string) (Meta, error)

	// ApplyDeltas adjusts coins, xp, and inventory inside a transaction
	// without an optimistic precondition. Increments commute, so no
	// expected revision is needed; the write is still stamped with the
	// caller's mutation metadata and notified like any other write.
	ApplyDeltas(ctx context.Context, playerID string, deltas ResourceDeltas, sessionID, mutationID string) (Meta, error)

	// Subscribe streams committed writes for one player. The cancel func
	// must be called exactly once; after it returns no more notifications
	// are delivered.
	Subscribe(playerID string) (<-chan Notification, func())

	Close() error
}
