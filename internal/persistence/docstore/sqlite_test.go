package docstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"farmstead.gg/internal/sim/farm"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "farm.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testDoc(coins int64) farm.GameDocument {
	return farm.GameDocument{
		Version:  1,
		PlayerID: "p1",
		Player: farm.PlayerState{
			Coins:     coins,
			XP:        100,
			Storage:   farm.Storage{Max: 50},
			Inventory: map[string]int{"wheat": 3},
		},
	}
}

func TestLoadMissing(t *testing.T) {
	s := openTestStore(t)
	_, _, err := s.Load(context.Background(), "nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	meta, err := s.Save(ctx, "p1", testDoc(500), 0, "S1", "m1")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if meta.UpdatedAt <= 0 {
		t.Fatalf("updated_at = %d, want positive", meta.UpdatedAt)
	}

	doc, got, err := s.Load(ctx, "p1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != meta {
		t.Fatalf("meta = %+v, want %+v", got, meta)
	}
	if doc.Player.Coins != 500 || doc.Player.Inventory["wheat"] != 3 {
		t.Fatalf("doc = %+v", doc.Player)
	}
}

func TestSaveConflicts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Creating over nothing with a stale revision fails.
	if _, err := s.Save(ctx, "p1", testDoc(1), 123, "S1", "m0"); !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}

	first, err := s.Save(ctx, "p1", testDoc(500), 0, "S1", "m1")
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	// A writer holding the old revision loses.
	if _, err := s.Save(ctx, "p1", testDoc(600), first.UpdatedAt-1, "S2", "m2"); !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	// The losing write must not have touched the document.
	doc, meta, err := s.Load(ctx, "p1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.Player.Coins != 500 || meta != first {
		t.Fatalf("conflict mutated state: coins=%d meta=%+v", doc.Player.Coins, meta)
	}

	// The current revision wins.
	second, err := s.Save(ctx, "p1", testDoc(600), first.UpdatedAt, "S2", "m2")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if second.UpdatedAt <= first.UpdatedAt {
		t.Fatalf("revision did not advance: %d -> %d", first.UpdatedAt, second.UpdatedAt)
	}
}

func TestRevisionMonotonicUnderClockSkew(t *testing.T) {
	s := openTestStore(t)
	s.nowNanos = func() int64 { return 1000 } // frozen clock
	ctx := context.Background()

	m1, err := s.Save(ctx, "p1", testDoc(1), 0, "S1", "m1")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	m2, err := s.Save(ctx, "p1", testDoc(2), m1.UpdatedAt, "S1", "m2")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if m2.UpdatedAt <= m1.UpdatedAt {
		t.Fatalf("revisions %d, %d: must strictly increase even with a stuck clock", m1.UpdatedAt, m2.UpdatedAt)
	}
}

func TestSubscribeSeesCommittedWrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ch, cancel := s.Subscribe("p1")
	defer cancel()

	meta, err := s.Save(ctx, "p1", testDoc(500), 0, "S1", "m1")
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	n := <-ch
	if n.PlayerID != "p1" || n.Meta != meta {
		t.Fatalf("notification = %+v, want meta %+v", n, meta)
	}
	if n.Doc.Player.Coins != 500 {
		t.Fatalf("notification doc coins = %d", n.Doc.Player.Coins)
	}

	// Writes to other players are not delivered.
	if _, err := s.Save(ctx, "p2", testDoc(1), 0, "S9", "m9"); err != nil {
		t.Fatalf("save p2: %v", err)
	}
	select {
	case extra := <-ch:
		t.Fatalf("unexpected notification %+v", extra)
	default:
	}
}

func TestSubscribeCancelStopsDelivery(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ch, cancel := s.Subscribe("p1")
	cancel()
	cancel() // idempotent

	if _, err := s.Save(ctx, "p1", testDoc(1), 0, "S1", "m1"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if n, ok := <-ch; ok {
		t.Fatalf("closed subscription delivered %+v", n)
	}
}

func TestApplyDeltas(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.Save(ctx, "p1", testDoc(500), 0, "S1", "m1")
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	meta, err := s.ApplyDeltas(ctx, "p1", ResourceDeltas{
		Coins:     -100,
		XP:        25,
		Inventory: map[string]int{"wheat": -3, "egg": 2},
	}, "admin", "m2")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if meta.UpdatedAt <= first.UpdatedAt {
		t.Fatal("deltas must advance the revision")
	}
	if meta.SessionID != "admin" || meta.MutationID != "m2" {
		t.Fatalf("meta = %+v", meta)
	}

	doc, _, err := s.Load(ctx, "p1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.Player.Coins != 400 || doc.Player.XP != 125 {
		t.Fatalf("ledger = %+v", doc.Player)
	}
	if _, ok := doc.Player.Inventory["wheat"]; ok {
		t.Fatal("wheat dropped to zero and must be pruned")
	}
	if doc.Player.Inventory["egg"] != 2 {
		t.Fatalf("egg = %d, want 2", doc.Player.Inventory["egg"])
	}

	if _, err := s.ApplyDeltas(ctx, "nobody", ResourceDeltas{Coins: 1}, "admin", "m3"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestArchiveKeepsSupersededPayloads(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	m1, _ := s.Save(ctx, "p1", testDoc(100), 0, "S1", "m1")
	m2, err := s.Save(ctx, "p1", testDoc(200), m1.UpdatedAt, "S1", "m2")
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	revs, err := s.ArchivedRevisions(ctx, "p1", 10)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if len(revs) != 1 {
		t.Fatalf("archive rows = %d, want 1", len(revs))
	}
	if revs[0].UpdatedAt != m1.UpdatedAt || revs[0].SupersededAt != m2.UpdatedAt {
		t.Fatalf("archived revision = %+v", revs[0])
	}
}
