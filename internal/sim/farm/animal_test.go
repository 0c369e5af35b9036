package farm

import (
	"testing"

	"farmstead.gg/internal/protocol"
)

func coopFarm(t *testing.T) (*Farm, int, *int64) {
	t.Helper()
	f, now := newTestFarm(t)
	f.player.XP = 1000
	f.player.Level = f.levelForXP(f.player.XP)
	coop := buyAt(t, f, "chicken_coop")
	return f, coop.InstanceID, now
}

func TestCollectAnimalCycle(t *testing.T) {
	f, coop, now := coopFarm(t)
	as := f.animals[coop]
	if as.LastCollectionMs != *now {
		t.Fatalf("fresh housing cycle starts at purchase: %d, want %d", as.LastCollectionMs, *now)
	}

	mustFail(t, f.CollectAnimal(999), protocol.ErrUnknownID)
	mustFail(t, f.CollectAnimal(coop), protocol.ErrNotReady)

	*now += 59_999
	mustFail(t, f.CollectAnimal(coop), protocol.ErrNotReady)

	*now += 1 // production_time_ms = 60000
	mustOK(t, f.CollectAnimal(coop))
	if f.player.Inventory["egg"] != 1 {
		t.Fatalf("egg = %d, want 1", f.player.Inventory["egg"])
	}
	if as.LastCollectionMs != *now {
		t.Fatal("collect must restart the cycle from now")
	}
	mustFail(t, f.CollectAnimal(coop), protocol.ErrNotReady)
}

func TestCollectAnimalFullStorageKeepsCycle(t *testing.T) {
	f, coop, now := coopFarm(t)
	as := f.animals[coop]
	before := as.LastCollectionMs
	*now += 60_000
	f.player.Inventory["wheat"] = f.player.Storage.Max

	mustFail(t, f.CollectAnimal(coop), protocol.ErrNoStorage)
	if as.LastCollectionMs != before {
		t.Fatal("blocked collect must not restart the production cycle")
	}
}
