package farm

import (
	"testing"

	"farmstead.gg/internal/protocol"
)

// millFarm returns a level-3 farm with a placed mill and wheat on hand.
func millFarm(t *testing.T) (*Farm, int, *int64) {
	t.Helper()
	f, now := newTestFarm(t)
	f.player.XP = 2000
	f.player.Level = f.levelForXP(f.player.XP)
	mill := buyAt(t, f, "mill")
	f.player.Inventory["wheat"] = 20
	return f, mill.InstanceID, now
}

func TestStartProductionConsumesInputs(t *testing.T) {
	f, mill, now := millFarm(t)

	mustFail(t, f.StartProduction(999, "wheat_to_flour"), protocol.ErrUnknownID)
	mustFail(t, f.StartProduction(mill, "no_such_recipe"), protocol.ErrUnknownID)

	mustOK(t, f.StartProduction(mill, "wheat_to_flour"))
	if f.player.Inventory["wheat"] != 18 {
		t.Fatalf("wheat = %d, want 18 (2 consumed)", f.player.Inventory["wheat"])
	}
	fs := f.factories[mill]
	if len(fs.Queue) != 1 {
		t.Fatalf("queue = %d, want 1", len(fs.Queue))
	}
	if fs.Queue[0].StartedAtMs != *now {
		t.Fatalf("head job start = %d, want %d (head runs immediately)", fs.Queue[0].StartedAtMs, *now)
	}

	// Second job queues behind the first without a start time.
	mustOK(t, f.StartProduction(mill, "wheat_to_flour"))
	if fs.Queue[1].StartedAtMs != 0 {
		t.Fatalf("queued job start = %d, want 0 (stamped at collect)", fs.Queue[1].StartedAtMs)
	}

	// Level 1 queue capacity is base_queue_size = 2.
	mustFail(t, f.StartProduction(mill, "wheat_to_flour"), protocol.ErrQueueFull)

	f.player.Inventory["wheat"] = 1
	fs.Queue = fs.Queue[:1]
	mustFail(t, f.StartProduction(mill, "wheat_to_flour"), protocol.ErrNoResource)
	if f.player.Inventory["wheat"] != 1 {
		t.Fatal("failed start must not consume inputs")
	}
}

func TestFactoryReadinessAndCollect(t *testing.T) {
	f, mill, now := millFarm(t)
	mustOK(t, f.StartProduction(mill, "wheat_to_flour"))
	mustOK(t, f.StartProduction(mill, "wheat_to_flour"))
	fs := f.factories[mill]

	mustFail(t, f.CollectFactory(mill), protocol.ErrNotReady)

	// Readiness flips at the step after the duration elapses, not mid-tick.
	*now += 14_999
	f.stepFactories()
	if fs.OutputReady {
		t.Fatal("output ready 1ms early")
	}
	*now += 1
	f.stepFactories()
	if !fs.OutputReady {
		t.Fatal("output should be ready after 15s at level 1")
	}

	collectAt := *now
	mustOK(t, f.CollectFactory(mill))
	if f.player.Inventory["flour"] != 1 {
		t.Fatalf("flour = %d, want 1", f.player.Inventory["flour"])
	}
	if fs.OutputReady {
		t.Fatal("collect must clear the ready flag")
	}
	if len(fs.Queue) != 1 || fs.Queue[0].StartedAtMs != collectAt {
		t.Fatalf("next job = %+v, want started at %d", fs.Queue, collectAt)
	}
}

func TestCollectBlockedByFullStorageKeepsOutput(t *testing.T) {
	f, mill, now := millFarm(t)
	mustOK(t, f.StartProduction(mill, "wheat_to_flour"))
	*now += 20_000
	f.stepFactories()

	f.player.Inventory["egg"] = f.player.Storage.Max - f.player.inventoryCount()
	mustFail(t, f.CollectFactory(mill), protocol.ErrNoStorage)
	fs := f.factories[mill]
	if !fs.OutputReady || len(fs.Queue) != 1 {
		t.Fatal("blocked collect must leave the output waiting")
	}
}

func TestAutoRunRequeuesSilently(t *testing.T) {
	f, mill, now := millFarm(t)
	mustOK(t, f.ToggleAutoRun(mill))
	fs := f.factories[mill]
	if !fs.AutoRun {
		t.Fatal("toggle should enable auto-run")
	}

	mustOK(t, f.StartProduction(mill, "wheat_to_flour"))
	*now += 20_000
	f.stepFactories()
	mustOK(t, f.CollectFactory(mill))

	// Auto-run refilled the queue from the last recipe.
	if len(fs.Queue) != 1 || fs.Queue[0].RecipeID != "wheat_to_flour" {
		t.Fatalf("auto-run queue = %+v, want one wheat_to_flour job", fs.Queue)
	}
	if fs.Queue[0].StartedAtMs != *now {
		t.Fatal("auto-run job should start immediately")
	}

	// Starve the inputs: auto-run fails without an error surfacing.
	*now += 20_000
	f.stepFactories()
	f.player.Inventory = map[string]int{}
	mustOK(t, f.CollectFactory(mill))
	if len(fs.Queue) != 0 {
		t.Fatalf("starved auto-run queued %d jobs, want idle factory", len(fs.Queue))
	}
}

func TestUpgradeFactory(t *testing.T) {
	f, mill, _ := millFarm(t)
	fs := f.factories[mill]
	f.player.Coins = 250

	mustOK(t, f.UpgradeFactory(mill)) // 100 * level 1
	if fs.Level != 2 || f.player.Coins != 150 {
		t.Fatalf("after first upgrade: level=%d coins=%d", fs.Level, f.player.Coins)
	}
	mustFail(t, f.UpgradeFactory(mill), protocol.ErrNoFunds) // 100 * level 2 = 200 > 150
	if fs.Level != 2 {
		t.Fatal("failed upgrade must not change the level")
	}

	// Level 2 widens the queue to 3.
	f.player.Inventory["wheat"] = 20
	mustOK(t, f.StartProduction(mill, "wheat_to_flour"))
	mustOK(t, f.StartProduction(mill, "wheat_to_flour"))
	mustOK(t, f.StartProduction(mill, "wheat_to_flour"))
	mustFail(t, f.StartProduction(mill, "wheat_to_flour"), protocol.ErrQueueFull)
}

func TestUpgradeSpeedsUpJobs(t *testing.T) {
	f, mill, now := millFarm(t)
	fs := f.factories[mill]
	fs.Level = 2 // +10% speed: 15000 / 1.1 = 13636ms

	mustOK(t, f.StartProduction(mill, "wheat_to_flour"))
	*now += 13_636
	f.stepFactories()
	if !fs.OutputReady {
		t.Fatal("level 2 job should finish in 13636ms")
	}
}
