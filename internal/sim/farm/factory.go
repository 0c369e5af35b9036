package farm

import (
	"fmt"

	"farmstead.gg/internal/catalogs"
	"farmstead.gg/internal/protocol"
)

func (f *Farm) factoryFor(instanceID int) (*FactoryState, catalogs.ItemDef, Result) {
	fs, ok := f.factories[instanceID]
	if !ok {
		return nil, catalogs.ItemDef{}, resFail(protocol.ErrUnknownID, fmt.Sprintf("no factory instance %d", instanceID))
	}
	obj := f.objectByInstance(instanceID)
	if obj == nil {
		return nil, catalogs.ItemDef{}, resFail(protocol.ErrInternal, fmt.Sprintf("factory %d has no placed object", instanceID))
	}
	item, ok := f.cats.Items.Defs[obj.ItemID]
	if !ok || item.Type != catalogs.TypeFactory {
		return nil, catalogs.ItemDef{}, resFail(protocol.ErrInternal, fmt.Sprintf("factory %d references bad item %q", instanceID, obj.ItemID))
	}
	return fs, item, resOK()
}

func (f *Farm) recipeAllowed(item catalogs.ItemDef, recipeID string) bool {
	for _, rid := range item.RecipeIDs {
		if rid == recipeID {
			return true
		}
	}
	return false
}

// jobDurationMs is the recipe duration shortened by the factory's level speed
// multiplier.
func jobDurationMs(recipe catalogs.RecipeDef, item catalogs.ItemDef, level int) int64 {
	mult := item.SpeedMultiplier(level)
	if mult <= 0 {
		return recipe.DurationMs
	}
	return int64(float64(recipe.DurationMs) / mult)
}

// StartProduction consumes a recipe's inputs and queues a job. Only the head
// job gets a start timestamp; queued jobs are stamped when they reach the
// head at collect time.
func (f *Farm) StartProduction(instanceID int, recipeID string) Result {
	fs, item, res := f.factoryFor(instanceID)
	if !res.OK {
		return res
	}
	recipe, ok := f.cats.Recipes.Defs[recipeID]
	if !ok || !f.recipeAllowed(item, recipeID) {
		return resFail(protocol.ErrUnknownID, fmt.Sprintf("factory cannot run recipe %q", recipeID))
	}
	if recipe.UnlockLevel > f.player.Level {
		return resFail(protocol.ErrLevelLocked, fmt.Sprintf("%s unlocks at level %d", recipe.Name, recipe.UnlockLevel))
	}
	if len(fs.Queue) >= item.QueueCapacity(fs.Level) {
		return resFail(protocol.ErrQueueFull, fmt.Sprintf("queue is full (%d jobs)", len(fs.Queue)))
	}
	if !f.player.consumeFromInventory(recipe.Inputs) {
		return resFail(protocol.ErrNoResource, "missing recipe inputs")
	}
	job := Job{JobID: f.allocJobID(), RecipeID: recipeID}
	if len(fs.Queue) == 0 && !fs.OutputReady {
		job.StartedAtMs = f.nowMs()
	}
	fs.Queue = append(fs.Queue, job)
	fs.LastRecipeID = recipeID
	f.writeAudit("start_production", recipeID, 0, 0, fmt.Sprintf("factory %d", instanceID))
	f.markDirty(true)
	return resOK()
}

// factoryOutputDue reports whether the head job has run its full duration.
func (f *Farm) factoryOutputDue(fs *FactoryState, item catalogs.ItemDef) bool {
	if fs.OutputReady || len(fs.Queue) == 0 {
		return false
	}
	head := fs.Queue[0]
	if head.StartedAtMs <= 0 {
		return false
	}
	recipe, ok := f.cats.Recipes.Defs[head.RecipeID]
	if !ok {
		return false
	}
	return f.nowMs() >= head.StartedAtMs+jobDurationMs(recipe, item, fs.Level)
}

// stepFactories flips output-ready flags. Readiness is observed at tick
// granularity, never mid-tick.
func (f *Farm) stepFactories() {
	for id, fs := range f.factories {
		_, item, res := f.factoryFor(id)
		if !res.OK {
			continue
		}
		if f.factoryOutputDue(fs, item) {
			fs.OutputReady = true
			f.markDirty(false)
		}
	}
}

// CollectFactory banks a finished output, starts the next queued job, and
// re-queues the last recipe when auto-run is on. A full inventory leaves the
// output waiting in the factory.
func (f *Farm) CollectFactory(instanceID int) Result {
	fs, item, res := f.factoryFor(instanceID)
	if !res.OK {
		return res
	}
	if !fs.OutputReady {
		return resFail(protocol.ErrNotReady, "no output ready")
	}
	head := fs.Queue[0]
	recipe, ok := f.cats.Recipes.Defs[head.RecipeID]
	if !ok {
		return resFail(protocol.ErrInternal, fmt.Sprintf("job references unknown recipe %q", head.RecipeID))
	}
	if !f.player.addToInventory(recipe.OutputID, recipe.OutputQty) {
		return resFail(protocol.ErrNoStorage, "storage is full")
	}
	fs.Queue = fs.Queue[1:]
	fs.OutputReady = false
	if len(fs.Queue) > 0 {
		fs.Queue[0].StartedAtMs = f.nowMs()
	} else if fs.AutoRun && fs.LastRecipeID != "" {
		// Silent refill: a failed auto-run (missing inputs, locked recipe)
		// just leaves the factory idle.
		f.autoQueue(fs, item)
	}
	f.writeAudit("collect_factory", recipe.OutputID, 0, 0, fmt.Sprintf("factory %d", instanceID))
	f.markDirty(true)
	return resOK()
}

func (f *Farm) autoQueue(fs *FactoryState, item catalogs.ItemDef) {
	recipe, ok := f.cats.Recipes.Defs[fs.LastRecipeID]
	if !ok || !f.recipeAllowed(item, fs.LastRecipeID) {
		return
	}
	if recipe.UnlockLevel > f.player.Level {
		return
	}
	if !f.player.consumeFromInventory(recipe.Inputs) {
		return
	}
	fs.Queue = append(fs.Queue, Job{JobID: f.allocJobID(), RecipeID: fs.LastRecipeID, StartedAtMs: f.nowMs()})
}

// UpgradeFactory raises the level for upgradeCost x currentLevel coins,
// widening the queue and speeding up jobs already running.
func (f *Farm) UpgradeFactory(instanceID int) Result {
	fs, item, res := f.factoryFor(instanceID)
	if !res.OK {
		return res
	}
	cost := int64(item.UpgradeCost) * int64(fs.Level)
	if !f.player.spendCoins(cost) {
		return resFail(protocol.ErrNoFunds, fmt.Sprintf("upgrade costs %d coins", cost))
	}
	fs.Level++
	f.writeAudit("upgrade_factory", item.ID, 0, 0, fmt.Sprintf("to level %d", fs.Level))
	f.markDirty(true)
	return resOK()
}

// ToggleAutoRun flips the factory's auto-refill flag.
func (f *Farm) ToggleAutoRun(instanceID int) Result {
	fs, _, res := f.factoryFor(instanceID)
	if !res.OK {
		return res
	}
	fs.AutoRun = !fs.AutoRun
	f.markDirty(false)
	return resOK()
}
