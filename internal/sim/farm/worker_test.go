package farm

import (
	"fmt"
	"strings"
	"testing"

	"farmstead.gg/internal/protocol"
)

func TestWorkerPriorityOrder(t *testing.T) {
	f, now := newTestFarm(t)
	f.player.XP = 2000
	f.player.Level = f.levelForXP(f.player.XP)

	coop := buyAt(t, f, "chicken_coop")
	mill := buyAt(t, f, "mill")
	f.player.Inventory["wheat"] = 10
	mustOK(t, f.StartProduction(mill.InstanceID, "wheat_to_flour"))
	plot := firstEmptyPlot(t, f)
	mustOK(t, f.Plant(plot, "wheat"))

	// Make everything ready at once.
	*now += 120_000
	f.stepFactories()
	if !f.factories[mill.InstanceID].OutputReady {
		t.Fatal("mill output should be ready")
	}

	task := f.findWorkerTask()
	if task == nil || task.Kind != WorkerTaskHarvest || task.TileID != plot {
		t.Fatalf("task = %+v, want harvest of tile %d first", task, plot)
	}

	// With the crop gone, animals outrank factories.
	mustOK(t, f.Harvest(plot))
	task = f.findWorkerTask()
	if task == nil || task.Kind != WorkerTaskAnimal || task.InstanceID != coop.InstanceID {
		t.Fatalf("task = %+v, want animal collection next", task)
	}

	mustOK(t, f.CollectAnimal(coop.InstanceID))
	task = f.findWorkerTask()
	if task == nil || task.Kind != WorkerTaskFactory || task.InstanceID != mill.InstanceID {
		t.Fatalf("task = %+v, want factory collection last", task)
	}

	mustOK(t, f.CollectFactory(mill.InstanceID))
	if task = f.findWorkerTask(); task != nil {
		t.Fatalf("task = %+v, want none on an idle farm", task)
	}
}

func TestWorkerTravelDelayThenActs(t *testing.T) {
	f, now := newTestFarm(t)
	plot := firstEmptyPlot(t, f)
	mustOK(t, f.Plant(plot, "wheat"))
	*now += 10_000

	w := f.workers[0]
	f.stepWorkers()
	if w.Status != WorkerMoving || w.Task == nil {
		t.Fatalf("worker = %+v, want moving toward the ripe crop", w)
	}
	if w.ArriveAtMs != *now+1000 {
		t.Fatalf("arrive at = %d, want %d (1s travel)", w.ArriveAtMs, *now+1000)
	}

	// Still walking: nothing happens.
	*now += 999
	f.stepWorkers()
	if f.tileByID(plot).State != TilePlantedPlot {
		t.Fatal("crop harvested before the worker arrived")
	}

	*now += 1
	f.stepWorkers()
	if f.tileByID(plot).State != TileEmptyPlot {
		t.Fatal("worker should harvest on arrival")
	}
	if w.Status != WorkerIdle || w.Task != nil {
		t.Fatalf("worker after acting = %+v, want idle", w)
	}
	tile := f.tileByID(plot)
	if w.X != tile.X || w.Y != tile.Y {
		t.Fatalf("worker at (%d,%d), want the plot (%d,%d)", w.X, w.Y, tile.X, tile.Y)
	}
	if f.player.Inventory["wheat"] != 1 {
		t.Fatalf("wheat = %d, want 1", f.player.Inventory["wheat"])
	}
	if len(f.logs) == 0 || !strings.Contains(f.logs[0].Message, "harvested Wheat") {
		t.Fatalf("logs = %+v, want a harvest entry", f.logs)
	}
}

func TestWorkerStaleTaskFailsSilently(t *testing.T) {
	f, now := newTestFarm(t)
	plot := firstEmptyPlot(t, f)
	mustOK(t, f.Plant(plot, "wheat"))
	*now += 10_000

	f.stepWorkers() // picks up the harvest task
	mustOK(t, f.Harvest(plot)) // player beats the worker to it
	logsBefore := len(f.logs)

	*now += 1000
	f.stepWorkers()
	w := f.workers[0]
	if w.Status != WorkerIdle {
		t.Fatalf("worker = %+v, want idle after stale task", w)
	}
	if len(f.logs) != logsBefore {
		t.Fatal("failed task must not log an action")
	}
}

func TestToggleWorkerCancelsTask(t *testing.T) {
	f, now := newTestFarm(t)
	plot := firstEmptyPlot(t, f)
	mustOK(t, f.Plant(plot, "wheat"))
	*now += 10_000
	f.stepWorkers()

	w := f.workers[0]
	mustFail(t, f.ToggleWorker("nobody"), protocol.ErrUnknownID)
	mustOK(t, f.ToggleWorker(w.ID))
	if w.Active || w.Status != WorkerIdle || w.Task != nil {
		t.Fatalf("worker after toggle off = %+v, want inactive idle", w)
	}

	// Inactive workers never pick up work.
	f.stepWorkers()
	if w.Task != nil {
		t.Fatal("inactive worker picked up a task")
	}

	mustOK(t, f.ToggleWorker(w.ID))
	f.stepWorkers()
	if !w.Active || w.Status != WorkerMoving {
		t.Fatalf("worker after toggle on = %+v, want moving again", w)
	}
}

func TestActionLogCapped(t *testing.T) {
	f, _ := newTestFarm(t)
	for i := 0; i < 25; i++ {
		f.appendLog(fmt.Sprintf("entry %d", i))
	}
	if len(f.logs) != f.cfg.Tuning.WorkerLogCap {
		t.Fatalf("log length = %d, want %d", len(f.logs), f.cfg.Tuning.WorkerLogCap)
	}
	if f.logs[0].Message != "entry 24" {
		t.Fatalf("newest entry = %q, want entry 24 first", f.logs[0].Message)
	}
}
