package farm

import (
	"fmt"

	"farmstead.gg/internal/protocol"
)

// Worker automation: idle workers scan for work in a fixed priority order
// (mature crops, then ready animals, then finished factories), walk to the
// target for a fixed travel delay, then re-validate and act. Anything that
// changed while walking just leaves the worker idle again.

// ToggleWorker flips a worker on or off. Turning one off cancels whatever it
// was walking toward.
func (f *Farm) ToggleWorker(workerID string) Result {
	w := f.workerByID(workerID)
	if w == nil {
		return resFail(protocol.ErrUnknownID, fmt.Sprintf("no worker %q", workerID))
	}
	w.Active = !w.Active
	if !w.Active {
		w.Status = WorkerIdle
		w.Task = nil
		w.ArriveAtMs = 0
	}
	f.markDirty(false)
	return resOK()
}

func (f *Farm) workerByID(id string) *Worker {
	for _, w := range f.workers {
		if w.ID == id {
			return w
		}
	}
	return nil
}

func (f *Farm) stepWorkers() {
	now := f.nowMs()
	for _, w := range f.workers {
		if !w.Active {
			continue
		}
		switch w.Status {
		case WorkerMoving:
			if now >= w.ArriveAtMs {
				f.workerArrive(w)
			}
		case WorkerIdle:
			if task := f.findWorkerTask(); task != nil {
				w.Task = task
				w.Status = WorkerMoving
				w.ArriveAtMs = now + int64(f.cfg.Tuning.WorkerTravelMs)
			}
		}
	}
}

// findWorkerTask scans in priority order and returns the first actionable
// target, or nil if the farm has nothing to do.
func (f *Farm) findWorkerTask() *WorkerTask {
	for i := range f.tiles {
		tile := &f.tiles[i]
		if tile.State != TilePlantedPlot {
			continue
		}
		if info, ok := f.tileGrowth(tile); ok && info.Ready {
			crop := f.cats.Crops.Defs[tile.CropID]
			return &WorkerTask{Kind: WorkerTaskHarvest, TileID: tile.ID, Label: crop.Name, X: tile.X, Y: tile.Y}
		}
	}
	for _, obj := range f.objects {
		as, item, res := f.animalFor(obj.InstanceID)
		if !res.OK {
			continue
		}
		if f.animalReady(as, item) {
			return &WorkerTask{Kind: WorkerTaskAnimal, InstanceID: obj.InstanceID, Label: item.Name, X: obj.X, Y: obj.Y}
		}
	}
	for _, obj := range f.objects {
		fs, item, res := f.factoryFor(obj.InstanceID)
		if !res.OK {
			continue
		}
		if fs.OutputReady {
			return &WorkerTask{Kind: WorkerTaskFactory, InstanceID: obj.InstanceID, Label: item.Name, X: obj.X, Y: obj.Y}
		}
	}
	return nil
}

// workerArrive executes the task the worker walked to. The world may have
// moved on since the task was picked, so the op's own validation is the
// arbiter; failures are silent.
func (f *Farm) workerArrive(w *Worker) {
	task := w.Task
	w.Status = WorkerIdle
	w.Task = nil
	w.ArriveAtMs = 0
	if task == nil {
		return
	}
	w.X, w.Y = task.X, task.Y
	res := f.asActor(w.ID, func() Result {
		switch task.Kind {
		case WorkerTaskHarvest:
			return f.Harvest(task.TileID)
		case WorkerTaskAnimal:
			return f.CollectAnimal(task.InstanceID)
		case WorkerTaskFactory:
			return f.CollectFactory(task.InstanceID)
		}
		return resFail(protocol.ErrInternal, "unknown task kind")
	})
	if res.OK {
		switch task.Kind {
		case WorkerTaskHarvest:
			f.appendLog(fmt.Sprintf("%s harvested %s", w.Name, task.Label))
		case WorkerTaskAnimal:
			f.appendLog(fmt.Sprintf("%s collected from %s", w.Name, task.Label))
		case WorkerTaskFactory:
			f.appendLog(fmt.Sprintf("%s emptied %s", w.Name, task.Label))
		}
	}
}
