package farm

import (
	"encoding/json"
	"fmt"
	"sort"

	"farmstead.gg/internal/catalogs"
	"farmstead.gg/internal/sim/clock"
)

const documentVersion = 1

// GameDocument is the whole farm as one savable document. Export produces a
// deep copy so the save path never races the simulation; Import is the
// inverse, with reconciliation for documents written by older builds or
// mangled by a concurrent writer.
type GameDocument struct {
	Version  int    `json:"version"`
	PlayerID string `json:"player_id"`
	Tick     uint64 `json:"tick"`

	Date    clock.GameDate `json:"date"`
	Weather clock.Weather  `json:"weather"`

	Player    PlayerState    `json:"player"`
	Tiles     []Tile         `json:"tiles"`
	Objects   []PlacedObject `json:"objects"`
	Factories []FactoryState `json:"factories"`
	Animals   []AnimalState  `json:"animals"`
	Workers   []Worker       `json:"workers"`
	Logs      []ActionLog    `json:"logs"`

	// Tasks is carried opaquely: the generator that fills it lives outside
	// this process, but its output must survive a save/load cycle.
	Tasks json.RawMessage `json:"tasks,omitempty"`

	NextInstanceID int `json:"next_instance_id"`
	NextJobID      int `json:"next_job_id"`
}

// DocumentSave is what the farm pushes to the persistence side after a dirty
// step. Critical saves skip the debounce window.
type DocumentSave struct {
	Doc      GameDocument
	Critical bool
}

// ExportDocument deep-copies the current state.
func (f *Farm) ExportDocument() GameDocument {
	doc := GameDocument{
		Version:        documentVersion,
		PlayerID:       f.cfg.PlayerID,
		Tick:           f.tick.Load(),
		Date:           f.date,
		Weather:        f.weather,
		Player:         f.player,
		NextInstanceID: f.nextInstanceID,
		NextJobID:      f.nextJobID,
	}
	doc.Player.Inventory = make(map[string]int, len(f.player.Inventory))
	for id, qty := range f.player.Inventory {
		doc.Player.Inventory[id] = qty
	}
	doc.Tiles = append([]Tile(nil), f.tiles...)
	doc.Objects = append([]PlacedObject(nil), f.objects...)
	for _, fs := range f.factories {
		cp := *fs
		cp.Queue = append([]Job(nil), fs.Queue...)
		doc.Factories = append(doc.Factories, cp)
	}
	sort.Slice(doc.Factories, func(i, j int) bool {
		return doc.Factories[i].InstanceID < doc.Factories[j].InstanceID
	})
	for _, as := range f.animals {
		doc.Animals = append(doc.Animals, *as)
	}
	sort.Slice(doc.Animals, func(i, j int) bool {
		return doc.Animals[i].InstanceID < doc.Animals[j].InstanceID
	})
	for _, w := range f.workers {
		cp := *w
		if w.Task != nil {
			task := *w.Task
			cp.Task = &task
		}
		doc.Workers = append(doc.Workers, cp)
	}
	doc.Logs = append([]ActionLog(nil), f.logs...)
	doc.Tasks = append(json.RawMessage(nil), f.tasks...)
	return doc
}

// ImportDocument replaces the farm state with a saved document and
// reconciles derived structures. Tick and market are not restored: the tick
// counter keeps running and prices re-roll on load.
func (f *Farm) ImportDocument(doc GameDocument) error {
	if doc.Version != documentVersion {
		return fmt.Errorf("document version %d, want %d", doc.Version, documentVersion)
	}
	if doc.PlayerID != f.cfg.PlayerID {
		return fmt.Errorf("document belongs to %q, farm is %q", doc.PlayerID, f.cfg.PlayerID)
	}
	want := f.cfg.Tuning.GridWidth * f.cfg.Tuning.GridHeight
	if len(doc.Tiles) != want {
		return fmt.Errorf("document has %d tiles, grid needs %d", len(doc.Tiles), want)
	}

	f.date = doc.Date
	f.weather = doc.Weather
	f.player = doc.Player
	if f.player.Inventory == nil {
		f.player.Inventory = make(map[string]int)
	}
	for id, qty := range f.player.Inventory {
		if qty <= 0 {
			delete(f.player.Inventory, id)
		}
	}
	if f.player.Storage.Max <= 0 {
		f.player.Storage.Max = f.cfg.Tuning.StorageMax
	}
	f.player.Level = f.levelForXP(f.player.XP)

	f.tiles = append([]Tile(nil), doc.Tiles...)
	f.objects = append([]PlacedObject(nil), doc.Objects...)

	f.factories = make(map[int]*FactoryState, len(doc.Factories))
	for _, fs := range doc.Factories {
		cp := fs
		cp.Queue = append([]Job(nil), fs.Queue...)
		f.factories[cp.InstanceID] = &cp
	}
	f.animals = make(map[int]*AnimalState, len(doc.Animals))
	for _, as := range doc.Animals {
		cp := as
		f.animals[cp.InstanceID] = &cp
	}

	f.workers = f.workers[:0]
	for _, w := range doc.Workers {
		cp := w
		if w.Task != nil {
			task := *w.Task
			cp.Task = &task
		}
		f.workers = append(f.workers, &cp)
	}
	if len(f.workers) == 0 {
		f.initWorkers()
	}
	f.logs = append([]ActionLog(nil), doc.Logs...)
	f.tasks = append(json.RawMessage(nil), doc.Tasks...)

	f.nextInstanceID = doc.NextInstanceID
	f.nextJobID = doc.NextJobID
	f.preview = nil
	f.reconcileProduction()
	f.initMarket()
	f.dirty = false
	f.critical = false
	return nil
}

// reconcileProduction realigns production state with placed objects: every
// factory/housing object gets a state record, orphaned records are dropped,
// and the instance counter stays ahead of every live id.
func (f *Farm) reconcileProduction() {
	live := make(map[int]string, len(f.objects))
	for _, obj := range f.objects {
		live[obj.InstanceID] = obj.ItemID
		if obj.InstanceID > f.nextInstanceID {
			f.nextInstanceID = obj.InstanceID
		}
		item, ok := f.cats.Items.Defs[obj.ItemID]
		if !ok {
			continue
		}
		switch item.Type {
		case catalogs.TypeFactory:
			if _, exists := f.factories[obj.InstanceID]; !exists {
				f.factories[obj.InstanceID] = &FactoryState{InstanceID: obj.InstanceID, Level: 1}
			}
		case catalogs.TypeAnimalHousing:
			if _, exists := f.animals[obj.InstanceID]; !exists {
				f.animals[obj.InstanceID] = &AnimalState{InstanceID: obj.InstanceID, LastCollectionMs: f.nowMs()}
			}
		}
	}
	for id := range f.factories {
		if _, ok := live[id]; !ok {
			delete(f.factories, id)
		}
	}
	for id := range f.animals {
		if _, ok := live[id]; !ok {
			delete(f.animals, id)
		}
	}
	for _, fs := range f.factories {
		if fs.Level < 1 {
			fs.Level = 1
		}
		if len(fs.Queue) == 0 {
			fs.OutputReady = false
		}
		for _, job := range fs.Queue {
			if job.JobID > f.nextJobID {
				f.nextJobID = job.JobID
			}
		}
	}
}
