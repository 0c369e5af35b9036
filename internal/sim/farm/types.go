package farm

import (
	"farmstead.gg/internal/protocol"
)

type TileState string

const (
	TileLocked      TileState = "locked"
	TileFreeSpace   TileState = "free_space"
	TileEmptyPlot   TileState = "empty_plot"
	TilePlantedPlot TileState = "planted_plot"
)

// Tile is one cell of the farm lattice. CropID/PlantedAtMs are set iff
// State == TilePlantedPlot. Tiles are created in bulk at init and only ever
// re-stated, never deleted.
type Tile struct {
	ID          int       `json:"id"`
	X           int       `json:"x"`
	Y           int       `json:"y"`
	State       TileState `json:"state"`
	CropID      string    `json:"crop_id,omitempty"`
	PlantedAtMs int64     `json:"planted_at_ms,omitempty"`
}

// PlacedObject is a building/decoration instance. Footprint is resolved via
// value catalog lookup on ItemID.
type PlacedObject struct {
	InstanceID int    `json:"instance_id"`
	ItemID     string `json:"item_id"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
}

type Job struct {
	JobID       int    `json:"job_id"`
	RecipeID    string `json:"recipe_id"`
	StartedAtMs int64  `json:"started_at_ms"`
}

// FactoryState exists for every placed factory-type object. Only the head of
// Queue is running (has a meaningful StartedAtMs); later jobs are stamped when
// they reach the head at collect time.
type FactoryState struct {
	InstanceID   int    `json:"instance_id"`
	Level        int    `json:"level"`
	Queue        []Job  `json:"queue"`
	OutputReady  bool   `json:"output_ready"`
	AutoRun      bool   `json:"auto_run"`
	LastRecipeID string `json:"last_recipe_id,omitempty"`
}

type AnimalState struct {
	InstanceID       int   `json:"instance_id"`
	LastCollectionMs int64 `json:"last_collection_ms"`
}

type Storage struct {
	Max int `json:"max"`
}

type Milestones struct {
	PlantedFirstCrop   bool `json:"planted_first_crop,omitempty"`
	HarvestedFirstCrop bool `json:"harvested_first_crop,omitempty"`
}

// PlayerState is the resource ledger. All coin/XP/inventory mutations go
// through the ledger primitives in ledger.go so the storage invariant holds
// after every mutation.
type PlayerState struct {
	Coins               int64          `json:"coins"`
	XP                  int64          `json:"xp"`
	Level               int            `json:"level"`
	Storage             Storage        `json:"storage"`
	Inventory           map[string]int `json:"inventory"`
	ExpansionsPurchased int            `json:"expansions_purchased"`
	Milestones          Milestones     `json:"milestones"`
}

type WorkerStatus string

const (
	WorkerIdle   WorkerStatus = "Idle"
	WorkerMoving WorkerStatus = "Moving"
)

type WorkerTaskKind string

const (
	WorkerTaskHarvest WorkerTaskKind = "harvest"
	WorkerTaskAnimal  WorkerTaskKind = "animal"
	WorkerTaskFactory WorkerTaskKind = "factory"
)

type WorkerTask struct {
	Kind       WorkerTaskKind `json:"kind"`
	TileID     int            `json:"tile_id,omitempty"`
	InstanceID int            `json:"instance_id,omitempty"`
	Label      string         `json:"label"`
	X          int            `json:"x"`
	Y          int            `json:"y"`
}

type Worker struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Status     WorkerStatus `json:"status"`
	Active     bool         `json:"active"`
	X          int          `json:"x"`
	Y          int          `json:"y"`
	ArriveAtMs int64        `json:"arrive_at_ms,omitempty"`
	Task       *WorkerTask  `json:"task,omitempty"`
}

// ActionLog is one entry of the worker-facing history: most-recent-first,
// capped ring buffer, purely observational.
type ActionLog struct {
	TimestampMs int64  `json:"timestamp_ms"`
	Message     string `json:"message"`
}

type ExpansionPreview struct {
	TileIDs   []int  `json:"tile_ids"`
	Cost      int    `json:"cost"`
	Direction string `json:"direction"`
}

// Result is the outcome of a gameplay operation. Validation failures are
// results, not errors: the operation is a no-op and the caller decides UX.
type Result struct {
	OK      bool
	Code    string
	Message string
}

func resOK() Result { return Result{OK: true} }

func resFail(code, message string) Result {
	return Result{OK: false, Code: code, Message: message}
}

// AuditEntry records a state-changing action for the durable audit log.
type AuditEntry struct {
	Tick    uint64 `json:"tick"`
	Actor   string `json:"actor"`
	Action  string `json:"action"`
	Target  string `json:"target,omitempty"`
	X       int    `json:"x,omitempty"`
	Y       int    `json:"y,omitempty"`
	Message string `json:"message,omitempty"`
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

// ActionEnvelope carries one client ACT into the farm loop.
type ActionEnvelope struct {
	SessionID string
	Act       protocol.ActMsg
}

type JoinRequest struct {
	Name string
	Out  chan []byte
	Resp chan JoinResponse
}

type JoinResponse struct {
	SessionID string
	Welcome   protocol.WelcomeMsg
}
