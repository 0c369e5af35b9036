package protocol

import "encoding/json"

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	PlayerName      string `json:"player_name"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	FarmParams      FarmParams     `json:"farm_params"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type FarmParams struct {
	TickMs        int `json:"tick_ms"`
	HourTicks     int `json:"hour_ticks"`
	DaysPerSeason int `json:"days_per_season"`
	GridWidth     int `json:"grid_width"`
	GridHeight    int `json:"grid_height"`
}

type CatalogDigests struct {
	CropsDigest   string `json:"crops_digest"`
	ItemsDigest   string `json:"items_digest"`
	GoodsDigest   string `json:"goods_digest"`
	RecipesDigest string `json:"recipes_digest"`
}

// ACT (client -> server). Ops use the subset of fields they need.
type ActMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ActID           string `json:"act_id,omitempty"`
	Op              string `json:"op"`

	TileID     int    `json:"tile_id,omitempty"`
	CropID     string `json:"crop_id,omitempty"`
	ItemID     string `json:"item_id,omitempty"`
	InstanceID int    `json:"instance_id,omitempty"`
	RecipeID   string `json:"recipe_id,omitempty"`
	WorkerID   string `json:"worker_id,omitempty"`
	X          int    `json:"x,omitempty"`
	Y          int    `json:"y,omitempty"`
	Qty        int    `json:"qty,omitempty"`
}

// Ops accepted in ActMsg.Op.
const (
	OpPlant           = "PLANT"
	OpHarvest         = "HARVEST"
	OpExpandPreview   = "EXPAND_PREVIEW"
	OpExpandConfirm   = "EXPAND_CONFIRM"
	OpExpandCancel    = "EXPAND_CANCEL"
	OpBuyObject       = "BUY_OBJECT"
	OpMoveObject      = "MOVE_OBJECT"
	OpRemoveObject    = "REMOVE_OBJECT"
	OpStartProduction = "START_PRODUCTION"
	OpCollectFactory  = "COLLECT_FACTORY"
	OpUpgradeFactory  = "UPGRADE_FACTORY"
	OpToggleAutoRun   = "TOGGLE_AUTORUN"
	OpCollectAnimal   = "COLLECT_ANIMAL"
	OpSell            = "SELL"
	OpToggleWorker    = "TOGGLE_WORKER"
)

// RESULT (server -> client), one per applied ACT.
type ResultMsg struct {
	Type    string `json:"type"`
	Tick    uint64 `json:"t"`
	ActID   string `json:"act_id,omitempty"`
	Op      string `json:"op"`
	OK      bool   `json:"ok"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// STATE (server -> client) carries an opaque view built by the sim; the
// transport treats it as pre-encoded JSON.
type StateMsg struct {
	Type       string          `json:"type"`
	Tick       uint64          `json:"t"`
	SaveStatus string          `json:"save_status,omitempty"`
	View       json.RawMessage `json:"view"`
}
