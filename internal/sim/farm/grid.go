package farm

import (
	"fmt"
	"math"

	"farmstead.gg/internal/catalogs"
	"farmstead.gg/internal/protocol"
	"farmstead.gg/internal/sim/clock"
)

// initGrid lays out the full lattice locked, unlocks the centered starting
// square, and seeds the initial tilled plots.
func (f *Farm) initGrid() {
	w, h := f.cfg.Tuning.GridWidth, f.cfg.Tuning.GridHeight
	f.tiles = make([]Tile, 0, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			f.tiles = append(f.tiles, Tile{ID: y*w + x, X: x, Y: y, State: TileLocked})
		}
	}
	minX, minY, maxX, maxY := f.startBounds()
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			f.tiles[y*w+x].State = TileFreeSpace
		}
	}
	// Five starter plots: a full row of three, then two below with a gap.
	for _, off := range [][2]int{{2, 1}, {3, 1}, {4, 1}, {2, 2}, {4, 2}} {
		x, y := minX+off[0], minY+off[1]
		if x <= maxX && y <= maxY {
			f.tiles[y*w+x].State = TileEmptyPlot
		}
	}
}

func (f *Farm) startBounds() (minX, minY, maxX, maxY int) {
	w, h, s := f.cfg.Tuning.GridWidth, f.cfg.Tuning.GridHeight, f.cfg.Tuning.StartAreaSize
	minX = (w - s) / 2
	minY = (h - s) / 2
	return minX, minY, minX + s - 1, minY + s - 1
}

func (f *Farm) tileAt(x, y int) *Tile {
	w, h := f.cfg.Tuning.GridWidth, f.cfg.Tuning.GridHeight
	if x < 0 || x >= w || y < 0 || y >= h {
		return nil
	}
	return &f.tiles[y*w+x]
}

func (f *Farm) tileByID(id int) *Tile {
	if id < 0 || id >= len(f.tiles) {
		return nil
	}
	return &f.tiles[id]
}

// Plant sows cropID on an empty plot, charging the plant cost up front.
func (f *Farm) Plant(tileID int, cropID string) Result {
	tile := f.tileByID(tileID)
	if tile == nil {
		return resFail(protocol.ErrUnknownID, fmt.Sprintf("no tile %d", tileID))
	}
	crop, ok := f.cats.Crops.Defs[cropID]
	if !ok {
		return resFail(protocol.ErrUnknownID, fmt.Sprintf("unknown crop %q", cropID))
	}
	if tile.State != TileEmptyPlot {
		return resFail(protocol.ErrInvalidTarget, "tile is not an empty plot")
	}
	if crop.UnlockLevel > f.player.Level {
		return resFail(protocol.ErrLevelLocked, fmt.Sprintf("%s unlocks at level %d", crop.Name, crop.UnlockLevel))
	}
	if !crop.InSeason(f.season()) {
		return resFail(protocol.ErrOutOfSeason, fmt.Sprintf("%s cannot be planted in %s", crop.Name, f.season()))
	}
	if !f.player.spendCoins(int64(crop.PlantCost)) {
		return resFail(protocol.ErrNoFunds, fmt.Sprintf("need %d coins", crop.PlantCost))
	}
	tile.State = TilePlantedPlot
	tile.CropID = cropID
	tile.PlantedAtMs = f.nowMs()
	f.player.Milestones.PlantedFirstCrop = true
	f.writeAudit("plant", cropID, tile.X, tile.Y, "")
	f.markDirty(true)
	return resOK()
}

// GrowthInfo is derived crop progress: never stored, recomputed from the
// planted timestamp and the current season/weather rate.
type GrowthInfo struct {
	Percent    float64 `json:"percent"`
	StageAsset string  `json:"stage_asset"`
	Ready      bool    `json:"ready"`
}

// CropGrowth scales wall-clock elapsed time by the combined season and weather
// rate, then maps the effective time onto the stage table.
func CropGrowth(crop catalogs.CropDef, plantedAtMs, nowMs int64, season clock.Season, weather clock.Weather) GrowthInfo {
	rate := weather.GrowthModifier()
	if m, ok := crop.SeasonModifiers[season]; ok {
		rate *= m
	}
	elapsed := float64(nowMs-plantedAtMs) * rate
	if elapsed < 0 {
		elapsed = 0
	}
	info := GrowthInfo{}
	if crop.GrowthTimeMs > 0 {
		info.Percent = math.Min(100, elapsed/float64(crop.GrowthTimeMs)*100)
	} else {
		info.Percent = 100
	}
	info.Ready = info.Percent >= 100
	remaining := elapsed
	for _, stage := range crop.GrowthStages {
		info.StageAsset = stage.Asset
		if stage.DurationMs <= 0 || remaining < float64(stage.DurationMs) {
			break
		}
		remaining -= float64(stage.DurationMs)
	}
	return info
}

func (f *Farm) tileGrowth(tile *Tile) (GrowthInfo, bool) {
	if tile == nil || tile.State != TilePlantedPlot {
		return GrowthInfo{}, false
	}
	crop, ok := f.cats.Crops.Defs[tile.CropID]
	if !ok {
		return GrowthInfo{}, false
	}
	return CropGrowth(crop, tile.PlantedAtMs, f.nowMs(), f.season(), f.weather), true
}

// Harvest collects a mature crop into the inventory and frees the plot. A
// full inventory leaves the crop standing.
func (f *Farm) Harvest(tileID int) Result {
	tile := f.tileByID(tileID)
	if tile == nil {
		return resFail(protocol.ErrUnknownID, fmt.Sprintf("no tile %d", tileID))
	}
	if tile.State != TilePlantedPlot {
		return resFail(protocol.ErrInvalidTarget, "nothing planted here")
	}
	info, ok := f.tileGrowth(tile)
	if !ok {
		return resFail(protocol.ErrInternal, fmt.Sprintf("tile %d references unknown crop %q", tileID, tile.CropID))
	}
	if !info.Ready {
		return resFail(protocol.ErrNotReady, fmt.Sprintf("crop is %d%% grown", int(info.Percent)))
	}
	if !f.player.addToInventory(tile.CropID, 1) {
		return resFail(protocol.ErrNoStorage, "storage is full")
	}
	cropID := tile.CropID
	tile.State = TileEmptyPlot
	tile.CropID = ""
	tile.PlantedAtMs = 0
	f.player.Milestones.HarvestedFirstCrop = true
	f.writeAudit("harvest", cropID, tile.X, tile.Y, "")
	f.markDirty(true)
	return resOK()
}

// unlockedBounds is the bounding box of every non-locked tile. Expansion
// grows this box one strip at a time.
func (f *Farm) unlockedBounds() (minX, minY, maxX, maxY int) {
	minX, minY = f.cfg.Tuning.GridWidth, f.cfg.Tuning.GridHeight
	maxX, maxY = -1, -1
	for i := range f.tiles {
		t := &f.tiles[i]
		if t.State == TileLocked {
			continue
		}
		if t.X < minX {
			minX = t.X
		}
		if t.X > maxX {
			maxX = t.X
		}
		if t.Y < minY {
			minY = t.Y
		}
		if t.Y > maxY {
			maxY = t.Y
		}
	}
	if maxX < 0 {
		return 0, 0, -1, -1
	}
	return minX, minY, maxX, maxY
}

// ExpansionCost is the price of the n-th expansion (0-based), rounded to the
// nearest 10 coins.
func (f *Farm) ExpansionCost(n int) int {
	cost := float64(f.cfg.Tuning.ExpansionBaseCost) * math.Pow(f.cfg.Tuning.ExpansionMultiplier, float64(n))
	return int(math.Round(cost/10) * 10)
}

// expansionStrip resolves what clicking a locked tile would unlock. The tile
// must sit directly outside one edge of the unlocked box, within that edge's
// span. The strip is one tile deep and up to ExpansionChunkSize long,
// centered on the clicked tile and clipped to the span.
func (f *Farm) expansionStrip(tile *Tile) ([]int, string) {
	minX, minY, maxX, maxY := f.unlockedBounds()
	if maxX < 0 {
		return nil, ""
	}
	w := f.cfg.Tuning.GridWidth
	chunk := f.cfg.Tuning.ExpansionChunkSize
	half := chunk / 2
	var ids []int
	switch {
	case tile.X == minX-1 && tile.Y >= minY && tile.Y <= maxY:
		startY := max(minY, tile.Y-half)
		for i := 0; i < chunk; i++ {
			if y := startY + i; y <= maxY {
				ids = append(ids, y*w+tile.X)
			}
		}
		return ids, "west"
	case tile.X == maxX+1 && tile.Y >= minY && tile.Y <= maxY:
		startY := max(minY, tile.Y-half)
		for i := 0; i < chunk; i++ {
			if y := startY + i; y <= maxY {
				ids = append(ids, y*w+tile.X)
			}
		}
		return ids, "east"
	case tile.Y == minY-1 && tile.X >= minX && tile.X <= maxX:
		startX := max(minX, tile.X-half)
		for i := 0; i < chunk; i++ {
			if x := startX + i; x <= maxX {
				ids = append(ids, tile.Y*w+x)
			}
		}
		return ids, "north"
	case tile.Y == maxY+1 && tile.X >= minX && tile.X <= maxX:
		startX := max(minX, tile.X-half)
		for i := 0; i < chunk; i++ {
			if x := startX + i; x <= maxX {
				ids = append(ids, tile.Y*w+x)
			}
		}
		return ids, "south"
	}
	return nil, ""
}

// ExpandPreview stages the strip around a clicked locked tile without
// charging for it. A repeat call replaces the staged strip.
func (f *Farm) ExpandPreview(tileID int) Result {
	tile := f.tileByID(tileID)
	if tile == nil {
		return resFail(protocol.ErrUnknownID, fmt.Sprintf("no tile %d", tileID))
	}
	if tile.State != TileLocked {
		return resFail(protocol.ErrInvalidTarget, "tile is already unlocked")
	}
	ids, dir := f.expansionStrip(tile)
	if len(ids) == 0 {
		return resFail(protocol.ErrInvalidTarget, "tile is not adjacent to the farm edge")
	}
	f.preview = &ExpansionPreview{
		TileIDs:   ids,
		Cost:      f.ExpansionCost(f.player.ExpansionsPurchased),
		Direction: dir,
	}
	return resOK()
}

// ExpandConfirm charges the staged expansion and unlocks its tiles.
func (f *Farm) ExpandConfirm() Result {
	if f.preview == nil {
		return resFail(protocol.ErrNotReady, "no expansion previewed")
	}
	if !f.player.spendCoins(int64(f.preview.Cost)) {
		return resFail(protocol.ErrNoFunds, fmt.Sprintf("expansion costs %d coins", f.preview.Cost))
	}
	for _, id := range f.preview.TileIDs {
		if tile := f.tileByID(id); tile != nil && tile.State == TileLocked {
			tile.State = TileFreeSpace
		}
	}
	f.player.ExpansionsPurchased++
	f.writeAudit("expand", f.preview.Direction, 0, 0, fmt.Sprintf("%d tiles for %d coins", len(f.preview.TileIDs), f.preview.Cost))
	f.preview = nil
	f.markDirty(true)
	return resOK()
}

// ExpandCancel discards the staged expansion. Cancelling nothing is fine.
func (f *Farm) ExpandCancel() Result {
	f.preview = nil
	return resOK()
}
