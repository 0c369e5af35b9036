// Package catalogs loads the read-only content tables: crops, placeable
// items, processed goods, and recipes. Files are JSON arrays keyed by string
// id, validated against the schemas in configs/schemas; a load failure is
// fatal to game start.
package catalogs

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"farmstead.gg/internal/sim/clock"
)

type Catalogs struct {
	Crops   CropCatalog
	Items   ItemCatalog
	Goods   GoodCatalog
	Recipes RecipeCatalog
}

type CropCatalog struct {
	Defs   map[string]CropDef
	Digest string
}

type CropDef struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	PlantCost    int           `json:"plant_cost"`
	SellPrice    int           `json:"sell_price"`
	GrowthTimeMs int64         `json:"growth_time_ms"`
	UnlockLevel  int           `json:"unlock_level,omitempty"`
	GrowthStages []GrowthStage `json:"growth_stages"`
	// Growth-rate multiplier per season; unlisted seasons are neutral.
	SeasonModifiers map[clock.Season]float64 `json:"season_modifiers,omitempty"`
	// Seasons the crop may be planted in. Empty means all seasons.
	Seasons []clock.Season `json:"seasons,omitempty"`
}

type GrowthStage struct {
	Stage      int    `json:"stage"`
	DurationMs int64  `json:"duration_ms"`
	Asset      string `json:"asset"`
}

// InSeason reports whether the crop may be planted in s.
func (c CropDef) InSeason(s clock.Season) bool {
	if len(c.Seasons) == 0 {
		return true
	}
	for _, allowed := range c.Seasons {
		if allowed == s {
			return true
		}
	}
	return false
}

type ItemCatalog struct {
	Defs   map[string]ItemDef
	Digest string
}

// Item types.
const (
	TypeDecoration    = "decoration"
	TypeBuilding      = "building"
	TypeAnimalHousing = "animal_housing"
	TypeFactory       = "factory"
)

type ItemDef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Cost        int    `json:"cost"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Asset       string `json:"asset"`
	UnlockLevel int    `json:"unlock_level,omitempty"`

	// animal_housing only.
	ProducesProductID string `json:"produces_product_id,omitempty"`
	ProductionTimeMs  int64  `json:"production_time_ms,omitempty"`

	// factory only.
	RecipeIDs         []string `json:"recipe_ids,omitempty"`
	BaseQueueSize     int      `json:"base_queue_size,omitempty"`
	UpgradeCost       int      `json:"upgrade_cost,omitempty"`
	SpeedPerLevelPct  int      `json:"speed_per_level_pct,omitempty"`
}

// SpeedMultiplier is 1 + (level-1) * speedPerLevel.
func (i ItemDef) SpeedMultiplier(level int) float64 {
	return 1.0 + float64(level-1)*float64(i.SpeedPerLevelPct)/100.0
}

// QueueCapacity is baseQueueSize + level - 1.
func (i ItemDef) QueueCapacity(level int) int {
	return i.BaseQueueSize + level - 1
}

type GoodCatalog struct {
	Defs   map[string]GoodDef
	Digest string
}

// GoodDef covers both processed goods (flour) and animal products (egg).
type GoodDef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	SellPrice   int    `json:"sell_price"`
	Asset       string `json:"asset"`
	UnlockLevel int    `json:"unlock_level,omitempty"`
}

type RecipeCatalog struct {
	Defs   map[string]RecipeDef
	Digest string
}

type RecipeDef struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	DurationMs  int64          `json:"duration_ms"`
	Inputs      map[string]int `json:"inputs"`
	OutputID    string         `json:"output_id"`
	OutputQty   int            `json:"output_qty"`
	UnlockLevel int            `json:"unlock_level,omitempty"`
}

func Load(configDir string) (*Catalogs, error) {
	schemas, err := compileSchemas(filepath.Join(configDir, "schemas"))
	if err != nil {
		return nil, err
	}

	var c Catalogs
	if err := loadTable(filepath.Join(configDir, "crops.json"), schemas["crops"], func(raw []byte) error {
		var defs []CropDef
		if err := json.Unmarshal(raw, &defs); err != nil {
			return err
		}
		c.Crops.Defs = map[string]CropDef{}
		for _, d := range defs {
			if d.ID == "" {
				return fmt.Errorf("empty id")
			}
			c.Crops.Defs[d.ID] = d
		}
		c.Crops.Digest = sha256Hex(raw)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("crops.json: %w", err)
	}

	if err := loadTable(filepath.Join(configDir, "items.json"), schemas["items"], func(raw []byte) error {
		var defs []ItemDef
		if err := json.Unmarshal(raw, &defs); err != nil {
			return err
		}
		c.Items.Defs = map[string]ItemDef{}
		for _, d := range defs {
			if d.ID == "" {
				return fmt.Errorf("empty id")
			}
			c.Items.Defs[d.ID] = d
		}
		c.Items.Digest = sha256Hex(raw)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("items.json: %w", err)
	}

	if err := loadTable(filepath.Join(configDir, "goods.json"), schemas["goods"], func(raw []byte) error {
		var defs []GoodDef
		if err := json.Unmarshal(raw, &defs); err != nil {
			return err
		}
		c.Goods.Defs = map[string]GoodDef{}
		for _, d := range defs {
			if d.ID == "" {
				return fmt.Errorf("empty id")
			}
			c.Goods.Defs[d.ID] = d
		}
		c.Goods.Digest = sha256Hex(raw)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("goods.json: %w", err)
	}

	if err := loadTable(filepath.Join(configDir, "recipes.json"), schemas["recipes"], func(raw []byte) error {
		var defs []RecipeDef
		if err := json.Unmarshal(raw, &defs); err != nil {
			return err
		}
		c.Recipes.Defs = map[string]RecipeDef{}
		for _, d := range defs {
			if d.ID == "" {
				return fmt.Errorf("empty recipe id")
			}
			c.Recipes.Defs[d.ID] = d
		}
		c.Recipes.Digest = sha256Hex(raw)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("recipes.json: %w", err)
	}

	if err := c.crossCheck(); err != nil {
		return nil, err
	}
	return &c, nil
}

// crossCheck rejects dangling references between tables so a bad content push
// fails at startup instead of mid-game.
func (c *Catalogs) crossCheck() error {
	for id, item := range c.Items.Defs {
		if item.Type == TypeAnimalHousing {
			if item.ProducesProductID == "" || item.ProductionTimeMs <= 0 {
				return fmt.Errorf("items.json: %s: animal_housing needs produces_product_id and production_time_ms", id)
			}
			if _, ok := c.Goods.Defs[item.ProducesProductID]; !ok {
				return fmt.Errorf("items.json: %s: unknown product %q", id, item.ProducesProductID)
			}
		}
		if item.Type == TypeFactory {
			if item.BaseQueueSize <= 0 {
				return fmt.Errorf("items.json: %s: factory needs base_queue_size", id)
			}
			for _, rid := range item.RecipeIDs {
				if _, ok := c.Recipes.Defs[rid]; !ok {
					return fmt.Errorf("items.json: %s: unknown recipe %q", id, rid)
				}
			}
		}
	}
	for id, r := range c.Recipes.Defs {
		if _, ok := c.Goods.Defs[r.OutputID]; !ok {
			return fmt.Errorf("recipes.json: %s: unknown output %q", id, r.OutputID)
		}
		for in := range r.Inputs {
			if !c.IsSellable(in) {
				return fmt.Errorf("recipes.json: %s: unknown input %q", id, in)
			}
		}
	}
	return nil
}

// SellPrice returns the base sell price for any sellable id (crop or good).
func (c *Catalogs) SellPrice(id string) (int, bool) {
	if crop, ok := c.Crops.Defs[id]; ok {
		return crop.SellPrice, true
	}
	if good, ok := c.Goods.Defs[id]; ok {
		return good.SellPrice, true
	}
	return 0, false
}

func (c *Catalogs) IsSellable(id string) bool {
	_, ok := c.SellPrice(id)
	return ok
}

// SellableIDs lists every crop and good id, for market modifier rolls.
func (c *Catalogs) SellableIDs() []string {
	ids := make([]string, 0, len(c.Crops.Defs)+len(c.Goods.Defs))
	for id := range c.Crops.Defs {
		ids = append(ids, id)
	}
	for id := range c.Goods.Defs {
		ids = append(ids, id)
	}
	return ids
}

func loadTable(path string, schema *jsonschema.Schema, decode func([]byte) error) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if schema != nil {
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return err
		}
		if err := schema.Validate(doc); err != nil {
			return fmt.Errorf("schema: %w", err)
		}
	}
	return decode(raw)
}

// compileSchemas loads the optional *.schema.json files. Missing schemas mean
// structural validation only happens via decoding.
func compileSchemas(dir string) (map[string]*jsonschema.Schema, error) {
	out := map[string]*jsonschema.Schema{}
	for _, name := range []string{"crops", "items", "goods", "recipes"} {
		path := filepath.Join(dir, name+".schema.json")
		raw, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(name+".schema.json", bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		schema, err := compiler.Compile(name + ".schema.json")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out[name] = schema
	}
	return out, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
