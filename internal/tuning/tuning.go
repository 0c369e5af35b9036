package tuning

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"farmstead.gg/internal/sim/clock"
)

type Tuning struct {
	TickMs        int `yaml:"tick_ms"`
	HourTicks     int `yaml:"hour_ticks"`
	DaysPerSeason int `yaml:"days_per_season"`

	GridWidth     int `yaml:"grid_width"`
	GridHeight    int `yaml:"grid_height"`
	StartAreaSize int `yaml:"start_area_size"`

	ExpansionBaseCost   int     `yaml:"expansion_base_cost"`
	ExpansionMultiplier float64 `yaml:"expansion_multiplier"`
	ExpansionChunkSize  int     `yaml:"expansion_chunk_size"`

	StorageMax    int `yaml:"storage_max"`
	StartingCoins int `yaml:"starting_coins"`
	StartingXP    int `yaml:"starting_xp"`
	XPPerLevel    int `yaml:"xp_per_level"`
	// XP credited per coin earned on a sale, in permille. 1000 keeps the
	// original 1:1 coupling; it is a tunable, not an invariant.
	XPPerCoinPermille int `yaml:"xp_per_coin_permille"`

	SaveDebounceMs int `yaml:"save_debounce_ms"`

	WorkerTravelMs int `yaml:"worker_travel_ms"`
	WorkerLogCap   int `yaml:"worker_log_cap"`

	MarketUpdateTicks         int `yaml:"market_update_ticks"`
	MarketEventChancePermille int `yaml:"market_event_chance_permille"`
	// Base price fluctuation half-range, permille (200 = +/-20%).
	MarketFluctuationPermille int `yaml:"market_fluctuation_permille"`

	MarketEvents []MarketEvent `yaml:"market_events"`

	Weather map[string]map[clock.Weather]float64 `yaml:"weather"`

	Workers []WorkerSeed `yaml:"workers"`
}

type MarketEvent struct {
	ID          string  `yaml:"id" json:"id"`
	Description string  `yaml:"description" json:"description"`
	ItemID      string  `yaml:"item_id" json:"item_id"`
	Multiplier  float64 `yaml:"multiplier" json:"multiplier"`
}

type WorkerSeed struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	X    int    `yaml:"x"`
	Y    int    `yaml:"y"`
}

func Defaults() Tuning {
	return Tuning{
		TickMs:        500,
		HourTicks:     4,
		DaysPerSeason: 30,

		GridWidth:     31,
		GridHeight:    31,
		StartAreaSize: 7,

		ExpansionBaseCost:   800,
		ExpansionMultiplier: 1.35,
		ExpansionChunkSize:  7,

		StorageMax:        50,
		StartingCoins:     1000,
		StartingXP:        150,
		XPPerLevel:        500,
		XPPerCoinPermille: 1000,

		SaveDebounceMs: 2000,

		WorkerTravelMs: 1000,
		WorkerLogCap:   10,

		MarketUpdateTicks:         240,
		MarketEventChancePermille: 500,
		MarketFluctuationPermille: 200,

		MarketEvents: []MarketEvent{
			{ID: "wheat_boom", Description: "Wheat demand spike! Sell price +50%", ItemID: "wheat", Multiplier: 1.5},
			{ID: "corn_craze", Description: "Corn is in high demand! Sell price +40%", ItemID: "corn", Multiplier: 1.4},
			{ID: "egg_surplus", Description: "Egg surplus! Sell price -30%", ItemID: "egg", Multiplier: 0.7},
			{ID: "flour_frenzy", Description: "Bakers are busy! Flour price +60%", ItemID: "flour", Multiplier: 1.6},
		},

		Weather: map[string]map[clock.Weather]float64{
			"spring": {clock.Sunny: 0.4, clock.Cloudy: 0.25, clock.Rainy: 0.3, clock.Stormy: 0.05},
			"summer": {clock.Sunny: 0.6, clock.Cloudy: 0.2, clock.Rainy: 0.1, clock.Stormy: 0.1},
			"autumn": {clock.Sunny: 0.3, clock.Cloudy: 0.3, clock.Rainy: 0.2, clock.Windy: 0.15, clock.Stormy: 0.05},
			"winter": {clock.Sunny: 0.2, clock.Cloudy: 0.4, clock.Rainy: 0.1, clock.Snowy: 0.25, clock.Windy: 0.05},
		},

		Workers: []WorkerSeed{
			{ID: "harvester-1", Name: "Harvester Bot", X: 5, Y: 5},
		},
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.TickMs <= 0 || t.HourTicks <= 0 {
		return fmt.Errorf("tick_ms and hour_ticks must be positive")
	}
	if t.GridWidth <= 0 || t.GridHeight <= 0 {
		return fmt.Errorf("grid dimensions must be positive")
	}
	if t.StartAreaSize > t.GridWidth || t.StartAreaSize > t.GridHeight {
		return fmt.Errorf("start_area_size %d exceeds grid %dx%d", t.StartAreaSize, t.GridWidth, t.GridHeight)
	}
	if t.ExpansionMultiplier <= 1.0 {
		return fmt.Errorf("expansion_multiplier must be > 1.0 (costs must strictly increase)")
	}
	for _, season := range []string{"spring", "summer", "autumn", "winter"} {
		dist, ok := t.Weather[season]
		if !ok {
			return fmt.Errorf("weather: missing season %q", season)
		}
		sum := 0.0
		for w, p := range dist {
			if p < 0 {
				return fmt.Errorf("weather: %s %s has negative probability", season, w)
			}
			sum += p
		}
		if math.Abs(sum-1.0) > 1e-9 {
			return fmt.Errorf("weather: %s probabilities sum to %v, want 1.0", season, sum)
		}
	}
	return nil
}

// WeatherDist returns the distribution for a season (keys are lowercase in the
// yaml table).
func (t Tuning) WeatherDist(s clock.Season) map[clock.Weather]float64 {
	switch s {
	case clock.Spring:
		return t.Weather["spring"]
	case clock.Summer:
		return t.Weather["summer"]
	case clock.Autumn:
		return t.Weather["autumn"]
	default:
		return t.Weather["winter"]
	}
}
