package farm

import (
	"encoding/json"
	"sort"

	"farmstead.gg/internal/sim/clock"
)

// The view is the per-tick client snapshot: full state plus the derived
// fields clients would otherwise have to recompute (growth percent, readiness,
// live sell prices). Encoded once per step and fanned out to every session.

type TileView struct {
	Tile
	Growth *GrowthInfo `json:"growth,omitempty"`
}

type FactoryView struct {
	FactoryState
	QueueCapacity int     `json:"queue_capacity"`
	SpeedMult     float64 `json:"speed_mult"`
}

type AnimalView struct {
	AnimalState
	Ready bool `json:"ready"`
}

type PriceView struct {
	ItemID string `json:"item_id"`
	Price  int    `json:"price"`
}

type View struct {
	Date    clock.GameDate `json:"date"`
	Season  clock.Season   `json:"season"`
	Weather clock.Weather  `json:"weather"`

	Player  PlayerState    `json:"player"`
	Tiles   []TileView     `json:"tiles"`
	Objects []PlacedObject `json:"objects"`

	Factories []FactoryView `json:"factories"`
	Animals   []AnimalView  `json:"animals"`
	Workers   []Worker      `json:"workers"`
	Logs      []ActionLog   `json:"logs"`

	Preview *ExpansionPreview `json:"expansion_preview,omitempty"`
	Market  MarketState       `json:"market"`
	Prices  []PriceView       `json:"prices"`
}

func (f *Farm) buildView() View {
	v := View{
		Date:    f.date,
		Season:  f.season(),
		Weather: f.weather,
		Player:  f.player,
		Objects: f.objects,
		Logs:    f.logs,
		Preview: f.preview,
		Market:  f.market,
	}
	v.Tiles = make([]TileView, 0, len(f.tiles))
	for i := range f.tiles {
		tv := TileView{Tile: f.tiles[i]}
		if info, ok := f.tileGrowth(&f.tiles[i]); ok {
			g := info
			tv.Growth = &g
		}
		v.Tiles = append(v.Tiles, tv)
	}
	for _, obj := range f.objects {
		if fs, item, res := f.factoryFor(obj.InstanceID); res.OK {
			v.Factories = append(v.Factories, FactoryView{
				FactoryState:  *fs,
				QueueCapacity: item.QueueCapacity(fs.Level),
				SpeedMult:     item.SpeedMultiplier(fs.Level),
			})
		}
		if as, item, res := f.animalFor(obj.InstanceID); res.OK {
			v.Animals = append(v.Animals, AnimalView{
				AnimalState: *as,
				Ready:       f.animalReady(as, item),
			})
		}
	}
	for _, w := range f.workers {
		v.Workers = append(v.Workers, *w)
	}
	ids := f.cats.SellableIDs()
	sort.Strings(ids)
	for _, id := range ids {
		if base, ok := f.cats.SellPrice(id); ok {
			v.Prices = append(v.Prices, PriceView{ItemID: id, Price: f.marketPrice(id, base)})
		}
	}
	return v
}

func (f *Farm) encodeView() (json.RawMessage, error) {
	return json.Marshal(f.buildView())
}
