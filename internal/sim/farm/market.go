package farm

import (
	"fmt"
	"math"
	"sort"

	"farmstead.gg/internal/tuning"
)

// MarketState carries the current sell-price modifiers. It is rolled from the
// farm's RNG and deliberately not persisted: a reload just rolls fresh prices.
type MarketState struct {
	Modifiers      map[string]float64  `json:"modifiers"`
	ActiveEvent    *tuning.MarketEvent `json:"active_event,omitempty"`
	LastUpdateTick uint64              `json:"last_update_tick"`
}

func (f *Farm) initMarket() {
	f.market = MarketState{Modifiers: map[string]float64{}}
	f.rollMarket(0)
}

// rollMarket re-draws per-item fluctuation and maybe an event. Iteration is
// over sorted ids so a seeded RNG gives reproducible prices.
func (f *Farm) rollMarket(tick uint64) {
	half := float64(f.cfg.Tuning.MarketFluctuationPermille) / 1000
	ids := f.cats.SellableIDs()
	sort.Strings(ids)
	for _, id := range ids {
		f.market.Modifiers[id] = 1 - half + f.rng.Float64()*2*half
	}
	f.market.ActiveEvent = nil
	chance := float64(f.cfg.Tuning.MarketEventChancePermille) / 1000
	if events := f.cfg.Tuning.MarketEvents; len(events) > 0 && f.rng.Float64() < chance {
		ev := events[f.rng.Intn(len(events))]
		f.market.ActiveEvent = &ev
		f.appendLog(fmt.Sprintf("Market news: %s", ev.Description))
	}
	f.market.LastUpdateTick = tick
}

func (f *Farm) stepMarket(tick uint64) {
	interval := uint64(f.cfg.Tuning.MarketUpdateTicks)
	if interval == 0 || tick < f.market.LastUpdateTick+interval {
		return
	}
	f.rollMarket(tick)
}

// marketPrice applies the fluctuation modifier to a base sell price, rounding
// to the nearest coin with a floor of 1. An active event replaces the
// fluctuation for its item: the event multiple is the price.
func (f *Farm) marketPrice(itemID string, base int) int {
	mod, ok := f.market.Modifiers[itemID]
	if !ok {
		mod = 1.0
	}
	if ev := f.market.ActiveEvent; ev != nil && ev.ItemID == itemID {
		mod = ev.Multiplier
	}
	price := int(math.Round(float64(base) * mod))
	if price < 1 {
		price = 1
	}
	return price
}
