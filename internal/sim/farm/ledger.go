package farm

import (
	"fmt"

	"farmstead.gg/internal/protocol"
)

// The ledger primitives are the only code that mutates coins, XP, and
// inventory. Every one either applies fully or not at all.

// inventoryCount is the total quantity across all stacks, the number the
// storage cap is checked against.
func (p *PlayerState) inventoryCount() int {
	total := 0
	for _, qty := range p.Inventory {
		total += qty
	}
	return total
}

// addToInventory deposits qty of itemID, refusing the whole deposit if it
// would push the total past the storage cap. Partial deposits never happen.
func (p *PlayerState) addToInventory(itemID string, qty int) bool {
	if qty <= 0 {
		return false
	}
	if p.inventoryCount()+qty > p.Storage.Max {
		return false
	}
	p.Inventory[itemID] += qty
	return true
}

// consumeFromInventory removes every requested stack or nothing. Emptied
// stacks are deleted so the inventory map never carries zero entries.
func (p *PlayerState) consumeFromInventory(needs map[string]int) bool {
	for itemID, qty := range needs {
		if qty <= 0 {
			return false
		}
		if p.Inventory[itemID] < qty {
			return false
		}
	}
	for itemID, qty := range needs {
		p.Inventory[itemID] -= qty
		if p.Inventory[itemID] <= 0 {
			delete(p.Inventory, itemID)
		}
	}
	return true
}

func (p *PlayerState) spendCoins(amount int64) bool {
	if amount < 0 || p.Coins < amount {
		return false
	}
	p.Coins -= amount
	return true
}

// creditSale pays out a sale: coins plus XP at the configured permille rate.
func (f *Farm) creditSale(coins int64) {
	f.player.Coins += coins
	f.player.XP += coins * int64(f.cfg.Tuning.XPPerCoinPermille) / 1000
	f.player.Level = f.levelForXP(f.player.XP)
}

// Sell removes qty of itemID from the inventory and credits the proceeds at
// the current market price. Unknown or unsellable ids fail before any state
// changes.
func (f *Farm) Sell(itemID string, qty int) Result {
	if qty <= 0 {
		return resFail(protocol.ErrBadRequest, "quantity must be positive")
	}
	base, ok := f.cats.SellPrice(itemID)
	if !ok {
		return resFail(protocol.ErrUnknownID, fmt.Sprintf("unknown item %q", itemID))
	}
	if f.player.Inventory[itemID] < qty {
		return resFail(protocol.ErrNoResource, fmt.Sprintf("not enough %s to sell", itemID))
	}
	unit := f.marketPrice(itemID, base)
	if !f.player.consumeFromInventory(map[string]int{itemID: qty}) {
		return resFail(protocol.ErrNoResource, fmt.Sprintf("not enough %s to sell", itemID))
	}
	f.creditSale(int64(unit) * int64(qty))
	f.writeAudit("sell", itemID, 0, 0, fmt.Sprintf("sold %dx %s at %d", qty, itemID, unit))
	f.markDirty(true)
	return resOK()
}
