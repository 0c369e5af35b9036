package farm

import (
	"fmt"

	"farmstead.gg/internal/catalogs"
	"farmstead.gg/internal/protocol"
)

// objectAt returns the placed object covering (x, y), if any.
func (f *Farm) objectAt(x, y int) *PlacedObject {
	for i := range f.objects {
		o := &f.objects[i]
		item, ok := f.cats.Items.Defs[o.ItemID]
		if !ok {
			continue
		}
		if x >= o.X && x < o.X+item.Width && y >= o.Y && y < o.Y+item.Height {
			return o
		}
	}
	return nil
}

func (f *Farm) objectByInstance(instanceID int) *PlacedObject {
	for i := range f.objects {
		if f.objects[i].InstanceID == instanceID {
			return &f.objects[i]
		}
	}
	return nil
}

// positionValid checks an item footprint anchored at (x, y): every covered
// tile must be unlocked free space and no other object may overlap it.
// ignoreInstance lets a move ignore the object's own current footprint.
func (f *Farm) positionValid(item catalogs.ItemDef, x, y int, ignoreInstance int) bool {
	for dy := 0; dy < item.Height; dy++ {
		for dx := 0; dx < item.Width; dx++ {
			tile := f.tileAt(x+dx, y+dy)
			if tile == nil || tile.State != TileFreeSpace {
				return false
			}
			if o := f.objectAt(x+dx, y+dy); o != nil && o.InstanceID != ignoreInstance {
				return false
			}
		}
	}
	return true
}

// findPlacement scans the grid row-major for the first valid anchor.
func (f *Farm) findPlacement(item catalogs.ItemDef) (int, int, bool) {
	for y := 0; y < f.cfg.Tuning.GridHeight; y++ {
		for x := 0; x < f.cfg.Tuning.GridWidth; x++ {
			if f.positionValid(item, x, y, 0) {
				return x, y, true
			}
		}
	}
	return 0, 0, false
}

// BuyObject purchases one item and auto-places it at the first free spot.
// Factories and animal housings get their production state created here.
func (f *Farm) BuyObject(itemID string) Result {
	item, ok := f.cats.Items.Defs[itemID]
	if !ok {
		return resFail(protocol.ErrUnknownID, fmt.Sprintf("unknown item %q", itemID))
	}
	if item.UnlockLevel > f.player.Level {
		return resFail(protocol.ErrLevelLocked, fmt.Sprintf("%s unlocks at level %d", item.Name, item.UnlockLevel))
	}
	if f.player.Coins < int64(item.Cost) {
		return resFail(protocol.ErrNoFunds, fmt.Sprintf("need %d coins", item.Cost))
	}
	x, y, found := f.findPlacement(item)
	if !found {
		return resFail(protocol.ErrBlocked, "no free space for this item")
	}
	f.player.spendCoins(int64(item.Cost))
	obj := PlacedObject{InstanceID: f.allocInstanceID(), ItemID: itemID, X: x, Y: y}
	f.objects = append(f.objects, obj)
	switch item.Type {
	case catalogs.TypeFactory:
		f.factories[obj.InstanceID] = &FactoryState{InstanceID: obj.InstanceID, Level: 1}
	case catalogs.TypeAnimalHousing:
		f.animals[obj.InstanceID] = &AnimalState{InstanceID: obj.InstanceID, LastCollectionMs: f.nowMs()}
	}
	f.writeAudit("buy_object", itemID, x, y, "")
	f.markDirty(true)
	return resOK()
}

// MoveObject relocates an instance. The destination is fully revalidated
// here; client-side validity claims are ignored.
func (f *Farm) MoveObject(instanceID, x, y int) Result {
	obj := f.objectByInstance(instanceID)
	if obj == nil {
		return resFail(protocol.ErrUnknownID, fmt.Sprintf("no object instance %d", instanceID))
	}
	item, ok := f.cats.Items.Defs[obj.ItemID]
	if !ok {
		return resFail(protocol.ErrInternal, fmt.Sprintf("instance %d references unknown item %q", instanceID, obj.ItemID))
	}
	if !f.positionValid(item, x, y, instanceID) {
		return resFail(protocol.ErrBlocked, "destination is blocked")
	}
	obj.X, obj.Y = x, y
	f.writeAudit("move_object", obj.ItemID, x, y, "")
	f.markDirty(false)
	return resOK()
}

// RemoveObject deletes an instance and its production state. No refund; any
// queued factory work is lost with the building.
func (f *Farm) RemoveObject(instanceID int) Result {
	idx := -1
	for i := range f.objects {
		if f.objects[i].InstanceID == instanceID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return resFail(protocol.ErrUnknownID, fmt.Sprintf("no object instance %d", instanceID))
	}
	itemID := f.objects[idx].ItemID
	f.objects = append(f.objects[:idx], f.objects[idx+1:]...)
	delete(f.factories, instanceID)
	delete(f.animals, instanceID)
	f.writeAudit("remove_object", itemID, 0, 0, "")
	f.markDirty(true)
	return resOK()
}
