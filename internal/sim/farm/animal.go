package farm

import (
	"fmt"

	"farmstead.gg/internal/catalogs"
	"farmstead.gg/internal/protocol"
)

func (f *Farm) animalFor(instanceID int) (*AnimalState, catalogs.ItemDef, Result) {
	as, ok := f.animals[instanceID]
	if !ok {
		return nil, catalogs.ItemDef{}, resFail(protocol.ErrUnknownID, fmt.Sprintf("no animal housing instance %d", instanceID))
	}
	obj := f.objectByInstance(instanceID)
	if obj == nil {
		return nil, catalogs.ItemDef{}, resFail(protocol.ErrInternal, fmt.Sprintf("animal housing %d has no placed object", instanceID))
	}
	item, ok := f.cats.Items.Defs[obj.ItemID]
	if !ok || item.Type != catalogs.TypeAnimalHousing {
		return nil, catalogs.ItemDef{}, resFail(protocol.ErrInternal, fmt.Sprintf("animal housing %d references bad item %q", instanceID, obj.ItemID))
	}
	return as, item, resOK()
}

// animalReady reports whether a full production cycle has elapsed since the
// last collection.
func (f *Farm) animalReady(as *AnimalState, item catalogs.ItemDef) bool {
	return f.nowMs() >= as.LastCollectionMs+item.ProductionTimeMs
}

// CollectAnimal banks one product and restarts the cycle from now. The cycle
// does not restart if storage rejects the product.
func (f *Farm) CollectAnimal(instanceID int) Result {
	as, item, res := f.animalFor(instanceID)
	if !res.OK {
		return res
	}
	if !f.animalReady(as, item) {
		return resFail(protocol.ErrNotReady, fmt.Sprintf("%s is not ready yet", item.Name))
	}
	if !f.player.addToInventory(item.ProducesProductID, 1) {
		return resFail(protocol.ErrNoStorage, "storage is full")
	}
	as.LastCollectionMs = f.nowMs()
	f.writeAudit("collect_animal", item.ProducesProductID, 0, 0, fmt.Sprintf("housing %d", instanceID))
	f.markDirty(true)
	return resOK()
}
