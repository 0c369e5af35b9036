package farm

import (
	"fmt"

	"farmstead.gg/internal/protocol"
)

// applyAct dispatches one client action. Every op yields exactly one Result,
// success or not, echoed back with the client's act id.
func (f *Farm) applyAct(act protocol.ActMsg) Result {
	switch act.Op {
	case protocol.OpPlant:
		return f.Plant(act.TileID, act.CropID)
	case protocol.OpHarvest:
		return f.Harvest(act.TileID)
	case protocol.OpExpandPreview:
		return f.ExpandPreview(act.TileID)
	case protocol.OpExpandConfirm:
		return f.ExpandConfirm()
	case protocol.OpExpandCancel:
		return f.ExpandCancel()
	case protocol.OpBuyObject:
		return f.BuyObject(act.ItemID)
	case protocol.OpMoveObject:
		return f.MoveObject(act.InstanceID, act.X, act.Y)
	case protocol.OpRemoveObject:
		return f.RemoveObject(act.InstanceID)
	case protocol.OpStartProduction:
		return f.StartProduction(act.InstanceID, act.RecipeID)
	case protocol.OpCollectFactory:
		return f.CollectFactory(act.InstanceID)
	case protocol.OpUpgradeFactory:
		return f.UpgradeFactory(act.InstanceID)
	case protocol.OpToggleAutoRun:
		return f.ToggleAutoRun(act.InstanceID)
	case protocol.OpCollectAnimal:
		return f.CollectAnimal(act.InstanceID)
	case protocol.OpSell:
		return f.Sell(act.ItemID, act.Qty)
	case protocol.OpToggleWorker:
		return f.ToggleWorker(act.WorkerID)
	default:
		return resFail(protocol.ErrBadRequest, fmt.Sprintf("unknown op %q", act.Op))
	}
}
