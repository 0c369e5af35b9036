package farm

import (
	"io"
	"log"
	"testing"

	"farmstead.gg/internal/catalogs"
	"farmstead.gg/internal/sim/clock"
	"farmstead.gg/internal/tuning"
)

// newTestFarm builds a farm over the real content tables with a frozen clock.
// Mutate *nowMs to move time; weather starts Cloudy (neutral growth) so
// timing math in tests stays simple.
func newTestFarm(t *testing.T) (*Farm, *int64) {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	f, err := New(Config{PlayerID: "p1", Seed: 42, Tuning: tuning.Defaults()}, cats, nil, nil, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("new farm: %v", err)
	}
	now := int64(1_000_000)
	f.nowMs = func() int64 { return now }
	f.weather = clock.Cloudy
	return f, &now
}

func mustOK(t *testing.T, res Result) {
	t.Helper()
	if !res.OK {
		t.Fatalf("operation failed: %s %s", res.Code, res.Message)
	}
}

func mustFail(t *testing.T, res Result, code string) {
	t.Helper()
	if res.OK {
		t.Fatalf("operation succeeded, want failure %s", code)
	}
	if res.Code != code {
		t.Fatalf("failure code = %s, want %s (%s)", res.Code, code, res.Message)
	}
}

// firstEmptyPlot returns a starter plot tile id.
func firstEmptyPlot(t *testing.T, f *Farm) int {
	t.Helper()
	for i := range f.tiles {
		if f.tiles[i].State == TileEmptyPlot {
			return f.tiles[i].ID
		}
	}
	t.Fatal("no empty plot on fresh farm")
	return -1
}

// buyAt places an item by id and returns its instance. Grants coins first so
// placement tests are not entangled with the economy.
func buyAt(t *testing.T, f *Farm, itemID string) *PlacedObject {
	t.Helper()
	f.player.Coins += 100_000
	mustOK(t, f.BuyObject(itemID))
	obj := &f.objects[len(f.objects)-1]
	if obj.ItemID != itemID {
		t.Fatalf("last object = %s, want %s", obj.ItemID, itemID)
	}
	return obj
}
