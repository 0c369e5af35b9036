package farm

import (
	"context"
	"fmt"
	"time"

	"farmstead.gg/internal/protocol"
)

// Run owns the farm until ctx ends or Stop is called. Channel traffic is
// accumulated and applied at the next tick boundary so every mutation happens
// on this goroutine.
func (f *Farm) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Duration(f.cfg.Tuning.TickMs) * time.Millisecond)
	defer ticker.Stop()

	var pendingActions []ActionEnvelope
	var pendingJoins []JoinRequest
	var pendingLeaves []string

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.stop:
			return nil
		case req := <-f.join:
			pendingJoins = append(pendingJoins, req)
		case id := <-f.leave:
			pendingLeaves = append(pendingLeaves, id)
		case env := <-f.inbox:
			pendingActions = append(pendingActions, env)
		case <-ticker.C:
			f.step(pendingJoins, pendingLeaves, pendingActions)
			pendingJoins = pendingJoins[:0]
			pendingLeaves = pendingLeaves[:0]
			pendingActions = pendingActions[:0]
		}
	}
}

func (f *Farm) Stop() { close(f.stop) }

// StepOnce advances the farm one tick with the same ordering as the server
// loop. For deterministic tests.
func (f *Farm) StepOnce(joins []JoinRequest, leaves []string, actions []ActionEnvelope) uint64 {
	tick := f.tick.Load()
	f.step(joins, leaves, actions)
	return tick
}

func (f *Farm) joinSession(name string, out chan []byte) JoinResponse {
	if name == "" {
		name = "farmer"
	}
	sessionID := fmt.Sprintf("S%d", f.sessionSeq.Add(1))
	if out != nil {
		f.clients[sessionID] = &clientState{sessionID: sessionID, out: out}
	}
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		FarmParams: protocol.FarmParams{
			TickMs:        f.cfg.Tuning.TickMs,
			HourTicks:     f.cfg.Tuning.HourTicks,
			DaysPerSeason: f.cfg.Tuning.DaysPerSeason,
			GridWidth:     f.cfg.Tuning.GridWidth,
			GridHeight:    f.cfg.Tuning.GridHeight,
		},
		Catalogs: protocol.CatalogDigests{
			CropsDigest:   f.cats.Crops.Digest,
			ItemsDigest:   f.cats.Items.Digest,
			GoodsDigest:   f.cats.Goods.Digest,
			RecipesDigest: f.cats.Recipes.Digest,
		},
	}
	f.lg.Printf("session %s joined (%s)", sessionID, name)
	return JoinResponse{SessionID: sessionID, Welcome: welcome}
}

func (f *Farm) handleLeave(sessionID string) {
	delete(f.clients, sessionID)
}

// sendLatest delivers b without ever blocking the sim loop: if the channel is
// full, the oldest pending payload is dropped in favor of the new one.
func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
