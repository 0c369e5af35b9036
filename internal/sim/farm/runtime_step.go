package farm

import (
	"encoding/json"
	"time"

	"farmstead.gg/internal/protocol"
	"farmstead.gg/internal/sim/clock"
)

func (f *Farm) step(joins []JoinRequest, leaves []string, actions []ActionEnvelope) {
	stepStart := time.Now()
	nowTick := f.tick.Load()

	// Calendar first, so actions this tick see the new hour/weather.
	f.stepClock()

	for _, id := range leaves {
		if _, ok := f.clients[id]; ok {
			f.handleLeave(id)
			f.lg.Printf("session %s left", id)
		}
	}
	for _, req := range joins {
		resp := f.joinSession(req.Name, req.Out)
		if req.Resp != nil {
			req.Resp <- resp
		}
	}

	// Actions apply in server receive order; every one gets a RESULT.
	for _, env := range actions {
		res := f.applyAct(env.Act)
		f.sendResult(env.SessionID, nowTick, env.Act, res)
	}

	f.stepFactories()
	f.stepWorkers()
	f.stepMarket(nowTick)

	f.broadcastState(nowTick)
	f.flushDocument()

	stepMS := float64(time.Since(stepStart).Microseconds()) / 1000.0
	f.tick.Add(1)
	f.status.Store(&Status{
		Tick:       nowTick + 1,
		Clients:    len(f.clients),
		InboxDepth: len(f.inbox),
		StepMs:     stepMS,
		Day:        f.date.Day,
		Year:       f.date.Year,
		Season:     f.season(),
		Weather:    f.weather,
	})
}

// stepClock advances the game hour once every HourTicks ticks. Weather only
// re-rolls on day rollover.
func (f *Farm) stepClock() {
	f.ticksIntoHour++
	if f.ticksIntoHour < f.cfg.Tuning.HourTicks {
		return
	}
	f.ticksIntoHour = 0
	next, dayRolled := clock.Advance(f.date, f.cfg.Tuning.DaysPerSeason)
	f.date = next
	if dayRolled {
		dist := f.cfg.Tuning.WeatherDist(f.season())
		f.weather = clock.RollWeather(dist, f.rng.Float64(), f.weather)
		f.lg.Printf("day %d year %d begins: %s, %s", f.date.Day, f.date.Year, f.season(), f.weather)
	}
	f.markDirty(false)
}

func (f *Farm) sendResult(sessionID string, tick uint64, act protocol.ActMsg, res Result) {
	cl := f.clients[sessionID]
	if cl == nil {
		return
	}
	code := res.Code
	if !protocol.IsKnownCode(code) {
		code = protocol.ErrInternal
	}
	msg := protocol.ResultMsg{
		Type:    protocol.TypeResult,
		Tick:    tick,
		ActID:   act.ActID,
		Op:      act.Op,
		OK:      res.OK,
		Code:    code,
		Message: res.Message,
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	sendLatest(cl.out, b)
}

func (f *Farm) broadcastState(tick uint64) {
	if len(f.clients) == 0 {
		return
	}
	view, err := f.encodeView()
	if err != nil {
		f.lg.Printf("encode view: %v", err)
		return
	}
	var save string
	if f.saveStatusFn != nil {
		save = f.saveStatusFn()
	}
	b, err := json.Marshal(protocol.StateMsg{Type: protocol.TypeState, Tick: tick, SaveStatus: save, View: view})
	if err != nil {
		return
	}
	for _, cl := range f.clients {
		sendLatest(cl.out, b)
	}
}

// flushDocument hands the dirty state to the save pipeline. The sink send is
// non-blocking: if the pipeline is backed up the farm stays dirty and retries
// next tick, so critical flags are never lost.
func (f *Farm) flushDocument() {
	if !f.dirty || f.docSink == nil {
		return
	}
	save := DocumentSave{Doc: f.ExportDocument(), Critical: f.critical}
	select {
	case f.docSink <- save:
		f.dirty = false
		f.critical = false
	default:
	}
}
