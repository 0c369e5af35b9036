package farm

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"sync/atomic"
	"time"

	"farmstead.gg/internal/catalogs"
	"farmstead.gg/internal/sim/clock"
	"farmstead.gg/internal/tuning"
)

// Config carries everything a Farm needs at construction. Tuning must already
// be validated by the loader.
type Config struct {
	PlayerID string
	Seed     int64
	Tuning   tuning.Tuning
}

// Farm is the authoritative simulation for a single player's farm. All state
// is owned by the Run goroutine: external callers talk to it through the
// inbox/join/leave channels, never by touching fields directly.
type Farm struct {
	cfg  Config
	cats *catalogs.Catalogs
	lg   *log.Logger

	tick  atomic.Uint64
	nowMs func() int64
	rng   *rand.Rand

	date            clock.GameDate
	weather         clock.Weather
	ticksIntoHour   int

	player    PlayerState
	tiles     []Tile
	objects   []PlacedObject
	factories map[int]*FactoryState
	animals   map[int]*AnimalState
	workers   []*Worker
	logs      []ActionLog
	tasks     json.RawMessage
	preview   *ExpansionPreview
	market    MarketState

	nextInstanceID int
	nextJobID      int

	inbox chan ActionEnvelope
	join  chan JoinRequest
	leave chan string
	stop  chan struct{}

	clients    map[string]*clientState
	sessionSeq atomic.Uint64

	docSink      chan<- DocumentSave
	audit        AuditLogger
	saveStatusFn func() string
	actor        string

	dirty    bool
	critical bool

	status atomic.Pointer[Status]
}

type clientState struct {
	sessionID string
	out       chan []byte
}

// Status is a point-in-time snapshot of runtime health, published once per
// step for the metrics endpoint.
type Status struct {
	Tick       uint64
	Clients    int
	InboxDepth int
	StepMs     float64
	Day        int
	Year       int
	Season     clock.Season
	Weather    clock.Weather
}

// New builds a fresh farm at day 1 / hour 6 / year 1 with the starting plot
// layout, seeded workers, and a neutral market.
func New(cfg Config, cats *catalogs.Catalogs, sink chan<- DocumentSave, audit AuditLogger, lg *log.Logger) (*Farm, error) {
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, fmt.Errorf("tuning: %w", err)
	}
	if cfg.PlayerID == "" {
		return nil, fmt.Errorf("player id required")
	}
	if lg == nil {
		lg = log.Default()
	}
	f := &Farm{
		cfg:       cfg,
		cats:      cats,
		lg:        lg,
		nowMs:     func() int64 { return time.Now().UnixMilli() },
		rng:       rand.New(rand.NewSource(cfg.Seed)),
		date:      clock.Start(),
		factories: make(map[int]*FactoryState),
		animals:   make(map[int]*AnimalState),
		inbox:     make(chan ActionEnvelope, 256),
		join:      make(chan JoinRequest),
		leave:     make(chan string),
		stop:      make(chan struct{}),
		clients:   make(map[string]*clientState),
		docSink:   sink,
		audit:     audit,
		actor:     "player",
	}
	f.weather = f.rollInitialWeather()
	f.initPlayer()
	f.initGrid()
	f.initWorkers()
	f.initMarket()
	f.status.Store(&Status{Tick: 0, Season: f.season(), Weather: f.weather, Day: f.date.Day, Year: f.date.Year})
	return f, nil
}

func (f *Farm) initPlayer() {
	f.player = PlayerState{
		Coins:     int64(f.cfg.Tuning.StartingCoins),
		XP:        int64(f.cfg.Tuning.StartingXP),
		Storage:   Storage{Max: f.cfg.Tuning.StorageMax},
		Inventory: make(map[string]int),
	}
	f.player.Level = f.levelForXP(f.player.XP)
}

func (f *Farm) initWorkers() {
	for _, seed := range f.cfg.Tuning.Workers {
		f.workers = append(f.workers, &Worker{
			ID:     seed.ID,
			Name:   seed.Name,
			Status: WorkerIdle,
			Active: true,
			X:      seed.X,
			Y:      seed.Y,
		})
	}
}

func (f *Farm) rollInitialWeather() clock.Weather {
	dist := f.cfg.Tuning.WeatherDist(clock.SeasonOf(1, f.cfg.Tuning.DaysPerSeason))
	return clock.RollWeather(dist, f.rng.Float64(), clock.Sunny)
}

func (f *Farm) season() clock.Season {
	return clock.SeasonOf(f.date.Day, f.cfg.Tuning.DaysPerSeason)
}

// Tick returns the current tick counter. Safe from any goroutine.
func (f *Farm) Tick() uint64 { return f.tick.Load() }

// CurrentStatus returns the latest published runtime snapshot.
func (f *Farm) CurrentStatus() Status {
	if s := f.status.Load(); s != nil {
		return *s
	}
	return Status{}
}

// SetSaveStatus installs a callback polled once per broadcast for the
// persistence status shown to clients. Must be set before Run starts.
func (f *Farm) SetSaveStatus(fn func() string) { f.saveStatusFn = fn }

// Inbox returns the channel clients submit actions on.
func (f *Farm) Inbox() chan<- ActionEnvelope { return f.inbox }

// Join registers a new session and returns its WELCOME payload.
func (f *Farm) Join() chan<- JoinRequest { return f.join }

// Leave removes a session by id.
func (f *Farm) Leave() chan<- string { return f.leave }

func (f *Farm) markDirty(critical bool) {
	f.dirty = true
	if critical {
		f.critical = true
	}
}

func (f *Farm) levelForXP(xp int64) int {
	per := int64(f.cfg.Tuning.XPPerLevel)
	if per <= 0 {
		return 1
	}
	return int(xp/per) + 1
}

func (f *Farm) allocInstanceID() int {
	f.nextInstanceID++
	return f.nextInstanceID
}

func (f *Farm) allocJobID() int {
	f.nextJobID++
	return f.nextJobID
}

// asActor runs fn with audit entries attributed to actor. The default actor
// is "player"; workers substitute their own id.
func (f *Farm) asActor(actor string, fn func() Result) Result {
	prev := f.actor
	f.actor = actor
	defer func() { f.actor = prev }()
	return fn()
}

func (f *Farm) writeAudit(action, target string, x, y int, msg string) {
	if f.audit == nil {
		return
	}
	if err := f.audit.WriteAudit(AuditEntry{
		Tick:    f.tick.Load(),
		Actor:   f.actor,
		Action:  action,
		Target:  target,
		X:       x,
		Y:       y,
		Message: msg,
	}); err != nil {
		f.lg.Printf("audit write: %v", err)
	}
}

// appendLog pushes a worker history entry, most recent first, trimmed to the
// configured cap.
func (f *Farm) appendLog(msg string) {
	entry := ActionLog{TimestampMs: f.nowMs(), Message: msg}
	f.logs = append([]ActionLog{entry}, f.logs...)
	if limit := f.cfg.Tuning.WorkerLogCap; limit > 0 && len(f.logs) > limit {
		f.logs = f.logs[:limit]
	}
}
