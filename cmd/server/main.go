package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"farmstead.gg/internal/catalogs"
	"farmstead.gg/internal/persistence/docstore"
	persistlog "farmstead.gg/internal/persistence/log"
	"farmstead.gg/internal/sim/farm"
	"farmstead.gg/internal/sync"
	"farmstead.gg/internal/transport/ws"
	"farmstead.gg/internal/tuning"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		playerID   = flag.String("player", "player_1", "player id")
		seed       = flag.Int64("seed", 1337, "farm seed (used only when starting a fresh farm)")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "run without the document store (no persistence)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	_ = os.MkdirAll(*dataDir, 0o755)

	var store *docstore.SQLiteStore
	if !*disableDB {
		store, err = docstore.OpenSQLite(filepath.Join(*dataDir, "farm.db"))
		if err != nil {
			logger.Fatalf("open document store: %v", err)
		}
		defer store.Close()
	}

	auditLog := persistlog.NewAuditLogger(*dataDir)
	defer auditLog.Close()

	saves := make(chan farm.DocumentSave, 64)

	f, err := farm.New(farm.Config{PlayerID: *playerID, Seed: *seed, Tuning: tune}, cats, saves, auditLog, logger)
	if err != nil {
		logger.Fatalf("farm: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	var engine *sync.Engine
	if store != nil {
		engine = sync.New(store, sync.Config{
			PlayerID:   *playerID,
			DebounceMs: tune.SaveDebounceMs,
			Logger:     logger,
			OnConflict: func(n docstore.Notification) {
				logger.Printf("document conflict: player=%s session=%s updated_at=%d; saves frozen", n.PlayerID, n.Meta.SessionID, n.Meta.UpdatedAt)
			},
		})

		doc, meta, loadErr := store.Load(ctx, *playerID)
		switch {
		case loadErr == nil:
			if err := f.ImportDocument(doc); err != nil {
				logger.Fatalf("import document: %v", err)
			}
			engine.Seed(meta)
			logger.Printf("resumed player %s at tick %d", *playerID, doc.Tick)
		case errors.Is(loadErr, docstore.ErrNotFound):
			logger.Printf("no saved document for %s; starting fresh", *playerID)
		default:
			logger.Fatalf("load document: %v", loadErr)
		}

		f.SetSaveStatus(func() string { return string(engine.Snapshot().Status) })

		go func() {
			if err := engine.Run(ctx, saves); err != nil && err != context.Canceled {
				logger.Printf("sync engine stopped: %v", err)
			}
		}()
	} else {
		// No store: drain saves so the farm never blocks on a full sink.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-saves:
				}
			}
		}()
	}

	go func() {
		if err := f.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("farm stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		st := f.CurrentStatus()

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP farmstead_tick Current simulation tick.\n")
		fmt.Fprintf(rw, "# TYPE farmstead_tick gauge\n")
		fmt.Fprintf(rw, "farmstead_tick{player=%q} %d\n", *playerID, st.Tick)

		fmt.Fprintf(rw, "# HELP farmstead_clients Current number of connected clients.\n")
		fmt.Fprintf(rw, "# TYPE farmstead_clients gauge\n")
		fmt.Fprintf(rw, "farmstead_clients{player=%q} %d\n", *playerID, st.Clients)

		fmt.Fprintf(rw, "# HELP farmstead_inbox_depth Action channel backlog depth.\n")
		fmt.Fprintf(rw, "# TYPE farmstead_inbox_depth gauge\n")
		fmt.Fprintf(rw, "farmstead_inbox_depth{player=%q} %d\n", *playerID, st.InboxDepth)

		fmt.Fprintf(rw, "# HELP farmstead_step_ms Last tick step duration in milliseconds.\n")
		fmt.Fprintf(rw, "# TYPE farmstead_step_ms gauge\n")
		fmt.Fprintf(rw, "farmstead_step_ms{player=%q} %.3f\n", *playerID, st.StepMs)

		fmt.Fprintf(rw, "# HELP farmstead_sim_date Simulated calendar position.\n")
		fmt.Fprintf(rw, "# TYPE farmstead_sim_date gauge\n")
		fmt.Fprintf(rw, "farmstead_sim_date{player=%q,unit=%q} %d\n", *playerID, "day", st.Day)
		fmt.Fprintf(rw, "farmstead_sim_date{player=%q,unit=%q} %d\n", *playerID, "year", st.Year)

		if engine != nil {
			es := engine.Snapshot()
			fmt.Fprintf(rw, "# HELP farmstead_save_status Save pipeline status (1 = current state).\n")
			fmt.Fprintf(rw, "# TYPE farmstead_save_status gauge\n")
			for _, s := range []sync.SaveStatus{sync.StatusSynced, sync.StatusPending, sync.StatusSaving, sync.StatusFailed, sync.StatusConflict} {
				v := 0
				if es.Status == s {
					v = 1
				}
				fmt.Fprintf(rw, "farmstead_save_status{player=%q,status=%q} %d\n", *playerID, string(s), v)
			}

			fmt.Fprintf(rw, "# HELP farmstead_saves_total Save pipeline outcomes.\n")
			fmt.Fprintf(rw, "# TYPE farmstead_saves_total counter\n")
			fmt.Fprintf(rw, "farmstead_saves_total{player=%q,outcome=%q} %d\n", *playerID, "ok", es.SavesOK)
			fmt.Fprintf(rw, "farmstead_saves_total{player=%q,outcome=%q} %d\n", *playerID, "failed", es.Failures)
			fmt.Fprintf(rw, "farmstead_saves_total{player=%q,outcome=%q} %d\n", *playerID, "conflict", es.Conflicts)

			fmt.Fprintf(rw, "# HELP farmstead_pending_mutations In-flight writes awaiting echo.\n")
			fmt.Fprintf(rw, "# TYPE farmstead_pending_mutations gauge\n")
			fmt.Fprintf(rw, "farmstead_pending_mutations{player=%q} %d\n", *playerID, es.PendingMuts)
		}
	})
	mux.HandleFunc("/v1/ws", ws.NewServer(f, logger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
