package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"farmstead.gg/internal/persistence/docstore"
)

// Offline ops tool for the farm document store. Run it against a stopped
// server, or expect a live session to freeze on the foreign write (that is
// the conflict protocol doing its job).
func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "show":
			showCmd(os.Args[2:])
			return
		case "grant":
			grantCmd(os.Args[2:])
			return
		case "archive":
			archiveCmd(os.Args[2:])
			return
		}
	}
	fmt.Fprintln(os.Stderr, "usage: admin <show|grant|archive> [flags]")
	os.Exit(2)
}

func openStore(dataDir string) *docstore.SQLiteStore {
	s, err := docstore.OpenSQLite(filepath.Join(dataDir, "farm.db"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	return s
}

func showCmd(args []string) {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	playerID := fs.String("player", "player_1", "player id")
	_ = fs.Parse(args)

	s := openStore(*dataDir)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	doc, meta, err := s.Load(ctx, *playerID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load:", err)
		os.Exit(1)
	}
	out := struct {
		Meta docstore.Meta   `json:"meta"`
		Doc  json.RawMessage `json:"doc"`
	}{Meta: meta}
	out.Doc, _ = json.Marshal(doc)
	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
}

// grantCmd applies coin/xp/inventory deltas through the store's increment
// fast path, tagged with a one-off admin session.
func grantCmd(args []string) {
	fs := flag.NewFlagSet("grant", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	playerID := fs.String("player", "player_1", "player id")
	coins := fs.Int64("coins", 0, "coin delta (may be negative)")
	xp := fs.Int64("xp", 0, "xp delta (may be negative)")
	items := fs.String("items", "", "inventory deltas, e.g. wheat=5,egg=-2")
	_ = fs.Parse(args)

	deltas := docstore.ResourceDeltas{Coins: *coins, XP: *xp}
	if strings.TrimSpace(*items) != "" {
		deltas.Inventory = map[string]int{}
		for _, pair := range strings.Split(*items, ",") {
			id, raw, ok := strings.Cut(strings.TrimSpace(pair), "=")
			if !ok {
				fmt.Fprintf(os.Stderr, "bad item delta %q\n", pair)
				os.Exit(2)
			}
			n, err := strconv.Atoi(raw)
			if err != nil {
				fmt.Fprintf(os.Stderr, "bad item delta %q: %v\n", pair, err)
				os.Exit(2)
			}
			deltas.Inventory[id] = n
		}
	}

	s := openStore(*dataDir)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	meta, err := s.ApplyDeltas(ctx, *playerID, deltas, "admin:"+uuid.NewString(), uuid.NewString())
	if err != nil {
		fmt.Fprintln(os.Stderr, "apply:", err)
		os.Exit(1)
	}
	fmt.Printf("applied; revision %d\n", meta.UpdatedAt)
}

func archiveCmd(args []string) {
	fs := flag.NewFlagSet("archive", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	playerID := fs.String("player", "player_1", "player id")
	limit := fs.Int("limit", 10, "result limit")
	_ = fs.Parse(args)

	s := openStore(*dataDir)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	revs, err := s.ArchivedRevisions(ctx, *playerID, *limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "archive:", err)
		os.Exit(1)
	}
	for _, r := range revs {
		fmt.Printf("%d\tsuperseded_at=%d\n", r.UpdatedAt, r.SupersededAt)
	}
}
