package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"

	"farmstead.gg/internal/sim/farm"
)

func TestAuditLoggerWritesDecodableJSONL(t *testing.T) {
	dir := t.TempDir()
	l := NewAuditLogger(dir)

	entries := []farm.AuditEntry{
		{Tick: 1, Actor: "player", Action: "plant", Target: "wheat", X: 13, Y: 15},
		{Tick: 9, Actor: "harvester-1", Action: "harvest", Target: "wheat", X: 13, Y: 15},
	}
	for _, e := range entries {
		if err := l.WriteAudit(e); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "audit", "audit-*.jsonl.zst"))
	if err != nil || len(files) != 1 {
		t.Fatalf("audit files = %v (%v)", files, err)
	}
	f, err := os.Open(files[0])
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()

	var got []farm.AuditEntry
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var e farm.AuditEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("decode line %q: %v", sc.Text(), err)
		}
		got = append(got, e)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("entries = %d, want %d", len(got), len(entries))
	}
	if got[1].Actor != "harvester-1" || got[1].Action != "harvest" {
		t.Fatalf("entry = %+v", got[1])
	}
}
