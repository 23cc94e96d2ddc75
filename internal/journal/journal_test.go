package journal

import (
	"bufio"
	"bytes"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/Nertsal/trail-blazer/internal/config"
	"github.com/Nertsal/trail-blazer/internal/game"
	"github.com/Nertsal/trail-blazer/internal/logging"
)

type bufferCloser struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
}

func (b *bufferCloser) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *bufferCloser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func testConfig() config.JournalConfig {
	cfg := config.DefaultJournal()
	cfg.FlushInterval = 10 * time.Millisecond
	cfg.EventsPerSec = 0
	cfg.PlayerEventsPerSec = 0
	return cfg
}

func TestJournalWritesNDJSON(t *testing.T) {
	out := &bufferCloser{}
	j := New(testConfig(), out, logging.Nop())
	j.Start()

	events := []game.GameEvent{
		{Kind: game.EventStartResolution},
		{Kind: game.EventScore, Player: 7, Cell: game.V(1, 2), Amount: 20},
	}
	if n := j.Record("match-1", 3, events); n != 2 {
		t.Fatalf("Expected 2 accepted records, got %d", n)
	}
	j.Stop()

	if !out.closed {
		t.Error("Stop should close the output")
	}

	var records []Record
	scanner := bufio.NewScanner(&out.buf)
	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("Invalid line %q: %v", scanner.Text(), err)
		}
		records = append(records, rec)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(records))
	}
	if records[1].Kind != "score" || records[1].Player != 7 || records[1].Amount != 20 || records[1].Turn != 3 {
		t.Errorf("Unexpected record %+v", records[1])
	}
	if records[0].MatchID != "match-1" {
		t.Errorf("Expected match id, got %q", records[0].MatchID)
	}
	if records[0].ID.Compare(records[1].ID) >= 0 {
		t.Error("Record ids should be increasing")
	}

	stats := j.Stats()
	if stats.Written != 2 || stats.Pending != 0 || stats.Running {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestJournalPlayerRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.PlayerEventsPerSec = 1
	j := New(cfg, nil, logging.Nop())

	var events []game.GameEvent
	for i := 0; i < 5; i++ {
		events = append(events, game.GameEvent{Kind: game.EventMushroomPickup, Player: 1})
	}
	events = append(events, game.GameEvent{Kind: game.EventMushroomPickup, Player: 2})

	if n := j.Record("m", 0, events); n != 2 {
		t.Errorf("Expected 2 accepted (one per player), got %d", n)
	}
	if j.Stats().Dropped != 4 {
		t.Errorf("Expected 4 dropped, got %d", j.Stats().Dropped)
	}
}

func TestJournalOverflowKeepsNewest(t *testing.T) {
	cfg := testConfig()
	cfg.BufferSize = 4
	j := New(cfg, nil, logging.Nop())

	for i := 1; i <= 6; i++ {
		j.Record("m", game.Turns(i), []game.GameEvent{{Kind: game.EventNextMove}})
	}

	stats := j.Stats()
	if stats.Total != 6 || stats.Dropped != 2 || stats.Pending != 4 {
		t.Errorf("Unexpected stats %+v", stats)
	}
	recent := j.Recent(10)
	if len(recent) != 4 {
		t.Fatalf("Expected 4 recent records, got %d", len(recent))
	}
	if recent[0].Turn != 3 || recent[3].Turn != 6 {
		t.Errorf("Expected turns 3..6, got %d..%d", recent[0].Turn, recent[3].Turn)
	}
	if got := j.Recent(2); len(got) != 2 || got[1].Turn != 6 {
		t.Errorf("Recent(2) = %+v", got)
	}
}

func TestCleanupPlayerLimiters(t *testing.T) {
	j := New(testConfig(), nil, logging.Nop())
	j.Record("m", 0, []game.GameEvent{{Kind: game.EventScore, Player: 4}})

	j.cleanupPlayerLimiters(time.Now().Add(time.Minute))

	if len(j.playerLimiters) != 0 {
		t.Errorf("Stale limiters should be removed, %d left", len(j.playerLimiters))
	}
}
