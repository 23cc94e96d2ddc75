package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Nertsal/trail-blazer/internal/game"
	"github.com/Nertsal/trail-blazer/internal/journal"
	"github.com/Nertsal/trail-blazer/internal/match"
	"github.com/Nertsal/trail-blazer/internal/ranking"
)

// ============================================================================
// Mock Implementations
// ============================================================================

// mockMatch implements MatchInterface for testing
type mockMatch struct {
	snap        *match.Snapshot
	leaderboard *ranking.Leaderboard
	nextID      atomic.Int64

	mu     sync.Mutex
	posted []any
}

func newMockMatch() *mockMatch {
	m := game.NewMap(game.V(5, 5))
	model := game.NewSharedModel(m, rand.New(rand.NewSource(1)))
	return &mockMatch{
		snap:        &match.Snapshot{MatchID: "test-match", Model: model},
		leaderboard: ranking.NewLeaderboard(),
	}
}

func (m *mockMatch) addPlayer(id game.ClientID, name string, score int) *game.Player {
	p := m.snap.Model.AddPlayer(id, game.PlayerCustomization{Name: name, Character: game.CharacterFrog})
	p.Score = score
	m.snap.Players = len(m.snap.Model.Players)
	m.leaderboard.Update(p)
	return p
}

func (m *mockMatch) Snapshot() *match.Snapshot { return m.snap }
func (m *mockMatch) Leaderboard() *ranking.Leaderboard { return m.leaderboard }
func (m *mockMatch) NextClientID() game.ClientID { return m.nextID.Add(1) }
func (m *mockMatch) Post(ctx context.Context, msg any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posted = append(m.posted, msg)
	return nil
}

// mockJournal implements JournalInterface for testing
type mockJournal struct {
	records []journal.Record
}

func (j *mockJournal) Stats() journal.Stats {
	return journal.Stats{Total: uint64(len(j.records)), Written: uint64(len(j.records)), Running: true}
}

func (j *mockJournal) Recent(n int) []journal.Record {
	if n > len(j.records) {
		n = len(j.records)
	}
	return j.records[len(j.records)-n:]
}

func newTestRouter(m MatchInterface, j JournalInterface) http.Handler {
	return NewRouter(RouterConfig{
		Match:   m,
		Journal: j,
		RateLimitConfig: &RateLimitConfig{
			RequestsPerSecond: 1000,
			Burst:             1000,
			CleanupInterval:   time.Hour,
		},
		DisableLogging: true,
	})
}

func getJSON(t *testing.T, ts *httptest.Server, path string, wantStatus int, out interface{}) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s: expected %d, got %d", path, wantStatus, resp.StatusCode)
	}
	if out == nil {
		return
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

// ============================================================================
// API Endpoint Tests
// ============================================================================

func TestAPIHealth(t *testing.T) {
	ts := httptest.NewServer(newTestRouter(newMockMatch(), nil))
	defer ts.Close()

	getJSON(t, ts, "/health", http.StatusOK, nil)
}

func TestAPIGetState(t *testing.T) {
	m := newMockMatch()
	m.addPlayer(1, "ann", 0)
	m.addPlayer(2, "bob", 0)

	ts := httptest.NewServer(newTestRouter(m, nil))
	defer ts.Close()

	var snap match.Snapshot
	getJSON(t, ts, "/api/state", http.StatusOK, &snap)

	if snap.MatchID != "test-match" {
		t.Errorf("Expected match id test-match, got %q", snap.MatchID)
	}
	if snap.Model == nil || len(snap.Model.Players) != 2 {
		t.Fatalf("Expected 2 players in the model, got %+v", snap.Model)
	}
	if snap.Players != 2 {
		t.Errorf("Expected player count 2, got %d", snap.Players)
	}
}

func TestAPIStateWithoutSnapshot(t *testing.T) {
	m := newMockMatch()
	m.snap = nil

	ts := httptest.NewServer(newTestRouter(m, nil))
	defer ts.Close()

	for _, path := range []string{"/api/state", "/api/stats", "/api/board.png", "/api/players/1"} {
		getJSON(t, ts, path, http.StatusServiceUnavailable, nil)
	}
}

func TestAPIGetStats(t *testing.T) {
	m := newMockMatch()
	m.addPlayer(1, "ann", 0)
	j := &mockJournal{records: make([]journal.Record, 3)}

	ts := httptest.NewServer(newTestRouter(m, j))
	defer ts.Close()

	var stats map[string]interface{}
	getJSON(t, ts, "/api/stats", http.StatusOK, &stats)

	if stats["phase"] != "planning" {
		t.Errorf("Expected planning phase, got %v", stats["phase"])
	}
	if stats["players"] != float64(1) {
		t.Errorf("Expected 1 player, got %v", stats["players"])
	}
	journalStats, ok := stats["journal"].(map[string]interface{})
	if !ok {
		t.Fatal("Response should contain journal stats")
	}
	if journalStats["total"] != float64(3) {
		t.Errorf("Expected 3 journaled events, got %v", journalStats["total"])
	}
	if _, ok := stats["rateLimit"]; !ok {
		t.Error("Response should contain rate limiter stats")
	}
}

func TestAPILeaderboard(t *testing.T) {
	m := newMockMatch()
	m.addPlayer(1, "ann", 10)
	m.addPlayer(2, "bob", 30)
	m.addPlayer(3, "cid", 20)

	ts := httptest.NewServer(newTestRouter(m, nil))
	defer ts.Close()

	tests := []struct {
		name    string
		path    string
		status  int
		wantIDs []game.ClientID
	}{
		{"default", "/api/leaderboard", http.StatusOK, []game.ClientID{2, 3, 1}},
		{"limit", "/api/leaderboard?limit=2", http.StatusOK, []game.ClientID{2, 3}},
		{"around", "/api/leaderboard?around=1", http.StatusOK, []game.ClientID{2, 3, 1}},
		{"bad limit", "/api/leaderboard?limit=zero", http.StatusBadRequest, nil},
		{"bad around", "/api/leaderboard?around=x", http.StatusBadRequest, nil},
		{"unknown around", "/api/leaderboard?around=99", http.StatusNotFound, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.wantIDs == nil {
				getJSON(t, ts, tt.path, tt.status, nil)
				return
			}
			var entries []ranking.Entry
			getJSON(t, ts, tt.path, tt.status, &entries)
			if len(entries) != len(tt.wantIDs) {
				t.Fatalf("Expected %d entries, got %d", len(tt.wantIDs), len(entries))
			}
			for i, e := range entries {
				if e.PlayerID != tt.wantIDs[i] || e.Rank != i+1 {
					t.Errorf("Entry %d: expected player %d at rank %d, got %+v", i, tt.wantIDs[i], i+1, e)
				}
			}
		})
	}
}

func TestAPIGetPlayer(t *testing.T) {
	m := newMockMatch()
	m.addPlayer(7, "ann", 10)

	ts := httptest.NewServer(newTestRouter(m, nil))
	defer ts.Close()

	var result struct {
		Player game.Player `json:"player"`
		Rank   int         `json:"rank"`
	}
	getJSON(t, ts, "/api/players/7", http.StatusOK, &result)
	if result.Player.Customization.Name != "ann" || result.Rank != 1 {
		t.Errorf("Unexpected player response %+v", result)
	}

	getJSON(t, ts, "/api/players/8", http.StatusNotFound, nil)
	getJSON(t, ts, "/api/players/abc", http.StatusBadRequest, nil)
}

func TestAPIGetEvents(t *testing.T) {
	j := &mockJournal{records: []journal.Record{
		{Kind: "next_move"},
		{Kind: "score", Player: 1, Amount: 10},
	}}
	ts := httptest.NewServer(newTestRouter(newMockMatch(), j))
	defer ts.Close()

	var records []journal.Record
	getJSON(t, ts, "/api/events?limit=1", http.StatusOK, &records)
	if len(records) != 1 || records[0].Kind != "score" {
		t.Errorf("Expected the latest record, got %+v", records)
	}

	// Without a journal the list is empty, not null.
	ts2 := httptest.NewServer(newTestRouter(newMockMatch(), nil))
	defer ts2.Close()
	resp, err := http.Get(ts2.URL + "/api/events")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	if got := bytes.TrimSpace(buf.Bytes()); string(got) != "[]" {
		t.Errorf("Expected [], got %s", got)
	}
}

func TestAPIBoardPNG(t *testing.T) {
	m := newMockMatch()
	m.addPlayer(1, "ann", 0)

	ts := httptest.NewServer(newTestRouter(m, nil))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/board.png?cell=10")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Expected image/png, got %q", ct)
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatalf("Response is not a PNG: %v", err)
	}
	if img.Bounds().Dx() != 50 {
		t.Errorf("Expected width 50, got %d", img.Bounds().Dx())
	}

	getJSON(t, ts, "/api/board.png?cell=big", http.StatusBadRequest, nil)
}

// ============================================================================
// Middleware Tests
// ============================================================================

func TestAPICORSHeaders(t *testing.T) {
	router := NewRouter(RouterConfig{
		Match:          newMockMatch(),
		DisableLogging: true,
		CORSOrigins:    []string{"http://test.example.com"},
	})
	ts := httptest.NewServer(router)
	defer ts.Close()

	req, _ := http.NewRequest("GET", ts.URL+"/api/state", nil)
	req.Header.Set("Origin", "http://test.example.com")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://test.example.com" {
		t.Errorf("Expected Access-Control-Allow-Origin 'http://test.example.com', got '%s'", got)
	}
}

func TestAPIRateLimiting(t *testing.T) {
	router := NewRouter(RouterConfig{
		Match: newMockMatch(),
		RateLimitConfig: &RateLimitConfig{
			RequestsPerSecond: 1,
			Burst:             2,
			CleanupInterval:   time.Hour,
		},
		DisableLogging: true,
	})
	ts := httptest.NewServer(router)
	defer ts.Close()

	var gotRateLimited bool
	for i := 0; i < 10; i++ {
		resp, err := http.Get(ts.URL + "/api/state")
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			gotRateLimited = true
			break
		}
	}

	if !gotRateLimited {
		t.Error("Expected to be rate limited after burst exceeded")
	}
}
