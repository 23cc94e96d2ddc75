package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Nertsal/trail-blazer/internal/game"
	"github.com/Nertsal/trail-blazer/internal/journal"
	"github.com/Nertsal/trail-blazer/internal/preview"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
	defaultEventsLimit      = 50
	maxEventsLimit          = 1000
	aroundWindow            = 2
)

// Handler methods for routerHandlers.

func (h *routerHandlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	snap := h.match.Snapshot()
	if snap == nil {
		writeError(w, "Match not running", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, snap)
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	snap := h.match.Snapshot()
	if snap == nil {
		writeError(w, "Match not running", http.StatusServiceUnavailable)
		return
	}

	stats := map[string]interface{}{
		"matchId":    snap.MatchID,
		"tick":       snap.Tick,
		"players":    snap.Players,
		"spectators": snap.Spectators,
		"phase":      snap.Model.Phase.Kind.String(),
		"turn":       snap.Model.TurnCurrent,
		"turnsMax":   snap.Model.TurnsMax,
		"mushrooms":  snap.Model.TotalMushrooms(),
		"rateLimit":  h.limiter.GetStats(),
	}
	if h.journal != nil {
		stats["journal"] = h.journal.Stats()
	}
	writeJSON(w, stats)
}

func (h *routerHandlers) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	lb := h.match.Leaderboard()

	if v := r.URL.Query().Get("around"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, "Invalid player id", http.StatusBadRequest)
			return
		}
		entries := lb.Around(game.ClientID(id), aroundWindow, aroundWindow)
		if entries == nil {
			writeError(w, "Player not found", http.StatusNotFound)
			return
		}
		writeJSON(w, entries)
		return
	}

	limit, err := queryLimit(r, defaultLeaderboardLimit, maxLeaderboardLimit)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, lb.Top(limit))
}

func (h *routerHandlers) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, "Invalid player id", http.StatusBadRequest)
		return
	}
	snap := h.match.Snapshot()
	if snap == nil {
		writeError(w, "Match not running", http.StatusServiceUnavailable)
		return
	}
	p, ok := snap.Model.Players[game.ClientID(id)]
	if !ok {
		writeError(w, "Player not found", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]interface{}{
		"player": p,
		"rank":   h.match.Leaderboard().Rank(p.ID),
	})
}

func (h *routerHandlers) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, defaultEventsLimit, maxEventsLimit)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	records := []journal.Record{}
	if h.journal != nil {
		records = append(records, h.journal.Recent(limit)...)
	}
	writeJSON(w, records)
}

func (h *routerHandlers) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	snap := h.match.Snapshot()
	if snap == nil {
		writeError(w, "Match not running", http.StatusServiceUnavailable)
		return
	}
	cellSize := preview.DefaultCellSize
	if v := r.URL.Query().Get("cell"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, "Invalid cell size", http.StatusBadRequest)
			return
		}
		cellSize = n
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := preview.WritePNG(w, snap.Model, cellSize); err != nil {
		h.log.Warnw("rendering board", "error", err)
	}
}

// Helper functions (package-level for reuse)

var errInvalidLimit = errors.New("invalid limit")

func queryLimit(r *http.Request, def, max int) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, errInvalidLimit
	}
	if n > max {
		n = max
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
