package ranking

import (
	"sync"

	"github.com/Nertsal/trail-blazer/internal/game"
)

// Entry is one row of the leaderboard.
type Entry struct {
	PlayerID  game.ClientID  `json:"playerId"`
	Name      string         `json:"name"`
	Character game.Character `json:"character"`
	Score     int            `json:"score"`
	Collected int            `json:"collected"`
	Rank      int            `json:"rank"`
}

type playerInfo struct {
	name      string
	character game.Character
	collected int
}

// Leaderboard ranks the players of a match by score.
//
// Operations:
//   - Update, Remove: O(log n)
//   - Rank: O(log n)
//   - Top, Around: O(log n + k)
type Leaderboard struct {
	list *SkipList

	mu   sync.RWMutex
	info map[game.ClientID]playerInfo
}

// NewLeaderboard creates an empty leaderboard.
func NewLeaderboard() *Leaderboard {
	return &Leaderboard{
		list: NewSkipList(),
		info: make(map[game.ClientID]playerInfo),
	}
}

// Update records the current score of a player.
func (lb *Leaderboard) Update(p *game.Player) {
	lb.mu.Lock()
	lb.info[p.ID] = playerInfo{
		name:      p.Customization.Name,
		character: p.Customization.Character,
		collected: p.CollectedMushrooms,
	}
	lb.mu.Unlock()
	lb.list.Insert(p.ID, p.Score)
}

// Remove drops a player.
func (lb *Leaderboard) Remove(id game.ClientID) {
	lb.list.Remove(id)
	lb.mu.Lock()
	delete(lb.info, id)
	lb.mu.Unlock()
}

// Sync makes the leaderboard mirror players exactly.
func (lb *Leaderboard) Sync(players map[game.ClientID]*game.Player) {
	for _, id := range lb.list.Keys() {
		if _, ok := players[id]; !ok {
			lb.Remove(id)
		}
	}
	for _, p := range players {
		lb.Update(p)
	}
}

// Rank returns a player's 1-based rank, or 0 if unknown.
func (lb *Leaderboard) Rank(id game.ClientID) int {
	return lb.list.Rank(id)
}

// Top returns the best n players.
func (lb *Leaderboard) Top(n int) []Entry {
	return lb.entries(1, lb.list.Range(1, n))
}

// Around returns up to above players ranked ahead of id, the player itself
// and up to below players ranked behind.
func (lb *Leaderboard) Around(id game.ClientID, above, below int) []Entry {
	rank := lb.list.Rank(id)
	if rank == 0 {
		return nil
	}
	start := rank - above
	if start < 1 {
		start = 1
	}
	return lb.entries(start, lb.list.Range(start, rank+below))
}

// Len returns the number of ranked players.
func (lb *Leaderboard) Len() int {
	return lb.list.Len()
}

func (lb *Leaderboard) entries(firstRank int, raw []SkipListEntry) []Entry {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	result := make([]Entry, len(raw))
	for i, e := range raw {
		info := lb.info[e.Key]
		result[i] = Entry{
			PlayerID:  e.Key,
			Name:      info.name,
			Character: info.character,
			Score:     e.Score,
			Collected: info.collected,
			Rank:      firstRank + i,
		}
	}
	return result
}
