package game

import (
	"math/rand"
	"sort"
	"time"
)

// SharedModel is the authoritative match state that is broadcast to clients.
// It is owned by a single goroutine; observers only ever see clones.
type SharedModel struct {
	Map         *Map                 `json:"map" msgpack:"map"`
	Bases       []Vec2               `json:"bases" msgpack:"bases"`
	Players     map[ClientID]*Player `json:"players" msgpack:"players"`
	Mushrooms   []Mushroom           `json:"mushrooms" msgpack:"mushrooms"`
	Trails      []PlayerTrail        `json:"trails" msgpack:"trails"`
	Phase       Phase                `json:"phase" msgpack:"phase"`
	TurnCurrent Turns                `json:"turnCurrent" msgpack:"turnCurrent"`
	TurnsMax    Turns                `json:"turnsMax" msgpack:"turnsMax"`

	rng *rand.Rand
}

// NewSharedModel creates a match on m with a single base in the middle of the
// map. A nil rng gets seeded from the clock.
func NewSharedModel(m *Map, rng *rand.Rand) *SharedModel {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	center := Vec2{
		X: (m.Bounds.Min.X + m.Bounds.Max.X) / 2,
		Y: (m.Bounds.Min.Y + m.Bounds.Max.Y) / 2,
	}
	return &SharedModel{
		Map:      m,
		Bases:    []Vec2{center},
		Players:  make(map[ClientID]*Player),
		Phase:    Planning(TimePerPlan),
		TurnsMax: TurnsMax,
		rng:      rng,
	}
}

func (s *SharedModel) random() *rand.Rand {
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s.rng
}

// PlayerIDs returns the ids of all players in ascending order.
// Iterating in id order keeps event logs reproducible; no rule depends on it.
func (s *SharedModel) PlayerIDs() []ClientID {
	ids := make([]ClientID, 0, len(s.Players))
	for id := range s.Players {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// IsBase reports whether cell is a delivery base.
func (s *SharedModel) IsBase(cell Vec2) bool {
	return containsCell(s.Bases, cell)
}

// PlayerAt returns the player standing on cell, if any.
func (s *SharedModel) PlayerAt(cell Vec2) *Player {
	for _, id := range s.PlayerIDs() {
		if p := s.Players[id]; p.Pos == cell {
			return p
		}
	}
	return nil
}

// AddPlayer spawns a player on a random free cell. After SpawnAttempts misses
// the board is scanned for a free cell; players only share a cell when none is left.
func (s *SharedModel) AddPlayer(id ClientID, customization PlayerCustomization) *Player {
	if p, ok := s.Players[id]; ok {
		p.Customization = customization
		return p
	}
	p := NewPlayer(id, customization, s.freeSpawnCell())
	s.Players[id] = p
	return p
}

// RemovePlayer drops a player. Carried mushrooms are left where the player stood.
func (s *SharedModel) RemovePlayer(id ClientID) {
	p, ok := s.Players[id]
	if !ok {
		return
	}
	for i := 0; i < p.Mushrooms; i++ {
		s.Mushrooms = append(s.Mushrooms, Mushroom{Pos: p.Pos})
	}
	delete(s.Players, id)
}

// SetCustomization updates the cosmetic settings of a player.
func (s *SharedModel) SetCustomization(id ClientID, c PlayerCustomization) bool {
	p, ok := s.Players[id]
	if !ok {
		return false
	}
	p.Customization = c
	return true
}

func (s *SharedModel) freeSpawnCell() Vec2 {
	rng := s.random()
	for attempt := 0; attempt < SpawnAttempts; attempt++ {
		cell := s.Map.RandomPosition(rng)
		if s.canSpawnPlayer(cell, true) {
			return cell
		}
	}
	// Crowded board: first free cell in row order, bases only as a last resort.
	for _, avoidBases := range []bool{true, false} {
		b := s.Map.Bounds
		for y := b.Min.Y; y <= b.Max.Y; y++ {
			for x := b.Min.X; x <= b.Max.X; x++ {
				if cell := V(x, y); s.canSpawnPlayer(cell, avoidBases) {
					return cell
				}
			}
		}
	}
	return s.Map.RandomPosition(rng)
}

func (s *SharedModel) canSpawnPlayer(cell Vec2, avoidBases bool) bool {
	if !s.Map.IsWalkable(cell) || s.PlayerAt(cell) != nil {
		return false
	}
	return !avoidBases || !s.IsBase(cell)
}

// Restart begins a new match with the same map and roster.
func (s *SharedModel) Restart() {
	s.Mushrooms = nil
	s.Trails = nil
	s.TurnCurrent = 0
	ids := s.PlayerIDs()
	for _, id := range ids {
		p := s.Players[id]
		fresh := NewPlayer(p.ID, p.Customization, p.Pos)
		s.Players[id] = fresh
	}
	for _, id := range ids {
		p := s.Players[id]
		// Move off the roster-wide occupied check while choosing a new cell.
		delete(s.Players, id)
		p.Pos = s.freeSpawnCell()
		p.ResolutionStart = p.Pos
		s.Players[id] = p
	}
	for i := 0; i < MaxMushrooms; i++ {
		s.SpawnMushroom()
	}
	s.Phase = Planning(TimePerPlan)
}

// Clone returns a deep copy that can be handed to other goroutines.
func (s *SharedModel) Clone() *SharedModel {
	c := &SharedModel{
		Map:         s.Map.clone(),
		Bases:       append([]Vec2(nil), s.Bases...),
		Players:     make(map[ClientID]*Player, len(s.Players)),
		Mushrooms:   append([]Mushroom(nil), s.Mushrooms...),
		Trails:      make([]PlayerTrail, len(s.Trails)),
		Phase:       s.Phase,
		TurnCurrent: s.TurnCurrent,
		TurnsMax:    s.TurnsMax,
	}
	for id, p := range s.Players {
		c.Players[id] = p.clone()
	}
	for i, t := range s.Trails {
		if t.ConnectionFrom != nil {
			from := *t.ConnectionFrom
			t.ConnectionFrom = &from
		}
		c.Trails[i] = t
	}
	return c
}

// TotalMushrooms counts mushrooms on the map plus those carried by players.
func (s *SharedModel) TotalMushrooms() int {
	n := len(s.Mushrooms)
	for _, p := range s.Players {
		n += p.Mushrooms
	}
	return n
}
