package game

// SpawnMushroom tries to grow one mushroom on a free cell away from every
// base and player. It gives up after SpawnAttempts samples and reports
// whether a mushroom was placed.
func (s *SharedModel) SpawnMushroom() bool {
	rng := s.random()
	for attempt := 0; attempt < SpawnAttempts; attempt++ {
		cell := s.Map.RandomPosition(rng)
		if s.canSpawnMushroom(cell) {
			s.Mushrooms = append(s.Mushrooms, Mushroom{Pos: cell})
			return true
		}
	}
	return false
}

func (s *SharedModel) canSpawnMushroom(cell Vec2) bool {
	if !s.Map.IsWalkable(cell) {
		return false
	}
	for _, b := range s.Bases {
		if b.Manhattan(cell) <= SpawnExclusionRadius {
			return false
		}
	}
	for _, p := range s.Players {
		if p.Pos.Manhattan(cell) <= SpawnExclusionRadius {
			return false
		}
	}
	for _, m := range s.Mushrooms {
		if m.Pos == cell {
			return false
		}
	}
	return true
}
