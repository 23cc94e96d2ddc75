package game

// ValidateMove checks a submitted move against the player's current state.
// A Normal move asking for a sprint while the sprint is on cooldown is
// downgraded in place instead of being rejected.
func ValidateMove(m *Map, p *Player, move *PlayerMove) bool {
	if p.IsChanneling && !move.IsIdle() && move.Kind != MoveTeleportActivate {
		return false
	}
	rule, ok := ruleFor(move.Kind)
	if !ok {
		return false
	}
	return rule.validate(m, p, move)
}

// ValidatePath checks a walking path. An empty path means standing still.
func ValidatePath(m *Map, p *Player, path []Vec2, sprint bool) bool {
	if len(path) == 0 {
		return true
	}
	speed := p.Speed(sprint && p.CooldownSprint <= 0)
	if len(path)-1 > speed {
		return false
	}
	if path[0] != p.Pos {
		return false
	}
	for i := 1; i < len(path); i++ {
		if !AreAdjacent(path[i-1], path[i]) {
			return false
		}
		if !m.IsInBounds(path[i]) || m.IsWall(path[i]) {
			return false
		}
	}
	return true
}

// moveSpeed is the micro-move budget granted to a validated move.
func moveSpeed(p *Player, move *PlayerMove) int {
	rule, ok := ruleFor(move.Kind)
	if !ok {
		return 0
	}
	return rule.speed(p, move)
}
