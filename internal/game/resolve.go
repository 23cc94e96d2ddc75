package game

import "sort"

// StartResolution locks in every player's submitted move and enters the
// resolution phase. It does nothing outside of planning.
func (s *SharedModel) StartResolution() {
	if s.Phase.Kind != PhasePlanning {
		return
	}
	for _, id := range s.PlayerIDs() {
		p := s.Players[id]
		p.ResolutionStart = p.Pos
		if p.IsStunned() || !ValidateMove(s.Map, p, &p.SubmittedMove) {
			p.SubmittedMove = PlayerMove{}
			p.ResolutionSpeedMax = 0
			p.ResolutionSpeedLeft = 0
			continue
		}
		if p.SubmittedMove.Sprint && p.SubmittedMove.Kind == MoveNormal && !p.SubmittedMove.IsIdle() {
			p.CooldownSprint = SprintCooldown
		}
		speed := moveSpeed(p, &p.SubmittedMove)
		p.ResolutionSpeedMax = speed
		p.ResolutionSpeedLeft = speed
	}
	s.Trails = nil
	s.Phase = Resolution(0)
}

// ResolveNextMove performs one micro-move for every entity in the current
// speed tier. The tier is the highest remaining budget among players and
// flying mushrooms; everything at that tier moves at once, then every budget
// is clamped below the tier, so tiers strictly decrease and the loop ends.
// more is false once nothing has any budget left.
func (s *SharedModel) ResolveNextMove() (events []GameEvent, more bool) {
	s.dropFinishedWalkers()
	speed := s.resolvingSpeed()
	if speed <= 0 {
		return nil, false
	}

	movedMushrooms := s.stepMushrooms(speed, &events)
	movedPlayers := s.stepPlayers(speed, &events)

	for _, p := range s.Players {
		if p.ResolutionSpeedLeft > speed-1 {
			p.ResolutionSpeedLeft = speed - 1
		}
	}

	if movedMushrooms || movedPlayers {
		events = append([]GameEvent{simpleEvent(EventNextMove)}, events...)
	}
	return events, true
}

func (s *SharedModel) resolvingSpeed() int {
	speed := 0
	for _, p := range s.Players {
		if p.ResolutionSpeedLeft > speed {
			speed = p.ResolutionSpeedLeft
		}
	}
	for i := range s.Mushrooms {
		if s.Mushrooms[i].SpeedLeft > speed {
			speed = s.Mushrooms[i].SpeedLeft
		}
	}
	return speed
}

// dropFinishedWalkers zeroes the budget of walkers with no path left, so an
// exhausted path does not keep the resolution alive.
func (s *SharedModel) dropFinishedWalkers() {
	for _, p := range s.Players {
		if p.ResolutionSpeedLeft <= 0 || p.SubmittedMove.Kind != MoveNormal {
			continue
		}
		if pathIndex(p) >= len(p.SubmittedMove.Path) {
			p.ResolutionSpeedLeft = 0
		}
	}
}

func pathIndex(p *Player) int {
	return p.ResolutionSpeedMax - p.ResolutionSpeedLeft + 1
}

// stepMushrooms advances every flying mushroom at this tier. Mushrooms go
// before players so a projectile hits whoever stands in its way now.
func (s *SharedModel) stepMushrooms(speed int, events *[]GameEvent) bool {
	groups := make(map[Vec2][]int)
	for i := range s.Mushrooms {
		m := &s.Mushrooms[i]
		if m.SpeedLeft != speed {
			continue
		}
		target := m.Pos.Add(m.Direction)
		groups[target] = append(groups[target], i)
	}
	if len(groups) == 0 {
		return false
	}

	for _, target := range sortedCells(groups) {
		idxs := groups[target]
		if len(idxs) > 1 {
			for _, i := range idxs {
				s.Mushrooms[i].SpeedLeft = 0
			}
			continue
		}
		m := &s.Mushrooms[idxs[0]]
		if victim := s.PlayerAt(target); victim != nil {
			m.SpeedLeft = 0
			// m may be invalidated by the stun dropping a mushroom.
			s.hitPlayer(victim, m.Direction, events)
			continue
		}
		if !s.Map.IsWalkable(target) {
			m.SpeedLeft = 0
			continue
		}
		m.Pos = target
		m.SpeedLeft--
	}
	return true
}

// hitPlayer stuns a player struck by a mushroom and knocks them one cell
// along dir when that cell is free.
func (s *SharedModel) hitPlayer(victim *Player, dir Vec2, events *[]GameEvent) {
	*events = append(*events, s.StunPlayer(victim.ID, StunDuration)...)
	knock := victim.Pos.Add(dir)
	if s.Map.IsWalkable(knock) && s.PlayerAt(knock) == nil {
		victim.Pos = knock
	}
}

// stepPlayers collects the cells players want to enter at this tier and
// settles them all at once.
func (s *SharedModel) stepPlayers(speed int, events *[]GameEvent) bool {
	targets := make(map[Vec2][]ClientID)
	var throwers []*Player
	processed := false

	for _, id := range s.PlayerIDs() {
		p := s.Players[id]
		if p.IsStunned() || p.ResolutionSpeedLeft != speed {
			continue
		}
		first := p.ResolutionSpeedLeft == p.ResolutionSpeedMax
		move := &p.SubmittedMove
		switch move.Kind {
		case MoveNormal:
			if i := pathIndex(p); i < len(move.Path) {
				targets[move.Path[i]] = append(targets[move.Path[i]], id)
				processed = true
			}
		case MoveTeleportChanneling:
			if first {
				p.ResolutionSpeedLeft = 0
				p.IsChanneling = true
				p.CooldownTeleport = TeleportCooldown
				processed = true
			}
		case MoveTeleportActivate:
			if first {
				p.ResolutionSpeedLeft = 0
				p.IsChanneling = false
				targets[move.TeleportTo] = append(targets[move.TeleportTo], id)
				*events = append(*events, GameEvent{Kind: EventTeleport, Player: id, Cell: move.TeleportTo})
				processed = true
			}
		case MoveThrow:
			if first {
				throwers = append(throwers, p)
				processed = true
			}
		}
	}

	for _, p := range throwers {
		s.throwMushroom(p, events)
	}
	s.settleTargets(targets, events)
	return processed
}

// throwMushroom spawns a projectile next to the thrower. The projectile keeps
// the rest of the thrower's momentum.
func (s *SharedModel) throwMushroom(p *Player, events *[]GameEvent) {
	dir := p.SubmittedMove.Direction
	landing := p.Pos.Add(dir)
	mushroom := Mushroom{Pos: landing, Direction: dir, SpeedLeft: p.ResolutionSpeedLeft - 1}
	p.Mushrooms--
	p.ResolutionSpeedLeft = 0
	*events = append(*events, GameEvent{Kind: EventMushroomThrow, Player: p.ID, Cell: landing})

	if !s.Map.IsWalkable(landing) {
		mushroom.Pos = p.Pos
		mushroom.SpeedLeft = 0
		s.Mushrooms = append(s.Mushrooms, mushroom)
		return
	}
	victim := s.PlayerAt(landing)
	if victim == nil {
		s.Mushrooms = append(s.Mushrooms, mushroom)
		return
	}
	mushroom.SpeedLeft = 0
	s.Mushrooms = append(s.Mushrooms, mushroom)
	s.hitPlayer(victim, dir, events)
}

// settleTargets applies the micro-move. A player moves only if nobody else
// wants the same cell, the cell is not held by someone staying put, and no
// other player's trail runs through it. Everyone else bounces and is stunned.
func (s *SharedModel) settleTargets(targets map[Vec2][]ClientID, events *[]GameEvent) {
	movers := make(map[ClientID]Vec2)
	var bounced []ClientID

	for _, cell := range sortedCells(targets) {
		var contenders []ClientID
		for _, id := range targets[cell] {
			// Hit by a throw earlier in this micro-move.
			if p, ok := s.Players[id]; ok && !p.IsStunned() {
				contenders = append(contenders, id)
			}
		}
		switch {
		case len(contenders) == 0:
		case len(contenders) > 1:
			bounced = append(bounced, contenders...)
		default:
			movers[contenders[0]] = cell
		}
	}

	// Players share a cell only after spawning on a full board.
	occupants := make(map[Vec2][]ClientID, len(s.Players))
	for _, id := range s.PlayerIDs() {
		pos := s.Players[id].Pos
		occupants[pos] = append(occupants[pos], id)
	}

	for id, cell := range movers {
		if s.markedByOther(cell, id) {
			delete(movers, id)
			bounced = append(bounced, id)
		}
	}

	// Head-on swaps bounce both players.
	for _, id := range sortedMovers(movers) {
		cell, ok := movers[id]
		if !ok {
			continue
		}
		for _, other := range occupants[cell] {
			if other == id {
				continue
			}
			if back, moving := movers[other]; moving && back == s.Players[id].Pos {
				delete(movers, id)
				delete(movers, other)
				bounced = append(bounced, id, other)
				break
			}
		}
	}

	// A player may only enter an occupied cell if all its occupants leave.
	for changed := true; changed; {
		changed = false
		for _, id := range sortedMovers(movers) {
			if s.blockedByStayer(id, movers, occupants) {
				delete(movers, id)
				bounced = append(bounced, id)
				changed = true
			}
		}
	}

	for _, id := range sortedMovers(movers) {
		s.movePlayer(s.Players[id], movers[id], events)
	}

	sortIDs(bounced)
	for _, id := range bounced {
		*events = append(*events, s.StunPlayer(id, StunDuration)...)
	}
}

// blockedByStayer reports whether anyone in the mover's target cell stays put.
func (s *SharedModel) blockedByStayer(id ClientID, movers map[ClientID]Vec2, occupants map[Vec2][]ClientID) bool {
	for _, other := range occupants[movers[id]] {
		if other == id {
			continue
		}
		if _, moving := movers[other]; !moving {
			return true
		}
	}
	return false
}

func sortedMovers(movers map[ClientID]Vec2) []ClientID {
	ids := make([]ClientID, 0, len(movers))
	for id := range movers {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

func (s *SharedModel) markedByOther(cell Vec2, id ClientID) bool {
	for _, t := range s.Trails {
		if t.Player != id && (t.Pos == cell || t.ConnectionTo == cell) {
			return true
		}
	}
	return false
}

// movePlayer steps p onto cell, leaving a trail, picking up whatever lies
// there and delivering to a base.
func (s *SharedModel) movePlayer(p *Player, cell Vec2, events *[]GameEvent) {
	trail := PlayerTrail{Player: p.ID, Pos: p.Pos, ConnectionTo: cell}
	for i := len(s.Trails) - 1; i >= 0; i-- {
		if t := s.Trails[i]; t.Player == p.ID && t.ConnectionTo == p.Pos {
			from := t.Pos
			trail.ConnectionFrom = &from
			break
		}
	}
	s.Trails = append(s.Trails, trail)
	p.Pos = cell

	hitWhileLooting := false
	kept := s.Mushrooms[:0]
	for _, m := range s.Mushrooms {
		if m.Pos != cell {
			kept = append(kept, m)
			continue
		}
		if m.IsFlying() {
			hitWhileLooting = true
		}
		p.Mushrooms++
		*events = append(*events, mushroomPickup(p.ID, cell))
	}
	s.Mushrooms = kept

	if s.IsBase(cell) && p.Mushrooms > 0 {
		n := p.Mushrooms
		score := n * ScorePerMushroom
		p.Mushrooms = 0
		p.CollectedMushrooms += n
		p.Score += score
		*events = append(*events, mushroomsCollected(p.ID, cell, n), scoreEvent(p.ID, score, cell))
	}

	if hitWhileLooting {
		*events = append(*events, s.StunPlayer(p.ID, StunDuration)...)
	}
}

// StunPlayer stuns a player for duration turns. Unknown ids are ignored.
// A stunned player that already left its starting cell drops one carried
// mushroom back there.
func (s *SharedModel) StunPlayer(id ClientID, duration Turns) []GameEvent {
	p, ok := s.Players[id]
	if !ok {
		return nil
	}
	p.ResolutionSpeedLeft = 0
	p.IsChanneling = false
	p.stun(duration)
	if p.Mushrooms > 0 && p.Pos != p.ResolutionStart {
		p.Mushrooms--
		s.Mushrooms = append(s.Mushrooms, Mushroom{Pos: p.ResolutionStart})
	}
	p.SubmittedMove = PlayerMove{}
	return []GameEvent{playerStunned(id, p.Pos)}
}

// FinishResolution ends the resolution: timers and cooldowns tick down, new
// mushrooms grow, and the next turn (or the results screen) begins.
func (s *SharedModel) FinishResolution() {
	if s.Phase.Kind != PhaseResolution {
		return
	}
	for _, p := range s.Players {
		p.SubmittedMove = PlayerMove{}
		p.ResolutionSpeedLeft = 0
		if p.StunnedDuration != nil {
			d := *p.StunnedDuration - 1
			if d < 0 {
				p.StunnedDuration = nil
			} else {
				p.StunnedDuration = &d
			}
		}
		if p.CooldownSprint > 0 {
			p.CooldownSprint--
		}
		if !p.IsChanneling && p.CooldownTeleport > 0 {
			p.CooldownTeleport--
		}
	}
	for i := range s.Mushrooms {
		s.Mushrooms[i].SpeedLeft = 0
	}

	s.TurnCurrent++
	for i := 0; i < MushroomsPerTurn && len(s.Mushrooms) < MaxMushrooms; i++ {
		s.SpawnMushroom()
	}

	if s.TurnCurrent >= s.TurnsMax {
		s.Phase = Results(TimeResults)
	} else {
		s.Phase = Planning(TimePerPlan)
	}
}

func sortedCells[T any](m map[Vec2]T) []Vec2 {
	cells := make([]Vec2, 0, len(m))
	for c := range m {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Y != cells[j].Y {
			return cells[i].Y < cells[j].Y
		}
		return cells[i].X < cells[j].X
	})
	return cells
}

func sortIDs(ids []ClientID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
