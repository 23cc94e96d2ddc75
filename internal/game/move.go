package game

// MoveKind tags the active variant of a PlayerMove.
type MoveKind uint8

const (
	MoveNormal MoveKind = iota
	MoveTeleportChanneling
	MoveTeleportActivate
	MoveThrow
)

// String returns the wire name of the kind.
func (k MoveKind) String() string {
	switch k {
	case MoveNormal:
		return "normal"
	case MoveTeleportChanneling:
		return "teleport_channeling"
	case MoveTeleportActivate:
		return "teleport_activate"
	case MoveThrow:
		return "throw"
	default:
		return "unknown"
	}
}

// PlayerMove is a player's declared action for the next resolution.
// Only the fields belonging to Kind are meaningful. The zero value is a
// Normal move with an empty path, i.e. standing still.
type PlayerMove struct {
	Kind MoveKind `json:"kind" msgpack:"kind"`

	// Normal
	Path   []Vec2 `json:"path,omitempty" msgpack:"path,omitempty"`
	Sprint bool   `json:"sprint,omitempty" msgpack:"sprint,omitempty"`

	// TeleportActivate
	TeleportTo Vec2 `json:"teleportTo" msgpack:"teleportTo"`

	// Throw
	Direction Vec2 `json:"direction" msgpack:"direction"`
}

// NormalMove walks along path, optionally sprinting.
func NormalMove(path []Vec2, sprint bool) PlayerMove {
	return PlayerMove{Kind: MoveNormal, Path: path, Sprint: sprint}
}

// TeleportChanneling starts charging a teleport.
func TeleportChanneling() PlayerMove {
	return PlayerMove{Kind: MoveTeleportChanneling}
}

// TeleportActivate discharges a channeled teleport onto to.
func TeleportActivate(to Vec2) PlayerMove {
	return PlayerMove{Kind: MoveTeleportActivate, TeleportTo: to}
}

// Throw launches a carried mushroom in a cardinal direction.
func Throw(direction Vec2) PlayerMove {
	return PlayerMove{Kind: MoveThrow, Direction: direction}
}

// IsIdle reports whether the move is a Normal move that goes nowhere.
func (m *PlayerMove) IsIdle() bool {
	return m.Kind == MoveNormal && len(m.Path) <= 1
}

func (m PlayerMove) clone() PlayerMove {
	if m.Path != nil {
		m.Path = append([]Vec2(nil), m.Path...)
	}
	return m
}

// moveRule binds validation and speed computation for one variant, so the
// two can never drift apart.
type moveRule struct {
	validate func(m *Map, p *Player, move *PlayerMove) bool
	speed    func(p *Player, move *PlayerMove) int
}

var moveRules = [...]moveRule{
	MoveNormal: {
		validate: func(m *Map, p *Player, move *PlayerMove) bool {
			if move.Sprint && p.CooldownSprint > 0 {
				move.Sprint = false
			}
			return ValidatePath(m, p, move.Path, move.Sprint)
		},
		speed: func(p *Player, move *PlayerMove) int {
			return p.Speed(move.Sprint)
		},
	},
	MoveTeleportChanneling: {
		validate: func(_ *Map, p *Player, _ *PlayerMove) bool {
			return p.CooldownTeleport <= 0
		},
		speed: func(*Player, *PlayerMove) int { return TeleportSpeed },
	},
	MoveTeleportActivate: {
		validate: func(m *Map, p *Player, move *PlayerMove) bool {
			to := move.TeleportTo
			return p.IsChanneling &&
				p.Pos.Manhattan(to) <= TeleportRange &&
				m.IsInBounds(to) &&
				!m.IsWall(to)
		},
		speed: func(*Player, *PlayerMove) int { return TeleportSpeed },
	},
	MoveThrow: {
		validate: func(_ *Map, p *Player, move *PlayerMove) bool {
			return p.Mushrooms >= 1 && IsUnitDirection(move.Direction)
		},
		speed: func(*Player, *PlayerMove) int { return ThrowSpeed },
	},
}

func ruleFor(kind MoveKind) (moveRule, bool) {
	if int(kind) >= len(moveRules) {
		return moveRule{}, false
	}
	return moveRules[kind], true
}
