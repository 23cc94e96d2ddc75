package game

import (
	"math/rand"
	"testing"
)

func TestNewMapBounds(t *testing.T) {
	tests := []struct {
		name     string
		size     Vec2
		wantMin  Vec2
		wantMax  Vec2
		wantSize Vec2
	}{
		{"odd", V(5, 5), V(-2, -2), V(2, 2), V(5, 5)},
		{"even", V(4, 4), V(-1, -1), V(2, 2), V(4, 4)},
		{"mixed", V(7, 4), V(-3, -1), V(3, 2), V(7, 4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMap(tt.size)
			if m.Bounds.Min != tt.wantMin || m.Bounds.Max != tt.wantMax {
				t.Errorf("Expected bounds %+v..%+v, got %+v", tt.wantMin, tt.wantMax, m.Bounds)
			}
			if got := m.Size(); got != tt.wantSize {
				t.Errorf("Expected size %+v, got %+v", tt.wantSize, got)
			}
		})
	}

	m := NewMapBounds(V(0, 0), V(3, 1))
	if got := m.Size(); got != V(4, 2) {
		t.Errorf("Expected explicit bounds to cover 4x2 cells, got %+v", got)
	}
}

func TestMapWorldConversion(t *testing.T) {
	m := NewMap(V(5, 5))
	m.CellSize = 2

	if got := m.ToWorldCenter(V(1, -1)); got != (Point{X: 3, Y: -1}) {
		t.Errorf("ToWorldCenter = %+v", got)
	}
	if got := m.FromWorldUnbound(Point{X: -0.5, Y: 3.9}); got != V(-1, 1) {
		t.Errorf("FromWorldUnbound = %+v", got)
	}
	if _, ok := m.FromWorld(Point{X: 100, Y: 0}); ok {
		t.Error("FromWorld should reject points outside the map")
	}
	b := m.WorldBounds()
	if b.Width() != 10 || b.Height() != 10 {
		t.Errorf("Expected 10x10 world bounds, got %vx%v", b.Width(), b.Height())
	}
}

func TestMapWalkable(t *testing.T) {
	m := NewMap(V(3, 3))
	m.Walls = []Vec2{V(0, 1)}

	tests := []struct {
		cell Vec2
		want bool
	}{
		{V(0, 0), true},
		{V(0, 1), false},
		{V(2, 0), false},
		{V(-1, -1), true},
	}
	for _, tt := range tests {
		if got := m.IsWalkable(tt.cell); got != tt.want {
			t.Errorf("IsWalkable(%+v) = %v, want %v", tt.cell, got, tt.want)
		}
	}
}

func TestPlaceWallsAvoidsForbidden(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	m := NewMap(V(5, 5))
	forbidden := []Vec2{V(0, 0), V(1, 0)}

	m.PlaceWalls(rng, 8, forbidden)

	if len(m.Walls) == 0 {
		t.Fatal("Expected some walls")
	}
	seen := make(map[Vec2]bool)
	for _, w := range m.Walls {
		if containsCell(forbidden, w) {
			t.Errorf("Wall placed on forbidden cell %+v", w)
		}
		if !m.IsInBounds(w) {
			t.Errorf("Wall out of bounds %+v", w)
		}
		if seen[w] {
			t.Errorf("Duplicate wall %+v", w)
		}
		seen[w] = true
	}
}

func TestValidatePath(t *testing.T) {
	m := NewMap(V(9, 9))
	m.Walls = []Vec2{V(0, 2)}
	p := NewPlayer(1, PlayerCustomization{}, V(0, 0))

	line := func(n int) []Vec2 {
		path := make([]Vec2, n+1)
		for i := range path {
			path[i] = V(ICoord(i)-4, -1)
		}
		return path
	}

	tests := []struct {
		name   string
		pos    Vec2
		path   []Vec2
		sprint bool
		want   bool
	}{
		{"empty", V(0, 0), nil, false, true},
		{"stand still", V(0, 0), []Vec2{V(0, 0)}, false, true},
		{"one step", V(0, 0), []Vec2{V(0, 0), V(1, 0)}, false, true},
		{"wrong start", V(0, 0), []Vec2{V(1, 0), V(2, 0)}, false, false},
		{"diagonal", V(0, 0), []Vec2{V(0, 0), V(1, 1)}, false, false},
		{"into wall", V(0, 0), []Vec2{V(0, 0), V(0, 1), V(0, 2)}, false, false},
		{"out of bounds", V(4, 0), []Vec2{V(4, 0), V(5, 0)}, false, false},
		{"full speed", V(-4, -1), line(PlayerBaseSpeed), false, true},
		{"too long", V(-4, -1), line(PlayerBaseSpeed + 1), false, false},
		{"sprint", V(-4, -1), line(PlayerBaseSpeed + SprintBonus), true, true},
		{"too long sprint", V(-4, -1), line(PlayerBaseSpeed + SprintBonus + 1), true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p.Pos = tt.pos
			if got := ValidatePath(m, p, tt.path, tt.sprint); got != tt.want {
				t.Errorf("ValidatePath() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateMoveRules(t *testing.T) {
	m := NewMap(V(5, 5))
	m.Walls = []Vec2{V(1, 1)}

	tests := []struct {
		name  string
		setup func(p *Player)
		move  PlayerMove
		want  bool
		speed int
	}{
		{"channel ready", nil, TeleportChanneling(), true, TeleportSpeed},
		{"channel on cooldown", func(p *Player) { p.CooldownTeleport = 1 }, TeleportChanneling(), false, 0},
		{"activate without channel", nil, TeleportActivate(V(1, 0)), false, 0},
		{"activate on wall", func(p *Player) { p.IsChanneling = true }, TeleportActivate(V(1, 1)), false, 0},
		{"activate", func(p *Player) { p.IsChanneling = true }, TeleportActivate(V(0, 2)), true, TeleportSpeed},
		{"throw empty handed", nil, Throw(V(1, 0)), false, 0},
		{"throw diagonal", func(p *Player) { p.Mushrooms = 1 }, Throw(V(1, 1)), false, 0},
		{"throw", func(p *Player) { p.Mushrooms = 1 }, Throw(V(0, -1)), true, ThrowSpeed},
		{"unknown kind", nil, PlayerMove{Kind: MoveKind(99)}, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPlayer(1, PlayerCustomization{}, V(0, 0))
			if tt.setup != nil {
				tt.setup(p)
			}
			move := tt.move
			got := ValidateMove(m, p, &move)
			if got != tt.want {
				t.Fatalf("ValidateMove() = %v, want %v", got, tt.want)
			}
			if got && moveSpeed(p, &move) != tt.speed {
				t.Errorf("moveSpeed() = %d, want %d", moveSpeed(p, &move), tt.speed)
			}
		})
	}
}
