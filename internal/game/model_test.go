package game

import (
	"math/rand"
	"testing"
)

func TestNewSharedModel(t *testing.T) {
	s := NewSharedModel(NewMap(V(7, 5)), nil)

	if len(s.Bases) != 1 || s.Bases[0] != V(0, 0) {
		t.Errorf("Expected a single base at the center, got %+v", s.Bases)
	}
	if s.Phase.Kind != PhasePlanning || s.Phase.TimeLeft != TimePerPlan {
		t.Errorf("Expected planning phase, got %+v", s.Phase)
	}
	if s.TurnsMax != TurnsMax {
		t.Errorf("Expected %d turns, got %d", TurnsMax, s.TurnsMax)
	}
}

func TestAddRemovePlayer(t *testing.T) {
	s := NewSharedModel(NewMap(V(5, 5)), rand.New(rand.NewSource(3)))
	s.Map.Walls = []Vec2{V(1, 1), V(-1, -1)}

	for id := ClientID(1); id <= 5; id++ {
		p := s.AddPlayer(id, PlayerCustomization{Name: "p"})
		if s.Map.IsWall(p.Pos) || !s.Map.IsInBounds(p.Pos) {
			t.Errorf("Player %d spawned on %+v", id, p.Pos)
		}
	}
	if len(s.Players) != 5 {
		t.Fatalf("Expected 5 players, got %d", len(s.Players))
	}

	again := s.AddPlayer(1, PlayerCustomization{Name: "renamed"})
	if len(s.Players) != 5 || again.Customization.Name != "renamed" {
		t.Error("Adding an existing player should only update the customization")
	}

	p := s.Players[2]
	p.Mushrooms = 2
	s.RemovePlayer(2)
	if _, ok := s.Players[2]; ok {
		t.Error("Player 2 should be gone")
	}
	if len(s.Mushrooms) != 2 {
		t.Errorf("Carried mushrooms should be dropped, got %d", len(s.Mushrooms))
	}
	s.RemovePlayer(99)
}

func TestSpawnFillsCrowdedBoard(t *testing.T) {
	s := NewSharedModel(NewMap(V(2, 2)), rand.New(rand.NewSource(1)))

	seen := make(map[Vec2]ClientID)
	for id := ClientID(1); id <= 4; id++ {
		p := s.AddPlayer(id, PlayerCustomization{Name: "p"})
		if other, ok := seen[p.Pos]; ok {
			t.Errorf("Players %d and %d share %+v", other, id, p.Pos)
		}
		seen[p.Pos] = id
	}
	if base := s.Bases[0]; seen[base] != 4 {
		t.Errorf("Only the last player should spawn on the base, got %d", seen[base])
	}
}

func TestSetCustomization(t *testing.T) {
	s := newTestModel()
	addPlayerAt(s, 1, V(0, 0))

	c := PlayerCustomization{Name: "bob", Character: CharacterPanda, Color: "#000000"}
	if !s.SetCustomization(1, c) {
		t.Fatal("SetCustomization failed for an existing player")
	}
	if s.Players[1].Customization != c {
		t.Errorf("Customization not applied: %+v", s.Players[1].Customization)
	}
	if s.SetCustomization(2, c) {
		t.Error("SetCustomization should fail for unknown players")
	}
}

func TestSpawnMushroomRespectsExclusion(t *testing.T) {
	s := NewSharedModel(NewMap(V(9, 9)), rand.New(rand.NewSource(11)))
	addPlayerAt(s, 1, V(3, 3))

	for i := 0; i < 50; i++ {
		s.SpawnMushroom()
	}
	if len(s.Mushrooms) == 0 {
		t.Fatal("Expected some mushrooms to spawn")
	}
	seen := make(map[Vec2]bool)
	for _, m := range s.Mushrooms {
		if m.Pos.Manhattan(s.Bases[0]) <= SpawnExclusionRadius {
			t.Errorf("Mushroom %+v too close to the base", m.Pos)
		}
		if m.Pos.Manhattan(V(3, 3)) <= SpawnExclusionRadius {
			t.Errorf("Mushroom %+v too close to the player", m.Pos)
		}
		if seen[m.Pos] {
			t.Errorf("Two mushrooms on %+v", m.Pos)
		}
		seen[m.Pos] = true
	}
}

// TestSpawnMushroomNoRoom leaves the map without any valid cell.
func TestSpawnMushroomNoRoom(t *testing.T) {
	s := NewSharedModel(NewMap(V(3, 3)), rand.New(rand.NewSource(1)))

	if s.SpawnMushroom() {
		t.Error("SpawnMushroom should report failure")
	}
	if len(s.Mushrooms) != 0 {
		t.Errorf("No mushroom should be added, got %+v", s.Mushrooms)
	}
}

func TestRestart(t *testing.T) {
	s := NewSharedModel(NewMap(V(9, 9)), rand.New(rand.NewSource(5)))
	p := s.AddPlayer(1, PlayerCustomization{Name: "keep"})
	p.Score = 40
	p.CollectedMushrooms = 4
	p.Mushrooms = 1
	p.CooldownTeleport = 3
	p.IsChanneling = true
	p.stun(1)
	s.TurnCurrent = s.TurnsMax
	s.Phase = Results(0)
	s.Trails = []PlayerTrail{{Player: 1}}

	s.Restart()

	p = s.Players[1]
	if p.Score != 0 || p.CollectedMushrooms != 0 || p.Mushrooms != 0 {
		t.Errorf("Scores should reset, got %+v", p)
	}
	if p.IsStunned() || p.IsChanneling || p.CooldownTeleport != 0 {
		t.Error("Status effects should reset")
	}
	if p.Customization.Name != "keep" {
		t.Error("Customization should survive a restart")
	}
	if s.TurnCurrent != 0 || s.Phase.Kind != PhasePlanning {
		t.Errorf("Expected turn 0 in planning, got %d %s", s.TurnCurrent, s.Phase.Kind)
	}
	if len(s.Trails) != 0 {
		t.Error("Trails should be cleared")
	}
	if len(s.Mushrooms) == 0 || len(s.Mushrooms) > MaxMushrooms {
		t.Errorf("Expected up to %d fresh mushrooms, got %d", MaxMushrooms, len(s.Mushrooms))
	}
}

func TestCloneIsIndependent(t *testing.T) {
	s := newTestModel()
	p := addPlayerAt(s, 1, V(0, 0))
	p.SubmittedMove = NormalMove([]Vec2{V(0, 0), V(1, 0), V(2, 0)}, false)
	s.Mushrooms = []Mushroom{{Pos: V(2, 2)}}
	s.Map.Walls = []Vec2{V(-1, 1)}

	c := s.Clone()
	resolveAll(t, s)
	s.Map.Walls[0] = V(0, 2)

	if c.Players[1].Pos != V(0, 0) {
		t.Errorf("Clone player moved to %+v", c.Players[1].Pos)
	}
	if len(c.Trails) != 0 {
		t.Error("Clone should not see new trails")
	}
	if c.Map.Walls[0] != V(-1, 1) {
		t.Error("Clone shares walls")
	}
	if c.Phase.Kind != PhasePlanning {
		t.Errorf("Clone phase changed to %s", c.Phase.Kind)
	}
}
