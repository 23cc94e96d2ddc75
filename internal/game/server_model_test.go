package game

import "testing"

func TestQueueMove(t *testing.T) {
	s := newTestModel()
	addPlayerAt(s, 1, V(0, 0))
	stunned := addPlayerAt(s, 2, V(2, 2))
	stunned.stun(1)
	m := NewServerModel(s)

	tests := []struct {
		name string
		id   ClientID
		move PlayerMove
		want bool
	}{
		{"valid walk", 1, NormalMove([]Vec2{V(0, 0), V(0, 1)}, false), true},
		{"invalid walk", 1, NormalMove([]Vec2{V(1, 1), V(0, 1)}, false), false},
		{"unknown player", 7, PlayerMove{}, false},
		{"stunned player", 2, PlayerMove{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.QueueMove(tt.id, tt.move); got != tt.want {
				t.Errorf("QueueMove() = %v, want %v", got, tt.want)
			}
		})
	}

	if _, ok := m.QueuedMove(1); !ok {
		t.Error("Valid move should be queued")
	}
	if len(s.Players[1].SubmittedMove.Path) != 0 {
		t.Error("Queued moves must stay hidden until the resolution starts")
	}
}

// TestTickDrivesTurn runs one full turn through the server loop.
func TestTickDrivesTurn(t *testing.T) {
	s := newTestModel()
	p := addPlayerAt(s, 1, V(0, 0))
	m := NewServerModel(s)

	if !m.QueueMove(1, NormalMove([]Vec2{V(0, 0), V(1, 0)}, false)) {
		t.Fatal("QueueMove failed")
	}

	events := m.Tick(TimePerPlan)
	if CountKind(events, EventStartResolution) != 1 {
		t.Fatalf("Expected StartResolution, got %+v", events)
	}
	if s.Phase.Kind != PhaseResolution {
		t.Fatalf("Expected resolution phase, got %s", s.Phase.Kind)
	}
	if len(p.SubmittedMove.Path) != 2 {
		t.Errorf("Queued move should be submitted, got %+v", p.SubmittedMove)
	}
	if _, ok := m.QueuedMove(1); ok {
		t.Error("Queue should be drained")
	}

	if m.QueueMove(1, NormalMove([]Vec2{V(0, 0), V(0, 1)}, false)) {
		t.Error("Late moves must be rejected during resolution")
	}

	finished := false
	for i := 0; i < 20 && !finished; i++ {
		finished = CountKind(m.Tick(TimePerMove), EventFinishResolution) > 0
	}
	if !finished {
		t.Fatal("Resolution did not finish")
	}
	if p.Pos != V(1, 0) {
		t.Errorf("Expected player at (1,0), got %+v", p.Pos)
	}
	if s.Phase.Kind != PhasePlanning || s.TurnCurrent != 1 {
		t.Errorf("Expected planning for turn 1, got %s turn %d", s.Phase.Kind, s.TurnCurrent)
	}
}

func TestTickRestartsAfterResults(t *testing.T) {
	s := newTestModel()
	p := addPlayerAt(s, 1, V(0, 0))
	p.Score = 30
	s.TurnCurrent = s.TurnsMax
	s.Phase = Results(TimeResults)
	m := NewServerModel(s)

	events := m.Tick(TimeResults)

	if CountKind(events, EventResultsOver) != 1 {
		t.Fatalf("Expected ResultsOver, got %+v", events)
	}
	if s.Phase.Kind != PhasePlanning || s.TurnCurrent != 0 {
		t.Errorf("Expected a new match, got %s turn %d", s.Phase.Kind, s.TurnCurrent)
	}
	if s.Players[1].Score != 0 {
		t.Error("Scores should reset")
	}
}

func TestServerRemovePlayer(t *testing.T) {
	s := newTestModel()
	addPlayerAt(s, 1, V(0, 0))
	m := NewServerModel(s)
	m.QueueMove(1, PlayerMove{})

	m.RemovePlayer(1)

	if _, ok := m.QueuedMove(1); ok {
		t.Error("Queued move should be dropped")
	}
	if _, ok := s.Players[1]; ok {
		t.Error("Player should be removed")
	}
}
