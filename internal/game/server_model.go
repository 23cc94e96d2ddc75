package game

import "time"

// ServerModel is the server-side owner of a SharedModel.
//
// Moves arrive during planning and are parked per player; they are copied
// into the shared model only at the instant the resolution starts, so a move
// that arrives late can never affect a resolution already in progress.
type ServerModel struct {
	Shared *SharedModel

	queued map[ClientID]PlayerMove
}

// NewServerModel wraps shared.
func NewServerModel(shared *SharedModel) *ServerModel {
	return &ServerModel{
		Shared: shared,
		queued: make(map[ClientID]PlayerMove),
	}
}

// QueueMove parks a move for the next resolution, replacing any earlier one.
// It fails outside of planning, for unknown players and for moves that
// would not pass validation right now.
func (m *ServerModel) QueueMove(id ClientID, move PlayerMove) bool {
	if m.Shared.Phase.Kind != PhasePlanning {
		return false
	}
	p, ok := m.Shared.Players[id]
	if !ok || p.IsStunned() {
		return false
	}
	move = move.clone()
	if !ValidateMove(m.Shared.Map, p, &move) {
		return false
	}
	m.queued[id] = move
	return true
}

// QueuedMove returns the move parked for id.
func (m *ServerModel) QueuedMove(id ClientID) (PlayerMove, bool) {
	move, ok := m.queued[id]
	return move, ok
}

// RemovePlayer drops the player and anything it had queued.
func (m *ServerModel) RemovePlayer(id ClientID) {
	delete(m.queued, id)
	m.Shared.RemovePlayer(id)
}

// Tick advances the match by dt and carries out whatever transition the
// timers asked for. The returned events are in the order they happened.
func (m *ServerModel) Tick(dt time.Duration) []GameEvent {
	events := m.Shared.Update(dt)
	for _, e := range events {
		switch e.Kind {
		case EventStartResolution:
			m.startResolution()
		case EventFinishResolution:
			m.Shared.FinishResolution()
		case EventResultsOver:
			m.queued = make(map[ClientID]PlayerMove)
			m.Shared.Restart()
		}
	}
	return events
}

func (m *ServerModel) startResolution() {
	for id, p := range m.Shared.Players {
		p.SubmittedMove = m.queued[id]
	}
	m.queued = make(map[ClientID]PlayerMove)
	m.Shared.StartResolution()
}
