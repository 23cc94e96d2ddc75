package game

// EventKind classifies a GameEvent.
type EventKind uint8

const (
	EventUnknown EventKind = iota
	EventStartResolution
	EventFinishResolution
	EventResultsOver
	EventNextMove
	EventMushroomPickup
	EventMushroomsCollected
	EventPlayerStunned
	EventScore
	EventTeleport
	EventMushroomThrow
)

// EventKinds lists every known kind, for metric pre-registration.
var EventKinds = []EventKind{
	EventStartResolution,
	EventFinishResolution,
	EventResultsOver,
	EventNextMove,
	EventMushroomPickup,
	EventMushroomsCollected,
	EventPlayerStunned,
	EventScore,
	EventTeleport,
	EventMushroomThrow,
}

// String returns a stable lowercase tag.
func (k EventKind) String() string {
	switch k {
	case EventStartResolution:
		return "start_resolution"
	case EventFinishResolution:
		return "finish_resolution"
	case EventResultsOver:
		return "results_over"
	case EventNextMove:
		return "next_move"
	case EventMushroomPickup:
		return "mushroom_pickup"
	case EventMushroomsCollected:
		return "mushrooms_collected"
	case EventPlayerStunned:
		return "player_stunned"
	case EventScore:
		return "score"
	case EventTeleport:
		return "teleport"
	case EventMushroomThrow:
		return "mushroom_throw"
	default:
		return "unknown"
	}
}

// GameEvent is a discrete thing that happened during a tick.
// Which of Player, Cell, Count and Amount are set depends on Kind.
type GameEvent struct {
	Kind   EventKind `json:"kind" msgpack:"kind"`
	Player ClientID  `json:"player,omitempty" msgpack:"player,omitempty"`
	Cell   Vec2      `json:"cell" msgpack:"cell"`
	Count  int       `json:"count,omitempty" msgpack:"count,omitempty"`
	Amount int       `json:"amount,omitempty" msgpack:"amount,omitempty"`
}

func simpleEvent(kind EventKind) GameEvent {
	return GameEvent{Kind: kind}
}

func mushroomPickup(id ClientID, cell Vec2) GameEvent {
	return GameEvent{Kind: EventMushroomPickup, Player: id, Cell: cell}
}

func mushroomsCollected(id ClientID, cell Vec2, n int) GameEvent {
	return GameEvent{Kind: EventMushroomsCollected, Player: id, Cell: cell, Count: n}
}

func playerStunned(id ClientID, cell Vec2) GameEvent {
	return GameEvent{Kind: EventPlayerStunned, Player: id, Cell: cell}
}

func scoreEvent(id ClientID, amount int, cell Vec2) GameEvent {
	return GameEvent{Kind: EventScore, Player: id, Cell: cell, Amount: amount}
}

// CountKind counts events of the given kind.
func CountKind(events []GameEvent, kind EventKind) int {
	n := 0
	for _, e := range events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}
