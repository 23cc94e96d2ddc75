package game

import "time"

// PhaseKind tags the current segment of a turn.
type PhaseKind uint8

const (
	PhasePlanning PhaseKind = iota
	PhaseResolution
	PhaseResults
)

// String returns the wire name of the phase.
func (k PhaseKind) String() string {
	switch k {
	case PhasePlanning:
		return "planning"
	case PhaseResolution:
		return "resolution"
	case PhaseResults:
		return "results"
	default:
		return "unknown"
	}
}

// Phase is the timer-driven state of the turn cycle.
// TimeLeft is used by Planning and Results, NextMoveIn by Resolution.
type Phase struct {
	Kind       PhaseKind     `json:"kind" msgpack:"kind"`
	TimeLeft   time.Duration `json:"timeLeft" msgpack:"timeLeft"`
	NextMoveIn time.Duration `json:"nextMoveIn" msgpack:"nextMoveIn"`
}

// Planning returns a fresh planning phase.
func Planning(timeLeft time.Duration) Phase {
	return Phase{Kind: PhasePlanning, TimeLeft: timeLeft}
}

// Resolution returns a resolution phase that steps after nextMoveIn.
func Resolution(nextMoveIn time.Duration) Phase {
	return Phase{Kind: PhaseResolution, NextMoveIn: nextMoveIn}
}

// Results returns a results phase.
func Results(timeLeft time.Duration) Phase {
	return Phase{Kind: PhaseResults, TimeLeft: timeLeft}
}

// Update advances the phase timers by dt.
//
// Expired timers only emit events: the owner is expected to react to
// StartResolution, FinishResolution and ResultsOver by calling the matching
// transition, so that queued moves can be snapshotted at the same instant.
func (s *SharedModel) Update(dt time.Duration) []GameEvent {
	var events []GameEvent
	switch s.Phase.Kind {
	case PhasePlanning:
		s.Phase.TimeLeft -= dt
		if s.Phase.TimeLeft <= 0 {
			events = append(events, simpleEvent(EventStartResolution))
		}
	case PhaseResolution:
		s.Phase.NextMoveIn -= dt
		if s.Phase.NextMoveIn <= 0 {
			stepEvents, more := s.ResolveNextMove()
			events = append(events, stepEvents...)
			if more {
				s.Phase.NextMoveIn = TimePerMove
			} else {
				events = append(events, simpleEvent(EventFinishResolution))
			}
		}
	case PhaseResults:
		s.Phase.TimeLeft -= dt
		if s.Phase.TimeLeft <= 0 {
			events = append(events, simpleEvent(EventResultsOver))
		}
	}
	return events
}
