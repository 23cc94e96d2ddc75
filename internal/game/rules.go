package game

import "time"

// Match rules. These are fixed for every match.
const (
	TimePerPlan = 10 * time.Second
	TimePerMove = 300 * time.Millisecond
	TimeResults = 10 * time.Second

	PlayerBaseSpeed = 5
	SprintBonus     = 3
	SprintCooldown  = 3 // turns

	TeleportCooldown = 5 // turns
	TeleportRange    = 3
	TeleportSpeed    = 10

	ThrowSpeed = 6

	ScorePerMushroom = 10
	TurnsMax         = 15
	StunDuration     = 1 // turns

	SpawnExclusionRadius = 2
	SpawnAttempts        = 10
	MaxMushrooms         = 6
	MushroomsPerTurn     = 2
)
