package game

import "math/rand"

// ClientID identifies a connected client and the player it controls.
type ClientID = int64

// Turns counts whole planning/resolution cycles.
type Turns = int64

// Character is the cosmetic animal a player plays as.
type Character string

const (
	CharacterAnt      Character = "ant"
	CharacterBunny    Character = "bunny"
	CharacterCat      Character = "cat"
	CharacterCrab     Character = "crab"
	CharacterDinosaur Character = "dinosaur"
	CharacterDog      Character = "dog"
	CharacterElephant Character = "elephant"
	CharacterFishman  Character = "fishman"
	CharacterFox      Character = "fox"
	CharacterFrog     Character = "frog"
	CharacterGhost    Character = "ghost"
	CharacterGoat     Character = "goat"
	CharacterMouse    Character = "mouse"
	CharacterPanda    Character = "panda"
	CharacterPenguin  Character = "penguin"
	CharacterSkeleton Character = "skeleton"
	CharacterSnake    Character = "snake"
	CharacterUnicorn  Character = "unicorn"
)

var characterColors = map[Character]string{
	CharacterAnt:      "#6D767B",
	CharacterBunny:    "#5590B4",
	CharacterCat:      "#C68B60",
	CharacterCrab:     "#C68B60",
	CharacterDinosaur: "#B158D3",
	CharacterDog:      "#C68B60",
	CharacterElephant: "#6D767B",
	CharacterFishman:  "#474C80",
	CharacterFox:      "#B03B59",
	CharacterFrog:     "#6BB453",
	CharacterGhost:    "#6D767B",
	CharacterGoat:     "#5590B4",
	CharacterMouse:    "#6D767B",
	CharacterPanda:    "#B03B59",
	CharacterPenguin:  "#C68B60",
	CharacterSkeleton: "#69469B",
	CharacterSnake:    "#3C7253",
	CharacterUnicorn:  "#6A2F56",
}

// Characters lists every character in a stable order.
var Characters = []Character{
	CharacterAnt, CharacterBunny, CharacterCat, CharacterCrab, CharacterDinosaur,
	CharacterDog, CharacterElephant, CharacterFishman, CharacterFox, CharacterFrog,
	CharacterGhost, CharacterGoat, CharacterMouse, CharacterPanda, CharacterPenguin,
	CharacterSkeleton, CharacterSnake, CharacterUnicorn,
}

// Color returns the default hex color of the character.
func (c Character) Color() string {
	if col, ok := characterColors[c]; ok {
		return col
	}
	return "#FFFFFF"
}

// Valid reports whether c is a known character.
func (c Character) Valid() bool {
	_, ok := characterColors[c]
	return ok
}

// RandomCharacter picks a character uniformly.
func RandomCharacter(rng *rand.Rand) Character {
	return Characters[rng.Intn(len(Characters))]
}

// PlayerCustomization is purely cosmetic and never affects resolution.
type PlayerCustomization struct {
	Name      string    `json:"name" msgpack:"name"`
	Character Character `json:"character" msgpack:"character"`
	Color     string    `json:"color" msgpack:"color"`
}

// RandomCustomization returns an anonymous customization.
func RandomCustomization(rng *rand.Rand) PlayerCustomization {
	c := RandomCharacter(rng)
	return PlayerCustomization{Name: "anonymous", Character: c, Color: c.Color()}
}

// Player is the authoritative per-client state.
type Player struct {
	ID            ClientID            `json:"id" msgpack:"id"`
	Customization PlayerCustomization `json:"customization" msgpack:"customization"`
	Pos           Vec2                `json:"pos" msgpack:"pos"`
	MaxSpeed      int                 `json:"maxSpeed" msgpack:"maxSpeed"`
	SubmittedMove PlayerMove          `json:"submittedMove" msgpack:"submittedMove"`

	// Currently carried mushrooms.
	Mushrooms int `json:"mushrooms" msgpack:"mushrooms"`
	// Mushrooms delivered to a base over the whole match.
	CollectedMushrooms int `json:"collectedMushrooms" msgpack:"collectedMushrooms"`
	Score              int `json:"score" msgpack:"score"`

	// nil when not stunned. Counts down once per finished resolution.
	StunnedDuration *Turns `json:"stunnedDuration,omitempty" msgpack:"stunnedDuration,omitempty"`

	// Micro-move budget at the start of the resolution, and what is left of it.
	ResolutionSpeedMax  int  `json:"resolutionSpeedMax" msgpack:"resolutionSpeedMax"`
	ResolutionSpeedLeft int  `json:"resolutionSpeedLeft" msgpack:"resolutionSpeedLeft"`
	ResolutionStart     Vec2 `json:"resolutionStart" msgpack:"resolutionStart"`

	CooldownSprint   Turns `json:"cooldownSprint" msgpack:"cooldownSprint"`
	CooldownTeleport Turns `json:"cooldownTeleport" msgpack:"cooldownTeleport"`
	IsChanneling     bool  `json:"isChanneling" msgpack:"isChanneling"`
}

// NewPlayer creates a fresh player at pos.
func NewPlayer(id ClientID, customization PlayerCustomization, pos Vec2) *Player {
	return &Player{
		ID:              id,
		Customization:   customization,
		Pos:             pos,
		MaxSpeed:        PlayerBaseSpeed,
		ResolutionStart: pos,
	}
}

// Speed is the number of cells the player may walk this turn.
// Each carried mushroom slows the player down, but never below one cell.
func (p *Player) Speed(sprint bool) int {
	speed := p.MaxSpeed - p.Mushrooms
	if speed < 1 {
		speed = 1
	}
	if sprint {
		speed += SprintBonus
	}
	return speed
}

// IsStunned reports whether the player is currently stunned.
func (p *Player) IsStunned() bool {
	return p.StunnedDuration != nil
}

func (p *Player) stun(duration Turns) {
	d := duration
	p.StunnedDuration = &d
}

func (p *Player) clone() *Player {
	c := *p
	c.SubmittedMove = p.SubmittedMove.clone()
	if p.StunnedDuration != nil {
		d := *p.StunnedDuration
		c.StunnedDuration = &d
	}
	return &c
}

// Mushroom lies on the map, or flies across it while SpeedLeft > 0.
type Mushroom struct {
	Pos       Vec2 `json:"pos" msgpack:"pos"`
	Direction Vec2 `json:"direction" msgpack:"direction"`
	SpeedLeft int  `json:"speedLeft" msgpack:"speedLeft"`
}

// IsFlying reports whether the mushroom is a projectile this resolution.
func (m *Mushroom) IsFlying() bool {
	return m.SpeedLeft > 0
}

// PlayerTrail records one micro-move made during the current resolution.
type PlayerTrail struct {
	Player         ClientID `json:"player" msgpack:"player"`
	Pos            Vec2     `json:"pos" msgpack:"pos"`
	ConnectionFrom *Vec2    `json:"connectionFrom,omitempty" msgpack:"connectionFrom,omitempty"`
	ConnectionTo   Vec2     `json:"connectionTo" msgpack:"connectionTo"`
}
