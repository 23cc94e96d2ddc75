package game

import (
	"math"
	"math/rand"
)

// Aabb is an inclusive integer bounding box.
type Aabb struct {
	Min Vec2 `json:"min" msgpack:"min"`
	Max Vec2 `json:"max" msgpack:"max"`
}

// Map is the static grid geometry of a match.
// Walls are only placed once, when the match is created.
type Map struct {
	Bounds   Aabb    `json:"bounds" msgpack:"bounds"`
	CellSize float64 `json:"cellSize" msgpack:"cellSize"`
	Walls    []Vec2  `json:"walls" msgpack:"walls"`
}

// NewMap creates a map of the given size centered on the origin.
// Odd sizes are symmetric; even sizes extend one extra cell towards positive.
func NewMap(size Vec2) *Map {
	return &Map{
		Bounds: Aabb{
			Min: Vec2{X: -size.X/2 - (size.X%2 - 1), Y: -size.Y/2 - (size.Y%2 - 1)},
			Max: Vec2{X: size.X / 2, Y: size.Y / 2},
		},
		CellSize: 1,
	}
}

// NewMapBounds creates a map covering exactly [min, max].
func NewMapBounds(min, max Vec2) *Map {
	return &Map{Bounds: Aabb{Min: min, Max: max}, CellSize: 1}
}

// Size returns the number of cells along each axis.
func (m *Map) Size() Vec2 {
	return Vec2{X: m.Bounds.Max.X - m.Bounds.Min.X + 1, Y: m.Bounds.Max.Y - m.Bounds.Min.Y + 1}
}

// ToWorld converts a cell to the world position of its corner.
func (m *Map) ToWorld(cell Vec2) Point {
	return Point{X: float64(cell.X) * m.CellSize, Y: float64(cell.Y) * m.CellSize}
}

// ToWorldCenter converts a cell to the world position of its center.
func (m *Map) ToWorldCenter(cell Vec2) Point {
	p := m.ToWorld(cell)
	return Point{X: p.X + m.CellSize/2, Y: p.Y + m.CellSize/2}
}

// WorldBounds covers every cell of the map.
func (m *Map) WorldBounds() Rect {
	return Rect{
		Min: m.ToWorld(m.Bounds.Min),
		Max: m.ToWorld(m.Bounds.Max.Add(Vec2{X: 1, Y: 1})),
	}
}

// TileBounds is the world rectangle of a single cell.
func (m *Map) TileBounds(cell Vec2) Rect {
	p := m.ToWorld(cell)
	return Rect{Min: p, Max: Point{X: p.X + m.CellSize, Y: p.Y + m.CellSize}}
}

// RandomPosition samples a uniform cell within bounds.
// Callers retry when the cell is unsuitable.
func (m *Map) RandomPosition(rng *rand.Rand) Vec2 {
	return Vec2{
		X: m.Bounds.Min.X + rng.Int63n(m.Bounds.Max.X-m.Bounds.Min.X+1),
		Y: m.Bounds.Min.Y + rng.Int63n(m.Bounds.Max.Y-m.Bounds.Min.Y+1),
	}
}

// IsInBounds reports whether cell lies inside the map.
func (m *Map) IsInBounds(cell Vec2) bool {
	b := m.Bounds
	return b.Min.X <= cell.X && cell.X <= b.Max.X && b.Min.Y <= cell.Y && cell.Y <= b.Max.Y
}

// IsWall reports whether cell holds a wall.
func (m *Map) IsWall(cell Vec2) bool {
	for _, w := range m.Walls {
		if w == cell {
			return true
		}
	}
	return false
}

// IsWalkable is in bounds and not a wall.
func (m *Map) IsWalkable(cell Vec2) bool {
	return m.IsInBounds(cell) && !m.IsWall(cell)
}

// FromWorldUnbound converts a world position to the containing cell,
// even if that cell lies outside the map.
func (m *Map) FromWorldUnbound(p Point) Vec2 {
	return Vec2{
		X: ICoord(math.Floor(p.X / m.CellSize)),
		Y: ICoord(math.Floor(p.Y / m.CellSize)),
	}
}

// FromWorld converts a world position to a cell, or false if outside the map.
func (m *Map) FromWorld(p Point) (Vec2, bool) {
	cell := m.FromWorldUnbound(p)
	if !m.IsInBounds(cell) {
		return Vec2{}, false
	}
	return cell, true
}

// PlaceWalls adds up to n walls at random cells, skipping forbidden ones.
// Placement is best effort: each wall gets a bounded number of attempts.
func (m *Map) PlaceWalls(rng *rand.Rand, n int, forbidden []Vec2) {
	for i := 0; i < n; i++ {
		for attempt := 0; attempt < SpawnAttempts; attempt++ {
			cell := m.RandomPosition(rng)
			if m.IsWall(cell) || containsCell(forbidden, cell) {
				continue
			}
			m.Walls = append(m.Walls, cell)
			break
		}
	}
}

func (m *Map) clone() *Map {
	c := *m
	c.Walls = append([]Vec2(nil), m.Walls...)
	return &c
}

func containsCell(cells []Vec2, cell Vec2) bool {
	for _, c := range cells {
		if c == cell {
			return true
		}
	}
	return false
}
