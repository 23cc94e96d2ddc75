package game

// ICoord is the integer grid coordinate type.
type ICoord = int64

// Vec2 is a grid cell (or a grid-aligned direction).
type Vec2 struct {
	X ICoord `json:"x" msgpack:"x"`
	Y ICoord `json:"y" msgpack:"y"`
}

// V constructs a Vec2.
func V(x, y ICoord) Vec2 {
	return Vec2{X: x, Y: y}
}

// Add returns a + b.
func (a Vec2) Add(b Vec2) Vec2 {
	return Vec2{X: a.X + b.X, Y: a.Y + b.Y}
}

// Sub returns a - b.
func (a Vec2) Sub(b Vec2) Vec2 {
	return Vec2{X: a.X - b.X, Y: a.Y - b.Y}
}

// Manhattan returns the taxicab distance between a and b.
func (a Vec2) Manhattan(b Vec2) ICoord {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

// AreAdjacent reports whether two cells share an edge.
func AreAdjacent(a, b Vec2) bool {
	return a.Manhattan(b) == 1
}

// IsUnitDirection reports whether d is one of the four cardinal unit vectors.
func IsUnitDirection(d Vec2) bool {
	return abs(d.X)+abs(d.Y) == 1
}

func abs(v ICoord) ICoord {
	if v < 0 {
		return -v
	}
	return v
}

// Point is a world-space position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned world-space rectangle.
type Rect struct {
	Min Point `json:"min"`
	Max Point `json:"max"`
}

// Width of the rectangle.
func (r Rect) Width() float64 { return r.Max.X - r.Min.X }

// Height of the rectangle.
func (r Rect) Height() float64 { return r.Max.Y - r.Min.Y }
