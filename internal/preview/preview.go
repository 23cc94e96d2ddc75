// Package preview draws a top-down picture of a match board.
package preview

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"sort"

	"github.com/fogleman/gg"

	"github.com/Nertsal/trail-blazer/internal/game"
)

const (
	DefaultCellSize = 32
	MinCellSize     = 8
	MaxCellSize     = 96
)

var (
	backgroundColor = color.RGBA{12, 12, 28, 255}
	floorColor      = color.RGBA{38, 40, 58, 255}
	gridColor       = color.RGBA{30, 30, 45, 255}
	wallColor       = color.RGBA{90, 92, 110, 255}
	baseColor       = color.RGBA{232, 196, 90, 255}
	mushroomColor   = color.RGBA{214, 64, 64, 255}
	flyingColor     = color.RGBA{255, 149, 0, 255}
	stunColor       = color.RGBA{255, 255, 255, 160}
)

// Render draws model with each cell cellSize pixels wide.
// Row 0 of the image is the top row of the board, i.e. the highest Y.
func Render(model *game.SharedModel, cellSize int) image.Image {
	return draw(model, cellSize).Image()
}

// WritePNG renders model and encodes it as PNG into w.
func WritePNG(w io.Writer, model *game.SharedModel, cellSize int) error {
	if err := draw(model, cellSize).EncodePNG(w); err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	return nil
}

func draw(model *game.SharedModel, cellSize int) *gg.Context {
	cellSize = clampCellSize(cellSize)
	size := model.Map.Size()
	dc := gg.NewContext(int(size.X)*cellSize, int(size.Y)*cellSize)
	r := renderer{dc: dc, m: model.Map, cell: float64(cellSize)}

	dc.SetColor(backgroundColor)
	dc.Clear()

	r.drawFloor()
	r.drawBases(model.Bases)
	r.drawTrails(model)
	r.drawMushrooms(model.Mushrooms)
	r.drawPlayers(model.Players)
	return dc
}

func clampCellSize(n int) int {
	switch {
	case n <= 0:
		return DefaultCellSize
	case n < MinCellSize:
		return MinCellSize
	case n > MaxCellSize:
		return MaxCellSize
	}
	return n
}

type renderer struct {
	dc   *gg.Context
	m    *game.Map
	cell float64
}

// origin returns the top-left pixel of a cell.
func (r renderer) origin(c game.Vec2) (float64, float64) {
	x := float64(c.X-r.m.Bounds.Min.X) * r.cell
	y := float64(r.m.Bounds.Max.Y-c.Y) * r.cell
	return x, y
}

func (r renderer) center(c game.Vec2) (float64, float64) {
	x, y := r.origin(c)
	return x + r.cell/2, y + r.cell/2
}

func (r renderer) drawFloor() {
	b := r.m.Bounds
	for y := b.Min.Y; y <= b.Max.Y; y++ {
		for x := b.Min.X; x <= b.Max.X; x++ {
			c := game.V(x, y)
			px, py := r.origin(c)
			if r.m.IsWall(c) {
				r.dc.SetColor(wallColor)
			} else {
				r.dc.SetColor(floorColor)
			}
			r.dc.DrawRectangle(px, py, r.cell, r.cell)
			r.dc.Fill()
		}
	}

	r.dc.SetColor(gridColor)
	r.dc.SetLineWidth(1)
	w, h := float64(r.dc.Width()), float64(r.dc.Height())
	for x := 0.0; x <= w; x += r.cell {
		r.dc.DrawLine(x, 0, x, h)
		r.dc.Stroke()
	}
	for y := 0.0; y <= h; y += r.cell {
		r.dc.DrawLine(0, y, w, y)
		r.dc.Stroke()
	}
}

func (r renderer) drawBases(bases []game.Vec2) {
	inset := r.cell * 0.15
	r.dc.SetColor(baseColor)
	r.dc.SetLineWidth(r.cell * 0.08)
	for _, b := range bases {
		x, y := r.origin(b)
		r.dc.DrawRectangle(x+inset, y+inset, r.cell-2*inset, r.cell-2*inset)
		r.dc.Stroke()
	}
}

func (r renderer) drawTrails(model *game.SharedModel) {
	r.dc.SetLineWidth(r.cell * 0.12)
	for _, t := range model.Trails {
		r.dc.SetHexColor(playerColor(model.Players[t.Player]))
		x0, y0 := r.center(t.Pos)
		x1, y1 := r.center(t.ConnectionTo)
		r.dc.DrawLine(x0, y0, x1, y1)
		r.dc.Stroke()
	}
}

func (r renderer) drawMushrooms(mushrooms []game.Mushroom) {
	radius := r.cell * 0.15
	for i := range mushrooms {
		m := &mushrooms[i]
		if m.IsFlying() {
			r.dc.SetColor(flyingColor)
		} else {
			r.dc.SetColor(mushroomColor)
		}
		x, y := r.center(m.Pos)
		r.dc.DrawCircle(x, y, radius)
		r.dc.Fill()
	}
}

func (r renderer) drawPlayers(players map[game.ClientID]*game.Player) {
	ids := make([]game.ClientID, 0, len(players))
	for id := range players {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	radius := r.cell * 0.35
	for _, id := range ids {
		p := players[id]
		x, y := r.center(p.Pos)

		r.dc.SetHexColor(playerColor(p))
		r.dc.DrawCircle(x, y, radius)
		r.dc.Fill()

		r.dc.SetColor(color.White)
		r.dc.SetLineWidth(2)
		r.dc.DrawCircle(x, y, radius)
		r.dc.Stroke()

		if p.IsStunned() {
			r.dc.SetColor(stunColor)
			r.dc.DrawCircle(x, y, radius*1.3)
			r.dc.Stroke()
		}
		// One pip per carried mushroom.
		for i := 0; i < p.Mushrooms; i++ {
			r.dc.SetColor(mushroomColor)
			r.dc.DrawCircle(x-radius+float64(i)*radius*0.5, y-radius, r.cell*0.06)
			r.dc.Fill()
		}
	}
}

func playerColor(p *game.Player) string {
	if p == nil {
		return "#6D767B"
	}
	if p.Customization.Color != "" {
		return p.Customization.Color
	}
	return p.Customization.Character.Color()
}
