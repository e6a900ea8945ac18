package layout

import (
	"math"

	"github.com/fogleman/gg"
)

// Size is a width/height pair in canvas pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect is an axis-aligned box in canvas pixels.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Right() float64  { return r.Left + r.Width }
func (r Rect) Bottom() float64 { return r.Top + r.Height }

// Center returns the midpoint of r.
func (r Rect) Center() (x, y float64) {
	return r.Left + r.Width/2, r.Top + r.Height/2
}

// Offset translates r by (dx, dy).
func (r Rect) Offset(dx, dy float64) Rect {
	r.Left += dx
	r.Top += dy
	return r
}

// Union returns the smallest rect covering r and o.
func (r Rect) Union(o Rect) Rect {
	left, top := math.Min(r.Left, o.Left), math.Min(r.Top, o.Top)
	right, bottom := math.Max(r.Right(), o.Right()), math.Max(r.Bottom(), o.Bottom())
	return Rect{left, top, right - left, bottom - top}
}

// Transform is a CSS-style `rotate() skewX() skewY()` chain in degrees,
// applied about the centre of the element it is attached to.
type Transform struct {
	Rotate float64 `json:"rotate,omitempty"`
	SkewX  float64 `json:"skewX,omitempty"`
	SkewY  float64 `json:"skewY,omitempty"`
}

func (t Transform) IsIdentity() bool {
	return t.Rotate == 0 && t.SkewX == 0 && t.SkewY == 0
}

// Matrix returns the affine matrix of t for an element occupying r.
func (t Transform) Matrix(r Rect) gg.Matrix {
	cx, cy := r.Center()
	return gg.Translate(-cx, -cy).
		Multiply(gg.Shear(0, math.Tan(gg.Radians(t.SkewY)))).
		Multiply(gg.Shear(math.Tan(gg.Radians(t.SkewX)), 0)).
		Multiply(gg.Rotate(gg.Radians(t.Rotate))).
		Multiply(gg.Translate(cx, cy))
}

// CSS renders t as a CSS/SVG transform list.
func (t Transform) CSS() string {
	if t.IsIdentity() {
		return ""
	}
	return "rotate(" + ftoa(t.Rotate) + "deg) skewX(" + ftoa(t.SkewX) + "deg) skewY(" + ftoa(t.SkewY) + "deg)"
}

// Bounds returns the axis-aligned bounding box of r after t.
func (t Transform) Bounds(r Rect) Rect {
	if t.IsIdentity() {
		return r
	}
	m := t.Matrix(r)
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range [][2]float64{
		{r.Left, r.Top}, {r.Right(), r.Top}, {r.Right(), r.Bottom()}, {r.Left, r.Bottom()},
	} {
		x, y := m.TransformPoint(p[0], p[1])
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	return Rect{minX, minY, maxX - minX, maxY - minY}
}
