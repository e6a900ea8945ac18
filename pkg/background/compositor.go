// Package background maps a template background description to fill
// descriptions: a CSS shorthand for the static SVG path and shape-fill
// parameters (points, stops) for raster drawing.
package background

import (
	"math"

	"github.com/xob0t/ShotStencil/pkg/template"
)

// Point is a position in canvas pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stop is one gradient colour stop; Offset is in [0,1].
type Stop struct {
	Offset float64 `json:"offset"`
	Color  string  `json:"color"`
}

// FillKind tags a FillDescriptor.
type FillKind int

const (
	FillSolid FillKind = iota
	FillLinear
)

// FillDescriptor describes how to paint the canvas rectangle.
type FillDescriptor struct {
	Kind  FillKind `json:"kind"`
	Color string   `json:"color,omitempty"` // FillSolid
	Start Point    `json:"start"`           // FillLinear
	End   Point    `json:"end"`             // FillLinear
	Stops []Stop   `json:"stops,omitempty"` // FillLinear
	CSS   string   `json:"css"`
}

// ToFillDescriptor computes the fill for a w×h box. Inputs are assumed to
// have passed template validation.
func ToFillDescriptor(spec template.Background, w, h float64) FillDescriptor {
	fd := FillDescriptor{CSS: Shorthand(spec)}

	if spec.Type != template.BackgroundLinearGradient {
		fd.Kind = FillSolid
		fd.Color = spec.Color
		return fd
	}

	fd.Kind = FillLinear
	fd.Start, fd.End = DirectionPoints(spec.Direction, w, h)

	stops := nonEmpty(spec.ColorStops)
	switch len(stops) {
	case 0:
		// Validation forbids this; fall back to a transparent solid.
		return FillDescriptor{Kind: FillSolid, Color: "transparent", CSS: "transparent"}
	case 1:
		fd.Stops = []Stop{{0, stops[0]}, {1, stops[0]}}
	default:
		for i, off := range Offsets(len(stops)) {
			fd.Stops = append(fd.Stops, Stop{Offset: off, Color: stops[i]})
		}
	}
	return fd
}

// Offsets returns n evenly spaced offsets i/(n-1). A single stop sits at 0.
func Offsets(n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{0}
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) / float64(n-1)
	}
	return out
}

// DirectionPoints maps a gradient direction to start/end points on the
// bounding box. Unknown directions behave like "to right".
func DirectionPoints(d template.Direction, w, h float64) (start, end Point) {
	switch d {
	case template.ToLeft:
		return Point{w, 0}, Point{0, 0}
	case template.ToBottom:
		return Point{0, 0}, Point{0, h}
	case template.ToTop:
		return Point{0, h}, Point{0, 0}
	case template.ToTopRight:
		return Point{0, h}, Point{w, 0}
	case template.ToBottomRight:
		return Point{0, 0}, Point{w, h}
	case template.ToBottomLeft:
		return Point{w, 0}, Point{0, h}
	case template.ToTopLeft:
		return Point{w, h}, Point{0, 0}
	default:
		return Point{0, 0}, Point{w, 0}
	}
}

// InferDirection recovers the compass direction of a start/end pair. It
// reports false for pairs that do not span the box along an axis or a
// diagonal.
func InferDirection(start, end Point, w, h float64) (template.Direction, bool) {
	dx, dy := end.X-start.X, end.Y-start.Y
	const eps = 1e-9
	horiz := math.Abs(math.Abs(dx)-w) < eps
	vert := math.Abs(math.Abs(dy)-h) < eps
	still := func(v float64) bool { return math.Abs(v) < eps }

	switch {
	case horiz && still(dy):
		if dx > 0 {
			return template.ToRight, true
		}
		return template.ToLeft, true
	case vert && still(dx):
		if dy > 0 {
			return template.ToBottom, true
		}
		return template.ToTop, true
	case horiz && vert:
		switch {
		case dx > 0 && dy < 0:
			return template.ToTopRight, true
		case dx > 0 && dy > 0:
			return template.ToBottomRight, true
		case dx < 0 && dy > 0:
			return template.ToBottomLeft, true
		default:
			return template.ToTopLeft, true
		}
	}
	return "", false
}

func nonEmpty(stops []string) []string {
	out := make([]string, 0, len(stops))
	for _, s := range stops {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
