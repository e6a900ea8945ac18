// Package layout holds the per-variant geometry rules: where the device
// frame sits on the canvas, where the screenshot is clipped inside it, and
// where the title and logo start. Both the static renderer and the
// interactive surface read their geometry from here.
package layout

import (
	"fmt"
	"strconv"

	"github.com/xob0t/ShotStencil/pkg/template"
)

// Frame art identifiers.
const (
	FrameIPhone            = "frame:iphone"
	FrameIPhoneTiltedLeft  = "frame:iphone-tilted-left"
	FrameIPhoneTiltedRight = "frame:iphone-tilted-right"
	FrameIPhoneUp          = "frame:iphone-up"
	FrameIPhoneSide        = "frame:iphone-right-left"
	FrameAndroid           = "frame:android"
)

const (
	// LineHeight is the title line-height multiplier.
	LineHeight = 1.2
	// TitleLines is the number of title lines reserved when placing the
	// title block relative to the frame.
	TitleLines = 2
)

// Corners selects which corners of the screenshot are rounded.
type Corners int

const (
	CornersAll Corners = iota
	CornersTop
	CornersBottom
)

// Radii expands r into top-left, top-right, bottom-right, bottom-left.
func (c Corners) Radii(r float64) [4]float64 {
	switch c {
	case CornersTop:
		return [4]float64{r, r, 0, 0}
	case CornersBottom:
		return [4]float64{0, 0, r, r}
	default:
		return [4]float64{r, r, r, r}
	}
}

// Screenshot is the clipped screenshot placement in canvas coordinates.
type Screenshot struct {
	Rect
	BorderRadius float64   `json:"borderRadius"`
	Corners      Corners   `json:"corners"`
	Transform    Transform `json:"transform"`
}

// Decoration is an extra piece of frame art drawn above the screenshot.
type Decoration struct {
	Src       string    `json:"src"`
	Rect      Rect      `json:"rect"`
	Transform Transform `json:"transform"`
}

// TextAnchor is the top-left of the title block and its wrap width.
type TextAnchor struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Width float64 `json:"width"`
}

// FrameLayout is the derived geometry of one template.
type FrameLayout struct {
	Variant     template.Variant `json:"variant"`
	Canvas      Size             `json:"canvas"`
	FrameSrc    string           `json:"frameSrc"`
	Frame       Rect             `json:"frame"`
	FlipFrame   bool             `json:"flipFrame,omitempty"`
	Scale       float64          `json:"scale"`
	Screenshot  Screenshot       `json:"screenshot"`
	Decorations []Decoration     `json:"decorations,omitempty"`
	Text        TextAnchor       `json:"text"`
	Logo        *Rect            `json:"logo,omitempty"`
	// TitleBelow is set when the title block follows the device.
	TitleBelow bool `json:"titleBelow,omitempty"`
}

// FrameSize returns the device frame's size.
func (l FrameLayout) FrameSize() Size {
	return Size{l.Frame.Width, l.Frame.Height}
}

// ScreenshotInFrame returns the screenshot rect relative to the frame.
func (l FrameLayout) ScreenshotInFrame() Rect {
	return l.Screenshot.Rect.Offset(-l.Frame.Left, -l.Frame.Top)
}

// BezelRatio is the device body border as a fraction of the screenshot
// width.
const BezelRatio = 0.03

// Body returns the device body around the screenshot, before the
// screenshot transform, and its corner radii.
func (l FrameLayout) Body() (Rect, [4]float64) {
	b := max(l.Screenshot.Width*BezelRatio, 4)
	r := Rect{
		Left:   l.Screenshot.Left - b,
		Top:    l.Screenshot.Top - b,
		Width:  l.Screenshot.Width + 2*b,
		Height: l.Screenshot.Height + 2*b,
	}
	radii := l.Screenshot.Corners.Radii(l.Screenshot.BorderRadius)
	for i := range radii {
		radii[i] += b
	}
	return r, radii
}

// DeviceBounds covers the frame, the transformed device body and the
// decorations.
func (l FrameLayout) DeviceBounds() Rect {
	body, _ := l.Body()
	b := l.Frame.Union(l.Screenshot.Transform.Bounds(body))
	for _, d := range l.Decorations {
		b = b.Union(d.Transform.Bounds(d.Rect))
	}
	return b
}

// Compute derives the layout of t from its variant rules, canvas, bottom
// padding, title size and logo size.
func Compute(t template.Template) (FrameLayout, error) {
	r, ok := rules[t.Name]
	if !ok {
		return FrameLayout{}, fmt.Errorf("%w: %q", template.ErrUnknownVariant, t.Name)
	}
	if t.Canvas.Width <= 0 || t.Canvas.Height <= 0 {
		return FrameLayout{}, fmt.Errorf("layout %s: canvas %dx%d must be positive", t.Name, t.Canvas.Width, t.Canvas.Height)
	}
	return r.apply(t), nil
}

// ComputeFrameLayout derives the layout of a variant on a w×h canvas using
// the variant's default parameters.
func ComputeFrameLayout(v template.Variant, w, h int) (FrameLayout, error) {
	t, err := template.Defaults(v)
	if err != nil {
		return FrameLayout{}, err
	}
	t.Canvas = template.Canvas{Width: w, Height: h}
	return Compute(t)
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
