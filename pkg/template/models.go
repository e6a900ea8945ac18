// Package template describes one marketing graphic: canvas, background and
// the per-variant parameters (title, screenshot, logo, paddings).
package template

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ── Template ──

// Template is the declarative description of one graphic. Name selects the
// variant and with it the frame art and layout rules.
type Template struct {
	Name       Variant    `json:"name"`
	Canvas     Canvas     `json:"canvas"`
	Background Background `json:"background"`
	Params     Params     `json:"params"`
}

// Canvas defines output dimensions in pixels.
type Canvas struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// AspectRatio returns width/height, or 0 for a degenerate canvas.
func (c Canvas) AspectRatio() float64 {
	if c.Height == 0 {
		return 0
	}
	return float64(c.Width) / float64(c.Height)
}

// ── Background ──

// BackgroundType tags the Background union.
type BackgroundType string

const (
	BackgroundColor          BackgroundType = "color"
	BackgroundLinearGradient BackgroundType = "linear-gradient"
)

// Direction is one of the 8 compass directions of a CSS linear gradient.
type Direction string

const (
	ToRight       Direction = "to right"
	ToLeft        Direction = "to left"
	ToBottom      Direction = "to bottom"
	ToTop         Direction = "to top"
	ToTopRight    Direction = "to top right"
	ToBottomRight Direction = "to bottom right"
	ToBottomLeft  Direction = "to bottom left"
	ToTopLeft     Direction = "to top left"
)

// Directions lists the gradient directions in a stable order.
var Directions = []Direction{
	ToRight, ToLeft, ToBottom, ToTop,
	ToTopRight, ToBottomRight, ToBottomLeft, ToTopLeft,
}

// Pattern names a tileable grid overlay.
type Pattern string

const (
	PatternGrid       Pattern = "grid"
	PatternGraphPaper Pattern = "graph-paper"
	PatternDots       Pattern = "dots"
)

// Background is the canvas fill: a solid colour or a multi-stop linear
// gradient, with an optional noise texture and grid overlay.
type Background struct {
	Type        BackgroundType `json:"type"`
	Color       string         `json:"color,omitempty"`      // "color" only
	ColorStops  []string       `json:"colorStops,omitempty"` // "linear-gradient" only
	Direction   Direction      `json:"direction,omitempty"`  // "linear-gradient" only
	Noise       float64        `json:"noise"`                // 0.0–1.0
	GridOverlay *GridOverlay   `json:"gridOverlay,omitempty"`
}

// GridOverlay is a tiled pattern drawn above the fill, optionally faded out
// radially from the centre.
type GridOverlay struct {
	Pattern    Pattern `json:"pattern"`
	Color      string  `json:"color"`
	Opacity    float64 `json:"opacity"`    // 0.0–1.0
	BlurRadius float64 `json:"blurRadius"` // 0–100
}

// Clone returns a deep copy.
func (b Background) Clone() Background {
	out := b
	if b.ColorStops != nil {
		out.ColorStops = append([]string(nil), b.ColorStops...)
	}
	if b.GridOverlay != nil {
		g := *b.GridOverlay
		out.GridOverlay = &g
	}
	return out
}

// Transparent is the background used for placeholder renders.
func Transparent() Background {
	return Background{Type: BackgroundColor, Color: "transparent"}
}

// ── Params ──

// Role marks the purpose of a text field. Exactly one field per template
// carries RoleTitle.
type Role string

const RoleTitle Role = "title"

// TextField is a styled block of text.
type TextField struct {
	Role       Role    `json:"role,omitempty"`
	Text       string  `json:"text"`
	FontFamily string  `json:"fontFamily"`
	FontWeight int     `json:"fontWeight"`
	FontSize   float64 `json:"fontSize"`
	Color      string  `json:"color"`
}

// ImageRef points at an image resource. Width/Height are optional display
// sizes; zero means "derive from layout".
type ImageRef struct {
	URL    string  `json:"url"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// Params holds the variant-specific parameters. Logo and BottomPadding are
// only present for variants that declare them.
type Params struct {
	Title         TextField `json:"title"`
	Screenshot    ImageRef  `json:"screenshot"`
	Logo          *ImageRef `json:"logo,omitempty"`
	BottomPadding *Length   `json:"bottomPadding,omitempty"`
}

// MainText returns the field carrying RoleTitle, or nil.
func (p *Params) MainText() *TextField {
	for _, f := range p.TextFields() {
		if f.Role == RoleTitle {
			return f
		}
	}
	return nil
}

// TextFields returns every text-like field of the params.
func (p *Params) TextFields() []*TextField {
	return []*TextField{&p.Title}
}

// Padding returns the bottom padding or 0 when the variant has none.
func (p Params) Padding() float64 {
	if p.BottomPadding == nil {
		return 0
	}
	return float64(*p.BottomPadding)
}

// Clone returns a deep copy.
func (p Params) Clone() Params {
	out := p
	if p.Logo != nil {
		l := *p.Logo
		out.Logo = &l
	}
	if p.BottomPadding != nil {
		b := *p.BottomPadding
		out.BottomPadding = &b
	}
	return out
}

// Clone returns a deep copy of the template.
func (t Template) Clone() Template {
	out := t
	out.Background = t.Background.Clone()
	out.Params = t.Params.Clone()
	return out
}

// Length is a pixel quantity that also accepts numeric strings ("-150").
type Length float64

// Len is a helper for building *Length literals.
func Len(v float64) *Length {
	l := Length(v)
	return &l
}

// UnmarshalJSON accepts both JSON numbers and numeric strings.
func (l *Length) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		s = strings.TrimSpace(str)
		if s == "" {
			*l = 0
			return nil
		}
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "px"), 64)
	if err != nil {
		return fmt.Errorf("invalid length %s", string(data))
	}
	*l = Length(v)
	return nil
}
