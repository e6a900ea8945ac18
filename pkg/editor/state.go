// Package editor holds the transient per-layer geometry of the interactive
// editing surface: the reducer that owns it and the headless surface that
// turns pointer gestures into reducer actions.
package editor

import (
	"github.com/xob0t/ShotStencil/pkg/layout"
)

// MinLayerSize is the smallest committed width or height of a layer.
const MinLayerSize = 5

// Layer names one manipulable element of the surface.
type Layer string

const (
	LayerNone  Layer = ""
	LayerImage Layer = "image"
	LayerText  Layer = "text"
	LayerLogo  Layer = "logo"
)

// Layers lists the layers bottom to top.
var Layers = []Layer{LayerImage, LayerText, LayerLogo}

// Valid reports whether l names a layer.
func (l Layer) Valid() bool {
	return l == LayerImage || l == LayerText || l == LayerLogo
}

// LayerState is the position, size and rotation of one layer. A zero
// Height means the layer sizes itself (text).
type LayerState = layout.Box

// State is the edit state of one screenshot.
type State struct {
	Selected Layer      `json:"selected"`
	Image    LayerState `json:"image"`
	Text     LayerState `json:"text"`
	Logo     LayerState `json:"logo"`
}

// Layer returns the state of l.
func (s State) Layer(l Layer) (LayerState, bool) {
	switch l {
	case LayerImage:
		return s.Image, true
	case LayerText:
		return s.Text, true
	case LayerLogo:
		return s.Logo, true
	}
	return LayerState{}, false
}

func (s *State) set(l Layer, ls LayerState) {
	switch l {
	case LayerImage:
		s.Image = ls
	case LayerText:
		s.Text = ls
	case LayerLogo:
		s.Logo = ls
	}
}

// Action is a state transition. The set is closed: Select, Update, Reset.
type Action interface {
	action()
}

// Select changes the selection; LayerNone clears it.
type Select struct {
	Layer Layer `json:"layer"`
}

// Update merges Patch into the state of Layer.
type Update struct {
	Layer Layer      `json:"layer"`
	Patch LayerPatch `json:"patch"`
}

// Reset replaces all layer states and clears the selection.
type Reset struct {
	Image LayerState `json:"image"`
	Text  LayerState `json:"text"`
	Logo  LayerState `json:"logo"`
}

func (Select) action() {}
func (Update) action() {}
func (Reset) action()  {}

// LayerPatch is a partial LayerState; nil fields are left alone.
type LayerPatch struct {
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	Width    *float64 `json:"width,omitempty"`
	Height   *float64 `json:"height,omitempty"`
	Rotation *float64 `json:"rotation,omitempty"`
}

// ResetTo derives the Reset action for l from the layout rules, the same
// geometry the static renderer uses.
func ResetTo(l layout.FrameLayout) Reset {
	ls := layout.InitialLayers(l)
	return Reset{Image: ls.Image, Text: ls.Text, Logo: ls.Logo}
}

// Initial returns the state after ResetTo(l).
func Initial(l layout.FrameLayout) State {
	return Reduce(State{}, ResetTo(l))
}

// Reduce applies a to s. Actions naming an unknown layer leave s
// unchanged.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case Select:
		if a.Layer != LayerNone && !a.Layer.Valid() {
			return s
		}
		s.Selected = a.Layer
	case Update:
		ls, ok := s.Layer(a.Layer)
		if !ok {
			return s
		}
		s.set(a.Layer, a.Patch.apply(ls))
	case Reset:
		return State{Image: a.Image, Text: a.Text, Logo: a.Logo}
	}
	return s
}

func (p LayerPatch) apply(ls LayerState) LayerState {
	if p.X != nil {
		ls.X = *p.X
	}
	if p.Y != nil {
		ls.Y = *p.Y
	}
	if p.Width != nil {
		ls.Width = max(*p.Width, MinLayerSize)
	}
	if p.Height != nil {
		ls.Height = max(*p.Height, MinLayerSize)
	}
	if p.Rotation != nil {
		ls.Rotation = *p.Rotation
	}
	return ls
}

// Float returns a pointer to v, for building patches.
func Float(v float64) *float64 { return &v }
