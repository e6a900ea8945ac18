package render

import (
	"image"

	"github.com/xob0t/ShotStencil/pkg/background"
	"github.com/xob0t/ShotStencil/pkg/layout"
	"github.com/xob0t/ShotStencil/pkg/vector"
)

// Node ids of a rendered document.
const (
	IDDevice     = "device"
	IDScreenshot = "screenshot"
	IDBezel      = "bezel"
	IDCamera     = "camera"
	IDTitle      = "title"
	IDLogo       = "logo"
)

const (
	bodyColor   = "#1c1c1e"
	buttonColor = "#2c2c2e"
	cameraColor = "#000000"
)

// deviceNodes builds the phone: side buttons, the screenshot, the bezel
// ring and the camera cut-out, all sharing the screenshot transform. The
// frame art is drawn procedurally from l.FrameSrc.
func deviceNodes(l layout.FrameLayout, shot image.Image, href string) []vector.Node {
	sr := l.Screenshot.Rect
	body, bodyRadii := l.Body()
	bezel := body.Width - sr.Width

	var children []vector.Node
	for _, b := range buttons(l, body, bezel) {
		children = append(children, &vector.Rect{Box: b, Radii: pill(b), Fill: fill(buttonColor)})
	}
	children = append(children,
		&vector.Image{
			ID:    IDScreenshot,
			Src:   shot,
			Href:  href,
			Box:   sr,
			Radii: l.Screenshot.Corners.Radii(l.Screenshot.BorderRadius),
		},
		&vector.Rect{
			ID:    IDBezel,
			Box:   body,
			Radii: bodyRadii,
			Fill:  fill(bodyColor),
			Hole: &vector.Hole{
				Box:   sr,
				Radii: l.Screenshot.Corners.Radii(l.Screenshot.BorderRadius),
			},
		},
	)
	// frames with explicit decorations carry their own camera art
	if len(l.Decorations) == 0 {
		cam := camera(l)
		children = append(children, &vector.Rect{ID: IDCamera, Box: cam, Radii: pill(cam), Fill: fill(cameraColor)})
	}

	nodes := []vector.Node{&vector.Group{
		ID:        IDDevice,
		Box:       sr,
		Placement: vector.Placement{Transform: l.Screenshot.Transform},
		Children:  children,
	}}
	for _, d := range l.Decorations {
		nodes = append(nodes, &vector.Rect{
			ID:        d.Src,
			Box:       d.Rect,
			Radii:     pill(d.Rect),
			Fill:      fill(cameraColor),
			Placement: vector.Placement{Transform: d.Transform},
		})
	}
	return nodes
}

// camera is the dynamic island of iPhone frames or the punch-hole camera
// of Android frames, at the top of the screen or at the bottom when the
// frame hangs upside down.
func camera(l layout.FrameLayout) layout.Rect {
	sr := l.Screenshot.Rect
	var r layout.Rect
	if l.FrameSrc == layout.FrameAndroid {
		d := sr.Width * 0.06
		r = layout.Rect{Left: sr.Left + (sr.Width-d)/2, Top: sr.Top + sr.Width*0.03, Width: d, Height: d}
	} else {
		w, h := sr.Width*0.32, sr.Width*0.094
		r = layout.Rect{Left: sr.Left + (sr.Width-w)/2, Top: sr.Top + sr.Width*0.028, Width: w, Height: h}
	}
	if l.FlipFrame {
		r = flipY(r, sr)
	}
	return r
}

// buttons returns the side keys: power on the right, volume on the left.
func buttons(l layout.FrameLayout, body layout.Rect, bezel float64) []layout.Rect {
	w := bezel / 4
	if w <= 0 {
		return nil
	}
	h := body.Height
	keys := []layout.Rect{
		{Left: body.Right() - w/2, Top: body.Top + h*0.22, Width: w, Height: h * 0.1},
		{Left: body.Left - w/2, Top: body.Top + h*0.2, Width: w, Height: h * 0.06},
		{Left: body.Left - w/2, Top: body.Top + h*0.28, Width: w, Height: h * 0.06},
	}
	if l.FrameSrc == layout.FrameAndroid {
		// volume rocker and power both sit on the right
		keys = []layout.Rect{
			{Left: body.Right() - w/2, Top: body.Top + h*0.18, Width: w, Height: h * 0.1},
			{Left: body.Right() - w/2, Top: body.Top + h*0.32, Width: w, Height: h * 0.05},
		}
	}
	if l.FlipFrame {
		for i, k := range keys {
			keys[i] = flipY(k, body)
		}
	}
	return keys
}

// flipY mirrors r vertically inside outer.
func flipY(r, outer layout.Rect) layout.Rect {
	r.Top = outer.Top + outer.Bottom() - r.Bottom()
	return r
}

func pill(r layout.Rect) [4]float64 {
	v := min(r.Width, r.Height) / 2
	return [4]float64{v, v, v, v}
}

func fill(c string) background.FillDescriptor {
	return background.FillDescriptor{Kind: background.FillSolid, Color: c, CSS: c}
}
