package layout

// Box is the initial placement of one manipulable layer.
type Box struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height,omitempty"`
	Rotation float64 `json:"rotation,omitempty"`
}

// Layers is the initial placement of the image, text and logo layers of
// the interactive surface.
type Layers struct {
	Image Box `json:"image"`
	Text  Box `json:"text"`
	Logo  Box `json:"logo"`
}

// InitialLayers derives the starting layer geometry from l. The image
// layer covers the device bounds, which is also the region cropped out of
// the placeholder render, so an untouched surface matches the static
// render pixel for pixel.
func InitialLayers(l FrameLayout) Layers {
	dev := l.DeviceBounds()
	out := Layers{
		Image: Box{X: dev.Left, Y: dev.Top, Width: dev.Width, Height: dev.Height},
		Text:  Box{X: l.Text.X, Y: l.Text.Y, Width: l.Text.Width},
	}
	if l.Logo != nil {
		out.Logo = Box{X: l.Logo.Left, Y: l.Logo.Top, Width: l.Logo.Width, Height: l.Logo.Height}
	}
	return out
}
