package vector

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"

	"github.com/xob0t/ShotStencil/pkg/background"
	"github.com/xob0t/ShotStencil/pkg/fonts"
)

// Rasterize draws d at scale (device pixels per canvas pixel).
func Rasterize(d *Document, scale float64) (*image.RGBA, error) {
	if scale <= 0 {
		scale = 1
	}
	w := int(math.Round(float64(d.Width) * scale))
	h := int(math.Round(float64(d.Height) * scale))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("rasterize: empty canvas %dx%d", d.Width, d.Height)
	}

	dc := gg.NewContext(w, h)
	dc.Scale(scale, scale)
	Draw(dc, scale, d.Nodes...)
	return dc.Image().(*image.RGBA), nil
}

// Draw renders nodes through dc's current transform. scale is the number
// of device pixels per node unit under that transform; it sets the
// resolution of resampled images, pattern tiles and glyphs.
func Draw(dc *gg.Context, scale float64, nodes ...Node) {
	if scale <= 0 {
		scale = 1
	}
	r := rasterizer{dc: dc, scale: scale}
	for _, n := range nodes {
		r.draw(n)
	}
}

type rasterizer struct {
	dc    *gg.Context
	scale float64
}

func (r rasterizer) draw(n Node) {
	if !n.Visible() {
		return
	}
	switch n := n.(type) {
	case *Rect:
		r.rect(n)
	case *Image:
		r.image(n)
	case *Pattern:
		r.pattern(n)
	case *Text:
		r.text(n)
	case *Group:
		r.dc.Push()
		applyPlacement(r.dc, n.Placement, n.Box)
		for _, c := range n.Children {
			r.draw(c)
		}
		r.dc.Pop()
	}
}

func (r rasterizer) rect(n *Rect) {
	dc := r.dc
	dc.Push()
	defer dc.Pop()

	applyPlacement(dc, n.Placement, n.Box)
	roundedRect(dc, n.Box, n.Radii)
	if n.Hole != nil {
		roundedRect(dc, n.Hole.Box, n.Hole.Radii)
		dc.SetFillRuleEvenOdd()
	}
	// fill coordinates are relative to the box
	toDevice := func(x, y float64) (float64, float64) {
		return dc.TransformPoint(x+n.Box.Left, y+n.Box.Top)
	}
	dc.SetFillStyle(background.FillStyle(n.Fill, alpha(n.Opacity), toDevice))
	dc.Fill()
}

func (r rasterizer) image(n *Image) {
	if n.Src == nil {
		return
	}
	dc := r.dc
	dc.Push()
	defer dc.Pop()

	applyPlacement(dc, n.Placement, n.Box)
	roundedRect(dc, n.Box, n.Radii)
	dc.Clip()
	defer dc.ResetClip()

	pw := max(int(math.Ceil(n.Box.Width*r.scale)), 1)
	ph := max(int(math.Ceil(n.Box.Height*r.scale)), 1)
	fitted := imaging.Fill(n.Src, pw, ph, imaging.Center, imaging.Lanczos)
	if a := alpha(n.Opacity); a < 1 {
		fitted = imaging.AdjustFunc(fitted, func(c color.NRGBA) color.NRGBA {
			c.A = uint8(float64(c.A) * a)
			return c
		})
	}

	dc.Translate(n.Box.Left, n.Box.Top)
	dc.Scale(n.Box.Width/float64(pw), n.Box.Height/float64(ph))
	dc.DrawImage(fitted, 0, 0)
}

// pattern tiles are drawn on a device-resolution layer so the tile keeps
// its canvas size at any scale.
func (r rasterizer) pattern(n *Pattern) {
	if n.Tile == nil || n.TileSize <= 0 {
		return
	}
	s := r.scale
	w := int(math.Round(n.Box.Width * s))
	h := int(math.Round(n.Box.Height * s))
	if w <= 0 || h <= 0 {
		return
	}

	tile := n.Tile
	if ts := int(math.Round(n.TileSize * s)); ts != tile.Bounds().Dx() && ts > 0 {
		tile = imaging.Resize(tile, ts, ts, imaging.Linear)
	}

	layer := gg.NewContext(w, h)
	if mask := patternMask(n, w, h); mask != nil {
		_ = layer.SetMask(mask)
	}
	layer.SetFillStyle(gg.NewSurfacePattern(tile, gg.RepeatBoth))
	layer.DrawRectangle(0, 0, float64(w), float64(h))
	layer.Fill()

	dc := r.dc
	dc.Push()
	dc.Translate(n.Box.Left, n.Box.Top)
	dc.Scale(1/s, 1/s)
	dc.DrawImage(layer.Image(), 0, 0)
	dc.Pop()
}

func patternMask(n *Pattern, w, h int) *image.Alpha {
	a := alpha(n.Opacity)
	if !n.Masked && a == 1 {
		return nil
	}
	var mask *image.Alpha
	if n.Masked {
		mask = background.RadialMask(w, h, n.MaskInner)
	} else {
		mask = image.NewAlpha(image.Rect(0, 0, w, h))
		for i := range mask.Pix {
			mask.Pix[i] = 255
		}
	}
	if a < 1 {
		for i, v := range mask.Pix {
			mask.Pix[i] = uint8(float64(v) * a)
		}
	}
	return mask
}

func (r rasterizer) text(n *Text) {
	f := n.Font
	if f == nil {
		f = fonts.Fallback(n.Weight)
	}
	s := r.scale
	face, err := f.Face(n.Size * s)
	if err != nil {
		return
	}
	defer face.Close()

	dc := r.dc
	dc.Push()
	defer dc.Pop()

	dc.Translate(n.X, n.Y)
	if n.Rotation != 0 {
		dc.Rotate(gg.Radians(n.Rotation))
	}
	// Glyphs are laid out in device pixels with a face sized to match.
	dc.Scale(1/s, 1/s)
	dc.SetFontFace(face)
	dc.SetColor(background.MustColor(n.Color))

	for i, line := range n.Lines {
		x := (n.Width - line.Width) / 2
		top := float64(i) * n.Size * n.LineHeight
		baseline := top + n.baselineOffset(face, s)
		for _, sp := range line.Spans {
			if sp.Glyph != nil && sp.Glyph.Raster != nil {
				gy := top + (n.Size*n.LineHeight-n.Size)/2
				px := max(int(math.Round(n.Size*s)), 1)
				dc.DrawImage(imaging.Resize(sp.Glyph.Raster, px, px, imaging.Lanczos),
					int(math.Round(x*s)), int(math.Round(gy*s)))
			} else {
				dc.DrawString(sp.Text, x*s, baseline*s)
			}
			x += sp.Width
		}
	}
}

// baselineOffset is the distance from a line box's top to its baseline in
// canvas units, with the glyph box centred in the line box. face is sized
// at scale s.
func (n *Text) baselineOffset(face font.Face, s float64) float64 {
	m := face.Metrics()
	ascent := float64(m.Ascent) / 64 / s
	descent := float64(m.Descent) / 64 / s
	return (n.Size*n.LineHeight-(ascent+descent))/2 + ascent
}
