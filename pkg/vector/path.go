package vector

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"math"
	"strconv"
	"strings"

	"github.com/fogleman/gg"

	"github.com/xob0t/ShotStencil/pkg/layout"
)

// clampRadii keeps radii within half the shorter side.
func clampRadii(r layout.Rect, radii [4]float64) [4]float64 {
	lim := math.Min(r.Width, r.Height) / 2
	for i := range radii {
		radii[i] = min(max(radii[i], 0), lim)
	}
	return radii
}

// roundedRect adds a closed sub-path for r with per-corner radii
// (top-left, top-right, bottom-right, bottom-left).
func roundedRect(dc *gg.Context, r layout.Rect, radii [4]float64) {
	tl, tr, br, bl := unpack(clampRadii(r, radii))
	x, y, w, h := r.Left, r.Top, r.Width, r.Height

	dc.NewSubPath()
	dc.MoveTo(x+tl, y)
	dc.LineTo(x+w-tr, y)
	if tr > 0 {
		dc.DrawArc(x+w-tr, y+tr, tr, -math.Pi/2, 0)
	}
	dc.LineTo(x+w, y+h-br)
	if br > 0 {
		dc.DrawArc(x+w-br, y+h-br, br, 0, math.Pi/2)
	}
	dc.LineTo(x+bl, y+h)
	if bl > 0 {
		dc.DrawArc(x+bl, y+h-bl, bl, math.Pi/2, math.Pi)
	}
	dc.LineTo(x, y+tl)
	if tl > 0 {
		dc.DrawArc(x+tl, y+tl, tl, math.Pi, 3*math.Pi/2)
	}
	dc.ClosePath()
}

// roundedRectD is the SVG path data of roundedRect.
func roundedRectD(r layout.Rect, radii [4]float64) string {
	tl, tr, br, bl := unpack(clampRadii(r, radii))
	x, y, w, h := r.Left, r.Top, r.Width, r.Height

	var b strings.Builder
	fmt.Fprintf(&b, "M%s %sH%s", num(x+tl), num(y), num(x+w-tr))
	if tr > 0 {
		fmt.Fprintf(&b, "A%s %s 0 0 1 %s %s", num(tr), num(tr), num(x+w), num(y+tr))
	}
	fmt.Fprintf(&b, "V%s", num(y+h-br))
	if br > 0 {
		fmt.Fprintf(&b, "A%s %s 0 0 1 %s %s", num(br), num(br), num(x+w-br), num(y+h))
	}
	fmt.Fprintf(&b, "H%s", num(x+bl))
	if bl > 0 {
		fmt.Fprintf(&b, "A%s %s 0 0 1 %s %s", num(bl), num(bl), num(x), num(y+h-bl))
	}
	fmt.Fprintf(&b, "V%s", num(y+tl))
	if tl > 0 {
		fmt.Fprintf(&b, "A%s %s 0 0 1 %s %s", num(tl), num(tl), num(x+tl), num(y))
	}
	b.WriteString("Z")
	return b.String()
}

func unpack(r [4]float64) (tl, tr, br, bl float64) {
	return r[0], r[1], r[2], r[3]
}

// applyPlacement pushes p onto dc for a node occupying box.
func applyPlacement(dc *gg.Context, p Placement, box layout.Rect) {
	if p.Rotation != 0 {
		dc.RotateAbout(gg.Radians(p.Rotation), box.Left, box.Top)
	}
	if t := p.Transform; !t.IsIdentity() {
		cx, cy := box.Center()
		dc.Translate(cx, cy)
		dc.Rotate(gg.Radians(t.Rotate))
		dc.Shear(math.Tan(gg.Radians(t.SkewX)), 0)
		dc.Shear(0, math.Tan(gg.Radians(t.SkewY)))
		dc.Translate(-cx, -cy)
	}
}

// placementAttr is the SVG transform list of p.
func placementAttr(p Placement, box layout.Rect) string {
	var parts []string
	if p.Rotation != 0 {
		parts = append(parts, fmt.Sprintf("rotate(%s %s %s)", num(p.Rotation), num(box.Left), num(box.Top)))
	}
	if t := p.Transform; !t.IsIdentity() {
		cx, cy := box.Center()
		parts = append(parts,
			fmt.Sprintf("translate(%s %s)", num(cx), num(cy)),
			fmt.Sprintf("rotate(%s) skewX(%s) skewY(%s)", num(t.Rotate), num(t.SkewX), num(t.SkewY)),
			fmt.Sprintf("translate(%s %s)", num(-cx), num(-cy)),
		)
	}
	return strings.Join(parts, " ")
}

// num formats v with at most two decimals.
func num(v float64) string {
	v = math.Round(v*100) / 100
	if v == 0 {
		v = 0 // no "-0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// DataURI encodes img as a PNG data URI.
func DataURI(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode PNG: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
