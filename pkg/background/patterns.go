package background

import (
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/fogleman/gg"

	"github.com/xob0t/ShotStencil/pkg/template"
)

// TileSize returns the edge length in pixels of a pattern's square tile.
func TileSize(p template.Pattern) int {
	switch p {
	case template.PatternGraphPaper:
		return 100
	case template.PatternDots:
		return 20
	default:
		return 96
	}
}

// TileSVG returns the standalone SVG markup of one pattern tile.
func TileSVG(p template.Pattern, color string, opacity float64) string {
	if color == "" {
		color = "black"
	}
	switch p {
	case template.PatternGraphPaper:
		return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="100" height="100" viewBox="0 0 100 100">`+
			`<g fill="%s" fill-opacity="%g">`+
			`<path opacity=".5" d="%s"/>`+
			`<path d="M6 5V0H5v5H0v1h5v94h1V6h94V5H6z"/>`+
			`</g></svg>`, color, opacity, graphPaperMinorPath())
	case template.PatternDots:
		return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="20" height="20" viewBox="0 0 20 20">`+
			`<g fill="%s" fill-opacity="%g">`+
			`<circle cx="3" cy="3" r="3"/><circle cx="13" cy="13" r="3"/>`+
			`</g></svg>`, color, opacity)
	default:
		return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="96" height="96" viewBox="0 0 96 96">`+
			`<g fill="none" opacity="%g">`+
			`<path d="M96 95.5L0 95.5" stroke="%s"/>`+
			`<path d="M95.5 0V96" stroke="%s"/>`+
			`</g></svg>`, opacity, color, color)
	}
}

// PatternTile returns the tile as a base64 SVG data URI.
func PatternTile(p template.Pattern, color string, opacity float64) string {
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(TileSVG(p, color, opacity)))
}

// graphPaperMinorPath draws the 1px minor rules every 10px, offset by 5
// so the major cross in the corner stays on its own.
func graphPaperMinorPath() string {
	var b strings.Builder
	for i := 15; i < 100; i += 10 {
		fmt.Fprintf(&b, "M%d 0h1v100h-1z", i)
		fmt.Fprintf(&b, "M0 %dh100v1h-100z", i)
	}
	return b.String()
}

// DrawPatternTile rasterises one tile at scale 1.
func DrawPatternTile(p template.Pattern, c color.NRGBA, opacity float64) *image.RGBA {
	size := TileSize(p)
	dc := gg.NewContext(size, size)
	c = WithOpacity(c, opacity)

	switch p {
	case template.PatternGraphPaper:
		dc.SetColor(WithOpacity(c, 0.5))
		for i := 15.0; i < 100; i += 10 {
			dc.DrawRectangle(i, 0, 1, 100)
			dc.DrawRectangle(0, i, 100, 1)
		}
		dc.Fill()
		dc.SetColor(c)
		dc.DrawRectangle(5, 0, 1, 100)
		dc.DrawRectangle(0, 5, 100, 1)
		dc.Fill()
	case template.PatternDots:
		dc.SetColor(c)
		dc.DrawCircle(3, 3, 3)
		dc.DrawCircle(13, 13, 3)
		dc.Fill()
	default:
		dc.SetColor(c)
		dc.SetLineWidth(1)
		dc.DrawLine(0, 95.5, 96, 95.5)
		dc.DrawLine(95.5, 0, 95.5, 96)
		dc.Stroke()
	}
	return dc.Image().(*image.RGBA)
}

// MaskInnerStop returns the percentage at which the radial fade of a grid
// overlay starts. A blurRadius of 0 disables the mask.
func MaskInnerStop(blurRadius float64) float64 {
	return 100 - min(max(blurRadius, 0), 100)
}

// RadialMask builds a w×h alpha mask: opaque up to innerStop percent of the
// farthest-corner ellipse, fading linearly to transparent at its edge.
func RadialMask(w, h int, innerStop float64) *image.Alpha {
	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	cx, cy := float64(w)/2, float64(h)/2
	inner := innerStop / 100

	for y := 0; y < h; y++ {
		dy := (float64(y) + 0.5 - cy) / cy
		for x := 0; x < w; x++ {
			dx := (float64(x) + 0.5 - cx) / cx
			// farthest-corner ellipse has radii (cx·√2, cy·√2)
			r := math.Sqrt(dx*dx+dy*dy) / math.Sqrt2
			var a float64
			switch {
			case r <= inner:
				a = 1
			case r >= 1 || inner >= 1:
				a = 0
			default:
				a = 1 - (r-inner)/(1-inner)
			}
			mask.Pix[y*mask.Stride+x] = uint8(a*255 + 0.5)
		}
	}
	return mask
}
