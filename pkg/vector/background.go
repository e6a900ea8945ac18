package vector

import (
	"github.com/xob0t/ShotStencil/pkg/background"
	"github.com/xob0t/ShotStencil/pkg/layout"
	"github.com/xob0t/ShotStencil/pkg/template"
)

// Node ids of the background layers.
const (
	BackgroundID = "background"
	NoiseID      = "background-noise"
	GridID       = "background-grid"
)

// BackgroundNodes returns the fill, noise and grid overlay layers for a
// w×h canvas, bottom to top. Layers that cannot show are omitted.
func BackgroundNodes(spec template.Background, w, h float64) []Node {
	box := layout.Rect{Width: w, Height: h}
	nodes := []Node{&Rect{
		ID:   BackgroundID,
		Box:  box,
		Fill: background.ToFillDescriptor(spec, w, h),
	}}

	if spec.Noise > 0 {
		nodes = append(nodes, &Pattern{
			ID:       NoiseID,
			Box:      box,
			Tile:     background.NoiseTexture(),
			TileHref: background.NoiseDataURI(),
			TileSize: background.NoiseTileSize,
			Opacity:  min(spec.Noise, 1),
		})
	}

	if g := spec.GridOverlay; g != nil && g.Opacity > 0 {
		inner := background.MaskInnerStop(g.BlurRadius)
		nodes = append(nodes, &Pattern{
			ID:        GridID,
			Box:       box,
			Tile:      background.DrawPatternTile(g.Pattern, background.MustColor(g.Color), g.Opacity),
			TileHref:  background.PatternTile(g.Pattern, g.Color, g.Opacity),
			TileSize:  float64(background.TileSize(g.Pattern)),
			Masked:    inner < 100,
			MaskInner: inner,
		})
	}
	return nodes
}
