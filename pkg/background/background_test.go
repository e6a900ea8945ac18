package background

import (
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xob0t/ShotStencil/pkg/template"
)

func gradient(stops ...string) template.Background {
	return template.Background{
		Type:       template.BackgroundLinearGradient,
		ColorStops: stops,
		Direction:  template.ToRight,
	}
}

func TestFillDescriptorOffsetsSpanUnitInterval(t *testing.T) {
	for n := 2; n <= 7; n++ {
		stops := make([]string, n)
		for i := range stops {
			stops[i] = "#ffffff"
		}
		fd := ToFillDescriptor(gradient(stops...), 100, 200)
		require.Equal(t, FillLinear, fd.Kind)
		require.Len(t, fd.Stops, n)
		assert.Equal(t, 0.0, fd.Stops[0].Offset)
		assert.Equal(t, 1.0, fd.Stops[n-1].Offset)
		for i := 1; i < n; i++ {
			assert.Greater(t, fd.Stops[i].Offset, fd.Stops[i-1].Offset)
		}
	}
}

func TestFillDescriptorSingleStopDegenerates(t *testing.T) {
	fd := ToFillDescriptor(gradient("#abcdef"), 10, 10)
	assert.Equal(t, FillLinear, fd.Kind)
	assert.Equal(t, []Stop{{0, "#abcdef"}, {1, "#abcdef"}}, fd.Stops)
	assert.Equal(t, "linear-gradient(to right, #abcdef, #abcdef)", fd.CSS)
}

func TestFillDescriptorSolid(t *testing.T) {
	fd := ToFillDescriptor(template.Background{Type: template.BackgroundColor, Color: "#000"}, 10, 10)
	assert.Equal(t, FillSolid, fd.Kind)
	assert.Equal(t, "#000", fd.Color)
	assert.Equal(t, "#000", fd.CSS)
}

func TestDirectionRoundTrip(t *testing.T) {
	const w, h = 1320.0, 2868.0
	for _, d := range template.Directions {
		start, end := DirectionPoints(d, w, h)
		got, ok := InferDirection(start, end, w, h)
		require.True(t, ok, d)
		assert.Equal(t, d, got)

		// opposite edges or corners of the box
		assert.Contains(t, []float64{0, w}, start.X)
		assert.Contains(t, []float64{0, h}, start.Y)
		assert.Contains(t, []float64{0, w}, end.X)
		assert.Contains(t, []float64{0, h}, end.Y)
	}
}

func TestDirectionPoints(t *testing.T) {
	s, e := DirectionPoints(template.ToTop, 10, 20)
	assert.Equal(t, Point{0, 20}, s)
	assert.Equal(t, Point{0, 0}, e)

	s, e = DirectionPoints("sideways", 10, 20)
	assert.Equal(t, Point{0, 0}, s)
	assert.Equal(t, Point{10, 0}, e)
}

func TestInferDirectionRejectsPartialSpan(t *testing.T) {
	_, ok := InferDirection(Point{0, 0}, Point{5, 0}, 10, 10)
	assert.False(t, ok)
}

func TestShorthand(t *testing.T) {
	bg := gradient("#c7d2fe", "#fbcfe8")
	bg.Direction = template.ToBottomLeft
	assert.Equal(t, "linear-gradient(to bottom left, #c7d2fe, #fbcfe8)", Shorthand(bg))
	assert.Equal(t, "transparent", Shorthand(template.Background{Type: template.BackgroundColor}))
}

func TestParseColor(t *testing.T) {
	cases := map[string]color.NRGBA{
		"#fff":        {255, 255, 255, 255},
		"#000000":     {0, 0, 0, 255},
		"#ff000080":   {255, 0, 0, 128},
		"transparent": {},
		" White ":     {255, 255, 255, 255},
	}
	for in, want := range cases {
		got, err := ParseColor(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"fff", "#ggg", "#12345", "teal-ish"} {
		_, err := ParseColor(bad)
		assert.Error(t, err, bad)
	}
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, MustColor("nope"))
}

func TestPatternTiles(t *testing.T) {
	assert.Equal(t, 96, TileSize(template.PatternGrid))
	assert.Equal(t, 100, TileSize(template.PatternGraphPaper))
	assert.Equal(t, 20, TileSize(template.PatternDots))

	svg := TileSVG(template.PatternDots, "#123456", 0.3)
	assert.Contains(t, svg, `fill="#123456"`)
	assert.Contains(t, svg, `fill-opacity="0.3"`)
	assert.True(t, strings.HasPrefix(PatternTile(template.PatternGrid, "", 1), "data:image/svg+xml;base64,"))

	tile := DrawPatternTile(template.PatternDots, color.NRGBA{0, 0, 0, 255}, 1)
	assert.Equal(t, 20, tile.Bounds().Dx())
	_, _, _, a := tile.At(3, 3).RGBA()
	assert.NotZero(t, a)
	_, _, _, a = tile.At(8, 3).RGBA()
	assert.Zero(t, a)
}

func TestMask(t *testing.T) {
	assert.Equal(t, 70.0, MaskInnerStop(30))
	assert.Equal(t, 100.0, MaskInnerStop(-5))
	assert.Equal(t, 0.0, MaskInnerStop(100))

	m := RadialMask(100, 100, 50)
	assert.Equal(t, uint8(255), m.AlphaAt(50, 50).A)
	assert.Less(t, m.AlphaAt(0, 0).A, uint8(10))
	assert.Equal(t, uint8(255), m.AlphaAt(30, 50).A)
}

func TestNoiseIsDeterministic(t *testing.T) {
	a := NoiseTexture()
	assert.Equal(t, NoiseTileSize, a.Bounds().Dx())
	assert.True(t, strings.HasPrefix(NoiseDataURI(), "data:image/png;base64,"))
	assert.Same(t, a, NoiseTexture())
}

func TestFillStyleMapsToDevice(t *testing.T) {
	fd := ToFillDescriptor(gradient("#000000", "#ffffff"), 100, 10)
	double := func(x, y float64) (float64, float64) { return 2 * x, 2 * y }

	p := FillStyle(fd, 1, double)
	left, _, _, _ := p.ColorAt(0, 5).RGBA()
	mid, _, _, _ := p.ColorAt(100, 5).RGBA()
	right, _, _, _ := p.ColorAt(199, 5).RGBA()
	assert.Less(t, left, mid)
	assert.Less(t, mid, right)

	solid := FillStyle(FillDescriptor{Kind: FillSolid, Color: "#ff0000"}, 0.5, double)
	_, _, _, a := solid.ColorAt(3, 3).RGBA()
	assert.InDelta(t, 0x8080, a, 0x100)
}
