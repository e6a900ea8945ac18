package layout

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xob0t/ShotStencil/pkg/template"
)

const w, h = template.DefaultCanvasWidth, template.DefaultCanvasHeight

func TestEveryVariantHasRules(t *testing.T) {
	for _, v := range template.Variants() {
		l, err := ComputeFrameLayout(v, w, h)
		require.NoError(t, err, v)
		assert.NotEmpty(t, l.FrameSrc, v)
		assert.LessOrEqual(t, l.Frame.Width, float64(w)+1e-9, v)
		assert.Positive(t, l.Screenshot.Width, v)
		assert.Positive(t, l.Text.Width, v)
		assert.Equal(t, v.HasLogo(), l.Logo != nil, v)
	}
}

func TestAppleAppScreenshot(t *testing.T) {
	l, err := ComputeFrameLayout(template.AppleAppScreenshot, w, h)
	require.NoError(t, err)

	sw := 0.8 * w
	assert.InDelta(t, sw, l.Screenshot.Width, 1e-9)
	assert.InDelta(t, sw*2.1, l.Screenshot.Height, 1e-9)
	assert.InDelta(t, sw+40, l.Frame.Width, 1e-9)
	assert.InDelta(t, sw*2.1+120, l.Frame.Height, 1e-9)
	assert.Equal(t, 140.0, l.Screenshot.BorderRadius)
	assert.Equal(t, CornersAll, l.Screenshot.Corners)
	assert.True(t, l.Screenshot.Transform.IsIdentity())

	in := l.ScreenshotInFrame()
	assert.InDelta(t, 20, in.Left, 1e-9)
	assert.InDelta(t, 80, in.Top, 1e-9)

	// bottomPadding -400 pushes the frame below the canvas edge
	assert.InDelta(t, float64(h)+400, l.Frame.Bottom(), 1e-9)
	assert.InDelta(t, 100, l.Text.X, 1e-9)
	assert.InDelta(t, w-200, l.Text.Width, 1e-9)
	assert.Less(t, l.Text.Y, l.Frame.Top)
	require.NotNil(t, l.Logo)
	assert.Less(t, l.Logo.Top, l.Text.Y)
}

func TestBottomPaddingShiftsFrame(t *testing.T) {
	tmpl, _ := template.Defaults(template.AndroidAppScreenshot)
	a, err := Compute(tmpl)
	require.NoError(t, err)

	tmpl.Params.BottomPadding = template.Len(0)
	b, err := Compute(tmpl)
	require.NoError(t, err)

	assert.InDelta(t, 150, a.Frame.Top-b.Frame.Top, 1e-9)
	assert.InDelta(t, 150, a.Text.Y-b.Text.Y, 1e-9)
}

func TestHangedUpFlipsCorners(t *testing.T) {
	for _, v := range []template.Variant{template.AppleHangedUp, template.AndroidHangedUp} {
		l, err := ComputeFrameLayout(v, w, h)
		require.NoError(t, err)
		assert.True(t, l.FlipFrame, v)
		assert.True(t, l.TitleBelow, v)
		assert.Equal(t, CornersBottom, l.Screenshot.Corners, v)
		assert.Equal(t, [4]float64{0, 0, l.Screenshot.BorderRadius, l.Screenshot.BorderRadius},
			l.Screenshot.Corners.Radii(l.Screenshot.BorderRadius))
	}

	l, _ := ComputeFrameLayout(template.AppleHangedUp, w, h)
	// screenshot bottom sits 80px above the frame bottom
	assert.InDelta(t, 80, l.Frame.Bottom()-l.Screenshot.Bottom(), 1e-9)
}

func TestTiltedRightScalesToFit(t *testing.T) {
	l, err := ComputeFrameLayout(template.AppleTiltedRight, w, h)
	require.NoError(t, err)

	assert.Less(t, l.Scale, 1.0)
	assert.InDelta(t, float64(w), l.Frame.Width, 1e-9)
	assert.InDelta(t, 0.8*w*l.Scale, l.Screenshot.Width, 1e-9)
	assert.InDelta(t, 160*l.Scale, l.Screenshot.BorderRadius, 1e-9)
	assert.Equal(t, Transform{Rotate: 8, SkewX: 8, SkewY: -2}, l.Screenshot.Transform)
	require.Len(t, l.Decorations, 1)
	assert.Equal(t, DecorationIsland, l.Decorations[0].Src)
}

func TestRotated(t *testing.T) {
	l, err := ComputeFrameLayout(template.AppleRotated, w, h)
	require.NoError(t, err)
	assert.InDelta(t, w-330, l.Screenshot.Width, 1e-9)
	assert.InDelta(t, w*1.8, l.Screenshot.Height, 1e-9)
	assert.InDelta(t, w*1.8, l.Frame.Height, 1e-9)
	assert.Equal(t, "rotate(6.5deg) skewX(-2deg) skewY(6deg)", l.Screenshot.Transform.CSS())
}

func TestComputeErrors(t *testing.T) {
	_, err := ComputeFrameLayout("apple:nope", w, h)
	assert.ErrorIs(t, err, template.ErrUnknownVariant)

	tmpl, _ := template.Defaults(template.AppleRotated)
	tmpl.Canvas.Height = 0
	_, err = Compute(tmpl)
	assert.Error(t, err)
}

func TestTransformMatrix(t *testing.T) {
	r := Rect{0, 0, 100, 100}
	x, y := Transform{}.Matrix(r).TransformPoint(10, 20)
	assert.InDelta(t, 10, x, 1e-9)
	assert.InDelta(t, 20, y, 1e-9)

	// rotating 90° about the centre maps the top-left corner to the top-right
	x, y = Transform{Rotate: 90}.Matrix(r).TransformPoint(0, 0)
	assert.InDelta(t, 100, x, 1e-9)
	assert.InDelta(t, 0, y, 1e-9)

	b := Transform{Rotate: 45}.Bounds(r)
	assert.InDelta(t, 100*math.Sqrt2, b.Width, 1e-9)
}

func TestInitialLayersSingleSource(t *testing.T) {
	for _, v := range template.Variants() {
		l, _ := ComputeFrameLayout(v, w, h)
		layers := InitialLayers(l)
		dev := l.DeviceBounds()

		assert.Equal(t, dev.Left, layers.Image.X, v)
		assert.Equal(t, dev.Width, layers.Image.Width, v)
		assert.Equal(t, l.Text.X, layers.Text.X, v)
		assert.Equal(t, l.Text.Y, layers.Text.Y, v)
		if l.Logo != nil {
			assert.Equal(t, l.Logo.Width, layers.Logo.Width, v)
		}
		assert.Equal(t, layers, InitialLayers(l), "derivation must be deterministic")
	}
}

func TestBodyWrapsScreenshot(t *testing.T) {
	l, err := ComputeFrameLayout(template.AppleAppScreenshot, w, h)
	require.NoError(t, err)

	body, radii := l.Body()
	b := l.Screenshot.Width * BezelRatio
	assert.InDelta(t, l.Screenshot.Left-b, body.Left, 1e-9)
	assert.InDelta(t, l.Screenshot.Width+2*b, body.Width, 1e-9)
	assert.InDelta(t, l.Screenshot.BorderRadius+b, radii[0], 1e-9)

	// hanged-up keeps square top corners, widened by the bezel only
	l, _ = ComputeFrameLayout(template.AppleHangedUp, w, h)
	_, radii = l.Body()
	b = l.Screenshot.Width * BezelRatio
	assert.InDelta(t, b, radii[0], 1e-9)
	assert.Greater(t, radii[2], radii[0])
}

func TestDeviceBoundsCoversTransformedBody(t *testing.T) {
	for _, v := range template.Variants() {
		l, _ := ComputeFrameLayout(v, w, h)
		dev := l.DeviceBounds()
		body, _ := l.Body()
		tb := l.Screenshot.Transform.Bounds(body)

		assert.LessOrEqual(t, dev.Left, l.Frame.Left+1e-9, v)
		assert.LessOrEqual(t, dev.Left, tb.Left+1e-9, v)
		assert.GreaterOrEqual(t, dev.Right(), tb.Right()-1e-9, v)
		assert.GreaterOrEqual(t, dev.Bottom(), l.Frame.Bottom()-1e-9, v)
	}
}
