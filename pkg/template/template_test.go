package template

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	for _, v := range Variants() {
		tmpl, err := Defaults(v)
		require.NoError(t, err, v)
		assert.NoError(t, tmpl.Validate(), v)
		assert.Equal(t, v, tmpl.Name)
		require.NotNil(t, tmpl.Params.MainText(), v)
		assert.Equal(t, v.HasLogo(), tmpl.Params.Logo != nil, v)
		assert.Equal(t, v.HasBottomPadding(), tmpl.Params.BottomPadding != nil, v)
	}
}

func TestDefaultsReturnFreshCopies(t *testing.T) {
	a, _ := Defaults(AppleAppScreenshot)
	a.Params.Logo.URL = "changed"
	*a.Params.BottomPadding = 12

	b, _ := Defaults(AppleAppScreenshot)
	assert.Equal(t, BuiltinLogo, b.Params.Logo.URL)
	assert.Equal(t, Length(-400), *b.Params.BottomPadding)
}

func TestUnknownVariant(t *testing.T) {
	_, err := Defaults("apple:nope")
	assert.ErrorIs(t, err, ErrUnknownVariant)
}

func TestRotation(t *testing.T) {
	assert.Equal(t, AppleAppScreenshot, RotationAt(PlatformApple, 0))
	assert.Equal(t, AppleTiltedLeft, RotationAt(PlatformApple, 1))
	assert.Equal(t, AppleAppScreenshot, RotationAt(PlatformApple, 5))
	assert.Equal(t, AndroidHangedUp, RotationAt(PlatformAndroid, 1))
	assert.Equal(t, AndroidAppScreenshot, RotationAt(PlatformAndroid, 2))
	assert.Equal(t, Rotation(PlatformApple), Rotation("windows"))
}

func TestVariantNames(t *testing.T) {
	assert.Equal(t, "apple-app-screenshot", AppleAppScreenshot.FileStem())
	assert.Equal(t, "Apple Tilted Left", AppleTiltedLeft.DisplayName())
	assert.Equal(t, "Open Graph App Screenshot", OGAppScreenshot.DisplayName())
	assert.Equal(t, PlatformAndroid, AndroidHangedUp.Platform())
}

func TestValidateFillsDefaults(t *testing.T) {
	raw := []byte(`{
		"name": "apple:tilted-left",
		"params": {"title": {"text": "Hello"}}
	}`)
	tmpl, warnings, err := Validate(raw)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, "Hello", tmpl.Params.Title.Text)
	assert.Equal(t, "poppins", tmpl.Params.Title.FontFamily)
	assert.Equal(t, 700, tmpl.Params.Title.FontWeight)
	assert.Equal(t, 110.0, tmpl.Params.Title.FontSize)
	assert.Equal(t, RoleTitle, tmpl.Params.Title.Role)
	assert.Equal(t, DefaultCanvasWidth, tmpl.Canvas.Width)
	assert.Equal(t, BuiltinIPhoneScreenshot, tmpl.Params.Screenshot.URL)
}

func TestValidateStringPadding(t *testing.T) {
	raw := []byte(`{"name": "android:app-screenshot", "params": {"bottomPadding": "-150"}}`)
	tmpl, _, err := Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, -150.0, tmpl.Params.Padding())
}

func TestValidateWarnings(t *testing.T) {
	raw := []byte(`{
		"name": "apple:hanged-up",
		"extra": 1,
		"params": {"logo": {"url": "x.png"}, "subtitle": {}}
	}`)
	tmpl, warnings, err := Validate(raw)
	require.NoError(t, err)
	assert.Nil(t, tmpl.Params.Logo)
	assert.Len(t, warnings, 3)
}

func TestValidateGradientSwitch(t *testing.T) {
	raw := []byte(`{
		"name": "apple:app-screenshot",
		"background": {"type": "linear-gradient", "colorStops": ["#fff", "#000"]}
	}`)
	tmpl, _, err := Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, BackgroundLinearGradient, tmpl.Background.Type)
	assert.Empty(t, tmpl.Background.Color)
	assert.Equal(t, ToRight, tmpl.Background.Direction)
	assert.Equal(t, 0.1, tmpl.Background.Noise)
}

func TestValidateErrors(t *testing.T) {
	cases := map[string]string{
		"malformed":     `{"name": `,
		"no name":       `{}`,
		"unknown":       `{"name": "apple:nope"}`,
		"canvas":        `{"name": "apple:rotated", "canvas": {"width": 0}}`,
		"weight":        `{"name": "apple:rotated", "params": {"title": {"fontWeight": 450}}}`,
		"noise":         `{"name": "apple:rotated", "background": {"type": "color", "color": "#fff", "noise": 2}}`,
		"empty stops":   `{"name": "apple:rotated", "background": {"type": "linear-gradient", "colorStops": []}}`,
		"direction":     `{"name": "apple:rotated", "background": {"type": "linear-gradient", "colorStops": ["#fff"], "direction": "up"}}`,
		"pattern":       `{"name": "apple:rotated", "background": {"type": "color", "color": "#fff", "gridOverlay": {"pattern": "waves"}}}`,
		"blur radius":   `{"name": "apple:rotated", "background": {"type": "color", "color": "#fff", "gridOverlay": {"pattern": "dots", "blurRadius": 101}}}`,
		"bad bg type":   `{"name": "apple:rotated", "background": {"type": "image"}}`,
		"bad padding":   `{"name": "apple:app-screenshot", "params": {"bottomPadding": "lots"}}`,
		"zero fontsize": `{"name": "apple:rotated", "params": {"title": {"fontSize": 0}}}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := Validate([]byte(raw))
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestSwitchVariantPreservesScreenshotAndTitle(t *testing.T) {
	for _, from := range Variants() {
		for _, to := range Variants() {
			cur, _ := Defaults(from)
			cur.Params.Screenshot = ImageRef{URL: "blob:shot-1", Width: 10}
			cur.Params.Title.Text = "Custom"

			next, err := SwitchVariant(cur, to)
			require.NoError(t, err, "%s -> %s", from, to)
			assert.Equal(t, to, next.Name)
			assert.Equal(t, "blob:shot-1", next.Params.Screenshot.URL)
			assert.Equal(t, "Custom", next.Params.MainText().Text)
			assert.Equal(t, to.HasLogo(), next.Params.Logo != nil)
			assert.NoError(t, next.Validate())
		}
	}
}

func TestSwitchVariantUnknown(t *testing.T) {
	cur, _ := Defaults(AppleRotated)
	_, err := SwitchVariant(cur, "nope")
	assert.ErrorIs(t, err, ErrUnknownVariant)
}

func TestReapplyKeepsCustomisations(t *testing.T) {
	cur, _ := Defaults(AppleTiltedLeft)
	cur.Params.Screenshot.URL = "blob:a"
	cur.Params.Title.Color = "#ff0000"
	cur.Background = Background{Type: BackgroundColor, Color: "#000000", Noise: 0.2}

	next, err := Reapply(cur, AppleHangedUp)
	require.NoError(t, err)
	assert.Equal(t, AppleHangedUp, next.Name)
	assert.Equal(t, "blob:a", next.Params.Screenshot.URL)
	assert.Equal(t, "#ff0000", next.Params.Title.Color)
	assert.Nil(t, next.Params.Logo)
	assert.Equal(t, cur.Background, next.Background)
}

func TestApplyParams(t *testing.T) {
	cur, _ := Defaults(AppleAppScreenshot)

	next, err := ApplyParams(cur, ParamsPatch{
		Title:         &TextField{Text: "New", FontFamily: "inter", FontSize: 50, Color: "#111"},
		BottomPadding: Len(-10),
	})
	require.NoError(t, err)
	assert.Equal(t, "New", next.Params.Title.Text)
	assert.Equal(t, RoleTitle, next.Params.Title.Role)
	assert.Equal(t, DefaultFontWeight, next.Params.Title.FontWeight)
	assert.Equal(t, -10.0, next.Params.Padding())
	assert.Equal(t, -400.0, cur.Params.Padding(), "input must not be mutated")

	bad, err := ApplyParams(cur, ParamsPatch{Title: &TextField{FontWeight: 7, FontSize: 10}})
	assert.Error(t, err)
	assert.Equal(t, cur, bad)
}

func TestApplyParamsRejectsUndeclaredLogo(t *testing.T) {
	cur, _ := Defaults(AppleHangedUp)
	_, err := ApplyParams(cur, ParamsPatch{Logo: &ImageRef{URL: "x"}})
	assert.Error(t, err)
}

func TestApplyBackground(t *testing.T) {
	cur, _ := Defaults(AppleAppScreenshot)
	bg := Background{Type: BackgroundLinearGradient, ColorStops: []string{"#fff"}, Direction: ToTop}

	next, err := ApplyBackground(cur, bg)
	require.NoError(t, err)
	assert.Equal(t, bg, next.Background)

	bg.ColorStops[0] = "#000"
	assert.Equal(t, "#fff", next.Background.ColorStops[0], "background must be copied")

	_, err = ApplyBackground(cur, Background{Type: BackgroundLinearGradient})
	assert.Error(t, err)
}

func TestUsedFontsDeduplicates(t *testing.T) {
	p := Params{Title: TextField{FontFamily: "inter", FontWeight: 700}}
	assert.Equal(t, []FontRef{{Family: "inter", Weight: 700}}, UsedFonts(p))

	p.Title.FontWeight = 0
	assert.Equal(t, []FontRef{{Family: "inter", Weight: 400}}, UsedFonts(p))

	assert.Empty(t, UsedFonts(Params{}))
}

func TestBundleRoundTrip(t *testing.T) {
	tmpl, _ := Defaults(AndroidHangedUp)
	tmpl.Params.Title.Text = "Bundled"

	dir := t.TempDir()
	p := filepath.Join(dir, "card.shotbundle")
	var buf bytes.Buffer
	require.NoError(t, WriteBundle(&buf, tmpl, []byte("png-bytes"), ".png"))
	require.NoError(t, os.WriteFile(p, buf.Bytes(), 0o644))

	b, _, err := LoadBundle(p)
	require.NoError(t, err)
	assert.Equal(t, "Bundled", b.Template.Params.Title.Text)
	assert.Equal(t, []byte("png-bytes"), b.Screenshot)
	assert.Equal(t, "screenshot.png", b.ScreenshotName)
}

func TestBundleRejectsNestedPaths(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("../template.json")
	w.Write([]byte(`{"name": "apple:rotated"}`))
	require.NoError(t, zw.Close())

	p := filepath.Join(t.TempDir(), "evil.shotbundle")
	require.NoError(t, os.WriteFile(p, buf.Bytes(), 0o644))

	_, _, err := LoadBundle(p)
	assert.Error(t, err)
}

func TestExampleJSONValidates(t *testing.T) {
	raw, err := ExampleJSON(AppleAppScreenshot)
	require.NoError(t, err)
	tmpl, warnings, err := Validate(raw)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, BackgroundLinearGradient, tmpl.Background.Type)
}
