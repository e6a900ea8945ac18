package render

import (
	"fmt"
	"image"
	"strings"

	"github.com/fogleman/gg"

	"github.com/xob0t/ShotStencil/pkg/background"
	"github.com/xob0t/ShotStencil/pkg/template"
)

const builtinScheme = "builtin:"

// builtinImage draws the stock artwork referenced by the variant defaults.
func builtinImage(ref string) (image.Image, error) {
	switch ref {
	case template.BuiltinLogo:
		return drawLogo(400), nil
	case template.BuiltinIPhoneScreenshot:
		return drawMockScreen(1179, 2556, "#6366f1"), nil
	case template.BuiltinAndroidScreenshot:
		return drawMockScreen(1080, 2400, "#10b981"), nil
	}
	return nil, fmt.Errorf("unknown builtin image %q", strings.TrimPrefix(ref, builtinScheme))
}

func drawLogo(size int) image.Image {
	s := float64(size)
	dc := gg.NewContext(size, size)
	grad := gg.NewLinearGradient(0, 0, s, s)
	grad.AddColorStop(0, background.MustColor("#6366f1"))
	grad.AddColorStop(1, background.MustColor("#ec4899"))
	dc.DrawRoundedRectangle(0, 0, s, s, s*0.22)
	dc.SetFillStyle(grad)
	dc.Fill()

	dc.SetColor(background.MustColor("#ffffff"))
	dc.DrawCircle(s/2, s/2, s*0.22)
	dc.Fill()
	return dc.Image()
}

// drawMockScreen is a generic app screen: status bar, header, cards.
func drawMockScreen(w, h int, accent string) image.Image {
	fw, fh := float64(w), float64(h)
	dc := gg.NewContext(w, h)
	dc.SetColor(background.MustColor("#f8fafc"))
	dc.Clear()

	dc.SetColor(background.MustColor(accent))
	dc.DrawRectangle(0, 0, fw, fh*0.22)
	dc.Fill()

	dc.SetColor(background.MustColor("#ffffff80"))
	dc.DrawRoundedRectangle(fw*0.08, fh*0.1, fw*0.5, fh*0.025, fh*0.0125)
	dc.DrawRoundedRectangle(fw*0.08, fh*0.145, fw*0.32, fh*0.018, fh*0.009)
	dc.Fill()

	pad, gap := fw*0.06, fh*0.025
	cardH := fh * 0.14
	for i := 0; i < 5; i++ {
		y := fh*0.25 + float64(i)*(cardH+gap)
		dc.SetColor(background.MustColor("#ffffff"))
		dc.DrawRoundedRectangle(pad, y, fw-2*pad, cardH, fw*0.04)
		dc.Fill()
		dc.SetColor(background.MustColor(accent))
		dc.DrawCircle(pad+cardH/2, y+cardH/2, cardH*0.28)
		dc.Fill()
		dc.SetColor(background.MustColor("#cbd5e1"))
		dc.DrawRoundedRectangle(pad+cardH, y+cardH*0.3, fw*0.45, cardH*0.14, cardH*0.07)
		dc.DrawRoundedRectangle(pad+cardH, y+cardH*0.56, fw*0.3, cardH*0.12, cardH*0.06)
		dc.Fill()
	}
	return dc.Image()
}
