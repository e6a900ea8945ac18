package layout

import "github.com/xob0t/ShotStencil/pkg/template"

// DecorationIsland is the floating dynamic-island art of the tilted-right
// frame.
const DecorationIsland = "frame:dynamic-island"

type placement int

const (
	// title above the frame, both bottom-anchored and shifted down by
	// the bottom padding
	stackBottom placement = iota
	// title above the frame, frame pushed below its bottom-aligned spot
	stackTop
	// frame first, title below, the pair centred vertically
	hanging
)

const (
	titleGapBottom = 50  // stackBottom: title block bottom to frame top
	titleGapTop    = 80  // stackTop: title block bottom to frame top
	stackTopShift  = 200 // stackTop: frame shift below bottom alignment
	hangingMargin  = 80  // hanging: space kept under the title
	logoGap        = 20  // hanging: title to logo
	defaultLogo    = 200
)

type rule struct {
	frameSrc string
	// screenshot size for a canvas of width w
	shot func(w float64) (sw, sh float64)
	// frame size for a canvas of width w and a screenshot sw×sh
	frame func(w, sw, sh float64) Size
	// screenshot offset inside the frame; top counts from the frame's
	// bottom edge when fromBottom is set
	left, top  float64
	fromBottom bool
	radius     float64
	corners    Corners
	transform  Transform
	flip       bool
	place      placement
	// extra vertical frame shift on top of the placement rule
	frameShift  float64
	textMargin  float64
	decorations []Decoration
}

func storeShot(aspect float64) func(float64) (float64, float64) {
	return func(w float64) (float64, float64) {
		sw := w * 0.8
		return sw, sw * aspect
	}
}

func inflate(dw, dh float64) func(float64, float64, float64) Size {
	return func(_, sw, sh float64) Size { return Size{sw + dw, sh + dh} }
}

var appScreenshotRule = rule{
	frameSrc:   FrameIPhone,
	shot:       storeShot(2.1),
	frame:      inflate(40, 120),
	left:       20,
	top:        80,
	radius:     140,
	corners:    CornersAll,
	place:      stackBottom,
	textMargin: 100,
}

var rules = map[template.Variant]rule{
	template.AppleAppScreenshot: appScreenshotRule,
	template.OGAppScreenshot:    appScreenshotRule,
	template.AppleTiltedLeft: {
		frameSrc:   FrameIPhoneTiltedLeft,
		shot:       storeShot(2.2),
		frame:      inflate(160, 0),
		left:       70,
		top:        98,
		radius:     120,
		corners:    CornersTop,
		transform:  Transform{Rotate: 7, SkewX: 7, SkewY: -10},
		place:      stackTop,
		textMargin: 150,
	},
	template.AppleTiltedRight: {
		frameSrc:   FrameIPhoneTiltedRight,
		shot:       storeShot(2.2),
		frame:      inflate(325, 0),
		left:       200,
		top:        100,
		radius:     160,
		corners:    CornersTop,
		transform:  Transform{Rotate: 8, SkewX: 8, SkewY: -2},
		place:      stackTop,
		textMargin: 150,
		decorations: []Decoration{{
			Src:       DecorationIsland,
			Rect:      Rect{Left: 590, Top: 110, Width: 300, Height: 120},
			Transform: Transform{Rotate: 10, SkewX: 8, SkewY: -2},
		}},
	},
	template.AppleHangedUp: {
		frameSrc:   FrameIPhoneUp,
		shot:       storeShot(2.2),
		frame:      inflate(80, 0),
		left:       40,
		top:        80,
		fromBottom: true,
		radius:     150,
		corners:    CornersBottom,
		flip:       true,
		place:      hanging,
		textMargin: 150,
	},
	template.AppleRotated: {
		frameSrc: FrameIPhoneSide,
		shot: func(w float64) (float64, float64) {
			return w - 330, w * 1.8
		},
		frame:      func(w, _, sh float64) Size { return Size{w, sh} },
		left:       180,
		top:        170,
		radius:     155,
		corners:    CornersTop,
		transform:  Transform{Rotate: 6.5, SkewX: -2, SkewY: 6},
		place:      stackTop,
		textMargin: 150,
	},
	template.AndroidAppScreenshot: {
		frameSrc:   FrameAndroid,
		shot:       storeShot(2.2),
		frame:      inflate(80, 80),
		left:       35,
		top:        35,
		radius:     80,
		corners:    CornersTop,
		place:      stackBottom,
		textMargin: 100,
	},
	template.AndroidHangedUp: {
		frameSrc:   FrameAndroid,
		shot:       storeShot(2.2),
		frame:      inflate(70, 0),
		left:       35,
		top:        30,
		fromBottom: true,
		radius:     80,
		corners:    CornersBottom,
		flip:       true,
		place:      hanging,
		frameShift: -100,
		textMargin: 150,
	},
}

func (r rule) apply(t template.Template) FrameLayout {
	w, h := float64(t.Canvas.Width), float64(t.Canvas.Height)
	band := TitleLines * t.Params.Title.FontSize * LineHeight

	sw, sh := r.shot(w)
	fs := r.frame(w, sw, sh)

	// Frames wider than the canvas shrink to fit.
	scale := 1.0
	if fs.Width > w {
		scale = w / fs.Width
	}
	fw, fh := fs.Width*scale, fs.Height*scale
	left := (w - fw) / 2

	var top, textY float64
	switch r.place {
	case stackBottom:
		top = h - fh - t.Params.Padding()
		textY = top - titleGapBottom - band
	case stackTop:
		top = h - fh + stackTopShift
		textY = top - titleGapTop - band
	case hanging:
		start := (h - (fh + band + hangingMargin)) / 2
		top = start
		textY = start + fh
	}
	top += r.frameShift

	shotTop := r.top
	if r.fromBottom {
		shotTop = fs.Height - r.top - sh
	}

	l := FrameLayout{
		Variant:   t.Name,
		Canvas:    Size{w, h},
		FrameSrc:  r.frameSrc,
		Frame:     Rect{left, top, fw, fh},
		FlipFrame: r.flip,
		Scale:     scale,
		Screenshot: Screenshot{
			Rect:         Rect{left + r.left*scale, top + shotTop*scale, sw * scale, sh * scale},
			BorderRadius: r.radius * scale,
			Corners:      r.corners,
			Transform:    r.transform,
		},
		Text: TextAnchor{
			X:     r.textMargin,
			Y:     textY,
			Width: max(w-2*r.textMargin, 1),
		},
		TitleBelow: r.place == hanging,
	}

	for _, d := range r.decorations {
		l.Decorations = append(l.Decorations, Decoration{
			Src: d.Src,
			Rect: Rect{
				Left:   left + d.Rect.Left*scale,
				Top:    top + d.Rect.Top*scale,
				Width:  d.Rect.Width * scale,
				Height: d.Rect.Height * scale,
			},
			Transform: d.Transform,
		})
	}

	if logo := t.Params.Logo; logo != nil {
		lw, lh := logo.Width, logo.Height
		if lw <= 0 {
			lw = defaultLogo
		}
		if lh <= 0 {
			lh = defaultLogo
		}
		y := textY - lh
		if l.TitleBelow {
			y = textY + band + logoGap
		}
		l.Logo = &Rect{(w - lw) / 2, y, lw, lh}
	}
	return l
}
