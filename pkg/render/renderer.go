// Package render turns a template into a vector document: background
// layers, the device with its screenshot, the wrapped title and the logo.
// Layers: background -> device -> decorations -> title -> logo.
package render

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/xob0t/ShotStencil/pkg/fonts"
	"github.com/xob0t/ShotStencil/pkg/layout"
	"github.com/xob0t/ShotStencil/pkg/template"
	"github.com/xob0t/ShotStencil/pkg/twemoji"
	"github.com/xob0t/ShotStencil/pkg/vector"
)

// Mode selects what a render contains.
type Mode int

const (
	// Export renders every layer.
	Export Mode = iota
	// Placeholder renders only the device over a transparent background;
	// the editing surface draws title, logo and background itself.
	Placeholder
)

func (m Mode) String() string {
	if m == Placeholder {
		return "placeholder"
	}
	return "export"
}

// Renderer composes documents. Every collaborator is optional: without
// fonts the embedded Go faces are used, without emoji service emoji are
// drawn as text, and without a loader images stay empty.
type Renderer struct {
	Fonts  *fonts.Manager
	Emoji  *twemoji.Service
	Images ImageLoader
}

// New creates a renderer.
func New(fm *fonts.Manager, emoji *twemoji.Service, images ImageLoader) *Renderer {
	return &Renderer{Fonts: fm, Emoji: emoji, Images: images}
}

// Strip returns the placeholder form of t: no title text, no logo image
// and a transparent background without noise or overlay.
func Strip(t template.Template) template.Template {
	out := t.Clone()
	if f := out.Params.MainText(); f != nil {
		f.Text = ""
	}
	if out.Params.Logo != nil {
		out.Params.Logo.URL = ""
	}
	out.Background = template.Transparent()
	return out
}

// Render builds the document of t. Resource failures (fonts, emoji,
// images) degrade the output and are logged; errors are returned only for
// an unusable template or a cancelled context.
func (r *Renderer) Render(ctx context.Context, t template.Template, mode Mode) (*vector.Document, error) {
	if mode == Placeholder {
		t = Strip(t)
	}
	l, err := layout.Compute(t)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", t.Name, err)
	}

	w, h := float64(t.Canvas.Width), float64(t.Canvas.Height)
	doc := &vector.Document{Width: t.Canvas.Width, Height: t.Canvas.Height}
	doc.Add(vector.BackgroundNodes(t.Background, w, h)...)

	shot, href := r.image(ctx, t.Params.Screenshot.URL, "screenshot")
	doc.Add(deviceNodes(l, shot, href)...)

	// fonts are fetched only when there is text to draw
	if title := t.Params.MainText(); title != nil && strings.TrimSpace(title.Text) != "" {
		resolved, err := r.Fonts.Resolve(ctx, template.UsedFonts(t.Params))
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", t.Name, err)
		}
		node, f, err := r.title(ctx, *title, l.Text, resolved)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", t.Name, err)
		}
		doc.Fonts = append(doc.Fonts, f)
		doc.Add(node)
	}

	if l.Logo != nil && t.Params.Logo != nil && t.Params.Logo.URL != "" {
		if img, href := r.image(ctx, t.Params.Logo.URL, "logo"); img != nil {
			doc.Add(&vector.Image{ID: IDLogo, Src: img, Href: href, Box: *l.Logo})
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return doc, nil
}

// ShapeTitle resolves the font and emoji of f and wraps it to the anchor
// width. The editing surface uses it for its live text node.
func (r *Renderer) ShapeTitle(ctx context.Context, f template.TextField, anchor layout.TextAnchor) (*vector.Text, error) {
	resolved, err := r.Fonts.Resolve(ctx, template.UsedFonts(template.Params{Title: f}))
	if err != nil {
		return nil, err
	}
	node, _, err := r.title(ctx, f, anchor, resolved)
	return node, err
}

// LoadImage loads ref for the named layer; failures are logged and
// yield nil.
func (r *Renderer) LoadImage(ctx context.Context, ref, layer string) image.Image {
	img, _ := r.image(ctx, ref, layer)
	return img
}

func (r *Renderer) title(ctx context.Context, f template.TextField, anchor layout.TextAnchor, resolved map[template.FontRef]*fonts.Font) (*vector.Text, *fonts.Font, error) {
	weight := f.FontWeight
	if weight == 0 {
		weight = template.DefaultFontWeight
	}
	font := fonts.Lookup(resolved, template.FontRef{Family: f.FontFamily, Weight: weight})
	face, err := font.Face(f.FontSize)
	if err != nil {
		return nil, nil, err
	}
	defer face.Close()

	glyphs := loadGlyphs(ctx, r.Emoji, f.Text)
	return &vector.Text{
		ID:         IDTitle,
		Role:       f.Role,
		X:          anchor.X,
		Y:          anchor.Y,
		Width:      anchor.Width,
		Family:     f.FontFamily,
		Weight:     weight,
		Size:       f.FontSize,
		LineHeight: layout.LineHeight,
		Color:      f.Color,
		Lines:      wrapText(f.Text, anchor.Width, face, f.FontSize, glyphs),
		Font:       font,
	}, font, nil
}

// image loads ref; failures leave the layer empty.
func (r *Renderer) image(ctx context.Context, ref, layer string) (img image.Image, href string) {
	if ref == "" || r.Images == nil {
		return nil, ""
	}
	img, err := r.Images.Load(ctx, ref)
	if err != nil {
		logrus.WithFields(logrus.Fields{"layer": layer, "url": short(ref)}).WithError(err).Warn("Image unavailable")
		return nil, ""
	}
	if strings.HasPrefix(ref, "data:") {
		href = ref
	}
	return img, href
}

// Forget drops ref from the image cache when the loader keeps one.
func (r *Renderer) Forget(ref string) {
	if f, ok := r.Images.(interface{ Forget(string) }); ok {
		f.Forget(ref)
	}
}
