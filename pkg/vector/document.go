// Package vector is the resolution-independent document produced by the
// static renderer. The same node tree serialises to a standalone SVG and
// rasterises with gg.
package vector

import (
	"image"
	"strings"

	"github.com/xob0t/ShotStencil/pkg/background"
	"github.com/xob0t/ShotStencil/pkg/fonts"
	"github.com/xob0t/ShotStencil/pkg/layout"
	"github.com/xob0t/ShotStencil/pkg/template"
	"github.com/xob0t/ShotStencil/pkg/twemoji"
)

// Kind identifies a node type.
type Kind string

const (
	KindRect    Kind = "rect"
	KindImage   Kind = "image"
	KindPattern Kind = "pattern"
	KindText    Kind = "text"
	KindGroup   Kind = "group"
)

// Node is one element of a document.
type Node interface {
	Kind() Kind
	Name() string
	// Visible reports whether drawing the node can change any pixel.
	Visible() bool
}

// Document is a fixed-size vector image.
type Document struct {
	Width  int
	Height int
	// Fonts are embedded as @font-face rules in the SVG output.
	Fonts []*fonts.Font
	Nodes []Node
}

// Add appends nodes and returns d.
func (d *Document) Add(nodes ...Node) *Document {
	d.Nodes = append(d.Nodes, nodes...)
	return d
}

// Walk visits every node depth-first, descending into groups.
func (d *Document) Walk(fn func(Node)) {
	var walk func([]Node)
	walk = func(nodes []Node) {
		for _, n := range nodes {
			fn(n)
			if g, ok := n.(*Group); ok {
				walk(g.Children)
			}
		}
	}
	walk(d.Nodes)
}

// Find returns the first node named name.
func (d *Document) Find(name string) Node {
	var found Node
	d.Walk(func(n Node) {
		if found == nil && n.Name() == name {
			found = n
		}
	})
	return found
}

// HasVisible reports whether any node of kind k is visible.
func (d *Document) HasVisible(k Kind) bool {
	visible := false
	d.Walk(func(n Node) {
		if n.Kind() == k && n.Visible() {
			visible = true
		}
	})
	return visible
}

// Placement positions a node: Transform applies about the centre of its
// box, then Rotation (degrees) turns the result about the box's top-left.
type Placement struct {
	Transform layout.Transform
	Rotation  float64
}

func (p Placement) identity() bool {
	return p.Transform.IsIdentity() && p.Rotation == 0
}

// Opacity fields hold a value in (0,1]; zero means fully opaque.
func alpha(o float64) float64 {
	if o <= 0 || o > 1 {
		return 1
	}
	return o
}

// Rect is a filled box with optional per-corner radii and a cut-out.
type Rect struct {
	ID    string
	Box   layout.Rect
	Radii [4]float64
	Fill  background.FillDescriptor
	// Hole is punched out with the even-odd rule.
	Hole      *Hole
	Opacity   float64
	Placement Placement
}

// Hole is a rounded cut-out inside a Rect.
type Hole struct {
	Box   layout.Rect
	Radii [4]float64
}

func (r *Rect) Kind() Kind   { return KindRect }
func (r *Rect) Name() string { return r.ID }
func (r *Rect) Visible() bool {
	if r.Box.Width <= 0 || r.Box.Height <= 0 {
		return false
	}
	if r.Fill.Kind == background.FillSolid {
		return background.MustColor(r.Fill.Color).A > 0
	}
	return true
}

// Image is a raster image clipped to its box (object-fit: cover).
type Image struct {
	ID string
	// Href is the embeddable source (usually a data URI).
	Href      string
	Src       image.Image
	Box       layout.Rect
	Radii     [4]float64
	Opacity   float64
	Placement Placement
}

func (i *Image) Kind() Kind   { return KindImage }
func (i *Image) Name() string { return i.ID }
func (i *Image) Visible() bool {
	return (i.Src != nil || i.Href != "") && i.Box.Width > 0 && i.Box.Height > 0
}

// Pattern repeats a tile over its box, optionally faded by a radial mask
// starting at MaskInner percent.
type Pattern struct {
	ID        string
	Box       layout.Rect
	Tile      image.Image
	TileHref  string
	TileSize  float64
	Opacity   float64
	Masked    bool
	MaskInner float64
}

func (p *Pattern) Kind() Kind   { return KindPattern }
func (p *Pattern) Name() string { return p.ID }
func (p *Pattern) Visible() bool {
	return p.Tile != nil || p.TileHref != ""
}

// Span is a run of text or a single emoji glyph, with its measured advance.
type Span struct {
	Text  string
	Glyph *twemoji.Glyph
	Width float64
}

// Line is one wrapped line of a text block.
type Line struct {
	Spans []Span
	Width float64
}

// Text is a centred multi-line text block whose top-left is (X, Y).
type Text struct {
	ID         string
	Role       template.Role
	X, Y       float64
	Width      float64
	Family     string
	Weight     int
	Size       float64
	LineHeight float64
	Color      string
	Lines      []Line
	// Font is used for raster drawing; nil selects the embedded fallback.
	Font     *fonts.Font
	Rotation float64
}

func (t *Text) Kind() Kind   { return KindText }
func (t *Text) Name() string { return t.ID }
func (t *Text) Visible() bool {
	if t.Size <= 0 || background.MustColor(t.Color).A == 0 {
		return false
	}
	for _, l := range t.Lines {
		for _, s := range l.Spans {
			if s.Glyph != nil || strings.TrimSpace(s.Text) != "" {
				return true
			}
		}
	}
	return false
}

// Height returns the block height.
func (t *Text) Height() float64 {
	return float64(len(t.Lines)) * t.Size * t.LineHeight
}

// Group applies a shared placement (relative to Box) to its children.
type Group struct {
	ID        string
	Box       layout.Rect
	Placement Placement
	Children  []Node
}

func (g *Group) Kind() Kind   { return KindGroup }
func (g *Group) Name() string { return g.ID }
func (g *Group) Visible() bool {
	for _, c := range g.Children {
		if c.Visible() {
			return true
		}
	}
	return false
}
