package vector

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/xob0t/ShotStencil/pkg/background"
	"github.com/xob0t/ShotStencil/pkg/layout"
)

// SVG returns d as a standalone SVG document.
func (d *Document) SVG() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.WriteSVG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteSVG serialises d. Fonts and images are embedded as data URIs so the
// output has no external references.
func (d *Document) WriteSVG(w io.Writer) error {
	s := &svgWriter{}
	for _, n := range d.Nodes {
		if err := s.node(n); err != nil {
			return err
		}
	}

	var out bytes.Buffer
	fmt.Fprintf(&out, `<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" width="%d" height="%d" viewBox="0 0 %d %d">`,
		d.Width, d.Height, d.Width, d.Height)
	if faces := fontFaces(d); faces != "" || s.defs.Len() > 0 {
		out.WriteString("<defs>")
		if faces != "" {
			out.WriteString("<style>")
			out.WriteString(faces)
			out.WriteString("</style>")
		}
		out.Write(s.defs.Bytes())
		out.WriteString("</defs>")
	}
	out.Write(s.body.Bytes())
	out.WriteString("</svg>")

	_, err := w.Write(out.Bytes())
	return err
}

func fontFaces(d *Document) string {
	var b strings.Builder
	seen := map[string]bool{}
	for _, f := range d.Fonts {
		if f == nil || f.Fallback || len(f.Data) == 0 {
			continue
		}
		key := fmt.Sprintf("%s/%d", f.Family, f.Weight)
		if seen[key] {
			continue
		}
		seen[key] = true
		fmt.Fprintf(&b, `@font-face{font-family:%q;font-weight:%d;src:url(data:font/ttf;base64,%s) format("truetype");}`,
			f.Family, f.Weight, base64.StdEncoding.EncodeToString(f.Data))
	}
	return b.String()
}

type svgWriter struct {
	defs bytes.Buffer
	body bytes.Buffer
	ids  int
}

func (s *svgWriter) id(prefix string) string {
	s.ids++
	return fmt.Sprintf("%s%d", prefix, s.ids)
}

func (s *svgWriter) node(n Node) error {
	if !n.Visible() {
		return nil
	}
	switch n := n.(type) {
	case *Rect:
		s.rect(n)
	case *Image:
		return s.image(n)
	case *Pattern:
		return s.pattern(n)
	case *Text:
		return s.text(n)
	case *Group:
		s.openPlacement(n.Placement, n.Box)
		for _, c := range n.Children {
			if err := s.node(c); err != nil {
				return err
			}
		}
		s.closePlacement(n.Placement)
	}
	return nil
}

func (s *svgWriter) openPlacement(p Placement, box layout.Rect) {
	if p.identity() {
		return
	}
	fmt.Fprintf(&s.body, `<g transform="%s">`, placementAttr(p, box))
}

func (s *svgWriter) closePlacement(p Placement) {
	if !p.identity() {
		s.body.WriteString("</g>")
	}
}

func (s *svgWriter) rect(n *Rect) {
	fill := attr(n.Fill.Color)
	if n.Fill.Kind == background.FillLinear {
		gid := s.id("grad")
		fmt.Fprintf(&s.defs, `<linearGradient id="%s" gradientUnits="userSpaceOnUse" x1="%s" y1="%s" x2="%s" y2="%s">`,
			gid, num(n.Fill.Start.X+n.Box.Left), num(n.Fill.Start.Y+n.Box.Top),
			num(n.Fill.End.X+n.Box.Left), num(n.Fill.End.Y+n.Box.Top))
		for _, st := range n.Fill.Stops {
			fmt.Fprintf(&s.defs, `<stop offset="%s" stop-color="%s"/>`, num(st.Offset), attr(st.Color))
		}
		s.defs.WriteString("</linearGradient>")
		fill = "url(#" + gid + ")"
	}

	d := roundedRectD(n.Box, n.Radii)
	rule := ""
	if n.Hole != nil {
		d += roundedRectD(n.Hole.Box, n.Hole.Radii)
		rule = ` fill-rule="evenodd"`
	}

	s.openPlacement(n.Placement, n.Box)
	fmt.Fprintf(&s.body, `<path id="%s" d="%s" fill="%s"%s%s/>`, attr(n.ID), d, fill, rule, opacityAttr(n.Opacity))
	s.closePlacement(n.Placement)
}

func (s *svgWriter) image(n *Image) error {
	href := n.Href
	if href == "" {
		uri, err := DataURI(n.Src)
		if err != nil {
			return fmt.Errorf("image %s: %w", n.ID, err)
		}
		href = uri
	}

	cid := s.id("clip")
	fmt.Fprintf(&s.defs, `<clipPath id="%s"><path d="%s"/></clipPath>`, cid, roundedRectD(n.Box, n.Radii))

	s.openPlacement(n.Placement, n.Box)
	fmt.Fprintf(&s.body, `<image id="%s" x="%s" y="%s" width="%s" height="%s" preserveAspectRatio="xMidYMid slice" clip-path="url(#%s)" href="%s"%s/>`,
		attr(n.ID), num(n.Box.Left), num(n.Box.Top), num(n.Box.Width), num(n.Box.Height), cid, attr(href), opacityAttr(n.Opacity))
	s.closePlacement(n.Placement)
	return nil
}

func (s *svgWriter) pattern(n *Pattern) error {
	href := n.TileHref
	if href == "" {
		uri, err := DataURI(n.Tile)
		if err != nil {
			return fmt.Errorf("pattern %s: %w", n.ID, err)
		}
		href = uri
	}

	pid := s.id("tile")
	ts := num(n.TileSize)
	fmt.Fprintf(&s.defs, `<pattern id="%s" patternUnits="userSpaceOnUse" x="%s" y="%s" width="%s" height="%s"><image width="%s" height="%s" href="%s"/></pattern>`,
		pid, num(n.Box.Left), num(n.Box.Top), ts, ts, ts, ts, attr(href))

	mask := ""
	if n.Masked {
		gid, mid := s.id("fade"), s.id("mask")
		// r of 1/√2 in bounding-box units reaches the farthest corner.
		fmt.Fprintf(&s.defs, `<radialGradient id="%s" cx=".5" cy=".5" r=".7071"><stop offset="%s%%" stop-color="#fff"/><stop offset="100%%" stop-color="#fff" stop-opacity="0"/></radialGradient>`,
			gid, num(n.MaskInner))
		fmt.Fprintf(&s.defs, `<mask id="%s"><rect x="%s" y="%s" width="%s" height="%s" fill="url(#%s)"/></mask>`,
			mid, num(n.Box.Left), num(n.Box.Top), num(n.Box.Width), num(n.Box.Height), gid)
		mask = ` mask="url(#` + mid + `)"`
	}

	fmt.Fprintf(&s.body, `<rect id="%s" x="%s" y="%s" width="%s" height="%s" fill="url(#%s)"%s%s/>`,
		attr(n.ID), num(n.Box.Left), num(n.Box.Top), num(n.Box.Width), num(n.Box.Height), pid, mask, opacityAttr(n.Opacity))
	return nil
}

func (s *svgWriter) text(n *Text) error {
	family := fmt.Sprintf("%s, sans-serif", quoteFamily(n.Family))
	lh := n.Size * n.LineHeight

	fmt.Fprintf(&s.body, `<g id="%s"`, attr(n.ID))
	if n.Rotation != 0 {
		fmt.Fprintf(&s.body, ` transform="rotate(%s %s %s)"`, num(n.Rotation), num(n.X), num(n.Y))
	}
	fmt.Fprintf(&s.body, ` font-family="%s" font-weight="%d" font-size="%s" fill="%s">`,
		attr(family), n.Weight, num(n.Size), attr(n.Color))

	for i, line := range n.Lines {
		x := n.X + (n.Width-line.Width)/2
		top := n.Y + float64(i)*lh
		for _, sp := range line.Spans {
			switch {
			case sp.Glyph != nil && len(sp.Glyph.SVG) > 0:
				fmt.Fprintf(&s.body, `<image x="%s" y="%s" width="%s" height="%s" href="data:image/svg+xml;base64,%s"/>`,
					num(x), num(top+(lh-n.Size)/2), num(n.Size), num(n.Size),
					base64.StdEncoding.EncodeToString(sp.Glyph.SVG))
			case sp.Glyph != nil && sp.Glyph.Raster != nil:
				uri, err := DataURI(sp.Glyph.Raster)
				if err != nil {
					return fmt.Errorf("emoji %s: %w", sp.Glyph.ID, err)
				}
				fmt.Fprintf(&s.body, `<image x="%s" y="%s" width="%s" height="%s" href="%s"/>`,
					num(x), num(top+(lh-n.Size)/2), num(n.Size), num(n.Size), uri)
			default:
				fmt.Fprintf(&s.body, `<text x="%s" y="%s" dominant-baseline="central" xml:space="preserve">%s</text>`,
					num(x), num(top+lh/2), attr(sp.Text))
			}
			x += sp.Width
		}
	}
	s.body.WriteString("</g>")
	return nil
}

func opacityAttr(o float64) string {
	if a := alpha(o); a < 1 {
		return ` opacity="` + num(a) + `"`
	}
	return ""
}

func quoteFamily(f string) string {
	if f == "" {
		return "sans-serif"
	}
	return "'" + strings.ReplaceAll(f, "'", "") + "'"
}

// attr escapes s for text content and double-quoted attributes.
func attr(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
