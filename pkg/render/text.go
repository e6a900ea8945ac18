package render

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/sync/errgroup"

	"github.com/xob0t/ShotStencil/pkg/twemoji"
	"github.com/xob0t/ShotStencil/pkg/vector"
)

// piece is an unbreakable part of a word.
type piece struct {
	text  string
	glyph *twemoji.Glyph
	width float64
}

type word []piece

func (w word) width() float64 {
	total := 0.0
	for _, p := range w {
		total += p.width
	}
	return total
}

// words splits one paragraph into words. Emoji stay attached to the
// neighbouring text unless separated by a space.
func words(segs []twemoji.Segment, glyphs map[string]*twemoji.Glyph) []word {
	var out []word
	var cur word
	flush := func() {
		if len(cur) > 0 {
			out = append(out, cur)
			cur = nil
		}
	}
	for _, s := range segs {
		if s.Emoji {
			cur = append(cur, piece{text: s.Text, glyph: glyphs[twemoji.IconID(s.Text)]})
			continue
		}
		for i, part := range strings.Split(s.Text, " ") {
			if i > 0 {
				flush()
			}
			if part != "" {
				cur = append(cur, piece{text: part})
			}
		}
	}
	flush()
	return out
}

// wrapText breaks text into lines no wider than maxWidth, measured with
// face (sized in canvas units). Newlines force a break; emoji glyphs
// advance by one em.
func wrapText(text string, maxWidth float64, face font.Face, size float64, glyphs map[string]*twemoji.Glyph) []vector.Line {
	space := measure(face, " ")
	var lines []vector.Line

	for _, para := range strings.Split(text, "\n") {
		ws := words(twemoji.Split(para), glyphs)
		if len(ws) == 0 {
			lines = append(lines, vector.Line{})
			continue
		}
		for _, w := range ws {
			for i := range w {
				if w[i].glyph != nil {
					w[i].width = size
				} else {
					w[i].width = measure(face, w[i].text)
				}
			}
		}

		line := []word{ws[0]}
		width := ws[0].width()
		for _, w := range ws[1:] {
			if maxWidth > 0 && width+space+w.width() > maxWidth {
				lines = append(lines, joinLine(line, space))
				line, width = []word{w}, w.width()
				continue
			}
			line = append(line, w)
			width += space + w.width()
		}
		lines = append(lines, joinLine(line, space))
	}

	// a trailing blank paragraph adds nothing visible
	for len(lines) > 0 && len(lines[len(lines)-1].Spans) == 0 {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// joinLine merges adjacent text pieces into spans separated by spaces.
func joinLine(ws []word, space float64) vector.Line {
	var l vector.Line
	appendText := func(s string, w float64) {
		if n := len(l.Spans); n > 0 && l.Spans[n-1].Glyph == nil {
			l.Spans[n-1].Text += s
			l.Spans[n-1].Width += w
			return
		}
		l.Spans = append(l.Spans, vector.Span{Text: s, Width: w})
	}
	for i, w := range ws {
		if i > 0 {
			appendText(" ", space)
		}
		for _, p := range w {
			if p.glyph != nil {
				l.Spans = append(l.Spans, vector.Span{Text: p.text, Glyph: p.glyph, Width: p.width})
			} else {
				appendText(p.text, p.width)
			}
		}
	}
	for _, s := range l.Spans {
		l.Width += s.Width
	}
	return l
}

func measure(face font.Face, s string) float64 {
	return float64(font.MeasureString(face, s)) / 64
}

// loadGlyphs fetches the artwork of every emoji in text concurrently.
// Missing glyphs are left out of the result.
func loadGlyphs(ctx context.Context, svc *twemoji.Service, text string) map[string]*twemoji.Glyph {
	out := make(map[string]*twemoji.Glyph)
	if svc == nil {
		return out
	}
	ids := make(map[string]struct{})
	for _, s := range twemoji.Split(text) {
		if s.Emoji {
			ids[twemoji.IconID(s.Text)] = struct{}{}
		}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for id := range ids {
		g.Go(func() error {
			if glyph := svc.LoadGlyph(gctx, id); glyph != nil {
				mu.Lock()
				out[id] = glyph
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}
