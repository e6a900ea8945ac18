// Package twemoji maps emoji graphemes to Twemoji icon ids and fetches their
// artwork (SVG for the vector document, PNG for raster drawing).
package twemoji

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gogpu/gg/text/emoji"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"
)

// DefaultBaseURL is the Twemoji asset root.
const DefaultBaseURL = "https://cdn.jsdelivr.net/gh/jdecked/twemoji@15.1.0/assets"

const (
	zwj       = '\u200d'
	vs16      = '\ufe0f'
	maxGlyphs = 1 << 20
)

// IconID returns the Twemoji file id of an emoji grapheme: lower-case hex
// code points joined by "-", with U+FE0F dropped unless the sequence
// contains a zero-width joiner.
func IconID(grapheme string) string {
	keepVS := strings.ContainsRune(grapheme, zwj)
	parts := make([]string, 0, 4)
	for _, r := range grapheme {
		if r == vs16 && !keepVS {
			continue
		}
		parts = append(parts, strconv.FormatInt(int64(r), 16))
	}
	return strings.Join(parts, "-")
}

// Segment is a run of plain text or a single emoji grapheme.
type Segment struct {
	Text  string
	Emoji bool
}

// Split cuts text into plain runs and individual emoji graphemes.
func Split(text string) []Segment {
	text = norm.NFC.String(text)
	var out []Segment
	for _, run := range emoji.Segment(text) {
		if !run.IsEmoji {
			out = append(out, Segment{Text: run.Text})
			continue
		}
		// adjacent emoji share a run
		seqs := emoji.ParseString(run.Text)
		if len(seqs) == 0 {
			out = append(out, Segment{Text: run.Text})
			continue
		}
		for _, s := range seqs {
			out = append(out, Segment{Text: s.String(), Emoji: true})
		}
	}
	return out
}

// Glyph is the artwork of one icon. Either form may be missing.
type Glyph struct {
	ID     string
	SVG    []byte
	Raster image.Image
}

// Service fetches and caches glyph artwork.
type Service struct {
	BaseURL string
	HTTP    *http.Client

	mu    sync.Mutex
	cache map[string]*Glyph
}

// New creates a service; an empty baseURL selects DefaultBaseURL.
func New(baseURL string, timeout time.Duration) *Service {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
		cache:   make(map[string]*Glyph),
	}
}

// LoadGlyph returns the artwork of id. Fetch failures are logged and yield
// nil; the caller then draws the grapheme as plain text.
func (s *Service) LoadGlyph(ctx context.Context, id string) *Glyph {
	if s == nil || id == "" {
		return nil
	}
	s.mu.Lock()
	g, ok := s.cache[id]
	s.mu.Unlock()
	if ok {
		return g
	}

	g = &Glyph{ID: id}
	svg, svgErr := s.fetch(ctx, s.BaseURL+"/svg/"+id+".svg")
	if svgErr == nil {
		g.SVG = svg
	}
	var rasterErr error
	if png, err := s.fetch(ctx, s.BaseURL+"/72x72/"+id+".png"); err == nil {
		g.Raster, rasterErr = imaging.Decode(bytes.NewReader(png))
	} else {
		rasterErr = err
	}

	if svgErr != nil && rasterErr != nil {
		logrus.WithField("icon", id).WithError(svgErr).Warn("Emoji glyph unavailable")
		g = nil
	}
	if ctx.Err() == nil {
		s.mu.Lock()
		s.cache[id] = g
		s.mu.Unlock()
	}
	return g
}

func (s *Service) fetch(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", u, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxGlyphs))
}
