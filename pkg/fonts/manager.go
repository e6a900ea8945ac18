// manager.go - Font management with remote families and embedded fallback
// fonts. Uses golang.org/x/image/font for OpenType rendering. Falls back to
// Go Regular/Bold when a family cannot be fetched or parsed.
package fonts

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/sync/errgroup"

	"github.com/xob0t/ShotStencil/pkg/template"
)

// Source loads raw font data for a family/weight pair.
type Source interface {
	Load(ctx context.Context, family string, weight int) ([]byte, error)
}

// Font is a parsed font plus its origin.
type Font struct {
	Family   string
	Weight   int
	Data     []byte
	Fallback bool
	parsed   *opentype.Font
}

// Face returns a font.Face at the given pixel size.
func (f *Font) Face(size float64) (font.Face, error) {
	face, err := opentype.NewFace(f.parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	return face, nil
}

// Parse wraps raw TTF/OTF data.
func Parse(family string, weight int, data []byte) (*Font, error) {
	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font %s %d: %w", family, weight, err)
	}
	return &Font{Family: family, Weight: weight, Data: data, parsed: parsed}, nil
}

var (
	fallbackOnce  sync.Once
	regular, bold *Font
)

// Fallback returns the embedded Go font closest to weight.
func Fallback(weight int) *Font {
	fallbackOnce.Do(func() {
		regular = mustParse(400, goregular.TTF)
		bold = mustParse(700, gobold.TTF)
	})
	if weight >= 600 {
		return bold
	}
	return regular
}

func mustParse(weight int, data []byte) *Font {
	f, err := Parse("Go", weight, data)
	if err != nil {
		panic(err)
	}
	f.Fallback = true
	return f
}

// Manager resolves and caches fonts.
type Manager struct {
	src Source
	mu  sync.Mutex
	// cached results; a nil entry remembers a failed lookup
	cache map[template.FontRef]*Font
}

// NewManager creates a manager; src may be nil for fallback-only rendering.
func NewManager(src Source) *Manager {
	return &Manager{src: src, cache: make(map[template.FontRef]*Font)}
}

// Resolve loads every ref concurrently. Individual failures are logged and
// omitted from the result; Resolve itself only fails when ctx is done.
func (m *Manager) Resolve(ctx context.Context, refs []template.FontRef) (map[template.FontRef]*Font, error) {
	out := make(map[template.FontRef]*Font, len(refs))
	if m == nil || m.src == nil {
		return out, ctx.Err()
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, ref := range refs {
		g.Go(func() error {
			f := m.load(gctx, ref)
			if f != nil {
				mu.Lock()
				out[ref] = f
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return out, ctx.Err()
}

func (m *Manager) load(ctx context.Context, ref template.FontRef) *Font {
	m.mu.Lock()
	f, ok := m.cache[ref]
	m.mu.Unlock()
	if ok {
		return f
	}

	data, err := m.src.Load(ctx, ref.Family, ref.Weight)
	if err == nil {
		f, err = Parse(ref.Family, ref.Weight, data)
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"family": ref.Family,
			"weight": ref.Weight,
		}).WithError(err).Warn("Font unavailable, using fallback")
		if ctx.Err() != nil {
			// don't remember cancellations
			return nil
		}
		f = nil
	}

	m.mu.Lock()
	m.cache[ref] = f
	m.mu.Unlock()
	return f
}

// Lookup returns the resolved font for ref, or the embedded fallback.
func Lookup(resolved map[template.FontRef]*Font, ref template.FontRef) *Font {
	if f := resolved[ref]; f != nil {
		return f
	}
	return Fallback(ref.Weight)
}
