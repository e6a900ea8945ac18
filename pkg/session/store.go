// Package session is the in-memory editing session: the ordered list of
// screenshots, their templates, cached previews and edit states. Every
// mutation goes through a named command on Store.
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/xob0t/ShotStencil/pkg/editor"
	"github.com/xob0t/ShotStencil/pkg/inflight"
	"github.com/xob0t/ShotStencil/pkg/render"
	"github.com/xob0t/ShotStencil/pkg/template"
	"github.com/xob0t/ShotStencil/pkg/vector"
)

var (
	ErrNotFound        = errors.New("screenshot not found")
	ErrNotImage        = errors.New("upload is not a decodable image")
	ErrUnknownPlatform = errors.New("unknown platform")
)

// Renderer produces previews and feeds the editing surfaces.
type Renderer interface {
	editor.Resources
	Render(ctx context.Context, t template.Template, mode render.Mode) (*vector.Document, error)
}

// Screenshot is a snapshot of one session entry.
type Screenshot struct {
	ID       int               `json:"id"`
	Template template.Template `json:"template"`
	// Preview is the last good export render; nil until the first render
	// completes.
	Preview *vector.Document `json:"-"`
	// Placeholder is the last good stripped render.
	Placeholder *vector.Document `json:"-"`
	Asset       string           `json:"asset"`
	Revision    uint64           `json:"revision"`
}

type entry struct {
	Screenshot
	surface *editor.Surface
	work    *worker
}

// Store is the session. It is safe for concurrent use.
type Store struct {
	assets   *Assets
	renderer Renderer

	mu       sync.Mutex
	platform template.Platform
	items    []*entry
	ctx      context.Context
	cancel   context.CancelFunc
	renders  inflight.Counter
}

// New creates an empty session on the Apple rotation. renderer may be nil,
// in which case no previews are produced.
func New(assets *Assets, renderer Renderer) *Store {
	if assets == nil {
		assets = NewAssets()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		assets:   assets,
		renderer: renderer,
		platform: template.PlatformApple,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Assets returns the blob store backing asset: URLs.
func (s *Store) Assets() *Assets { return s.assets }

// Platform returns the active rotation.
func (s *Store) Platform() template.Platform {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.platform
}

// SetPlatform selects the rotation used by AddScreenshot.
func (s *Store) SetPlatform(p template.Platform) error {
	if p != template.PlatformApple && p != template.PlatformAndroid {
		return fmt.Errorf("%w: %q", ErrUnknownPlatform, p)
	}
	s.mu.Lock()
	s.platform = p
	s.mu.Unlock()
	return nil
}

// AddScreenshot stores an uploaded image and appends a screenshot using
// the next variant of the active rotation.
func (s *Store) AddScreenshot(name string, data []byte) (Screenshot, error) {
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return Screenshot{}, fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	asset := s.assets.Add(name, data, "")

	s.mu.Lock()
	defer s.mu.Unlock()

	id := 1
	for _, e := range s.items {
		id = max(id, e.ID+1)
	}
	v := template.RotationAt(s.platform, len(s.items))
	t, err := template.Defaults(v)
	if err != nil {
		s.assets.Remove(asset)
		return Screenshot{}, err
	}
	t.Params.Screenshot = template.ImageRef{URL: render.AssetScheme + asset}

	e := &entry{Screenshot: Screenshot{ID: id, Template: t, Asset: asset}}
	e.surface = editor.NewSurface(s.renderer, editor.NewLocal(editor.State{}))
	s.items = append(s.items, e)
	s.changedLocked(e)

	logrus.WithFields(logrus.Fields{"screenshot": id, "variant": v}).Info("Screenshot added")
	return e.Screenshot, nil
}

// RemoveScreenshot deletes screenshot id and its upload.
func (s *Store) RemoveScreenshot(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	s.dropLocked(s.items[i])
	s.items = append(s.items[:i], s.items[i+1:]...)
	logrus.WithField("screenshot", id).Info("Screenshot removed")
	return nil
}

// ClearAll removes every screenshot.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.items {
		s.dropLocked(e)
	}
	s.items = nil
}

// UpdateTemplate switches screenshot id to variant v, keeping its
// screenshot URL and title text.
func (s *Store) UpdateTemplate(id int, v template.Variant) (Screenshot, error) {
	return s.mutate(id, func(t template.Template) (template.Template, error) {
		return template.SwitchVariant(t, v)
	})
}

// UpdateTemplateParams merges patch into the params of screenshot id. An
// invalid result is refused and the prior template kept.
func (s *Store) UpdateTemplateParams(id int, patch template.ParamsPatch) (Screenshot, error) {
	return s.mutate(id, func(t template.Template) (template.Template, error) {
		return template.ApplyParams(t, patch)
	})
}

// UpdateTemplateBackground replaces the background of screenshot id.
func (s *Store) UpdateTemplateBackground(id int, bg template.Background) (Screenshot, error) {
	return s.mutate(id, func(t template.Template) (template.Template, error) {
		return template.ApplyBackground(t, bg)
	})
}

// UpdateAllBackgrounds applies bg to every screenshot.
func (s *Store) UpdateAllBackgrounds(bg template.Background) error {
	if err := bg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.items {
		t, err := template.ApplyBackground(e.Template, bg)
		if err != nil {
			return err
		}
		e.Template = t
		s.changedLocked(e)
	}
	return nil
}

// Reorder moves activeID to the position of overID. Unknown ids are
// ignored.
func (s *Store) Reorder(activeID, overID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	from, to := s.indexLocked(activeID), s.indexLocked(overID)
	if from < 0 || to < 0 || from == to {
		return
	}
	e := s.items[from]
	items := append(s.items[:from:from], s.items[from+1:]...)
	items = append(items[:to], append([]*entry{e}, items[to:]...)...)
	s.items = items
}

// ReapplyTemplatesByOrder reassigns variants by position using the
// rotation of p (the active platform when empty). Each screenshot keeps
// its params and background; previews are reset.
func (s *Store) ReapplyTemplatesByOrder(p template.Platform) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p == "" {
		p = s.platform
	}
	for i, e := range s.items {
		t, err := template.Reapply(e.Template, template.RotationAt(p, i))
		if err != nil {
			return err
		}
		e.Template = t
		e.Preview, e.Placeholder = nil, nil
		s.changedLocked(e)
	}
	return nil
}

// Screenshots returns the session in display order.
func (s *Store) Screenshots() []Screenshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Screenshot, len(s.items))
	for i, e := range s.items {
		out[i] = e.snapshot()
	}
	return out
}

// Screenshot returns screenshot id.
func (s *Store) Screenshot(id int) (Screenshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.getLocked(id)
	if err != nil {
		return Screenshot{}, err
	}
	return e.snapshot(), nil
}

// Surface returns the editing surface of screenshot id.
func (s *Store) Surface(id int) (*editor.Surface, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.getLocked(id)
	if err != nil {
		return nil, err
	}
	return e.surface, nil
}

// EditState returns the edit state of screenshot id.
func (s *Store) EditState(id int) (editor.State, error) {
	sf, err := s.Surface(id)
	if err != nil {
		return editor.State{}, err
	}
	return sf.State(), nil
}

// Dispatch applies an edit action to screenshot id.
func (s *Store) Dispatch(id int, a editor.Action) (editor.State, error) {
	sf, err := s.Surface(id)
	if err != nil {
		return editor.State{}, err
	}
	return sf.Dispatch(a), nil
}

// Wait blocks until no render is in flight and every surface has settled.
// Mutations may continue while it waits.
func (s *Store) Wait(ctx context.Context) error {
	if err := s.renders.Wait(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	surfaces := make([]*editor.Surface, len(s.items))
	for i, e := range s.items {
		surfaces[i] = e.surface
	}
	s.mu.Unlock()
	for _, sf := range surfaces {
		if err := sf.Settle(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close cancels in-flight renders.
func (s *Store) Close() {
	s.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.items {
		e.surface.Close()
	}
}

func (s *Store) mutate(id int, fn func(template.Template) (template.Template, error)) (Screenshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.getLocked(id)
	if err != nil {
		return Screenshot{}, err
	}
	t, err := fn(e.Template)
	if err != nil {
		logrus.WithField("screenshot", id).WithError(err).Warn("Template change refused")
		return e.snapshot(), err
	}
	e.Template = t
	s.changedLocked(e)
	return e.snapshot(), nil
}

// changedLocked records a template change: the revision is bumped, the
// surface remounted and a render requested.
func (s *Store) changedLocked(e *entry) {
	e.Revision++
	if err := e.surface.SetTemplate(e.ID, e.Template); err != nil {
		logrus.WithField("screenshot", e.ID).WithError(err).Warn("Editing surface not updated")
	}
	if s.renderer == nil {
		return
	}
	if e.work == nil {
		e.work = &worker{store: s, entry: e}
	}
	e.work.request(e.Revision, e.Template.Clone())
}

func (s *Store) dropLocked(e *entry) {
	if e.work != nil {
		e.work.stop()
	}
	e.surface.Close()
	s.assets.Remove(e.Asset)
	if f, ok := s.renderer.(interface{ Forget(string) }); ok {
		f.Forget(render.AssetScheme + e.Asset)
	}
}

func (s *Store) indexLocked(id int) int {
	for i, e := range s.items {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) getLocked(id int) (*entry, error) {
	i := s.indexLocked(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return s.items[i], nil
}

func (e *entry) snapshot() Screenshot {
	out := e.Screenshot
	out.Template = e.Template.Clone()
	return out
}
