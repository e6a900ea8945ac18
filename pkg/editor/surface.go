package editor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"sync"
	"time"

	"github.com/fogleman/gg"
	"github.com/sirupsen/logrus"

	"github.com/xob0t/ShotStencil/pkg/inflight"
	"github.com/xob0t/ShotStencil/pkg/layout"
	"github.com/xob0t/ShotStencil/pkg/template"
	"github.com/xob0t/ShotStencil/pkg/vector"
)

const (
	// TextRemountDelay is how long after a font-family change the text
	// node is rebuilt, so it measures with the newly loaded font.
	TextRemountDelay = 500 * time.Millisecond
	// TransformerMinBox is the smallest box a resize gesture may produce.
	TransformerMinBox = 10

	shapeTimeout = 15 * time.Second
)

var (
	// ErrNotMounted is returned before the first SetTemplate.
	ErrNotMounted = errors.New("editor: no template mounted")
	// ErrTransformerAttached is returned by Capture while transform
	// handles are showing.
	ErrTransformerAttached = errors.New("editor: transform handles are attached")
	// ErrNotSelected is returned by handle gestures on an unselected layer.
	ErrNotSelected = errors.New("editor: layer is not selected")
	// ErrHidden is returned by gestures on a layer with nothing to show.
	ErrHidden = errors.New("editor: layer is not visible")
)

// Resources supplies the surface's text and image content.
type Resources interface {
	ShapeTitle(ctx context.Context, f template.TextField, anchor layout.TextAnchor) (*vector.Text, error)
	LoadImage(ctx context.Context, ref, layer string) image.Image
}

// Node is the on-surface state of one layer. During a gesture it diverges
// from the committed LayerState; EndGesture reads it back.
type Node struct {
	Layer    Layer   `json:"layer"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	ScaleX   float64 `json:"scaleX"`
	ScaleY   float64 `json:"scaleY"`
	Rotation float64 `json:"rotation"`
	Visible  bool    `json:"visible"`
}

// contains hit-tests a canvas point; rotation turns about the top-left.
func (n *Node) contains(px, py float64) bool {
	rad := -n.Rotation * math.Pi / 180
	dx, dy := px-n.X, py-n.Y
	lx := dx*math.Cos(rad) - dy*math.Sin(rad)
	ly := dx*math.Sin(rad) + dy*math.Cos(rad)
	return lx >= 0 && ly >= 0 && lx <= n.Width*n.ScaleX && ly <= n.Height*n.ScaleY
}

type stopper interface {
	Stop() bool
}

// Surface is the headless interactive editing surface of one screenshot.
// The committed layer geometry lives in the Dispatcher; the surface keeps
// the node tree that gestures manipulate.
type Surface struct {
	res   Resources
	disp  Dispatcher
	after func(time.Duration, func()) stopper

	mu          sync.Mutex
	mounted     bool
	id          int
	tmpl        template.Template
	layout      layout.FrameLayout
	background  []vector.Node
	placeholder *vector.Document
	nodes       map[Layer]*Node
	text        *vector.Text
	logo        image.Image
	textVersion int
	logoVersion int
	remounts    int
	remount     stopper
	pending     inflight.Counter
}

// NewSurface creates an empty surface. res may be nil, in which case the
// text and logo layers stay empty.
func NewSurface(res Resources, disp Dispatcher) *Surface {
	if disp == nil {
		disp = NewLocal(State{})
	}
	return &Surface{
		res:  res,
		disp: disp,
		after: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
		nodes: make(map[Layer]*Node, len(Layers)),
	}
}

// SetTemplate mounts t for screenshot id. The edit state is reset when the
// id, the variant or the canvas changes; otherwise committed geometry is
// kept and only content is refreshed.
func (s *Surface) SetTemplate(id int, t template.Template) error {
	l, err := layout.Compute(t)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reset := !s.mounted || id != s.id || t.Name != s.tmpl.Name || t.Canvas != s.tmpl.Canvas
	prev := s.tmpl.Params
	s.mounted, s.id, s.tmpl, s.layout = true, id, t.Clone(), l
	s.background = vector.BackgroundNodes(t.Background, float64(t.Canvas.Width), float64(t.Canvas.Height))

	if reset {
		s.syncLocked(s.disp.Dispatch(ResetTo(l)))
	} else {
		s.refreshLocked()
	}

	if reset || prev.Title != t.Params.Title {
		s.reshapeLocked()
	}
	if !reset && prev.Title.FontFamily != t.Params.Title.FontFamily {
		s.scheduleRemountLocked()
	}
	if reset || logoURL(prev) != logoURL(t.Params) {
		s.loadLogoLocked()
	}
	return nil
}

// SetPlaceholder installs the stripped device render drawn by the image
// layer. A nil document is ignored so the last good render stays.
func (s *Surface) SetPlaceholder(doc *vector.Document) {
	if doc == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.placeholder = doc
	s.refreshLocked()
}

// Reset re-derives every layer from the layout rules and clears the
// selection.
func (s *Surface) Reset() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return State{}, ErrNotMounted
	}
	st := s.disp.Dispatch(ResetTo(s.layout))
	s.syncLocked(st)
	s.reshapeLocked()
	return st, nil
}

// PointerDown selects the top-most visible layer under (x, y), or clears
// the selection over empty space.
func (s *Surface) PointerDown(x, y float64) Layer {
	s.mu.Lock()
	defer s.mu.Unlock()

	hit := LayerNone
	for i := len(Layers) - 1; i >= 0; i-- {
		if n := s.nodes[Layers[i]]; n != nil && n.Visible && n.contains(x, y) {
			hit = Layers[i]
			break
		}
	}
	s.disp.Dispatch(Select{Layer: hit})
	return hit
}

// ClearSelection detaches the transform handles.
func (s *Surface) ClearSelection() {
	s.disp.Dispatch(Select{Layer: LayerNone})
}

// Transformer returns the layer the transform handles are attached to.
func (s *Surface) Transformer() Layer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transformerLocked()
}

func (s *Surface) transformerLocked() Layer {
	sel := s.disp.State().Selected
	if n := s.nodes[sel]; n != nil && n.Visible {
		return sel
	}
	return LayerNone
}

// Drag moves a layer's node by (dx, dy).
func (s *Surface) Drag(l Layer, dx, dy float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.nodeLocked(l)
	if err != nil {
		return err
	}
	n.X += dx
	n.Y += dy
	return nil
}

// Scale resizes the selected layer's node by (sx, sy) through its
// handles. A result smaller than TransformerMinBox is refused and the
// node keeps its previous box.
func (s *Surface) Scale(l Layer, sx, sy float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.handleNodeLocked(l)
	if err != nil {
		return err
	}
	w, h := n.Width*n.ScaleX*sx, n.Height*n.ScaleY*sy
	if w < TransformerMinBox || (n.Height > 0 && h < TransformerMinBox) {
		return nil
	}
	n.ScaleX *= sx
	n.ScaleY *= sy
	return nil
}

// Rotate turns the selected layer's node by deg degrees.
func (s *Surface) Rotate(l Layer, deg float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.handleNodeLocked(l)
	if err != nil {
		return err
	}
	n.Rotation += deg
	return nil
}

// EndGesture commits a layer's node transform: position and rotation are
// read from the node, scale is folded into width/height and reset to 1.
func (s *Surface) EndGesture(l Layer) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.nodeLocked(l)
	if err != nil {
		return State{}, err
	}
	ls, _ := s.disp.State().Layer(l)

	patch := LayerPatch{
		X:        Float(n.X),
		Y:        Float(n.Y),
		Width:    Float(ls.Width * n.ScaleX),
		Rotation: Float(n.Rotation),
	}
	if ls.Height > 0 {
		patch.Height = Float(ls.Height * n.ScaleY)
	}
	n.ScaleX, n.ScaleY = 1, 1

	st := s.disp.Dispatch(Update{Layer: l, Patch: patch})
	s.syncLocked(st)
	if l == LayerText && st.Text.Width != ls.Width {
		s.reshapeLocked()
	}
	return st, nil
}

// Dispatch applies an action from outside the surface, e.g. a client
// committing a gesture it tracked itself, and refreshes the nodes.
func (s *Surface) Dispatch(a Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	width := s.disp.State().Text.Width
	st := s.disp.Dispatch(a)
	s.syncLocked(st)
	if _, reset := a.(Reset); s.mounted && (reset || st.Text.Width != width) {
		s.reshapeLocked()
	}
	return st
}

// State returns the committed edit state.
func (s *Surface) State() State {
	return s.disp.State()
}

// RemountKey identifies the current text node instance; it changes when
// the text node is rebuilt rather than redrawn.
func (s *Surface) RemountKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remountKeyLocked()
}

func (s *Surface) remountKeyLocked() string {
	f := s.tmpl.Params.Title
	return fmt.Sprintf("%d-%s-%d-%d", s.id, f.FontFamily, f.FontWeight, s.remounts)
}

// Settle waits for pending text shaping and logo loads.
func (s *Surface) Settle(ctx context.Context) error {
	return s.pending.Wait(ctx)
}

// Close stops a pending remount.
func (s *Surface) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.remount != nil {
		s.remount.Stop()
		s.remount = nil
	}
}

// Scene is a snapshot of the surface for clients.
type Scene struct {
	ID          int              `json:"id"`
	Variant     template.Variant `json:"variant"`
	Canvas      template.Canvas  `json:"canvas"`
	State       State            `json:"state"`
	Nodes       []Node           `json:"nodes"`
	Transformer Layer            `json:"transformer"`
	RemountKey  string           `json:"remountKey"`
}

// Scene returns the current node tree.
func (s *Surface) Scene() Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc := Scene{
		ID:          s.id,
		Variant:     s.tmpl.Name,
		Canvas:      s.tmpl.Canvas,
		State:       s.disp.State(),
		Transformer: s.transformerLocked(),
		RemountKey:  s.remountKeyLocked(),
	}
	for _, l := range Layers {
		if n := s.nodes[l]; n != nil {
			sc.Nodes = append(sc.Nodes, *n)
		}
	}
	return sc
}

// Capture composes background, placeholder, text and logo at pixelRatio
// device pixels per canvas pixel. It refuses while transform handles are
// attached so they can never end up in an export.
func (s *Surface) Capture(pixelRatio float64) (*image.RGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return nil, ErrNotMounted
	}
	if s.transformerLocked() != LayerNone {
		return nil, ErrTransformerAttached
	}
	if pixelRatio <= 0 {
		pixelRatio = 1
	}

	w := int(math.Round(float64(s.tmpl.Canvas.Width) * pixelRatio))
	h := int(math.Round(float64(s.tmpl.Canvas.Height) * pixelRatio))
	dc := gg.NewContext(w, h)
	dc.Scale(pixelRatio, pixelRatio)

	vector.Draw(dc, pixelRatio, s.background...)
	if n := s.nodes[LayerImage]; n != nil && n.Visible {
		s.drawPlaceholder(dc, pixelRatio, n)
	}
	if n := s.nodes[LayerText]; n != nil && n.Visible {
		t := *s.text
		t.X, t.Y, t.Rotation = n.X, n.Y, n.Rotation
		vector.Draw(dc, pixelRatio, &t)
	}
	if n := s.nodes[LayerLogo]; n != nil && n.Visible {
		vector.Draw(dc, pixelRatio, &vector.Image{
			ID:        string(LayerLogo),
			Src:       s.logo,
			Box:       layout.Rect{Left: n.X, Top: n.Y, Width: n.Width * n.ScaleX, Height: n.Height * n.ScaleY},
			Placement: vector.Placement{Rotation: n.Rotation},
		})
	}
	return dc.Image().(*image.RGBA), nil
}

// drawPlaceholder maps the device bounds of the placeholder render onto
// the image node's box.
func (s *Surface) drawPlaceholder(dc *gg.Context, pixelRatio float64, n *Node) {
	dev := s.layout.DeviceBounds()
	if dev.Width <= 0 || dev.Height <= 0 {
		return
	}
	kx := n.Width * n.ScaleX / dev.Width
	ky := n.Height * n.ScaleY / dev.Height

	dc.Push()
	dc.Translate(n.X, n.Y)
	dc.Rotate(gg.Radians(n.Rotation))
	dc.Scale(kx, ky)
	dc.Translate(-dev.Left, -dev.Top)
	vector.Draw(dc, pixelRatio*math.Max(kx, ky), s.placeholder.Nodes...)
	dc.Pop()
}

func (s *Surface) nodeLocked(l Layer) (*Node, error) {
	if !s.mounted {
		return nil, ErrNotMounted
	}
	n := s.nodes[l]
	if n == nil {
		return nil, fmt.Errorf("editor: unknown layer %q", l)
	}
	if !n.Visible {
		return nil, ErrHidden
	}
	return n, nil
}

func (s *Surface) handleNodeLocked(l Layer) (*Node, error) {
	n, err := s.nodeLocked(l)
	if err != nil {
		return nil, err
	}
	if s.transformerLocked() != l {
		return nil, ErrNotSelected
	}
	return n, nil
}

// syncLocked rebuilds the nodes from committed state, dropping any
// uncommitted gesture.
func (s *Surface) syncLocked(st State) {
	for _, l := range Layers {
		ls, _ := st.Layer(l)
		s.nodes[l] = &Node{
			Layer:    l,
			X:        ls.X,
			Y:        ls.Y,
			Width:    ls.Width,
			Height:   ls.Height,
			ScaleX:   1,
			ScaleY:   1,
			Rotation: ls.Rotation,
		}
	}
	s.refreshLocked()
}

// refreshLocked updates what the nodes show after a content change. Node
// geometry is left alone so a gesture in progress survives renders, text
// shaping and logo loads.
func (s *Surface) refreshLocked() {
	st := s.disp.State()
	for _, l := range Layers {
		n := s.nodes[l]
		if n == nil {
			s.syncLocked(st)
			return
		}
		switch l {
		case LayerImage:
			n.Visible = s.placeholder != nil
		case LayerText:
			n.Visible = s.text != nil && s.text.Visible()
			if s.text != nil && st.Text.Height == 0 {
				n.Height = s.text.Height()
			}
		case LayerLogo:
			n.Visible = s.logo != nil && s.layout.Logo != nil
		}
	}
}

// reshapeLocked rebuilds the text node in the background. Completions of
// superseded requests are dropped.
func (s *Surface) reshapeLocked() {
	s.textVersion++
	if s.res == nil {
		return
	}
	v, id := s.textVersion, s.id
	f := s.tmpl.Params.Title
	ls := s.disp.State().Text
	anchor := layout.TextAnchor{X: ls.X, Y: ls.Y, Width: ls.Width}

	s.pending.Add()
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), shapeTimeout)
		defer cancel()

		t, err := s.res.ShapeTitle(ctx, f, anchor)
		if err != nil {
			logrus.WithField("screenshot", id).WithError(err).Warn("Text layer not rebuilt")
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if v != s.textVersion {
			return
		}
		s.text = t
		s.refreshLocked()
	}()
}

func (s *Surface) scheduleRemountLocked() {
	if s.remount != nil {
		s.remount.Stop()
	}
	s.remount = s.after(TextRemountDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.remounts++
		s.reshapeLocked()
	})
}

func (s *Surface) loadLogoLocked() {
	s.logoVersion++
	ref := logoURL(s.tmpl.Params)
	if ref == "" || s.res == nil || s.layout.Logo == nil {
		s.logo = nil
		s.refreshLocked()
		return
	}
	v := s.logoVersion

	s.pending.Add()
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), shapeTimeout)
		defer cancel()

		img := s.res.LoadImage(ctx, ref, string(LayerLogo))
		s.mu.Lock()
		defer s.mu.Unlock()
		if v != s.logoVersion {
			return
		}
		s.logo = img
		s.refreshLocked()
	}()
}

func logoURL(p template.Params) string {
	if p.Logo == nil {
		return ""
	}
	return p.Logo.URL
}
