package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xob0t/ShotStencil/pkg/editor"
	"github.com/xob0t/ShotStencil/pkg/layout"
	"github.com/xob0t/ShotStencil/pkg/render"
	"github.com/xob0t/ShotStencil/pkg/template"
	"github.com/xob0t/ShotStencil/pkg/vector"
)

type fakeRenderer struct {
	mu    sync.Mutex
	gate  chan struct{}
	calls int
}

func (f *fakeRenderer) Render(ctx context.Context, t template.Template, mode render.Mode) (*vector.Document, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if t.Params.Title.Text == "boom" {
		return nil, errors.New("boom")
	}
	return &vector.Document{
		Width:  t.Canvas.Width,
		Height: t.Canvas.Height,
		Nodes:  []vector.Node{&vector.Text{ID: t.Params.Title.Text}},
	}, nil
}

func (f *fakeRenderer) ShapeTitle(context.Context, template.TextField, layout.TextAnchor) (*vector.Text, error) {
	return nil, errors.New("no text in tests")
}

func (f *fakeRenderer) LoadImage(context.Context, string, string) image.Image { return nil }

func upload(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 4, 8))))
	return buf.Bytes()
}

func wait(t *testing.T, s *Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
}

func titled(text string) template.ParamsPatch {
	return template.ParamsPatch{Title: &template.TextField{
		Text: text, FontFamily: "inter", FontWeight: 700, FontSize: 60, Color: "#111",
	}}
}

func TestAddScreenshotRotatesVariants(t *testing.T) {
	s := New(nil, nil)
	a, err := s.AddScreenshot("a.png", upload(t))
	require.NoError(t, err)
	b, err := s.AddScreenshot("b.png", upload(t))
	require.NoError(t, err)

	rot := template.Rotation(template.PlatformApple)
	assert.Equal(t, 1, a.ID)
	assert.Equal(t, rot[0], a.Template.Name)
	assert.Equal(t, 2, b.ID)
	assert.Equal(t, rot[1], b.Template.Name)
	assert.Equal(t, render.AssetScheme+a.Asset, a.Template.Params.Screenshot.URL)

	_, ok := s.Assets().Blob(a.Asset)
	assert.True(t, ok)

	_, err = s.AddScreenshot("notes.txt", []byte("hello"))
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestIDsAreNotReused(t *testing.T) {
	s := New(nil, nil)
	for range 3 {
		_, err := s.AddScreenshot("x.png", upload(t))
		require.NoError(t, err)
	}
	require.NoError(t, s.RemoveScreenshot(3))
	require.NoError(t, s.RemoveScreenshot(1))
	assert.ErrorIs(t, s.RemoveScreenshot(1), ErrNotFound)

	c, err := s.AddScreenshot("y.png", upload(t))
	require.NoError(t, err)
	assert.Equal(t, 3, c.ID)
	assert.Len(t, s.Assets().List(), 2)
}

func TestAndroidRotation(t *testing.T) {
	s := New(nil, nil)
	require.NoError(t, s.SetPlatform(template.PlatformAndroid))
	assert.ErrorIs(t, s.SetPlatform("windows"), ErrUnknownPlatform)

	var got []template.Variant
	for range 3 {
		sc, err := s.AddScreenshot("x.png", upload(t))
		require.NoError(t, err)
		got = append(got, sc.Template.Name)
	}
	rot := template.Rotation(template.PlatformAndroid)
	assert.Equal(t, []template.Variant{rot[0], rot[1], rot[0]}, got)
}

func TestUpdateAllBackgrounds(t *testing.T) {
	s := New(nil, nil)
	for range 3 {
		_, err := s.AddScreenshot("x.png", upload(t))
		require.NoError(t, err)
	}
	bg := template.Background{Type: template.BackgroundColor, Color: "#000000", Noise: 0.2}
	require.NoError(t, s.UpdateAllBackgrounds(bg))
	for _, sc := range s.Screenshots() {
		assert.Equal(t, bg, sc.Template.Background)
	}

	bad := template.Background{Type: template.BackgroundLinearGradient, Direction: template.ToTop}
	assert.Error(t, s.UpdateAllBackgrounds(bad))
	assert.Equal(t, bg, s.Screenshots()[0].Template.Background)
}

func TestReorderThenReapply(t *testing.T) {
	s := New(nil, nil)
	a, _ := s.AddScreenshot("a.png", upload(t))
	b, _ := s.AddScreenshot("b.png", upload(t))

	bg := template.Background{Type: template.BackgroundColor, Color: "#123456"}
	_, err := s.UpdateTemplateBackground(b.ID, bg)
	require.NoError(t, err)

	s.Reorder(b.ID, a.ID)
	list := s.Screenshots()
	require.Len(t, list, 2)
	assert.Equal(t, []int{2, 1}, []int{list[0].ID, list[1].ID})

	s.Reorder(b.ID, 99)
	assert.Equal(t, 2, s.Screenshots()[0].ID, "unknown ids are ignored")

	require.NoError(t, s.ReapplyTemplatesByOrder(""))
	rot := template.Rotation(template.PlatformApple)
	list = s.Screenshots()
	assert.Equal(t, rot[0], list[0].Template.Name)
	assert.Equal(t, rot[1], list[1].Template.Name)
	assert.Equal(t, b.Template.Params.Screenshot.URL, list[0].Template.Params.Screenshot.URL)
	assert.Equal(t, a.Template.Params.Screenshot.URL, list[1].Template.Params.Screenshot.URL)
	assert.Equal(t, bg, list[0].Template.Background)
	assert.Equal(t, a.Template.Background, list[1].Template.Background)
}

func TestSwitchVariantResetsEditState(t *testing.T) {
	s := New(nil, nil)
	a, _ := s.AddScreenshot("a.png", upload(t))

	_, err := s.Dispatch(a.ID, editor.Update{Layer: editor.LayerText, Patch: editor.LayerPatch{X: editor.Float(-40)}})
	require.NoError(t, err)
	st, _ := s.EditState(a.ID)
	assert.Equal(t, -40.0, st.Text.X)

	sc, err := s.UpdateTemplate(a.ID, template.AppleRotated)
	require.NoError(t, err)
	assert.Equal(t, a.Template.Params.Screenshot.URL, sc.Template.Params.Screenshot.URL)
	assert.Equal(t, a.Template.Params.Title.Text, sc.Template.Params.Title.Text)

	l, err := layout.Compute(sc.Template)
	require.NoError(t, err)
	st, _ = s.EditState(a.ID)
	assert.Equal(t, editor.Initial(l), st)

	_, err = s.UpdateTemplate(a.ID, "apple:nope")
	assert.ErrorIs(t, err, template.ErrUnknownVariant)
	_, err = s.EditState(42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInvalidParamsKeepTemplate(t *testing.T) {
	s := New(nil, nil)
	a, _ := s.AddScreenshot("a.png", upload(t))

	patch := titled("x")
	patch.Title.FontSize = -1
	sc, err := s.UpdateTemplateParams(a.ID, patch)
	assert.Error(t, err)
	assert.Equal(t, a.Template, sc.Template)
	assert.Equal(t, a.Revision, sc.Revision)
}

func TestRendersKeepLatestAndLastGood(t *testing.T) {
	r := &fakeRenderer{gate: make(chan struct{})}
	s := New(nil, r)
	defer s.Close()

	a, err := s.AddScreenshot("a.png", upload(t))
	require.NoError(t, err)

	// both changes land while the first render is blocked
	_, err = s.UpdateTemplateParams(a.ID, titled("first"))
	require.NoError(t, err)
	_, err = s.UpdateTemplateParams(a.ID, titled("second"))
	require.NoError(t, err)
	close(r.gate)
	wait(t, s)

	sc, err := s.Screenshot(a.ID)
	require.NoError(t, err)
	require.NotNil(t, sc.Preview)
	require.NotNil(t, sc.Placeholder)
	assert.Equal(t, "second", sc.Preview.Nodes[0].Name())

	_, err = s.UpdateTemplateParams(a.ID, titled("boom"))
	require.NoError(t, err)
	wait(t, s)
	sc, _ = s.Screenshot(a.ID)
	assert.Equal(t, "second", sc.Preview.Nodes[0].Name(), "a failed render keeps the last good preview")
}

func TestClearAll(t *testing.T) {
	s := New(nil, &fakeRenderer{})
	defer s.Close()
	for range 2 {
		_, err := s.AddScreenshot("x.png", upload(t))
		require.NoError(t, err)
	}
	wait(t, s)
	s.ClearAll()
	assert.Empty(t, s.Screenshots())
	assert.Empty(t, s.Assets().List())
}

func TestEditsNotBlockedByRender(t *testing.T) {
	r := &fakeRenderer{gate: make(chan struct{})}
	s := New(nil, r)
	defer s.Close()

	a, err := s.AddScreenshot("a.png", upload(t))
	require.NoError(t, err)
	_, err = s.UpdateTemplateParams(a.ID, titled("slow"))
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := s.Dispatch(a.ID, editor.Update{Layer: editor.LayerText, Patch: editor.LayerPatch{X: editor.Float(-40)}})
		assert.NoError(t, err)
		sf, err := s.Surface(a.ID)
		if !assert.NoError(t, err) {
			return
		}
		_, err = sf.Reset()
		assert.NoError(t, err)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("edits blocked by a running render")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Wait(ctx), context.DeadlineExceeded)

	sc, _ := s.Screenshot(a.ID)
	l, err := layout.Compute(sc.Template)
	require.NoError(t, err)
	st, _ := s.EditState(a.ID)
	assert.Equal(t, editor.Initial(l), st)

	close(r.gate)
	wait(t, s)
	sc, _ = s.Screenshot(a.ID)
	require.NotNil(t, sc.Preview)
	assert.Equal(t, "slow", sc.Preview.Nodes[0].Name())
}

func TestWaitConcurrentWithUpdates(t *testing.T) {
	s := New(nil, &fakeRenderer{})
	defer s.Close()
	a, err := s.AddScreenshot("a.png", upload(t))
	require.NoError(t, err)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
				_ = s.Wait(ctx)
				cancel()
			}
		}()
	}

	for i := range 500 {
		_, err := s.UpdateTemplateParams(a.ID, titled(fmt.Sprintf("title %d", i)))
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()

	wait(t, s)
	sc, _ := s.Screenshot(a.ID)
	require.NotNil(t, sc.Preview)
	assert.Equal(t, "title 499", sc.Preview.Nodes[0].Name())
}
