package fonts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/gomedium"

	"github.com/xob0t/ShotStencil/pkg/template"
)

func newAPI(t *testing.T) (*Client, *httptest.Server) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/webfonts", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.URL.Query().Get("key"))
		items := []webfont{
			{Family: "Inter", Variants: []string{"regular", "700", "700italic"}, Subsets: []string{"latin"},
				Files: map[string]string{"regular": "http://" + r.Host + "/inter-400.ttf", "700": "http://" + r.Host + "/inter-700.ttf"}},
			{Family: "Noto Sans JP", Variants: []string{"300", "regular"}, Subsets: []string{"japanese"}},
			{Family: "Poppins", Variants: []string{"100", "regular"}, Subsets: []string{"latin", "latin-ext"}},
		}
		if fam := r.URL.Query().Get("family"); fam != "" {
			var filtered []webfont
			for _, it := range items {
				if it.Family == fam {
					filtered = append(filtered, it)
				}
			}
			items = filtered
		}
		_ = json.NewEncoder(w).Encode(webfontList{Items: items})
	})
	mux.HandleFunc("/inter-700.ttf", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(gomedium.TTF)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := NewClient("k", time.Second)
	c.BaseURL = srv.URL + "/webfonts"
	return c, srv
}

func TestGetFontURL(t *testing.T) {
	c, srv := newAPI(t)
	ctx := context.Background()

	u, err := c.GetFontURL(ctx, "Inter", 700)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/inter-700.ttf", u)

	u, err = c.GetFontURL(ctx, "Inter", 300)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/inter-400.ttf", u, "missing weight falls back to regular")

	u, err = c.GetFontURL(ctx, "Nope", 400)
	require.NoError(t, err)
	assert.Empty(t, u)
}

func TestGetFontURLWithoutKey(t *testing.T) {
	c := NewClient("", time.Second)
	c.BaseURL = "http://127.0.0.1:1/never-called"
	u, err := c.GetFontURL(context.Background(), "Inter", 400)
	assert.NoError(t, err)
	assert.Empty(t, u)

	_, err = c.ListAvailableFonts(context.Background(), "latin", 10)
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestListAvailableFonts(t *testing.T) {
	c, _ := newAPI(t)
	list, err := c.ListAvailableFonts(context.Background(), "", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, FontInfo{Family: "Inter", Weights: []int{400, 700}, Subset: "latin"}, list[0])
	assert.Equal(t, []int{100, 400}, list[1].Weights)

	list, err = c.ListAvailableFonts(context.Background(), "latin", 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestLoad(t *testing.T) {
	c, _ := newAPI(t)
	data, err := c.Load(context.Background(), "Inter", 700)
	require.NoError(t, err)
	assert.Equal(t, gomedium.TTF, data)

	_, err = c.Load(context.Background(), "Nope", 700)
	assert.ErrorIs(t, err, ErrNotFound)
}

type fakeSource struct {
	calls atomic.Int32
}

func (f *fakeSource) Load(_ context.Context, family string, weight int) ([]byte, error) {
	f.calls.Add(1)
	if family == "broken" {
		return nil, errors.New("boom")
	}
	return gomedium.TTF, nil
}

func TestManagerResolveToleratesFailures(t *testing.T) {
	src := &fakeSource{}
	m := NewManager(src)
	refs := []template.FontRef{{Family: "inter", Weight: 800}, {Family: "broken", Weight: 400}}

	got, err := m.Resolve(context.Background(), refs)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.NotNil(t, got[refs[0]])
	assert.Nil(t, got[refs[1]])

	// cached, including the miss
	_, _ = m.Resolve(context.Background(), refs)
	assert.Equal(t, int32(2), src.calls.Load())

	fb := Lookup(got, refs[1])
	assert.True(t, fb.Fallback)
	assert.False(t, Lookup(got, refs[0]).Fallback)
}

func TestManagerWithoutSource(t *testing.T) {
	got, err := NewManager(nil).Resolve(context.Background(), []template.FontRef{{Family: "inter", Weight: 400}})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFallbackFaces(t *testing.T) {
	assert.Equal(t, 700, Fallback(900).Weight)
	assert.Equal(t, 400, Fallback(300).Weight)

	face, err := Fallback(400).Face(32)
	require.NoError(t, err)
	assert.Positive(t, face.Metrics().Height.Ceil())
}
