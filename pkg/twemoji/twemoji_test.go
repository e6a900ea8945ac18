package twemoji

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIconID(t *testing.T) {
	cases := map[string]string{
		"\U0001F600":                       "1f600",
		"\u2764\ufe0f":                     "2764",
		"\U0001F468\u200d\U0001F4BB":       "1f468-200d-1f4bb",
		"\U0001F3F3\ufe0f\u200d\U0001F308": "1f3f3-fe0f-200d-1f308",
		"\U0001F44D\U0001F3FD":             "1f44d-1f3fd",
	}
	for in, want := range cases {
		assert.Equal(t, want, IconID(in), "%q", in)
	}
}

func TestSplit(t *testing.T) {
	segs := Split("Plan your week \U0001F600\U0001F60E")
	var emojis []string
	var text string
	for _, s := range segs {
		if s.Emoji {
			emojis = append(emojis, s.Text)
		} else {
			text += s.Text
		}
	}
	assert.Equal(t, []string{"\U0001F600", "\U0001F60E"}, emojis)
	assert.Equal(t, "Plan your week ", text)

	assert.Empty(t, Split(""))
}

func TestLoadGlyph(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 72, 72))))
	pngBytes := buf.Bytes()

	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/svg/1f600.svg", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`<svg xmlns="http://www.w3.org/2000/svg"/>`))
	})
	mux.HandleFunc("/72x72/1f600.png", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write(pngBytes)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := New(srv.URL+"/", time.Second)
	g := s.LoadGlyph(context.Background(), "1f600")
	require.NotNil(t, g)
	assert.Contains(t, string(g.SVG), "<svg")
	require.NotNil(t, g.Raster)
	assert.Equal(t, 72, g.Raster.Bounds().Dx())

	// cached
	assert.Same(t, g, s.LoadGlyph(context.Background(), "1f600"))
	assert.Equal(t, int32(2), hits.Load())

	assert.Nil(t, s.LoadGlyph(context.Background(), "ffff"))
	assert.Nil(t, s.LoadGlyph(context.Background(), ""))

	var nilSvc *Service
	assert.Nil(t, nilSvc.LoadGlyph(context.Background(), "1f600"))
}
