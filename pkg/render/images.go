package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// AssetScheme prefixes URLs of uploaded blobs ("asset:<id>").
const AssetScheme = "asset:"

const maxImageBytes = 64 << 20

// ErrNoImage is returned for an empty image URL.
var ErrNoImage = errors.New("no image")

// ImageLoader decodes the image behind a template URL.
type ImageLoader interface {
	Load(ctx context.Context, ref string) (image.Image, error)
}

// Blobs looks up uploaded image bytes by id.
type Blobs interface {
	Blob(id string) ([]byte, bool)
}

// Loader resolves builtin:, asset:, data:, http(s) and file URLs. PNG,
// JPEG, GIF, BMP, TIFF and WebP are decoded; SVG is not. Decoded images
// are cached by URL.
type Loader struct {
	Blobs Blobs
	HTTP  *http.Client
	// AllowFiles enables bare paths and file:// URLs.
	AllowFiles bool

	mu    sync.Mutex
	cache map[string]image.Image
}

// NewLoader creates a loader with an HTTP timeout.
func NewLoader(blobs Blobs, timeout time.Duration, allowFiles bool) *Loader {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Loader{
		Blobs:      blobs,
		HTTP:       &http.Client{Timeout: timeout},
		AllowFiles: allowFiles,
		cache:      make(map[string]image.Image),
	}
}

// Load implements ImageLoader.
func (l *Loader) Load(ctx context.Context, ref string) (image.Image, error) {
	if ref == "" {
		return nil, ErrNoImage
	}
	l.mu.Lock()
	img, ok := l.cache[ref]
	l.mu.Unlock()
	if ok {
		return img, nil
	}

	if strings.HasPrefix(ref, builtinScheme) {
		img, err := builtinImage(ref)
		if err != nil {
			return nil, err
		}
		l.store(ref, img)
		return img, nil
	}

	data, err := l.read(ctx, ref)
	if err != nil {
		return nil, err
	}
	img, err = imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", short(ref), err)
	}
	l.store(ref, img)
	return img, nil
}

func (l *Loader) store(ref string, img image.Image) {
	l.mu.Lock()
	if l.cache == nil {
		l.cache = make(map[string]image.Image)
	}
	l.cache[ref] = img
	l.mu.Unlock()
}

// Forget drops a cached image, e.g. after its blob was deleted.
func (l *Loader) Forget(ref string) {
	l.mu.Lock()
	delete(l.cache, ref)
	l.mu.Unlock()
}

func (l *Loader) read(ctx context.Context, ref string) ([]byte, error) {
	switch {
	case strings.HasPrefix(ref, AssetScheme):
		id := strings.TrimPrefix(ref, AssetScheme)
		if l.Blobs == nil {
			return nil, fmt.Errorf("asset %s: no blob store", id)
		}
		data, ok := l.Blobs.Blob(id)
		if !ok {
			return nil, fmt.Errorf("asset %s: not found", id)
		}
		return data, nil
	case strings.HasPrefix(ref, "data:"):
		return decodeDataURL(ref)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return l.download(ctx, ref)
	}

	if !l.AllowFiles {
		return nil, fmt.Errorf("unsupported image URL %q", short(ref))
	}
	path := ref
	if u, err := url.Parse(ref); err == nil && u.Scheme == "file" {
		path = u.Path
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return data, nil
}

func (l *Loader) download(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	client := l.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: status %d", u, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
}

// decodeDataURL handles base64 and percent-encoded payloads. The media
// type is not checked; the bytes must still decode as a raster image, so
// SVG data URLs are refused by the decoder.
func decodeDataURL(ref string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return nil, errors.New("data URL has no payload")
	}
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("data URL: %w", err)
		}
		return data, nil
	}
	text, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("data URL: %w", err)
	}
	return []byte(text), nil
}

func short(ref string) string {
	if len(ref) > 48 {
		return ref[:48] + "..."
	}
	return ref
}
