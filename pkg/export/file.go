// file.go: writes a rendered document to disk or a stream.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/xob0t/ShotStencil/pkg/vector"
)

// WriteFile writes doc to output. The format is inferred from the file
// extension:
//   - ".svg" → the vector document
//   - ".png", ".jpg", ".gif", ".tif", ".bmp" → doc rasterized at scale
func WriteFile(output string, doc *vector.Document, scale float64) error {
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create %s: %w", output, err)
	}
	if err := Encode(f, filepath.Ext(output), doc, scale); err != nil {
		f.Close()
		os.Remove(output)
		return err
	}
	return f.Close()
}

// Encode writes doc to w in the format named by ext. This is useful for
// in-memory output (e.g. WASM).
func Encode(w io.Writer, ext string, doc *vector.Document, scale float64) error {
	ext = strings.ToLower(ext)
	if ext == ".svg" {
		return doc.WriteSVG(w)
	}

	format, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return fmt.Errorf("unsupported format %q: use .png or .svg", ext)
	}
	if scale <= 0 {
		scale = 1
	}
	img, err := vector.Rasterize(doc, scale)
	if err != nil {
		return err
	}
	if err := imaging.Encode(w, img, format); err != nil {
		return fmt.Errorf("encode %s: %w", format, err)
	}
	return nil
}
