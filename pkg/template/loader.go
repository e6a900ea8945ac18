// loader.go: Load templates from JSON files and .shotbundle (ZIP) archives.
package template

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

// Bundle is a template plus the screenshot it was made for.
type Bundle struct {
	Template       *Template
	Screenshot     []byte
	ScreenshotName string
}

const (
	bundleTemplateName  = "template.json"
	maxBundleEntrySize  = 64 << 20
	bundleScreenshotKey = "screenshot"
)

// LoadTemplate reads and validates a template JSON file.
func LoadTemplate(p string) (*Template, []string, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", p, err)
	}
	return Validate(data)
}

// LoadBundle opens a .shotbundle archive holding template.json and an
// optional screenshot.{png,jpg,jpeg}.
func LoadBundle(p string) (*Bundle, []string, error) {
	r, err := zip.OpenReader(p)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", p, err)
	}
	defer r.Close()

	var (
		b       Bundle
		rawTmpl []byte
	)
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}

		// Guard against zip slip: only flat entries are accepted.
		name := path.Clean(f.Name)
		if name != path.Base(name) || strings.HasPrefix(name, ".") {
			return nil, nil, fmt.Errorf("illegal path in bundle: %s", f.Name)
		}

		switch {
		case name == bundleTemplateName:
			rawTmpl, err = readEntry(f)
		case strings.TrimSuffix(name, path.Ext(name)) == bundleScreenshotKey:
			b.Screenshot, err = readEntry(f)
			b.ScreenshotName = name
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
	}

	if rawTmpl == nil {
		return nil, nil, fmt.Errorf("no %s found in %s", bundleTemplateName, p)
	}
	t, warnings, err := Validate(rawTmpl)
	if err != nil {
		return nil, warnings, err
	}
	b.Template = t
	return &b, warnings, nil
}

// WriteBundle writes t and an optional screenshot as a .shotbundle archive.
func WriteBundle(w io.Writer, t Template, screenshot []byte, screenshotExt string) error {
	zw := zip.NewWriter(w)

	tw, err := zw.Create(bundleTemplateName)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(tw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t); err != nil {
		return fmt.Errorf("encode template: %w", err)
	}

	if len(screenshot) > 0 {
		if screenshotExt == "" {
			screenshotExt = ".png"
		}
		sw, err := zw.Create(bundleScreenshotKey + screenshotExt)
		if err != nil {
			return err
		}
		if _, err := io.Copy(sw, bytes.NewReader(screenshot)); err != nil {
			return err
		}
	}
	return zw.Close()
}

// readEntry reads a single zip entry, refusing oversized entries.
func readEntry(f *zip.File) ([]byte, error) {
	if f.UncompressedSize64 > maxBundleEntrySize {
		return nil, fmt.Errorf("entry too large (%d bytes)", f.UncompressedSize64)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, maxBundleEntrySize))
}
