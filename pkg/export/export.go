// Package export turns editing surfaces into PNG bytes and bundles them
// into a zip archive.
package export

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"sync/atomic"
	"time"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"

	"github.com/xob0t/ShotStencil/pkg/template"
)

const (
	// DefaultPixelRatio supersamples captures relative to the canvas.
	DefaultPixelRatio = 2
	// DefaultTick is the pause between detaching handles and capturing.
	DefaultTick = 50 * time.Millisecond
)

// ErrNoImages is returned when a batch produced nothing to archive.
var ErrNoImages = errors.New("no valid images were generated, wait and retry")

// Capturer is a surface that can be exported.
type Capturer interface {
	ClearSelection()
	Settle(ctx context.Context) error
	Capture(pixelRatio float64) (*image.RGBA, error)
}

// Item is one screenshot of a batch.
type Item struct {
	ID      int
	Variant template.Variant
	Surface Capturer
}

// FileName is the archive entry name of the item.
func (i Item) FileName() string {
	return fmt.Sprintf("screenshot-%d-%s.png", i.ID, i.Variant.FileStem())
}

// Result describes a batch export.
type Result struct {
	Archive   []byte `json:"-"`
	Name      string `json:"name"`
	Succeeded int    `json:"succeeded"`
	Total     int    `json:"total"`
	// Skipped is set when another batch was already running.
	Skipped bool `json:"skipped"`
}

// Exporter captures surfaces. A zero Exporter uses the defaults.
type Exporter struct {
	PixelRatio float64
	Tick       time.Duration
	Now        func() time.Time

	busy atomic.Bool
}

// New creates an exporter with the default tick.
func New(pixelRatio float64) *Exporter {
	return &Exporter{PixelRatio: pixelRatio, Tick: DefaultTick}
}

// ExportOne detaches the transform handles of c, lets it settle for one
// tick and returns the capture as PNG.
func (e *Exporter) ExportOne(ctx context.Context, c Capturer) ([]byte, error) {
	c.ClearSelection()
	if err := c.Settle(ctx); err != nil {
		return nil, err
	}
	if e.Tick > 0 {
		t := time.NewTimer(e.Tick)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		}
	}

	img, err := c.Capture(e.pixelRatio())
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportAll captures items one after another into a zip archive. Items
// that fail are skipped; the batch fails only when none succeeded. A call
// made while another batch runs returns a Skipped result.
func (e *Exporter) ExportAll(ctx context.Context, items []Item) (Result, error) {
	if !e.busy.CompareAndSwap(false, true) {
		logrus.Info("Export already running, ignoring request")
		return Result{Skipped: true}, nil
	}
	defer e.busy.Store(false)

	res := Result{Name: e.ArchiveName(), Total: len(items)}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		log := logrus.WithFields(logrus.Fields{"screenshot": it.ID, "variant": it.Variant})

		data, err := e.ExportOne(ctx, it.Surface)
		if err != nil {
			log.WithError(err).Warn("Capture failed, skipping")
			continue
		}
		w, err := zw.Create(it.FileName())
		if err != nil {
			return Result{}, err
		}
		if _, err := w.Write(data); err != nil {
			return Result{}, err
		}
		res.Succeeded++
	}
	if err := zw.Close(); err != nil {
		return Result{}, err
	}
	if res.Succeeded == 0 {
		return Result{}, ErrNoImages
	}

	res.Archive = buf.Bytes()
	logrus.WithFields(logrus.Fields{
		"archive":   res.Name,
		"succeeded": res.Succeeded,
		"total":     res.Total,
	}).Info("Export finished")
	return res, nil
}

// ArchiveName is "screenshots-YYYY-MM-DD.zip" for today.
func (e *Exporter) ArchiveName() string {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	return fmt.Sprintf("screenshots-%s.zip", now().Format("2006-01-02"))
}

func (e *Exporter) pixelRatio() float64 {
	if e.PixelRatio <= 0 {
		return DefaultPixelRatio
	}
	return e.PixelRatio
}
