package session

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/xob0t/ShotStencil/pkg/render"
	"github.com/xob0t/ShotStencil/pkg/template"
	"github.com/xob0t/ShotStencil/pkg/vector"
)

type job struct {
	rev  uint64
	tmpl template.Template
}

// worker renders one screenshot. At most one render runs per screenshot;
// requests arriving meanwhile collapse into the latest one and cancel the
// running render. A completion whose revision is no longer current is
// dropped. Fields are guarded by the store mutex.
type worker struct {
	store *Store
	entry *entry

	running bool
	stopped bool
	pending *job
	cancel  context.CancelFunc
}

func (w *worker) request(rev uint64, t template.Template) {
	if w.stopped {
		return
	}
	w.pending = &job{rev: rev, tmpl: t}
	if w.running {
		if w.cancel != nil {
			w.cancel()
		}
		return
	}
	w.running = true
	w.store.renders.Add()
	go w.run()
}

func (w *worker) stop() {
	w.stopped = true
	w.pending = nil
	if w.cancel != nil {
		w.cancel()
	}
}

func (w *worker) run() {
	defer w.store.renders.Done()
	for {
		w.store.mu.Lock()
		j := w.pending
		if j == nil || w.stopped {
			w.running = false
			w.store.mu.Unlock()
			return
		}
		w.pending = nil
		ctx, cancel := context.WithCancel(w.store.ctx)
		w.cancel = cancel
		w.store.mu.Unlock()

		preview, placeholder, err := w.render(ctx, j.tmpl)
		cancel()

		w.store.mu.Lock()
		w.cancel = nil
		w.apply(j, preview, placeholder, err)
		w.store.mu.Unlock()
	}
}

func (w *worker) render(ctx context.Context, t template.Template) (preview, placeholder *vector.Document, err error) {
	preview, err = w.store.renderer.Render(ctx, t, render.Export)
	if err != nil {
		return nil, nil, err
	}
	placeholder, err = w.store.renderer.Render(ctx, t, render.Placeholder)
	if err != nil {
		return nil, nil, err
	}
	return preview, placeholder, nil
}

func (w *worker) apply(j *job, preview, placeholder *vector.Document, err error) {
	e := w.entry
	log := logrus.WithFields(logrus.Fields{"screenshot": e.ID, "revision": j.rev})
	switch {
	case w.stopped || j.rev != e.Revision:
		log.WithField("current", e.Revision).Debug("Stale render discarded")
	case err != nil:
		log.WithError(err).Warn("Render failed, keeping last preview")
	default:
		e.Preview, e.Placeholder = preview, placeholder
		e.surface.SetPlaceholder(placeholder)
		log.Debug("Preview updated")
	}
}
