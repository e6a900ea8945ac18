// Package server exposes one editing session over an HTTP API.
package server

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"

	"github.com/xob0t/ShotStencil/pkg/config"
	"github.com/xob0t/ShotStencil/pkg/editor"
	"github.com/xob0t/ShotStencil/pkg/export"
	"github.com/xob0t/ShotStencil/pkg/fonts"
	"github.com/xob0t/ShotStencil/pkg/session"
	"github.com/xob0t/ShotStencil/pkg/template"
)

const (
	maxUpload = 32 << 20
	// room for multipart framing around the file part
	formOverhead = 1 << 20
)

// FontLister lists the families offered to clients.
type FontLister interface {
	ListAvailableFonts(ctx context.Context, subset string, limit int) ([]fonts.FontInfo, error)
}

// Server holds the session behind the API.
type Server struct {
	Store    *session.Store
	Exporter *export.Exporter
	// Fonts may be nil; the font list is then empty.
	Fonts FontLister
	// MaxUpload caps the screenshot file size; 32 MiB when zero.
	MaxUpload int64
}

// RunServe starts the API server.
func RunServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", "", "listen address (default from SHOTSTENCIL_ADDR or :8080)")
	envFile := fs.String("env", ".env", "dotenv file to load")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if err := cfg.SetupLogging(); err != nil {
		return err
	}

	assets := session.NewAssets()
	store := session.New(assets, cfg.Renderer(assets))
	defer store.Close()

	s := &Server{Store: store, Exporter: export.New(cfg.PixelRatio)}
	if fc := cfg.FontClient(); fc != nil {
		s.Fonts = fc
	}

	hs := &http.Server{Addr: cfg.Addr, Handler: s.Router()}
	errc := make(chan error, 1)
	go func() {
		logrus.WithField("addr", cfg.Addr).Info("Starting server")
		errc <- hs.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errc:
		return err
	case <-stop:
	}
	logrus.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return hs.Shutdown(ctx)
}

// Router builds the API routes.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc:  localOrigin,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Content-Length"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/variants", s.handleVariants)
		r.Get("/fonts", s.handleFonts)
		r.Get("/platform", s.handleGetPlatform)
		r.Put("/platform", s.handleSetPlatform)
		r.Put("/background", s.handleAllBackgrounds)
		r.Get("/export.zip", s.handleExportAll)
		r.Get("/assets/{id}", s.handleGetAsset)

		r.Route("/screenshots", func(r chi.Router) {
			r.Get("/", s.handleList)
			r.Post("/", s.handleUpload)
			r.Delete("/", s.handleClear)
			r.Post("/reorder", s.handleReorder)
			r.Post("/reapply", s.handleReapply)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGet)
				r.Delete("/", s.handleRemove)
				r.Put("/variant", s.handleVariant)
				r.Patch("/params", s.handleParams)
				r.Put("/background", s.handleBackground)
				r.Get("/preview.svg", s.handlePreview)
				r.Get("/export.png", s.handleExportOne)

				r.Get("/editor", s.handleScene)
				r.Post("/editor/select", s.handleSelect)
				r.Post("/editor/gesture", s.handleGesture)
				r.Post("/editor/reset", s.handleReset)
			})
		})
	})
	return r
}

func localOrigin(_ *http.Request, origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return u.Scheme == "http" || u.Scheme == "https"
	}
	return false
}

// ── Screenshots ──

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.Store.Screenshots())
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := s.MaxUpload
	if limit <= 0 {
		limit = maxUpload
	}
	tooLarge := fmt.Errorf("upload exceeds %d bytes", limit)

	r.Body = http.MaxBytesReader(w, r.Body, limit+formOverhead)
	if err := r.ParseMultipartForm(limit); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			fail(w, r, http.StatusRequestEntityTooLarge, tooLarge)
			return
		}
		fail(w, r, http.StatusBadRequest, err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		fail(w, r, http.StatusBadRequest, errors.New("no file"))
		return
	}
	defer file.Close()
	if header.Size > limit {
		fail(w, r, http.StatusRequestEntityTooLarge, tooLarge)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		fail(w, r, http.StatusBadRequest, err)
		return
	}
	sc, err := s.Store.AddScreenshot(header.Filename, data)
	if err != nil {
		failFor(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, sc)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := screenshotID(w, r)
	if !ok {
		return
	}
	sc, err := s.Store.Screenshot(id)
	if err != nil {
		failFor(w, r, err)
		return
	}
	render.JSON(w, r, sc)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	id, ok := screenshotID(w, r)
	if !ok {
		return
	}
	if err := s.Store.RemoveScreenshot(id); err != nil {
		failFor(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.Store.ClearAll()
	w.WriteHeader(http.StatusNoContent)
}

type variantRequest struct {
	Variant template.Variant `json:"variant"`
}

func (s *Server) handleVariant(w http.ResponseWriter, r *http.Request) {
	id, ok := screenshotID(w, r)
	if !ok {
		return
	}
	var req variantRequest
	if !decode(w, r, &req) {
		return
	}
	respond(w, r)(s.Store.UpdateTemplate(id, req.Variant))
}

func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	id, ok := screenshotID(w, r)
	if !ok {
		return
	}
	var patch template.ParamsPatch
	if !decode(w, r, &patch) {
		return
	}
	respond(w, r)(s.Store.UpdateTemplateParams(id, patch))
}

func (s *Server) handleBackground(w http.ResponseWriter, r *http.Request) {
	id, ok := screenshotID(w, r)
	if !ok {
		return
	}
	var bg template.Background
	if !decode(w, r, &bg) {
		return
	}
	respond(w, r)(s.Store.UpdateTemplateBackground(id, bg))
}

func (s *Server) handleAllBackgrounds(w http.ResponseWriter, r *http.Request) {
	var bg template.Background
	if !decode(w, r, &bg) {
		return
	}
	if err := s.Store.UpdateAllBackgrounds(bg); err != nil {
		failFor(w, r, err)
		return
	}
	render.JSON(w, r, s.Store.Screenshots())
}

type reorderRequest struct {
	ActiveID int `json:"activeId"`
	OverID   int `json:"overId"`
}

func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if !decode(w, r, &req) {
		return
	}
	s.Store.Reorder(req.ActiveID, req.OverID)
	render.JSON(w, r, s.Store.Screenshots())
}

type platformRequest struct {
	Platform template.Platform `json:"platform"`
}

func (s *Server) handleReapply(w http.ResponseWriter, r *http.Request) {
	var req platformRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	if err := s.Store.ReapplyTemplatesByOrder(req.Platform); err != nil {
		failFor(w, r, err)
		return
	}
	render.JSON(w, r, s.Store.Screenshots())
}

func (s *Server) handleGetPlatform(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, platformRequest{Platform: s.Store.Platform()})
}

func (s *Server) handleSetPlatform(w http.ResponseWriter, r *http.Request) {
	var req platformRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.Store.SetPlatform(req.Platform); err != nil {
		failFor(w, r, err)
		return
	}
	render.JSON(w, r, req)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	id, ok := screenshotID(w, r)
	if !ok {
		return
	}
	sc, err := s.Store.Screenshot(id)
	if err != nil {
		failFor(w, r, err)
		return
	}
	if sc.Preview == nil {
		w.Header().Set("Retry-After", "1")
		fail(w, r, http.StatusServiceUnavailable, errors.New("preview not rendered yet"))
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	if err := sc.Preview.WriteSVG(w); err != nil {
		logrus.WithField("screenshot", id).WithError(err).Error("Failed to write preview")
	}
}

// ── Editor ──

func (s *Server) surface(w http.ResponseWriter, r *http.Request) (*editor.Surface, bool) {
	id, ok := screenshotID(w, r)
	if !ok {
		return nil, false
	}
	sf, err := s.Store.Surface(id)
	if err != nil {
		failFor(w, r, err)
		return nil, false
	}
	return sf, true
}

func (s *Server) handleScene(w http.ResponseWriter, r *http.Request) {
	if sf, ok := s.surface(w, r); ok {
		render.JSON(w, r, sf.Scene())
	}
}

type selectRequest struct {
	X     *float64      `json:"x,omitempty"`
	Y     *float64      `json:"y,omitempty"`
	Layer *editor.Layer `json:"layer,omitempty"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	sf, ok := s.surface(w, r)
	if !ok {
		return
	}
	var req selectRequest
	if !decode(w, r, &req) {
		return
	}
	switch {
	case req.Layer != nil:
		sf.Dispatch(editor.Select{Layer: *req.Layer})
	case req.X != nil && req.Y != nil:
		sf.PointerDown(*req.X, *req.Y)
	default:
		sf.ClearSelection()
	}
	render.JSON(w, r, sf.Scene())
}

type gestureRequest struct {
	Layer  editor.Layer `json:"layer"`
	DX     float64      `json:"dx"`
	DY     float64      `json:"dy"`
	ScaleX float64      `json:"scaleX"`
	ScaleY float64      `json:"scaleY"`
	Rotate float64      `json:"rotate"`
	// End commits the gesture to the edit state.
	End bool `json:"end"`
}

func (s *Server) handleGesture(w http.ResponseWriter, r *http.Request) {
	sf, ok := s.surface(w, r)
	if !ok {
		return
	}
	var req gestureRequest
	if !decode(w, r, &req) {
		return
	}
	if err := gesture(sf, req); err != nil {
		failFor(w, r, err)
		return
	}
	render.JSON(w, r, sf.Scene())
}

func gesture(sf *editor.Surface, req gestureRequest) error {
	if req.DX != 0 || req.DY != 0 {
		if err := sf.Drag(req.Layer, req.DX, req.DY); err != nil {
			return err
		}
	}
	if req.ScaleX != 0 || req.ScaleY != 0 {
		sx, sy := req.ScaleX, req.ScaleY
		if sx == 0 {
			sx = 1
		}
		if sy == 0 {
			sy = 1
		}
		if err := sf.Scale(req.Layer, sx, sy); err != nil {
			return err
		}
	}
	if req.Rotate != 0 {
		if err := sf.Rotate(req.Layer, req.Rotate); err != nil {
			return err
		}
	}
	if req.End {
		_, err := sf.EndGesture(req.Layer)
		return err
	}
	return nil
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sf, ok := s.surface(w, r)
	if !ok {
		return
	}
	if _, err := sf.Reset(); err != nil {
		failFor(w, r, err)
		return
	}
	render.JSON(w, r, sf.Scene())
}

// ── Export ──

func (s *Server) handleExportOne(w http.ResponseWriter, r *http.Request) {
	id, ok := screenshotID(w, r)
	if !ok {
		return
	}
	sc, err := s.Store.Screenshot(id)
	if err != nil {
		failFor(w, r, err)
		return
	}
	sf, err := s.Store.Surface(id)
	if err != nil {
		failFor(w, r, err)
		return
	}
	if err := s.Store.Wait(r.Context()); err != nil {
		failFor(w, r, err)
		return
	}
	data, err := s.Exporter.ExportOne(r.Context(), sf)
	if err != nil {
		failFor(w, r, err)
		return
	}
	name := export.Item{ID: sc.ID, Variant: sc.Template.Name}.FileName()
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.Write(data)
}

func (s *Server) handleExportAll(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.Wait(r.Context()); err != nil {
		failFor(w, r, err)
		return
	}
	var items []export.Item
	for _, sc := range s.Store.Screenshots() {
		sf, err := s.Store.Surface(sc.ID)
		if err != nil {
			continue
		}
		items = append(items, export.Item{ID: sc.ID, Variant: sc.Template.Name, Surface: sf})
	}

	res, err := s.Exporter.ExportAll(r.Context(), items)
	if err != nil {
		failFor(w, r, err)
		return
	}
	if res.Skipped {
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, res)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, res.Name))
	w.Header().Set("X-Exported", strconv.Itoa(res.Succeeded)+"/"+strconv.Itoa(res.Total))
	w.Write(res.Archive)
}

// ── Catalogue ──

type variantInfo struct {
	Name        template.Variant  `json:"name"`
	DisplayName string            `json:"displayName"`
	Platform    template.Platform `json:"platform"`
	HasLogo     bool              `json:"hasLogo"`
	Template    template.Template `json:"defaults"`
}

func (s *Server) handleVariants(w http.ResponseWriter, r *http.Request) {
	var out []variantInfo
	for _, v := range template.Variants() {
		t, _ := template.Defaults(v)
		out = append(out, variantInfo{
			Name:        v,
			DisplayName: v.DisplayName(),
			Platform:    v.Platform(),
			HasLogo:     v.HasLogo(),
			Template:    t,
		})
	}
	render.JSON(w, r, out)
}

func (s *Server) handleFonts(w http.ResponseWriter, r *http.Request) {
	if s.Fonts == nil {
		render.JSON(w, r, []fonts.FontInfo{})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := s.Fonts.ListAvailableFonts(r.Context(), r.URL.Query().Get("subset"), limit)
	if err != nil {
		logrus.WithError(err).Warn("Font list unavailable")
		list = []fonts.FontInfo{}
	}
	render.JSON(w, r, list)
}

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	a, ok := s.Store.Assets().Get(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", a.Mime)
	w.Write(a.Data)
}

// ── Helpers ──

type errorResponse struct {
	Error string `json:"error"`
}

func fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	log := logrus.WithFields(logrus.Fields{"path": r.URL.Path, "status": status}).WithError(err)
	if status >= 500 {
		log.Error("Request failed")
	} else {
		log.Debug("Request rejected")
	}
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: err.Error()})
}

func failFor(w http.ResponseWriter, r *http.Request, err error) {
	fail(w, r, statusFor(err), err)
}

func statusFor(err error) int {
	var verr *template.ValidationError
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &verr),
		errors.Is(err, template.ErrUnknownVariant),
		errors.Is(err, session.ErrNotImage),
		errors.Is(err, session.ErrUnknownPlatform):
		return http.StatusBadRequest
	case errors.Is(err, export.ErrNoImages):
		return http.StatusUnprocessableEntity
	case errors.Is(err, editor.ErrNotSelected),
		errors.Is(err, editor.ErrHidden),
		errors.Is(err, editor.ErrNotMounted),
		errors.Is(err, editor.ErrTransformerAttached):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func respond(w http.ResponseWriter, r *http.Request) func(session.Screenshot, error) {
	return func(sc session.Screenshot, err error) {
		if err != nil {
			failFor(w, r, err)
			return
		}
		render.JSON(w, r, sc)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		fail(w, r, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func screenshotID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		fail(w, r, http.StatusBadRequest, fmt.Errorf("invalid screenshot id %q", chi.URLParam(r, "id")))
		return 0, false
	}
	return id, true
}
