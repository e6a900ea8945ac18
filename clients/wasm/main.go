//go:build js && wasm

// ShotStencil WASM: the session commands for in-browser editors.
// Compiled with: GOOS=js GOARCH=wasm go build -o shotstencil.wasm ./clients/wasm/
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"syscall/js"

	"github.com/sirupsen/logrus"

	"github.com/xob0t/ShotStencil/pkg/config"
	"github.com/xob0t/ShotStencil/pkg/editor"
	"github.com/xob0t/ShotStencil/pkg/export"
	"github.com/xob0t/ShotStencil/pkg/session"
	"github.com/xob0t/ShotStencil/pkg/template"
)

var (
	store    *session.Store
	exporter *export.Exporter
)

func main() {
	cfg := config.Defaults()
	if err := cfg.SetupLogging(); err != nil {
		fmt.Println(err)
	}
	assets := session.NewAssets()
	store = session.New(assets, cfg.Renderer(assets))
	exporter = export.New(cfg.PixelRatio)

	funcs := map[string]func(args []js.Value) (any, error){
		"goAddScreenshot":       addScreenshot,
		"goRemoveScreenshot":    removeScreenshot,
		"goClearAll":            clearAll,
		"goUpdateTemplate":      updateTemplate,
		"goUpdateParams":        updateParams,
		"goUpdateBackground":    updateBackground,
		"goUpdateAllBackground": updateAllBackgrounds,
		"goReorder":             reorder,
		"goReapply":             reapply,
		"goSetPlatform":         setPlatform,
		"goScreenshots":         screenshots,
		"goPreviewSVG":          previewSVG,
		"goEditor":              editorOp,
		"goExportPNG":           exportPNG,
		"goExportAll":           exportAll,
	}
	for name, fn := range funcs {
		js.Global().Set(name, promise(fn))
	}
	js.Global().Set("goReady", js.ValueOf(true))
	logrus.Info("ShotStencil WASM loaded")

	// Block forever (WASM must not exit).
	select {}
}

// promise runs fn off the JS event loop: fonts and emoji are fetched over
// the network, which needs the loop to stay free. Results are JSON.
func promise(fn func(args []js.Value) (any, error)) js.Func {
	return js.FuncOf(func(this js.Value, args []js.Value) any {
		return js.Global().Get("Promise").New(js.FuncOf(func(_ js.Value, pa []js.Value) any {
			resolve, reject := pa[0], pa[1]
			go func() {
				out, err := fn(args)
				if err != nil {
					reject.Invoke(js.Global().Get("Error").New(err.Error()))
					return
				}
				switch v := out.(type) {
				case string:
					resolve.Invoke(v)
				default:
					data, err := json.Marshal(v)
					if err != nil {
						reject.Invoke(js.Global().Get("Error").New(err.Error()))
						return
					}
					resolve.Invoke(string(data))
				}
			}()
			return nil
		}))
	})
}

func need(args []js.Value, n int, names string) error {
	if len(args) < n {
		return fmt.Errorf("need %s", names)
	}
	return nil
}

func unmarshalArg(v js.Value, out any) error {
	if err := json.Unmarshal([]byte(v.String()), out); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	return nil
}

// goAddScreenshot(name, base64Data)
func addScreenshot(args []js.Value) (any, error) {
	if err := need(args, 2, "name, base64Data"); err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(args[1].String())
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}
	return store.AddScreenshot(args[0].String(), data)
}

// goRemoveScreenshot(id)
func removeScreenshot(args []js.Value) (any, error) {
	if err := need(args, 1, "id"); err != nil {
		return nil, err
	}
	return "ok", store.RemoveScreenshot(args[0].Int())
}

// goClearAll()
func clearAll([]js.Value) (any, error) {
	store.ClearAll()
	return "ok", nil
}

// goUpdateTemplate(id, variant)
func updateTemplate(args []js.Value) (any, error) {
	if err := need(args, 2, "id, variant"); err != nil {
		return nil, err
	}
	return store.UpdateTemplate(args[0].Int(), template.Variant(args[1].String()))
}

// goUpdateParams(id, patchJSON)
func updateParams(args []js.Value) (any, error) {
	if err := need(args, 2, "id, patchJSON"); err != nil {
		return nil, err
	}
	var patch template.ParamsPatch
	if err := unmarshalArg(args[1], &patch); err != nil {
		return nil, err
	}
	return store.UpdateTemplateParams(args[0].Int(), patch)
}

// goUpdateBackground(id, backgroundJSON)
func updateBackground(args []js.Value) (any, error) {
	if err := need(args, 2, "id, backgroundJSON"); err != nil {
		return nil, err
	}
	var bg template.Background
	if err := unmarshalArg(args[1], &bg); err != nil {
		return nil, err
	}
	return store.UpdateTemplateBackground(args[0].Int(), bg)
}

// goUpdateAllBackground(backgroundJSON)
func updateAllBackgrounds(args []js.Value) (any, error) {
	if err := need(args, 1, "backgroundJSON"); err != nil {
		return nil, err
	}
	var bg template.Background
	if err := unmarshalArg(args[0], &bg); err != nil {
		return nil, err
	}
	if err := store.UpdateAllBackgrounds(bg); err != nil {
		return nil, err
	}
	return store.Screenshots(), nil
}

// goReorder(activeId, overId)
func reorder(args []js.Value) (any, error) {
	if err := need(args, 2, "activeId, overId"); err != nil {
		return nil, err
	}
	store.Reorder(args[0].Int(), args[1].Int())
	return store.Screenshots(), nil
}

// goReapply(platform?)
func reapply(args []js.Value) (any, error) {
	var p template.Platform
	if len(args) > 0 && args[0].Type() == js.TypeString {
		p = template.Platform(args[0].String())
	}
	if err := store.ReapplyTemplatesByOrder(p); err != nil {
		return nil, err
	}
	return store.Screenshots(), nil
}

// goSetPlatform(platform)
func setPlatform(args []js.Value) (any, error) {
	if err := need(args, 1, "platform"); err != nil {
		return nil, err
	}
	return "ok", store.SetPlatform(template.Platform(args[0].String()))
}

// goScreenshots()
func screenshots([]js.Value) (any, error) {
	return store.Screenshots(), nil
}

// goPreviewSVG(id): waits for pending renders.
func previewSVG(args []js.Value) (any, error) {
	if err := need(args, 1, "id"); err != nil {
		return nil, err
	}
	if err := store.Wait(context.Background()); err != nil {
		return nil, err
	}
	sc, err := store.Screenshot(args[0].Int())
	if err != nil {
		return nil, err
	}
	if sc.Preview == nil {
		return nil, errors.New("preview not rendered")
	}
	svg, err := sc.Preview.SVG()
	return string(svg), err
}

type editorRequest struct {
	Op     string       `json:"op"` // scene, pointer, select, gesture, reset
	X      float64      `json:"x"`
	Y      float64      `json:"y"`
	Layer  editor.Layer `json:"layer"`
	DX     float64      `json:"dx"`
	DY     float64      `json:"dy"`
	ScaleX float64      `json:"scaleX"`
	ScaleY float64      `json:"scaleY"`
	Rotate float64      `json:"rotate"`
	End    bool         `json:"end"`
}

// goEditor(id, requestJSON): returns the scene after the operation.
func editorOp(args []js.Value) (any, error) {
	if err := need(args, 2, "id, requestJSON"); err != nil {
		return nil, err
	}
	sf, err := store.Surface(args[0].Int())
	if err != nil {
		return nil, err
	}
	var req editorRequest
	if err := unmarshalArg(args[1], &req); err != nil {
		return nil, err
	}

	switch req.Op {
	case "", "scene":
	case "pointer":
		sf.PointerDown(req.X, req.Y)
	case "select":
		sf.Dispatch(editor.Select{Layer: req.Layer})
	case "reset":
		if _, err := sf.Reset(); err != nil {
			return nil, err
		}
	case "gesture":
		if req.DX != 0 || req.DY != 0 {
			if err := sf.Drag(req.Layer, req.DX, req.DY); err != nil {
				return nil, err
			}
		}
		if req.ScaleX != 0 && req.ScaleY != 0 {
			if err := sf.Scale(req.Layer, req.ScaleX, req.ScaleY); err != nil {
				return nil, err
			}
		}
		if req.Rotate != 0 {
			if err := sf.Rotate(req.Layer, req.Rotate); err != nil {
				return nil, err
			}
		}
		if req.End {
			if _, err := sf.EndGesture(req.Layer); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("unknown op %q", req.Op)
	}
	return sf.Scene(), nil
}

// goExportPNG(id): base64 PNG.
func exportPNG(args []js.Value) (any, error) {
	if err := need(args, 1, "id"); err != nil {
		return nil, err
	}
	ctx := context.Background()
	if err := store.Wait(ctx); err != nil {
		return nil, err
	}
	sf, err := store.Surface(args[0].Int())
	if err != nil {
		return nil, err
	}
	data, err := exporter.ExportOne(ctx, sf)
	if err != nil {
		return nil, err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

type archive struct {
	export.Result
	Data string `json:"data"`
}

// goExportAll(): {name, succeeded, total, skipped, data(base64 zip)}.
func exportAll([]js.Value) (any, error) {
	ctx := context.Background()
	if err := store.Wait(ctx); err != nil {
		return nil, err
	}
	var items []export.Item
	for _, sc := range store.Screenshots() {
		if sf, err := store.Surface(sc.ID); err == nil {
			items = append(items, export.Item{ID: sc.ID, Variant: sc.Template.Name, Surface: sf})
		}
	}
	res, err := exporter.ExportAll(ctx, items)
	if err != nil {
		return nil, err
	}
	return archive{Result: res, Data: base64.StdEncoding.EncodeToString(res.Archive)}, nil
}
