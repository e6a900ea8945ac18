// ShotStencil: app store screenshot graphics from templates.
//
// Usage:
//
//	shotstencil render -template <path> -o <file> [options]
//	shotstencil variants
//	shotstencil init [-variant apple:app-screenshot]
//	shotstencil serve [-addr :8080]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xob0t/ShotStencil/clients/server"
	"github.com/xob0t/ShotStencil/pkg/config"
	"github.com/xob0t/ShotStencil/pkg/export"
	"github.com/xob0t/ShotStencil/pkg/render"
	"github.com/xob0t/ShotStencil/pkg/session"
	"github.com/xob0t/ShotStencil/pkg/template"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "render":
		err = runRender(os.Args[2:])
	case "variants":
		runVariants()
	case "init":
		err = runInit(os.Args[2:])
	case "serve":
		err = server.RunServe(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fatal(err)
	}
}

func runRender(args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)

	var (
		tmplPath    string
		screenshot  string
		output      string
		envFile     string
		scale       float64
		placeholder bool
		timeout     time.Duration
	)

	fs.StringVar(&tmplPath, "template", "", "Template JSON or .shotbundle archive")
	fs.StringVar(&tmplPath, "t", "", "Template JSON or .shotbundle archive")
	fs.StringVar(&screenshot, "screenshot", "", "Screenshot image (overrides the template's)")
	fs.StringVar(&output, "o", "", "Output file (.png, .jpg or .svg)")
	fs.StringVar(&output, "output", "", "Output file (.png, .jpg or .svg)")
	fs.StringVar(&envFile, "env", ".env", "Optional .env file")
	fs.Float64Var(&scale, "scale", 0, "Pixel ratio for raster output (default from config)")
	fs.BoolVar(&placeholder, "placeholder", false, "Render only the device over a transparent background")
	fs.DurationVar(&timeout, "timeout", time.Minute, "Render timeout")

	fs.Usage = printUsage
	if err := fs.Parse(args); err != nil {
		return err
	}
	if tmplPath == "" {
		return fmt.Errorf("template is required (-template)")
	}
	if output == "" {
		return fmt.Errorf("output file is required (-o)")
	}

	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if err := cfg.SetupLogging(); err != nil {
		return err
	}
	cfg.AllowFiles = true
	if scale <= 0 {
		scale = cfg.PixelRatio
	}

	assets := session.NewAssets()
	t, err := loadTemplate(tmplPath, assets)
	if err != nil {
		return err
	}
	if screenshot != "" {
		t.Params.Screenshot.URL = screenshot
	}

	mode := render.Export
	if placeholder {
		mode = render.Placeholder
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	fmt.Printf("Rendering %s (%s)\n", t.Name.DisplayName(), mode)
	doc, err := cfg.Renderer(assets).Render(ctx, *t, mode)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if err := export.WriteFile(output, doc, scale); err != nil {
		return err
	}
	fmt.Printf("Done: %s\n", output)
	return nil
}

// loadTemplate reads a template or bundle. A bundled screenshot is
// registered as an asset; relative image paths resolve against the
// template's directory.
func loadTemplate(p string, assets *session.Assets) (*template.Template, error) {
	var (
		t        *template.Template
		warnings []string
		err      error
	)
	if strings.EqualFold(filepath.Ext(p), ".shotbundle") {
		var b *template.Bundle
		b, warnings, err = template.LoadBundle(p)
		if err == nil {
			t = b.Template
			if len(b.Screenshot) > 0 {
				id := assets.Add(b.ScreenshotName, b.Screenshot, "")
				t.Params.Screenshot.URL = render.AssetScheme + id
			}
		}
	} else {
		t, warnings, err = template.LoadTemplate(p)
	}
	for _, w := range warnings {
		logrus.Warnf("%s: %s", p, w)
	}
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}

	dir := filepath.Dir(p)
	t.Params.Screenshot.URL = resolvePath(dir, t.Params.Screenshot.URL)
	if t.Params.Logo != nil {
		t.Params.Logo.URL = resolvePath(dir, t.Params.Logo.URL)
	}
	return t, nil
}

func resolvePath(dir, ref string) string {
	if ref == "" || strings.Contains(ref, ":") || filepath.IsAbs(ref) {
		return ref
	}
	return filepath.Join(dir, ref)
}

func runVariants() {
	for _, v := range template.Variants() {
		fmt.Printf("%-28s %-8s %s\n", v, v.Platform(), v.DisplayName())
	}
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	var (
		out     string
		variant string
	)
	fs.StringVar(&out, "o", "template.json", "Output path for the sample template")
	fs.StringVar(&variant, "variant", string(template.AppleAppScreenshot), "Template variant")
	if err := fs.Parse(args); err != nil {
		return err
	}

	data, err := template.ExampleJSON(template.Variant(variant))
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return fmt.Errorf("write template: %w", err)
	}

	fmt.Printf("Created: %s\n", out)
	fmt.Printf("Run: shotstencil render -template %s -screenshot shot.png -o out.png\n", out)
	return nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func printUsage() {
	fmt.Print(`ShotStencil: store screenshot graphics from templates

USAGE:
    shotstencil render -template <path> -o <file> [options]
    shotstencil variants
    shotstencil init [options]
    shotstencil serve [-addr :8080] [-env .env]

RENDER:
    -t, -template <path>   Template JSON or .shotbundle archive
    -screenshot <path>     Screenshot image (overrides the template's)
    -o, -output <path>     Output file (.png, .jpg or .svg)
    -scale <ratio>         Pixel ratio for raster output (default: 2)
    -placeholder           Device only, transparent background
    -timeout <dur>         Render timeout (default: 1m)

INIT:
    -o <path>              Output path (default: template.json)
    -variant <name>        Template variant (see "shotstencil variants")

EXAMPLES:
    shotstencil init
    shotstencil render -t template.json -screenshot shot.png -o out.png
    shotstencil render -t app.shotbundle -o out.svg
    shotstencil serve -addr :9000
`)
}
