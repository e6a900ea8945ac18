// Package config reads ShotStencil settings from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/xob0t/ShotStencil/pkg/export"
	"github.com/xob0t/ShotStencil/pkg/fonts"
	"github.com/xob0t/ShotStencil/pkg/render"
	"github.com/xob0t/ShotStencil/pkg/twemoji"
)

// Config holds runtime settings. Zero values are replaced by defaults in
// Load.
type Config struct {
	// GoogleFontsAPIKey is optional; without it only the embedded fonts
	// are used.
	GoogleFontsAPIKey string
	Addr              string
	LogLevel          string
	PixelRatio        float64
	FontTimeout       time.Duration
	TwemojiBaseURL    string
	// AllowFiles lets templates reference local image paths (CLI only).
	AllowFiles bool
}

// Defaults returns the built-in settings.
func Defaults() Config {
	return Config{
		Addr:           ":8080",
		LogLevel:       "info",
		PixelRatio:     export.DefaultPixelRatio,
		FontTimeout:    10 * time.Second,
		TwemojiBaseURL: twemoji.DefaultBaseURL,
	}
}

// Load reads the given .env files (".env" when none are named; missing
// files are ignored) and then the environment.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	c := Defaults()
	c.GoogleFontsAPIKey = os.Getenv("GOOGLE_FONTS_API_KEY")
	if v := os.Getenv("SHOTSTENCIL_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("TWEMOJI_BASE_URL"); v != "" {
		c.TwemojiBaseURL = v
	}
	if v := os.Getenv("SHOTSTENCIL_PIXEL_RATIO"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil || r <= 0 {
			return Config{}, fmt.Errorf("SHOTSTENCIL_PIXEL_RATIO: invalid value %q", v)
		}
		c.PixelRatio = r
	}
	if v := os.Getenv("SHOTSTENCIL_FONT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("SHOTSTENCIL_FONT_TIMEOUT: %w", err)
		}
		c.FontTimeout = d
	}
	return c, nil
}

// SetupLogging applies LogLevel and the text formatter to logrus.
func (c Config) SetupLogging() error {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return nil
}

// FontClient returns the Google Fonts client, or nil without an API key.
func (c Config) FontClient() *fonts.Client {
	if c.GoogleFontsAPIKey == "" {
		return nil
	}
	return fonts.NewClient(c.GoogleFontsAPIKey, c.FontTimeout)
}

// Renderer wires fonts, emoji and the image loader. blobs backs asset:
// URLs and may be nil.
func (c Config) Renderer(blobs render.Blobs) *render.Renderer {
	var src fonts.Source
	if fc := c.FontClient(); fc != nil {
		src = fc
	} else {
		logrus.Info("GOOGLE_FONTS_API_KEY not set, using embedded fonts")
	}
	var emoji *twemoji.Service
	if c.TwemojiBaseURL != "" {
		emoji = twemoji.New(c.TwemojiBaseURL, c.FontTimeout)
	}
	return render.New(
		fonts.NewManager(src),
		emoji,
		render.NewLoader(blobs, c.FontTimeout, c.AllowFiles),
	)
}
