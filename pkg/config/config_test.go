package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"GOOGLE_FONTS_API_KEY", "SHOTSTENCIL_ADDR", "LOG_LEVEL",
		"SHOTSTENCIL_PIXEL_RATIO", "SHOTSTENCIL_FONT_TIMEOUT", "TWEMOJI_BASE_URL",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	c, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), c)
	assert.Nil(t, c.FontClient())
	assert.NotNil(t, c.Renderer(nil))
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	env := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(env, []byte(
		"GOOGLE_FONTS_API_KEY=abc\nSHOTSTENCIL_PIXEL_RATIO=3\nSHOTSTENCIL_FONT_TIMEOUT=2s\nLOG_LEVEL=debug\n",
	), 0o600))
	t.Setenv("SHOTSTENCIL_ADDR", ":9999")

	c, err := Load(env)
	require.NoError(t, err)
	assert.Equal(t, "abc", c.GoogleFontsAPIKey)
	assert.Equal(t, 3.0, c.PixelRatio)
	assert.Equal(t, 2*time.Second, c.FontTimeout)
	assert.Equal(t, ":9999", c.Addr)
	require.NotNil(t, c.FontClient())
	assert.Equal(t, "abc", c.FontClient().APIKey)

	require.NoError(t, c.SetupLogging())
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	logrus.SetLevel(logrus.InfoLevel)
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)
	missing := filepath.Join(t.TempDir(), "none")

	t.Setenv("SHOTSTENCIL_PIXEL_RATIO", "-1")
	_, err := Load(missing)
	assert.Error(t, err)

	t.Setenv("SHOTSTENCIL_PIXEL_RATIO", "")
	t.Setenv("SHOTSTENCIL_FONT_TIMEOUT", "soon")
	_, err = Load(missing)
	assert.Error(t, err)

	assert.Error(t, Config{LogLevel: "loud"}.SetupLogging())
}
