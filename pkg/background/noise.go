package background

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"math/rand/v2"
	"sync"
)

const (
	// NoiseTileSize is the edge length of the repeating noise texture.
	NoiseTileSize = 128
	// NoiseContrast is the contrast filter applied to the texture (1.5 = 150%).
	NoiseContrast = 1.5
	noiseSeed     = 0x5eed
)

var (
	noiseOnce sync.Once
	noiseTile *image.Gray
	noiseURI  string
)

// NoiseTexture returns the fixed noise tile with the contrast filter
// already applied. The texture is identical across calls and processes.
func NoiseTexture() *image.Gray {
	noiseOnce.Do(buildNoise)
	return noiseTile
}

// NoiseDataURI returns the noise tile as a PNG data URI.
func NoiseDataURI() string {
	noiseOnce.Do(buildNoise)
	return noiseURI
}

func buildNoise() {
	rng := rand.New(rand.NewPCG(noiseSeed, noiseSeed))
	img := image.NewGray(image.Rect(0, 0, NoiseTileSize, NoiseTileSize))
	for i := range img.Pix {
		v := float64(rng.IntN(256))
		v = (v-128)*NoiseContrast + 128
		img.Pix[i] = uint8(min(max(v, 0), 255))
	}
	noiseTile = img

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err == nil {
		noiseURI = "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
	}
}
