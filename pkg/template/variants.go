package template

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrUnknownVariant is returned for variant names missing from the registry.
var ErrUnknownVariant = errors.New("unknown template variant")

// Variant names one layout recipe, e.g. "apple:hanged-up".
type Variant string

const (
	AppleAppScreenshot   Variant = "apple:app-screenshot"
	AppleTiltedLeft      Variant = "apple:tilted-left"
	AppleTiltedRight     Variant = "apple:tilted-right"
	AppleHangedUp        Variant = "apple:hanged-up"
	AppleRotated         Variant = "apple:rotated"
	AndroidAppScreenshot Variant = "android:app-screenshot"
	AndroidHangedUp      Variant = "android:hanged-up"
	OGAppScreenshot      Variant = "og:app-screenshot"
)

// Platform groups variants into a rotation used when screenshots are added.
type Platform string

const (
	PlatformApple   Platform = "apple"
	PlatformAndroid Platform = "android"
)

// Built-in image URLs resolved by the renderer's image loader.
const (
	BuiltinLogo              = "builtin:logo"
	BuiltinIPhoneScreenshot  = "builtin:iphone-screenshot"
	BuiltinAndroidScreenshot = "builtin:android-screenshot"
)

// Canvas size shared by the store variants (App Store 6.9" portrait).
const (
	DefaultCanvasWidth  = 1320
	DefaultCanvasHeight = 2868
)

type variantSpec struct {
	hasLogo          bool
	hasBottomPadding bool
	defaults         func() Template
}

var rotations = map[Platform][]Variant{
	PlatformApple: {
		AppleAppScreenshot,
		AppleTiltedLeft,
		AppleTiltedRight,
		AppleHangedUp,
		AppleRotated,
	},
	PlatformAndroid: {
		AndroidAppScreenshot,
		AndroidHangedUp,
	},
}

func title(family string, weight int, size float64) TextField {
	return TextField{
		Role:       RoleTitle,
		Text:       "A super helpful app feature goes here",
		FontFamily: family,
		FontWeight: weight,
		FontSize:   size,
		Color:      "#222",
	}
}

func logo() *ImageRef {
	return &ImageRef{URL: BuiltinLogo, Width: 200, Height: 200}
}

func storeCanvas() Canvas {
	return Canvas{Width: DefaultCanvasWidth, Height: DefaultCanvasHeight}
}

func plain(color string, noise float64) Background {
	return Background{Type: BackgroundColor, Color: color, Noise: noise}
}

func gridded() Background {
	return Background{
		Type:  BackgroundColor,
		Color: "#f3f4f6",
		GridOverlay: &GridOverlay{
			Pattern:    PatternGrid,
			Color:      "#030712",
			Opacity:    0.5,
			BlurRadius: 20,
		},
	}
}

var registry = map[Variant]variantSpec{
	AppleAppScreenshot: {
		hasLogo:          true,
		hasBottomPadding: true,
		defaults: func() Template {
			t := title("inter", 800, 64)
			return Template{
				Name:       AppleAppScreenshot,
				Canvas:     storeCanvas(),
				Background: plain("#c7d2fe", 0.1),
				Params: Params{
					Title:         t,
					Screenshot:    ImageRef{URL: BuiltinIPhoneScreenshot},
					Logo:          logo(),
					BottomPadding: Len(-400),
				},
			}
		},
	},
	AppleTiltedLeft: {
		hasLogo: true,
		defaults: func() Template {
			return Template{
				Name:       AppleTiltedLeft,
				Canvas:     storeCanvas(),
				Background: plain("#f3f4f6", 0.1),
				Params: Params{
					Title:      title("poppins", 700, 110),
					Screenshot: ImageRef{URL: BuiltinIPhoneScreenshot},
					Logo:       logo(),
				},
			}
		},
	},
	AppleTiltedRight: {
		defaults: func() Template {
			return Template{
				Name:       AppleTiltedRight,
				Canvas:     storeCanvas(),
				Background: plain("#f3f4f6", 0),
				Params: Params{
					Title:      title("poppins", 700, 110),
					Screenshot: ImageRef{URL: BuiltinIPhoneScreenshot},
				},
			}
		},
	},
	AppleHangedUp: {
		defaults: func() Template {
			return Template{
				Name:       AppleHangedUp,
				Canvas:     storeCanvas(),
				Background: plain("#f3f4f6", 0.1),
				Params: Params{
					Title:      title("poppins", 700, 110),
					Screenshot: ImageRef{URL: BuiltinIPhoneScreenshot},
				},
			}
		},
	},
	AppleRotated: {
		defaults: func() Template {
			return Template{
				Name:       AppleRotated,
				Canvas:     storeCanvas(),
				Background: gridded(),
				Params: Params{
					Title:      title("poppins", 700, 30),
					Screenshot: ImageRef{URL: BuiltinIPhoneScreenshot},
				},
			}
		},
	},
	AndroidAppScreenshot: {
		hasLogo:          true,
		hasBottomPadding: true,
		defaults: func() Template {
			return Template{
				Name:       AndroidAppScreenshot,
				Canvas:     storeCanvas(),
				Background: gridded(),
				Params: Params{
					Title:         title("poppins", 700, 100),
					Screenshot:    ImageRef{URL: BuiltinAndroidScreenshot},
					Logo:          logo(),
					BottomPadding: Len(-150),
				},
			}
		},
	},
	AndroidHangedUp: {
		hasLogo: true,
		defaults: func() Template {
			return Template{
				Name:       AndroidHangedUp,
				Canvas:     storeCanvas(),
				Background: gridded(),
				Params: Params{
					Title:      title("poppins", 700, 25),
					Screenshot: ImageRef{URL: BuiltinAndroidScreenshot},
					Logo:       logo(),
				},
			}
		},
	},
	OGAppScreenshot: {
		hasLogo: true,
		defaults: func() Template {
			return Template{
				Name:       OGAppScreenshot,
				Canvas:     Canvas{Width: 1080, Height: 1920},
				Background: plain("#c7d2fe", 0),
				Params: Params{
					Title:      title("inter", 700, 40),
					Screenshot: ImageRef{URL: BuiltinIPhoneScreenshot},
					Logo:       &ImageRef{URL: BuiltinLogo},
				},
			}
		},
	},
}

// Defaults returns a fresh copy of the variant's default template.
func Defaults(v Variant) (Template, error) {
	spec, ok := registry[v]
	if !ok {
		return Template{}, fmt.Errorf("%w: %q", ErrUnknownVariant, v)
	}
	return spec.defaults(), nil
}

// Known reports whether v is registered.
func (v Variant) Known() bool {
	_, ok := registry[v]
	return ok
}

// HasLogo reports whether the variant's schema declares a logo.
func (v Variant) HasLogo() bool { return registry[v].hasLogo }

// HasBottomPadding reports whether the variant's schema declares a bottom padding.
func (v Variant) HasBottomPadding() bool { return registry[v].hasBottomPadding }

// Platform returns the platform prefix of the variant name.
func (v Variant) Platform() Platform {
	p, _, _ := strings.Cut(string(v), ":")
	return Platform(p)
}

// FileStem formats the name for use in file names:
// "apple:app-screenshot" → "apple-app-screenshot".
func (v Variant) FileStem() string {
	return strings.ReplaceAll(string(v), ":", "-")
}

// DisplayName formats the name for humans: "Apple App Screenshot".
func (v Variant) DisplayName() string {
	words := strings.ReplaceAll(v.FileStem(), "-", " ")
	if v.Platform() == "og" {
		words = "Open Graph" + strings.TrimPrefix(words, "og")
	}
	return cases.Title(language.English).String(words)
}

// Variants returns every registered variant, sorted by name.
func Variants() []Variant {
	out := make([]Variant, 0, len(registry))
	for v := range registry {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Rotation returns the platform's variants in round-robin order. Unknown
// platforms fall back to the Apple rotation.
func Rotation(p Platform) []Variant {
	r, ok := rotations[p]
	if !ok {
		r = rotations[PlatformApple]
	}
	return append([]Variant(nil), r...)
}

// RotationAt returns the variant assigned to position i of the rotation.
func RotationAt(p Platform, i int) Variant {
	r := Rotation(p)
	return r[i%len(r)]
}
