// validator.go: Decode and validate template JSON against the variant schema.
package template

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ValidationError lists every problem found in a template.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid template: " + strings.Join(e.Problems, "; ")
}

// FontWeights maps the accepted font weights to their names.
var FontWeights = map[int]string{
	100: "Thin",
	200: "Extra Light",
	300: "Light",
	400: "Regular",
	500: "Medium",
	600: "Semi Bold",
	700: "Bold",
	800: "Extra Bold",
	900: "Black",
}

// DefaultFontWeight is used when a text field omits its weight.
const DefaultFontWeight = 400

var (
	templateKeys   = []string{"name", "canvas", "background", "params"}
	paramKeys      = []string{"title", "screenshot", "logo", "bottomPadding"}
	backgroundKeys = []string{"type", "color", "colorStops", "direction", "noise", "gridOverlay"}
)

// Validate decodes raw JSON into a Template. Fields absent from raw keep the
// variant's defaults. Unknown keys and fields the variant does not declare
// are dropped with a warning; malformed values yield a *ValidationError.
func Validate(raw []byte) (*Template, []string, error) {
	var head struct {
		Name Variant `json:"name"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, nil, &ValidationError{Problems: []string{fmt.Sprintf("malformed JSON: %v", err)}}
	}
	if head.Name == "" {
		return nil, nil, &ValidationError{Problems: []string{"name: required"}}
	}

	t, err := Defaults(head.Name)
	if err != nil {
		return nil, nil, &ValidationError{Problems: []string{err.Error()}}
	}

	warnings, err := unknownKeys(raw)
	if err != nil {
		return nil, nil, &ValidationError{Problems: []string{fmt.Sprintf("malformed JSON: %v", err)}}
	}

	// Background is a tagged union: a type switch must not inherit the
	// other arm's default fields.
	var bgProbe struct {
		Background *struct {
			Type BackgroundType `json:"type"`
		} `json:"background"`
	}
	_ = json.Unmarshal(raw, &bgProbe)
	if bgProbe.Background != nil && bgProbe.Background.Type != "" && bgProbe.Background.Type != t.Background.Type {
		t.Background = Background{Type: bgProbe.Background.Type, Noise: t.Background.Noise}
	}

	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, warnings, &ValidationError{Problems: []string{fmt.Sprintf("decode: %v", err)}}
	}

	warnings = append(warnings, normalize(&t)...)
	if err := t.Validate(); err != nil {
		return nil, warnings, err
	}
	return &t, warnings, nil
}

// normalize fills zero-valued fields from the variant defaults and drops
// fields the variant does not declare.
func normalize(t *Template) []string {
	var warnings []string
	def, err := Defaults(t.Name)
	if err != nil {
		return nil
	}

	if !t.Name.HasLogo() && t.Params.Logo != nil {
		warnings = append(warnings, fmt.Sprintf("%s has no logo; params.logo ignored", t.Name))
		t.Params.Logo = nil
	}
	if !t.Name.HasBottomPadding() && t.Params.BottomPadding != nil {
		warnings = append(warnings, fmt.Sprintf("%s has no bottom padding; params.bottomPadding ignored", t.Name))
		t.Params.BottomPadding = nil
	}

	title := &t.Params.Title
	if title.Role == "" {
		title.Role = RoleTitle
	}
	if title.FontFamily == "" {
		title.FontFamily = def.Params.Title.FontFamily
	}
	if title.FontWeight == 0 {
		title.FontWeight = DefaultFontWeight
	}
	if title.Color == "" {
		title.Color = def.Params.Title.Color
	}
	if t.Background.Type == BackgroundColor && t.Background.Color == "" {
		t.Background.Color = def.Background.Color
	}
	if t.Background.Type == BackgroundLinearGradient && t.Background.Direction == "" {
		t.Background.Direction = ToRight
	}
	return warnings
}

// Validate checks the template's invariants.
func (t *Template) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if !t.Name.Known() {
		add("name: unknown variant %q", t.Name)
	}
	if t.Canvas.Width <= 0 || t.Canvas.Height <= 0 {
		add("canvas: dimensions must be positive, got %dx%d", t.Canvas.Width, t.Canvas.Height)
	}
	problems = append(problems, t.Background.problems()...)

	title := t.Params.MainText()
	if title == nil {
		add("params.title: missing title role")
	} else {
		if _, ok := FontWeights[title.FontWeight]; !ok {
			add("params.title.fontWeight: %d is not one of 100..900", title.FontWeight)
		}
		if title.FontSize <= 0 {
			add("params.title.fontSize: must be positive")
		}
	}
	if t.Params.Logo != nil && !t.Name.HasLogo() {
		add("params.logo: not supported by %s", t.Name)
	}
	if t.Params.BottomPadding != nil && !t.Name.HasBottomPadding() {
		add("params.bottomPadding: not supported by %s", t.Name)
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Validate checks a background on its own.
func (b Background) Validate() error {
	if p := b.problems(); len(p) > 0 {
		return &ValidationError{Problems: p}
	}
	return nil
}

func (b Background) problems() []string {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	switch b.Type {
	case BackgroundColor:
		if b.Color == "" {
			add("background.color: required")
		}
	case BackgroundLinearGradient:
		if len(b.ColorStops) == 0 {
			add("background.colorStops: at least one stop required")
		}
		if !validDirection(b.Direction) {
			add("background.direction: unknown direction %q", b.Direction)
		}
	default:
		add("background.type: unknown type %q", b.Type)
	}
	if b.Noise < 0 || b.Noise > 1 {
		add("background.noise: %.2f outside [0,1]", b.Noise)
	}
	if g := b.GridOverlay; g != nil {
		switch g.Pattern {
		case PatternGrid, PatternGraphPaper, PatternDots:
		default:
			add("background.gridOverlay.pattern: unknown pattern %q", g.Pattern)
		}
		if g.Opacity < 0 || g.Opacity > 1 {
			add("background.gridOverlay.opacity: %.2f outside [0,1]", g.Opacity)
		}
		if g.BlurRadius < 0 || g.BlurRadius > 100 {
			add("background.gridOverlay.blurRadius: %.2f outside [0,100]", g.BlurRadius)
		}
	}
	return problems
}

func validDirection(d Direction) bool {
	for _, known := range Directions {
		if d == known {
			return true
		}
	}
	return false
}

// unknownKeys reports top-level, params and background keys that the schema
// does not know.
func unknownKeys(raw []byte) ([]string, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, err
	}

	var warnings []string
	warnings = append(warnings, diffKeys("", top, templateKeys)...)

	if p, ok := top["params"]; ok {
		var params map[string]json.RawMessage
		if err := json.Unmarshal(p, &params); err == nil {
			warnings = append(warnings, diffKeys("params.", params, paramKeys)...)
		}
	}
	if b, ok := top["background"]; ok {
		var bg map[string]json.RawMessage
		if err := json.Unmarshal(b, &bg); err == nil {
			warnings = append(warnings, diffKeys("background.", bg, backgroundKeys)...)
		}
	}
	return warnings, nil
}

func diffKeys(prefix string, got map[string]json.RawMessage, known []string) []string {
	var out []string
	for k := range got {
		found := false
		for _, want := range known {
			if k == want {
				found = true
				break
			}
		}
		if !found {
			out = append(out, fmt.Sprintf("unknown field %q; ignored", prefix+k))
		}
	}
	sort.Strings(out)
	return out
}
