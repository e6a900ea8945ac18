// parser.go: Example template generation for `shotstencil init`.
package template

import "encoding/json"

// ExampleJSON returns an indented template for the given variant, with a
// gradient background to show the available fields.
func ExampleJSON(v Variant) ([]byte, error) {
	t, err := Defaults(v)
	if err != nil {
		return nil, err
	}
	t.Params.Title.Text = "Plan your week in seconds ✨"
	t.Params.Screenshot = ImageRef{URL: "screenshot.png"}
	t.Background = Background{
		Type:       BackgroundLinearGradient,
		ColorStops: []string{"#c7d2fe", "#fbcfe8"},
		Direction:  ToBottom,
		Noise:      0.1,
		GridOverlay: &GridOverlay{
			Pattern:    PatternDots,
			Color:      "#000000",
			Opacity:    0.1,
			BlurRadius: 30,
		},
	}
	return json.MarshalIndent(t, "", "  ")
}
