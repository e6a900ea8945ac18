package background

import (
	"strings"

	"github.com/xob0t/ShotStencil/pkg/template"
)

// Shorthand returns the CSS `background` shorthand for spec:
// a colour, or `linear-gradient(<direction>, <stops>)`.
func Shorthand(spec template.Background) string {
	if spec.Type != template.BackgroundLinearGradient {
		if spec.Color == "" {
			return "transparent"
		}
		return spec.Color
	}

	stops := nonEmpty(spec.ColorStops)
	if len(stops) == 1 {
		stops = append(stops, stops[0])
	}
	dir := spec.Direction
	if dir == "" {
		dir = template.ToRight
	}
	return "linear-gradient(" + string(dir) + ", " + strings.Join(stops, ", ") + ")"
}
