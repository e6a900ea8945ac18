package background

import (
	"github.com/fogleman/gg"
)

// FillStyle converts a fill descriptor into a gg pattern. gg evaluates
// patterns in device space, so gradient end points go through toDevice;
// opacity scales every colour's alpha.
func FillStyle(fd FillDescriptor, opacity float64, toDevice func(x, y float64) (float64, float64)) gg.Pattern {
	if fd.Kind == FillSolid {
		return gg.NewSolidPattern(WithOpacity(MustColor(fd.Color), opacity))
	}
	x0, y0 := toDevice(fd.Start.X, fd.Start.Y)
	x1, y1 := toDevice(fd.End.X, fd.End.Y)
	grad := gg.NewLinearGradient(x0, y0, x1, y1)
	for _, s := range fd.Stops {
		grad.AddColorStop(s.Offset, WithOpacity(MustColor(s.Color), opacity))
	}
	return grad
}
