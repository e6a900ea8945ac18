// fonts.go: Font requirements of a template.
package template

// FontRef identifies one font resource by family and weight.
type FontRef struct {
	Family string `json:"family"`
	Weight int    `json:"weight"`
}

// UsedFonts returns the distinct (family, weight) pairs referenced by the
// text fields of p, in field order.
func UsedFonts(p Params) []FontRef {
	var fonts []FontRef
	seen := make(map[FontRef]struct{})

	for _, f := range p.TextFields() {
		if f.FontFamily == "" {
			continue
		}
		ref := FontRef{Family: f.FontFamily, Weight: f.FontWeight}
		if ref.Weight == 0 {
			ref.Weight = DefaultFontWeight
		}
		if _, dup := seen[ref]; dup {
			continue
		}
		seen[ref] = struct{}{}
		fonts = append(fonts, ref)
	}
	return fonts
}
