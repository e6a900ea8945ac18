// merge.go: Variant switches and partial parameter updates.
package template

// SwitchVariant returns the default template of the named variant with the
// screenshot URL and title text of current carried over. Fields the new
// variant does not declare (logo geometry, paddings) are dropped; canvas and
// background come from the new variant's defaults.
func SwitchVariant(current Template, name Variant) (Template, error) {
	next, err := Defaults(name)
	if err != nil {
		return Template{}, err
	}

	if url := current.Params.Screenshot.URL; url != "" {
		next.Params.Screenshot = ImageRef{URL: url}
	}
	if from, to := current.Params.MainText(), next.Params.MainText(); from != nil && to != nil {
		to.Text = from.Text
	}
	return next, nil
}

// Reapply re-targets t to another variant while keeping t's customisations:
// the new variant's defaults are overlaid with every compatible param of t,
// and t's background is kept as is.
func Reapply(t Template, name Variant) (Template, error) {
	next, err := Defaults(name)
	if err != nil {
		return Template{}, err
	}

	cur := t.Params.Clone()
	next.Params.Title = cur.Title
	next.Params.Title.Role = RoleTitle
	if cur.Screenshot.URL != "" {
		next.Params.Screenshot = cur.Screenshot
	}
	if next.Params.Logo != nil && cur.Logo != nil {
		next.Params.Logo = cur.Logo
	}
	if next.Params.BottomPadding != nil && cur.BottomPadding != nil {
		next.Params.BottomPadding = cur.BottomPadding
	}
	next.Background = t.Background.Clone()
	return next, nil
}

// ParamsPatch is a partial params update. Nil fields are left untouched;
// non-nil fields replace the whole sub-object.
type ParamsPatch struct {
	Title         *TextField `json:"title,omitempty"`
	Screenshot    *ImageRef  `json:"screenshot,omitempty"`
	Logo          *ImageRef  `json:"logo,omitempty"`
	BottomPadding *Length    `json:"bottomPadding,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p ParamsPatch) Empty() bool {
	return p.Title == nil && p.Screenshot == nil && p.Logo == nil && p.BottomPadding == nil
}

// ApplyParams returns t with patch applied. The result is validated; on
// error t is returned unchanged so callers can keep the prior state.
func ApplyParams(t Template, patch ParamsPatch) (Template, error) {
	next := t.Clone()

	if patch.Title != nil {
		title := *patch.Title
		title.Role = RoleTitle
		if title.FontWeight == 0 {
			title.FontWeight = DefaultFontWeight
		}
		next.Params.Title = title
	}
	if patch.Screenshot != nil {
		next.Params.Screenshot = *patch.Screenshot
	}
	if patch.Logo != nil {
		l := *patch.Logo
		next.Params.Logo = &l
	}
	if patch.BottomPadding != nil {
		b := *patch.BottomPadding
		next.Params.BottomPadding = &b
	}

	if err := next.Validate(); err != nil {
		return t, err
	}
	return next, nil
}

// ApplyBackground returns t with its background replaced by bg.
func ApplyBackground(t Template, bg Background) (Template, error) {
	if err := bg.Validate(); err != nil {
		return t, err
	}
	next := t.Clone()
	next.Background = bg.Clone()
	return next, nil
}
