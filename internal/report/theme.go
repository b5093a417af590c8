package report

import "roadrich/internal/core"

// Theme is the palette of the report page.
type Theme struct {
	Background   core.RGB
	Surface      core.RGB
	SurfaceLight core.RGB

	TextPrimary   core.RGB
	TextSecondary core.RGB
	TextMuted     core.RGB

	Accent      core.RGB
	Favorable   core.RGB // decreases in spending
	Savings     core.RGB
	Unfavorable core.RGB // increases in spending, climbs in the ranking
	Tertiary    core.RGB

	TableLine   core.RGB
	TableHeader core.RGB
}

// DarkTheme is the product's report palette.
func DarkTheme() Theme {
	return Theme{
		Background:    mustHex("#121212"),
		Surface:       mustHex("#1E1E1E"),
		SurfaceLight:  mustHex("#2A2A2A"),
		TextPrimary:   mustHex("#FFFFFF"),
		TextSecondary: mustHex("#888888"),
		TextMuted:     mustHex("#555555"),
		Accent:        mustHex("#00BBF9"),
		Favorable:     mustHex("#00F5D4"),
		Savings:       mustHex("#FFD700"),
		Unfavorable:   mustHex("#FF4757"),
		Tertiary:      mustHex("#9B5DE5"),
		TableLine:     mustHex("#333333"),
		TableHeader:   mustHex("#1A1A1A"),
	}
}

// VariationColor picks the color of a spending variation.
func (t Theme) VariationColor(v Variation) core.RGB {
	switch {
	case v.New:
		return t.Tertiary
	case v.IsIncrease():
		return t.Unfavorable
	case v.IsDecrease():
		return t.Favorable
	}
	return t.TextMuted
}

// RankDeltaColor picks the color of a rank movement. Climbing toward the
// top means spending more relative to other categories.
func (t Theme) RankDeltaColor(d RankDelta) core.RGB {
	switch {
	case d.Kind == RankNew:
		return t.Tertiary
	case d.Kind == RankUnchanged:
		return t.TextMuted
	case d.Up():
		return t.Unfavorable
	}
	return t.Favorable
}

// ToneColor picks the bullet color of an insight.
func (t Theme) ToneColor(tone InsightTone) core.RGB {
	switch tone {
	case TonePositive:
		return t.Favorable
	case ToneWarning:
		return t.Unfavorable
	}
	return t.Accent
}

func mustHex(s string) core.RGB {
	c, err := core.ParseHexColor(s)
	if err != nil {
		panic("report: bad theme color " + s)
	}
	return c
}

// Page geometry, in points on A4 portrait.
const (
	marginLeft   = 40.0
	marginTop    = 40.0
	marginRight  = 40.0
	marginBottom = 60.0

	cardHeight = 70.0
	cardGap    = 10.0

	tableHeaderHeight = 20.0
	tableRowHeight    = 22.0

	insightLineHeight = 12.0
	footerOffset      = 40.0
)

// tableColumns are the ranked table headers and fixed widths; the zero
// width column takes the remaining space.
var tableColumns = []struct {
	title string
	width float64
	align string
}{
	{"Rang", 35, "C"},
	{"Catégorie", 0, "L"},
	{"Montant", 55, "R"},
	{"% Total", 40, "C"},
	{"Variation", 45, "C"},
	{"Évol.", 35, "C"},
}

const (
	labelNew        = "Nouveau"
	labelUnchanged  = "="
	labelEmptyTable = "Aucune dépense ce mois-ci"
)
