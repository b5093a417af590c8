package report

import (
	"fmt"

	"roadrich/internal/core"
)

// MaxDisplayedInsights is how many insights the page has room for.
const MaxDisplayedInsights = 3

type (
	InsightKind string
	InsightTone string
)

const (
	InsightTrend       InsightKind = "trend"
	InsightSavings     InsightKind = "savings"
	InsightTopCategory InsightKind = "top_category"
	InsightBigMover    InsightKind = "big_mover"

	TonePositive InsightTone = "positive"
	ToneWarning  InsightTone = "warning"
	ToneInfo     InsightTone = "info"
)

// Insight is one plain-text observation about the month.
type Insight struct {
	Kind InsightKind `json:"kind"`
	Tone InsightTone `json:"tone"`
	Text string      `json:"text"`
}

// Policy holds the thresholds of the insight rules, in whole percent.
type Policy struct {
	TrendThreshold    int // |expense variation| above which a trend is reported
	SavingsPraiseRate int // savings rate at or above which the user is praised
	SavingsTargetRate int // rates in [0, target) trigger a caution
	TopCategoryShare  int // share above which the top category is called out
	BigMoverThreshold int // |category variation| above which it is a big mover
}

// DefaultPolicy returns the thresholds used by the product.
func DefaultPolicy() Policy {
	return Policy{
		TrendThreshold:    10,
		SavingsPraiseRate: 20,
		SavingsTargetRate: 10,
		TopCategoryShare:  30,
		BigMoverThreshold: 50,
	}
}

// GenerateInsights evaluates the rules in a fixed order: expense trend,
// savings rate, dominant category, big mover. Each rule emits at most one
// insight.
func GenerateInsights(s Summary, p Policy) []Insight {
	var out []Insight
	if in, ok := trendInsight(s, p); ok {
		out = append(out, in)
	}
	if in, ok := savingsInsight(s, p); ok {
		out = append(out, in)
	}
	if in, ok := topCategoryInsight(s, p); ok {
		out = append(out, in)
	}
	if in, ok := bigMoverInsight(s, p); ok {
		out = append(out, in)
	}
	return out
}

// Displayed truncates insights to what fits on the page.
func Displayed(insights []Insight) []Insight {
	if len(insights) > MaxDisplayedInsights {
		return insights[:MaxDisplayedInsights]
	}
	return insights
}

func trendInsight(s Summary, p Policy) (Insight, bool) {
	v := s.ExpenseVariation
	switch {
	case v.New:
		return Insight{}, false
	case v.Percent < -p.TrendThreshold:
		return Insight{
			Kind: InsightTrend,
			Tone: TonePositive,
			Text: fmt.Sprintf("Vos dépenses ont diminué de %d%% par rapport au mois dernier. Excellent travail !", -v.Percent),
		}, true
	case v.Percent > p.TrendThreshold:
		return Insight{
			Kind: InsightTrend,
			Tone: ToneWarning,
			Text: fmt.Sprintf("Attention : vos dépenses ont augmenté de %d%% ce mois-ci. Identifiez les postes responsables ci-dessus.", v.Percent),
		}, true
	}
	return Insight{}, false
}

// savingsInsight uses the rate alone; without income the rate is 0 and
// the caution applies.
func savingsInsight(s Summary, p Policy) (Insight, bool) {
	rate := s.SavingsRate
	switch {
	case rate >= p.SavingsPraiseRate:
		return Insight{
			Kind: InsightSavings,
			Tone: TonePositive,
			Text: fmt.Sprintf("Taux d'épargne de %d%% : vous êtes sur la bonne voie pour vos objectifs financiers.", rate),
		}, true
	case rate >= 0 && rate < p.SavingsTargetRate:
		return Insight{
			Kind: InsightSavings,
			Tone: ToneWarning,
			Text: fmt.Sprintf("Votre taux d'épargne est de %d%%. Essayez de viser au moins %d%% pour constituer un coussin de sécurité.", rate, p.SavingsTargetRate),
		}, true
	}
	return Insight{}, false
}

func topCategoryInsight(s Summary, p Policy) (Insight, bool) {
	if len(s.Rows) == 0 {
		return Insight{}, false
	}
	top := s.Rows[0]
	if top.PercentOfTotal <= p.TopCategoryShare {
		return Insight{}, false
	}
	return Insight{
		Kind: InsightTopCategory,
		Tone: ToneInfo,
		Text: fmt.Sprintf("%s représente %d%% de vos dépenses (%s). C'est le poste principal à surveiller.",
			top.Category.Name, top.PercentOfTotal, core.FormatCurrency(top.Category.Total)),
	}, true
}

func bigMoverInsight(s Summary, p Policy) (Insight, bool) {
	for _, row := range s.Rows {
		if row.PrevTotal.Cents <= 0 || row.Variation.New {
			continue
		}
		v := row.Variation.Percent
		if v > p.BigMoverThreshold {
			return Insight{
				Kind: InsightBigMover,
				Tone: ToneWarning,
				Text: fmt.Sprintf("Forte augmentation dans \"%s\" (+%d%%). Vérifiez si c'est ponctuel ou récurrent.", row.Category.Name, v),
			}, true
		}
		if v < -p.BigMoverThreshold {
			return Insight{
				Kind: InsightBigMover,
				Tone: TonePositive,
				Text: fmt.Sprintf("Belle économie dans \"%s\" (%d%%) !", row.Category.Name, v),
			}, true
		}
	}
	return Insight{}, false
}
