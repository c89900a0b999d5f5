package insights

import (
	"context"
	"fmt"
	"sort"

	"FinSight/internal/domain/models"
	"FinSight/internal/domain/service"
	"FinSight/pkg/logger"
)

// Generator turns a feature snapshot and its behavior tags into explained,
// ordered insights. Every insight carries the numeric evidence that
// produced it; a finding without evidence is dropped, not emitted.
type Generator struct {
	phraser service.Phraser
	log     *logger.Logger
}

type Option func(*Generator)

// WithPhraser attaches an optional description rewriter. On any phraser
// failure the deterministic template text is kept.
func WithPhraser(p service.Phraser) Option {
	return func(g *Generator) { g.phraser = p }
}

func NewGenerator(log *logger.Logger, opts ...Option) *Generator {
	g := &Generator{log: log}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Explain produces insights ordered by severity (high, warning, stable),
// then by magnitude descending within a level.
func (g *Generator) Explain(ctx context.Context, snap models.FeatureSnapshot, tags []models.BehaviorTag) ([]models.InsightRecord, error) {
	if snap.TxCount == 0 && snap.SpendTotal.IsZero() && snap.IncomeTotal.IsZero() {
		return []models.InsightRecord{}, nil
	}

	var out []models.InsightRecord
	for _, build := range []func(models.FeatureSnapshot, []models.BehaviorTag) (models.InsightRecord, bool){
		g.concentrationInsight,
		g.installmentInsight,
		g.travelInsight,
		g.trendInsight,
		g.baselineInsight,
	} {
		if ins, ok := build(snap, tags); ok {
			out = append(out, g.rephrase(ctx, ins))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return models.LevelRank(out[i].Level) < models.LevelRank(out[j].Level)
		}
		return out[i].Magnitude > out[j].Magnitude
	})
	return out, nil
}

// concentrationInsight fires when one category dominates spend.
func (g *Generator) concentrationInsight(snap models.FeatureSnapshot, _ []models.BehaviorTag) (models.InsightRecord, bool) {
	top := snap.TopCategories(1)
	if len(top) == 0 {
		return models.InsightRecord{}, false
	}
	share := snap.CategoryShare(top[0])
	shareF, _ := share.Float64()
	if shareF < 0.5 {
		return models.InsightRecord{}, false
	}
	stat := snap.Categories[top[0]]
	return models.InsightRecord{
		Level: models.LevelHigh,
		Title: fmt.Sprintf("%s dominates your spending", top[0]),
		Description: fmt.Sprintf("%s accounts for %.0f%% of spending in the last %d days (%s of %s).",
			top[0], shareF*100, snap.WindowDays, stat.Total.Round(2), snap.SpendTotal.Round(2)),
		Impact: "Concentrated spending leaves less room to absorb surprises in other categories.",
		Why: []string{
			fmt.Sprintf("category=%s", top[0]),
			fmt.Sprintf("share=%.4f", shareF),
			fmt.Sprintf("total=%s", stat.Total.Round(2)),
		},
		Magnitude: shareF,
	}, true
}

// installmentInsight warns when installment debt takes a large spend share.
func (g *Generator) installmentInsight(snap models.FeatureSnapshot, tags []models.BehaviorTag) (models.InsightRecord, bool) {
	if !models.HasTag(tags, models.TagHighInstallmentUsage) {
		return models.InsightRecord{}, false
	}
	ratio, _ := snap.InstallmentRatio.Float64()
	return models.InsightRecord{
		Level: models.LevelWarning,
		Title: "Installment purchases are a large share of spending",
		Description: fmt.Sprintf("Installment payments make up %.0f%% of your spending over the last %d days.",
			ratio*100, snap.WindowDays),
		Impact: "A high installment share commits future income before it arrives.",
		Why: []string{
			fmt.Sprintf("installment_ratio=%.4f", ratio),
			"threshold=0.30",
		},
		Magnitude: ratio,
	}, true
}

// travelInsight surfaces a travel-heavy period.
func (g *Generator) travelInsight(snap models.FeatureSnapshot, tags []models.BehaviorTag) (models.InsightRecord, bool) {
	if !models.HasTag(tags, models.TagTravelHeavy) {
		return models.InsightRecord{}, false
	}
	share, _ := snap.CategoryShare(models.CategoryTravel).Float64()
	return models.InsightRecord{
		Level: models.LevelWarning,
		Title: "Travel is driving your spending",
		Description: fmt.Sprintf("Travel purchases are %.0f%% of spending in the last %d days.",
			share*100, snap.WindowDays),
		Impact: "Travel-heavy periods are a good time to review rewards coverage.",
		Why: []string{
			fmt.Sprintf("travel_share=%.4f", share),
		},
		Magnitude: share,
	}, true
}

// trendInsight flags material spend growth against the prior window.
func (g *Generator) trendInsight(snap models.FeatureSnapshot, tags []models.BehaviorTag) (models.InsightRecord, bool) {
	if !models.HasTag(tags, models.TagRisingSpend) {
		return models.InsightRecord{}, false
	}
	var conf float64
	for _, t := range tags {
		if t.Kind == models.TagRisingSpend {
			conf = t.Confidence
		}
	}
	return models.InsightRecord{
		Level: models.LevelWarning,
		Title: "Spending is trending up",
		Description: fmt.Sprintf("Spending in the last %d days is up against the previous %d days.",
			snap.WindowDays, snap.WindowDays),
		Impact: "Rising spend erodes savings capacity if income stays flat.",
		Why: []string{
			fmt.Sprintf("rising_spend_confidence=%.4f", conf),
		},
		Magnitude: conf,
	}, true
}

// baselineInsight is the stable fallback so the response is never empty for
// an active user.
func (g *Generator) baselineInsight(snap models.FeatureSnapshot, _ []models.BehaviorTag) (models.InsightRecord, bool) {
	spend, _ := snap.SpendTotal.Float64()
	income, _ := snap.IncomeTotal.Float64()
	level := models.LevelStable
	impact := "Income comfortably covers spending in this window."
	if income < spend {
		impact = "Spending exceeds income in this window."
	}
	return models.InsightRecord{
		Level: level,
		Title: "Spending overview",
		Description: fmt.Sprintf("You spent %.2f and received %.2f across %d transactions in the last %d days.",
			spend, income, snap.TxCount, snap.WindowDays),
		Impact: impact,
		Why: []string{
			fmt.Sprintf("spend_total=%.2f", spend),
			fmt.Sprintf("income_total=%.2f", income),
			fmt.Sprintf("tx_count=%d", snap.TxCount),
		},
		Magnitude: 0,
	}, true
}

// rephrase lets the phraser rewrite the description only. Title, level and
// evidence are never touched, and any error keeps the template text.
func (g *Generator) rephrase(ctx context.Context, ins models.InsightRecord) models.InsightRecord {
	if g.phraser == nil {
		return ins
	}
	text, err := g.phraser.Rephrase(ctx, ins.Title, ins.Description, ins.Why)
	if err != nil || text == "" {
		if err != nil && g.log != nil {
			g.log.Warn("phrasing fallback",
				logger.String("title", ins.Title),
				logger.Error(err))
		}
		return ins
	}
	ins.Description = text
	return ins
}
