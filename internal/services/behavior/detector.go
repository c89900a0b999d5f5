package behavior

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"FinSight/internal/domain/models"
)

// Thresholds for the hard rules. Soft tags go through the logistic scorer.
var (
	installmentRatioThreshold = decimal.RequireFromString("0.30")
	travelShareThreshold      = decimal.RequireFromString("0.35")
)

// Detector classifies a feature snapshot into behavior tags. Classification
// is deterministic: same snapshot, same tags in the same order.
type Detector struct {
	cutoff float64
}

type Option func(*Detector)

// WithCutoff overrides the logistic score cutoff for soft tags.
func WithCutoff(c float64) Option {
	return func(d *Detector) {
		if c > 0 && c < 1 {
			d.cutoff = c
		}
	}
}

func NewDetector(opts ...Option) *Detector {
	d := &Detector{cutoff: 0.5}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Classify derives behavior tags from the snapshot. Hard rules fire at
// fixed thresholds with evidence; soft tags fire when their logistic score
// clears the cutoff, with the score as confidence. Tags are returned sorted
// by kind for stable output.
func (d *Detector) Classify(snap models.FeatureSnapshot) ([]models.BehaviorTag, error) {
	if snap.SpendTotal.IsNegative() || snap.IncomeTotal.IsNegative() {
		return nil, &models.InvariantViolationError{
			Field:  "totals",
			Detail: fmt.Sprintf("spend=%s income=%s", snap.SpendTotal, snap.IncomeTotal),
		}
	}

	// a window with no activity carries no behavior to tag; dormant is
	// reserved for thin-but-nonzero activity
	if snap.Empty() {
		return []models.BehaviorTag{}, nil
	}

	var tags []models.BehaviorTag

	if snap.InstallmentRatio.GreaterThanOrEqual(installmentRatioThreshold) {
		tags = append(tags, models.BehaviorTag{
			Kind:       models.TagHighInstallmentUsage,
			Confidence: 1.0,
			Evidence: []string{
				fmt.Sprintf("installment_ratio=%s", snap.InstallmentRatio.Round(4)),
				fmt.Sprintf("threshold=%s", installmentRatioThreshold),
			},
		})
	}

	if travelShare := snap.CategoryShare(models.CategoryTravel); travelShare.GreaterThanOrEqual(travelShareThreshold) {
		tags = append(tags, models.BehaviorTag{
			Kind:       models.TagTravelHeavy,
			Confidence: 1.0,
			Evidence: []string{
				fmt.Sprintf("travel_share=%s", travelShare.Round(4)),
				fmt.Sprintf("threshold=%s", travelShareThreshold),
			},
		})
	}

	for _, soft := range []struct {
		kind     models.TagKind
		score    float64
		evidence []string
	}{
		{models.TagStableIncome, d.stableIncomeScore(snap), []string{
			fmt.Sprintf("income_total=%s", snap.IncomeTotal.Round(2)),
			fmt.Sprintf("spend_total=%s", snap.SpendTotal.Round(2)),
		}},
		{models.TagSpendConcentrated, d.concentrationScore(snap), []string{
			fmt.Sprintf("top_share=%s", topShare(snap).Round(4)),
		}},
		{models.TagRisingSpend, d.risingSpendScore(snap), []string{
			fmt.Sprintf("trend_total=%s", trendTotal(snap).Round(2)),
		}},
		{models.TagDormant, d.dormantScore(snap), []string{
			fmt.Sprintf("tx_count=%d", snap.TxCount),
			fmt.Sprintf("window_days=%d", snap.WindowDays),
		}},
	} {
		if soft.score >= d.cutoff {
			tags = append(tags, models.BehaviorTag{
				Kind:       soft.kind,
				Confidence: soft.score,
				Evidence:   soft.evidence,
			})
		}
	}

	sort.Slice(tags, func(i, j int) bool { return tags[i].Kind < tags[j].Kind })
	return tags, nil
}

// logistic squashes a weighted feature sum into (0,1).
func logistic(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// stableIncomeScore rises with income covering spend by a healthy margin.
func (d *Detector) stableIncomeScore(snap models.FeatureSnapshot) float64 {
	if snap.IncomeTotal.IsZero() {
		return 0
	}
	coverage, _ := snap.IncomeTotal.Div(snap.IncomeTotal.Add(snap.SpendTotal)).Float64()
	// centered so coverage 0.5 (income == spend) scores exactly the midpoint
	return logistic(8.0 * (coverage - 0.5))
}

// concentrationScore rises with the single largest category share.
func (d *Detector) concentrationScore(snap models.FeatureSnapshot) float64 {
	share, _ := topShare(snap).Float64()
	if share == 0 {
		return 0
	}
	return logistic(10.0 * (share - 0.5))
}

// risingSpendScore rises with spend growth against the prior window.
func (d *Detector) risingSpendScore(snap models.FeatureSnapshot) float64 {
	if snap.SpendTotal.IsZero() {
		return 0
	}
	growth, _ := trendTotal(snap).Div(snap.SpendTotal).Float64()
	return logistic(6.0 * (growth - 0.25))
}

// dormantScore rises as activity thins out relative to the window length.
func (d *Detector) dormantScore(snap models.FeatureSnapshot) float64 {
	if snap.WindowDays <= 0 {
		return 0
	}
	perWeek := float64(snap.TxCount) / (float64(snap.WindowDays) / 7.0)
	return logistic(4.0 * (0.5 - perWeek))
}

func topShare(snap models.FeatureSnapshot) decimal.Decimal {
	top := snap.TopCategories(1)
	if len(top) == 0 {
		return decimal.Zero
	}
	return snap.CategoryShare(top[0])
}

func trendTotal(snap models.FeatureSnapshot) decimal.Decimal {
	total := decimal.Zero
	for _, st := range snap.Categories {
		total = total.Add(st.TrendDelta)
	}
	return total
}
