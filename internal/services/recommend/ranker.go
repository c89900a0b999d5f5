package recommend

import (
	"fmt"
	"sort"

	"FinSight/internal/domain/models"
)

// Ranker scores catalog products against a feature snapshot and its behavior
// tags. Eligibility is a hard gate: an ineligible product is excluded, never
// shown with a low score. Ranking is deterministic.
type Ranker struct{}

func NewRanker() *Ranker {
	return &Ranker{}
}

// Rank returns eligible products sorted by match descending, ties broken by
// product name ascending. An empty result is a valid outcome.
func (r *Ranker) Rank(snap models.FeatureSnapshot, tags []models.BehaviorTag, products []models.Product) ([]models.RecommendationRecord, error) {
	out := make([]models.RecommendationRecord, 0, len(products))
	for _, p := range products {
		if !eligible(p.Eligibility, snap, tags) {
			continue
		}
		match, why := affinity(p.Affinity, snap, tags)
		out = append(out, models.RecommendationRecord{
			Product:     p.Name,
			Type:        p.Type,
			Match:       match,
			Why:         why,
			Explanation: fmt.Sprintf("%s matches %.0f%% of your recent activity profile.", p.Name, match*100),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Match != out[j].Match {
			return out[i].Match > out[j].Match
		}
		return out[i].Product < out[j].Product
	})
	return out, nil
}

func eligible(rule models.EligibilityRule, snap models.FeatureSnapshot, tags []models.BehaviorTag) bool {
	if rule.MinTxCount > 0 && snap.TxCount < rule.MinTxCount {
		return false
	}
	if rule.MinSpendTotal > 0 {
		spend, _ := snap.SpendTotal.Float64()
		if spend < rule.MinSpendTotal {
			return false
		}
	}
	if rule.MaxInstallmentRatio > 0 {
		ratio, _ := snap.InstallmentRatio.Float64()
		if ratio > rule.MaxInstallmentRatio {
			return false
		}
	}
	if len(rule.RequiresAnyTag) > 0 {
		any := false
		for _, k := range rule.RequiresAnyTag {
			if models.HasTag(tags, k) {
				any = true
				break
			}
		}
		if !any {
			return false
		}
	}
	for _, k := range rule.ForbidsTag {
		if models.HasTag(tags, k) {
			return false
		}
	}
	return true
}

// affinity computes the match score, clamped to [0,1], and the evidence
// lines for each contribution that actually applied.
func affinity(rule models.AffinityRule, snap models.FeatureSnapshot, tags []models.BehaviorTag) (float64, []string) {
	score := rule.Base
	why := []string{fmt.Sprintf("base=%.2f", rule.Base)}

	// iterate tags, not the weight map, for deterministic evidence order
	for _, t := range tags {
		if w, ok := rule.TagWeights[t.Kind]; ok && w != 0 {
			score += w * t.Confidence
			why = append(why, fmt.Sprintf("tag %s (confidence %.2f) contributes %.2f", t.Kind, t.Confidence, w*t.Confidence))
		}
	}

	for _, c := range snap.TopCategories(0) {
		if w, ok := rule.CategoryWeights[c]; ok && w != 0 {
			share, _ := snap.CategoryShare(c).Float64()
			score += w * share
			why = append(why, fmt.Sprintf("category %s (share %.2f) contributes %.2f", c, share, w*share))
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, why
}
