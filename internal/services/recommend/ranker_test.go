package recommend

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"FinSight/internal/domain/models"
)

func rankSnapshot() models.FeatureSnapshot {
	return models.FeatureSnapshot{
		UserID:           "u1",
		WindowDays:       90,
		AsOf:             time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		SpendTotal:       decimal.NewFromInt(2000),
		IncomeTotal:      decimal.NewFromInt(3000),
		InstallmentRatio: decimal.RequireFromString("0.10"),
		TxCount:          25,
		Categories: map[models.Category]models.CategoryStat{
			models.CategoryTravel:    {Total: decimal.NewFromInt(900), Count: 5},
			models.CategoryGroceries: {Total: decimal.NewFromInt(1100), Count: 20},
		},
	}
}

func TestRankExcludesIneligibleProducts(t *testing.T) {
	products := []models.Product{
		{
			Name:        "High Roller Card",
			Type:        "credit_card",
			Eligibility: models.EligibilityRule{MinSpendTotal: 10000},
			Affinity:    models.AffinityRule{Base: 0.99},
		},
		{
			Name:     "Everyday Account",
			Type:     "account",
			Affinity: models.AffinityRule{Base: 0.4},
		},
	}

	out, err := NewRanker().Rank(rankSnapshot(), nil, products)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(out))
	}
	if out[0].Product != "Everyday Account" {
		t.Fatalf("expected the eligible product, got %q", out[0].Product)
	}
}

func TestRankTiesBreakByNameAscending(t *testing.T) {
	products := []models.Product{
		{Name: "Zeta Saver", Type: "savings", Affinity: models.AffinityRule{Base: 0.75}},
		{Name: "Alpha Saver", Type: "savings", Affinity: models.AffinityRule{Base: 0.75}},
	}

	out, err := NewRanker().Rank(rankSnapshot(), nil, products)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(out))
	}
	if out[0].Product != "Alpha Saver" || out[1].Product != "Zeta Saver" {
		t.Fatalf("equal scores not ordered by name: %q then %q", out[0].Product, out[1].Product)
	}
}

func TestRankTagAndCategoryContributions(t *testing.T) {
	tags := []models.BehaviorTag{{Kind: models.TagTravelHeavy, Confidence: 1.0}}
	products := []models.Product{
		{
			Name: "Rewards Credit Card",
			Type: "credit_card",
			Affinity: models.AffinityRule{
				Base:            0.5,
				TagWeights:      map[models.TagKind]float64{models.TagTravelHeavy: 0.2},
				CategoryWeights: map[models.Category]float64{models.CategoryTravel: 0.2},
			},
		},
	}

	out, err := NewRanker().Rank(rankSnapshot(), tags, products)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(out))
	}
	// 0.5 base + 0.2*1.0 tag + 0.2*0.45 travel share
	want := 0.5 + 0.2 + 0.2*0.45
	if diff := out[0].Match - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected match %.4f, got %.4f", want, out[0].Match)
	}
	if len(out[0].Why) != 3 {
		t.Fatalf("expected base, tag and category evidence, got %v", out[0].Why)
	}
}

func TestRankMatchClampedToUnitInterval(t *testing.T) {
	tags := []models.BehaviorTag{{Kind: models.TagTravelHeavy, Confidence: 1.0}}
	products := []models.Product{
		{
			Name: "Overweighted",
			Type: "credit_card",
			Affinity: models.AffinityRule{
				Base:       0.9,
				TagWeights: map[models.TagKind]float64{models.TagTravelHeavy: 0.9},
			},
		},
	}

	out, err := NewRanker().Rank(rankSnapshot(), tags, products)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if out[0].Match != 1.0 {
		t.Fatalf("expected clamp to 1.0, got %v", out[0].Match)
	}
}

func TestRankForbiddenTagExcludes(t *testing.T) {
	tags := []models.BehaviorTag{{Kind: models.TagHighInstallmentUsage, Confidence: 1.0}}
	products := []models.Product{
		{
			Name:        "Premium Card",
			Type:        "credit_card",
			Eligibility: models.EligibilityRule{ForbidsTag: []models.TagKind{models.TagHighInstallmentUsage}},
			Affinity:    models.AffinityRule{Base: 0.9},
		},
	}

	out, err := NewRanker().Rank(rankSnapshot(), tags, products)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected no recommendations, got %d", len(out))
	}
}

func TestRankEmptyCatalogYieldsEmptyResult(t *testing.T) {
	out, err := NewRanker().Rank(rankSnapshot(), nil, nil)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected an empty result, got %d", len(out))
	}
}
