package behavior

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"FinSight/internal/domain/models"
)

func snapshotWith(spend, income, ratio string, cats map[models.Category]models.CategoryStat) models.FeatureSnapshot {
	return models.FeatureSnapshot{
		UserID:           "u1",
		WindowDays:       90,
		AsOf:             time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		SpendTotal:       decimal.RequireFromString(spend),
		IncomeTotal:      decimal.RequireFromString(income),
		InstallmentRatio: decimal.RequireFromString(ratio),
		Categories:       cats,
		TxCount:          20,
	}
}

func TestClassifyHighInstallmentUsageAtThreshold(t *testing.T) {
	snap := snapshotWith("1000", "0", "0.30", nil)

	tags, err := NewDetector().Classify(snap)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if !models.HasTag(tags, models.TagHighInstallmentUsage) {
		t.Fatal("expected high_installment_usage at ratio 0.30")
	}
	for _, tag := range tags {
		if tag.Kind == models.TagHighInstallmentUsage {
			if tag.Confidence != 1.0 {
				t.Fatalf("expected confidence 1.0, got %v", tag.Confidence)
			}
			if len(tag.Evidence) == 0 {
				t.Fatal("expected evidence on the tag")
			}
		}
	}
}

func TestClassifyBelowInstallmentThreshold(t *testing.T) {
	snap := snapshotWith("1000", "0", "0.29", nil)

	tags, err := NewDetector().Classify(snap)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if models.HasTag(tags, models.TagHighInstallmentUsage) {
		t.Fatal("did not expect high_installment_usage at ratio 0.29")
	}
}

func TestClassifyTravelHeavy(t *testing.T) {
	snap := snapshotWith("1000", "0", "0", map[models.Category]models.CategoryStat{
		models.CategoryTravel:    {Total: decimal.NewFromInt(400), Count: 4},
		models.CategoryGroceries: {Total: decimal.NewFromInt(600), Count: 12},
	})

	tags, err := NewDetector().Classify(snap)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if !models.HasTag(tags, models.TagTravelHeavy) {
		t.Fatal("expected travel_heavy at 40% travel share")
	}
}

func TestClassifyEmptyWindowYieldsNoTags(t *testing.T) {
	snap := snapshotWith("0", "0", "0", nil)
	snap.TxCount = 0

	tags, err := NewDetector().Classify(snap)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if len(tags) != 0 {
		t.Fatalf("expected no tags for a zero-activity window, got %+v", tags)
	}
}

func TestClassifyDormantWhenActivityThin(t *testing.T) {
	snap := snapshotWith("50", "0", "0", nil)
	snap.TxCount = 1

	tags, err := NewDetector().Classify(snap)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if !models.HasTag(tags, models.TagDormant) {
		t.Fatal("expected dormant for 1 transaction in 90 days")
	}
}

func TestClassifyStableIncome(t *testing.T) {
	snap := snapshotWith("1000", "4000", "0", nil)

	tags, err := NewDetector().Classify(snap)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if !models.HasTag(tags, models.TagStableIncome) {
		t.Fatal("expected stable_income when income well exceeds spend")
	}
}

func TestClassifyDeterministicAndSorted(t *testing.T) {
	snap := snapshotWith("1000", "4000", "0.45", map[models.Category]models.CategoryStat{
		models.CategoryTravel: {Total: decimal.NewFromInt(800), Count: 4},
	})

	det := NewDetector()
	first, err := det.Classify(snap)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	second, err := det.Classify(snap)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("classification not deterministic: %+v vs %+v", first, second)
	}
	for i := 1; i < len(first); i++ {
		if first[i-1].Kind >= first[i].Kind {
			t.Fatalf("tags not sorted by kind: %+v", first)
		}
	}
}

func TestClassifyRejectsNegativeTotals(t *testing.T) {
	snap := snapshotWith("1000", "0", "0", nil)
	snap.SpendTotal = decimal.NewFromInt(-1)

	if _, err := NewDetector().Classify(snap); !models.IsInvariantViolation(err) {
		t.Fatalf("expected an invariant violation, got %v", err)
	}
}

func TestWithCutoffRaisesBar(t *testing.T) {
	snap := snapshotWith("1000", "1300", "0", nil)

	loose, err := NewDetector(WithCutoff(0.5)).Classify(snap)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	strict, err := NewDetector(WithCutoff(0.95)).Classify(snap)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if len(strict) > len(loose) {
		t.Fatalf("strict cutoff produced more tags (%d) than loose (%d)", len(strict), len(loose))
	}
}
