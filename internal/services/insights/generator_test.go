package insights

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"FinSight/internal/domain/models"
)

func activeSnapshot() models.FeatureSnapshot {
	return models.FeatureSnapshot{
		UserID:           "u1",
		WindowDays:       90,
		AsOf:             time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		SpendTotal:       decimal.NewFromInt(1000),
		IncomeTotal:      decimal.NewFromInt(3000),
		InstallmentRatio: decimal.RequireFromString("0.45"),
		TxCount:          12,
		Categories: map[models.Category]models.CategoryStat{
			models.CategoryShopping:  {Total: decimal.NewFromInt(700), Count: 6},
			models.CategoryGroceries: {Total: decimal.NewFromInt(300), Count: 6},
		},
	}
}

func TestExplainEmptySnapshotYieldsNoInsights(t *testing.T) {
	gen := NewGenerator(nil)
	out, err := gen.Explain(context.Background(), models.FeatureSnapshot{UserID: "u1", WindowDays: 90}, nil)
	if err != nil {
		t.Fatalf("Explain failed: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected no insights for an empty snapshot, got %d", len(out))
	}
}

func TestExplainOrdersBySeverityThenMagnitude(t *testing.T) {
	tags := []models.BehaviorTag{
		{Kind: models.TagHighInstallmentUsage, Confidence: 1.0},
	}

	out, err := NewGenerator(nil).Explain(context.Background(), activeSnapshot(), tags)
	if err != nil {
		t.Fatalf("Explain failed: %v", err)
	}
	if len(out) < 3 {
		t.Fatalf("expected concentration, installment and baseline insights, got %d", len(out))
	}
	for i := 1; i < len(out); i++ {
		prev, cur := out[i-1], out[i]
		if models.LevelRank(prev.Level) > models.LevelRank(cur.Level) {
			t.Fatalf("insights out of severity order: %s before %s", prev.Level, cur.Level)
		}
		if prev.Level == cur.Level && prev.Magnitude < cur.Magnitude {
			t.Fatalf("insights out of magnitude order within level %s", cur.Level)
		}
	}
	if out[0].Level != models.LevelHigh {
		t.Fatalf("expected the concentration insight first, got %q", out[0].Title)
	}
}

func TestExplainEveryInsightCarriesEvidence(t *testing.T) {
	tags := []models.BehaviorTag{
		{Kind: models.TagHighInstallmentUsage, Confidence: 1.0},
		{Kind: models.TagTravelHeavy, Confidence: 1.0},
	}
	out, err := NewGenerator(nil).Explain(context.Background(), activeSnapshot(), tags)
	if err != nil {
		t.Fatalf("Explain failed: %v", err)
	}
	for _, ins := range out {
		if len(ins.Why) == 0 {
			t.Fatalf("insight %q has no evidence", ins.Title)
		}
		if ins.Description == "" || ins.Impact == "" {
			t.Fatalf("insight %q missing description or impact", ins.Title)
		}
	}
}

type stubPhraser struct {
	text string
	err  error
}

func (s stubPhraser) Rephrase(_ context.Context, _, _ string, _ []string) (string, error) {
	return s.text, s.err
}

func TestPhraserRewritesDescriptionOnly(t *testing.T) {
	gen := NewGenerator(nil, WithPhraser(stubPhraser{text: "friendlier words"}))

	out, err := gen.Explain(context.Background(), activeSnapshot(), nil)
	if err != nil {
		t.Fatalf("Explain failed: %v", err)
	}
	for _, ins := range out {
		if ins.Description != "friendlier words" {
			t.Fatalf("expected rewritten description, got %q", ins.Description)
		}
		if len(ins.Why) == 0 {
			t.Fatal("phraser must not strip evidence")
		}
	}
}

func TestPhraserFailureKeepsTemplateText(t *testing.T) {
	gen := NewGenerator(nil, WithPhraser(stubPhraser{err: errors.New("service down")}))

	out, err := gen.Explain(context.Background(), activeSnapshot(), nil)
	if err != nil {
		t.Fatalf("Explain failed: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("expected insights despite phraser failure")
	}
	for _, ins := range out {
		if ins.Description == "" {
			t.Fatalf("insight %q lost its description on phraser failure", ins.Title)
		}
	}
}
