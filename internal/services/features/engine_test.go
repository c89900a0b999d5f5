package features

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"FinSight/internal/domain/models"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func salaryAndInstallment(asOf time.Time) []models.TransactionRecord {
	return []models.TransactionRecord{
		{
			ID:        "t1",
			UserID:    "u1",
			PostedAt:  asOf.AddDate(0, 0, -10),
			Direction: models.Credit,
			Amount:    decimal.NewFromInt(3000),
			Currency:  "EUR",
			Category:  models.CategoryTransfers,
		},
		{
			ID:        "t2",
			UserID:    "u1",
			PostedAt:  asOf.AddDate(0, 0, -5),
			Direction: models.Debit,
			Amount:    decimal.NewFromInt(-1000),
			Currency:  "EUR",
			Category:  models.CategoryShopping,
			Installment: &models.Installment{
				IsInstallment: true,
				Months:        10,
				MonthlyAmount: decimal.NewFromInt(100),
			},
		},
	}
}

func TestComputeSalaryAndInstallmentPurchase(t *testing.T) {
	asOf := day("2026-03-01")
	engine := NewEngine()

	snap, err := engine.Compute("u1", asOf, 90, salaryAndInstallment(asOf), 0)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	if !snap.SpendTotal.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected spend 1000, got %s", snap.SpendTotal)
	}
	if !snap.IncomeTotal.Equal(decimal.NewFromInt(3000)) {
		t.Fatalf("expected income 3000, got %s", snap.IncomeTotal)
	}
	if snap.TxCount != 2 {
		t.Fatalf("expected 2 transactions, got %d", snap.TxCount)
	}
	if !snap.InstallmentRatio.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected installment ratio 1, got %s", snap.InstallmentRatio)
	}

	shop, ok := snap.Categories[models.CategoryShopping]
	if !ok {
		t.Fatal("expected a Shopping category stat")
	}
	if !shop.Total.Equal(decimal.NewFromInt(1000)) || shop.Count != 1 {
		t.Fatalf("unexpected Shopping stat: %+v", shop)
	}
	if shop.RecencyDays != 5 {
		t.Fatalf("expected recency 5 days, got %d", shop.RecencyDays)
	}
}

func TestComputeEmptyLedger(t *testing.T) {
	asOf := day("2026-03-01")
	engine := NewEngine()

	snap, err := engine.Compute("u1", asOf, 90, nil, 0)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if !snap.SpendTotal.IsZero() || !snap.IncomeTotal.IsZero() {
		t.Fatalf("expected zero totals, got spend=%s income=%s", snap.SpendTotal, snap.IncomeTotal)
	}
	if snap.TxCount != 0 {
		t.Fatalf("expected 0 transactions, got %d", snap.TxCount)
	}
	if !snap.InstallmentRatio.IsZero() {
		t.Fatalf("expected zero installment ratio on zero spend, got %s", snap.InstallmentRatio)
	}
	if len(snap.Categories) != 0 {
		t.Fatalf("expected no category stats, got %d", len(snap.Categories))
	}
}

func TestComputeCategoryTotalsMatchSpend(t *testing.T) {
	asOf := day("2026-03-01")
	records := []models.TransactionRecord{
		{ID: "a", UserID: "u1", PostedAt: asOf.AddDate(0, 0, -1), Direction: models.Debit, Amount: decimal.RequireFromString("-120.55"), Category: models.CategoryGroceries},
		{ID: "b", UserID: "u1", PostedAt: asOf.AddDate(0, 0, -3), Direction: models.Debit, Amount: decimal.RequireFromString("-80.45"), Category: models.CategoryGroceries},
		{ID: "c", UserID: "u1", PostedAt: asOf.AddDate(0, 0, -7), Direction: models.Debit, Amount: decimal.RequireFromString("-310.00"), Category: models.CategoryTravel},
		{ID: "d", UserID: "u1", PostedAt: asOf.AddDate(0, 0, -9), Direction: models.Credit, Amount: decimal.RequireFromString("2500.00"), Category: models.CategoryTransfers},
	}

	snap, err := NewEngine().Compute("u1", asOf, 30, records, 0)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	sum := decimal.Zero
	for _, st := range snap.Categories {
		sum = sum.Add(st.Total)
	}
	if !sum.Equal(snap.SpendTotal) {
		t.Fatalf("category totals %s do not add up to spend %s", sum, snap.SpendTotal)
	}
	if !snap.SpendTotal.Equal(decimal.RequireFromString("511.00")) {
		t.Fatalf("expected spend 511.00, got %s", snap.SpendTotal)
	}
}

func TestComputeWindowBoundaries(t *testing.T) {
	asOf := day("2026-03-01")
	records := []models.TransactionRecord{
		// inside the target window
		{ID: "in", UserID: "u1", PostedAt: asOf.AddDate(0, 0, -30), Direction: models.Debit, Amount: decimal.NewFromInt(-100), Category: models.CategoryShopping},
		// prior window: feeds trend only
		{ID: "prior", UserID: "u1", PostedAt: asOf.AddDate(0, 0, -40), Direction: models.Debit, Amount: decimal.NewFromInt(-300), Category: models.CategoryShopping},
		// outside both windows
		{ID: "old", UserID: "u1", PostedAt: asOf.AddDate(0, 0, -90), Direction: models.Debit, Amount: decimal.NewFromInt(-999), Category: models.CategoryShopping},
		// after as_of
		{ID: "future", UserID: "u1", PostedAt: asOf.AddDate(0, 0, 1), Direction: models.Debit, Amount: decimal.NewFromInt(-999), Category: models.CategoryShopping},
	}

	snap, err := NewEngine().Compute("u1", asOf, 30, records, 0)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if snap.TxCount != 1 {
		t.Fatalf("expected only the in-window record, got %d", snap.TxCount)
	}
	shop := snap.Categories[models.CategoryShopping]
	if !shop.TrendDelta.Equal(decimal.NewFromInt(-200)) {
		t.Fatalf("expected trend delta -200, got %s", shop.TrendDelta)
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	asOf := day("2026-03-01")
	records := salaryAndInstallment(asOf)
	engine := NewEngine()

	first, err := engine.Compute("u1", asOf, 90, records, 2)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	second, err := engine.Compute("u1", asOf, 90, records, 2)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if !first.SpendTotal.Equal(second.SpendTotal) ||
		!first.InstallmentRatio.Equal(second.InstallmentRatio) ||
		first.TxCount != second.TxCount ||
		first.SkippedRecords != second.SkippedRecords {
		t.Fatalf("expected identical snapshots, got %+v vs %+v", first, second)
	}
}

func TestComputeRejectsForeignRecords(t *testing.T) {
	asOf := day("2026-03-01")
	records := []models.TransactionRecord{
		{ID: "x", UserID: "someone-else", PostedAt: asOf, Direction: models.Credit, Amount: decimal.NewFromInt(1)},
	}
	if _, err := NewEngine().Compute("u1", asOf, 90, records, 0); !models.IsInvariantViolation(err) {
		t.Fatalf("expected an invariant violation, got %v", err)
	}
}
