package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"FinSight/internal/domain/models"
)

func manyRecords(n int, asOf time.Time) []models.TransactionRecord {
	records := make([]models.TransactionRecord, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, models.TransactionRecord{
			ID:        fmt.Sprintf("t%04d", i),
			UserID:    "u1",
			PostedAt:  asOf.Add(-time.Duration(n-i) * time.Hour),
			Direction: models.Debit,
			Amount:    decimal.NewFromInt(-10),
			Currency:  "EUR",
			Category:  models.CategoryOther,
		})
	}
	return records
}

func TestGetTransactionsAnchorsOnLastPostedAt(t *testing.T) {
	ledger := ledgerFixture()
	uc := NewLedgerQueryUseCase(ledger)

	res, err := uc.GetTransactions(context.Background(), GetTransactionsParams{UserID: "u1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.AsOf.Equal(ledger.last) {
		t.Fatalf("expected as_of %v, got %v", ledger.last, res.AsOf)
	}
	if res.WindowDays != 90 {
		t.Fatalf("expected default window 90, got %d", res.WindowDays)
	}
	if res.Count != 2 {
		t.Fatalf("expected 2 records, got %d", res.Count)
	}
}

func TestGetTransactionsRequiresUser(t *testing.T) {
	uc := NewLedgerQueryUseCase(ledgerFixture())

	if _, err := uc.GetTransactions(context.Background(), GetTransactionsParams{}); err == nil {
		t.Fatalf("expected error for missing user id")
	}
}

func TestGetTransactionsLimitKeepsMostRecent(t *testing.T) {
	asOf := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	ledger := &fakeLedger{last: asOf, records: manyRecords(50, asOf)}
	uc := NewLedgerQueryUseCase(ledger)

	res, err := uc.GetTransactions(context.Background(), GetTransactionsParams{UserID: "u1", Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Count != 10 {
		t.Fatalf("expected 10 records, got %d", res.Count)
	}
	// the newest row must survive the cut
	if got := res.Transactions[len(res.Transactions)-1].ID; got != "t0049" {
		t.Fatalf("expected newest record last, got %s", got)
	}
}

func TestGetTransactionsPropagatesLedgerFailure(t *testing.T) {
	ledger := &fakeLedger{last: time.Now(), err: &models.DataUnavailableError{Source: "clickhouse"}}
	uc := NewLedgerQueryUseCase(ledger)

	_, err := uc.GetTransactions(context.Background(), GetTransactionsParams{UserID: "u1"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !models.IsDataUnavailable(err) {
		t.Fatalf("expected data unavailable, got %v", err)
	}
}
