package features

import (
	"errors"
	"testing"

	"FinSight/internal/domain/models"
)

func validRaw() RawTransaction {
	return RawTransaction{
		ID:        "tx-1",
		UserID:    "u1",
		PostedAt:  "2026-02-10",
		Direction: "debit",
		Amount:    "-42.50",
		Currency:  "EUR",
		MCC:       5411,
	}
}

func TestNormalizeValidRow(t *testing.T) {
	rec, err := Normalize(validRaw())
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if rec.Category != models.CategoryGroceries {
		t.Fatalf("expected Groceries for MCC 5411, got %s", rec.Category)
	}
	if rec.Direction != models.Debit {
		t.Fatalf("expected debit, got %s", rec.Direction)
	}
	if rec.Magnitude().String() != "42.5" {
		t.Fatalf("unexpected magnitude %s", rec.Magnitude())
	}
}

func TestNormalizeRejectsBadRows(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*RawTransaction)
	}{
		{"missing id", func(r *RawTransaction) { r.ID = "" }},
		{"missing user", func(r *RawTransaction) { r.UserID = "" }},
		{"bad date", func(r *RawTransaction) { r.PostedAt = "not-a-date" }},
		{"bad direction", func(r *RawTransaction) { r.Direction = "sideways" }},
		{"bad amount", func(r *RawTransaction) { r.Amount = "lots" }},
		{"sign mismatch", func(r *RawTransaction) { r.Amount = "42.50" }},
	}
	for _, tc := range cases {
		raw := validRaw()
		tc.mutate(&raw)
		_, err := Normalize(raw)
		var sv *models.SchemaViolationError
		if !errors.As(err, &sv) {
			t.Fatalf("%s: expected a schema violation, got %v", tc.name, err)
		}
	}
}

func TestNormalizeInstallmentTerms(t *testing.T) {
	raw := validRaw()
	raw.IsInstallment = true
	raw.Months = 6
	raw.MonthlyAmount = 7.08

	rec, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if rec.Installment == nil || !rec.Installment.IsInstallment || rec.Installment.Months != 6 {
		t.Fatalf("unexpected installment terms: %+v", rec.Installment)
	}
}

func TestCategoryForMCCFallsBackToOther(t *testing.T) {
	if got := CategoryForMCC(1234); got != models.CategoryOther {
		t.Fatalf("expected Other for unknown MCC, got %s", got)
	}
	if got := CategoryForMCC(4511); got != models.CategoryTravel {
		t.Fatalf("expected Travel for 4511, got %s", got)
	}
}

func TestNormalizeAcceptsRFC3339Timestamps(t *testing.T) {
	raw := validRaw()
	raw.PostedAt = "2026-02-10T15:04:05Z"
	if _, err := Normalize(raw); err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
}
