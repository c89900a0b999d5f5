package usecase

import (
	"context"
	"fmt"
	"time"

	"FinSight/internal/domain/models"
	domrepo "FinSight/internal/domain/repository"
)

// LedgerQueryUseCase serves raw transaction listings straight from the
// ledger, bypassing the profile pipeline for callers that only want rows.
type LedgerQueryUseCase struct {
	ledger domrepo.Ledger
}

func NewLedgerQueryUseCase(ledger domrepo.Ledger) *LedgerQueryUseCase {
	return &LedgerQueryUseCase{ledger: ledger}
}

type GetTransactionsParams struct {
	UserID     string
	WindowDays int
	AsOf       time.Time
	Limit      int
}

type GetTransactionsResult struct {
	UserID       string
	WindowDays   int
	AsOf         time.Time
	Count        int
	Skipped      int
	Transactions []models.TransactionRecord
}

func (uc *LedgerQueryUseCase) GetTransactions(ctx context.Context, p GetTransactionsParams) (*GetTransactionsResult, error) {
	if p.UserID == "" {
		return nil, fmt.Errorf("user id required")
	}
	p.WindowDays = domrepo.NormalizeWindowDays(p.WindowDays)
	if p.Limit <= 0 {
		p.Limit = 200
	}
	if p.Limit > 2000 {
		p.Limit = 2000
	}

	asOf := p.AsOf
	if asOf.IsZero() {
		last, ok, err := uc.ledger.LastPostedAt(ctx, p.UserID)
		if err != nil {
			return nil, err
		}
		if ok {
			asOf = last
		} else {
			asOf = time.Now().UTC()
		}
	}

	from := asOf.AddDate(0, 0, -p.WindowDays)
	records, skipped, err := uc.ledger.Load(ctx, p.UserID, from, asOf)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	if len(records) > p.Limit {
		// keep the most recent rows; Load returns posted_at ascending
		records = records[len(records)-p.Limit:]
	}

	return &GetTransactionsResult{
		UserID:       p.UserID,
		WindowDays:   p.WindowDays,
		AsOf:         asOf,
		Count:        len(records),
		Skipped:      skipped,
		Transactions: records,
	}, nil
}
