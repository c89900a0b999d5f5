package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"FinSight/internal/domain/models"
	"FinSight/internal/services/behavior"
	"FinSight/internal/services/features"
	"FinSight/internal/services/insights"
	"FinSight/internal/services/recommend"
)

type fakeLedger struct {
	loads   atomic.Int64
	records []models.TransactionRecord
	skipped int
	err     error
	delay   time.Duration
	last    time.Time
}

func (f *fakeLedger) Load(ctx context.Context, userID string, from, to time.Time) ([]models.TransactionRecord, int, error) {
	f.loads.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.records, f.skipped, nil
}

func (f *fakeLedger) LastPostedAt(ctx context.Context, userID string) (time.Time, bool, error) {
	if f.last.IsZero() {
		return time.Time{}, false, nil
	}
	return f.last, true, nil
}

type fakeCatalog struct {
	products []models.Product
	err      error
}

func (f *fakeCatalog) Products(ctx context.Context) ([]models.Product, error) {
	return f.products, f.err
}

func ledgerFixture() *fakeLedger {
	asOf := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return &fakeLedger{
		last: asOf,
		records: []models.TransactionRecord{
			{
				ID: "t1", UserID: "u1", PostedAt: asOf.AddDate(0, 0, -10),
				Direction: models.Credit, Amount: decimal.NewFromInt(3000),
				Currency: "EUR", Category: models.CategoryTransfers,
			},
			{
				ID: "t2", UserID: "u1", PostedAt: asOf.AddDate(0, 0, -5),
				Direction: models.Debit, Amount: decimal.NewFromInt(-1000),
				Currency: "EUR", Category: models.CategoryShopping,
				Installment: &models.Installment{IsInstallment: true, Months: 10, MonthlyAmount: decimal.NewFromInt(100)},
			},
		},
	}
}

func newOrchestrator(ledger *fakeLedger, catalog *fakeCatalog, opts ...OrchestratorOption) *ProfileOrchestrator {
	return NewProfileOrchestrator(
		ledger,
		catalog,
		features.NewEngine(),
		behavior.NewDetector(),
		insights.NewGenerator(nil),
		recommend.NewRanker(),
		nil,
		nil,
		opts...,
	)
}

func TestGetProfileRunsFullPipeline(t *testing.T) {
	ledger := ledgerFixture()
	catalog := &fakeCatalog{products: []models.Product{
		{Name: "Smart Saver", Type: "savings", Affinity: models.AffinityRule{Base: 0.75}},
	}}
	orc := newOrchestrator(ledger, catalog)

	profile, err := orc.GetProfile(context.Background(), "u1", 90, time.Time{})
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if !profile.Snapshot.SpendTotal.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("unexpected spend total %s", profile.Snapshot.SpendTotal)
	}
	if !models.HasTag(profile.Tags, models.TagHighInstallmentUsage) {
		t.Fatal("expected high_installment_usage tag")
	}
	if len(profile.Insights) == 0 {
		t.Fatal("expected insights")
	}
	if len(profile.Recommendations) != 1 || profile.Recommendations[0].Product != "Smart Saver" {
		t.Fatalf("unexpected recommendations: %+v", profile.Recommendations)
	}
	if profile.Errors != nil {
		t.Fatalf("unexpected section errors: %v", profile.Errors)
	}
	if len(profile.Transactions) != 2 {
		t.Fatalf("expected 2 window transactions, got %d", len(profile.Transactions))
	}
}

func TestZeroActivityProfileHasEmptySections(t *testing.T) {
	ledger := &fakeLedger{}
	// a product with no eligibility rule would match anyone who reaches
	// the ranker; a zero-activity user must never reach it
	catalog := &fakeCatalog{products: []models.Product{
		{Name: "Smart Saver", Type: "savings", Affinity: models.AffinityRule{Base: 0.55}},
	}}
	orc := newOrchestrator(ledger, catalog)

	profile, err := orc.GetProfile(context.Background(), "u1", 90, time.Time{})
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if profile.Snapshot.TxCount != 0 || !profile.Snapshot.SpendTotal.IsZero() {
		t.Fatalf("expected zero-activity snapshot, got %+v", profile.Snapshot)
	}
	if len(profile.Tags) != 0 {
		t.Fatalf("expected no tags, got %+v", profile.Tags)
	}
	if len(profile.Insights) != 0 {
		t.Fatalf("expected no insights, got %+v", profile.Insights)
	}
	if len(profile.Recommendations) != 0 {
		t.Fatalf("expected no recommendations, got %+v", profile.Recommendations)
	}
	if profile.Errors != nil {
		t.Fatalf("unexpected section errors: %v", profile.Errors)
	}
}

func TestCallerDeadlineMapsToComputationTimeout(t *testing.T) {
	ledger := ledgerFixture()
	ledger.delay = 200 * time.Millisecond
	orc := newOrchestrator(ledger, &fakeCatalog{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := orc.GetProfile(ctx, "u1", 90, time.Time{})
	if err != models.ErrComputationTimeout {
		t.Fatalf("expected computation timeout, got %v", err)
	}
}

func TestConcurrentRequestsCoalesceToOneLoad(t *testing.T) {
	ledger := ledgerFixture()
	ledger.delay = 50 * time.Millisecond
	orc := newOrchestrator(ledger, &fakeCatalog{})

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := orc.GetProfile(context.Background(), "u1", 90, time.Time{})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("GetProfile failed: %v", err)
		}
	}
	if got := ledger.loads.Load(); got != 1 {
		t.Fatalf("expected exactly 1 ledger load, got %d", got)
	}
}

func TestFreshProfileServedWithoutReload(t *testing.T) {
	ledger := ledgerFixture()
	orc := newOrchestrator(ledger, &fakeCatalog{}, WithTTL(time.Hour))

	for i := 0; i < 3; i++ {
		if _, err := orc.GetProfile(context.Background(), "u1", 90, time.Time{}); err != nil {
			t.Fatalf("GetProfile failed: %v", err)
		}
	}
	if got := ledger.loads.Load(); got != 1 {
		t.Fatalf("expected 1 ledger load for fresh cache, got %d", got)
	}
}

func TestExpiredProfileRecomputes(t *testing.T) {
	ledger := ledgerFixture()
	orc := newOrchestrator(ledger, &fakeCatalog{}, WithTTL(time.Nanosecond))

	if _, err := orc.GetProfile(context.Background(), "u1", 90, time.Time{}); err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	time.Sleep(time.Millisecond)
	if _, err := orc.GetProfile(context.Background(), "u1", 90, time.Time{}); err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if got := ledger.loads.Load(); got != 2 {
		t.Fatalf("expected recompute after expiry, got %d loads", got)
	}
}

func TestUnavailableLedgerRetriesThenFails(t *testing.T) {
	ledger := ledgerFixture()
	ledger.err = &models.DataUnavailableError{Source: "clickhouse", Err: context.DeadlineExceeded}
	orc := newOrchestrator(ledger, &fakeCatalog{}, WithMaxLoadAttempts(3))

	_, err := orc.GetProfile(context.Background(), "u1", 90, time.Time{})
	if !models.IsDataUnavailable(err) {
		t.Fatalf("expected data unavailable, got %v", err)
	}
	if got := ledger.loads.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestFailedEntryAllowsRetry(t *testing.T) {
	ledger := ledgerFixture()
	ledger.err = &models.DataUnavailableError{Source: "clickhouse", Err: context.DeadlineExceeded}
	orc := newOrchestrator(ledger, &fakeCatalog{}, WithMaxLoadAttempts(1))

	if _, err := orc.GetProfile(context.Background(), "u1", 90, time.Time{}); err == nil {
		t.Fatal("expected first attempt to fail")
	}

	ledger.err = nil
	if _, err := orc.GetProfile(context.Background(), "u1", 90, time.Time{}); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
}

func TestPipelineTimeout(t *testing.T) {
	ledger := ledgerFixture()
	ledger.delay = 200 * time.Millisecond
	orc := newOrchestrator(ledger, &fakeCatalog{}, WithTimeout(20*time.Millisecond))

	_, err := orc.GetProfile(context.Background(), "u1", 90, time.Time{})
	if err != models.ErrComputationTimeout {
		t.Fatalf("expected computation timeout, got %v", err)
	}
}

func TestCatalogFailureYieldsPartialProfile(t *testing.T) {
	ledger := ledgerFixture()
	catalog := &fakeCatalog{err: &models.DataUnavailableError{Source: "catalog", Err: context.DeadlineExceeded}}
	orc := newOrchestrator(ledger, catalog)

	profile, err := orc.GetProfile(context.Background(), "u1", 90, time.Time{})
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if len(profile.Insights) == 0 {
		t.Fatal("expected insights despite catalog failure")
	}
	if _, ok := profile.Errors["recommendations"]; !ok {
		t.Fatalf("expected a recommendations error, got %v", profile.Errors)
	}
}

func TestInvalidateForcesReload(t *testing.T) {
	ledger := ledgerFixture()
	orc := newOrchestrator(ledger, &fakeCatalog{}, WithTTL(time.Hour))

	if _, err := orc.GetProfile(context.Background(), "u1", 90, time.Time{}); err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	orc.Invalidate("u1")
	if _, err := orc.GetProfile(context.Background(), "u1", 90, time.Time{}); err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if got := ledger.loads.Load(); got != 2 {
		t.Fatalf("expected reload after invalidate, got %d loads", got)
	}
}

func TestDistinctWindowsComputeSeparately(t *testing.T) {
	ledger := ledgerFixture()
	orc := newOrchestrator(ledger, &fakeCatalog{}, WithTTL(time.Hour))

	if _, err := orc.GetProfile(context.Background(), "u1", 30, time.Time{}); err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if _, err := orc.GetProfile(context.Background(), "u1", 90, time.Time{}); err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if got := ledger.loads.Load(); got != 2 {
		t.Fatalf("expected one load per window, got %d", got)
	}
}
