package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"FinSight/internal/domain/models"
	"FinSight/internal/domain/repository"
	"FinSight/internal/domain/service"
	"FinSight/internal/services/features"
	"FinSight/pkg/logger"
	"FinSight/pkg/util"
)

// profileKey identifies one pipeline computation. Requests with an explicit
// as_of get their own key so historical views never collide with live ones.
type profileKey struct {
	UserID     string
	WindowDays int
	AsOf       time.Time // zero means "anchor at latest activity"
}

type profileState int

const (
	stateIdle profileState = iota
	stateLoading
	stateComputing
	stateReady
	stateFailed
)

// profileEntry tracks one key through the pipeline. done is closed exactly
// once when the entry reaches READY or FAILED, releasing every waiter.
type profileEntry struct {
	state     profileState
	profile   *models.UserProfile
	err       error
	done      chan struct{}
	expiresAt time.Time
}

// ProfileOrchestrator runs the full pipeline for a (user, window, as_of)
// key: load the ledger, compute features, classify behavior, then generate
// insights and rank recommendations in parallel. Concurrent requests for
// the same key coalesce onto a single run, so the ledger is read once per
// in-flight key.
type ProfileOrchestrator struct {
	ledger     repository.Ledger
	catalog    repository.Catalog
	engine     *features.Engine
	classifier service.BehaviorClassifier
	insights   service.InsightGenerator
	ranker     service.RecommendationRanker
	metrics    repository.Metrics
	log        *logger.Logger

	ttl         time.Duration
	timeout     time.Duration
	maxAttempts int

	mu      sync.Mutex
	entries map[profileKey]*profileEntry
}

type OrchestratorOption func(*ProfileOrchestrator)

// WithTTL sets how long a READY profile is served before recomputation.
func WithTTL(d time.Duration) OrchestratorOption {
	return func(o *ProfileOrchestrator) {
		if d > 0 {
			o.ttl = d
		}
	}
}

// WithTimeout caps one full pipeline run.
func WithTimeout(d time.Duration) OrchestratorOption {
	return func(o *ProfileOrchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithMaxLoadAttempts bounds the ledger retry loop for unavailable data.
func WithMaxLoadAttempts(n int) OrchestratorOption {
	return func(o *ProfileOrchestrator) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

func NewProfileOrchestrator(
	ledger repository.Ledger,
	catalog repository.Catalog,
	engine *features.Engine,
	classifier service.BehaviorClassifier,
	insights service.InsightGenerator,
	ranker service.RecommendationRanker,
	metrics repository.Metrics,
	log *logger.Logger,
	opts ...OrchestratorOption,
) *ProfileOrchestrator {
	o := &ProfileOrchestrator{
		ledger:      ledger,
		catalog:     catalog,
		engine:      engine,
		classifier:  classifier,
		insights:    insights,
		ranker:      ranker,
		metrics:     metrics,
		log:         log,
		ttl:         5 * time.Minute,
		timeout:     10 * time.Second,
		maxAttempts: 3,
		entries:     make(map[profileKey]*profileEntry),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// GetProfile returns the profile for the key, computing it if no fresh one
// exists. Callers arriving while a run is in flight wait on the same result.
func (o *ProfileOrchestrator) GetProfile(ctx context.Context, userID string, windowDays int, asOf time.Time) (*models.UserProfile, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id required")
	}
	windowDays = repository.NormalizeWindowDays(windowDays)
	key := profileKey{UserID: userID, WindowDays: windowDays, AsOf: util.TruncateToDay(asOf)}
	if asOf.IsZero() {
		key.AsOf = time.Time{}
	}

	entry, leader := o.claim(key)
	if leader {
		go o.run(key, entry)
	}

	select {
	case <-entry.done:
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, models.ErrComputationTimeout
		}
		return nil, ctx.Err()
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if entry.err != nil {
		return nil, entry.err
	}
	return entry.profile, nil
}

// claim returns the entry for key and whether the caller must start the
// pipeline run. A READY entry past its TTL, and any FAILED entry, is
// replaced so the next request triggers a fresh attempt.
func (o *ProfileOrchestrator) claim(key profileKey) (*profileEntry, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if e, ok := o.entries[key]; ok {
		switch e.state {
		case stateLoading, stateComputing:
			o.recordCache("coalesced")
			return e, false
		case stateReady:
			if time.Now().Before(e.expiresAt) {
				o.recordCache("hit")
				return e, false
			}
			o.recordCache("expired")
		case stateFailed:
			// fall through to a fresh attempt
		}
	} else {
		o.recordCache("miss")
	}

	e := &profileEntry{state: stateLoading, done: make(chan struct{})}
	o.entries[key] = e
	return e, true
}

// run executes the pipeline for one key and settles the entry. It uses its
// own context so a departing caller does not cancel work other waiters
// still need.
func (o *ProfileOrchestrator) run(key profileKey, entry *profileEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	started := time.Now()
	profile, err := o.compute(ctx, key, entry)

	o.mu.Lock()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = models.ErrComputationTimeout
		}
		entry.state = stateFailed
		entry.err = err
		o.recordError(err)
	} else {
		entry.state = stateReady
		entry.profile = profile
		entry.expiresAt = time.Now().Add(o.ttl)
	}
	close(entry.done)
	o.mu.Unlock()

	if o.metrics != nil {
		o.metrics.RecordLatency("profile_pipeline", time.Since(started).Seconds())
	}
	if err != nil && o.log != nil {
		o.log.Error("profile pipeline failed",
			logger.String("user_id", key.UserID),
			logger.Int("window_days", key.WindowDays),
			logger.Error(err))
	}
}

func (o *ProfileOrchestrator) compute(ctx context.Context, key profileKey, entry *profileEntry) (*models.UserProfile, error) {
	asOf := key.AsOf
	if asOf.IsZero() {
		last, ok, err := o.ledger.LastPostedAt(ctx, key.UserID)
		if err != nil {
			return nil, err
		}
		if ok {
			asOf = last
		} else {
			asOf = time.Now().UTC()
		}
	}

	// records back to asOf-2w feed the trend baseline
	from := asOf.AddDate(0, 0, -2*key.WindowDays)
	records, skipped, err := o.loadWithRetry(ctx, key.UserID, from, asOf)
	if err != nil {
		return nil, err
	}
	if skipped > 0 && o.metrics != nil {
		o.metrics.RecordSkippedRecords(skipped)
	}

	o.mu.Lock()
	entry.state = stateComputing
	o.mu.Unlock()

	snap, err := o.engine.Compute(key.UserID, asOf, key.WindowDays, records, skipped)
	if err != nil {
		return nil, err
	}
	if o.metrics != nil {
		o.metrics.RecordSnapshotComputed(key.UserID)
	}

	profile := &models.UserProfile{
		UserID:       key.UserID,
		WindowDays:   key.WindowDays,
		ComputedAt:   time.Now().UTC(),
		Snapshot:     snap,
		Transactions: windowRecords(records, asOf, key.WindowDays),
		Errors:       map[string]string{},
	}

	// no activity in the window: the rest of the pipeline has nothing to
	// classify, explain, or rank, regardless of catalog contents
	if snap.Empty() {
		profile.Tags = []models.BehaviorTag{}
		profile.Insights = []models.InsightRecord{}
		profile.Recommendations = []models.RecommendationRecord{}
		profile.Errors = nil
		return profile, nil
	}

	tags, err := o.classifier.Classify(snap)
	if err != nil {
		return nil, err
	}
	profile.Tags = tags

	// insights and recommendations branch independently off the same
	// snapshot; one failing leaves the other usable
	var wg sync.WaitGroup
	type item struct {
		name string
		val  interface{}
		err  error
	}
	ch := make(chan item, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		v, err := o.insights.Explain(ctx, snap, tags)
		ch <- item{"insights", v, err}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		products, err := o.catalog.Products(ctx)
		if err != nil {
			ch <- item{"recommendations", nil, err}
			return
		}
		v, err := o.ranker.Rank(snap, tags, products)
		ch <- item{"recommendations", v, err}
	}()

	go func() { wg.Wait(); close(ch) }()

	for it := range ch {
		if it.err != nil {
			profile.Errors[it.name] = it.err.Error()
			o.recordError(it.err)
			continue
		}
		switch it.name {
		case "insights":
			profile.Insights = it.val.([]models.InsightRecord)
		case "recommendations":
			profile.Recommendations = it.val.([]models.RecommendationRecord)
		}
	}

	if len(profile.Errors) == 0 {
		profile.Errors = nil
	}
	return profile, nil
}

// loadWithRetry retries the ledger read on transient unavailability with a
// capped backoff. Schema and invariant failures surface immediately.
func (o *ProfileOrchestrator) loadWithRetry(ctx context.Context, userID string, from, to time.Time) ([]models.TransactionRecord, int, error) {
	backoff := 100 * time.Millisecond
	var lastErr error
	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		records, skipped, err := o.ledger.Load(ctx, userID, from, to)
		if err == nil {
			return records, skipped, nil
		}
		lastErr = err
		if !models.IsDataUnavailable(err) {
			return nil, 0, err
		}
		if attempt == o.maxAttempts {
			break
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		}
		backoff *= 2
		if backoff > time.Second {
			backoff = time.Second
		}
	}
	return nil, 0, lastErr
}

// Invalidate drops any cached or in-flight result for the user so the next
// request recomputes. Used after ingestion writes new transactions.
func (o *ProfileOrchestrator) Invalidate(userID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for key, e := range o.entries {
		if key.UserID != userID {
			continue
		}
		if e.state == stateReady || e.state == stateFailed {
			delete(o.entries, key)
		} else {
			// in-flight runs finish for their waiters but are not reused
			e.expiresAt = time.Time{}
			delete(o.entries, key)
		}
	}
}

func windowRecords(records []models.TransactionRecord, asOf time.Time, windowDays int) []models.TransactionRecord {
	start := asOf.AddDate(0, 0, -windowDays)
	out := make([]models.TransactionRecord, 0, len(records))
	for _, r := range records {
		if r.PostedAt.Before(start) || r.PostedAt.After(asOf) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (o *ProfileOrchestrator) recordCache(kind string) {
	if o.metrics != nil {
		o.metrics.RecordCacheEvent(kind)
	}
}

func (o *ProfileOrchestrator) recordError(err error) {
	if o.metrics == nil {
		return
	}
	switch {
	case models.IsDataUnavailable(err):
		o.metrics.RecordError("data_unavailable")
	case models.IsInvariantViolation(err):
		o.metrics.RecordError("invariant_violation")
	case err == models.ErrComputationTimeout:
		o.metrics.RecordError("computation_timeout")
	default:
		o.metrics.RecordError("other")
	}
}
