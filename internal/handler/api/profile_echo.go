package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"FinSight/internal/domain/models"
	domrepo "FinSight/internal/domain/repository"
	icache "FinSight/internal/service/cache"
	"FinSight/internal/service/metrics"
	"FinSight/internal/service/ratelimit"
	"FinSight/internal/services/convo"
	"FinSight/internal/usecase"
	xhttp "FinSight/pkg/http"
	xlogger "FinSight/pkg/logger"
)

// ProfileEchoHandler serves the dashboard endpoints on top of the profile
// pipeline. Responses are cached briefly per (endpoint, user, window) and
// rate limited per client.
type ProfileEchoHandler struct {
	logger   *xlogger.Logger
	orc      *usecase.ProfileOrchestrator
	ledger   *usecase.LedgerQueryUseCase
	feedback domrepo.FeedbackStore
	cache    icache.BytesCache
	rl       *ratelimit.Limiter
}

func NewProfileEchoHandler(logger *xlogger.Logger, orc *usecase.ProfileOrchestrator, ledger *usecase.LedgerQueryUseCase) *ProfileEchoHandler {
	metrics.Register()
	return &ProfileEchoHandler{logger: logger, orc: orc, ledger: ledger, rl: ratelimit.New()}
}

// SetCache injects a response cache.
func (h *ProfileEchoHandler) SetCache(c icache.BytesCache) { h.cache = c }

// SetFeedback injects the feedback store.
func (h *ProfileEchoHandler) SetFeedback(f domrepo.FeedbackStore) { h.feedback = f }

func (h *ProfileEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/users/:id")
	g.GET("/summary", h.Summary)
	g.GET("/transactions", h.Transactions)
	g.GET("/insights", h.Insights)
	g.GET("/recommendations", h.Recommendations)
	g.POST("/feedback", h.Feedback)
}

// taxonomyError maps pipeline failures onto transport status codes.
func taxonomyError(err error) *xhttp.AppError {
	switch {
	case models.IsDataUnavailable(err):
		return xhttp.ServiceUnavailableError("transaction data temporarily unavailable").WithError(err)
	case err == models.ErrComputationTimeout:
		return xhttp.GatewayTimeoutError("profile computation timed out").WithError(err)
	case models.IsInvariantViolation(err):
		return xhttp.InternalError("profile computation produced inconsistent aggregates").WithError(err)
	default:
		var schema *models.SchemaViolationError
		if errors.As(err, &schema) {
			return xhttp.BadGatewayError("upstream transaction data failed validation").WithError(err)
		}
		return xhttp.InternalError("profile computation failed").WithError(err)
	}
}

func parseAsOf(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, ok := xhttp.ParseTime(s)
	if !ok {
		return time.Time{}, fmt.Errorf("unparseable as_of %q", s)
	}
	return t, nil
}

func (h *ProfileEchoHandler) Summary(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.ProfileLatency.WithLabelValues("summary").Observe(time.Since(start).Seconds()) }()

	req := &models.SummaryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	asOf, err := parseAsOf(req.AsOf)
	if err != nil {
		return xhttp.BadRequestResponse(c, xhttp.BadRequestError("as_of must be YYYY-MM-DD or RFC3339"))
	}
	if !h.rl.Allow(c.RealIP()+":summary", 10, 5) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many requests"))
	}

	cacheKey := fmt.Sprintf("summary:%s:%d:%s", req.UserID, req.WindowDays, req.AsOf)
	if b, ok := h.cached(cacheKey); ok {
		return c.JSONBlob(http.StatusOK, b)
	}

	profile, err := h.orc.GetProfile(c.Request().Context(), req.UserID, req.WindowDays, asOf)
	if err != nil {
		metrics.ProfileErrors.WithLabelValues("summary").Inc()
		h.logger.Error("summary pipeline error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, taxonomyError(err))
	}

	resp := summaryResponse(profile)
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=30")
	h.store(cacheKey, resp, 30*time.Second)
	return xhttp.SuccessResponse(c, resp)
}

func (h *ProfileEchoHandler) Transactions(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.ProfileLatency.WithLabelValues("transactions").Observe(time.Since(start).Seconds()) }()

	req := &models.TransactionsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	asOf, err := parseAsOf(req.AsOf)
	if err != nil {
		return xhttp.BadRequestResponse(c, xhttp.BadRequestError("as_of must be YYYY-MM-DD or RFC3339"))
	}
	if !h.rl.Allow(c.RealIP()+":transactions", 10, 5) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many requests"))
	}

	res, err := h.ledger.GetTransactions(c.Request().Context(), usecase.GetTransactionsParams{
		UserID:     req.UserID,
		WindowDays: req.WindowDays,
		AsOf:       asOf,
		Limit:      req.Limit,
	})
	if err != nil {
		metrics.ProfileErrors.WithLabelValues("transactions").Inc()
		h.logger.Error("transactions query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, taxonomyError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ProfileEchoHandler) Insights(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.ProfileLatency.WithLabelValues("insights").Observe(time.Since(start).Seconds()) }()

	req := &models.InsightsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	asOf, err := parseAsOf(req.AsOf)
	if err != nil {
		return xhttp.BadRequestResponse(c, xhttp.BadRequestError("as_of must be YYYY-MM-DD or RFC3339"))
	}
	if !h.rl.Allow(c.RealIP()+":insights", 10, 5) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many requests"))
	}

	cacheKey := fmt.Sprintf("insights:%s:%d:%s", req.UserID, req.WindowDays, req.AsOf)
	if b, ok := h.cached(cacheKey); ok {
		return c.JSONBlob(http.StatusOK, b)
	}

	profile, err := h.orc.GetProfile(c.Request().Context(), req.UserID, req.WindowDays, asOf)
	if err != nil {
		metrics.ProfileErrors.WithLabelValues("insights").Inc()
		h.logger.Error("insights pipeline error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, taxonomyError(err))
	}
	if msg, failed := profile.Errors["insights"]; failed {
		metrics.ProfileErrors.WithLabelValues("insights").Inc()
		return xhttp.AppErrorResponse(c, xhttp.InternalError(msg))
	}

	resp := map[string]interface{}{
		"user_id":     profile.UserID,
		"window_days": profile.WindowDays,
		"as_of":       profile.Snapshot.AsOf.Format("2006-01-02"),
		"tags":        profile.Tags,
		"insights":    profile.Insights,
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=30")
	h.store(cacheKey, resp, 30*time.Second)
	return xhttp.SuccessResponse(c, resp)
}

func (h *ProfileEchoHandler) Recommendations(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.ProfileLatency.WithLabelValues("recommendations").Observe(time.Since(start).Seconds()) }()

	req := &models.RecommendationsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	asOf, err := parseAsOf(req.AsOf)
	if err != nil {
		return xhttp.BadRequestResponse(c, xhttp.BadRequestError("as_of must be YYYY-MM-DD or RFC3339"))
	}
	if !h.rl.Allow(c.RealIP()+":recommendations", 10, 5) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many requests"))
	}

	cacheKey := fmt.Sprintf("recs:%s:%d:%s", req.UserID, req.WindowDays, req.AsOf)
	if b, ok := h.cached(cacheKey); ok {
		return c.JSONBlob(http.StatusOK, b)
	}

	profile, err := h.orc.GetProfile(c.Request().Context(), req.UserID, req.WindowDays, asOf)
	if err != nil {
		metrics.ProfileErrors.WithLabelValues("recommendations").Inc()
		h.logger.Error("recommendations pipeline error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, taxonomyError(err))
	}
	if msg, failed := profile.Errors["recommendations"]; failed {
		metrics.ProfileErrors.WithLabelValues("recommendations").Inc()
		return xhttp.AppErrorResponse(c, xhttp.InternalError(msg))
	}

	resp := map[string]interface{}{
		"user_id":         profile.UserID,
		"window_days":     profile.WindowDays,
		"as_of":           profile.Snapshot.AsOf.Format("2006-01-02"),
		"recommendations": profile.Recommendations,
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=30")
	h.store(cacheKey, resp, 30*time.Second)
	return xhttp.SuccessResponse(c, resp)
}

func (h *ProfileEchoHandler) Feedback(c echo.Context) error {
	req := &models.FeedbackRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.feedback == nil {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("feedback store not configured"))
	}

	key := fmt.Sprintf("%s:%s", req.UserID, req.ItemID)
	record := map[string]interface{}{
		"user_id":     req.UserID,
		"item_id":     req.ItemID,
		"reaction":    req.Reaction,
		"reason":      req.Reason,
		"received_at": time.Now().UTC().Format(time.RFC3339),
	}
	if req.Reason != "" {
		record["intent"] = convo.DetectIntent(req.Reason)
		record["emotion"] = convo.DetectEmotion(req.Reason)
	}
	if err := h.feedback.Put(c.Request().Context(), key, record); err != nil {
		h.logger.Error("feedback store error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("feedback could not be stored").WithError(err))
	}
	return xhttp.CreatedResponse(c, map[string]string{"status": "recorded"})
}

func summaryResponse(p *models.UserProfile) models.SummaryResponse {
	snap := p.Snapshot
	spend, _ := snap.SpendTotal.Round(2).Float64()
	income, _ := snap.IncomeTotal.Round(2).Float64()
	ratio, _ := snap.InstallmentRatio.Round(4).Float64()

	top := snap.TopCategories(6)
	cats := make([]models.CategoryTotal, 0, len(top))
	for _, c := range top {
		total, _ := snap.Categories[c].Total.Round(2).Float64()
		cats = append(cats, models.CategoryTotal{Category: c, Total: total})
	}

	return models.SummaryResponse{
		UserID:           p.UserID,
		WindowDays:       p.WindowDays,
		AsOf:             snap.AsOf.Format("2006-01-02"),
		SpendTotal:       spend,
		IncomeTotal:      income,
		TxCount:          snap.TxCount,
		InstallmentRatio: ratio,
		TopCategories:    cats,
		SkippedRecords:   snap.SkippedRecords,
	}
}

func (h *ProfileEchoHandler) cached(key string) ([]byte, bool) {
	if h.cache == nil {
		return nil, false
	}
	b, ok, err := h.cache.GetBytes(key)
	if err != nil {
		h.logger.Warn("response cache get error", xlogger.Error(err))
		return nil, false
	}
	return b, ok
}

func (h *ProfileEchoHandler) store(key string, v interface{}, ttl time.Duration) {
	if h.cache == nil {
		return
	}
	b, err := json.Marshal(xhttp.APIResponse{Status: 200, Message: "OK", Data: v})
	if err != nil {
		return
	}
	if err := h.cache.SetBytes(key, b, ttl); err != nil {
		h.logger.Warn("response cache set error", xlogger.Error(err))
	}
}
