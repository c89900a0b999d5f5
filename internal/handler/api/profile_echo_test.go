package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"FinSight/internal/domain/models"
)

func TestTaxonomyErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{
			name:   "data unavailable",
			err:    &models.DataUnavailableError{Source: "clickhouse", Err: context.DeadlineExceeded},
			status: http.StatusServiceUnavailable,
			code:   "ERR_DATA_UNAVAILABLE",
		},
		{
			name:   "computation timeout",
			err:    models.ErrComputationTimeout,
			status: http.StatusGatewayTimeout,
			code:   "ERR_TIMEOUT",
		},
		{
			name:   "invariant violation",
			err:    &models.InvariantViolationError{Field: "totals", Detail: "spend=-1"},
			status: http.StatusInternalServerError,
			code:   "ERR_INTERNAL",
		},
		{
			name:   "wrapped schema violation",
			err:    fmt.Errorf("ingest: %w", &models.SchemaViolationError{RecordID: "t1", Reason: "sign mismatch"}),
			status: http.StatusBadGateway,
			code:   "ERR_SCHEMA_VIOLATION",
		},
		{
			name:   "unknown failure",
			err:    fmt.Errorf("boom"),
			status: http.StatusInternalServerError,
			code:   "ERR_INTERNAL",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			appErr := taxonomyError(tc.err)
			if appErr.Status != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, appErr.Status)
			}
			if appErr.Code != tc.code {
				t.Fatalf("expected code %s, got %s", tc.code, appErr.Code)
			}
		})
	}
}
