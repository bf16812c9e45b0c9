package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jersjar7/Fit14-sub001/internal/plan"
	"github.com/jersjar7/Fit14-sub001/internal/planner"
	"github.com/jersjar7/Fit14-sub001/internal/tracker"
)

func Test_application_handleError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		wantStatus     int
		wantBody       errorResponse
		wantRetryAfter string
	}{
		{
			name:       "missing plan",
			err:        fmt.Errorf("get plan: %w", tracker.ErrNotFound),
			wantStatus: http.StatusNotFound,
			wantBody:   errorResponse{Error: "not_found", Message: tracker.ErrNotFound.Error(), Issues: nil},
		},
		{
			name:       "plan in progress",
			err:        tracker.ErrPlanInProgress,
			wantStatus: http.StatusConflict,
			wantBody: errorResponse{
				Error: "plan_in_progress", Message: tracker.ErrPlanInProgress.Error(), Issues: nil,
			},
		},
		{
			name:       "invalid plan",
			err:        fmt.Errorf("accept plan: %w", plan.ErrInvalidPlan),
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   errorResponse{Error: "invalid_plan", Message: plan.ErrInvalidPlan.Error(), Issues: nil},
		},
		{
			name:       "insufficient goals",
			err:        fmt.Errorf("generate plan: %w", &planner.InputError{Issues: []string{"Describe your goals"}}),
			wantStatus: http.StatusBadRequest,
			wantBody: errorResponse{
				Error:   "invalid_input",
				Message: planner.UserMessage(planner.KindInvalidInput),
				Issues:  []string{"Describe your goals"},
			},
		},
		{
			name:           "rate limited",
			err:            &planner.RateLimitError{RetryAfter: 1500 * time.Millisecond, ResetAt: time.Time{}},
			wantStatus:     http.StatusTooManyRequests,
			wantBody:       errorResponse{Error: "rate_limited", Message: planner.UserMessage(planner.KindRateLimited), Issues: nil},
			wantRetryAfter: "2",
		},
		{
			name:       "generator unreachable",
			err:        &planner.NetworkError{Timeout: true, Err: context.DeadlineExceeded},
			wantStatus: http.StatusServiceUnavailable,
			wantBody: errorResponse{
				Error: "network_failure", Message: planner.UserMessage(planner.KindNetworkFailure), Issues: nil,
			},
		},
		{
			name:       "generator failure",
			err:        &planner.ServiceError{StatusCode: http.StatusInternalServerError, Message: "boom"},
			wantStatus: http.StatusBadGateway,
			wantBody: errorResponse{
				Error: "service_error", Message: planner.UserMessage(planner.KindServiceError), Issues: nil,
			},
		},
		{
			name:       "malformed reply",
			err:        &planner.ResponseError{Reason: "no days", Err: nil},
			wantStatus: http.StatusBadGateway,
			wantBody: errorResponse{
				Error: "invalid_response", Message: planner.UserMessage(planner.KindInvalidResponse), Issues: nil,
			},
		},
		{
			name:       "superseded generation",
			err:        planner.ErrSuperseded,
			wantStatus: http.StatusConflict,
			wantBody: errorResponse{
				Error: "canceled", Message: planner.UserMessage(planner.KindCanceled), Issues: nil,
			},
		},
		{
			name:       "unknown error",
			err:        io.ErrUnexpectedEOF,
			wantStatus: http.StatusInternalServerError,
			wantBody: errorResponse{
				Error: "internal", Message: planner.UserMessage(planner.KindInternal), Issues: nil,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := &application{ //nolint:exhaustruct // this is a test
				logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
			}
			w := httptest.NewRecorder()
			app.handleError(w, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var got errorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
				t.Fatalf("unmarshal body %q: %v", w.Body.String(), err)
			}
			if diff := cmp.Diff(tt.wantBody, got); diff != "" {
				t.Errorf("body mismatch (-want +got):\n%s", diff)
			}
			if got := w.Header().Get("Retry-After"); got != tt.wantRetryAfter {
				t.Errorf("Retry-After = %q, want %q", got, tt.wantRetryAfter)
			}
		})
	}
}
