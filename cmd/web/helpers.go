package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/jersjar7/Fit14-sub001/internal/contexthelpers"
	"github.com/jersjar7/Fit14-sub001/internal/errors"
	"github.com/jersjar7/Fit14-sub001/internal/goal"
	"github.com/jersjar7/Fit14-sub001/internal/plan"
	"github.com/jersjar7/Fit14-sub001/internal/planner"
	"github.com/jersjar7/Fit14-sub001/internal/tracker"
)

const maxBodyBytes = 1 << 20

// errorResponse is the body of every failed API call.
type errorResponse struct {
	// Error is a stable machine-readable code.
	Error string `json:"error"`
	// Message is guidance that can be shown to the user.
	Message string   `json:"message"`
	Issues  []string `json:"issues,omitempty"`
}

func (app *application) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		app.serverError(w, r, fmt.Errorf("marshal response: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(b); err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelWarn, "failed to write response", errors.SlogError(err))
	}
}

func (app *application) writeError(w http.ResponseWriter, r *http.Request, status int, resp errorResponse) {
	app.writeJSON(w, r, status, resp)
}

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.LogAttrs(r.Context(), slog.LevelError, "server error", errors.SlogError(err))
	app.writeError(w, r, http.StatusInternalServerError, errorResponse{
		Error:   string(planner.KindInternal),
		Message: planner.UserMessage(planner.KindInternal),
		Issues:  nil,
	})
}

func (app *application) notFound(w http.ResponseWriter, r *http.Request) {
	app.logger.LogAttrs(r.Context(), slog.LevelDebug, "resource not found",
		slog.String("path", contexthelpers.CurrentPath(r.Context())))
	app.writeError(w, r, http.StatusNotFound, errorResponse{
		Error:   "not_found",
		Message: "The requested resource does not exist.",
		Issues:  nil,
	})
}

func (app *application) badRequest(w http.ResponseWriter, r *http.Request, message string) {
	app.writeError(w, r, http.StatusBadRequest, errorResponse{
		Error:   "bad_request",
		Message: message,
		Issues:  nil,
	})
}

// readJSON decodes the request body into v. An empty body leaves v untouched.
func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// domainErrors maps the sentinel errors of the plan lifecycle to a status code and an error code.
//
//nolint:gochecknoglobals // lookup table.
var domainErrors = []struct {
	err    error
	status int
	code   string
}{
	{tracker.ErrNotFound, http.StatusNotFound, "not_found"},
	{tracker.ErrNoDevice, http.StatusBadRequest, "missing_device_id"},
	{tracker.ErrUnknownOption, http.StatusBadRequest, "unknown_option"},
	{tracker.ErrEmptySelection, http.StatusBadRequest, "empty_selection"},
	{goal.ErrUnknownDimension, http.StatusBadRequest, "unknown_dimension"},
	{tracker.ErrPlanInProgress, http.StatusConflict, "plan_in_progress"},
	{tracker.ErrChallengeInProgress, http.StatusConflict, "challenge_in_progress"},
	{tracker.ErrPlanArchived, http.StatusConflict, "plan_archived"},
	{plan.ErrPlanLocked, http.StatusConflict, "plan_locked"},
	{plan.ErrPlanNotActive, http.StatusConflict, "plan_not_active"},
	{plan.ErrAlreadyAccepted, http.StatusConflict, "already_accepted"},
	{plan.ErrDayNotFound, http.StatusNotFound, "day_not_found"},
	{plan.ErrExerciseNotFound, http.StatusNotFound, "exercise_not_found"},
	{plan.ErrLastExercise, http.StatusUnprocessableEntity, "last_exercise"},
	{plan.ErrInvalidPlan, http.StatusUnprocessableEntity, "invalid_plan"},
	{plan.ErrInvalidExercise, http.StatusUnprocessableEntity, "invalid_exercise"},
	{plan.ErrInvalidUnit, http.StatusUnprocessableEntity, "invalid_unit"},
}

// generationStatus maps a generation failure kind to a status code.
func generationStatus(kind planner.Kind) int {
	switch kind {
	case planner.KindInvalidInput:
		return http.StatusBadRequest
	case planner.KindNetworkFailure:
		return http.StatusServiceUnavailable
	case planner.KindServiceError, planner.KindInvalidResponse:
		return http.StatusBadGateway
	case planner.KindRateLimited:
		return http.StatusTooManyRequests
	case planner.KindCanceled:
		return http.StatusConflict
	case planner.KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// handleError answers with the status and guidance matching err. Unknown errors are server errors.
func (app *application) handleError(w http.ResponseWriter, r *http.Request, err error) {
	for _, de := range domainErrors {
		if errors.Is(err, de.err) {
			app.logger.LogAttrs(r.Context(), slog.LevelDebug, "request rejected", errors.SlogError(err))
			app.writeError(w, r, de.status, errorResponse{
				Error:   de.code,
				Message: de.err.Error(),
				Issues:  nil,
			})
			return
		}
	}

	kind := planner.KindOf(err)
	if kind == planner.KindInternal {
		app.serverError(w, r, err)
		return
	}

	resp := errorResponse{
		Error:   string(kind),
		Message: planner.UserMessage(kind),
		Issues:  nil,
	}
	var inputErr *planner.InputError
	if errors.As(err, &inputErr) {
		resp.Issues = inputErr.Issues
	}
	var rateLimitErr *planner.RateLimitError
	if errors.As(err, &rateLimitErr) && rateLimitErr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(rateLimitErr.RetryAfter.Seconds()))))
	}
	app.logger.LogAttrs(r.Context(), slog.LevelWarn, "plan generation failed",
		slog.String("kind", string(kind)), errors.SlogError(err))
	app.writeError(w, r, generationStatus(kind), resp)
}

// parseUUIDParam parses a UUID path parameter. On failure, it answers 404 and returns false.
func (app *application) parseUUIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		app.notFound(w, r)
		return uuid.Nil, false
	}
	return id, true
}

// parseDayParam parses the "day" path parameter. On failure, it answers 404 and returns false.
func (app *application) parseDayParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	day, err := strconv.Atoi(r.PathValue("day"))
	if err != nil || day < 1 {
		app.notFound(w, r)
		return 0, false
	}
	return day, true
}
