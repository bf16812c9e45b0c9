package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jersjar7/Fit14-sub001/internal/errors"
	"github.com/jersjar7/Fit14-sub001/internal/plan"
	"github.com/jersjar7/Fit14-sub001/internal/planner"
)

const dateLayout = time.DateOnly

// generateResponse is the generated plan together with what was repaired in the generator's reply.
type generateResponse struct {
	Plan              plan.WorkoutPlan        `json:"plan"`
	RejectedExercises []string                `json:"rejectedExercises"`
	Report            planner.NormalizeReport `json:"report"`
}

func (app *application) planGeneratePOST(w http.ResponseWriter, r *http.Request) {
	var body struct {
		StartDate string `json:"startDate"`
	}
	if err := readJSON(w, r, &body); err != nil {
		app.badRequest(w, r, err.Error())
		return
	}
	var start time.Time
	if body.StartDate != "" {
		var err error
		if start, err = time.Parse(dateLayout, body.StartDate); err != nil {
			app.badRequest(w, r, fmt.Sprintf("startDate must be formatted as %s", dateLayout))
			return
		}
	}

	result, err := app.tracker.GeneratePlan(r.Context(), start)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	rejected := make([]string, 0, len(result.Rejected))
	for _, e := range result.Rejected {
		rejected = append(rejected, e.Error())
	}
	app.writeJSON(w, r, http.StatusCreated, generateResponse{
		Plan:              result.Plan,
		RejectedExercises: rejected,
		Report:            result.Report,
	})
}

func (app *application) writePlan(w http.ResponseWriter, r *http.Request, p plan.WorkoutPlan, err error) {
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, p)
}

func (app *application) planCurrentGET(w http.ResponseWriter, r *http.Request) {
	p, err := app.tracker.CurrentPlan(r.Context())
	app.writePlan(w, r, p, err)
}

func (app *application) planGET(w http.ResponseWriter, r *http.Request) {
	id, ok := app.parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	p, err := app.tracker.Plan(r.Context(), id)
	app.writePlan(w, r, p, err)
}

func (app *application) planDELETE(w http.ResponseWriter, r *http.Request) {
	id, ok := app.parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	if err := app.tracker.DeletePlan(r.Context(), id); err != nil {
		app.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (app *application) planAcceptPOST(w http.ResponseWriter, r *http.Request) {
	id, ok := app.parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	p, err := app.tracker.AcceptPlan(r.Context(), id)
	app.writePlan(w, r, p, err)
}

func (app *application) planProgressGET(w http.ResponseWriter, r *http.Request) {
	id, ok := app.parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	progress, err := app.tracker.Progress(r.Context(), id)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, progress)
}

// planExportGET answers the plan as an HTML page, or as markdown with ?format=markdown.
func (app *application) planExportGET(w http.ResponseWriter, r *http.Request) {
	id, ok := app.parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	export, err := app.tracker.ExportPlan(r.Context(), id)
	if err != nil {
		app.handleError(w, r, err)
		return
	}

	body, contentType := export.HTML, "text/html; charset=utf-8"
	if r.URL.Query().Get("format") == "markdown" {
		body, contentType = export.Markdown, "text/markdown; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err = w.Write([]byte(body)); err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelWarn, "failed to write export", errors.SlogError(err))
	}
}

func (app *application) planArchivePOST(w http.ResponseWriter, r *http.Request) {
	id, ok := app.parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	c, err := app.tracker.ArchivePlan(r.Context(), id)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusCreated, newChallengeResponse(c))
}

// planDayParams parses the plan ID and day number shared by the day routes.
func (app *application) planDayParams(w http.ResponseWriter, r *http.Request) (uuid.UUID, int, bool) {
	id, ok := app.parseUUIDParam(w, r, "id")
	if !ok {
		return uuid.Nil, 0, false
	}
	day, ok := app.parseDayParam(w, r)
	if !ok {
		return uuid.Nil, 0, false
	}
	return id, day, true
}

func (app *application) dayFocusPUT(w http.ResponseWriter, r *http.Request) {
	id, day, ok := app.planDayParams(w, r)
	if !ok {
		return
	}
	var body struct {
		Focus string `json:"focus"`
	}
	if err := readJSON(w, r, &body); err != nil {
		app.badRequest(w, r, err.Error())
		return
	}
	p, err := app.tracker.SetDayFocus(r.Context(), id, day, body.Focus)
	app.writePlan(w, r, p, err)
}

func (app *application) exercisePOST(w http.ResponseWriter, r *http.Request) {
	id, day, ok := app.planDayParams(w, r)
	if !ok {
		return
	}
	var body struct {
		Name         string `json:"name"`
		Sets         int    `json:"sets"`
		Quantity     int    `json:"quantity"`
		Unit         string `json:"unit"`
		Instructions string `json:"instructions"`
	}
	if err := readJSON(w, r, &body); err != nil {
		app.badRequest(w, r, err.Error())
		return
	}
	unit, err := plan.ParseUnit(body.Unit)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	e, err := plan.NewExercise(body.Name, body.Sets, body.Quantity, unit, body.Instructions)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	p, err := app.tracker.AddExercise(r.Context(), id, day, e)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusCreated, p)
}

// exerciseParams parses the plan ID, day number and exercise ID shared by the exercise routes.
func (app *application) exerciseParams(w http.ResponseWriter, r *http.Request) (uuid.UUID, int, uuid.UUID, bool) {
	id, day, ok := app.planDayParams(w, r)
	if !ok {
		return uuid.Nil, 0, uuid.Nil, false
	}
	exerciseID, ok := app.parseUUIDParam(w, r, "exerciseID")
	if !ok {
		return uuid.Nil, 0, uuid.Nil, false
	}
	return id, day, exerciseID, true
}

func (app *application) exercisePUT(w http.ResponseWriter, r *http.Request) {
	id, day, exerciseID, ok := app.exerciseParams(w, r)
	if !ok {
		return
	}
	var edit plan.Edit
	if err := readJSON(w, r, &edit); err != nil {
		if errors.Is(err, plan.ErrInvalidUnit) {
			app.handleError(w, r, err)
			return
		}
		app.badRequest(w, r, err.Error())
		return
	}
	p, err := app.tracker.UpdateExercise(r.Context(), id, day, exerciseID, edit)
	app.writePlan(w, r, p, err)
}

func (app *application) exerciseDELETE(w http.ResponseWriter, r *http.Request) {
	id, day, exerciseID, ok := app.exerciseParams(w, r)
	if !ok {
		return
	}
	p, err := app.tracker.RemoveExercise(r.Context(), id, day, exerciseID)
	app.writePlan(w, r, p, err)
}

func (app *application) exerciseTogglePOST(w http.ResponseWriter, r *http.Request) {
	id, day, exerciseID, ok := app.exerciseParams(w, r)
	if !ok {
		return
	}
	p, err := app.tracker.ToggleExercise(r.Context(), id, day, exerciseID)
	app.writePlan(w, r, p, err)
}
