package main

import (
	"net/http"

	"github.com/jersjar7/Fit14-sub001/internal/goal"
)

type dimensionResponse struct {
	Dimension     goal.Dimension  `json:"dimension"`
	Title         string          `json:"title"`
	Importance    goal.Importance `json:"importance"`
	Required      bool            `json:"required"`
	Options       []goal.Option   `json:"options"`
	DefaultOption *goal.Option    `json:"defaultOption,omitempty"`
}

func (app *application) goalOptionsGET(w http.ResponseWriter, r *http.Request) {
	dims := goal.Dimensions()
	resp := make([]dimensionResponse, 0, len(dims))
	for _, d := range dims {
		dr := dimensionResponse{
			Dimension:     d,
			Title:         d.Title(),
			Importance:    d.Importance(),
			Required:      d.IsRequired(),
			Options:       goal.OptionsFor(d),
			DefaultOption: nil,
		}
		if o, ok := goal.DefaultOptionFor(d); ok {
			dr.DefaultOption = &o
		}
		resp = append(resp, dr)
	}
	app.writeJSON(w, r, http.StatusOK, map[string]any{"dimensions": resp})
}

// goalsResponse is the goal draft together with the guidance derived from it.
type goalsResponse struct {
	Draft                     goal.Data         `json:"draft"`
	CompletenessScore         float64           `json:"completenessScore"`
	IsSufficientForGeneration bool              `json:"isSufficientForGeneration"`
	MeetsStrictThreshold      bool              `json:"meetsStrictThreshold"`
	ValidationIssues          []string          `json:"validationIssues"`
	MissingDimensions         []goal.Dimension  `json:"missingDimensions"`
	StructuredSummary         map[string]string `json:"structuredSummary"`
	ConsolidatedDescription   string            `json:"consolidatedDescription"`
}

func newGoalsResponse(d goal.Data) goalsResponse {
	return goalsResponse{
		Draft:                     d,
		CompletenessScore:         d.CompletenessScore(),
		IsSufficientForGeneration: d.IsSufficientForGeneration(),
		MeetsStrictThreshold:      d.MeetsStrictThreshold(),
		ValidationIssues:          d.ValidationIssues(),
		MissingDimensions:         d.MissingDimensions(),
		StructuredSummary:         d.StructuredSummary(),
		ConsolidatedDescription:   d.ConsolidatedDescription(),
	}
}

func (app *application) writeGoals(w http.ResponseWriter, r *http.Request, d goal.Data, err error) {
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, newGoalsResponse(d))
}

func (app *application) goalsGET(w http.ResponseWriter, r *http.Request) {
	d, err := app.tracker.Goals(r.Context())
	app.writeGoals(w, r, d, err)
}

func (app *application) goalsDELETE(w http.ResponseWriter, r *http.Request) {
	if err := app.tracker.ResetGoals(r.Context()); err != nil {
		app.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (app *application) goalTextPUT(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if err := readJSON(w, r, &body); err != nil {
		app.badRequest(w, r, err.Error())
		return
	}
	d, err := app.tracker.UpdateGoalText(r.Context(), body.Text)
	app.writeGoals(w, r, d, err)
}

func (app *application) goalsPrefillPOST(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Selections map[string]string `json:"selections"`
	}
	if err := readJSON(w, r, &body); err != nil {
		app.badRequest(w, r, err.Error())
		return
	}
	d, err := app.tracker.PrefillGoals(r.Context(), body.Selections)
	app.writeGoals(w, r, d, err)
}

func (app *application) goalSelectionPUT(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Option     string `json:"option"`
		CustomText string `json:"customText"`
	}
	if err := readJSON(w, r, &body); err != nil {
		app.badRequest(w, r, err.Error())
		return
	}
	dim := goal.Dimension(r.PathValue("dimension"))
	d, err := app.tracker.SetGoalSelection(r.Context(), dim, body.Option, body.CustomText)
	app.writeGoals(w, r, d, err)
}

func (app *application) goalSelectionDELETE(w http.ResponseWriter, r *http.Request) {
	dim := goal.Dimension(r.PathValue("dimension"))
	d, err := app.tracker.ClearGoalSelection(r.Context(), dim)
	app.writeGoals(w, r, d, err)
}
