package main

import (
	"net/http"
	"time"
)

// generationMargin leaves the generator room to report its own timeout before the request is cut.
const generationMargin = 5 * time.Second

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	var (
		withTimeout = func(d time.Duration, next http.Handler) http.Handler {
			return app.recoverPanic(app.logAndTraceRequest(secureHeaders(noCache(
				commonContext(app.timeout(d, next))))))
		}
		shared = func(next http.Handler) http.Handler {
			return withTimeout(defaultTimeout, next)
		}
		device = func(next http.Handler) http.Handler {
			return shared(app.mustDevice(next))
		}
		generation = withTimeout(app.generationTimeout+generationMargin,
			app.mustDevice(http.HandlerFunc(app.planGeneratePOST)))
	)

	mux.Handle("GET /api/healthy", shared(http.HandlerFunc(app.healthy)))
	mux.Handle("GET /api/test/timeout", shared(http.HandlerFunc(app.testTimeout)))

	mux.Handle("GET /api/goals/options", shared(http.HandlerFunc(app.goalOptionsGET)))
	mux.Handle("GET /api/goals", device(http.HandlerFunc(app.goalsGET)))
	mux.Handle("DELETE /api/goals", device(http.HandlerFunc(app.goalsDELETE)))
	mux.Handle("PUT /api/goals/text", device(http.HandlerFunc(app.goalTextPUT)))
	mux.Handle("POST /api/goals/prefill", device(http.HandlerFunc(app.goalsPrefillPOST)))
	mux.Handle("PUT /api/goals/selections/{dimension}", device(http.HandlerFunc(app.goalSelectionPUT)))
	mux.Handle("DELETE /api/goals/selections/{dimension}", device(http.HandlerFunc(app.goalSelectionDELETE)))

	mux.Handle("POST /api/plans/generate", generation)
	mux.Handle("GET /api/plans/current", device(http.HandlerFunc(app.planCurrentGET)))
	mux.Handle("GET /api/plans/{id}", device(http.HandlerFunc(app.planGET)))
	mux.Handle("DELETE /api/plans/{id}", device(http.HandlerFunc(app.planDELETE)))
	mux.Handle("POST /api/plans/{id}/accept", device(http.HandlerFunc(app.planAcceptPOST)))
	mux.Handle("GET /api/plans/{id}/progress", device(http.HandlerFunc(app.planProgressGET)))
	mux.Handle("GET /api/plans/{id}/export", device(http.HandlerFunc(app.planExportGET)))
	mux.Handle("POST /api/plans/{id}/archive", device(http.HandlerFunc(app.planArchivePOST)))
	mux.Handle("PUT /api/plans/{id}/days/{day}/focus", device(http.HandlerFunc(app.dayFocusPUT)))
	mux.Handle("POST /api/plans/{id}/days/{day}/exercises", device(http.HandlerFunc(app.exercisePOST)))
	mux.Handle("PUT /api/plans/{id}/days/{day}/exercises/{exerciseID}", device(http.HandlerFunc(app.exercisePUT)))
	mux.Handle("DELETE /api/plans/{id}/days/{day}/exercises/{exerciseID}",
		device(http.HandlerFunc(app.exerciseDELETE)))
	mux.Handle("POST /api/plans/{id}/days/{day}/exercises/{exerciseID}/toggle",
		device(http.HandlerFunc(app.exerciseTogglePOST)))

	mux.Handle("GET /api/challenges", device(http.HandlerFunc(app.challengesGET)))
	mux.Handle("GET /api/challenges/{id}", device(http.HandlerFunc(app.challengeGET)))
	mux.Handle("DELETE /api/challenges/{id}", device(http.HandlerFunc(app.challengeDELETE)))
	mux.Handle("GET /api/achievements", device(http.HandlerFunc(app.achievementsGET)))

	mux.Handle("GET /api/device/export", device(http.HandlerFunc(app.deviceExportGET)))

	mux.Handle("/", shared(http.HandlerFunc(app.notFound)))

	return mux
}
