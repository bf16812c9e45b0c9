package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/jersjar7/Fit14-sub001/internal/archive"
	"github.com/jersjar7/Fit14-sub001/internal/errors"
)

// challengeResponse is a completed challenge with its derived statistics.
type challengeResponse struct {
	archive.CompletedChallenge
	Stats archive.Stats `json:"stats"`
}

func newChallengeResponse(c archive.CompletedChallenge) challengeResponse {
	return challengeResponse{CompletedChallenge: c, Stats: c.Stats()}
}

func (app *application) challengesGET(w http.ResponseWriter, r *http.Request) {
	challenges, totals, err := app.tracker.Challenges(r.Context())
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	resp := struct {
		Challenges []challengeResponse `json:"challenges"`
		Totals     archive.Totals      `json:"totals"`
	}{
		Challenges: make([]challengeResponse, 0, len(challenges)),
		Totals:     totals,
	}
	for _, c := range challenges {
		resp.Challenges = append(resp.Challenges, newChallengeResponse(c))
	}
	app.writeJSON(w, r, http.StatusOK, resp)
}

func (app *application) challengeGET(w http.ResponseWriter, r *http.Request) {
	id, ok := app.parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	c, err := app.tracker.Challenge(r.Context(), id)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, newChallengeResponse(c))
}

func (app *application) challengeDELETE(w http.ResponseWriter, r *http.Request) {
	id, ok := app.parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	if err := app.tracker.DeleteChallenge(r.Context(), id); err != nil {
		app.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (app *application) achievementsGET(w http.ResponseWriter, r *http.Request) {
	a, err := app.tracker.Achievements(r.Context())
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, a)
}

// deviceExportGET streams a SQLite database holding every row of the device.
func (app *application) deviceExportGET(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	exportPath, err := app.tracker.ExportDeviceData(ctx, app.exportDir)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	defer func() {
		if removeErr := os.Remove(exportPath); removeErr != nil {
			app.logger.LogAttrs(ctx, slog.LevelWarn, "failed to remove temporary export file",
				slog.String("path", exportPath), errors.SlogError(removeErr))
		}
	}()

	file, err := os.Open(exportPath)
	if err != nil {
		app.serverError(w, r, fmt.Errorf("open export file: %w", err))
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			app.logger.LogAttrs(ctx, slog.LevelWarn, "failed to close export file",
				slog.String("path", exportPath), errors.SlogError(closeErr))
		}
	}()

	w.Header().Set("Content-Type", "application/x-sqlite3")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(exportPath)))
	if _, err = io.Copy(w, file); err != nil {
		app.logger.LogAttrs(ctx, slog.LevelError, "failed to stream export file to client",
			slog.String("path", exportPath), errors.SlogError(err))
	}
}
