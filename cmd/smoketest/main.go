package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jersjar7/Fit14-sub001/internal/e2etest"
	"github.com/jersjar7/Fit14-sub001/internal/logging"
	"github.com/jersjar7/Fit14-sub001/internal/testhelpers"
)

// TestGoalDraft walks a throwaway device through the goal input flow without calling the plan generator.
func TestGoalDraft(client *e2etest.Client) error {
	ctx := context.Background()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second) //nolint:mnd // 10 seconds
	defer cancel()

	var options struct {
		Dimensions []struct {
			Dimension string `json:"dimension"`
		} `json:"dimensions"`
	}
	status, err := client.DoJSON(ctx, http.MethodGet, "/api/goals/options", nil, &options)
	if err != nil {
		return fmt.Errorf("get goal options: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("get goal options: unexpected status code: %d", status)
	}
	if len(options.Dimensions) == 0 {
		return errors.New("goal catalog is empty")
	}

	var goals struct {
		IsSufficientForGeneration bool `json:"isSufficientForGeneration"`
	}
	status, err = client.DoJSON(ctx, http.MethodPut, "/api/goals/text",
		map[string]string{"text": "Smoke test: stay healthy"}, &goals)
	if err != nil {
		return fmt.Errorf("update goal text: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("update goal text: unexpected status code: %d", status)
	}
	if !goals.IsSufficientForGeneration {
		return errors.New("goal draft with text should be sufficient for generation")
	}

	if status, err = client.DoJSON(ctx, http.MethodDelete, "/api/goals", nil, nil); err != nil {
		return fmt.Errorf("reset goals: %w", err)
	}
	if status != http.StatusNoContent {
		return fmt.Errorf("reset goals: unexpected status code: %d", status)
	}
	return nil
}

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		err      error
		start    = time.Now()
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", hostname))
	url := "https://" + hostname
	if strings.Contains(hostname, "localhost") {
		url = "http://" + hostname
	}

	client := e2etest.NewClient(url, "smoketest-"+rand.Text())
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready in time", slog.Any("error", err))
		os.Exit(1)
	}
	if err = TestGoalDraft(client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing goal draft", slog.Any("error", err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌", slog.Duration("duration", time.Since(start)))
	os.Exit(0)
}
