// Command stresstest runs the challenge flow for many devices concurrently against a running server. Point the
// server at a stub generation endpoint, every scenario generates a plan.
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
	"sync/atomic"
	"time"

	"github.com/jersjar7/Fit14-sub001/internal/e2etest"
	"github.com/jersjar7/Fit14-sub001/internal/logging"
	"github.com/jersjar7/Fit14-sub001/internal/plan"
	"github.com/jersjar7/Fit14-sub001/internal/testhelpers"
	"golang.org/x/sync/errgroup"
)

const (
	scenarioTimeout         = 90 * time.Second
	maxConcurrentOperations = 20
	numDevices              = 50
	successRateThreshold    = 95.0
	expectedArgsCount       = 2
	percentageMultiplier    = 100
)

type generated struct {
	Plan plan.WorkoutPlan `json:"plan"`
}

// expectStatus calls the API and fails unless it answers with want.
func expectStatus(ctx context.Context, client *e2etest.Client, method, path string, body, out any, want int) error {
	status, err := client.DoJSON(ctx, method, path, body, out)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if status != want {
		return fmt.Errorf("%s %s: unexpected status code: %d", method, path, status)
	}
	return nil
}

// ChallengeScenario drafts goals, generates and accepts a plan, completes the first day and abandons the plan.
func ChallengeScenario(ctx context.Context, client *e2etest.Client, logger *slog.Logger) error {
	if err := expectStatus(ctx, client, http.MethodPut, "/api/goals/text",
		map[string]string{"text": "Stress test: build strength at home"}, nil, http.StatusOK); err != nil {
		return err
	}
	if err := expectStatus(ctx, client, http.MethodPut, "/api/goals/selections/fitnessLevel",
		map[string]string{"option": "intermediate"}, nil, http.StatusOK); err != nil {
		return err
	}

	var g generated
	if err := expectStatus(ctx, client, http.MethodPost, "/api/plans/generate", nil, &g,
		http.StatusCreated); err != nil {
		return err
	}
	p := g.Plan
	if len(p.Days) != plan.ChallengeLength {
		return fmt.Errorf("generated plan has %d days", len(p.Days))
	}
	planPath := "/api/plans/" + p.ID.String()

	if err := expectStatus(ctx, client, http.MethodPost, planPath+"/accept", nil, &p, http.StatusOK); err != nil {
		return err
	}
	for _, e := range p.Days[0].Exercises {
		path := fmt.Sprintf("%s/days/1/exercises/%s/toggle", planPath, e.ID)
		if err := expectStatus(ctx, client, http.MethodPost, path, nil, nil, http.StatusOK); err != nil {
			return err
		}
	}

	var progress plan.Progress
	if err := expectStatus(ctx, client, http.MethodGet, planPath+"/progress", nil, &progress,
		http.StatusOK); err != nil {
		return err
	}
	if progress.CompletedDays != 1 {
		return fmt.Errorf("progress reports %d completed days, want 1", progress.CompletedDays)
	}
	if _, err := client.GetDoc(ctx, planPath+"/export"); err != nil {
		return fmt.Errorf("export plan: %w", err)
	}

	if err := expectStatus(ctx, client, http.MethodDelete, planPath, nil, nil, http.StatusNoContent); err != nil {
		return err
	}

	logger.LogAttrs(ctx, slog.LevelDebug, "Challenge scenario completed",
		slog.String("device_id", client.DeviceID()),
		slog.String("plan_id", p.ID.String()))
	return nil
}

// RunLoadTest runs the challenge scenario once per device.
func RunLoadTest(ctx context.Context, client *e2etest.Client, devices int, logger *slog.Logger) error {
	logger.LogAttrs(ctx, slog.LevelInfo, "Starting load test", slog.Int("num_devices", devices))

	var successCount, failureCount atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentOperations)

	for i := range devices {
		g.Go(func() error {
			device := client.WithDevice(fmt.Sprintf("stresstest-%d-%s", i, rand.Text()))
			scenarioCtx, cancel := context.WithTimeout(ctx, scenarioTimeout)
			defer cancel()

			if err := ChallengeScenario(scenarioCtx, device, logger); err != nil {
				failureCount.Add(1)
				// Individual failures don't stop the other scenarios.
				logger.LogAttrs(scenarioCtx, slog.LevelWarn, "Scenario failed",
					slog.String("device_id", device.DeviceID()),
					slog.Any("error", err))
				return nil
			}

			successCount.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("load test failed: %w", err)
	}

	successRate := float64(successCount.Load()) / float64(devices) * percentageMultiplier

	logger.LogAttrs(ctx, slog.LevelInfo, "Load test completed",
		slog.Int64("successful", successCount.Load()),
		slog.Int64("failed", failureCount.Load()),
		slog.Float64("success_rate", successRate))

	if successRate < successRateThreshold {
		return errors.New("load test failed: success rate below threshold")
	}
	return nil
}

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	ctx := context.Background()

	if len(os.Args) != expectedArgsCount {
		logger.LogAttrs(ctx, slog.LevelError, "usage: stresstest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		start    = time.Now()
	)

	ctx = logging.WithAttrs(ctx, slog.String("hostname", hostname))

	url := "https://" + hostname
	if strings.Contains(hostname, "localhost") {
		url = "http://" + hostname
	}
	client := e2etest.NewClient(url, "")

	if err := client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready in time", slog.Any("error", err))
		os.Exit(1)
	}

	if err := RunLoadTest(ctx, client, numDevices, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "load test failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Load test completed successfully 🙌",
		slog.Duration("total_duration", time.Since(start)))
	os.Exit(0)
}
