package tracker_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jersjar7/Fit14-sub001/internal/contexthelpers"
	"github.com/jersjar7/Fit14-sub001/internal/goal"
	"github.com/jersjar7/Fit14-sub001/internal/plan"
	"github.com/jersjar7/Fit14-sub001/internal/planner"
	"github.com/jersjar7/Fit14-sub001/internal/sqlite"
	"github.com/jersjar7/Fit14-sub001/internal/testhelpers"
	"github.com/jersjar7/Fit14-sub001/internal/tracker"
)

// clock is a settable time source.
type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func (c *clock) advance(d time.Duration) { c.now = c.now.Add(d) }

func replyJSON(t *testing.T, days int) []byte {
	t.Helper()
	type exercise struct {
		Name         string `json:"name"`
		Sets         int    `json:"sets"`
		Quantity     int    `json:"quantity"`
		Unit         string `json:"unit"`
		Instructions string `json:"instructions,omitempty"`
	}
	type day struct {
		DayNumber int        `json:"dayNumber"`
		Focus     string     `json:"focus"`
		Exercises []exercise `json:"exercises"`
	}
	ds := make([]day, days)
	for i := range ds {
		ds[i] = day{
			DayNumber: i + 1,
			Focus:     fmt.Sprintf("Focus %d", i+1),
			Exercises: []exercise{
				{Name: "Push-ups", Sets: 3, Quantity: 10, Unit: "reps", Instructions: "Keep your core tight."},
				{Name: "Jog", Sets: 1, Quantity: 20, Unit: "minutes"},
			},
		}
	}
	b, err := json.Marshal(map[string]any{
		"success": true,
		"workoutPlan": map[string]any{
			"title":     "Spring Kickoff",
			"summary":   "Two weeks of home workouts",
			"totalDays": days,
			"days":      ds,
		},
	})
	if err != nil {
		t.Fatalf("marshal reply: %v", err)
	}
	return b
}

type fixture struct {
	svc   *tracker.Service
	db    *sqlite.Database
	clock *clock
	calls int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := t.Context()
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	db, err := sqlite.NewDatabase(ctx, ":memory:", logger)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		svc:   nil,
		db:    db,
		clock: &clock{now: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)},
		calls: 0,
	}
	transport := planner.TransportFunc(func(_ context.Context, _ planner.Request) ([]byte, error) {
		f.calls++
		return replyJSON(t, plan.ChallengeLength), nil
	})
	generator := planner.NewGenerator(transport, logger, planner.Options{
		Timeout:   time.Second,
		Strict:    false,
		Now:       f.clock.Now,
		OnTimeout: nil,
	})
	f.svc = tracker.NewService(db, generator, logger, f.clock.Now)
	return f
}

func deviceContext(t *testing.T, device string) context.Context {
	t.Helper()
	return contexthelpers.WithDeviceID(t.Context(), device)
}

// generate fills in the goal draft and generates a suggested plan.
func (f *fixture) generate(ctx context.Context, t *testing.T) plan.WorkoutPlan {
	t.Helper()
	if _, err := f.svc.UpdateGoalText(ctx, "Build endurance"); err != nil {
		t.Fatalf("UpdateGoalText: %v", err)
	}
	result, err := f.svc.GeneratePlan(ctx, time.Time{})
	if err != nil {
		t.Fatalf("GeneratePlan: %v", err)
	}
	return result.Plan
}

// completeAll toggles every exercise of an active plan.
func (f *fixture) completeAll(ctx context.Context, t *testing.T, p plan.WorkoutPlan) plan.WorkoutPlan {
	t.Helper()
	var err error
	for _, d := range p.Days {
		for _, e := range d.Exercises {
			if p, err = f.svc.ToggleExercise(ctx, p.ID, d.DayNumber, e.ID); err != nil {
				t.Fatalf("ToggleExercise: %v", err)
			}
		}
	}
	return p
}

func TestService_GoalDraft(t *testing.T) {
	f := newFixture(t)
	ctx := deviceContext(t, "device-a")

	d, err := f.svc.Goals(ctx)
	if err != nil {
		t.Fatalf("Goals: %v", err)
	}
	if d.HasFreeText() || len(d.Selections) != 0 {
		t.Errorf("expected an empty draft, got %+v", d)
	}

	if _, err = f.svc.UpdateGoalText(ctx, "Run a 5k"); err != nil {
		t.Fatalf("UpdateGoalText: %v", err)
	}
	if _, err = f.svc.SetGoalSelection(ctx, goal.DimensionFitnessLevel, "beginner", ""); err != nil {
		t.Fatalf("SetGoalSelection: %v", err)
	}
	f.clock.advance(time.Minute)
	if _, err = f.svc.SetGoalSelection(ctx, goal.DimensionWorkoutLocation, "custom", "the beach"); err != nil {
		t.Fatalf("SetGoalSelection: %v", err)
	}
	if _, err = f.svc.SetGoalSelection(ctx, goal.DimensionPhysicalStats, "", "32 years, 180 cm"); err != nil {
		t.Fatalf("SetGoalSelection: %v", err)
	}

	d, err = f.svc.Goals(ctx)
	if err != nil {
		t.Fatalf("Goals: %v", err)
	}
	want := map[string]string{
		goal.FreeTextKey:                      "Run a 5k",
		string(goal.DimensionFitnessLevel):    "beginner",
		string(goal.DimensionWorkoutLocation): "the beach",
		string(goal.DimensionPhysicalStats):   "32 years, 180 cm",
	}
	if diff := cmp.Diff(want, d.StructuredSummary()); diff != "" {
		t.Errorf("StructuredSummary mismatch (-want +got):\n%s", diff)
	}
	if !d.LastModifiedAt.Equal(f.clock.now) {
		t.Errorf("LastModifiedAt = %v, want %v", d.LastModifiedAt, f.clock.now)
	}

	d, err = f.svc.ClearGoalSelection(ctx, goal.DimensionPhysicalStats)
	if err != nil {
		t.Fatalf("ClearGoalSelection: %v", err)
	}
	if _, ok := d.Selection(goal.DimensionPhysicalStats); ok {
		t.Error("selection still present after ClearGoalSelection")
	}

	other, err := f.svc.Goals(deviceContext(t, "device-b"))
	if err != nil {
		t.Fatalf("Goals for other device: %v", err)
	}
	if other.HasFreeText() {
		t.Error("goal draft leaked to another device")
	}

	if err = f.svc.ResetGoals(ctx); err != nil {
		t.Fatalf("ResetGoals: %v", err)
	}
	if d, err = f.svc.Goals(ctx); err != nil || d.HasFreeText() {
		t.Errorf("Goals after reset = %+v, %v, want an empty draft", d, err)
	}
}

func TestService_SetGoalSelectionErrors(t *testing.T) {
	f := newFixture(t)
	ctx := deviceContext(t, "device-a")

	tests := []struct {
		name       string
		ctx        context.Context
		dimension  goal.Dimension
		value      string
		customText string
		wantErr    error
	}{
		{
			name:       "unknown dimension",
			ctx:        ctx,
			dimension:  "mood",
			value:      "happy",
			customText: "",
			wantErr:    goal.ErrUnknownDimension,
		},
		{
			name:       "unknown option",
			ctx:        ctx,
			dimension:  goal.DimensionFitnessLevel,
			value:      "elite",
			customText: "",
			wantErr:    tracker.ErrUnknownOption,
		},
		{
			name:       "empty selection",
			ctx:        ctx,
			dimension:  goal.DimensionFitnessLevel,
			value:      "",
			customText: "   ",
			wantErr:    tracker.ErrEmptySelection,
		},
		{
			name:       "no device",
			ctx:        t.Context(),
			dimension:  goal.DimensionFitnessLevel,
			value:      "beginner",
			customText: "",
			wantErr:    tracker.ErrNoDevice,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.SetGoalSelection(tt.ctx, tt.dimension, tt.value, tt.customText)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("SetGoalSelection() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestService_PrefillGoals(t *testing.T) {
	f := newFixture(t)
	ctx := deviceContext(t, "device-a")

	if _, err := f.svc.UpdateGoalText(ctx, "Old goals"); err != nil {
		t.Fatalf("UpdateGoalText: %v", err)
	}
	d, err := f.svc.PrefillGoals(ctx, map[string]string{
		string(goal.DimensionFitnessLevel):    "intermediate",
		string(goal.DimensionWorkoutLocation): "my garage",
		string(goal.DimensionSex):             "",
	})
	if err != nil {
		t.Fatalf("PrefillGoals: %v", err)
	}
	want := map[string]string{
		goal.FreeTextKey:                      "",
		string(goal.DimensionFitnessLevel):    "intermediate",
		string(goal.DimensionWorkoutLocation): "my garage",
	}
	if diff := cmp.Diff(want, d.StructuredSummary()); diff != "" {
		t.Errorf("StructuredSummary mismatch (-want +got):\n%s", diff)
	}
	location, _ := d.Selection(goal.DimensionWorkoutLocation)
	if location.ChosenOption == nil || !location.ChosenOption.AllowsCustomInput {
		t.Errorf("unknown value should select the custom option, got %+v", location.ChosenOption)
	}

	if _, err = f.svc.PrefillGoals(ctx, map[string]string{"mood": "happy"}); !errors.Is(err, goal.ErrUnknownDimension) {
		t.Errorf("PrefillGoals() error = %v, want %v", err, goal.ErrUnknownDimension)
	}
}

func TestService_PlanLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := deviceContext(t, "device-a")

	suggested := f.generate(ctx, t)
	if suggested.Status != plan.StatusSuggested || suggested.PlanTitle != "Spring Kickoff" {
		t.Fatalf("unexpected generated plan: status %s, title %q", suggested.Status, suggested.PlanTitle)
	}
	if got := suggested.Days[0].Date; !got.Equal(plan.StartOfDay(f.clock.now)) {
		t.Errorf("day 1 date = %v, want today", got)
	}
	current, err := f.svc.CurrentPlan(ctx)
	if err != nil {
		t.Fatalf("CurrentPlan: %v", err)
	}
	if diff := cmp.Diff(suggested, current); diff != "" {
		t.Errorf("stored plan mismatch (-want +got):\n%s", diff)
	}

	// Review edits while suggested.
	id := suggested.ID
	p, err := f.svc.SetDayFocus(ctx, id, 2, "Mobility")
	if err != nil {
		t.Fatalf("SetDayFocus: %v", err)
	}
	plank, err := plan.NewExercise("Plank", 3, 30, plan.UnitSeconds, "")
	if err != nil {
		t.Fatalf("NewExercise: %v", err)
	}
	if p, err = f.svc.AddExercise(ctx, id, 2, plank); err != nil {
		t.Fatalf("AddExercise: %v", err)
	}
	jog := p.Days[1].Exercises[1]
	quantity := 25
	if p, err = f.svc.UpdateExercise(ctx, id, 2, jog.ID, plan.Edit{Quantity: &quantity}); err != nil {
		t.Fatalf("UpdateExercise: %v", err)
	}
	if p, err = f.svc.RemoveExercise(ctx, id, 2, p.Days[1].Exercises[0].ID); err != nil {
		t.Fatalf("RemoveExercise: %v", err)
	}
	day2 := p.Days[1]
	if day2.Focus != "Mobility" || len(day2.Exercises) != 2 || day2.Exercises[0].Quantity != 25 ||
		day2.Exercises[1].Name != "Plank" {
		t.Errorf("unexpected day 2 after edits: %+v", day2)
	}
	if _, err = f.svc.ToggleExercise(ctx, id, 1, p.Days[0].Exercises[0].ID); !errors.Is(err, plan.ErrPlanNotActive) {
		t.Errorf("ToggleExercise on suggested plan error = %v, want %v", err, plan.ErrPlanNotActive)
	}
	if _, err = f.svc.ArchivePlan(ctx, id); !errors.Is(err, plan.ErrPlanNotActive) {
		t.Errorf("ArchivePlan on suggested plan error = %v, want %v", err, plan.ErrPlanNotActive)
	}

	// Accept and track.
	if p, err = f.svc.AcceptPlan(ctx, id); err != nil {
		t.Fatalf("AcceptPlan: %v", err)
	}
	if _, err = f.svc.AcceptPlan(ctx, id); !errors.Is(err, plan.ErrAlreadyAccepted) {
		t.Errorf("second AcceptPlan error = %v, want %v", err, plan.ErrAlreadyAccepted)
	}
	if _, err = f.svc.SetDayFocus(ctx, id, 1, "Legs"); !errors.Is(err, plan.ErrPlanLocked) {
		t.Errorf("SetDayFocus on active plan error = %v, want %v", err, plan.ErrPlanLocked)
	}
	if _, err = f.svc.GeneratePlan(ctx, time.Time{}); !errors.Is(err, tracker.ErrPlanInProgress) {
		t.Errorf("GeneratePlan with active plan error = %v, want %v", err, tracker.ErrPlanInProgress)
	}
	if _, err = f.svc.ArchivePlan(ctx, id); !errors.Is(err, tracker.ErrChallengeInProgress) {
		t.Errorf("ArchivePlan of running plan error = %v, want %v", err, tracker.ErrChallengeInProgress)
	}

	p = f.completeAll(ctx, t, p)
	progress, err := f.svc.Progress(ctx, id)
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if !progress.IsCompleted || progress.CompletedDays != plan.ChallengeLength || progress.ProgressPercentage != 100 {
		t.Errorf("unexpected progress: %+v", progress)
	}

	// Archive.
	challenge, err := f.svc.ArchivePlan(ctx, id)
	if err != nil {
		t.Fatalf("ArchivePlan: %v", err)
	}
	if challenge.OriginalPlanID != id || challenge.SuccessRate() != 100 || challenge.ChallengeTitle != p.Summary {
		t.Errorf("unexpected challenge: %+v", challenge)
	}
	if challenge.GoalProfile[goal.FreeTextKey] != "Build endurance" {
		t.Errorf("goal profile = %v, want the draft summary", challenge.GoalProfile)
	}
	if _, err = f.svc.ArchivePlan(ctx, id); !errors.Is(err, tracker.ErrPlanArchived) {
		t.Errorf("second ArchivePlan error = %v, want %v", err, tracker.ErrPlanArchived)
	}
	if _, err = f.svc.ToggleExercise(ctx, id, 1, p.Days[0].Exercises[0].ID); !errors.Is(err, tracker.ErrPlanArchived) {
		t.Errorf("ToggleExercise on archived plan error = %v, want %v", err, tracker.ErrPlanArchived)
	}
	if _, err = f.svc.Plan(ctx, id); err != nil {
		t.Errorf("archived plan should stay readable: %v", err)
	}
	if _, err = f.svc.CurrentPlan(ctx); !errors.Is(err, tracker.ErrNotFound) {
		t.Errorf("CurrentPlan after archive error = %v, want %v", err, tracker.ErrNotFound)
	}
	if err = f.svc.DeletePlan(ctx, id); !errors.Is(err, tracker.ErrNotFound) {
		t.Errorf("DeletePlan of archived plan error = %v, want %v", err, tracker.ErrNotFound)
	}

	// Archive collection.
	challenges, totals, err := f.svc.Challenges(ctx)
	if err != nil {
		t.Fatalf("Challenges: %v", err)
	}
	if len(challenges) != 1 || totals.FullyCompleted != 1 || totals.BestStreak != plan.ChallengeLength {
		t.Errorf("unexpected challenges %d with totals %+v", len(challenges), totals)
	}
	got, err := f.svc.Challenge(ctx, challenge.ID)
	if err != nil {
		t.Fatalf("Challenge: %v", err)
	}
	if diff := cmp.Diff(challenge, got); diff != "" {
		t.Errorf("stored challenge mismatch (-want +got):\n%s", diff)
	}

	achievements, err := f.svc.Achievements(ctx)
	if err != nil {
		t.Fatalf("Achievements: %v", err)
	}
	if !achievements.Badges[0].Earned || achievements.Badges[1].Earned {
		t.Errorf("unexpected badges: %+v", achievements.Badges)
	}
	if achievements.NextBadge == nil || achievements.NextBadge.Badge.ID != "hat-trick" ||
		achievements.NextBadge.Remaining != 2 {
		t.Errorf("unexpected next badge: %+v", achievements.NextBadge)
	}
	if len(achievements.Suggestions) == 0 {
		t.Error("expected next-challenge suggestions")
	}

	if err = f.svc.DeleteChallenge(ctx, challenge.ID); err != nil {
		t.Fatalf("DeleteChallenge: %v", err)
	}
	if _, err = f.svc.Challenge(ctx, challenge.ID); !errors.Is(err, tracker.ErrNotFound) {
		t.Errorf("Challenge after delete error = %v, want %v", err, tracker.ErrNotFound)
	}

	// A new challenge can start once the previous one is archived.
	if next := f.generate(ctx, t); next.ID == id {
		t.Error("expected a new plan")
	}
}

func TestService_GeneratePlanReplacesSuggestion(t *testing.T) {
	f := newFixture(t)
	ctx := deviceContext(t, "device-a")

	first := f.generate(ctx, t)
	second := f.generate(ctx, t)
	if _, err := f.svc.Plan(ctx, first.ID); !errors.Is(err, tracker.ErrNotFound) {
		t.Errorf("earlier suggestion should be discarded, got %v", err)
	}
	current, err := f.svc.CurrentPlan(ctx)
	if err != nil {
		t.Fatalf("CurrentPlan: %v", err)
	}
	if current.ID != second.ID {
		t.Errorf("CurrentPlan = %s, want %s", current.ID, second.ID)
	}
	if _, err = f.svc.Plan(deviceContext(t, "device-b"), second.ID); !errors.Is(err, tracker.ErrNotFound) {
		t.Errorf("plan leaked to another device, got %v", err)
	}
}

func TestService_GeneratePlanInsufficientInput(t *testing.T) {
	f := newFixture(t)
	ctx := deviceContext(t, "device-a")

	if _, err := f.svc.SetGoalSelection(ctx, goal.DimensionFitnessLevel, "beginner", ""); err != nil {
		t.Fatalf("SetGoalSelection: %v", err)
	}
	_, err := f.svc.GeneratePlan(ctx, time.Time{})
	if kind := planner.KindOf(err); kind != planner.KindInvalidInput {
		t.Errorf("KindOf(%v) = %s, want %s", err, kind, planner.KindInvalidInput)
	}
	if f.calls != 0 {
		t.Errorf("transport called %d times, want 0", f.calls)
	}
	if _, err = f.svc.CurrentPlan(ctx); !errors.Is(err, tracker.ErrNotFound) {
		t.Errorf("CurrentPlan error = %v, want %v", err, tracker.ErrNotFound)
	}
}

func TestService_ArchiveFinishedPlan(t *testing.T) {
	f := newFixture(t)
	ctx := deviceContext(t, "device-a")

	p := f.generate(ctx, t)
	p, err := f.svc.AcceptPlan(ctx, p.ID)
	if err != nil {
		t.Fatalf("AcceptPlan: %v", err)
	}
	for _, d := range p.Days[:7] {
		for _, e := range d.Exercises {
			if p, err = f.svc.ToggleExercise(ctx, p.ID, d.DayNumber, e.ID); err != nil {
				t.Fatalf("ToggleExercise: %v", err)
			}
		}
	}

	f.clock.advance(13 * 24 * time.Hour)
	if _, err = f.svc.ArchivePlan(ctx, p.ID); !errors.Is(err, tracker.ErrChallengeInProgress) {
		t.Errorf("ArchivePlan on the last day error = %v, want %v", err, tracker.ErrChallengeInProgress)
	}

	f.clock.advance(24 * time.Hour)
	challenge, err := f.svc.ArchivePlan(ctx, p.ID)
	if err != nil {
		t.Fatalf("ArchivePlan: %v", err)
	}
	if challenge.SuccessRate() != 50 || challenge.IsFullyCompleted() {
		t.Errorf("success rate = %v, want 50", challenge.SuccessRate())
	}
	if !challenge.CompletionDate.Equal(f.clock.now) {
		t.Errorf("CompletionDate = %v, want %v", challenge.CompletionDate, f.clock.now)
	}
}

func TestService_DeleteActivePlan(t *testing.T) {
	f := newFixture(t)
	ctx := deviceContext(t, "device-a")

	p := f.generate(ctx, t)
	if _, err := f.svc.AcceptPlan(ctx, p.ID); err != nil {
		t.Fatalf("AcceptPlan: %v", err)
	}
	if err := f.svc.DeletePlan(ctx, p.ID); err != nil {
		t.Fatalf("DeletePlan: %v", err)
	}
	if _, err := f.svc.GeneratePlan(ctx, time.Time{}); err != nil {
		t.Errorf("GeneratePlan after abandoning the plan: %v", err)
	}
}

func TestService_PlanUpdatesUseServiceClock(t *testing.T) {
	f := newFixture(t)
	ctx := deviceContext(t, "device-a")

	p := f.generate(ctx, t)
	f.clock.advance(3 * time.Hour)
	if _, err := f.svc.AcceptPlan(ctx, p.ID); err != nil {
		t.Fatalf("AcceptPlan: %v", err)
	}

	var updatedAt string
	if err := f.db.ReadOnly.QueryRowContext(ctx, `SELECT updated_at FROM workout_plans WHERE id = ?`,
		p.ID.String()).Scan(&updatedAt); err != nil {
		t.Fatalf("query updated_at: %v", err)
	}
	if want := f.clock.Now().UTC().Format(sqlite.TimestampFormat); updatedAt != want {
		t.Errorf("updated_at = %q, want %q", updatedAt, want)
	}
}

func TestService_ExportDeviceData(t *testing.T) {
	f := newFixture(t)
	ctx := deviceContext(t, "device-a")
	f.generate(ctx, t)

	path, err := f.svc.ExportDeviceData(ctx, t.TempDir())
	if err != nil {
		t.Fatalf("ExportDeviceData: %v", err)
	}
	if info, statErr := os.Stat(path); statErr != nil || info.Size() == 0 {
		t.Errorf("export file missing or empty: %v", statErr)
	}

	if _, err = f.svc.ExportDeviceData(t.Context(), t.TempDir()); !errors.Is(err, tracker.ErrNoDevice) {
		t.Errorf("ExportDeviceData without device error = %v, want %v", err, tracker.ErrNoDevice)
	}
}
