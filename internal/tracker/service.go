// Package tracker is the application service of Fit14. It persists the goal draft, the plans and the completed
// challenges of each device and runs plan generation through the planner.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jersjar7/Fit14-sub001/internal/archive"
	"github.com/jersjar7/Fit14-sub001/internal/goal"
	"github.com/jersjar7/Fit14-sub001/internal/plan"
	"github.com/jersjar7/Fit14-sub001/internal/planner"
	"github.com/jersjar7/Fit14-sub001/internal/sqlite"
)

// Service handles the business logic of the goal input flow, the plan lifecycle and the challenge archive.
// Every method is scoped to the device stored in the context with [contexthelpers.WithDeviceID].
type Service struct {
	db        *sqlite.Database
	repo      *repository
	generator *planner.Generator
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a new tracker service. now defaults to time.Now.
func NewService(db *sqlite.Database, generator *planner.Generator, logger *slog.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		db:        db,
		repo:      newRepository(db, logger, now),
		generator: generator,
		logger:    logger,
		now:       now,
	}
}

// Goals returns the device's goal draft. A device without a draft gets an empty one that isn't stored yet.
func (s *Service) Goals(ctx context.Context) (goal.Data, error) {
	d, err := s.repo.goals.Get(ctx)
	if errors.Is(err, ErrNotFound) {
		return goal.NewData(s.now()), nil
	}
	if err != nil {
		return goal.Data{}, fmt.Errorf("get goal draft: %w", err)
	}
	return d, nil
}

func (s *Service) updateGoals(ctx context.Context, updateFn func(d goal.Data, now time.Time) (goal.Data, error)) (
	goal.Data, error) {
	now := s.now()
	d, err := s.repo.goals.Update(ctx, goal.NewData(now), func(d goal.Data) (goal.Data, error) {
		return updateFn(d, now)
	})
	if err != nil {
		return goal.Data{}, fmt.Errorf("update goal draft: %w", err)
	}
	return d, nil
}

// UpdateGoalText replaces the free-form goal description.
func (s *Service) UpdateGoalText(ctx context.Context, text string) (goal.Data, error) {
	return s.updateGoals(ctx, func(d goal.Data, now time.Time) (goal.Data, error) {
		return d.UpdateFreeText(text, now), nil
	})
}

// SetGoalSelection selects the option with value for dim, with optional custom text. Either value or customText
// must be given.
func (s *Service) SetGoalSelection(ctx context.Context, dim goal.Dimension, value, customText string) (
	goal.Data, error) {
	if !dim.Valid() {
		return goal.Data{}, fmt.Errorf("%w: %q", goal.ErrUnknownDimension, dim)
	}
	if value == "" && strings.TrimSpace(customText) == "" {
		return goal.Data{}, ErrEmptySelection
	}
	var option *goal.Option
	if value != "" {
		o, ok := goal.LookupOption(dim, value)
		if !ok {
			return goal.Data{}, fmt.Errorf("%w: %q for %s", ErrUnknownOption, value, dim)
		}
		option = &o
	}
	return s.updateGoals(ctx, func(d goal.Data, now time.Time) (goal.Data, error) {
		return d.SetSelection(dim, option, customText, now)
	})
}

// ClearGoalSelection removes the selection of dim.
func (s *Service) ClearGoalSelection(ctx context.Context, dim goal.Dimension) (goal.Data, error) {
	if !dim.Valid() {
		return goal.Data{}, fmt.Errorf("%w: %q", goal.ErrUnknownDimension, dim)
	}
	return s.updateGoals(ctx, func(d goal.Data, now time.Time) (goal.Data, error) {
		return d.ClearSelection(dim, now), nil
	})
}

// ResetGoals discards the goal draft.
func (s *Service) ResetGoals(ctx context.Context) error {
	if err := s.repo.goals.Delete(ctx); err != nil {
		return fmt.Errorf("reset goal draft: %w", err)
	}
	return nil
}

// PrefillGoals replaces the draft with the selections of a next-challenge suggestion, keyed by dimension name.
// Values that aren't catalog options become the custom text of the dimension's custom option.
func (s *Service) PrefillGoals(ctx context.Context, selections map[string]string) (goal.Data, error) {
	return s.updateGoals(ctx, func(_ goal.Data, now time.Time) (goal.Data, error) {
		d := goal.NewData(now)
		if text, ok := selections[goal.FreeTextKey]; ok {
			d = d.UpdateFreeText(text, now)
		}
		for name, value := range selections {
			if name == goal.FreeTextKey || strings.TrimSpace(value) == "" {
				continue
			}
			dim := goal.Dimension(name)
			option, customText := prefillOption(dim, value)
			var err error
			if d, err = d.SetSelection(dim, option, customText, now); err != nil {
				return goal.Data{}, err
			}
		}
		return d, nil
	})
}

func prefillOption(dim goal.Dimension, value string) (*goal.Option, string) {
	if o, ok := goal.LookupOption(dim, value); ok {
		return &o, ""
	}
	options := goal.OptionsFor(dim)
	i := slices.IndexFunc(options, func(o goal.Option) bool { return o.AllowsCustomInput })
	if i < 0 {
		return nil, value
	}
	return &options[i], value
}

// GeneratePlan generates a suggested plan from the goal draft with day 1 on start, today when start is zero. The
// new plan replaces earlier suggestions. Generation is refused while an accepted plan is in progress.
func (s *Service) GeneratePlan(ctx context.Context, start time.Time) (planner.Result, error) {
	device, err := deviceID(ctx)
	if err != nil {
		return planner.Result{}, err
	}
	current, err := s.repo.plans.Current(ctx)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return planner.Result{}, fmt.Errorf("get current plan: %w", err)
	case current.Plan.Status == plan.StatusActive:
		return planner.Result{}, ErrPlanInProgress
	}

	draft, err := s.Goals(ctx)
	if err != nil {
		return planner.Result{}, err
	}
	if start.IsZero() {
		start = s.now()
	}
	start = plan.StartOfDay(start)

	result, err := s.generator.Generate(ctx, device, draft, start)
	if err != nil {
		return planner.Result{}, fmt.Errorf("generate plan: %w", err)
	}
	if err = s.repo.plans.Create(ctx, storedPlan{
		Plan:        result.Plan,
		GoalProfile: draft.StructuredSummary(),
		ArchivedAt:  time.Time{},
	}); err != nil {
		return planner.Result{}, fmt.Errorf("save generated plan: %w", err)
	}
	return result, nil
}

// CurrentPlan returns the device's newest plan that hasn't been archived.
func (s *Service) CurrentPlan(ctx context.Context) (plan.WorkoutPlan, error) {
	sp, err := s.repo.plans.Current(ctx)
	if err != nil {
		return plan.WorkoutPlan{}, fmt.Errorf("get current plan: %w", err)
	}
	return sp.Plan, nil
}

// Plan returns a plan by ID, including archived ones.
func (s *Service) Plan(ctx context.Context, id uuid.UUID) (plan.WorkoutPlan, error) {
	sp, err := s.repo.plans.Get(ctx, id)
	if err != nil {
		return plan.WorkoutPlan{}, fmt.Errorf("get plan %s: %w", id, err)
	}
	return sp.Plan, nil
}

func (s *Service) updatePlan(ctx context.Context, id uuid.UUID, op string,
	editFn func(p plan.WorkoutPlan) (plan.WorkoutPlan, error)) (plan.WorkoutPlan, error) {
	p, err := s.repo.plans.Update(ctx, id, func(p plan.WorkoutPlan) (plan.WorkoutPlan, bool, error) {
		updated, err := editFn(p)
		if err != nil {
			return p, false, err
		}
		return updated, true, nil
	})
	if err != nil {
		return plan.WorkoutPlan{}, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// AcceptPlan validates a suggested plan and makes it active. From then on only exercise completion can change.
func (s *Service) AcceptPlan(ctx context.Context, id uuid.UUID) (plan.WorkoutPlan, error) {
	p, err := s.updatePlan(ctx, id, "accept plan", func(p plan.WorkoutPlan) (plan.WorkoutPlan, error) {
		accepted, err := p.Accept()
		if err != nil {
			return p, err
		}
		if err = accepted.Validate(); err != nil {
			return p, err
		}
		return accepted, nil
	})
	if err != nil {
		return plan.WorkoutPlan{}, err
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "plan accepted", slog.String("plan_id", id.String()))
	return p, nil
}

// SetDayFocus changes the focus of a day of a suggested plan.
func (s *Service) SetDayFocus(ctx context.Context, id uuid.UUID, dayNumber int, focus string) (
	plan.WorkoutPlan, error) {
	return s.updatePlan(ctx, id, "set day focus", func(p plan.WorkoutPlan) (plan.WorkoutPlan, error) {
		return p.SetFocus(dayNumber, focus)
	})
}

// AddExercise appends an exercise to a day of a suggested plan.
func (s *Service) AddExercise(ctx context.Context, id uuid.UUID, dayNumber int, e plan.Exercise) (
	plan.WorkoutPlan, error) {
	return s.updatePlan(ctx, id, "add exercise", func(p plan.WorkoutPlan) (plan.WorkoutPlan, error) {
		return p.AddExercise(dayNumber, e)
	})
}

// UpdateExercise applies edit to an exercise of a suggested plan.
func (s *Service) UpdateExercise(ctx context.Context, id uuid.UUID, dayNumber int, exerciseID uuid.UUID,
	edit plan.Edit) (plan.WorkoutPlan, error) {
	return s.updatePlan(ctx, id, "update exercise", func(p plan.WorkoutPlan) (plan.WorkoutPlan, error) {
		return p.UpdateExercise(dayNumber, exerciseID, edit)
	})
}

// RemoveExercise removes an exercise from a day of a suggested plan.
func (s *Service) RemoveExercise(ctx context.Context, id uuid.UUID, dayNumber int, exerciseID uuid.UUID) (
	plan.WorkoutPlan, error) {
	return s.updatePlan(ctx, id, "remove exercise", func(p plan.WorkoutPlan) (plan.WorkoutPlan, error) {
		return p.RemoveExercise(dayNumber, exerciseID)
	})
}

// ToggleExercise flips the completion of an exercise of an active plan.
func (s *Service) ToggleExercise(ctx context.Context, id uuid.UUID, dayNumber int, exerciseID uuid.UUID) (
	plan.WorkoutPlan, error) {
	return s.updatePlan(ctx, id, "toggle exercise", func(p plan.WorkoutPlan) (plan.WorkoutPlan, error) {
		return p.ToggleExercise(dayNumber, exerciseID)
	})
}

// Progress reports the statistics of a plan as of now.
func (s *Service) Progress(ctx context.Context, id uuid.UUID) (plan.Progress, error) {
	p, err := s.Plan(ctx, id)
	if err != nil {
		return plan.Progress{}, err
	}
	return p.Progress(s.now()), nil
}

// DeletePlan discards a plan that hasn't been archived, abandoning it when it was accepted.
func (s *Service) DeletePlan(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.plans.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete plan %s: %w", id, err)
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "plan deleted", slog.String("plan_id", id.String()))
	return nil
}

// ArchivePlan snapshots an active plan as a completed challenge. The plan must be completed or past its last day.
func (s *Service) ArchivePlan(ctx context.Context, id uuid.UUID) (archive.CompletedChallenge, error) {
	now := s.now()
	c, err := s.repo.challenges.Archive(ctx, id, func(sp storedPlan) (archive.CompletedChallenge, error) {
		if sp.Plan.Status != plan.StatusActive {
			return archive.CompletedChallenge{}, plan.ErrPlanNotActive
		}
		if !sp.Plan.IsCompleted() && !sp.Plan.IsFinished(now) {
			return archive.CompletedChallenge{}, ErrChallengeInProgress
		}
		return archive.Archive(sp.Plan, now, sp.GoalProfile), nil
	})
	if err != nil {
		return archive.CompletedChallenge{}, fmt.Errorf("archive plan %s: %w", id, err)
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "plan archived",
		slog.String("plan_id", id.String()),
		slog.String("challenge_id", c.ID.String()),
		slog.Float64("success_rate", c.SuccessRate()))
	return c, nil
}

// Challenges lists the device's completed challenges, newest first, with their aggregate statistics.
func (s *Service) Challenges(ctx context.Context) ([]archive.CompletedChallenge, archive.Totals, error) {
	challenges, err := s.repo.challenges.List(ctx)
	if err != nil {
		return nil, archive.Totals{}, fmt.Errorf("list challenges: %w", err)
	}
	return challenges, archive.Summarize(challenges), nil
}

// Challenge returns a completed challenge by ID.
func (s *Service) Challenge(ctx context.Context, id uuid.UUID) (archive.CompletedChallenge, error) {
	c, err := s.repo.challenges.Get(ctx, id)
	if err != nil {
		return archive.CompletedChallenge{}, fmt.Errorf("get challenge %s: %w", id, err)
	}
	return c, nil
}

// DeleteChallenge removes a completed challenge.
func (s *Service) DeleteChallenge(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.challenges.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete challenge %s: %w", id, err)
	}
	return nil
}

// BadgeStatus is a badge together with whether the device earned it.
type BadgeStatus struct {
	archive.Badge
	Earned bool `json:"earned"`
}

// NextBadge is the next badge to earn and the number of challenges still needed for it.
type NextBadge struct {
	Badge     archive.Badge `json:"badge"`
	Remaining int           `json:"remaining"`
}

// Achievements summarizes the badges and next-challenge suggestions of a device.
type Achievements struct {
	CompletedChallenges int                  `json:"completedChallenges"`
	Badges              []BadgeStatus        `json:"badges"`
	NextBadge           *NextBadge           `json:"nextBadge,omitempty"`
	Suggestions         []archive.Suggestion `json:"suggestions"`
}

// Achievements derives the device's badges and next-challenge suggestions from its archive.
func (s *Service) Achievements(ctx context.Context) (Achievements, error) {
	challenges, err := s.repo.challenges.List(ctx)
	if err != nil {
		return Achievements{}, fmt.Errorf("list challenges: %w", err)
	}
	count := len(challenges)
	a := Achievements{
		CompletedChallenges: count,
		Badges:              nil,
		NextBadge:           nil,
		Suggestions:         archive.Suggest(challenges),
	}
	for _, b := range archive.Badges() {
		a.Badges = append(a.Badges, BadgeStatus{Badge: b, Earned: b.IsEarned(count)})
	}
	if b, remaining, ok := archive.NextBadge(count); ok {
		a.NextBadge = &NextBadge{Badge: b, Remaining: remaining}
	}
	return a, nil
}

// ExportDeviceData writes a standalone SQLite database with all the device's rows under basePath and returns its
// path. The caller removes the file.
func (s *Service) ExportDeviceData(ctx context.Context, basePath string) (string, error) {
	device, err := deviceID(ctx)
	if err != nil {
		return "", err
	}
	path, err := s.db.ExportDevice(ctx, device, basePath)
	if err != nil {
		return "", fmt.Errorf("export device data: %w", err)
	}
	return path, nil
}
