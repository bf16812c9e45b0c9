// Package archive freezes finished plans into immutable completed challenges and derives achievements from them.
package archive

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jersjar7/Fit14-sub001/internal/plan"
)

// DefaultTitle names challenges whose plan had neither summary nor title.
const DefaultTitle = "14-Day Challenge"

// ExerciseRecord is the state of one exercise at archival time.
type ExerciseRecord struct {
	ExerciseID   uuid.UUID `json:"exerciseId"`
	Name         string    `json:"name"`
	Sets         int       `json:"sets"`
	Quantity     int       `json:"quantity"`
	Unit         plan.Unit `json:"unit"`
	WasCompleted bool      `json:"wasCompleted"`
}

// DayRecord is the state of one day at archival time.
type DayRecord struct {
	DayNumber int              `json:"dayNumber"`
	Date      time.Time        `json:"date"`
	Focus     string           `json:"focus,omitempty"`
	Exercises []ExerciseRecord `json:"exercises"`
}

// CompletedExercises counts the exercises that were done.
func (d DayRecord) CompletedExercises() int {
	n := 0
	for _, e := range d.Exercises {
		if e.WasCompleted {
			n++
		}
	}
	return n
}

// IsCompleted reports whether every exercise of the day was done.
func (d DayRecord) IsCompleted() bool {
	return len(d.Exercises) > 0 && d.CompletedExercises() == len(d.Exercises)
}

// CompletedChallenge is the immutable snapshot of a plan. Counters are denormalized at archival time; everything
// else is derived on read.
type CompletedChallenge struct {
	ID                    uuid.UUID         `json:"id"`
	OriginalPlanID        uuid.UUID         `json:"originalPlanId"`
	ChallengeTitle        string            `json:"challengeTitle"`
	UserGoals             string            `json:"userGoals"`
	StartDate             time.Time         `json:"startDate"`
	CompletionDate        time.Time         `json:"completionDate"`
	TotalDays             int               `json:"totalDays"`
	CompletedDays         int               `json:"completedDays"`
	TotalExercises        int               `json:"totalExercises"`
	CompletedExercises    int               `json:"completedExercises"`
	DailyCompletionRecord []DayRecord       `json:"dailyCompletionRecord"`
	GoalProfile           map[string]string `json:"goalProfile,omitempty"`
}

// Archive snapshots p. profile is the structured goal summary the plan was generated from; it feeds next-challenge
// suggestions. Neither p nor profile are retained, so later changes to them never reach the archive.
func Archive(p plan.WorkoutPlan, completionDate time.Time, profile map[string]string) CompletedChallenge {
	c := CompletedChallenge{
		ID:                    uuid.New(),
		OriginalPlanID:        p.ID,
		ChallengeTitle:        challengeTitle(p),
		UserGoals:             p.UserGoalsText,
		StartDate:             time.Time{},
		CompletionDate:        completionDate,
		TotalDays:             len(p.Days),
		CompletedDays:         0,
		TotalExercises:        0,
		CompletedExercises:    0,
		DailyCompletionRecord: make([]DayRecord, 0, len(p.Days)),
		GoalProfile:           maps.Clone(profile),
	}
	for _, d := range p.Days {
		record := DayRecord{
			DayNumber: d.DayNumber,
			Date:      d.Date,
			Focus:     d.Focus,
			Exercises: make([]ExerciseRecord, 0, len(d.Exercises)),
		}
		for _, e := range d.Exercises {
			record.Exercises = append(record.Exercises, ExerciseRecord{
				ExerciseID:   e.ID,
				Name:         e.Name,
				Sets:         e.Sets,
				Quantity:     e.Quantity,
				Unit:         e.Unit,
				WasCompleted: e.IsCompleted,
			})
		}
		if record.IsCompleted() {
			c.CompletedDays++
		}
		c.TotalExercises += len(record.Exercises)
		c.CompletedExercises += record.CompletedExercises()
		if c.StartDate.IsZero() || d.Date.Before(c.StartDate) {
			c.StartDate = d.Date
		}
		c.DailyCompletionRecord = append(c.DailyCompletionRecord, record)
	}
	return c
}

func challengeTitle(p plan.WorkoutPlan) string {
	for _, candidate := range []string{p.Summary, p.PlanTitle} {
		if s := strings.TrimSpace(candidate); s != "" {
			return s
		}
	}
	return DefaultTitle
}

// States reduces the records to their completion state for the shared statistics functions.
func (c CompletedChallenge) States() []plan.DayState {
	states := make([]plan.DayState, len(c.DailyCompletionRecord))
	for i, d := range c.DailyCompletionRecord {
		states[i] = plan.DayState{
			DayNumber:          d.DayNumber,
			Date:               d.Date,
			TotalExercises:     len(d.Exercises),
			CompletedExercises: d.CompletedExercises(),
		}
	}
	return states
}

// SuccessRate is the share of completed days in [0, 100].
func (c CompletedChallenge) SuccessRate() float64 {
	return plan.Percentage(c.CompletedDays, c.TotalDays)
}

// ExerciseCompletionRate is the share of completed exercises in [0, 100].
func (c CompletedChallenge) ExerciseCompletionRate() float64 {
	return plan.Percentage(c.CompletedExercises, c.TotalExercises)
}

// IsFullyCompleted reports whether every day was completed.
func (c CompletedChallenge) IsFullyCompleted() bool {
	return c.TotalDays > 0 && c.CompletedDays >= c.TotalDays
}

// LongestStreak is the longest run of consecutive completed days.
func (c CompletedChallenge) LongestStreak() int {
	return plan.LongestStreak(c.States())
}

// PerfectDays counts the days with every exercise done.
func (c CompletedChallenge) PerfectDays() int {
	return plan.CountCompleted(c.States())
}

// PartialDays counts the days with some but not all exercises done.
func (c CompletedChallenge) PartialDays() int {
	return plan.CountPartial(c.States())
}

// MissedDays counts the days without a single completed exercise.
func (c CompletedChallenge) MissedDays() int {
	return len(c.DailyCompletionRecord) - c.PerfectDays() - c.PartialDays()
}

// MostConsistentWeek is the half of the challenge with the better completion rate.
func (c CompletedChallenge) MostConsistentWeek() plan.Week {
	return plan.MostConsistentWeek(c.States())
}

// Stats are the derived statistics of a challenge.
type Stats struct {
	SuccessRate            float64   `json:"successRate"`
	ExerciseCompletionRate float64   `json:"exerciseCompletionRate"`
	IsFullyCompleted       bool      `json:"isFullyCompleted"`
	LongestStreak          int       `json:"longestStreak"`
	PerfectDays            int       `json:"perfectDays"`
	PartialDays            int       `json:"partialDays"`
	MissedDays             int       `json:"missedDays"`
	MostConsistentWeek     plan.Week `json:"mostConsistentWeek"`
}

// Stats computes all derived statistics.
func (c CompletedChallenge) Stats() Stats {
	return Stats{
		SuccessRate:            c.SuccessRate(),
		ExerciseCompletionRate: c.ExerciseCompletionRate(),
		IsFullyCompleted:       c.IsFullyCompleted(),
		LongestStreak:          c.LongestStreak(),
		PerfectDays:            c.PerfectDays(),
		PartialDays:            c.PartialDays(),
		MissedDays:             c.MissedDays(),
		MostConsistentWeek:     c.MostConsistentWeek(),
	}
}

// Totals aggregate a collection of challenges.
type Totals struct {
	Challenges         int     `json:"challenges"`
	FullyCompleted     int     `json:"fullyCompleted"`
	CompletedExercises int     `json:"completedExercises"`
	AverageSuccessRate float64 `json:"averageSuccessRate"`
	BestStreak         int     `json:"bestStreak"`
}

// Summarize aggregates challenges.
func Summarize(challenges []CompletedChallenge) Totals {
	t := Totals{Challenges: len(challenges)}
	if len(challenges) == 0 {
		return t
	}
	sum := 0.0
	for _, c := range challenges {
		if c.IsFullyCompleted() {
			t.FullyCompleted++
		}
		t.CompletedExercises += c.CompletedExercises
		t.BestStreak = max(t.BestStreak, c.LongestStreak())
		sum += c.SuccessRate()
	}
	t.AverageSuccessRate = sum / float64(len(challenges))
	return t
}

// Latest returns the challenge with the most recent completion date.
func Latest(challenges []CompletedChallenge) (CompletedChallenge, bool) {
	if len(challenges) == 0 {
		return CompletedChallenge{}, false
	}
	return slices.MaxFunc(challenges, func(a, b CompletedChallenge) int {
		return a.CompletionDate.Compare(b.CompletionDate)
	}), true
}
