package plan

import (
	"cmp"
	"math"
	"slices"
	"time"
)

// DayState is the completion state of a single day. Both live plans and archived challenges reduce to a list of
// DayStates so that the statistics are computed identically for both.
type DayState struct {
	DayNumber          int
	Date               time.Time
	TotalExercises     int
	CompletedExercises int
}

// IsCompleted reports whether the day has exercises and all of them are done.
func (s DayState) IsCompleted() bool {
	return s.TotalExercises > 0 && s.CompletedExercises >= s.TotalExercises
}

// IsPartial reports whether some but not all exercises are done.
func (s DayState) IsPartial() bool {
	return s.CompletedExercises > 0 && !s.IsCompleted()
}

// States reduces the plan's days to their completion state.
func (p WorkoutPlan) States() []DayState {
	states := make([]DayState, len(p.Days))
	for i, d := range p.Days {
		states[i] = DayState{
			DayNumber:          d.DayNumber,
			Date:               d.Date,
			TotalExercises:     len(d.Exercises),
			CompletedExercises: d.CompletedExercises(),
		}
	}
	return states
}

func sortedByDayNumber(states []DayState) []DayState {
	sorted := slices.Clone(states)
	slices.SortStableFunc(sorted, func(a, b DayState) int { return cmp.Compare(a.DayNumber, b.DayNumber) })
	return sorted
}

// CountCompleted counts the completed days.
func CountCompleted(states []DayState) int {
	n := 0
	for _, s := range states {
		if s.IsCompleted() {
			n++
		}
	}
	return n
}

// CountPartial counts the days with some but not all exercises done.
func CountPartial(states []DayState) int {
	n := 0
	for _, s := range states {
		if s.IsPartial() {
			n++
		}
	}
	return n
}

// Percentage returns part/total*100 clamped to [0, 100]. A zero total yields 0.
func Percentage(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	p := float64(part) / float64(total) * 100 //nolint:mnd // percent.
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0
	}
	return min(max(p, 0), 100) //nolint:mnd // percent.
}

// LongestStreak is the longest run of consecutive completed days ordered by day number.
func LongestStreak(states []DayState) int {
	longest, current := 0, 0
	for _, s := range sortedByDayNumber(states) {
		if s.IsCompleted() {
			current++
			longest = max(longest, current)
		} else {
			current = 0
		}
	}
	return longest
}

// CurrentStreak counts the completed days leading up to today. Today only breaks the streak once it has passed, so
// an unfinished today continues yesterday's streak.
func CurrentStreak(states []DayState, now time.Time) int {
	today := StartOfDay(now)
	sorted := sortedByDayNumber(states)
	streak := 0
	for i := len(sorted) - 1; i >= 0; i-- {
		s := sorted[i]
		day := StartOfDay(s.Date)
		if day.After(today) {
			continue
		}
		if s.IsCompleted() {
			streak++
			continue
		}
		if day.Equal(today) {
			continue
		}
		break
	}
	return streak
}

// Week identifies one half of the challenge.
type Week int

const (
	WeekOne Week = 1
	WeekTwo Week = 2
)

const daysPerWeek = 7

// MostConsistentWeek compares the completion rate of days 1-7 with days 8-14. Ties favor the first week.
func MostConsistentWeek(states []DayState) Week {
	var total, completed [2]int
	for _, s := range states {
		w := 0
		if s.DayNumber > daysPerWeek {
			w = 1
		}
		total[w]++
		if s.IsCompleted() {
			completed[w]++
		}
	}
	if Percentage(completed[1], total[1]) > Percentage(completed[0], total[0]) {
		return WeekTwo
	}
	return WeekOne
}

// Health classifies how a running challenge is going.
type Health string

const (
	HealthCompleted  Health = "completed"
	HealthOnTrack    Health = "onTrack"
	HealthBehind     Health = "behind"
	HealthStruggling Health = "struggling"
)

// recoverableMissedDays is the number of missed days from which a challenge is still considered recoverable.
const recoverableMissedDays = 2

// ClassifyHealth is the health of a challenge with the given number of missed and remaining days.
func ClassifyHealth(missed, remaining int, completed bool) Health {
	switch {
	case completed:
		return HealthCompleted
	case missed == 0:
		return HealthOnTrack
	case missed <= recoverableMissedDays && remaining > 0:
		return HealthBehind
	default:
		return HealthStruggling
	}
}

// CompletedDays counts the days whose exercises are all done.
func (p WorkoutPlan) CompletedDays() int {
	return CountCompleted(p.States())
}

// TotalDays is the number of days in the plan.
func (p WorkoutPlan) TotalDays() int {
	return len(p.Days)
}

// ProgressPercentage is the share of completed days in [0, 100].
func (p WorkoutPlan) ProgressPercentage() float64 {
	return Percentage(p.CompletedDays(), p.TotalDays())
}

// IsCompleted reports whether every day is completed, which holds trivially for a plan without days. A completed
// plan may still be running.
func (p WorkoutPlan) IsCompleted() bool {
	return p.CompletedDays() >= p.TotalDays()
}

// EndDate is the date of the last day or the zero time for a plan without days.
func (p WorkoutPlan) EndDate() time.Time {
	var end time.Time
	for _, d := range p.Days {
		if d.Date.After(end) {
			end = d.Date
		}
	}
	return end
}

// IsFinished reports whether the calendar day after the last day has begun, regardless of completion.
func (p WorkoutPlan) IsFinished(now time.Time) bool {
	end := p.EndDate()
	if end.IsZero() {
		return false
	}
	return !now.Before(StartOfDay(end).AddDate(0, 0, 1))
}

// LongestStreak is the longest run of consecutive completed days.
func (p WorkoutPlan) LongestStreak() int {
	return LongestStreak(p.States())
}

// MostConsistentWeek is the half of the challenge with the better completion rate.
func (p WorkoutPlan) MostConsistentWeek() Week {
	return MostConsistentWeek(p.States())
}

// MissedDays counts the past days that were not completed.
func (p WorkoutPlan) MissedDays(now time.Time) int {
	n := 0
	for _, d := range p.Days {
		if d.IsMissed(now) {
			n++
		}
	}
	return n
}

// RemainingDays counts today and the days after it.
func (p WorkoutPlan) RemainingDays(now time.Time) int {
	today := StartOfDay(now)
	n := 0
	for _, d := range p.Days {
		if !StartOfDay(d.Date).Before(today) {
			n++
		}
	}
	return n
}

// Health classifies the plan at time now.
func (p WorkoutPlan) Health(now time.Time) Health {
	return ClassifyHealth(p.MissedDays(now), p.RemainingDays(now), p.IsCompleted())
}

// Progress is a snapshot of a plan's statistics.
type Progress struct {
	PlanID             string  `json:"planId"`
	Status             Status  `json:"status"`
	TotalDays          int     `json:"totalDays"`
	CompletedDays      int     `json:"completedDays"`
	PartialDays        int     `json:"partialDays"`
	MissedDays         int     `json:"missedDays"`
	RemainingDays      int     `json:"remainingDays"`
	CurrentDay         int     `json:"currentDay,omitempty"`
	TotalExercises     int     `json:"totalExercises"`
	CompletedExercises int     `json:"completedExercises"`
	ProgressPercentage float64 `json:"progressPercentage"`
	CurrentStreak      int     `json:"currentStreak"`
	LongestStreak      int     `json:"longestStreak"`
	MostConsistentWeek Week    `json:"mostConsistentWeek"`
	IsFinished         bool    `json:"isFinished"`
	IsCompleted        bool    `json:"isCompleted"`
	Health             Health  `json:"health"`
}

// Progress computes all statistics of the plan at time now.
func (p WorkoutPlan) Progress(now time.Time) Progress {
	states := p.States()
	progress := Progress{
		PlanID:             p.ID.String(),
		Status:             p.Status,
		TotalDays:          p.TotalDays(),
		CompletedDays:      CountCompleted(states),
		PartialDays:        CountPartial(states),
		MissedDays:         p.MissedDays(now),
		RemainingDays:      p.RemainingDays(now),
		CurrentDay:         0,
		TotalExercises:     0,
		CompletedExercises: 0,
		ProgressPercentage: p.ProgressPercentage(),
		CurrentStreak:      CurrentStreak(states, now),
		LongestStreak:      LongestStreak(states),
		MostConsistentWeek: MostConsistentWeek(states),
		IsFinished:         p.IsFinished(now),
		IsCompleted:        p.IsCompleted(),
		Health:             p.Health(now),
	}
	for _, d := range p.Days {
		progress.TotalExercises += len(d.Exercises)
		progress.CompletedExercises += d.CompletedExercises()
		if d.IsToday(now) {
			progress.CurrentDay = d.DayNumber
		}
	}
	return progress
}
