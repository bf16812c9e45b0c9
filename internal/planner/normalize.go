package planner

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jersjar7/Fit14-sub001/internal/plan"
)

// NormalizeReport records what [Normalize] changed.
type NormalizeReport struct {
	DecodedDays    int `json:"decodedDays"`
	DuplicateDays  int `json:"duplicateDays"`
	TruncatedDays  int `json:"truncatedDays"`
	PaddedDays     int `json:"paddedDays"`
	EmptyDays      int `json:"emptyDays"`
	RenumberedDays int `json:"renumberedDays"`
}

// Repaired reports whether the decoded days were changed in any way.
func (r NormalizeReport) Repaired() bool {
	return r.DuplicateDays+r.TruncatedDays+r.PaddedDays+r.RenumberedDays > 0
}

// Normalize turns strictly decoded days into a plan of exactly [plan.ChallengeLength] days.
//
// Days are ordered by their number (days without a number keep their position), duplicates keep the first
// occurrence, extra days are cut and the remaining days are renumbered from 1. Missing days are padded with copies
// of the last day that still has exercises, or left empty when no day has any. Day n is dated start + n-1 days.
func Normalize(d Decoded, userGoalsText string, start, now time.Time) (plan.WorkoutPlan, NormalizeReport) {
	report := NormalizeReport{DecodedDays: len(d.Days)}

	days := orderDays(d.Days)
	deduped := make([]DecodedDay, 0, len(days))
	seen := make(map[int]bool, len(days))
	for _, day := range days {
		if day.DayNumber > 0 && seen[day.DayNumber] {
			report.DuplicateDays++
			continue
		}
		seen[day.DayNumber] = true
		deduped = append(deduped, day)
	}

	if len(deduped) > plan.ChallengeLength {
		report.TruncatedDays = len(deduped) - plan.ChallengeLength
		deduped = deduped[:plan.ChallengeLength]
	}

	first := plan.StartOfDay(start)
	result := make([]plan.Day, 0, plan.ChallengeLength)
	for i, day := range deduped {
		number := i + 1
		if day.DayNumber != number {
			report.RenumberedDays++
		}
		if len(day.Exercises) == 0 {
			report.EmptyDays++
		}
		result = append(result, plan.Day{
			ID:        uuid.New(),
			DayNumber: number,
			Date:      first.AddDate(0, 0, number-1),
			Focus:     day.Focus,
			Exercises: slices.Clone(day.Exercises),
		})
	}

	template, hasTemplate := lastDayWithExercises(result)
	for len(result) < plan.ChallengeLength {
		number := len(result) + 1
		padded := plan.Day{
			ID:        uuid.New(),
			DayNumber: number,
			Date:      first.AddDate(0, 0, number-1),
			Focus:     "",
			Exercises: []plan.Exercise{},
		}
		if hasTemplate {
			padded.Focus = template.Focus
			padded.Exercises = freshCopies(template.Exercises)
		} else {
			report.EmptyDays++
		}
		result = append(result, padded)
		report.PaddedDays++
	}

	return plan.WorkoutPlan{
		ID:            uuid.New(),
		UserGoalsText: strings.TrimSpace(userGoalsText),
		PlanTitle:     d.Title,
		Summary:       d.Summary,
		CreatedAt:     now,
		Status:        plan.StatusSuggested,
		Days:          result,
	}, report
}

// orderDays sorts by day number. Days without a number take their position in the reply as number.
// lastDayWithExercises returns the latest day whose exercises survived validation.
func lastDayWithExercises(days []plan.Day) (plan.Day, bool) {
	for i := len(days) - 1; i >= 0; i-- {
		if len(days[i].Exercises) > 0 {
			return days[i], true
		}
	}
	return plan.Day{}, false
}

func orderDays(days []DecodedDay) []DecodedDay {
	type positioned struct {
		day DecodedDay
		key int
	}
	ps := make([]positioned, len(days))
	for i, day := range days {
		key := day.DayNumber
		if key == 0 {
			key = i + 1
		}
		ps[i] = positioned{day: day, key: key}
	}
	slices.SortStableFunc(ps, func(a, b positioned) int { return cmp.Compare(a.key, b.key) })
	ordered := make([]DecodedDay, len(ps))
	for i, p := range ps {
		ordered[i] = p.day
	}
	return ordered
}

// freshCopies clones exercises with new identities and no completion.
func freshCopies(exercises []plan.Exercise) []plan.Exercise {
	copies := make([]plan.Exercise, len(exercises))
	for i, e := range exercises {
		e.ID = uuid.New()
		e.IsCompleted = false
		copies[i] = e
	}
	return copies
}
