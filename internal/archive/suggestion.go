package archive

import (
	"maps"

	"github.com/jersjar7/Fit14-sub001/internal/goal"
)

const (
	levelUpSuccessRate = 70
	easierSuccessRate  = 50
)

// Suggestion proposes the next challenge. Selections prefill the goal input flow, keyed by dimension name.
type Suggestion struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Selections  map[string]string `json:"selections,omitempty"`
}

//nolint:gochecknoglobals // progression of the fitness level options.
var nextLevel = map[string]string{
	"beginner":     "intermediate",
	"intermediate": "advanced",
}

// Suggest derives next-challenge suggestions from the most recent challenge. A strong result suggests the next
// fitness level, a weak one the same goals with a lighter schedule.
func Suggest(challenges []CompletedChallenge) []Suggestion {
	latest, ok := Latest(challenges)
	if !ok {
		return []Suggestion{{
			Title:       "Start your first challenge",
			Description: "Describe your goals and get a personalized 14-day plan.",
			Selections:  nil,
		}}
	}

	profile := latest.GoalProfile
	level := profile[string(goal.DimensionFitnessLevel)]
	rate := latest.SuccessRate()
	var suggestions []Suggestion

	switch {
	case rate >= levelUpSuccessRate:
		if next, ok := nextLevel[level]; ok {
			suggestions = append(suggestions, Suggestion{
				Title:       "Level up to " + next,
				Description: "You crushed your last challenge. Try the same goals at the " + next + " level.",
				Selections:  withSelection(profile, goal.DimensionFitnessLevel, next),
			})
		} else {
			suggestions = append(suggestions, Suggestion{
				Title:       "Train more often",
				Description: "You're already at the top level. Add training days to keep progressing.",
				Selections:  withSelection(profile, goal.DimensionWeeklyFrequency, "6-7 days per week"),
			})
		}
	case rate < easierSuccessRate:
		easier := withSelection(profile, goal.DimensionTimeAvailable, "15-20 minutes")
		easier[string(goal.DimensionWeeklyFrequency)] = "3 days per week"
		suggestions = append(suggestions, Suggestion{
			Title:       "Try a lighter schedule",
			Description: "Shorter sessions on fewer days make it easier to build the habit.",
			Selections:  easier,
		})
	default:
		suggestions = append(suggestions, Suggestion{
			Title:       "Repeat and consolidate",
			Description: "Run the same challenge again and aim for more perfect days.",
			Selections:  withSelection(profile, "", ""),
		})
	}

	if location := profile[string(goal.DimensionWorkoutLocation)]; location != "" && location != "outdoors" {
		suggestions = append(suggestions, Suggestion{
			Title:       "Take it outside",
			Description: "Switch up your routine with an outdoor challenge.",
			Selections:  withSelection(profile, goal.DimensionWorkoutLocation, "outdoors"),
		})
	}
	return suggestions
}

// withSelection copies the profile without the free text and overrides dim with value.
func withSelection(profile map[string]string, dim goal.Dimension, value string) map[string]string {
	selections := maps.Clone(profile)
	if selections == nil {
		selections = map[string]string{}
	}
	delete(selections, goal.FreeTextKey)
	if dim != "" {
		selections[string(dim)] = value
	}
	return selections
}
