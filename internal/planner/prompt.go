// Package planner turns goal data into a prompt for the plan generator and the generator's reply into a 14-day
// workout plan.
package planner

import (
	"fmt"
	"strings"

	"github.com/jersjar7/Fit14-sub001/internal/goal"
	"github.com/jersjar7/Fit14-sub001/internal/plan"
)

// SystemPrompt frames the generator's role. Transports that support a separate system message send it alongside
// the prompt from [BuildPrompt].
const SystemPrompt = "You are a certified personal trainer who designs safe, progressive 14-day workout challenges. " +
	"You always answer with a single JSON object and nothing else."

const promptTemplate = `Create a personalized 14-day workout challenge.

USER PROFILE:
%s

USER GOALS:
%s

REQUIREMENTS:
- The plan has exactly %d days. "dayNumber" runs from 1 to %d, sequential and unique.
- Include 1-2 rest or recovery days with 1-3 light activities of 15-30 minutes each (for example walking or stretching).
- Every other day has 4-6 exercises.
- "sets" and "quantity" are positive whole numbers only. Never use text, ranges or decimals.
- "unit" is exactly one of: %s.
- Never use weight units such as lbs or kg. Describe the effort with reps or time instead.
- Every exercise matches the user's fitness level, available time and workout location.
- Keep "instructions" to one or two short sentences.

RESPONSE FORMAT:
Respond with pure JSON only. No prose, no explanations and no markdown code fences.
Use exactly this structure:
{
  "title": "short catchy challenge name",
  "summary": "one or two sentences describing the challenge",
  "totalDays": %d,
  "days": [
    {
      "dayNumber": 1,
      "focus": "Upper body strength",
      "exercises": [
        {"name": "Push-ups", "sets": 3, "quantity": 10, "unit": "reps", "instructions": "Keep your core tight."}
      ]
    }
  ]
}`

const noProfile = "- No profile details provided."

// BuildPrompt renders the generator prompt for d. The output is deterministic: the profile lists every valid
// selection in the stable dimension order and the goals block is the free text, or the selection phrases when the
// free text is empty.
func BuildPrompt(d goal.Data) string {
	return fmt.Sprintf(promptTemplate,
		profileBlock(d),
		goalsBlock(d),
		plan.ChallengeLength, plan.ChallengeLength,
		unitList(),
		plan.ChallengeLength,
	)
}

func profileBlock(d goal.Data) string {
	selections := d.ValidSelections()
	if len(selections) == 0 {
		return noProfile
	}
	lines := make([]string, 0, len(selections))
	for _, s := range selections {
		value, _ := s.EffectiveValue()
		lines = append(lines, fmt.Sprintf("- %s: %s", s.Dimension.Title(), value))
	}
	return strings.Join(lines, "\n")
}

func goalsBlock(d goal.Data) string {
	if text := strings.TrimSpace(d.FreeText); text != "" {
		return text
	}
	phrases := d.Phrases()
	if len(phrases) == 0 {
		return "General fitness improvement."
	}
	return strings.Join(phrases, ". ") + "."
}

func unitList() string {
	units := plan.Units()
	names := make([]string, len(units))
	for i, u := range units {
		names[i] = string(u)
	}
	return strings.Join(names, ", ")
}
