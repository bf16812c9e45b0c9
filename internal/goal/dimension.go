// Package goal models the fitness goals a user enters before a plan is generated: a free-form description
// plus one chip selection per goal dimension.
package goal

import (
	"cmp"
	"fmt"
	"slices"
)

// Dimension is one aspect of the user's profile that can be answered with a chip selection.
type Dimension string

const (
	DimensionFitnessLevel    Dimension = "fitnessLevel"
	DimensionSex             Dimension = "sex"
	DimensionPhysicalStats   Dimension = "physicalStats"
	DimensionTimeAvailable   Dimension = "timeAvailable"
	DimensionWorkoutLocation Dimension = "workoutLocation"
	DimensionWeeklyFrequency Dimension = "weeklyFrequency"
)

// Importance ranks dimensions for sorting and guidance. Lower values are more important.
type Importance int

const (
	ImportanceCritical Importance = iota
	ImportanceImportant
	ImportanceOptional
)

func (i Importance) String() string {
	switch i {
	case ImportanceCritical:
		return "critical"
	case ImportanceImportant:
		return "important"
	case ImportanceOptional:
		return "optional"
	default:
		return fmt.Sprintf("Importance(%d)", int(i))
	}
}

// MarshalText renders the importance tier by name.
func (i Importance) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// declarationOrder is the order dimensions are presented in the goal input flow.
//
//nolint:gochecknoglobals // closed enumeration.
var declarationOrder = []Dimension{
	DimensionFitnessLevel,
	DimensionSex,
	DimensionPhysicalStats,
	DimensionTimeAvailable,
	DimensionWorkoutLocation,
	DimensionWeeklyFrequency,
}

// Dimensions returns every dimension sorted by importance. Dimensions sharing a tier keep their declaration order,
// which makes this the stable order used for prompts and summaries.
func Dimensions() []Dimension {
	dims := slices.Clone(declarationOrder)
	slices.SortStableFunc(dims, func(a, b Dimension) int {
		return cmp.Compare(a.Importance(), b.Importance())
	})
	return dims
}

// Valid reports whether d is one of the known dimensions.
func (d Dimension) Valid() bool {
	return slices.Contains(declarationOrder, d)
}

// Importance returns the tier used for sorting and completeness guidance.
func (d Dimension) Importance() Importance {
	switch d {
	case DimensionFitnessLevel, DimensionTimeAvailable:
		return ImportanceCritical
	case DimensionWorkoutLocation, DimensionWeeklyFrequency:
		return ImportanceImportant
	case DimensionSex, DimensionPhysicalStats:
		return ImportanceOptional
	default:
		return ImportanceOptional
	}
}

// IsRequired reports whether a missing selection for d produces a validation issue.
func (d Dimension) IsRequired() bool {
	return d.Importance() == ImportanceCritical
}

// Title is the human readable label of the dimension.
func (d Dimension) Title() string {
	switch d {
	case DimensionFitnessLevel:
		return "Fitness level"
	case DimensionSex:
		return "Sex"
	case DimensionPhysicalStats:
		return "Physical stats"
	case DimensionTimeAvailable:
		return "Time available"
	case DimensionWorkoutLocation:
		return "Workout location"
	case DimensionWeeklyFrequency:
		return "Weekly frequency"
	default:
		return string(d)
	}
}

// phraseTemplate is the natural-language sentence for a selection's effective value. Every dimension must have
// exactly one template so that prompts never fall back to an ambiguous phrasing.
func (d Dimension) phraseTemplate() (string, bool) {
	switch d {
	case DimensionFitnessLevel:
		return "I'm a %s", true
	case DimensionSex:
		return "My sex is %s", true
	case DimensionPhysicalStats:
		return "My physical stats are %s", true
	case DimensionTimeAvailable:
		return "I can work out for %s per session", true
	case DimensionWorkoutLocation:
		return "My workout location is %s", true
	case DimensionWeeklyFrequency:
		return "I want to train %s", true
	default:
		return "", false
	}
}
