package goal

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"
)

// FreeTextKey is the reserved key of the free text in [Data.StructuredSummary].
const FreeTextKey = "userGoals"

const (
	freeTextWeight   = 0.3
	selectionsWeight = 0.7
	// strictMinimumSelections is the number of valid selections the strict sufficiency check requires.
	strictMinimumSelections = 2
)

var ErrUnknownDimension = errors.New("unknown goal dimension")

// Data aggregates the free-form goal text with at most one selection per dimension.
//
// Data is a value type: every update returns a modified copy and leaves the receiver untouched.
type Data struct {
	FreeText       string                  `json:"freeText"`
	Selections     map[Dimension]Selection `json:"selections"`
	CreatedAt      time.Time               `json:"createdAt"`
	LastModifiedAt time.Time               `json:"lastModifiedAt"`
}

// NewData starts an empty goal input flow at time at.
func NewData(at time.Time) Data {
	return Data{
		FreeText:       "",
		Selections:     map[Dimension]Selection{},
		CreatedAt:      at,
		LastModifiedAt: at,
	}
}

func (d Data) clone() Data {
	c := d
	c.Selections = maps.Clone(d.Selections)
	if c.Selections == nil {
		c.Selections = map[Dimension]Selection{}
	}
	return c
}

// UpdateFreeText replaces the free text. Empty text is allowed while the user is typing.
func (d Data) UpdateFreeText(text string, at time.Time) Data {
	c := d.clone()
	c.FreeText = text
	c.LastModifiedAt = at
	return c
}

// SetSelection replaces any existing selection of dimension dim.
func (d Data) SetSelection(dim Dimension, option *Option, customText string, at time.Time) (Data, error) {
	if !dim.Valid() {
		return d, fmt.Errorf("%w: %q", ErrUnknownDimension, dim)
	}
	c := d.clone()
	c.Selections[dim] = NewSelection(dim, option, customText, at)
	c.LastModifiedAt = at
	return c, nil
}

// ClearSelection removes the selection of dimension dim.
func (d Data) ClearSelection(dim Dimension, at time.Time) Data {
	c := d.clone()
	delete(c.Selections, dim)
	c.LastModifiedAt = at
	return c
}

// Selection returns the selection of dimension dim, valid or not.
func (d Data) Selection(dim Dimension) (Selection, bool) {
	s, ok := d.Selections[dim]
	return s, ok
}

// HasFreeText reports whether the free text has non-whitespace content.
func (d Data) HasFreeText() bool {
	return strings.TrimSpace(d.FreeText) != ""
}

// ValidSelections returns the valid selections in the stable dimension order of [Dimensions].
func (d Data) ValidSelections() []Selection {
	var selections []Selection
	for _, dim := range Dimensions() {
		if s, ok := d.Selections[dim]; ok && s.IsValid() {
			selections = append(selections, s)
		}
	}
	return selections
}

// CompletenessScore is 0.3 for non-empty free text plus 0.7 times the fraction of dimensions with a valid selection,
// clamped to [0, 1].
func (d Data) CompletenessScore() float64 {
	score := 0.0
	if d.HasFreeText() {
		score += freeTextWeight
	}
	score += selectionsWeight * float64(len(d.ValidSelections())) / float64(len(declarationOrder))
	return min(max(score, 0), 1)
}

// IsSufficientForGeneration is the minimum bar for plan generation: the user described their goals.
func (d Data) IsSufficientForGeneration() bool {
	return d.HasFreeText()
}

// MeetsStrictThreshold additionally requires at least two valid selections.
func (d Data) MeetsStrictThreshold() bool {
	return d.IsSufficientForGeneration() && len(d.ValidSelections()) >= strictMinimumSelections
}

// StructuredSummary maps each valid selection's dimension name to its effective value. The free text is stored
// under [FreeTextKey].
func (d Data) StructuredSummary() map[string]string {
	summary := make(map[string]string, len(d.Selections)+1)
	for _, s := range d.ValidSelections() {
		value, _ := s.EffectiveValue()
		summary[string(s.Dimension)] = value
	}
	summary[FreeTextKey] = strings.TrimSpace(d.FreeText)
	return summary
}

// Phrases returns the natural-language phrase of every valid selection in stable dimension order.
func (d Data) Phrases() []string {
	var phrases []string
	for _, s := range d.ValidSelections() {
		if phrase, ok := s.NaturalLanguagePhrase(); ok {
			phrases = append(phrases, phrase)
		}
	}
	return phrases
}

// ConsolidatedDescription joins the free text with the selection phrases into one goal description.
func (d Data) ConsolidatedDescription() string {
	var parts []string
	if text := strings.TrimSpace(d.FreeText); text != "" {
		parts = append(parts, strings.TrimRight(text, ". "))
	}
	parts = append(parts, d.Phrases()...)
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, ". ") + "."
}

// ValidationIssues lists guidance for empty free text and for every required dimension without a valid selection.
// The issues inform the user; they don't block generation.
func (d Data) ValidationIssues() []string {
	var issues []string
	if !d.HasFreeText() {
		issues = append(issues, "Describe your fitness goals in a few words.")
	}
	for _, dim := range Dimensions() {
		if !dim.IsRequired() {
			continue
		}
		if s, ok := d.Selections[dim]; !ok || !s.IsValid() {
			issues = append(issues, fmt.Sprintf("Select your %s.", strings.ToLower(dim.Title())))
		}
	}
	return issues
}

// MissingDimensions returns the dimensions without a valid selection in stable order.
func (d Data) MissingDimensions() []Dimension {
	var missing []Dimension
	for _, dim := range Dimensions() {
		if s, ok := d.Selections[dim]; !ok || !s.IsValid() {
			missing = append(missing, dim)
		}
	}
	return missing
}

// UnmarshalJSON rejects unknown dimensions and selections stored under another dimension's key.
func (d *Data) UnmarshalJSON(b []byte) error {
	type plain Data
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return fmt.Errorf("unmarshal goal data: %w", err)
	}
	for dim, s := range p.Selections {
		if !dim.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownDimension, dim)
		}
		if s.Dimension != dim {
			return fmt.Errorf("selection for %s stored under %s", s.Dimension, dim)
		}
	}
	if p.Selections == nil {
		p.Selections = map[Dimension]Selection{}
	}
	*d = Data(p)
	return nil
}
