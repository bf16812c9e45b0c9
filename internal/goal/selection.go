package goal

import (
	"fmt"
	"strings"
	"time"
)

// Selection is the user's answer for one dimension: a predefined option, a free-text override, or both.
// Selections are replaced on re-selection, never mutated.
type Selection struct {
	Dimension    Dimension `json:"dimension"`
	ChosenOption *Option   `json:"chosenOption,omitempty"`
	CustomText   string    `json:"customText,omitempty"`
	SelectedAt   time.Time `json:"selectedAt"`
}

// NewSelection creates a selection for dimension d made at time at. option may be nil when only custom text is given.
func NewSelection(d Dimension, option *Option, customText string, at time.Time) Selection {
	var chosen *Option
	if option != nil {
		o := *option
		chosen = &o
	}
	return Selection{
		Dimension:    d,
		ChosenOption: chosen,
		CustomText:   customText,
		SelectedAt:   at,
	}
}

// EffectiveValue is the trimmed custom text when present, otherwise the chosen option's value. An option that asks
// for custom input has no effective value until the text is given.
func (s Selection) EffectiveValue() (string, bool) {
	if text := strings.TrimSpace(s.CustomText); text != "" {
		return text, true
	}
	if s.ChosenOption == nil || s.ChosenOption.AllowsCustomInput {
		return "", false
	}
	if value := strings.TrimSpace(s.ChosenOption.Value); value != "" {
		return value, true
	}
	return "", false
}

// DisplayText is what the chip shows: the custom text or the option's display text.
func (s Selection) DisplayText() (string, bool) {
	if text := strings.TrimSpace(s.CustomText); text != "" {
		return text, true
	}
	if s.ChosenOption == nil || s.ChosenOption.AllowsCustomInput {
		return "", false
	}
	return s.ChosenOption.DisplayText, s.ChosenOption.DisplayText != ""
}

// IsValid reports whether the selection carries a value. Invalid selections are ignored for completeness and prompts.
func (s Selection) IsValid() bool {
	_, ok := s.EffectiveValue()
	return ok && s.Dimension.Valid()
}

// NaturalLanguagePhrase renders the selection as a first-person sentence such as
// "I can work out for 30-45 minutes per session".
func (s Selection) NaturalLanguagePhrase() (string, bool) {
	value, ok := s.EffectiveValue()
	if !ok {
		return "", false
	}
	template, ok := s.Dimension.phraseTemplate()
	if !ok {
		return "", false
	}
	return fmt.Sprintf(template, value), true
}
