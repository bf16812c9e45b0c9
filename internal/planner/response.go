package planner

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jersjar7/Fit14-sub001/internal/plan"
)

// envelope is the reply of the generation endpoint.
type envelope struct {
	Success     *bool    `json:"success"`
	Message     string   `json:"message"`
	WorkoutPlan *rawPlan `json:"workoutPlan"`
	Error       string   `json:"error"`
}

type rawPlan struct {
	Title     json.RawMessage   `json:"title"`
	Summary   json.RawMessage   `json:"summary"`
	TotalDays json.RawMessage   `json:"totalDays"`
	Days      []json.RawMessage `json:"days"`
}

type rawDay struct {
	DayNumber json.RawMessage `json:"dayNumber"`
	Focus     json.RawMessage `json:"focus"`
	Exercises json.RawMessage `json:"exercises"`
}

type rawExercise struct {
	Name         json.RawMessage `json:"name"`
	Sets         json.RawMessage `json:"sets"`
	Quantity     json.RawMessage `json:"quantity"`
	Unit         json.RawMessage `json:"unit"`
	Instructions json.RawMessage `json:"instructions"`
}

var (
	errNotPositiveInteger = errors.New("must be a positive whole number")
	errNotString          = errors.New("must be a string")
	errNotObject          = errors.New("must be an object")
)

// ExerciseValidationError describes an exercise of the reply that violated the inbound contract. Only the exercise
// is dropped; the rest of the plan is kept.
type ExerciseValidationError struct {
	DayNumber int
	Index     int
	Name      string
	Field     string
	Err       error
}

func (e *ExerciseValidationError) Error() string {
	return fmt.Sprintf("day %d exercise %d (%q): %s: %v", e.DayNumber, e.Index+1, e.Name, e.Field, e.Err)
}

func (e *ExerciseValidationError) Unwrap() error { return e.Err }

// DecodedDay is a day of the reply after strict validation but before normalization. DayNumber is zero when the
// reply carried no usable number.
type DecodedDay struct {
	DayNumber int
	Focus     string
	Exercises []plan.Exercise
}

// Decoded is the strictly validated content of a generator reply.
type Decoded struct {
	Title    string
	Summary  string
	Days     []DecodedDay
	Rejected []*ExerciseValidationError
}

// DecodeResponse validates the generator reply. Malformed JSON and a missing plan are [ErrInvalidResponse]
// failures, an explicit failure flag becomes a [*ServiceError], and exercises with an invalid name, unit, sets or
// quantity are dropped and reported in [Decoded.Rejected]. Other fields of the wrong type fall back to defaults.
func DecodeResponse(raw []byte) (Decoded, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Decoded{}, &ResponseError{Reason: "malformed JSON", Err: err}
	}
	if env.Success != nil && !*env.Success {
		msg := strings.TrimSpace(env.Error)
		if msg == "" {
			msg = strings.TrimSpace(env.Message)
		}
		return Decoded{}, &ServiceError{StatusCode: 0, Message: msg}
	}
	if env.WorkoutPlan == nil {
		return Decoded{}, &ResponseError{Reason: "missing workoutPlan", Err: nil}
	}

	decoded := Decoded{
		Title:    optionalString(env.WorkoutPlan.Title),
		Summary:  optionalString(env.WorkoutPlan.Summary),
		Days:     make([]DecodedDay, 0, len(env.WorkoutPlan.Days)),
		Rejected: nil,
	}
	for _, rawDayJSON := range env.WorkoutPlan.Days {
		var rd rawDay
		if err := json.Unmarshal(rawDayJSON, &rd); err != nil {
			// Not an object, so there is nothing to keep. Padding fills the gap.
			continue
		}
		dayNumber, err := positiveInt(rd.DayNumber)
		if err != nil {
			dayNumber = 0
		}
		var exercises []json.RawMessage
		if err = json.Unmarshal(rd.Exercises, &exercises); err != nil {
			exercises = nil
		}
		day := DecodedDay{
			DayNumber: dayNumber,
			Focus:     optionalString(rd.Focus),
			Exercises: make([]plan.Exercise, 0, len(exercises)),
		}
		for i, rawExerciseJSON := range exercises {
			e, verr := decodeExercise(rawExerciseJSON)
			if verr != nil {
				verr.DayNumber = dayNumber
				verr.Index = i
				decoded.Rejected = append(decoded.Rejected, verr)
				continue
			}
			day.Exercises = append(day.Exercises, e)
		}
		decoded.Days = append(decoded.Days, day)
	}
	return decoded, nil
}

func decodeExercise(raw json.RawMessage) (plan.Exercise, *ExerciseValidationError) {
	var re rawExercise
	if err := json.Unmarshal(raw, &re); err != nil {
		return plan.Exercise{}, &ExerciseValidationError{DayNumber: 0, Index: 0, Name: "", Field: "exercise",
			Err: errNotObject}
	}
	name, nameErr := stringValue(re.Name)
	name = strings.TrimSpace(name)
	reject := func(field string, err error) (plan.Exercise, *ExerciseValidationError) {
		return plan.Exercise{}, &ExerciseValidationError{DayNumber: 0, Index: 0, Name: name, Field: field, Err: err}
	}
	if nameErr != nil {
		return reject("name", fmt.Errorf("%w: %w", plan.ErrInvalidExercise, nameErr))
	}
	if name == "" {
		return reject("name", plan.ErrInvalidExercise)
	}
	sets, err := positiveInt(re.Sets)
	if err != nil {
		return reject("sets", err)
	}
	quantity, err := positiveInt(re.Quantity)
	if err != nil {
		return reject("quantity", err)
	}
	unitText, err := stringValue(re.Unit)
	if err != nil {
		return reject("unit", fmt.Errorf("%w: %w", plan.ErrInvalidUnit, err))
	}
	unit, err := plan.ParseUnit(unitText)
	if err != nil {
		return reject("unit", err)
	}
	return plan.Exercise{
		ID:           uuid.New(),
		Name:         name,
		Sets:         sets,
		Quantity:     quantity,
		Unit:         unit,
		Instructions: optionalString(re.Instructions),
		IsCompleted:  false,
	}, nil
}

// stringValue decodes a JSON string. A missing value or null is the empty string.
func stringValue(raw json.RawMessage) (string, error) {
	text := bytes.TrimSpace(raw)
	if len(text) == 0 || string(text) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(text, &s); err != nil {
		return "", fmt.Errorf("%w: got %s", errNotString, text)
	}
	return s, nil
}

// optionalString decodes a trimmed JSON string, defaulting to empty when the value is not a string.
func optionalString(raw json.RawMessage) string {
	s, err := stringValue(raw)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// positiveInt accepts only a JSON integer literal greater than zero. Strings, decimals and exponents are rejected.
func positiveInt(raw json.RawMessage) (int, error) {
	text := string(bytes.TrimSpace(raw))
	if text == "" || text == "null" {
		return 0, fmt.Errorf("%w: missing", errNotPositiveInteger)
	}
	n, err := strconv.Atoi(text)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: got %s", errNotPositiveInteger, text)
	}
	return n, nil
}

// Result is a generated plan together with the repairs that were applied to it.
type Result struct {
	Plan     plan.WorkoutPlan
	Rejected []*ExerciseValidationError
	Report   NormalizeReport
}

// ParseResponse decodes raw and normalizes it into a suggested 14-day plan whose day 1 falls on start.
func ParseResponse(raw []byte, userGoalsText string, start, now time.Time) (Result, error) {
	decoded, err := DecodeResponse(raw)
	if err != nil {
		return Result{}, err
	}
	p, report := Normalize(decoded, userGoalsText, start, now)
	return Result{
		Plan:     p,
		Rejected: decoded.Rejected,
		Report:   report,
	}, nil
}
