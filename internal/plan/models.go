// Package plan holds the 14-day workout plan model together with its edit operations and progress statistics.
package plan

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ChallengeLength is the number of days in a valid plan.
const ChallengeLength = 14

// Status is the lifecycle state of a plan.
type Status string

const (
	// StatusSuggested plans were generated but not yet accepted and can still be edited.
	StatusSuggested Status = "suggested"
	// StatusActive plans were accepted. Only exercise completion can change.
	StatusActive Status = "active"
)

var (
	ErrInvalidExercise  = errors.New("invalid exercise")
	ErrDayNotFound      = errors.New("day not found")
	ErrExerciseNotFound = errors.New("exercise not found")
	ErrPlanLocked       = errors.New("plan is active and can no longer be edited")
	ErrPlanNotActive    = errors.New("plan has not been accepted")
	ErrAlreadyAccepted  = errors.New("plan has already been accepted")
	ErrLastExercise     = errors.New("a day must keep at least one exercise")
	ErrInvalidPlan      = errors.New("invalid plan")
)

// Exercise is one prescribed activity of a day.
type Exercise struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Sets         int       `json:"sets"`
	Quantity     int       `json:"quantity"`
	Unit         Unit      `json:"unit"`
	Instructions string    `json:"instructions,omitempty"`
	IsCompleted  bool      `json:"isCompleted"`
}

// NewExercise creates an incomplete exercise with a fresh ID.
func NewExercise(name string, sets, quantity int, unit Unit, instructions string) (Exercise, error) {
	e := Exercise{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(name),
		Sets:         sets,
		Quantity:     quantity,
		Unit:         unit,
		Instructions: strings.TrimSpace(instructions),
		IsCompleted:  false,
	}
	if err := e.Validate(); err != nil {
		return Exercise{}, err
	}
	return e, nil
}

// Validate checks the field constraints of an exercise.
func (e Exercise) Validate() error {
	var errs []error
	if e.Name == "" {
		errs = append(errs, fmt.Errorf("%w: name is empty", ErrInvalidExercise))
	}
	if e.Sets <= 0 {
		errs = append(errs, fmt.Errorf("%w: sets must be positive, got %d", ErrInvalidExercise, e.Sets))
	}
	if e.Quantity <= 0 {
		errs = append(errs, fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidExercise, e.Quantity))
	}
	if !e.Unit.Valid() {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidUnit, string(e.Unit)))
	}
	return errors.Join(errs...)
}

// Edit is a partial update of an exercise. Nil fields are left unchanged.
type Edit struct {
	Name         *string `json:"name,omitempty"`
	Sets         *int    `json:"sets,omitempty"`
	Quantity     *int    `json:"quantity,omitempty"`
	Unit         *Unit   `json:"unit,omitempty"`
	Instructions *string `json:"instructions,omitempty"`
}

// Updated applies the edit and keeps the exercise's identity.
func (e Exercise) Updated(edit Edit) (Exercise, error) {
	u := e
	if edit.Name != nil {
		u.Name = strings.TrimSpace(*edit.Name)
	}
	if edit.Sets != nil {
		u.Sets = *edit.Sets
	}
	if edit.Quantity != nil {
		u.Quantity = *edit.Quantity
	}
	if edit.Unit != nil {
		u.Unit = *edit.Unit
	}
	if edit.Instructions != nil {
		u.Instructions = strings.TrimSpace(*edit.Instructions)
	}
	if err := u.Validate(); err != nil {
		return e, err
	}
	return u, nil
}

// Day is one day of the challenge.
type Day struct {
	ID        uuid.UUID  `json:"id"`
	DayNumber int        `json:"dayNumber"`
	Date      time.Time  `json:"date"`
	Focus     string     `json:"focus,omitempty"`
	Exercises []Exercise `json:"exercises"`
}

// IsCompleted reports whether the day has exercises and all of them are done.
func (d Day) IsCompleted() bool {
	return len(d.Exercises) > 0 && d.CompletedExercises() == len(d.Exercises)
}

// CompletedExercises counts the exercises marked done.
func (d Day) CompletedExercises() int {
	n := 0
	for _, e := range d.Exercises {
		if e.IsCompleted {
			n++
		}
	}
	return n
}

// IsMissed reports whether the day's date lies strictly before the calendar day of now and it was not completed.
func (d Day) IsMissed(now time.Time) bool {
	return StartOfDay(d.Date).Before(StartOfDay(now)) && !d.IsCompleted()
}

// IsToday reports whether the day's date is the calendar day of now.
func (d Day) IsToday(now time.Time) bool {
	return StartOfDay(d.Date).Equal(StartOfDay(now))
}

func (d Day) clone() Day {
	c := d
	c.Exercises = slices.Clone(d.Exercises)
	return c
}

func (d Day) exerciseIndex(id uuid.UUID) int {
	return slices.IndexFunc(d.Exercises, func(e Exercise) bool { return e.ID == id })
}

// WorkoutPlan is a generated 14-day plan. It is a value type: edits return a modified copy.
type WorkoutPlan struct {
	ID            uuid.UUID `json:"id"`
	UserGoalsText string    `json:"userGoalsText"`
	PlanTitle     string    `json:"planTitle,omitempty"`
	Summary       string    `json:"summary,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	Status        Status    `json:"status"`
	Days          []Day     `json:"days"`
}

// Clone returns a deep copy that shares no slices with p.
func (p WorkoutPlan) Clone() WorkoutPlan {
	c := p
	c.Days = make([]Day, len(p.Days))
	for i, d := range p.Days {
		c.Days[i] = d.clone()
	}
	return c
}

// Day returns the day with the given number.
func (p WorkoutPlan) Day(dayNumber int) (Day, bool) {
	i := p.dayIndex(dayNumber)
	if i < 0 {
		return Day{}, false
	}
	return p.Days[i], true
}

func (p WorkoutPlan) dayIndex(dayNumber int) int {
	return slices.IndexFunc(p.Days, func(d Day) bool { return d.DayNumber == dayNumber })
}

// Validate checks the structural constraints of a plan: fourteen days with unique numbers in [1, 14], each with at
// least one valid exercise.
func (p WorkoutPlan) Validate() error {
	var errs []error
	if len(p.Days) != ChallengeLength {
		errs = append(errs, fmt.Errorf("%w: has %d days, want %d", ErrInvalidPlan, len(p.Days), ChallengeLength))
	}
	seen := make(map[int]bool, len(p.Days))
	for _, d := range p.Days {
		if d.DayNumber < 1 || d.DayNumber > ChallengeLength {
			errs = append(errs, fmt.Errorf("%w: day number %d out of range", ErrInvalidPlan, d.DayNumber))
		}
		if seen[d.DayNumber] {
			errs = append(errs, fmt.Errorf("%w: duplicate day number %d", ErrInvalidPlan, d.DayNumber))
		}
		seen[d.DayNumber] = true
		if len(d.Exercises) == 0 {
			errs = append(errs, fmt.Errorf("%w: day %d has no exercises", ErrInvalidPlan, d.DayNumber))
		}
		for _, e := range d.Exercises {
			if err := e.Validate(); err != nil {
				errs = append(errs, fmt.Errorf("day %d: %w", d.DayNumber, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Accept moves a suggested plan to active. The transition happens exactly once.
func (p WorkoutPlan) Accept() (WorkoutPlan, error) {
	if p.Status == StatusActive {
		return p, ErrAlreadyAccepted
	}
	c := p.Clone()
	c.Status = StatusActive
	return c, nil
}

// modifyDay clones the plan and lets fn change the day with the given number.
func (p WorkoutPlan) modifyDay(dayNumber int, fn func(d *Day) error) (WorkoutPlan, error) {
	i := p.dayIndex(dayNumber)
	if i < 0 {
		return p, fmt.Errorf("%w: %d", ErrDayNotFound, dayNumber)
	}
	c := p.Clone()
	if err := fn(&c.Days[i]); err != nil {
		return p, err
	}
	return c, nil
}

func (p WorkoutPlan) requireEditable() error {
	if p.Status != StatusSuggested {
		return ErrPlanLocked
	}
	return nil
}

// SetFocus changes the focus label of a day.
func (p WorkoutPlan) SetFocus(dayNumber int, focus string) (WorkoutPlan, error) {
	if err := p.requireEditable(); err != nil {
		return p, err
	}
	return p.modifyDay(dayNumber, func(d *Day) error {
		d.Focus = strings.TrimSpace(focus)
		return nil
	})
}

// UpdateExercise applies edit to an exercise of a day.
func (p WorkoutPlan) UpdateExercise(dayNumber int, exerciseID uuid.UUID, edit Edit) (WorkoutPlan, error) {
	if err := p.requireEditable(); err != nil {
		return p, err
	}
	return p.modifyDay(dayNumber, func(d *Day) error {
		i := d.exerciseIndex(exerciseID)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrExerciseNotFound, exerciseID)
		}
		updated, err := d.Exercises[i].Updated(edit)
		if err != nil {
			return err
		}
		d.Exercises[i] = updated
		return nil
	})
}

// AddExercise appends e to a day.
func (p WorkoutPlan) AddExercise(dayNumber int, e Exercise) (WorkoutPlan, error) {
	if err := p.requireEditable(); err != nil {
		return p, err
	}
	if err := e.Validate(); err != nil {
		return p, err
	}
	return p.modifyDay(dayNumber, func(d *Day) error {
		d.Exercises = append(d.Exercises, e)
		return nil
	})
}

// RemoveExercise deletes an exercise from a day. The last exercise of a day can't be removed.
func (p WorkoutPlan) RemoveExercise(dayNumber int, exerciseID uuid.UUID) (WorkoutPlan, error) {
	if err := p.requireEditable(); err != nil {
		return p, err
	}
	return p.modifyDay(dayNumber, func(d *Day) error {
		i := d.exerciseIndex(exerciseID)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrExerciseNotFound, exerciseID)
		}
		if len(d.Exercises) == 1 {
			return ErrLastExercise
		}
		d.Exercises = slices.Delete(d.Exercises, i, i+1)
		return nil
	})
}

// ToggleExercise flips the completion of an exercise on an active plan.
func (p WorkoutPlan) ToggleExercise(dayNumber int, exerciseID uuid.UUID) (WorkoutPlan, error) {
	if p.Status != StatusActive {
		return p, ErrPlanNotActive
	}
	return p.modifyDay(dayNumber, func(d *Day) error {
		i := d.exerciseIndex(exerciseID)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrExerciseNotFound, exerciseID)
		}
		d.Exercises[i].IsCompleted = !d.Exercises[i].IsCompleted
		return nil
	})
}

// StartOfDay truncates t to midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
