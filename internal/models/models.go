// Package models defines the core data types for the diet log.
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DayLayout and ClockLayout are the persisted formats of a log entry's
// calendar day and time of day.
const (
	DayLayout   = "2006-01-02"
	ClockLayout = "15:04"
)

var (
	// ErrInvalidGender is returned when a gender string is not recognised.
	ErrInvalidGender = errors.New("gender must be male or female")
	// ErrInvalidMode is returned when a carb-mode string is not recognised.
	ErrInvalidMode = errors.New("mode must be high-carb or low-carb")
)

// ---------------------------------------------------------------------------
// Enums
// ---------------------------------------------------------------------------

// Gender selects the BMR sex offset.
type Gender string

const (
	Female Gender = "female"
	Male   Gender = "male"
)

// ParseGender accepts "male"/"female" and their one-letter forms.
func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "female", "f":
		return Female, nil
	case "male", "m":
		return Male, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidGender, s)
}

// CarbMode is the macro-split policy for non-protein calories.
type CarbMode string

const (
	HighCarb CarbMode = "high-carb"
	LowCarb  CarbMode = "low-carb"
)

// ParseCarbMode accepts "high-carb"/"low-carb" and the short forms "high"/"low".
func ParseCarbMode(s string) (CarbMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high-carb", "high", "highcarb":
		return HighCarb, nil
	case "low-carb", "low", "lowcarb":
		return LowCarb, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// LogKind separates a day's calibration row from its intake-commit rows.
type LogKind string

const (
	KindCalibration LogKind = "calibration"
	KindIntake      LogKind = "intake"
)

// ---------------------------------------------------------------------------
// Records
// ---------------------------------------------------------------------------

// UserProfile holds the body metrics a target is computed from.
type UserProfile struct {
	Username string
	Password string // opaque credential (stored hashed)
	Height   float64
	Weight   float64
	Age      int
	Gender   Gender
	Activity float64
	Deficit  int
}

// NeedsOnboarding reports whether the profile has not been filled in yet.
// A zero height is the sentinel for "onboarding not completed".
func (u *UserProfile) NeedsOnboarding() bool {
	return u.Height == 0
}

// Macros is a calorie/macronutrient tuple.
type Macros struct {
	Calories int
	Protein  float64
	Carbs    float64
	Fat      float64
}

// Add returns the element-wise sum of m and o.
func (m Macros) Add(o Macros) Macros {
	return Macros{
		Calories: m.Calories + o.Calories,
		Protein:  m.Protein + o.Protein,
		Carbs:    m.Carbs + o.Carbs,
		Fat:      m.Fat + o.Fat,
	}
}

// FoodItem is a single tray entry.
type FoodItem struct {
	Name     string  `yaml:"name" json:"name"`
	Calories int     `yaml:"calories" json:"calories"`
	Protein  float64 `yaml:"protein" json:"protein"`
	Carbs    float64 `yaml:"carbs" json:"carbs"`
	Fat      float64 `yaml:"fat" json:"fat"`
}

// Macros returns the item's nutrition as a Macros tuple.
func (f FoodItem) Macros() Macros {
	return Macros{Calories: f.Calories, Protein: f.Protein, Carbs: f.Carbs, Fat: f.Fat}
}

// DietLogEntry is a persisted diet_logs row.
type DietLogEntry struct {
	ID       int64
	Username string
	Day      string // YYYY-MM-DD
	Clock    string // HH:MM
	Kind     LogKind
	Target   int
	Intake   int
	Weight   float64
	Deficit  int
	Protein  float64
	Carbs    float64
	Fat      float64
	Mode     CarbMode
}

// Date parses the entry's Day in loc.
func (e *DietLogEntry) Date(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DayLayout, e.Day, loc)
}

// DailySummary is one aggregated trend row.
type DailySummary struct {
	Day     string
	Intake  int
	Weight  float64
	Deficit int
	Mode    CarbMode
}

// DayString formats t as a persisted day string.
func DayString(t time.Time) string { return t.Format(DayLayout) }

// ClockString formats t as a persisted time-of-day string.
func ClockString(t time.Time) string { return t.Format(ClockLayout) }

// Dashboard is the viewed day's target versus what has been eaten, with the
// tray merged in as a preview.
type Dashboard struct {
	Username  string
	Day       string
	IsToday   bool
	Mode      CarbMode
	Exercise  int
	Weight    float64
	BMR       float64
	TDEE      float64
	Target    Macros // calorie target and macro gram targets
	Persisted Macros
	Tray      []FoodItem
	Merged    Macros
	Remaining int
}

// TrayPending reports whether the merged figures include staged items.
func (d *Dashboard) TrayPending() bool { return len(d.Tray) > 0 }

// Progress returns current as a percentage of target, capped at 100.
// A non-positive target yields 0.
func Progress(current, target float64) float64 {
	if target <= 0 {
		return 0
	}
	return min(100, max(0, current/target*100))
}
