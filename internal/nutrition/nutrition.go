// Package nutrition computes daily calorie targets and macro allocations.
package nutrition

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-ports/dietvault/internal/models"
)

// ErrInvalidActivity is returned when an activity factor is not one of ActivityFactors.
var ErrInvalidActivity = errors.New("unknown activity factor")

const (
	proteinPerKg  = 1.8
	kcalPerGramPC = 4.0 // protein and carbohydrate
	kcalPerGramF  = 9.0 // fat
	maleOffset    = 166.0
)

// ActivityLevel is one of the fixed TDEE multipliers.
type ActivityLevel struct {
	Label  string
	Factor float64
}

// ActivityFactors lists the accepted activity multipliers, least active first.
var ActivityFactors = []ActivityLevel{
	{"sedentary", 1.2},
	{"light", 1.375},
	{"moderate", 1.55},
	{"heavy", 1.725},
	{"athlete", 1.9},
}

// ParseActivity accepts either a label ("light") or a numeric factor ("1.375").
func ParseActivity(s string) (float64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, a := range ActivityFactors {
		if a.Label == s {
			return a.Factor, nil
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && IsActivityFactor(f) {
		return f, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidActivity, s)
}

// IsActivityFactor reports whether f is one of ActivityFactors.
func IsActivityFactor(f float64) bool {
	for _, a := range ActivityFactors {
		if a.Factor == f {
			return true
		}
	}
	return false
}

// ActivityLabel returns the label for factor f, or its decimal form.
func ActivityLabel(f float64) string {
	for _, a := range ActivityFactors {
		if a.Factor == f {
			return a.Label
		}
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ---------------------------------------------------------------------------
// Energy
// ---------------------------------------------------------------------------

// BMR is the Mifflin-St Jeor basal rate using the female constant as baseline
// plus a flat offset for men.
func BMR(weight, height float64, age int, gender models.Gender) float64 {
	bmr := 10*weight + 6.25*height - 5*float64(age) - 161
	if gender == models.Male {
		bmr += maleOffset
	}
	return bmr
}

// TDEE scales bmr by the activity factor.
func TDEE(bmr, activity float64) float64 {
	return bmr * activity
}

// TargetCalories applies the deficit to tdee and then adds exercise calories
// on top of the reduced figure.
func TargetCalories(tdee float64, deficitPercent, exercise int) int {
	return int(math.Round(tdee*(1-float64(deficitPercent)/100))) + exercise
}

// Input bundles everything a daily target depends on.
type Input struct {
	Weight   float64
	Height   float64
	Age      int
	Gender   models.Gender
	Activity float64
	Deficit  int
	Exercise int
	Mode     models.CarbMode
}

// InputFor builds an Input from a profile and the day's exercise and mode.
func InputFor(u *models.UserProfile, exercise int, mode models.CarbMode) Input {
	return Input{
		Weight:   u.Weight,
		Height:   u.Height,
		Age:      u.Age,
		Gender:   u.Gender,
		Activity: u.Activity,
		Deficit:  u.Deficit,
		Exercise: exercise,
		Mode:     mode,
	}
}

// Targets is the full daily plan.
type Targets struct {
	BMR      float64
	TDEE     float64
	Calories int
	Protein  int
	Carbs    int
	Fat      int
}

// Compute runs BMR → TDEE → target → macro allocation.
// Degenerate inputs produce degenerate numbers; nothing is rejected.
func Compute(in Input) Targets {
	bmr := BMR(in.Weight, in.Height, in.Age, in.Gender)
	tdee := TDEE(bmr, in.Activity)
	cal := TargetCalories(tdee, in.Deficit, in.Exercise)
	p, cb, f := CalculateTargets(cal, in.Weight, in.Mode)
	return Targets{BMR: bmr, TDEE: tdee, Calories: cal, Protein: p, Carbs: cb, Fat: f}
}

// ---------------------------------------------------------------------------
// Macros
// ---------------------------------------------------------------------------

// CalculateTargets splits targetCal into protein, carb and fat grams.
// Protein is fixed at 1.8 g/kg regardless of the calorie budget; whatever is
// left (floored at zero) is split 75/25 carbs/fat on high-carb days and
// 30/70 on low-carb days.
func CalculateTargets(targetCal int, weight float64, mode models.CarbMode) (protein, carbs, fat int) {
	protein = int(math.Round(weight * proteinPerKg))
	proteinCal := float64(protein) * kcalPerGramPC
	remaining := math.Max(0, float64(targetCal)-proteinCal)

	var carbCal, fatCal float64
	if mode == models.HighCarb {
		carbCal = remaining * 0.75
		fatCal = remaining * 0.25
	} else {
		fatCal = remaining * 0.70
		carbCal = remaining * 0.30
	}

	carbs = int(math.Round(carbCal / kcalPerGramPC))
	fat = int(math.Round(fatCal / kcalPerGramF))
	return protein, carbs, fat
}
