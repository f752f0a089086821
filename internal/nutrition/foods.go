package nutrition

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-ports/dietvault/internal/models"
)

var (
	// ErrUnknownFood is returned by Lookup for a key not in Foods.
	ErrUnknownFood = errors.New("unknown food")
	// ErrInvalidFood is returned when grams, calories or macros are out of range.
	ErrInvalidFood = errors.New("invalid food")
)

// Entry limits, matching the input ranges of the food form.
const (
	MaxGrams          = 2000
	MaxCustomCalories = 2000
	MaxCustomMacro    = 100
	DefaultGrams      = 100
	DefaultCustomName = "Custom"
)

// Food is a static food-table row; values are per 100 g.
type Food struct {
	Key      string
	Label    string
	Calories float64
	Protein  float64
	Carbs    float64
	Fat      float64
}

// Foods is the static reference table.
var Foods = []Food{
	{"rice", "Cooked rice", 116, 2.6, 25.9, 0.3},
	{"bread", "Whole wheat bread", 246, 10.6, 46.4, 1.0},
	{"sweet-potato", "Steamed sweet potato", 86, 1.57, 20.1, 0.2},
	{"corn", "Boiled corn", 112, 4.0, 22.8, 1.2},
	{"chicken-breast", "Chicken breast (cooked)", 165, 31.0, 0.0, 3.6},
	{"steak", "Steak (cooked)", 250, 26.0, 0.0, 15.0},
	{"shrimp", "Shrimp (cooked)", 100, 21.0, 0.2, 1.1},
	{"egg", "Boiled egg", 143, 12.0, 1.0, 10.0},
	{"greens", "Broccoli / leafy greens", 35, 4.1, 4.3, 0.6},
	{"apple", "Apple", 52, 0.2, 13.5, 0.2},
	{"banana", "Banana", 93, 1.4, 20.8, 0.2},
	{"cola", "Cola (330ml)", 43, 0, 10.6, 0},
	{"latte", "Latte (unsweetened)", 45, 3.0, 4.0, 1.6},
	{"burger", "Burger / fast food", 250, 13.0, 25.0, 12.0},
}

// FindFood returns the table row for key (case-insensitive).
func FindFood(key string) (Food, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, f := range Foods {
		if f.Key == key {
			return f, true
		}
	}
	return Food{}, false
}

// Lookup scales the table row for key to grams. Calories are truncated to
// whole kcal and macros rounded to 0.1 g.
func Lookup(key string, grams int) (models.FoodItem, error) {
	f, ok := FindFood(key)
	if !ok {
		return models.FoodItem{}, fmt.Errorf("%w: %q", ErrUnknownFood, key)
	}
	if grams < 0 || grams > MaxGrams {
		return models.FoodItem{}, fmt.Errorf("%w: grams must be between 0 and %d", ErrInvalidFood, MaxGrams)
	}
	ratio := float64(grams) / 100
	return models.FoodItem{
		Name:     fmt.Sprintf("%s %dg", f.Label, grams),
		Calories: int(f.Calories * ratio),
		Protein:  roundTenth(f.Protein * ratio),
		Carbs:    roundTenth(f.Carbs * ratio),
		Fat:      roundTenth(f.Fat * ratio),
	}, nil
}

// Custom builds a user-entered item. An empty name falls back to
// DefaultCustomName; omitted macros are zero.
func Custom(name string, calories int, protein, carbs, fat float64) (models.FoodItem, error) {
	if calories < 0 || calories > MaxCustomCalories {
		return models.FoodItem{}, fmt.Errorf("%w: calories must be between 0 and %d", ErrInvalidFood, MaxCustomCalories)
	}
	for _, v := range []float64{protein, carbs, fat} {
		if v < 0 || v > MaxCustomMacro {
			return models.FoodItem{}, fmt.Errorf("%w: macros must be between 0 and %d g", ErrInvalidFood, MaxCustomMacro)
		}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultCustomName
	}
	return models.FoodItem{Name: name, Calories: calories, Protein: protein, Carbs: carbs, Fat: fat}, nil
}

func roundTenth(f float64) float64 {
	return math.Round(f*10) / 10
}
