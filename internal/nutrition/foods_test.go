package nutrition_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/dietvault/internal/models"
	"github.com/go-ports/dietvault/internal/nutrition"
)

func TestLookup_HappyPath(t *testing.T) {
	c := qt.New(t)

	cases := []struct {
		name  string
		key   string
		grams int
		want  models.FoodItem
	}{
		{
			name:  "reference weight",
			key:   "apple",
			grams: 100,
			want:  models.FoodItem{Name: "Apple 100g", Calories: 52, Protein: 0.2, Carbs: 13.5, Fat: 0.2},
		},
		{
			name:  "scaled up",
			key:   "chicken-breast",
			grams: 200,
			want:  models.FoodItem{Name: "Chicken breast (cooked) 200g", Calories: 330, Protein: 62, Carbs: 0, Fat: 7.2},
		},
		{
			name:  "calories truncate",
			key:   "EGG",
			grams: 50,
			want:  models.FoodItem{Name: "Boiled egg 50g", Calories: 71, Protein: 6, Carbs: 0.5, Fat: 5},
		},
		{
			name:  "zero grams",
			key:   "steak",
			grams: 0,
			want:  models.FoodItem{Name: "Steak (cooked) 0g"},
		},
	}

	for _, tc := range cases {
		c.Run(tc.name, func(c *qt.C) {
			got, err := nutrition.Lookup(tc.key, tc.grams)
			c.Assert(err, qt.IsNil)
			c.Assert(got, qt.DeepEquals, tc.want)
		})
	}
}

func TestLookup_FailurePath(t *testing.T) {
	c := qt.New(t)

	c.Run("unknown key", func(c *qt.C) {
		_, err := nutrition.Lookup("pizza", 100)
		c.Assert(err, qt.ErrorIs, nutrition.ErrUnknownFood)
	})

	c.Run("grams out of range", func(c *qt.C) {
		_, err := nutrition.Lookup("rice", nutrition.MaxGrams+1)
		c.Assert(err, qt.ErrorIs, nutrition.ErrInvalidFood)
	})
}

func TestCustom(t *testing.T) {
	c := qt.New(t)

	c.Run("blank name falls back to default", func(c *qt.C) {
		got, err := nutrition.Custom("  ", 250, 0, 0, 0)
		c.Assert(err, qt.IsNil)
		c.Assert(got.Name, qt.Equals, nutrition.DefaultCustomName)
		c.Assert(got.Calories, qt.Equals, 250)
	})

	c.Run("macros are kept", func(c *qt.C) {
		got, err := nutrition.Custom("Latte", 120, 6, 9, 4)
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.DeepEquals, models.FoodItem{Name: "Latte", Calories: 120, Protein: 6, Carbs: 9, Fat: 4})
	})

	c.Run("calories above limit rejected", func(c *qt.C) {
		_, err := nutrition.Custom("x", nutrition.MaxCustomCalories+1, 0, 0, 0)
		c.Assert(err, qt.ErrorIs, nutrition.ErrInvalidFood)
	})

	c.Run("negative macro rejected", func(c *qt.C) {
		_, err := nutrition.Custom("x", 100, -1, 0, 0)
		c.Assert(err, qt.ErrorMatches, `invalid food: macros must be .*`)
	})
}

func TestFoodsTable(t *testing.T) {
	c := qt.New(t)

	c.Assert(nutrition.Foods, qt.HasLen, 14)
	seen := make(map[string]bool)
	for _, f := range nutrition.Foods {
		c.Assert(seen[f.Key], qt.IsFalse, qt.Commentf("duplicate key %s", f.Key))
		seen[f.Key] = true
		c.Assert(f.Calories > 0, qt.IsTrue)
	}
}
