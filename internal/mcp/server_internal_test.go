package mcp

// White-box testing required: sessionID, roundTenth and the view builders are
// unexported helpers that shape tool responses. The in-process client used by
// the black-box tests cannot reach them directly.

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/dietvault/internal/models"
	"github.com/go-ports/dietvault/internal/tray"
)

// ---------------------------------------------------------------------------
// sessionID
// ---------------------------------------------------------------------------

func TestSessionID_FallsBackToDefault(t *testing.T) {
	c := qt.New(t)
	c.Assert(sessionID(context.Background()), qt.Equals, defaultSessionID)
}

// ---------------------------------------------------------------------------
// roundTenth
// ---------------------------------------------------------------------------

func TestRoundTenth_HappyPath(t *testing.T) {
	c := qt.New(t)

	cases := []struct {
		name string
		in   float64
		want float64
	}{
		{"exact value unchanged", 1.5, 1.5},
		{"rounds down", 1.24, 1.2},
		{"rounds up", 1.26, 1.3},
		{"zero", 0.0, 0.0},
		{"float noise", 0.1 + 0.2, 0.3},
	}

	for _, tc := range cases {
		c.Run(tc.name, func(c *qt.C) {
			c.Assert(roundTenth(tc.in), qt.Equals, tc.want)
		})
	}
}

// ---------------------------------------------------------------------------
// Views
// ---------------------------------------------------------------------------

func TestDashboardView(t *testing.T) {
	c := qt.New(t)

	d := &models.Dashboard{
		Day:       "2024-01-15",
		IsToday:   true,
		Mode:      models.HighCarb,
		Target:    models.Macros{Calories: 1477, Protein: 99, Carbs: 203, Fat: 30},
		Merged:    models.Macros{Calories: 450, Protein: 25, Carbs: 40, Fat: 60},
		Tray:      []models.FoodItem{{Name: "A", Calories: 450}},
		Remaining: 1027,
	}
	v := dashboardView(d)
	c.Assert(v["remaining"], qt.Equals, 1027)
	c.Assert(v["tray_pending"], qt.Equals, true)
	progress := v["progress"].(map[string]float64)
	c.Assert(progress["protein"], qt.Equals, 25.3)
	c.Assert(progress["fat"], qt.Equals, 100.0)
	c.Assert(v["tray"], qt.HasLen, 1)
}

func TestTrayView_Empty(t *testing.T) {
	c := qt.New(t)

	v := trayView(&tray.Tray{})
	c.Assert(v["items"], qt.HasLen, 0)
	c.Assert(v["totals"], qt.DeepEquals, map[string]any{
		"calories": 0, "protein": 0.0, "carbs": 0.0, "fat": 0.0,
	})
}
