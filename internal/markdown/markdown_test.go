package markdown_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/dietvault/internal/markdown"
	"github.com/go-ports/dietvault/internal/models"
	"github.com/go-ports/dietvault/internal/trend"
)

// ---------------------------------------------------------------------------
// RenderDashboard
// ---------------------------------------------------------------------------

func dashboard() *models.Dashboard {
	return &models.Dashboard{
		Username:  "amy",
		Day:       "2024-01-15",
		IsToday:   true,
		Mode:      models.HighCarb,
		Target:    models.Macros{Calories: 1477, Protein: 99, Carbs: 203, Fat: 30},
		Merged:    models.Macros{Calories: 450, Protein: 49.5, Carbs: 250, Fat: 15},
		Remaining: 1027,
	}
}

func TestRenderDashboard_HappyPath(t *testing.T) {
	c := qt.New(t)

	c.Run("no tray", func(c *qt.C) {
		got := markdown.RenderDashboard(dashboard())
		c.Assert(got, qt.Contains, "## today (high-carb)")
		c.Assert(got, qt.Contains, "**Remaining:** 1027 / 1477 kcal")
		c.Assert(got, qt.Not(qt.Contains), "incl. tray")
		c.Assert(got, qt.Contains, "| Protein | 49 g | 99 g | 50% |")
		c.Assert(got, qt.Contains, "| Carbs | 250 g | 203 g | 100% |")
		c.Assert(got, qt.Not(qt.Contains), "### Tray")
	})

	c.Run("tray pending and past day", func(c *qt.C) {
		d := dashboard()
		d.IsToday = false
		d.Exercise = 300
		d.Tray = []models.FoodItem{{Name: "Apple 100g", Calories: 52, Protein: 0.2, Carbs: 13.5, Fat: 0.2}}
		got := markdown.RenderDashboard(d)
		c.Assert(got, qt.Contains, "## 2024-01-15 (high-carb)")
		c.Assert(got, qt.Contains, "**Remaining (incl. tray):**")
		c.Assert(got, qt.Contains, "**Exercise:** +300 kcal")
		c.Assert(got, qt.Contains, "- Apple 100g: 52 kcal (P0.2 C13.5 F0.2)")
	})
}

// ---------------------------------------------------------------------------
// RenderTrendTable
// ---------------------------------------------------------------------------

func TestRenderTrendTable(t *testing.T) {
	c := qt.New(t)

	c.Run("empty", func(c *qt.C) {
		c.Assert(markdown.RenderTrendTable(nil), qt.Equals, "_No data in this range._\n")
	})

	c.Run("rows and legend", func(c *qt.C) {
		got := markdown.RenderTrendTable([]models.DailySummary{
			{Day: "2024-01-14", Intake: 1200, Deficit: 277, Weight: 55.4, Mode: models.HighCarb},
			{Day: "2024-01-15", Intake: 1600, Deficit: -123, Weight: 55.1, Mode: models.LowCarb},
		})
		c.Assert(got, qt.Contains, "| 2024-01-14 | 1200 | 277 | 55.4 | 🟠 high-carb |")
		c.Assert(got, qt.Contains, "| 2024-01-15 | 1600 | -123 | 55.1 | 🔵 low-carb |")
		c.Assert(strings.HasSuffix(got, markdown.ModeLegend+"\n"), qt.IsTrue)
	})
}

// ---------------------------------------------------------------------------
// WriteTrendReport
// ---------------------------------------------------------------------------

func TestWriteTrendReport(t *testing.T) {
	c := qt.New(t)

	path := filepath.Join(t.TempDir(), "reports", "trend.md")
	r := trend.Range{From: "2024-01-14", To: "2024-01-15"}
	days := []models.DailySummary{{Day: "2024-01-14", Intake: 1200, Deficit: 277, Weight: 55.4, Mode: models.HighCarb}}

	c.Assert(markdown.WriteTrendReport(path, "amy", r, days), qt.IsNil)
	data, err := os.ReadFile(path)
	c.Assert(err, qt.IsNil)
	content := string(data)
	c.Assert(content, qt.Contains, "user: amy")
	c.Assert(content, qt.Contains, "from: 2024-01-14")
	c.Assert(content, qt.Contains, "# Trend 2024-01-14 → 2024-01-15")
	c.Assert(content, qt.Contains, "| 2024-01-14 | 1200 |")

	c.Run("rewrite keeps created timestamp", func(c *qt.C) {
		fixed := strings.Replace(content, "created: ", "created: 2000-01-01T00:00:00Z\nold: ", 1)
		c.Assert(os.WriteFile(path, []byte(fixed), 0o600), qt.IsNil)

		c.Assert(markdown.WriteTrendReport(path, "amy", r, days), qt.IsNil)
		data, err := os.ReadFile(path)
		c.Assert(err, qt.IsNil)
		c.Assert(string(data), qt.Contains, "created: 2000-01-01T00:00:00Z\n")
	})
}

func TestDayLabel(t *testing.T) {
	c := qt.New(t)
	c.Assert(markdown.DayLabel("2024-01-15", true), qt.Equals, "today")
	c.Assert(markdown.DayLabel("2024-01-15", false), qt.Equals, "2024-01-15")
}
