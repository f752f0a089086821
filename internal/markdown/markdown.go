// Package markdown renders dashboards and trend reports as Obsidian-compatible
// markdown.
package markdown

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-ports/dietvault/internal/models"
	"github.com/go-ports/dietvault/internal/trend"
)

// ModeLegend explains the mode marker used in trend tables.
const ModeLegend = "🟠 high-carb day | 🔵 low-carb day"

// ModeMarker returns the legend marker for mode.
func ModeMarker(mode models.CarbMode) string {
	if mode == models.HighCarb {
		return "🟠"
	}
	return "🔵"
}

// DayLabel returns "today" when isToday, otherwise the day itself.
func DayLabel(day string, isToday bool) string {
	if isToday {
		return "today"
	}
	return day
}

// ---------------------------------------------------------------------------
// Dashboard
// ---------------------------------------------------------------------------

// RenderDashboard produces the energy and macro progress block for a day.
func RenderDashboard(d *models.Dashboard) string {
	var sb strings.Builder
	sb.WriteString("## ")
	sb.WriteString(DayLabel(d.Day, d.IsToday))
	sb.WriteString(" (")
	sb.WriteString(string(d.Mode))
	sb.WriteString(")\n\n")

	remaining := "Remaining"
	if d.TrayPending() {
		remaining += " (incl. tray)"
	}
	fmt.Fprintf(&sb, "**%s:** %d / %d kcal\n", remaining, d.Remaining, d.Target.Calories)
	if d.Exercise > 0 {
		fmt.Fprintf(&sb, "**Exercise:** +%d kcal\n", d.Exercise)
	}

	sb.WriteString("\n| Macro | Eaten | Target | Progress |\n|---|---|---|---|\n")
	macroRow(&sb, "Protein", d.Merged.Protein, d.Target.Protein)
	macroRow(&sb, "Carbs", d.Merged.Carbs, d.Target.Carbs)
	macroRow(&sb, "Fat", d.Merged.Fat, d.Target.Fat)

	if d.TrayPending() {
		sb.WriteString("\n### Tray\n")
		for _, it := range d.Tray {
			sb.WriteString("- ")
			sb.WriteString(RenderItem(it))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// RenderItem formats a tray item on one line.
func RenderItem(it models.FoodItem) string {
	return fmt.Sprintf("%s: %d kcal (P%.1f C%.1f F%.1f)", it.Name, it.Calories, it.Protein, it.Carbs, it.Fat)
}

func macroRow(sb *strings.Builder, label string, current, target float64) {
	fmt.Fprintf(sb, "| %s | %d g | %d g | %.0f%% |\n",
		label, int(current), int(target), models.Progress(current, target))
}

// ---------------------------------------------------------------------------
// Trend
// ---------------------------------------------------------------------------

// RenderTrendTable produces one table row per day followed by the mode legend.
func RenderTrendTable(days []models.DailySummary) string {
	if len(days) == 0 {
		return "_No data in this range._\n"
	}
	var sb strings.Builder
	sb.WriteString("| Day | Intake (kcal) | Deficit (kcal) | Weight (kg) | Mode |\n")
	sb.WriteString("|---|---|---|---|---|\n")
	for _, d := range days {
		fmt.Fprintf(&sb, "| %s | %d | %d | %.1f | %s %s |\n",
			d.Day, d.Intake, d.Deficit, d.Weight, ModeMarker(d.Mode), d.Mode)
	}
	sb.WriteString("\n")
	sb.WriteString(ModeLegend)
	sb.WriteString("\n")
	return sb.String()
}

// WriteTrendReport writes a trend report for username to path, creating the
// parent directory. An existing report keeps its created timestamp.
func WriteTrendReport(path, username string, r trend.Range, days []models.DailySummary) error {
	created := time.Now().UTC().Format(time.RFC3339)
	if existing, err := os.ReadFile(path); err == nil {
		if v := frontmatterValue(string(existing), "created"); v != "" {
			created = v
		}
	}

	var sb strings.Builder
	sb.WriteString("---\n")
	sb.WriteString("user: ")
	sb.WriteString(username)
	sb.WriteString("\nfrom: ")
	sb.WriteString(r.From)
	sb.WriteString("\nto: ")
	sb.WriteString(r.To)
	sb.WriteString("\ncreated: ")
	sb.WriteString(created)
	sb.WriteString("\nupdated: ")
	sb.WriteString(time.Now().UTC().Format(time.RFC3339))
	sb.WriteString("\n---\n\n# Trend ")
	sb.WriteString(r.From)
	sb.WriteString(" → ")
	sb.WriteString(r.To)
	sb.WriteString("\n\n")
	sb.WriteString(RenderTrendTable(days))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(sb.String()), 0o644) // #nosec G306 -- trend reports do not contain secrets
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// splitFrontmatter splits YAML front-matter from the body.
// Returns ("", content) when no front-matter is detected.
func splitFrontmatter(content string) (frontmatter, body string) {
	parts := strings.SplitN(content, "---\n", 3)
	if len(parts) >= 3 {
		return "---\n" + parts[1] + "---", parts[2]
	}
	return "", content
}

// frontmatterValue returns the scalar value of key in content's front-matter.
func frontmatterValue(content, key string) string {
	fm, _ := splitFrontmatter(content)
	for _, line := range strings.Split(fm, "\n") {
		if v, ok := strings.CutPrefix(line, key+":"); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
