package httpapi

import (
	"math"

	"github.com/go-ports/dietvault/internal/models"
	"github.com/go-ports/dietvault/internal/service"
	"github.com/go-ports/dietvault/internal/tray"
)

type macrosResponse struct {
	Calories int     `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

func newMacrosResponse(m models.Macros) macrosResponse {
	return macrosResponse{
		Calories: m.Calories,
		Protein:  round1(m.Protein),
		Carbs:    round1(m.Carbs),
		Fat:      round1(m.Fat),
	}
}

type progressResponse struct {
	Protein float64 `json:"protein"`
	Carbs   float64 `json:"carbs"`
	Fat     float64 `json:"fat"`
}

type dashboardResponse struct {
	Day         string            `json:"day"`
	IsToday     bool              `json:"is_today"`
	Mode        models.CarbMode   `json:"mode"`
	Exercise    int               `json:"exercise"`
	Weight      float64           `json:"weight"`
	BMR         float64           `json:"bmr"`
	TDEE        float64           `json:"tdee"`
	Target      macrosResponse    `json:"target"`
	Eaten       macrosResponse    `json:"eaten"`
	Remaining   int               `json:"remaining"`
	Progress    progressResponse  `json:"progress"`
	Tray        []models.FoodItem `json:"tray"`
	TrayPending bool              `json:"tray_pending"`
}

func newDashboardResponse(d *models.Dashboard) dashboardResponse {
	items := d.Tray
	if items == nil {
		items = []models.FoodItem{}
	}
	return dashboardResponse{
		Day:       d.Day,
		IsToday:   d.IsToday,
		Mode:      d.Mode,
		Exercise:  d.Exercise,
		Weight:    round1(d.Weight),
		BMR:       math.Round(d.BMR),
		TDEE:      math.Round(d.TDEE),
		Target:    newMacrosResponse(d.Target),
		Eaten:     newMacrosResponse(d.Merged),
		Remaining: d.Remaining,
		Progress: progressResponse{
			Protein: round1(models.Progress(d.Merged.Protein, d.Target.Protein)),
			Carbs:   round1(models.Progress(d.Merged.Carbs, d.Target.Carbs)),
			Fat:     round1(models.Progress(d.Merged.Fat, d.Target.Fat)),
		},
		Tray:        items,
		TrayPending: d.TrayPending(),
	}
}

type trayResponse struct {
	Items  []models.FoodItem `json:"items"`
	Totals macrosResponse    `json:"totals"`
}

func newTrayResponse(t *tray.Tray) trayResponse {
	items := t.Items()
	if items == nil {
		items = []models.FoodItem{}
	}
	return trayResponse{Items: items, Totals: newMacrosResponse(t.Totals())}
}

type entryResponse struct {
	ID      int64           `json:"id"`
	Day     string          `json:"day"`
	Time    string          `json:"time"`
	Kind    models.LogKind  `json:"kind"`
	Target  int             `json:"target"`
	Intake  int             `json:"intake"`
	Deficit int             `json:"deficit"`
	Weight  float64         `json:"weight"`
	Protein float64         `json:"protein"`
	Carbs   float64         `json:"carbs"`
	Fat     float64         `json:"fat"`
	Mode    models.CarbMode `json:"mode"`
}

func newEntryResponse(e *models.DietLogEntry) entryResponse {
	return entryResponse{
		ID:      e.ID,
		Day:     e.Day,
		Time:    e.Clock,
		Kind:    e.Kind,
		Target:  e.Target,
		Intake:  e.Intake,
		Deficit: e.Deficit,
		Weight:  round1(e.Weight),
		Protein: round1(e.Protein),
		Carbs:   round1(e.Carbs),
		Fat:     round1(e.Fat),
		Mode:    e.Mode,
	}
}

type trendDay struct {
	Day     string          `json:"day"`
	Intake  int             `json:"intake"`
	Deficit int             `json:"deficit"`
	Weight  float64         `json:"weight"`
	Mode    models.CarbMode `json:"mode"`
}

type trendResponse struct {
	From string     `json:"from,omitempty"`
	To   string     `json:"to,omitempty"`
	Days []trendDay `json:"days"`
}

func newTrendResponse(r *service.TrendReport) trendResponse {
	out := trendResponse{From: r.Range.From, To: r.Range.To, Days: make([]trendDay, 0, len(r.Days))}
	for _, d := range r.Days {
		out.Days = append(out.Days, trendDay{
			Day:     d.Day,
			Intake:  d.Intake,
			Deficit: d.Deficit,
			Weight:  round1(d.Weight),
			Mode:    d.Mode,
		})
	}
	return out
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
