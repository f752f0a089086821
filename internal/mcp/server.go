// Package mcp provides the stdio MCP server exposing diet tools for agents.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/go-ports/dietvault/internal/buildinfo"
	"github.com/go-ports/dietvault/internal/models"
	"github.com/go-ports/dietvault/internal/nutrition"
	"github.com/go-ports/dietvault/internal/search"
	"github.com/go-ports/dietvault/internal/service"
	"github.com/go-ports/dietvault/internal/session"
	"github.com/go-ports/dietvault/internal/tray"
)

// defaultSessionID keys the session used when the transport carries no
// client session.
const defaultSessionID = "default"

const loginDescription = `Log in to the diet log. Every other diet tool acts on the logged-in user of this MCP session. Set register=true to create the account first.`

const dashboardDescription = `Show the viewed day's calorie target, what has been eaten, and macro progress. Staged tray items are included as a preview and flagged with tray_pending.` //nolint:lll

const commitDescription = `Log every item on the tray as one meal for the viewed day, then empty the tray. Nothing is written while the tray is empty. If logging fails the tray is kept so the commit can be retried.` //nolint:lll

// NewServer creates and registers all diet tools on a new MCP server.
// It is intentionally separate from Serve so that tests and other callers can
// obtain a fully configured server without committing to the stdio transport.
func NewServer(svc *service.Service) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer("dietvault", buildinfo.Version)
	registerTools(s, &handler{svc: svc, sessions: svc.NewRegistry()})
	return s
}

// Serve starts the stdio MCP server rooted at dietHome, blocking until stdin
// closes.
func Serve(_ context.Context, dietHome string) error {
	svc, err := service.New(dietHome)
	if err != nil {
		return fmt.Errorf("mcp: init service: %w", err)
	}
	defer svc.Close()

	return mcpserver.ServeStdio(NewServer(svc))
}

type handler struct {
	svc      *service.Service
	sessions *session.Registry
}

// session returns the diet session bound to the calling MCP client, locked.
// Callers must invoke release once the tool call is done with it.
func (h *handler) session(ctx context.Context) (sess *session.Session, release func()) {
	sess = h.sessions.Get(sessionID(ctx))
	sess.Lock()
	return sess, sess.Unlock
}

func sessionID(ctx context.Context) string {
	if cs := mcpserver.ClientSessionFromContext(ctx); cs != nil && cs.SessionID() != "" {
		return cs.SessionID()
	}
	return defaultSessionID
}

// registerTools wires all diet tools into the server.
func registerTools(s *mcpserver.MCPServer, h *handler) {
	s.AddTool(mcp.NewTool("diet_login",
		mcp.WithDescription(loginDescription),
		mcp.WithString("username", mcp.Required()),
		mcp.WithString("password", mcp.Required()),
		mcp.WithBoolean("register",
			mcp.Description("Create the account before logging in."),
		),
	), h.handleLogin)

	s.AddTool(mcp.NewTool("diet_plan",
		mcp.WithDescription("Fill in or replace the body metrics the daily target is computed from."),
		mcp.WithNumber("height", mcp.Description("Height in cm (100-220)."), mcp.Required()),
		mcp.WithNumber("weight", mcp.Description("Weight in kg (30-200)."), mcp.Required()),
		mcp.WithNumber("age", mcp.Description("Age in years (10-100)."), mcp.Required()),
		mcp.WithString("gender", mcp.Enum(string(models.Female), string(models.Male)), mcp.Required()),
		mcp.WithString("activity",
			mcp.Description("sedentary, light, moderate, heavy, athlete, or the factor itself."),
			mcp.Required(),
		),
		mcp.WithNumber("deficit", mcp.Description("Calorie deficit percent (0-30, default 15).")),
	), h.handlePlan)

	s.AddTool(mcp.NewTool("diet_dashboard",
		mcp.WithDescription(dashboardDescription),
		mcp.WithString("date",
			mcp.Description("Switch the viewed day first (YYYY-MM-DD or \"today\")."),
		),
	), h.handleDashboard)

	s.AddTool(mcp.NewTool("diet_foods",
		mcp.WithDescription("List the built-in food table (values per 100 g), optionally ranked by a search query."),
		mcp.WithString("query", mcp.Description("Match food keys and labels, best first.")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default all).")),
	), h.handleFoods)

	s.AddTool(mcp.NewTool("diet_tray_add",
		mcp.WithDescription("Stage a food on the tray. Give food (+ grams) for a table entry, or name + calories (+ macros) for a custom item."), //nolint:lll
		mcp.WithString("food", mcp.Description("Key from diet_foods.")),
		mcp.WithNumber("grams", mcp.Description("Portion in grams (default 100).")),
		mcp.WithString("name", mcp.Description("Custom item name.")),
		mcp.WithNumber("calories", mcp.Description("Custom item calories.")),
		mcp.WithNumber("protein", mcp.Description("Custom item protein grams.")),
		mcp.WithNumber("carbs", mcp.Description("Custom item carb grams.")),
		mcp.WithNumber("fat", mcp.Description("Custom item fat grams.")),
	), h.handleTrayAdd)

	s.AddTool(mcp.NewTool("diet_tray_clear",
		mcp.WithDescription("Drop every staged item without logging."),
	), h.handleTrayClear)

	s.AddTool(mcp.NewTool("diet_tray_commit",
		mcp.WithDescription(commitDescription),
	), h.handleTrayCommit)

	s.AddTool(mcp.NewTool("diet_calibrate",
		mcp.WithDescription("Record the day's weight, exercise calories and carb mode. Re-running it for the same day updates that day's record."), //nolint:lll
		mcp.WithNumber("weight", mcp.Description("Weight in kg."), mcp.Required()),
		mcp.WithNumber("exercise", mcp.Description("Exercise calories burned (default 0).")),
		mcp.WithString("mode", mcp.Enum(string(models.HighCarb), string(models.LowCarb))),
		mcp.WithString("date", mcp.Description("Day to calibrate (YYYY-MM-DD); defaults to the viewed day.")),
	), h.handleCalibrate)

	s.AddTool(mcp.NewTool("diet_trend",
		mcp.WithDescription("Per-day intake, deficit, weight and mode. Defaults to the last week of logged data."),
		mcp.WithString("from", mcp.Description("First day (YYYY-MM-DD).")),
		mcp.WithString("to", mcp.Description("Last day (YYYY-MM-DD).")),
	), h.handleTrend)
}

// ---------------------------------------------------------------------------
// Tool handlers
// ---------------------------------------------------------------------------

func (h *handler) handleLogin(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	username := req.GetString("username", "")
	password := req.GetString("password", "")
	registered := false
	if req.GetBool("register", false) {
		if err := h.svc.Register(ctx, username, password); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		registered = true
	}

	sess, release := h.session(ctx)
	defer release()
	u, err := h.svc.Login(ctx, sess, username, password)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"username":         u.Username,
		"registered":       registered,
		"needs_onboarding": u.NeedsOnboarding(),
	})
}

func (h *handler) handlePlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gender, err := models.ParseGender(req.GetString("gender", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	activity, err := nutrition.ParseActivity(req.GetString("activity", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sess, release := h.session(ctx)
	defer release()
	u, err := h.svc.SetupProfile(ctx, sess, service.ProfileInput{
		Height:   req.GetFloat("height", 0),
		Weight:   req.GetFloat("weight", 0),
		Age:      req.GetInt("age", 0),
		Gender:   gender,
		Activity: activity,
		Deficit:  req.GetInt("deficit", 15),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"username": u.Username,
		"height":   u.Height,
		"weight":   u.Weight,
		"age":      u.Age,
		"gender":   u.Gender,
		"activity": nutrition.ActivityLabel(u.Activity),
		"deficit":  u.Deficit,
	})
}

func (h *handler) handleDashboard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, release := h.session(ctx)
	defer release()
	if date := req.GetString("date", ""); date != "" {
		if err := h.svc.SetViewDate(sess, date); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	d, err := h.svc.Dashboard(ctx, sess)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(dashboardView(d))
}

func (h *handler) handleFoods(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	hits := search.Foods(req.GetString("query", ""), req.GetInt("limit", 0))
	foods := make([]map[string]any, 0, len(hits))
	for _, r := range hits {
		f := r.Food
		foods = append(foods, map[string]any{
			"key":      f.Key,
			"label":    f.Label,
			"calories": f.Calories,
			"protein":  f.Protein,
			"carbs":    f.Carbs,
			"fat":      f.Fat,
		})
	}
	return jsonResult(foods)
}

func (h *handler) handleTrayAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, release := h.session(ctx)
	defer release()
	var (
		item models.FoodItem
		err  error
	)
	if key := req.GetString("food", ""); key != "" {
		item, err = h.svc.AddFood(sess, key, req.GetInt("grams", nutrition.DefaultGrams))
	} else {
		item, err = h.svc.AddCustomFood(sess,
			req.GetString("name", ""),
			req.GetInt("calories", 0),
			req.GetFloat("protein", 0),
			req.GetFloat("carbs", 0),
			req.GetFloat("fat", 0),
		)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"added": itemView(item),
		"tray":  trayView(sess.Tray()),
	})
}

func (h *handler) handleTrayClear(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, release := h.session(ctx)
	defer release()
	if err := h.svc.ClearTray(sess); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"tray": trayView(sess.Tray())})
}

func (h *handler) handleTrayCommit(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, release := h.session(ctx)
	defer release()
	entry, err := h.svc.Commit(ctx, sess, nil)
	if errors.Is(err, tray.ErrEmptyTray) {
		return jsonResult(map[string]any{"committed": false, "message": "Tray is empty; nothing logged."})
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"committed": true,
		"entry":     entryView(entry),
	})
}

func (h *handler) handleCalibrate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var mode models.CarbMode
	if raw := req.GetString("mode", ""); raw != "" {
		m, err := models.ParseCarbMode(raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		mode = m
	}
	sess, release := h.session(ctx)
	defer release()
	entry, err := h.svc.Calibrate(ctx, sess, service.CalibrateInput{
		Weight:   req.GetFloat("weight", 0),
		Exercise: req.GetInt("exercise", 0),
		Mode:     mode,
		Day:      req.GetString("date", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(entryView(entry))
}

func (h *handler) handleTrend(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, release := h.session(ctx)
	defer release()
	report, err := h.svc.Trend(ctx, sess, req.GetString("from", ""), req.GetString("to", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	days := make([]map[string]any, 0, len(report.Days))
	for _, d := range report.Days {
		days = append(days, map[string]any{
			"day":     d.Day,
			"intake":  d.Intake,
			"deficit": d.Deficit,
			"weight":  roundTenth(d.Weight),
			"mode":    d.Mode,
		})
	}
	result := map[string]any{
		"from": report.Range.From,
		"to":   report.Range.To,
		"days": days,
	}
	if !report.HasData {
		result["message"] = "No logs yet. Commit a tray or calibrate a day first."
	}
	return jsonResult(result)
}

// ---------------------------------------------------------------------------
// Views
// ---------------------------------------------------------------------------

func dashboardView(d *models.Dashboard) map[string]any {
	return map[string]any{
		"day":          d.Day,
		"is_today":     d.IsToday,
		"mode":         d.Mode,
		"exercise":     d.Exercise,
		"target":       macrosView(d.Target),
		"eaten":        macrosView(d.Merged),
		"remaining":    d.Remaining,
		"tray_pending": d.TrayPending(),
		"tray":         itemsView(d.Tray),
		"progress": map[string]float64{
			"protein": roundTenth(models.Progress(d.Merged.Protein, d.Target.Protein)),
			"carbs":   roundTenth(models.Progress(d.Merged.Carbs, d.Target.Carbs)),
			"fat":     roundTenth(models.Progress(d.Merged.Fat, d.Target.Fat)),
		},
	}
}

func macrosView(m models.Macros) map[string]any {
	return map[string]any{
		"calories": m.Calories,
		"protein":  roundTenth(m.Protein),
		"carbs":    roundTenth(m.Carbs),
		"fat":      roundTenth(m.Fat),
	}
}

func itemView(it models.FoodItem) map[string]any {
	v := macrosView(it.Macros())
	v["name"] = it.Name
	return v
}

func itemsView(items []models.FoodItem) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		out = append(out, itemView(it))
	}
	return out
}

func trayView(t *tray.Tray) map[string]any {
	return map[string]any{
		"items":  itemsView(t.Items()),
		"totals": macrosView(t.Totals()),
	}
}

func entryView(e *models.DietLogEntry) map[string]any {
	return map[string]any{
		"id":      e.ID,
		"day":     e.Day,
		"clock":   e.Clock,
		"kind":    e.Kind,
		"target":  e.Target,
		"intake":  e.Intake,
		"weight":  roundTenth(e.Weight),
		"deficit": e.Deficit,
		"mode":    e.Mode,
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

// roundTenth rounds f to 1 decimal place.
func roundTenth(f float64) float64 {
	return math.Round(f*10) / 10
}
