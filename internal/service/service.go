// Package service implements the DietService orchestrator that wires together
// configuration, the log store, the target calculator, sessions, and trends.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-ports/dietvault/internal/config"
	"github.com/go-ports/dietvault/internal/db"
	"github.com/go-ports/dietvault/internal/models"
	"github.com/go-ports/dietvault/internal/nutrition"
	"github.com/go-ports/dietvault/internal/search"
	"github.com/go-ports/dietvault/internal/session"
	"github.com/go-ports/dietvault/internal/tray"
	"github.com/go-ports/dietvault/internal/trend"
)

var (
	// ErrUsernameRequired is returned when a blank username is submitted.
	ErrUsernameRequired = errors.New("username is required")
	// ErrPasswordRequired is returned when a blank password is submitted.
	ErrPasswordRequired = errors.New("password is required")
	// ErrInvalidProfile is returned when body metrics fall outside the accepted ranges.
	ErrInvalidProfile = errors.New("invalid profile")
	// ErrInvalidCredentials is returned for any failed login. It never says
	// whether the username or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrNotLoggedIn is returned when an operation needs a user and the
	// session has none.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrOnboardingRequired is returned until the user has filled in a plan.
	ErrOnboardingRequired = errors.New("onboarding required: run plan first")
)

// Accepted body-metric ranges.
const (
	MinHeight  = 100.0
	MaxHeight  = 220.0
	MinWeight  = 30.0
	MaxWeight  = 200.0
	MinAge     = 10
	MaxAge     = 100
	MaxDeficit = 30
)

// Service orchestrates all diet operations.
type Service struct {
	DietHome string
	Config   *config.DietConfig

	database *db.DB
	now      func() time.Time
}

// New initialises a Service rooted at dietHome.
// If dietHome is empty it is resolved via config.GetDietHome.
func New(dietHome string) (*Service, error) {
	if dietHome == "" {
		dietHome = config.GetDietHome()
	}

	if err := os.MkdirAll(dietHome, 0o755); err != nil {
		return nil, fmt.Errorf("service.New: create home dir: %w", err)
	}

	if err := config.LoadEnv(dietHome); err != nil {
		slog.Warn("service.New: failed to load .env", "err", err)
	}

	cfg, err := config.Load(filepath.Join(dietHome, "config.yaml"))
	if err != nil {
		return nil, fmt.Errorf("service.New: load config: %w", err)
	}

	database, err := db.Open(filepath.Join(dietHome, "diet.db"))
	if err != nil {
		return nil, fmt.Errorf("service.New: open db: %w", err)
	}

	return &Service{
		DietHome: dietHome,
		Config:   cfg,
		database: database,
		now:      time.Now,
	}, nil
}

// Close releases all resources held by the service.
func (s *Service) Close() error {
	return s.database.Close()
}

// SetClock replaces the time source used for the current day and commit clock.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

// SessionPath returns the CLI session file inside the diet home.
func (s *Service) SessionPath() string {
	return filepath.Join(s.DietHome, session.FileName)
}

// LoadSession reads the CLI session file.
func (s *Service) LoadSession() (*session.Session, error) {
	return session.Load(s.SessionPath(), s.Config.Defaults.Mode)
}

// SaveSession writes the CLI session file.
func (s *Service) SaveSession(sess *session.Session) error {
	return sess.Save(s.SessionPath())
}

// NewRegistry returns a session registry using the configured default mode.
func (s *Service) NewRegistry() *session.Registry {
	return session.NewRegistry(s.Config.Defaults.Mode)
}

// ---------------------------------------------------------------------------
// Accounts
// ---------------------------------------------------------------------------

// Register creates a user with an empty profile.
func (s *Service) Register(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return ErrUsernameRequired
	}
	if password == "" {
		return ErrPasswordRequired
	}
	if err := s.database.InsertUser(ctx, username, password); err != nil {
		return fmt.Errorf("Register: %w", err)
	}
	return nil
}

// Login checks the credentials and attaches the user to sess.
func (s *Service) Login(ctx context.Context, sess *session.Session, username, password string) (*models.UserProfile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrUsernameRequired
	}
	u, found, err := s.database.FindUserByCredentials(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("Login: %w", err)
	}
	if !found {
		slog.Debug("Login: rejected", "username", username)
		return nil, ErrInvalidCredentials
	}
	sess.Login(u.Username)
	return u, nil
}

// Logout detaches the user and drops the tray.
func (s *Service) Logout(sess *session.Session) {
	sess.Reset()
}

// CurrentUser returns the profile of the session's user.
func (s *Service) CurrentUser(ctx context.Context, sess *session.Session) (*models.UserProfile, error) {
	if !sess.LoggedIn() {
		return nil, ErrNotLoggedIn
	}
	u, found, err := s.database.GetUser(ctx, sess.Username)
	if err != nil {
		return nil, fmt.Errorf("CurrentUser: %w", err)
	}
	if !found {
		slog.Warn("CurrentUser: session user no longer exists", "username", sess.Username)
		return nil, ErrNotLoggedIn
	}
	return u, nil
}

// requireProfile returns the session's user once onboarding is complete.
func (s *Service) requireProfile(ctx context.Context, sess *session.Session) (*models.UserProfile, error) {
	u, err := s.CurrentUser(ctx, sess)
	if err != nil {
		return nil, err
	}
	if u.NeedsOnboarding() {
		return nil, ErrOnboardingRequired
	}
	return u, nil
}

// ---------------------------------------------------------------------------
// Plan
// ---------------------------------------------------------------------------

// ProfileInput holds the onboarding form.
type ProfileInput struct {
	Height   float64
	Weight   float64
	Age      int
	Gender   models.Gender
	Activity float64
	Deficit  int
}

// Validate checks every field against the accepted ranges.
func (in ProfileInput) Validate() error {
	switch {
	case in.Height < MinHeight || in.Height > MaxHeight:
		return fmt.Errorf("%w: height must be %.0f-%.0f cm", ErrInvalidProfile, MinHeight, MaxHeight)
	case in.Weight < MinWeight || in.Weight > MaxWeight:
		return fmt.Errorf("%w: weight must be %.0f-%.0f kg", ErrInvalidProfile, MinWeight, MaxWeight)
	case in.Age < MinAge || in.Age > MaxAge:
		return fmt.Errorf("%w: age must be %d-%d", ErrInvalidProfile, MinAge, MaxAge)
	case in.Deficit < 0 || in.Deficit > MaxDeficit:
		return fmt.Errorf("%w: deficit must be 0-%d%%", ErrInvalidProfile, MaxDeficit)
	case in.Gender != models.Female && in.Gender != models.Male:
		return fmt.Errorf("%w: %w", ErrInvalidProfile, models.ErrInvalidGender)
	case !nutrition.IsActivityFactor(in.Activity):
		return fmt.Errorf("%w: %w", ErrInvalidProfile, nutrition.ErrInvalidActivity)
	}
	return nil
}

// SetupProfile stores the onboarding form for the session's user.
func (s *Service) SetupProfile(ctx context.Context, sess *session.Session, in ProfileInput) (*models.UserProfile, error) {
	if _, err := s.CurrentUser(ctx, sess); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.database.UpdateUser(ctx, sess.Username, db.UserUpdate{
		Height:   &in.Height,
		Weight:   &in.Weight,
		Age:      &in.Age,
		Gender:   &in.Gender,
		Activity: &in.Activity,
		Deficit:  &in.Deficit,
	}); err != nil {
		return nil, fmt.Errorf("SetupProfile: %w", err)
	}
	return s.CurrentUser(ctx, sess)
}

// ResetPlan sends the user back to onboarding by zeroing the height.
func (s *Service) ResetPlan(ctx context.Context, sess *session.Session) error {
	if _, err := s.CurrentUser(ctx, sess); err != nil {
		return err
	}
	zero := 0.0
	if _, err := s.database.UpdateUser(ctx, sess.Username, db.UserUpdate{Height: &zero}); err != nil {
		return fmt.Errorf("ResetPlan: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Calibration
// ---------------------------------------------------------------------------

// CalibrateInput is the daily status form.
type CalibrateInput struct {
	Weight   float64
	Exercise int
	Mode     models.CarbMode
	Day      string // optional; switches the viewed day first
}

// Calibrate records the day's weight, exercise and mode. The day's calibration
// row is updated in place when it exists and inserted with zero intake
// otherwise. The user's stored weight follows the calibrated weight.
func (s *Service) Calibrate(ctx context.Context, sess *session.Session, in CalibrateInput) (*models.DietLogEntry, error) {
	u, err := s.requireProfile(ctx, sess)
	if err != nil {
		return nil, err
	}
	if in.Weight < MinWeight || in.Weight > MaxWeight {
		return nil, fmt.Errorf("%w: weight must be %.0f-%.0f kg", ErrInvalidProfile, MinWeight, MaxWeight)
	}
	if in.Exercise < 0 {
		return nil, fmt.Errorf("%w: exercise must not be negative", ErrInvalidProfile)
	}
	if in.Mode == "" {
		in.Mode = sess.Mode
	}
	now := s.now()
	day := sess.Day(now)
	if in.Day != "" {
		if _, err := time.Parse(models.DayLayout, in.Day); err != nil {
			return nil, fmt.Errorf("%w %q: want YYYY-MM-DD", session.ErrInvalidDate, in.Day)
		}
		day = in.Day
	}

	calibrated := *u
	calibrated.Weight = in.Weight
	target := nutrition.Compute(nutrition.InputFor(&calibrated, in.Exercise, in.Mode)).Calories

	var entry *models.DietLogEntry
	err = s.database.WithTx(ctx, func(tx *db.Tx) error {
		if _, err := tx.UpdateUser(ctx, u.Username, db.UserUpdate{Weight: &in.Weight}); err != nil {
			return fmt.Errorf("Calibrate: update weight: %w", err)
		}

		existing, found, err := tx.FindCalibrationLog(ctx, u.Username, day)
		if err != nil {
			return fmt.Errorf("Calibrate: %w", err)
		}
		if found {
			if _, err := tx.UpdateLog(ctx, existing.ID, db.LogUpdate{
				Weight:  &in.Weight,
				Target:  &target,
				Deficit: &target,
				Mode:    &in.Mode,
			}); err != nil {
				return fmt.Errorf("Calibrate: update: %w", err)
			}
			existing.Weight, existing.Target, existing.Deficit, existing.Mode = in.Weight, target, target, in.Mode
			entry = existing
			slog.Debug("Calibrate: updated", "id", existing.ID, "day", day)
			return nil
		}

		entry = &models.DietLogEntry{
			Username: u.Username,
			Day:      day,
			Clock:    models.ClockString(now),
			Kind:     models.KindCalibration,
			Target:   target,
			Weight:   in.Weight,
			Deficit:  target,
			Mode:     in.Mode,
		}
		id, err := tx.InsertLog(ctx, entry)
		if err != nil {
			return fmt.Errorf("Calibrate: insert: %w", err)
		}
		entry.ID = id
		slog.Debug("Calibrate: inserted", "id", id, "day", day)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Session state follows the database only once the calibration is stored.
	if in.Day != "" {
		sess.ViewDate = in.Day
	}
	sess.Exercise = in.Exercise
	sess.Mode = in.Mode
	return entry, nil
}

// ---------------------------------------------------------------------------
// Dashboard
// ---------------------------------------------------------------------------

// Dashboard computes the viewed day's target and merges the persisted logs
// with the session's tray.
func (s *Service) Dashboard(ctx context.Context, sess *session.Session) (*models.Dashboard, error) {
	u, err := s.requireProfile(ctx, sess)
	if err != nil {
		return nil, err
	}
	now := s.now()
	day := sess.Day(now)
	dayTime, err := time.ParseInLocation(models.DayLayout, day, now.Location())
	if err != nil {
		return nil, fmt.Errorf("Dashboard: %w", err)
	}

	logs, err := s.database.FindLogsByUsernameAndDay(ctx, u.Username, dayTime)
	if err != nil {
		return nil, fmt.Errorf("Dashboard: %w", err)
	}
	var persisted models.Macros
	for i := range logs {
		persisted = persisted.Add(models.Macros{
			Calories: logs[i].Intake,
			Protein:  logs[i].Protein,
			Carbs:    logs[i].Carbs,
			Fat:      logs[i].Fat,
		})
	}

	t := nutrition.Compute(nutrition.InputFor(u, sess.Exercise, sess.Mode))
	tr := sess.Tray()
	merged := tr.MergedView(persisted)
	return &models.Dashboard{
		Username: u.Username,
		Day:      day,
		IsToday:  sess.IsToday(now),
		Mode:     sess.Mode,
		Exercise: sess.Exercise,
		Weight:   u.Weight,
		BMR:      t.BMR,
		TDEE:     t.TDEE,
		Target: models.Macros{
			Calories: t.Calories,
			Protein:  float64(t.Protein),
			Carbs:    float64(t.Carbs),
			Fat:      float64(t.Fat),
		},
		Persisted: persisted,
		Tray:      tr.Items(),
		Merged:    merged,
		Remaining: t.Calories - merged.Calories,
	}, nil
}

// SetViewDate switches the viewed day. An empty day means the current day.
func (s *Service) SetViewDate(sess *session.Session, day string) error {
	if !sess.LoggedIn() {
		return ErrNotLoggedIn
	}
	if day == "" || strings.EqualFold(day, "today") {
		sess.ViewDate = ""
		return nil
	}
	return sess.SetViewDate(day)
}

// ---------------------------------------------------------------------------
// Tray
// ---------------------------------------------------------------------------

// AddFood stages a food from the static table, scaled to grams.
func (s *Service) AddFood(sess *session.Session, key string, grams int) (models.FoodItem, error) {
	if !sess.LoggedIn() {
		return models.FoodItem{}, ErrNotLoggedIn
	}
	item, err := nutrition.Lookup(key, grams)
	if errors.Is(err, nutrition.ErrUnknownFood) {
		if hints := search.Suggest(key, 3); len(hints) > 0 {
			return models.FoodItem{}, fmt.Errorf("%w (did you mean %s?)", err, strings.Join(hints, ", "))
		}
	}
	if err != nil {
		return models.FoodItem{}, err
	}
	return item, sess.Tray().Add(item)
}

// AddCustomFood stages a free-form item.
func (s *Service) AddCustomFood(sess *session.Session, name string, calories int, protein, carbs, fat float64) (models.FoodItem, error) {
	if !sess.LoggedIn() {
		return models.FoodItem{}, ErrNotLoggedIn
	}
	item, err := nutrition.Custom(name, calories, protein, carbs, fat)
	if err != nil {
		return models.FoodItem{}, err
	}
	return item, sess.Tray().Add(item)
}

// ClearTray empties the session's tray.
func (s *Service) ClearTray(sess *session.Session) error {
	if !sess.LoggedIn() {
		return ErrNotLoggedIn
	}
	sess.Tray().Clear()
	return nil
}

// Commit logs the session's tray as one intake entry for the viewed day.
// persist, when non-nil, runs inside the same transaction after the insert;
// its failure rolls the insert back. On any failure the tray is restored.
func (s *Service) Commit(ctx context.Context, sess *session.Session, persist func() error) (*models.DietLogEntry, error) {
	u, err := s.requireProfile(ctx, sess)
	if err != nil {
		return nil, err
	}
	tr := sess.Tray()
	if tr.Len() == 0 {
		return nil, tray.ErrEmptyTray
	}

	now := s.now()
	cc := tray.CommitContext{
		Username: u.Username,
		Day:      sess.Day(now),
		Now:      now,
		Target:   nutrition.Compute(nutrition.InputFor(u, sess.Exercise, sess.Mode)).Calories,
		Exercise: sess.Exercise,
		Weight:   u.Weight,
		Mode:     sess.Mode,
	}

	staged := tr.Items()
	var entry *models.DietLogEntry
	err = s.database.WithTx(ctx, func(tx *db.Tx) error {
		e, err := tr.Commit(ctx, tx, cc)
		if err != nil {
			return err
		}
		entry = e
		if persist != nil {
			if err := persist(); err != nil {
				return fmt.Errorf("%w: %w", tray.ErrCommitFailed, err)
			}
		}
		return nil
	})
	if err != nil {
		restoreTray(tr, staged)
		if !errors.Is(err, tray.ErrCommitFailed) {
			err = fmt.Errorf("%w: %w", tray.ErrCommitFailed, err)
		}
		return nil, fmt.Errorf("Commit: %w", err)
	}
	return entry, nil
}

// restoreTray puts staged back into tr after a rolled-back commit.
func restoreTray(tr *tray.Tray, staged []models.FoodItem) {
	tr.Clear()
	for _, it := range staged {
		if err := tr.Add(it); err != nil {
			slog.Warn("restoreTray: dropped item", "name", it.Name, "err", err)
		}
	}
}

// ---------------------------------------------------------------------------
// Trend
// ---------------------------------------------------------------------------

// TrendReport is the aggregated history of one user over a day range.
type TrendReport struct {
	Username string
	Range    trend.Range
	Days     []models.DailySummary
	HasData  bool // false when the user has no logs at all
}

// Trend aggregates the user's logs per day and filters them to [from, to].
// Empty bounds fall back to the configured default window.
func (s *Service) Trend(ctx context.Context, sess *session.Session, from, to string) (*TrendReport, error) {
	u, err := s.CurrentUser(ctx, sess)
	if err != nil {
		return nil, err
	}
	logs, err := s.database.FindAllLogsByUsername(ctx, u.Username)
	if err != nil {
		return nil, fmt.Errorf("Trend: %w", err)
	}
	all := trend.Aggregate(logs)
	r, err := trend.ResolveRange(all, s.Config.Trend.WindowDays, from, to)
	if err != nil {
		return nil, err
	}
	return &TrendReport{
		Username: u.Username,
		Range:    r,
		Days:     trend.Filter(all, r),
		HasData:  len(all) > 0,
	}, nil
}
