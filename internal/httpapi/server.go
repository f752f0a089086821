// Package httpapi serves the diet operations over a JSON HTTP API with
// bearer-token sessions.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/go-ports/dietvault/internal/db"
	"github.com/go-ports/dietvault/internal/models"
	"github.com/go-ports/dietvault/internal/nutrition"
	"github.com/go-ports/dietvault/internal/service"
	"github.com/go-ports/dietvault/internal/session"
	"github.com/go-ports/dietvault/internal/tray"
	"github.com/go-ports/dietvault/internal/trend"
)

const unauthorized = "Unauthorized access"

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 1 << 20

type ctxKey struct{}

// claims is the token payload: sub is the username, sid keys the server-side
// session holding the tray.
type claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Server holds the service, the session registry and the token settings.
type Server struct {
	svc      *service.Service
	sessions *session.Registry
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

// New builds a Server from svc's configuration. When no signing secret is
// configured a random one is generated, so tokens do not survive a restart.
func New(svc *service.Service) *Server {
	secret := svc.Config.Server.JWTSecret
	if secret == "" {
		slog.Warn("httpapi: server.jwt_secret not set; using an ephemeral secret")
		secret = uuid.NewString() + uuid.NewString()
	}
	ttl := svc.Config.Server.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Server{
		svc:      svc,
		sessions: svc.NewRegistry(),
		secret:   []byte(secret),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Handler returns the router with every route registered.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Post("/api/v1/signUp", s.handleSignUp)
	r.Post("/api/v1/signIn", s.handleSignIn)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.Post("/api/v1/signOut", s.handleSignOut)
		r.Get("/api/v1/dashboard", s.handleDashboard)
		r.Put("/api/v1/profile", s.handleProfile)
		r.Post("/api/v1/calibration", s.handleCalibration)
		r.Post("/api/v1/tray", s.handleTrayAdd)
		r.Delete("/api/v1/tray", s.handleTrayClear)
		r.Post("/api/v1/tray/commit", s.handleTrayCommit)
		r.Get("/api/v1/trend", s.handleTrend)
	})

	return r
}

// ListenAndServe serves the API on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// authenticate validates the bearer token and attaches its session to the
// request context, holding the session's lock until the handler returns.
// Every failure gets the same generic 401.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			http.Error(w, unauthorized, http.StatusUnauthorized)
			return
		}
		c, err := s.parseToken(token)
		if err != nil {
			http.Error(w, unauthorized, http.StatusUnauthorized)
			return
		}
		sess, found := s.sessions.Lookup(c.SessionID)
		if !found {
			http.Error(w, unauthorized, http.StatusUnauthorized)
			return
		}
		sess.Lock()
		defer sess.Unlock()
		if sess.Username != c.Subject {
			http.Error(w, unauthorized, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, sess)))
	})
}

func sessionFrom(r *http.Request) *session.Session {
	sess, _ := r.Context().Value(ctxKey{}).(*session.Session)
	return sess
}

// ---------------------------------------------------------------------------
// Tokens
// ---------------------------------------------------------------------------

func (s *Server) issueToken(username, sid string) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		SessionID: sid,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Issuer:    "dietvault",
		},
	})
	return token.SignedString(s.secret)
}

func (s *Server) parseToken(raw string) (*claims, error) {
	c := &claims{}
	token, err := jwt.ParseWithClaims(raw, c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || c.SessionID == "" || c.Subject == "" {
		return nil, errors.New("invalid token")
	}
	return c, nil
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decode(w, r, &req) {
		return
	}
	if err := s.svc.Register(r.Context(), req.Username, req.Password); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "User registered successfully"})
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decode(w, r, &req) {
		return
	}
	now := s.now()
	if n := s.sessions.Sweep(now); n > 0 {
		slog.Debug("httpapi: dropped expired sessions", "count", n)
	}
	sid := uuid.NewString()
	sess := s.sessions.Get(sid)
	u, err := s.svc.Login(r.Context(), sess, req.Username, req.Password)
	if err != nil {
		s.sessions.Drop(sid)
		writeError(w, err)
		return
	}
	token, err := s.issueToken(u.Username, sid)
	if err != nil {
		s.sessions.Drop(sid)
		writeError(w, err)
		return
	}
	s.sessions.SetExpiry(sid, now.Add(s.ttl))
	writeJSON(w, http.StatusOK, map[string]any{
		"token":            token,
		"needs_onboarding": u.NeedsOnboarding(),
	})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	s.svc.Logout(sess)
	s.sessions.Drop(sess.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if date := r.URL.Query().Get("date"); date != "" {
		if err := s.svc.SetViewDate(sess, date); err != nil {
			writeError(w, err)
			return
		}
	}
	d, err := s.svc.Dashboard(r.Context(), sess)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newDashboardResponse(d))
}

type profileRequest struct {
	Height   float64 `json:"height"`
	Weight   float64 `json:"weight"`
	Age      int     `json:"age"`
	Gender   string  `json:"gender"`
	Activity string  `json:"activity"`
	Deficit  *int    `json:"deficit"`
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !decode(w, r, &req) {
		return
	}
	gender, err := models.ParseGender(req.Gender)
	if err != nil {
		writeError(w, err)
		return
	}
	activity, err := nutrition.ParseActivity(req.Activity)
	if err != nil {
		writeError(w, err)
		return
	}
	deficit := 15
	if req.Deficit != nil {
		deficit = *req.Deficit
	}
	u, err := s.svc.SetupProfile(r.Context(), sessionFrom(r), service.ProfileInput{
		Height:   req.Height,
		Weight:   req.Weight,
		Age:      req.Age,
		Gender:   gender,
		Activity: activity,
		Deficit:  deficit,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"username": u.Username,
		"height":   u.Height,
		"weight":   u.Weight,
		"age":      u.Age,
		"gender":   u.Gender,
		"activity": nutrition.ActivityLabel(u.Activity),
		"deficit":  u.Deficit,
	})
}

type calibrationRequest struct {
	Weight   float64 `json:"weight"`
	Exercise int     `json:"exercise"`
	Mode     string  `json:"mode"`
	Date     string  `json:"date"`
}

func (s *Server) handleCalibration(w http.ResponseWriter, r *http.Request) {
	var req calibrationRequest
	if !decode(w, r, &req) {
		return
	}
	var mode models.CarbMode
	if req.Mode != "" {
		m, err := models.ParseCarbMode(req.Mode)
		if err != nil {
			writeError(w, err)
			return
		}
		mode = m
	}
	entry, err := s.svc.Calibrate(r.Context(), sessionFrom(r), service.CalibrateInput{
		Weight:   req.Weight,
		Exercise: req.Exercise,
		Mode:     mode,
		Day:      req.Date,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newEntryResponse(entry))
}

type trayAddRequest struct {
	Food     string  `json:"food"`
	Grams    *int    `json:"grams"`
	Name     string  `json:"name"`
	Calories int     `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

func (s *Server) handleTrayAdd(w http.ResponseWriter, r *http.Request) {
	var req trayAddRequest
	if !decode(w, r, &req) {
		return
	}
	sess := sessionFrom(r)
	var err error
	if req.Food != "" {
		grams := nutrition.DefaultGrams
		if req.Grams != nil {
			grams = *req.Grams
		}
		_, err = s.svc.AddFood(sess, req.Food, grams)
	} else {
		_, err = s.svc.AddCustomFood(sess, req.Name, req.Calories, req.Protein, req.Carbs, req.Fat)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newTrayResponse(sess.Tray()))
}

func (s *Server) handleTrayClear(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if err := s.svc.ClearTray(sess); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTrayResponse(sess.Tray()))
}

func (s *Server) handleTrayCommit(w http.ResponseWriter, r *http.Request) {
	entry, err := s.svc.Commit(r.Context(), sessionFrom(r), nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newEntryResponse(entry))
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	report, err := s.svc.Trend(r.Context(), sessionFrom(r), q.Get("from"), q.Get("to"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTrendResponse(report))
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("writeJSON", "err", err)
	}
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrNotLoggedIn):
		return http.StatusUnauthorized
	case errors.Is(err, db.ErrUserExists), errors.Is(err, service.ErrOnboardingRequired),
		errors.Is(err, tray.ErrEmptyTray):
		return http.StatusConflict
	case errors.Is(err, service.ErrUsernameRequired), errors.Is(err, service.ErrPasswordRequired),
		errors.Is(err, service.ErrInvalidProfile), errors.Is(err, nutrition.ErrUnknownFood),
		errors.Is(err, nutrition.ErrInvalidActivity), errors.Is(err, nutrition.ErrInvalidFood),
		errors.Is(err, models.ErrInvalidGender), errors.Is(err, models.ErrInvalidMode),
		errors.Is(err, tray.ErrNonPositiveCalories), errors.Is(err, session.ErrInvalidDate),
		errors.Is(err, trend.ErrInvalidRange):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch status {
	case http.StatusUnauthorized:
		msg = unauthorized
		if errors.Is(err, service.ErrInvalidCredentials) {
			msg = "Invalid credentials"
		}
	case http.StatusInternalServerError:
		slog.Error("httpapi", "err", err)
		msg = "Internal server error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}
