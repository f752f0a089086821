// Package session holds per-client state: the logged-in user, the viewed day,
// the day's exercise and carb mode, and the tray.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/go-ports/dietvault/internal/models"
	"github.com/go-ports/dietvault/internal/tray"
)

// ErrInvalidDate is returned for a viewed day not in YYYY-MM-DD form.
var ErrInvalidDate = errors.New("invalid date")

// FileName is the CLI session file inside the diet home.
const FileName = "session.yaml"

// Session is one client's state. Each session owns exactly one tray.
//
// Sessions shared across goroutines (MCP, HTTP) must be held with Lock for the
// whole operation; the fields and the tray are not otherwise synchronized.
type Session struct {
	ID       string
	Username string
	ViewDate string // YYYY-MM-DD; empty means the current day
	Mode     models.CarbMode
	Exercise int

	mu   sync.Mutex
	tray *tray.Tray
}

// Lock serializes operations on the session.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases a session taken with Lock.
func (s *Session) Unlock() { s.mu.Unlock() }

// New returns an anonymous session with an empty tray.
func New(id string, mode models.CarbMode) *Session {
	if mode == "" {
		mode = models.HighCarb
	}
	return &Session{ID: id, Mode: mode, tray: &tray.Tray{}}
}

// Tray returns the session's tray.
func (s *Session) Tray() *tray.Tray {
	if s.tray == nil {
		s.tray = &tray.Tray{}
	}
	return s.tray
}

// LoggedIn reports whether a user is attached to the session.
func (s *Session) LoggedIn() bool { return s.Username != "" }

// Day returns the viewed day, defaulting to now's date.
func (s *Session) Day(now time.Time) string {
	if s.ViewDate != "" {
		return s.ViewDate
	}
	return models.DayString(now)
}

// IsToday reports whether the viewed day is now's date.
func (s *Session) IsToday(now time.Time) bool {
	return s.Day(now) == models.DayString(now)
}

// SetViewDate validates and stores the viewed day.
func (s *Session) SetViewDate(day string) error {
	if _, err := time.Parse(models.DayLayout, day); err != nil {
		return fmt.Errorf("%w %q: want YYYY-MM-DD", ErrInvalidDate, day)
	}
	s.ViewDate = day
	return nil
}

// Login attaches username and starts from a clean slate.
func (s *Session) Login(username string) {
	s.Reset()
	s.Username = username
}

// Reset drops the user, the viewed day, the exercise and the tray.
func (s *Session) Reset() {
	s.Username = ""
	s.ViewDate = ""
	s.Exercise = 0
	s.Tray().Clear()
}

// ---------------------------------------------------------------------------
// File persistence (CLI)
// ---------------------------------------------------------------------------

type fileData struct {
	Username string            `yaml:"username,omitempty"`
	ViewDate string            `yaml:"view_date,omitempty"`
	Mode     models.CarbMode   `yaml:"mode,omitempty"`
	Exercise int               `yaml:"exercise,omitempty"`
	Items    []models.FoodItem `yaml:"tray,omitempty"`
}

// Load reads the session file at path. A missing file yields a fresh
// session using defaultMode.
func Load(path string, defaultMode models.CarbMode) (*Session, error) {
	s := New("cli", defaultMode)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session.Load: %w", err)
	}
	var fd fileData
	if err := yaml.Unmarshal(data, &fd); err != nil {
		return nil, fmt.Errorf("session.Load %s: %w", path, err)
	}
	s.Username = fd.Username
	s.ViewDate = fd.ViewDate
	s.Exercise = fd.Exercise
	if fd.Mode != "" {
		s.Mode = fd.Mode
	}
	s.tray = tray.New(fd.Items...)
	return s, nil
}

// Save writes the session to path atomically.
func (s *Session) Save(path string) error {
	out, err := yaml.Marshal(fileData{
		Username: s.Username,
		ViewDate: s.ViewDate,
		Mode:     s.Mode,
		Exercise: s.Exercise,
		Items:    s.Tray().Items(),
	})
	if err != nil {
		return fmt.Errorf("session.Save: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("session.Save: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o600); err != nil {
		return fmt.Errorf("session.Save: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("session.Save: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Registry (MCP / HTTP)
// ---------------------------------------------------------------------------

// Registry keeps in-memory sessions keyed by client session id.
type Registry struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	expires     map[string]time.Time
	defaultMode models.CarbMode
}

// NewRegistry returns an empty registry whose sessions start in defaultMode.
func NewRegistry(defaultMode models.CarbMode) *Registry {
	return &Registry{
		sessions:    make(map[string]*Session),
		expires:     make(map[string]time.Time),
		defaultMode: defaultMode,
	}
}

// With runs fn on the session for id, creating it on first use, while
// holding the session's lock.
func (r *Registry) With(id string, fn func(*Session) error) error {
	s := r.Get(id)
	s.Lock()
	defer s.Unlock()
	return fn(s)
}

// SetExpiry marks the session for id as expiring at t; Sweep drops it after.
func (r *Registry) SetExpiry(id string, t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; ok {
		r.expires[id] = t
	}
}

// Sweep drops every session whose expiry is not after now and returns how
// many were dropped. Sessions without an expiry are kept.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, at := range r.expires {
		if !now.Before(at) {
			delete(r.sessions, id)
			delete(r.expires, id)
			n++
		}
	}
	return n
}

// Get returns the session for id, creating it on first use.
func (r *Registry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		s = New(id, r.defaultMode)
		r.sessions[id] = s
	}
	return s
}

// Lookup returns the session for id without creating it.
func (r *Registry) Lookup(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Drop forgets the session for id.
func (r *Registry) Drop(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	delete(r.expires, id)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
