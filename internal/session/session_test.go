package session_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/dietvault/internal/models"
	"github.com/go-ports/dietvault/internal/session"
)

var now = time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC)

func TestSession_Day(t *testing.T) {
	c := qt.New(t)

	s := session.New("x", "")
	c.Assert(s.Mode, qt.Equals, models.HighCarb)
	c.Assert(s.Day(now), qt.Equals, "2024-01-15")
	c.Assert(s.IsToday(now), qt.IsTrue)

	c.Assert(s.SetViewDate("2024-01-10"), qt.IsNil)
	c.Assert(s.Day(now), qt.Equals, "2024-01-10")
	c.Assert(s.IsToday(now), qt.IsFalse)

	c.Assert(s.SetViewDate("10/01/2024"), qt.ErrorIs, session.ErrInvalidDate)
	c.Assert(s.Day(now), qt.Equals, "2024-01-10")
}

func TestSession_LoginAndReset(t *testing.T) {
	c := qt.New(t)

	s := session.New("x", models.LowCarb)
	c.Assert(s.LoggedIn(), qt.IsFalse)
	c.Assert(s.Tray().Add(models.FoodItem{Name: "A", Calories: 100}), qt.IsNil)
	s.Exercise = 200

	s.Login("amy")
	c.Assert(s.LoggedIn(), qt.IsTrue)
	c.Assert(s.Tray().Len(), qt.Equals, 0)
	c.Assert(s.Exercise, qt.Equals, 0)
	c.Assert(s.Mode, qt.Equals, models.LowCarb)

	s.Reset()
	c.Assert(s.LoggedIn(), qt.IsFalse)
}

func TestLoadSave_RoundTrip(t *testing.T) {
	c := qt.New(t)
	path := filepath.Join(t.TempDir(), "nested", session.FileName)

	c.Run("missing file yields fresh session", func(c *qt.C) {
		s, err := session.Load(path, models.LowCarb)
		c.Assert(err, qt.IsNil)
		c.Assert(s.LoggedIn(), qt.IsFalse)
		c.Assert(s.Mode, qt.Equals, models.LowCarb)
		c.Assert(s.Tray().Len(), qt.Equals, 0)
	})

	c.Run("saved state is restored", func(c *qt.C) {
		s := session.New("cli", models.HighCarb)
		s.Login("amy")
		s.Exercise = 300
		s.Mode = models.LowCarb
		c.Assert(s.SetViewDate("2024-01-14"), qt.IsNil)
		item := models.FoodItem{Name: "Apple 100g", Calories: 52, Protein: 0.2, Carbs: 13.5, Fat: 0.2}
		c.Assert(s.Tray().Add(item), qt.IsNil)
		c.Assert(s.Save(path), qt.IsNil)

		got, err := session.Load(path, models.HighCarb)
		c.Assert(err, qt.IsNil)
		c.Assert(got.Username, qt.Equals, "amy")
		c.Assert(got.Exercise, qt.Equals, 300)
		c.Assert(got.Mode, qt.Equals, models.LowCarb)
		c.Assert(got.ViewDate, qt.Equals, "2024-01-14")
		c.Assert(got.Tray().Items(), qt.DeepEquals, []models.FoodItem{item})

		_, err = os.Stat(path + ".tmp")
		c.Assert(os.IsNotExist(err), qt.IsTrue)
	})

	c.Run("corrupt file is an error", func(c *qt.C) {
		bad := filepath.Join(t.TempDir(), session.FileName)
		c.Assert(os.WriteFile(bad, []byte("tray: {not: [a list"), 0o600), qt.IsNil)
		_, err := session.Load(bad, models.HighCarb)
		c.Assert(err, qt.IsNotNil)
	})
}

func TestRegistry(t *testing.T) {
	c := qt.New(t)

	r := session.NewRegistry(models.LowCarb)
	a := r.Get("a")
	b := r.Get("b")
	c.Assert(a, qt.Not(qt.Equals), b)
	c.Assert(r.Get("a"), qt.Equals, a)
	c.Assert(a.Mode, qt.Equals, models.LowCarb)
	c.Assert(r.Len(), qt.Equals, 2)

	c.Assert(a.Tray().Add(models.FoodItem{Name: "A", Calories: 100}), qt.IsNil)
	c.Assert(b.Tray().Len(), qt.Equals, 0)

	_, ok := r.Lookup("c")
	c.Assert(ok, qt.IsFalse)

	r.Drop("a")
	_, ok = r.Lookup("a")
	c.Assert(ok, qt.IsFalse)
	c.Assert(r.Len(), qt.Equals, 1)
}

func TestRegistry_WithSerializes(t *testing.T) {
	c := qt.New(t)

	r := session.NewRegistry(models.HighCarb)
	const workers = 32

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.With("shared", func(s *session.Session) error {
				s.Exercise++
				return s.Tray().Add(models.FoodItem{Name: "A", Calories: 10})
			})
		}()
	}
	wg.Wait()

	s := r.Get("shared")
	c.Assert(s.Tray().Len(), qt.Equals, workers)
	c.Assert(s.Tray().Totals().Calories, qt.Equals, 10*workers)
	c.Assert(s.Exercise, qt.Equals, workers)
}

func TestRegistry_Sweep(t *testing.T) {
	c := qt.New(t)

	r := session.NewRegistry(models.HighCarb)
	r.Get("old")
	r.Get("new")
	r.Get("forever")
	r.SetExpiry("old", now)
	r.SetExpiry("new", now.Add(time.Hour))
	r.SetExpiry("missing", now)

	c.Assert(r.Sweep(now.Add(-time.Minute)), qt.Equals, 0)
	c.Assert(r.Sweep(now), qt.Equals, 1)
	_, ok := r.Lookup("old")
	c.Assert(ok, qt.IsFalse)
	c.Assert(r.Len(), qt.Equals, 2)

	r.Drop("new")
	c.Assert(r.Sweep(now.Add(2*time.Hour)), qt.Equals, 0)
	_, ok = r.Lookup("forever")
	c.Assert(ok, qt.IsTrue)
}
