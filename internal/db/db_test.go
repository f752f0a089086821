package db_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	_ "github.com/mattn/go-sqlite3"

	"github.com/go-ports/dietvault/internal/db"
	"github.com/go-ports/dietvault/internal/models"
)

// openTestDB opens a fresh SQLite database in a temp directory and registers
// t.Cleanup to close it.
func openTestDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("openTestDB: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// openWithUser opens a database that already holds user "amy".
func openWithUser(t *testing.T) *db.DB {
	t.Helper()
	d := openTestDB(t)
	if err := d.InsertUser(context.Background(), "amy", "pw"); err != nil {
		t.Fatalf("InsertUser: %v", err)
	}
	return d
}

// newLog returns an intake entry for amy on day.
func newLog(day, clock string, intake int) *models.DietLogEntry {
	return &models.DietLogEntry{
		Username: "amy",
		Day:      day,
		Clock:    clock,
		Kind:     models.KindIntake,
		Target:   1500,
		Intake:   intake,
		Weight:   55,
		Deficit:  1500 - intake,
		Protein:  10,
		Carbs:    20,
		Fat:      5,
		Mode:     models.HighCarb,
	}
}

func ptr[T any](v T) *T { return &v }

// ---------------------------------------------------------------------------
// Open
// ---------------------------------------------------------------------------

func TestOpen_HappyPath(t *testing.T) {
	c := qt.New(t)
	d := openTestDB(t)
	c.Assert(d, qt.IsNotNil)

	v, ok, err := d.GetMeta("schema_version")
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)
	c.Assert(v, qt.Equals, "2")
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	c := qt.New(t)
	path := filepath.Join(t.TempDir(), "reopen.db")

	d, err := db.Open(path)
	c.Assert(err, qt.IsNil)
	c.Assert(d.InsertUser(context.Background(), "amy", "pw"), qt.IsNil)
	c.Assert(d.Close(), qt.IsNil)

	d, err = db.Open(path)
	c.Assert(err, qt.IsNil)
	defer d.Close()
	_, found, err := d.GetUser(context.Background(), "amy")
	c.Assert(err, qt.IsNil)
	c.Assert(found, qt.IsTrue)
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

func TestInsertUser(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	c.Run("new user has empty profile and hashed password", func(c *qt.C) {
		d := openWithUser(t)
		u, found, err := d.GetUser(ctx, "amy")
		c.Assert(err, qt.IsNil)
		c.Assert(found, qt.IsTrue)
		c.Assert(u.NeedsOnboarding(), qt.IsTrue)
		c.Assert(u.Password, qt.Not(qt.Equals), "pw")
		c.Assert(u.Gender, qt.Equals, models.Female)
	})

	c.Run("duplicate username returns ErrUserExists", func(c *qt.C) {
		d := openWithUser(t)
		err := d.InsertUser(ctx, "amy", "other")
		c.Assert(err, qt.ErrorIs, db.ErrUserExists)
	})
}

func TestFindUserByCredentials(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	d := openWithUser(t)

	cases := []struct {
		name      string
		username  string
		password  string
		wantFound bool
	}{
		{"matching credentials", "amy", "pw", true},
		{"wrong password", "amy", "nope", false},
		{"unknown user", "bob", "pw", false},
	}

	for _, tc := range cases {
		c.Run(tc.name, func(c *qt.C) {
			u, found, err := d.FindUserByCredentials(ctx, tc.username, tc.password)
			c.Assert(err, qt.IsNil)
			c.Assert(found, qt.Equals, tc.wantFound)
			if tc.wantFound {
				c.Assert(u.Username, qt.Equals, tc.username)
			} else {
				c.Assert(u, qt.IsNil)
			}
		})
	}
}

func TestUpdateUser(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	c.Run("applies only the set fields", func(c *qt.C) {
		d := openWithUser(t)
		found, err := d.UpdateUser(ctx, "amy", db.UserUpdate{
			Height:   ptr(160.0),
			Weight:   ptr(55.0),
			Age:      ptr(25),
			Gender:   ptr(models.Male),
			Activity: ptr(1.375),
			Deficit:  ptr(15),
		})
		c.Assert(err, qt.IsNil)
		c.Assert(found, qt.IsTrue)

		found, err = d.UpdateUser(ctx, "amy", db.UserUpdate{Weight: ptr(54.2)})
		c.Assert(err, qt.IsNil)
		c.Assert(found, qt.IsTrue)

		u, _, err := d.GetUser(ctx, "amy")
		c.Assert(err, qt.IsNil)
		c.Assert(u.Height, qt.Equals, 160.0)
		c.Assert(u.Weight, qt.Equals, 54.2)
		c.Assert(u.Age, qt.Equals, 25)
		c.Assert(u.Gender, qt.Equals, models.Male)
		c.Assert(u.Activity, qt.Equals, 1.375)
		c.Assert(u.Deficit, qt.Equals, 15)
	})

	c.Run("unknown user returns false", func(c *qt.C) {
		d := openTestDB(t)
		found, err := d.UpdateUser(ctx, "ghost", db.UserUpdate{Height: ptr(0.0)})
		c.Assert(err, qt.IsNil)
		c.Assert(found, qt.IsFalse)
	})

	c.Run("empty update reports existence", func(c *qt.C) {
		d := openWithUser(t)
		found, err := d.UpdateUser(ctx, "amy", db.UserUpdate{})
		c.Assert(err, qt.IsNil)
		c.Assert(found, qt.IsTrue)
	})
}

// ---------------------------------------------------------------------------
// Logs
// ---------------------------------------------------------------------------

func TestInsertAndFindLogs(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	d := openWithUser(t)

	for _, e := range []*models.DietLogEntry{
		newLog("2024-01-14", "20:00", 900),
		newLog("2024-01-15", "12:30", 450),
		newLog("2024-01-15", "08:00", 300),
		newLog("2024-01-16", "07:45", 200),
	} {
		_, err := d.InsertLog(ctx, e)
		c.Assert(err, qt.IsNil)
	}

	c.Run("day range returns only that day, ordered by clock", func(c *qt.C) {
		day := time.Date(2024, time.January, 15, 18, 0, 0, 0, time.UTC)
		logs, err := d.FindLogsByUsernameAndDay(ctx, "amy", day)
		c.Assert(err, qt.IsNil)
		c.Assert(logs, qt.HasLen, 2)
		c.Assert(logs[0].Clock, qt.Equals, "08:00")
		c.Assert(logs[1].Intake, qt.Equals, 450)
		c.Assert(logs[1].Kind, qt.Equals, models.KindIntake)
		c.Assert(logs[1].Mode, qt.Equals, models.HighCarb)
	})

	c.Run("all logs are returned oldest first", func(c *qt.C) {
		logs, err := d.FindAllLogsByUsername(ctx, "amy")
		c.Assert(err, qt.IsNil)
		c.Assert(logs, qt.HasLen, 4)
		c.Assert(logs[0].Day, qt.Equals, "2024-01-14")
		c.Assert(logs[3].Day, qt.Equals, "2024-01-16")

		n, err := d.CountLogs(ctx, "amy")
		c.Assert(err, qt.IsNil)
		c.Assert(n, qt.Equals, 4)
	})

	c.Run("other users see nothing", func(c *qt.C) {
		logs, err := d.FindAllLogsByUsername(ctx, "bob")
		c.Assert(err, qt.IsNil)
		c.Assert(logs, qt.HasLen, 0)
	})
}

func TestInsertLog_UnknownUserFails(t *testing.T) {
	c := qt.New(t)
	d := openTestDB(t)

	_, err := d.InsertLog(context.Background(), newLog("2024-01-15", "08:00", 100))
	c.Assert(err, qt.IsNotNil)
}

func TestScanLogs_NullMacrosReadAsZero(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "null.db")

	d, err := db.Open(path)
	c.Assert(err, qt.IsNil)
	defer d.Close()
	c.Assert(d.InsertUser(ctx, "amy", "pw"), qt.IsNil)

	raw, err := sql.Open("sqlite3", path)
	c.Assert(err, qt.IsNil)
	defer raw.Close()
	_, err = raw.Exec(`INSERT INTO diet_logs (username, day, clock, target, intake, weight, deficit, mode, created_at, updated_at)
		VALUES ('amy', '2024-01-15', '09:00', 1500, 200, 55, 1300, 'low-carb', '2024-01-15T09:00:00Z', '2024-01-15T09:00:00Z')`)
	c.Assert(err, qt.IsNil)

	logs, err := d.FindAllLogsByUsername(ctx, "amy")
	c.Assert(err, qt.IsNil)
	c.Assert(logs, qt.HasLen, 1)
	c.Assert(logs[0].Protein, qt.Equals, 0.0)
	c.Assert(logs[0].Carbs, qt.Equals, 0.0)
	c.Assert(logs[0].Fat, qt.Equals, 0.0)
	c.Assert(logs[0].Kind, qt.Equals, models.KindIntake)
}

func TestUpdateLogAndCalibration(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	d := openWithUser(t)

	_, found, err := d.FindCalibrationLog(ctx, "amy", "2024-01-15")
	c.Assert(err, qt.IsNil)
	c.Assert(found, qt.IsFalse)

	cal := newLog("2024-01-15", "07:00", 0)
	cal.Kind = models.KindCalibration
	id, err := d.InsertLog(ctx, cal)
	c.Assert(err, qt.IsNil)
	_, err = d.InsertLog(ctx, newLog("2024-01-15", "12:00", 500))
	c.Assert(err, qt.IsNil)

	ok, err := d.UpdateLog(ctx, id, db.LogUpdate{
		Weight:  ptr(54.5),
		Target:  ptr(1600),
		Deficit: ptr(1600),
		Mode:    ptr(models.LowCarb),
	})
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)

	got, found, err := d.FindCalibrationLog(ctx, "amy", "2024-01-15")
	c.Assert(err, qt.IsNil)
	c.Assert(found, qt.IsTrue)
	c.Assert(got.ID, qt.Equals, id)
	c.Assert(got.Weight, qt.Equals, 54.5)
	c.Assert(got.Target, qt.Equals, 1600)
	c.Assert(got.Mode, qt.Equals, models.LowCarb)

	ok, err = d.UpdateLog(ctx, 9999, db.LogUpdate{Weight: ptr(1.0)})
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsFalse)
}

// ---------------------------------------------------------------------------
// WithTx
// ---------------------------------------------------------------------------

func TestWithTx(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	c.Run("commit makes insert visible", func(c *qt.C) {
		d := openWithUser(t)
		err := d.WithTx(ctx, func(tx *db.Tx) error {
			_, err := tx.InsertLog(ctx, newLog("2024-01-15", "08:00", 300))
			return err
		})
		c.Assert(err, qt.IsNil)
		n, err := d.CountLogs(ctx, "amy")
		c.Assert(err, qt.IsNil)
		c.Assert(n, qt.Equals, 1)
	})

	c.Run("error rolls back insert", func(c *qt.C) {
		d := openWithUser(t)
		boom := errors.New("boom")
		err := d.WithTx(ctx, func(tx *db.Tx) error {
			if _, err := tx.InsertLog(ctx, newLog("2024-01-15", "08:00", 300)); err != nil {
				return err
			}
			return boom
		})
		c.Assert(err, qt.ErrorIs, boom)
		n, err := d.CountLogs(ctx, "amy")
		c.Assert(err, qt.IsNil)
		c.Assert(n, qt.Equals, 0)
	})
	c.Run("error rolls back user and calibration updates", func(c *qt.C) {
		d := openWithUser(t)
		cal := newLog("2024-01-15", "07:00", 0)
		cal.Kind = models.KindCalibration
		id, err := d.InsertLog(ctx, cal)
		c.Assert(err, qt.IsNil)

		boom := errors.New("boom")
		err = d.WithTx(ctx, func(tx *db.Tx) error {
			ok, err := tx.UpdateUser(ctx, "amy", db.UserUpdate{Weight: ptr(80.0)})
			if err != nil || !ok {
				return errors.New("UpdateUser failed")
			}
			got, found, err := tx.FindCalibrationLog(ctx, "amy", "2024-01-15")
			if err != nil || !found || got.ID != id {
				return errors.New("FindCalibrationLog failed")
			}
			if _, err := tx.UpdateLog(ctx, id, db.LogUpdate{Weight: ptr(80.0)}); err != nil {
				return err
			}
			return boom
		})
		c.Assert(err, qt.ErrorIs, boom)

		u, _, err := d.GetUser(ctx, "amy")
		c.Assert(err, qt.IsNil)
		c.Assert(u.Weight, qt.Not(qt.Equals), 80.0)
		got, _, err := d.FindCalibrationLog(ctx, "amy", "2024-01-15")
		c.Assert(err, qt.IsNil)
		c.Assert(got.Weight, qt.Equals, 55.0)
	})
}
