// Package db manages the SQLite database holding users and diet logs.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3" // also registers the sqlite3 driver with database/sql
	"golang.org/x/crypto/bcrypt"

	"github.com/go-ports/dietvault/internal/models"
)

// ErrUserExists is returned by InsertUser when the username is taken.
var ErrUserExists = errors.New("user already exists")

// schemaVersion is bumped whenever createSchema gains a migration.
const schemaVersion = "2"

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps a *sql.DB with the path it was opened from.
type DB struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the SQLite database at path and initialises the schema.
func Open(path string) (*DB, error) {
	sqldb, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("db.Open: %w", err)
	}
	d := &DB{db: sqldb, path: path}
	if err := d.createSchema(); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("db.Open createSchema: %w", err)
	}
	return d, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Path returns the file the database was opened from.
func (d *DB) Path() string { return d.path }

// ---------------------------------------------------------------------------
// Schema
// ---------------------------------------------------------------------------

func (d *DB) createSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			username   TEXT PRIMARY KEY,
			password   TEXT NOT NULL,
			height     REAL NOT NULL DEFAULT 0,
			weight     REAL NOT NULL DEFAULT 0,
			age        INTEGER NOT NULL DEFAULT 0,
			gender     TEXT NOT NULL DEFAULT 'female',
			activity   REAL NOT NULL DEFAULT 0,
			deficit    INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS diet_logs (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			username   TEXT NOT NULL REFERENCES users(username),
			day        TEXT NOT NULL,
			clock      TEXT NOT NULL,
			target     INTEGER NOT NULL,
			intake     INTEGER NOT NULL DEFAULT 0,
			weight     REAL NOT NULL,
			deficit    INTEGER NOT NULL,
			protein    REAL,
			carbs      REAL,
			fat        REAL,
			mode       TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS diet_logs_user_day ON diet_logs(username, day)`,
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}

	for _, s := range stmts {
		if _, err := d.db.Exec(s); err != nil {
			return fmt.Errorf("createSchema exec: %w\nSQL: %s", err, s)
		}
	}

	// Migration: add kind column if missing. Rows written before it existed
	// are treated as intake rows.
	rows, err := d.db.Query("PRAGMA table_info(diet_logs)")
	if err != nil {
		return err
	}
	cols := make(map[string]bool)
	for rows.Next() {
		var cid int
		var name, typ string
		var notNull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			rows.Close()
			return err
		}
		cols[name] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if !cols["kind"] {
		if _, err := d.db.Exec("ALTER TABLE diet_logs ADD COLUMN kind TEXT NOT NULL DEFAULT 'intake'"); err != nil {
			return fmt.Errorf("migration kind: %w", err)
		}
	}

	return d.SetMeta("schema_version", schemaVersion)
}

// ---------------------------------------------------------------------------
// Transactions
// ---------------------------------------------------------------------------

// Tx is a write handle bound to an open transaction.
type Tx struct {
	tx *sql.Tx
}

// InsertLog inserts entry inside the transaction.
func (t *Tx) InsertLog(ctx context.Context, entry *models.DietLogEntry) (int64, error) {
	return insertLog(ctx, t.tx, entry)
}

// UpdateUser applies upd to username inside the transaction.
func (t *Tx) UpdateUser(ctx context.Context, username string, upd UserUpdate) (bool, error) {
	return updateUser(ctx, t.tx, username, upd)
}

// UpdateLog applies upd to log id inside the transaction.
func (t *Tx) UpdateLog(ctx context.Context, id int64, upd LogUpdate) (bool, error) {
	return updateLog(ctx, t.tx, id, upd)
}

// FindCalibrationLog reads the calibration row for username on day inside
// the transaction.
func (t *Tx) FindCalibrationLog(ctx context.Context, username, day string) (*models.DietLogEntry, bool, error) {
	return findCalibrationLog(ctx, t.tx, username, day)
}

// WithTx runs fn in a transaction, committing when fn returns nil and rolling
// back otherwise.
func (d *DB) WithTx(ctx context.Context, fn func(*Tx) error) error {
	sqltx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("WithTx begin: %w", err)
	}
	if err := fn(&Tx{tx: sqltx}); err != nil {
		_ = sqltx.Rollback()
		return err
	}
	if err := sqltx.Commit(); err != nil {
		return fmt.Errorf("WithTx commit: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

// InsertUser creates a user with an empty profile. The password is stored
// as a bcrypt hash.
func (d *DB) InsertUser(ctx context.Context, username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("InsertUser hash: %w", err)
	}
	_, err = d.db.ExecContext(ctx,
		`INSERT INTO users (username, password, created_at) VALUES (?, ?, ?)`,
		username, string(hash), time.Now().UTC().Format(time.RFC3339),
	)
	if isConstraint(err) {
		return fmt.Errorf("InsertUser %q: %w", username, ErrUserExists)
	}
	if err != nil {
		return fmt.Errorf("InsertUser: %w", err)
	}
	return nil
}

// GetUser fetches a user by username. Returns (nil, false, nil) if not found.
func (d *DB) GetUser(ctx context.Context, username string) (*models.UserProfile, bool, error) {
	return getUser(ctx, d.db, username)
}

func getUser(ctx context.Context, q querier, username string) (*models.UserProfile, bool, error) {
	row := q.QueryRowContext(ctx, `
		SELECT username, password, height, weight, age, gender, activity, deficit
		FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("GetUser: %w", err)
	}
	return u, true, nil
}

// FindUserByCredentials returns the user only when both the username exists
// and the password matches. Both misses look the same to the caller.
func (d *DB) FindUserByCredentials(ctx context.Context, username, password string) (*models.UserProfile, bool, error) {
	u, found, err := d.GetUser(ctx, username)
	if err != nil || !found {
		return nil, false, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return nil, false, nil
	}
	return u, true, nil
}

// UserUpdate lists the profile fields to change; nil fields are skipped.
type UserUpdate struct {
	Height   *float64
	Weight   *float64
	Age      *int
	Gender   *models.Gender
	Activity *float64
	Deficit  *int
}

// UpdateUser applies the non-nil fields of upd to username.
// Returns true if the user exists.
func (d *DB) UpdateUser(ctx context.Context, username string, upd UserUpdate) (bool, error) {
	return updateUser(ctx, d.db, username, upd)
}

func updateUser(ctx context.Context, q querier, username string, upd UserUpdate) (bool, error) {
	var sets []string
	var params []any
	if upd.Height != nil {
		sets = append(sets, "height = ?")
		params = append(params, *upd.Height)
	}
	if upd.Weight != nil {
		sets = append(sets, "weight = ?")
		params = append(params, *upd.Weight)
	}
	if upd.Age != nil {
		sets = append(sets, "age = ?")
		params = append(params, *upd.Age)
	}
	if upd.Gender != nil {
		sets = append(sets, "gender = ?")
		params = append(params, string(*upd.Gender))
	}
	if upd.Activity != nil {
		sets = append(sets, "activity = ?")
		params = append(params, *upd.Activity)
	}
	if upd.Deficit != nil {
		sets = append(sets, "deficit = ?")
		params = append(params, *upd.Deficit)
	}
	if len(sets) == 0 {
		_, found, err := getUser(ctx, q, username)
		return found, err
	}

	params = append(params, username)
	updQ := "UPDATE users SET " + strings.Join(sets, ", ") + " WHERE username = ?" // #nosec G202 -- SET clause columns are hardcoded; values flow through ? bound parameters
	res, err := q.ExecContext(ctx, updQ, params...)
	if err != nil {
		return false, fmt.Errorf("UpdateUser: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ---------------------------------------------------------------------------
// Logs
// ---------------------------------------------------------------------------

const logColumns = `id, username, day, clock, kind, target, intake, weight, deficit,
		       protein, carbs, fat, mode`

// InsertLog inserts a diet log row and returns its id.
func (d *DB) InsertLog(ctx context.Context, entry *models.DietLogEntry) (int64, error) {
	return insertLog(ctx, d.db, entry)
}

func insertLog(ctx context.Context, q querier, e *models.DietLogEntry) (int64, error) {
	kind := e.Kind
	if kind == "" {
		kind = models.KindIntake
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := q.ExecContext(ctx, `
		INSERT INTO diet_logs (
			username, day, clock, kind, target, intake, weight, deficit,
			protein, carbs, fat, mode, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Username, e.Day, e.Clock, string(kind), e.Target, e.Intake, e.Weight, e.Deficit,
		e.Protein, e.Carbs, e.Fat, string(e.Mode), now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("InsertLog: %w", err)
	}
	return res.LastInsertId()
}

// LogUpdate lists the log fields to change; nil fields are skipped.
type LogUpdate struct {
	Weight  *float64
	Target  *int
	Deficit *int
	Mode    *models.CarbMode
}

// UpdateLog applies the non-nil fields of upd to log id and bumps updated_at.
// Returns true if the row exists.
func (d *DB) UpdateLog(ctx context.Context, id int64, upd LogUpdate) (bool, error) {
	return updateLog(ctx, d.db, id, upd)
}

func updateLog(ctx context.Context, q querier, id int64, upd LogUpdate) (bool, error) {
	sets := []string{"updated_at = ?"}
	params := []any{time.Now().UTC().Format(time.RFC3339Nano)}
	if upd.Weight != nil {
		sets = append(sets, "weight = ?")
		params = append(params, *upd.Weight)
	}
	if upd.Target != nil {
		sets = append(sets, "target = ?")
		params = append(params, *upd.Target)
	}
	if upd.Deficit != nil {
		sets = append(sets, "deficit = ?")
		params = append(params, *upd.Deficit)
	}
	if upd.Mode != nil {
		sets = append(sets, "mode = ?")
		params = append(params, string(*upd.Mode))
	}

	params = append(params, id)
	updQ := "UPDATE diet_logs SET " + strings.Join(sets, ", ") + " WHERE id = ?" // #nosec G202 -- SET clause columns are hardcoded; values flow through ? bound parameters
	res, err := q.ExecContext(ctx, updQ, params...)
	if err != nil {
		return false, fmt.Errorf("UpdateLog: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// FindLogsByUsernameAndDay returns every row logged on day's calendar date,
// oldest first. It is a range query: start-of-day <= day < start-of-next-day.
func (d *DB) FindLogsByUsernameAndDay(ctx context.Context, username string, day time.Time) ([]models.DietLogEntry, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	next := start.AddDate(0, 0, 1)
	return d.FindLogsByUsernameBetween(ctx, username, models.DayString(start), models.DayString(next))
}

// FindLogsByUsernameBetween returns rows with from <= day < to, oldest first.
func (d *DB) FindLogsByUsernameBetween(ctx context.Context, username, from, to string) ([]models.DietLogEntry, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+logColumns+`
		FROM diet_logs
		WHERE username = ? AND day >= ? AND day < ?
		ORDER BY day, clock, id`, username, from, to)
	if err != nil {
		return nil, fmt.Errorf("FindLogsByUsernameBetween: %w", err)
	}
	defer rows.Close()
	return scanLogs(rows)
}

// FindAllLogsByUsername returns every row for username, oldest first.
func (d *DB) FindAllLogsByUsername(ctx context.Context, username string) ([]models.DietLogEntry, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+logColumns+`
		FROM diet_logs
		WHERE username = ?
		ORDER BY day, clock, id`, username)
	if err != nil {
		return nil, fmt.Errorf("FindAllLogsByUsername: %w", err)
	}
	defer rows.Close()
	return scanLogs(rows)
}

// FindCalibrationLog returns the most recently upserted calibration row for
// username on day. Returns (nil, false, nil) if the day has none.
func (d *DB) FindCalibrationLog(ctx context.Context, username, day string) (*models.DietLogEntry, bool, error) {
	return findCalibrationLog(ctx, d.db, username, day)
}

func findCalibrationLog(ctx context.Context, q querier, username, day string) (*models.DietLogEntry, bool, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+logColumns+`
		FROM diet_logs
		WHERE username = ? AND day = ? AND kind = ?
		ORDER BY updated_at DESC, id DESC
		LIMIT 1`, username, day, string(models.KindCalibration))
	if err != nil {
		return nil, false, fmt.Errorf("FindCalibrationLog: %w", err)
	}
	defer rows.Close()
	logs, err := scanLogs(rows)
	if err != nil || len(logs) == 0 {
		return nil, false, err
	}
	return &logs[0], true, nil
}

// CountLogs returns the number of rows for username.
func (d *DB) CountLogs(ctx context.Context, username string) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM diet_logs WHERE username = ?`, username).Scan(&n)
	return n, err
}

// ---------------------------------------------------------------------------
// Meta
// ---------------------------------------------------------------------------

// GetMeta returns the value for key, or ("", false, nil) if not set.
func (d *DB) GetMeta(key string) (string, bool, error) {
	var val string
	err := d.db.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// SetMeta upserts a key-value pair in the meta table.
func (d *DB) SetMeta(key, value string) error {
	_, err := d.db.Exec(
		`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, key, value,
	)
	return err
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func isConstraint(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.Code == sqlite3.ErrConstraint
}

func scanUser(row *sql.Row) (*models.UserProfile, error) {
	var u models.UserProfile
	var gender string
	if err := row.Scan(&u.Username, &u.Password, &u.Height, &u.Weight, &u.Age, &gender, &u.Activity, &u.Deficit); err != nil {
		return nil, err
	}
	u.Gender = models.Gender(gender)
	return &u, nil
}

// scanLogs reads all log rows. Missing macro values read as zero; this is the
// only place that default is applied.
func scanLogs(rows *sql.Rows) ([]models.DietLogEntry, error) {
	var out []models.DietLogEntry
	for rows.Next() {
		var e models.DietLogEntry
		var kind, mode string
		var protein, carbs, fat sql.NullFloat64
		if err := rows.Scan(
			&e.ID, &e.Username, &e.Day, &e.Clock, &kind, &e.Target, &e.Intake, &e.Weight, &e.Deficit,
			&protein, &carbs, &fat, &mode,
		); err != nil {
			return nil, err
		}
		e.Kind = models.LogKind(kind)
		e.Mode = models.CarbMode(mode)
		e.Protein = protein.Float64
		e.Carbs = carbs.Float64
		e.Fat = fat.Float64
		out = append(out, e)
	}
	return out, rows.Err()
}
