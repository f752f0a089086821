// Package tray implements the staged, session-local list of food items that
// becomes a diet log entry only when committed.
package tray

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-ports/dietvault/internal/models"
)

var (
	// ErrNonPositiveCalories is returned by Add for items with calories <= 0.
	ErrNonPositiveCalories = errors.New("calories must be greater than zero")
	// ErrEmptyTray is returned by Commit when there is nothing to log.
	ErrEmptyTray = errors.New("tray is empty")
	// ErrCommitFailed wraps a persistence failure during Commit. The tray is
	// left untouched, so the commit can be retried.
	ErrCommitFailed = errors.New("commit failed")
)

// LogInserter is the slice of the log store Commit needs.
type LogInserter interface {
	InsertLog(ctx context.Context, entry *models.DietLogEntry) (int64, error)
}

// Tray is an ordered list of staged food items. The zero value is an empty tray.
type Tray struct {
	items []models.FoodItem
}

// New returns a tray pre-filled with items (copied).
func New(items ...models.FoodItem) *Tray {
	t := &Tray{}
	t.items = append(t.items, items...)
	return t
}

// Add appends item when its calories are positive.
func (t *Tray) Add(item models.FoodItem) error {
	if item.Calories <= 0 {
		return ErrNonPositiveCalories
	}
	t.items = append(t.items, item)
	return nil
}

// Clear empties the tray.
func (t *Tray) Clear() {
	t.items = nil
}

// Items returns a copy of the staged items in insertion order.
func (t *Tray) Items() []models.FoodItem {
	out := make([]models.FoodItem, len(t.items))
	copy(out, t.items)
	return out
}

// Len returns the number of staged items.
func (t *Tray) Len() int { return len(t.items) }

// Totals sums calories and macros over the staged items.
func (t *Tray) Totals() models.Macros {
	var m models.Macros
	for _, it := range t.items {
		m = m.Add(it.Macros())
	}
	return m
}

// MergedView previews the day as if the tray were committed: persisted plus
// Totals, element-wise.
func (t *Tray) MergedView(persisted models.Macros) models.Macros {
	return persisted.Add(t.Totals())
}

// CommitContext carries the day-level values stamped onto a committed entry.
type CommitContext struct {
	Username string
	Day      string // viewed day, YYYY-MM-DD
	Now      time.Time
	Target   int
	Exercise int
	Weight   float64
	Mode     models.CarbMode
}

// Commit flattens the tray into one intake entry, inserts it, and clears the
// tray only after the insert succeeds. An empty tray inserts nothing.
func (t *Tray) Commit(ctx context.Context, store LogInserter, cc CommitContext) (*models.DietLogEntry, error) {
	if len(t.items) == 0 {
		return nil, ErrEmptyTray
	}
	entry := t.Entry(cc)
	id, err := store.InsertLog(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}
	entry.ID = id
	t.Clear()
	return entry, nil
}

// Entry builds the log entry Commit would insert, without side effects.
func (t *Tray) Entry(cc CommitContext) *models.DietLogEntry {
	totals := t.Totals()
	now := cc.Now
	if now.IsZero() {
		now = time.Now()
	}
	return &models.DietLogEntry{
		Username: cc.Username,
		Day:      cc.Day,
		Clock:    models.ClockString(now),
		Kind:     models.KindIntake,
		Target:   cc.Target,
		Intake:   totals.Calories,
		Weight:   cc.Weight,
		Deficit:  cc.Target - cc.Exercise - totals.Calories,
		Protein:  totals.Protein,
		Carbs:    totals.Carbs,
		Fat:      totals.Fat,
		Mode:     cc.Mode,
	}
}
