// Package progress is the single place lock, unlock and completion state is
// derived. Every screen and command reads learner progress through a State.
package progress

import (
	"slices"

	"github.com/hackdojo/hackdojo/internal/api"
	"github.com/hackdojo/hackdojo/internal/curriculum"
)

// State is an immutable view of a learner's progress.
//
// The zero value is a fresh learner on day 1 with nothing completed.
type State struct {
	currentDay  int
	currentBelt string
	completed   []int // sorted, unique, all >= 1
}

// NewState builds a State, repairing inconsistent input: completed days are
// deduplicated and sorted, days below 1 are dropped, and the current day is
// raised so that every completed day is unlocked.
func NewState(currentDay int, belt string, completed []int) State {
	days := make([]int, 0, len(completed))
	for _, d := range completed {
		if d >= 1 {
			days = append(days, d)
		}
	}
	slices.Sort(days)
	days = slices.Compact(days)

	if currentDay < 1 {
		currentDay = 1
	}
	if n := len(days); n > 0 && days[n-1] > currentDay {
		currentDay = days[n-1]
	}
	return State{currentDay: currentDay, currentBelt: belt, completed: days}
}

// FromRecord converts a server record, clamping it to the catalog's range
// and deriving the belt from the current day.
func FromRecord(rec api.ProgressRecord, catalog *curriculum.Catalog) State {
	return NewState(rec.CurrentDay, rec.CurrentBelt, rec.CompletedDays).clamp(catalog)
}

func (s State) clamp(catalog *curriculum.Catalog) State {
	if catalog == nil {
		return s
	}
	total := catalog.TotalDays()
	days := s.completed[:0:0]
	for _, d := range s.completed {
		if d <= total {
			days = append(days, d)
		}
	}
	out := State{currentDay: min(s.CurrentDay(), total), currentBelt: s.currentBelt, completed: days}
	if b, ok := catalog.BeltFor(out.currentDay); ok {
		out.currentBelt = b.Name
	} else if out.currentBelt == "" {
		out.currentBelt = catalog.First().Name
	}
	return out
}

// CurrentDay returns the highest day granted by advancement.
func (s State) CurrentDay() int {
	if s.currentDay < 1 {
		return 1
	}
	return s.currentDay
}

// CurrentBelt returns the name of the learner's belt.
func (s State) CurrentBelt() string { return s.currentBelt }

// CompletedDays returns the completed days in ascending order.
func (s State) CompletedDays() []int { return slices.Clone(s.completed) }

// CompletedCount returns how many days are completed.
func (s State) CompletedCount() int { return len(s.completed) }

// IsCompleted reports whether day is in the completed set.
func (s State) IsCompleted(day int) bool {
	_, found := slices.BinarySearch(s.completed, day)
	return found
}

// IsUnlocked reports whether the learner may open day.
func (s State) IsUnlocked(day int) bool {
	if day < 1 {
		return false
	}
	return day == 1 || day <= s.CurrentDay() || s.IsCompleted(day-1)
}

// WithCompletion returns the state after completing day. Completing an
// already-completed day returns s unchanged. totalDays caps the current day
// when positive.
func (s State) WithCompletion(day, totalDays int) State {
	if day < 1 || s.IsCompleted(day) {
		return s
	}
	days := append(slices.Clone(s.completed), day)
	slices.Sort(days)

	next := max(s.CurrentDay(), day+1)
	if totalDays > 0 {
		next = min(next, totalDays)
	}
	return State{currentDay: max(next, day), currentBelt: s.currentBelt, completed: days}
}

// Merge combines two views of the same learner. Advancement never moves
// backwards, so the result keeps the later current day and the union of
// completed days.
func (s State) Merge(o State) State {
	belt := s.currentBelt
	if o.CurrentDay() > s.CurrentDay() || belt == "" {
		belt = o.currentBelt
	}
	return NewState(max(s.CurrentDay(), o.CurrentDay()), belt, append(slices.Clone(s.completed), o.completed...))
}

// ProgressForBelt returns the percentage of the belt's days completed,
// within [0, 100].
func (s State) ProgressForBelt(b curriculum.Belt) float64 {
	total := b.DayCount()
	if total <= 0 {
		return 0
	}
	done := 0
	for _, d := range s.completed {
		if b.Contains(d) {
			done++
		}
	}
	pct := float64(done) / float64(total) * 100
	return max(0, min(100, pct))
}

// Record converts the state back to its wire form.
func (s State) Record() api.ProgressRecord {
	return api.ProgressRecord{
		CurrentDay:    s.CurrentDay(),
		CurrentBelt:   s.currentBelt,
		CompletedDays: s.CompletedDays(),
	}
}

// DayStatus is one row of a belt's day list.
type DayStatus struct {
	Day       int
	Title     string
	Unlocked  bool
	Completed bool
}

// Days lists the belt's days with their derived status.
func (s State) Days(b curriculum.Belt, catalog *curriculum.Catalog) []DayStatus {
	out := make([]DayStatus, 0, max(b.DayCount(), 0))
	for d := b.StartDay; d <= b.EndDay; d++ {
		title := b.Title(d)
		if title == "" && catalog != nil {
			title = catalog.Title(d)
		}
		out = append(out, DayStatus{
			Day:       d,
			Title:     title,
			Unlocked:  s.IsUnlocked(d),
			Completed: s.IsCompleted(d),
		})
	}
	return out
}
