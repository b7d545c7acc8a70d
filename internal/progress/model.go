package progress

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/hackdojo/hackdojo/internal/api"
	"github.com/hackdojo/hackdojo/internal/curriculum"
	"github.com/hackdojo/hackdojo/internal/store"
)

var (
	// ErrProgressUnavailable wraps load failures that survived the
	// initialize-and-retry path. The cached state is left untouched.
	ErrProgressUnavailable = errors.New("progress unavailable")

	// ErrDayLocked is returned when completing a day the learner cannot open.
	ErrDayLocked = errors.New("day is locked")

	// ErrUnknownDay is returned for a day outside the curriculum.
	ErrUnknownDay = errors.New("day is not in the curriculum")

	// ErrNotLoaded is returned when a mutation is attempted before the first
	// successful load.
	ErrNotLoaded = errors.New("progress not loaded")

	// ErrSuperseded is returned when the model was reset while a request
	// was in flight.
	ErrSuperseded = errors.New("progress request superseded")
)

// snapshotsKept is how many hint snapshots are retained per user.
const snapshotsKept = 5

// Gateway is the server side of progress.
type Gateway interface {
	Progress(ctx context.Context) (*api.ProgressRecord, error)
	InitProgress(ctx context.Context) (*api.ProgressRecord, error)
	UpdateProgress(ctx context.Context, day int, completed bool) (*api.ProgressRecord, error)
}

// Model caches one learner's progress and applies changes to it in the
// order they were initiated.
type Model struct {
	gw        Gateway
	catalog   *curriculum.Catalog
	snapshots store.SnapshotRepo
	userID    string
	now       func() time.Time

	mu         sync.Mutex
	state      State
	loaded     bool
	fromServer bool
	issued     uint64 // last ticket handed out
	applied    uint64 // ticket of the last authoritative read applied
	epoch      uint64 // bumped by Reset
	listeners  []func(State)
}

// Option configures a Model.
type Option func(*Model)

// WithSnapshots caches progress in the device store under userID and lets
// Seed use it as a hint.
func WithSnapshots(repo store.SnapshotRepo, userID string) Option {
	return func(m *Model) {
		m.snapshots = repo
		m.userID = userID
	}
}

// NewModel creates a Model over catalog.
func NewModel(gw Gateway, catalog *curriculum.Catalog, opts ...Option) *Model {
	m := &Model{gw: gw, catalog: catalog, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Catalog returns the belt catalog the model derives from.
func (m *Model) Catalog() *curriculum.Catalog { return m.catalog }

// OnChange registers fn to be called with every newly applied state.
func (m *Model) OnChange(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// State returns the cached state and whether anything has been loaded.
func (m *Model) State() (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.loaded
}

// HintOnly reports whether the cached state came from the device store and
// has not yet been confirmed by the server.
func (m *Model) HintOnly() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded && !m.fromServer
}

// IsUnlocked reports whether day is unlocked in the cached state.
func (m *Model) IsUnlocked(day int) bool {
	s, _ := m.State()
	return s.IsUnlocked(day)
}

// IsCompleted reports whether day is completed in the cached state.
func (m *Model) IsCompleted(day int) bool {
	s, _ := m.State()
	return s.IsCompleted(day)
}

// ProgressForBelt returns the completion percentage of the named belt.
func (m *Model) ProgressForBelt(name string) (float64, bool) {
	b, ok := m.catalog.BeltByName(name)
	if !ok {
		return 0, false
	}
	s, _ := m.State()
	return s.ProgressForBelt(b), true
}

// Days lists a belt's days with their status in the cached state.
func (m *Model) Days(b curriculum.Belt) []DayStatus {
	s, _ := m.State()
	return s.Days(b, m.catalog)
}

// Seed fills an empty cache from the latest device-store snapshot. The
// seeded state is a hint and is replaced by the next server read.
func (m *Model) Seed(ctx context.Context) bool {
	if m.snapshots == nil || m.userID == "" {
		return false
	}
	snap, err := m.snapshots.Latest(ctx, m.userID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to read progress snapshot: %v\n", err)
		return false
	}
	if snap == nil {
		return false
	}

	s := NewState(snap.CurrentDay, snap.CurrentBelt, snap.CompletedDays).clamp(m.catalog)
	m.mu.Lock()
	if m.loaded {
		m.mu.Unlock()
		return false
	}
	m.state = s
	m.loaded = true
	m.mu.Unlock()

	m.notify(s)
	return true
}

// Load reads progress from the server, creating the default record first if
// the server has none. On failure the cached state is returned unchanged
// alongside an error wrapping ErrProgressUnavailable.
func (m *Model) Load(ctx context.Context) (State, error) {
	ticket, epoch := m.issue()

	rec, err := m.gw.Progress(ctx)
	if errors.Is(err, api.ErrProgressNotInitialized) {
		if _, err = m.gw.InitProgress(ctx); err == nil {
			rec, err = m.gw.Progress(ctx)
		}
	}
	if err != nil {
		s, _ := m.State()
		return s, fmt.Errorf("%w: %w", ErrProgressUnavailable, err)
	}

	s := FromRecord(*rec, m.catalog)

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return State{}, ErrSuperseded
	}
	if ticket <= m.applied {
		// A later-initiated read already landed.
		cur := m.state
		m.mu.Unlock()
		return cur, nil
	}
	m.applied = ticket
	m.state = s
	m.loaded = true
	m.fromServer = true
	m.mu.Unlock()

	m.saveSnapshot(ctx, s)
	m.notify(s)
	return s, nil
}

// RecordCompletion marks day completed after a successful run. Completing
// an already-completed day is a no-op that makes no request.
func (m *Model) RecordCompletion(ctx context.Context, day int) (State, error) {
	return m.complete(ctx, day, false)
}

// MarkComplete completes day without a run. It is the explicit override
// path and skips the lock check; everything else matches RecordCompletion.
func (m *Model) MarkComplete(ctx context.Context, day int) (State, error) {
	return m.complete(ctx, day, true)
}

func (m *Model) complete(ctx context.Context, day int, override bool) (State, error) {
	m.mu.Lock()
	cur, loaded := m.state, m.loaded
	m.mu.Unlock()

	switch {
	case !loaded:
		return cur, ErrNotLoaded
	case day < 1 || day > m.catalog.TotalDays():
		return cur, fmt.Errorf("%w: day %d", ErrUnknownDay, day)
	case cur.IsCompleted(day):
		return cur, nil
	case !override && !cur.IsUnlocked(day):
		return cur, fmt.Errorf("%w: day %d", ErrDayLocked, day)
	}

	ticket, epoch := m.issue()
	rec, err := m.gw.UpdateProgress(ctx, day, true)
	if err != nil {
		s, _ := m.State()
		return s, fmt.Errorf("record completion of day %d: %w", day, err)
	}
	server := FromRecord(*rec, m.catalog)

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return State{}, ErrSuperseded
	}
	// Merge is monotonic, so completions commute with each other and with
	// reads applied in the meantime.
	s := m.state.Merge(server).WithCompletion(day, m.catalog.TotalDays()).clamp(m.catalog)
	m.state = s
	m.applied = max(m.applied, ticket)
	m.fromServer = true
	m.mu.Unlock()

	m.saveSnapshot(ctx, s)
	m.notify(s)
	return s, nil
}

// Reset drops the cached state and makes every in-flight request stale.
// It is called on logout.
func (m *Model) Reset() {
	m.mu.Lock()
	m.epoch++
	m.state = State{}
	m.loaded = false
	m.fromServer = false
	m.applied = m.issued
	m.mu.Unlock()
}

func (m *Model) issue() (ticket, epoch uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issued++
	return m.issued, m.epoch
}

func (m *Model) notify(s State) {
	m.mu.Lock()
	listeners := make([]func(State), len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
}

func (m *Model) saveSnapshot(ctx context.Context, s State) {
	if m.snapshots == nil || m.userID == "" {
		return
	}
	err := m.snapshots.Save(ctx, &store.ProgressSnapshot{
		UserID:        m.userID,
		CurrentDay:    s.CurrentDay(),
		CurrentBelt:   s.CurrentBelt(),
		CompletedDays: s.CompletedDays(),
		TakenAt:       m.now(),
	})
	if err == nil {
		err = m.snapshots.Prune(ctx, m.userID, snapshotsKept)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to save progress snapshot: %v\n", err)
	}
}
