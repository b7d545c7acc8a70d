package devserver

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hackdojo/hackdojo/internal/api"
	"github.com/hackdojo/hackdojo/internal/progress"
)

var (
	errEmailTaken = errors.New("email already registered")
	errNoAccount  = errors.New("account not found")
)

// activityLimit caps the per-learner activity log.
const activityLimit = 50

type activity struct {
	lesson  string
	day     int
	at      time.Time
	success bool
}

// account is one user. Child profiles created by a parent have no email or
// password and cannot sign in.
type account struct {
	id       int
	email    string
	name     string
	role     api.Role
	hash     []byte
	parentID int
	age      int

	// progress is nil until the learner initializes it.
	progress *progress.State
	activity []activity
}

// directory is the in-memory account table. Reads return copies so handlers
// never hold pointers into guarded state.
type directory struct {
	mu      sync.Mutex
	nextID  int
	byID    map[int]*account
	byEmail map[string]int
}

func newDirectory() *directory {
	return &directory{nextID: 1, byID: make(map[int]*account), byEmail: make(map[string]int)}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (d *directory) create(a account) (account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	a.email = normalizeEmail(a.email)
	if a.email != "" {
		if _, taken := d.byEmail[a.email]; taken {
			return account{}, errEmailTaken
		}
	}
	a.id = d.nextID
	d.nextID++
	d.byID[a.id] = &a
	if a.email != "" {
		d.byEmail[a.email] = a.id
	}
	return a.clone(), nil
}

func (d *directory) get(id int) (account, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.byID[id]
	if !ok {
		return account{}, false
	}
	return a.clone(), true
}

func (d *directory) byLogin(email string) (account, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, ok := d.byEmail[normalizeEmail(email)]
	if !ok {
		return account{}, false
	}
	return d.byID[id].clone(), true
}

// update applies fn to the account under the lock. fn's error aborts without
// rolling back partial edits, so fn must validate before mutating.
func (d *directory) update(id int, fn func(*account) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.byID[id]
	if !ok {
		return errNoAccount
	}
	return fn(a)
}

// list returns every account matching keep, ordered by id.
func (d *directory) list(keep func(account) bool) []account {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]account, 0, len(d.byID))
	for _, a := range d.byID {
		if keep == nil || keep(*a) {
			out = append(out, a.clone())
		}
	}
	slices.SortFunc(out, func(x, y account) int { return x.id - y.id })
	return out
}

func (a *account) clone() account {
	c := *a
	c.hash = slices.Clone(a.hash)
	c.activity = slices.Clone(a.activity)
	return c
}

func (a *account) record(entry activity) {
	a.activity = append(a.activity, entry)
	if n := len(a.activity); n > activityLimit {
		a.activity = slices.Clone(a.activity[n-activityLimit:])
	}
}
