package devserver

import (
	"errors"
	"net/http"
	"slices"

	"github.com/hackdojo/hackdojo/internal/api"
)

type roleBody struct {
	Role api.Role `json:"role" validate:"oneof=student parent admin"`
}

func (s *Server) handleChildren(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	kids := s.dir.list(func(a account) bool { return a.parentID == p.id })
	out := make([]childJSON, 0, len(kids))
	for _, k := range kids {
		out = append(out, toChildJSON(k))
	}
	writeJSON(w, http.StatusOK, map[string]any{"children": out})
}

// child returns the caller's child named by the {id} parameter. Children of
// other parents are reported as missing.
func (s *Server) child(w http.ResponseWriter, r *http.Request) (account, bool) {
	p, _ := principalFrom(r.Context())
	id, ok := intParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "id must be an integer")
		return account{}, false
	}
	a, ok := s.dir.get(id)
	if !ok || a.parentID != p.id {
		writeError(w, http.StatusNotFound, "Child not found")
		return account{}, false
	}
	return a, true
}

func (s *Server) handleChildProgress(w http.ResponseWriter, r *http.Request) {
	a, ok := s.child(w, r)
	if !ok {
		return
	}
	st := s.emptyProgress()
	if a.progress != nil {
		st = toProgressJSON(*a.progress)
	}
	writeJSON(w, http.StatusOK, map[string]any{"progress": st})
}

func (s *Server) emptyProgress() progressJSON {
	return progressJSON{CurrentDay: 1, CurrentBelt: s.doc.Catalog.First().Name, CompletedDays: []int{}}
}

func (s *Server) handleChildActivity(w http.ResponseWriter, r *http.Request) {
	a, ok := s.child(w, r)
	if !ok {
		return
	}
	out := make([]activityJSON, 0, len(a.activity))
	for _, act := range slices.Backward(a.activity) {
		out = append(out, toActivityJSON(act))
	}
	writeJSON(w, http.StatusOK, map[string]any{"recent_activity": out})
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	users := s.dir.list(nil)
	out := make([]userJSON, 0, len(users))
	for _, u := range users {
		out = append(out, toUserJSON(u))
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": out})
}

func (s *Server) handleSetRole(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "id must be an integer")
		return
	}
	var body roleBody
	if !decodeBody(w, r, &body) {
		return
	}
	if p, _ := principalFrom(r.Context()); p.id == id && body.Role != api.RoleAdmin {
		writeError(w, http.StatusBadRequest, "Admins cannot remove their own admin role")
		return
	}

	err := s.dir.update(id, func(a *account) error {
		a.role = body.Role
		return nil
	})
	if errors.Is(err, errNoAccount) {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	a, _ := s.dir.get(id)
	writeJSON(w, http.StatusOK, map[string]any{"user": toUserJSON(a)})
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	students := s.dir.list(func(a account) bool { return a.role == api.RoleStudent })
	dist := make(map[string]int)
	for _, b := range s.doc.Catalog.Belts() {
		dist[b.Name] = 0
	}
	first := s.doc.Catalog.First().Name
	for _, st := range students {
		belt := first
		if st.progress != nil && st.progress.CurrentBelt() != "" {
			belt = st.progress.CurrentBelt()
		}
		dist[belt]++
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_students":    len(students),
		"belt_distribution": dist,
	})
}
