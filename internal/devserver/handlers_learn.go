package devserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hackdojo/hackdojo/internal/api"
	"github.com/hackdojo/hackdojo/internal/progress"
)

type progressBody struct {
	Day       int   `json:"day" validate:"min=1"`
	Completed *bool `json:"completed"`
}

type runBody struct {
	Code   string   `json:"code"`
	Day    int      `json:"day"`
	Inputs []string `json:"test_inputs"`
}

func (s *Server) handleCurriculum(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"belts": s.doc.Catalog.Belts()})
}

func (s *Server) handleLesson(w http.ResponseWriter, r *http.Request) {
	day, ok := intParam(r, "day")
	if !ok {
		writeError(w, http.StatusBadRequest, "day must be an integer")
		return
	}
	lesson, ok := s.doc.Lesson(day)
	if !ok {
		writeError(w, http.StatusNotFound, "Lesson not found")
		return
	}
	writeJSON(w, http.StatusOK, lesson)
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	a, ok := s.dir.get(p.id)
	if !ok || a.progress == nil {
		writeError(w, http.StatusNotFound, "Progress not initialized")
		return
	}
	writeJSON(w, http.StatusOK, toProgressJSON(*a.progress))
}

func (s *Server) handleInitProgress(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	var st progress.State
	err := s.dir.update(p.id, func(a *account) error {
		st = s.ensureProgress(a)
		return nil
	})
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Account no longer exists")
		return
	}
	writeJSON(w, http.StatusOK, toProgressJSON(st))
}

// handleUpdateProgress records a completion. Completing a day advances the
// current day to day+1 within the curriculum and never moves it back;
// repeating a completion changes nothing. An attempt with completed=false
// only lands in the activity log.
func (s *Server) handleUpdateProgress(w http.ResponseWriter, r *http.Request) {
	var body progressBody
	if !decodeBody(w, r, &body) {
		return
	}
	total := s.doc.Catalog.TotalDays()
	if body.Day > total {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("day must be between 1 and %d", total))
		return
	}
	completed := body.Completed == nil || *body.Completed

	p, _ := principalFrom(r.Context())
	var st progress.State
	err := s.dir.update(p.id, func(a *account) error {
		st = s.ensureProgress(a)
		if completed {
			next := st.WithCompletion(body.Day, total)
			st = progress.FromRecord(next.Record(), s.doc.Catalog)
			a.progress = &st
		}
		a.record(activity{lesson: s.doc.Catalog.Title(body.Day), day: body.Day, at: s.now(), success: completed})
		return nil
	})
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Account no longer exists")
		return
	}
	writeJSON(w, http.StatusOK, toProgressJSON(st))
}

func (s *Server) ensureProgress(a *account) progress.State {
	if a.progress == nil {
		st := progress.NewState(1, s.doc.Catalog.First().Name, nil)
		a.progress = &st
	}
	return *a.progress
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var body runBody
	if !decodeBody(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Code) == "" {
		writeError(w, http.StatusBadRequest, "No code provided")
		return
	}

	out, err := s.exec.Execute(r.Context(), body.Code, body.Inputs)
	switch {
	case errors.Is(err, ErrTimeout):
		s.metrics.RecordRun("timeout")
		writeJSON(w, http.StatusRequestTimeout, map[string]any{
			"error":   true,
			"message": fmt.Sprintf("Code execution timed out (%s limit)", s.execLimit()),
		})
		return
	case err != nil:
		s.metrics.RecordRun("failed")
		s.log.Error("execute code", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Error executing code")
		return
	}

	success := out.ExitCode == 0
	if success {
		s.metrics.RecordRun("ok")
	} else {
		s.metrics.RecordRun("error")
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"output":  out.Stdout,
		"error":   out.Stderr,
		"success": success,
	})
}

func (s *Server) execLimit() string {
	limited, ok := s.exec.(interface{ Limit() time.Duration })
	if !ok {
		return "time"
	}
	return fmt.Sprintf("%d second", int(limited.Limit().Seconds()))
}

func (s *Server) handleSensei(w http.ResponseWriter, r *http.Request) {
	var body api.SenseiRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	answer, source := s.answer(r.Context(), body)
	s.metrics.RecordSenseiQuestion(source)
	writeJSON(w, http.StatusOK, map[string]string{"response": answer})
}
