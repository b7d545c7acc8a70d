package devserver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hackdojo/hackdojo/internal/api"
	"github.com/hackdojo/hackdojo/internal/sensei"
)

// answer replies through the configured model, falling back to a hint from
// the lesson when there is no model or it fails. The second result names
// the source: "llm" or "hint".
func (s *Server) answer(ctx context.Context, req api.SenseiRequest) (string, string) {
	if s.assistant != nil {
		reply, err := sensei.Local(s.assistant).Ask(ctx, req.Question, req.Context)
		if err == nil && reply != "" {
			return reply, "llm"
		}
		s.log.Warn("sensei model failed, answering with hint", slog.Any("error", err))
	}
	return s.hint(req.Context), "hint"
}

func (s *Server) hint(sc api.SenseiContext) string {
	day := sc.Day
	if day == 0 {
		day = sc.CurrentDay
	}
	lesson, ok := s.doc.Lesson(day)
	if !ok {
		return "Break the problem into small steps and try each one with print(). What does your program output right now?"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Let's look at %q together. ", lesson.Title)
	if h := strings.TrimSpace(lesson.Exercise.Hint); h != "" {
		fmt.Fprintf(&b, "Hint: %s", h)
	} else {
		b.WriteString("Reread the exercise and compare your output with what it asks for, line by line.")
	}
	if strings.TrimSpace(sc.Code) == "" {
		b.WriteString(" Start by writing a first attempt, then run it and see what happens.")
	}
	return b.String()
}
