package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/hackdojo/hackdojo/internal/api"
	"github.com/hackdojo/hackdojo/internal/progress"
)

// maxBody bounds request bodies; submitted programs are the largest.
const maxBody = 256 << 10

var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}()

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// decodeBody reads a JSON body into v and runs struct validation. A failure
// has already been answered with 400 when it returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Missing or malformed JSON body")
		return false
	}
	if err := validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "email is not a valid address"
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

func intParam(r *http.Request, name string) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, name))
	return n, err == nil
}

type userJSON struct {
	ID          int      `json:"id"`
	Email       string   `json:"email"`
	DisplayName string   `json:"display_name"`
	Role        api.Role `json:"role"`
}

func toUserJSON(a account) userJSON {
	return userJSON{ID: a.id, Email: a.email, DisplayName: a.name, Role: a.role}
}

type progressJSON struct {
	CurrentDay    int    `json:"current_day"`
	CurrentBelt   string `json:"current_belt"`
	CompletedDays []int  `json:"completed_days"`
}

func toProgressJSON(st progress.State) progressJSON {
	rec := st.Record()
	return progressJSON{CurrentDay: rec.CurrentDay, CurrentBelt: rec.CurrentBelt, CompletedDays: rec.CompletedDays}
}

type childJSON struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Age  int    `json:"age"`
	*progressJSON
}

func toChildJSON(a account) childJSON {
	c := childJSON{ID: a.id, Name: a.name, Age: a.age}
	if a.progress != nil {
		p := toProgressJSON(*a.progress)
		c.progressJSON = &p
	}
	return c
}

type activityJSON struct {
	Lesson    string `json:"lesson"`
	Day       int    `json:"day"`
	Timestamp string `json:"timestamp"`
	Success   bool   `json:"success"`
}

func toActivityJSON(a activity) activityJSON {
	return activityJSON{Lesson: a.lesson, Day: a.day, Timestamp: a.at.UTC().Format(time.RFC3339), Success: a.success}
}
