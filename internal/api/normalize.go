package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/hackdojo/hackdojo/internal/curriculum"
)

// The backend has shipped several response shapes over time (snake_case and
// camelCase keys, belts as strings or objects, day lists or day counts).
// Everything is funneled through the decoders below; anything they cannot
// make sense of becomes a SchemaError at the call site.

type userWire struct {
	ID             json.RawMessage `json:"id"`
	Email          string          `json:"email"`
	DisplayName    string          `json:"displayName"`
	DisplayNameAlt string          `json:"display_name"`
	Name           string          `json:"name"`
	Role           Role            `json:"role"`
}

func (w userWire) user() (*User, error) {
	id := rawID(w.ID)
	if id == "" {
		return nil, errors.New("user has no id")
	}
	if !w.Role.Valid() {
		return nil, fmt.Errorf("unknown role %q", w.Role)
	}
	name := firstNonEmpty(w.DisplayName, w.DisplayNameAlt, w.Name)
	if name == "" {
		name, _, _ = strings.Cut(w.Email, "@")
	}
	return &User{ID: id, Email: w.Email, DisplayName: name, Role: w.Role}, nil
}

func decodeAuth(raw []byte) (*AuthResult, error) {
	var w struct {
		Token       string    `json:"token"`
		AccessToken string    `json:"access_token"`
		User        *userWire `json:"user"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	res := &AuthResult{Token: firstNonEmpty(w.Token, w.AccessToken)}
	if res.Token == "" {
		return nil, errors.New("no token in response")
	}
	if w.User != nil {
		u, err := w.User.user()
		if err != nil {
			return nil, err
		}
		res.User = u
	}
	return res, nil
}

func decodeProfile(raw []byte) (*User, error) {
	var wrapped struct {
		User *userWire `json:"user"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.User != nil {
		return wrapped.User.user()
	}
	var flat userWire
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, err
	}
	return flat.user()
}

type progressWire struct {
	CurrentDay       *int            `json:"current_day"`
	CurrentDayAlt    *int            `json:"currentDay"`
	CurrentBelt      json.RawMessage `json:"current_belt"`
	CurrentBeltAlt   json.RawMessage `json:"currentBelt"`
	CompletedDays    []int           `json:"completed_days"`
	CompletedDaysAlt []int           `json:"completedDays"`
}

func (w progressWire) record() (*ProgressRecord, error) {
	day := w.CurrentDay
	if day == nil {
		day = w.CurrentDayAlt
	}
	if day == nil || *day < 1 {
		return nil, errors.New("current day missing or below 1")
	}

	completed := w.CompletedDays
	if completed == nil {
		completed = w.CompletedDaysAlt
	}
	completed = uniqueSorted(completed)

	belt, err := beltName(w.CurrentBelt)
	if err != nil {
		return nil, err
	}
	if belt == "" {
		if belt, err = beltName(w.CurrentBeltAlt); err != nil {
			return nil, err
		}
	}

	return &ProgressRecord{CurrentDay: *day, CurrentBelt: belt, CompletedDays: completed}, nil
}

func decodeProgress(raw []byte) (*ProgressRecord, error) {
	var w progressWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	return w.record()
}

// beltName accepts "white", {"name": "White Belt"} or null.
func beltName(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", fmt.Errorf("current belt: %w", err)
	}
	return obj.Name, nil
}

type beltWire struct {
	Name        string          `json:"name"`
	Color       string          `json:"color"`
	StartDay    int             `json:"startDay"`
	StartDayAlt int             `json:"start_day"`
	EndDay      int             `json:"endDay"`
	EndDayAlt   int             `json:"end_day"`
	Days        json.RawMessage `json:"days"`
}

func decodeCurriculum(raw []byte) (*curriculum.Catalog, error) {
	var w struct {
		Belts []beltWire `json:"belts"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}

	belts := make([]curriculum.Belt, 0, len(w.Belts))
	for _, bw := range w.Belts {
		b := curriculum.Belt{
			Name:     bw.Name,
			Color:    firstNonEmpty(bw.Color, bw.Name),
			StartDay: firstPositive(bw.StartDay, bw.StartDayAlt),
			EndDay:   firstPositive(bw.EndDay, bw.EndDayAlt),
		}

		days := bytes.TrimSpace(bw.Days)
		switch {
		case len(days) == 0 || bytes.Equal(days, []byte("null")):
		case days[0] == '[':
			var list []struct {
				Day   int    `json:"day"`
				Title string `json:"title"`
			}
			if err := json.Unmarshal(days, &list); err != nil {
				return nil, fmt.Errorf("belt %q days: %w", bw.Name, err)
			}
			for _, d := range list {
				b.Days = append(b.Days, curriculum.DayInfo{Day: d.Day, Title: d.Title})
			}
			if b.EndDay == 0 && len(list) > 0 {
				b.EndDay = b.StartDay + len(list) - 1
			}
		default:
			count, err := strconv.Atoi(string(days))
			if err != nil {
				return nil, fmt.Errorf("belt %q days: %w", bw.Name, err)
			}
			if b.EndDay == 0 {
				b.EndDay = b.StartDay + count - 1
			}
		}

		if b.EndDay == 0 {
			return nil, fmt.Errorf("belt %q has neither endDay nor days", bw.Name)
		}
		belts = append(belts, b)
	}
	return curriculum.NewCatalog(belts)
}

func (c *Client) decodeLesson(day int, raw []byte) (*curriculum.Lesson, error) {
	var w struct {
		Day      int    `json:"day"`
		Title    string `json:"title"`
		Content  string `json:"content"`
		Exercise struct {
			Description    string                `json:"description"`
			Hint           *string               `json:"hint"`
			StarterCode    string                `json:"starterCode"`
			StarterCodeAlt string                `json:"starter_code"`
			TestCases      []curriculum.TestCase `json:"testCases"`
			TestCasesAlt   []curriculum.TestCase `json:"test_cases"`
		} `json:"exercise"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	if w.Day != 0 && w.Day != day {
		return nil, fmt.Errorf("asked for day %d, got day %d", day, w.Day)
	}

	ex := curriculum.Exercise{
		Description: c.plainText(w.Exercise.Description),
		StarterCode: firstNonEmpty(w.Exercise.StarterCode, w.Exercise.StarterCodeAlt),
		TestCases:   w.Exercise.TestCases,
	}
	if ex.TestCases == nil {
		ex.TestCases = w.Exercise.TestCasesAlt
	}
	if w.Exercise.Hint != nil {
		ex.Hint = c.plainText(*w.Exercise.Hint)
	}

	return &curriculum.Lesson{
		Day:      day,
		Title:    c.plainText(w.Title),
		Content:  c.plainText(w.Content),
		Exercise: ex,
	}, nil
}

func decodeExec(raw []byte) (*ExecResult, error) {
	var w struct {
		Output  *string         `json:"output"`
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}

	res := &ExecResult{}
	if w.Output != nil {
		res.Output = *w.Output
	}

	// "error" is stderr text, or a boolean flag with the text in "message".
	errRaw := bytes.TrimSpace(w.Error)
	switch {
	case len(errRaw) == 0 || bytes.Equal(errRaw, []byte("null")) || bytes.Equal(errRaw, []byte("false")):
	case bytes.Equal(errRaw, []byte("true")):
		res.Error = firstNonEmpty(w.Message, "execution failed")
	default:
		var s string
		if err := json.Unmarshal(errRaw, &s); err != nil {
			return nil, fmt.Errorf("error field: %w", err)
		}
		res.Error = s
	}
	return res, nil
}

type childWire struct {
	ID   json.RawMessage `json:"id"`
	Name string          `json:"name"`
	Age  int             `json:"age"`
	progressWire
}

func (w childWire) child() (Child, error) {
	ch := Child{ID: rawID(w.ID), Name: w.Name, Age: w.Age}
	if ch.ID == "" {
		return Child{}, errors.New("child has no id")
	}
	// A child that has not started yet carries no progress fields.
	if w.CurrentDay == nil && w.CurrentDayAlt == nil {
		ch.Progress = ProgressRecord{CurrentDay: 1}
		return ch, nil
	}
	rec, err := w.record()
	if err != nil {
		return Child{}, fmt.Errorf("child %s: %w", ch.ID, err)
	}
	ch.Progress = *rec
	return ch, nil
}

func rawID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	}
	return string(raw)
}

func uniqueSorted(days []int) []int {
	if len(days) == 0 {
		return []int{}
	}
	seen := make(map[int]bool, len(days))
	out := make([]int, 0, len(days))
	for _, d := range days {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Ints(out)
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
