package curriculum

import "strings"

// MatchMode selects how a run's output is compared to a test case.
type MatchMode string

const (
	// MatchEquals compares whitespace-trimmed output and expectation.
	MatchEquals MatchMode = "equals"
	// MatchContains checks that the trimmed output contains the trimmed expectation.
	MatchContains MatchMode = "contains"
)

// TestCase is one expected behavior of a lesson exercise.
type TestCase struct {
	Input    string    `json:"input" yaml:"input"`
	Expected string    `json:"expected" yaml:"expected"`
	Match    MatchMode `json:"match,omitempty" yaml:"match,omitempty"`
}

// Matches reports whether output satisfies the test case.
func (tc TestCase) Matches(output string) bool {
	got := strings.TrimSpace(output)
	want := strings.TrimSpace(tc.Expected)
	if tc.Match == MatchContains {
		return strings.Contains(got, want)
	}
	return got == want
}

// Inputs splits the test case input into the lines fed to the program.
func (tc TestCase) Inputs() []string {
	if tc.Input == "" {
		return nil
	}
	return strings.Split(strings.TrimRight(tc.Input, "\n"), "\n")
}

// Exercise is the hands-on part of a lesson.
type Exercise struct {
	Description string     `json:"description" yaml:"description"`
	Hint        string     `json:"hint,omitempty" yaml:"hint,omitempty"`
	StarterCode string     `json:"starterCode" yaml:"starterCode"`
	TestCases   []TestCase `json:"testCases" yaml:"testCases"`
}

// Lesson is the content for one curriculum day.
type Lesson struct {
	Day      int      `json:"day" yaml:"day"`
	Title    string   `json:"title" yaml:"title"`
	Content  string   `json:"content" yaml:"content"`
	Exercise Exercise `json:"exercise" yaml:"exercise"`
}
