package api

// Role is a user's account type.
type Role string

const (
	RoleStudent Role = "student"
	RoleParent  Role = "parent"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleParent, RoleAdmin:
		return true
	}
	return false
}

// User is the signed-in identity.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Role        Role   `json:"role"`
}

// AuthResult is the outcome of login or registration. User is nil when the
// server only returned a token.
type AuthResult struct {
	Token string
	User  *User
}

// ProgressRecord is a learner's progress as reported by the server.
type ProgressRecord struct {
	CurrentDay    int
	CurrentBelt   string
	CompletedDays []int
}

// ExecRequest is a code execution request.
type ExecRequest struct {
	Code   string   `json:"code"`
	Day    int      `json:"day,omitempty"`
	Inputs []string `json:"test_inputs,omitempty"`
}

// ExecResult is captured program output. Error holds stderr or the
// sandbox's failure message and is empty on a clean run.
type ExecResult struct {
	Output string
	Error  string
}

// Exchange is one prior transcript line sent to the assistant for context.
type Exchange struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// SenseiContext is what the assistant is told about the learner's situation.
type SenseiContext struct {
	Day           int        `json:"day,omitempty"`
	LessonTitle   string     `json:"lesson_title,omitempty"`
	Exercise      string     `json:"exercise,omitempty"`
	Code          string     `json:"code,omitempty"`
	CurrentDay    int        `json:"current_day,omitempty"`
	CompletedDays []int      `json:"completed_days,omitempty"`
	History       []Exchange `json:"history,omitempty"`
}

// SenseiRequest is a question for the assistant.
type SenseiRequest struct {
	Question string        `json:"question"`
	Context  SenseiContext `json:"context"`
}

// Child is a parent's linked learner.
type Child struct {
	ID       string
	Name     string
	Age      int
	Progress ProgressRecord
}

// Activity is one recent lesson attempt.
type Activity struct {
	Lesson    string
	Day       int
	Timestamp string
	Success   bool
}

// Analytics summarizes the platform for admins.
type Analytics struct {
	TotalStudents    int
	BeltDistribution map[string]int
}
