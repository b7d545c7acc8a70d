package store

import (
	"context"
	"time"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited)
	After  int64     // sequence > After
	Before int64     // sequence < Before
	From   time.Time // timestamp >= From
	To     time.Time // timestamp <= To
}

// Credential is the persisted session credential. User holds the profile
// as returned by the server, JSON-encoded, so the store stays independent
// of the wire types.
type Credential struct {
	Token   string
	User    []byte
	SavedAt time.Time
}

// CredentialRepo persists at most one credential for the device.
type CredentialRepo interface {
	// Save replaces any stored credential.
	Save(ctx context.Context, c Credential) error

	// Load returns the stored credential, or nil if none exists.
	Load(ctx context.Context) (*Credential, error)

	// Clear removes the stored credential. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}

// ProgressSnapshot is a locally cached copy of a learner's progress record.
// It is a display hint only; the server stays authoritative.
type ProgressSnapshot struct {
	ID            int
	Sequence      int64
	UserID        string
	CurrentDay    int
	CurrentBelt   string
	CompletedDays []int
	TakenAt       time.Time
}

// SnapshotRepo manages progress snapshots per user.
type SnapshotRepo interface {
	// Save stores a new snapshot.
	Save(ctx context.Context, snap *ProgressSnapshot) error

	// Latest returns the most recent snapshot for userID, or nil if none exist.
	Latest(ctx context.Context, userID string) (*ProgressSnapshot, error)

	// Prune deletes all but the N most recent snapshots for userID.
	Prune(ctx context.Context, userID string, keep int) error
}

// ChatMessage is one persisted Sensei transcript entry.
type ChatMessage struct {
	Sequence  int64
	Scope     string
	MessageID string
	Sender    string
	Text      string
	SentAt    time.Time
}

// TranscriptRepo persists Sensei transcripts keyed by scope.
type TranscriptRepo interface {
	// Append adds msg to the end of the transcript for its scope.
	Append(ctx context.Context, msg ChatMessage) error

	// List returns the transcript for scope in append order.
	List(ctx context.Context, scope string) ([]ChatMessage, error)

	// Clear deletes the transcript for scope.
	Clear(ctx context.Context, scope string) error

	// Scopes lists every scope with at least one message.
	Scopes(ctx context.Context) ([]string, error)
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEvent is a stored LLM request event.
type LLMRequestEvent struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// LLMUsageRow aggregates token usage for one group (purpose or model).
type LLMUsageRow struct {
	Key          string
	Calls        int
	InputTokens  int
	OutputTokens int
	Failures     int
	AvgLatencyMs float64
}

// EventRepo provides append and query access to LLM request events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns events newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error)

	// GetLLMEvent returns one event by id, or nil if it does not exist.
	GetLLMEvent(ctx context.Context, id int) (*LLMRequestEvent, error)

	// LLMUsageByPurpose aggregates usage grouped by purpose.
	LLMUsageByPurpose(ctx context.Context) ([]LLMUsageRow, error)

	// LLMUsageByModel aggregates usage grouped by model.
	LLMUsageByModel(ctx context.Context) ([]LLMUsageRow, error)
}
