package store

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL mode falls back to "memory" for in-memory databases.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestCredentialRoundTrip(t *testing.T) {
	s := openTestStore(t)
	repo := s.CredentialRepo()
	ctx := context.Background()

	c, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("load (empty): %v", err)
	}
	if c != nil {
		t.Fatal("expected no credential on a fresh store")
	}

	if err := repo.Save(ctx, Credential{Token: "first", User: []byte(`{"id":"1"}`)}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := repo.Save(ctx, Credential{Token: "second", User: []byte(`{"id":"2"}`)}); err != nil {
		t.Fatalf("save again: %v", err)
	}

	c, err = repo.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c == nil || c.Token != "second" {
		t.Fatalf("token = %+v, want second (save replaces)", c)
	}
	if string(c.User) != `{"id":"2"}` {
		t.Errorf("user = %s", c.User)
	}

	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("clear twice: %v", err)
	}
	c, err = repo.Load(ctx)
	if err != nil {
		t.Fatalf("load after clear: %v", err)
	}
	if c != nil {
		t.Fatal("expected credential to be gone after clear")
	}
}

func TestSnapshotSaveLatestPrune(t *testing.T) {
	s := openTestStore(t)
	repo := s.SnapshotRepo()
	ctx := context.Background()

	snap, err := repo.Latest(ctx, "u1")
	if err != nil {
		t.Fatalf("latest (empty): %v", err)
	}
	if snap != nil {
		t.Fatal("expected nil snapshot when none exist")
	}

	for day := 1; day <= 5; day++ {
		err := repo.Save(ctx, &ProgressSnapshot{
			UserID:        "u1",
			CurrentDay:    day,
			CurrentBelt:   "white",
			CompletedDays: completedUpTo(day - 1),
		})
		if err != nil {
			t.Fatalf("save day %d: %v", day, err)
		}
	}
	if err := repo.Save(ctx, &ProgressSnapshot{UserID: "u2", CurrentDay: 9, CurrentBelt: "yellow"}); err != nil {
		t.Fatalf("save other user: %v", err)
	}

	snap, err = repo.Latest(ctx, "u1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if snap.CurrentDay != 5 {
		t.Errorf("current day = %d, want 5", snap.CurrentDay)
	}
	if len(snap.CompletedDays) != 4 {
		t.Errorf("completed = %v, want 4 days", snap.CompletedDays)
	}

	if err := repo.Prune(ctx, "u1", 2); err != nil {
		t.Fatalf("prune: %v", err)
	}

	var count int
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM progress_snapshots WHERE user_id = 'u1'`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("after prune count = %d, want 2", count)
	}

	other, err := repo.Latest(ctx, "u2")
	if err != nil {
		t.Fatalf("latest u2: %v", err)
	}
	if other == nil || other.CurrentDay != 9 {
		t.Errorf("other user's snapshot should survive prune, got %+v", other)
	}
}

func TestTranscriptAppendListClear(t *testing.T) {
	s := openTestStore(t)
	repo := s.TranscriptRepo()
	ctx := context.Background()

	base := time.Now()
	msgs := []ChatMessage{
		{Scope: "lesson:1", MessageID: "a", Sender: "user", Text: "hi", SentAt: base},
		{Scope: "session", MessageID: "b", Sender: "user", Text: "elsewhere", SentAt: base},
		{Scope: "lesson:1", MessageID: "c", Sender: "assistant", Text: "hello", SentAt: base},
	}
	for _, m := range msgs {
		if err := repo.Append(ctx, m); err != nil {
			t.Fatalf("append %s: %v", m.MessageID, err)
		}
	}

	got, err := repo.List(ctx, "lesson:1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].MessageID != "a" || got[1].MessageID != "c" {
		t.Fatalf("list = %+v, want [a c] in append order", got)
	}

	scopes, err := repo.Scopes(ctx)
	if err != nil {
		t.Fatalf("scopes: %v", err)
	}
	if len(scopes) != 2 {
		t.Errorf("scopes = %v, want 2", scopes)
	}

	if err := repo.Clear(ctx, "lesson:1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	got, _ = repo.List(ctx, "lesson:1")
	if len(got) != 0 {
		t.Errorf("expected empty transcript after clear, got %d", len(got))
	}
	got, _ = repo.List(ctx, "session")
	if len(got) != 1 {
		t.Errorf("clear must not touch other scopes, got %d", len(got))
	}
}

func TestLLMEventsQueryAndUsage(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	events := []LLMRequestEventData{
		{Provider: "mock", Model: "mock", Purpose: "sensei", InputTokens: 10, OutputTokens: 5, LatencyMs: 100, Success: true},
		{Provider: "mock", Model: "mock", Purpose: "sensei", InputTokens: 20, OutputTokens: 5, LatencyMs: 300, Success: false, ErrorMessage: "boom"},
		{Provider: "mock", Model: "other", Purpose: "devserver-sensei", InputTokens: 1, OutputTokens: 1, LatencyMs: 10, Success: true},
	}
	for _, e := range events {
		if err := repo.AppendLLMRequest(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	list, err := repo.QueryLLMEvents(ctx, QueryOpts{Limit: 2})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].Sequence <= list[1].Sequence {
		t.Errorf("expected newest first, got sequences %d, %d", list[0].Sequence, list[1].Sequence)
	}

	e, err := repo.GetLLMEvent(ctx, list[1].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if e == nil || e.ErrorMessage != "boom" || e.Success {
		t.Errorf("get = %+v, want failed event", e)
	}

	missing, err := repo.GetLLMEvent(ctx, 9999)
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for unknown id")
	}

	usage, err := repo.LLMUsageByPurpose(ctx)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if len(usage) != 2 {
		t.Fatalf("usage rows = %d, want 2", len(usage))
	}
	top := usage[0]
	if top.Key != "sensei" || top.Calls != 2 || top.InputTokens != 30 || top.Failures != 1 {
		t.Errorf("sensei usage = %+v", top)
	}
	if top.AvgLatencyMs != 200 {
		t.Errorf("avg latency = %v, want 200", top.AvgLatencyMs)
	}

	byModel, err := repo.LLMUsageByModel(ctx)
	if err != nil {
		t.Fatalf("usage by model: %v", err)
	}
	if len(byModel) != 2 {
		t.Errorf("model rows = %d, want 2", len(byModel))
	}
}

func completedUpTo(n int) []int {
	out := make([]int, 0, n)
	for d := 1; d <= n; d++ {
		out = append(out, d)
	}
	return out
}
