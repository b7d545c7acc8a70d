package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

type snapshotRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

func (r *snapshotRepo) Save(ctx context.Context, snap *ProgressSnapshot) error {
	completed, err := json.Marshal(snap.CompletedDays)
	if err != nil {
		return fmt.Errorf("marshal completed days: %w", err)
	}

	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return err
	}

	takenAt := snap.TakenAt
	if takenAt.IsZero() {
		takenAt = time.Now()
	}

	query, args := builder().Insert(progressSnapshotsTable.Name).
		Columns("sequence", "user_id", "current_day", "current_belt", "completed_json", "taken_at_ms").
		Values(seqNum, snap.UserID, snap.CurrentDay, snap.CurrentBelt, string(completed), takenAt.UnixMilli()).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	snap.Sequence = seqNum
	snap.TakenAt = takenAt
	return nil
}

func (r *snapshotRepo) Latest(ctx context.Context, userID string) (*ProgressSnapshot, error) {
	query, args := builder().
		Select("id", "sequence", "user_id", "current_day", "current_belt", "completed_json", "taken_at_ms").
		From(entsql.Table(progressSnapshotsTable.Name)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Desc("sequence")).
		Limit(1).
		Query()

	var (
		s         ProgressSnapshot
		completed string
		takenAt   int64
	)
	err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&s.ID, &s.Sequence, &s.UserID, &s.CurrentDay, &s.CurrentBelt, &completed, &takenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(completed), &s.CompletedDays); err != nil {
		return nil, fmt.Errorf("unmarshal completed days: %w", err)
	}
	s.TakenAt = time.UnixMilli(takenAt)
	return &s, nil
}

func (r *snapshotRepo) Prune(ctx context.Context, userID string, keep int) error {
	// Find the sequence of the newest snapshot that falls outside the window.
	query, args := builder().Select("sequence").
		From(entsql.Table(progressSnapshotsTable.Name)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Desc("sequence")).
		Offset(keep).
		Limit(1).
		Query()

	var threshold int64
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&threshold)
	if errors.Is(err, sql.ErrNoRows) {
		return nil // fewer than keep snapshots exist
	}
	if err != nil {
		return fmt.Errorf("query snapshots for prune: %w", err)
	}

	query, args = builder().Delete(progressSnapshotsTable.Name).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.LTE("sequence", threshold),
		)).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return nil
}
