package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

type transcriptRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

func (r *transcriptRepo) Append(ctx context.Context, msg ChatMessage) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return err
	}

	sentAt := msg.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now()
	}

	query, args := builder().Insert(chatMessagesTable.Name).
		Columns("sequence", "scope", "message_id", "sender", "text", "sent_at_ms").
		Values(seqNum, msg.Scope, msg.MessageID, msg.Sender, msg.Text, sentAt.UnixMilli()).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append chat message: %w", err)
	}
	return nil
}

func (r *transcriptRepo) List(ctx context.Context, scope string) ([]ChatMessage, error) {
	query, args := builder().
		Select("sequence", "scope", "message_id", "sender", "text", "sent_at_ms").
		From(entsql.Table(chatMessagesTable.Name)).
		Where(entsql.EQ("scope", scope)).
		OrderBy("sequence").
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	defer rows.Close()

	var out []ChatMessage
	for rows.Next() {
		var (
			m      ChatMessage
			sentAt int64
		)
		if err := rows.Scan(&m.Sequence, &m.Scope, &m.MessageID, &m.Sender, &m.Text, &sentAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		m.SentAt = time.UnixMilli(sentAt)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *transcriptRepo) Clear(ctx context.Context, scope string) error {
	query, args := builder().Delete(chatMessagesTable.Name).
		Where(entsql.EQ("scope", scope)).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clear transcript: %w", err)
	}
	return nil
}

func (r *transcriptRepo) Scopes(ctx context.Context) ([]string, error) {
	query, args := builder().Select("scope").
		From(entsql.Table(chatMessagesTable.Name)).
		GroupBy("scope").
		OrderBy("scope").
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list scopes: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan scope: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
