package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// credentialRow is the fixed primary key of the single credential row.
const credentialRow = 1

type credentialRepo struct {
	db *sql.DB
}

func (r *credentialRepo) Save(ctx context.Context, c Credential) error {
	savedAt := c.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}
	query, args := builder().Insert(credentialsTable.Name).
		Columns("id", "token", "user_json", "saved_at_ms").
		Values(credentialRow, c.Token, string(c.User), savedAt.UnixMilli()).
		OnConflict(
			entsql.ConflictColumns("id"),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func (r *credentialRepo) Load(ctx context.Context) (*Credential, error) {
	query, args := builder().Select("token", "user_json", "saved_at_ms").
		From(entsql.Table(credentialsTable.Name)).
		Where(entsql.EQ("id", credentialRow)).
		Query()

	var (
		c       Credential
		user    string
		savedAt int64
	)
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&c.Token, &user, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}
	c.User = []byte(user)
	c.SavedAt = time.UnixMilli(savedAt)
	return &c, nil
}

func (r *credentialRepo) Clear(ctx context.Context) error {
	query, args := builder().Delete(credentialsTable.Name).Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}
