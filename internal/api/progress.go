package api

import (
	"context"
	"net/http"
)

// Progress reads the learner's progress. It returns
// ErrProgressNotInitialized when the server has no record yet.
func (c *Client) Progress(ctx context.Context) (*ProgressRecord, error) {
	raw, err := c.send(ctx, call{
		method: http.MethodGet,
		path:   "/progress",
		auth:   true,
		schema: "progress",
	})
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrProgressNotInitialized
		}
		return nil, err
	}
	return progressResult("GET /progress", raw)
}

// InitProgress creates the default progress record.
func (c *Client) InitProgress(ctx context.Context) (*ProgressRecord, error) {
	raw, err := c.send(ctx, call{
		method: http.MethodPost,
		path:   "/progress/init",
		auth:   true,
		schema: "progress",
	})
	if err != nil {
		return nil, err
	}
	return progressResult("POST /progress/init", raw)
}

// UpdateProgress reports day as completed (or not) and returns the
// server's resulting record.
func (c *Client) UpdateProgress(ctx context.Context, day int, completed bool) (*ProgressRecord, error) {
	if day < 1 {
		return nil, &ValidationError{Field: "day", Message: "must be a positive integer"}
	}
	raw, err := c.send(ctx, call{
		method: http.MethodPost,
		path:   "/progress",
		body: map[string]any{
			"day":       day,
			"completed": completed,
		},
		auth:   true,
		schema: "progress",
	})
	if err != nil {
		return nil, err
	}
	return progressResult("POST /progress", raw)
}

func progressResult(endpoint string, raw []byte) (*ProgressRecord, error) {
	rec, err := decodeProgress(raw)
	if err != nil {
		return nil, &SchemaError{Endpoint: endpoint, Err: err}
	}
	return rec, nil
}
