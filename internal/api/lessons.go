package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hackdojo/hackdojo/internal/curriculum"
)

// Curriculum fetches and validates the belt catalog.
func (c *Client) Curriculum(ctx context.Context) (*curriculum.Catalog, error) {
	raw, err := c.send(ctx, call{
		method: http.MethodGet,
		path:   "/curriculum",
		auth:   true,
		schema: "curriculum",
	})
	if err != nil {
		return nil, err
	}
	cat, err := decodeCurriculum(raw)
	if err != nil {
		return nil, &SchemaError{Endpoint: "GET /curriculum", Err: err}
	}
	return cat, nil
}

// Lesson fetches the lesson for day.
func (c *Client) Lesson(ctx context.Context, day int) (*curriculum.Lesson, error) {
	if day < 1 {
		return nil, &ValidationError{Field: "day", Message: "must be a positive integer"}
	}
	path := fmt.Sprintf("/lesson/%d", day)
	raw, err := c.send(ctx, call{
		method: http.MethodGet,
		path:   path,
		auth:   true,
		schema: "lesson",
	})
	if err != nil {
		return nil, err
	}
	l, err := c.decodeLesson(day, raw)
	if err != nil {
		return nil, &SchemaError{Endpoint: "GET " + path, Err: err}
	}
	return l, nil
}
