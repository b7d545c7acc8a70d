package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Children lists the signed-in parent's linked learners.
func (c *Client) Children(ctx context.Context) ([]Child, error) {
	raw, err := c.send(ctx, call{
		method: http.MethodGet,
		path:   "/parent/children",
		auth:   true,
		schema: "children",
	})
	if err != nil {
		return nil, err
	}
	var w struct {
		Children []childWire `json:"children"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, &SchemaError{Endpoint: "GET /parent/children", Err: err}
	}
	out := make([]Child, 0, len(w.Children))
	for _, cw := range w.Children {
		ch, err := cw.child()
		if err != nil {
			return nil, &SchemaError{Endpoint: "GET /parent/children", Err: err}
		}
		out = append(out, ch)
	}
	return out, nil
}

// ChildProgress reads one child's progress. An unknown child is a NotFoundError.
func (c *Client) ChildProgress(ctx context.Context, childID string) (*ProgressRecord, error) {
	path := fmt.Sprintf("/parent/child/%s/progress", url.PathEscape(childID))
	raw, err := c.send(ctx, call{
		method: http.MethodGet,
		path:   path,
		auth:   true,
		schema: "child-progress",
	})
	if err != nil {
		return nil, err
	}
	var w struct {
		Progress progressWire `json:"progress"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, &SchemaError{Endpoint: "GET " + path, Err: err}
	}
	rec, err := w.Progress.record()
	if err != nil {
		return nil, &SchemaError{Endpoint: "GET " + path, Err: err}
	}
	return rec, nil
}

// ChildActivity lists one child's recent lesson attempts.
func (c *Client) ChildActivity(ctx context.Context, childID string) ([]Activity, error) {
	path := fmt.Sprintf("/parent/child/%s/recent-activity", url.PathEscape(childID))
	raw, err := c.send(ctx, call{
		method: http.MethodGet,
		path:   path,
		auth:   true,
		schema: "activity",
	})
	if err != nil {
		return nil, err
	}
	var w struct {
		Activity []struct {
			Lesson    string `json:"lesson"`
			Day       int    `json:"day"`
			Timestamp string `json:"timestamp"`
			Success   bool   `json:"success"`
		} `json:"recent_activity"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, &SchemaError{Endpoint: "GET " + path, Err: err}
	}
	out := make([]Activity, 0, len(w.Activity))
	for _, a := range w.Activity {
		out = append(out, Activity{Lesson: a.Lesson, Day: a.Day, Timestamp: a.Timestamp, Success: a.Success})
	}
	return out, nil
}

// AddChild links a new learner profile to the signed-in parent.
func (c *Client) AddChild(ctx context.Context, name string, age int) (*Child, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &ValidationError{Field: "name", Message: "is required"}
	}
	if age < 1 {
		return nil, &ValidationError{Field: "age", Message: "must be a positive integer"}
	}
	raw, err := c.send(ctx, call{
		method: http.MethodPost,
		path:   "/auth/child",
		body:   map[string]any{"name": name, "age": age},
		auth:   true,
		schema: "child",
	})
	if err != nil {
		return nil, err
	}
	var w struct {
		Child childWire `json:"child"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, &SchemaError{Endpoint: "POST /auth/child", Err: err}
	}
	ch, err := w.Child.child()
	if err != nil {
		return nil, &SchemaError{Endpoint: "POST /auth/child", Err: err}
	}
	return &ch, nil
}
