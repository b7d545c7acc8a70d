package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Users lists every account. Admin only.
func (c *Client) Users(ctx context.Context) ([]User, error) {
	raw, err := c.send(ctx, call{
		method: http.MethodGet,
		path:   "/admin/users",
		auth:   true,
		schema: "users",
	})
	if err != nil {
		return nil, err
	}
	var w struct {
		Users []userWire `json:"users"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, &SchemaError{Endpoint: "GET /admin/users", Err: err}
	}
	out := make([]User, 0, len(w.Users))
	for _, uw := range w.Users {
		u, err := uw.user()
		if err != nil {
			return nil, &SchemaError{Endpoint: "GET /admin/users", Err: err}
		}
		out = append(out, *u)
	}
	return out, nil
}

// SetUserRole changes an account's role. Admin only.
func (c *Client) SetUserRole(ctx context.Context, userID string, role Role) error {
	if !role.Valid() {
		return &ValidationError{Field: "role", Message: fmt.Sprintf("unknown role %q", role)}
	}
	_, err := c.send(ctx, call{
		method: http.MethodPut,
		path:   fmt.Sprintf("/admin/users/%s/role", url.PathEscape(userID)),
		body:   map[string]string{"role": string(role)},
		auth:   true,
	})
	return err
}

// Analytics fetches platform totals. Admin only.
func (c *Client) Analytics(ctx context.Context) (*Analytics, error) {
	raw, err := c.send(ctx, call{
		method: http.MethodGet,
		path:   "/admin/analytics",
		auth:   true,
		schema: "analytics",
	})
	if err != nil {
		return nil, err
	}
	var w struct {
		TotalStudents    int            `json:"total_students"`
		BeltDistribution map[string]int `json:"belt_distribution"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, &SchemaError{Endpoint: "GET /admin/analytics", Err: err}
	}
	return &Analytics{TotalStudents: w.TotalStudents, BeltDistribution: w.BeltDistribution}, nil
}
