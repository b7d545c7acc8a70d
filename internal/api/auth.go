package api

import (
	"context"
	"net/http"
)

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	raw, err := c.send(ctx, call{
		method: http.MethodPost,
		path:   "/auth/login",
		body:   map[string]string{"email": email, "password": password},
		schema: "auth",
	})
	if err != nil {
		return nil, err
	}
	res, err := decodeAuth(raw)
	if err != nil {
		return nil, &SchemaError{Endpoint: "POST /auth/login", Err: err}
	}
	return res, nil
}

// Register creates an account and signs it in.
func (c *Client) Register(ctx context.Context, email, password string, role Role) (*AuthResult, error) {
	raw, err := c.send(ctx, call{
		method: http.MethodPost,
		path:   "/auth/register",
		body:   map[string]string{"email": email, "password": password, "role": string(role)},
		schema: "auth",
	})
	if err != nil {
		return nil, err
	}
	res, err := decodeAuth(raw)
	if err != nil {
		return nil, &SchemaError{Endpoint: "POST /auth/register", Err: err}
	}
	return res, nil
}

// Profile fetches the user that token belongs to. The token is passed
// explicitly so a stored credential can be checked before it becomes the
// session's; a rejection is returned, not broadcast.
func (c *Client) Profile(ctx context.Context, token string) (*User, error) {
	raw, err := c.send(ctx, call{
		method: http.MethodGet,
		path:   "/auth/profile",
		token:  token,
		schema: "profile",
	})
	if err != nil {
		return nil, err
	}
	u, err := decodeProfile(raw)
	if err != nil {
		return nil, &SchemaError{Endpoint: "GET /auth/profile", Err: err}
	}
	return u, nil
}
