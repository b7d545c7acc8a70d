package api

import (
	"context"
	"net/http"
	"strings"
)

// Execute runs code in the backend sandbox. A timed-out run is reported as
// an ExecutionError; stderr from a run that finished is returned in
// ExecResult.Error.
func (c *Client) Execute(ctx context.Context, req ExecRequest) (*ExecResult, error) {
	if strings.TrimSpace(req.Code) == "" {
		return nil, &ValidationError{Field: "code", Message: "is required"}
	}
	raw, err := c.send(ctx, call{
		method:  http.MethodPost,
		path:    "/run",
		body:    req,
		auth:    true,
		timeout: c.runTimeout,
		schema:  "execute",
	})
	if err != nil {
		return nil, err
	}
	res, err := decodeExec(raw)
	if err != nil {
		return nil, &SchemaError{Endpoint: "POST /run", Err: err}
	}
	return res, nil
}
