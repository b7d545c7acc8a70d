package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// AskSensei sends a question to the assistant, bounded by the assistant timeout.
func (c *Client) AskSensei(ctx context.Context, req SenseiRequest) (string, error) {
	if strings.TrimSpace(req.Question) == "" {
		return "", &ValidationError{Field: "question", Message: "is required"}
	}
	raw, err := c.send(ctx, call{
		method:  http.MethodPost,
		path:    "/sensei/ask",
		body:    req,
		auth:    true,
		timeout: c.senseiTimeout,
		schema:  "sensei",
	})
	if err != nil {
		return "", err
	}
	var w struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return "", &SchemaError{Endpoint: "POST /sensei/ask", Err: err}
	}
	return w.Response, nil
}
