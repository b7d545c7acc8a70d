// Package api is the HTTP+JSON client for the HackDojo backend. Every
// response is validated and normalized here so the rest of the program only
// sees typed entities or one of the errors in errors.go.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 4 << 20

// Credentials supplies the bearer token for authenticated calls and is told
// when the server rejects it.
type Credentials interface {
	// Token returns the current bearer token, or "" when signed out.
	Token() string

	// Invalidate discards token if it is still the current one.
	Invalidate(token string, cause error)
}

// Client talks to the backend. It is safe for concurrent use.
type Client struct {
	baseURL       string
	http          *http.Client
	timeout       time.Duration
	senseiTimeout time.Duration
	runTimeout    time.Duration
	sanitizer     *bluemonday.Policy

	mu    sync.RWMutex
	creds Credentials
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeouts sets the default, assistant and code-execution timeouts.
// Zero values keep the current setting.
func WithTimeouts(def, sensei, run time.Duration) Option {
	return func(c *Client) {
		if def > 0 {
			c.timeout = def
		}
		if sensei > 0 {
			c.senseiTimeout = sensei
		}
		if run > 0 {
			c.runTimeout = run
		}
	}
}

// WithCredentials sets the token source for authenticated calls.
func WithCredentials(creds Credentials) Option {
	return func(c *Client) { c.creds = creds }
}

// New creates a Client for the API rooted at baseURL (for example
// "http://localhost:5000/api").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		http:          &http.Client{},
		timeout:       15 * time.Second,
		senseiTimeout: 10 * time.Second,
		runTimeout:    30 * time.Second,
		sanitizer:     bluemonday.StrictPolicy(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SetCredentials binds the token source after construction, for wiring where
// the session manager itself depends on the client.
func (c *Client) SetCredentials(creds Credentials) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds = creds
}

func (c *Client) credentials() Credentials {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creds
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// call describes one request.
type call struct {
	method string
	path   string
	body   any

	// auth attaches the session token; a 401/403 then invalidates it.
	auth bool
	// token, when set, is sent instead of the session token and a
	// rejection is reported without touching the session.
	token string

	timeout time.Duration
	schema  string
}

func (cl call) op() string {
	return cl.method + " " + cl.path
}

// send performs cl and returns the validated response body.
func (c *Client) send(ctx context.Context, cl call) (json.RawMessage, error) {
	token := cl.token
	sessionToken := false
	if token == "" && cl.auth {
		if creds := c.credentials(); creds != nil {
			token = creds.Token()
		}
		if token == "" {
			return nil, &AuthError{Message: "not signed in"}
		}
		sessionToken = true
	}

	var reader io.Reader
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", cl.op(), err)
		}
		reader = bytes.NewReader(b)
	}

	timeout := cl.timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, cl.method, c.baseURL+cl.path, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", cl.op(), err)
	}
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			// Caller cancelled: not a connectivity problem.
			return nil, ctx.Err()
		}
		return nil, &NetworkError{
			Op:      cl.op(),
			Timeout: errors.Is(err, context.DeadlineExceeded) || isTimeout(err),
			Err:     err,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &NetworkError{Op: cl.op(), Timeout: errors.Is(err, context.DeadlineExceeded), Err: err}
	}

	if resp.StatusCode >= 400 {
		statusErr := statusError(cl, resp.StatusCode, body)
		if sessionToken && IsAuth(statusErr) {
			if creds := c.credentials(); creds != nil {
				creds.Invalidate(token, statusErr)
			}
		}
		return nil, statusErr
	}

	if cl.schema != "" {
		if err := validateBody(cl.schema, body); err != nil {
			return nil, &SchemaError{Endpoint: cl.op(), Err: err}
		}
	}
	return body, nil
}

// statusError converts a non-success status into the error taxonomy.
func statusError(cl call, status int, body []byte) error {
	msg := serverMessage(body)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		if msg == "" {
			msg = http.StatusText(status)
		}
		return &AuthError{Status: status, Message: msg}
	case status == http.StatusNotFound:
		return &NotFoundError{Resource: resourceName(cl.path), Message: msg}
	case status == http.StatusRequestTimeout:
		if msg == "" {
			msg = "code execution timed out"
		}
		return &ExecutionError{Status: status, Message: msg}
	case status == http.StatusBadRequest || status == http.StatusConflict || status == http.StatusUnprocessableEntity:
		if msg == "" {
			msg = http.StatusText(status)
		}
		return &ValidationError{Message: msg}
	default:
		return &ServerError{Status: status, Message: msg}
	}
}

// serverMessage extracts a human-readable message from an error body.
func serverMessage(body []byte) string {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return strings.TrimSpace(string(body))
	}
	for _, key := range []string{"error", "message", "msg", "detail"} {
		if s, ok := m[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// resourceName turns "/lesson/4" into "lesson 4".
func resourceName(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	return strings.Join(parts, " ")
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

// blockBreaks turns block-level closing tags into line breaks before the
// markup is stripped, so paragraphs survive as text.
var blockBreaks = strings.NewReplacer(
	"<br>", "\n", "<br/>", "\n", "<br />", "\n",
	"</p>", "\n\n", "</li>", "\n", "</pre>", "\n", "</h1>", "\n", "</h2>", "\n", "</h3>", "\n",
)

// plainText strips markup from server-provided lesson text. Text without
// closing tags is returned as is so code samples like "a<b" stay intact.
func (c *Client) plainText(s string) string {
	if !strings.Contains(s, "</") && !strings.Contains(s, "/>") && !strings.Contains(s, "<br>") {
		return s
	}
	return strings.TrimSpace(html.UnescapeString(c.sanitizer.Sanitize(blockBreaks.Replace(s))))
}
