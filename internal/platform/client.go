package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"todohub/internal/config"

	"github.com/sirupsen/logrus"
)

// Client talks to the hosted backend platform: the relational store behind a
// PostgREST-style endpoint, server-side procedures, object storage and the
// realtime change feed. All authorization is enforced by the platform's
// row-level security; this client only forwards the caller's access token.
type Client struct {
	baseURL string
	anonKey string
	http    *http.Client
	log     *logrus.Entry
}

func NewClient(cfg config.PlatformConfig, log *logrus.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		anonKey: cfg.AnonKey,
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     log.WithField("component", "platform"),
	}
}

type tokenKey struct{}

// WithAccessToken stores the caller's platform access token on the context.
// Requests made with that context run under the caller's identity and its
// row-level policies; without a token the anon key alone is sent.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func accessToken(ctx context.Context) string {
	if t, ok := ctx.Value(tokenKey{}).(string); ok {
		return t
	}
	return ""
}

type platformError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// do issues one request/response call against the store. A non-2xx response
// becomes a *RequestError; transport failures are returned as-is.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("error encoding request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("error building request: %v", err)
	}
	req.Header.Set("apikey", c.anonKey)
	if token := accessToken(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.anonKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost || method == http.MethodPatch {
		// Ask the store to echo the authoritative row back.
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("platform unreachable: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("platform unreachable: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		perr := platformError{}
		_ = json.Unmarshal(data, &perr)
		if perr.Message == "" {
			perr.Message = http.StatusText(resp.StatusCode)
		}
		return &RequestError{Status: resp.StatusCode, Code: perr.Code, Message: perr.Message}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("error decoding response: %v", err)
		}
	}
	return nil
}

// selectRows fetches rows from a table with PostgREST-style filters.
func (c *Client) selectRows(ctx context.Context, table string, query url.Values, out interface{}) error {
	return c.do(ctx, http.MethodGet, "/rest/v1/"+table, query, nil, out)
}

// selectOne fetches a single row and maps an empty result to ErrNotFound.
func selectOne[T any](ctx context.Context, c *Client, table string, query url.Values) (T, error) {
	var rows []T
	var zero T
	if err := c.selectRows(ctx, table, query, &rows); err != nil {
		return zero, err
	}
	if len(rows) == 0 {
		return zero, ErrNotFound
	}
	return rows[0], nil
}

// insertRow inserts one row and returns the authoritative representation.
func insertRow[T any](ctx context.Context, c *Client, table string, row interface{}) (T, error) {
	var rows []T
	var zero T
	if err := c.do(ctx, http.MethodPost, "/rest/v1/"+table, nil, []interface{}{row}, &rows); err != nil {
		return zero, err
	}
	if len(rows) == 0 {
		return zero, fmt.Errorf("store returned no representation for insert into %s", table)
	}
	return rows[0], nil
}

// rpc calls a named server-side procedure.
func (c *Client) rpc(ctx context.Context, name string, args, out interface{}) error {
	return c.do(ctx, http.MethodPost, "/rest/v1/rpc/"+name, nil, args, out)
}

func eq(value string) string { return "eq." + value }
