package railway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/oshokin/usage-alarms/internal/logger"
	"github.com/oshokin/usage-alarms/internal/version"
)

const (
	// DefaultEndpoint is the public GraphQL endpoint.
	DefaultEndpoint = "https://backboard.railway.app/graphql/v2"

	// maxErrorBody limits how much of a failed response is kept.
	maxErrorBody = 4 << 10
)

// Client sends GraphQL queries on behalf of one API token.
type Client struct {
	// httpClient performs the requests.
	httpClient *http.Client
	// endpoint is the GraphQL URL.
	endpoint string
	// token is sent as a bearer token.
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for requests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithEndpoint overrides the GraphQL endpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithTimeout bounds every request made by the client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{
				Transport: c.httpClient.Transport,
				Timeout:   timeout,
			}
		}
	}
}

// New creates a client authenticating with token.
func New(token string, opts ...Option) *Client {
	c := &Client{
		httpClient: new(http.Client),
		endpoint:   DefaultEndpoint,
		token:      token,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// request is the GraphQL request body.
type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// response is the GraphQL response envelope.
type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// query executes a GraphQL query and decodes its data into out.
func (c *Client) query(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(request{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("marshal query: %w", err)
	}

	logger.DebugKV(ctx, "Executing Railway query", "variables", variables)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		return &StatusError{Code: resp.StatusCode, Body: string(text)}
	}

	var envelope response
	if err = json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if len(envelope.Errors) > 0 {
		messages := make([]string, 0, len(envelope.Errors))
		for _, e := range envelope.Errors {
			messages = append(messages, e.Message)
		}

		return &ResponseError{Messages: messages}
	}

	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return ErrDataMissing
	}

	if err = json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}

	return nil
}
