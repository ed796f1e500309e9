// Package client talks to a remote node over its GraphQL HTTP endpoint.
// The engine only needs two capabilities from a node: the set of operations
// it already knows, and accepting one published operation at a time.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/roach88/shoal/internal/schema"
)

// TransportError reports a failed remote read or write. Transport failures
// are always retryable: a retried deploy re-fetches the remote state and
// resumes from the first missing operation.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("TRANSPORT_FAILED: node %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Client is a node client for deployment.
type Client struct {
	endpoint string
	http     *http.Client
	log      zerolog.Logger
}

// New returns a client for the node at the given GraphQL endpoint.
func New(endpoint string, logger zerolog.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 30 * time.Second},
		log:      logger.With().Str("component", "client").Str("endpoint", endpoint).Logger(),
	}
}

// graphqlRequest is the standard GraphQL HTTP request envelope.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

// query posts a GraphQL document and decodes the data field into out.
func (c *Client) query(ctx context.Context, req graphqlRequest, out any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return &TransportError{Endpoint: c.endpoint, Err: fmt.Errorf("encode request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return &TransportError{Endpoint: c.endpoint, Err: err}
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-Id", requestID)

	c.log.Debug().Str("request_id", requestID).Msg("sending node request")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return &TransportError{Endpoint: c.endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &TransportError{
			Endpoint: c.endpoint,
			Err:      fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(data)),
		}
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphqlError  `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return &TransportError{Endpoint: c.endpoint, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(envelope.Errors) > 0 {
		return &TransportError{
			Endpoint: c.endpoint,
			Err:      fmt.Errorf("node rejected request: %s", envelope.Errors[0].Message),
		}
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return &TransportError{Endpoint: c.endpoint, Err: fmt.Errorf("decode data: %w", err)}
		}
	}

	return nil
}

// KnownOperations fetches the identifiers of all operations the node
// already holds. This set is the diff baseline for deployment.
func (c *Client) KnownOperations(ctx context.Context) (map[string]bool, error) {
	var result struct {
		KnownOperations []struct {
			ID string `json:"id"`
		} `json:"knownOperations"`
	}

	err := c.query(ctx, graphqlRequest{
		Query: `{ knownOperations { id } }`,
	}, &result)
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(result.KnownOperations))
	for _, op := range result.KnownOperations {
		known[op.ID] = true
	}

	c.log.Debug().Int("count", len(known)).Msg("fetched known operations")
	return known, nil
}

// Publish sends one signed commit to the node.
func (c *Client) Publish(ctx context.Context, commit schema.Commit) error {
	err := c.query(ctx, graphqlRequest{
		Query: `mutation Publish($commit: CommitInput!) { publish(commit: $commit) { id } }`,
		Variables: map[string]any{
			"commit": commit,
		},
	}, nil)
	if err != nil {
		return err
	}

	c.log.Debug().Str("operation", commit.ID).Str("name", commit.Operation.Name).Msg("published operation")
	return nil
}
