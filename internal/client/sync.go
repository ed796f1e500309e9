package client

import (
	"context"

	"github.com/roach88/shoal/internal/schema"
)

// SyncResult summarizes one deploy run.
type SyncResult struct {
	Published int // operations the node was missing
	Skipped   int // operations the node already held
}

// Sync publishes the local log to the node. The remote's currently known
// operation set is the diff baseline: only missing operations are published,
// in log order, so later operations never reference an identifier the node
// has not seen. Idempotent by construction - a second run against an
// up-to-date node publishes nothing.
//
// The context is checked before every publish: cancellation stops the run
// before the next not-yet-published operation, leaving the node consistent.
// A failed publish aborts with a TransportError; a retried run re-fetches
// the remote state and resumes from the first missing operation.
func (c *Client) Sync(ctx context.Context, commits []schema.Commit) (*SyncResult, error) {
	known, err := c.KnownOperations(ctx)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{}
	for _, commit := range commits {
		if known[commit.ID] {
			result.Skipped++
			continue
		}

		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := c.Publish(ctx, commit); err != nil {
			return result, err
		}
		result.Published++
	}

	return result, nil
}
