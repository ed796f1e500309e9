package store

import (
	"context"
	"fmt"

	"github.com/roach88/shoal/internal/schema"
)

// Append inserts a signed commit at the tail of the log.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - re-appending a commit
// the log already holds is a no-op, so a retried run never duplicates
// operations. Prior rows are never rewritten.
//
// Appends are per-commit, not batched: if a run fails partway, everything
// appended so far stays durable and the next run plans only the remainder.
func (s *Store) Append(ctx context.Context, commit schema.Commit) error {
	payloadJSON, err := marshalPayload(commit.Operation.Payload)
	if err != nil {
		return fmt.Errorf("append operation: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO operations
		(id, entity_id, entity, action, name, previous, payload, public_key, signature)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		commit.ID,
		commit.EntityID,
		string(commit.Operation.Entity),
		string(commit.Operation.Action),
		commit.Operation.Name,
		commit.Operation.Previous,
		payloadJSON,
		commit.PublicKey,
		commit.Signature,
	)
	if err != nil {
		return fmt.Errorf("append operation: %w", err)
	}

	return nil
}
