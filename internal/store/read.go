package store

import (
	"context"
	"fmt"

	"github.com/roach88/shoal/internal/build"
	"github.com/roach88/shoal/internal/schema"
)

// ReadAll returns every committed operation in log order.
func (s *Store) ReadAll(ctx context.Context) ([]schema.Commit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_id, entity, action, name, previous, payload, public_key, signature
		FROM operations
		ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("read operations: %w", err)
	}
	defer rows.Close()

	var commits []schema.Commit
	for rows.Next() {
		var (
			commit      schema.Commit
			entity      string
			action      string
			previous    string
			payloadJSON string
		)
		if err := rows.Scan(
			&commit.ID,
			&commit.EntityID,
			&entity,
			&action,
			&commit.Operation.Name,
			&previous,
			&payloadJSON,
			&commit.PublicKey,
			&commit.Signature,
		); err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}

		payload, err := unmarshalPayload(payloadJSON)
		if err != nil {
			return nil, fmt.Errorf("operation %s: %w", commit.ID, err)
		}

		commit.Operation.Entity = schema.Entity(entity)
		commit.Operation.Action = schema.Action(action)
		commit.Operation.Previous = previous
		commit.Operation.Payload = payload
		commits = append(commits, commit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read operations: %w", err)
	}

	return commits, nil
}

// Snapshot reads the whole log and derives the diff engine's view of it:
// the operation arena plus the latest-version-per-name index. Surfaces a
// ConsistencyError if the log is corrupted.
func (s *Store) Snapshot(ctx context.Context) (*build.Snapshot, error) {
	commits, err := s.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	return build.NewSnapshot(commits)
}

// Count returns the number of committed operations.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM operations`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count operations: %w", err)
	}
	return count, nil
}
