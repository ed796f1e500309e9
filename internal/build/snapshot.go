package build

import (
	"bytes"
	"fmt"

	"github.com/roach88/shoal/internal/schema"
)

// Snapshot is an immutable view of a committed operation log: everything the
// diff engine needs to know about prior state, decoupled from where that
// state lives (local store on build, remote node on deploy).
type Snapshot struct {
	operations     map[string]bool           // operation ID set
	entityPayloads map[string]map[string]any // entity ID -> canonical payload
	schemaHeads    map[string]string         // schema name -> latest schema entity ID
	headFields     map[string][]string       // schema name -> field entity IDs of latest version
	schemaVersions map[string]string         // schema entity ID -> schema name
}

// NewSnapshot replays committed operations in log order and derives the
// latest-version-per-name index. The index is always rebuilt from the
// operations, never persisted redundantly.
//
// Returns a ConsistencyError if the same entity identifier appears with
// differing content, or if a schema's version chain is broken.
func NewSnapshot(commits []schema.Commit) (*Snapshot, error) {
	s := &Snapshot{
		operations:     make(map[string]bool),
		entityPayloads: make(map[string]map[string]any),
		schemaHeads:    make(map[string]string),
		headFields:     make(map[string][]string),
		schemaVersions: make(map[string]string),
	}

	for _, commit := range commits {
		op := commit.Operation

		if existing, ok := s.entityPayloads[commit.EntityID]; ok {
			same, err := samePayload(existing, op.Payload)
			if err != nil {
				return nil, err
			}
			if !same {
				return nil, &ConsistencyError{
					EntityID: commit.EntityID,
					Message:  fmt.Sprintf("operation %s carries different content for a known identifier", commit.ID),
				}
			}
		}

		s.operations[commit.ID] = true
		s.entityPayloads[commit.EntityID] = op.Payload

		if op.Entity == schema.EntitySchema {
			if op.Action == schema.ActionUpdate {
				head, ok := s.schemaHeads[op.Name]
				if !ok || head != op.Previous {
					return nil, &ConsistencyError{
						EntityID: commit.EntityID,
						Message: fmt.Sprintf("update for schema %q links to %s which is not the latest version",
							op.Name, op.Previous),
					}
				}
			}
			s.schemaHeads[op.Name] = commit.EntityID
			s.headFields[op.Name] = payloadFieldIDs(op.Payload)
			s.schemaVersions[commit.EntityID] = op.Name
		}
	}

	return s, nil
}

// HasOperation reports whether the log already contains the operation.
func (s *Snapshot) HasOperation(id string) bool {
	return s.operations[id]
}

// HasEntity reports whether any committed operation produced the given
// entity version. This is the de-duplication check of the diff engine.
func (s *Snapshot) HasEntity(id string) bool {
	_, ok := s.entityPayloads[id]
	return ok
}

// LatestSchema returns the entity identifier of the latest committed version
// of the named schema, if one exists. Schemas removed from the definitions
// stay dormant here; they are never deleted.
func (s *Snapshot) LatestSchema(name string) (string, bool) {
	id, ok := s.schemaHeads[name]
	return id, ok
}

// LatestFields returns the field entity identifiers of the latest committed
// version of the named schema.
func (s *Snapshot) LatestFields(name string) []string {
	return s.headFields[name]
}

// CommittedBinding returns the relation target recorded for the named field
// in the latest committed version of the schema. This is what keeps
// prior-version bindings stable: a rebuild reuses the binding the head
// already holds instead of chasing the target's moving head.
func (s *Snapshot) CommittedBinding(schemaName, fieldName string, kind schema.RelationKind) (string, bool) {
	for _, fid := range s.headFields[schemaName] {
		p, ok := s.entityPayloads[fid]
		if !ok {
			continue
		}
		name, _ := p["name"].(string)
		typ, _ := p["type"].(string)
		if name != fieldName || typ != string(kind) {
			continue
		}
		target, _ := p["schema"].(string)
		return target, target != ""
	}
	return "", false
}

// IsVersionOf reports whether the entity identifier is a committed version
// of the named schema.
func (s *Snapshot) IsVersionOf(id, name string) bool {
	return s.schemaVersions[id] == name
}

// EntityPayload returns the committed content of an entity version.
func (s *Snapshot) EntityPayload(id string) (map[string]any, bool) {
	p, ok := s.entityPayloads[id]
	return p, ok
}

// samePayload compares two payloads by their canonical encoding.
func samePayload(a, b map[string]any) (bool, error) {
	ca, err := schema.MarshalCanonical(a)
	if err != nil {
		return false, fmt.Errorf("compare payloads: %w", err)
	}
	cb, err := schema.MarshalCanonical(b)
	if err != nil {
		return false, fmt.Errorf("compare payloads: %w", err)
	}
	return bytes.Equal(ca, cb), nil
}

// payloadFieldIDs extracts the field identifier list from a schema payload.
// Payloads decoded from storage carry it as []any, freshly built ones as
// []string.
func payloadFieldIDs(payload map[string]any) []string {
	switch raw := payload["fields"].(type) {
	case []string:
		return raw
	case []any:
		ids := make([]string, 0, len(raw))
		for _, v := range raw {
			if s, ok := v.(string); ok {
				ids = append(ids, s)
			}
		}
		return ids
	default:
		return nil
	}
}
