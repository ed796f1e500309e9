package build

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shoal/internal/schema"
)

func fieldCommit(t *testing.T, name string) schema.Commit {
	t.Helper()
	f := schema.Field{Name: name, Type: schema.TypeString}
	entityID, err := schema.FieldID(f, "")
	require.NoError(t, err)
	op := schema.Operation{
		Action:  schema.ActionCreate,
		Entity:  schema.EntityField,
		Name:    name,
		Payload: schema.FieldPayload(f, ""),
	}
	opID, err := schema.OperationID(op)
	require.NoError(t, err)
	return schema.Commit{ID: opID, EntityID: entityID, Operation: op}
}

func schemaCommit(t *testing.T, name, description, previous string, fieldIDs []string) schema.Commit {
	t.Helper()
	entityID, err := schema.SchemaID(name, description, fieldIDs)
	require.NoError(t, err)
	op := schema.Operation{
		Action:   schema.ActionCreate,
		Entity:   schema.EntitySchema,
		Name:     name,
		Payload:  schema.SchemaPayload(name, description, fieldIDs),
		Previous: previous,
	}
	if previous != "" {
		op.Action = schema.ActionUpdate
	}
	opID, err := schema.OperationID(op)
	require.NoError(t, err)
	return schema.Commit{ID: opID, EntityID: entityID, Operation: op}
}

func TestNewSnapshot_LatestVersionIndex(t *testing.T) {
	f := fieldCommit(t, "name")
	v1 := schemaCommit(t, "cafe", "a cafe", "", []string{f.EntityID})
	v2 := schemaCommit(t, "cafe", "a nicer cafe", v1.EntityID, []string{f.EntityID})

	snap, err := NewSnapshot([]schema.Commit{f, v1, v2})
	require.NoError(t, err)

	latest, ok := snap.LatestSchema("cafe")
	require.True(t, ok)
	assert.Equal(t, v2.EntityID, latest, "index must resolve to the head of the version chain")

	assert.True(t, snap.HasEntity(v1.EntityID), "superseded versions stay in the arena")
	assert.True(t, snap.HasOperation(v1.ID))
	assert.Equal(t, []string{f.EntityID}, snap.LatestFields("cafe"))
}

func TestSnapshot_CommittedBinding(t *testing.T) {
	name := fieldCommit(t, "name")
	target := schemaCommit(t, "venue", "a venue", "", []string{name.EntityID})

	rel := schema.Field{Name: "venue", RelationKind: schema.Relation, RelationTarget: "venue"}
	relID, err := schema.FieldID(rel, target.EntityID)
	require.NoError(t, err)
	relOp := schema.Operation{
		Action:  schema.ActionCreate,
		Entity:  schema.EntityField,
		Name:    "venue",
		Payload: schema.FieldPayload(rel, target.EntityID),
	}
	relOpID, err := schema.OperationID(relOp)
	require.NoError(t, err)
	relCommit := schema.Commit{ID: relOpID, EntityID: relID, Operation: relOp}

	event := schemaCommit(t, "event", "an event", "", []string{relID})

	snap, err := NewSnapshot([]schema.Commit{name, target, relCommit, event})
	require.NoError(t, err)

	bound, ok := snap.CommittedBinding("event", "venue", schema.Relation)
	require.True(t, ok)
	assert.Equal(t, target.EntityID, bound)
	assert.True(t, snap.IsVersionOf(bound, "venue"))
	assert.False(t, snap.IsVersionOf(bound, "event"))

	// Scalar fields, unknown fields and kind mismatches carry no binding.
	_, ok = snap.CommittedBinding("venue", "name", schema.Relation)
	assert.False(t, ok)
	_, ok = snap.CommittedBinding("event", "missing", schema.Relation)
	assert.False(t, ok)
	_, ok = snap.CommittedBinding("event", "venue", schema.RelationList)
	assert.False(t, ok)
}

func TestNewSnapshot_UnknownSchemaAbsent(t *testing.T) {
	snap, err := NewSnapshot(nil)
	require.NoError(t, err)

	_, ok := snap.LatestSchema("ghost")
	assert.False(t, ok)
	assert.False(t, snap.HasEntity("anything"))
	assert.False(t, snap.HasOperation("anything"))
}

func TestNewSnapshot_IdenticalReplayIsIdempotent(t *testing.T) {
	f := fieldCommit(t, "name")
	v1 := schemaCommit(t, "cafe", "a cafe", "", []string{f.EntityID})

	// The same commit appearing twice carries identical content; that is
	// not a consistency violation.
	snap, err := NewSnapshot([]schema.Commit{f, f, v1})
	require.NoError(t, err)
	assert.True(t, snap.HasEntity(f.EntityID))
}

func TestNewSnapshot_ConsistencyViolation(t *testing.T) {
	f := fieldCommit(t, "name")
	forged := f
	forged.Operation.Payload = map[string]any{"name": "name", "type": "bytes"}

	_, err := NewSnapshot([]schema.Commit{f, forged})
	require.Error(t, err)

	var consistency *ConsistencyError
	require.ErrorAs(t, err, &consistency)
	assert.Equal(t, f.EntityID, consistency.EntityID)
}

func TestNewSnapshot_BrokenVersionChain(t *testing.T) {
	f := fieldCommit(t, "name")
	v1 := schemaCommit(t, "cafe", "a cafe", "", []string{f.EntityID})
	// Update linking to an identifier that is not the current head.
	bad := schemaCommit(t, "cafe", "a different cafe", "not-the-head", []string{f.EntityID})

	_, err := NewSnapshot([]schema.Commit{f, v1, bad})
	var consistency *ConsistencyError
	require.ErrorAs(t, err, &consistency)
}
