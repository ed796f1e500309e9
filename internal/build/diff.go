package build

import (
	"sort"

	"github.com/roach88/shoal/internal/schema"
)

// Status classifies a target schema against the committed log.
type Status string

const (
	// StatusUnchanged means the schema's identifier is already committed;
	// nothing is planned for it.
	StatusUnchanged Status = "unchanged"
	// StatusUpdated means the schema name is committed under a different
	// identifier; an update chained to the latest version is planned.
	StatusUpdated Status = "updated"
	// StatusNew means the schema name is absent from the log; a full
	// creation is planned.
	StatusNew Status = "new"
)

// FieldDiff is one target field with its resolved identifier. Known fields
// (identifier already committed, whichever schema declared them) are
// referenced, never recreated.
type FieldDiff struct {
	Field    schema.Field
	TargetID string // resolved relation target version, empty for scalars
	EntityID string
	Known    bool
}

// SchemaDiff is the classification of one target schema, carrying everything
// the planner and the plan renderer need.
type SchemaDiff struct {
	Name        string
	Description string
	Status      Status
	EntityID    string
	PreviousID  string // latest committed version, set for updated schemas
	Fields      []FieldDiff
	FieldIDs    []string // field entity IDs in field-name order
}

// diff resolves identifiers for the whole target set in dependency order and
// classifies every schema as unchanged, updated or new. The returned slice
// follows the graph emission order.
//
// Relation fields resolve against the target's this-run version, except for
// self-relations and cycle-breaking bindings, which resolve against a prior
// version of the target. A self-relation without a committed prior version
// is a same-run cycle and fails.
//
// Prior-version bindings anchor to the committed head: a schema that already
// holds such a binding first tries to reproduce exactly what its head
// references. When that reproduces the head, the schema is unchanged; only a
// real content change re-binds against the target's current head and grows
// the version chain. Without the anchor a rebuild on unchanged input would
// chase the moving head and plan new versions forever.
func diff(defs []schema.Definition, snap *Snapshot, order *graphOrder) ([]SchemaDiff, error) {
	byName := make(map[string]schema.Definition, len(defs))
	for _, def := range defs {
		byName[def.Name] = def
	}

	resolved := make(map[string]string, len(defs))
	diffs := make([]SchemaDiff, 0, len(defs))

	for _, name := range order.names {
		def := byName[name]

		fields := make([]schema.Field, len(def.Fields))
		copy(fields, def.Fields)
		sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })

		d := SchemaDiff{Name: name, Description: def.Description}

		var fds []FieldDiff
		var ids []string

		if carriesPriorBindings(def, order) {
			if _, ok := snap.LatestSchema(name); ok {
				anchoredFds, anchoredIDs, err := resolveFields(fields, name, snap, order, resolved, true)
				if err != nil {
					return nil, err
				}
				id, err := schema.SchemaID(name, def.Description, anchoredIDs)
				if err != nil {
					return nil, err
				}
				if snap.HasEntity(id) {
					fds, ids = anchoredFds, anchoredIDs
				}
			}
		}

		if fds == nil {
			var err error
			fds, ids, err = resolveFields(fields, name, snap, order, resolved, false)
			if err != nil {
				return nil, err
			}
		}

		d.Fields = fds
		d.FieldIDs = ids

		schemaID, err := schema.SchemaID(name, def.Description, ids)
		if err != nil {
			return nil, err
		}
		d.EntityID = schemaID
		resolved[name] = schemaID

		switch prev, ok := snap.LatestSchema(name); {
		case snap.HasEntity(schemaID):
			d.Status = StatusUnchanged
		case ok:
			d.Status = StatusUpdated
			d.PreviousID = prev
		default:
			d.Status = StatusNew
		}

		diffs = append(diffs, d)
	}

	return diffs, nil
}

// carriesPriorBindings reports whether any of the schema's relations resolve
// against a prior version: self-relations, or membership in a broken cycle.
func carriesPriorBindings(def schema.Definition, order *graphOrder) bool {
	if order.inCycle(def.Name) {
		return true
	}
	for _, f := range def.Fields {
		if f.IsRelation() && f.RelationTarget == def.Name {
			return true
		}
	}
	return false
}

// resolveFields resolves every field to its entity identifier. In anchored
// mode, relations that bind to prior versions reuse the binding recorded in
// the schema's committed head where one exists; the caller accepts the
// result only when it reproduces the head.
func resolveFields(fields []schema.Field, name string, snap *Snapshot, order *graphOrder, resolved map[string]string, anchored bool) ([]FieldDiff, []string, error) {
	fds := make([]FieldDiff, 0, len(fields))
	ids := make([]string, 0, len(fields))

	for _, f := range fields {
		var targetID string
		if f.IsRelation() {
			var err error
			targetID, err = resolveTarget(f, name, snap, order, resolved, anchored)
			if err != nil {
				return nil, nil, err
			}
		}

		fieldID, err := schema.FieldID(f, targetID)
		if err != nil {
			return nil, nil, err
		}

		fds = append(fds, FieldDiff{
			Field:    f,
			TargetID: targetID,
			EntityID: fieldID,
			Known:    snap.HasEntity(fieldID),
		})
		ids = append(ids, fieldID)
	}

	return fds, ids, nil
}

// resolveTarget picks the schema version a relation field binds to.
func resolveTarget(f schema.Field, name string, snap *Snapshot, order *graphOrder, resolved map[string]string, anchored bool) (string, error) {
	if anchored && (f.RelationTarget == name || order.sameCycle(name, f.RelationTarget)) {
		// Anchor only when the committed binding still points at a version
		// of the declared target; a re-pointed field resolves fresh.
		if bound, ok := snap.CommittedBinding(name, f.Name, f.RelationKind); ok && snap.IsVersionOf(bound, f.RelationTarget) {
			return bound, nil
		}
	}

	switch {
	case f.RelationTarget == name:
		prior, ok := snap.LatestSchema(name)
		if !ok {
			return "", &CyclicError{Names: []string{name}}
		}
		return prior, nil
	case order.boundToPrior(f.RelationTarget, name):
		// The graph builder only cuts through schemas with a committed
		// version, so the lookup cannot miss.
		prior, _ := snap.LatestSchema(f.RelationTarget)
		return prior, nil
	default:
		return resolved[f.RelationTarget], nil
	}
}
