package build

import (
	"github.com/roach88/shoal/internal/schema"
)

// PlannedOperation is one operation the planner decided to emit, paired with
// the identifier of the entity version it produces.
type PlannedOperation struct {
	Operation schema.Operation
	EntityID  string
}

// Plan is the complete outcome of a run: the classification of every target
// schema plus the minimal ordered operation sequence required to reach the
// target state. Applying the operations in order never references an
// identifier that is not already defined by an earlier operation or the
// prior log.
type Plan struct {
	Diffs      []SchemaDiff
	Operations []PlannedOperation
}

// HasChanges reports whether the plan contains any operations. Re-running
// on unchanged input always yields a plan with zero operations.
func (p *Plan) HasChanges() bool {
	return len(p.Operations) > 0
}

// plan walks the classified schemas in dependency order and emits exactly
// the operations required. Field creations precede the schema operation that
// references them; a field is emitted at most once per run regardless of how
// many schemas declare it.
func plan(diffs []SchemaDiff) []PlannedOperation {
	var ops []PlannedOperation
	emittedFields := make(map[string]bool)

	for _, d := range diffs {
		if d.Status == StatusUnchanged {
			continue
		}

		for _, fd := range d.Fields {
			if fd.Known || emittedFields[fd.EntityID] {
				continue
			}
			emittedFields[fd.EntityID] = true
			ops = append(ops, PlannedOperation{
				Operation: schema.Operation{
					Action:  schema.ActionCreate,
					Entity:  schema.EntityField,
					Name:    fd.Field.Name,
					Payload: schema.FieldPayload(fd.Field, fd.TargetID),
				},
				EntityID: fd.EntityID,
			})
		}

		op := schema.Operation{
			Entity:  schema.EntitySchema,
			Name:    d.Name,
			Payload: schema.SchemaPayload(d.Name, d.Description, d.FieldIDs),
		}
		switch d.Status {
		case StatusNew:
			op.Action = schema.ActionCreate
		case StatusUpdated:
			op.Action = schema.ActionUpdate
			op.Previous = d.PreviousID
		}
		ops = append(ops, PlannedOperation{Operation: op, EntityID: d.EntityID})
	}

	return ops
}

// Run executes the pure part of a build: validation, dependency resolution,
// diffing against the snapshot and operation planning. It performs no I/O
// and has no side effects; given the same definitions and snapshot it always
// returns the same plan.
func Run(defs []schema.Definition, snap *Snapshot) (*Plan, error) {
	if err := validate(defs); err != nil {
		return nil, err
	}

	order, err := buildGraph(defs, snap)
	if err != nil {
		return nil, err
	}

	diffs, err := diff(defs, snap, order)
	if err != nil {
		return nil, err
	}

	return &Plan{Diffs: diffs, Operations: plan(diffs)}, nil
}
