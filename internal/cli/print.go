package cli

import (
	"fmt"
	"io"

	"github.com/roach88/shoal/internal/build"
	"github.com/roach88/shoal/internal/schema"
)

// shortID truncates an entity or operation identifier for display.
func shortID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12]
}

// RenderPlan writes a human-readable summary of a build plan.
//
// Unchanged schemas get a single line; changed ones list their fields with
// a marker for each new field entity.
func RenderPlan(w io.Writer, plan *build.Plan) {
	for _, d := range plan.Diffs {
		switch d.Status {
		case build.StatusUnchanged:
			fmt.Fprintf(w, "%s %s (unchanged)\n", shortID(d.EntityID), d.Name)
			continue
		case build.StatusNew:
			fmt.Fprintf(w, "%s %s (new)\n", shortID(d.EntityID), d.Name)
		case build.StatusUpdated:
			fmt.Fprintf(w, "%s %s (updated from %s)\n", shortID(d.EntityID), d.Name, shortID(d.PreviousID))
		}
		for _, f := range d.Fields {
			marker := "+"
			if f.Known {
				marker = " "
			}
			if f.Field.IsRelation() {
				fmt.Fprintf(w, "  %s %s: %s(%s@%s)\n",
					marker, f.Field.Name, f.Field.RelationKind, f.Field.RelationTarget, shortID(f.TargetID))
			} else {
				fmt.Fprintf(w, "  %s %s: %s\n", marker, f.Field.Name, f.Field.Type)
			}
		}
	}

	if !plan.HasChanges() {
		fmt.Fprintln(w, "\nNo new changes to commit.")
		return
	}

	fmt.Fprintf(w, "\nOperations (%d):\n", len(plan.Operations))
	for _, op := range plan.Operations {
		renderOperation(w, op)
	}
}

func renderOperation(w io.Writer, op build.PlannedOperation) {
	switch {
	case op.Operation.Entity == schema.EntityField:
		fmt.Fprintf(w, "  CreateField %s %s\n", op.Operation.Name, shortID(op.EntityID))
	case op.Operation.Action == schema.ActionCreate:
		fmt.Fprintf(w, "  CreateSchema %s %s\n", op.Operation.Name, shortID(op.EntityID))
	default:
		fmt.Fprintf(w, "  UpdateSchema %s %s (previous %s)\n",
			op.Operation.Name, shortID(op.EntityID), shortID(op.Operation.Previous))
	}
}
