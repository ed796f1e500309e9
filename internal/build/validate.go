package build

import (
	"fmt"

	"github.com/roach88/shoal/internal/schema"
)

// validate checks structural well-formedness of the target definition set.
// All checks run before any hashing: a failed validation leaves no trace in
// the log.
func validate(defs []schema.Definition) error {
	names := make(map[string]bool, len(defs))
	for _, def := range defs {
		if names[def.Name] {
			return &DefinitionError{Schema: def.Name, Message: "schema defined more than once"}
		}
		names[def.Name] = true
	}

	for _, def := range defs {
		if len(def.Fields) == 0 {
			return &DefinitionError{Schema: def.Name, Message: "schema does not contain any fields"}
		}

		fieldNames := make(map[string]bool, len(def.Fields))
		for _, f := range def.Fields {
			if f.Name == "" {
				return &DefinitionError{Schema: def.Name, Message: "field with empty name"}
			}
			if fieldNames[f.Name] {
				return &DefinitionError{Schema: def.Name, Field: f.Name, Message: "duplicate field name"}
			}
			fieldNames[f.Name] = true

			if f.IsRelation() {
				if !schema.ValidRelationKinds[f.RelationKind] {
					return &DefinitionError{
						Schema: def.Name, Field: f.Name,
						Message: fmt.Sprintf("unknown relation kind %q", f.RelationKind),
					}
				}
				if f.RelationTarget == "" {
					return &DefinitionError{Schema: def.Name, Field: f.Name, Message: "relation without target schema"}
				}
				if !names[f.RelationTarget] {
					return &DefinitionError{
						Schema: def.Name, Field: f.Name,
						Message: fmt.Sprintf("unknown relation target %q", f.RelationTarget),
					}
				}
				if f.Type != "" {
					return &DefinitionError{Schema: def.Name, Field: f.Name, Message: "field declares both scalar and relation type"}
				}
			} else if !schema.ValidFieldTypes[f.Type] {
				return &DefinitionError{
					Schema: def.Name, Field: f.Name,
					Message: fmt.Sprintf("unknown field type %q", f.Type),
				}
			}
		}
	}

	return nil
}
