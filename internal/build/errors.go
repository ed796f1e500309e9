package build

import (
	"fmt"
	"strings"
)

// DefinitionError reports a structurally invalid definition set: unknown
// relation targets, duplicate or missing fields. It is always detected
// before any hashing occurs, so a failed run has no side effects.
type DefinitionError struct {
	Schema  string // schema the problem was found in
	Field   string // offending field, if any
	Message string
}

func (e *DefinitionError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("DEFINITION_INVALID: schema %q field %q: %s", e.Schema, e.Field, e.Message)
	}
	return fmt.Sprintf("DEFINITION_INVALID: schema %q: %s", e.Schema, e.Message)
}

// CyclicError reports a same-run circular relation between schemas. Names
// lists the participating schemas in lexical order. A relation cycle is only
// fatal when every participant is pending in the current run; cycles that
// pass through an already-committed schema version are resolved against that
// prior version instead.
type CyclicError struct {
	Names []string
}

func (e *CyclicError) Error() string {
	return fmt.Sprintf("CYCLIC_DEPENDENCY: circular relation between schemas: %s", strings.Join(e.Names, ", "))
}

// ConsistencyError reports an identifier collision with differing content in
// a committed log. Given the hash construction this should be unreachable;
// it surfaces as a corruption signal and is never silently repaired.
type ConsistencyError struct {
	EntityID string
	Message  string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("CONSISTENCY_VIOLATION: entity %s: %s", e.EntityID, e.Message)
}
