package schema

import "fmt"

// FieldType enumerates the scalar field types.
type FieldType string

const (
	TypeBool   FieldType = "bool"
	TypeInt    FieldType = "int"
	TypeFloat  FieldType = "float"
	TypeString FieldType = "str"
	TypeBytes  FieldType = "bytes"
)

// ValidFieldTypes defines the allowed scalar types.
var ValidFieldTypes = map[FieldType]bool{
	TypeBool:   true,
	TypeInt:    true,
	TypeFloat:  true,
	TypeString: true,
	TypeBytes:  true,
}

// RelationKind enumerates the relation field types.
type RelationKind string

const (
	Relation           RelationKind = "relation"
	RelationList       RelationKind = "relation_list"
	PinnedRelation     RelationKind = "pinned_relation"
	PinnedRelationList RelationKind = "pinned_relation_list"
)

// ValidRelationKinds defines the allowed relation kinds.
var ValidRelationKinds = map[RelationKind]bool{
	Relation:           true,
	RelationList:       true,
	PinnedRelation:     true,
	PinnedRelationList: true,
}

// Field is a single field declaration inside a schema definition.
// Exactly one of Type or RelationKind is set: scalar fields carry Type,
// relation fields carry RelationKind plus the name of the target schema.
type Field struct {
	Name           string       `json:"name"`
	Type           FieldType    `json:"type,omitempty"`
	RelationKind   RelationKind `json:"relation_kind,omitempty"`
	RelationTarget string       `json:"relation_target,omitempty"`
}

// IsRelation reports whether the field references another schema.
func (f Field) IsRelation() bool {
	return f.RelationKind != ""
}

// TypeString renders the field type the way definitions declare it,
// e.g. "str" or "relation(venue)".
func (f Field) TypeString() string {
	if f.IsRelation() {
		return fmt.Sprintf("%s(%s)", f.RelationKind, f.RelationTarget)
	}
	return string(f.Type)
}

// Definition is one target schema as declared by the user, with fields
// sorted by name. The loader guarantees name uniqueness within a definition.
type Definition struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Fields      []Field `json:"fields"`
}

// Action enumerates what an operation does to its entity.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
)

// Entity enumerates the kinds of entities an operation acts on.
type Entity string

const (
	EntityField  Entity = "field"
	EntitySchema Entity = "schema"
)

// Operation is one immutable record in the log: the creation or update of
// a single field or schema version. Payload holds the entity content keyed
// the way it is canonically encoded; Previous links an update to the entity
// identifier of the version it supersedes.
type Operation struct {
	Action   Action         `json:"action"`
	Entity   Entity         `json:"entity"`
	Name     string         `json:"name"`
	Previous string         `json:"previous,omitempty"`
	Payload  map[string]any `json:"payload"`
}

// Commit is a signed operation as it is persisted and published. ID is the
// operation identifier, EntityID the content-derived identifier of the
// entity version the operation produces.
type Commit struct {
	ID        string    `json:"id"`
	EntityID  string    `json:"entity_id"`
	Operation Operation `json:"operation"`
	PublicKey string    `json:"public_key"`
	Signature string    `json:"signature"`
}
