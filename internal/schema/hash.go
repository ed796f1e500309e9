package schema

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Domain prefixes for content-addressed identity. Version suffix enables
// future algorithm migration without colliding with old identifiers.
const (
	DomainField     = "shoal/field/v1"
	DomainSchema    = "shoal/schema/v1"
	DomainOperation = "shoal/operation/v1"
)

// hashWithDomain computes BLAKE2b-256 with domain separation.
// Format: BLAKE2b(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h, err := blake2b.New256(nil)
	if err != nil {
		// Only reachable with a bad key argument, and we pass none.
		panic(err)
	}
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// FieldPayload builds the canonical content of a field entity. For relation
// fields targetID is the content-derived identifier of the schema version the
// field points at; for scalar fields it must be empty.
func FieldPayload(f Field, targetID string) map[string]any {
	if f.IsRelation() {
		return map[string]any{
			"name":   f.Name,
			"type":   string(f.RelationKind),
			"schema": targetID,
		}
	}
	return map[string]any{
		"name": f.Name,
		"type": string(f.Type),
	}
}

// FieldID computes the content-derived identifier of a field entity.
// Identical field content always yields the identical identifier; a change
// to the relation target changes the identifier of every field pointing at it.
func FieldID(f Field, targetID string) (string, error) {
	canonical, err := MarshalCanonical(FieldPayload(f, targetID))
	if err != nil {
		return "", fmt.Errorf("FieldID %q: %w", f.Name, err)
	}
	return hashWithDomain(DomainField, canonical), nil
}

// SchemaPayload builds the canonical content of a schema entity. fieldIDs
// are the identifiers of the schema's fields in field-name order; they are
// the schema's direct dependencies and part of its identity.
func SchemaPayload(name, description string, fieldIDs []string) map[string]any {
	return map[string]any{
		"name":        name,
		"description": description,
		"fields":      fieldIDs,
	}
}

// SchemaID computes the content-derived identifier of a schema version.
// Any change to the description, the field set or any transitively
// referenced entity produces a new identifier; reverting to previously
// committed content reproduces the old one.
func SchemaID(name, description string, fieldIDs []string) (string, error) {
	canonical, err := MarshalCanonical(SchemaPayload(name, description, fieldIDs))
	if err != nil {
		return "", fmt.Errorf("SchemaID %q: %w", name, err)
	}
	return hashWithDomain(DomainSchema, canonical), nil
}

// EncodeOperation produces the canonical bytes of an operation. These bytes
// are what gets signed and what the operation identifier is derived from.
func EncodeOperation(op Operation) ([]byte, error) {
	obj := map[string]any{
		"action":  string(op.Action),
		"entity":  string(op.Entity),
		"name":    op.Name,
		"payload": op.Payload,
	}
	if op.Previous != "" {
		obj["previous"] = op.Previous
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return nil, fmt.Errorf("encode operation %s %s %q: %w", op.Action, op.Entity, op.Name, err)
	}
	return canonical, nil
}

// OperationID computes the identifier of an operation from its canonical
// encoding. Unlike entity identifiers it covers the previous-version link,
// so re-creating identical content on a new version chain position still
// yields a distinct operation.
func OperationID(op Operation) (string, error) {
	canonical, err := EncodeOperation(op)
	if err != nil {
		return "", err
	}
	return hashWithDomain(DomainOperation, canonical), nil
}
