// Package schema defines the data model of the build engine: field and
// schema definitions as declared by the user, the immutable operations the
// engine plans, and the canonical encoding plus content hashing that gives
// every entity version a stable, content-derived identifier.
//
// Identifiers are pure functions of canonical content and dependency
// identifiers. They double as de-duplication keys: the diff engine skips
// anything whose identifier is already present in the log.
package schema
