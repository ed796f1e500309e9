// Package build is the schema build engine: it resolves inter-schema
// dependencies into a deterministic emission order, diffs the target
// definitions against a snapshot of the committed operation log, and plans
// the minimal ordered sequence of create/update operations needed to reach
// the target state.
//
// The whole pipeline is pure and synchronous: definitions and a snapshot go
// in, a plan comes out. Signing and persistence happen at the caller's
// boundary, so build and deploy share the exact same diff and planning code
// with different snapshots.
package build
