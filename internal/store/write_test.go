package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/shoal/internal/schema"
)

// createTestStore creates a store backed by a temporary database.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestCommit creates a signed field-creation commit for tests.
func createTestCommit(id, name string) schema.Commit {
	return schema.Commit{
		ID:       id,
		EntityID: "entity-" + id,
		Operation: schema.Operation{
			Action: schema.ActionCreate,
			Entity: schema.EntityField,
			Name:   name,
			Payload: map[string]any{
				"name": name,
				"type": "str",
			},
		},
		PublicKey: "test-key",
		Signature: "test-sig",
	}
}

func TestAppend_Basic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	commit := createTestCommit("op-1", "title")
	if err := s.Append(ctx, commit); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	var storedID, payload, signature string
	err := s.db.QueryRow(`
		SELECT id, payload, signature FROM operations WHERE id = ?
	`, commit.ID).Scan(&storedID, &payload, &signature)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}

	if storedID != commit.ID {
		t.Errorf("id = %q, want %q", storedID, commit.ID)
	}
	wantPayload := `{"name":"title","type":"str"}`
	if payload != wantPayload {
		t.Errorf("payload = %s, want %s", payload, wantPayload)
	}
	if signature != commit.Signature {
		t.Errorf("signature = %q, want %q", signature, commit.Signature)
	}
}

func TestAppend_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	commit := createTestCommit("op-1", "title")
	for i := 0; i < 3; i++ {
		if err := s.Append(ctx, commit); err != nil {
			t.Fatalf("Append() run %d failed: %v", i, err)
		}
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1 after duplicate appends", count)
	}
}

func TestAppend_PreservesOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	names := []string{"zebra", "apple", "mango"}
	for _, name := range names {
		commit := createTestCommit("op-"+name, name)
		if err := s.Append(ctx, commit); err != nil {
			t.Fatalf("Append(%s) failed: %v", name, err)
		}
	}

	commits, err := s.ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll() failed: %v", err)
	}
	if len(commits) != len(names) {
		t.Fatalf("ReadAll() returned %d commits, want %d", len(commits), len(names))
	}
	for i, name := range names {
		if commits[i].Operation.Name != name {
			t.Errorf("commits[%d].Name = %q, want %q (append order, not lexical)", i, commits[i].Operation.Name, name)
		}
	}
}

func TestAppend_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err := s.Append(ctx, createTestCommit("op-1", "title")); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}
	s.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()

	commits, err := s2.ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll() failed: %v", err)
	}
	if len(commits) != 1 {
		t.Fatalf("ReadAll() after reopen returned %d commits, want 1", len(commits))
	}
	if commits[0].Operation.Name != "title" {
		t.Errorf("name = %q, want %q", commits[0].Operation.Name, "title")
	}
}
