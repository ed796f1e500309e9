package cli

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shoal/internal/build"
	"github.com/roach88/shoal/internal/keys"
	"github.com/roach88/shoal/internal/schema"
)

func cafeDefinitions() []schema.Definition {
	return []schema.Definition{
		{
			Name:        "cafe",
			Description: "A cafe",
			Fields: []schema.Field{
				{Name: "name", Type: schema.TypeString},
				{Name: "menu", RelationKind: schema.RelationList, RelationTarget: "menu_item"},
			},
		},
		{
			Name:        "menu_item",
			Description: "An item on the menu",
			Fields: []schema.Field{
				{Name: "name", Type: schema.TypeString},
				{Name: "price", Type: schema.TypeInt},
			},
		},
	}
}

func TestRenderPlan_NewProject(t *testing.T) {
	snap, err := build.NewSnapshot(nil)
	require.NoError(t, err)

	plan, err := build.Run(cafeDefinitions(), snap)
	require.NoError(t, err)

	var buf bytes.Buffer
	RenderPlan(&buf, plan)

	g := goldie.New(t)
	g.Assert(t, "plan_new_project", buf.Bytes())
}

func TestRenderPlan_NoChanges(t *testing.T) {
	defs := cafeDefinitions()

	snap, err := build.NewSnapshot(nil)
	require.NoError(t, err)
	plan, err := build.Run(defs, snap)
	require.NoError(t, err)

	kp, err := keys.Generate()
	require.NoError(t, err)

	var commits []schema.Commit
	for _, op := range plan.Operations {
		commit, err := build.SignCommit(op, kp)
		require.NoError(t, err)
		commits = append(commits, commit)
	}

	replayed, err := build.NewSnapshot(commits)
	require.NoError(t, err)
	plan, err = build.Run(defs, replayed)
	require.NoError(t, err)
	require.False(t, plan.HasChanges())

	var buf bytes.Buffer
	RenderPlan(&buf, plan)

	g := goldie.New(t)
	g.Assert(t, "plan_no_changes", buf.Bytes())
}
