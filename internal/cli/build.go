package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/shoal/internal/build"
	"github.com/roach88/shoal/internal/keys"
	"github.com/roach88/shoal/internal/store"
)

// BuildOptions holds flags for the build command.
type BuildOptions struct {
	*RootOptions
	Inspect bool // print the plan without signing or appending
}

// BuildSummary holds summary statistics for JSON output.
type BuildSummary struct {
	Schemas    int      `json:"schemas"`
	Changed    int      `json:"changed"`
	Operations int      `json:"operations"`
	CommitIDs  []string `json:"commit_ids,omitempty"`
}

// NewBuildCommand creates the build command.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BuildOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:     "build",
		Aliases: []string{"update"},
		Short:   "Build schemas and commit new operations to the local log",
		Long: `Build schemas from the project's CUE definitions.

Definitions are diffed against the local operation log. Changed and new
schemas produce signed operations appended to the log; unchanged schemas
produce nothing, so repeated builds are no-ops. With --inspect the plan
is printed and the log is left untouched.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Inspect, "inspect", false, "show the plan without committing")

	return cmd
}

func runBuild(opts *BuildOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := LoadConfig(opts.Config)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return NewExitError(ExitCommandError, "build failed")
	}

	loaded, err := LoadDefinitions(cfg.Schemas)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	formatter.VerboseLog("Found %d CUE file(s), %d schema(s) in %s",
		loaded.FileCount, len(loaded.Definitions), cfg.Schemas)

	st, err := store.Open(cfg.Log)
	if err != nil {
		_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("opening log: %v", err), nil)
		return NewExitError(ExitCommandError, "build failed")
	}
	defer st.Close()

	ctx := cmd.Context()
	snap, err := st.Snapshot(ctx)
	if err != nil {
		return outputEngineError(formatter, err)
	}

	plan, err := build.Run(loaded.Definitions, snap)
	if err != nil {
		return outputEngineError(formatter, err)
	}

	if opts.Inspect {
		if formatter.Format == "json" {
			return formatter.Success(plan)
		}
		RenderPlan(formatter.Writer, plan)
		return nil
	}

	if !plan.HasChanges() {
		if formatter.Format == "json" {
			return formatter.Success(BuildSummary{Schemas: len(plan.Diffs)})
		}
		fmt.Fprintln(formatter.Writer, "No new changes to commit.")
		return nil
	}

	signer, err := keys.Load(cfg.Key)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, fmt.Sprintf("loading signing key: %v", err), nil)
		return NewExitError(ExitCommandError, "build failed")
	}

	summary := BuildSummary{Schemas: len(plan.Diffs), Operations: len(plan.Operations)}
	for _, d := range plan.Diffs {
		if d.Status != build.StatusUnchanged {
			summary.Changed++
		}
	}

	for _, op := range plan.Operations {
		commit, err := build.SignCommit(op, signer)
		if err != nil {
			return outputEngineError(formatter, err)
		}
		if err := st.Append(ctx, commit); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("appending to log: %v", err), nil)
			return NewExitError(ExitFailure, "build failed")
		}
		summary.CommitIDs = append(summary.CommitIDs, commit.ID)
		formatter.VerboseLog("Committed %s %s %s", op.Operation.Action, op.Operation.Entity, op.Operation.Name)
	}

	if formatter.Format == "json" {
		return formatter.Success(summary)
	}

	RenderPlan(formatter.Writer, plan)
	fmt.Fprintf(formatter.Writer, "\nCommitted %d operation(s) for %d schema(s).\n",
		summary.Operations, summary.Changed)
	return nil
}

// outputLoadError maps definition loader errors onto exit code 2.
func outputLoadError(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
		return NewExitError(ExitCommandError, loadErr.Message)
	}
	_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
	return NewExitError(ExitCommandError, err.Error())
}

// outputEngineError maps build engine errors onto codes and exit code 1.
func outputEngineError(formatter *OutputFormatter, err error) error {
	code := ErrCodeGeneric
	var details interface{}

	var defErr *build.DefinitionError
	var cycErr *build.CyclicError
	var conErr *build.ConsistencyError
	var sigErr *build.SigningError
	switch {
	case errors.As(err, &defErr):
		code = ErrCodeDefinition
	case errors.As(err, &cycErr):
		code = ErrCodeCycle
		details = map[string]string{"schemas": strings.Join(cycErr.Names, ", ")}
	case errors.As(err, &conErr):
		code = ErrCodeConsistency
	case errors.As(err, &sigErr):
		code = ErrCodeSigning
	}

	_ = formatter.Error(code, err.Error(), details)
	return NewExitError(ExitFailure, err.Error())
}
