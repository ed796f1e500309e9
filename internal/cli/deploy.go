package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/roach88/shoal/internal/client"
	"github.com/roach88/shoal/internal/store"
)

// DeployOptions holds flags for the deploy command.
type DeployOptions struct {
	*RootOptions
	Endpoint string // node GraphQL endpoint, overrides shoal.yaml
}

// DeploySummary holds summary statistics for JSON output.
type DeploySummary struct {
	Endpoint  string `json:"endpoint"`
	Published int    `json:"published"`
	Skipped   int    `json:"skipped"`
}

// NewDeployCommand creates the deploy command.
func NewDeployCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeployOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Publish committed operations to a node",
		Long: `Publish the local operation log to a remote node.

Operations the node already knows are skipped, so deploy can be re-run
after a partial failure and resumes at the first missing operation.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Endpoint, "endpoint", "", "node endpoint (defaults to shoal.yaml)")

	return cmd
}

func runDeploy(opts *DeployOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := LoadConfig(opts.Config)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return NewExitError(ExitCommandError, "deploy failed")
	}

	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = cfg.Endpoint
	}
	if endpoint == "" {
		_ = formatter.Error(ErrCodeConfig, "no endpoint configured: set endpoint in shoal.yaml or pass --endpoint", nil)
		return NewExitError(ExitCommandError, "deploy failed")
	}

	st, err := store.Open(cfg.Log)
	if err != nil {
		_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("opening log: %v", err), nil)
		return NewExitError(ExitCommandError, "deploy failed")
	}
	defer st.Close()

	ctx := cmd.Context()
	commits, err := st.ReadAll(ctx)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("reading log: %v", err), nil)
		return NewExitError(ExitFailure, "deploy failed")
	}
	if len(commits) == 0 {
		_ = formatter.Error(ErrCodeConfig, "operation log is empty: run \"shoal build\" first", nil)
		return NewExitError(ExitCommandError, "deploy failed")
	}

	logger := zerolog.Nop()
	if opts.Verbose {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	c := client.New(endpoint, logger)
	result, err := c.Sync(ctx, commits)
	if err != nil {
		var transportErr *client.TransportError
		if errors.As(err, &transportErr) {
			_ = formatter.Error(ErrCodeTransport, err.Error(), nil)
			return NewExitError(ExitFailure, err.Error())
		}
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return NewExitError(ExitFailure, err.Error())
	}

	summary := DeploySummary{
		Endpoint:  endpoint,
		Published: result.Published,
		Skipped:   result.Skipped,
	}
	if formatter.Format == "json" {
		return formatter.Success(summary)
	}

	if summary.Published == 0 {
		fmt.Fprintf(formatter.Writer, "Node %s is up to date (%d operation(s) already known).\n",
			endpoint, summary.Skipped)
		return nil
	}
	fmt.Fprintf(formatter.Writer, "Published %d operation(s) to %s (%d already known).\n",
		summary.Published, endpoint, summary.Skipped)
	return nil
}
