package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/shoal/internal/keys"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
}

const sampleSchema = `package shoal

// Schema definitions for this project.
//
// Scalar field types: bool, int, float, str, bytes.
// Relation field types: relation, relation_list, pinned_relation,
// pinned_relation_list; relations name their target schema.
schemas: {
	events: {
		description: "Events and gatherings"
		fields: {
			title: {type: "str"}
			date: {type: "str"}
		}
	}
}
`

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Initialise a new schema project",
		Long: `Initialise a new schema project in the given directory (default ".").

Creates shoal.yaml, a schemas/ directory with a sample definition, and a
new signing key in secret.txt. Refuses to overwrite existing files.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(opts, dir, cmd)
		},
	}

	return cmd
}

func runInit(opts *InitOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("creating project directory: %v", err), nil)
		return NewExitError(ExitCommandError, "init failed")
	}

	cfgPath := filepath.Join(dir, "shoal.yaml")
	if _, err := os.Stat(cfgPath); err == nil {
		_ = formatter.Error(ErrCodeConfig, fmt.Sprintf("%s already exists", cfgPath), nil)
		return NewExitError(ExitCommandError, "init failed")
	}

	cfg := DefaultConfig(dir)
	if err := WriteConfig(cfgPath, cfg); err != nil {
		_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing %s: %v", cfgPath, err), nil)
		return NewExitError(ExitCommandError, "init failed")
	}
	formatter.VerboseLog("Wrote %s", cfgPath)

	if err := os.MkdirAll(cfg.Schemas, 0755); err != nil {
		_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("creating schema directory: %v", err), nil)
		return NewExitError(ExitCommandError, "init failed")
	}

	schemaPath := filepath.Join(cfg.Schemas, "schema.cue")
	if _, err := os.Stat(schemaPath); os.IsNotExist(err) {
		if err := os.WriteFile(schemaPath, []byte(sampleSchema), 0644); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing %s: %v", schemaPath, err), nil)
			return NewExitError(ExitCommandError, "init failed")
		}
		formatter.VerboseLog("Wrote %s", schemaPath)
	}

	kp, err := keys.Generate()
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("generating signing key: %v", err), nil)
		return NewExitError(ExitCommandError, "init failed")
	}
	if err := kp.Save(cfg.Key); err != nil {
		_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing signing key: %v", err), nil)
		return NewExitError(ExitCommandError, "init failed")
	}
	formatter.VerboseLog("Wrote %s", cfg.Key)

	if formatter.Format == "json" {
		return formatter.Success(map[string]string{
			"config":     cfgPath,
			"schemas":    cfg.Schemas,
			"key":        cfg.Key,
			"public_key": kp.PublicKey(),
		})
	}

	fmt.Fprintf(formatter.Writer, "Initialised schema project in %s\n", dir)
	fmt.Fprintf(formatter.Writer, "Public key: %s\n", kp.PublicKey())
	return nil
}
