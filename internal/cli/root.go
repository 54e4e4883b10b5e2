// Package cli holds the crudapi commands.
package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Debug bool
}

// NewRootCommand creates the crudapi root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "crudapi",
		Short: "REST CRUD endpoints for YAML-described Postgres resources",
		Long: `crudapi serves list/read/create/update/delete routes for every resource
described in the resources directory, with filtering, projections,
relation loading and pagination driven by the query string.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Debug, "debug", "d", false, "enable debug logging")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewTranslateCommand(opts))
	return cmd
}
