// Package commands defines the CLI command structure and flag bindings.
//
// Command execution is delegated to handler functions in the handlers
// package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the osia CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "osia",
		Short:         "Provision and tear down OpenShift clusters across clouds",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(Install())
	cmd.AddCommand(Clean())
	cmd.AddCommand(Doctor())
	cmd.AddCommand(Version())

	return cmd
}
