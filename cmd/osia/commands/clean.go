package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/osia/cmd/osia/handlers"
)

// Clean returns the clean command.
//
// Teardown works from the cluster directory alone; --cloud and
// --dns-provider only contribute settings such as credentials.
func Clean() *cobra.Command {
	var opts handlers.Options

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove a cluster",
		Long: `Clean removes the DNS records, released addresses and images of a cluster
and runs the installer destroy.

Example:
  osia clean --cluster-name demo --installer ./openshift-install`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.Overrides = overrides(cmd.Flags())
			return handlers.Clean(cmd.Context(), opts)
		},
	}

	addCommonFlags(cmd, &opts)

	return cmd
}
