package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/osia/cmd/osia/handlers"
)

// Install returns the install command.
func Install() *cobra.Command {
	var opts handlers.Options

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install a new cluster",
		Long: `Install provisions the cloud resources of a new cluster and runs the installer.

The cluster directory <workdir>/<cluster-name> must not exist yet. Options
are read from settings.yaml and .secrets.yaml; flags set on the command line
take precedence. When the installer fails, everything acquired so far is
released again unless --skip-clean is set.

Example:
  osia install --cloud openstack --cloud-env prod --dns-provider nsupdate \
    --cluster-name demo --installer ./openshift-install`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.Overrides = overrides(cmd.Flags())
			return handlers.Install(cmd.Context(), opts)
		},
	}

	addCommonFlags(cmd, &opts)
	addInstallOptions(cmd.Flags())

	return cmd
}
