package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/osia/cmd/osia/handlers"
)

// Doctor returns the command checking the tools osia shells out to.
func Doctor() *cobra.Command {
	var opts handlers.DoctorOptions

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that required external tools are installed",
		RunE: func(_ *cobra.Command, _ []string) error {
			return handlers.Doctor(opts)
		},
	}

	cmd.Flags().StringVar(&opts.Installer, "installer", "", "Path to the openshift-install executable")
	cmd.Flags().StringVar(&opts.DNSProvider, "dns-provider", "", "DNS provider that will be used")
	cmd.Flags().StringVar(&opts.Storage, "storage", "git", "Storage that will be used")

	return cmd
}
