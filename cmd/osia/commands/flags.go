package commands

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/imamik/osia/cmd/osia/handlers"
)

type optionKind int

const (
	kindString optionKind = iota
	kindInt
	kindBool
)

// installOption is a settings key that can be set on the command line.
// The flag name is the key with dashes.
type installOption struct {
	key   string
	kind  optionKind
	usage string
}

var installOptions = []installOption{
	{"base_domain", kindString, "Base domain for the cluster"},
	{"os_image", kindString, "Boot image to override"},
	{"master_flavor", kindString, "Flavor used for master nodes"},
	{"master_replicas", kindInt, "Number of replicas for master nodes"},
	{"worker_flavor", kindString, "Flavor of worker nodes"},
	{"worker_replicas", kindInt, "Number of replicas of worker nodes"},
	{"pull_secret_file", kindString, "File containing the pull secret from cloud.redhat.com"},
	{"ssh_key_file", kindString, "File with the public ssh key used by the installer"},
	{"certificate_bundle_file", kindString, "CA bundle file"},
	{"list_of_regions", kindString, "List of AWS regions, comma separated"},
	{"osp_cloud", kindString, "Name of the OpenStack cloud identity in clouds.yaml"},
	{"osp_base_flavor", kindString, "Base flavor to be used in OpenStack"},
	{"osp_image_download", kindBool, "Download the boot image with osia instead of the installer"},
	{"osp_image_unique", kindBool, "Upload a unique image per cluster"},
	{"network_list", kindString, "List of usable OpenStack networks, comma separated"},
	{"images_dir", kindString, "Directory where downloaded images are stored"},
	{"max_image_race_retries", kindInt, "How often image resolution restarts after a concurrent delete"},
	{"locations", kindString, "List of Hetzner locations, comma separated"},
	{"capacity_threshold", kindInt, "Maximum floating IP usage in percent before a region is skipped"},
	{"skip_clean", kindBool, "Skip clean when installation fails"},
	{"enable_fips", kindBool, "Enable FIPS mode on the cluster"},
	{"enable_ipv6", kindBool, "Enable IPv6 networking on the cluster"},
	{"psi_cloud", kindString, "DEPRECATED see --osp-cloud"},
	{"psi_base_flavor", kindString, "DEPRECATED see --osp-base-flavor"},
	{"dns_ttl", kindInt, "TTL of the records"},
	{"dns_key_file", kindString, "Key file used to access the DNS server via nsupdate"},
	{"dns_zone", kindString, "Zone on the server where the records are stored"},
	{"dns_server", kindString, "Address of the server running bind"},
	{"dns_use_ipv4", kindBool, "Use only IPv4 for DNS settings"},
}

func flagName(key string) string { return strings.ReplaceAll(key, "_", "-") }

// addInstallOptions registers every install option. Values are read back
// through overrides, so the bound variables are discarded.
func addInstallOptions(flags *pflag.FlagSet) {
	for _, opt := range installOptions {
		switch opt.kind {
		case kindInt:
			flags.Int(flagName(opt.key), 0, opt.usage)
		case kindBool:
			flags.Bool(flagName(opt.key), false, opt.usage)
		default:
			flags.String(flagName(opt.key), "", opt.usage)
		}
	}
}

// overrides returns the install options explicitly set on the command
// line, keyed by settings key. Unset flags never shadow the settings files.
func overrides(flags *pflag.FlagSet) map[string]string {
	keys := make(map[string]string, len(installOptions))
	for _, opt := range installOptions {
		keys[flagName(opt.key)] = opt.key
	}

	out := make(map[string]string)
	flags.Visit(func(f *pflag.Flag) {
		if key, ok := keys[f.Name]; ok {
			out[key] = f.Value.String()
		}
	})
	return out
}

// addCommonFlags binds the flags shared by install and clean.
func addCommonFlags(cmd *cobra.Command, opts *handlers.Options) {
	flags := cmd.Flags()
	flags.StringVar(&opts.ClusterName, "cluster-name", "", "Name of the cluster (required)")
	flags.StringVar(&opts.Installer, "installer", "", "Path to the openshift-install executable (required)")
	flags.StringVar(&opts.Cloud, "cloud", "", "Cloud provider: aws, openstack or hetzner")
	flags.StringVar(&opts.CloudEnv, "cloud-env", "", "Environment of the cloud settings to use")
	flags.StringVar(&opts.DNSProvider, "dns-provider", "", "DNS provider: nsupdate, route53 or cloudflare")
	flags.BoolVar(&opts.SkipGit, "skip-git", false, "Skip persisting the cluster directory")
	flags.StringVar(&opts.Storage, "storage", "git", "Where cluster directories are persisted: git, s3 or none")
	flags.StringVar(&opts.SettingsFile, "settings", "", "Settings file (default: settings.yaml and .secrets.yaml)")
	flags.StringVar(&opts.WorkDir, "workdir", handlers.DefaultWorkDir, "Directory holding one directory per cluster")
	flags.StringVar(&opts.MetricsFile, "metrics-file", "", "Write operation metrics in node_exporter textfile format")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "Increase verbosity level")

	_ = cmd.MarkFlagRequired("cluster-name")
	_ = cmd.MarkFlagRequired("installer")
}
