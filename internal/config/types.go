package config

// Settings is the decoded content of the settings files.
type Settings struct {
	Cloud   map[string]CloudSection `mapstructure:"cloud"`
	DNS     map[string]DNS          `mapstructure:"dns"`
	Storage Storage                 `mapstructure:"storage"`
}

// CloudSection holds all environments configured for one cloud.
// When Environments is empty the section uses the legacy flat layout and
// the embedded Cloud carries the values directly.
type CloudSection struct {
	CloudEnv     string        `mapstructure:"cloud_env"`
	Environments []Environment `mapstructure:"environments"`
	Cloud        `mapstructure:",squash"`
}

// Environment is a named set of cloud defaults.
type Environment struct {
	Name  string `mapstructure:"name"`
	Cloud `mapstructure:",squash"`
}

// Cloud holds every install option a provisioner or template can consume.
type Cloud struct {
	BaseDomain            string `mapstructure:"base_domain"`
	MasterFlavor          string `mapstructure:"master_flavor"`
	MasterReplicas        int    `mapstructure:"master_replicas"`
	WorkerFlavor          string `mapstructure:"worker_flavor"`
	WorkerReplicas        int    `mapstructure:"worker_replicas"`
	PullSecretFile        string `mapstructure:"pull_secret_file"`
	SSHKeyFile            string `mapstructure:"ssh_key_file"`
	CertificateBundleFile string `mapstructure:"certificate_bundle_file"`
	SkipClean             bool   `mapstructure:"skip_clean"`
	EnableFIPS            bool   `mapstructure:"enable_fips"`
	EnableIPv6            bool   `mapstructure:"enable_ipv6"`
	OSImage               string `mapstructure:"os_image"`

	// AWS
	ListOfRegions []string `mapstructure:"list_of_regions"`

	// OpenStack
	OSPCloud            string   `mapstructure:"osp_cloud"`
	OSPBaseFlavor       string   `mapstructure:"osp_base_flavor"`
	NetworkList         []string `mapstructure:"network_list"`
	OSPImageDownload    bool     `mapstructure:"osp_image_download"`
	OSPImageUnique      bool     `mapstructure:"osp_image_unique"`
	ImagesDir           string   `mapstructure:"images_dir"`
	MaxImageRaceRetries *int     `mapstructure:"max_image_race_retries"`

	// Hetzner
	HCloudToken string   `mapstructure:"hcloud_token"`
	Locations   []string `mapstructure:"locations"`

	// CapacityThreshold overrides the per-region usage limit. Zero means default.
	CapacityThreshold int `mapstructure:"capacity_threshold"`

	// Deprecated aliases of OSPCloud and OSPBaseFlavor.
	PSICloud      string `mapstructure:"psi_cloud"`
	PSIBaseFlavor string `mapstructure:"psi_base_flavor"`
}

// DNS holds the settings of one DNS provider.
type DNS struct {
	Provider    string `mapstructure:"provider"`
	ClusterName string `mapstructure:"cluster_name"`
	BaseDomain  string `mapstructure:"base_domain"`
	TTL         int    `mapstructure:"ttl"`
	KeyFile     string `mapstructure:"key_file"`
	Server      string `mapstructure:"server"`
	Zone        string `mapstructure:"zone"`
	UseIPv4     bool   `mapstructure:"use_ipv4"`
}

// Storage configures where cluster directories are persisted.
type Storage struct {
	S3 S3 `mapstructure:"s3"`
}

// S3 configures the S3 cluster directory store.
type S3 struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// Resolved is the configuration for a single install or clean operation.
type Resolved struct {
	ClusterName string
	CloudName   string
	Cloud       *Cloud
	DNS         *DNS
}

// ImageRaceRetries returns the configured image race retry budget.
func (c *Cloud) ImageRaceRetries() int {
	if c.MaxImageRaceRetries == nil {
		return DefaultImageRaceRetries
	}
	return *c.MaxImageRaceRetries
}

// ImageCacheDir returns the directory used to cache downloaded boot images.
func (c *Cloud) ImageCacheDir() string {
	if c.ImagesDir == "" {
		return DefaultImagesDir
	}
	return c.ImagesDir
}
