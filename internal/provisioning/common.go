package provisioning

import "github.com/imamik/osia/internal/config"

// Common holds the options every cloud backend shares.
type Common struct {
	ClusterName    string
	Dir            string
	BaseDomain     string
	MasterFlavor   string
	MasterReplicas int
	WorkerFlavor   string
	WorkerReplicas int
	EnableFIPS     bool
	EnableIPv6     bool
}

// NewCommon extracts the shared options from cfg.
func NewCommon(cfg *config.Cloud, clusterName, dir string) Common {
	return Common{
		ClusterName:    clusterName,
		Dir:            dir,
		BaseDomain:     cfg.BaseDomain,
		MasterFlavor:   cfg.MasterFlavor,
		MasterReplicas: cfg.MasterReplicas,
		WorkerFlavor:   cfg.WorkerFlavor,
		WorkerReplicas: cfg.WorkerReplicas,
		EnableFIPS:     cfg.EnableFIPS,
		EnableIPv6:     cfg.EnableIPv6,
	}
}

// CommonContext returns the template values shared by all clouds.
// Backends add their own keys to the returned map.
func (c Common) CommonContext() map[string]any {
	return map[string]any{
		"cluster_name":    c.ClusterName,
		"base_domain":     c.BaseDomain,
		"master_flavor":   c.MasterFlavor,
		"master_replicas": c.MasterReplicas,
		"worker_flavor":   c.WorkerFlavor,
		"worker_replicas": c.WorkerReplicas,
		"enable_fips":     c.EnableFIPS,
		"enable_ipv6":     c.EnableIPv6,
	}
}
