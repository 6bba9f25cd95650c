package config

import (
	"fmt"
	"net"
)

// Clouds with a provisioner.
const (
	CloudAWS       = "aws"
	CloudOpenStack = "openstack"
	CloudHetzner   = "hetzner"
)

// DNS providers with a registrar.
const (
	DNSNSUpdate   = "nsupdate"
	DNSRoute53    = "route53"
	DNSCloudflare = "cloudflare"
)

// Validate checks the resolved configuration for an install.
func (r *Resolved) Validate() error {
	if r.ClusterName == "" {
		return fmt.Errorf("cluster_name is required")
	}
	if r.Cloud == nil {
		return fmt.Errorf("cloud is required for install")
	}

	if err := r.Cloud.Validate(r.CloudName); err != nil {
		return fmt.Errorf("cloud validation failed: %w", err)
	}

	if r.DNS != nil {
		if err := r.DNS.Validate(); err != nil {
			return fmt.Errorf("dns validation failed: %w", err)
		}
	}

	return nil
}

// Validate checks the install options for the given cloud.
func (c *Cloud) Validate(cloud string) error {
	if c.BaseDomain == "" {
		return fmt.Errorf("base_domain is required")
	}
	if c.PullSecretFile == "" {
		return fmt.Errorf("pull_secret_file is required")
	}
	if c.SSHKeyFile == "" {
		return fmt.Errorf("ssh_key_file is required")
	}
	if c.MasterReplicas < 0 {
		return fmt.Errorf("master_replicas must not be negative, got %d", c.MasterReplicas)
	}
	if c.WorkerReplicas < 0 {
		return fmt.Errorf("worker_replicas must not be negative, got %d", c.WorkerReplicas)
	}
	if c.CapacityThreshold < 0 {
		return fmt.Errorf("capacity_threshold must not be negative, got %d", c.CapacityThreshold)
	}
	if c.MaxImageRaceRetries != nil && *c.MaxImageRaceRetries < 0 {
		return fmt.Errorf("max_image_race_retries must not be negative, got %d", *c.MaxImageRaceRetries)
	}

	switch cloud {
	case CloudAWS:
	case CloudOpenStack:
		if c.OSPCloud == "" {
			return fmt.Errorf("osp_cloud is required for openstack")
		}
		if len(c.NetworkList) == 0 {
			return fmt.Errorf("network_list is required for openstack")
		}
	case CloudHetzner:
		if c.HCloudToken == "" {
			return fmt.Errorf("hcloud_token is required for hetzner")
		}
	default:
		return fmt.Errorf("unsupported cloud %q", cloud)
	}

	return nil
}

// Validate checks the settings of the selected DNS provider.
func (d *DNS) Validate() error {
	if d.TTL < 0 {
		return fmt.Errorf("ttl must not be negative, got %d", d.TTL)
	}

	switch d.Provider {
	case DNSNSUpdate:
		if d.KeyFile == "" {
			return fmt.Errorf("key_file is required for nsupdate")
		}
		if d.Server == "" {
			return fmt.Errorf("server is required for nsupdate")
		}
		if d.Zone == "" {
			return fmt.Errorf("zone is required for nsupdate")
		}
	case DNSRoute53, DNSCloudflare:
		if d.BaseDomain == "" {
			return fmt.Errorf("base_domain is required for %s", d.Provider)
		}
	default:
		return fmt.Errorf("unsupported dns provider %q", d.Provider)
	}

	return nil
}

// ValidateAddress checks that ip is a usable record target. When IPv4 is
// enforced, IPv6 addresses are rejected.
func (d *DNS) ValidateAddress(ip string) error {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return fmt.Errorf("invalid IP address %q", ip)
	}
	if d.UseIPv4 && parsed.To4() == nil {
		return fmt.Errorf("address %q is not IPv4 but use_ipv4 is set", ip)
	}
	return nil
}
