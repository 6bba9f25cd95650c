package config

import (
	"fmt"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/go-logr/logr"

	"github.com/imamik/osia/internal/logging"
)

// Request names what to resolve out of the settings.
type Request struct {
	ClusterName string
	Cloud       string
	CloudEnv    string
	DNSProvider string

	// Overrides holds only the flags the user explicitly set, keyed by
	// option name with underscores (master_flavor, dns_ttl, ...).
	Overrides map[string]string
}

// Resolve builds the configuration of a single cluster operation.
// Cloud and DNS stay nil when the request does not name them.
func (s *Settings) Resolve(req Request, log logr.Logger) (*Resolved, error) {
	if req.ClusterName == "" {
		return nil, fmt.Errorf("cluster name is required")
	}

	result := &Resolved{ClusterName: req.ClusterName, CloudName: req.Cloud}

	if req.DNSProvider != "" {
		dns := s.DNS[req.DNSProvider]
		dns.Provider = req.DNSProvider
		if err := applyOverrides(&dns, dnsOverrides(req.Overrides)); err != nil {
			return nil, fmt.Errorf("failed to apply dns overrides: %w", err)
		}
		dns.Provider = req.DNSProvider
		result.DNS = &dns
	}

	if req.Cloud != "" {
		cloud, err := s.resolveCloud(req.Cloud, req.CloudEnv, log)
		if err != nil {
			return nil, err
		}
		if err := applyOverrides(cloud, cloudOverrides(req.Overrides)); err != nil {
			return nil, fmt.Errorf("failed to apply install overrides: %w", err)
		}
		cloud.migrateDeprecated(log)
		result.Cloud = cloud

		if result.DNS != nil {
			result.DNS.ClusterName = req.ClusterName
			result.DNS.BaseDomain = cloud.BaseDomain
		}
	}

	if result.DNS != nil && result.DNS.TTL == 0 {
		result.DNS.TTL = DefaultTTL
	}

	return result, nil
}

func (s *Settings) resolveCloud(name, env string, log logr.Logger) (*Cloud, error) {
	section, ok := s.Cloud[name]
	if !ok {
		log.V(1).Info("No settings for cloud, relying on command line", "cloud", name)
		return &Cloud{}, nil
	}

	if len(section.Environments) == 0 {
		logging.Warn(log, "DEPRECATION WARNING: the flat cloud settings layout is deprecated, use environments and cloud_env",
			"cloud", name)
		cloud := section.Cloud
		return &cloud, nil
	}

	if env == "" {
		env = section.CloudEnv
	}
	if env == "" {
		return nil, fmt.Errorf("invalid environment setup for cloud %q: cloud_env is missing", name)
	}

	for _, e := range section.Environments {
		if e.Name == env {
			cloud := e.Cloud
			return &cloud, nil
		}
	}

	log.V(1).Info("No environment found, expecting all options on the command line", "cloud", name, "env", env)
	return &Cloud{}, nil
}

func (c *Cloud) migrateDeprecated(log logr.Logger) {
	if c.PSICloud != "" {
		logging.Warn(log, "DEPRECATION WARNING: psi_cloud is deprecated, use osp_cloud")
		if c.OSPCloud == "" {
			c.OSPCloud = c.PSICloud
		}
	}
	if c.PSIBaseFlavor != "" {
		logging.Warn(log, "DEPRECATION WARNING: psi_base_flavor is deprecated, use osp_base_flavor")
		if c.OSPBaseFlavor == "" {
			c.OSPBaseFlavor = c.PSIBaseFlavor
		}
	}
}

func dnsOverrides(overrides map[string]string) map[string]string {
	out := make(map[string]string)
	for k, v := range overrides {
		if strings.HasPrefix(k, dnsFlagPrefix) {
			out[strings.TrimPrefix(k, dnsFlagPrefix)] = v
		}
	}
	return out
}

func cloudOverrides(overrides map[string]string) map[string]string {
	out := make(map[string]string)
	for k, v := range overrides {
		if !strings.HasPrefix(k, dnsFlagPrefix) {
			out[k] = v
		}
	}
	return out
}

// applyOverrides decodes string flag values onto target. Keys without a
// matching field are ignored.
func applyOverrides(target any, overrides map[string]string) error {
	if len(overrides) == 0 {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToSliceHookFunc(","),
		Result:           target,
	})
	if err != nil {
		return err
	}

	input := make(map[string]any, len(overrides))
	for k, v := range overrides {
		input[k] = v
	}
	return decoder.Decode(input)
}
