// Package hetzner provisions the public addresses of clusters on Hetzner
// Cloud.
//
// A location is picked by counting the floating IPs already homed there.
// The API address is reserved before installation; the applications
// address is reserved afterwards and routed to the cluster's ingress node.
package hetzner

import (
	"context"
	"fmt"

	hcloudsdk "github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/osia/internal/config"
	"github.com/imamik/osia/internal/ledger"
	"github.com/imamik/osia/internal/platform/hcloud"
	"github.com/imamik/osia/internal/provisioning"
	"github.com/imamik/osia/internal/util/labels"
	"github.com/imamik/osia/internal/util/naming"
)

// Name is the cloud name, template name and ledger provider of this backend.
const Name = config.CloudHetzner

const (
	phaseAcquire = "acquire"
	phasePost    = "post-install"
)

// ClientFactory returns a Hetzner client authenticated with token.
type ClientFactory func(token string) hcloud.AddressManager

// NewClient is the ClientFactory talking to the real API.
func NewClient(token string) hcloud.AddressManager {
	return hcloud.NewRealClient(token)
}

// Provisioner reserves floating IPs for a cluster.
type Provisioner struct {
	provisioning.Common

	token     string
	locations []string
	threshold int
	newClient ClientFactory
	observer  provisioning.Observer

	client   hcloud.AddressManager
	location string
	apiFIP   string
	appsFIP  string
}

// NewFactory returns the registry factory for Hetzner clusters.
func NewFactory(newClient ClientFactory, observer provisioning.Observer) provisioning.Factory {
	return func(cfg *config.Cloud, clusterName, dir string) (provisioning.Provisioner, error) {
		if cfg.HCloudToken == "" {
			return nil, fmt.Errorf("hcloud_token is required")
		}
		return &Provisioner{
			Common:    provisioning.NewCommon(cfg, clusterName, dir),
			token:     cfg.HCloudToken,
			locations: append([]string(nil), cfg.Locations...),
			threshold: cfg.CapacityThreshold,
			newClient: newClient,
			observer:  observer.WithFields(map[string]string{"cloud": Name, "cluster": clusterName}),
		}, nil
	}
}

func (p *Provisioner) Name() string { return Name }

// Location returns the selected location, empty before AcquireResources.
func (p *Provisioner) Location() string { return p.location }

// AcquireResources picks a location and reserves the API address there.
func (p *Provisioner) AcquireResources(ctx context.Context) error {
	p.client = p.newClient(p.token)

	candidates := p.locations
	if len(candidates) == 0 {
		all, err := p.client.Locations(ctx)
		if err != nil {
			return err
		}
		candidates = all
	}

	location, err := provisioning.FirstBelowThreshold(ctx, candidates, p.client.CountFloatingIPs, p.threshold)
	if err != nil {
		return err
	}
	p.location = location
	p.observer.Event(provisioning.Event{
		Type:     provisioning.EventResourceExists,
		Phase:    phaseAcquire,
		Resource: location,
		Message:  "selected location",
	})

	fip, err := p.reserve(ctx, phaseAcquire, naming.PurposeAPI)
	if err != nil {
		return err
	}
	p.apiFIP = fip.IP.String()
	return nil
}

// reserve allocates a floating IP and records it in the ledger before
// returning.
func (p *Provisioner) reserve(ctx context.Context, phase, purpose string) (*hcloudsdk.FloatingIP, error) {
	name := naming.FloatingIP(p.ClusterName, purpose)
	provisioning.LogResourceCreating(p.observer, phase, "floating ip", name)

	fipLabels := labels.NewLabelBuilder(p.ClusterName).WithPurpose(purpose).Build()
	fip, err := p.client.EnsureFloatingIP(ctx, name, p.location, fipLabels)
	if err != nil {
		return nil, err
	}
	if fip.IP == nil {
		return nil, fmt.Errorf("floating IP %s has no address", name)
	}
	if _, err := ledger.AppendFIP(p.Dir, Name, p.location, fip.IP.String()); err != nil {
		return nil, err
	}

	provisioning.LogResourceCreated(p.observer, phase, "floating ip", name, fip.IP.String())
	return fip, nil
}

// PostInstallation reserves the applications address and routes it to the
// first server labelled as the cluster's ingress node.
func (p *Provisioner) PostInstallation(ctx context.Context) error {
	if p.client == nil {
		return fmt.Errorf("post installation called before resources were acquired")
	}

	servers, err := p.client.GetServersBySelector(ctx, labels.SelectorForIngress(p.ClusterName))
	if err != nil {
		return err
	}
	if len(servers) == 0 {
		return fmt.Errorf("no ingress server found for cluster %s", p.ClusterName)
	}

	fip, err := p.reserve(ctx, phasePost, naming.PurposeIngress)
	if err != nil {
		return err
	}
	if err := p.client.AssignFloatingIP(ctx, fip, servers[0]); err != nil {
		return err
	}
	p.appsFIP = fip.IP.String()
	return nil
}

func (p *Provisioner) TemplateContext() map[string]any {
	ctx := p.CommonContext()
	ctx["hcloud_location"] = p.location
	ctx["hcloud_api_ip"] = p.apiFIP
	return ctx
}

func (p *Provisioner) APIAddress() string    { return p.apiFIP }
func (p *Provisioner) AppsAddress() string   { return p.appsFIP }
func (p *Provisioner) ImageOverride() string { return "" }
