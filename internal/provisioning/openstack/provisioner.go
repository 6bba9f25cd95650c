package openstack

import (
	"context"
	"fmt"
	"os"

	"github.com/imamik/osia/internal/config"
	"github.com/imamik/osia/internal/ledger"
	"github.com/imamik/osia/internal/provisioning"
	"github.com/imamik/osia/internal/util/naming"
	"github.com/imamik/osia/internal/util/retry"
)

// Name is the cloud name, template name and ledger provider of this backend.
const Name = config.CloudOpenStack

const (
	phaseAcquire = "acquire"
	phasePost    = "post-install"
)

// Deps are the collaborators shared by all OpenStack provisioners.
type Deps struct {
	Connect Connector
	// Releases selects the boot image build, usually from the installer commit.
	Releases ReleaseResolver
	Observer provisioning.Observer
	Timeouts *config.Timeouts
}

// Provisioner allocates floating IPs and the boot image of a cluster.
type Provisioner struct {
	provisioning.Common

	cloud          string
	baseFlavor     string
	networks       []string
	osImage        string
	imageDownload  bool
	imageUnique    bool
	imagesDir      string
	maxRaceRetries int

	deps     Deps
	observer provisioning.Observer
	api      API

	network Network
	apiFIP  string
	appsFIP string
	image   string
}

// NewFactory returns the registry factory for OpenStack clusters.
func NewFactory(deps Deps) provisioning.Factory {
	if deps.Timeouts == nil {
		deps.Timeouts = config.LoadTimeouts()
	}
	return func(cfg *config.Cloud, clusterName, dir string) (provisioning.Provisioner, error) {
		if cfg.OSPCloud == "" {
			return nil, fmt.Errorf("osp_cloud is required")
		}
		return &Provisioner{
			Common:         provisioning.NewCommon(cfg, clusterName, dir),
			cloud:          cfg.OSPCloud,
			baseFlavor:     cfg.OSPBaseFlavor,
			networks:       append([]string(nil), cfg.NetworkList...),
			osImage:        cfg.OSImage,
			imageDownload:  cfg.OSPImageDownload,
			imageUnique:    cfg.OSPImageUnique,
			imagesDir:      cfg.ImageCacheDir(),
			maxRaceRetries: cfg.ImageRaceRetries(),
			deps:           deps,
			observer:       deps.Observer.WithFields(map[string]string{"cloud": Name, "cluster": clusterName}),
			image:          cfg.OSImage,
		}, nil
	}
}

func (p *Provisioner) Name() string { return Name }

// AcquireResources selects the external network, allocates the API
// floating IP and, when image download is enabled, resolves the boot image.
func (p *Provisioner) AcquireResources(ctx context.Context) error {
	api, err := p.deps.Connect(ctx, p.cloud)
	if err != nil {
		return err
	}
	p.api = api

	network, err := p.selectNetwork(ctx)
	if err != nil {
		return err
	}
	p.network = network

	fip, err := p.allocateFIP(ctx, naming.PurposeAPI)
	if err != nil {
		return err
	}
	p.apiFIP = fip.Address

	if p.imageDownload && p.osImage == "" {
		image, err := p.resolveImage(ctx)
		if err != nil {
			return err
		}
		if _, err := ledger.SetImage(p.Dir, Name, p.cloud, image); err != nil {
			return err
		}
		p.image = image
	}

	return nil
}

func (p *Provisioner) selectNetwork(ctx context.Context) (Network, error) {
	found := make(map[string]Network, len(p.networks))
	stats := make([]provisioning.NetworkStat, 0, len(p.networks))
	for _, name := range p.networks {
		network, err := p.api.NetworkByName(ctx, name)
		if err != nil {
			return Network{}, err
		}
		total, used, err := p.api.NetworkAvailability(ctx, network.ID)
		if err != nil {
			return Network{}, err
		}
		found[network.ID] = network
		stats = append(stats, provisioning.NetworkStat{ID: network.ID, Name: network.Name, TotalIPs: total, UsedIPs: used})
	}

	best, err := provisioning.BestNetwork(stats)
	if err != nil {
		return Network{}, err
	}
	p.observer.Event(provisioning.Event{
		Type:     provisioning.EventResourceExists,
		Phase:    phaseAcquire,
		Resource: best.Name,
		Message:  "selected network",
		Fields:   map[string]string{"id": best.ID},
	})
	return found[best.ID], nil
}

// allocateFIP creates a floating IP on the selected network and records it
// in the ledger before returning.
func (p *Provisioner) allocateFIP(ctx context.Context, purpose string) (FloatingIP, error) {
	description := naming.FloatingIP(p.ClusterName, purpose)
	provisioning.LogResourceCreating(p.observer, phaseAcquire, "floating ip", description)

	fip, err := p.api.CreateFloatingIP(ctx, p.network.ID, description)
	if err != nil {
		return FloatingIP{}, err
	}
	if _, err := ledger.AppendFIP(p.Dir, Name, p.cloud, fip.Address); err != nil {
		return FloatingIP{}, err
	}

	provisioning.LogResourceCreated(p.observer, phaseAcquire, "floating ip", description, fip.Address)
	return fip, nil
}

// PostInstallation attaches a new floating IP to the ingress port the
// installer created.
func (p *Provisioner) PostInstallation(ctx context.Context) error {
	if p.api == nil {
		return fmt.Errorf("post installation called before resources were acquired")
	}

	port, err := p.ingressPort(ctx)
	if err != nil {
		return err
	}

	fip, err := p.allocateFIP(ctx, naming.PurposeIngress)
	if err != nil {
		return err
	}
	if err := p.api.AttachFloatingIP(ctx, fip.ID, port.ID); err != nil {
		return err
	}
	p.appsFIP = fip.Address
	return nil
}

func (p *Provisioner) ingressPort(ctx context.Context) (Port, error) {
	found, err := p.api.Ports(ctx)
	if err != nil {
		return Port{}, err
	}
	for _, port := range found {
		if naming.IsIngressPort(p.ClusterName, port.Name) {
			return port, nil
		}
	}
	return Port{}, fmt.Errorf("ingress port for cluster %s was not found", p.ClusterName)
}

func (p *Provisioner) TemplateContext() map[string]any {
	ctx := p.CommonContext()
	ctx["osp_cloud"] = p.cloud
	ctx["osp_base_flavor"] = p.baseFlavor
	ctx["osp_network"] = p.network.Name
	ctx["osp_network_id"] = p.network.ID
	ctx["osp_fip"] = p.apiFIP
	ctx["os_image"] = p.image
	return ctx
}

func (p *Provisioner) APIAddress() string    { return p.apiFIP }
func (p *Provisioner) AppsAddress() string   { return p.appsFIP }
func (p *Provisioner) ImageOverride() string { return p.image }

// resolveImage returns the name of a boot image for the installer's
// release, reusing a shared image when possible. A reused image that
// disappears before its reference list is updated restarts the lookup, at
// most maxRaceRetries times.
func (p *Provisioner) resolveImage(ctx context.Context) (string, error) {
	release, err := p.deps.Releases.Resolve(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to resolve boot image release: %w", err)
	}

	var (
		attempts int
		image    string
	)
	err = retry.While(p.maxRaceRetries, isNotFound, func() error {
		attempts++
		var rerr error
		image, rerr = p.resolveImageOnce(ctx, release)
		return rerr
	})
	if err != nil {
		if isNotFound(err) {
			return "", &provisioning.ImageResolutionError{Version: release.Version, Attempts: attempts, Err: err}
		}
		return "", err
	}
	return image, nil
}

func (p *Provisioner) resolveImageOnce(ctx context.Context, release Release) (string, error) {
	tag := naming.ImageVersionTag(release.Version)

	if !p.imageUnique {
		shared, err := p.api.ImagesByTag(ctx, tag)
		if err != nil {
			return "", err
		}
		if len(shared) > 0 {
			img := shared[0]
			if err := p.api.SetImageClusters(ctx, img.ID, addCluster(img.Clusters, p.ClusterName)); err != nil {
				return "", err
			}
			provisioning.LogResourceExists(p.observer, phaseAcquire, "image", img.Name, img.ID)
			return img.Name, nil
		}
	}

	return p.uploadImage(ctx, release, tag)
}

func (p *Provisioner) uploadImage(ctx context.Context, release Release, tag string) (string, error) {
	downloadCtx, cancel := context.WithTimeout(ctx, p.deps.Timeouts.ImageDownload)
	defer cancel()

	downloader := &Downloader{Dir: p.imagesDir}
	file, err := downloader.Fetch(downloadCtx, release.URL)
	if err != nil {
		return "", err
	}

	name := naming.ClusterImage(p.ClusterName, release.Version)
	provisioning.LogResourceCreating(p.observer, phaseAcquire, "image", name)

	img, err := p.api.CreateImage(ctx, name, []string{tag}, []string{p.ClusterName})
	if err != nil {
		return "", err
	}

	data, err := os.Open(file)
	if err != nil {
		return "", fmt.Errorf("failed to open image %s: %w", file, err)
	}
	defer data.Close()

	uploadCtx, cancelUpload := context.WithTimeout(ctx, p.deps.Timeouts.ImageUpload)
	defer cancelUpload()
	if err := p.api.UploadImage(uploadCtx, img.ID, data); err != nil {
		if derr := p.api.DeleteImage(ctx, img.ID); derr != nil {
			provisioning.LogWarning(p.observer, phaseAcquire, "failed to remove incomplete image", derr)
		}
		return "", err
	}

	provisioning.LogResourceCreated(p.observer, phaseAcquire, "image", img.Name, img.ID)
	return img.Name, nil
}
