package openstack

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"net/http"

	"github.com/gophercloud/gophercloud/v2"
	gcopenstack "github.com/gophercloud/gophercloud/v2/openstack"
	osconfig "github.com/gophercloud/gophercloud/v2/openstack/config"
	"github.com/gophercloud/gophercloud/v2/openstack/config/clouds"
	"github.com/gophercloud/gophercloud/v2/openstack/image/v2/imagedata"
	"github.com/gophercloud/gophercloud/v2/openstack/image/v2/images"
	"github.com/gophercloud/gophercloud/v2/openstack/networking/v2/extensions/layer3/floatingips"
	"github.com/gophercloud/gophercloud/v2/openstack/networking/v2/extensions/networkipavailabilities"
	"github.com/gophercloud/gophercloud/v2/openstack/networking/v2/networks"
	"github.com/gophercloud/gophercloud/v2/openstack/networking/v2/ports"
)

// Client implements API with gophercloud.
type Client struct {
	network *gophercloud.ServiceClient
	image   *gophercloud.ServiceClient
}

// NewClient wraps already authenticated service clients.
func NewClient(network, image *gophercloud.ServiceClient) *Client {
	return &Client{network: network, image: image}
}

// Connect authenticates against the cloud named in clouds.yaml.
func Connect(ctx context.Context, cloud string) (API, error) {
	authOpts, endpointOpts, tlsConfig, err := clouds.Parse(clouds.WithCloudName(cloud))
	if err != nil {
		return nil, fmt.Errorf("failed to read clouds.yaml entry %q: %w", cloud, err)
	}

	provider, err := osconfig.NewProviderClient(ctx, authOpts, osconfig.WithTLSConfig(tlsConfig))
	if err != nil {
		return nil, fmt.Errorf("unable to connect to %s: %w", cloud, err)
	}

	network, err := gcopenstack.NewNetworkV2(provider, endpointOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create network client for %s: %w", cloud, err)
	}
	image, err := gcopenstack.NewImageV2(provider, endpointOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create image client for %s: %w", cloud, err)
	}

	return NewClient(network, image), nil
}

func (c *Client) NetworkByName(ctx context.Context, name string) (Network, error) {
	pages, err := networks.List(c.network, networks.ListOpts{Name: name}).AllPages(ctx)
	if err != nil {
		return Network{}, fmt.Errorf("failed to list networks named %s: %w", name, err)
	}
	found, err := networks.ExtractNetworks(pages)
	if err != nil {
		return Network{}, fmt.Errorf("failed to parse networks: %w", err)
	}
	if len(found) == 0 {
		return Network{}, fmt.Errorf("network %s not found", name)
	}
	return Network{ID: found[0].ID, Name: found[0].Name}, nil
}

func (c *Client) NetworkAvailability(ctx context.Context, networkID string) (int64, int64, error) {
	avail, err := networkipavailabilities.Get(ctx, c.network, networkID).Extract()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get ip availability of network %s: %w", networkID, err)
	}
	return parseCount(avail.TotalIPs), parseCount(avail.UsedIPs), nil
}

// parseCount parses an address count, saturating for IPv6 sized networks.
func parseCount(value string) int64 {
	n, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return 0
	}
	if !n.IsInt64() {
		return math.MaxInt64
	}
	return n.Int64()
}

func (c *Client) CreateFloatingIP(ctx context.Context, networkID, description string) (FloatingIP, error) {
	fip, err := floatingips.Create(ctx, c.network, floatingips.CreateOpts{
		FloatingNetworkID: networkID,
		Description:       description,
	}).Extract()
	if err != nil {
		return FloatingIP{}, fmt.Errorf("allocation of ip failed for network %s: %w", networkID, err)
	}
	return FloatingIP{ID: fip.ID, Address: fip.FloatingIP}, nil
}

func (c *Client) FloatingIPsByAddress(ctx context.Context, address string) ([]FloatingIP, error) {
	pages, err := floatingips.List(c.network, floatingips.ListOpts{FloatingIP: address}).AllPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list floating ips for %s: %w", address, err)
	}
	found, err := floatingips.ExtractFloatingIPs(pages)
	if err != nil {
		return nil, fmt.Errorf("failed to parse floating ips: %w", err)
	}
	result := make([]FloatingIP, 0, len(found))
	for _, fip := range found {
		result = append(result, FloatingIP{ID: fip.ID, Address: fip.FloatingIP})
	}
	return result, nil
}

func (c *Client) AttachFloatingIP(ctx context.Context, floatingIPID, portID string) error {
	_, err := floatingips.Update(ctx, c.network, floatingIPID, floatingips.UpdateOpts{PortID: &portID}).Extract()
	if err != nil {
		return fmt.Errorf("failed to attach floating ip %s to port %s: %w", floatingIPID, portID, err)
	}
	return nil
}

func (c *Client) DeleteFloatingIP(ctx context.Context, id string) error {
	err := floatingips.Delete(ctx, c.network, id).ExtractErr()
	if err != nil && !gophercloud.ResponseCodeIs(err, http.StatusNotFound) {
		return fmt.Errorf("failed to delete floating ip %s: %w", id, err)
	}
	return nil
}

func (c *Client) Ports(ctx context.Context) ([]Port, error) {
	pages, err := ports.List(c.network, ports.ListOpts{}).AllPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list ports: %w", err)
	}
	found, err := ports.ExtractPorts(pages)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ports: %w", err)
	}
	result := make([]Port, 0, len(found))
	for _, p := range found {
		result = append(result, Port{ID: p.ID, Name: p.Name})
	}
	return result, nil
}

func (c *Client) ImagesByTag(ctx context.Context, tag string) ([]Image, error) {
	return c.listImages(ctx, images.ListOpts{Tags: []string{tag}})
}

func (c *Client) ImagesByName(ctx context.Context, name string) ([]Image, error) {
	return c.listImages(ctx, images.ListOpts{Name: name})
}

func (c *Client) listImages(ctx context.Context, opts images.ListOpts) ([]Image, error) {
	pages, err := images.List(c.image, opts).AllPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	found, err := images.ExtractImages(pages)
	if err != nil {
		return nil, fmt.Errorf("failed to parse images: %w", err)
	}
	result := make([]Image, 0, len(found))
	for _, img := range found {
		result = append(result, toImage(img))
	}
	return result, nil
}

func toImage(img images.Image) Image {
	clusters, _ := img.Properties[ClustersProperty].(string)
	return Image{
		ID:       img.ID,
		Name:     img.Name,
		Tags:     img.Tags,
		Clusters: parseClusters(clusters),
	}
}

func (c *Client) SetImageClusters(ctx context.Context, imageID string, clusters []string) error {
	_, err := images.Update(ctx, c.image, imageID, images.UpdateOpts{
		images.UpdateImageProperty{
			Op:    images.AddOp,
			Name:  ClustersProperty,
			Value: formatClusters(clusters),
		},
	}).Extract()
	if err != nil {
		if gophercloud.ResponseCodeIs(err, http.StatusNotFound) {
			return fmt.Errorf("image %s: %w", imageID, ErrImageNotFound)
		}
		return fmt.Errorf("failed to update image %s: %w", imageID, err)
	}
	return nil
}

func (c *Client) CreateImage(ctx context.Context, name string, tags, clusters []string) (Image, error) {
	visibility := images.ImageVisibilityPrivate
	img, err := images.Create(ctx, c.image, images.CreateOpts{
		Name:            name,
		Tags:            tags,
		ContainerFormat: "bare",
		DiskFormat:      "qcow2",
		Visibility:      &visibility,
		Properties:      map[string]string{ClustersProperty: formatClusters(clusters)},
	}).Extract()
	if err != nil {
		return Image{}, fmt.Errorf("failed to create image %s: %w", name, err)
	}
	return toImage(*img), nil
}

func (c *Client) UploadImage(ctx context.Context, imageID string, data io.Reader) error {
	if err := imagedata.Upload(ctx, c.image, imageID, data).ExtractErr(); err != nil {
		return fmt.Errorf("failed to upload image data for %s: %w", imageID, err)
	}
	return nil
}

func (c *Client) DeleteImage(ctx context.Context, imageID string) error {
	err := images.Delete(ctx, c.image, imageID).ExtractErr()
	if err != nil {
		if gophercloud.ResponseCodeIs(err, http.StatusNotFound) {
			return fmt.Errorf("image %s: %w", imageID, ErrImageNotFound)
		}
		return fmt.Errorf("failed to delete image %s: %w", imageID, err)
	}
	return nil
}

// isNotFound reports whether err marks a missing image.
func isNotFound(err error) bool {
	return errors.Is(err, ErrImageNotFound)
}
