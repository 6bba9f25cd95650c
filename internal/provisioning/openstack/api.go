package openstack

import (
	"context"
	"errors"
	"io"
	"strings"
)

// ClustersProperty is the image property listing the clusters using it.
const ClustersProperty = "osia_clusters"

// ErrImageNotFound is returned by image operations on a missing image.
var ErrImageNotFound = errors.New("image not found")

// Network is an external network.
type Network struct {
	ID   string
	Name string
}

// FloatingIP is an allocated floating IP.
type FloatingIP struct {
	ID      string
	Address string
}

// Port is a network port.
type Port struct {
	ID   string
	Name string
}

// Image is a boot image with its cluster references.
type Image struct {
	ID       string
	Name     string
	Tags     []string
	Clusters []string
}

// API is the subset of OpenStack used by the provisioner and releaser.
type API interface {
	NetworkByName(ctx context.Context, name string) (Network, error)
	NetworkAvailability(ctx context.Context, networkID string) (total, used int64, err error)

	CreateFloatingIP(ctx context.Context, networkID, description string) (FloatingIP, error)
	FloatingIPsByAddress(ctx context.Context, address string) ([]FloatingIP, error)
	AttachFloatingIP(ctx context.Context, floatingIPID, portID string) error
	DeleteFloatingIP(ctx context.Context, id string) error

	Ports(ctx context.Context) ([]Port, error)

	ImagesByTag(ctx context.Context, tag string) ([]Image, error)
	ImagesByName(ctx context.Context, name string) ([]Image, error)
	// SetImageClusters replaces the cluster references of an image.
	// It returns ErrImageNotFound when the image no longer exists.
	SetImageClusters(ctx context.Context, imageID string, clusters []string) error
	CreateImage(ctx context.Context, name string, tags, clusters []string) (Image, error)
	UploadImage(ctx context.Context, imageID string, data io.Reader) error
	DeleteImage(ctx context.Context, imageID string) error
}

// Connector opens an API session for a clouds.yaml cloud name.
type Connector func(ctx context.Context, cloud string) (API, error)

func parseClusters(value string) []string {
	var clusters []string
	for _, c := range strings.Split(value, ",") {
		if c = strings.TrimSpace(c); c != "" {
			clusters = append(clusters, c)
		}
	}
	return clusters
}

func formatClusters(clusters []string) string {
	return strings.Join(clusters, ",")
}

func addCluster(clusters []string, cluster string) []string {
	for _, c := range clusters {
		if c == cluster {
			return clusters
		}
	}
	return append(append([]string(nil), clusters...), cluster)
}

func removeCluster(clusters []string, cluster string) []string {
	out := make([]string, 0, len(clusters))
	for _, c := range clusters {
		if c != cluster {
			out = append(out, c)
		}
	}
	return out
}
