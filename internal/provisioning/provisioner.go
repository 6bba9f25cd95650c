package provisioning

import (
	"context"
	"fmt"
	"sort"

	"github.com/imamik/osia/internal/config"
	"github.com/imamik/osia/internal/ledger"
)

// Provisioner allocates the cloud resources of one cluster.
type Provisioner interface {
	// Name returns the cloud name, which is also the template name.
	Name() string

	// AcquireResources selects a region or network and allocates the API
	// address. It runs once, before the install config is rendered.
	AcquireResources(ctx context.Context) error

	// PostInstallation allocates and attaches the applications address.
	// It runs once, after the installer succeeded.
	PostInstallation(ctx context.Context) error

	// TemplateContext returns the values the install config template needs.
	TemplateContext() map[string]any

	// APIAddress is empty when the backend leaves DNS to the installer.
	APIAddress() string
	AppsAddress() string

	// ImageOverride is the boot image handed to the installer, or empty.
	ImageOverride() string
}

// Factory creates the provisioner of a cluster whose working directory is dir.
type Factory func(cfg *config.Cloud, clusterName, dir string) (Provisioner, error)

// Registry maps cloud names to provisioner factories.
type Registry map[string]Factory

// New creates the provisioner registered for cloud.
func (r Registry) New(cloud string, cfg *config.Cloud, clusterName, dir string) (Provisioner, error) {
	factory, ok := r[cloud]
	if !ok {
		return nil, fmt.Errorf("unknown cloud %q, expected one of %v", cloud, r.Names())
	}
	p, err := factory(cfg, clusterName, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s provisioner: %w", cloud, err)
	}
	return p, nil
}

// Names returns the registered cloud names in sorted order.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Releaser frees the resources recorded in a ledger.
type Releaser interface {
	// Release deletes every recorded address and drops the cluster's
	// reference on the recorded image, deleting the image once unreferenced.
	Release(ctx context.Context, l *ledger.File, clusterName string) error
}

// ReleaserFunc adapts a function to Releaser.
type ReleaserFunc func(ctx context.Context, l *ledger.File, clusterName string) error

func (f ReleaserFunc) Release(ctx context.Context, l *ledger.File, clusterName string) error {
	return f(ctx, l, clusterName)
}

// ReleaserRegistry maps ledger providers to releasers.
type ReleaserRegistry map[string]Releaser

// Release dispatches to the releaser of the ledger's provider.
func (r ReleaserRegistry) Release(ctx context.Context, l *ledger.File, clusterName string) error {
	releaser, ok := r[l.Provider]
	if !ok {
		return fmt.Errorf("no releaser for ledger provider %q", l.Provider)
	}
	return releaser.Release(ctx, l, clusterName)
}
