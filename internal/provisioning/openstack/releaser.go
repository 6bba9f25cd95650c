package openstack

import (
	"context"
	"errors"
	"fmt"

	"github.com/imamik/osia/internal/ledger"
	"github.com/imamik/osia/internal/provisioning"
)

const phaseRelease = "release"

// Releaser frees the floating IPs and image reference of an OpenStack ledger.
type Releaser struct {
	connect  Connector
	observer provisioning.Observer
}

// NewReleaser returns a releaser connecting through connect.
func NewReleaser(connect Connector, observer provisioning.Observer) *Releaser {
	return &Releaser{connect: connect, observer: observer.WithFields(map[string]string{"cloud": Name})}
}

// Release drops the cluster's image reference, deleting the image when no
// cluster uses it anymore, then deletes every recorded floating IP.
// All recorded resources are attempted; failures are joined.
func (r *Releaser) Release(ctx context.Context, l *ledger.File, clusterName string) error {
	api, err := r.connect(ctx, l.Cloud)
	if err != nil {
		return err
	}

	var errs []error
	if l.Image != "" {
		if err := r.releaseImage(ctx, api, l.Image, clusterName); err != nil {
			errs = append(errs, err)
		}
	}

	for _, address := range l.FIPs {
		if err := r.releaseFIP(ctx, api, address); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (r *Releaser) releaseFIP(ctx context.Context, api API, address string) error {
	found, err := api.FloatingIPsByAddress(ctx, address)
	if err != nil {
		return err
	}
	for _, fip := range found {
		provisioning.LogResourceDeleting(r.observer, phaseRelease, "floating ip", address)
		if err := api.DeleteFloatingIP(ctx, fip.ID); err != nil {
			return err
		}
		provisioning.LogResourceDeleted(r.observer, phaseRelease, "floating ip", address)
	}
	return nil
}

func (r *Releaser) releaseImage(ctx context.Context, api API, name, clusterName string) error {
	found, err := api.ImagesByName(ctx, name)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		provisioning.LogWarning(r.observer, phaseRelease, fmt.Sprintf("image %s no longer exists", name), nil)
		return nil
	}

	for _, img := range found {
		remaining := removeCluster(img.Clusters, clusterName)
		if len(remaining) > 0 {
			err = api.SetImageClusters(ctx, img.ID, remaining)
		} else {
			provisioning.LogResourceDeleting(r.observer, phaseRelease, "image", img.Name)
			err = api.DeleteImage(ctx, img.ID)
			if err == nil {
				provisioning.LogResourceDeleted(r.observer, phaseRelease, "image", img.Name)
			}
		}
		if err != nil && !isNotFound(err) {
			return err
		}
	}
	return nil
}
