package hetzner

import (
	"context"
	"errors"

	"github.com/imamik/osia/internal/ledger"
	"github.com/imamik/osia/internal/provisioning"
)

const phaseRelease = "release"

// Releaser deletes the floating IPs recorded in a Hetzner ledger.
type Releaser struct {
	token     string
	newClient ClientFactory
	observer  provisioning.Observer
}

// NewReleaser returns a releaser authenticating with token.
func NewReleaser(newClient ClientFactory, token string, observer provisioning.Observer) *Releaser {
	return &Releaser{
		token:     token,
		newClient: newClient,
		observer:  observer.WithFields(map[string]string{"cloud": Name}),
	}
}

// Release deletes every recorded address. All addresses are attempted;
// failures are joined.
func (r *Releaser) Release(ctx context.Context, l *ledger.File, _ string) error {
	if len(l.FIPs) == 0 {
		return nil
	}
	if r.token == "" {
		return errors.New("hcloud_token is required to release hetzner addresses")
	}

	client := r.newClient(r.token)
	var errs []error
	for _, address := range l.FIPs {
		provisioning.LogResourceDeleting(r.observer, phaseRelease, "floating ip", address)
		if err := client.DeleteFloatingIPByAddress(ctx, address); err != nil {
			errs = append(errs, err)
			continue
		}
		provisioning.LogResourceDeleted(r.observer, phaseRelease, "floating ip", address)
	}
	return errors.Join(errs...)
}
