// Package hcloud wraps the Hetzner Cloud API calls osia needs to reserve
// and release public addresses for a cluster.
//
// Deletions go through DeleteOperation, which treats a missing resource as
// success and retries locked resources with exponential backoff. Creations
// go through EnsureOperation, which returns an existing resource of the same
// name instead of creating a duplicate.
package hcloud

import (
	"context"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// FloatingIPManager reserves, assigns and releases floating IPs.
type FloatingIPManager interface {
	// EnsureFloatingIP returns the floating IP called name, creating an IPv4
	// address homed in location when it does not exist yet.
	EnsureFloatingIP(ctx context.Context, name, location string, labels map[string]string) (*hcloud.FloatingIP, error)
	DeleteFloatingIP(ctx context.Context, name string) error
	// DeleteFloatingIPByAddress deletes every floating IP with the given address.
	DeleteFloatingIPByAddress(ctx context.Context, address string) error
	AssignFloatingIP(ctx context.Context, fip *hcloud.FloatingIP, server *hcloud.Server) error
	// CountFloatingIPs returns how many floating IPs are homed in location.
	CountFloatingIPs(ctx context.Context, location string) (int, error)
}

// LocationLister lists the locations a project may allocate in.
type LocationLister interface {
	Locations(ctx context.Context) ([]string, error)
}

// ServerFinder looks servers up by label selector.
type ServerFinder interface {
	GetServersBySelector(ctx context.Context, selector string) ([]*hcloud.Server, error)
}

// AddressManager is everything the Hetzner backend uses.
type AddressManager interface {
	FloatingIPManager
	LocationLister
	ServerFinder
}
