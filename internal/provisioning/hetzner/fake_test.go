package hetzner

import (
	"context"
	"fmt"
	"net"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	platform "github.com/imamik/osia/internal/platform/hcloud"
)

// mockClient implements platform.AddressManager with overridable functions.
type mockClient struct {
	EnsureFloatingIPFunc          func(ctx context.Context, name, location string, labels map[string]string) (*hcloud.FloatingIP, error)
	DeleteFloatingIPFunc          func(ctx context.Context, name string) error
	DeleteFloatingIPByAddressFunc func(ctx context.Context, address string) error
	AssignFloatingIPFunc          func(ctx context.Context, fip *hcloud.FloatingIP, server *hcloud.Server) error
	CountFloatingIPsFunc          func(ctx context.Context, location string) (int, error)
	LocationsFunc                 func(ctx context.Context) ([]string, error)
	GetServersBySelectorFunc      func(ctx context.Context, selector string) ([]*hcloud.Server, error)
}

var _ platform.AddressManager = (*mockClient)(nil)

func (m *mockClient) factory() ClientFactory {
	return func(string) platform.AddressManager { return m }
}

func (m *mockClient) EnsureFloatingIP(ctx context.Context, name, location string, labels map[string]string) (*hcloud.FloatingIP, error) {
	if m.EnsureFloatingIPFunc != nil {
		return m.EnsureFloatingIPFunc(ctx, name, location, labels)
	}
	return &hcloud.FloatingIP{Name: name, IP: net.ParseIP("203.0.113.10")}, nil
}

func (m *mockClient) DeleteFloatingIP(ctx context.Context, name string) error {
	if m.DeleteFloatingIPFunc != nil {
		return m.DeleteFloatingIPFunc(ctx, name)
	}
	return nil
}

func (m *mockClient) DeleteFloatingIPByAddress(ctx context.Context, address string) error {
	if m.DeleteFloatingIPByAddressFunc != nil {
		return m.DeleteFloatingIPByAddressFunc(ctx, address)
	}
	return nil
}

func (m *mockClient) AssignFloatingIP(ctx context.Context, fip *hcloud.FloatingIP, server *hcloud.Server) error {
	if m.AssignFloatingIPFunc != nil {
		return m.AssignFloatingIPFunc(ctx, fip, server)
	}
	return nil
}

func (m *mockClient) CountFloatingIPs(ctx context.Context, location string) (int, error) {
	if m.CountFloatingIPsFunc != nil {
		return m.CountFloatingIPsFunc(ctx, location)
	}
	return 0, nil
}

func (m *mockClient) Locations(ctx context.Context) ([]string, error) {
	if m.LocationsFunc != nil {
		return m.LocationsFunc(ctx)
	}
	return nil, fmt.Errorf("locations not configured")
}

func (m *mockClient) GetServersBySelector(ctx context.Context, selector string) ([]*hcloud.Server, error) {
	if m.GetServersBySelectorFunc != nil {
		return m.GetServersBySelectorFunc(ctx, selector)
	}
	return nil, nil
}
