package hcloud

import (
	"context"
	"errors"
	"fmt"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

type floatingIPCreateParams struct {
	name     string
	location string
	labels   map[string]string
}

// EnsureFloatingIP ensures that an IPv4 floating IP called name exists.
// An existing address homed elsewhere is an error.
func (c *RealClient) EnsureFloatingIP(ctx context.Context, name, location string, labels map[string]string) (*hcloud.FloatingIP, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.APICall)
	defer cancel()

	params := floatingIPCreateParams{name: name, location: location, labels: labels}
	return (&EnsureOperation[*hcloud.FloatingIP, floatingIPCreateParams]{
		Name:         name,
		ResourceType: "floating IP",
		Get:          c.client.FloatingIP.Get,
		Create:       c.createFloatingIP,
		Validate: func(fip *hcloud.FloatingIP) error {
			if fip.HomeLocation != nil && fip.HomeLocation.Name != location {
				return fmt.Errorf("floating IP %s exists in location %s, expected %s", name, fip.HomeLocation.Name, location)
			}
			return nil
		},
		CreateOptsMapper: func() floatingIPCreateParams { return params },
	}).Execute(ctx, c)
}

// createFloatingIP resolves the home location and creates the address.
func (c *RealClient) createFloatingIP(ctx context.Context, params floatingIPCreateParams) (*CreateResult[*hcloud.FloatingIP], *hcloud.Response, error) {
	loc, resp, err := c.client.Location.Get(ctx, params.location)
	if err != nil {
		return nil, resp, err
	}
	if loc == nil {
		return nil, resp, fmt.Errorf("location %q not found", params.location)
	}

	res, resp, err := c.client.FloatingIP.Create(ctx, hcloud.FloatingIPCreateOpts{
		Name:         &params.name,
		Type:         hcloud.FloatingIPTypeIPv4,
		HomeLocation: loc,
		Labels:       params.labels,
	})
	if err != nil {
		return nil, resp, err
	}
	return &CreateResult[*hcloud.FloatingIP]{Resource: res.FloatingIP, Action: res.Action}, resp, nil
}

// DeleteFloatingIP deletes the floating IP with the given name.
func (c *RealClient) DeleteFloatingIP(ctx context.Context, name string) error {
	return (&DeleteOperation[*hcloud.FloatingIP]{
		Name:         name,
		ResourceType: "floating IP",
		Get:          c.client.FloatingIP.Get,
		Delete:       c.client.FloatingIP.Delete,
	}).Execute(ctx, c)
}

// DeleteFloatingIPByAddress deletes the floating IPs holding address.
// No match is not an error.
func (c *RealClient) DeleteFloatingIPByAddress(ctx context.Context, address string) error {
	all, err := c.allFloatingIPs(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, fip := range all {
		if fip.IP == nil || fip.IP.String() != address {
			continue
		}
		if err := c.DeleteFloatingIP(ctx, fip.Name); err != nil {
			errs = append(errs, fmt.Errorf("failed to delete floating IP %s: %w", address, err))
		}
	}
	return errors.Join(errs...)
}

// AssignFloatingIP routes fip to server and waits for the action.
func (c *RealClient) AssignFloatingIP(ctx context.Context, fip *hcloud.FloatingIP, server *hcloud.Server) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.APICall)
	defer cancel()

	action, _, err := c.client.FloatingIP.Assign(ctx, fip, server)
	if err != nil {
		return fmt.Errorf("failed to assign floating IP %s to server %s: %w", fip.Name, server.Name, err)
	}
	if action == nil {
		return nil
	}
	return waitForActions(ctx, c.client, action)
}

// CountFloatingIPs counts the project's floating IPs homed in location.
func (c *RealClient) CountFloatingIPs(ctx context.Context, location string) (int, error) {
	all, err := c.allFloatingIPs(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, fip := range all {
		if fip.HomeLocation != nil && fip.HomeLocation.Name == location {
			count++
		}
	}
	return count, nil
}

func (c *RealClient) allFloatingIPs(ctx context.Context) ([]*hcloud.FloatingIP, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.APICall)
	defer cancel()

	all, err := c.client.FloatingIP.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list floating IPs: %w", err)
	}
	return all, nil
}
