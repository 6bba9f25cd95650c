// Package route53 registers cluster records in an AWS Route 53 hosted zone.
package route53

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/aws/smithy-go"

	"github.com/imamik/osia/internal/config"
	"github.com/imamik/osia/internal/dns"
)

// Name is the provider name and record file stem of this registrar.
const Name = config.DNSRoute53

// API is the subset of the Route 53 client the registrar uses.
type API interface {
	route53.ListHostedZonesAPIClient
	ChangeResourceRecordSets(ctx context.Context, params *route53.ChangeResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error)
}

// ClientFactory returns a Route 53 client.
type ClientFactory func(ctx context.Context) (API, error)

// NewClient builds a Route 53 client from the default credential chain.
func NewClient(ctx context.Context) (API, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return route53.NewFromConfig(cfg), nil
}

type settings struct {
	ZoneID string `json:"zone_id,omitempty"`
}

// Registrar manages A records in the hosted zone named after the base
// domain.
type Registrar struct {
	dns.Base
	settings settings

	newClient ClientFactory
	client    API
}

// NewFactory returns the registry factory for Route 53 registrars.
func NewFactory(newClient ClientFactory) dns.Factory {
	return func(cfg *config.DNS, dir string) (dns.Registrar, error) {
		return &Registrar{Base: dns.NewBase(Name, cfg, dir), newClient: newClient}, nil
	}
}

func (r *Registrar) AddAPIDomain(ctx context.Context, ip string) error {
	r.SetAPI(ip)
	if err := r.Persist(r.Dir); err != nil {
		return err
	}
	return r.change(ctx, "add api domain", types.ChangeActionCreate, r.APIName(), ip)
}

// AddAppsDomain registers the wildcard applications record.
func (r *Registrar) AddAppsDomain(ctx context.Context, ip string) error {
	r.SetApps(ip)
	if err := r.Persist(r.Dir); err != nil {
		return err
	}
	return r.change(ctx, "add apps domain", types.ChangeActionCreate, r.WildcardAppsName(), ip)
}

// DeleteDomains deletes every record whose address is known and forgets
// each one as soon as it is gone, so a retry only touches what is left.
// A record Route 53 no longer has counts as deleted. The record file is
// removed once nothing is left.
func (r *Registrar) DeleteDomains(ctx context.Context) error {
	var errs []error
	if r.APIIP != nil {
		err := r.change(ctx, "delete api domain", types.ChangeActionDelete, r.APIName(), *r.APIIP)
		if err == nil || isRecordNotFound(err) {
			r.ClearAPI()
			err = r.saveProgress()
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if r.AppsIP != nil {
		err := r.change(ctx, "delete apps domain", types.ChangeActionDelete, r.WildcardAppsName(), *r.AppsIP)
		if err == nil || isRecordNotFound(err) {
			r.ClearApps()
			err = r.saveProgress()
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return r.RemoveRecord()
}

func (r *Registrar) Persist(dir string) error {
	return r.Save(dir, &r.settings)
}

func (r *Registrar) Restore(dir string) error {
	return r.Load(dir, &r.settings)
}

// saveProgress rewrites the record file, if there is one, after a deletion.
func (r *Registrar) saveProgress() error {
	if r.Dir == "" {
		return nil
	}
	return r.Persist(r.Dir)
}

// ZoneID returns the cached hosted zone, empty until first resolved.
func (r *Registrar) ZoneID() string { return r.settings.ZoneID }

func (r *Registrar) change(ctx context.Context, op string, action types.ChangeAction, name, ip string) error {
	zoneID, err := r.hostedZone(ctx)
	if err != nil {
		return &dns.BackendError{Provider: Name, Op: op, Err: err}
	}

	_, err = r.client.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: sdkaws.String(zoneID),
		ChangeBatch: &types.ChangeBatch{
			Changes: []types.Change{{
				Action: action,
				ResourceRecordSet: &types.ResourceRecordSet{
					Name:            sdkaws.String(name + "."),
					Type:            types.RRTypeA,
					TTL:             sdkaws.Int64(int64(r.TTL)),
					ResourceRecords: []types.ResourceRecord{{Value: sdkaws.String(ip)}},
				},
			}},
		},
	})
	if err != nil {
		return &dns.BackendError{Provider: Name, Op: op, Err: err}
	}
	return nil
}

// isRecordNotFound reports whether Route 53 rejected a deletion because the
// record set does not exist.
func isRecordNotFound(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.ErrorCode() == "InvalidChangeBatch" && strings.Contains(apiErr.ErrorMessage(), "not found")
}

// hostedZone resolves the zone whose name is exactly the base domain, once.
func (r *Registrar) hostedZone(ctx context.Context) (string, error) {
	if r.client == nil {
		client, err := r.newClient(ctx)
		if err != nil {
			return "", err
		}
		r.client = client
	}
	if r.settings.ZoneID != "" {
		return r.settings.ZoneID, nil
	}

	want := strings.TrimSuffix(r.BaseDomain, ".") + "."
	var matches []string
	paginator := route53.NewListHostedZonesPaginator(r.client, &route53.ListHostedZonesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to list hosted zones: %w", err)
		}
		for _, zone := range page.HostedZones {
			if sdkaws.ToString(zone.Name) == want {
				matches = append(matches, sdkaws.ToString(zone.Id))
			}
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no hosted zone named %s", want)
	case 1:
		r.settings.ZoneID = matches[0]
		return matches[0], nil
	default:
		return "", fmt.Errorf("%d hosted zones named %s, refusing to pick one", len(matches), want)
	}
}
