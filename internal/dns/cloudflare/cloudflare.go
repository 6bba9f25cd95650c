// Package cloudflare registers cluster records in a Cloudflare zone.
package cloudflare

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/imamik/osia/internal/config"
	"github.com/imamik/osia/internal/dns"
	"github.com/imamik/osia/internal/platform/cloudflare"
)

// Name is the provider name and record file stem of this registrar.
const Name = config.DNSCloudflare

// API is the subset of the Cloudflare client the registrar uses.
type API interface {
	GetZoneID(ctx context.Context, domain string) (string, error)
	CreateDNSRecord(ctx context.Context, zoneID string, record cloudflare.Record) (cloudflare.Record, error)
	DeleteDNSRecord(ctx context.Context, zoneID, recordID string) error
}

// ClientFactory returns a Cloudflare client authenticated with token.
type ClientFactory func(token string) API

// NewClient is the ClientFactory talking to the real API.
func NewClient(token string) API {
	return cloudflare.NewClient(token)
}

type settings struct {
	ZoneID       string `json:"zone_id,omitempty"`
	APIRecordID  string `json:"api_record_id,omitempty"`
	AppsRecordID string `json:"apps_record_id,omitempty"`
}

// Registrar creates A records through the Cloudflare API and remembers
// their IDs for deletion.
type Registrar struct {
	dns.Base
	settings settings

	newClient ClientFactory
	client    API
}

// NewFactory returns the registry factory for Cloudflare registrars. The
// token is read from CLOUDFLARE_API_TOKEN on first use.
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
	id, err := r.create(ctx, "add api domain", r.APIName(), ip)
	if err != nil {
		return err
	}
	r.settings.APIRecordID = id
	return r.Persist(r.Dir)
}

// AddAppsDomain registers the wildcard applications record.
func (r *Registrar) AddAppsDomain(ctx context.Context, ip string) error {
	r.SetApps(ip)
	if err := r.Persist(r.Dir); err != nil {
		return err
	}
	id, err := r.create(ctx, "add apps domain", r.WildcardAppsName(), ip)
	if err != nil {
		return err
	}
	r.settings.AppsRecordID = id
	return r.Persist(r.Dir)
}

// DeleteDomains deletes the records created by this registrar and forgets
// each one as soon as it is gone, so a retry only touches what is left.
// Records whose creation never completed have no ID and are skipped. A
// record Cloudflare no longer has counts as deleted.
func (r *Registrar) DeleteDomains(ctx context.Context) error {
	var errs []error
	if r.APIIP != nil && r.settings.APIRecordID != "" {
		err := r.remove(ctx, "delete api domain", r.settings.APIRecordID)
		if err == nil || cloudflare.IsNotFound(err) {
			r.ClearAPI()
			r.settings.APIRecordID = ""
			err = r.saveProgress()
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if r.AppsIP != nil && r.settings.AppsRecordID != "" {
		err := r.remove(ctx, "delete apps domain", r.settings.AppsRecordID)
		if err == nil || cloudflare.IsNotFound(err) {
			r.ClearApps()
			r.settings.AppsRecordID = ""
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

func (r *Registrar) create(ctx context.Context, op, name, ip string) (string, error) {
	zoneID, err := r.zone(ctx)
	if err != nil {
		return "", &dns.BackendError{Provider: Name, Op: op, Err: err}
	}
	rec, err := r.client.CreateDNSRecord(ctx, zoneID, cloudflare.Record{
		Type:    "A",
		Name:    name,
		Content: ip,
		TTL:     r.TTL,
	})
	if err != nil {
		return "", &dns.BackendError{Provider: Name, Op: op, Err: err}
	}
	return rec.ID, nil
}

func (r *Registrar) remove(ctx context.Context, op, id string) error {
	zoneID, err := r.zone(ctx)
	if err != nil {
		return &dns.BackendError{Provider: Name, Op: op, Err: err}
	}
	if err := r.client.DeleteDNSRecord(ctx, zoneID, id); err != nil {
		return &dns.BackendError{Provider: Name, Op: op, Err: err}
	}
	return nil
}

func (r *Registrar) zone(ctx context.Context) (string, error) {
	if r.client == nil {
		token := os.Getenv(cloudflare.TokenEnv)
		if token == "" {
			return "", errors.New(cloudflare.TokenEnv + " is not set")
		}
		r.client = r.newClient(token)
	}
	if r.settings.ZoneID != "" {
		return r.settings.ZoneID, nil
	}
	id, err := r.client.GetZoneID(ctx, strings.TrimSuffix(r.BaseDomain, "."))
	if err != nil {
		return "", err
	}
	r.settings.ZoneID = id
	return id, nil
}
