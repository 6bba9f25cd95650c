// Package dns registers the API and applications records of a cluster with
// a DNS backend.
//
// Every registrar persists its record set to <provider>.json in the cluster
// directory whenever it changes, so deletion in a later process can restore
// the registrar from that file alone.
package dns

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/imamik/osia/internal/config"
)

// Registrar manages the DNS records of one cluster.
type Registrar interface {
	Provider() string

	// AddAPIDomain records ip as the API address, persists the record set
	// and registers api.<cluster>.<base domain>.
	AddAPIDomain(ctx context.Context, ip string) error

	// AddAppsDomain records ip as the applications address, persists the
	// record set and registers the wildcard applications record.
	AddAppsDomain(ctx context.Context, ip string) error

	// DeleteDomains removes every record whose address was recorded and
	// then removes the record file.
	DeleteDomains(ctx context.Context) error

	Persist(dir string) error
	Restore(dir string) error
}

// Factory creates the registrar of a cluster whose directory is dir.
type Factory func(cfg *config.DNS, dir string) (Registrar, error)

// Registry maps DNS provider names to registrar factories.
type Registry map[string]Factory

// New creates the registrar for cfg.Provider.
func (r Registry) New(cfg *config.DNS, dir string) (Registrar, error) {
	factory, ok := r[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown dns provider %q, expected one of %v", cfg.Provider, r.Names())
	}
	reg, err := factory(cfg, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s registrar: %w", cfg.Provider, err)
	}
	return reg, nil
}

// Names returns the registered provider names in sorted order.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Restore probes dir for a record file of any registered provider, in
// sorted name order, and returns the registrar restored from the first one
// found. It returns (nil, nil) when dir holds no record file. cfg may be
// nil; persisted values always take precedence over it.
func (r Registry) Restore(dir string, cfg *config.DNS) (Registrar, error) {
	for _, name := range r.Names() {
		if _, err := os.Stat(filepath.Join(dir, RecordFileName(name))); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to probe %s record: %w", name, err)
		}

		var probe config.DNS
		if cfg != nil {
			probe = *cfg
		}
		probe.Provider = name

		reg, err := r[name](&probe, dir)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s registrar: %w", name, err)
		}
		if err := reg.Restore(dir); err != nil {
			return nil, err
		}
		return reg, nil
	}
	return nil, nil
}

// BackendError is a failed DNS mutation. It never aborts a cluster
// operation on its own.
type BackendError struct {
	Provider string
	Op       string
	Err      error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("dns %s: %s failed: %v", e.Provider, e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}
