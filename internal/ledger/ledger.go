// Package ledger persists the cloud resources osia allocates outside the
// installer's own bookkeeping (public IPs and uploaded boot images).
//
// The ledger lives in the cluster directory as fips.json and is the only
// source of truth the delete path uses to release those resources.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/imamik/osia/internal/util/fileutil"
)

const (
	// FileName is the ledger file name inside the cluster directory.
	FileName = "fips.json"

	// CurrentVersion is the schema version written by this package.
	CurrentVersion = 1

	// legacyProvider is assumed for ledgers written without a provider field.
	legacyProvider = "openstack"
)

// File is the on-disk ledger schema.
type File struct {
	Version  int      `json:"version"`
	Provider string   `json:"provider"`
	Cloud    string   `json:"cloud"`
	FIPs     []string `json:"fips"`
	Image    string   `json:"image,omitempty"`
}

// Path returns the ledger path for a cluster directory.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Load reads the ledger from dir. A missing ledger is not an error: it
// returns (nil, nil), meaning nothing was allocated.
func Load(dir string) (*File, error) {
	data, err := os.ReadFile(Path(dir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse ledger %s: %w", Path(dir), err)
	}
	if f.Version == 0 {
		f.Version = CurrentVersion
	}
	if f.Version > CurrentVersion {
		return nil, fmt.Errorf("ledger %s has unsupported version %d (max %d)", Path(dir), f.Version, CurrentVersion)
	}
	if f.Provider == "" {
		f.Provider = legacyProvider
	}
	return &f, nil
}

// Save writes the ledger atomically into dir.
func (f *File) Save(dir string) error {
	f.Version = CurrentVersion
	if f.FIPs == nil {
		f.FIPs = []string{}
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}
	return fileutil.WriteFileAtomic(Path(dir), append(data, '\n'), 0o600)
}

// AppendFIP records a newly allocated public IP, creating the ledger when it
// does not exist yet.
func AppendFIP(dir, provider, cloud, address string) (*File, error) {
	f, err := loadOrNew(dir, provider, cloud)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(f.FIPs, address) {
		f.FIPs = append(f.FIPs, address)
	}
	if err := f.Save(dir); err != nil {
		return nil, err
	}
	return f, nil
}

// SetImage records the boot image the cluster references.
func SetImage(dir, provider, cloud, image string) (*File, error) {
	f, err := loadOrNew(dir, provider, cloud)
	if err != nil {
		return nil, err
	}
	f.Image = image
	if err := f.Save(dir); err != nil {
		return nil, err
	}
	return f, nil
}

// Remove deletes the ledger file. A missing file is not an error.
func Remove(dir string) error {
	if err := fileutil.RemoveIfExists(Path(dir)); err != nil {
		return fmt.Errorf("failed to remove ledger: %w", err)
	}
	return nil
}

func loadOrNew(dir, provider, cloud string) (*File, error) {
	f, err := Load(dir)
	if err != nil {
		return nil, err
	}
	if f == nil {
		f = &File{Provider: provider, Cloud: cloud}
	}
	if f.Provider != provider {
		return nil, fmt.Errorf("ledger in %s belongs to provider %q, not %q", dir, f.Provider, provider)
	}
	return f, nil
}
