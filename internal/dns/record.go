package dns

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/imamik/osia/internal/config"
	"github.com/imamik/osia/internal/util/fileutil"
	"github.com/imamik/osia/internal/util/naming"
)

// RecordVersion is the schema version written by this package.
const RecordVersion = 1

// RecordFileName is the record file of provider inside a cluster directory.
func RecordFileName(provider string) string {
	return provider + ".json"
}

// Record is the on-disk schema of a registrar. Settings holds the
// provider-specific fields.
type Record struct {
	Version     int             `json:"version"`
	Provider    string          `json:"provider"`
	ClusterName string          `json:"cluster_name"`
	BaseDomain  string          `json:"base_domain"`
	TTL         int             `json:"ttl"`
	APIIP       *string         `json:"api_ip"`
	AppsIP      *string         `json:"apps_ip"`
	Settings    json.RawMessage `json:"settings"`
}

// Base holds the state every registrar shares and reads and writes the
// record file. Registrars embed it and pass their settings struct to Save
// and Load.
type Base struct {
	provider string

	ClusterName string
	BaseDomain  string
	TTL         int
	// APIIP and AppsIP are nil until the matching record was added.
	APIIP  *string
	AppsIP *string
	Dir    string
}

// NewBase fills the shared state from cfg.
func NewBase(provider string, cfg *config.DNS, dir string) Base {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = config.DefaultTTL
	}
	return Base{
		provider:    provider,
		ClusterName: cfg.ClusterName,
		BaseDomain:  cfg.BaseDomain,
		TTL:         ttl,
		Dir:         dir,
	}
}

func (b *Base) Provider() string { return b.provider }

func (b *Base) APIName() string {
	return naming.APIRecord(b.ClusterName, b.BaseDomain)
}

func (b *Base) AppsName() string {
	return naming.AppsRecord(b.ClusterName, b.BaseDomain)
}

func (b *Base) WildcardAppsName() string {
	return naming.WildcardAppsRecord(b.ClusterName, b.BaseDomain)
}

// Encode renders the record with the given provider settings.
func (b *Base) Encode(settings any) ([]byte, error) {
	raw, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s settings: %w", b.provider, err)
	}
	data, err := json.MarshalIndent(Record{
		Version:     RecordVersion,
		Provider:    b.provider,
		ClusterName: b.ClusterName,
		BaseDomain:  b.BaseDomain,
		TTL:         b.TTL,
		APIIP:       b.APIIP,
		AppsIP:      b.AppsIP,
		Settings:    raw,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s record: %w", b.provider, err)
	}
	return append(data, '\n'), nil
}

// Decode replaces the shared state and settings with the record in data.
func (b *Base) Decode(data []byte, settings any) error {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("failed to parse %s record: %w", b.provider, err)
	}
	if rec.Version > RecordVersion {
		return fmt.Errorf("%s record has unsupported version %d (max %d)", b.provider, rec.Version, RecordVersion)
	}
	if rec.Provider != "" && rec.Provider != b.provider {
		return fmt.Errorf("record belongs to provider %q, not %q", rec.Provider, b.provider)
	}
	if len(rec.Settings) > 0 && string(rec.Settings) != "null" {
		if err := json.Unmarshal(rec.Settings, settings); err != nil {
			return fmt.Errorf("failed to parse %s settings: %w", b.provider, err)
		}
	}

	b.ClusterName = rec.ClusterName
	b.BaseDomain = rec.BaseDomain
	b.TTL = rec.TTL
	b.APIIP = rec.APIIP
	b.AppsIP = rec.AppsIP
	return nil
}

// Save writes the record into dir, which becomes the registrar's directory.
func (b *Base) Save(dir string, settings any) error {
	data, err := b.Encode(settings)
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(filepath.Join(dir, RecordFileName(b.provider)), data, 0o600); err != nil {
		return fmt.Errorf("failed to persist %s record: %w", b.provider, err)
	}
	b.Dir = dir
	return nil
}

// Load reads the record from dir, which becomes the registrar's directory.
func (b *Base) Load(dir string, settings any) error {
	data, err := os.ReadFile(filepath.Join(dir, RecordFileName(b.provider)))
	if err != nil {
		return fmt.Errorf("failed to read %s record: %w", b.provider, err)
	}
	if err := b.Decode(data, settings); err != nil {
		return err
	}
	b.Dir = dir
	return nil
}

// RemoveRecord deletes the record file from the registrar's directory.
func (b *Base) RemoveRecord() error {
	if b.Dir == "" {
		return nil
	}
	return fileutil.RemoveIfExists(filepath.Join(b.Dir, RecordFileName(b.provider)))
}

// SetAPI records the API address.
func (b *Base) SetAPI(ip string) { b.APIIP = &ip }

// SetApps records the applications address.
func (b *Base) SetApps(ip string) { b.AppsIP = &ip }

// ClearAPI forgets the API address once its record is gone.
func (b *Base) ClearAPI() { b.APIIP = nil }

// ClearApps forgets the applications address once its record is gone.
func (b *Base) ClearApps() { b.AppsIP = nil }
