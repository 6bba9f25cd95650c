package openstack

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/imamik/osia/internal/installer"
)

// DefaultMetadataURL locates the boot image metadata of an installer commit.
const DefaultMetadataURL = "https://raw.githubusercontent.com/openshift/installer/%s/data/data/rhcos.json"

// Release identifies a boot image build.
type Release struct {
	Version string
	URL     string
}

// ReleaseResolver finds the boot image matching the installer in use.
type ReleaseResolver interface {
	Resolve(ctx context.Context) (Release, error)
}

// InstallerReleases resolves the boot image from the commit the installer
// was built from.
type InstallerReleases struct {
	Installer   string
	MetadataURL string
	HTTPClient  *http.Client

	commit func(ctx context.Context, exe string) (string, error)
}

// NewInstallerReleases returns a resolver for the installer at exe.
func NewInstallerReleases(exe string) *InstallerReleases {
	return &InstallerReleases{
		Installer:   exe,
		MetadataURL: DefaultMetadataURL,
		HTTPClient:  http.DefaultClient,
		commit:      installer.Commit,
	}
}

func (r *InstallerReleases) Resolve(ctx context.Context) (Release, error) {
	commit, err := r.commit(ctx, r.Installer)
	if err != nil {
		return Release{}, err
	}

	url := fmt.Sprintf(r.MetadataURL, commit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Release{}, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return Release{}, fmt.Errorf("failed to fetch image metadata for commit %s: %w", commit, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Release{}, fmt.Errorf("failed to fetch image metadata for commit %s: status %d", commit, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Release{}, fmt.Errorf("failed to read image metadata: %w", err)
	}
	return parseMetadata(body)
}

// rhcosMetadata covers both the legacy rhcos.json layout and the stream
// layout of newer installers.
type rhcosMetadata struct {
	BaseURI string `json:"baseURI"`
	BuildID string `json:"buildid"`
	Images  struct {
		OpenStack struct {
			Path string `json:"path"`
		} `json:"openstack"`
	} `json:"images"`

	Architectures map[string]struct {
		Artifacts map[string]struct {
			Release string `json:"release"`
			Formats map[string]struct {
				Disk struct {
					Location string `json:"location"`
				} `json:"disk"`
			} `json:"formats"`
		} `json:"artifacts"`
	} `json:"architectures"`
}

func parseMetadata(data []byte) (Release, error) {
	var meta rhcosMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return Release{}, fmt.Errorf("failed to parse image metadata: %w", err)
	}

	if meta.BuildID != "" && meta.Images.OpenStack.Path != "" {
		return Release{
			Version: meta.BuildID,
			URL:     meta.BaseURI + meta.Images.OpenStack.Path,
		}, nil
	}

	if arch, ok := meta.Architectures["x86_64"]; ok {
		if artifact, ok := arch.Artifacts["openstack"]; ok {
			if format, ok := artifact.Formats["qcow2.gz"]; ok && artifact.Release != "" {
				return Release{Version: artifact.Release, URL: format.Disk.Location}, nil
			}
		}
	}

	return Release{}, fmt.Errorf("image metadata has no openstack image")
}

// Downloader fetches boot images into a cache directory.
type Downloader struct {
	Dir        string
	HTTPClient *http.Client
}

// Fetch returns the local path of the decompressed image at url,
// downloading it unless already cached.
func (d *Downloader) Fetch(ctx context.Context, url string) (string, error) {
	name := strings.TrimSuffix(path.Base(url), ".gz")
	target := filepath.Join(d.Dir, name)

	if _, err := os.Stat(target); err == nil {
		return target, nil
	}

	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create image directory %s: %w", d.Dir, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	client := d.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download image %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download image %s: status %d", url, resp.StatusCode)
	}

	var src io.Reader = resp.Body
	if strings.HasSuffix(url, ".gz") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return "", fmt.Errorf("failed to decompress image %s: %w", url, err)
		}
		defer gz.Close()
		src = gz
	}

	tmp, err := os.CreateTemp(d.Dir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to write image %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write image %s: %w", name, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return "", fmt.Errorf("failed to store image %s: %w", name, err)
	}
	return target, nil
}
