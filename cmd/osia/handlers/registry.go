package handlers

import (
	"io"
	"os"

	"github.com/go-logr/logr"

	"github.com/imamik/osia/internal/config"
	"github.com/imamik/osia/internal/dns"
	"github.com/imamik/osia/internal/dns/cloudflare"
	"github.com/imamik/osia/internal/dns/nsupdate"
	"github.com/imamik/osia/internal/dns/route53"
	"github.com/imamik/osia/internal/installer"
	"github.com/imamik/osia/internal/lifecycle"
	"github.com/imamik/osia/internal/provisioning"
	"github.com/imamik/osia/internal/provisioning/aws"
	"github.com/imamik/osia/internal/provisioning/hetzner"
	"github.com/imamik/osia/internal/provisioning/openstack"
	"github.com/imamik/osia/internal/render"
	"github.com/imamik/osia/internal/storage"
)

// Factory function variables - can be replaced in tests.
var (
	loadSettings = config.Load

	newStore = storage.New

	newLifecycle = buildLifecycle

	// logOutput receives log lines; the installer writes to stdout and stderr directly.
	logOutput io.Writer = os.Stderr
)

// buildLifecycle wires every supported cloud and DNS backend.
func buildLifecycle(opts Options, resolved *config.Resolved, log logr.Logger) *lifecycle.Lifecycle {
	observer := provisioning.NewLogObserver(log)

	hcloudToken := os.Getenv("HCLOUD_TOKEN")
	if resolved.Cloud != nil && resolved.Cloud.HCloudToken != "" {
		hcloudToken = resolved.Cloud.HCloudToken
	}

	return &lifecycle.Lifecycle{
		Provisioners: provisioning.Registry{
			aws.Name: aws.NewFactory(aws.NewEC2Client, observer),
			openstack.Name: openstack.NewFactory(openstack.Deps{
				Connect:  openstack.Connect,
				Releases: openstack.NewInstallerReleases(opts.Installer),
				Observer: observer,
			}),
			hetzner.Name: hetzner.NewFactory(hetzner.NewClient, observer),
		},
		Registrars: dns.Registry{
			nsupdate.Name:   nsupdate.NewFactory(nsupdate.Exec, log),
			route53.Name:    route53.NewFactory(route53.NewClient),
			cloudflare.Name: cloudflare.NewFactory(cloudflare.NewClient),
		},
		Releasers: provisioning.ReleaserRegistry{
			openstack.Name: openstack.NewReleaser(openstack.Connect, observer),
			hetzner.Name:   hetzner.NewReleaser(hetzner.NewClient, hcloudToken, observer),
		},
		Installer: &installer.Runner{Path: opts.Installer, Stdout: os.Stdout, Stderr: os.Stderr},
		Renderer:  render.New(),
		Observer:  observer,
		WorkDir:   opts.workDir(),
	}
}
