// Package lifecycle drives a cluster through the install and delete state
// machines.
//
// Install reserves the cluster directory, acquires cloud resources, registers
// the API record, renders the install config and runs the installer. When
// the installer fails, the full delete flow runs unless skip_clean is set.
// Delete recovers everything it needs from the side-car files in the cluster
// directory, so it works in a fresh process.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/osia/internal/config"
	"github.com/imamik/osia/internal/dns"
	"github.com/imamik/osia/internal/installer"
	"github.com/imamik/osia/internal/ledger"
	"github.com/imamik/osia/internal/provisioning"
	"github.com/imamik/osia/internal/render"
	"github.com/imamik/osia/internal/util/naming"
	"github.com/imamik/osia/internal/util/retry"
)

// LockFileName is held for the whole of an install or delete.
const LockFileName = ".osia.lock"

// DefaultDestroyAttempts bounds the installer destroy runs of one delete.
const DefaultDestroyAttempts = 2

// Installer runs the external installer.
type Installer interface {
	Run(ctx context.Context, op installer.Operation, dir, imageOverride string) error
}

// Renderer writes the install config into a cluster directory.
type Renderer interface {
	Render(dir, name string, values map[string]any, secrets render.Secrets) (string, error)
}

// ClusterIdentity names a cluster. The working directory and every DNS
// record name derive from it.
type ClusterIdentity struct {
	Name       string
	BaseDomain string
}

// InstallRequest is a fully resolved install.
type InstallRequest struct {
	ClusterName string
	CloudName   string
	Cloud       *config.Cloud
	// DNS is nil when no DNS provider was selected.
	DNS *config.DNS
}

// RequestFromResolved builds an InstallRequest from resolved settings.
func RequestFromResolved(r *config.Resolved) InstallRequest {
	return InstallRequest{
		ClusterName: r.ClusterName,
		CloudName:   r.CloudName,
		Cloud:       r.Cloud,
		DNS:         r.DNS,
	}
}

// Identity returns the identity of the requested cluster.
func (r InstallRequest) Identity() ClusterIdentity {
	id := ClusterIdentity{Name: r.ClusterName}
	if r.Cloud != nil {
		id.BaseDomain = r.Cloud.BaseDomain
	}
	return id
}

// Lifecycle orchestrates provisioners, DNS registrars and the installer.
type Lifecycle struct {
	Provisioners provisioning.Registry
	Registrars   dns.Registry
	Releasers    provisioning.ReleaserRegistry
	Installer    Installer
	Renderer     Renderer
	// Observer receives lifecycle events. Nil discards them.
	Observer provisioning.Observer

	// WorkDir contains one directory per cluster.
	WorkDir string

	// DestroyAttempts defaults to DefaultDestroyAttempts.
	DestroyAttempts int
}

func (l *Lifecycle) observer() provisioning.Observer {
	if l.Observer == nil {
		return provisioning.NewLogObserver(logr.Discard())
	}
	return l.Observer
}

// ClusterDir returns the working directory of cluster.
func (l *Lifecycle) ClusterDir(cluster string) string {
	return naming.ClusterDir(l.WorkDir, cluster)
}

// Install provisions cluster req.ClusterName. It returns the state reached;
// on failure the error is a *StageError naming that state.
func (l *Lifecycle) Install(ctx context.Context, req InstallRequest) (InstallState, error) {
	state := InstallStart
	obs := l.observer().WithFields(map[string]string{"cluster": req.ClusterName, "operation": "install"})
	fail := func(err error) (InstallState, error) {
		provisioning.LogPhaseFailed(obs, string(state), err)
		return state, &StageError{Cluster: req.ClusterName, Stage: string(state), Err: err}
	}
	enter := func(s InstallState) {
		state = s
		obs.Event(provisioning.Event{Type: provisioning.EventPhaseCompleted, Phase: string(s), Message: "state reached"})
	}

	if req.Cloud == nil {
		return fail(errors.New("no cloud configuration"))
	}
	dir := l.ClusterDir(req.ClusterName)

	prov, err := l.Provisioners.New(req.CloudName, req.Cloud, req.ClusterName, dir)
	if err != nil {
		return fail(err)
	}
	var dnsCfg *config.DNS
	var registrar dns.Registrar
	if req.DNS != nil {
		dnsCfg = l.dnsConfig(req)
		if registrar, err = l.Registrars.New(dnsCfg, dir); err != nil {
			return fail(err)
		}
	}

	if err := os.MkdirAll(l.WorkDir, 0o750); err != nil {
		return fail(fmt.Errorf("failed to create work directory: %w", err))
	}
	if err := reserveDir(dir); err != nil {
		return fail(err)
	}
	unlock, err := lockDir(dir)
	if err != nil {
		return fail(err)
	}
	defer unlock()
	enter(DirectoryReserved)

	start := time.Now()
	provisioning.LogPhaseStart(obs, "acquire")
	if err := prov.AcquireResources(ctx); err != nil {
		return fail(err)
	}
	provisioning.LogPhaseComplete(obs, "acquire", time.Since(start))
	enter(ResourcesAcquired)

	if registrar != nil && prov.APIAddress() != "" {
		if l.addDomain(ctx, obs, dnsCfg, "api", prov.APIAddress(), registrar.AddAPIDomain) {
			enter(APIDomainRegistered)
		}
	}

	secrets := render.Secrets{
		PullSecretFile:        req.Cloud.PullSecretFile,
		SSHKeyFile:            req.Cloud.SSHKeyFile,
		CertificateBundleFile: req.Cloud.CertificateBundleFile,
	}
	if _, err := l.Renderer.Render(dir, prov.Name(), prov.TemplateContext(), secrets); err != nil {
		return fail(err)
	}
	enter(ConfigRendered)

	enter(Installing)
	start = time.Now()
	provisioning.LogPhaseStart(obs, "installer")
	if err := l.Installer.Run(ctx, installer.Create, dir, prov.ImageOverride()); err != nil {
		provisioning.LogPhaseFailed(obs, "installer", err)
		if req.Cloud.SkipClean {
			provisioning.LogWarning(obs, string(state), "skip_clean is set, leaving resources for inspection", nil)
			return fail(err)
		}
		obs.Event(provisioning.Event{Type: provisioning.EventPhaseStarted, Phase: "rollback", Message: "installation failed, deleting cluster"})
		if _, delErr := l.runDelete(ctx, req.ClusterName, dir, dnsCfg); delErr != nil {
			err = errors.Join(err, delErr)
		}
		state = FailedCleanup
		return fail(err)
	}
	provisioning.LogPhaseComplete(obs, "installer", time.Since(start))
	enter(Installed)

	if err := prov.PostInstallation(ctx); err != nil {
		return fail(err)
	}

	if registrar != nil && prov.AppsAddress() != "" {
		if l.addDomain(ctx, obs, dnsCfg, "apps", prov.AppsAddress(), registrar.AddAppsDomain) {
			enter(AppsDomainRegistered)
		}
	}

	enter(Done)
	return state, nil
}

// Delete tears down cluster. dnsCfg supplies settings the persisted DNS
// record does not carry and may be nil.
func (l *Lifecycle) Delete(ctx context.Context, cluster string, dnsCfg *config.DNS) (DeleteState, error) {
	dir := l.ClusterDir(cluster)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		if err == nil {
			err = errors.New("not a directory")
		}
		return DeleteStart, &StageError{Cluster: cluster, Stage: string(DeleteStart), Err: fmt.Errorf("cluster directory %s: %w", dir, err)}
	}
	unlock, err := lockDir(dir)
	if err != nil {
		return DeleteStart, &StageError{Cluster: cluster, Stage: string(DeleteStart), Err: err}
	}
	defer unlock()

	return l.runDelete(ctx, cluster, dir, dnsCfg)
}

// runDelete expects dir to be locked by the caller.
func (l *Lifecycle) runDelete(ctx context.Context, cluster, dir string, dnsCfg *config.DNS) (DeleteState, error) {
	state := DeleteStart
	obs := l.observer().WithFields(map[string]string{"cluster": cluster, "operation": "delete"})
	enter := func(s DeleteState) {
		state = s
		obs.Event(provisioning.Event{Type: provisioning.EventPhaseCompleted, Phase: string(s), Message: "state reached"})
	}

	registrar, err := l.Registrars.Restore(dir, dnsCfg)
	if err != nil {
		provisioning.LogWarning(obs, "dns", "failed to restore DNS record, skipping DNS cleanup", err)
	}
	if registrar != nil {
		enter(DNSRestored)
		if err := registrar.DeleteDomains(ctx); err != nil {
			provisioning.LogWarning(obs, "dns", "failed to delete DNS records", err)
		}
		enter(DomainsRemoved)
	}

	releaseErr := l.release(ctx, obs, cluster, dir, enter)

	attempts := l.DestroyAttempts
	if attempts <= 0 {
		attempts = DefaultDestroyAttempts
	}
	provisioning.LogPhaseStart(obs, "destroy")
	start := time.Now()
	outcome := retry.Attempts(attempts, func(int) error {
		return l.Installer.Run(ctx, installer.Destroy, dir, "")
	}, func(attempt int, err error) {
		provisioning.LogWarning(obs, "destroy", fmt.Sprintf("installer destroy attempt %d of %d failed", attempt, attempts), err)
	})
	if !outcome.Succeeded() {
		state = DestroyFailed
		provisioning.LogPhaseFailed(obs, "destroy", outcome.Err)
		return state, &StageError{Cluster: cluster, Stage: string(state), Err: errors.Join(outcome.Err, releaseErr)}
	}
	provisioning.LogPhaseComplete(obs, "destroy", time.Since(start))
	enter(Destroyed)

	if releaseErr != nil {
		return state, &StageError{Cluster: cluster, Stage: string(state), Err: releaseErr}
	}
	return state, nil
}

// release frees the resources recorded in the ledger. The ledger file is
// kept when releasing fails so the next delete can try again.
func (l *Lifecycle) release(ctx context.Context, obs provisioning.Observer, cluster, dir string, enter func(DeleteState)) error {
	file, err := ledger.Load(dir)
	if err != nil {
		provisioning.LogWarning(obs, "release", "failed to read floating IP ledger", err)
		return err
	}
	if file == nil {
		return nil
	}

	if err := l.Releasers.Release(ctx, file, cluster); err != nil {
		provisioning.LogWarning(obs, "release", "failed to release cloud resources, keeping ledger", err)
		return fmt.Errorf("failed to release resources of %s ledger: %w", file.Provider, err)
	}
	if file.Image != "" {
		enter(ImageReleased)
	}
	if len(file.FIPs) > 0 {
		enter(FIPsReleased)
	}
	if err := ledger.Remove(dir); err != nil {
		provisioning.LogWarning(obs, "release", "failed to remove ledger", err)
	}
	return nil
}

func (l *Lifecycle) dnsConfig(req InstallRequest) *config.DNS {
	cfg := *req.DNS
	id := req.Identity()
	if cfg.ClusterName == "" {
		cfg.ClusterName = id.Name
	}
	if cfg.BaseDomain == "" {
		cfg.BaseDomain = id.BaseDomain
	}
	return &cfg
}

// addDomain registers one record and reports whether it succeeded. DNS
// failures never stop the install.
func (l *Lifecycle) addDomain(ctx context.Context, obs provisioning.Observer, cfg *config.DNS, kind, ip string, add func(context.Context, string) error) bool {
	if err := cfg.ValidateAddress(ip); err != nil {
		provisioning.LogWarning(obs, "dns", "not registering "+kind+" record", err)
		return false
	}
	if err := add(ctx, ip); err != nil {
		provisioning.LogWarning(obs, "dns", "failed to register "+kind+" record", err)
		return false
	}
	provisioning.LogResourceCreated(obs, "dns", kind+" record", naming.DomainSuffix(cfg.ClusterName, cfg.BaseDomain), ip)
	return true
}
