package lifecycle

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	"github.com/go-logr/logr"

	"github.com/imamik/osia/internal/config"
	"github.com/imamik/osia/internal/dns"
	"github.com/imamik/osia/internal/installer"
	"github.com/imamik/osia/internal/ledger"
	"github.com/imamik/osia/internal/provisioning"
	"github.com/imamik/osia/internal/render"
)

const fakeCloud = "fake"

// fakeInstaller records every run and answers from per-operation queues.
// An exhausted queue repeats its last result.
type fakeInstaller struct {
	mu      sync.Mutex
	calls   []installer.Operation
	results map[installer.Operation][]error
	image   string
}

func (f *fakeInstaller) Run(_ context.Context, op installer.Operation, _ string, imageOverride string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	if op == installer.Create {
		f.image = imageOverride
	}
	queue := f.results[op]
	if len(queue) == 0 {
		return nil
	}
	err := queue[0]
	if len(queue) > 1 {
		f.results[op] = queue[1:]
	}
	return err
}

func (f *fakeInstaller) count(op installer.Operation) int {
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

func exitErr(op installer.Operation) error {
	return &installer.ExecutionError{Outcome: installer.Outcome{ExitCode: 1, Operation: op}, Err: errors.New("exit status 1")}
}

// fakeProvisioner records its API address in the ledger like a real
// backend does.
type fakeProvisioner struct {
	provisioning.Common
	acquireErr error
	postErr    error
	api        string
	apps       string
	posted     bool
}

func (p *fakeProvisioner) Name() string { return fakeCloud }

func (p *fakeProvisioner) AcquireResources(context.Context) error {
	if p.acquireErr != nil {
		return p.acquireErr
	}
	p.api = "203.0.113.7"
	_, err := ledger.AppendFIP(p.Dir, fakeCloud, "region-1", p.api)
	return err
}

func (p *fakeProvisioner) PostInstallation(context.Context) error {
	if p.postErr != nil {
		return p.postErr
	}
	p.posted = true
	p.apps = "203.0.113.8"
	_, err := ledger.AppendFIP(p.Dir, fakeCloud, "region-1", p.apps)
	return err
}

func (p *fakeProvisioner) TemplateContext() map[string]any { return p.CommonContext() }
func (p *fakeProvisioner) APIAddress() string              { return p.api }
func (p *fakeProvisioner) AppsAddress() string             { return p.apps }
func (p *fakeProvisioner) ImageOverride() string           { return "" }

// stubRegistrar persists like a real registrar but never calls a backend.
type stubRegistrar struct {
	dns.Base
	addErr  error
	deleted *[]string
}

func (s *stubRegistrar) AddAPIDomain(_ context.Context, ip string) error {
	s.SetAPI(ip)
	if err := s.Persist(s.Dir); err != nil {
		return err
	}
	return s.addErr
}

func (s *stubRegistrar) AddAppsDomain(_ context.Context, ip string) error {
	s.SetApps(ip)
	if err := s.Persist(s.Dir); err != nil {
		return err
	}
	return s.addErr
}

func (s *stubRegistrar) DeleteDomains(context.Context) error {
	if s.APIIP != nil {
		*s.deleted = append(*s.deleted, s.APIName())
	}
	if s.AppsIP != nil {
		*s.deleted = append(*s.deleted, s.WildcardAppsName())
	}
	return s.RemoveRecord()
}

func (s *stubRegistrar) Persist(dir string) error { return s.Save(dir, &struct{}{}) }
func (s *stubRegistrar) Restore(dir string) error { return s.Load(dir, &struct{}{}) }

// fakeRenderer writes a marker file instead of a real install config.
type fakeRenderer struct {
	err  error
	name string
}

func (r *fakeRenderer) Render(dir, name string, _ map[string]any, _ render.Secrets) (string, error) {
	r.name = name
	if r.err != nil {
		return "", r.err
	}
	return filepath.Join(dir, render.FileName), nil
}

type harness struct {
	lc          *Lifecycle
	installer   *fakeInstaller
	provisioner *fakeProvisioner
	renderer    *fakeRenderer
	released    []*ledger.File
	releaseErr  error
	dnsAddErr   error
	deleted     []string
}

func newHarness(workDir string) *harness {
	h := &harness{
		installer: &fakeInstaller{results: map[installer.Operation][]error{}},
		renderer:  &fakeRenderer{},
	}
	h.lc = &Lifecycle{
		Provisioners: provisioning.Registry{
			fakeCloud: func(cfg *config.Cloud, clusterName, dir string) (provisioning.Provisioner, error) {
				h.provisioner.Common = provisioning.NewCommon(cfg, clusterName, dir)
				return h.provisioner, nil
			},
		},
		Registrars: dns.Registry{
			"stub": func(cfg *config.DNS, dir string) (dns.Registrar, error) {
				return &stubRegistrar{Base: dns.NewBase("stub", cfg, dir), addErr: h.dnsAddErr, deleted: &h.deleted}, nil
			},
		},
		Releasers: provisioning.ReleaserRegistry{
			fakeCloud: provisioning.ReleaserFunc(func(_ context.Context, l *ledger.File, _ string) error {
				h.released = append(h.released, l)
				return h.releaseErr
			}),
		},
		Installer: h.installer,
		Renderer:  h.renderer,
		Observer:  provisioning.NewLogObserver(logr.Discard()),
		WorkDir:   workDir,
	}
	h.provisioner = &fakeProvisioner{}
	return h
}

func installRequest(withDNS bool) InstallRequest {
	req := InstallRequest{
		ClusterName: "demo",
		CloudName:   fakeCloud,
		Cloud:       &config.Cloud{BaseDomain: "example.com", MasterReplicas: 3, WorkerReplicas: 2},
	}
	if withDNS {
		req.DNS = &config.DNS{Provider: "stub", TTL: 30}
	}
	return req
}
