// Package nsupdate registers cluster records through RFC 2136 dynamic
// updates sent with the nsupdate tool.
//
// Failures never propagate: they are logged as warnings so that DNS
// trouble cannot block cluster creation or teardown.
package nsupdate

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/go-logr/logr"

	"github.com/imamik/osia/internal/config"
	"github.com/imamik/osia/internal/dns"
	"github.com/imamik/osia/internal/logging"
)

// Name is the provider name and record file stem of this registrar.
const Name = config.DNSNSUpdate

// Runner feeds script to nsupdate authenticated with keyFile.
type Runner func(ctx context.Context, keyFile, script string) error

// Exec runs the nsupdate binary found on PATH.
func Exec(ctx context.Context, keyFile, script string) error {
	cmd := exec.CommandContext(ctx, "nsupdate", "-k", keyFile)
	cmd.Stdin = strings.NewReader(script)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

type settings struct {
	KeyFile string `json:"key_file"`
	Server  string `json:"server"`
	Zone    string `json:"zone"`
}

// Registrar sends dynamic updates for one cluster.
type Registrar struct {
	dns.Base
	settings settings

	run Runner
	log logr.Logger
}

// NewFactory returns the registry factory for nsupdate registrars.
func NewFactory(run Runner, log logr.Logger) dns.Factory {
	return func(cfg *config.DNS, dir string) (dns.Registrar, error) {
		return &Registrar{
			Base: dns.NewBase(Name, cfg, dir),
			settings: settings{
				KeyFile: cfg.KeyFile,
				Server:  cfg.Server,
				Zone:    cfg.Zone,
			},
			run: run,
			log: log.WithValues("dns", Name),
		}, nil
	}
}

// AddAPIDomain never fails on a backend error; only persisting can fail.
func (r *Registrar) AddAPIDomain(ctx context.Context, ip string) error {
	r.SetAPI(ip)
	if err := r.Persist(r.Dir); err != nil {
		return err
	}

	r.log.Info("adding api domain", "record", r.APIName(), "ip", ip)
	r.send(ctx, "add api domain", []string{
		fmt.Sprintf("update add %s %d A %s", r.APIName(), r.TTL, ip),
	})
	return nil
}

// AddAppsDomain registers both apps.<suffix> and *.apps.<suffix>.
func (r *Registrar) AddAppsDomain(ctx context.Context, ip string) error {
	r.SetApps(ip)
	if err := r.Persist(r.Dir); err != nil {
		return err
	}

	r.log.Info("adding apps domain", "record", r.WildcardAppsName(), "ip", ip)
	r.send(ctx, "add apps domain", []string{
		fmt.Sprintf("update add %s %d A %s", r.AppsName(), r.TTL, ip),
		fmt.Sprintf("update add %s %d A %s", escapeWildcard(r.WildcardAppsName()), r.TTL, ip),
	})
	return nil
}

// DeleteDomains removes the recorded names. The record file is kept when
// the update failed.
func (r *Registrar) DeleteDomains(ctx context.Context) error {
	var updates []string
	if r.AppsIP != nil {
		updates = append(updates,
			fmt.Sprintf("update delete %s A", r.AppsName()),
			fmt.Sprintf("update delete %s A", escapeWildcard(r.WildcardAppsName())),
		)
	}
	if r.APIIP != nil {
		updates = append(updates, fmt.Sprintf("update delete %s A", r.APIName()))
	}

	if len(updates) > 0 && !r.send(ctx, "delete domains", updates) {
		return nil
	}
	return r.RemoveRecord()
}

func (r *Registrar) Persist(dir string) error {
	return r.Save(dir, &r.settings)
}

func (r *Registrar) Restore(dir string) error {
	return r.Load(dir, &r.settings)
}

// Script builds the transaction for updates.
func (r *Registrar) Script(updates []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "server %s\n", r.settings.Server)
	fmt.Fprintf(&b, "zone %s\n", r.settings.Zone)
	for _, u := range updates {
		b.WriteString(u)
		b.WriteByte('\n')
	}
	b.WriteString("send\n")
	return b.String()
}

// send reports whether the update was accepted.
func (r *Registrar) send(ctx context.Context, op string, updates []string) bool {
	if err := r.run(ctx, r.settings.KeyFile, r.Script(updates)); err != nil {
		logging.Warn(r.log, "dns update failed", "error", &dns.BackendError{Provider: Name, Op: op, Err: err})
		return false
	}
	return true
}

// escapeWildcard protects the leading asterisk from nsupdate's parser.
func escapeWildcard(name string) string {
	if strings.HasPrefix(name, "*") {
		return `\` + name
	}
	return name
}
