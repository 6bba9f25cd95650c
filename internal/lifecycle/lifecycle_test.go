package lifecycle

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"os"
	"path/filepath"
	"testing"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
	"gopkg.in/yaml.v3"

	"github.com/imamik/osia/internal/config"
	"github.com/imamik/osia/internal/dns"
	"github.com/imamik/osia/internal/installer"
	"github.com/imamik/osia/internal/ledger"
	"github.com/imamik/osia/internal/provisioning"
	"github.com/imamik/osia/internal/provisioning/aws"
	"github.com/imamik/osia/internal/render"
	"github.com/imamik/osia/internal/util/retry"
)

// regionEC2 reports a fixed VPC count per region.
type regionEC2 struct {
	region string
	vpcs   map[string]int
}

func (f *regionEC2) DescribeRegions(context.Context, *ec2.DescribeRegionsInput, ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error) {
	return &ec2.DescribeRegionsOutput{Regions: []types.Region{{RegionName: sdkaws.String("r1")}}}, nil
}

func (f *regionEC2) DescribeVpcs(context.Context, *ec2.DescribeVpcsInput, ...func(*ec2.Options)) (*ec2.DescribeVpcsOutput, error) {
	return &ec2.DescribeVpcsOutput{Vpcs: make([]types.Vpc, f.vpcs[f.region])}, nil
}

func writeSecrets(t *testing.T, cfg *config.Cloud) {
	t.Helper()
	dir := t.TempDir()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	key, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)

	cfg.PullSecretFile = filepath.Join(dir, "pull-secret.json")
	cfg.SSHKeyFile = filepath.Join(dir, "id.pub")
	require.NoError(t, os.WriteFile(cfg.PullSecretFile, []byte(`{"auths":{}}`), 0o600))
	require.NoError(t, os.WriteFile(cfg.SSHKeyFile, ssh.MarshalAuthorizedKey(key), 0o600))
}

func TestInstall_HappyPathSelectsFirstRegionBelowThreshold(t *testing.T) {
	vpcs := map[string]int{"r1": 5, "r2": 2}
	newClient := func(_ context.Context, region string) (aws.EC2API, error) {
		return &regionEC2{region: region, vpcs: vpcs}, nil
	}
	inst := &fakeInstaller{results: map[installer.Operation][]error{}}
	lc := &Lifecycle{
		Provisioners: provisioning.Registry{aws.Name: aws.NewFactory(newClient, provisioning.NewLogObserver(logr.Discard()))},
		Registrars:   dns.Registry{},
		Releasers:    provisioning.ReleaserRegistry{},
		Installer:    inst,
		Renderer:     render.New(),
		Observer:     provisioning.NewLogObserver(logr.Discard()),
		WorkDir:      filepath.Join(t.TempDir(), "clusters"),
	}
	cfg := &config.Cloud{
		BaseDomain:     "example.com",
		MasterFlavor:   "m5.xlarge",
		MasterReplicas: 3,
		WorkerFlavor:   "m5.large",
		WorkerReplicas: 2,
		ListOfRegions:  []string{"r1", "r2"},
	}
	writeSecrets(t, cfg)

	state, err := lc.Install(context.Background(), InstallRequest{ClusterName: "demo", CloudName: aws.Name, Cloud: cfg})
	require.NoError(t, err)
	assert.Equal(t, Done, state)
	assert.Equal(t, []installer.Operation{installer.Create}, inst.calls)

	data, err := os.ReadFile(filepath.Join(lc.ClusterDir("demo"), render.FileName))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Equal(t, "r2", doc["platform"].(map[string]any)["aws"].(map[string]any)["region"])
}

func TestInstall_WithDNS(t *testing.T) {
	h := newHarness(t.TempDir())

	state, err := h.lc.Install(context.Background(), installRequest(true))
	require.NoError(t, err)
	assert.Equal(t, Done, state)
	assert.True(t, h.provisioner.posted)
	assert.Equal(t, fakeCloud, h.renderer.name)

	rec := &stubRegistrar{Base: dns.NewBase("stub", &config.DNS{}, ""), deleted: &h.deleted}
	require.NoError(t, rec.Restore(h.lc.ClusterDir("demo")))
	require.NotNil(t, rec.APIIP)
	require.NotNil(t, rec.AppsIP)
	assert.Equal(t, "203.0.113.7", *rec.APIIP)
	assert.Equal(t, "203.0.113.8", *rec.AppsIP)
	assert.Equal(t, "demo", rec.ClusterName)
	assert.Equal(t, "example.com", rec.BaseDomain)
	assert.Equal(t, 30, rec.TTL)
}

func TestLifecycle_NilObserverDiscardsEvents(t *testing.T) {
	h := newHarness(t.TempDir())
	h.lc.Observer = nil

	state, err := h.lc.Install(context.Background(), installRequest(true))
	require.NoError(t, err)
	assert.Equal(t, Done, state)

	state2, err := h.lc.Delete(context.Background(), "demo", nil)
	require.NoError(t, err)
	assert.Equal(t, Destroyed, state2)
}

func TestInstall_DirectoryConflict(t *testing.T) {
	h := newHarness(t.TempDir())
	require.NoError(t, os.MkdirAll(h.lc.ClusterDir("demo"), 0o750))

	state, err := h.lc.Install(context.Background(), installRequest(false))
	var conflict *DirectoryConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, InstallStart, state)
	assert.Empty(t, h.installer.calls)
}

func TestInstall_AcquireFailureStopsEarly(t *testing.T) {
	h := newHarness(t.TempDir())
	h.provisioner.acquireErr = &provisioning.NoCapacityError{Candidates: []string{"r1"}, Threshold: 5}

	state, err := h.lc.Install(context.Background(), installRequest(true))
	var capErr *provisioning.NoCapacityError
	require.ErrorAs(t, err, &capErr)
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, string(DirectoryReserved), stageErr.Stage)
	assert.Equal(t, DirectoryReserved, state)
	assert.Empty(t, h.installer.calls)
	assert.NoFileExists(t, filepath.Join(h.lc.ClusterDir("demo"), dns.RecordFileName("stub")))
}

func TestInstall_DNSFailureIsNotFatal(t *testing.T) {
	h := newHarness(t.TempDir())
	h.dnsAddErr = &dns.BackendError{Provider: "stub", Op: "add api domain", Err: errors.New("refused")}

	state, err := h.lc.Install(context.Background(), installRequest(true))
	require.NoError(t, err)
	assert.Equal(t, Done, state)
	assert.FileExists(t, filepath.Join(h.lc.ClusterDir("demo"), dns.RecordFileName("stub")), "address persisted before the backend call")
}

func TestInstall_RenderFailure(t *testing.T) {
	h := newHarness(t.TempDir())
	h.renderer.err = &render.ConfigurationFileError{Path: "/missing", Kind: "pull secret", Err: os.ErrNotExist}

	state, err := h.lc.Install(context.Background(), installRequest(true))
	var cfgErr *render.ConfigurationFileError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, APIDomainRegistered, state)
	assert.Empty(t, h.installer.calls)
}

func TestInstall_CreateFailureCleansUp(t *testing.T) {
	h := newHarness(t.TempDir())
	h.installer.results[installer.Create] = []error{exitErr(installer.Create)}

	state, err := h.lc.Install(context.Background(), installRequest(true))
	var execErr *installer.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, FailedCleanup, state)
	assert.Equal(t, []installer.Operation{installer.Create, installer.Destroy}, h.installer.calls)

	dir := h.lc.ClusterDir("demo")
	assert.NoFileExists(t, ledger.Path(dir))
	assert.NoFileExists(t, filepath.Join(dir, dns.RecordFileName("stub")))
	assert.Equal(t, []string{"api.demo.example.com"}, h.deleted)
	require.Len(t, h.released, 1)
	assert.Equal(t, []string{"203.0.113.7"}, h.released[0].FIPs)
	assert.False(t, h.provisioner.posted)
}

func TestInstall_CreateFailureWithSkipClean(t *testing.T) {
	h := newHarness(t.TempDir())
	h.installer.results[installer.Create] = []error{exitErr(installer.Create)}
	req := installRequest(true)
	req.Cloud.SkipClean = true

	state, err := h.lc.Install(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, Installing, state)
	assert.Equal(t, []installer.Operation{installer.Create}, h.installer.calls)

	dir := h.lc.ClusterDir("demo")
	assert.FileExists(t, ledger.Path(dir))
	assert.FileExists(t, filepath.Join(dir, dns.RecordFileName("stub")))
	assert.Empty(t, h.released)
}

func TestInstall_PostInstallationFailure(t *testing.T) {
	h := newHarness(t.TempDir())
	h.provisioner.postErr = errors.New("no ingress port")

	state, err := h.lc.Install(context.Background(), installRequest(true))
	require.ErrorContains(t, err, "no ingress port")
	assert.Equal(t, Installed, state)
	assert.Equal(t, 1, h.installer.count(installer.Create))
	assert.Zero(t, h.installer.count(installer.Destroy))
}

func TestInstall_UnknownCloud(t *testing.T) {
	h := newHarness(t.TempDir())
	req := installRequest(false)
	req.CloudName = "gcp"

	state, err := h.lc.Install(context.Background(), req)
	require.ErrorContains(t, err, "unknown cloud")
	assert.Equal(t, InstallStart, state)
	assert.NoDirExists(t, h.lc.ClusterDir("demo"))
}

func TestDelete_DestroyRetries(t *testing.T) {
	tests := []struct {
		name    string
		results []error
		state   DeleteState
		wantErr bool
	}{
		{"succeeds first time", []error{nil}, Destroyed, false},
		{"fails once then succeeds", []error{exitErr(installer.Destroy), nil}, Destroyed, false},
		{"always fails", []error{exitErr(installer.Destroy)}, DestroyFailed, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t.TempDir())
			require.NoError(t, os.MkdirAll(h.lc.ClusterDir("demo"), 0o750))
			h.installer.results[installer.Destroy] = tt.results

			state, err := h.lc.Delete(context.Background(), "demo", nil)
			assert.Equal(t, tt.state, state)
			if tt.wantErr {
				var exhausted *retry.ExhaustedError
				require.ErrorAs(t, err, &exhausted)
				assert.Equal(t, 2, exhausted.Attempts)
				assert.Equal(t, 2, h.installer.count(installer.Destroy))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.results), h.installer.count(installer.Destroy))
		})
	}
}

func TestDelete_RestoresSidecars(t *testing.T) {
	h := newHarness(t.TempDir())
	dir := h.lc.ClusterDir("demo")
	require.NoError(t, os.MkdirAll(dir, 0o750))

	reg := &stubRegistrar{Base: dns.NewBase("stub", &config.DNS{ClusterName: "demo", BaseDomain: "example.com"}, dir), deleted: &h.deleted}
	reg.SetAPI("203.0.113.7")
	require.NoError(t, reg.Persist(dir))
	_, err := ledger.AppendFIP(dir, fakeCloud, "region-1", "203.0.113.7")
	require.NoError(t, err)
	_, err = ledger.SetImage(dir, fakeCloud, "region-1", "rhcos-demo")
	require.NoError(t, err)

	state, err := h.lc.Delete(context.Background(), "demo", nil)
	require.NoError(t, err)
	assert.Equal(t, Destroyed, state)
	assert.Equal(t, []string{"api.demo.example.com"}, h.deleted, "apps record never set, so not deleted")
	require.Len(t, h.released, 1)
	assert.Equal(t, "rhcos-demo", h.released[0].Image)
	assert.NoFileExists(t, ledger.Path(dir))
	assert.NoFileExists(t, filepath.Join(dir, dns.RecordFileName("stub")))
}

func TestDelete_ReleaseFailureKeepsLedger(t *testing.T) {
	h := newHarness(t.TempDir())
	h.releaseErr = errors.New("address in use")
	dir := h.lc.ClusterDir("demo")
	require.NoError(t, os.MkdirAll(dir, 0o750))
	_, err := ledger.AppendFIP(dir, fakeCloud, "region-1", "203.0.113.7")
	require.NoError(t, err)

	state, err := h.lc.Delete(context.Background(), "demo", nil)
	require.ErrorContains(t, err, "address in use")
	assert.Equal(t, Destroyed, state, "destroy still runs")
	assert.Equal(t, 1, h.installer.count(installer.Destroy))
	assert.FileExists(t, ledger.Path(dir))
}

func TestDelete_MissingDirectory(t *testing.T) {
	h := newHarness(t.TempDir())

	state, err := h.lc.Delete(context.Background(), "demo", nil)
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, DeleteStart, state)
	assert.Empty(t, h.installer.calls)
}

func TestStageError(t *testing.T) {
	cause := errors.New("boom")
	err := error(&StageError{Cluster: "demo", Stage: "Installing", Err: cause})
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "cluster demo failed after Installing: boom", err.Error())
}

func TestRequestFromResolved(t *testing.T) {
	r := &config.Resolved{ClusterName: "demo", CloudName: "aws", Cloud: &config.Cloud{}, DNS: &config.DNS{Provider: "route53"}}
	req := RequestFromResolved(r)
	assert.Equal(t, "demo", req.ClusterName)
	assert.Equal(t, "aws", req.CloudName)
	assert.Same(t, r.DNS, req.DNS)
}

func TestInstallRequest_Identity(t *testing.T) {
	req := InstallRequest{ClusterName: "demo", Cloud: &config.Cloud{BaseDomain: "example.com"}}
	assert.Equal(t, ClusterIdentity{Name: "demo", BaseDomain: "example.com"}, req.Identity())
	assert.Equal(t, ClusterIdentity{Name: "demo"}, InstallRequest{ClusterName: "demo"}.Identity())
}
