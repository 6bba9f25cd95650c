package nsupdate

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/osia/internal/config"
	"github.com/imamik/osia/internal/dns"
	"github.com/imamik/osia/internal/logging"
)

type recorder struct {
	scripts []string
	keys    []string
	err     error
}

func (r *recorder) run(_ context.Context, keyFile, script string) error {
	r.keys = append(r.keys, keyFile)
	r.scripts = append(r.scripts, script)
	return r.err
}

func testConfig() *config.DNS {
	return &config.DNS{
		Provider:    Name,
		ClusterName: "demo",
		BaseDomain:  "example.com",
		TTL:         30,
		KeyFile:     "/etc/osia/dns.key",
		Server:      "ns1.example.com",
		Zone:        "example.com",
	}
}

func newTestRegistrar(t *testing.T, rec *recorder, log logr.Logger) (*Registrar, string) {
	t.Helper()
	dir := t.TempDir()
	reg, err := NewFactory(rec.run, log)(testConfig(), dir)
	require.NoError(t, err)
	return reg.(*Registrar), dir
}

func TestAddAPIDomain(t *testing.T) {
	rec := &recorder{}
	r, dir := newTestRegistrar(t, rec, logr.Discard())

	require.NoError(t, r.AddAPIDomain(context.Background(), "203.0.113.7"))

	require.Len(t, rec.scripts, 1)
	assert.Equal(t, "/etc/osia/dns.key", rec.keys[0])
	assert.Equal(t, "server ns1.example.com\nzone example.com\nupdate add api.demo.example.com 30 A 203.0.113.7\nsend\n", rec.scripts[0])
	assert.FileExists(t, filepath.Join(dir, "nsupdate.json"))
}

func TestAddAppsDomain(t *testing.T) {
	rec := &recorder{}
	r, _ := newTestRegistrar(t, rec, logr.Discard())

	require.NoError(t, r.AddAppsDomain(context.Background(), "203.0.113.8"))

	require.Len(t, rec.scripts, 1)
	assert.Equal(t, "server ns1.example.com\nzone example.com\n"+
		"update add apps.demo.example.com 30 A 203.0.113.8\n"+
		"update add \\*.apps.demo.example.com 30 A 203.0.113.8\n"+
		"send\n", rec.scripts[0])
}

func TestBackendFailureIsWarning(t *testing.T) {
	rec := &recorder{err: errors.New("exit status 2")}
	var out bytes.Buffer
	r, dir := newTestRegistrar(t, rec, logging.New(&out, false))

	require.NoError(t, r.AddAPIDomain(context.Background(), "203.0.113.7"))
	assert.Contains(t, out.String(), "severity")
	assert.Contains(t, out.String(), "exit status 2")

	require.NoError(t, r.DeleteDomains(context.Background()))
	assert.FileExists(t, filepath.Join(dir, "nsupdate.json"), "record kept after failed delete")
}

func TestDeleteDomains_MissingAppsIP(t *testing.T) {
	rec := &recorder{}
	r, dir := newTestRegistrar(t, rec, logr.Discard())
	require.NoError(t, r.AddAPIDomain(context.Background(), "203.0.113.7"))

	restored, err := dns.Registry{Name: NewFactory(rec.run, logr.Discard())}.Restore(dir, nil)
	require.NoError(t, err)
	require.NotNil(t, restored)

	require.NoError(t, restored.DeleteDomains(context.Background()))

	require.Len(t, rec.scripts, 2)
	assert.Equal(t, "server ns1.example.com\nzone example.com\nupdate delete api.demo.example.com A\nsend\n", rec.scripts[1])
	assert.NoFileExists(t, filepath.Join(dir, "nsupdate.json"))
}

func TestPersistRestoreRoundTrip(t *testing.T) {
	rec := &recorder{}
	r, dir := newTestRegistrar(t, rec, logr.Discard())
	require.NoError(t, r.AddAPIDomain(context.Background(), "203.0.113.7"))
	require.NoError(t, r.AddAppsDomain(context.Background(), "203.0.113.8"))

	original, err := os.ReadFile(filepath.Join(dir, "nsupdate.json"))
	require.NoError(t, err)

	restored, err := NewFactory(rec.run, logr.Discard())(&config.DNS{}, "")
	require.NoError(t, err)
	require.NoError(t, restored.Restore(dir))

	out := t.TempDir()
	require.NoError(t, restored.Persist(out))
	again, err := os.ReadFile(filepath.Join(out, "nsupdate.json"))
	require.NoError(t, err)

	assert.Equal(t, string(original), string(again))
	assert.Contains(t, string(original), `"key_file": "/etc/osia/dns.key"`)
}
