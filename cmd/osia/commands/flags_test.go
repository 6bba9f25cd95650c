package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstall_Flags(t *testing.T) {
	cmd := Install()

	for _, name := range []string{"cluster-name", "installer", "cloud", "cloud-env", "dns-provider",
		"skip-git", "storage", "settings", "workdir", "metrics-file", "verbose",
		"base-domain", "master-replicas", "network-list", "skip-clean", "dns-ttl", "dns-use-ipv4"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag %s", name)
	}
	assert.Equal(t, "v", cmd.Flags().Lookup("verbose").Shorthand)
}

func TestClean_HasNoInstallOptions(t *testing.T) {
	cmd := Clean()

	assert.NotNil(t, cmd.Flags().Lookup("skip-git"))
	assert.Nil(t, cmd.Flags().Lookup("base-domain"))
}

func TestOverrides_OnlyExplicitFlags(t *testing.T) {
	cmd := Install()
	require.NoError(t, cmd.Flags().Parse([]string{
		"--cluster-name", "demo",
		"--installer", "./openshift-install",
		"--master-replicas", "3",
		"--network-list", "net-a,net-b",
		"--skip-clean",
		"--dns-ttl", "30",
	}))

	assert.Equal(t, map[string]string{
		"master_replicas": "3",
		"network_list":    "net-a,net-b",
		"skip_clean":      "true",
		"dns_ttl":         "30",
	}, overrides(cmd.Flags()))
}

func TestOverrides_Empty(t *testing.T) {
	cmd := Install()
	require.NoError(t, cmd.Flags().Parse([]string{"--cluster-name", "demo"}))
	assert.Empty(t, overrides(cmd.Flags()))
}

func TestFlagName(t *testing.T) {
	assert.Equal(t, "osp-image-download", flagName("osp_image_download"))
}

func TestRequiredFlags(t *testing.T) {
	cmd := Root()
	cmd.SetArgs([]string{"clean", "--cluster-name", "demo"})
	err := cmd.Execute()
	require.ErrorContains(t, err, "installer")
}
