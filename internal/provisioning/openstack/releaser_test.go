package openstack

import (
	"context"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/osia/internal/ledger"
	"github.com/imamik/osia/internal/provisioning"
)

func newTestReleaser(api *fakeAPI) *Releaser {
	return NewReleaser(api.connector(), provisioning.NewLogObserver(logr.Discard()))
}

func TestRelease_DeletesFIPs(t *testing.T) {
	api := newFakeAPI()
	a, _ := api.CreateFloatingIP(context.Background(), "net", "c1-api")
	b, _ := api.CreateFloatingIP(context.Background(), "net", "c1-ingress")
	keep, _ := api.CreateFloatingIP(context.Background(), "net", "c2-api")

	err := newTestReleaser(api).Release(context.Background(), &ledger.File{
		Provider: Name, Cloud: "psi", FIPs: []string{a.Address, b.Address},
	}, "c1")
	require.NoError(t, err)

	assert.Len(t, api.fips, 1)
	assert.Contains(t, api.fips, keep.ID)
}

func TestRelease_SharedImageKeepsOtherClusters(t *testing.T) {
	api := newFakeAPI()
	img := api.addImage("osia-c1-415", "osia-version-415", "c1", "c2")

	err := newTestReleaser(api).Release(context.Background(), &ledger.File{
		Provider: Name, Cloud: "psi", Image: img.Name,
	}, "c1")
	require.NoError(t, err)

	require.Contains(t, api.images, img.ID)
	assert.Equal(t, []string{"c2"}, api.images[img.ID].Clusters)
}

func TestRelease_LastReferenceDeletesImage(t *testing.T) {
	api := newFakeAPI()
	img := api.addImage("osia-c1-415", "osia-version-415", "c1")

	err := newTestReleaser(api).Release(context.Background(), &ledger.File{
		Provider: Name, Cloud: "psi", Image: img.Name,
	}, "c1")
	require.NoError(t, err)
	assert.Empty(t, api.images)
}

func TestRelease_MissingImageIsNotAnError(t *testing.T) {
	api := newFakeAPI()

	err := newTestReleaser(api).Release(context.Background(), &ledger.File{
		Provider: Name, Cloud: "psi", Image: "osia-gone-415",
	}, "c1")
	assert.NoError(t, err)
}
