package openstack

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
)

// fakeAPI is an in-memory OpenStack.
type fakeAPI struct {
	networks     map[string]Network
	availability map[string][2]int64
	ports        []Port
	fips         map[string]FloatingIP
	attached     map[string]string
	images       map[string]*Image
	uploads      map[string][]byte

	nextID int

	// setClustersHook runs before SetImageClusters mutates state.
	setClustersHook func(call int, imageID string) error
	setClusterCalls int
	createImageErr  error
	uploadErr       error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		networks:     map[string]Network{},
		availability: map[string][2]int64{},
		fips:         map[string]FloatingIP{},
		attached:     map[string]string{},
		images:       map[string]*Image{},
		uploads:      map[string][]byte{},
	}
}

func (f *fakeAPI) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeAPI) addNetwork(name string, total, used int64) Network {
	n := Network{ID: "net-" + name, Name: name}
	f.networks[name] = n
	f.availability[n.ID] = [2]int64{total, used}
	return n
}

func (f *fakeAPI) addImage(name, tag string, clusters ...string) *Image {
	img := &Image{ID: f.id("img"), Name: name, Tags: []string{tag}, Clusters: clusters}
	f.images[img.ID] = img
	return img
}

func (f *fakeAPI) connector() Connector {
	return func(context.Context, string) (API, error) { return f, nil }
}

func (f *fakeAPI) NetworkByName(_ context.Context, name string) (Network, error) {
	n, ok := f.networks[name]
	if !ok {
		return Network{}, fmt.Errorf("network %s not found", name)
	}
	return n, nil
}

func (f *fakeAPI) NetworkAvailability(_ context.Context, id string) (int64, int64, error) {
	a := f.availability[id]
	return a[0], a[1], nil
}

func (f *fakeAPI) CreateFloatingIP(_ context.Context, networkID, _ string) (FloatingIP, error) {
	fip := FloatingIP{ID: f.id("fip"), Address: fmt.Sprintf("10.0.0.%d", f.nextID)}
	f.fips[fip.ID] = fip
	return fip, nil
}

func (f *fakeAPI) FloatingIPsByAddress(_ context.Context, address string) ([]FloatingIP, error) {
	var out []FloatingIP
	for _, fip := range f.fips {
		if fip.Address == address {
			out = append(out, fip)
		}
	}
	return out, nil
}

func (f *fakeAPI) AttachFloatingIP(_ context.Context, fipID, portID string) error {
	if _, ok := f.fips[fipID]; !ok {
		return errors.New("no such floating ip")
	}
	f.attached[fipID] = portID
	return nil
}

func (f *fakeAPI) DeleteFloatingIP(_ context.Context, id string) error {
	delete(f.fips, id)
	return nil
}

func (f *fakeAPI) Ports(context.Context) ([]Port, error) { return f.ports, nil }

func (f *fakeAPI) ImagesByTag(_ context.Context, tag string) ([]Image, error) {
	var out []Image
	for _, id := range f.sortedImageIDs() {
		img := f.images[id]
		for _, t := range img.Tags {
			if t == tag {
				out = append(out, *img)
			}
		}
	}
	return out, nil
}

func (f *fakeAPI) ImagesByName(_ context.Context, name string) ([]Image, error) {
	var out []Image
	for _, id := range f.sortedImageIDs() {
		if f.images[id].Name == name {
			out = append(out, *f.images[id])
		}
	}
	return out, nil
}

func (f *fakeAPI) sortedImageIDs() []string {
	ids := make([]string, 0, len(f.images))
	for id := range f.images {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (f *fakeAPI) SetImageClusters(_ context.Context, id string, clusters []string) error {
	f.setClusterCalls++
	if f.setClustersHook != nil {
		if err := f.setClustersHook(f.setClusterCalls, id); err != nil {
			return err
		}
	}
	img, ok := f.images[id]
	if !ok {
		return fmt.Errorf("image %s: %w", id, ErrImageNotFound)
	}
	img.Clusters = append([]string(nil), clusters...)
	return nil
}

func (f *fakeAPI) CreateImage(_ context.Context, name string, tags, clusters []string) (Image, error) {
	if f.createImageErr != nil {
		return Image{}, f.createImageErr
	}
	img := &Image{ID: f.id("img"), Name: name, Tags: tags, Clusters: clusters}
	f.images[img.ID] = img
	return *img, nil
}

func (f *fakeAPI) UploadImage(_ context.Context, id string, data io.Reader) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.uploads[id] = b
	return nil
}

func (f *fakeAPI) DeleteImage(_ context.Context, id string) error {
	if _, ok := f.images[id]; !ok {
		return fmt.Errorf("image %s: %w", id, ErrImageNotFound)
	}
	delete(f.images, id)
	return nil
}

// staticReleases always resolves to the same release.
type staticReleases struct {
	release Release
	err     error
}

func (s staticReleases) Resolve(context.Context) (Release, error) { return s.release, s.err }
