// Package openstack provisions clusters on OpenStack.
//
// Before the install it picks the external network with the most free
// addresses, allocates the API floating IP and optionally resolves a
// shared boot image. After the install it attaches the ingress floating IP
// to the port the installer created. Every allocation is written to the
// cluster ledger so a later clean can release it.
//
// Boot images are shared between clusters of the same version. The image
// property osia_clusters lists the clusters using an image; the image is
// deleted when the last of them is cleaned.
package openstack
