// Package provisioning defines the contract between the cluster lifecycle
// and the cloud backends that allocate infrastructure outside the installer.
//
// # Subpackages
//
//   - aws/ — region selection by VPC count
//   - openstack/ — network selection by free address ratio, floating IPs and boot images
//   - hetzner/ — location selection by floating IP count and floating IPs
//
// # Core Types
//
// Provisioner is the per-cluster backend driven by the lifecycle: it
// acquires resources before the config is rendered and finishes setup after
// the installer succeeds. Registry maps a cloud name to a Factory. Releaser
// frees what a ledger records during teardown; ReleaserRegistry maps a
// ledger provider to its Releaser.
//
// FirstBelowThreshold and BestNetwork implement the candidate selection
// shared by the backends.
package provisioning
