// Package labels provides consistent labeling for cloud resources that
// osia allocates outside the installer.
//
// Standard label keys use the osia.io domain prefix for namespacing.
package labels

// Standard label keys.
const (
	// KeyCluster identifies which cluster a resource belongs to
	KeyCluster = "osia.io/cluster"

	// KeyPurpose identifies what a floating IP is used for (api, ingress)
	KeyPurpose = "osia.io/purpose"

	// KeyRole identifies the role of a server
	KeyRole = "osia.io/role"

	// KeyManagedBy identifies the management system
	KeyManagedBy = "osia.io/managed-by"
)

// RoleIngress marks servers that receive the ingress floating IP.
const RoleIngress = "ingress"

// ManagedByOsia is the value of KeyManagedBy on every labelled resource.
const ManagedByOsia = "osia"

// LabelBuilder provides a fluent interface for building resource labels.
type LabelBuilder struct {
	labels map[string]string
}

// NewLabelBuilder creates a new label builder with the cluster name pre-set.
func NewLabelBuilder(clusterName string) *LabelBuilder {
	return &LabelBuilder{
		labels: map[string]string{
			KeyCluster:   clusterName,
			KeyManagedBy: ManagedByOsia,
		},
	}
}

func (lb *LabelBuilder) WithPurpose(purpose string) *LabelBuilder {
	lb.labels[KeyPurpose] = purpose
	return lb
}

func (lb *LabelBuilder) WithRole(role string) *LabelBuilder {
	lb.labels[KeyRole] = role
	return lb
}

// Merge adds all labels from the provided map.
func (lb *LabelBuilder) Merge(extra map[string]string) *LabelBuilder {
	for k, v := range extra {
		lb.labels[k] = v
	}
	return lb
}

// Build returns a copy of the labels map.
func (lb *LabelBuilder) Build() map[string]string {
	result := make(map[string]string, len(lb.labels))
	for k, v := range lb.labels {
		result[k] = v
	}
	return result
}

// SelectorForCluster returns a label selector string for all resources in a cluster.
func SelectorForCluster(clusterName string) string {
	return KeyCluster + "=" + clusterName
}

// SelectorForIngress selects the servers of a cluster that carry ingress traffic.
func SelectorForIngress(clusterName string) string {
	return SelectorForCluster(clusterName) + "," + KeyRole + "=" + RoleIngress
}
