// Package naming derives resource and record names from a cluster name.
//
// Every cloud resource allocated outside the installer is named
// {cluster}-{purpose} so it can be traced back to its cluster, and boot
// images carry the image version in both name and tag.
package naming

import (
	"fmt"
	"strings"
)

// Floating IP purposes.
const (
	PurposeAPI     = "api"
	PurposeIngress = "ingress"
)

const (
	ingressPortSuffix = "ingress-port"
	imagePrefix       = "osia"
)

func FloatingIP(cluster, purpose string) string {
	return fmt.Sprintf("%s-%s", cluster, purpose)
}

// IsIngressPort reports whether a port created by the installer is the
// ingress port of the cluster.
func IsIngressPort(cluster, portName string) bool {
	return strings.HasPrefix(portName, cluster) && strings.HasSuffix(portName, ingressPortSuffix)
}

// ClusterImage is the name of a boot image uploaded for a cluster.
func ClusterImage(cluster, version string) string {
	return fmt.Sprintf("%s-%s-%s", imagePrefix, cluster, version)
}

// ImageVersionTag marks an uploaded image with its version.
func ImageVersionTag(version string) string {
	return fmt.Sprintf("%s-version-%s", imagePrefix, version)
}

// DomainSuffix is the DNS suffix of all cluster records.
func DomainSuffix(cluster, baseDomain string) string {
	return fmt.Sprintf("%s.%s", cluster, baseDomain)
}

func APIRecord(cluster, baseDomain string) string {
	return "api." + DomainSuffix(cluster, baseDomain)
}

func AppsRecord(cluster, baseDomain string) string {
	return "apps." + DomainSuffix(cluster, baseDomain)
}

func WildcardAppsRecord(cluster, baseDomain string) string {
	return "*.apps." + DomainSuffix(cluster, baseDomain)
}

// ClusterDir is the working directory of a cluster below workDir.
func ClusterDir(workDir, cluster string) string {
	if workDir == "" {
		return cluster
	}
	return strings.TrimRight(workDir, "/") + "/" + cluster
}
