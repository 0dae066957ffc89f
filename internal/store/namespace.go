package store

import "strings"

const (
	// ServicePrefix is prepended to a namespace to form the service attribute.
	ServicePrefix = "envchain-"
	// Description tags every item envchain creates.
	Description = "envchain"
	// separator splits a multi-namespace exec specifier.
	separator = ","
)

// Encode returns the service attribute for namespace ns.
func Encode(ns string) string {
	return ServicePrefix + ns
}

// Decode strips ServicePrefix from a service attribute. ok is false when the
// attribute was not produced by Encode.
func Decode(service string) (ns string, ok bool) {
	return strings.CutPrefix(service, ServicePrefix)
}

// SplitNamespaces splits an exec specifier ("a,b") into namespaces, in order.
func SplitNamespaces(spec string) []string {
	return strings.Split(spec, separator)
}
