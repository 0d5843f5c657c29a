// Package internaldefs holds the shared metric naming and bucket tables
// consumed by the exporter packages. It is not intended for direct use
// by hosts.
package internaldefs
