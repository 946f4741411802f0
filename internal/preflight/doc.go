// Package preflight runs daemon startup checks: directory access, free disk
// space, and archive service reachability.
package preflight
