// Package version exposes the toolchain version string.
package version

// Version is stamped at release time; the default marks development
// builds.
var Version = "0.1.0-dev"
