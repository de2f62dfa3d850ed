// Package version carries the client build version.
package version

// Version is the running client version, set at build time with
// -ldflags "-X nodedesk/pkg/version.Version=1.2.3".
var Version = "0.9.0"
