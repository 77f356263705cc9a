// Package version holds the daemon version string.
package version

// Version is the armazd release version. Overridable at link time:
//
//	go build -ldflags "-X github.com/armazcape/armazd/internal/version.Version=..."
var Version = "0.3.0"
