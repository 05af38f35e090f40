// Package version reports the colpipe build version.
//
// Version, git commit, branch, and build time are set at compile time
// via -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/colpipe/version.Version=1.0.0" ./cmd/colpipe
package version
