// Package buildinfo exposes build information of the tuamail binaries.
//
// Values are injected with ldflags:
//
//	go build -ldflags "-X github.com/yndnr/tuamail-go/internal/infra/buildinfo.Version=v1.0.0"
//
// When they are not, Commit and GoVersion fall back to the module build
// information embedded by the Go toolchain.
package buildinfo
