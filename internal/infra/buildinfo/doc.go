// Package buildinfo reports the version of the running binary.
//
// Values are injected at build time via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/claimledger-go/internal/infra/buildinfo.Version=v1.0.0"
//
// Commit and GoVersion fall back to the module build information when
// not injected.
package buildinfo
